package store

// The cache table is the process-wide persistent key/value store behind the
// engine's snapshot cache: a restart can paint from the last known data
// before the first select completes. Best effort, never a source of truth.

// ReadCache returns the persisted blob for key, if present.
func (s *Store) ReadCache(key string) ([]byte, bool) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM cache WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return nil, false
	}
	return []byte(value), true
}

// WriteCache upserts the blob for key.
func (s *Store) WriteCache(key string, data []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO cache (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data),
	)
	return err
}

// DeleteCache drops the persisted blob for key.
func (s *Store) DeleteCache(key string) error {
	_, err := s.db.Exec(`DELETE FROM cache WHERE key = ?`, key)
	return err
}
