package store

import (
	"fmt"
	"strconv"
	"time"
)

func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}

func (s *Store) GetAllSettings() ([]Setting, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	defer rows.Close()

	var settings []Setting
	for rows.Next() {
		var s Setting
		if err := rows.Scan(&s.Key, &s.Value); err != nil {
			return nil, err
		}
		settings = append(settings, s)
	}
	return settings, rows.Err()
}

// GraceMS returns the saved commit grace period.
func (s *Store) GraceMS() (time.Duration, error) {
	v, err := s.GetSetting("grace_ms")
	if err != nil {
		return 0, err
	}
	ms, err := strconv.Atoi(v)
	if err != nil || ms <= 0 {
		return 0, fmt.Errorf("setting grace_ms: invalid value %q", v)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// HorizonDays returns how far ahead the coming-up pane looks.
func (s *Store) HorizonDays() (int, error) {
	v, err := s.GetSetting("horizon_days")
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("setting horizon_days: invalid value %q", v)
	}
	return n, nil
}

// WeekStart returns the first day of the weekly quota window.
func (s *Store) WeekStart() (time.Weekday, error) {
	v, err := s.GetSetting("week_start")
	if err != nil {
		return time.Monday, err
	}
	switch v {
	case "monday":
		return time.Monday, nil
	case "sunday":
		return time.Sunday, nil
	}
	return time.Monday, fmt.Errorf("setting week_start: invalid value %q", v)
}
