package store

import (
	"context"
	"database/sql"
	"fmt"
)

// KeyResultBackend is the key-results collection's thin client for the engine.
type KeyResultBackend struct{ s *Store }

func (s *Store) KeyResults() KeyResultBackend { return KeyResultBackend{s} }

func (b KeyResultBackend) UpsertRows(ctx context.Context, rows []KeyResult) error {
	return b.s.inTx(ctx, func(tx *sql.Tx) error {
		for _, k := range rows {
			now := fmtTime(orNow(k.CreatedAt))
			_, err := tx.ExecContext(ctx, `
				INSERT INTO key_results (id, objective, title, target, current, unit, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ','now'))
				ON CONFLICT(id) DO UPDATE SET
					objective = excluded.objective,
					title = excluded.title,
					target = excluded.target,
					current = excluded.current,
					unit = excluded.unit,
					updated_at = excluded.updated_at`,
				k.ID, k.Objective, k.Title, k.Target, k.Current, k.Unit, now,
			)
			if err != nil {
				return fmt.Errorf("upsert key result %s: %w", k.ID, err)
			}
		}
		return nil
	})
}

func (b KeyResultBackend) DeleteRows(ctx context.Context, ids []string) error {
	return b.s.deleteByID(ctx, "key_results", ids)
}

func (b KeyResultBackend) SelectAll(ctx context.Context) ([]KeyResult, error) {
	rows, err := b.s.db.QueryContext(ctx, `
		SELECT id, objective, title, target, current, unit, created_at, updated_at
		FROM key_results ORDER BY objective, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list key results: %w", err)
	}
	defer rows.Close()

	var results []KeyResult
	for rows.Next() {
		var k KeyResult
		var createdAt, updatedAt string
		if err := rows.Scan(&k.ID, &k.Objective, &k.Title, &k.Target, &k.Current, &k.Unit, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		k.CreatedAt = parseTime(createdAt)
		k.UpdatedAt = parseTime(updatedAt)
		results = append(results, k)
	}
	return results, rows.Err()
}
