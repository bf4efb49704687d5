package store

import (
	"context"
	"database/sql"
	"fmt"
)

// PriorityBackend is the priorities collection's thin client for the engine.
type PriorityBackend struct{ s *Store }

func (s *Store) Priorities() PriorityBackend { return PriorityBackend{s} }

func (b PriorityBackend) UpsertRows(ctx context.Context, rows []Priority) error {
	return b.s.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range rows {
			now := fmtTime(orNow(p.CreatedAt))
			_, err := tx.ExecContext(ctx, `
				INSERT INTO priorities (id, title, rank, quarter, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ','now'))
				ON CONFLICT(id) DO UPDATE SET
					title = excluded.title,
					rank = excluded.rank,
					quarter = excluded.quarter,
					updated_at = excluded.updated_at`,
				p.ID, p.Title, p.Rank, p.Quarter, now,
			)
			if err != nil {
				return fmt.Errorf("upsert priority %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (b PriorityBackend) DeleteRows(ctx context.Context, ids []string) error {
	return b.s.deleteByID(ctx, "priorities", ids)
}

func (b PriorityBackend) SelectAll(ctx context.Context) ([]Priority, error) {
	rows, err := b.s.db.QueryContext(ctx, `
		SELECT id, title, rank, quarter, created_at, updated_at
		FROM priorities ORDER BY rank, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list priorities: %w", err)
	}
	defer rows.Close()

	var priorities []Priority
	for rows.Next() {
		var p Priority
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Title, &p.Rank, &p.Quarter, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		priorities = append(priorities, p)
	}
	return priorities, rows.Err()
}
