package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AllotmentBackend is the allotments collection's thin client for the engine.
// Reward configuration is edited through the same staged-edit mechanism as
// every other row.
type AllotmentBackend struct{ s *Store }

func (s *Store) Allotments() AllotmentBackend { return AllotmentBackend{s} }

func (b AllotmentBackend) UpsertRows(ctx context.Context, rows []Allotment) error {
	return b.s.inTx(ctx, func(tx *sql.Tx) error {
		for _, a := range rows {
			now := fmtTime(orNow(a.CreatedAt))
			_, err := tx.ExecContext(ctx, `
				INSERT INTO allotments (id, item_type, quota, cadence, multiplier, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ','now'))
				ON CONFLICT(id) DO UPDATE SET
					item_type = excluded.item_type,
					quota = excluded.quota,
					cadence = excluded.cadence,
					multiplier = excluded.multiplier,
					updated_at = excluded.updated_at`,
				a.ID, a.ItemType, a.Quota, a.Cadence, a.Multiplier, now,
			)
			if err != nil {
				return fmt.Errorf("upsert allotment %s: %w", a.ID, err)
			}
		}
		return nil
	})
}

func (b AllotmentBackend) DeleteRows(ctx context.Context, ids []string) error {
	return b.s.deleteByID(ctx, "allotments", ids)
}

func (b AllotmentBackend) SelectAll(ctx context.Context) ([]Allotment, error) {
	rows, err := b.s.db.QueryContext(ctx, `
		SELECT id, item_type, quota, cadence, multiplier, created_at, updated_at
		FROM allotments ORDER BY item_type`)
	if err != nil {
		return nil, fmt.Errorf("list allotments: %w", err)
	}
	defer rows.Close()

	var allotments []Allotment
	for rows.Next() {
		var a Allotment
		var createdAt, updatedAt string
		if err := rows.Scan(&a.ID, &a.ItemType, &a.Quota, &a.Cadence, &a.Multiplier, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt = parseTime(createdAt)
		a.UpdatedAt = parseTime(updatedAt)
		allotments = append(allotments, a)
	}
	return allotments, rows.Err()
}
