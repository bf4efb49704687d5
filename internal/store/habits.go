package store

import (
	"context"
	"database/sql"
	"fmt"
)

// HabitBackend is the habits collection's thin client for the mutation engine.
type HabitBackend struct{ s *Store }

func (s *Store) Habits() HabitBackend { return HabitBackend{s} }

func (b HabitBackend) UpsertRows(ctx context.Context, rows []Habit) error {
	return b.s.inTx(ctx, func(tx *sql.Tx) error {
		for _, h := range rows {
			now := fmtTime(orNow(h.CreatedAt))
			_, err := tx.ExecContext(ctx, `
				INSERT INTO habits (id, name, schedule, streak, active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ','now'))
				ON CONFLICT(id) DO UPDATE SET
					name = excluded.name,
					schedule = excluded.schedule,
					streak = excluded.streak,
					active = excluded.active,
					updated_at = excluded.updated_at`,
				h.ID, h.Name, h.Schedule, h.Streak, boolInt(h.Active), now,
			)
			if err != nil {
				return fmt.Errorf("upsert habit %s: %w", h.ID, err)
			}
		}
		return nil
	})
}

func (b HabitBackend) DeleteRows(ctx context.Context, ids []string) error {
	return b.s.deleteByID(ctx, "habits", ids)
}

func (b HabitBackend) SelectAll(ctx context.Context) ([]Habit, error) {
	rows, err := b.s.db.QueryContext(ctx, `
		SELECT id, name, schedule, streak, active, created_at, updated_at
		FROM habits ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list habits: %w", err)
	}
	defer rows.Close()

	var habits []Habit
	for rows.Next() {
		var h Habit
		var active int
		var createdAt, updatedAt string
		if err := rows.Scan(&h.ID, &h.Name, &h.Schedule, &h.Streak, &active, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		h.Active = active == 1
		h.CreatedAt = parseTime(createdAt)
		h.UpdatedAt = parseTime(updatedAt)
		habits = append(habits, h)
	}
	return habits, rows.Err()
}
