package store

import (
	"context"
	"database/sql"
	"fmt"
)

// TodoBackend is the todos collection's thin client for the mutation engine.
type TodoBackend struct{ s *Store }

func (s *Store) Todos() TodoBackend { return TodoBackend{s} }

func (b TodoBackend) UpsertRows(ctx context.Context, rows []Todo) error {
	return b.s.inTx(ctx, func(tx *sql.Tx) error {
		for _, t := range rows {
			var due any
			if t.DueDate != nil {
				due = fmtTime(*t.DueDate)
			}
			now := fmtTime(orNow(t.CreatedAt))
			_, err := tx.ExecContext(ctx, `
				INSERT INTO todos (id, title, notes, done, sort_order, due_date, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ','now'))
				ON CONFLICT(id) DO UPDATE SET
					title = excluded.title,
					notes = excluded.notes,
					done = excluded.done,
					sort_order = excluded.sort_order,
					due_date = excluded.due_date,
					updated_at = excluded.updated_at`,
				t.ID, t.Title, t.Notes, boolInt(t.Done), t.SortOrder, due, now,
			)
			if err != nil {
				return fmt.Errorf("upsert todo %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

func (b TodoBackend) DeleteRows(ctx context.Context, ids []string) error {
	return b.s.deleteByID(ctx, "todos", ids)
}

func (b TodoBackend) SelectAll(ctx context.Context) ([]Todo, error) {
	rows, err := b.s.db.QueryContext(ctx, `
		SELECT id, title, notes, done, sort_order, due_date, created_at, updated_at
		FROM todos ORDER BY sort_order, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var todos []Todo
	for rows.Next() {
		var t Todo
		var done int
		var due sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&t.ID, &t.Title, &t.Notes, &done, &t.SortOrder, &due, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.Done = done == 1
		if due.Valid {
			d := parseTime(due.String)
			t.DueDate = &d
		}
		t.CreatedAt = parseTime(createdAt)
		t.UpdatedAt = parseTime(updatedAt)
		todos = append(todos, t)
	}
	return todos, rows.Err()
}
