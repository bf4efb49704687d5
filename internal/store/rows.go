package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// boolInt converts to sqlite's integer booleans.
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// orNow keeps an existing created_at across upserts; a zero time means the
// row is new to the store.
func orNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// inTx runs fn inside a transaction so a batch succeeds or fails as a whole.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// deleteByID removes ids from table inside one transaction.
func (s *Store) deleteByID(ctx context.Context, table string, ids []string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, table)
		for _, id := range ids {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return fmt.Errorf("delete from %s: %w", table, err)
			}
		}
		return nil
	})
}
