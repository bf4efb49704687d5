package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mvrcel/stride/internal/ledger"
)

// AppendRedemption persists one redemption log entry.
func (s *Store) AppendRedemption(ctx context.Context, r ledger.Redemption) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO redemption_events (id, item_type, at, quantity) VALUES (?, ?, ?, ?)`,
		r.ID, r.ItemType, fmtTime(r.At), r.Quantity,
	)
	if err != nil {
		return fmt.Errorf("append redemption: %w", err)
	}
	return nil
}

// DeleteRedemption removes one redemption outright. Only used by the
// immediate undo path, while the event is still inside the optimistic
// window; committed history is never mutated.
func (s *Store) DeleteRedemption(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM redemption_events WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete redemption %s: %w", id, err)
	}
	return nil
}

// ListRedemptions returns the full redemption log, oldest first.
func (s *Store) ListRedemptions(ctx context.Context) ([]ledger.Redemption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, at, quantity FROM redemption_events ORDER BY at`)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	return scanRedemptions(rows)
}

// ListRedemptionsBetween returns the redemptions with from <= at < to,
// oldest first. Timestamps are stored as UTC RFC3339 text, so the range
// comparison happens in the query.
func (s *Store) ListRedemptionsBetween(ctx context.Context, from, to time.Time) ([]ledger.Redemption, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, at, quantity FROM redemption_events
		WHERE at >= ? AND at < ? ORDER BY at`,
		fmtTime(from), fmtTime(to),
	)
	if err != nil {
		return nil, fmt.Errorf("list redemptions in range: %w", err)
	}
	return scanRedemptions(rows)
}

func scanRedemptions(rows *sql.Rows) ([]ledger.Redemption, error) {
	defer rows.Close()
	var redemptions []ledger.Redemption
	for rows.Next() {
		var r ledger.Redemption
		var at string
		if err := rows.Scan(&r.ID, &r.ItemType, &at, &r.Quantity); err != nil {
			return nil, err
		}
		r.At = parseTime(at)
		redemptions = append(redemptions, r)
	}
	return redemptions, rows.Err()
}

// AppendOverage persists one admit-defeat record.
func (s *Store) AppendOverage(ctx context.Context, o ledger.Overage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO overage_records (id, item_type, at) VALUES (?, ?, ?)`,
		o.ID, o.ItemType, fmtTime(o.At),
	)
	if err != nil {
		return fmt.Errorf("append overage: %w", err)
	}
	return nil
}

// DeleteOverage removes one overage record (immediate undo only).
func (s *Store) DeleteOverage(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM overage_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete overage %s: %w", id, err)
	}
	return nil
}

// ListOverages returns all admit-defeat records, oldest first.
func (s *Store) ListOverages(ctx context.Context) ([]ledger.Overage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_type, at FROM overage_records ORDER BY at`)
	if err != nil {
		return nil, fmt.Errorf("list overages: %w", err)
	}
	defer rows.Close()

	var overages []ledger.Overage
	for rows.Next() {
		var o ledger.Overage
		var at string
		if err := rows.Scan(&o.ID, &o.ItemType, &at); err != nil {
			return nil, err
		}
		o.At = parseTime(at)
		overages = append(overages, o)
	}
	return overages, rows.Err()
}
