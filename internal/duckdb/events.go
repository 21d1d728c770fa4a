package duckdb

import (
	"context"
	"fmt"
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
)

// RecordBreak appends ev to the break journal.
func (s *Store) RecordBreak(ctx context.Context, ev model.BreakEvent) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "INSERT INTO break_events (at, day, outcome, seconds) VALUES (?, ?, ?, ?)",
		ev.At.UTC(), ev.Day, string(ev.Outcome), ev.Seconds)
	if err != nil {
		return fmt.Errorf("record break: %w", err)
	}
	return nil
}

// BreakEvents returns journal entries at or after since, oldest first.
func (s *Store) BreakEvents(ctx context.Context, since time.Time) ([]model.BreakEvent, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT at, day, outcome, seconds FROM break_events WHERE at >= ? ORDER BY at", since.UTC())
	if err != nil {
		return nil, fmt.Errorf("query break events: %w", err)
	}
	defer rows.Close()

	var out []model.BreakEvent
	for rows.Next() {
		var ev model.BreakEvent
		var outcome string
		if err := rows.Scan(&ev.At, &ev.Day, &outcome, &ev.Seconds); err != nil {
			return nil, fmt.Errorf("scan break event: %w", err)
		}
		ev.Outcome = model.BreakOutcome(outcome)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// PruneBreakEvents deletes journal entries older than cutoff and returns how many were removed.
func (s *Store) PruneBreakEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM break_events WHERE at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune break events: %w", err)
	}
	return res.RowsAffected()
}
