// Package snapshot persists the calibration revert point and the optional prescription.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/statestore"
)

type snapshotValue struct {
	ID       string               `json:"id"`
	Settings model.EditorSettings `json:"settings"`
}

// Store reads and writes the snapshot and prescription records.
// The snapshot spans two keys: the settings and their capture timestamp.
type Store struct {
	kv model.StateStore
}

// NewStore wraps a state store.
func NewStore(kv model.StateStore) *Store {
	return &Store{kv: kv}
}

// Get returns the current snapshot record, if any.
func (s *Store) Get(ctx context.Context) (model.SnapshotRecord, bool, error) {
	var v snapshotValue
	ok, err := statestore.GetJSON(ctx, s.kv, model.KeySnapshot, &v)
	if err != nil || !ok {
		return model.SnapshotRecord{}, false, err
	}
	rec := model.SnapshotRecord{ID: v.ID, Settings: v.Settings}

	var ts time.Time
	if _, err := statestore.GetJSON(ctx, s.kv, model.KeySnapshotTimestamp, &ts); err != nil {
		return model.SnapshotRecord{}, false, err
	}
	rec.CapturedAt = ts
	return rec, true, nil
}

// Put replaces the snapshot with settings captured at the given time.
func (s *Store) Put(ctx context.Context, settings model.EditorSettings, at time.Time) (model.SnapshotRecord, error) {
	rec := model.SnapshotRecord{ID: uuid.NewString(), Settings: settings, CapturedAt: at.UTC()}
	if err := statestore.SetJSON(ctx, s.kv, model.KeySnapshot, snapshotValue{ID: rec.ID, Settings: settings}); err != nil {
		return model.SnapshotRecord{}, fmt.Errorf("snapshot: put: %w", err)
	}
	if err := statestore.SetJSON(ctx, s.kv, model.KeySnapshotTimestamp, rec.CapturedAt); err != nil {
		return model.SnapshotRecord{}, fmt.Errorf("snapshot: put timestamp: %w", err)
	}
	return rec, nil
}

// Delete removes the snapshot. Deleting an absent snapshot is not an error.
func (s *Store) Delete(ctx context.Context) error {
	if err := s.kv.Delete(ctx, model.KeySnapshot); err != nil {
		return fmt.Errorf("snapshot: delete: %w", err)
	}
	if err := s.kv.Delete(ctx, model.KeySnapshotTimestamp); err != nil {
		return fmt.Errorf("snapshot: delete timestamp: %w", err)
	}
	return nil
}

// Prescription returns the remembered prescription, if any.
func (s *Store) Prescription(ctx context.Context) (model.Prescription, bool, error) {
	var p model.Prescription
	ok, err := statestore.GetJSON(ctx, s.kv, model.KeyPrescription, &p)
	return p, ok, err
}

// SavePrescription stores p. A prescription without RememberMe clears the record instead.
func (s *Store) SavePrescription(ctx context.Context, p model.Prescription) error {
	if !p.RememberMe {
		return s.ClearPrescription(ctx)
	}
	return statestore.SetJSON(ctx, s.kv, model.KeyPrescription, p)
}

// ClearPrescription erases the prescription record.
func (s *Store) ClearPrescription(ctx context.Context) error {
	if err := s.kv.Delete(ctx, model.KeyPrescription); err != nil {
		return fmt.Errorf("snapshot: clear prescription: %w", err)
	}
	return nil
}
