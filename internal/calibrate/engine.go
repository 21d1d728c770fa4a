// Package calibrate implements snapshot capture, live preview, save and revert
// of editor display settings.
package calibrate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harmonia-vision/harmonia/internal/clock"
	"github.com/harmonia-vision/harmonia/internal/debounce"
	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/snapshot"
)

// Config holds engine tuning and callbacks. Zero values take defaults.
type Config struct {
	Debounce     time.Duration
	SettleWindow time.Duration
	Clock        clock.Clock

	// OnApplied receives the outcome of every debounced write.
	OnApplied func(s model.EditorSettings, err error)
	// OnExternalChange fires when the live settings change and no pending
	// write of this engine accounts for the new value.
	OnExternalChange func()
}

// pendingWrite marks one write issued by the engine. It stays live while the
// write is in flight and for the settle window after it completes, so that
// late change notifications for the same value are still recognised.
type pendingWrite struct {
	settings model.EditorSettings
	inFlight bool
	expires  time.Time
}

// debouncedApply is a slider value waiting for the quiet period. gen is the
// commit generation it was triggered in.
type debouncedApply struct {
	settings model.EditorSettings
	gen      uint64
}

// Engine orchestrates the live settings target and the snapshot store.
type Engine struct {
	target    model.SettingsTarget
	snapshots *snapshot.Store
	clock     clock.Clock
	settle    time.Duration
	onApplied func(model.EditorSettings, error)
	onChange  func()
	debouncer *debounce.Debouncer[debouncedApply]

	// writeMu serialises writes to the target in issue order.
	writeMu sync.Mutex

	mu          sync.Mutex
	commits     uint64
	pending     map[string]*pendingWrite
	unsubscribe func()
	closed      bool
}

// New creates an Engine and subscribes to the target's change notifications.
func New(target model.SettingsTarget, snapshots *snapshot.Store, cfg Config) *Engine {
	if cfg.Debounce <= 0 {
		cfg.Debounce = model.DefaultApplyDebounce
	}
	if cfg.SettleWindow <= 0 {
		cfg.SettleWindow = model.DefaultWriteSettleWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	e := &Engine{
		target:    target,
		snapshots: snapshots,
		clock:     cfg.Clock,
		settle:    cfg.SettleWindow,
		onApplied: cfg.OnApplied,
		onChange:  cfg.OnExternalChange,
		pending:   map[string]*pendingWrite{},
	}
	e.debouncer = debounce.New(cfg.Debounce, cfg.Clock, e.applyDebounced)
	e.unsubscribe = target.OnExternalChange(e.handleChange)
	return e
}

// CaptureSnapshot stores the live settings as the revert point. Without force
// it only captures when no snapshot exists. It reports whether it captured.
func (e *Engine) CaptureSnapshot(ctx context.Context, force bool) (bool, error) {
	if !force {
		_, ok, err := e.snapshots.Get(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return false, nil
		}
	}
	// The revert point is what the user sees, including a value still in the debounce window.
	e.debouncer.Flush()
	current, err := e.target.Read()
	if err != nil {
		return false, fmt.Errorf("calibrate: read current settings: %w", err)
	}
	if _, err := e.snapshots.Put(ctx, current, e.clock.Now()); err != nil {
		return false, err
	}
	return true, nil
}

// ReadCurrentSettings returns the live settings. Nothing is cached.
func (e *Engine) ReadCurrentSettings() (model.EditorSettings, error) {
	return e.target.Read()
}

// ApplySettings writes s to the live target. Debounced calls return at once and
// only the last value of a burst is written; the outcome goes to OnApplied.
func (e *Engine) ApplySettings(ctx context.Context, s model.EditorSettings, debounced bool) error {
	if err := model.Validate(s); err != nil {
		return err
	}
	if debounced {
		e.mu.Lock()
		gen := e.commits
		e.mu.Unlock()
		e.debouncer.Trigger(debouncedApply{settings: s, gen: gen})
		return nil
	}
	e.beginCommit()
	return e.write(ctx, s)
}

// Preview applies s immediately and leaves the snapshot untouched.
func (e *Engine) Preview(ctx context.Context, s model.EditorSettings) error {
	return e.ApplySettings(ctx, s, false)
}

// Save applies s immediately and promotes it to the new revert point.
func (e *Engine) Save(ctx context.Context, s model.EditorSettings) error {
	if err := e.ApplySettings(ctx, s, false); err != nil {
		return err
	}
	if _, err := e.snapshots.Put(ctx, s, e.clock.Now()); err != nil {
		return fmt.Errorf("calibrate: promote snapshot: %w", err)
	}
	return nil
}

// Revert applies the snapshot immediately. The snapshot itself is kept.
func (e *Engine) Revert(ctx context.Context) error {
	e.beginCommit()
	rec, ok, err := e.snapshots.Get(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return model.ErrNoSnapshot
	}
	return e.write(ctx, rec.Settings)
}

// RevertAndClear reverts and then deletes the snapshot. A failed revert keeps it.
func (e *Engine) RevertAndClear(ctx context.Context) error {
	if err := e.Revert(ctx); err != nil {
		return err
	}
	return e.snapshots.Delete(ctx)
}

// ClearSnapshot deletes the revert point.
func (e *Engine) ClearSnapshot(ctx context.Context) error {
	return e.snapshots.Delete(ctx)
}

// Snapshot returns the current revert point.
func (e *Engine) Snapshot(ctx context.Context) (model.SnapshotRecord, bool, error) {
	return e.snapshots.Get(ctx)
}

// HasSnapshot reports whether a revert point exists.
func (e *Engine) HasSnapshot(ctx context.Context) (bool, error) {
	_, ok, err := e.snapshots.Get(ctx)
	return ok, err
}

// SnapshotAge returns how long ago the snapshot was captured.
func (e *Engine) SnapshotAge(ctx context.Context) (time.Duration, bool, error) {
	rec, ok, err := e.snapshots.Get(ctx)
	if err != nil || !ok {
		return 0, ok, err
	}
	return e.clock.Now().Sub(rec.CapturedAt), true, nil
}

// SavePrescription stores the prescription record.
func (e *Engine) SavePrescription(ctx context.Context, p model.Prescription) error {
	if err := model.Validate(p); err != nil {
		return err
	}
	return e.snapshots.SavePrescription(ctx, p)
}

// ClearPrescription erases the prescription record.
func (e *Engine) ClearPrescription(ctx context.Context) error {
	return e.snapshots.ClearPrescription(ctx)
}

// SavedPrescription returns the remembered prescription, if any.
func (e *Engine) SavedPrescription(ctx context.Context) (model.Prescription, bool, error) {
	return e.snapshots.Prescription(ctx)
}

// SelfUpdating reports whether a write issued by the engine is in flight.
func (e *Engine) SelfUpdating() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, p := range e.pending {
		if p.inFlight {
			return true
		}
	}
	return false
}

// Close drops any waiting debounced write without running it and detaches
// from the target's change notifications.
func (e *Engine) Close() {
	e.debouncer.Stop()
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	if e.unsubscribe != nil {
		e.unsubscribe()
	}
}

// beginCommit retires every debounced value triggered so far, including one
// whose timer already fired and is waiting for writeMu.
func (e *Engine) beginCommit() {
	e.mu.Lock()
	e.commits++
	e.mu.Unlock()
	e.debouncer.Cancel()
}

func (e *Engine) applyDebounced(a debouncedApply) {
	e.writeMu.Lock()
	e.mu.Lock()
	stale := a.gen != e.commits
	e.mu.Unlock()
	if stale {
		e.writeMu.Unlock()
		return
	}
	err := e.writeLocked(context.Background(), a.settings)
	e.writeMu.Unlock()

	if err != nil {
		log.Printf("calibrate: debounced apply failed: %v", err)
	}
	if e.onApplied != nil {
		e.onApplied(a.settings, err)
	}
}

func (e *Engine) write(ctx context.Context, s model.EditorSettings) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	return e.writeLocked(ctx, s)
}

func (e *Engine) writeLocked(ctx context.Context, s model.EditorSettings) error {
	token := e.beginWrite(s)
	err := e.target.Write(ctx, s)
	e.endWrite(token)
	if err != nil {
		var wf *model.WriteFailure
		if errors.As(err, &wf) {
			return err
		}
		return &model.WriteFailure{Err: err}
	}
	return nil
}

func (e *Engine) beginWrite(s model.EditorSettings) string {
	token := uuid.NewString()
	e.mu.Lock()
	e.pending[token] = &pendingWrite{settings: s, inFlight: true}
	e.mu.Unlock()
	return token
}

func (e *Engine) endWrite(token string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pending[token]; ok {
		p.inFlight = false
		p.expires = e.clock.Now().Add(e.settle)
	}
}

// handleChange classifies a target change notification as self-caused or external.
func (e *Engine) handleChange() {
	current, readErr := e.target.Read()

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	now := e.clock.Now()
	selfCaused := false
	for token, p := range e.pending {
		if !p.inFlight && now.After(p.expires) {
			delete(e.pending, token)
			continue
		}
		if readErr == nil && p.settings == current {
			selfCaused = true
		}
	}
	e.mu.Unlock()

	if selfCaused || e.onChange == nil {
		return
	}
	e.onChange()
}
