// Package service routes UI shell commands to the calibration engine and the
// break-reminder scheduler and fans their state out as events.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/harmonia-vision/harmonia/internal/calibrate"
	"github.com/harmonia-vision/harmonia/internal/clock"
	"github.com/harmonia-vision/harmonia/internal/events"
	"github.com/harmonia-vision/harmonia/internal/idle"
	"github.com/harmonia-vision/harmonia/internal/metrics"
	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/pause"
	"github.com/harmonia-vision/harmonia/internal/snapshot"
)

// externalRefreshTimeout bounds the FullState rebuild after an external change.
const externalRefreshTimeout = 5 * time.Second

// Options configures a Service. Zero values take defaults.
type Options struct {
	Clock             clock.Clock
	ApplyDebounce     time.Duration
	WriteSettleWindow time.Duration
	IdleThreshold     time.Duration
	SnoozeDuration    time.Duration
	HistoryDays       int // 0 keeps every day of statistics
	PauseDefaults     model.PauseSettings
	Location          *time.Location
	Journal           model.BreakJournal
	Metrics           *metrics.Metrics
}

// Service implements model.ControlAPI.
type Service struct {
	clock   clock.Clock
	engine  *calibrate.Engine
	sched   *pause.Scheduler
	idle    *idle.Tracker
	bus     *events.Bus
	journal model.BreakJournal
	metrics *metrics.Metrics

	mu        sync.Mutex
	lastError string
	detach    func()
	closed    bool
}

var _ model.ControlAPI = (*Service)(nil)

// New wires the engine, scheduler, idle tracker and event bus over target and store.
func New(target model.SettingsTarget, store model.StateStore, opts Options) *Service {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	s := &Service{
		clock:   opts.Clock,
		idle:    idle.NewTracker(opts.Clock),
		bus:     events.NewBus(),
		journal: opts.Journal,
		metrics: opts.Metrics,
	}
	s.engine = calibrate.New(target, snapshot.NewStore(store), calibrate.Config{
		Debounce:         opts.ApplyDebounce,
		SettleWindow:     opts.WriteSettleWindow,
		Clock:            opts.Clock,
		OnApplied:        s.onApplied,
		OnExternalChange: s.onExternalChange,
	})
	s.sched = pause.New(store, pause.Config{
		Clock:          opts.Clock,
		Idle:           s.idle,
		IdleThreshold:  opts.IdleThreshold,
		SnoozeDuration: opts.SnoozeDuration,
		HistoryDays:    opts.HistoryDays,
		Defaults:       opts.PauseDefaults,
		Location:       opts.Location,
		Journal:        &outcomeRecorder{next: opts.Journal, metrics: opts.Metrics},
	})
	return s
}

// Start loads scheduler state and captures the safety-net snapshot if none exists.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	s.detach = s.sched.OnStateChange(s.onPauseState)
	s.mu.Unlock()

	if err := s.sched.Start(ctx); err != nil {
		return err
	}
	captured, err := s.engine.CaptureSnapshot(ctx, false)
	if err != nil {
		return fmt.Errorf("service: initial snapshot: %w", err)
	}
	if captured {
		log.Printf("service: captured initial snapshot")
	}
	return nil
}

// Events returns the bus carrying fullStateChanged and pauseStateChanged events.
func (s *Service) Events() *events.Bus {
	return s.bus
}

// Close stops timers and detaches listeners. Pending debounced writes are dropped.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	detach := s.detach
	s.mu.Unlock()

	s.engine.Close()
	s.sched.Close()
	if detach != nil {
		detach()
	}
}

// FullState assembles everything a shell needs to render the calibration panel.
func (s *Service) FullState(ctx context.Context) (model.FullState, error) {
	current, err := s.engine.ReadCurrentSettings()
	if err != nil {
		return model.FullState{}, fmt.Errorf("read current settings: %w", err)
	}
	fs := model.FullState{
		Current:         current,
		TimerVisibility: s.sched.Settings().TimerVisibility,
		Pause:           s.sched.State(),
	}

	rec, ok, err := s.engine.Snapshot(ctx)
	if err != nil {
		return model.FullState{}, err
	}
	if ok {
		snap := rec.Settings
		fs.Snapshot = &snap
		fs.HasSnapshot = true
		fs.SnapshotAge = humanize.RelTime(rec.CapturedAt, s.clock.Now(), "ago", "from now")
	}

	p, ok, err := s.engine.SavedPrescription(ctx)
	if err != nil {
		return model.FullState{}, err
	}
	if ok {
		fs.Prescription = &p
	}

	s.mu.Lock()
	fs.LastError = s.lastError
	s.mu.Unlock()
	return fs, nil
}

func (s *Service) CaptureSnapshot(ctx context.Context, force bool) error {
	_, err := s.engine.CaptureSnapshot(ctx, force)
	return s.afterCommand(ctx, err)
}

func (s *Service) ReadCurrentSettings(_ context.Context) (model.EditorSettings, error) {
	return s.engine.ReadCurrentSettings()
}

// ApplySettings schedules a debounced write. The outcome arrives as a fullStateChanged event.
func (s *Service) ApplySettings(ctx context.Context, es model.EditorSettings) error {
	s.idle.Touch()
	return s.engine.ApplySettings(ctx, es, true)
}

func (s *Service) PreviewSettings(ctx context.Context, es model.EditorSettings) error {
	s.idle.Touch()
	err := s.engine.Preview(ctx, es)
	s.observeImmediate(err)
	return s.afterCommand(ctx, err)
}

func (s *Service) SaveSettings(ctx context.Context, es model.EditorSettings) error {
	s.idle.Touch()
	err := s.engine.Save(ctx, es)
	s.observeImmediate(err)
	return s.afterCommand(ctx, err)
}

func (s *Service) Revert(ctx context.Context) error {
	err := s.engine.Revert(ctx)
	s.observeImmediate(err)
	return s.afterCommand(ctx, err)
}

func (s *Service) RevertAndClear(ctx context.Context) error {
	err := s.engine.RevertAndClear(ctx)
	s.observeImmediate(err)
	return s.afterCommand(ctx, err)
}

func (s *Service) ClearSnapshot(ctx context.Context) error {
	return s.afterCommand(ctx, s.engine.ClearSnapshot(ctx))
}

func (s *Service) SavePrescription(ctx context.Context, p model.Prescription) error {
	return s.afterCommand(ctx, s.engine.SavePrescription(ctx, p))
}

func (s *Service) ClearPrescription(ctx context.Context) error {
	return s.afterCommand(ctx, s.engine.ClearPrescription(ctx))
}

func (s *Service) PauseState(_ context.Context) (model.PauseState, error) {
	return s.sched.State(), nil
}

func (s *Service) PauseSettings(_ context.Context) (model.PauseSettings, error) {
	return s.sched.Settings(), nil
}

func (s *Service) PauseStats(_ context.Context) (model.StatsSummary, error) {
	return s.sched.Summary(), nil
}

func (s *Service) TogglePause(ctx context.Context) (model.PauseState, error) {
	return s.sched.Toggle(ctx)
}

func (s *Service) TriggerBreakNow(ctx context.Context) (model.PauseState, error) {
	return s.sched.TriggerBreakNow(ctx)
}

func (s *Service) SnoozeBreak(ctx context.Context) (model.PauseState, error) {
	return s.sched.Snooze(ctx)
}

func (s *Service) DismissBreak(ctx context.Context) (model.PauseState, error) {
	return s.sched.Dismiss(ctx)
}

// UpdatePauseSettings merges patch; a timer-visibility change also refreshes the calibration panel.
func (s *Service) UpdatePauseSettings(ctx context.Context, patch model.PauseSettingsPatch) (model.PauseSettings, error) {
	set, err := s.sched.UpdateSettings(ctx, patch)
	if err != nil {
		return set, err
	}
	if patch.TimerVisibility != nil {
		s.publishFull(ctx)
	}
	return set, nil
}

func (s *Service) ResetStats(ctx context.Context) error {
	return s.sched.ResetStats(ctx)
}

// BreakEvents returns the break journal for the last days days.
func (s *Service) BreakEvents(ctx context.Context, days int) ([]model.BreakEvent, error) {
	if s.journal == nil {
		return nil, nil
	}
	if days <= 0 {
		days = 7
	}
	return s.journal.BreakEvents(ctx, s.clock.Now().AddDate(0, 0, -days))
}

// ReportActivity marks the user as active for idle detection.
func (s *Service) ReportActivity(_ context.Context) error {
	s.idle.Touch()
	return nil
}

// afterCommand records the command outcome and broadcasts the new full state.
func (s *Service) afterCommand(ctx context.Context, err error) error {
	s.setLastError(err)
	s.publishFull(ctx)
	return err
}

func (s *Service) setLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.lastError = err.Error()
		return
	}
	s.lastError = ""
}

func (s *Service) publishFull(ctx context.Context) {
	if s.bus.Len() == 0 {
		return
	}
	fs, err := s.FullState(ctx)
	if err != nil {
		log.Printf("service: build full state: %v", err)
		return
	}
	s.bus.PublishFull(fs)
}

func (s *Service) onApplied(_ model.EditorSettings, err error) {
	s.metrics.ObserveWrite("debounced", err)
	s.setLastError(err)
	ctx, cancel := context.WithTimeout(context.Background(), externalRefreshTimeout)
	defer cancel()
	s.publishFull(ctx)
}

func (s *Service) onExternalChange() {
	if s.metrics != nil {
		s.metrics.ExternalChanges.Inc()
	}
	s.idle.Touch()
	ctx, cancel := context.WithTimeout(context.Background(), externalRefreshTimeout)
	defer cancel()
	s.publishFull(ctx)
}

func (s *Service) onPauseState(st model.PauseState) {
	s.metrics.SetPhase(st.Phase)
	s.bus.PublishPause(st)
}

func (s *Service) observeImmediate(err error) {
	var wf *model.WriteFailure
	if err == nil || errors.As(err, &wf) {
		s.metrics.ObserveWrite("immediate", err)
	}
}

// outcomeRecorder counts break outcomes and forwards them to the durable journal.
type outcomeRecorder struct {
	next    model.BreakJournal
	metrics *metrics.Metrics
}

func (r *outcomeRecorder) RecordBreak(ctx context.Context, ev model.BreakEvent) error {
	r.metrics.ObserveOutcome(ev.Outcome)
	if r.next == nil {
		return nil
	}
	return r.next.RecordBreak(ctx, ev)
}

func (r *outcomeRecorder) BreakEvents(ctx context.Context, since time.Time) ([]model.BreakEvent, error) {
	if r.next == nil {
		return nil, nil
	}
	return r.next.BreakEvents(ctx, since)
}
