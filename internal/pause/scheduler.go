// Package pause implements the break-reminder state machine and its statistics.
package pause

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/harmonia-vision/harmonia/internal/clock"
	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/harmonia-vision/harmonia/internal/statestore"
)

// TickInterval is the countdown resolution.
const TickInterval = time.Second

// statsFlushTicks bounds how many enabled-seconds may be lost on a crash.
const statsFlushTicks = 60

// ErrNotOnBreak is returned by Snooze and Dismiss outside a break.
var ErrNotOnBreak = errors.New("pause: no break in progress")

// Config holds scheduler dependencies and tuning. Zero values take defaults.
type Config struct {
	Clock          clock.Clock
	Idle           model.IdleSource
	IdleThreshold  time.Duration
	SnoozeDuration time.Duration
	HistoryDays    int // days of per-day statistics to keep; 0 keeps all
	Defaults       model.PauseSettings
	Location       *time.Location
	// Journal, when set, receives one event per break outcome.
	Journal model.BreakJournal
}

// Scheduler owns the work/break countdown. All operations and timer callbacks
// are serialised by one mutex; listeners run after it is released.
type Scheduler struct {
	store model.StateStore
	cfg   Config

	mu        sync.Mutex
	settings  model.PauseSettings
	stats     model.PauseStats
	state     model.PauseState
	snoozing  bool
	timer     clock.Timer
	gen       uint64
	dirty     int
	started   bool
	closed    bool
	listeners map[int]func(model.PauseState)
	nextID    int
}

// New creates a Scheduler. Call Start to load persisted state and begin counting.
func New(store model.StateStore, cfg Config) *Scheduler {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real{}
	}
	if cfg.IdleThreshold <= 0 {
		cfg.IdleThreshold = model.DefaultIdleThreshold
	}
	if cfg.SnoozeDuration <= 0 {
		cfg.SnoozeDuration = model.DefaultSnoozeDuration
	}
	if cfg.HistoryDays < 0 {
		cfg.HistoryDays = 0
	}
	if cfg.Defaults == (model.PauseSettings{}) {
		cfg.Defaults = model.DefaultPauseSettings()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &Scheduler{
		store:     store,
		cfg:       cfg,
		settings:  cfg.Defaults,
		stats:     newStats(),
		state:     model.PauseState{Phase: model.PhaseInactive},
		listeners: map[int]func(model.PauseState){},
	}
}

// Start loads settings and statistics and enters Active when enabled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}

	var settings model.PauseSettings
	ok, err := statestore.GetJSON(ctx, s.store, model.KeyPauseSettings, &settings)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("pause: load settings: %w", err)
	}
	if ok {
		s.settings = settings
	}

	stats := newStats()
	if _, err := statestore.GetJSON(ctx, s.store, model.KeyPauseStats, &stats); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("pause: load stats: %w", err)
	}
	if stats.Days == nil {
		stats.Days = map[string]model.DayStats{}
	}
	s.stats = stats
	rollover(&s.stats, s.today(), s.cfg.Location, s.cfg.HistoryDays)

	s.started = true
	if s.settings.Enabled {
		s.enterActiveLocked(s.workSeconds())
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return nil
}

// OnStateChange registers fn for every state change and returns a func that removes it.
func (s *Scheduler) OnStateChange(fn func(model.PauseState)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// State returns the current runtime state.
func (s *Scheduler) State() model.PauseState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Settings returns the current configuration.
func (s *Scheduler) Settings() model.PauseSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Stats returns a copy of the cumulative statistics.
func (s *Scheduler) Stats() model.PauseStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneStats(s.stats)
}

// Summary returns the today / week / all-time statistics view.
func (s *Scheduler) Summary() model.StatsSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summarize(s.stats, s.cfg.Clock.Now(), s.cfg.Location)
}

// Toggle flips between Inactive and Active. Turning off during a break ends
// the break without crediting it.
func (s *Scheduler) Toggle(ctx context.Context) (model.PauseState, error) {
	return s.mutate(ctx, func() (bool, error) {
		switch s.state.Phase {
		case model.PhaseInactive:
			s.enterActiveLocked(s.workSeconds())
			return false, nil
		case model.PhaseOnBreak:
			recordUncredited(&s.stats, s.today(), outcomeCancelled)
			s.journalLocked(ctx, model.OutcomeCancelled, 0)
			s.enterInactiveLocked()
			return true, nil
		default:
			s.enterInactiveLocked()
			return false, nil
		}
	})
}

// TriggerBreakNow starts a break immediately from Active. It is a no-op
// during a break and while the reminder is off.
func (s *Scheduler) TriggerBreakNow(ctx context.Context) (model.PauseState, error) {
	return s.mutate(ctx, func() (bool, error) {
		if s.state.Phase == model.PhaseActive {
			s.enterBreakLocked()
		}
		return false, nil
	})
}

// Snooze ends the current break uncredited and schedules the next one after the snooze duration.
func (s *Scheduler) Snooze(ctx context.Context) (model.PauseState, error) {
	return s.mutate(ctx, func() (bool, error) {
		if s.state.Phase != model.PhaseOnBreak {
			return false, ErrNotOnBreak
		}
		recordUncredited(&s.stats, s.today(), outcomeSnoozed)
		s.journalLocked(ctx, model.OutcomeSnoozed, 0)
		s.enterActiveLocked(int(s.cfg.SnoozeDuration / time.Second))
		s.snoozing = true
		return true, nil
	})
}

// Dismiss ends the current break uncredited and starts a full work interval.
func (s *Scheduler) Dismiss(ctx context.Context) (model.PauseState, error) {
	return s.mutate(ctx, func() (bool, error) {
		if s.state.Phase != model.PhaseOnBreak {
			return false, ErrNotOnBreak
		}
		recordUncredited(&s.stats, s.today(), outcomeDismissed)
		s.journalLocked(ctx, model.OutcomeDismissed, 0)
		s.enterActiveLocked(s.workSeconds())
		return true, nil
	})
}

// UpdateSettings merges patch into the settings and persists the result.
// A running countdown whose duration changed is rescaled to keep its progress.
func (s *Scheduler) UpdateSettings(ctx context.Context, patch model.PauseSettingsPatch) (model.PauseSettings, error) {
	if err := model.Validate(patch); err != nil {
		return model.PauseSettings{}, err
	}

	s.mu.Lock()
	old := s.settings
	merged := patch.Apply(old)
	if err := model.Validate(merged); err != nil {
		s.mu.Unlock()
		return model.PauseSettings{}, err
	}
	if err := statestore.SetJSON(ctx, s.store, model.KeyPauseSettings, merged); err != nil {
		s.mu.Unlock()
		return model.PauseSettings{}, fmt.Errorf("pause: save settings: %w", err)
	}
	s.settings = merged

	statsChanged := false
	switch {
	case old.Enabled && !merged.Enabled && s.state.Phase != model.PhaseInactive:
		if s.state.Phase == model.PhaseOnBreak {
			recordUncredited(&s.stats, s.today(), outcomeCancelled)
			s.journalLocked(ctx, model.OutcomeCancelled, 0)
			statsChanged = true
		}
		s.enterInactiveLocked()
	case merged.Enabled && !old.Enabled && s.state.Phase == model.PhaseInactive:
		s.enterActiveLocked(s.workSeconds())
	case s.state.Phase == model.PhaseActive && !s.snoozing && merged.WorkIntervalMinutes != old.WorkIntervalMinutes:
		s.rescaleLocked(s.workSeconds())
	case s.state.Phase == model.PhaseOnBreak && merged.BreakDurationSeconds != old.BreakDurationSeconds:
		s.rescaleLocked(merged.BreakDurationSeconds)
	}
	if statsChanged {
		s.saveStatsLocked(ctx)
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return merged, nil
}

// ResetStats erases all statistics.
func (s *Scheduler) ResetStats(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := newStats()
	stats.LastSeenDay = s.today()
	if err := statestore.SetJSON(ctx, s.store, model.KeyPauseStats, stats); err != nil {
		return fmt.Errorf("pause: reset stats: %w", err)
	}
	s.stats = stats
	s.dirty = 0
	return nil
}

// Close stops the countdown without firing it, flushes statistics and drops listeners.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.disarmLocked()
	if s.dirty > 0 {
		s.saveStatsLocked(context.Background())
	}
	s.listeners = map[int]func(model.PauseState){}
}

// mutate runs fn under the lock, persists stats when fn reports a change and
// notifies listeners.
func (s *Scheduler) mutate(ctx context.Context, fn func() (statsChanged bool, err error)) (model.PauseState, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return model.PauseState{}, errors.New("pause: scheduler closed")
	}
	statsChanged, err := fn()
	if err != nil {
		st := s.snapshotLocked()
		s.mu.Unlock()
		return st, err
	}
	if statsChanged {
		s.saveStatsLocked(ctx)
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
	return st, nil
}

func (s *Scheduler) tick(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.timer = nil

	today := s.today()
	if s.stats.LastSeenDay != today {
		rollover(&s.stats, today, s.cfg.Location, s.cfg.HistoryDays)
		s.dirty++
	}

	switch s.state.Phase {
	case model.PhaseActive:
		if s.settings.PauseWhenIdle && s.cfg.Idle != nil && s.cfg.Idle.IdleFor() >= s.cfg.IdleThreshold {
			s.state.Suspended = true
			break
		}
		s.state.Suspended = false
		s.state.RemainingSeconds--
		addEnabledSecond(&s.stats, today)
		s.dirty++
		if s.state.RemainingSeconds <= 0 {
			s.enterBreakLocked()
		}
	case model.PhaseOnBreak:
		s.state.RemainingSeconds--
		addEnabledSecond(&s.stats, today)
		s.dirty++
		if s.state.RemainingSeconds <= 0 {
			recordCompleted(&s.stats, today, s.state.TotalSeconds)
			s.journalLocked(context.Background(), model.OutcomeCompleted, s.state.TotalSeconds)
			s.saveStatsLocked(context.Background())
			s.enterActiveLocked(s.workSeconds())
		}
	}

	if s.dirty >= statsFlushTicks {
		s.saveStatsLocked(context.Background())
	}
	if s.state.Phase != model.PhaseInactive {
		s.armLocked()
	}
	st := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(st)
}

func (s *Scheduler) enterActiveLocked(seconds int) {
	if seconds < 1 {
		seconds = 1
	}
	s.state = model.PauseState{Phase: model.PhaseActive, RemainingSeconds: seconds, TotalSeconds: seconds}
	s.snoozing = false
	s.disarmLocked()
	s.armLocked()
}

func (s *Scheduler) enterBreakLocked() {
	d := s.settings.BreakDurationSeconds
	if d < 1 {
		d = 1
	}
	s.state = model.PauseState{Phase: model.PhaseOnBreak, RemainingSeconds: d, TotalSeconds: d}
	s.snoozing = false
	s.disarmLocked()
	s.armLocked()
}

func (s *Scheduler) enterInactiveLocked() {
	s.state = model.PauseState{Phase: model.PhaseInactive}
	s.snoozing = false
	s.disarmLocked()
}

// rescaleLocked keeps the elapsed fraction of the running countdown when its total changes.
func (s *Scheduler) rescaleLocked(newTotal int) {
	oldTotal := s.state.TotalSeconds
	if oldTotal <= 0 || newTotal <= 0 {
		return
	}
	remaining := int(math.Round(float64(s.state.RemainingSeconds) * float64(newTotal) / float64(oldTotal)))
	if remaining < 1 {
		remaining = 1
	}
	s.state.RemainingSeconds = remaining
	s.state.TotalSeconds = newTotal
}

// armLocked (re)starts the tick timer. The generation guard retires callbacks
// of timers that fired while waiting for the lock.
func (s *Scheduler) armLocked() {
	if s.closed {
		return
	}
	if s.timer != nil {
		return
	}
	s.gen++
	gen := s.gen
	s.timer = s.cfg.Clock.AfterFunc(TickInterval, func() { s.tick(gen) })
}

func (s *Scheduler) disarmLocked() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
}

func (s *Scheduler) saveStatsLocked(ctx context.Context) {
	if err := statestore.SetJSON(ctx, s.store, model.KeyPauseStats, s.stats); err != nil {
		log.Printf("pause: save stats: %v", err)
		return
	}
	s.dirty = 0
}

func (s *Scheduler) journalLocked(ctx context.Context, o model.BreakOutcome, seconds int) {
	if s.cfg.Journal == nil {
		return
	}
	now := s.cfg.Clock.Now()
	ev := model.BreakEvent{At: now, Day: dayKey(now, s.cfg.Location), Outcome: o, Seconds: seconds}
	if err := s.cfg.Journal.RecordBreak(ctx, ev); err != nil {
		log.Printf("pause: journal %s: %v", o, err)
	}
}

func (s *Scheduler) snapshotLocked() model.PauseState {
	st := s.state
	st.StatusText = StatusText(st, s.settings)
	return st
}

func (s *Scheduler) notify(st model.PauseState) {
	s.mu.Lock()
	fns := make([]func(model.PauseState), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}

func (s *Scheduler) workSeconds() int {
	return s.settings.WorkIntervalMinutes * 60
}

func (s *Scheduler) today() string {
	return dayKey(s.cfg.Clock.Now(), s.cfg.Location)
}
