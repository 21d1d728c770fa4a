package model

import "time"

// FontWeight is the editor font weight.
type FontWeight string

const (
	FontWeightNormal FontWeight = "normal"
	FontWeightLight  FontWeight = "light"
	FontWeightBold   FontWeight = "bold"
)

// LineHighlight is the editor current-line highlight mode.
type LineHighlight string

const (
	LineHighlightNone   LineHighlight = "none"
	LineHighlightGutter LineHighlight = "gutter"
	LineHighlightLine   LineHighlight = "line"
	LineHighlightAll    LineHighlight = "all"
)

// EditorSettings is one complete, self-consistent set of display parameters.
// It is a value type: a new value replaces an old one, it is never patched in place.
// RenderLineHighlight is optional; the empty string means "not set".
type EditorSettings struct {
	FontSize            float64       `json:"fontSize" yaml:"fontSize" validate:"gte=6,lte=100"`
	LineHeight          float64       `json:"lineHeight" yaml:"lineHeight" validate:"gte=0,lte=150"`
	LetterSpacing       float64       `json:"letterSpacing" yaml:"letterSpacing" validate:"gte=-5,lte=10"`
	FontWeight          FontWeight    `json:"fontWeight" yaml:"fontWeight" validate:"required,oneof=normal light bold"`
	CursorWidth         int           `json:"cursorWidth" yaml:"cursorWidth" validate:"gte=1,lte=10"`
	RenderLineHighlight LineHighlight `json:"renderLineHighlight,omitempty" yaml:"renderLineHighlight,omitempty" validate:"omitempty,oneof=none gutter line all"`
}

// SnapshotRecord is the saved revert point.
type SnapshotRecord struct {
	ID         string         `json:"id"`
	Settings   EditorSettings `json:"settings"`
	CapturedAt time.Time      `json:"capturedAt"`
}

// Prescription is the optional remembered eyeglass prescription.
type Prescription struct {
	Sphere     float64 `json:"sphere" validate:"gte=-20,lte=20"`
	Cylinder   float64 `json:"cylinder" validate:"gte=-10,lte=10"`
	RememberMe bool    `json:"rememberMe"`
}

// TimerVisibility controls when the status countdown is shown.
type TimerVisibility string

const (
	TimerAlways TimerVisibility = "always"
	TimerAuto   TimerVisibility = "auto"
	TimerHidden TimerVisibility = "hidden"
)

// PauseSettings is the durable break-reminder configuration.
type PauseSettings struct {
	Enabled              bool            `json:"enabled"`
	WorkIntervalMinutes  int             `json:"workIntervalMinutes" validate:"gte=1,lte=240"`
	BreakDurationSeconds int             `json:"breakDurationSeconds" validate:"gte=5,lte=3600"`
	ShowStatusBar        bool            `json:"showStatusBar"`
	PauseWhenIdle        bool            `json:"pauseWhenIdle"`
	TimerVisibility      TimerVisibility `json:"timerVisibility" validate:"oneof=always auto hidden"`
}

// PauseSettingsPatch is a partial update of PauseSettings. Nil fields are left unchanged.
type PauseSettingsPatch struct {
	Enabled              *bool            `json:"enabled,omitempty"`
	WorkIntervalMinutes  *int             `json:"workIntervalMinutes,omitempty" validate:"omitempty,gte=1,lte=240"`
	BreakDurationSeconds *int             `json:"breakDurationSeconds,omitempty" validate:"omitempty,gte=5,lte=3600"`
	ShowStatusBar        *bool            `json:"showStatusBar,omitempty"`
	PauseWhenIdle        *bool            `json:"pauseWhenIdle,omitempty"`
	TimerVisibility      *TimerVisibility `json:"timerVisibility,omitempty" validate:"omitempty,oneof=always auto hidden"`
}

// Apply returns base with every non-nil patch field applied.
func (p PauseSettingsPatch) Apply(base PauseSettings) PauseSettings {
	out := base
	if p.Enabled != nil {
		out.Enabled = *p.Enabled
	}
	if p.WorkIntervalMinutes != nil {
		out.WorkIntervalMinutes = *p.WorkIntervalMinutes
	}
	if p.BreakDurationSeconds != nil {
		out.BreakDurationSeconds = *p.BreakDurationSeconds
	}
	if p.ShowStatusBar != nil {
		out.ShowStatusBar = *p.ShowStatusBar
	}
	if p.PauseWhenIdle != nil {
		out.PauseWhenIdle = *p.PauseWhenIdle
	}
	if p.TimerVisibility != nil {
		out.TimerVisibility = *p.TimerVisibility
	}
	return out
}

// Phase is a break-reminder state machine phase.
type Phase string

const (
	PhaseInactive Phase = "inactive"
	PhaseActive   Phase = "active"
	PhaseOnBreak  Phase = "on_break"
)

// PauseState is the scheduler's runtime state. It is rebuilt on start and never persisted.
type PauseState struct {
	Phase            Phase  `json:"phase"`
	RemainingSeconds int    `json:"remainingSeconds"`
	TotalSeconds     int    `json:"totalSeconds"`
	Suspended        bool   `json:"suspended"`
	StatusText       string `json:"statusText"`
}

// DayStats holds the counters for one calendar day.
type DayStats struct {
	BreaksTaken    int `json:"breaksTaken"`
	Snoozed        int `json:"snoozed"`
	Dismissed      int `json:"dismissed"`
	Cancelled      int `json:"cancelled"`
	RestSeconds    int `json:"restSeconds"`
	EnabledSeconds int `json:"enabledSeconds"`
}

// Scheduled is the number of breaks that were prompted on the day.
func (d DayStats) Scheduled() int {
	return d.BreaksTaken + d.Snoozed + d.Dismissed + d.Cancelled
}

// PauseStats are the cumulative break counters plus per-day history keyed by YYYY-MM-DD.
type PauseStats struct {
	BreaksTaken       int                 `json:"breaksTaken"`
	Snoozed           int                 `json:"snoozed"`
	Dismissed         int                 `json:"dismissed"`
	Cancelled         int                 `json:"cancelled"`
	TotalRestSeconds  int                 `json:"totalRestSeconds"`
	CurrentStreakDays int                 `json:"currentStreakDays"`
	LongestStreakDays int                 `json:"longestStreakDays"`
	LastBreakDay      string              `json:"lastBreakDay,omitempty"`
	LastSeenDay       string              `json:"lastSeenDay,omitempty"`
	Days              map[string]DayStats `json:"days"`
}

// WindowStats aggregates DayStats over a time window.
type WindowStats struct {
	BreaksTaken int     `json:"breaksTaken"`
	Snoozed     int     `json:"snoozed"`
	Dismissed   int     `json:"dismissed"`
	Cancelled   int     `json:"cancelled"`
	RestSeconds int     `json:"restSeconds"`
	Scheduled   int     `json:"scheduled"`
	Compliance  float64 `json:"compliance"`
}

// StatsSummary is the today / this-week / all-time view of PauseStats.
type StatsSummary struct {
	Today             WindowStats `json:"today"`
	Week              WindowStats `json:"week"`
	AllTime           WindowStats `json:"allTime"`
	CurrentStreakDays int         `json:"currentStreakDays"`
	LongestStreakDays int         `json:"longestStreakDays"`
	History           []DayEntry  `json:"history"`
}

// DayEntry is one day of history in chronological order.
type DayEntry struct {
	Day string `json:"day"`
	DayStats
}

// FullState is everything a UI shell needs to render the calibration panel.
type FullState struct {
	Current         EditorSettings  `json:"current"`
	Snapshot        *EditorSettings `json:"snapshot,omitempty"`
	SnapshotAge     string          `json:"snapshotAge,omitempty"`
	HasSnapshot     bool            `json:"hasSnapshot"`
	TimerVisibility TimerVisibility `json:"timerVisibility"`
	Prescription    *Prescription   `json:"prescription,omitempty"`
	Pause           PauseState      `json:"pause"`
	LastError       string          `json:"lastError,omitempty"`
}

// Result is the tagged outcome of a command at the shell boundary.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// BreakOutcome is how a prompted break ended.
type BreakOutcome string

const (
	OutcomeCompleted BreakOutcome = "completed"
	OutcomeSnoozed   BreakOutcome = "snoozed"
	OutcomeDismissed BreakOutcome = "dismissed"
	OutcomeCancelled BreakOutcome = "cancelled"
)

// BreakEvent is one entry of the break journal.
type BreakEvent struct {
	At      time.Time    `json:"at"`
	Day     string       `json:"day"`
	Outcome BreakOutcome `json:"outcome"`
	Seconds int          `json:"seconds"`
}
