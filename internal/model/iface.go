package model

import (
	"context"
	"time"
)

// State store keys. Each names one independently addressable record.
const (
	KeySnapshot          = "snapshot"
	KeySnapshotTimestamp = "snapshot-timestamp"
	KeyPrescription      = "prescription"
	KeyPauseSettings     = "pause-settings"
	KeyPauseStats        = "pause-stats"
)

// StateStore is the durable key-value area shared by the calibration engine and the scheduler.
// Get reports ok=false when the key is absent.
type StateStore interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// BreakJournal records each break outcome for later inspection.
type BreakJournal interface {
	RecordBreak(ctx context.Context, ev BreakEvent) error
	BreakEvents(ctx context.Context, since time.Time) ([]BreakEvent, error)
}

// SettingsTarget reads and writes the live editor configuration.
// OnExternalChange callbacks fire for every change, including ones caused by Write;
// the returned func detaches the callback.
type SettingsTarget interface {
	Read() (EditorSettings, error)
	Write(ctx context.Context, s EditorSettings) error
	OnExternalChange(fn func()) (unsubscribe func())
}

// IdleSource reports how long the user has been inactive.
type IdleSource interface {
	IdleFor() time.Duration
}

// CalibrationAPI is the settings half of the UI shell command surface.
type CalibrationAPI interface {
	FullState(ctx context.Context) (FullState, error)
	CaptureSnapshot(ctx context.Context, force bool) error
	ReadCurrentSettings(ctx context.Context) (EditorSettings, error)
	ApplySettings(ctx context.Context, s EditorSettings) error
	PreviewSettings(ctx context.Context, s EditorSettings) error
	SaveSettings(ctx context.Context, s EditorSettings) error
	Revert(ctx context.Context) error
	RevertAndClear(ctx context.Context) error
	ClearSnapshot(ctx context.Context) error
	SavePrescription(ctx context.Context, p Prescription) error
	ClearPrescription(ctx context.Context) error
}

// PauseAPI is the break-reminder half of the UI shell command surface.
type PauseAPI interface {
	PauseState(ctx context.Context) (PauseState, error)
	PauseSettings(ctx context.Context) (PauseSettings, error)
	PauseStats(ctx context.Context) (StatsSummary, error)
	TogglePause(ctx context.Context) (PauseState, error)
	TriggerBreakNow(ctx context.Context) (PauseState, error)
	SnoozeBreak(ctx context.Context) (PauseState, error)
	DismissBreak(ctx context.Context) (PauseState, error)
	UpdatePauseSettings(ctx context.Context, patch PauseSettingsPatch) (PauseSettings, error)
	ResetStats(ctx context.Context) error
	BreakEvents(ctx context.Context, days int) ([]BreakEvent, error)
	ReportActivity(ctx context.Context) error
}

// ControlAPI is the unified command contract for UI shells (HTTP, socket RPC, TUI).
type ControlAPI interface {
	CalibrationAPI
	PauseAPI
}
