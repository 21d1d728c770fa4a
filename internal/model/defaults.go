package model

import "time"

// Shared defaults used by both the service and TUI binaries.
const (
	DefaultUpdateInterval    = time.Second
	DefaultApplyDebounce     = 150 * time.Millisecond
	DefaultWriteSettleWindow = time.Second
	DefaultIdleThreshold     = 5 * time.Minute
	DefaultSnoozeDuration    = 5 * time.Minute
	DefaultHistoryDays       = 90
	DefaultAutoRevealWindow  = 5 * time.Minute
)

// DefaultPauseSettings is the 20-20-20 configuration used on first run.
func DefaultPauseSettings() PauseSettings {
	return PauseSettings{
		Enabled:              true,
		WorkIntervalMinutes:  20,
		BreakDurationSeconds: 20,
		ShowStatusBar:        true,
		PauseWhenIdle:        true,
		TimerVisibility:      TimerAuto,
	}
}

// DefaultEditorSettings mirrors a stock editor configuration.
func DefaultEditorSettings() EditorSettings {
	return EditorSettings{
		FontSize:      14,
		LineHeight:    0,
		LetterSpacing: 0,
		FontWeight:    FontWeightNormal,
		CursorWidth:   2,
	}
}
