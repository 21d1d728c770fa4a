package pause

import (
	"testing"
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestStreakCountsConsecutiveDays(t *testing.T) {
	s := newStats()
	for _, day := range []string{"2026-03-01", "2026-03-02", "2026-03-03"} {
		rollover(&s, day, time.UTC, 90)
		addEnabledSecond(&s, day)
		recordCompleted(&s, day, 20)
	}
	assert.Equal(t, 3, s.CurrentStreakDays)
	assert.Equal(t, 3, s.LongestStreakDays)

	recordCompleted(&s, "2026-03-03", 20)
	assert.Equal(t, 3, s.CurrentStreakDays)
}

func TestStreakSkipsDaysWithoutEnabledTime(t *testing.T) {
	s := newStats()
	recordCompleted(&s, "2026-03-01", 20)
	// 03-02 never ran.
	rollover(&s, "2026-03-03", time.UTC, 90)
	assert.Equal(t, 1, s.CurrentStreakDays)
	recordCompleted(&s, "2026-03-03", 20)
	assert.Equal(t, 2, s.CurrentStreakDays)
}

func TestStreakBreaksOnMissedDay(t *testing.T) {
	s := newStats()
	recordCompleted(&s, "2026-03-01", 20)
	recordCompleted(&s, "2026-03-02", 20)
	rollover(&s, "2026-03-03", time.UTC, 90)
	addEnabledSecond(&s, "2026-03-03")
	recordUncredited(&s, "2026-03-03", outcomeDismissed)

	rollover(&s, "2026-03-04", time.UTC, 90)
	assert.Equal(t, 0, s.CurrentStreakDays)
	assert.Equal(t, 2, s.LongestStreakDays)

	recordCompleted(&s, "2026-03-04", 20)
	assert.Equal(t, 1, s.CurrentStreakDays)
	assert.Equal(t, 2, s.LongestStreakDays)
}

func TestRolloverPrunesHistory(t *testing.T) {
	s := newStats()
	addEnabledSecond(&s, "2025-01-01")
	addEnabledSecond(&s, "2026-03-01")
	rollover(&s, "2026-03-02", time.UTC, 90)
	assert.NotContains(t, s.Days, "2025-01-01")
	assert.Contains(t, s.Days, "2026-03-01")
	assert.Equal(t, "2026-03-02", s.LastSeenDay)
}

func TestSummarizeEmptyWindowHasZeroCompliance(t *testing.T) {
	sum := Summarize(newStats(), time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, 0, sum.Week.Scheduled)
	assert.Zero(t, sum.Week.Compliance)
	assert.Len(t, sum.History, 7)
	assert.Equal(t, "2026-02-24", sum.History[0].Day)
}

func TestSummarizeReportsBrokenStreakAsZero(t *testing.T) {
	s := newStats()
	recordCompleted(&s, "2026-03-01", 20)
	s.Days["2026-03-02"] = model.DayStats{EnabledSeconds: 600}
	sum := Summarize(s, time.Date(2026, 3, 3, 8, 0, 0, 0, time.UTC), time.UTC)
	assert.Equal(t, 0, sum.CurrentStreakDays)
	assert.Equal(t, 1, sum.LongestStreakDays)
}

func TestStatusText(t *testing.T) {
	set := model.DefaultPauseSettings()
	active := model.PauseState{Phase: model.PhaseActive, RemainingSeconds: 1199, TotalSeconds: 1200}

	assert.Equal(t, "Break reminder", StatusText(active, set))

	active.RemainingSeconds = 299
	assert.Equal(t, "Next break 04:59", StatusText(active, set))

	set.TimerVisibility = model.TimerAlways
	active.RemainingSeconds = 1199
	assert.Equal(t, "Next break 19:59", StatusText(active, set))

	set.TimerVisibility = model.TimerHidden
	assert.Equal(t, "Break reminder", StatusText(active, set))

	brk := model.PauseState{Phase: model.PhaseOnBreak, RemainingSeconds: 20, TotalSeconds: 20}
	set.TimerVisibility = model.TimerAuto
	assert.Equal(t, "Break 00:20", StatusText(brk, set))

	assert.Equal(t, "Break reminder off", StatusText(model.PauseState{Phase: model.PhaseInactive}, set))

	set.ShowStatusBar = false
	assert.Empty(t, StatusText(active, set))
}
