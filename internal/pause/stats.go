package pause

import (
	"time"

	"github.com/harmonia-vision/harmonia/internal/model"
)

const dayLayout = "2006-01-02"

func dayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dayLayout)
}

func newStats() model.PauseStats {
	return model.PauseStats{Days: map[string]model.DayStats{}}
}

func cloneStats(s model.PauseStats) model.PauseStats {
	out := s
	out.Days = make(map[string]model.DayStats, len(s.Days))
	for k, v := range s.Days {
		out.Days[k] = v
	}
	return out
}

// streakBroken reports whether a day strictly between the last break day and
// today had enabled time but no completed break. Days without enabled time
// (feature off, service not running) do not break a streak.
func streakBroken(s model.PauseStats, today string) bool {
	if s.LastBreakDay == "" {
		return true
	}
	for day, d := range s.Days {
		if day <= s.LastBreakDay || day >= today {
			continue
		}
		if d.EnabledSeconds > 0 && d.BreaksTaken == 0 {
			return true
		}
	}
	return false
}

// rollover runs once per new calendar day: it resets a broken streak and
// prunes history older than keepDays.
func rollover(s *model.PauseStats, today string, loc *time.Location, keepDays int) {
	if s.LastSeenDay == today {
		return
	}
	if s.CurrentStreakDays > 0 && s.LastBreakDay != today && streakBroken(*s, today) {
		s.CurrentStreakDays = 0
	}
	if keepDays > 0 {
		t, err := time.ParseInLocation(dayLayout, today, loc)
		if err == nil {
			cutoff := t.AddDate(0, 0, -keepDays).Format(dayLayout)
			for day := range s.Days {
				if day < cutoff {
					delete(s.Days, day)
				}
			}
		}
	}
	s.LastSeenDay = today
}

// recordCompleted credits one completed break on today.
func recordCompleted(s *model.PauseStats, today string, restSeconds int) {
	d := s.Days[today]
	d.BreaksTaken++
	d.RestSeconds += restSeconds
	s.Days[today] = d
	s.BreaksTaken++
	s.TotalRestSeconds += restSeconds

	if s.LastBreakDay != today {
		if streakBroken(*s, today) {
			s.CurrentStreakDays = 1
		} else {
			s.CurrentStreakDays++
		}
		s.LastBreakDay = today
	}
	if s.CurrentStreakDays > s.LongestStreakDays {
		s.LongestStreakDays = s.CurrentStreakDays
	}
}

type outcome int

const (
	outcomeSnoozed outcome = iota
	outcomeDismissed
	outcomeCancelled
)

func recordUncredited(s *model.PauseStats, today string, o outcome) {
	d := s.Days[today]
	switch o {
	case outcomeSnoozed:
		d.Snoozed++
		s.Snoozed++
	case outcomeDismissed:
		d.Dismissed++
		s.Dismissed++
	case outcomeCancelled:
		d.Cancelled++
		s.Cancelled++
	}
	s.Days[today] = d
}

func addEnabledSecond(s *model.PauseStats, today string) {
	d := s.Days[today]
	d.EnabledSeconds++
	s.Days[today] = d
}

func window(days []model.DayStats) model.WindowStats {
	var w model.WindowStats
	for _, d := range days {
		w.BreaksTaken += d.BreaksTaken
		w.Snoozed += d.Snoozed
		w.Dismissed += d.Dismissed
		w.Cancelled += d.Cancelled
		w.RestSeconds += d.RestSeconds
	}
	w.Scheduled = w.BreaksTaken + w.Snoozed + w.Dismissed + w.Cancelled
	if w.Scheduled > 0 {
		w.Compliance = float64(w.BreaksTaken) / float64(w.Scheduled)
	}
	return w
}

// Summarize builds the today / last-7-days / all-time view of s as of now.
func Summarize(s model.PauseStats, now time.Time, loc *time.Location) model.StatsSummary {
	if loc == nil {
		loc = time.Local
	}
	today := dayKey(now, loc)
	local := now.In(loc)

	history := make([]model.DayEntry, 0, 7)
	week := make([]model.DayStats, 0, 7)
	for i := 6; i >= 0; i-- {
		day := local.AddDate(0, 0, -i).Format(dayLayout)
		d := s.Days[day]
		week = append(week, d)
		history = append(history, model.DayEntry{Day: day, DayStats: d})
	}

	all := model.DayStats{
		BreaksTaken: s.BreaksTaken,
		Snoozed:     s.Snoozed,
		Dismissed:   s.Dismissed,
		Cancelled:   s.Cancelled,
		RestSeconds: s.TotalRestSeconds,
	}

	current := s.CurrentStreakDays
	if current > 0 && s.LastBreakDay != today && streakBroken(s, today) {
		current = 0
	}

	return model.StatsSummary{
		Today:             window([]model.DayStats{s.Days[today]}),
		Week:              window(week),
		AllTime:           window([]model.DayStats{all}),
		CurrentStreakDays: current,
		LongestStreakDays: s.LongestStreakDays,
		History:           history,
	}
}
