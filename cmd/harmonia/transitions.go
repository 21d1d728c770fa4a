package main

import (
	"log"
	"sync"

	"github.com/harmonia-vision/harmonia/internal/events"
	"github.com/harmonia-vision/harmonia/internal/metrics"
	"github.com/harmonia-vision/harmonia/internal/model"
)

// logPauseTransitions returns a bus subscriber that logs each phase change once.
// pauseStateChanged fires every second while counting; only transitions are logged.
func logPauseTransitions() func(events.Event) {
	var (
		mu        sync.Mutex
		last      model.Phase
		suspended bool
	)
	return func(ev events.Event) {
		if ev.Kind != events.PauseStateChanged || ev.Pause == nil {
			return
		}
		st := *ev.Pause
		mu.Lock()
		changed := st.Phase != last || st.Suspended != suspended
		last, suspended = st.Phase, st.Suspended
		mu.Unlock()
		if !changed {
			return
		}
		switch {
		case st.Suspended:
			log.Printf("pause: countdown suspended (idle)")
		default:
			log.Printf("pause: phase %s (%ds of %ds)", st.Phase, st.RemainingSeconds, st.TotalSeconds)
		}
	}
}

// logFinalMetrics appends the session's counters to the service log on shutdown.
func logFinalMetrics(m *metrics.Metrics) {
	if m == nil {
		return
	}
	log.Printf("server: final metrics")
	if err := m.WritePrometheus(log.Writer()); err != nil {
		log.Printf("server: write metrics: %v", err)
	}
}
