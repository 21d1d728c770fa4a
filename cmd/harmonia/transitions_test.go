package main

import (
	"bytes"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/harmonia-vision/harmonia/internal/events"
	"github.com/harmonia-vision/harmonia/internal/metrics"
	"github.com/harmonia-vision/harmonia/internal/model"
)

func TestLogPauseTransitions_OnlyChanges(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	bus := events.NewBus()
	bus.Subscribe(logPauseTransitions())

	bus.PublishPause(model.PauseState{Phase: model.PhaseActive, RemainingSeconds: 1200, TotalSeconds: 1200})
	bus.PublishPause(model.PauseState{Phase: model.PhaseActive, RemainingSeconds: 1199, TotalSeconds: 1200})
	bus.PublishPause(model.PauseState{Phase: model.PhaseActive, RemainingSeconds: 1199, TotalSeconds: 1200, Suspended: true})
	bus.PublishPause(model.PauseState{Phase: model.PhaseOnBreak, RemainingSeconds: 20, TotalSeconds: 20})
	bus.PublishFull(model.FullState{})

	out := buf.String()
	if got := strings.Count(out, "pause: "); got != 3 {
		t.Errorf("logged %d lines, want 3:\n%s", got, out)
	}
	if !strings.Contains(out, "suspended (idle)") || !strings.Contains(out, "phase on_break") {
		t.Errorf("unexpected log output:\n%s", out)
	}
}

func TestLogFinalMetrics(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	logFinalMetrics(nil)
	if buf.Len() != 0 {
		t.Errorf("nil metrics logged %q", buf.String())
	}

	m := metrics.New()
	m.ObserveOutcome(model.OutcomeCompleted)
	logFinalMetrics(m)
	if !strings.Contains(buf.String(), `harmonia_break_outcomes_total{outcome="completed"} 1`) {
		t.Errorf("final metrics missing outcome counter:\n%s", buf.String())
	}
}
