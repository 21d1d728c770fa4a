package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/harmonia-vision/harmonia/internal/model"
)

// rpcTimeout bounds every command sent to the service.
const rpcTimeout = 5 * time.Second

// stateMsg carries a freshly fetched FullState.
type stateMsg struct {
	state model.FullState
	err   error
}

// statsMsg carries the history page data.
type statsMsg struct {
	summary model.StatsSummary
	events  []model.BreakEvent
	err     error
}

// resultMsg reports the outcome of a command.
type resultMsg struct {
	action string
	err    error
}

// pollMsg drives periodic refreshes. gen ties it to one page activation.
type pollMsg struct {
	page string
	gen  int
}

func pollCmd(page string, gen int, every time.Duration) tea.Cmd {
	return tea.Tick(every, func(_ time.Time) tea.Msg {
		return pollMsg{page: page, gen: gen}
	})
}

func fetchState(api model.ControlAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		fs, err := api.FullState(ctx)
		return stateMsg{state: fs, err: err}
	}
}

func fetchStats(api model.ControlAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		sum, err := api.PauseStats(ctx)
		if err != nil {
			return statsMsg{err: err}
		}
		evs, err := api.BreakEvents(ctx, 7)
		return statsMsg{summary: sum, events: evs, err: err}
	}
}

// runCommand executes fn against the service and reports the outcome as a resultMsg.
func runCommand(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		return resultMsg{action: action, err: fn(ctx)}
	}
}

// pauseCommand adapts a pause command that returns the new state.
func pauseCommand(action string, fn func(ctx context.Context) (model.PauseState, error)) tea.Cmd {
	return runCommand(action, func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	})
}

// reportActivity tells the service the user is present. Failures are ignored.
func reportActivity(api model.ControlAPI) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		_ = api.ReportActivity(ctx)
		return nil
	}
}
