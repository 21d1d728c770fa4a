package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/harmonia-vision/harmonia/internal/model"
)

// CalibrationPageID identifies the main page.
const CalibrationPageID = "calibration"

// Editor setting bounds enforced locally before a command is sent.
const (
	minFontSize    = 6
	maxFontSize    = 100
	minCursorWidth = 1
	maxCursorWidth = 10
)

var weightCycle = []model.FontWeight{model.FontWeightNormal, model.FontWeightLight, model.FontWeightBold}

// CalibrationPage shows the live editor settings, the revert point and the break countdown.
type CalibrationPage struct {
	api      model.ControlAPI
	keys     KeyMap
	help     help.Model
	bar      progress.Model
	interval time.Duration
	fontStep float64

	state    model.FullState
	loaded   bool
	draft    *model.EditorSettings
	status   string
	err      error
	pollGen  int
	width    int
	quitting bool
}

// NewCalibrationPage creates the page. interval is the refresh period and fontStep the +/- increment.
func NewCalibrationPage(api model.ControlAPI, interval time.Duration, fontStep float64) *CalibrationPage {
	if interval <= 0 {
		interval = model.DefaultUpdateInterval
	}
	if fontStep <= 0 {
		fontStep = 1
	}
	return &CalibrationPage{
		api:      api,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		interval: interval,
		fontStep: fontStep,
	}
}

func (p *CalibrationPage) ID() string { return CalibrationPageID }

func (p *CalibrationPage) Init() tea.Cmd {
	p.pollGen++
	return tea.Batch(fetchState(p.api), pollCmd(CalibrationPageID, p.pollGen, p.interval))
}

func (p *CalibrationPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.help.Width = msg.Width
		return nil, nil

	case pollMsg:
		if msg.page != CalibrationPageID || msg.gen != p.pollGen {
			return nil, nil
		}
		return tea.Batch(fetchState(p.api), pollCmd(CalibrationPageID, p.pollGen, p.interval)), nil

	case stateMsg:
		if msg.err != nil {
			p.err = msg.err
			return nil, nil
		}
		p.err = nil
		p.state = msg.state
		p.loaded = true
		if p.draft != nil && *p.draft == msg.state.Current {
			p.draft = nil
		}
		return nil, nil

	case resultMsg:
		if msg.err != nil {
			p.status = "Error: " + msg.err.Error()
		} else {
			p.status = msg.action
		}
		return fetchState(p.api), nil

	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil, nil
}

func (p *CalibrationPage) handleKey(msg tea.KeyMsg) (tea.Cmd, *PageNav) {
	activity := reportActivity(p.api)

	switch {
	case key.Matches(msg, p.keys.Quit):
		p.quitting = true
		return tea.Quit, nil
	case key.Matches(msg, p.keys.Help):
		p.help.ShowAll = !p.help.ShowAll
		return activity, nil
	case key.Matches(msg, p.keys.NextPage):
		return activity, &PageNav{PageID: HistoryPageID}

	case key.Matches(msg, p.keys.FontUp):
		return tea.Batch(activity, p.adjust(func(s *model.EditorSettings) { s.FontSize += p.fontStep })), nil
	case key.Matches(msg, p.keys.FontDown):
		return tea.Batch(activity, p.adjust(func(s *model.EditorSettings) { s.FontSize -= p.fontStep })), nil
	case key.Matches(msg, p.keys.CursorUp):
		return tea.Batch(activity, p.adjust(func(s *model.EditorSettings) { s.CursorWidth++ })), nil
	case key.Matches(msg, p.keys.CursorDown):
		return tea.Batch(activity, p.adjust(func(s *model.EditorSettings) { s.CursorWidth-- })), nil
	case key.Matches(msg, p.keys.CycleWeight):
		return tea.Batch(activity, p.adjust(func(s *model.EditorSettings) { s.FontWeight = nextWeight(s.FontWeight) })), nil

	case key.Matches(msg, p.keys.Preview):
		es := p.working()
		return tea.Batch(activity, runCommand("Preview applied", func(ctx context.Context) error {
			return p.api.PreviewSettings(ctx, es)
		})), nil
	case key.Matches(msg, p.keys.Save):
		es := p.working()
		return tea.Batch(activity, runCommand("Saved", func(ctx context.Context) error {
			return p.api.SaveSettings(ctx, es)
		})), nil
	case key.Matches(msg, p.keys.Revert):
		p.draft = nil
		return tea.Batch(activity, runCommand("Reverted", p.api.Revert)), nil
	case key.Matches(msg, p.keys.RevertClear):
		p.draft = nil
		return tea.Batch(activity, runCommand("Reverted and cleared", p.api.RevertAndClear)), nil
	case key.Matches(msg, p.keys.Capture):
		return tea.Batch(activity, runCommand("Snapshot captured", func(ctx context.Context) error {
			return p.api.CaptureSnapshot(ctx, true)
		})), nil
	case key.Matches(msg, p.keys.ClearSnap):
		return tea.Batch(activity, runCommand("Snapshot deleted", p.api.ClearSnapshot)), nil

	case key.Matches(msg, p.keys.TogglePause):
		return tea.Batch(activity, pauseCommand("Reminder toggled", p.api.TogglePause)), nil
	case key.Matches(msg, p.keys.BreakNow):
		return tea.Batch(activity, pauseCommand("Break started", p.api.TriggerBreakNow)), nil
	case key.Matches(msg, p.keys.Snooze):
		return tea.Batch(activity, pauseCommand("Snoozed", p.api.SnoozeBreak)), nil
	case key.Matches(msg, p.keys.Dismiss):
		return tea.Batch(activity, pauseCommand("Dismissed", p.api.DismissBreak)), nil
	}
	return activity, nil
}

// working is the settings value the next command acts on: the local draft if any, else the live value.
func (p *CalibrationPage) working() model.EditorSettings {
	if p.draft != nil {
		return *p.draft
	}
	return p.state.Current
}

// adjust edits the working settings and sends them through the service's debounced apply.
// Rapid key repeats coalesce into one write on the service side.
func (p *CalibrationPage) adjust(edit func(*model.EditorSettings)) tea.Cmd {
	if !p.loaded {
		return nil
	}
	es := p.working()
	edit(&es)
	es.FontSize = math.Max(minFontSize, math.Min(maxFontSize, es.FontSize))
	es.CursorWidth = max(minCursorWidth, min(maxCursorWidth, es.CursorWidth))
	if es == p.working() {
		return nil
	}
	p.draft = &es
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
		defer cancel()
		if err := p.api.ApplySettings(ctx, es); err != nil {
			return resultMsg{action: "Apply", err: err}
		}
		return nil
	}
}

func nextWeight(w model.FontWeight) model.FontWeight {
	for i, c := range weightCycle {
		if c == w {
			return weightCycle[(i+1)%len(weightCycle)]
		}
	}
	return model.FontWeightNormal
}

func (p *CalibrationPage) View(width, height int) string {
	if p.quitting {
		return ""
	}
	if !p.loaded {
		if p.err != nil {
			return errorStyle.Render("Cannot reach harmonia service: " + p.err.Error())
		}
		return renderLoadingPlaceholder(width, height)
	}

	var b strings.Builder
	b.WriteString(renderBranding())
	b.WriteString("\n\n")
	b.WriteString(panel("Editor", p.renderSettings(), width, true))
	b.WriteString("\n")
	b.WriteString(panel("Break reminder", p.renderPause(width), width, false))
	b.WriteString("\n")

	if p.state.LastError != "" {
		b.WriteString(errorStyle.Render("Last error: " + p.state.LastError))
		b.WriteString("\n")
	}
	if p.err != nil {
		b.WriteString(errorStyle.Render("Service: " + p.err.Error()))
		b.WriteString("\n")
	}
	if p.status != "" {
		b.WriteString(noteStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(p.help.View(p.keys))
	return b.String()
}

func (p *CalibrationPage) renderSettings() string {
	es := p.working()
	lines := []string{
		row("Font size", formatNumber(es.FontSize)),
		row("Line height", formatLineHeight(es.LineHeight)),
		row("Letter spacing", formatNumber(es.LetterSpacing)),
		row("Font weight", string(es.FontWeight)),
		row("Cursor width", fmt.Sprintf("%d", es.CursorWidth)),
	}
	if es.RenderLineHighlight != "" {
		lines = append(lines, row("Line highlight", string(es.RenderLineHighlight)))
	}
	if p.draft != nil {
		lines = append(lines, dimStyle.Render("pending apply"))
	}

	lines = append(lines, "")
	if p.state.HasSnapshot && p.state.Snapshot != nil {
		snap := fmt.Sprintf("font %s, cursor %d", formatNumber(p.state.Snapshot.FontSize), p.state.Snapshot.CursorWidth)
		if p.state.SnapshotAge != "" {
			snap += " (" + p.state.SnapshotAge + ")"
		}
		lines = append(lines, row("Revert point", snap))
	} else {
		lines = append(lines, row("Revert point", "none"))
	}
	if rx := p.state.Prescription; rx != nil {
		lines = append(lines, row("Prescription", fmt.Sprintf("SPH %+.2f CYL %+.2f", rx.Sphere, rx.Cylinder)))
	}
	return strings.Join(lines, "\n")
}

func (p *CalibrationPage) renderPause(width int) string {
	st := p.state.Pause
	lines := []string{row("Phase", phaseLabel(st))}
	if st.StatusText != "" {
		lines = append(lines, row("Status", st.StatusText))
	}
	if st.Phase != model.PhaseInactive && st.TotalSeconds > 0 {
		barWidth := width - 24
		if barWidth < 10 {
			barWidth = 10
		}
		p.bar.Width = barWidth
		elapsed := float64(st.TotalSeconds-st.RemainingSeconds) / float64(st.TotalSeconds)
		lines = append(lines, row("Progress", p.bar.ViewAs(elapsed)))
	}
	return strings.Join(lines, "\n")
}

func phaseLabel(st model.PauseState) string {
	switch {
	case st.Phase == model.PhaseInactive:
		return lipgloss.NewStyle().Foreground(ColorGray).Render("off")
	case st.Phase == model.PhaseOnBreak:
		return lipgloss.NewStyle().Foreground(ColorGreen).Bold(true).Render("on break, look into the distance")
	case st.Suspended:
		return lipgloss.NewStyle().Foreground(ColorYellow).Render("suspended (idle)")
	}
	return valueStyle.Render("working")
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

func formatLineHeight(v float64) string {
	switch {
	case v == 0:
		return "auto"
	case v < 8:
		return formatNumber(v) + "x"
	}
	return formatNumber(v) + "px"
}
