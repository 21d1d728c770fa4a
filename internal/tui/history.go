package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/harmonia-vision/harmonia/internal/model"
)

// HistoryPageID identifies the statistics page.
const HistoryPageID = "history"

// recentEvents is how many journal entries the page lists.
const recentEvents = 6

var (
	takenStyle  = lipgloss.NewStyle().Foreground(ColorGreen).Background(ColorGreen)
	missedStyle = lipgloss.NewStyle().Foreground(ColorRed).Background(ColorRed)
	emptyStyle  = lipgloss.NewStyle().Foreground(ColorGray).Background(ColorGray)
)

// HistoryPage shows break compliance, streaks, the last seven days and recent journal entries.
type HistoryPage struct {
	api      model.ControlAPI
	keys     KeyMap
	help     help.Model
	interval time.Duration
	now      func() time.Time

	summary model.StatsSummary
	events  []model.BreakEvent
	loaded  bool
	status  string
	err     error
	pollGen int
}

// NewHistoryPage creates the statistics page.
func NewHistoryPage(api model.ControlAPI, interval time.Duration) *HistoryPage {
	if interval <= 0 {
		interval = model.DefaultUpdateInterval
	}
	return &HistoryPage{
		api:      api,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		interval: interval,
		now:      time.Now,
	}
}

func (p *HistoryPage) ID() string { return HistoryPageID }

func (p *HistoryPage) Init() tea.Cmd {
	p.pollGen++
	return tea.Batch(fetchStats(p.api), pollCmd(HistoryPageID, p.pollGen, p.interval))
}

func (p *HistoryPage) Update(msg tea.Msg) (tea.Cmd, *PageNav) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.help.Width = msg.Width
	case pollMsg:
		if msg.page != HistoryPageID || msg.gen != p.pollGen {
			return nil, nil
		}
		return tea.Batch(fetchStats(p.api), pollCmd(HistoryPageID, p.pollGen, p.interval)), nil
	case statsMsg:
		p.err = msg.err
		if msg.err == nil {
			p.summary = msg.summary
			p.events = msg.events
			p.loaded = true
		}
	case resultMsg:
		if msg.err != nil {
			p.status = "Error: " + msg.err.Error()
		} else {
			p.status = msg.action
		}
		return fetchStats(p.api), nil
	case tea.KeyMsg:
		activity := reportActivity(p.api)
		switch {
		case key.Matches(msg, p.keys.Quit):
			return tea.Quit, nil
		case key.Matches(msg, p.keys.NextPage):
			return activity, &PageNav{PageID: CalibrationPageID}
		case key.Matches(msg, p.keys.Help):
			p.help.ShowAll = !p.help.ShowAll
		case key.Matches(msg, p.keys.ResetStats):
			return tea.Batch(activity, runCommand("Statistics reset", func(ctx context.Context) error {
				return p.api.ResetStats(ctx)
			})), nil
		}
		return activity, nil
	}
	return nil, nil
}

func (p *HistoryPage) View(width, height int) string {
	if !p.loaded {
		if p.err != nil {
			return errorStyle.Render("Cannot load statistics: " + p.err.Error())
		}
		return renderLoadingPlaceholder(width, height)
	}

	var b strings.Builder
	b.WriteString(renderBranding())
	b.WriteString("\n\n")
	b.WriteString(panel("Compliance", p.renderSummary(), width, true))
	b.WriteString("\n")
	b.WriteString(panel("Last 7 days", p.renderWeek(width), width, false))
	b.WriteString("\n")
	b.WriteString(panel("Recent breaks", p.renderEvents(), width, false))
	b.WriteString("\n")
	if p.err != nil {
		b.WriteString(errorStyle.Render(p.err.Error()))
		b.WriteString("\n")
	}
	if p.status != "" {
		b.WriteString(noteStyle.Render(p.status))
		b.WriteString("\n")
	}
	b.WriteString(p.help.View(p.keys))
	return b.String()
}

func (p *HistoryPage) renderSummary() string {
	s := p.summary
	return strings.Join([]string{
		row("Today", windowLine(s.Today)),
		row("This week", windowLine(s.Week)),
		row("All time", windowLine(s.AllTime)),
		row("Streak", fmt.Sprintf("%d days (best %d)", s.CurrentStreakDays, s.LongestStreakDays)),
	}, "\n")
}

func windowLine(w model.WindowStats) string {
	if w.Scheduled == 0 {
		return fmt.Sprintf("%d breaks", w.BreaksTaken)
	}
	return fmt.Sprintf("%d/%d breaks, %.0f%%, %s rested",
		w.BreaksTaken, w.Scheduled, w.Compliance*100, time.Duration(w.RestSeconds)*time.Second)
}

// renderWeek draws one stacked bar per day: taken breaks over missed ones.
func (p *HistoryPage) renderWeek(width int) string {
	chartWidth := width - 6
	if chartWidth < 21 {
		chartWidth = 21
	}
	barWidth := max(1, (chartWidth-6)/7)

	bc := barchart.New(chartWidth, 8,
		barchart.WithBarGap(1),
		barchart.WithBarWidth(barWidth),
		barchart.WithNoAxis(),
	)
	labels := make([]string, 0, len(p.summary.History))
	for _, d := range p.summary.History {
		missed := d.Scheduled() - d.BreaksTaken
		var values []barchart.BarValue
		if d.BreaksTaken > 0 {
			values = append(values, barchart.BarValue{Name: "taken", Value: float64(d.BreaksTaken), Style: takenStyle})
		}
		if missed > 0 {
			values = append(values, barchart.BarValue{Name: "missed", Value: float64(missed), Style: missedStyle})
		}
		if len(values) == 0 {
			values = append(values, barchart.BarValue{Name: "none", Value: 0, Style: emptyStyle})
		}
		bc.Push(barchart.BarData{Label: "", Values: values})
		labels = append(labels, dayLabel(d.Day, barWidth))
	}
	bc.Draw()

	legend := lipgloss.NewStyle().Foreground(ColorGreen).Render("■ taken") + "  " +
		lipgloss.NewStyle().Foreground(ColorRed).Render("■ missed")
	return bc.View() + "\n" + strings.Join(labels, " ") + "\n" + legend
}

func dayLabel(day string, width int) string {
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return strings.Repeat(" ", width)
	}
	label := t.Format("Mon")
	if width < len(label) {
		label = label[:width]
	}
	return lipgloss.NewStyle().Width(width).Render(label)
}

func (p *HistoryPage) renderEvents() string {
	if len(p.events) == 0 {
		return dimStyle.Render("no breaks recorded yet")
	}
	now := p.now()
	start := max(0, len(p.events)-recentEvents)
	var lines []string
	for i := len(p.events) - 1; i >= start; i-- {
		ev := p.events[i]
		when := humanize.RelTime(ev.At, now, "ago", "from now")
		lines = append(lines, row(string(ev.Outcome), fmt.Sprintf("%s (%ds)", when, ev.Seconds)))
	}
	return strings.Join(lines, "\n")
}
