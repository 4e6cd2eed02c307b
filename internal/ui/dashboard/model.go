// Package dashboard renders an analysis summary as terminal panels.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/mail-organizer/internal/analytics"
	"github.com/nhle/mail-organizer/internal/theme"
)

const (
	topSenders     = 5
	topDomains     = 8
	topKeywords    = 10
	topAttachments = 6
	barWidth       = 24
)

// Model shows the latest summary, or a placeholder before the first
// analysis.
type Model struct {
	summary  *analytics.Summary
	loading  bool
	spinner  spinner.Model
	viewport viewport.Model
	width    int
	height   int
}

// New creates an empty dashboard.
func New(width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		spinner:  sp,
		viewport: viewport.New(width, height),
		width:    width,
		height:   height,
	}
}

// SetLoading toggles the in-progress indicator. The returned command
// drives the spinner.
func (m *Model) SetLoading(loading bool) tea.Cmd {
	m.loading = loading
	if loading {
		return m.spinner.Tick
	}
	return nil
}

// SetSummary replaces the displayed summary.
func (m *Model) SetSummary(s analytics.Summary) {
	m.summary = &s
	m.loading = false
	m.viewport.SetContent(m.render())
	m.viewport.GotoTop()
}

// Update handles spinner ticks and scrolling.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the dashboard.
func (m Model) View() string {
	if m.summary == nil {
		return m.placeholder()
	}
	if m.loading {
		return lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%s Refreshing analysis...", m.spinner.View()),
			m.viewport.View(),
		)
	}
	return m.viewport.View()
}

func (m Model) placeholder() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return style.Render(m.spinner.View() + " Analyzing mailbox...")
	}
	return style.Render("No analysis yet.\n\nPress a to analyze the mailbox.")
}

// SetSize updates the dashboard dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = max(height-1, 1)
	if m.summary != nil {
		m.viewport.SetContent(m.render())
	}
}

func (m Model) render() string {
	s := *m.summary
	panelWidth := max(m.width/2-2, 36)

	row := func(panels ...string) string {
		if m.width < 2*panelWidth+4 {
			return lipgloss.JoinVertical(lipgloss.Left, panels...)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, panels...)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		overview(s, 2*panelWidth+2),
		row(panel("Messages by hour", Hours(s), panelWidth),
			panel("Time of day", periods(s), panelWidth)),
		row(panel("Top senders", ranked(analytics.TopSenders(s, topSenders)), panelWidth),
			panel("Sender domains", ranked(analytics.DomainDistribution(s, topDomains)), panelWidth)),
		row(panel("Keywords", ranked(headOf(analytics.SignificantKeywords(s, analytics.OverviewKeywordFraction), topKeywords)), panelWidth),
			panel("Attachment types", ranked(analytics.TopAttachmentTypes(s, topAttachments)), panelWidth)),
	)
}

func overview(s analytics.Summary, width int) string {
	sizes := analytics.Sizes(s)
	hour, _ := analytics.PeakHour(s)

	response := "n/a"
	if s.ResponsePairs > 0 {
		response = fmt.Sprintf("%.1f min (%d replies)", s.AverageResponseMinutes, s.ResponsePairs)
	}

	fields := []string{
		fmt.Sprintf("Last %d days", s.Days),
		fmt.Sprintf("%d messages", s.Total),
		fmt.Sprintf("%d senders", len(s.Senders)),
		fmt.Sprintf("peak %02d:00", hour),
		"response " + response,
		"median size " + analytics.FormatSize(int(sizes.Median)),
		"largest " + analytics.FormatSize(sizes.Max),
	}
	return panel("Overview", strings.Join(fields, theme.DimmedStyle.Render("  ·  ")), width)
}

func panel(title, body string, width int) string {
	return theme.PanelStyle.
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, theme.PanelTitleStyle.Render(title), body))
}

// Hours renders the hourly histogram as one bar per hour.
func Hours(s analytics.Summary) string {
	peakHour, peak := analytics.PeakHour(s)
	var b strings.Builder
	for h, c := range s.Hours {
		style := theme.BarStyle
		if c > 0 && h == peakHour {
			style = theme.PeakBarStyle
		}
		fmt.Fprintf(&b, "%02d %s %d", h, style.Render(bar(c, peak)), c)
		if h < len(s.Hours)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func periods(s analytics.Summary) string {
	ps := analytics.TimeOfDay(s)
	top := 0
	for _, p := range ps {
		top = max(top, p.Count)
	}
	lines := make([]string, len(ps))
	for i, p := range ps {
		lines[i] = fmt.Sprintf("%-9s %02d-%02d %s %d",
			p.Label, p.Start, p.End, theme.BarStyle.Render(bar(p.Count, top)), p.Count)
	}
	return strings.Join(lines, "\n")
}

func ranked(entries []analytics.Ranked) string {
	if len(entries) == 0 {
		return theme.DimmedStyle.Render("none")
	}
	top := entries[0].Count
	for _, e := range entries {
		top = max(top, e.Count)
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("%-28s %s %d",
			truncate(e.Key, 28), theme.BarStyle.Render(bar(e.Count, top)), e.Count)
	}
	return strings.Join(lines, "\n")
}

func bar(n, top int) string {
	if top <= 0 || n <= 0 {
		return ""
	}
	w := max(n*barWidth/top, 1)
	return strings.Repeat("█", w)
}

func headOf(r []analytics.Ranked, n int) []analytics.Ranked {
	if len(r) > n {
		return r[:n]
	}
	return r
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
