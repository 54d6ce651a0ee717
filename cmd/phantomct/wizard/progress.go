package wizard

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// ProgressMsg is sent after each slice is written
type ProgressMsg struct {
	Current int // Slices written so far
	Total   int // Slices in the run
}

// CompletionMsg is sent when generation completes successfully
type CompletionMsg struct {
	TotalFiles int
	OutputDir  string
	Duration   time.Duration
}

// ErrorMsg is sent when generation fails
type ErrorMsg struct {
	Error error
}

// progressModel displays generation progress, then the outcome.
type progressModel struct {
	current int
	total   int
	width   int

	completion *CompletionMsg
	err        error
	cancelled  bool
}

func newProgressModel(total int) *progressModel {
	return &progressModel{total: total}
}

// Init implements tea.Model
func (m *progressModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancelled = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case ProgressMsg:
		m.current = msg.Current
		m.total = msg.Total
	case CompletionMsg:
		m.completion = &msg
		m.current = m.total
		return m, tea.Quit
	case ErrorMsg:
		m.err = msg.Error
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model
func (m *progressModel) View() string {
	var sb strings.Builder

	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render("✗ Generation failed"))
		sb.WriteString("\n  ")
		sb.WriteString(m.err.Error())
		sb.WriteString("\n")
		return sb.String()
	case m.completion != nil:
		sb.WriteString(successStyle.Render("✓ Generation complete!"))
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("  %d slices in %s (%.1fs)\n",
			m.completion.TotalFiles, m.completion.OutputDir, m.completion.Duration.Seconds()))
		sb.WriteString(hintStyle.Render("  Open the folder in your DICOM viewer."))
		sb.WriteString("\n")
		return sb.String()
	case m.cancelled:
		return "Cancelled.\n"
	}

	var percent float64
	if m.total > 0 {
		percent = float64(m.current) / float64(m.total) * 100
	}

	barWidth := 40
	if m.width > 60 {
		barWidth = min(m.width/2, 60)
	}

	sb.WriteString(TitleStyle.Render("Generating phantom slices..."))
	sb.WriteString("\n")
	sb.WriteString(renderProgressBar(percent, barWidth))
	sb.WriteString(" ")
	sb.WriteString(progressPercentStyle.Render(fmt.Sprintf("%d%%", int(percent))))
	sb.WriteString("\n\n")
	sb.WriteString(progressFileStyle.Render(fmt.Sprintf("Slice %d/%d", m.current, m.total)))
	sb.WriteString("\n\n")
	sb.WriteString(hintStyle.Render("Press Ctrl+C to cancel"))
	return sb.String()
}

// renderProgressBar creates a visual progress bar
func renderProgressBar(percent float64, width int) string {
	filled := min(int(percent/100*float64(width)), width)
	empty := width - filled

	bar := progressBarStyle.Render("[" + strings.Repeat("█", filled))
	bar += progressBarEmptyStyle.Render(strings.Repeat("░", empty) + "]")
	return bar
}
