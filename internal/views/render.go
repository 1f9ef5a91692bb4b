package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const DefaultPaneWidth = 58

type AppData struct {
	DocumentPath  string
	Dirty         bool
	Mode          string
	NodeCount     int
	UndoDepth     int
	LeftPane      string
	RightPane     string
	StatusLine    string
	StatusIsError bool
	Footer        string
	Notification  string
	PaneWidth     int
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	dirtyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	modeStyle   = lipgloss.NewStyle().Reverse(true).Padding(0, 1)
)

// RenderHeader is the title line: file, unsaved marker, counts and mode.
func RenderHeader(data AppData) string {
	parts := []string{headerStyle.Render("tasktree"), data.DocumentPath}
	if data.Dirty {
		parts = append(parts, dirtyStyle.Render("[modified]"))
	}
	parts = append(parts, fmt.Sprintf("%d tasks", data.NodeCount))
	if data.UndoDepth > 0 {
		parts = append(parts, fmt.Sprintf("%d undoable", data.UndoDepth))
	}
	if data.Mode != "" {
		parts = append(parts, modeStyle.Render(data.Mode))
	}
	return strings.Join(parts, " | ")
}

func RenderApp(data AppData) string {
	width := data.PaneWidth
	if width <= 0 {
		width = DefaultPaneWidth
	}
	left := panelStyle.Width(width).Render(data.LeftPane)
	right := panelStyle.Width(width).Render(data.RightPane)
	row := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	status := statusStyle.Render(data.StatusLine)
	if data.StatusIsError {
		status = errorStyle.Render(data.StatusLine)
	}

	lines := []string{
		RenderHeader(data),
		row,
		status,
	}
	if data.Notification != "" {
		lines = append(lines, panelStyle.Render(data.Notification))
	}
	if data.Footer != "" {
		lines = append(lines, footerStyle.Render(data.Footer))
	}
	return strings.Join(lines, "\n")
}

// RenderMarkdown renders md with a glamour standard style such as "dark",
// "light" or "notty". The input is returned unchanged if rendering fails.
func RenderMarkdown(md, style string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}
	if style == "" {
		style = "dark"
	}
	out, err := glamour.Render(md, style)
	if err != nil {
		return md
	}
	return strings.TrimSpace(out)
}

// RenderJSON shows a JSON payload as a highlighted code block.
func RenderJSON(payload []byte, style string) string {
	body := strings.TrimRight(string(payload), "\n")
	if body == "" {
		return ""
	}
	return RenderMarkdown("```json\n"+body+"\n```\n", style)
}
