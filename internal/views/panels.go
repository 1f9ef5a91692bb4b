package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// TreeRow is one visible line of the outline.
type TreeRow struct {
	ID         int
	Depth      int
	Task       string
	Weight     int
	Type       string
	ChildCount int
	Expanded   bool
	Selected   bool
	Grabbed    bool
}

type TreePanelData struct {
	Title    string
	Rows     []TreeRow
	Grabbing bool
	// Offset and Height window the rows; Height <= 0 shows everything.
	Offset int
	Height int
}

type NodeInfoData struct {
	ID         int
	Task       string
	Level      int
	Weight     int
	Type       string
	ChildCount int
	Expanded   bool
}

type FormField struct {
	Label   string
	View    string
	Focused bool
}

type FormData struct {
	Title  string
	Fields []FormField
	Error  string
}

type HelpPanelData struct {
	Bindings []string
	Commands []string
	HelpView string
}

var (
	selectedRowStyle = lipgloss.NewStyle().Reverse(true)
	grabbedRowStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	mutedStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	labelStyle       = lipgloss.NewStyle().Bold(true)
	typeStyles       = map[string]lipgloss.Style{
		"Development":   lipgloss.NewStyle().Foreground(lipgloss.Color("12")),
		"Testing":       lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"Design":        lipgloss.NewStyle().Foreground(lipgloss.Color("13")),
		"Documentation": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"Other":         lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
	}
)

func typeBadge(t string) string {
	style, ok := typeStyles[t]
	if !ok {
		style = mutedStyle
	}
	return style.Render("[" + t + "]")
}

func RenderTreePanel(data TreePanelData) string {
	var b strings.Builder
	title := data.Title
	if title == "" {
		title = "tasks"
	}
	b.WriteString(labelStyle.Render(title) + "\n")
	if len(data.Rows) == 0 {
		b.WriteString(mutedStyle.Render("(empty) press a to add a root task"))
		return b.String()
	}

	start, end := 0, len(data.Rows)
	if data.Height > 0 && len(data.Rows) > data.Height {
		start = max(0, min(data.Offset, len(data.Rows)-data.Height))
		end = start + data.Height
	}
	for _, row := range data.Rows[start:end] {
		b.WriteString(renderTreeRow(row) + "\n")
	}
	if start > 0 || end < len(data.Rows) {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("rows %d-%d of %d", start+1, end, len(data.Rows))) + "\n")
	}
	if data.Grabbing {
		b.WriteString(mutedStyle.Render("moving: [enter] drop on highlighted node, [esc] cancel"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTreeRow(row TreeRow) string {
	marker := "  "
	if row.ChildCount > 0 {
		if row.Expanded {
			marker = "▾ "
		} else {
			marker = "▸ "
		}
	}
	line := fmt.Sprintf("%s%s%s %s w:%d", strings.Repeat("  ", row.Depth), marker, row.Task, typeBadge(row.Type), row.Weight)
	if row.ChildCount > 0 {
		line += mutedStyle.Render(fmt.Sprintf(" (%d)", row.ChildCount))
	}
	switch {
	case row.Grabbed:
		line = grabbedRowStyle.Render("» " + line)
	case row.Selected:
		line = selectedRowStyle.Render("> " + line)
	default:
		line = "  " + line
	}
	return line
}

func RenderNodeInfo(data NodeInfoData) string {
	if data.ID == 0 {
		return "node:\n(no selection)"
	}
	state := "collapsed"
	if data.Expanded {
		state = "expanded"
	}
	return fmt.Sprintf("node:\nid: %d\ntask: %s\nlevel: %d\nweight: %d\ntype: %s\nsubtasks: %d (%s)",
		data.ID, data.Task, data.Level, data.Weight, typeBadge(data.Type), data.ChildCount, state)
}

func RenderForm(data FormData) string {
	var b strings.Builder
	b.WriteString(labelStyle.Render(data.Title) + "\n")
	b.WriteString(mutedStyle.Render("[tab] next field  [left/right] type  [enter] save  [esc] cancel") + "\n")
	for _, f := range data.Fields {
		cursor := " "
		if f.Focused {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %s: %s\n", cursor, f.Label, f.View))
	}
	if data.Error != "" {
		b.WriteString(errorStyle.Render("error: " + data.Error))
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderConfirm(prompt string) string {
	if strings.TrimSpace(prompt) == "" {
		return ""
	}
	return fmt.Sprintf("confirm: %s [y/n]", prompt)
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: %s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\nkeys:\n%s\ncommands:\n%s\n%s",
		strings.Join(data.Bindings, "\n"),
		strings.Join(data.Commands, "\n"),
		data.HelpView,
	)
}
