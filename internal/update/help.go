package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/sandeepkv93/tasktree/internal/commands"
	"github.com/sandeepkv93/tasktree/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return "\n\n" + m.renderHelpView()
}

func (m Model) renderHelpView() string {
	var plain []string
	for _, kb := range m.bindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	var cmds []string
	for _, usage := range commands.Usage() {
		cmds = append(cmds, "- /"+usage)
	}
	short := m.helpBindings()
	return views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		Commands: cmds,
		HelpView: m.helpModel.View(helpKeyMap{short: short, full: [][]key.Binding{short}}),
	})
}

// bindings lists the keys that apply in the current mode.
func (m Model) bindings() []KeyBinding {
	switch m.Mode {
	case ModeGrab:
		return []KeyBinding{
			{Key: "j/k", Action: "pick drop target"},
			{Key: "h/l", Action: "collapse/expand target"},
			{Key: "enter", Action: "drop as last subtask"},
			{Key: "esc", Action: "cancel move"},
		}
	case ModeForm:
		return []KeyBinding{
			{Key: "tab", Action: "next field"},
			{Key: "left/right", Action: "change type"},
			{Key: "enter", Action: "save"},
			{Key: "esc", Action: "cancel"},
		}
	case ModeConfirm:
		return []KeyBinding{
			{Key: "y", Action: "confirm"},
			{Key: "n", Action: "cancel"},
		}
	}
	return []KeyBinding{
		{Key: "j/k", Action: "move cursor"},
		{Key: "h/l", Action: "collapse/expand"},
		{Key: "space", Action: "toggle subtasks"},
		{Key: "a", Action: "add root task"},
		{Key: "c", Action: "add subtask"},
		{Key: "e", Action: "edit task"},
		{Key: "d", Action: "delete task"},
		{Key: "m", Action: "move task"},
		{Key: "u", Action: "undo last move"},
		{Key: "ctrl+s", Action: "save"},
		{Key: "ctrl+o", Action: "reload file"},
		{Key: "ctrl+n", Action: "new file"},
		{Key: "y", Action: "copy JSON"},
		{Key: "J", Action: "toggle JSON pane"},
		{Key: "/", Action: "command palette"},
		{Key: "?", Action: "toggle help"},
		{Key: "q", Action: "quit"},
	}
}

func (m Model) helpBindings() []key.Binding {
	kbs := m.bindings()
	out := make([]key.Binding, 0, len(kbs))
	for _, kb := range kbs {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
