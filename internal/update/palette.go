package update

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasktree/internal/commands"
	"github.com/sandeepkv93/tasktree/internal/tree"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.commandInput.CursorEnd()
			m.Palette.Input = m.commandInput.Value()
			return m
		}
		m.commandInput, _ = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
	}
	return m
}

func (m *Model) closePalette() {
	m.Palette.Active = false
	m.Palette.Input = ""
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	m.closePalette()
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.fail(err)
		return m
	}

	res, err := commands.Execute(cmd, m.paletteHandlers())
	if errors.Is(err, tree.ErrNothingToUndo) {
		m.setStatus("nothing to undo", LevelInfo)
		return m
	}
	if err != nil {
		m.fail(err)
		return m
	}
	m.setStatus(res.Message, LevelSuccess)
	return m
}

// paletteHandlers binds every palette command to the model. The handlers
// close over m, so the caller must use m after Execute returns.
func (m *Model) paletteHandlers() commands.Handlers {
	return commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			node := m.Store.AddRoot(a.Fields)
			m.SelectedID = node.ID
			m.afterMutation()
			return commands.Result{Message: fmt.Sprintf("added root task %d %q", node.ID, node.Task)}, nil
		},
		Child: func(a commands.ChildArgs) (commands.Result, error) {
			node, err := m.Store.AddChild(a.ParentID, a.Fields)
			if err != nil {
				return commands.Result{}, err
			}
			m.SelectedID = node.ID
			m.afterMutation()
			return commands.Result{Message: fmt.Sprintf("added subtask %d %q under %d", node.ID, node.Task, a.ParentID)}, nil
		},
		Edit: func(a commands.EditArgs) (commands.Result, error) {
			node, ok := m.Store.Find(a.ID)
			if !ok {
				return commands.Result{}, fmt.Errorf("edit %d: %w", a.ID, tree.ErrNotFound)
			}
			f := a.Apply(node.Fields())
			if err := f.Validate(); err != nil {
				return commands.Result{}, err
			}
			if err := m.Store.Edit(a.ID, f); err != nil {
				return commands.Result{}, err
			}
			m.afterMutation()
			return commands.Result{Message: fmt.Sprintf("updated task %d", a.ID)}, nil
		},
		Delete: func(a commands.DeleteArgs) (commands.Result, error) {
			removed, err := m.Store.Delete(a.ID)
			if err != nil {
				return commands.Result{}, err
			}
			m.afterMutation()
			return commands.Result{Message: fmt.Sprintf("deleted %q", removed.Task)}, nil
		},
		Move: func(a commands.MoveArgs) (commands.Result, error) {
			if err := m.Store.Move(a.SourceID, a.TargetID); err != nil {
				return commands.Result{}, err
			}
			m.selectID(a.SourceID)
			m.afterMutation()
			return commands.Result{Message: fmt.Sprintf("moved %d under %d (u to undo)", a.SourceID, a.TargetID)}, nil
		},
		Undo: func() (commands.Result, error) {
			msg, err := m.undoMove()
			return commands.Result{Message: msg}, err
		},
		New: func() (commands.Result, error) {
			m.newFile()
			return commands.Result{Message: "new file started"}, nil
		},
		Open: func(a commands.PathArgs) (commands.Result, error) {
			if err := m.openDocument(a.Path); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: "loaded " + m.DocumentPath}, nil
		},
		Save: func(a commands.PathArgs) (commands.Result, error) {
			if err := m.saveDocument(a.Path); err != nil {
				return commands.Result{}, err
			}
			return commands.Result{Message: "saved " + m.DocumentPath}, nil
		},
		Copy: func() (commands.Result, error) {
			msg, err := m.copyJSON()
			return commands.Result{Message: msg}, err
		},
		Snapshot: func(a commands.SnapshotArgs) (commands.Result, error) {
			msg, err := m.saveSnapshot(a.Name)
			return commands.Result{Message: msg}, err
		},
		Restore: func(a commands.SnapshotArgs) (commands.Result, error) {
			msg, err := m.restoreSnapshot(a.Name)
			if err == nil {
				m.afterMutation()
			}
			return commands.Result{Message: msg}, err
		},
		Snapshots: func() (commands.Result, error) {
			msg, err := m.listSnapshots()
			return commands.Result{Message: msg}, err
		},
		Drop: func(a commands.SnapshotArgs) (commands.Result, error) {
			msg, err := m.dropSnapshot(a.Name)
			return commands.Result{Message: msg}, err
		},
		Expand: func(a commands.ExpandArgs) (commands.Result, error) {
			verb := "collapsed"
			if a.Expanded {
				verb = "expanded"
			}
			if a.All {
				m.Store.SetAllExpanded(a.Expanded)
				m.syncCursor()
				return commands.Result{Message: verb + " all tasks"}, nil
			}
			if err := m.Store.SetExpanded(a.ID, a.Expanded); err != nil {
				return commands.Result{}, err
			}
			m.syncCursor()
			return commands.Result{Message: fmt.Sprintf("%s task %d", verb, a.ID)}, nil
		},
	}
}
