package update

import (
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasktree/internal/tree"
)

func (m Model) handleBrowseKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.Quitting = true
		return m, tea.Quit
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "g", "home":
		m.moveCursor(-len(m.visibleRows()))
	case "G", "end":
		m.moveCursor(len(m.visibleRows()))
	case "h", "left":
		m.collapseOrAscend()
	case "l", "right":
		m.expandOrDescend()
	case " ":
		m.toggleSelected()
	case "a":
		return m.openForm(FormAddRoot, 0, 0, defaultFields()), nil
	case "c":
		node, ok := m.selectedNode()
		if !ok {
			m.setStatus("select a parent task first", LevelError)
			return m, nil
		}
		return m.openForm(FormAddChild, node.ID, 0, defaultFields()), nil
	case "e":
		node, ok := m.selectedNode()
		if !ok {
			m.setStatus("select a task to edit", LevelError)
			return m, nil
		}
		return m.openForm(FormEdit, 0, node.ID, node.Fields()), nil
	case "d":
		node, ok := m.selectedNode()
		if !ok {
			m.setStatus("select a task to delete", LevelError)
			return m, nil
		}
		m.askConfirm(ConfirmDelete, node.ID, fmt.Sprintf("delete %q and its %d subtask(s)?", node.Task, len(node.Children)))
	case "m":
		node, ok := m.selectedNode()
		if !ok {
			m.setStatus("select a task to move", LevelError)
			return m, nil
		}
		m.Mode = ModeGrab
		m.GrabbedID = node.ID
		m.setStatus(fmt.Sprintf("moving %q: pick a new parent and press enter", node.Task), LevelInfo)
	case "u", "ctrl+z":
		m.undo()
	case "ctrl+s":
		if err := m.saveDocument(m.DocumentPath); err != nil {
			m.fail(err)
		} else {
			m.setStatus("saved "+m.DocumentPath, LevelSuccess)
		}
	case "ctrl+o":
		if m.Dirty() {
			m.askConfirm(ConfirmReload, 0, fmt.Sprintf("discard unsaved edits and reload %s?", m.DocumentPath))
			return m, nil
		}
		m.reload()
	case "ctrl+n":
		m.askConfirm(ConfirmNew, 0, "start a new empty file? unsaved edits are lost")
	case "y":
		if res, err := m.copyJSON(); err != nil {
			m.fail(err)
		} else {
			m.setStatus(res, LevelSuccess)
		}
	case "J":
		m.JSONVisible = !m.JSONVisible
		m.refreshJSON()
	case "pgdown", "ctrl+d":
		m.jsonViewport.HalfViewDown()
	case "pgup", "ctrl+u":
		m.jsonViewport.HalfViewUp()
	case "/":
		m.Palette.Active = true
		m.Palette.Input = ""
		m.commandInput.SetValue("")
		m.commandInput.Focus()
		m.Status = StatusBar{Text: "command palette active"}
	case "?":
		m.HelpVisible = !m.HelpVisible
	}
	return m, nil
}

func (m *Model) collapseOrAscend() {
	node, ok := m.selectedNode()
	if !ok {
		return
	}
	if node.Expanded && node.HasChildren() {
		_ = m.Store.SetExpanded(node.ID, false)
		m.syncCursor()
		return
	}
	if parent := m.Store.FindParent(node.ID); parent != nil {
		m.selectID(parent.ID)
	}
}

func (m *Model) expandOrDescend() {
	node, ok := m.selectedNode()
	if !ok || !node.HasChildren() {
		return
	}
	if !node.Expanded {
		_ = m.Store.SetExpanded(node.ID, true)
		m.syncCursor()
		return
	}
	m.selectID(node.Children[0].ID)
}

func (m *Model) toggleSelected() {
	node, ok := m.selectedNode()
	if !ok {
		return
	}
	if _, err := m.Store.ToggleExpanded(node.ID); err != nil {
		m.fail(err)
		return
	}
	m.syncCursor()
}

func (m *Model) undo() {
	msg, err := m.undoMove()
	switch {
	case errors.Is(err, tree.ErrNothingToUndo):
		m.setStatus("nothing to undo", LevelInfo)
	case err != nil:
		m.fail(err)
	default:
		m.setStatus(msg, LevelSuccess)
	}
}

// undoMove reverts the last move and selects the restored node.
// ErrNothingToUndo is returned as is.
func (m *Model) undoMove() (string, error) {
	op, err := m.Store.UndoLastMove()
	if err != nil {
		return "", err
	}
	m.selectID(op.Node.ID)
	m.revealSelected()
	m.afterMutation()
	return fmt.Sprintf("undid move of %q", op.Node.Task), nil
}

func (m *Model) reload() {
	if err := m.openDocument(m.DocumentPath); err != nil {
		m.fail(err)
		return
	}
	m.setStatus("loaded "+m.DocumentPath, LevelSuccess)
}

// handleGrabKey drives the keyboard analogue of drag and drop: the grabbed
// node stays put while the cursor picks the drop target.
func (m Model) handleGrabKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		m.Quitting = true
		return m, tea.Quit
	case "esc", "m":
		m.Mode = ModeBrowse
		m.GrabbedID = 0
		m.setStatus("move cancelled", LevelInfo)
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "h", "left":
		m.collapseOrAscend()
	case "l", "right", " ":
		m.expandOrDescend()
	case "enter":
		m.drop()
	}
	return m, nil
}

func (m *Model) drop() {
	source, target := m.GrabbedID, m.SelectedID
	if err := m.Store.Move(source, target); err != nil {
		// Stay in grab mode so another target can be picked.
		m.fail(err)
		return
	}
	m.Mode = ModeBrowse
	m.GrabbedID = 0
	m.selectID(source)
	m.revealSelected()
	m.afterMutation()
	m.setStatus(fmt.Sprintf("moved %d under %d (u to undo)", source, target), LevelSuccess)
}

func (m *Model) askConfirm(kind ConfirmKind, targetID int, prompt string) {
	m.Confirm = ConfirmState{Kind: kind, TargetID: targetID, Prompt: prompt}
	m.Mode = ModeConfirm
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
	case "ctrl+c":
		m.Quitting = true
		return m, tea.Quit
	default:
		m.Mode = ModeBrowse
		m.Confirm = ConfirmState{}
		m.setStatus("cancelled", LevelInfo)
		return m, nil
	}

	confirm := m.Confirm
	m.Mode = ModeBrowse
	m.Confirm = ConfirmState{}
	switch confirm.Kind {
	case ConfirmDelete:
		m.deleteNode(confirm.TargetID)
	case ConfirmNew:
		m.newFile()
	case ConfirmReload:
		m.reload()
	}
	return m, nil
}

func (m *Model) deleteNode(id int) {
	removed, err := m.Store.Delete(id)
	if err != nil {
		m.fail(err)
		return
	}
	m.afterMutation()
	m.setStatus(fmt.Sprintf("deleted %q", removed.Task), LevelSuccess)
}

func (m *Model) newFile() {
	m.Store.Reset()
	m.GrabbedID = 0
	m.SelectedID = 0
	m.afterMutation()
	m.setStatus("new file: press a to add a root task", LevelInfo)
}
