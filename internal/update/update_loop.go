package update

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasktree/internal/views"
)

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.engine != nil {
		cmds = append(cmds, waitForAutosaveCmd(m.engine.C()))
	}
	if m.watch != nil {
		cmds = append(cmds, waitForFileChangeCmd(m.watch))
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	prevWatch := m.watch
	next, cmd := m.update(msg)
	next.refreshJSON()
	if next.watch != prevWatch && next.watch != nil {
		cmd = tea.Batch(cmd, waitForFileChangeCmd(next.watch))
	}
	return next, cmd
}

func (m Model) update(msg tea.Msg) (Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			return m.handlePaletteKey(typed), nil
		}
		switch m.Mode {
		case ModeForm:
			return m.handleFormKey(typed), nil
		case ModeConfirm:
			return m.handleConfirmKey(typed)
		case ModeGrab:
			return m.handleGrabKey(typed)
		}
		return m.handleBrowseKey(typed)
	case tea.WindowSizeMsg:
		m.width, m.height = typed.Width, typed.Height
		m.jsonViewport.Width = m.paneWidth()
		m.jsonViewport.Height = max(5, typed.Height-10)
		return m, nil
	case SetStatusMsg:
		level := LevelInfo
		if typed.IsError {
			level = LevelError
		}
		m.setStatus(typed.Text, level)
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		if typed.Err != nil {
			m.fail(typed.Err)
		}
		return m, nil
	case AutosaveDueMsg:
		m.handleAutosave(typed.Event)
		if m.engine == nil {
			return m, nil
		}
		return m, waitForAutosaveCmd(m.engine.C())
	case FileChangedMsg:
		m.handleFileChanged(typed.Path)
		return m, waitForFileChangeCmd(m.watch)
	case WatchErrorMsg:
		if typed.Err != nil {
			m.notify("watch: "+typed.Err.Error(), LevelWarning)
		}
		return m, waitForFileChangeCmd(m.watch)
	}
	return m, nil
}

func (m Model) paneWidth() int {
	if m.width <= 0 {
		return views.DefaultPaneWidth
	}
	return max(30, m.width/2-4)
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}
	return views.RenderApp(views.AppData{
		DocumentPath:  m.DocumentPath,
		Dirty:         m.Dirty(),
		Mode:          string(m.Mode),
		NodeCount:     m.Store.Count(),
		UndoDepth:     len(m.Store.History()),
		LeftPane:      m.renderTreePanel(),
		RightPane:     m.renderRightPane(),
		StatusLine:    status,
		StatusIsError: m.Status.IsError,
		Notification:  m.renderBottom(),
		Footer:        "keys: j/k move | a add | c child | e edit | d delete | m move | u undo | ctrl+s save | / cmd | ? help | q quit",
		PaneWidth:     m.paneWidth(),
	})
}
