package update

import (
	"github.com/sandeepkv93/tasktree/internal/document"
	"github.com/sandeepkv93/tasktree/internal/views"
)

func (m Model) renderTreePanel() string {
	rows := m.visibleRows()
	out := make([]views.TreeRow, 0, len(rows))
	for i, row := range rows {
		out = append(out, views.TreeRow{
			ID:         row.node.ID,
			Depth:      row.depth,
			Task:       row.node.Task,
			Weight:     row.node.Weight,
			Type:       string(row.node.Type),
			ChildCount: len(row.node.Children),
			Expanded:   row.node.Expanded,
			Selected:   i == m.Cursor,
			Grabbed:    row.node.ID == m.GrabbedID,
		})
	}
	height := 0
	if m.height > 0 {
		height = max(5, m.height-10)
	}
	offset := 0
	if height > 0 && m.Cursor >= height {
		offset = m.Cursor - height + 1
	}
	return views.RenderTreePanel(views.TreePanelData{
		Title:    "tasks",
		Rows:     out,
		Grabbing: m.Mode == ModeGrab,
		Offset:   offset,
		Height:   height,
	})
}

func (m Model) renderRightPane() string {
	switch {
	case m.Mode == ModeForm:
		return m.renderForm() + m.renderHelpIfVisible()
	case m.JSONVisible:
		return m.jsonViewport.View() + m.renderHelpIfVisible()
	}
	return m.renderNodeInfo() + m.renderHelpIfVisible()
}

func (m Model) renderNodeInfo() string {
	node, ok := m.selectedNode()
	if !ok {
		return views.RenderNodeInfo(views.NodeInfoData{})
	}
	level, _ := m.Store.Level(node.ID)
	return views.RenderNodeInfo(views.NodeInfoData{
		ID:         node.ID,
		Task:       node.Task,
		Level:      level,
		Weight:     node.Weight,
		Type:       string(node.Type),
		ChildCount: len(node.Children),
		Expanded:   node.Expanded,
	})
}

// refreshJSON re-renders the JSON pane; it is a no-op while hidden.
func (m *Model) refreshJSON() {
	if !m.JSONVisible {
		return
	}
	payload, err := document.Marshal(m.Store.Serialize())
	if err != nil {
		m.jsonViewport.SetContent("error: " + err.Error())
		return
	}
	m.jsonViewport.SetContent(views.RenderJSON(payload, m.markdownStyle))
}

func (m Model) renderBottom() string {
	switch {
	case m.Mode == ModeConfirm:
		return views.RenderConfirm(m.Confirm.Prompt)
	case m.Palette.Active:
		return views.RenderCommandPalette(true, m.commandInput.View())
	case len(m.Notifications) > 0:
		n := m.Notifications[len(m.Notifications)-1]
		return views.RenderNotification(n.Level, n.Body)
	}
	return ""
}
