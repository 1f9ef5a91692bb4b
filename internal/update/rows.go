package update

import "github.com/sandeepkv93/tasktree/internal/model"

type visibleRow struct {
	node  *model.TaskNode
	depth int
}

// visibleRows flattens the forest, skipping the children of collapsed nodes.
func (m Model) visibleRows() []visibleRow {
	var out []visibleRow
	var walk func(nodes []*model.TaskNode, depth int)
	walk = func(nodes []*model.TaskNode, depth int) {
		for _, n := range nodes {
			out = append(out, visibleRow{node: n, depth: depth})
			if n.Expanded {
				walk(n.Children, depth+1)
			}
		}
	}
	walk(m.Store.Roots(), 0)
	return out
}

// syncCursor re-points the cursor at the selected node after the tree
// changed shape. If the selection is gone or hidden, the cursor is clamped
// and the selection follows it.
func (m *Model) syncCursor() {
	rows := m.visibleRows()
	if len(rows) == 0 {
		m.Cursor = 0
		m.SelectedID = 0
		return
	}
	for i, row := range rows {
		if row.node.ID == m.SelectedID {
			m.Cursor = i
			return
		}
	}
	if m.Cursor >= len(rows) {
		m.Cursor = len(rows) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	m.SelectedID = rows[m.Cursor].node.ID
}

func (m *Model) moveCursor(delta int) {
	rows := m.visibleRows()
	if len(rows) == 0 {
		return
	}
	m.syncCursor()
	next := m.Cursor + delta
	if next < 0 {
		next = 0
	}
	if next >= len(rows) {
		next = len(rows) - 1
	}
	m.Cursor = next
	m.SelectedID = rows[next].node.ID
}

func (m *Model) selectID(id int) {
	m.SelectedID = id
	m.syncCursor()
}

// revealSelected expands every ancestor of the selected node.
func (m *Model) revealSelected() {
	for p := m.Store.FindParent(m.SelectedID); p != nil; p = m.Store.FindParent(p.ID) {
		_ = m.Store.SetExpanded(p.ID, true)
	}
	m.syncCursor()
}
