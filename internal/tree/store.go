// Package tree holds the task forest and every structural operation on it.
//
// A Store is owned by a single caller and is not safe for concurrent use.
// Each mutating method either applies completely or leaves the forest and
// the undo log untouched.
package tree

import (
	"errors"
	"fmt"

	"github.com/sandeepkv93/tasktree/internal/debug"
	"github.com/sandeepkv93/tasktree/internal/document"
	"github.com/sandeepkv93/tasktree/internal/model"
)

var (
	ErrNotFound      = errors.New("tree: node not found")
	ErrInvalidMove   = errors.New("tree: invalid move")
	ErrLastRoot      = errors.New("tree: cannot delete the last root node")
	ErrNothingToUndo = errors.New("tree: no operations to undo")
)

type Store struct {
	roots    []*model.TaskNode
	nextID   int
	history  []Operation
	revision uint64
}

// NewStore returns an empty forest whose first node will get id 1.
func NewStore() *Store {
	return &Store{
		roots:  make([]*model.TaskNode, 0),
		nextID: 1,
	}
}

// Roots exposes the live root sequence for rendering. Callers must not
// mutate it; use the Store methods instead.
func (s *Store) Roots() []*model.TaskNode {
	return s.roots
}

// Snapshot returns a deep copy of the forest, expanded flags included.
func (s *Store) Snapshot() []*model.TaskNode {
	return model.CloneForest(s.roots)
}

func (s *Store) NextID() int { return s.nextID }

func (s *Store) Count() int { return model.CountNodes(s.roots) }

// Revision increases on every successful mutation.
func (s *Store) Revision() uint64 { return s.revision }

func (s *Store) touch() { s.revision++ }

// AddRoot appends a new expanded root node.
func (s *Store) AddRoot(f model.Fields) *model.TaskNode {
	node := s.newNode(f, true)
	s.roots = append(s.roots, node)
	s.touch()
	debug.Log("add root %d %q", node.ID, node.Task)
	return node
}

// AddChild appends a new collapsed node under parentID and expands the
// parent.
func (s *Store) AddChild(parentID int, f model.Fields) (*model.TaskNode, error) {
	parent, ok := s.Find(parentID)
	if !ok {
		return nil, fmt.Errorf("add child to %d: %w", parentID, ErrNotFound)
	}
	node := s.newNode(f, false)
	parent.Children = append(parent.Children, node)
	parent.Expanded = true
	s.touch()
	debug.Log("add child %d %q under %d", node.ID, node.Task, parentID)
	return node, nil
}

func (s *Store) newNode(f model.Fields, expanded bool) *model.TaskNode {
	node := &model.TaskNode{
		ID:       s.nextID,
		Expanded: expanded,
		Children: make([]*model.TaskNode, 0),
	}
	node.Apply(f)
	s.nextID++
	return node
}

// Edit replaces the editable fields of a node.
func (s *Store) Edit(id int, f model.Fields) error {
	node, ok := s.Find(id)
	if !ok {
		return fmt.Errorf("edit %d: %w", id, ErrNotFound)
	}
	node.Apply(f)
	s.touch()
	return nil
}

// Find returns the node with the given id, searching depth-first.
func (s *Store) Find(id int) (*model.TaskNode, bool) {
	return findIn(s.roots, id)
}

func findIn(nodes []*model.TaskNode, id int) (*model.TaskNode, bool) {
	for _, node := range nodes {
		if node.ID == id {
			return node, true
		}
		if found, ok := findIn(node.Children, id); ok {
			return found, true
		}
	}
	return nil, false
}

// FindParent returns the node whose children contain id. Roots and
// unknown ids have no parent.
func (s *Store) FindParent(id int) *model.TaskNode {
	return parentIn(s.roots, id)
}

func parentIn(nodes []*model.TaskNode, id int) *model.TaskNode {
	for _, node := range nodes {
		for _, child := range node.Children {
			if child.ID == id {
				return node
			}
		}
		if found := parentIn(node.Children, id); found != nil {
			return found
		}
	}
	return nil
}

// IndexOf returns the position of id inside its containing sequence.
func (s *Store) IndexOf(id int) (int, bool) {
	return indexIn(s.roots, id)
}

func indexIn(nodes []*model.TaskNode, id int) (int, bool) {
	for i, node := range nodes {
		if node.ID == id {
			return i, true
		}
		if idx, ok := indexIn(node.Children, id); ok {
			return idx, true
		}
	}
	return -1, false
}

// Level is the 1-based depth of id; roots are level 1.
func (s *Store) Level(id int) (int, error) {
	level := 0
	found := false
	model.Walk(s.roots, func(node *model.TaskNode, depth int) bool {
		if node.ID == id {
			level = depth + 1
			found = true
			return false
		}
		return true
	})
	if !found {
		return 0, fmt.Errorf("level of %d: %w", id, ErrNotFound)
	}
	return level, nil
}

// Remove detaches id and its subtree from wherever it lives and returns it
// unchanged.
func (s *Store) Remove(id int) (*model.TaskNode, error) {
	node, ok := s.detach(id)
	if !ok {
		return nil, fmt.Errorf("remove %d: %w", id, ErrNotFound)
	}
	s.touch()
	return node, nil
}

func (s *Store) detach(id int) (*model.TaskNode, bool) {
	for i, root := range s.roots {
		if root.ID == id {
			s.roots = removeAt(s.roots, i)
			return root, true
		}
	}
	return detachFrom(s.roots, id)
}

func detachFrom(nodes []*model.TaskNode, id int) (*model.TaskNode, bool) {
	for _, node := range nodes {
		for i, child := range node.Children {
			if child.ID == id {
				node.Children = removeAt(node.Children, i)
				return child, true
			}
		}
		if found, ok := detachFrom(node.Children, id); ok {
			return found, true
		}
	}
	return nil, false
}

func removeAt(nodes []*model.TaskNode, i int) []*model.TaskNode {
	out := make([]*model.TaskNode, 0, len(nodes)-1)
	out = append(out, nodes[:i]...)
	return append(out, nodes[i+1:]...)
}

func insertAt(nodes []*model.TaskNode, i int, node *model.TaskNode) []*model.TaskNode {
	if i < 0 {
		i = 0
	}
	if i > len(nodes) {
		i = len(nodes)
	}
	out := make([]*model.TaskNode, 0, len(nodes)+1)
	out = append(out, nodes[:i]...)
	out = append(out, node)
	return append(out, nodes[i:]...)
}

// Delete removes id and its subtree permanently. The only remaining root
// cannot be deleted. Undo entries for moves of nodes inside the removed
// subtree are dropped.
func (s *Store) Delete(id int) (*model.TaskNode, error) {
	if _, ok := s.Find(id); !ok {
		return nil, fmt.Errorf("delete %d: %w", id, ErrNotFound)
	}
	if len(s.roots) == 1 && s.roots[0].ID == id {
		return nil, ErrLastRoot
	}
	node, _ := s.detach(id)
	s.pruneHistory(node)
	s.touch()
	debug.Log("delete %d (%d nodes)", id, model.CountNodes([]*model.TaskNode{node}))
	return node, nil
}

func (s *Store) pruneHistory(removed *model.TaskNode) {
	kept := s.history[:0]
	for _, op := range s.history {
		if removed.Contains(op.Node.ID) {
			continue
		}
		kept = append(kept, op)
	}
	s.history = kept
}

// ToggleExpanded flips the expanded flag and returns the new value.
func (s *Store) ToggleExpanded(id int) (bool, error) {
	node, ok := s.Find(id)
	if !ok {
		return false, fmt.Errorf("toggle %d: %w", id, ErrNotFound)
	}
	node.Expanded = !node.Expanded
	return node.Expanded, nil
}

func (s *Store) SetExpanded(id int, expanded bool) error {
	node, ok := s.Find(id)
	if !ok {
		return fmt.Errorf("expand %d: %w", id, ErrNotFound)
	}
	node.Expanded = expanded
	return nil
}

// SetAllExpanded expands or collapses every node.
func (s *Store) SetAllExpanded(expanded bool) {
	model.Walk(s.roots, func(node *model.TaskNode, _ int) bool {
		node.Expanded = expanded
		return true
	})
}

// Reset starts a new, empty file.
func (s *Store) Reset() {
	s.roots = make([]*model.TaskNode, 0)
	s.nextID = 1
	s.history = nil
	s.touch()
	debug.Log("reset forest")
}

// Serialize returns the persisted form of the forest.
func (s *Store) Serialize() document.Document {
	return document.FromForest(s.roots)
}

// Deserialize replaces the forest with a copy of doc. The id counter
// restarts after the largest id found and the undo log is cleared. Ids are
// not checked for uniqueness.
func (s *Store) Deserialize(doc document.Document) {
	s.roots = doc.ToForest()
	s.nextID = model.MaxID(s.roots) + 1
	s.history = nil
	s.touch()
	debug.Log("loaded %d nodes, next id %d", model.CountNodes(s.roots), s.nextID)
}
