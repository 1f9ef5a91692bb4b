package tree

import (
	"fmt"

	"github.com/sandeepkv93/tasktree/internal/debug"
	"github.com/sandeepkv93/tasktree/internal/model"
)

type OperationKind string

const OperationMove OperationKind = "move"

// Operation is one undo log entry. Node and Target are snapshots taken when
// the move happened; undo relocates the live node by id.
type Operation struct {
	Kind           OperationKind
	Node           *model.TaskNode
	Target         *model.TaskNode
	PrevParentID   int
	HasPrevParent  bool
	PrevIndex      int
	TargetExpanded bool
}

func (op Operation) String() string {
	from := "root"
	if op.HasPrevParent {
		from = fmt.Sprintf("node %d", op.PrevParentID)
	}
	return fmt.Sprintf("%s %d %q from %s[%d] to %d", op.Kind, op.Node.ID, op.Node.Task, from, op.PrevIndex, op.Target.ID)
}

// Move makes sourceID the last child of targetID. Moving a node onto itself
// or into its own subtree fails with ErrInvalidMove and changes nothing.
func (s *Store) Move(sourceID, targetID int) error {
	if sourceID == targetID {
		return fmt.Errorf("%w: node %d cannot be moved onto itself", ErrInvalidMove, sourceID)
	}
	source, ok := s.Find(sourceID)
	if !ok {
		return fmt.Errorf("move source %d: %w", sourceID, ErrNotFound)
	}
	target, ok := s.Find(targetID)
	if !ok {
		return fmt.Errorf("move target %d: %w", targetID, ErrNotFound)
	}
	if source.Contains(targetID) {
		return fmt.Errorf("%w: node %d is inside node %d and would create a cycle", ErrInvalidMove, targetID, sourceID)
	}

	op := Operation{
		Kind:           OperationMove,
		Node:           source.Clone(),
		Target:         target.Clone(),
		TargetExpanded: target.Expanded,
	}
	if parent := s.FindParent(sourceID); parent != nil {
		op.PrevParentID = parent.ID
		op.HasPrevParent = true
	}
	op.PrevIndex, _ = s.IndexOf(sourceID)

	s.detach(sourceID)
	target.Children = append(target.Children, source)
	target.Expanded = true
	s.history = append(s.history, op)
	s.touch()
	debug.Log("%s", op)
	return nil
}

// UndoLastMove reverts the most recent move. An empty log yields
// ErrNothingToUndo, which callers should report as a status rather than a
// failure. The entry is consumed even when its node has since disappeared.
func (s *Store) UndoLastMove() (Operation, error) {
	if len(s.history) == 0 {
		return Operation{}, ErrNothingToUndo
	}
	op := s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]

	node, ok := s.Find(op.Node.ID)
	if !ok {
		return op, fmt.Errorf("undo move of %d: %w", op.Node.ID, ErrNotFound)
	}
	var parent *model.TaskNode
	if op.HasPrevParent {
		if p, found := s.Find(op.PrevParentID); found && !node.Contains(p.ID) {
			parent = p
		}
	}

	s.detach(node.ID)
	if parent != nil {
		parent.Children = insertAt(parent.Children, op.PrevIndex, node)
	} else {
		s.roots = insertAt(s.roots, op.PrevIndex, node)
	}
	if target, found := s.Find(op.Target.ID); found {
		target.Expanded = op.TargetExpanded
	}
	s.touch()
	debug.Log("undo %s", op)
	return op, nil
}

func (s *Store) CanUndo() bool { return len(s.history) > 0 }

// History returns the undo log, oldest first.
func (s *Store) History() []Operation {
	out := make([]Operation, len(s.history))
	copy(out, s.history)
	return out
}
