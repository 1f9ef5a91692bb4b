package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyTask     = errors.New("model: task name is required")
	ErrInvalidWeight = errors.New("model: invalid task weight")
	ErrInvalidType   = errors.New("model: invalid task type")
)

const (
	MinWeight     = 0
	MaxWeight     = 100
	DefaultWeight = 50
)

type TaskType string

const (
	TaskTypeDevelopment   TaskType = "Development"
	TaskTypeTesting       TaskType = "Testing"
	TaskTypeDesign        TaskType = "Design"
	TaskTypeDocumentation TaskType = "Documentation"
	TaskTypeOther         TaskType = "Other"
)

func (t TaskType) IsValid() bool {
	switch t {
	case TaskTypeDevelopment, TaskTypeTesting, TaskTypeDesign, TaskTypeDocumentation, TaskTypeOther:
		return true
	default:
		return false
	}
}

// TaskTypes lists the known types in display order.
func TaskTypes() []TaskType {
	return []TaskType{TaskTypeDevelopment, TaskTypeTesting, TaskTypeDesign, TaskTypeDocumentation, TaskTypeOther}
}

// ParseTaskType matches a type name case-insensitively.
func ParseTaskType(raw string) (TaskType, error) {
	trimmed := strings.TrimSpace(raw)
	for _, t := range TaskTypes() {
		if strings.EqualFold(string(t), trimmed) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, raw)
}

// Fields are the user-editable parts of a node.
type Fields struct {
	Task   string
	Weight int
	Type   TaskType
}

func (f Fields) Validate() error {
	if strings.TrimSpace(f.Task) == "" {
		return ErrEmptyTask
	}
	if f.Weight < MinWeight || f.Weight > MaxWeight {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidWeight, f.Weight, MinWeight, MaxWeight)
	}
	if !f.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, f.Type)
	}
	return nil
}

// TaskNode is one entry of the task forest. Children are owned by the node
// and are never nil once the node exists.
type TaskNode struct {
	ID       int
	Task     string
	Weight   int
	Type     TaskType
	Expanded bool
	Children []*TaskNode
}

func (n *TaskNode) Fields() Fields {
	return Fields{Task: n.Task, Weight: n.Weight, Type: n.Type}
}

func (n *TaskNode) Apply(f Fields) {
	n.Task = strings.TrimSpace(f.Task)
	n.Weight = f.Weight
	n.Type = f.Type
}

func (n *TaskNode) HasChildren() bool {
	return len(n.Children) > 0
}

// Clone deep-copies the node and its subtree.
func (n *TaskNode) Clone() *TaskNode {
	if n == nil {
		return nil
	}
	out := &TaskNode{
		ID:       n.ID,
		Task:     n.Task,
		Weight:   n.Weight,
		Type:     n.Type,
		Expanded: n.Expanded,
		Children: make([]*TaskNode, 0, len(n.Children)),
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, child.Clone())
	}
	return out
}

// Contains reports whether id names n or any node below it.
func (n *TaskNode) Contains(id int) bool {
	if n.ID == id {
		return true
	}
	for _, child := range n.Children {
		if child.Contains(id) {
			return true
		}
	}
	return false
}

// CloneForest deep-copies an ordered root sequence.
func CloneForest(roots []*TaskNode) []*TaskNode {
	out := make([]*TaskNode, 0, len(roots))
	for _, root := range roots {
		out = append(out, root.Clone())
	}
	return out
}

// Walk visits nodes depth-first in document order. Returning false from fn
// stops the walk.
func Walk(roots []*TaskNode, fn func(node *TaskNode, depth int) bool) {
	walk(roots, 0, fn)
}

func walk(nodes []*TaskNode, depth int, fn func(*TaskNode, int) bool) bool {
	for _, node := range nodes {
		if !fn(node, depth) {
			return false
		}
		if !walk(node.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// MaxID returns the largest id in the forest, or 0 when it is empty.
func MaxID(roots []*TaskNode) int {
	maxID := 0
	Walk(roots, func(node *TaskNode, _ int) bool {
		if node.ID > maxID {
			maxID = node.ID
		}
		return true
	})
	return maxID
}

// CountNodes counts every node of the forest.
func CountNodes(roots []*TaskNode) int {
	total := 0
	Walk(roots, func(*TaskNode, int) bool {
		total++
		return true
	})
	return total
}
