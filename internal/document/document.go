// Package document defines the persisted JSON form of a task forest.
//
// A document is a JSON array of nodes shaped {id, task, weight, type,
// children}. The in-memory "expanded" flag is never written; when a document
// carries it anyway it is honoured on load, and nodes without it load
// expanded.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/sandeepkv93/tasktree/internal/model"
)

var ErrMalformed = errors.New("document: malformed")

type Node struct {
	ID       int            `json:"id"`
	Task     string         `json:"task"`
	Weight   int            `json:"weight"`
	Type     model.TaskType `json:"type"`
	Expanded *bool          `json:"expanded,omitempty"`
	Children []Node         `json:"children"`
}

type Document []Node

// FromForest copies the forest into document form, dropping Expanded.
func FromForest(roots []*model.TaskNode) Document {
	out := make(Document, 0, len(roots))
	for _, root := range roots {
		out = append(out, fromNode(root))
	}
	return out
}

func fromNode(n *model.TaskNode) Node {
	out := Node{
		ID:       n.ID,
		Task:     n.Task,
		Weight:   n.Weight,
		Type:     n.Type,
		Children: make([]Node, 0, len(n.Children)),
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, fromNode(child))
	}
	return out
}

// ToForest builds fresh nodes from the document. Nodes without an expanded
// flag come back expanded.
func (d Document) ToForest() []*model.TaskNode {
	out := make([]*model.TaskNode, 0, len(d))
	for _, n := range d {
		out = append(out, n.toNode())
	}
	return out
}

func (n Node) toNode() *model.TaskNode {
	expanded := true
	if n.Expanded != nil {
		expanded = *n.Expanded
	}
	out := &model.TaskNode{
		ID:       n.ID,
		Task:     n.Task,
		Weight:   n.Weight,
		Type:     n.Type,
		Expanded: expanded,
		Children: make([]*model.TaskNode, 0, len(n.Children)),
	}
	for _, child := range n.Children {
		out.Children = append(out.Children, child.toNode())
	}
	return out
}

// Strip returns a copy of the document with every expanded flag removed.
func (d Document) Strip() Document {
	out := make(Document, 0, len(d))
	for _, n := range d {
		out = append(out, n.strip())
	}
	return out
}

func (n Node) strip() Node {
	out := n
	out.Expanded = nil
	out.Children = make([]Node, 0, len(n.Children))
	for _, child := range n.Children {
		out.Children = append(out.Children, child.strip())
	}
	return out
}

// Marshal encodes the document with two-space indentation and a trailing
// newline. Expanded flags are stripped first.
func Marshal(d Document) ([]byte, error) {
	payload, err := json.MarshalIndent(d.Strip(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(payload, '\n'), nil
}

type rawNode struct {
	ID       *int              `json:"id"`
	Task     *string           `json:"task"`
	Weight   *int              `json:"weight"`
	Type     *string           `json:"type"`
	Expanded *bool             `json:"expanded"`
	Children []json.RawMessage `json:"children"`
}

// Unmarshal decodes and checks a document. The top level must be an array
// and every node must carry id, task, weight and type. A missing children
// field reads as no children. Failures wrap ErrMalformed with the JSON path
// of the offending node.
func Unmarshal(data []byte) (Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	if trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: top level must be an array", ErrMalformed)
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return decodeNodes(items, "")
}

func decodeNodes(items []json.RawMessage, path string) (Document, error) {
	out := make(Document, 0, len(items))
	for i, item := range items {
		node, err := decodeNode(item, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out = append(out, node)
	}
	return out, nil
}

func decodeNode(item json.RawMessage, path string) (Node, error) {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Node{}, fmt.Errorf("%w: %s: node must be an object", ErrMalformed, path)
	}
	var raw rawNode
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return Node{}, fmt.Errorf("%w: %s: %v", ErrMalformed, path, err)
	}
	var missing []string
	if raw.ID == nil {
		missing = append(missing, `"id"`)
	}
	if raw.Task == nil {
		missing = append(missing, `"task"`)
	}
	if raw.Weight == nil {
		missing = append(missing, `"weight"`)
	}
	if raw.Type == nil {
		missing = append(missing, `"type"`)
	}
	if len(missing) > 0 {
		return Node{}, fmt.Errorf("%w: %s: missing %s", ErrMalformed, path, strings.Join(missing, ", "))
	}
	children, err := decodeNodes(raw.Children, path+".children")
	if err != nil {
		return Node{}, err
	}
	return Node{
		ID:       *raw.ID,
		Task:     *raw.Task,
		Weight:   *raw.Weight,
		Type:     model.TaskType(*raw.Type),
		Expanded: raw.Expanded,
		Children: children,
	}, nil
}

// ReadFile loads and decodes the document stored at path.
func ReadFile(path string) (Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return doc, nil
}

// WriteFile encodes the document and replaces path atomically. It returns
// the bytes written so callers can recognise their own writes later.
func WriteFile(path string, d Document) ([]byte, error) {
	payload, err := Marshal(d)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return nil, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return nil, err
	}
	return payload, nil
}
