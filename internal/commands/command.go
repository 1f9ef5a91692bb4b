package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sandeepkv93/tasktree/internal/model"
)

type Type string

const (
	TypeAdd       Type = "add"
	TypeChild     Type = "child"
	TypeEdit      Type = "edit"
	TypeDelete    Type = "delete"
	TypeMove      Type = "move"
	TypeUndo      Type = "undo"
	TypeNew       Type = "new"
	TypeOpen      Type = "open"
	TypeSave      Type = "save"
	TypeCopy      Type = "copy"
	TypeSnapshot  Type = "snapshot"
	TypeRestore   Type = "restore"
	TypeSnapshots Type = "snapshots"
	TypeDrop      Type = "drop"
	TypeExpand    Type = "expand"
	TypeCollapse  Type = "collapse"
)

type ErrorCode string

const (
	ErrCodeEmptyInput      ErrorCode = "empty_input"
	ErrCodeUnknownCommand  ErrorCode = "unknown_command"
	ErrCodeInvalidArgument ErrorCode = "invalid_argument"
	ErrCodeHandlerMissing  ErrorCode = "handler_missing"
)

type CommandError struct {
	Code    ErrorCode
	Message string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalid(format string, args ...any) *CommandError {
	return &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

type AddArgs struct {
	Fields model.Fields
}

type ChildArgs struct {
	ParentID int
	Fields   model.Fields
}

// EditArgs carries only the fields that were given; nil and "" mean keep.
type EditArgs struct {
	ID     int
	Task   string
	Weight *int
	Type   *model.TaskType
}

// Apply merges the requested changes over the current fields.
func (a EditArgs) Apply(cur model.Fields) model.Fields {
	if a.Task != "" {
		cur.Task = a.Task
	}
	if a.Weight != nil {
		cur.Weight = *a.Weight
	}
	if a.Type != nil {
		cur.Type = *a.Type
	}
	return cur
}

type DeleteArgs struct {
	ID int
}

type MoveArgs struct {
	SourceID int
	TargetID int
}

// PathArgs is shared by open and save. An empty Path means the current file.
type PathArgs struct {
	Path string
}

// SnapshotArgs is shared by snapshot, restore and drop.
type SnapshotArgs struct {
	Name string
}

// ExpandArgs is shared by expand and collapse.
type ExpandArgs struct {
	All      bool
	ID       int
	Expanded bool
}

type Command struct {
	Type     Type
	Raw      string
	Add      *AddArgs
	Child    *ChildArgs
	Edit     *EditArgs
	Delete   *DeleteArgs
	Move     *MoveArgs
	Path     *PathArgs
	Snapshot *SnapshotArgs
	Expand   *ExpandArgs
}

// Usage lists the palette syntax, one command per line.
func Usage() []string {
	return []string{
		"add <task> [weight:N] [type:T]",
		"child <parent-id> <task> [weight:N] [type:T]",
		"edit <id> [task] [weight:N] [type:T]",
		"delete <id>",
		"move <source-id> <target-id>",
		"undo",
		"new",
		"open [path]",
		"save [path]",
		"copy",
		"snapshot <name>",
		"restore <name>",
		"snapshots",
		"drop <name>",
		"expand all|<id>",
		"collapse all|<id>",
	}
}

func Parse(input string) (Command, error) {
	raw := strings.TrimSpace(input)
	if strings.HasPrefix(raw, "/") {
		raw = strings.TrimSpace(strings.TrimPrefix(raw, "/"))
	}
	if raw == "" {
		return Command{}, &CommandError{Code: ErrCodeEmptyInput, Message: "command is empty"}
	}

	parts := strings.Fields(raw)
	head := Type(strings.ToLower(parts[0]))
	args := parts[1:]

	switch head {
	case TypeAdd:
		return parseAdd(input, args)
	case TypeChild:
		return parseChild(input, args)
	case TypeEdit:
		return parseEdit(input, args)
	case TypeDelete:
		id, err := parseSingleID(head, args)
		if err != nil {
			return Command{}, err
		}
		return Command{Type: head, Raw: input, Delete: &DeleteArgs{ID: id}}, nil
	case TypeMove:
		return parseMove(input, args)
	case TypeUndo, TypeNew, TypeCopy, TypeSnapshots:
		if len(args) > 0 {
			return Command{}, invalid("%s takes no arguments", head)
		}
		return Command{Type: head, Raw: input}, nil
	case TypeOpen, TypeSave:
		return Command{Type: head, Raw: input, Path: &PathArgs{Path: strings.Join(args, " ")}}, nil
	case TypeSnapshot, TypeRestore, TypeDrop:
		if len(args) != 1 {
			return Command{}, invalid("%s requires a single snapshot name", head)
		}
		return Command{Type: head, Raw: input, Snapshot: &SnapshotArgs{Name: args[0]}}, nil
	case TypeExpand, TypeCollapse:
		return parseExpand(input, head, args)
	default:
		return Command{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unsupported command: %s", head)}
	}
}

func parseAdd(raw string, args []string) (Command, error) {
	f, err := parseNewFields(TypeAdd, args)
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeAdd, Raw: raw, Add: &AddArgs{Fields: f}}, nil
}

func parseChild(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("child requires a parent id and a task")
	}
	parent, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	f, err := parseNewFields(TypeChild, args[1:])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeChild, Raw: raw, Child: &ChildArgs{ParentID: parent, Fields: f}}, nil
}

func parseEdit(raw string, args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, invalid("edit requires an id and at least one change")
	}
	id, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	task, weight, typ, err := parseFieldTokens(args[1:])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeEdit, Raw: raw, Edit: &EditArgs{ID: id, Task: task, Weight: weight, Type: typ}}, nil
}

func parseMove(raw string, args []string) (Command, error) {
	if len(args) != 2 {
		return Command{}, invalid("move requires source and target ids")
	}
	src, err := parseID(args[0])
	if err != nil {
		return Command{}, err
	}
	dst, err := parseID(args[1])
	if err != nil {
		return Command{}, err
	}
	return Command{Type: TypeMove, Raw: raw, Move: &MoveArgs{SourceID: src, TargetID: dst}}, nil
}

func parseExpand(raw string, head Type, args []string) (Command, error) {
	if len(args) != 1 {
		return Command{}, invalid("%s requires \"all\" or a node id", head)
	}
	out := &ExpandArgs{Expanded: head == TypeExpand}
	if strings.EqualFold(args[0], "all") {
		out.All = true
	} else {
		id, err := parseID(args[0])
		if err != nil {
			return Command{}, err
		}
		out.ID = id
	}
	return Command{Type: head, Raw: raw, Expand: out}, nil
}

func parseSingleID(head Type, args []string) (int, error) {
	if len(args) != 1 {
		return 0, invalid("%s requires a node id", head)
	}
	return parseID(args[0])
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(raw, "#"))
	if err != nil || id <= 0 {
		return 0, invalid("invalid node id: %s", raw)
	}
	return id, nil
}

// parseNewFields reads the fields of a node being created, filling the
// weight and type defaults.
func parseNewFields(head Type, args []string) (model.Fields, error) {
	task, weight, typ, err := parseFieldTokens(args)
	if err != nil {
		return model.Fields{}, err
	}
	if task == "" {
		return model.Fields{}, invalid("%s requires a task", head)
	}
	f := model.Fields{Task: task, Weight: model.DefaultWeight, Type: model.TaskTypeDevelopment}
	if weight != nil {
		f.Weight = *weight
	}
	if typ != nil {
		f.Type = *typ
	}
	return f, nil
}

// parseFieldTokens splits weight:N and type:T tokens from the free task text.
func parseFieldTokens(args []string) (string, *int, *model.TaskType, error) {
	var (
		words  []string
		weight *int
		typ    *model.TaskType
	)
	for _, arg := range args {
		lower := strings.ToLower(arg)
		switch {
		case strings.HasPrefix(lower, "weight:"):
			n, err := strconv.Atoi(arg[len("weight:"):])
			if err != nil || n < model.MinWeight || n > model.MaxWeight {
				return "", nil, nil, invalid("weight must be an integer between %d and %d", model.MinWeight, model.MaxWeight)
			}
			weight = &n
		case strings.HasPrefix(lower, "type:"):
			t, err := model.ParseTaskType(arg[len("type:"):])
			if err != nil {
				return "", nil, nil, invalid("unknown task type: %s", arg[len("type:"):])
			}
			typ = &t
		default:
			words = append(words, arg)
		}
	}
	return strings.TrimSpace(strings.Join(words, " ")), weight, typ, nil
}
