package commands

import "fmt"

type Result struct {
	Message string
}

type Handlers struct {
	Add       func(AddArgs) (Result, error)
	Child     func(ChildArgs) (Result, error)
	Edit      func(EditArgs) (Result, error)
	Delete    func(DeleteArgs) (Result, error)
	Move      func(MoveArgs) (Result, error)
	Undo      func() (Result, error)
	New       func() (Result, error)
	Open      func(PathArgs) (Result, error)
	Save      func(PathArgs) (Result, error)
	Copy      func() (Result, error)
	Snapshot  func(SnapshotArgs) (Result, error)
	Restore   func(SnapshotArgs) (Result, error)
	Snapshots func() (Result, error)
	Drop      func(SnapshotArgs) (Result, error)
	Expand    func(ExpandArgs) (Result, error)
}

func Execute(cmd Command, handlers Handlers) (Result, error) {
	switch cmd.Type {
	case TypeAdd:
		return call(cmd.Type, handlers.Add, cmd.Add)
	case TypeChild:
		return call(cmd.Type, handlers.Child, cmd.Child)
	case TypeEdit:
		return call(cmd.Type, handlers.Edit, cmd.Edit)
	case TypeDelete:
		return call(cmd.Type, handlers.Delete, cmd.Delete)
	case TypeMove:
		return call(cmd.Type, handlers.Move, cmd.Move)
	case TypeUndo:
		return callBare(cmd.Type, handlers.Undo)
	case TypeNew:
		return callBare(cmd.Type, handlers.New)
	case TypeOpen:
		return call(cmd.Type, handlers.Open, cmd.Path)
	case TypeSave:
		return call(cmd.Type, handlers.Save, cmd.Path)
	case TypeCopy:
		return callBare(cmd.Type, handlers.Copy)
	case TypeSnapshot:
		return call(cmd.Type, handlers.Snapshot, cmd.Snapshot)
	case TypeRestore:
		return call(cmd.Type, handlers.Restore, cmd.Snapshot)
	case TypeSnapshots:
		return callBare(cmd.Type, handlers.Snapshots)
	case TypeDrop:
		return call(cmd.Type, handlers.Drop, cmd.Snapshot)
	case TypeExpand, TypeCollapse:
		return call(cmd.Type, handlers.Expand, cmd.Expand)
	default:
		return Result{}, &CommandError{Code: ErrCodeUnknownCommand, Message: fmt.Sprintf("unknown command type: %s", cmd.Type)}
	}
}

func call[A any](t Type, fn func(A) (Result, error), args *A) (Result, error) {
	if fn == nil {
		return Result{}, missing(t)
	}
	if args == nil {
		return Result{}, &CommandError{Code: ErrCodeInvalidArgument, Message: fmt.Sprintf("%s command has no arguments", t)}
	}
	return fn(*args)
}

func callBare(t Type, fn func() (Result, error)) (Result, error) {
	if fn == nil {
		return Result{}, missing(t)
	}
	return fn()
}

func missing(t Type) *CommandError {
	return &CommandError{Code: ErrCodeHandlerMissing, Message: fmt.Sprintf("%s handler not configured", t)}
}
