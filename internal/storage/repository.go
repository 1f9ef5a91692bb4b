package storage

import (
	"context"
	"errors"
	"time"

	"github.com/sandeepkv93/tasktree/internal/document"
)

var (
	ErrNotFound    = errors.New("storage: not found")
	ErrInvalidName = errors.New("storage: snapshot name is required")
)

// AutosaveSnapshot is the name autosave writes to.
const AutosaveSnapshot = "autosave"

type SnapshotInfo struct {
	Name      string
	NodeCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

type SnapshotListFilter struct {
	Limit  int
	Offset int
}

// Repository stores named copies of a document.
type Repository interface {
	SaveSnapshot(ctx context.Context, name string, doc document.Document) (SnapshotInfo, error)
	LoadSnapshot(ctx context.Context, name string) (document.Document, error)
	GetSnapshot(ctx context.Context, name string) (SnapshotInfo, error)
	ListSnapshots(ctx context.Context, filter SnapshotListFilter) ([]SnapshotInfo, error)
	DeleteSnapshot(ctx context.Context, name string) error
	Close() error
}
