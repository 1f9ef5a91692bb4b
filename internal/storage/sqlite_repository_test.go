package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/sandeepkv93/tasktree/internal/document"
	"github.com/sandeepkv93/tasktree/internal/model"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "tasktree-test.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	if err := MigrateUp(db); err != nil {
		t.Fatalf("migrate up: %v", err)
	}

	repo, err := NewSQLiteRepository(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

// fixedClock returns a clock that advances one minute per call.
func fixedClock(start time.Time) func() time.Time {
	current := start
	return func() time.Time {
		out := current
		current = current.Add(time.Minute)
		return out
	}
}

func sampleDoc() document.Document {
	return document.Document{
		{ID: 1, Task: "Project", Weight: 100, Type: model.TaskTypeDevelopment, Children: []document.Node{
			{ID: 2, Task: "Frontend", Weight: 60, Type: model.TaskTypeDesign, Children: []document.Node{
				{ID: 3, Task: "Screens", Weight: 30, Type: model.TaskTypeDesign, Children: []document.Node{}},
			}},
			{ID: 4, Task: "Backend", Weight: 40, Type: model.TaskTypeTesting, Children: []document.Node{}},
		}},
		{ID: 5, Task: "Docs", Weight: 10, Type: model.TaskTypeDocumentation, Children: []document.Node{}},
	}
}

func TestSnapshotSaveLoadRoundTrip(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	repo.now = fixedClock(time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC))

	doc := sampleDoc()
	info, err := repo.SaveSnapshot(ctx, "baseline", doc)
	if err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if info.Name != "baseline" || info.NodeCount != 5 {
		t.Fatalf("unexpected snapshot info: %#v", info)
	}

	got, err := repo.LoadSnapshot(ctx, "baseline")
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("snapshot round trip changed the document:\n got %#v\nwant %#v", got, doc)
	}
}

func TestSnapshotDropsExpandedFlag(t *testing.T) {
	repo := setupRepo(t)
	collapsed := false
	doc := document.Document{{ID: 1, Task: "A", Weight: 1, Type: model.TaskTypeOther, Expanded: &collapsed, Children: []document.Node{}}}
	if _, err := repo.SaveSnapshot(t.Context(), "a", doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.LoadSnapshot(t.Context(), "a")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got[0].Expanded != nil {
		t.Fatal("expanded flag should not be stored")
	}
}

func TestSnapshotReplaceKeepsCreatedAt(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	start := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	repo.now = fixedClock(start)

	if _, err := repo.SaveSnapshot(ctx, "work", sampleDoc()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	smaller := document.Document{{ID: 9, Task: "Only", Weight: 5, Type: model.TaskTypeOther, Children: []document.Node{}}}
	info, err := repo.SaveSnapshot(ctx, "work", smaller)
	if err != nil {
		t.Fatalf("second save: %v", err)
	}
	if !info.CreatedAt.Equal(start) || !info.UpdatedAt.Equal(start.Add(time.Minute)) {
		t.Fatalf("unexpected timestamps: %#v", info)
	}
	if info.NodeCount != 1 {
		t.Fatalf("node count = %d, want 1", info.NodeCount)
	}
	got, err := repo.LoadSnapshot(ctx, "work")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, smaller) {
		t.Fatalf("stale nodes survived replace: %#v", got)
	}
}

func TestSnapshotKeepsDuplicateIDs(t *testing.T) {
	repo := setupRepo(t)
	doc := document.Document{
		{ID: 1, Task: "first", Weight: 1, Type: model.TaskTypeOther, Children: []document.Node{}},
		{ID: 1, Task: "second", Weight: 2, Type: model.TaskTypeOther, Children: []document.Node{}},
	}
	if _, err := repo.SaveSnapshot(t.Context(), "dupes", doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.LoadSnapshot(t.Context(), "dupes")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, doc) {
		t.Fatalf("unexpected document: %#v", got)
	}
}

func TestSnapshotEmptyDocument(t *testing.T) {
	repo := setupRepo(t)
	if _, err := repo.SaveSnapshot(t.Context(), "empty", document.Document{}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := repo.LoadSnapshot(t.Context(), "empty")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil document, got %#v", got)
	}
}

func TestSnapshotListAndPagination(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()
	repo.now = fixedClock(time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC))

	for _, name := range []string{"one", "two", "three"} {
		if _, err := repo.SaveSnapshot(ctx, name, sampleDoc()); err != nil {
			t.Fatalf("save %s: %v", name, err)
		}
	}

	all, err := repo.ListSnapshots(ctx, SnapshotListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 || all[0].Name != "three" || all[2].Name != "one" {
		t.Fatalf("unexpected order: %#v", all)
	}

	page, err := repo.ListSnapshots(ctx, SnapshotListFilter{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("list page: %v", err)
	}
	if len(page) != 1 || page[0].Name != "two" {
		t.Fatalf("unexpected page: %#v", page)
	}

	tail, err := repo.ListSnapshots(ctx, SnapshotListFilter{Offset: 2})
	if err != nil {
		t.Fatalf("list offset only: %v", err)
	}
	if len(tail) != 1 || tail[0].Name != "one" {
		t.Fatalf("unexpected tail: %#v", tail)
	}
}

func TestSnapshotNotFoundAndDelete(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	if _, err := repo.LoadSnapshot(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on load, got %v", err)
	}
	if err := repo.DeleteSnapshot(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on delete, got %v", err)
	}

	if _, err := repo.SaveSnapshot(ctx, "gone", sampleDoc()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := repo.DeleteSnapshot(ctx, "gone"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetSnapshot(ctx, "gone"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	var orphans int
	if err := repo.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshot_nodes WHERE snapshot = ?`, "gone").Scan(&orphans); err != nil {
		t.Fatalf("count nodes: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected node rows to cascade, found %d", orphans)
	}
}

func TestSnapshotRequiresName(t *testing.T) {
	repo := setupRepo(t)
	if _, err := repo.SaveSnapshot(t.Context(), "  ", sampleDoc()); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestOpenSQLiteMigrates(t *testing.T) {
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "nested.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()
	if _, err := repo.SaveSnapshot(t.Context(), AutosaveSnapshot, sampleDoc()); err != nil {
		t.Fatalf("save after open: %v", err)
	}
}
