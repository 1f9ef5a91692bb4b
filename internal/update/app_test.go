package update

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasktree/internal/document"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/scheduler"
	"github.com/sandeepkv93/tasktree/internal/storage"
	"github.com/sandeepkv93/tasktree/internal/tree"
)

func newSampleModel(t *testing.T) Model {
	t.Helper()
	store := tree.NewStore()
	store.LoadSample()
	return NewModel(Options{
		Store:        store,
		DocumentPath: filepath.Join(t.TempDir(), "task-tree.json"),
		Clipboard:    func(string) error { return nil },
	})
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func parentID(t *testing.T, m Model, id int) int {
	t.Helper()
	p := m.Store.FindParent(id)
	if p == nil {
		return 0
	}
	return p.ID
}

func runPalette(t *testing.T, m Model, line string) Model {
	t.Helper()
	return send(t, m, runes("/"), runes(line), tea.KeyMsg{Type: tea.KeyEnter})
}

func TestNewModelDefaults(t *testing.T) {
	m := newSampleModel(t)
	if m.Mode != ModeBrowse {
		t.Fatalf("expected browse mode, got %q", m.Mode)
	}
	if m.SelectedID != 1 || m.Cursor != 0 {
		t.Fatalf("expected first root selected, got id=%d cursor=%d", m.SelectedID, m.Cursor)
	}
	if m.Dirty() {
		t.Fatal("fresh model should not be dirty")
	}

	empty := NewModel(Options{})
	if empty.DocumentPath != "task-tree.json" {
		t.Fatalf("expected default document path, got %q", empty.DocumentPath)
	}
	if empty.SelectedID != 0 {
		t.Fatalf("expected no selection on empty store, got %d", empty.SelectedID)
	}
}

func TestCursorNavigationFollowsVisibleRows(t *testing.T) {
	m := newSampleModel(t)
	m = send(t, m, runes("j"), runes("j"), runes("j"), runes("j"))
	if m.SelectedID != 5 {
		t.Fatalf("expected node 5 after four steps, got %d", m.SelectedID)
	}
	m = send(t, m, runes("j"))
	if m.SelectedID != 5 {
		t.Fatalf("cursor should stop at the last visible row, got %d", m.SelectedID)
	}

	m = send(t, m, runes("l"))
	if n, _ := m.Store.Find(5); !n.Expanded {
		t.Fatal("expected l to expand node 5")
	}
	m = send(t, m, runes("l"))
	if m.SelectedID != 6 {
		t.Fatalf("expected l on an expanded node to select its first child, got %d", m.SelectedID)
	}
	m = send(t, m, runes("h"))
	if m.SelectedID != 5 {
		t.Fatalf("expected h on a leaf to select the parent, got %d", m.SelectedID)
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeySpace})
	if n, _ := m.Store.Find(5); n.Expanded {
		t.Fatal("expected space to collapse node 5")
	}
	m = send(t, m, runes("g"))
	if m.SelectedID != 1 {
		t.Fatalf("expected g to jump to the top, got %d", m.SelectedID)
	}
}

func TestAddRootTaskWithForm(t *testing.T) {
	m := newSampleModel(t)
	m = send(t, m, runes("a"))
	if m.Mode != ModeForm || m.Form.Kind != FormAddRoot {
		t.Fatalf("expected add root form, got mode=%q kind=%q", m.Mode, m.Form.Kind)
	}
	m = send(t, m, runes("Ship release"), tea.KeyMsg{Type: tea.KeyTab}, tea.KeyMsg{Type: tea.KeyTab}, runes("l"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.Mode != ModeBrowse {
		t.Fatalf("expected browse mode after submit, got %q (err %q)", m.Mode, m.Form.Err)
	}
	node, ok := m.Store.Find(8)
	if !ok {
		t.Fatal("expected new node with id 8")
	}
	if node.Task != "Ship release" || node.Weight != model.DefaultWeight || node.Type != model.TaskTypeTesting {
		t.Fatalf("unexpected node fields: %+v", node.Fields())
	}
	if len(m.Store.Roots()) != 2 || m.SelectedID != 8 {
		t.Fatalf("expected new selected root, roots=%d selected=%d", len(m.Store.Roots()), m.SelectedID)
	}
	if !m.Dirty() {
		t.Fatal("expected model to be dirty after adding")
	}
}

func TestAddChildAndEditWithForm(t *testing.T) {
	m := newSampleModel(t)
	m = send(t, m, runes("j"), runes("c"), runes("Styling"), tea.KeyMsg{Type: tea.KeyEnter})
	if got := parentID(t, m, 8); got != 2 {
		t.Fatalf("expected subtask under node 2, got parent %d", got)
	}

	m.selectID(3)
	m = send(t, m, runes("e"))
	if m.Form.Kind != FormEdit || m.Form.task.Value() != "User Interface Design" {
		t.Fatalf("expected edit form prefilled, got kind=%q task=%q", m.Form.Kind, m.Form.task.Value())
	}
	m = send(t, m, runes(" v2"), tea.KeyMsg{Type: tea.KeyEnter})
	node, _ := m.Store.Find(3)
	if node.Task != "User Interface Design v2" || node.Type != model.TaskTypeDesign {
		t.Fatalf("unexpected edited node: %+v", node.Fields())
	}
}

func TestFormValidationKeepsFormOpen(t *testing.T) {
	m := newSampleModel(t)
	count := m.Store.Count()

	m = send(t, m, runes("a"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.Mode != ModeForm || m.Form.Err == "" {
		t.Fatalf("expected validation error for empty task, got mode=%q err=%q", m.Mode, m.Form.Err)
	}

	m = send(t, m, runes("X"), tea.KeyMsg{Type: tea.KeyTab}, runes("9"), tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.Form.Err, "invalid task weight") {
		t.Fatalf("expected weight error, got %q", m.Form.Err)
	}
	if m.Store.Count() != count {
		t.Fatalf("invalid form must not change the store, count %d -> %d", count, m.Store.Count())
	}

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Mode != ModeBrowse || m.Store.Count() != count {
		t.Fatalf("expected cancelled form, mode=%q count=%d", m.Mode, m.Store.Count())
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	m := newSampleModel(t)
	m.selectID(2)

	m = send(t, m, runes("d"), runes("n"))
	if _, ok := m.Store.Find(2); !ok {
		t.Fatal("expected node to survive a cancelled delete")
	}

	m = send(t, m, runes("d"))
	if m.Mode != ModeConfirm || m.Confirm.TargetID != 2 {
		t.Fatalf("expected delete confirmation for 2, got %+v", m.Confirm)
	}
	m = send(t, m, runes("y"))
	for _, id := range []int{2, 3, 4} {
		if _, ok := m.Store.Find(id); ok {
			t.Fatalf("expected node %d to be deleted", id)
		}
	}
	if m.Store.Count() != 4 {
		t.Fatalf("expected 4 nodes left, got %d", m.Store.Count())
	}
	if m.SelectedID == 2 || m.SelectedID == 0 {
		t.Fatalf("expected selection to move to a live node, got %d", m.SelectedID)
	}
}

func TestDeleteLastRootFails(t *testing.T) {
	store := tree.NewStore()
	store.AddRoot(model.Fields{Task: "only", Weight: 10, Type: model.TaskTypeOther})
	m := NewModel(Options{Store: store, Clipboard: func(string) error { return nil }})

	m = send(t, m, runes("d"), runes("y"))
	if !errors.Is(m.LastError, tree.ErrLastRoot) {
		t.Fatalf("expected ErrLastRoot, got %v", m.LastError)
	}
	if m.Store.Count() != 1 || !m.Status.IsError {
		t.Fatalf("expected root kept and error status, count=%d status=%+v", m.Store.Count(), m.Status)
	}
}

func TestGrabDropAndUndo(t *testing.T) {
	m := newSampleModel(t)
	m.selectID(4)

	m = send(t, m, runes("m"))
	if m.Mode != ModeGrab || m.GrabbedID != 4 {
		t.Fatalf("expected grab of node 4, got mode=%q grabbed=%d", m.Mode, m.GrabbedID)
	}
	m = send(t, m, runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
	if m.Mode != ModeBrowse {
		t.Fatalf("expected browse mode after drop, got %q", m.Mode)
	}
	if got := parentID(t, m, 4); got != 5 {
		t.Fatalf("expected node 4 under 5, got %d", got)
	}
	if m.SelectedID != 4 {
		t.Fatalf("expected moved node selected, got %d", m.SelectedID)
	}

	m = send(t, m, runes("u"))
	if got := parentID(t, m, 4); got != 2 {
		t.Fatalf("expected undo to restore parent 2, got %d", got)
	}
	if idx, _ := m.Store.IndexOf(4); idx != 1 {
		t.Fatalf("expected undo to restore index 1, got %d", idx)
	}

	m = send(t, m, runes("u"))
	if m.Status.IsError || m.Status.Text != "nothing to undo" {
		t.Fatalf("expected informational status, got %+v", m.Status)
	}
}

func TestDropIntoOwnSubtreeStaysInGrabMode(t *testing.T) {
	m := newSampleModel(t)
	m.selectID(2)
	m = send(t, m, runes("m"), runes("j"), tea.KeyMsg{Type: tea.KeyEnter})
	if !errors.Is(m.LastError, tree.ErrInvalidMove) {
		t.Fatalf("expected ErrInvalidMove, got %v", m.LastError)
	}
	if m.Mode != ModeGrab {
		t.Fatalf("expected to stay in grab mode, got %q", m.Mode)
	}
	if len(m.Store.History()) != 0 {
		t.Fatal("rejected move must not be recorded")
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.Mode != ModeBrowse || m.GrabbedID != 0 {
		t.Fatalf("expected esc to cancel grab, got mode=%q grabbed=%d", m.Mode, m.GrabbedID)
	}
}

func TestPaletteCommands(t *testing.T) {
	m := newSampleModel(t)

	m = runPalette(t, m, "add Release notes weight:20 type:documentation")
	node, ok := m.Store.Find(8)
	if !ok || node.Weight != 20 || node.Type != model.TaskTypeDocumentation {
		t.Fatalf("unexpected palette add result: ok=%v status=%+v", ok, m.Status)
	}
	if m.Palette.Active {
		t.Fatal("expected palette to close after enter")
	}

	m = runPalette(t, m, "move 8 5")
	if got := parentID(t, m, 8); got != 5 {
		t.Fatalf("expected 8 under 5, got %d", got)
	}
	m = runPalette(t, m, "undo")
	if got := parentID(t, m, 8); got != 0 {
		t.Fatalf("expected 8 back at root level, got parent %d", got)
	}

	m = runPalette(t, m, "edit 8 weight:70")
	if n, _ := m.Store.Find(8); n.Weight != 70 || n.Task != "Release notes" {
		t.Fatalf("unexpected edit result: %+v", n.Fields())
	}

	m = runPalette(t, m, "collapse all")
	if got := len(m.visibleRows()); got != 2 {
		t.Fatalf("expected only roots visible, got %d rows", got)
	}

	m = runPalette(t, m, "move 1 2")
	if !errors.Is(m.LastError, tree.ErrInvalidMove) {
		t.Fatalf("expected invalid move error, got %v", m.LastError)
	}

	m = runPalette(t, m, "frobnicate")
	if !m.Status.IsError {
		t.Fatalf("expected unknown command to set an error, got %+v", m.Status)
	}
}

func TestPaletteEscapeClosesWithoutRunning(t *testing.T) {
	m := newSampleModel(t)
	m = send(t, m, runes("/"), runes("new"), tea.KeyMsg{Type: tea.KeyEsc})
	if m.Palette.Active || m.Store.Count() != 7 {
		t.Fatalf("expected palette closed and store untouched, active=%v count=%d", m.Palette.Active, m.Store.Count())
	}
}

func TestSaveAndOpenRoundTrip(t *testing.T) {
	m := newSampleModel(t)
	path := m.DocumentPath

	m = send(t, m, runes("a"), runes("Extra"), tea.KeyMsg{Type: tea.KeyEnter})
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	if m.Dirty() {
		t.Fatal("expected clean model after save")
	}
	doc, err := document.ReadFile(path)
	if err != nil {
		t.Fatalf("read saved document: %v", err)
	}
	if len(doc) != 2 || doc[1].Task != "Extra" {
		t.Fatalf("unexpected saved document: %+v", doc)
	}

	other := filepath.Join(filepath.Dir(path), "other.json")
	m = runPalette(t, m, "save "+other)
	if m.DocumentPath != other {
		t.Fatalf("expected document path to follow save as, got %q", m.DocumentPath)
	}

	m = runPalette(t, m, "new")
	if m.Store.Count() != 0 {
		t.Fatalf("expected empty forest after new, got %d", m.Store.Count())
	}
	m = runPalette(t, m, "open "+path)
	if m.Store.Count() != 8 || m.Store.NextID() != 9 {
		t.Fatalf("expected reopened forest, count=%d next=%d", m.Store.Count(), m.Store.NextID())
	}
	if m.DocumentPath != path || m.Dirty() {
		t.Fatalf("expected clean model on %q, got %q dirty=%v", path, m.DocumentPath, m.Dirty())
	}
}

func TestOpenMissingFileReportsError(t *testing.T) {
	m := newSampleModel(t)
	m = runPalette(t, m, "open "+filepath.Join(t.TempDir(), "missing.json"))
	if !errors.Is(m.LastError, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", m.LastError)
	}
	if m.Store.Count() != 7 {
		t.Fatalf("failed open must keep the forest, got %d nodes", m.Store.Count())
	}
}

func TestFileChangedReloadsCleanModel(t *testing.T) {
	m := newSampleModel(t)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})

	m = send(t, m, FileChangedMsg{})
	if m.Status.Text != "saved "+m.DocumentPath {
		t.Fatalf("own write should be ignored, got status %+v", m.Status)
	}

	external := document.Document{{ID: 40, Task: "External", Weight: 1, Type: model.TaskTypeOther, Children: []document.Node{}}}
	if _, err := document.WriteFile(m.DocumentPath, external); err != nil {
		t.Fatalf("write external document: %v", err)
	}
	m = send(t, m, FileChangedMsg{})
	if m.Store.Count() != 1 || m.SelectedID != 40 {
		t.Fatalf("expected external document loaded, count=%d selected=%d", m.Store.Count(), m.SelectedID)
	}
	if m.Store.NextID() != 41 || m.Dirty() {
		t.Fatalf("expected next id 41 and clean model, got next=%d dirty=%v", m.Store.NextID(), m.Dirty())
	}
}

func TestFileChangedKeepsUnsavedEdits(t *testing.T) {
	m := newSampleModel(t)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	m = runPalette(t, m, "add Local")

	external := document.Document{{ID: 1, Task: "External", Weight: 1, Type: model.TaskTypeOther, Children: []document.Node{}}}
	if _, err := document.WriteFile(m.DocumentPath, external); err != nil {
		t.Fatalf("write external document: %v", err)
	}
	m = send(t, m, FileChangedMsg{})
	if m.Store.Count() != 8 {
		t.Fatalf("expected unsaved edits kept, got %d nodes", m.Store.Count())
	}
	if !strings.Contains(m.Status.Text, "changed on disk") {
		t.Fatalf("expected conflict warning, got %+v", m.Status)
	}
}

func TestAutosaveSchedulingAndRevisionCheck(t *testing.T) {
	engine := scheduler.NewEngine(4)
	store := tree.NewStore()
	store.LoadSample()
	m := NewModel(Options{
		Store:         store,
		DocumentPath:  filepath.Join(t.TempDir(), "task-tree.json"),
		Scheduler:     engine,
		AutosaveDelay: time.Second,
		Clipboard:     func(string) error { return nil },
	})

	m = runPalette(t, m, "add One")
	m = runPalette(t, m, "add Two")
	if engine.Pending() != 1 {
		t.Fatalf("expected a single keyed autosave event, got %d", engine.Pending())
	}

	stale := scheduler.Event{Key: autosaveKey, Kind: scheduler.KindAutosave, Revision: m.Store.Revision() - 1, TriggerAt: time.Now()}
	m = send(t, m, AutosaveDueMsg{Event: stale})
	if !m.Dirty() {
		t.Fatal("stale autosave event must not save")
	}

	current := stale
	current.Revision = m.Store.Revision()
	m = send(t, m, AutosaveDueMsg{Event: current})
	if m.Dirty() {
		t.Fatal("expected autosave to write the document")
	}
	if _, err := os.Stat(m.DocumentPath); err != nil {
		t.Fatalf("expected autosaved file: %v", err)
	}
}

func TestCopyUsesClipboard(t *testing.T) {
	var copied string
	store := tree.NewStore()
	store.LoadSample()
	m := NewModel(Options{Store: store, Clipboard: func(s string) error {
		copied = s
		return nil
	}})

	m = send(t, m, runes("y"))
	doc, err := document.Unmarshal([]byte(copied))
	if err != nil {
		t.Fatalf("clipboard should hold a document: %v", err)
	}
	if len(doc) != 1 || doc[0].ID != 1 || len(doc[0].Children) != 2 {
		t.Fatalf("unexpected copied document: %+v", doc)
	}
	if m.Status.IsError {
		t.Fatalf("unexpected error status: %+v", m.Status)
	}

	failing := NewModel(Options{Store: store, Clipboard: func(string) error { return errors.New("no display") }})
	failing = send(t, failing, runes("y"))
	if !failing.Status.IsError || !strings.Contains(failing.Status.Text, "no display") {
		t.Fatalf("expected clipboard error, got %+v", failing.Status)
	}
}

func TestSnapshotCommands(t *testing.T) {
	m := newSampleModel(t)
	m = runPalette(t, m, "snapshot base")
	if !errors.Is(m.LastError, errNoRepository) {
		t.Fatalf("expected missing repository error, got %v", m.LastError)
	}

	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "snapshots.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	store := tree.NewStore()
	store.LoadSample()
	m = NewModel(Options{Store: store, Repository: repo, Clipboard: func(string) error { return nil }})
	m = runPalette(t, m, "snapshot base")
	if m.Status.IsError {
		t.Fatalf("snapshot failed: %+v", m.Status)
	}
	m = runPalette(t, m, "delete 5")
	m = runPalette(t, m, "restore base")
	if m.Store.Count() != 7 {
		t.Fatalf("expected restored forest, got %d nodes", m.Store.Count())
	}
	m = runPalette(t, m, "snapshots")
	if !strings.Contains(m.Status.Text, "base (7") {
		t.Fatalf("expected snapshot listing, got %q", m.Status.Text)
	}
	m = runPalette(t, m, "drop base")
	m = runPalette(t, m, "restore base")
	if !errors.Is(m.LastError, storage.ErrNotFound) {
		t.Fatalf("expected not found after drop, got %v", m.LastError)
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m := newSampleModel(t)
	m = send(t, m, SetStatusMsg{Text: "ready"})
	if m.Status.Text != "ready" || m.Status.IsError {
		t.Fatalf("unexpected status: %+v", m.Status)
	}

	m = send(t, m, AppErrorMsg{Err: errors.New("boom")})
	if m.LastError == nil || m.LastError.Error() != "boom" || !m.Status.IsError {
		t.Fatalf("unexpected error state: %v %+v", m.LastError, m.Status)
	}

	m = send(t, m, ClearStatusMsg{})
	if m.Status.Text != "" || m.Status.IsError {
		t.Fatalf("expected cleared status, got: %+v", m.Status)
	}
	if len(m.Notifications) != 2 || m.Notifications[1].Level != LevelError {
		t.Fatalf("expected two notifications, got %+v", m.Notifications)
	}
}

func TestUpdateQuitKey(t *testing.T) {
	m := newSampleModel(t)
	updated, cmd := m.Update(runes("q"))
	if !updated.(Model).Quitting {
		t.Fatal("expected quitting flag true")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestInitWithSchedulerReturnsCmd(t *testing.T) {
	if cmd := newSampleModel(t).Init(); cmd != nil {
		t.Fatal("expected no startup command without collaborators")
	}
	m := NewModel(Options{Scheduler: scheduler.NewEngine(1)})
	if m.Init() == nil {
		t.Fatal("expected autosave wait command")
	}
}

func TestViewContainsCoreState(t *testing.T) {
	m := newSampleModel(t)
	m = send(t, m, runes("j"), runes("?"), SetStatusMsg{Text: "all good"})
	out := m.View()
	for _, want := range []string{"tasktree", "Project Development", "Frontend Development", "status: all good", "add subtask"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output: %q", want, out)
		}
	}
	if strings.Contains(out, "API Design") {
		t.Fatalf("children of collapsed nodes must be hidden: %q", out)
	}

	m = send(t, m, runes("J"))
	if !m.JSONVisible || m.jsonViewport.TotalLineCount() < 2 {
		t.Fatalf("expected rendered JSON pane, visible=%v lines=%d", m.JSONVisible, m.jsonViewport.TotalLineCount())
	}
}
