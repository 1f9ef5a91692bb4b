package update

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasktree/internal/debug"
	"github.com/sandeepkv93/tasktree/internal/document"
	"github.com/sandeepkv93/tasktree/internal/scheduler"
	"github.com/sandeepkv93/tasktree/internal/storage"
	"github.com/sandeepkv93/tasktree/internal/watcher"
)

const (
	storageTimeout = 5 * time.Second
	autosaveKey    = "autosave"
)

var errNoRepository = errors.New("no snapshot database configured (set TASKTREE_DB)")

// saveDocument writes the forest to path and makes path the current file.
func (m *Model) saveDocument(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = m.DocumentPath
	}
	start := time.Now()
	payload, err := document.WriteFile(path, m.Store.Serialize())
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	debug.LogTiming("save "+path, time.Since(start))
	m.lastWritten = payload
	m.savedRevision = m.Store.Revision()
	m.switchDocument(path)
	return nil
}

// openDocument replaces the forest with the document at path.
func (m *Model) openDocument(path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		path = m.DocumentPath
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	doc, err := document.Unmarshal(raw)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	m.loadDocument(doc)
	m.lastWritten = raw
	m.savedRevision = m.Store.Revision()
	m.switchDocument(path)
	return nil
}

func (m *Model) loadDocument(doc document.Document) {
	m.Store.Deserialize(doc)
	m.Mode = ModeBrowse
	m.GrabbedID = 0
	m.Cursor = 0
	m.SelectedID = 0
	if roots := m.Store.Roots(); len(roots) > 0 {
		m.SelectedID = roots[0].ID
	}
	m.syncCursor()
}

// switchDocument points the model, and the watcher, at path.
func (m *Model) switchDocument(path string) {
	if path == m.DocumentPath {
		return
	}
	m.DocumentPath = path
	if m.watch == nil {
		return
	}
	m.watch.Stop()
	m.watch = nil
	w, err := watcher.New(path)
	if err != nil {
		m.notify(fmt.Sprintf("watch %s: %v", path, err), LevelWarning)
		return
	}
	if err := w.Start(); err != nil {
		m.notify(fmt.Sprintf("watch %s: %v", path, err), LevelWarning)
		return
	}
	m.watch = w
}

func (m *Model) copyJSON() (string, error) {
	payload, err := document.Marshal(m.Store.Serialize())
	if err != nil {
		return "", err
	}
	if err := m.copyText(string(payload)); err != nil {
		return "", fmt.Errorf("copy to clipboard: %w", err)
	}
	return fmt.Sprintf("copied %d bytes of JSON to the clipboard", len(payload)), nil
}

func (m Model) storageContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storageTimeout)
}

func (m *Model) saveSnapshot(name string) (string, error) {
	if m.repo == nil {
		return "", errNoRepository
	}
	ctx, cancel := m.storageContext()
	defer cancel()
	info, err := m.repo.SaveSnapshot(ctx, name, m.Store.Serialize())
	if err != nil {
		return "", fmt.Errorf("snapshot %s: %w", name, err)
	}
	return fmt.Sprintf("snapshot %q saved (%d nodes)", info.Name, info.NodeCount), nil
}

func (m *Model) restoreSnapshot(name string) (string, error) {
	if m.repo == nil {
		return "", errNoRepository
	}
	ctx, cancel := m.storageContext()
	defer cancel()
	doc, err := m.repo.LoadSnapshot(ctx, name)
	if err != nil {
		return "", fmt.Errorf("restore %s: %w", name, err)
	}
	m.loadDocument(doc)
	return fmt.Sprintf("restored snapshot %q (unsaved)", name), nil
}

func (m *Model) listSnapshots() (string, error) {
	if m.repo == nil {
		return "", errNoRepository
	}
	ctx, cancel := m.storageContext()
	defer cancel()
	items, err := m.repo.ListSnapshots(ctx, storage.SnapshotListFilter{Limit: 20})
	if err != nil {
		return "", fmt.Errorf("list snapshots: %w", err)
	}
	if len(items) == 0 {
		return "no snapshots yet", nil
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%s (%d, %s)", item.Name, item.NodeCount, item.UpdatedAt.Local().Format("2006-01-02 15:04")))
	}
	return "snapshots: " + strings.Join(parts, ", "), nil
}

func (m *Model) dropSnapshot(name string) (string, error) {
	if m.repo == nil {
		return "", errNoRepository
	}
	ctx, cancel := m.storageContext()
	defer cancel()
	if err := m.repo.DeleteSnapshot(ctx, name); err != nil {
		return "", fmt.Errorf("drop %s: %w", name, err)
	}
	return fmt.Sprintf("snapshot %q deleted", name), nil
}

// afterMutation runs after every change to the forest.
func (m *Model) afterMutation() {
	m.syncCursor()
	m.scheduleAutosave()
}

func (m *Model) scheduleAutosave() {
	if m.engine == nil || m.autosaveDelay <= 0 || !m.Dirty() {
		return
	}
	err := m.engine.Schedule(scheduler.Event{
		Key:       autosaveKey,
		Kind:      scheduler.KindAutosave,
		Revision:  m.Store.Revision(),
		TriggerAt: m.now().Add(m.autosaveDelay),
	})
	if err != nil {
		debug.Log("schedule autosave: %v", err)
	}
}

// handleAutosave saves only if nothing changed since the event was
// scheduled.
func (m *Model) handleAutosave(ev scheduler.Event) {
	if ev.Revision != m.Store.Revision() || !m.Dirty() {
		return
	}
	if err := m.saveDocument(m.DocumentPath); err != nil {
		m.fail(fmt.Errorf("autosave: %w", err))
		return
	}
	msg := "autosaved " + m.DocumentPath
	if m.repo != nil {
		if _, err := m.saveSnapshot(storage.AutosaveSnapshot); err != nil {
			m.notify(err.Error(), LevelWarning)
		}
	}
	debug.Log("%s", msg)
	m.Status = StatusBar{Text: msg}
}

// handleFileChanged reconciles an external write to the open document.
func (m *Model) handleFileChanged(path string) {
	if path != "" && path != m.watchedPath() {
		return
	}
	raw, err := os.ReadFile(m.DocumentPath)
	if err != nil {
		m.fail(fmt.Errorf("reload %s: %w", m.DocumentPath, err))
		return
	}
	if bytes.Equal(raw, m.lastWritten) {
		return
	}
	if m.Dirty() {
		m.setStatus(fmt.Sprintf("%s changed on disk; keeping unsaved edits (ctrl+o to reload)", m.DocumentPath), LevelWarning)
		return
	}
	doc, err := document.Unmarshal(raw)
	if err != nil {
		m.fail(fmt.Errorf("reload %s: %w", m.DocumentPath, err))
		return
	}
	selected := m.SelectedID
	m.loadDocument(doc)
	m.lastWritten = raw
	m.savedRevision = m.Store.Revision()
	if _, ok := m.Store.Find(selected); ok {
		m.selectID(selected)
	}
	m.setStatus(fmt.Sprintf("reloaded %s after external change", m.DocumentPath), LevelInfo)
}

func (m Model) watchedPath() string {
	if m.watch == nil {
		return ""
	}
	return m.watch.Path()
}

func waitForAutosaveCmd(ch <-chan scheduler.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return AutosaveDueMsg{Event: ev}
	}
}

func waitForFileChangeCmd(w *watcher.Watcher) tea.Cmd {
	if w == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-w.Changed():
			return FileChangedMsg{Path: w.Path()}
		case err := <-w.Errors():
			return WatchErrorMsg{Err: err}
		case <-w.Done():
			return nil
		}
	}
}

// StopWatcher releases the document watcher, if any.
func (m Model) StopWatcher() {
	if m.watch != nil {
		m.watch.Stop()
	}
}
