// Package update is the bubbletea presentation layer for the task tree. It
// translates keys and palette commands into Tree Store calls and owns the
// persistence side effects: saving, reloading, snapshots, autosave and file
// watching.
package update

import (
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/scheduler"
	"github.com/sandeepkv93/tasktree/internal/storage"
	"github.com/sandeepkv93/tasktree/internal/tree"
	"github.com/sandeepkv93/tasktree/internal/watcher"
)

type Mode string

const (
	ModeBrowse  Mode = "browse"
	ModeGrab    Mode = "grab"
	ModeForm    Mode = "form"
	ModeConfirm Mode = "confirm"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type Notification struct {
	Body  string
	Level string
	At    time.Time
}

const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

const maxNotifications = 40

type CommandPaletteState struct {
	Active bool
	Input  string
}

type FormKind string

const (
	FormAddRoot  FormKind = "add root task"
	FormAddChild FormKind = "add subtask"
	FormEdit     FormKind = "edit task"
)

const (
	fieldTask = iota
	fieldWeight
	fieldType
	fieldCount
)

type FormState struct {
	Kind      FormKind
	ParentID  int
	TargetID  int
	Focus     int
	TypeIndex int
	Err       string
	task      textinput.Model
	weight    textinput.Model
}

type ConfirmKind string

const (
	ConfirmDelete ConfirmKind = "delete"
	ConfirmNew    ConfirmKind = "new"
	ConfirmReload ConfirmKind = "reload"
)

type ConfirmState struct {
	Kind     ConfirmKind
	TargetID int
	Prompt   string
}

// Options wires the model to its collaborators. Only Store is required.
type Options struct {
	Store         *tree.Store
	DocumentPath  string
	Repository    storage.Repository
	Scheduler     *scheduler.Engine
	Watcher       *watcher.Watcher
	AutosaveDelay time.Duration
	MarkdownStyle string
	// LastWritten holds the bytes the document was loaded from, so the
	// watcher can ignore a change that leaves the file identical.
	LastWritten []byte
	Clipboard   func(string) error
	Now         func() time.Time
}

type Model struct {
	Store         *tree.Store
	Mode          Mode
	Cursor        int
	SelectedID    int
	GrabbedID     int
	Form          FormState
	Confirm       ConfirmState
	Palette       CommandPaletteState
	HelpVisible   bool
	JSONVisible   bool
	Notifications []Notification
	Status        StatusBar
	DocumentPath  string
	Quitting      bool
	LastError     error

	savedRevision uint64
	lastWritten   []byte
	repo          storage.Repository
	engine        *scheduler.Engine
	watch         *watcher.Watcher
	autosaveDelay time.Duration
	markdownStyle string
	copyText      func(string) error
	now           func() time.Time

	commandInput textinput.Model
	helpModel    help.Model
	jsonViewport viewport.Model
	width        int
	height       int
}

func NewModel(opts Options) Model {
	store := opts.Store
	if store == nil {
		store = tree.NewStore()
	}
	m := Model{
		Store:         store,
		Mode:          ModeBrowse,
		DocumentPath:  opts.DocumentPath,
		savedRevision: store.Revision(),
		lastWritten:   opts.LastWritten,
		repo:          opts.Repository,
		engine:        opts.Scheduler,
		watch:         opts.Watcher,
		autosaveDelay: opts.AutosaveDelay,
		markdownStyle: opts.MarkdownStyle,
		copyText:      opts.Clipboard,
		now:           opts.Now,
	}
	if m.DocumentPath == "" {
		m.DocumentPath = "task-tree.json"
	}
	if m.markdownStyle == "" {
		m.markdownStyle = "dark"
	}
	if m.copyText == nil {
		m.copyText = clipboard.WriteAll
	}
	if m.now == nil {
		m.now = time.Now
	}
	m.initBubbleComponents()
	if roots := store.Roots(); len(roots) > 0 {
		m.SelectedID = roots[0].ID
	}
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.helpModel = help.New()
	m.jsonViewport = viewport.New(56, 16)
}

// Dirty reports edits made since the last save or load.
func (m Model) Dirty() bool {
	return m.Store.Revision() != m.savedRevision
}

func (m Model) selectedNode() (*model.TaskNode, bool) {
	if m.SelectedID == 0 {
		return nil, false
	}
	return m.Store.Find(m.SelectedID)
}

func (m *Model) notify(body, level string) {
	if body == "" {
		return
	}
	m.Notifications = append(m.Notifications, Notification{Body: body, Level: level, At: m.now()})
	if len(m.Notifications) > maxNotifications {
		m.Notifications = m.Notifications[len(m.Notifications)-maxNotifications:]
	}
}

func (m *Model) setStatus(text, level string) {
	m.Status = StatusBar{Text: text, IsError: level == LevelError}
	m.notify(text, level)
}

func (m *Model) fail(err error) {
	m.LastError = err
	m.setStatus(err.Error(), LevelError)
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type AutosaveDueMsg struct {
	Event scheduler.Event
}

type FileChangedMsg struct {
	Path string
}

type WatchErrorMsg struct {
	Err error
}
