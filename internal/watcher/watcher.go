// Package watcher reports changes to a single file made by other programs.
package watcher

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sandeepkv93/tasktree/internal/debug"
)

const DefaultDebounce = 200 * time.Millisecond

var (
	ErrAlreadyStarted = errors.New("watcher: already started")
	ErrStopped        = errors.New("watcher: stopped")
	ErrFileRemoved    = errors.New("watcher: watched file was removed")
)

type Option func(*Watcher)

func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher watches the directory holding path, so atomic tmp+rename
// replacements of the file are seen, and coalesces bursts of events.
type Watcher struct {
	path     string
	debounce time.Duration

	mu       sync.Mutex
	fsw      *fsnotify.Watcher
	timer    *time.Timer
	started  bool
	stopped  bool
	done     chan struct{}
	closed   chan struct{}
	changeCh chan struct{}
	errCh    chan error
}

func New(path string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		path:     abs,
		debounce: DefaultDebounce,
		changeCh: make(chan struct{}, 1),
		errCh:    make(chan error, 1),
		closed:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *Watcher) Path() string { return w.path }

// Changed receives once per debounced burst of writes.
func (w *Watcher) Changed() <-chan struct{} { return w.changeCh }

// Errors receives watch failures, including ErrFileRemoved.
func (w *Watcher) Errors() <-chan error { return w.errCh }

// Done is closed by Stop.
func (w *Watcher) Done() <-chan struct{} { return w.closed }

func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return ErrStopped
	}
	if w.started {
		return ErrAlreadyStarted
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		_ = fsw.Close()
		return err
	}
	w.fsw = fsw
	w.done = make(chan struct{})
	w.started = true
	go w.loop(fsw.Events, fsw.Errors, w.done)
	debug.Log("watching %s", w.path)
	return nil
}

// Stop ends the watch for good. Changed and Errors stay open; receivers
// should also select on Done.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	w.stopped = true
	close(w.closed)
	if !w.started {
		return
	}
	close(w.done)
	_ = w.fsw.Close()
	w.fsw = nil
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.started = false
}

func (w *Watcher) loop(events <-chan fsnotify.Event, errs <-chan error, done <-chan struct{}) {
	target := filepath.Base(w.path)
	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				w.trigger()
			case ev.Op&fsnotify.Remove != 0:
				w.report(ErrFileRemoved)
			}
		case err, ok := <-errs:
			if !ok {
				return
			}
			w.report(err)
		}
	}
}

func (w *Watcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.started {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.notify)
}

func (w *Watcher) notify() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}
	select {
	case w.changeCh <- struct{}{}:
	default:
	}
}

func (w *Watcher) report(err error) {
	select {
	case w.errCh <- err:
	default:
	}
}
