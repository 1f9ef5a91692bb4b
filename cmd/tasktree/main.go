package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sandeepkv93/tasktree/internal/config"
	"github.com/sandeepkv93/tasktree/internal/debug"
	"github.com/sandeepkv93/tasktree/internal/document"
	"github.com/sandeepkv93/tasktree/internal/scheduler"
	"github.com/sandeepkv93/tasktree/internal/storage"
	"github.com/sandeepkv93/tasktree/internal/tree"
	"github.com/sandeepkv93/tasktree/internal/update"
	"github.com/sandeepkv93/tasktree/internal/watcher"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "tasktree failed: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	defer debug.Close()

	cfg, err := config.Load(config.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "tasktree: %v (using defaults)\n", err)
	}
	cfg = config.FromEnv(cfg)
	if len(args) > 0 && args[0] != "" {
		cfg.DocumentPath = args[0]
	}

	store, lastWritten, err := loadStore(cfg)
	if err != nil {
		return err
	}

	opts := update.Options{
		Store:         store,
		DocumentPath:  cfg.DocumentPath,
		AutosaveDelay: cfg.AutosaveDelay,
		MarkdownStyle: cfg.MarkdownStyle,
		LastWritten:   lastWritten,
	}

	if cfg.DatabasePath != "" {
		repo, err := storage.OpenSQLite(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open snapshot database: %w", err)
		}
		defer repo.Close()
		opts.Repository = repo
	}

	if cfg.AutosaveEnabled() {
		engine := scheduler.NewEngine(cfg.SchedulerBuffer)
		engine.Start()
		defer engine.Stop()
		opts.Scheduler = engine
	}

	if cfg.WatchDocument {
		w, err := watcher.New(cfg.DocumentPath)
		if err == nil {
			err = w.Start()
		}
		if err != nil {
			debug.Log("watch %s: %v", cfg.DocumentPath, err)
		} else {
			opts.Watcher = w
		}
	}

	program := tea.NewProgram(update.NewModel(opts), tea.WithAltScreen())
	final, err := program.Run()
	if m, ok := final.(update.Model); ok {
		// The model may have re-pointed the watcher after save as or open.
		m.StopWatcher()
	}
	return err
}

// loadStore reads the document, falling back to the demo tree or an empty
// forest when the file does not exist yet.
func loadStore(cfg config.Config) (*tree.Store, []byte, error) {
	store := tree.NewStore()
	raw, err := os.ReadFile(cfg.DocumentPath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if cfg.SampleData {
			store.LoadSample()
		}
		return store, nil, nil
	case err != nil:
		return nil, nil, fmt.Errorf("read %s: %w", cfg.DocumentPath, err)
	}
	doc, err := document.Unmarshal(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", cfg.DocumentPath, err)
	}
	store.Deserialize(doc)
	return store, raw, nil
}
