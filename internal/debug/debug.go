// Package debug provides conditional debug logging for tasktree.
//
// Logging is enabled by setting TASKTREE_DEBUG. The TUI owns the terminal, so
// output normally goes to the file named by TASKTREE_DEBUG_FILE; without it
// messages are written to stderr.
//
//	TASKTREE_DEBUG=1 TASKTREE_DEBUG_FILE=/tmp/tasktree.log tasktree
//
// When disabled every function is a no-op.
package debug

import (
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"
)

const prefix = "[TASKTREE] "

var (
	mu      sync.Mutex
	enabled bool
	logger  *log.Logger
	closer  io.Closer
)

func init() {
	if strings.TrimSpace(os.Getenv("TASKTREE_DEBUG")) == "" {
		return
	}
	enabled = true
	var out io.Writer = os.Stderr
	if path := strings.TrimSpace(os.Getenv("TASKTREE_DEBUG_FILE")); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
			closer = f
		}
	}
	logger = log.New(out, prefix, log.Ltime|log.Lmicroseconds)
}

// Enabled returns whether debug logging is enabled.
func Enabled() bool {
	mu.Lock()
	defer mu.Unlock()
	return enabled
}

// SetEnabled toggles logging at runtime, creating a stderr logger if needed.
func SetEnabled(e bool) {
	mu.Lock()
	defer mu.Unlock()
	enabled = e
	if e && logger == nil {
		logger = log.New(os.Stderr, prefix, log.Ltime|log.Lmicroseconds)
	}
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	logger = log.New(w, prefix, 0)
}

// Close releases the debug file, if one was opened.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	enabled = false
	return err
}

// Log writes a printf-style message if logging is enabled.
func Log(format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled || logger == nil {
		return
	}
	logger.Printf(format, args...)
}

// LogIf writes a message only when cond holds.
func LogIf(cond bool, format string, args ...any) {
	if !cond {
		return
	}
	Log(format, args...)
}

// LogTiming records how long an operation took.
func LogTiming(name string, d time.Duration) {
	Log("%s took %v", name, d)
}
