// Package config resolves runtime settings for tasktree.
//
// Sources are layered: Default, then the YAML file from ConfigPath
// (~/.config/tasktree/config.yaml, XDG aware), then TASKTREE_* environment
// variables. The entry point applies the positional document path last.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DocumentPath    string        `yaml:"document_path,omitempty"`
	DatabasePath    string        `yaml:"database_path,omitempty"`
	AutosaveDelay   time.Duration `yaml:"autosave_delay,omitempty"`
	WatchDocument   bool          `yaml:"watch_document"`
	SampleData      bool          `yaml:"sample_data"`
	MarkdownStyle   string        `yaml:"markdown_style,omitempty"`
	SchedulerBuffer int           `yaml:"scheduler_buffer,omitempty"`
}

func Default() Config {
	return Config{
		DocumentPath:    "task-tree.json",
		DatabasePath:    "",
		AutosaveDelay:   0,
		WatchDocument:   true,
		SampleData:      true,
		MarkdownStyle:   "dark",
		SchedulerBuffer: 16,
	}
}

// AutosaveEnabled reports whether edits are saved without an explicit save.
func (c Config) AutosaveEnabled() bool {
	return c.AutosaveDelay > 0
}

func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "tasktree")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "tasktree")
}

func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load overlays the default config file on base.
func Load(base Config) (Config, error) {
	path := ConfigPath()
	if path == "" {
		return base, nil
	}
	return LoadFile(base, path)
}

// LoadFile overlays the YAML file at path on base. A missing file is not an
// error.
func LoadFile(base Config, path string) (Config, error) {
	cfg := base
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return base, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return base, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.DocumentPath = expandHome(cfg.DocumentPath)
	cfg.DatabasePath = expandHome(cfg.DatabasePath)
	if cfg.SchedulerBuffer <= 0 {
		cfg.SchedulerBuffer = base.SchedulerBuffer
	}
	return cfg, nil
}

// FromEnv applies TASKTREE_* overrides. Unparseable values are ignored.
func FromEnv(base Config) Config {
	cfg := base
	if v := strings.TrimSpace(os.Getenv("TASKTREE_FILE")); v != "" {
		cfg.DocumentPath = expandHome(v)
	}
	if v, ok := os.LookupEnv("TASKTREE_DB"); ok {
		cfg.DatabasePath = expandHome(strings.TrimSpace(v))
	}
	if v, ok := getEnvInt("TASKTREE_AUTOSAVE_MS"); ok && v >= 0 {
		cfg.AutosaveDelay = time.Duration(v) * time.Millisecond
	}
	if v, ok := getEnvBool("TASKTREE_WATCH"); ok {
		cfg.WatchDocument = v
	}
	if v, ok := getEnvBool("TASKTREE_SAMPLE"); ok {
		cfg.SampleData = v
	}
	if v := strings.TrimSpace(os.Getenv("TASKTREE_MARKDOWN_STYLE")); v != "" {
		cfg.MarkdownStyle = v
	}
	if v, ok := getEnvInt("TASKTREE_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	return cfg
}

func getEnvInt(name string) (int, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

func getEnvBool(name string) (bool, bool) {
	raw := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	if raw == "" {
		return false, false
	}
	switch raw {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	default:
		return false, false
	}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
