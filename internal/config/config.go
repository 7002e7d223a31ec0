// Package config loads the layered reqtsv configuration.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrArchiveDirEmpty    = errors.New("archive_dir cannot be empty")
	ErrLogLevel           = errors.New("log_level must be one of debug, info, warn, error")
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	Title      string `json:"title,omitempty"`
	Editor     string `json:"editor,omitempty"`
	Author     string `json:"author,omitempty"`
	ArchiveDir string `json:"archive_dir"`
	LogFile    string `json:"log_file,omitempty"`
	LogLevel   string `json:"log_level,omitempty"`

	// Resolved (computed, not serialized)
	WorkDir       string `json:"-"` // Absolute project directory (from -C flag or os.Getwd)
	ArchiveDirAbs string `json:"-"`
	LogFileAbs    string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ArchiveDir: filepath.Join(".reqtsv", "archive"),
		LogLevel:   "warn",
	}
}

// FileName is the project config file name.
const FileName = ".reqtsv.json"

// globalPath returns $XDG_CONFIG_HOME/reqtsv/config.json, falling back to
// ~/.config/reqtsv/config.json. Empty if neither variable is set.
func globalPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "reqtsv", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "reqtsv", "config.json")
	}

	return ""
}

// Input holds the inputs for [Load].
type Input struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Verbose         bool              // -v/--verbose forces log_level debug
	Env             map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config file (.reqtsv.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. CLI overrides.
func Load(input Input) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return Config{}, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg := Default()

	if path := globalPath(input.Env); path != "" {
		globalCfg, loaded, err := loadFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = merge(cfg, globalCfg)
		}
	}

	projectPath := filepath.Join(workDir, FileName)

	projectCfg, loaded, err := loadFile(projectPath, false)
	if err != nil {
		return Config{}, err
	}

	if loaded {
		cfg.Sources.Project = projectPath
		cfg = merge(cfg, projectCfg)
	}

	if input.ConfigPath != "" {
		explicit := input.ConfigPath
		if !filepath.IsAbs(explicit) {
			explicit = filepath.Join(workDir, explicit)
		}

		_, statErr := os.Stat(explicit)
		if statErr != nil {
			return Config{}, fmt.Errorf("%w: %s", ErrConfigFileNotFound, input.ConfigPath)
		}

		explicitCfg, _, err := loadFile(explicit, true)
		if err != nil {
			return Config{}, err
		}

		cfg.Sources.Project = explicit
		cfg = merge(cfg, explicitCfg)
	}

	if input.Verbose {
		cfg.LogLevel = "debug"
	}

	_, err = cfg.Level()
	if err != nil {
		return Config{}, err
	}

	cfg.WorkDir = workDir
	cfg.ArchiveDirAbs = abs(workDir, cfg.ArchiveDir)

	if cfg.LogFile != "" {
		cfg.LogFileAbs = abs(workDir, cfg.LogFile)
	}

	return cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "", "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: got %q", ErrLogLevel, c.LogLevel)
	}
}

func abs(base, path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	return filepath.Join(base, path)
}

// loadFile loads a config file. If mustExist is false, a missing file
// returns a zero config and loaded=false.
func loadFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s: %w", ErrConfigFileRead, path, err)
	}

	cfg, parseErr := parse(data)
	if parseErr != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, true, nil
}

func parse(data []byte) (Config, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	dec := json.NewDecoder(bytes.NewReader(standardized))
	dec.DisallowUnknownFields()

	err = dec.Decode(&cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	// An explicit "" must not silently fall back to the default.
	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	if val, exists := raw["archive_dir"]; exists {
		if str, ok := val.(string); ok && str == "" {
			return Config{}, ErrArchiveDirEmpty
		}
	}

	return cfg, nil
}

func merge(base, overlay Config) Config {
	if overlay.Title != "" {
		base.Title = overlay.Title
	}

	if overlay.Editor != "" {
		base.Editor = overlay.Editor
	}

	if overlay.Author != "" {
		base.Author = overlay.Author
	}

	if overlay.ArchiveDir != "" {
		base.ArchiveDir = overlay.ArchiveDir
	}

	if overlay.LogFile != "" {
		base.LogFile = overlay.LogFile
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	return base
}

// WriteProjectFile writes a project config holding title into dir. It does
// nothing and returns false if the file already exists.
func WriteProjectFile(dir, title string) (bool, error) {
	path := filepath.Join(dir, FileName)

	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}

	if !os.IsNotExist(err) {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}

	data, err := json.MarshalIndent(struct {
		Title string `json:"title"`
	}{Title: title}, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode project config: %w", err)
	}

	data = append(data, '\n')

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}

	return true, nil
}
