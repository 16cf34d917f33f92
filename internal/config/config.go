package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and database configuration.
type Paths struct {
	DatabasePath  string `toml:"database_path"`
	LogDir        string `toml:"log_dir"`
	SummaryDir    string `toml:"summary_dir"`
	CoverCacheDir string `toml:"cover_cache_dir"`
}

// Batch contains configuration for batch processing runs.
type Batch struct {
	Workers         int     `toml:"workers"`
	BatchMode       bool    `toml:"batch_mode"`
	StrictMode      bool    `toml:"strict_mode"`
	SkipProcessed   bool    `toml:"skip_processed"`
	MaxRetries      int     `toml:"max_retries"`
	AcceptThreshold float64 `toml:"accept_threshold"`
}

// Search contains configuration for the source coordinator.
type Search struct {
	MinConfidence   float64 `toml:"min_confidence"`
	Limit           int     `toml:"limit"`
	ParallelSources int     `toml:"parallel_sources"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Merge contains configuration for multi-source reconciliation.
type Merge struct {
	Strategy       string  `toml:"strategy"`
	MinAgreement   int     `toml:"min_agreement"`
	GroupThreshold float64 `toml:"group_threshold"`
}

// Cache contains configuration for the album details cache.
type Cache struct {
	AlbumTTLHours int `toml:"album_ttl_hours"`
}

// SourceConfig describes one metadata source entry.
type SourceConfig struct {
	Enabled  bool   `toml:"enabled"`
	Priority int    `toml:"priority"`
	BaseURL  string `toml:"base_url"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for bdresolve.
//
// Configuration sections by subsystem:
//   - Paths: database location, log/summary directories, cover cache
//   - Batch: worker pool sizing, mode flags, retry budget
//   - Search: source fan-out limits and confidence floor
//   - Merge: reconciliation strategy and grouping threshold
//   - Cache: album details cache expiry
//   - Sources: per-source enablement and priority
//   - Logging: log format and level
type Config struct {
	Paths   Paths                   `toml:"paths"`
	Batch   Batch                   `toml:"batch"`
	Search  Search                  `toml:"search"`
	Merge   Merge                   `toml:"merge"`
	Cache   Cache                   `toml:"cache"`
	Sources map[string]SourceConfig `toml:"sources"`
	Logging Logging                 `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/bdresolve/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The boolean reports
// whether a config file was found; defaults apply otherwise.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("bdresolve.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the store and orchestrator
// write into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Paths.DatabasePath), c.Paths.LogDir, c.Paths.SummaryDir, c.Paths.CoverCacheDir}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// WriteSample writes the embedded sample configuration to path.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists at %s", expanded)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
