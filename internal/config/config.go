package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"tidyup/internal/ops"
)

var (
	//go:embed sample_config.toml
	sampleConfigTOML string
	//go:embed sample_config.json
	sampleConfigJSON string
)

// ErrConfigMissing reports that no configuration file exists where one is
// required.
var ErrConfigMissing = fmt.Errorf("%w: configuration file not found", ops.ErrConfiguration)

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir" json:"state_dir"`
	LogDir   string `toml:"log_dir" json:"log_dir"`
}

// Organize controls how the move executor lays out the destination tree.
type Organize struct {
	// Recursive walks the whole source tree; false limits the run to the
	// top-level files of the source directory.
	Recursive bool `toml:"recursive" json:"recursive"`
	// Layout is "category" (organize_map driven) or "extension" (one folder
	// per extension, e.g. Jpg).
	Layout string `toml:"layout" json:"layout"`
	// OnCollision is "overwrite" (last write wins) or "rename".
	OnCollision string `toml:"on_collision" json:"on_collision"`
}

// Scan contains the scanner limits.
type Scan struct {
	MaxFiles       int   `toml:"max_files" json:"max_files"`
	LargeFileBytes int64 `toml:"large_file_bytes" json:"large_file_bytes"`
}

// SMTP contains mail transport settings consumed by the mailer.
type SMTP struct {
	Host           string `toml:"host" json:"host"`
	Port           int    `toml:"port" json:"port"`
	Username       string `toml:"username" json:"username"`
	Password       string `toml:"password" json:"password"`
	FromAddr       string `toml:"from_addr" json:"from_addr"`
	ToAddr         string `toml:"to_addr" json:"to_addr"`
	TimeoutSeconds int    `toml:"timeout_seconds" json:"timeout_seconds"`
}

// Configured reports whether enough SMTP settings exist to attempt a send.
func (s SMTP) Configured() bool {
	return s.Host != "" && s.FromAddr != "" && s.ToAddr != ""
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" json:"format"`
	Level  string `toml:"level" json:"level"`
}

// Config encapsulates all configuration values for tidyup.
//
// Configuration sections by subsystem:
//   - OrganizeMap: category name -> extensions, in declared order
//   - SuspiciousExts / DoubleExtSuspicious / Scan: scanner heuristics
//   - Organize: walk, layout and collision policy of the move executor
//   - Paths: operation log and text log locations
//   - SMTP: report mail transport
//   - Logging: log format and level
type Config struct {
	OrganizeMap         CategoryMap `toml:"organize_map" json:"organize_map"`
	SuspiciousExts      []string    `toml:"suspicious_exts" json:"suspicious_exts"`
	DoubleExtSuspicious bool        `toml:"double_ext_suspicious" json:"double_ext_suspicious"`
	Organize            Organize    `toml:"organize" json:"organize"`
	Scan                Scan        `toml:"scan" json:"scan"`
	Paths               Paths       `toml:"paths" json:"paths"`
	SMTP                SMTP        `toml:"smtp" json:"smtp"`
	Logging             Logging     `toml:"logging" json:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tidyup/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A missing file yields defaults with exists=false.
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

		if err := decode(file, resolvedPath, &cfg); err != nil {
			return nil, "", false, fmt.Errorf("%w: parse config %s: %w", ops.ErrConfiguration, resolvedPath, err)
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

// LoadRequired behaves like Load but fails with ErrConfigMissing when no
// configuration file is found. Organize and scan use it so a missing
// category map never silently sends every file to Others.
func LoadRequired(path string) (*Config, string, error) {
	cfg, resolved, exists, err := Load(path)
	if err != nil {
		return nil, resolved, err
	}
	if !exists {
		return nil, resolved, fmt.Errorf("%w at %s (create one with 'tidyup config init')", ErrConfigMissing, resolved)
	}
	return cfg, resolved, nil
}

func decode(r io.Reader, path string, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.NewDecoder(r).Decode(cfg)
	default:
		return toml.NewDecoder(r).Decode(cfg)
	}
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

	candidates := []string{
		"~/.config/tidyup/config.json",
		"~/.config/tidyup/config.toml",
		"config.json",
		"tidyup.toml",
	}
	for _, candidate := range candidates {
		expanded, err := expandPath(candidate)
		if err != nil {
			return "", false, err
		}
		if info, err := os.Stat(expanded); err == nil && !info.IsDir() {
			return expanded, true, nil
		}
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// OperationLogPath returns the location of the last-operation log.
func (c *Config) OperationLogPath() string {
	return filepath.Join(c.Paths.StateDir, "last_op.json")
}

// HistoryPath returns the run history database location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LogFilePath returns the append-only text log location.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "tidyup.log")
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

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
// A .json path receives the JSON sample; anything else receives TOML.
func CreateSample(path string) error {
	sample := sampleConfigTOML
	if strings.EqualFold(filepath.Ext(path), ".json") {
		sample = sampleConfigJSON
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
