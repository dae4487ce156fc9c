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

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server contains HTTP listener configuration.
type Server struct {
	Bind           string `toml:"bind"`
	RequestTimeout int    `toml:"request_timeout"`
	MaxUploadMB    int    `toml:"max_upload_mb"`
}

// Auth maps bearer tokens to "user_id:role" identities. Token issuance and
// verification beyond this static table belong to the external auth service.
type Auth struct {
	Tokens map[string]string `toml:"tokens"`
}

// Pipeline contains worker pool sizing and stage watchdog settings.
type Pipeline struct {
	Workers          int `toml:"workers"`
	QueueDepth       int `toml:"queue_depth"`
	StageWarnSeconds int `toml:"stage_warn_seconds"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Endmember is a low/high reference concentration pair for one tracer.
type Endmember struct {
	Low  float64 `toml:"low"`
	High float64 `toml:"high"`
}

// Model carries the external numeric configuration for the mixing models.
// Keys are normalized tracer names (lowercase, non-alphanumerics collapsed).
type Model struct {
	Endmembers map[string]Endmember `toml:"endmembers"`
}

// Config encapsulates all configuration values for the oasis backend.
type Config struct {
	Paths    Paths    `toml:"paths"`
	Server   Server   `toml:"server"`
	Auth     Auth     `toml:"auth"`
	Pipeline Pipeline `toml:"pipeline"`
	Logging  Logging  `toml:"logging"`
	Model    Model    `toml:"model"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/oasis/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config
// has all path fields expanded and normalized. The second return value is the
// resolved path, the third reports whether a file existed there.
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
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
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
	projectPath, err := filepath.Abs("oasis.toml")
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

// EnsureDirectories creates the directories the backend writes to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.UploadsDir(), c.ResultsDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// UploadsDir returns the directory holding raw uploaded files.
func (c *Config) UploadsDir() string {
	return filepath.Join(c.Paths.DataDir, "uploads")
}

// ResultsDir returns the directory holding generated result artifacts.
func (c *Config) ResultsDir() string {
	return filepath.Join(c.Paths.DataDir, "results")
}

// Identities parses the auth token table into token -> (user_id, role) pairs.
func (c *Config) Identities() (map[string]TokenIdentity, error) {
	out := make(map[string]TokenIdentity, len(c.Auth.Tokens))
	for token, spec := range c.Auth.Tokens {
		userID, role, ok := strings.Cut(spec, ":")
		if !ok || strings.TrimSpace(userID) == "" {
			return nil, fmt.Errorf("auth token %q: identity must be \"user_id:role\"", token)
		}
		if strings.TrimSpace(role) == "" {
			role = "user"
		}
		out[token] = TokenIdentity{UserID: strings.TrimSpace(userID), Role: strings.TrimSpace(role)}
	}
	return out, nil
}

// TokenIdentity is the parsed form of one auth token table entry.
type TokenIdentity struct {
	UserID string
	Role   string
}

// ExpandPath resolves a leading ~ against the current user's home directory.
func ExpandPath(pathValue string) (string, error) {
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

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
