// Package config handles loading and managing foldercache configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/wesm/foldercache/internal/fileutil"
)

// Supported cache backends.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the foldercache configuration.
type Config struct {
	Data    DataConfig    `toml:"data"`
	Folders FoldersConfig `toml:"folders"`
	Server  ServerConfig  `toml:"server"`
	Ingest  IngestConfig  `toml:"ingest"`
	Remote  RemoteConfig  `toml:"remote"`

	// Computed paths (not from config file)
	HomeDir    string `toml:"-"`
	configPath string
}

// DataConfig holds data storage configuration.
type DataConfig struct {
	DataDir string `toml:"data_dir"`
	Backend string `toml:"backend"` // "sqlite" (default) or "memory"
}

// FoldersConfig controls which chats are tracked as folders.
type FoldersConfig struct {
	Marker string `toml:"marker"` // Title suffix that marks a chat as a folder
}

// ServerConfig holds HTTP API server configuration.
type ServerConfig struct {
	APIPort        int      `toml:"api_port"`         // HTTP server port (default: 8080)
	BindAddr       string   `toml:"bind_addr"`        // Listen address (default: 127.0.0.1)
	APIKey         string   `toml:"api_key"`          // API authentication key
	AllowInsecure  bool     `toml:"allow_insecure"`   // Permit a non-loopback bind without api_key
	CORSOrigins    []string `toml:"cors_origins"`     // Allowed origins; empty disables CORS
	RateLimitRPS   float64  `toml:"rate_limit_rps"`   // Per-IP requests per second
	RateLimitBurst int      `toml:"rate_limit_burst"` // Per-IP burst size
}

// IngestConfig holds spool ingestion configuration.
type IngestConfig struct {
	Schedule string `toml:"schedule"`  // Cron expression; empty disables scheduled ingestion
	InboxDir string `toml:"inbox_dir"` // Directory scanned for payload files
}

// RemoteConfig points the CLI at a running foldercache server instead of
// the local cache.
type RemoteConfig struct {
	URL           string `toml:"url"`            // Server base URL, e.g. https://nas:8080
	APIKey        string `toml:"api_key"`        // Key sent as X-API-Key
	AllowInsecure bool   `toml:"allow_insecure"` // Permit plain http
}

// DefaultHome returns the default foldercache home directory.
// Respects FOLDERCACHE_HOME environment variable.
func DefaultHome() string {
	if h := os.Getenv("FOLDERCACHE_HOME"); h != "" {
		return expandPath(h)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".foldercache"
	}
	return filepath.Join(home, ".foldercache")
}

// NewDefaultConfig returns a configuration with default values rooted at
// DefaultHome.
func NewDefaultConfig() *Config {
	return newConfig(DefaultHome())
}

func newConfig(homeDir string) *Config {
	return &Config{
		HomeDir: homeDir,
		Data: DataConfig{
			DataDir: homeDir,
			Backend: BackendSQLite,
		},
		Server: ServerConfig{
			APIPort:        8080,
			BindAddr:       "127.0.0.1",
			RateLimitRPS:   10,
			RateLimitBurst: 20,
		},
		configPath: filepath.Join(homeDir, "config.toml"),
	}
}

// Load reads the configuration.
//
// With an explicit path the file must exist, and the home directory becomes
// the file's parent so relative paths resolve next to it. Otherwise homeDir
// (or DefaultHome when empty) is used and a missing config.toml yields the
// defaults.
func Load(path, homeDir string) (*Config, error) {
	explicit := path != ""
	if explicit {
		path = expandPath(path)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return nil, fmt.Errorf("stat config: %w", err)
		}
		homeDir = filepath.Dir(path)
	} else {
		if homeDir == "" {
			homeDir = DefaultHome()
		}
		homeDir = expandPath(homeDir)
		path = filepath.Join(homeDir, "config.toml")
	}

	cfg := newConfig(homeDir)
	cfg.configPath = path

	// Config file is optional when not given explicitly
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, decodeError(err)
	}

	cfg.Data.DataDir = cfg.resolvePath(cfg.Data.DataDir)
	cfg.Ingest.InboxDir = cfg.resolvePath(cfg.Ingest.InboxDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeError adds a hint for the most common TOML mistake: Windows paths
// written with backslashes inside double quotes.
func decodeError(err error) error {
	msg := err.Error()
	if strings.Contains(msg, "invalid escape") || strings.Contains(msg, "hexadecimal digits") {
		return fmt.Errorf("decode config: %w\n"+
			"hint: backslashes in double-quoted strings are escapes; "+
			"use forward slashes (C:/path) or single quotes ('C:\\path')", err)
	}
	return fmt.Errorf("decode config: %w", err)
}

// resolvePath expands ~ and makes relative paths absolute against HomeDir.
func (c *Config) resolvePath(p string) string {
	p = expandPath(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.HomeDir, p)
}

// Validate checks values that cannot be expressed in the TOML schema.
func (c *Config) Validate() error {
	switch c.Data.Backend {
	case BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("invalid [data] backend %q: want %q or %q", c.Data.Backend, BackendSQLite, BackendMemory)
	}
	if c.Server.RateLimitRPS < 0 || c.Server.RateLimitBurst < 0 {
		return errors.New("invalid [server] rate limit: values must not be negative")
	}
	return nil
}

// ConfigFilePath returns the path of the config file that was loaded, or
// the default location when none was.
func (c *Config) ConfigFilePath() string {
	if c.configPath != "" {
		return c.configPath
	}
	return filepath.Join(c.HomeDir, "config.toml")
}

// DatabasePath returns the path to the SQLite database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Data.DataDir, "foldercache.db")
}

// InboxDir returns the spool directory scanned by ingestion.
func (c *Config) InboxDir() string {
	if c.Ingest.InboxDir != "" {
		return c.Ingest.InboxDir
	}
	return filepath.Join(c.Data.DataDir, "inbox")
}

// EnsureHomeDir creates the home and data directories if they don't exist.
func (c *Config) EnsureHomeDir() error {
	for _, dir := range []string{c.HomeDir, c.Data.DataDir} {
		if dir == "" {
			continue
		}
		if err := fileutil.PrivateMkdirAll(dir); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// IsLoopback reports whether BindAddr only accepts local connections.
// An empty address means the default loopback bind.
func (s ServerConfig) IsLoopback() bool {
	addr := s.BindAddr
	if addr == "" || strings.EqualFold(addr, "localhost") {
		return true
	}
	ip := net.ParseIP(addr)
	return ip != nil && ip.IsLoopback()
}

// ValidateSecure refuses to expose the API beyond loopback without an API
// key, unless allow_insecure is set.
func (s ServerConfig) ValidateSecure() error {
	if s.IsLoopback() || s.APIKey != "" || s.AllowInsecure {
		return nil
	}
	return fmt.Errorf("refusing to bind %s without [server] api_key (set allow_insecure = true to override)", s.BindAddr)
}

// expandPath expands a leading ~ to the user's home directory. On Windows it
// also strips one layer of matching quotes left by CMD.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if runtime.GOOS == "windows" && len(path) >= 2 {
		first, last := path[0], path[len(path)-1]
		if (first == '\'' || first == '"') && first == last {
			path = path[1 : len(path)-1]
		}
	}
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimLeft(path[1:], `/\`))
	}
	return path
}
