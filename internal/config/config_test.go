package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("FOLDERCACHE_HOME", tmpDir)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.Data.DataDir != tmpDir {
		t.Errorf("Data.DataDir = %q, want %q", cfg.Data.DataDir, tmpDir)
	}
	if cfg.Data.Backend != BackendSQLite {
		t.Errorf("Data.Backend = %q, want %q", cfg.Data.Backend, BackendSQLite)
	}
	if cfg.Server.APIPort != 8080 {
		t.Errorf("Server.APIPort = %d, want 8080", cfg.Server.APIPort)
	}
	if cfg.Server.APIKey != "" {
		t.Errorf("Server.APIKey = %q, want empty", cfg.Server.APIKey)
	}
	if cfg.Server.RateLimitRPS != 10 || cfg.Server.RateLimitBurst != 20 {
		t.Errorf("rate limit = %v/%d, want 10/20", cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	if cfg.Ingest.Schedule != "" {
		t.Errorf("Ingest.Schedule = %q, want empty", cfg.Ingest.Schedule)
	}

	if got, want := cfg.DatabasePath(), filepath.Join(tmpDir, "foldercache.db"); got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
	if got, want := cfg.InboxDir(), filepath.Join(tmpDir, "inbox"); got != want {
		t.Errorf("InboxDir() = %q, want %q", got, want)
	}
}

func TestLoadWithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("FOLDERCACHE_HOME", tmpDir)

	writeConfig(t, tmpDir, `
[data]
backend = "memory"

[folders]
marker = " #"

[server]
api_port = 9090
api_key = "test-secret-key"
cors_origins = ["http://localhost:3000"]
rate_limit_rps = 2.5
rate_limit_burst = 5

[ingest]
schedule = "*/5 * * * *"
inbox_dir = "spool"

[remote]
url = "https://nas:8080"
api_key = "remote-key"
allow_insecure = true
`)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Data.Backend != BackendMemory {
		t.Errorf("Data.Backend = %q, want memory", cfg.Data.Backend)
	}
	if cfg.Folders.Marker != " #" {
		t.Errorf("Folders.Marker = %q, want %q", cfg.Folders.Marker, " #")
	}
	if cfg.Server.APIPort != 9090 {
		t.Errorf("Server.APIPort = %d, want 9090", cfg.Server.APIPort)
	}
	if cfg.Server.APIKey != "test-secret-key" {
		t.Errorf("Server.APIKey = %q, want test-secret-key", cfg.Server.APIKey)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "http://localhost:3000" {
		t.Errorf("Server.CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.RateLimitRPS != 2.5 || cfg.Server.RateLimitBurst != 5 {
		t.Errorf("rate limit = %v/%d, want 2.5/5", cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst)
	}
	if cfg.Ingest.Schedule != "*/5 * * * *" {
		t.Errorf("Ingest.Schedule = %q", cfg.Ingest.Schedule)
	}
	if cfg.Remote.URL != "https://nas:8080" || cfg.Remote.APIKey != "remote-key" || !cfg.Remote.AllowInsecure {
		t.Errorf("Remote = %+v", cfg.Remote)
	}
	// Relative inbox resolves against the home directory.
	if got, want := cfg.InboxDir(), filepath.Join(tmpDir, "spool"); got != want {
		t.Errorf("InboxDir() = %q, want %q", got, want)
	}
}

func TestLoadExpandsTilde(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("FOLDERCACHE_HOME", tmpDir)
	writeConfig(t, tmpDir, "[data]\ndata_dir = \"~/custom/data\"\n")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}
	if want := filepath.Join(home, "custom/data"); cfg.Data.DataDir != want {
		t.Errorf("Data.DataDir = %q, want %q", cfg.Data.DataDir, want)
	}
}

func TestLoadInvalidBackend(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("FOLDERCACHE_HOME", tmpDir)
	writeConfig(t, tmpDir, "[data]\nbackend = \"redis\"\n")

	_, err := Load("", "")
	if err == nil {
		t.Fatal("Load() with unknown backend = nil, want error")
	}
	if !strings.Contains(err.Error(), "redis") {
		t.Errorf("error = %q, want it to name the backend", err)
	}
}

func TestLoadExplicitPathNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml", "")
	if err == nil {
		t.Fatal("Load with explicit nonexistent path should return error")
	}
	if got := err.Error(); !strings.Contains(got, "config file not found") {
		t.Errorf("error = %q, want it to contain %q", got, "config file not found")
	}
}

func TestLoadExplicitPathDerivedHomeDir(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, "[server]\napi_port = 7000\n")

	cfg, err := Load(configPath, "")
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", configPath, err)
	}

	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.Data.DataDir != tmpDir {
		t.Errorf("Data.DataDir = %q, want %q", cfg.Data.DataDir, tmpDir)
	}
	if cfg.Server.APIPort != 7000 {
		t.Errorf("Server.APIPort = %d, want 7000", cfg.Server.APIPort)
	}
	if cfg.ConfigFilePath() != configPath {
		t.Errorf("ConfigFilePath() = %q, want %q", cfg.ConfigFilePath(), configPath)
	}
}

func TestLoadExplicitPathRelativePaths(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := writeConfig(t, tmpDir, "[data]\ndata_dir = \"data\"\n")

	cfg, err := Load(configPath, "")
	if err != nil {
		t.Fatalf("Load(%q) failed: %v", configPath, err)
	}

	if want := filepath.Join(tmpDir, "data"); cfg.Data.DataDir != want {
		t.Errorf("Data.DataDir = %q, want %q", cfg.Data.DataDir, want)
	}
	if want := filepath.Join(tmpDir, "data", "foldercache.db"); cfg.DatabasePath() != want {
		t.Errorf("DatabasePath() = %q, want %q", cfg.DatabasePath(), want)
	}
}

func TestLoadWithHomeDir(t *testing.T) {
	homeDir := t.TempDir()
	writeConfig(t, homeDir, "[server]\napi_port = 4242\n")

	cfg, err := Load("", homeDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.HomeDir != homeDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, homeDir)
	}
	if cfg.Server.APIPort != 4242 {
		t.Errorf("Server.APIPort = %d, want 4242", cfg.Server.APIPort)
	}
}

func TestDefaultHomeExpandsTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	t.Setenv("FOLDERCACHE_HOME", "~/.foldercache")
	if got, want := DefaultHome(), filepath.Join(home, ".foldercache"); got != want {
		t.Errorf("DefaultHome() = %q, want %q", got, want)
	}
}

func TestNewDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("FOLDERCACHE_HOME", tmpDir)

	cfg := NewDefaultConfig()
	if cfg.HomeDir != tmpDir {
		t.Errorf("HomeDir = %q, want %q", cfg.HomeDir, tmpDir)
	}
	if cfg.ConfigFilePath() != filepath.Join(tmpDir, "config.toml") {
		t.Errorf("ConfigFilePath() = %q", cfg.ConfigFilePath())
	}
}

func TestEnsureHomeDir(t *testing.T) {
	base := t.TempDir()
	cfg := newConfig(filepath.Join(base, "home"))
	cfg.Data.DataDir = filepath.Join(base, "data", "nested")

	if err := cfg.EnsureHomeDir(); err != nil {
		t.Fatalf("EnsureHomeDir() error = %v", err)
	}
	for _, dir := range []string{cfg.HomeDir, cfg.Data.DataDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Errorf("%s not created: %v", dir, err)
		}
	}
}

func TestLoadBackslashErrorHint(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "invalid escape (backslash G)",
			content: "[data]\ndata_dir = \"C:\\Games\\foldercache\"\n",
		},
		{
			name:    "unicode escape (backslash U)",
			content: "[data]\ndata_dir = \"C:\\Users\\me\\foldercache\"\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv("FOLDERCACHE_HOME", tmpDir)
			writeConfig(t, tmpDir, tt.content)

			_, err := Load("", "")
			if err == nil {
				t.Fatal("Load should fail on TOML backslash error")
			}
			errMsg := err.Error()
			for _, want := range []string{"hint:", "forward slashes", "single quotes"} {
				if !strings.Contains(errMsg, want) {
					t.Errorf("error should contain %q, got: %s", want, errMsg)
				}
			}
		})
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Fatalf("failed to get user home dir: %v", err)
	}

	tests := []struct {
		name        string
		input       string
		expected    string
		unixOnly    bool
		windowsOnly bool
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "just tilde", input: "~", expected: home},
		{name: "tilde with slash and path", input: "~/foo", expected: filepath.Join(home, "foo")},
		{name: "tilde with trailing slash only", input: "~/", expected: home},
		{name: "tilde user notation not expanded", input: "~user", expected: "~user"},
		{name: "tilde with double slash", input: "~//foo", expected: filepath.Join(home, "foo")},
		{name: "double-quoted path (Windows CMD)", input: `"C:\cache"`, expected: `C:\cache`, windowsOnly: true},
		{name: "mismatched quotes not stripped", input: `'C:\cache"`, expected: `'C:\cache"`},
		{name: "single char not stripped", input: "'", expected: "'"},
		{name: "absolute path unchanged", input: "/var/lib/cache", expected: "/var/lib/cache", unixOnly: true},
		{name: "relative path unchanged", input: "relative/path", expected: "relative/path"},
		{name: "tilde in middle not expanded", input: "/home/~user/foo", expected: "/home/~user/foo", unixOnly: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.unixOnly && runtime.GOOS == "windows" {
				t.Skip("skipping Unix-specific path test on Windows")
			}
			if tt.windowsOnly && runtime.GOOS != "windows" {
				t.Skip("skipping Windows-specific path test on non-Windows")
			}
			if got := expandPath(tt.input); got != tt.expected {
				t.Errorf("expandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestValidateSecure(t *testing.T) {
	tests := []struct {
		name      string
		cfg       ServerConfig
		wantError bool
	}{
		{"loopback no key", ServerConfig{BindAddr: "127.0.0.1"}, false},
		{"loopback 127.0.0.2 no key", ServerConfig{BindAddr: "127.0.0.2"}, false},
		{"ipv6 loopback no key", ServerConfig{BindAddr: "::1"}, false},
		{"localhost no key", ServerConfig{BindAddr: "localhost"}, false},
		{"empty addr no key", ServerConfig{BindAddr: ""}, false},
		{"non-loopback with key", ServerConfig{BindAddr: "0.0.0.0", APIKey: "secret"}, false},
		{"non-loopback no key", ServerConfig{BindAddr: "0.0.0.0"}, true},
		{"non-loopback ipv6 no key", ServerConfig{BindAddr: "::"}, true},
		{"non-loopback insecure override", ServerConfig{BindAddr: "0.0.0.0", AllowInsecure: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.ValidateSecure()
			if (err != nil) != tt.wantError {
				t.Errorf("ValidateSecure() error = %v, wantError = %v", err, tt.wantError)
			}
		})
	}
}
