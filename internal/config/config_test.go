package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockKeychain is a test double for the keychain interface.
type mockKeychain struct {
	value string
	err   error
}

func (m mockKeychain) Get(service, account string) (string, error) {
	return m.value, m.err
}

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// TestDefaults verifies all default values are applied when loading an empty config file.
func TestDefaults(t *testing.T) {
	path := writeTempConfig(t, `# empty`)
	t.Setenv("FILESEARCH_API_TOKEN", "")

	cfg, err := loadFromPath(path, mockKeychain{err: errors.New("none")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "http://127.0.0.1:8000" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 30*time.Second {
		t.Errorf("API.Timeout = %v, want 30s", cfg.API.Timeout)
	}
	if cfg.API.Model != "" {
		t.Errorf("API.Model = %q, want empty", cfg.API.Model)
	}
	if cfg.API.Token != "" {
		t.Errorf("API.Token = %q, want empty", cfg.API.Token)
	}
	if cfg.Session.HistoryLimit != 10 {
		t.Errorf("Session.HistoryLimit = %d, want 10", cfg.Session.HistoryLimit)
	}
	if cfg.Session.StoresTTL != 30*time.Second {
		t.Errorf("Session.StoresTTL = %v, want 30s", cfg.Session.StoresTTL)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.UI.WordWrap != 100 {
		t.Errorf("UI.WordWrap = %d, want 100", cfg.UI.WordWrap)
	}
	if cfg.Storage.DataDir == "" {
		t.Error("Storage.DataDir is empty")
	}
}

// TestTOMLParsing verifies that all fields are correctly read from a TOML file.
func TestTOMLParsing(t *testing.T) {
	content := `
[api]
base_url = "http://search.internal:9000"
timeout = "45s"
model = "gemini-2.5-pro"

[session]
history_limit = 6
stores_ttl = "1m"

[storage]
data_dir = "/tmp/filesearch-test"

[log]
level = "debug"

[ui]
word_wrap = 72
`
	path := writeTempConfig(t, content)

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.API.BaseURL != "http://search.internal:9000" {
		t.Errorf("API.BaseURL = %q", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 45*time.Second {
		t.Errorf("API.Timeout = %v", cfg.API.Timeout)
	}
	if cfg.API.Model != "gemini-2.5-pro" {
		t.Errorf("API.Model = %q", cfg.API.Model)
	}
	if cfg.Session.HistoryLimit != 6 {
		t.Errorf("Session.HistoryLimit = %d", cfg.Session.HistoryLimit)
	}
	if cfg.Session.StoresTTL != time.Minute {
		t.Errorf("Session.StoresTTL = %v", cfg.Session.StoresTTL)
	}
	if cfg.Storage.DataDir != "/tmp/filesearch-test" {
		t.Errorf("Storage.DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q", cfg.Log.Level)
	}
	if cfg.UI.WordWrap != 72 {
		t.Errorf("UI.WordWrap = %d", cfg.UI.WordWrap)
	}
}

// TestEnvOverride verifies that environment variables override config file values.
func TestEnvOverride(t *testing.T) {
	path := writeTempConfig(t, `[api]
base_url = "http://file:8000"
`)
	t.Setenv("FILESEARCH_API_BASE_URL", "http://env:8000")
	t.Setenv("FILESEARCH_SESSION_HISTORY_LIMIT", "4")
	t.Setenv("FILESEARCH_API_TIMEOUT", "2s")

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.API.BaseURL != "http://env:8000" {
		t.Errorf("API.BaseURL = %q, want env value", cfg.API.BaseURL)
	}
	if cfg.Session.HistoryLimit != 4 {
		t.Errorf("Session.HistoryLimit = %d, want 4", cfg.Session.HistoryLimit)
	}
	if cfg.API.Timeout != 2*time.Second {
		t.Errorf("API.Timeout = %v, want 2s", cfg.API.Timeout)
	}
}

func TestBadEnvValueKeepsDefault(t *testing.T) {
	path := writeTempConfig(t, ``)
	t.Setenv("FILESEARCH_SESSION_HISTORY_LIMIT", "ten")
	t.Setenv("FILESEARCH_SESSION_STORES_TTL", "soon")

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Session.HistoryLimit != 10 {
		t.Errorf("Session.HistoryLimit = %d, want default 10", cfg.Session.HistoryLimit)
	}
	if cfg.Session.StoresTTL != 30*time.Second {
		t.Errorf("Session.StoresTTL = %v, want default", cfg.Session.StoresTTL)
	}
}

func TestTokenSources(t *testing.T) {
	path := writeTempConfig(t, ``)

	t.Run("keychain fallback", func(t *testing.T) {
		t.Setenv("FILESEARCH_API_TOKEN", "")
		cfg, err := loadFromPath(path, mockKeychain{value: "kc-token"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.API.Token != "kc-token" {
			t.Errorf("Token = %q, want kc-token", cfg.API.Token)
		}
	})

	t.Run("env wins", func(t *testing.T) {
		t.Setenv("FILESEARCH_API_TOKEN", "env-token")
		cfg, err := loadFromPath(path, mockKeychain{value: "kc-token"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.API.Token != "env-token" {
			t.Errorf("Token = %q, want env-token", cfg.API.Token)
		}
	})

	t.Run("file ignored", func(t *testing.T) {
		t.Setenv("FILESEARCH_API_TOKEN", "")
		p := writeTempConfig(t, "[api]\ntoken = \"from-file\"\n")
		cfg, err := loadFromPath(p, mockKeychain{err: errors.New("none")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.API.Token != "" {
			t.Errorf("Token = %q, secrets must not be read from the config file", cfg.API.Token)
		}
	})
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"history limit", "[session]\nhistory_limit = 0\n", "session.history_limit"},
		{"word wrap", "[ui]\nword_wrap = 5\n", "ui.word_wrap"},
		{"empty base url", "[api]\nbase_url = \"\"\n", "api.base_url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadFromPath(writeTempConfig(t, tt.content), mockKeychain{})
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	b := newFileBackend(path)

	if err := setKey(b, "api.base_url", "http://saved:1"); err != nil {
		t.Fatalf("setKey string: %v", err)
	}
	if err := setKey(b, "session.history_limit", "12"); err != nil {
		t.Fatalf("setKey int: %v", err)
	}
	if err := setKey(b, "api.timeout", "90s"); err != nil {
		t.Fatalf("setKey duration: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	if !strings.Contains(string(data), "[api]") || !strings.Contains(string(data), "[session]") {
		t.Errorf("saved file should use tables:\n%s", data)
	}

	cfg, err := loadFromPath(path, mockKeychain{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.API.BaseURL != "http://saved:1" || cfg.Session.HistoryLimit != 12 || cfg.API.Timeout != 90*time.Second {
		t.Errorf("reloaded cfg = %+v", cfg)
	}

	if err := b.Delete("api.base_url"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := newFileBackend(path).GetString("api.base_url"); ok {
		t.Error("deleted key still present after reload")
	}
}

func TestSetKeyRejects(t *testing.T) {
	b := newFileBackend(filepath.Join(t.TempDir(), "config.toml"))

	if err := setKey(b, "api.token", "x"); err == nil || !strings.Contains(err.Error(), "FILESEARCH_API_TOKEN") {
		t.Errorf("secret key: err = %v", err)
	}
	if err := setKey(b, "session.history_limit", "many"); err == nil {
		t.Error("expected error for non-integer value")
	}
	if err := setKey(b, "api.timeout", "forever"); err == nil {
		t.Error("expected error for bad duration")
	}
	if err := setKey(b, "no.such.key", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowAllHidesSecrets(t *testing.T) {
	cfg := defaults()
	cfg.API.Token = "hidden"

	for _, ki := range ShowAll(cfg) {
		if ki.Key == "api.token" || ki.Value == "hidden" {
			t.Errorf("ShowAll leaked secret: %+v", ki)
		}
	}
	for _, k := range ValidKeys() {
		if k == "api.token" {
			t.Error("ValidKeys lists the secret key")
		}
	}
	if got := len(ValidKeys()); got != len(specs)-1 {
		t.Errorf("ValidKeys = %d keys, want %d", got, len(specs)-1)
	}
}

func TestReadSecretsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"filesearch": {"api_token": "s3cret"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := readSecretsFile(path, tokenService, tokenAccount)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "s3cret" {
		t.Errorf("got %q, want s3cret", got)
	}

	if _, err := readSecretsFile(path, tokenService, "other"); err == nil {
		t.Error("expected error for missing account")
	}
	if _, err := readSecretsFile(filepath.Join(t.TempDir(), "none.json"), tokenService, tokenAccount); err == nil {
		t.Error("expected error for missing file")
	}
}
