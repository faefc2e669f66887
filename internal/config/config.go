package config

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	API     APIConfig
	Session SessionConfig
	Storage StorageConfig
	Log     LogConfig
	UI      UIConfig
}

type APIConfig struct {
	BaseURL string
	Timeout time.Duration
	Model   string
	Token   string
}

type SessionConfig struct {
	HistoryLimit int
	StoresTTL    time.Duration
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

type UIConfig struct {
	WordWrap int
}

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL: "http://127.0.0.1:8000",
			Timeout: 30 * time.Second,
		},
		Session: SessionConfig{
			HistoryLimit: 10,
			StoresTTL:    30 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		UI: UIConfig{
			WordWrap: 100,
		},
	}
}

// Load reads configuration from the platform-native backend, environment
// variables, and platform secret store.
//
// On macOS the backend is UserDefaults (domain: com.filesearch.app) and the
// API token falls back to macOS Keychain, then to secrets.json in the data
// directory.
// Elsewhere the backend is a TOML file at $XDG_CONFIG_HOME/filesearch/config.toml
// and the token falls back to $XDG_DATA_HOME/filesearch/secrets.json.
//
// Environment variables (FILESEARCH_*) override backend values on all platforms.
func Load() (Config, error) {
	return loadWith(newPlatformBackend(), keychainReader{})
}

// loadFromPath loads from an explicit TOML file regardless of platform.
func loadFromPath(path string, kc keychain) (Config, error) {
	return loadWith(newFileBackend(path), kc)
}

// keychain abstracts secret-store access for testing.
type keychain interface {
	Get(service, account string) (string, error)
}

func loadWith(b ConfigBackend, kc keychain) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.API.Token == "" {
		if tok, err := kc.Get(tokenService, tokenAccount); err == nil && tok != "" {
			cfg.API.Token = tok
		}
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("invalid config: api.base_url must not be empty")
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("invalid config: api.timeout must not be negative")
	}
	if cfg.Session.HistoryLimit < 1 {
		return fmt.Errorf("invalid config: session.history_limit must be at least 1, got %d", cfg.Session.HistoryLimit)
	}
	if cfg.UI.WordWrap < 20 {
		return fmt.Errorf("invalid config: ui.word_wrap must be at least 20, got %d", cfg.UI.WordWrap)
	}
	return nil
}

// keychainReader reads the token from the platform secret store.
type keychainReader struct{}

func (keychainReader) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}
