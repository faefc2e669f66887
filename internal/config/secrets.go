package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appName      = "filesearch"
	tokenService = appName
	tokenAccount = "api_token"
)

// secretsFilePath holds {"<service>": {"<account>": "<value>"}}. It lives in
// the data directory on every platform.
func secretsFilePath() string {
	return filepath.Join(defaultDataDir(), "secrets.json")
}

func readSecretsFile(path, service, account string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("secrets file not available: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("no secret for %s/%s in %s", service, account, path)
	}
	return []byte(val), nil
}

// xdgDir resolves an XDG base directory, falling back to a path under $HOME.
func xdgDir(env string, fallback ...string) string {
	if dir := os.Getenv(env); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}
