//go:build !darwin

package config

import "path/filepath"

func defaultDataDir() string {
	return filepath.Join(xdgDir("XDG_DATA_HOME", ".local", "share"), appName)
}

func tokenHint() string {
	return " or the secrets file " + secretsFilePath()
}

func newPlatformBackend() ConfigBackend {
	return newFileBackend(filepath.Join(xdgDir("XDG_CONFIG_HOME", ".config"), appName, "config.toml"))
}

func keychainGet(service, account string) ([]byte, error) {
	return readSecretsFile(secretsFilePath(), service, account)
}
