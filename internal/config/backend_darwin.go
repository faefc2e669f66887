//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return appName + "-data"
	}
	return filepath.Join(home, "Library", "Application Support", appName)
}

func tokenHint() string {
	return fmt.Sprintf(" or macOS Keychain (service: %s, account: %s) or the secrets file %s",
		tokenService, tokenAccount, secretsFilePath())
}

func newPlatformBackend() ConfigBackend {
	return defaultsBackend{domain: "com." + appName + ".app"}
}

// defaultsBackend keeps settings in a UserDefaults domain through defaults(1).
type defaultsBackend struct {
	domain string
}

func (b defaultsBackend) run(verb string, args ...string) (string, error) {
	out, err := exec.Command("defaults", append([]string{verb, b.domain}, args...)...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// missing reports the exit status defaults(1) uses for an absent key.
func missing(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr) && exitErr.ExitCode() == 1
}

func (b defaultsBackend) GetString(key string) (string, bool, error) {
	out, err := b.run("read", key)
	switch {
	case err == nil:
		return out, true, nil
	case missing(err):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("defaults read %s: %w (%s)", key, err, out)
	}
}

func (b defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.GetString(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return n, true, nil
}

func (b defaultsBackend) SetString(key, val string) error {
	return b.write(key, "-string", val)
}

func (b defaultsBackend) SetInt(key string, val int) error {
	return b.write(key, "-int", strconv.Itoa(val))
}

func (b defaultsBackend) write(key, kind, val string) error {
	if out, err := b.run("write", key, kind, val); err != nil {
		return fmt.Errorf("defaults write %s: %w (%s)", key, err, out)
	}
	return nil
}

func (b defaultsBackend) Delete(key string) error {
	if out, err := b.run("delete", key); err != nil && !missing(err) {
		return fmt.Errorf("defaults delete %s: %w (%s)", key, err, out)
	}
	return nil
}
