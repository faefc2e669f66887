//go:build darwin

package config

import (
	"fmt"
	"os/exec"
)

// keychainGet reads a generic password from the login keychain. A token in
// the secrets file is used when the keychain has none.
func keychainGet(service, account string) ([]byte, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	if err == nil {
		return out, nil
	}
	if data, ferr := readSecretsFile(secretsFilePath(), service, account); ferr == nil {
		return data, nil
	}
	return nil, fmt.Errorf("keychain lookup for %s/%s: %w", service, account, err)
}
