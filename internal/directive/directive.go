// Package directive holds the optional system directive sent with every
// query. The value lives in the local settings database so it survives
// restarts; it is read at query time and otherwise opaque.
package directive

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/kalambet/filesearch/internal/storage"
)

// Key is the settings key the directive is stored under.
const Key = "fileSearch_systemPrompt"

// Settings is the subset of storage.Store the cell needs.
type Settings interface {
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Cell is a read/write/clear handle on the persisted directive.
type Cell struct {
	mu       sync.Mutex
	settings Settings
}

// New returns a Cell backed by settings.
func New(settings Settings) *Cell {
	return &Cell{settings: settings}
}

// Read returns the current directive, or "" when none is set.
func (c *Cell) Read() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, err := c.settings.GetSetting(Key)
	if errors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading directive: %w", err)
	}
	return v, nil
}

// Write replaces the directive. A blank value clears it.
func (c *Cell) Write(v string) error {
	if strings.TrimSpace(v) == "" {
		return c.Clear()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settings.SetSetting(Key, v); err != nil {
		return fmt.Errorf("writing directive: %w", err)
	}
	return nil
}

// Clear removes the directive.
func (c *Cell) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.settings.DeleteSetting(Key); err != nil {
		return fmt.Errorf("clearing directive: %w", err)
	}
	return nil
}

// Static is a fixed directive, for callers that pass it per invocation.
type Static string

// Read returns the fixed value.
func (s Static) Read() (string, error) { return string(s), nil }
