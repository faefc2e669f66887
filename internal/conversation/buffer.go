// Package conversation holds the ordered message log for the store a
// session is currently bound to.
package conversation

import "sync"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "model"
)

// Message is one turn of a conversation. Messages are never edited once
// appended; their position in the buffer is their timestamp.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Buffer is an append-only log of messages bound to a single store.
// Storage is unbounded; Recent bounds what gets sent upstream.
type Buffer struct {
	mu       sync.RWMutex
	storeID  string
	messages []Message
}

// New returns an empty buffer bound to storeID.
func New(storeID string) *Buffer {
	return &Buffer{storeID: storeID}
}

// Reset drops every message and rebinds the buffer to storeID.
func (b *Buffer) Reset(storeID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storeID = storeID
	b.messages = nil
}

// Clear drops every message but keeps the current store binding.
func (b *Buffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = nil
}

// Append adds msgs to the end of the log as a single step, so a reader
// never observes half of a user/assistant pair.
func (b *Buffer) Append(msgs ...Message) {
	if len(msgs) == 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, msgs...)
}

// StoreID returns the store the buffer is bound to ("" when none).
func (b *Buffer) StoreID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.storeID
}

// Len returns the number of stored messages.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.messages)
}

// Messages returns a copy of the log in insertion order.
func (b *Buffer) Messages() []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Recent returns a copy of the last n messages. n <= 0 yields nil.
func (b *Buffer) Recent(n int) []Message {
	if n <= 0 {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	start := len(b.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(b.messages)-start)
	copy(out, b.messages[start:])
	return out
}
