package session

import (
	"sync"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/conversation"
)

// Selection binds the active store to its conversation. Every change of
// store resets the buffer and bumps the epoch under one lock, so a query
// dispatched under an older epoch can never append to the new buffer.
type Selection struct {
	mu      sync.Mutex
	storeID string // "" means no store selected
	epoch   uint64
	buffer  *conversation.Buffer
}

// NewSelection returns a Selection with no store selected.
func NewSelection() *Selection {
	return &Selection{buffer: conversation.New("")}
}

// Select makes id the active store. Re-selecting the active store is a
// no-op and keeps the conversation. It reports whether the selection changed.
func (s *Selection) Select(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == s.storeID {
		return false
	}
	s.bindLocked(id)
	return true
}

// Deselect returns to the no-store state and clears the conversation.
func (s *Selection) Deselect() bool {
	return s.Select("")
}

func (s *Selection) bindLocked(id string) {
	s.storeID = id
	s.epoch++
	s.buffer.Reset(id)
}

// Current returns the active store, if any.
func (s *Selection) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeID, s.storeID != ""
}

// Epoch returns the current session epoch.
func (s *Selection) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Snapshot captures the active store, the epoch and the last n messages in
// one consistent read.
func (s *Selection) Snapshot(n int) (storeID string, epoch uint64, history []conversation.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeID, s.epoch, s.buffer.Recent(n)
}

// CommitIfCurrent appends msgs if epoch is still current. It reports false
// when the store changed since the epoch was captured.
func (s *Selection) CommitIfCurrent(epoch uint64, msgs ...conversation.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch {
		return false
	}
	s.buffer.Append(msgs...)
	return true
}

// Clear empties the conversation but keeps the store.
func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffer.Clear()
}

// Messages returns the conversation in insertion order.
func (s *Selection) Messages() []conversation.Message {
	return s.buffer.Messages()
}

// Reconcile checks the selection against a fresh store listing. A selected
// store that vanished falls back to no store and yields ErrStoreNotFound.
// With nothing selected, preferred is selected if it is listed.
func (s *Selection) Reconcile(stores []backend.Store, preferred string) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.storeID != "" {
		if containsStore(stores, s.storeID) {
			return false, nil
		}
		s.bindLocked("")
		return true, ErrStoreNotFound
	}
	if preferred != "" && containsStore(stores, preferred) {
		s.bindLocked(preferred)
		return true, nil
	}
	return false, nil
}

func containsStore(stores []backend.Store, id string) bool {
	for _, st := range stores {
		if st.Name == id {
			return true
		}
	}
	return false
}
