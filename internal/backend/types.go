package backend

import (
	"encoding/json"
	"time"

	"github.com/kalambet/filesearch/internal/conversation"
)

// Store is a server-side document collection as returned by GET /api/stores.
type Store struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	CreateTime  string `json:"create_time"`
	State       string `json:"state"`
}

// Label returns the display name, falling back to the resource name.
func (s Store) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// Created parses CreateTime. The backend emits RFC3339 with optional
// fractional seconds.
func (s Store) Created() (time.Time, bool) {
	if s.CreateTime == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, s.CreateTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

type storeList struct {
	Stores []Store `json:"stores"`
}

// CreateStoreRequest is the body for POST /api/stores.
type CreateStoreRequest struct {
	DisplayName string `json:"display_name"`
}

// SyncRequest is the body for POST /api/stores/{name}/sync. Both fields are
// always sent, empty strings included.
type SyncRequest struct {
	DocumentName string `json:"document_name"`
	DisplayName  string `json:"display_name"`
}

// QueryRequest is the body for POST /api/stores/{name}/query. Optional
// fields are omitted from the wire when empty.
type QueryRequest struct {
	Prompt              string                 `json:"prompt"`
	SystemPrompt        string                 `json:"system_prompt,omitempty"`
	Model               string                 `json:"model,omitempty"`
	ConversationHistory []conversation.Message `json:"conversation_history,omitempty"`
}

// Source is one citation attached to an answer.
type Source struct {
	Title   string `json:"title,omitempty"`
	URI     string `json:"uri,omitempty"`
	ChunkID string `json:"chunk_id,omitempty"`
}

// QueryResponse is the answer to a query.
type QueryResponse struct {
	Text    string   `json:"text"`
	Sources []Source `json:"sources,omitempty"`
}

// Health is the response from GET /health.
type Health struct {
	Status string `json:"status"`
}

// Result is an opaque acknowledgement payload (delete, sync, upload).
type Result = json.RawMessage
