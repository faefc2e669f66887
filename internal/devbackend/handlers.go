package devbackend

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kalambet/filesearch/internal/backend"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, backend.Health{Status: "healthy"})
}

func (s *Server) handleListStores(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	stores := s.sortedStores()
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"stores": stores})
}

func (s *Server) handleCreateStore(w http.ResponseWriter, r *http.Request) {
	var req backend.CreateStoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		validationError(w, "display_name", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.DisplayName) == "" {
		validationError(w, "display_name", "Field required")
		return
	}

	s.mu.Lock()
	st := s.newStore(req.DisplayName)
	s.stores[st.Name] = &storeState{info: st}
	s.mu.Unlock()

	s.opts.Logger.Info("store created", "store", st.Name, "display_name", st.DisplayName)
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.stores)
	clear(s.stores)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"deleted_count": n})
}

func (s *Server) handleDeleteStore(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	name, _, ok := s.lookup(r)
	if ok {
		delete(s.stores, name)
	}
	s.mu.Unlock()

	if !ok {
		detailError(w, http.StatusNotFound, "Store not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": name})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var req backend.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		validationError(w, "document_name", fmt.Sprintf("invalid request body: %v", err))
		return
	}

	s.mu.Lock()
	name, st, ok := s.lookup(r)
	var docs int
	if ok {
		st.syncs++
		if req.DisplayName != "" {
			st.info.DisplayName = req.DisplayName
		}
		docs = len(st.files)
	}
	s.mu.Unlock()

	if !ok {
		detailError(w, http.StatusNotFound, "Store not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "synced",
		"store":         name,
		"document_name": req.DocumentName,
		"documents":     docs,
	})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		validationError(w, "file", "Field required")
		return
	}
	defer f.Close()

	size, err := io.Copy(io.Discard, f)
	if err != nil {
		detailError(w, http.StatusBadRequest, fmt.Sprintf("reading upload: %v", err))
		return
	}

	rec := fileRecord{ID: uuid.NewString(), Name: hdr.Filename, Size: size}
	s.mu.Lock()
	name, st, ok := s.lookup(r)
	if ok {
		st.files = append(st.files, rec)
	}
	s.mu.Unlock()

	if !ok {
		detailError(w, http.StatusNotFound, "Store not found")
		return
	}
	s.opts.Logger.Info("file uploaded", "store", name, "file", rec.Name, "size", rec.Size)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "uploaded",
		"store":      name,
		"file_name":  rec.Name,
		"size_bytes": rec.Size,
	})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req backend.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		validationError(w, "prompt", fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		validationError(w, "prompt", "Field required")
		return
	}
	if utf8.RuneCountInString(req.Prompt) > s.opts.MaxPromptLen {
		validationError(w, "prompt", "prompt too long")
		return
	}
	for _, m := range req.ConversationHistory {
		if m.Role != "user" && m.Role != "model" {
			validationError(w, "conversation_history", fmt.Sprintf("invalid role %q", m.Role))
			return
		}
	}

	s.mu.Lock()
	_, st, ok := s.lookup(r)
	var label string
	var files []fileRecord
	if ok {
		label = st.info.Label()
		files = append(files, st.files...)
	}
	s.mu.Unlock()

	if !ok {
		detailError(w, http.StatusNotFound, "Store not found")
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s** answered: %s\n\n", label, req.Prompt)
	fmt.Fprintf(&b, "_history: %d messages", len(req.ConversationHistory))
	if req.SystemPrompt != "" {
		b.WriteString(", system prompt set")
	}
	if req.Model != "" {
		fmt.Fprintf(&b, ", model %s", req.Model)
	}
	b.WriteString("_")

	sources := make([]backend.Source, 0, len(files))
	for i, f := range files {
		sources = append(sources, backend.Source{
			Title:   f.Name,
			URI:     "files/" + f.ID,
			ChunkID: fmt.Sprintf("chunk-%d", i),
		})
	}
	writeJSON(w, http.StatusOK, backend.QueryResponse{Text: b.String(), Sources: sources})
}
