// Package devbackend is an in-memory implementation of the file search HTTP
// API. It backs end-to-end tests and `filesearch dev-backend` for working on
// the client without the real service.
package devbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/filesearch/internal/backend"
)

// DefaultMaxPromptLen is the prompt length above which /query answers 422.
const DefaultMaxPromptLen = 4000

const maxUploadSize = 32 << 20 // 32MB

// Options configures a Server.
type Options struct {
	Token        string // optional bearer token
	MaxPromptLen int
	Logger       *slog.Logger
	Now          func() time.Time
}

type fileRecord struct {
	ID   string
	Name string
	Size int64
}

type storeState struct {
	info  backend.Store
	files []fileRecord
	syncs int
}

// Server holds stores in memory.
type Server struct {
	opts Options

	mu     sync.Mutex
	stores map[string]*storeState
}

// New creates an empty Server.
func New(opts Options) *Server {
	if opts.MaxPromptLen <= 0 {
		opts.MaxPromptLen = DefaultMaxPromptLen
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{opts: opts, stores: make(map[string]*storeState)}
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(bearerAuth(s.opts.Token))
		r.Use(s.logRequests)

		r.Get("/api/stores", s.handleListStores)
		r.Post("/api/stores", s.handleCreateStore)
		r.Delete("/api/stores", s.handleDeleteAll)

		// Store names carry a collection prefix: fileSearchStores/<id>.
		r.Route("/api/stores/{collection}/{id}", func(r chi.Router) {
			r.Delete("/", s.handleDeleteStore)
			r.Post("/sync", s.handleSync)
			r.Post("/files", s.handleUpload)
			r.Post("/query", s.handleQuery)
		})
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.opts.Logger.Info("dev backend listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("dev backend: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.opts.Logger.Debug("dev backend request",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Header.Get("X-Request-ID"),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// lookup returns the store for the {collection}/{id} route params.
func (s *Server) lookup(r *http.Request) (string, *storeState, bool) {
	name := chi.URLParam(r, "collection") + "/" + chi.URLParam(r, "id")
	st, ok := s.stores[name]
	return name, st, ok
}

func (s *Server) newStore(displayName string) backend.Store {
	return backend.Store{
		Name:        "fileSearchStores/" + uuid.NewString(),
		DisplayName: displayName,
		CreateTime:  s.opts.Now().UTC().Format(time.RFC3339),
		State:       "ACTIVE",
	}
}

func (s *Server) sortedStores() []backend.Store {
	out := make([]backend.Store, 0, len(s.stores))
	for _, st := range s.stores {
		out = append(out, st.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreateTime != out[j].CreateTime {
			return out[i].CreateTime < out[j].CreateTime
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// detailError writes a {"detail": ...} payload. detail is a string or a
// list of field errors.
func detailError(w http.ResponseWriter, code int, detail any) {
	writeJSON(w, code, map[string]any{"detail": detail})
}

type fieldError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

func validationError(w http.ResponseWriter, field, msg string) {
	detailError(w, http.StatusUnprocessableEntity, []fieldError{{
		Loc:  []string{"body", field},
		Msg:  msg,
		Type: "value_error",
	}})
}
