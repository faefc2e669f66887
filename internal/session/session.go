// Package session composes the conversation buffer, sync registries, store
// selection and query pipeline behind one façade for display layers.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/conversation"
	"github.com/kalambet/filesearch/internal/syncreg"
	"github.com/kalambet/filesearch/internal/upload"
)

// DefaultStoresTTL is how long a store listing is reused before refetching.
const DefaultStoresTTL = 30 * time.Second

// Backend is the service the session talks to. *backend.Client implements it.
type Backend interface {
	Querier
	ListStores(ctx context.Context) ([]backend.Store, error)
	CreateStore(ctx context.Context, displayName string) (backend.Store, error)
	DeleteStore(ctx context.Context, name string) (backend.Result, error)
	DeleteAllStores(ctx context.Context) (backend.Result, error)
	SyncStore(ctx context.Context, name string, req backend.SyncRequest) (backend.Result, error)
	UploadFile(ctx context.Context, name, filename string, r io.Reader, size int64, onProgress backend.ProgressFunc) (backend.Result, error)
	Health(ctx context.Context) (backend.Health, error)
}

// Deps configures a Session.
type Deps struct {
	Backend   Backend
	Directive DirectiveReader
	Logger    *slog.Logger

	HistoryLimit int
	Model        string
	StoresTTL    time.Duration

	// PreferredStore is selected once it appears in a listing and nothing
	// else is selected.
	PreferredStore string

	// OnEvent observes state changes. It is never called with session
	// locks held and may call back into the Session.
	OnEvent func(Event)

	Now func() time.Time
}

// Session is the public surface for one user conversation.
type Session struct {
	backend   Backend
	pipeline  *Pipeline
	selection *Selection
	syncs     *syncreg.Registry
	uploads   *syncreg.Registry
	logger    *slog.Logger
	onEvent   func(Event)
	now       func() time.Time
	preferred string
	ttl       time.Duration

	mu        sync.Mutex
	stores    []backend.Store
	fetchedAt time.Time
}

// New creates a Session with no store selected.
func New(d Deps) *Session {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.StoresTTL <= 0 {
		d.StoresTTL = DefaultStoresTTL
	}
	if d.Now == nil {
		d.Now = time.Now
	}

	sel := NewSelection()
	s := &Session{
		backend:   d.Backend,
		selection: sel,
		syncs:     syncreg.New(),
		uploads:   syncreg.New(),
		logger:    d.Logger,
		onEvent:   d.OnEvent,
		now:       d.Now,
		preferred: d.PreferredStore,
		ttl:       d.StoresTTL,
	}
	s.pipeline = NewPipeline(d.Backend, d.Directive, sel, d.HistoryLimit, d.Model, d.Logger)
	s.pipeline.onDispatch = func(storeID string) {
		s.emit(Event{Type: EventQueryStarted, StoreID: storeID})
	}
	return s
}

func (s *Session) emit(ev Event) {
	if s.onEvent != nil {
		s.onEvent(ev)
	}
}

// --- Stores ---

// RefreshStores returns the store listing, fetching it when the cached copy
// is older than the TTL, and reconciles the selection against it. When the
// selected store has disappeared the listing is still returned together
// with ErrStoreNotFound.
func (s *Session) RefreshStores(ctx context.Context) ([]backend.Store, error) {
	s.mu.Lock()
	if !s.fetchedAt.IsZero() && s.now().Sub(s.fetchedAt) < s.ttl {
		stores := slices.Clone(s.stores)
		s.mu.Unlock()
		return stores, nil
	}
	s.mu.Unlock()

	stores, err := s.backend.ListStores(ctx)
	if err != nil {
		return nil, backendError(err, "Failed to load stores")
	}

	s.mu.Lock()
	s.stores = stores
	s.fetchedAt = s.now()
	s.mu.Unlock()
	s.emit(Event{Type: EventStoresChanged})

	changed, rerr := s.selection.Reconcile(stores, s.preferred)
	if changed {
		id, _ := s.selection.Current()
		s.emit(Event{Type: EventSelectionChanged, StoreID: id, Err: rerr})
	}
	if rerr != nil {
		s.logger.Warn("selected store no longer exists; selection cleared")
	}
	return slices.Clone(stores), rerr
}

// InvalidateStores forces the next RefreshStores to fetch.
func (s *Session) InvalidateStores() {
	s.mu.Lock()
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
}

// Stores returns the last fetched listing without a network call.
func (s *Session) Stores() []backend.Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.stores)
}

// Stats summarizes the last fetched listing.
func (s *Session) Stats() backend.Stats {
	return backend.ComputeStats(s.Stores(), s.now())
}

// CreateStore creates a store and invalidates the listing.
func (s *Session) CreateStore(ctx context.Context, displayName string) (backend.Store, error) {
	st, err := s.backend.CreateStore(ctx, displayName)
	if err != nil {
		return backend.Store{}, backendError(err, "Failed to create store")
	}
	s.InvalidateStores()
	s.logger.Info("store created", "store", st.Name, "display_name", displayName)
	return st, nil
}

// DeleteStore deletes one store. It is refused with ErrStoreBusy while the
// store is syncing or uploading. Deleting the selected store clears the
// selection.
func (s *Session) DeleteStore(ctx context.Context, id string) error {
	if s.busy(id) {
		return ErrStoreBusy
	}
	if _, err := s.backend.DeleteStore(ctx, id); err != nil {
		return backendError(err, "Failed to delete store")
	}

	s.mu.Lock()
	s.stores = slices.DeleteFunc(s.stores, func(st backend.Store) bool { return st.Name == id })
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
	s.emit(Event{Type: EventStoresChanged})

	if cur, _ := s.selection.Current(); cur == id && s.selection.Deselect() {
		s.emit(Event{Type: EventSelectionChanged})
	}
	s.logger.Info("store deleted", "store", id)
	return nil
}

// DeleteAllStores deletes every store. It is refused while any store is
// syncing or uploading.
func (s *Session) DeleteAllStores(ctx context.Context) error {
	if len(s.syncs.Active()) > 0 || len(s.uploads.Active()) > 0 {
		return ErrStoreBusy
	}
	if _, err := s.backend.DeleteAllStores(ctx); err != nil {
		return backendError(err, "Failed to delete stores")
	}

	s.mu.Lock()
	s.stores = nil
	s.fetchedAt = time.Time{}
	s.mu.Unlock()
	s.emit(Event{Type: EventStoresChanged})

	if s.selection.Deselect() {
		s.emit(Event{Type: EventSelectionChanged})
	}
	s.logger.Info("all stores deleted")
	return nil
}

func (s *Session) busy(id string) bool {
	return s.syncs.IsSyncing(id) || s.uploads.IsSyncing(id)
}

// --- Selection ---

// Select makes id the active store, clearing the conversation if the store
// changed. id must be in the last fetched listing.
func (s *Session) Select(id string) error {
	s.mu.Lock()
	known := containsStore(s.stores, id)
	s.mu.Unlock()
	if !known {
		return fmt.Errorf("selecting %s: %w", id, ErrStoreNotFound)
	}
	if s.selection.Select(id) {
		s.emit(Event{Type: EventSelectionChanged, StoreID: id})
		s.emit(Event{Type: EventConversationChanged, StoreID: id})
	}
	return nil
}

// Selected returns the active store, if any.
func (s *Session) Selected() (string, bool) {
	return s.selection.Current()
}

// Messages returns the conversation of the active store.
func (s *Session) Messages() []conversation.Message {
	return s.selection.Messages()
}

// ClearConversation empties the conversation and keeps the store selected.
func (s *Session) ClearConversation() {
	s.selection.Clear()
	id, _ := s.selection.Current()
	s.emit(Event{Type: EventConversationChanged, StoreID: id})
}

// --- Query ---

// Submit runs prompt through the query pipeline. See Pipeline.Submit.
func (s *Session) Submit(ctx context.Context, prompt string) (Outcome, error) {
	out, err := s.pipeline.Submit(ctx, prompt)
	if KindOf(err) == KindValidation {
		return out, err
	}
	s.emit(Event{Type: EventQueryFinished, StoreID: out.StoreID, Err: err})
	if err == nil && !out.Discarded {
		s.emit(Event{Type: EventConversationChanged, StoreID: out.StoreID})
	}
	return out, err
}

// Querying reports whether a query is in flight.
func (s *Session) Querying() bool {
	return s.pipeline.InFlight()
}

// --- Sync ---

// Sync refreshes a store's indexed content. The store is reported as
// syncing until this call returns, whatever the outcome; concurrent syncs
// of one store keep it busy until the last finishes.
func (s *Session) Sync(ctx context.Context, id, displayName, documentName string) (backend.Result, error) {
	done := s.syncs.Begin(id)
	s.emit(Event{Type: EventSyncChanged, StoreID: id})

	res, err := s.backend.SyncStore(ctx, id, backend.SyncRequest{
		DocumentName: documentName,
		DisplayName:  displayName,
	})

	done()
	if err != nil {
		qe := backendError(err, "Failed to sync store")
		s.logger.Warn("sync failed", "store", id, "error", err)
		s.emit(Event{Type: EventSyncChanged, StoreID: id, Err: qe})
		return nil, qe
	}
	s.InvalidateStores()
	s.emit(Event{Type: EventSyncChanged, StoreID: id})
	s.logger.Info("store synced", "store", id)
	return res, nil
}

// IsSyncing reports whether id has a sync in flight.
func (s *Session) IsSyncing(id string) bool {
	return s.syncs.IsSyncing(id)
}

// Syncing lists stores with a sync in flight.
func (s *Session) Syncing() []string {
	return s.syncs.Active()
}

// --- Upload ---

// Upload sends the file at path to store id. progress, if non-nil, receives
// increasing percentages; observers see EventUploadProgress and a final
// reset to 0 once the upload ends, successfully or not.
func (s *Session) Upload(ctx context.Context, id, path string, progress func(percent int)) (backend.Result, error) {
	file, err := upload.Inspect(path)
	if err != nil {
		return nil, err
	}

	done := s.uploads.Begin(id)
	defer func() {
		done()
		s.emit(Event{Type: EventUploadProgress, StoreID: id, Percent: 0})
	}()

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	s.logger.Info("uploading file", "store", id, "file", file.Name, "size", file.Size, "type", file.ContentType)
	res, err := s.backend.UploadFile(ctx, id, file.Name, f, file.Size, func(pct int) {
		if progress != nil {
			progress(pct)
		}
		s.emit(Event{Type: EventUploadProgress, StoreID: id, Percent: pct})
	})
	if err != nil {
		s.logger.Warn("upload failed", "store", id, "file", file.Name, "error", err)
		return nil, backendError(err, "Failed to upload file")
	}
	return res, nil
}

// IsUploading reports whether id has an upload in flight.
func (s *Session) IsUploading(id string) bool {
	return s.uploads.IsSyncing(id)
}

// --- Health ---

// Health checks the backend.
func (s *Session) Health(ctx context.Context) (backend.Health, error) {
	h, err := s.backend.Health(ctx)
	if err != nil {
		return backend.Health{}, backendError(err, "Backend is not healthy")
	}
	return h, nil
}
