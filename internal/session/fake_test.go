package session

import (
	"context"
	"io"
	"sync"

	"github.com/kalambet/filesearch/internal/backend"
)

// fakeBackend records calls. A non-nil gate blocks the matching call until
// it is closed or receives a value; started is signalled on entry.
type fakeBackend struct {
	mu sync.Mutex

	stores    []backend.Store
	listCalls int
	listErr   error

	queries    []backend.QueryRequest
	queryStore []string
	answer     string
	queryErr   error
	queryGate  chan struct{}
	started    chan string

	syncGate  chan error
	syncCalls int

	uploaded   []byte
	uploadErr  error
	uploadGate chan struct{}

	deleted    []string
	deleteAll  int
	healthErr  error
	createdFor []string
}

func newFakeBackend(names ...string) *fakeBackend {
	f := &fakeBackend{answer: "answer"}
	for _, n := range names {
		f.stores = append(f.stores, backend.Store{Name: n, DisplayName: n, State: "ACTIVE"})
	}
	return f
}

func (f *fakeBackend) setStores(names ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stores = nil
	for _, n := range names {
		f.stores = append(f.stores, backend.Store{Name: n, DisplayName: n, State: "ACTIVE"})
	}
}

func (f *fakeBackend) ListStores(ctx context.Context) ([]backend.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]backend.Store(nil), f.stores...), nil
}

func (f *fakeBackend) CreateStore(ctx context.Context, displayName string) (backend.Store, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createdFor = append(f.createdFor, displayName)
	st := backend.Store{Name: "fileSearchStores/" + displayName, DisplayName: displayName, State: "ACTIVE"}
	f.stores = append(f.stores, st)
	return st, nil
}

func (f *fakeBackend) DeleteStore(ctx context.Context, name string) (backend.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, name)
	return backend.Result(`{}`), nil
}

func (f *fakeBackend) DeleteAllStores(ctx context.Context) (backend.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteAll++
	return backend.Result(`{}`), nil
}

func (f *fakeBackend) SyncStore(ctx context.Context, name string, req backend.SyncRequest) (backend.Result, error) {
	f.mu.Lock()
	f.syncCalls++
	gate := f.syncGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case err := <-gate:
			if err != nil {
				return nil, err
			}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return backend.Result(`{"status":"ok"}`), nil
}

func (f *fakeBackend) UploadFile(ctx context.Context, name, filename string, r io.Reader, size int64, onProgress backend.ProgressFunc) (backend.Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if onProgress != nil {
		onProgress(50)
	}
	if f.uploadGate != nil {
		<-f.uploadGate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded = data
	if onProgress != nil {
		onProgress(100)
	}
	return backend.Result(`{"status":"uploaded"}`), nil
}

func (f *fakeBackend) Query(ctx context.Context, name string, req backend.QueryRequest) (backend.QueryResponse, error) {
	f.mu.Lock()
	f.queries = append(f.queries, req)
	f.queryStore = append(f.queryStore, name)
	gate, started := f.queryGate, f.started
	answer, qerr := f.answer, f.queryErr
	f.mu.Unlock()

	if started != nil {
		started <- name
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return backend.QueryResponse{}, ctx.Err()
		}
	}
	if qerr != nil {
		return backend.QueryResponse{}, qerr
	}
	return backend.QueryResponse{Text: answer, Sources: []backend.Source{{Title: "doc.pdf"}}}, nil
}

func (f *fakeBackend) Health(ctx context.Context) (backend.Health, error) {
	if f.healthErr != nil {
		return backend.Health{}, f.healthErr
	}
	return backend.Health{Status: "healthy"}, nil
}

func (f *fakeBackend) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func (f *fakeBackend) lastQuery() backend.QueryRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}
