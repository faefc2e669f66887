// Package backend is the HTTP/JSON client for the file search service:
// store CRUD, file ingestion, sync, and AI query answering.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultBaseURL = "http://127.0.0.1:8000"
	DefaultTimeout = 30 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// ErrUnreachable wraps transport failures where no response was received.
var ErrUnreachable = errors.New("backend unreachable")

// Client talks to the file search backend. Calls that can run arbitrarily
// long on the server (create, sync, upload, query) are not bounded by the
// client timeout; everything else is.
type Client struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout sets the per-request timeout for bounded calls. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient replaces the underlying http.Client (used by tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client for baseURL. An empty baseURL selects DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		// No client-wide timeout: bounded calls use a per-request context.
		httpClient: &http.Client{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListStores returns every store. A missing "stores" key yields an empty slice.
func (c *Client) ListStores(ctx context.Context) ([]Store, error) {
	var list storeList
	if err := c.retryGET(ctx, "/api/stores", &list, isRateLimit); err != nil {
		return nil, fmt.Errorf("listing stores: %w", err)
	}
	if list.Stores == nil {
		return []Store{}, nil
	}
	return list.Stores, nil
}

// CreateStore creates a store with the given display name.
func (c *Client) CreateStore(ctx context.Context, displayName string) (Store, error) {
	var s Store
	err := c.call(ctx, http.MethodPost, "/api/stores", CreateStoreRequest{DisplayName: displayName}, &s, 0)
	if err != nil {
		return Store{}, fmt.Errorf("creating store: %w", err)
	}
	return s, nil
}

// DeleteStore deletes a single store.
func (c *Client) DeleteStore(ctx context.Context, name string) (Result, error) {
	var res Result
	if err := c.call(ctx, http.MethodDelete, storePath(name), nil, &res, c.timeout); err != nil {
		return nil, fmt.Errorf("deleting store %s: %w", name, err)
	}
	return res, nil
}

// DeleteAllStores deletes every store.
func (c *Client) DeleteAllStores(ctx context.Context) (Result, error) {
	var res Result
	if err := c.call(ctx, http.MethodDelete, "/api/stores", nil, &res, c.timeout); err != nil {
		return nil, fmt.Errorf("deleting all stores: %w", err)
	}
	return res, nil
}

// SyncStore asks the backend to refresh a store's indexed content.
func (c *Client) SyncStore(ctx context.Context, name string, req SyncRequest) (Result, error) {
	var res Result
	if err := c.call(ctx, http.MethodPost, storePath(name)+"/sync", req, &res, 0); err != nil {
		return nil, fmt.Errorf("syncing store %s: %w", name, err)
	}
	return res, nil
}

// Query asks the backend to answer req against a store.
func (c *Client) Query(ctx context.Context, name string, req QueryRequest) (QueryResponse, error) {
	var resp QueryResponse
	if err := c.call(ctx, http.MethodPost, storePath(name)+"/query", req, &resp, 0); err != nil {
		return QueryResponse{}, fmt.Errorf("querying store %s: %w", name, err)
	}
	return resp, nil
}

// Health checks the service, retrying failed probes up to three times.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.retryGET(ctx, "/health", &h, func(error) bool { return true }); err != nil {
		return Health{}, fmt.Errorf("checking health: %w", err)
	}
	return h, nil
}

// storePath builds /api/stores/{name}. Store names are resource paths such
// as "fileSearchStores/abc"; slashes are kept, other characters escaped.
func storePath(name string) string {
	segs := strings.Split(name, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return "/api/stores/" + strings.Join(segs, "/")
}

// rateLimitError is returned on HTTP 429. It wraps the APIError so a
// structured body still yields its message.
type rateLimitError struct {
	api *APIError
}

func (e *rateLimitError) Error() string {
	return "rate limited: " + e.api.Error()
}

func (e *rateLimitError) Unwrap() error {
	return e.api
}

func isRateLimit(err error) bool {
	var rl *rateLimitError
	return errors.As(err, &rl)
}

func (c *Client) retryGET(ctx context.Context, path string, out any, retryable func(error) bool) error {
	var lastErr error
	for attempt := range maxRetries {
		err := c.call(ctx, http.MethodGet, path, nil, out, c.timeout)
		if err == nil {
			return nil
		}
		if !retryable(err) || ctx.Err() != nil {
			return err
		}
		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxRetries, lastErr)
}

// call performs a JSON request. A timeout of zero leaves the call bounded
// only by ctx.
func (c *Client) call(ctx context.Context, method, path string, body, out any, timeout time.Duration) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) setHeaders(req *http.Request) string {
	id := uuid.New().String()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", id)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return id
}

func (c *Client) send(req *http.Request, out any) error {
	reqID := c.setHeaders(req)
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("backend request failed",
			"request_id", reqID, "method", req.Method, "path", req.URL.Path, "error", err)
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("backend request",
		"request_id", reqID,
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 400 {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: respBody}
		if resp.StatusCode == http.StatusTooManyRequests {
			return &rateLimitError{api: apiErr}
		}
		return apiErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if raw, ok := out.(*Result); ok {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		*raw = data
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
