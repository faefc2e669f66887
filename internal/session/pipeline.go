package session

import (
	"context"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/conversation"
)

// DefaultHistoryLimit is how many recent messages accompany a query.
const DefaultHistoryLimit = 10

const queryFailed = "Query failed"

// Querier answers a prompt against one store.
type Querier interface {
	Query(ctx context.Context, name string, req backend.QueryRequest) (backend.QueryResponse, error)
}

// DirectiveReader supplies the optional system directive.
type DirectiveReader interface {
	Read() (string, error)
}

// Outcome is a successful query. Discarded is set when the answer arrived
// after the active store changed and was therefore not recorded.
type Outcome struct {
	StoreID   string
	Answer    string
	Sources   []backend.Source
	Discarded bool
}

// Pipeline turns one prompt into one backend call and one outcome.
type Pipeline struct {
	querier      Querier
	directive    DirectiveReader
	selection    *Selection
	historyLimit int
	model        string
	logger       *slog.Logger

	inFlight atomic.Bool

	// onDispatch runs after validation, just before the backend call.
	onDispatch func(storeID string)
}

// NewPipeline creates a Pipeline. directive may be nil; historyLimit <= 0
// selects DefaultHistoryLimit.
func NewPipeline(q Querier, directive DirectiveReader, sel *Selection, historyLimit int, model string, logger *slog.Logger) *Pipeline {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		querier:      q,
		directive:    directive,
		selection:    sel,
		historyLimit: historyLimit,
		model:        model,
		logger:       logger,
	}
}

// InFlight reports whether a query is pending.
func (p *Pipeline) InFlight() bool {
	return p.inFlight.Load()
}

// Submit validates prompt, queries the active store and, on success, appends
// the user and assistant messages to the conversation. Validation failures
// return ErrEmptyPrompt, ErrNoStore or ErrQueryInFlight without a backend
// call. Backend failures return *QueryError and leave the conversation as it
// was.
func (p *Pipeline) Submit(ctx context.Context, prompt string) (Outcome, error) {
	if strings.TrimSpace(prompt) == "" {
		return Outcome{}, ErrEmptyPrompt
	}
	if _, ok := p.selection.Current(); !ok {
		return Outcome{}, ErrNoStore
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		return Outcome{}, ErrQueryInFlight
	}
	defer p.inFlight.Store(false)

	storeID, epoch, history := p.selection.Snapshot(p.historyLimit)
	if storeID == "" {
		return Outcome{}, ErrNoStore
	}
	req := p.assemble(prompt, history)

	if p.onDispatch != nil {
		p.onDispatch(storeID)
	}
	p.logger.Debug("dispatching query",
		"store", storeID, "history", len(req.ConversationHistory), "directive", req.SystemPrompt != "")

	resp, err := p.querier.Query(ctx, storeID, req)
	if err != nil {
		qe := backendError(err, queryFailed)
		p.logger.Warn("query failed", "store", storeID, "kind", qe.Kind, "error", err)
		return Outcome{StoreID: storeID}, qe
	}

	out := Outcome{StoreID: storeID, Answer: resp.Text, Sources: resp.Sources}
	committed := p.selection.CommitIfCurrent(epoch,
		conversation.Message{Role: conversation.RoleUser, Content: prompt},
		conversation.Message{Role: conversation.RoleAssistant, Content: resp.Text},
	)
	if !committed {
		p.logger.Info("discarding answer for a store that is no longer active", "store", storeID)
		out.Discarded = true
	}
	return out, nil
}

func (p *Pipeline) assemble(prompt string, history []conversation.Message) backend.QueryRequest {
	req := backend.QueryRequest{Prompt: prompt, Model: p.model}
	if p.directive != nil {
		d, err := p.directive.Read()
		if err != nil {
			p.logger.Warn("reading system directive; sending query without it", "error", err)
		} else if strings.TrimSpace(d) != "" {
			req.SystemPrompt = d
		}
	}
	if len(history) > 0 {
		req.ConversationHistory = history
	}
	return req
}
