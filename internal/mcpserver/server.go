// Package mcpserver exposes one conversation session as MCP tools so agents
// can list stores, pick one and ask questions against it.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/conversation"
	"github.com/kalambet/filesearch/internal/session"
)

// Session is the part of *session.Session the tools drive.
type Session interface {
	RefreshStores(ctx context.Context) ([]backend.Store, error)
	Select(id string) error
	Selected() (string, bool)
	Submit(ctx context.Context, prompt string) (session.Outcome, error)
	Sync(ctx context.Context, id, displayName, documentName string) (backend.Result, error)
	ClearConversation()
	Messages() []conversation.Message
}

// DirectiveCell reads and writes the persisted system directive.
type DirectiveCell interface {
	Read() (string, error)
	Write(v string) error
	Clear() error
}

// Deps holds dependencies for the MCP server.
type Deps struct {
	Session   Session
	Directive DirectiveCell // optional; if nil, set_system_prompt is not registered
	Version   string
}

// New creates an MCP server with the file search tools registered.
func New(deps Deps) *server.MCPServer {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	s := server.NewMCPServer(
		"filesearch",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("filesearch answers questions from document stores. Select a store, then query it; follow-up questions keep the conversation context."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("list_stores",
			mcp.WithDescription("List the available document stores and which one is selected."),
		),
		listStores(deps),
	)

	s.AddTool(
		mcp.NewTool("select_store",
			mcp.WithDescription("Select the store to query. Switching stores starts a new conversation."),
			mcp.WithString("store", mcp.Description("Store name, e.g. fileSearchStores/abc123"), mcp.Required()),
		),
		selectStore(deps),
	)

	s.AddTool(
		mcp.NewTool("query_store",
			mcp.WithDescription("Ask a question against the selected store. Recent conversation turns are sent as context."),
			mcp.WithString("prompt", mcp.Description("The question to ask"), mcp.Required()),
			mcp.WithString("store", mcp.Description("Optional store to select first")),
		),
		queryStore(deps),
	)

	s.AddTool(
		mcp.NewTool("sync_store",
			mcp.WithDescription("Refresh a store's indexed documents."),
			mcp.WithString("store", mcp.Description("Store name; defaults to the selected store")),
			mcp.WithString("display_name", mcp.Description("Optional new display name")),
			mcp.WithString("document_name", mcp.Description("Optional single document to refresh")),
		),
		syncStore(deps),
	)

	s.AddTool(
		mcp.NewTool("clear_conversation",
			mcp.WithDescription("Forget the conversation so far while keeping the selected store."),
		),
		clearConversation(deps),
	)

	if deps.Directive != nil {
		s.AddTool(
			mcp.NewTool("set_system_prompt",
				mcp.WithDescription("Set the system prompt sent with every query. An empty value clears it."),
				mcp.WithString("value", mcp.Description("System prompt text")),
			),
			setSystemPrompt(deps),
		)
	}

	s.AddResource(
		mcp.NewResource(
			"filesearch://conversation",
			"Conversation",
			mcp.WithResourceDescription("Messages exchanged with the selected store"),
			mcp.WithMIMEType("application/json"),
		),
		conversationResource(deps),
	)

	return s
}

type storeEntry struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	State       string `json:"state"`
	CreateTime  string `json:"create_time,omitempty"`
	Selected    bool   `json:"selected"`
}

func listStores(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stores, err := deps.Session.RefreshStores(ctx)
		if err != nil && !errors.Is(err, session.ErrStoreNotFound) {
			return mcpError(describe(err)), nil
		}

		selected, _ := deps.Session.Selected()
		entries := make([]storeEntry, len(stores))
		for i, st := range stores {
			entries[i] = storeEntry{
				Name:        st.Name,
				DisplayName: st.DisplayName,
				State:       st.State,
				CreateTime:  st.CreateTime,
				Selected:    st.Name == selected,
			}
		}

		b, err := json.Marshal(entries)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal stores: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func selectStore(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("store")
		if err != nil {
			return mcpError("store is required"), nil
		}
		if err := selectKnown(ctx, deps.Session, id); err != nil {
			return mcpError(describe(err)), nil
		}
		return mcpText(fmt.Sprintf("Selected %s", id)), nil
	}
}

// selectKnown refreshes the listing before selecting so stores created
// elsewhere are found.
func selectKnown(ctx context.Context, sess Session, id string) error {
	if _, err := sess.RefreshStores(ctx); err != nil && !errors.Is(err, session.ErrStoreNotFound) {
		return err
	}
	return sess.Select(id)
}

type queryResult struct {
	Store   string           `json:"store"`
	Answer  string           `json:"answer"`
	Sources []backend.Source `json:"sources,omitempty"`
}

func queryStore(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		prompt, err := req.RequireString("prompt")
		if err != nil {
			return mcpError("prompt is required"), nil
		}
		if id := req.GetString("store", ""); id != "" {
			if err := selectKnown(ctx, deps.Session, id); err != nil {
				return mcpError(describe(err)), nil
			}
		}

		out, err := deps.Session.Submit(ctx, prompt)
		if err != nil {
			return mcpError(describe(err)), nil
		}
		if out.Discarded {
			return mcpError("the selected store changed while the query was running; the answer was discarded"), nil
		}

		b, err := json.Marshal(queryResult{Store: out.StoreID, Answer: out.Answer, Sources: out.Sources})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func syncStore(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetString("store", "")
		if id == "" {
			var ok bool
			if id, ok = deps.Session.Selected(); !ok {
				return mcpError("no store selected; pass store or call select_store first"), nil
			}
		}

		if deps.Session.IsSyncing(id) {
			return mcpError(fmt.Sprintf("store %s is already syncing; wait for it to finish", id)), nil
		}

		res, err := deps.Session.Sync(ctx, id,
			req.GetString("display_name", ""),
			req.GetString("document_name", ""))
		if err != nil {
			return mcpError(describe(err)), nil
		}
		if len(res) == 0 {
			return mcpText(fmt.Sprintf("Synced %s", id)), nil
		}
		return mcpText(string(res)), nil
	}
}

func clearConversation(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		deps.Session.ClearConversation()
		return mcpText("Conversation cleared"), nil
	}
}

func setSystemPrompt(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v := req.GetString("value", "")
		if err := deps.Directive.Write(v); err != nil {
			return mcpError(fmt.Sprintf("failed to save system prompt: %v", err)), nil
		}
		if v == "" {
			return mcpText("System prompt cleared"), nil
		}
		return mcpText("System prompt saved"), nil
	}
}

func conversationResource(deps Deps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		store, _ := deps.Session.Selected()
		b, err := json.Marshal(struct {
			Store    string                 `json:"store"`
			Messages []conversation.Message `json:"messages"`
		}{store, deps.Session.Messages()})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal conversation: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

// describe renders session errors for tool output.
func describe(err error) string {
	var qe *session.QueryError
	if errors.As(err, &qe) {
		return fmt.Sprintf("%s error: %s", qe.Kind, qe.Message)
	}
	return err.Error()
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
