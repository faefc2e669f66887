package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/devbackend"
	"github.com/kalambet/filesearch/internal/mcpserver"
	"github.com/kalambet/filesearch/internal/session"
	"github.com/kalambet/filesearch/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd.Context())
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the file search tools over MCP (stdio)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP(cmd.Context())
	},
}

var devBackendCmd = &cobra.Command{
	Use:   "dev-backend",
	Short: "Run an in-memory backend for local development",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		token, _ := cmd.Flags().GetString("token")
		maxPrompt, _ := cmd.Flags().GetInt("max-prompt-len")
		return runDevBackend(cmd.Context(), addr, token, maxPrompt)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the backend is reachable",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		h, err := a.sess.Health(cmd.Context())
		if err != nil {
			return err
		}
		printSuccess("Backend is healthy (status: %s)", h.Status)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backend, store and local settings status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd)
	},
}

func init() {
	devBackendCmd.Flags().String("addr", "127.0.0.1:8000", "listen address")
	devBackendCmd.Flags().String("token", "", "require this bearer token on /api routes")
	devBackendCmd.Flags().Int("max-prompt-len", 0, "reject longer prompts with a validation error (0 uses the default)")
}

func runChat(ctx context.Context) error {
	events := make(chan session.Event, 64)
	a, err := newApp(appOptions{onEvent: tui.EventSink(events), logFile: "chat.log"})
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.New(tui.Options{
		Session:  a.sess,
		Events:   events,
		WordWrap: a.cfg.UI.WordWrap,
		Context:  ctx,
	})
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("running chat: %w", err)
	}
	return nil
}

func runMCP(ctx context.Context) error {
	a, err := newApp(appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := mcpserver.New(mcpserver.Deps{
		Session:   a.sess,
		Directive: a.directive,
		Version:   version,
	})
	a.logger.Info("MCP server started (stdio transport)", "backend", a.cfg.API.BaseURL)
	stdioSrv := server.NewStdioServer(mcpSrv)
	if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func runDevBackend(ctx context.Context, addr, token string, maxPrompt int) error {
	level := "info"
	if cfg, err := loadConfig(); err == nil {
		level = cfg.Log.Level
	}
	logger := newLogger(os.Stderr, level)

	srv := devbackend.New(devbackend.Options{
		Token:        token,
		MaxPromptLen: maxPrompt,
		Logger:       logger,
	})
	fmt.Fprintf(os.Stderr, "filesearch dev backend listening on %s\n", addr)
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "shutting down...")
	return nil
}

func showStatus(cmd *cobra.Command) error {
	a, err := newApp(appOptions{})
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}
	defer a.Close()

	var (
		health    backend.Health
		healthErr error
		storesErr error
	)
	// Health and stores report on separate lines; one failing does not cancel the other.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		health, healthErr = a.sess.Health(cmd.Context())
	}()
	go func() {
		defer wg.Done()
		_, storesErr = a.sess.RefreshStores(cmd.Context())
	}()
	wg.Wait()

	w := cmd.OutOrStdout()
	printStatus(w, "Backend", "%s", a.cfg.API.BaseURL)
	if healthErr != nil {
		printStatus(w, "Health", "%s", colorize(colorRed, "unreachable: "+healthErr.Error()))
	} else {
		printStatus(w, "Health", "%s", colorize(colorGreen, health.Status))
	}

	if storesErr != nil && !errors.Is(storesErr, session.ErrStoreNotFound) {
		printStatus(w, "Stores", "unavailable: %v", storesErr)
	} else {
		st := a.sess.Stats()
		printStatus(w, "Stores", "%d", st.Total)
		printStatus(w, "Created today", "%d", st.CreatedToday)
	}

	if dir, err := a.directive.Read(); err == nil && dir != "" {
		printStatus(w, "System prompt", "set (%d chars)", len([]rune(dir)))
	} else {
		printStatus(w, "System prompt", "not set")
	}
	if a.cfg.API.Model != "" {
		printStatus(w, "Model", "%s", a.cfg.API.Model)
	}
	printStatus(w, "History limit", "%d", a.cfg.Session.HistoryLimit)
	printStatus(w, "Data dir", "%s", a.cfg.Storage.DataDir)
	return nil
}
