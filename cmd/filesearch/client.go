package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/kalambet/filesearch/internal/backend"
	"github.com/kalambet/filesearch/internal/config"
	"github.com/kalambet/filesearch/internal/directive"
	"github.com/kalambet/filesearch/internal/session"
	"github.com/kalambet/filesearch/internal/storage"
)

// loadConfig is replaced in tests.
var loadConfig = config.Load

// app is everything a command needs to talk to the backend.
type app struct {
	cfg       config.Config
	client    *backend.Client
	settings  *storage.Store
	directive *directive.Cell
	sess      *session.Session
	logger    *slog.Logger
	closers   []io.Closer
}

type appOptions struct {
	// onEvent observes session events.
	onEvent func(session.Event)
	// logFile, when set, sends logs to this file in the data directory
	// instead of stderr.
	logFile string
}

func newApp(opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	a := &app{cfg: cfg}

	var logOut io.Writer = os.Stderr
	if opts.logFile != "" {
		if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(cfg.Storage.DataDir, opts.logFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		a.closers = append(a.closers, f)
		logOut = f
	}
	a.logger = newLogger(logOut, cfg.Log.Level)
	slog.SetDefault(a.logger)

	a.settings, err = storage.Open(cfg.Storage.DataDir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening storage: %w", err)
	}
	a.closers = append([]io.Closer{a.settings}, a.closers...)
	a.directive = directive.New(a.settings)

	a.client = backend.New(cfg.API.BaseURL,
		backend.WithToken(cfg.API.Token),
		backend.WithTimeout(cfg.API.Timeout),
		backend.WithLogger(a.logger),
	)

	a.sess = session.New(session.Deps{
		Backend:        a.client,
		Directive:      a.directive,
		Logger:         a.logger,
		HistoryLimit:   cfg.Session.HistoryLimit,
		Model:          cfg.API.Model,
		StoresTTL:      cfg.Session.StoresTTL,
		PreferredStore: storeFlag,
		OnEvent:        opts.onEvent,
	})
	return a, nil
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing: %v\n", err)
		}
	}
	a.closers = nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	logLevel := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn", "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
}
