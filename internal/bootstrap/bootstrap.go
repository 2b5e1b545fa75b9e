// Package bootstrap assembles the transport client, session store and
// coordinator from a loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"doc2txt/internal/client"
	"doc2txt/internal/config"
	"doc2txt/internal/lifecycle"
	"doc2txt/internal/session"
)

// App holds the long-lived collaborators shared by every command.
type App struct {
	Config *config.Config
	Logger *slog.Logger
	Client *client.Client
	Jobs   *session.JobSet

	kv session.KV
}

// New validates cfg and opens the configured session backend.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	cl, err := client.New(cfg.Service(), cfg.Endpoints, logger, client.WithTimeout(cfg.HTTPTimeout()))
	if err != nil {
		return nil, err
	}

	kv, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	logger.Debug("bootstrap.ready",
		"environment", cfg.Environment,
		"base_url", cfg.Service().BaseURL,
		"session_backend", cfg.Session.Backend,
		"session_id", cfg.Session.ID,
	)

	return &App{
		Config: cfg,
		Logger: logger,
		Client: cl,
		Jobs:   session.NewJobSet(kv, cfg.Session.ID, logger),
		kv:     kv,
	}, nil
}

// Coordinator builds a lifecycle coordinator that reports to r.
func (a *App) Coordinator(r lifecycle.Renderer) *lifecycle.Coordinator {
	return lifecycle.New(lifecycle.ConfigFrom(a.Config), a.Client, a.Jobs, r, lifecycle.WithLogger(a.Logger))
}

func (a *App) Close() error {
	return a.kv.Close()
}

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
