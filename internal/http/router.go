package http

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"doc2txt/internal/client"
	"doc2txt/internal/config"
	"doc2txt/internal/lifecycle"
	"doc2txt/internal/metrics"
)

// Coordinator is the part of *lifecycle.Coordinator the web UI drives.
type Coordinator interface {
	Submit(ctx context.Context, file client.Upload, mode string) (string, error)
	Cancel(ctx context.Context) error
	Reset() error
	Snapshot() lifecycle.Snapshot
}

type Server struct {
	app    *fiber.App
	config *config.Config
	logger *slog.Logger
}

func NewServer(cfg *config.Config, coord Coordinator, view *View, logger *slog.Logger) *Server {
	// Multipart framing needs room beyond the file itself.
	bodyLimit := int(cfg.Upload.MaxSizeBytes) + 1<<20
	app := fiber.New(fiber.Config{
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})

	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("coordinator", coord)
		c.Locals("view", view)
		return c.Next()
	})
	app.Use(requestLogger(logger))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"state":  string(coord.Snapshot().State),
		})
	})

	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	api := app.Group("/api")
	registerAPIRoutes(api)

	registerWebUIRoutes(app)

	return &Server{
		app:    app,
		config: cfg,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	if s.logger != nil {
		s.logger.Info("server.listen", "addr", addr)
	}
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func registerAPIRoutes(group fiber.Router) {
	group.Get("/state", stateHandler)
	group.Post("/submit", submitHandler)
	group.Post("/cancel", cancelHandler)
	group.Post("/reset", resetHandler)
	group.Get("/result", resultHandler)
}
