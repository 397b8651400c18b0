// Package api exposes extraction, categorization and totals over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-expenses/internal/batch"
	"github.com/insightdelivered/statement-expenses/internal/categorize"
	"github.com/insightdelivered/statement-expenses/internal/config"
	"github.com/insightdelivered/statement-expenses/internal/logger"
)

// Deps are the collaborators a Server needs.
type Deps struct {
	Processor     *batch.Processor
	Engine        *categorize.Engine
	FieldMappings map[string]config.FieldMapping
	Logger        zerolog.Logger
	Version       string
	BodyLimitMB   int
}

// Server is the HTTP API.
type Server struct {
	deps Deps
	app  *fiber.App
}

// New creates a Server with its routes registered.
func New(deps Deps) *Server {
	if deps.BodyLimitMB <= 0 {
		deps.BodyLimitMB = 50
	}
	s := &Server{deps: deps}

	s.app = fiber.New(fiber.Config{
		AppName:               "statement-expenses",
		BodyLimit:             deps.BodyLimitMB << 20,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	s.app.Use(s.requestLogger)

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.app.Group("/api")
	api.Get("/health", s.handleHealth)
	api.Get("/categories", s.handleCategories)
	api.Post("/extract", s.handleExtract)
	api.Post("/corrections", s.handleCorrection)
	api.Post("/totals", s.handleTotals)
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.deps.Logger.Info().Str("addr", addr).Msg("server_listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	c.SetUserContext(logger.WithContext(c.UserContext(), s.deps.Logger))

	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	ev := s.deps.Logger.Info()
	if status >= fiber.StatusInternalServerError {
		ev = s.deps.Logger.Error().Err(err)
	}
	ev.Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("duration", time.Since(start)).
		Msg("http_request")
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	return c.Status(code).JSON(errorResponse{Success: false, Error: err.Error()})
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
