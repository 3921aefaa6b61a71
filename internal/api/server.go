// Package api exposes scoring, résumé extraction and tailoring over HTTP.
package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/spigell/cv-tailor/internal/document"
	"github.com/spigell/cv-tailor/internal/pipeline"
)

const multipartOverhead = 1 << 20

// JobFetcher resolves a vacancy id or URL into a job description.
type JobFetcher interface {
	FetchJobDescription(ctx context.Context, ref string) (string, error)
}

// Config holds the HTTP server settings.
type Config struct {
	MaxUploadSize  int64         `mapstructure:"max-upload-size"`
	RequestTimeout time.Duration `mapstructure:"request-timeout"`
}

type Server struct {
	app     *fiber.App
	deps    pipeline.Deps
	jobs    JobFetcher
	maxSize int64
	timeout time.Duration
	logger  *zap.Logger
}

// New wires the routes. jobs may be nil, in which case vacancy references are rejected.
func New(cfg Config, deps pipeline.Deps, jobs JobFetcher) *Server {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	maxSize := cfg.MaxUploadSize
	if maxSize <= 0 {
		maxSize = document.DefaultMaxSize
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	s := &Server{
		deps:    deps,
		jobs:    jobs,
		maxSize: maxSize,
		timeout: timeout,
		logger:  deps.Logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "cv-tailor",
		DisableStartupMessage: true,
		BodyLimit:             int(maxSize + multipartOverhead),
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	s.app.Use(s.logRequests)

	s.app.Get("/healthz", s.health)

	v1 := s.app.Group("/api/v1")
	v1.Post("/score", s.score)
	v1.Post("/extract", s.extract)
	v1.Post("/tailor", s.tailor)

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error {
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	s.logger.Debug("http request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
	)
	return err
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	s.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}
