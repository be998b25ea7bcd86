package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/spigell/offer-guard/internal/ai"
	"github.com/spigell/offer-guard/internal/history"
	"github.com/spigell/offer-guard/internal/logger"
	"github.com/spigell/offer-guard/internal/offer"
	"github.com/spigell/offer-guard/internal/risk"
)

const (
	DefaultListen    = ":8080"
	DefaultRateLimit = 2.0
	DefaultBurst     = 5

	shutdownTimeout = 10 * time.Second
	// base64 inflates the 8 MiB image limit by a third.
	bodyLimit = "12M"
)

// Analyzer produces a verdict for a job offer.
type Analyzer interface {
	Analyze(ctx context.Context, o offer.JobOffer) (*risk.Result, error)
}

type Config struct {
	Listen string `mapstructure:"listen"`
	// RateLimit is the sustained number of AI-backed requests per second per client.
	RateLimit float64 `mapstructure:"rate-limit"`
	Burst     int     `mapstructure:"burst"`
}

type Deps struct {
	Analyzer Analyzer
	History  history.Store
	Market   ai.MarketResearcher
	Matcher  ai.ResumeMatcher
	Logger   *zap.Logger
}

// Server exposes the analysis pipeline and its companions over HTTP.
type Server struct {
	echo   *echo.Echo
	cfg    Config
	deps   Deps
	logger *zap.Logger
}

func New(cfg Config, deps Deps) *Server {
	if cfg.Listen == "" {
		cfg.Listen = DefaultListen
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if deps.History == nil {
		deps.History = history.Nop{}
	}

	s := &Server{
		echo:   echo.New(),
		cfg:    cfg,
		deps:   deps,
		logger: logger.Component(deps.Logger, "server"),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Validator = &requestValidator{validate: validator.New(validator.WithRequiredStructEnabled())}
	s.echo.HTTPErrorHandler = s.handleError

	s.routes()
	return s
}

func (s *Server) routes() {
	e := s.echo

	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(echomiddleware.Recover())
	e.Use(requestLogger(s.logger))
	e.Use(echomiddleware.BodyLimit(bodyLimit))

	e.GET("/health", s.health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limited := rateLimiter(s.cfg.RateLimit, s.cfg.Burst)

	v1 := e.Group("/api/v1")
	v1.POST("/analyses", s.createAnalysis, limited)

	hist := v1.Group("/history")
	hist.GET("", s.listHistory)
	hist.DELETE("", s.clearHistory)
	hist.GET("/:id", s.getHistoryItem)
	hist.DELETE("/:id", s.deleteHistoryItem)

	v1.GET("/internships", s.internships, limited)
	v1.GET("/skills", s.skills, limited)
	v1.POST("/resume/match", s.matchResume, limited)
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("listen", s.cfg.Listen))
		errCh <- s.echo.Start(s.cfg.Listen)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i any) error {
	return v.validate.Struct(i)
}
