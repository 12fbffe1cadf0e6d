package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"executor/internal/metrics"
)

// ServerConfig contains server configuration
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxRequestSize int64
	APIKeyHeader   string
	APIKey         string
	Version        string
	RateLimit      float64 // requests per second per client, 0 disables
	RateBurst      int
	Debug          bool
}

// Server represents the API server
type Server struct {
	config     ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	logger     zerolog.Logger
}

// NewServer creates a new API server. collector may be nil.
func NewServer(config ServerConfig, executor Executor, collector *metrics.Collector, logger zerolog.Logger) (*Server, error) {
	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	if executor == nil {
		return nil, errors.New("executor is required")
	}
	setConfigDefaults(&config)

	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	server := &Server{
		config: config,
		router: router,
		logger: logger,
	}

	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(ErrorMiddleware(logger))
	if collector != nil {
		router.Use(metrics.MetricsMiddleware(collector))
	}

	server.setupRoutes(NewHandlers(executor, collector, config.Version, logger))

	server.httpServer = &http.Server{
		Addr:           fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:        router,
		ReadTimeout:    config.ReadTimeout,
		WriteTimeout:   config.WriteTimeout,
		IdleTimeout:    config.IdleTimeout,
		MaxHeaderBytes: config.MaxHeaderBytes,
	}

	return server, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Str("version", s.config.Version).
		Msg("Starting API server")

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) setupRoutes(h *Handlers) {
	s.router.GET("/healthz", h.Healthz())
	s.router.GET("/metrics", h.Metrics())

	api := s.router.Group("/api")
	api.Use(AuthMiddleware(s.config.APIKeyHeader, s.config.APIKey))
	if s.config.RateLimit > 0 {
		api.Use(RateLimitMiddleware(s.config.RateLimit, s.config.RateBurst))
	}
	api.Use(BodyLimitMiddleware(s.config.MaxRequestSize))
	api.Use(ValidationMiddleware())

	api.POST("/orders", h.ExecuteOrder())
}

func validateConfig(config *ServerConfig) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	if config.APIKey == "" {
		return fmt.Errorf("API key required")
	}

	if config.Version == "" {
		config.Version = "unknown"
	}

	return nil
}

func setConfigDefaults(config *ServerConfig) {
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 30 * time.Second
	}

	if config.WriteTimeout == 0 {
		config.WriteTimeout = 30 * time.Second
	}

	if config.IdleTimeout == 0 {
		config.IdleTimeout = 60 * time.Second
	}

	if config.MaxHeaderBytes == 0 {
		config.MaxHeaderBytes = 1 << 20 // 1 MB
	}

	if config.APIKeyHeader == "" {
		config.APIKeyHeader = "X-API-Key"
	}

	if config.RateBurst <= 0 {
		config.RateBurst = 1
	}
}
