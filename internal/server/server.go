// Package server exposes retrieval, answering, ingestion and the dedup
// index over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ppiankov/factrank/internal/dedup"
	"github.com/ppiankov/factrank/internal/logging"
	"github.com/ppiankov/factrank/internal/metrics"
	"github.com/ppiankov/factrank/internal/model"
	"github.com/ppiankov/factrank/internal/pipeline"
	"github.com/ppiankov/factrank/internal/query"
	"github.com/ppiankov/factrank/internal/reputation"
	"github.com/ppiankov/factrank/internal/store"
	"github.com/ppiankov/factrank/internal/worker"
)

// Deps are the components served. Answerer and Ingester are optional;
// their routes answer 503 when absent. A nil Expander leaves every query
// as its only variant. Config is the effective configuration, served with
// its secrets redacted.
type Deps struct {
	Retriever     *pipeline.Retriever
	Answerer      *pipeline.Answerer
	Expander      *query.Expander
	Reputation    *reputation.Scorer
	Dedup         *dedup.Deduplicator
	Store         store.FactStore
	Ingester      worker.Ingester
	IngestWorkers int
	Metrics       *metrics.Metrics
	Gatherer      prometheus.Gatherer
	Config        model.Config
}

// Server is the factrank HTTP API
type Server struct {
	router *gin.Engine
	deps   Deps
	cfg    model.ServerConfig
	logger *zap.Logger
}

// New builds the router
func New(deps Deps, cfg model.ServerConfig, logger *zap.Logger) (*Server, error) {
	if deps.Retriever == nil || deps.Reputation == nil || deps.Dedup == nil || deps.Store == nil {
		return nil, fmt.Errorf("%w: server requires retriever, reputation, dedup and store", model.ErrInvalidConfig)
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}

	switch cfg.Mode {
	case gin.DebugMode, gin.TestMode:
		gin.SetMode(cfg.Mode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router: gin.New(),
		deps:   deps,
		cfg:    cfg,
		logger: logging.OrNop(logger),
	}

	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger, deps.Metrics))
	s.router.Use(apiKeyAuth(cfg.APIKey))
	if cfg.RequestsPerSecond > 0 {
		s.router.Use(newClientLimiter(cfg.RequestsPerSecond, cfg.Burst).middleware())
	}

	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.health)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/v1")
	v1.GET("/search", s.search)
	v1.GET("/analyze", s.analyze)
	v1.POST("/query/expand", s.expandQuery)
	v1.GET("/config", s.config)
	v1.GET("/domain", s.domain)
	v1.POST("/answer", s.answer)
	v1.POST("/answer/stream", s.answerStream)
	v1.GET("/dedup/stats", s.dedupStats)
	v1.POST("/dedup/check", s.dedupCheck)
	v1.POST("/facts", s.submitFacts)
	v1.POST("/ingest", s.ingest)
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on cfg.Addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := time.Duration(s.cfg.ShutdownTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("shutting down HTTP server")
	return srv.Shutdown(shutdownCtx)
}
