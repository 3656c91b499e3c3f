// Package server exposes the wordbook services over HTTP for the mobile
// client, with request logging, CORS, optional bearer auth, and a
// periodic maintenance schedule.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/runnerr0/wordbook/internal/config"
	"github.com/runnerr0/wordbook/internal/history"
	"github.com/runnerr0/wordbook/internal/search"
	"github.com/runnerr0/wordbook/internal/storage"
)

// Server is the HTTP front end plus its background maintenance schedule.
type Server struct {
	cfg     config.ServerConfig
	log     *zap.SugaredLogger
	engine  *gin.Engine
	cron    *cron.Cron
	store   storage.Store
	history *history.Service
}

// New builds a Server with all routes and middleware registered.
func New(cfg config.ServerConfig, store storage.Store, searchSvc *search.Service, histSvc *history.Service, log *zap.SugaredLogger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(RequestIDMiddleware())
	engine.Use(RequestLoggingMiddleware(log))
	engine.Use(RecoveryMiddleware(log))
	engine.Use(CORSMiddleware())

	h := NewHandlers(store, searchSvc, histSvc, log)

	engine.GET("/health", h.Health)

	v1 := engine.Group("/api/v1")
	if cfg.AuthToken != "" {
		v1.Use(BearerAuthMiddleware(cfg.AuthToken))
	}
	{
		v1.GET("/search", h.SearchCards)
		v1.GET("/suggest", h.Suggest)
		v1.GET("/history", h.HistoryList)
		v1.DELETE("/history", h.HistoryClear)
		v1.DELETE("/history/:id", h.HistoryRemove)
		v1.GET("/history/frequent", h.HistoryFrequent)
		v1.GET("/history/stats", h.HistoryStats)
		v1.GET("/history/size", h.HistorySize)
		v1.GET("/history/export", h.HistoryExport)
		v1.POST("/cards", h.CreateCard)
		v1.GET("/folders", h.ListFolders)
	}

	return &Server{
		cfg:     cfg,
		log:     log,
		engine:  engine,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		store:   store,
		history: histSvc,
	}
}

// Router returns the configured HTTP handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.engine
}

// Run starts the server and the maintenance schedule, then blocks until
// the context is cancelled or an interrupt arrives. Shutdown drains
// in-flight requests for up to five seconds.
func (s *Server) Run(ctx context.Context) error {
	if spec := s.cfg.MaintenanceCron; spec != "" {
		if _, err := s.cron.AddFunc(spec, s.runMaintenance); err != nil {
			return fmt.Errorf("schedule maintenance %q: %w", spec, err)
		}
		s.cron.Start()
		defer s.cron.Stop()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infow("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case sig := <-quit:
		s.log.Infow("shutting down", "signal", sig.String())
	case <-ctx.Done():
		s.log.Infow("shutting down", "reason", "context cancelled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.log.Infow("server stopped")
	return nil
}

// runMaintenance re-applies history eviction and compacts the FTS index.
func (s *Server) runMaintenance() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := s.history.Prune(ctx); err != nil {
		s.log.Warnw("maintenance: prune history", "error", err)
	}
	if err := s.store.Optimize(ctx); err != nil {
		s.log.Warnw("maintenance: optimize index", "error", err)
	}
	s.log.Infow("maintenance completed")
}
