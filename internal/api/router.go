// Package api serves the HTTP surface of sysconfd.
package api

import (
	"net/http"

	"sysconfd/internal/api/middleware"
	av1 "sysconfd/internal/api/v1"
	"sysconfd/internal/config"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Router handles all routing logic
type Router struct {
	engine *gin.Engine
	config *config.ServerConfig
	logger *zap.Logger
}

// NewRouter creates and configures a new router
func NewRouter(cfg *config.ServerConfig, svc av1.Services, logger *zap.Logger) *Router {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	r := &Router{
		engine: gin.New(),
		config: cfg,
		logger: logger,
	}

	r.setupMiddleware()
	r.setupAPIV1(svc)

	return r
}

// Handler returns the HTTP handler
func (r *Router) Handler() http.Handler {
	return r.engine
}

// setupMiddleware configures all middleware
func (r *Router) setupMiddleware() {
	m := middleware.New(r.logger)

	r.engine.Use(m.RequestID())
	r.engine.Use(m.Logger())
	r.engine.Use(m.Recovery())
	r.engine.Use(m.Secure())
	r.engine.Use(m.NoCache())
}

// setupAPIV1 configures v1 API routes
func (r *Router) setupAPIV1(svc av1.Services) {
	api := av1.NewAPI(svc, r.logger)
	api.RegisterRoutes(r.engine.Group("/api/v1"))
}

// NewServer wraps the router in an http.Server with the configured timeouts
func NewServer(cfg *config.ServerConfig, r *Router) *http.Server {
	return &http.Server{
		Addr:         cfg.Address,
		Handler:      r.Handler(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
}
