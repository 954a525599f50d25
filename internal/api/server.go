// Package api is the HTTP surface: REST signal endpoints plus the signal
// stream over WebSocket.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"momentum-signal-engine/config"
	"momentum-signal-engine/internal/cache"
	"momentum-signal-engine/internal/optimizer"
	"momentum-signal-engine/internal/pipeline"
	"momentum-signal-engine/internal/queue"
)

// Server hosts the REST API and the WebSocket hub
type Server struct {
	cfg        config.ServerConfig
	router     *gin.Engine
	httpServer *http.Server
	pipe       *pipeline.Pipeline
	requestQ   *queue.RequestQueue
	tiered     *cache.TieredCache
	optim      *optimizer.PerformanceOptimizer
	thresholds *optimizer.ThresholdStore
	hub        *StreamHub
	logger     zerolog.Logger
}

func NewServer(
	cfg config.ServerConfig,
	pipe *pipeline.Pipeline,
	requestQ *queue.RequestQueue,
	tiered *cache.TieredCache,
	optim *optimizer.PerformanceOptimizer,
	thresholds *optimizer.ThresholdStore,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		cfg:        cfg,
		router:     router,
		pipe:       pipe,
		requestQ:   requestQ,
		tiered:     tiered,
		optim:      optim,
		thresholds: thresholds,
		hub:        NewStreamHub(pipe, logger),
		logger:     logger.With().Str("component", "api_server").Logger(),
	}

	router.Use(s.requestLogger())
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	s.registerRoutes()
	return s
}

func corsConfig(allowedOrigins string) cors.Config {
	cfg := cors.DefaultConfig()
	if allowedOrigins == "" || allowedOrigins == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = strings.Split(allowedOrigins, ",")
	}
	cfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	return cfg
}

func (s *Server) registerRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/signal", s.handleSignal)
		v1.POST("/signals/bulk", s.handleSignalsBulk)
		v1.GET("/stats", s.handleStats)
		v1.GET("/performance", s.handlePerformance)
		v1.GET("/thresholds", s.handleThresholds)
		v1.GET("/trades", s.handleTrades)
		v1.POST("/trades", s.handleTrackEntry)
		v1.POST("/trades/:id/close", s.handleCloseTrade)
	}

	s.router.GET("/ws/signals", s.hub.HandleConnection)
}

// requestLogger logs each request at debug with method, path and latency
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request handled")
	}
}

// Start runs the HTTP server until the context is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(s.cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	s.logger.Info().Msg("Shutting down HTTP server")
	return s.httpServer.Shutdown(shutdownCtx)
}
