// Package server exposes the dispatcher over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amari/internal/dispatch"
)

type Options struct {
	Dispatcher *dispatch.Dispatcher
	Logger     *slog.Logger
	// RateLimit is requests per second per client IP; 0 disables it.
	RateLimit    float64
	Burst        int
	MaxBodyBytes int64
	Version      string
}

type Server struct {
	dispatcher   *dispatch.Dispatcher
	logger       *slog.Logger
	limiter      *clientLimiter
	maxBodyBytes int64
	version      string
	engine       *gin.Engine
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 8 << 20
	}
	s := &Server{
		dispatcher:   opts.Dispatcher,
		logger:       logger,
		limiter:      newClientLimiter(opts.RateLimit, opts.Burst),
		maxBodyBytes: maxBody,
		version:      opts.Version,
	}
	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog())

	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1", s.rateLimit(), s.limitBody())
	{
		v1.GET("/operations", s.listOperations)
		v1.POST("/operations/:name", s.callOperation)
		v1.POST("/batch/:name", s.batch)

		computations := v1.Group("/computations")
		{
			computations.GET("", s.listComputations)
			computations.GET("/:name", s.loadComputation)
			computations.PUT("/:name", s.saveComputation)
			computations.DELETE("/:name", s.deleteComputation)
		}
	}
	return router
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests for up to 10 seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
