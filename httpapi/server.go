// Package httpapi binds the exchange service to HTTP.
//
// Routes:
//
//	POST /upload_offer    {"offer": "offer1...", "signature": "<hex>"} -> {"code": "<hex>", "cid": "..."}
//	POST /download_offer  {"code": "<hex>"} -> {"offer": "offer1..." | null}
//	GET  /health
//	GET  /metrics
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Chia-Network/offer-codes/exchange"
	"github.com/Chia-Network/offer-codes/metrics"
)

const (
	DefaultMetricsPath  = "/metrics"
	DefaultMaxBodyBytes = 16 << 20
)

type Options struct {
	Service *exchange.Service
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	MetricsPath  string
	MaxBodyBytes int64
	// Upload rate limit per client IP; zero RequestsPerSecond disables it.
	RequestsPerSecond float64
	Burst             int
}

type Server struct {
	svc     *exchange.Service
	log     *zap.Logger
	metrics *metrics.Metrics
	limiter *RateLimiter
	router  *gin.Engine
}

func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("httpapi: service is required")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = DefaultMetricsPath
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	s := &Server{svc: opts.Service, log: log, metrics: opts.Metrics}
	if opts.RequestsPerSecond > 0 {
		s.limiter = NewRateLimiter(opts.RequestsPerSecond, opts.Burst)
	}

	r := gin.New()
	r.Use(
		requestID(),
		recovery(log),
		accessLog(log),
		observe(opts.Metrics),
		limitBody(opts.MaxBodyBytes),
	)

	upload := []gin.HandlerFunc{s.upload}
	if s.limiter != nil {
		upload = append([]gin.HandlerFunc{s.limiter.Middleware()}, upload...)
	}
	r.POST("/upload_offer", upload...)
	r.POST("/download_offer", s.download)
	r.GET("/health", s.health)
	if opts.Metrics != nil {
		r.GET(opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{})))
	}
	r.NoRoute(func(c *gin.Context) {
		writeError(c, http.StatusNotFound, "not_found", "no such route")
	})
	s.router = r
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

// Close stops background work of the server. It does not close the service.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

// ListenAndServe serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
