// Package server exposes the interview over HTTP and WebSocket.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/mock-interviewer/internal/config"
	"github.com/jonathan/mock-interviewer/internal/interview"
	"github.com/jonathan/mock-interviewer/internal/logging"
	"github.com/jonathan/mock-interviewer/internal/metrics"
	"github.com/jonathan/mock-interviewer/internal/server/ratelimit"
	"github.com/jonathan/mock-interviewer/internal/voice/stt"
	"github.com/jonathan/mock-interviewer/internal/voice/tts"
)

// Interviewer runs interview turns for connected clients.
type Interviewer interface {
	Connect(clientID string) interview.TurnResult
	Disconnect(clientID string)
	Session(clientID string) (interview.State, bool)
	HandleUtterance(ctx context.Context, clientID, text string) (interview.TurnResult, error)
	Setup(ctx context.Context, clientID string, input interview.SetupInput) (interview.TurnResult, error)
}

// Options configures a Server. Zero fields fall back to defaults.
type Options struct {
	Config    config.ServerConfig
	RateLimit *ratelimit.Config
	Conn      ConnOptions
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	interviewer Interviewer
	stt         stt.Provider
	tts         tts.Provider
	hub         *Hub
	rateLimiter *ratelimit.Limiter
	upgrader    websocket.Upgrader
	validate    *validator.Validate
	origins     map[string]bool
	cfg         config.ServerConfig
	connOpts    ConnOptions
	logger      *zap.Logger
	metrics     *metrics.Metrics

	// ctx outlives requests; hijacked WebSocket connections derive from it
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new server instance
func New(interviewer Interviewer, transcriber stt.Provider, speaker tts.Provider, opts Options) *Server {
	cfg := opts.Config
	defaults := config.Defaults().Server
	if cfg.Port == 0 {
		cfg.Port = defaults.Port
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaults.MaxUploadBytes
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		interviewer: interviewer,
		stt:         transcriber,
		tts:         speaker,
		hub:         NewHub(),
		rateLimiter: ratelimit.NewLimiter(opts.RateLimit),
		validate:    validator.New(),
		origins:     make(map[string]bool, len(cfg.AllowedOrigins)),
		cfg:         cfg,
		connOpts:    opts.Conn.withDefaults(),
		logger:      logging.OrNop(opts.Logger).Named("server"),
		metrics:     opts.Metrics,
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, origin := range cfg.AllowedOrigins {
		s.origins[strings.TrimRight(origin, "/")] = true
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.originAllowed,
	}

	s.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/{client_id}", s.handleWebSocket)
	mux.HandleFunc("POST /setup-interview/{client_id}", s.handleSetupInterview)
	mux.HandleFunc("GET /sessions/{client_id}", s.handleGetSession)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	return s.withRateLimit(s.withLogging(s.withCORS(mux)))
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		// Shutdown does not track hijacked connections
		s.Close()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	s.logger.Info("server stopped")
	return err
}

// Close ends every WebSocket connection and stops background work.
func (s *Server) Close() {
	s.cancel()
	s.hub.CloseAll()
	s.rateLimiter.Stop()
}

// withCORS adds CORS headers for allowed origins
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.originAllowed(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// originAllowed accepts requests without an Origin header (non-browser
// clients) and browser requests from the allow-list.
func (s *Server) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.origins["*"] || s.origins[strings.TrimRight(origin, "/")]
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := zap.DebugLevel
		if rec.status >= http.StatusInternalServerError {
			level = zap.WarnLevel
		}
		s.logger.Check(level, "request").Write(
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"connections": s.hub.Len(),
	})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// extractClientID extracts the rate limit key from the request.
// It uses the IP from RemoteAddr; X-Forwarded-For is not trusted.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		retry := int(info.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		response["retry_after"] = retry
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retry))
	}

	s.logger.Info("rate limit exceeded",
		zap.String("path", r.URL.Path),
		zap.String("remote", s.extractClientID(r)),
		zap.Int("limit", info.Limit),
		zap.Time("reset_at", info.ResetTime),
	)

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
