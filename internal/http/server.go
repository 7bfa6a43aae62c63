// Package http exposes the planning pipeline and the modification store as a
// JSON API. The engine packages stay pure; every piece of I/O the API needs
// goes through the interfaces declared here.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"paycal/internal/cache"
	"paycal/internal/explain"
	"paycal/internal/ingest"
	"paycal/internal/log"
	"paycal/internal/normalize"
	"paycal/internal/storage"
)

// ModificationStore persists suggested and approved calendar changes.
type ModificationStore interface {
	RecordMove(ctx context.Context, transactionID, merchantName, originalDate, newDate string, amount float64, reason string) (*storage.Modification, error)
	RecordPlanned(ctx context.Context, merchantName, date string, amount float64, category, reason string) (*storage.Modification, error)
	Approve(ctx context.Context, modificationID string) (*storage.Modification, error)
	List(ctx context.Context) ([]storage.Modification, error)
	Summarize(ctx context.Context) (storage.Summary, error)
	Clear(ctx context.Context) error
}

// ModificationPublisher announces an approved modification to the export
// pipeline. Publishing is best effort: the periodic sweep picks up anything
// a failed publish leaves behind.
type ModificationPublisher interface {
	PublishModification(ctx context.Context, modificationID string) error
}

type Server struct {
	http.Server
	store       ModificationStore
	publisher   ModificationPublisher
	explainer   explain.Explainer
	fixturePath string
	rateLimiter *rateLimiter
	logger      *log.StructuredLogger

	// Fixture batches are immutable files; cache parses per path.
	fixtureCache *cache.LRUCache[normalize.RawBatch]

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
// store, publisher and fixturePath may each be zero; the endpoints that need
// them report 503 instead.
func NewServer(addr string, store ModificationStore, publisher ModificationPublisher, explainer explain.Explainer, fixturePath string, logger *log.Logger) *Server {
	mux := http.NewServeMux()

	if explainer == nil {
		explainer = explain.NewTemplate()
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}

	componentLogger := logger.WithComponent(log.ComponentHTTP)

	// Every request carries a context logger tagged with its request id.
	handler := log.Middleware(componentLogger)(
		log.RequestIDMiddleware(requestID)(mux))

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		store:        store,
		publisher:    publisher,
		explainer:    explainer,
		fixturePath:  fixturePath,
		rateLimiter:  newRateLimiter(),
		logger:       log.NewStructuredLogger(componentLogger),
		fixtureCache: cache.NewLRUCache[normalize.RawBatch](4, 5*time.Minute),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /v1/normalize", s.withAPIMiddleware(s.handleNormalize))
	mux.HandleFunc("POST /v1/optimize", s.withAPIMiddleware(s.handleOptimize))
	mux.HandleFunc("POST /v1/plan", s.withAPIMiddleware(s.handlePlan))
	mux.HandleFunc("GET /v1/transactions", s.withAPIMiddleware(s.handleTransactions))

	mux.HandleFunc("POST /v1/modifications/move", s.withAPIMiddleware(s.handleRecordMove))
	mux.HandleFunc("POST /v1/modifications/planned", s.withAPIMiddleware(s.handleRecordPlanned))
	mux.HandleFunc("POST /v1/modifications/{id}/approve", s.withAPIMiddleware(s.handleApprove))
	mux.HandleFunc("GET /v1/modifications", s.withAPIMiddleware(s.handleListModifications))
	mux.HandleFunc("DELETE /v1/modifications", s.withAPIMiddleware(s.handleClearModifications))

	return s
}

// Shutdown stops the listener and the rate limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withAPIMiddleware adds security headers, per-IP rate limiting on mutating
// requests, and request logging.
func (s *Server) withAPIMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		ctx := r.Context()
		requestLogger := log.NewStructuredLogger(log.FromContext(ctx))

		requestLogger.LogHTTPStart(ctx, r, clientIP)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			metrics.recordRateLimitHit()
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			requestLogger.LogHTTPEnd(ctx, r, http.StatusTooManyRequests, time.Since(start).Milliseconds(), clientIP)
			return
		}

		setSecurityHeaders(w)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rw, r)

		requestLogger.LogHTTPEnd(ctx, r, rw.status, time.Since(start).Milliseconds(), clientIP)
	}
}

func isMutating(method string) bool {
	return method == http.MethodPost || method == http.MethodPut || method == http.MethodDelete
}

// statusRecorder captures the response status for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// loadFixture parses the configured fixture, caching per path.
func (s *Server) loadFixture() (normalize.RawBatch, error) {
	if batch, ok := s.fixtureCache.Get(s.fixturePath); ok {
		return batch, nil
	}
	batch, err := ingest.LoadFixture(s.fixturePath)
	if err != nil {
		return normalize.RawBatch{}, err
	}
	s.fixtureCache.Set(s.fixturePath, batch)
	return batch, nil
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if _, err := s.store.Summarize(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
