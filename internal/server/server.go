// Package server provides the HTTP API for Nyaya.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/hyperjump/nyaya/internal/answer"
	"github.com/hyperjump/nyaya/internal/config"
	"github.com/hyperjump/nyaya/internal/store"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Asker answers one legal question. *answer.Orchestrator implements it.
type Asker interface {
	Ask(ctx context.Context, query string) (*answer.Result, error)
}

// WatchService manages the corpus directories watched at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// SourceRemover deletes every passage ingested from a corpus file and forgets the
// file. *indexer.Indexer implements it.
type SourceRemover interface {
	DeleteSource(ctx context.Context, path string) (int64, error)
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithSourceRemover routes source deletion through r instead of the bare store, so
// source tracking is cleared along with the passages.
func WithSourceRemover(r SourceRemover) Option {
	return func(s *Server) { s.sources = r }
}

// Server is the HTTP server for the Nyaya API.
type Server struct {
	asker    Asker
	store    store.VectorStore
	sources  SourceRemover
	config   *config.ServerConfig
	logger   *zap.Logger
	validate *validator.Validate
	limiter  *rate.Limiter
	server   *http.Server

	watch      WatchService
	configPath string
	fullConfig *config.Config
	configMu   sync.Mutex
}

// NewServer creates a server with the given dependencies. watch may be nil when
// the corpus is not watched; configPath and fullCfg may be empty/nil, in which
// case directory changes are not persisted and status omits configuration info.
func NewServer(
	asker Asker,
	st store.VectorStore,
	cfg *config.ServerConfig,
	logger *zap.Logger,
	watch WatchService,
	configPath string,
	fullCfg *config.Config,
	opts ...Option,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		asker:      asker,
		store:      st,
		config:     cfg,
		logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		watch:      watch,
		configPath: configPath,
		fullConfig: fullCfg,
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the router. Exposed so tests can drive the full middleware chain.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/ask", s.handleAsk)
		r.Post("/api/v1/ask", s.handleAsk)
	})
	r.Get("/api/v1/status", s.handleStatus)
	r.Delete("/api/v1/sources", s.handleDeleteSource)
	r.Get("/api/v1/corpus/directories", s.handleCorpusDirectoriesList)
	r.Post("/api/v1/corpus/directories", s.handleCorpusDirectoriesAdd)
	r.Delete("/api/v1/corpus/directories", s.handleCorpusDirectoriesRemove)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Handler(),
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
