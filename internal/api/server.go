package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/dgallion1/qbank/internal/config"
	"github.com/dgallion1/qbank/internal/pipeline"
	"github.com/dgallion1/qbank/internal/store"
)

// ExtractionRepo is the read/delete side of the question-bank store.
// *store.Store satisfies it.
type ExtractionRepo interface {
	GetExtraction(ctx context.Context, id string) (*store.Extraction, error)
	ListExtractions(ctx context.Context, userID string) ([]store.Extraction, error)
	DeleteExtraction(ctx context.Context, id string) error
}

// Server is the HTTP API server for qbank.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	repo         ExtractionRepo
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server. repo may be nil, which
// disables the /api/extractions routes.
func NewServer(orch *pipeline.Orchestrator, repo ExtractionRepo, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: orch,
		repo:         repo,
		log:          log,
		cfg:          cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type", apiKeyHeader},
		ExposedHeaders: []string{"Content-Length"},
		MaxAge:         300,
	}))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/extract", s.handleExtract)

		r.Post("/api/ingest", s.handleIngest)
		r.Post("/api/ingest/batch", s.handleBatchIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/ingest/{jobID}/questions", s.handleJobQuestions)

		r.Get("/api/extractions", s.handleListExtractions)
		r.Get("/api/extractions/{id}", s.handleGetExtraction)
		r.Delete("/api/extractions/{id}", s.handleDeleteExtraction)

		r.Get("/api/stats/extract", s.handleExtractStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
