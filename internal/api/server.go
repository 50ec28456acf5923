package api

import (
	"log/slog"
	"net/http"

	"github.com/dgallion1/reportsmith/internal/config"
	"github.com/dgallion1/reportsmith/internal/enhance"
	"github.com/dgallion1/reportsmith/internal/genai"
	"github.com/dgallion1/reportsmith/internal/pipeline"
	"github.com/dgallion1/reportsmith/internal/resolve"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Services are the components the HTTP handlers call into.
type Services struct {
	Orchestrator *pipeline.Orchestrator
	Resolver     *resolve.Resolver
	Enhancer     *enhance.Enhancer
	// LLM is optional; it backs /api/stats/llm.
	LLM *genai.Client
}

// Server is the HTTP API server for reportsmith.
type Server struct {
	router       chi.Router
	orchestrator *pipeline.Orchestrator
	resolver     *resolve.Resolver
	enhancer     *enhance.Enhancer
	llm          *genai.Client
	log          *slog.Logger
	cfg          config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(svc Services, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		orchestrator: svc.Orchestrator,
		resolver:     svc.Resolver,
		enhancer:     svc.Enhancer,
		llm:          svc.LLM,
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

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.APIKey != "" {
			r.Use(AuthMiddleware(s.cfg.APIKey, s.log))
		}
		if s.cfg.RequestTimeout > 0 {
			r.Use(RequestTimeout(s.cfg.RequestTimeout))
		}

		r.Post("/api/upload", s.handleUpload)
		r.Post("/api/analyze", s.handleAnalyze)

		r.Post("/api/reports/generate", s.handleGenerateReport)
		r.Post("/api/reports", s.handleSubmitReport)
		r.Get("/api/reports/{jobID}", s.handleReportStatus)

		r.Post("/api/presentation", s.handlePresentation)
		r.Post("/api/edit", s.handleEdit)
		r.Post("/api/edit/operations", s.handleOperation)
		r.Post("/api/enhance", s.handleEnhance)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}
