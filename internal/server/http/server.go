// Package httpserver provides the HTTP REST API server for the peer review service.
package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/peer-review-service/internal/database"
	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/identity"
	"github.com/helixir/peer-review-service/internal/lifecycle"
	"github.com/helixir/peer-review-service/internal/repository"
)

// LifecycleService defines the lifecycle operations the HTTP server exposes.
type LifecycleService interface {
	SubmitArticle(ctx context.Context, input lifecycle.SubmissionInput) (*domain.Article, error)
	GetArticle(ctx context.Context, articleID uuid.UUID) (*domain.Article, error)
	ListArticlesForJournal(ctx context.Context, journalID uuid.UUID, limit, offset int) ([]*domain.Article, int64, error)
	FetchMergedManuscript(ctx context.Context, articleID uuid.UUID) ([]byte, error)

	AssignReviewers(ctx context.Context, articleID uuid.UUID, emails []string) (*domain.Article, error)
	RemoveReviewer(ctx context.Context, articleID uuid.UUID, email string) (*domain.Article, error)
	RecordReview(ctx context.Context, articleID uuid.UUID, reviewerEmail string, verdict domain.ReviewVerdict, comments string) (*domain.Article, error)
	SetWorkingStatus(ctx context.Context, articleID uuid.UUID, status domain.ArticleStatus) (*domain.Article, error)
	Finalize(ctx context.Context, articleID uuid.UUID, decision domain.Decision, editorComments string) (*domain.Article, error)

	CreateJournal(ctx context.Context, name, editorID, editorEmail, editorName string) (*domain.Journal, error)
	GetJournal(ctx context.Context, journalID uuid.UUID) (*domain.Journal, error)
	ListJournals(ctx context.Context, limit, offset int) ([]*domain.Journal, int64, error)
	SetJournalEditor(ctx context.Context, journalID uuid.UUID, editorID, editorEmail, editorName string) (*domain.Journal, error)

	AddReviewer(ctx context.Context, firstName, lastName, email, affiliation string) (*domain.Reviewer, error)
	AddReviewers(ctx context.Context, reviewers []*domain.Reviewer) (*repository.BulkAddResult, error)
	GetReviewer(ctx context.Context, reviewerID uuid.UUID) (*domain.Reviewer, error)
	DeleteReviewer(ctx context.Context, reviewerID uuid.UUID) error
	SearchReviewers(ctx context.Context, query string, limit, offset int) ([]*domain.Reviewer, int64, error)
}

var _ LifecycleService = (*lifecycle.Service)(nil)

// Server is the HTTP REST API server.
type Server struct {
	router         chi.Router
	httpServer     *http.Server
	svc            LifecycleService
	db             *database.DB
	logger         zerolog.Logger
	authMiddleware func(http.Handler) http.Handler
}

// Config holds HTTP server configuration.
type Config struct {
	Address         string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// NewServer creates a new HTTP server with all dependencies. authMiddleware
// authenticates API requests; pass nil to serve unauthenticated (tests only).
func NewServer(
	cfg Config,
	svc LifecycleService,
	db *database.DB,
	logger zerolog.Logger,
	authMiddleware func(http.Handler) http.Handler,
) *Server {
	s := &Server{
		svc:            svc,
		db:             db,
		logger:         logger.With().Str("component", "http-server").Logger(),
		authMiddleware: authMiddleware,
	}

	s.router = s.buildRouter()

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// buildRouter creates the chi router with all middleware and routes.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(correlationIDMiddleware)

	// Health endpoints (no auth)
	r.Get("/healthz", s.healthHandler)
	r.Get("/readyz", s.readinessHandler)

	r.Route("/api/v1", func(r chi.Router) {
		if s.authMiddleware != nil {
			r.Use(s.authMiddleware)
		}
		r.Use(jsonContentTypeMiddleware)

		r.Route("/journals", func(r chi.Router) {
			r.Get("/", s.listJournals)
			r.Get("/{journalID}", s.getJournal)
			r.Get("/{journalID}/articles", s.listJournalArticles)

			r.Group(func(r chi.Router) {
				r.Use(identity.RequireRole(identity.RoleAdmin))
				r.Post("/", s.createJournal)
				r.Put("/{journalID}/editor", s.setJournalEditor)
			})
		})

		r.Route("/reviewers", func(r chi.Router) {
			r.Use(identity.RequireRole(identity.RoleEditor))
			r.Get("/", s.searchReviewers)
			r.Get("/{reviewerID}", s.getReviewer)
			r.Post("/", s.addReviewer)
			r.Post("/bulk", s.addReviewersBulk)
			r.Delete("/{reviewerID}", s.deleteReviewer)
		})

		r.Route("/articles", func(r chi.Router) {
			r.Post("/", s.submitArticle)
			r.Get("/{articleID}", s.getArticle)
			r.Get("/{articleID}/manuscript", s.downloadMergedManuscript)

			r.Post("/{articleID}/reviewers", s.assignReviewers)
			r.Delete("/{articleID}/reviewers/{email}", s.removeReviewer)
			r.Post("/{articleID}/reviews", s.recordReview)
			r.Put("/{articleID}/status", s.setWorkingStatus)
			r.Post("/{articleID}/decision", s.finalizeDecision)
		})
	})

	return r
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("address", s.httpServer.Addr).Msg("HTTP server starting")
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on HTTP address: %w", err)
	}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// healthHandler returns basic liveness status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	health := s.db.Health(r.Context())
	if health.Status == "healthy" {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "database": health.Status})
		return
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{
		"status":   "unhealthy",
		"database": health.Status,
		"error":    health.Error,
	})
}

// readinessHandler returns readiness status including database connectivity.
func (s *Server) readinessHandler(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		health := s.db.Health(r.Context())
		if health.Status != "healthy" {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":   "not_ready",
				"database": health.Status,
				"error":    health.Error,
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "ready",
		"database": "healthy",
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Best-effort log; headers already sent.
		_ = err
	}
}

// writeError writes the standard JSON error body with a stable error code and
// a human readable message.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, map[string]string{
		"error":   code,
		"message": message,
	})
}
