package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/conorfennell/lexihash/internal/domain"
	"github.com/conorfennell/lexihash/internal/logger"
	"github.com/conorfennell/lexihash/internal/review"
	"github.com/conorfennell/lexihash/internal/storage"
	"github.com/conorfennell/lexihash/internal/sync"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// Server holds the dependencies for the HTTP server.
type Server struct {
	db       *storage.DB
	reviews  *review.Service
	syncer   *sync.Syncer
	router   chi.Router
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates and configures a new server.
func NewServer(db *storage.DB, reviews *review.Service, syncer *sync.Syncer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		db:       db,
		reviews:  reviews,
		syncer:   syncer,
		router:   chi.NewRouter(),
		validate: domain.NewValidator(),
		logger:   log.With(slog.String("component", "web")),
		now:      time.Now,
	}
	s.routes()
	return s
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// routes sets up the routing for the server.
func (s *Server) routes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Route("/cards", func(r chi.Router) {
		r.Get("/", s.handleGetCards())
		r.Post("/", s.handleCreateCard())
		r.Get("/due", s.handleGetDue())

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetCard())
			r.Delete("/", s.handleDeleteCard())
			r.Get("/example", s.handleGetNextExample())
			r.Post("/reviews", s.handlePostReview())
			r.Get("/history", s.handleGetHistory())
			r.Put("/comment", s.handleUpdateComment())
			r.Post("/examples", s.handleAppendExamples())
			r.Put("/examples", s.handleReplaceExamples())
			r.Put("/examples/{hash}/bad", s.handleMarkExample())
		})
	})
	s.router.Get("/forecast", s.handleGetForecast())
	s.router.Get("/levels", s.handleGetLevels())

	// Source management routes
	s.router.Get("/sources", s.handleGetSources())
	s.router.Post("/sources", s.handlePostSource())
	s.router.Delete("/sources/{id}", s.handleDeleteSource())
	s.router.Post("/sync", s.handlePostSync())
}

// requestLogger tags every request with an id and a request-scoped logger,
// and logs the outcome.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		log := s.logger.With(slog.String("request_id", id))
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(logger.WithContext(r.Context(), log)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		log.Info("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration", time.Since(start),
		)
	})
}
