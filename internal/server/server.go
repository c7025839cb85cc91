package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/KnuggetDeveloper/infograph/internal/auth"
	"github.com/KnuggetDeveloper/infograph/internal/repository"
	"github.com/KnuggetDeveloper/infograph/internal/service"
)

type Server struct {
	addr        string
	log         *slog.Logger
	sessions    *auth.Manager
	users       *service.UserService
	generations *service.GenerationService
	router      *chi.Mux
}

func New(addr string, log *slog.Logger, sessions *auth.Manager, users *service.UserService, generations *service.GenerationService) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(sessions.Middleware)

	s := &Server{
		addr:        addr,
		log:         log,
		sessions:    sessions,
		users:       users,
		generations: generations,
		router:      r,
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignup)
			r.Post("/signin", s.handleSignin)
			r.Post("/signout", s.handleSignout)
			r.Get("/me", s.handleMe)
		})
		r.Post("/generate", s.handleDirectGenerate)
		r.Route("/generation", func(r chi.Router) {
			r.Post("/", s.handleCreateGeneration)
			r.Get("/{id}", s.handleFetchGeneration)
			r.Post("/{id}/generate", s.handleGenerate)
			r.Post("/{id}/share", s.handleShare)
		})
	})
	return s
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * time.Minute, // synthesis responses are slow
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("server shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) errorJSON(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func (s *Server) writeServiceError(w http.ResponseWriter, err error) {
	var synthErr *service.SynthesisError
	switch {
	case errors.Is(err, service.ErrInvalidPrompt),
		errors.Is(err, service.ErrMissingCredentials):
		s.errorJSON(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidLogin):
		s.errorJSON(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrForbidden):
		s.errorJSON(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrNotFound):
		s.errorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, repository.ErrEmailTaken),
		errors.Is(err, service.ErrNotReady):
		s.errorJSON(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrUnconfigured),
		errors.Is(err, service.ErrNoImage),
		errors.Is(err, service.ErrShareUnavailable):
		s.errorJSON(w, http.StatusInternalServerError, err.Error())
	case errors.As(err, &synthErr):
		s.errorJSON(w, http.StatusInternalServerError, synthErr.Message)
	default:
		s.log.Error("handler error", "err", err)
		s.errorJSON(w, http.StatusInternalServerError, "internal error")
	}
}
