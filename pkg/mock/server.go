package mock

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/jdziat/compliscan/pkg/core"
)

// ServerOption configures NewHandler.
type ServerOption func(*server)

// WithAllowedOrigins enables CORS for the given browser origins.
func WithAllowedOrigins(origins ...string) ServerOption {
	return func(s *server) {
		s.origins = origins
	}
}

// WithServerLogger sets the request logger.
func WithServerLogger(l *slog.Logger) ServerOption {
	return func(s *server) {
		if l != nil {
			s.logger = l
		}
	}
}

type server struct {
	store   *Store
	auth    *Auth
	origins []string
	logger  *slog.Logger
}

// NewHandler serves store over the CompliScan HTTP API. When auth is nil
// every route is open.
func NewHandler(store *Store, auth *Auth, opts ...ServerOption) http.Handler {
	s := &server{store: store, auth: auth, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.logRequests)

	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Api-Key", "X-Request-Id"},
			ExposedHeaders:   []string{"X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/auth/login", s.login)
	r.Put("/mock-bucket/*", s.putObject)

	r.Group(func(r chi.Router) {
		if s.auth != nil {
			r.Use(RequireAuth(s.auth))
		}
		r.Get("/jobs/recent", s.recentJobs)
		r.Get("/jobs/{jobId}", s.getJob)
		r.Get("/results/{jobId}", s.getResults)
		r.Post("/search", s.search)
		r.Get("/uploads/presign", s.presign)
		r.Post("/uploads/confirm", s.confirm)
	})

	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("mock.request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"req_id", chimw.GetReqID(r.Context()),
			"elapsed_ms", time.Since(start).Milliseconds())
	})
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		writeMessage(w, http.StatusNotFound, "Login is disabled")
		return
	}
	var req loginReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad json")
		return
	}
	resp, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) getJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.store.GetJob(r.Context(), chi.URLParam(r, "jobId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *server) getResults(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.store.GetResults(r.Context(), chi.URLParam(r, "jobId"), limit, r.URL.Query().Get("lastKey"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *server) recentJobs(w http.ResponseWriter, r *http.Request) {
	limit, err := limitParam(r)
	if err != nil {
		writeError(w, err)
		return
	}
	page, err := s.store.GetRecentJobs(r.Context(), limit, r.URL.Query().Get("lastKey"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *server) search(w http.ResponseWriter, r *http.Request) {
	var q core.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeMessage(w, http.StatusBadRequest, "bad json")
		return
	}
	resp, err := s.store.Search(r.Context(), q)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) presign(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	p, err := s.store.Presign(r.URL.Query().Get("filename"), scheme+"://"+r.Host)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *server) putObject(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxUploadBytes))
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "EntityTooLarge")
		return
	}
	if err := s.store.PutObject(chi.URLParam(r, "*"), data); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type confirmReq struct {
	Key     string `json:"key"`
	Country string `json:"country"`
}

func (s *server) confirm(w http.ResponseWriter, r *http.Request) {
	var req confirmReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Key) == "" {
		writeMessage(w, http.StatusBadRequest, "key is required")
		return
	}
	receipt, err := s.store.Confirm(r.Context(), req.Key, req.Country)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func limitParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, &core.HTTPError{Status: http.StatusBadRequest, Message: "limit must be a non-negative integer"}
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeError(w http.ResponseWriter, err error) {
	var httpErr *core.HTTPError
	if errors.As(err, &httpErr) {
		writeMessage(w, httpErr.Status, httpErr.Message)
		return
	}
	if errors.Is(err, core.ErrInvalidArgument) {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	writeMessage(w, http.StatusInternalServerError, "server error")
}
