// Package http serves the ledger web UI.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/middleware/ratelimit"
	"ledger/internal/middleware/security"
	"ledger/internal/middleware/trace"
	"ledger/internal/services"
	appweb "ledger/web"
)

type Config struct {
	Addr               string
	RateLimitPerMinute int
	Logger             *applog.Logger
}

// Server is an http.Server routing the ledger pages.
type Server struct {
	http.Server

	ledger       *services.Ledger
	templates    *template.Template
	logger       *applog.Logger
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
func NewServer(cfg Config, ledger *services.Ledger) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	loc := ledger.Queries.Location()
	t, err := template.New("").Funcs(templateFuncs(loc)).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		ledger:    ledger,
		templates: t,
		logger:    logger,
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
	}

	r := mux.NewRouter()
	if err := s.routes(r); err != nil {
		s.limiter.Stop()
		return nil, err
	}

	detector := security.NewDetector()
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	limit := s.limiter.Middleware(detector.ExtractClientIP, s.handleRateLimited, http.MethodPost)

	var h http.Handler = r
	h = limit(h)
	h = headers.Middleware(h)
	h = detector.Middleware(h)
	h = applog.Middleware(logger, trace.GetRequestID)(h)
	h = trace.NewMiddleware(logger.WithComponent(applog.ComponentTrace), detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes(r *mux.Router) error {
	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("mount static assets: %w", err)
	}
	r.PathPrefix("/static/").Handler(security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)

	r.HandleFunc("/accounts/new", s.handleNewAccount).Methods(http.MethodGet)
	r.HandleFunc("/accounts/new", s.handleCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/accounts/{id:[0-9]+}", s.handleAccount).Methods(http.MethodGet)

	r.HandleFunc("/tags/new", s.handleNewTag).Methods(http.MethodGet)
	r.HandleFunc("/tags/new", s.handleCreateTag).Methods(http.MethodPost)
	r.HandleFunc("/tags/{id:[0-9]+}", s.handleTag).Methods(http.MethodGet)

	r.HandleFunc("/transactions/new", s.handleNewTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/new", s.handleCreateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}", s.handleEditTransaction).Methods(http.MethodGet)
	r.HandleFunc("/transactions/{id:[0-9]+}", s.handleUpdateTransaction).Methods(http.MethodPost)
	r.HandleFunc("/transactions/{id:[0-9]+}/delete", s.handleDeleteTransaction).Methods(http.MethodPost)

	r.HandleFunc("/transfers/new", s.handleNewTransfer).Methods(http.MethodGet)
	r.HandleFunc("/transfers/new", s.handleCreateTransfer).Methods(http.MethodPost)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.renderError(w, r, fmt.Errorf("%w: no page at %s", core.ErrNotFound, r.URL.Path))
	})
	return nil
}

// Shutdown stops the rate limiter and drains the HTTP server. It is safe to
// call more than once.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.ledger.Ready(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldMethod, r.Method,
		applog.FieldPath, r.URL.Path)
	s.render(w, r, http.StatusTooManyRequests, "error.html", errorPage{
		Status:  http.StatusTooManyRequests,
		Message: "Too many requests. Please try again in a minute.",
	})
}
