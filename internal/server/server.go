package server

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sozercan/disclosure-ui/apimodels"
	"github.com/sozercan/disclosure-ui/internal/config"
	"github.com/sozercan/disclosure-ui/internal/logger"
	"github.com/sozercan/disclosure-ui/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

// HealthChecker reports the backend's health.
type HealthChecker interface {
	Health(ctx context.Context) (*apimodels.HealthResponse, error)
}

type Server struct {
	cfg      config.ServerConfig
	server   *http.Server
	router   chi.Router
	sessions *session.Store
	backend  HealthChecker
	gatherer prometheus.Gatherer
	tmpl     *template.Template
	log      *slog.Logger
}

func New(cfg config.ServerConfig, sessions *session.Store, backend HealthChecker, gatherer prometheus.Gatherer, log *slog.Logger) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		router:   chi.NewRouter(),
		sessions: sessions,
		backend:  backend,
		gatherer: gatherer,
		tmpl:     tmpl,
		log:      log.With("component", "http"),
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP)

	s.router.Group(func(r chi.Router) {
		r.Use(s.sessionMiddleware)

		r.Get("/", s.handleIndex)
		r.Post("/categories/{name}/toggle", s.handleToggle)
		r.Post("/questions/select", s.handleSelect)
		r.Post("/answer/generate", s.handleGenerate)
		r.Post("/answer/edit", s.handleEdit)
		r.Post("/reload", s.handleReload)
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", sessionHeader, "X-Request-ID"},
			ExposedHeaders:   []string{sessionHeader},
			AllowCredentials: true,
			MaxAge:           300,
		}))

		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.sessionMiddleware)

			r.Get("/state", s.handleAPIState)
			r.Post("/categories/{name}/toggle", s.handleAPIToggle)
			r.Post("/select", s.handleAPISelect)
			r.Post("/generate", s.handleAPIGenerate)
			r.Put("/answer", s.handleAPIEdit)
			r.Post("/reload", s.handleAPIReload)
		})
	})
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = logger.GenerateRequestID()
		}
		r = r.WithContext(logger.WithRequestID(r.Context(), requestID))
		w.Header().Set("X-Request-ID", requestID)

		rw := &responseWriter{ResponseWriter: w}
		next.ServeHTTP(rw, r)

		logger.FromContext(r.Context(), s.log).Info("HTTP request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rw.status,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

func (s *Server) Run() error {
	serverErrors := make(chan error, 1)

	go func() {
		s.log.Info("Starting server", "address", s.server.Addr)
		serverErrors <- s.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		s.log.Info("Starting shutdown", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	return nil
}

// responseWriter captures the status code for request logging.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if rw.status == 0 {
		rw.status = http.StatusOK
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
