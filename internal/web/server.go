// Package web serves integrity reports and message data of loaded logs over
// HTTP.
package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/JonMunkholm/tlmlog/internal/config"
	"github.com/JonMunkholm/tlmlog/internal/core"
	"github.com/JonMunkholm/tlmlog/internal/logging"
	mw "github.com/JonMunkholm/tlmlog/internal/web/middleware"
)

// Server is the HTTP front end of a Catalog.
type Server struct {
	catalog *core.Catalog
	cfg     *config.Config
	log     *zap.Logger
	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
}

// NewServer builds the router for catalog. A nil logger discards output.
func NewServer(catalog *core.Catalog, cfg *config.Config, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		catalog: catalog,
		cfg:     cfg,
		log:     log,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		s.router.Use(s.rateLimit(s.limiter))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleDashboard)
	s.router.Get("/logs/{log}", s.handleReportPage)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(mw.APIKeyAuth(&s.cfg.Security))

		r.Get("/status", s.handleStatus)
		r.Get("/logs", s.handleListLogs)

		r.Route("/logs/{log}", func(r chi.Router) {
			r.Get("/report", s.handleReport)
			r.Post("/reload", s.handleReload)
			r.Get("/networks", s.handleListNetworks)
			r.Get("/networks/{network}/messages", s.handleListMessages)
			r.Get("/networks/{network}/messages/{message}", s.handleMessage)
			r.Get("/networks/{network}/messages/{message}/export", s.handleExportMessage)
			r.Get("/networks/{network}/messages/{message}/payloads", s.handleListPayloads)
			r.Get("/networks/{network}/messages/{message}/payloads/{payload}", s.handlePayload)
		})
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.log.Info("server listening", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown waits for running reloads, then stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}

	loads := s.catalog.Limiter()
	if active := loads.ActiveCount(); active > 0 {
		s.log.Info("waiting for reloads to complete", zap.Int("active", active))
		if err := loads.WaitForDrain(ctx); err != nil {
			s.log.Warn("reloads did not complete in time", zap.Error(err))
		}
	}

	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		// Pages carry their style inline and load nothing else.
		w.Header().Set("Content-Security-Policy", "default-src 'none'; style-src 'unsafe-inline'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeJSON encodes v as JSON. Encoding errors are logged since headers are
// already sent.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", zap.Error(err))
	}
}
