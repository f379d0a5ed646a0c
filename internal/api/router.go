package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Defaults used when the CORS config leaves methods or headers empty.
var (
	defaultCORSMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	defaultCORSHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"}
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.metrics.middleware)
	r.Use(s.corsHandler())
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeNotFound(w, "resource not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/ws", s.handleWebSocket)

		r.Get("/summary", s.handleSummary)
		r.Get("/groups", s.handleListGroups)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)

				// Mutating routes
				r.Group(func(r chi.Router) {
					r.Use(s.authMiddleware)
					r.Patch("/", s.handlePatchDevice)
					r.Post("/actions", s.handleDeviceAction)
				})
			})
		})
	})

	return r
}

// corsHandler builds the CORS middleware from config. A "*" origin allows
// any origin, matching the registry's open-LAN default.
func (s *Server) corsHandler() func(http.Handler) http.Handler {
	methods := s.cfg.CORS.AllowedMethods
	if len(methods) == 0 {
		methods = defaultCORSMethods
	}
	headers := s.cfg.CORS.AllowedHeaders
	if len(headers) == 0 {
		headers = defaultCORSHeaders
	}
	origins := s.cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: methods,
		AllowedHeaders: headers,
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	})
}

type healthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components map[string]string `json:"components,omitempty"`
}

// handleHealth reports whether the registry can currently be read. An
// unreadable registry is a 503; a failing optional backend only degrades
// the status.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Version: s.version}

	if err := s.service.HealthCheck(r.Context()); err != nil {
		s.logger.Warn("health check failed", "error", err)
		resp.Status = "unavailable"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	if len(s.checks) > 0 {
		resp.Components = make(map[string]string, len(s.checks))
		for name, check := range s.checks {
			if err := check.HealthCheck(r.Context()); err != nil {
				s.logger.Warn("component health check failed", "component", name, "error", err)
				resp.Components[name] = "unavailable"
				resp.Status = "degraded"
				continue
			}
			resp.Components[name] = "ok"
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
