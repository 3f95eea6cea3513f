// Package httptransport assembles the chi router shared by the gateway and
// the audit log service: request ids, recovery, access logs, metrics,
// liveness, and the feature handlers mounted on top.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mssola/useragent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"zerotrust/internal/platform/metrics"
	"zerotrust/pkg/platform/httputil"
	request "zerotrust/pkg/platform/middleware/request"
)

// Registrar mounts routes on the router.
type Registrar interface {
	Register(r chi.Router)
}

// HealthResponse is the static liveness payload.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

type routerConfig struct {
	metrics     *metrics.Metrics
	gatherer    prometheus.Gatherer
	corsOrigins []string
}

type Option func(*routerConfig)

// WithMetrics records per-route request metrics and serves GET /metrics
// from gatherer.
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) Option {
	return func(c *routerConfig) {
		c.metrics = m
		c.gatherer = gatherer
	}
}

// WithCORS answers browser preflights and tags responses for the listed
// origins. No origins leaves CORS off.
func WithCORS(origins []string) Option {
	return func(c *routerConfig) {
		c.corsOrigins = origins
	}
}

// NewRouter builds the router for service and mounts every registrar.
func NewRouter(service string, logger *slog.Logger, registrars []Registrar, opts ...Option) http.Handler {
	cfg := &routerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(accessLog(logger, cfg.metrics))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Service: service})
	})
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{}))
	}

	for _, reg := range registrars {
		reg.Register(r)
	}

	if len(cfg.corsOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", request.HeaderRequestID},
		ExposedHeaders:   []string{request.HeaderRequestID},
		AllowCredentials: true,
	}).Handler(r)
}

func accessLog(logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := routePattern(r)
			if m != nil {
				m.ObserveHTTP(r.Method, route, status, time.Since(start))
			}
			if route == "/health" || route == "/metrics" {
				return
			}
			attrs := []any{
				"request_id", request.GetRequestID(r.Context()),
				"method", r.Method,
				"route", route,
				"remote_addr", r.RemoteAddr,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			logger.InfoContext(r.Context(), "http request", append(attrs, clientAttrs(r.UserAgent())...)...)
		})
	}
}

// clientAttrs summarizes the caller's user agent for the access log.
func clientAttrs(raw string) []any {
	if raw == "" {
		return nil
	}
	ua := useragent.New(raw)
	name, version := ua.Browser()
	return []any{
		"client", name,
		"client_version", version,
		"client_os", ua.OS(),
		"bot", ua.Bot(),
	}
}

// routePattern keeps metric cardinality bounded to registered routes.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
