package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tuplan/server/internal/api/handlers"
	"github.com/tuplan/server/internal/api/middleware"
	"github.com/tuplan/server/internal/api/problem"
	"github.com/tuplan/server/internal/config"
	"github.com/tuplan/server/internal/domain/events"
	"github.com/tuplan/server/internal/metrics"
)

// Dependencies are owned by the caller, which opens and closes them.
type Dependencies struct {
	Events events.Repository
	DB     handlers.Pinger
	Build  BuildInfo
}

// NewRouter wires the HTTP surface. ctx bounds background work started by
// middleware such as the rate limiter's cleanup loop.
func NewRouter(ctx context.Context, cfg config.Config, logger zerolog.Logger, deps Dependencies) http.Handler {
	service := events.NewService(deps.Events, logger)
	eventsHandler := handlers.NewEventsHandler(service, cfg.Environment)
	eventsHandler.BaseURL = cfg.Server.BaseURL
	panelHandler := handlers.NewPanelHandler(service, cfg.Environment)
	health := handlers.NewHealthChecker(deps.DB, deps.Build.Version, deps.Build.GitCommit)

	mux := http.NewServeMux()
	mux.Handle("/healthz", health.Healthz())
	mux.Handle("/readyz", health.Readyz())
	mux.Handle("/version", methodMux(map[string]http.Handler{
		http.MethodGet: VersionHandler(deps.Build),
	}))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.Handle("/api/v1/events", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(eventsHandler.List),
		http.MethodPost: http.HandlerFunc(eventsHandler.Create),
	}))
	mux.Handle("/api/v1/events/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(eventsHandler.Get),
		http.MethodPut:    http.HandlerFunc(eventsHandler.Update),
		http.MethodPatch:  http.HandlerFunc(eventsHandler.Update),
		http.MethodDelete: http.HandlerFunc(eventsHandler.Delete),
	}))
	mux.Handle("/panel", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(panelHandler.Show),
		http.MethodPost: http.HandlerFunc(panelHandler.Submit),
	}))
	mux.Handle("/", notFound(cfg.Environment))

	var handler http.Handler = mux
	handler = middleware.RequestSize(middleware.DefaultMaxBodySize)(handler)
	handler = middleware.RateLimit(ctx, cfg.RateLimit)(handler)
	handler = middleware.CORS(cfg.CORS, logger)(handler)
	handler = middleware.SecurityHeaders(!cfg.IsDevelopment())(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.RequestLogging(logger)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(logger)(handler)
	return handler
}

func notFound(env string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		problem.Write(w, r, http.StatusNotFound, problem.TypeNotFound, "Not found", errors.New("no route for "+r.URL.Path), env,
			problem.WithDetail("resource not found"))
	})
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	allow := allowedMethods(handlers)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		if r.Method == http.MethodHead {
			if get, ok := handlers[http.MethodGet]; ok {
				get.ServeHTTP(w, r)
				return
			}
		}
		w.Header().Set("Allow", allow)
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
