// Package http provides the inbound HTTP adapter: the pipeline host, routing
// and server lifecycle.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jsamuelsen11/showexceptions/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/showexceptions/internal/pipeline"
)

// Routes maps each demo path to the pipeline application served there.
var Routes = []struct {
	Path string
	App  func() pipeline.Handler
}{
	{"/", handlers.Hello},
	{"/env", handlers.ShowEnvironment},
	{"/fault", handlers.Fault},
	{"/panic", handlers.Panic},
	{"/stream-fault", handlers.StreamFault},
	{"/late-panic", handlers.LatePanic},
	{"/slow", handlers.Stall},
}

// NewRouter creates an HTTP handler with all routes registered.
//
// Health endpoints are plain HTTP handlers. Every other route is a pipeline
// application wrapped with pipelineMiddleware (first is outermost) and served
// through Host. HTTP middleware is applied globally in the order given.
func NewRouter(
	healthHandler *handlers.HealthHandler,
	pipelineMiddleware []pipeline.Middleware,
	middlewares ...func(http.Handler) http.Handler,
) http.Handler {
	r := chi.NewRouter()

	for _, mw := range middlewares {
		r.Use(mw)
	}

	r.Get("/health/live", healthHandler.Liveness)
	r.Get("/health/ready", healthHandler.Readiness)

	for _, route := range Routes {
		r.Method(http.MethodGet, route.Path, Host(pipeline.Chain(route.App(), pipelineMiddleware...)))
	}

	return r
}
