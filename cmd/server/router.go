package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/macrofit/coach-api/internal/api"
	apiMiddleware "github.com/macrofit/coach-api/internal/api/middleware"
)

// setupRouter creates the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	operationHandler := api.NewOperationHandler(app.operationService)
	viewHandler := api.NewViewHandler(app.viewService)
	taskHandler := api.NewTaskHandler(app.registry)
	lifecycleHandler := api.NewLifecycleHandler(app.hooks)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/views/{view}/operations", operationHandler.Start)
		r.Get("/views/{view}/state", viewHandler.GetState)

		r.Get("/tasks", taskHandler.List)
		r.Delete("/tasks/{id}", taskHandler.Cancel)

		r.Post("/lifecycle/background", lifecycleHandler.Background)
		r.Post("/lifecycle/foreground", lifecycleHandler.Foreground)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
