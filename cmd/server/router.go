package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/taskflow-api/internal/api"
	apiMiddleware "github.com/phrazzld/taskflow-api/internal/api/middleware"
)

// setupRouter creates the router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware(app.logger))
	if app.limiter != nil {
		r.Use(apiMiddleware.RateLimit(app.limiter))
	}

	authHandler := api.NewAuthHandler(app.userService, app.logger)
	taskHandler := api.NewTaskHandler(app.queryService, app.lifecycleService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.userService)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register", authHandler.Register)
		r.Post("/users/login", authHandler.Login)
		r.Post("/users/refresh", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Route("/tasks", func(r chi.Router) {
				r.Post("/", taskHandler.CreateTask)
				r.Get("/", taskHandler.ListTasks)
				r.Get("/{taskID}", taskHandler.GetTask)
				r.Put("/{taskID}", taskHandler.UpdateTask)
				r.Delete("/{taskID}", taskHandler.DeleteTask)
				r.Post("/{taskID}/share", taskHandler.ShareTask)
			})
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", slog.String("error", err.Error()))
		}
	})

	return r
}
