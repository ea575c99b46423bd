// Package api assembles the HTTP router: middleware chain, route table
// and the handler wiring around one shared store and permission
// resolver.
package api

import (
	"fmt"
	"net/http"
	"time"

	"taskboard-backend/pkg/config"
	"taskboard-backend/pkg/database"
	"taskboard-backend/pkg/handlers"
	"taskboard-backend/pkg/lifecycle"
	custommw "taskboard-backend/pkg/middleware"
	"taskboard-backend/pkg/permissions"
	"taskboard-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// NewRouter builds the complete router over the given store.
func NewRouter(cfg *config.Config, store database.Store, log zerolog.Logger) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, cfg, log)
	setupRoutes(router, cfg, store, log)
	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config, log zerolog.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(custommw.RequestLogger(log))
	router.Use(custommw.Recovery(log))
	router.Use(custommw.CORS(cfg))
	router.Use(middleware.Timeout(25 * time.Second))
	router.Use(middleware.Compress(5))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, cfg *config.Config, store database.Store, log zerolog.Logger) {
	resolver := permissions.NewResolver(store, cfg.AdminTeamID)
	lc := lifecycle.New(store, resolver, log)

	authHandler := handlers.NewAuthHandler(cfg, store)
	usersHandler := handlers.NewUsersHandler(cfg, store, resolver)
	teamsHandler := handlers.NewTeamsHandler(cfg, store, resolver)
	statusesHandler := handlers.NewStatusesHandler(cfg, store, resolver)
	issuesHandler := handlers.NewIssuesHandler(cfg, store, resolver, lc)

	router.Get("/", authHandler.HealthCheck)

	router.Route("/api", func(r chi.Router) {
		// Public routes
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.RefreshToken)
		})

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(custommw.AuthMiddleware(cfg))

			r.Route("/user", func(r chi.Router) {
				r.Get("/me", usersHandler.GetMe)
				r.Get("/permissions", usersHandler.GetMyPermissions)
				r.Get("/organization", usersHandler.GetMyOrganization)
			})

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", teamsHandler.List)
				r.Post("/", teamsHandler.Create)
				r.Get("/{id}", teamsHandler.Get)
				r.Put("/{id}", teamsHandler.Update)
				r.Delete("/{id}", teamsHandler.Delete)
				r.Get("/{id}/ancestors", teamsHandler.Ancestors)

				r.Get("/{id}/members", teamsHandler.ListMembers)
				r.Post("/{id}/members", teamsHandler.AddMember)
				r.Delete("/{id}/members/{userID}", teamsHandler.RemoveMember)

				r.Get("/{id}/statuses", statusesHandler.ListByTeam)
				r.Post("/{id}/statuses", statusesHandler.Create)
			})

			r.Route("/statuses", func(r chi.Router) {
				r.Put("/{id}", statusesHandler.Update)
				r.Delete("/{id}", statusesHandler.Delete)
			})

			r.Route("/issues", func(r chi.Router) {
				r.Get("/", issuesHandler.List) // expects ?team_id=
				r.Post("/", issuesHandler.Create)
				r.Get("/{id}", issuesHandler.GetByID)
				r.Put("/{id}", issuesHandler.Update)
				r.Delete("/{id}", issuesHandler.Delete)

				r.Post("/{id}/status", issuesHandler.UpdateStatus)
				r.Post("/{id}/hold", issuesHandler.Hold)
				r.Post("/{id}/resume", issuesHandler.Resume)
				r.Post("/{id}/assignments", issuesHandler.Assign)
				r.Get("/{id}/activities", issuesHandler.Activities)
			})
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
