package rest

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	errors "github.com/frahmantamala/support-ticketing/internal"
	"github.com/frahmantamala/support-ticketing/internal/attachment"
	"github.com/frahmantamala/support-ticketing/internal/auth"
	"github.com/frahmantamala/support-ticketing/internal/category"
	"github.com/frahmantamala/support-ticketing/internal/comment"
	"github.com/frahmantamala/support-ticketing/internal/dashboard"
	"github.com/frahmantamala/support-ticketing/internal/search"
	"github.com/frahmantamala/support-ticketing/internal/ticket"
	"github.com/frahmantamala/support-ticketing/internal/transport"
	"github.com/frahmantamala/support-ticketing/internal/transport/middleware"
	"github.com/frahmantamala/support-ticketing/internal/transport/swagger"
	"github.com/frahmantamala/support-ticketing/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

const APIPrefix = "/api/v1"

type Handlers struct {
	Auth       *auth.Handler
	Users      *user.Handler
	Categories *category.Handler
	Tickets    *ticket.Handler
	Comments   *comment.Handler
	Files      *attachment.Handler
	Dashboard  *dashboard.Handler
	Search     *search.Handler
}

type Options struct {
	AllowedOrigins string
	RequestTimeout time.Duration
	OpenAPIPath    string
}

// RegisterAllRoutes mounts the API under /api/v1. Every route except login,
// health and the API docs requires a bearer token; authorization itself is
// decided by the services.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, opts Options, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS(opts.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	base := transport.NewBaseHandler(logger)
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		base.HandleServiceError(w, errors.NewNotFoundError("route not found", errors.ErrCodeNotFound))
	})

	// Serve the OpenAPI document at root (outside API prefix)
	router.Get("/openapi.yml", swagger.SpecHandler(opts.OpenAPIPath))
	router.Handle("/swagger/*", swagger.Handler())

	router.Route(APIPrefix, func(r chi.Router) {
		if opts.RequestTimeout > 0 {
			r.Use(chiMiddleware.Timeout(opts.RequestTimeout))
		}

		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Post("/auth/login", h.Auth.Login)

		// Protected routes that require authentication
		r.Group(func(pr chi.Router) {
			pr.Use(h.Auth.AuthMiddleware)

			pr.Get("/auth/me", h.Users.GetProfile)
			pr.Post("/auth/change-password", h.Auth.ChangePassword)
			pr.Post("/auth/logout", h.Auth.Logout)
			pr.Post("/auth/register", h.Users.Register)

			pr.Get("/users", h.Users.ListUsers)
			pr.Get("/users/profile", h.Users.GetProfile)
			pr.Put("/users/profile", h.Users.UpdateProfile)
			pr.Get("/users/{id}", h.Users.GetUser)
			pr.Put("/users/{id}", h.Users.UpdateUser)
			pr.Delete("/users/{id}", h.Users.DeactivateUser)
			pr.Post("/users/{id}/reset-password", h.Users.ResetPassword)
			pr.Get("/users/{id}/comments", h.Comments.ListUserComments)
			pr.Get("/users/{id}/files", h.Files.ListUserFiles)

			pr.Get("/categories", h.Categories.GetCategories)
			pr.Post("/categories", h.Categories.CreateCategory)
			pr.Get("/categories/{id}", h.Categories.GetCategory)
			pr.Put("/categories/{id}", h.Categories.UpdateCategory)
			pr.Post("/categories/{id}/activate", h.Categories.ActivateCategory)
			pr.Post("/categories/{id}/deactivate", h.Categories.DeactivateCategory)

			pr.Get("/tickets", h.Tickets.ListTickets)
			pr.Post("/tickets", h.Tickets.CreateTicket)
			pr.Get("/tickets/stats", h.Tickets.GetStats)
			pr.Get("/tickets/{id}", h.Tickets.GetTicket)
			pr.Put("/tickets/{id}", h.Tickets.UpdateTicket)
			pr.Delete("/tickets/{id}", h.Tickets.DeleteTicket)

			pr.Get("/tickets/{id}/comments", h.Comments.ListTicketComments)
			pr.Post("/tickets/{id}/comments", h.Comments.AddComment)
			pr.Get("/comments/{id}", h.Comments.GetComment)
			pr.Put("/comments/{id}", h.Comments.UpdateComment)
			pr.Delete("/comments/{id}", h.Comments.DeleteComment)

			pr.Post("/tickets/{id}/files", h.Files.UploadFile)
			pr.Get("/tickets/{id}/files", h.Files.ListTicketFiles)
			pr.Get("/files/stats", h.Files.FileStats)
			pr.Get("/files/{id}", h.Files.GetFile)
			pr.Get("/files/{id}/download", h.Files.DownloadFile)
			pr.Delete("/files/{id}", h.Files.DeleteFile)

			pr.Get("/dashboard/stats", h.Dashboard.GetStats)
			pr.Get("/dashboard/charts", h.Dashboard.GetCharts)
			pr.Get("/dashboard/activity", h.Dashboard.GetActivity)
			pr.Get("/dashboard/summary", h.Dashboard.GetSummary)

			pr.Get("/search/tickets", h.Search.SearchTickets)
			pr.Get("/search/tickets/advanced", h.Search.AdvancedSearch)
			pr.Get("/search/suggestions", h.Search.Suggestions)
			pr.Get("/search/filters", h.Search.FilterOptions)
		})
	})
}
