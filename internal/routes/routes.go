package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/mwhitlock/tether/internal/auth"
	"github.com/mwhitlock/tether/internal/handlers"
	"github.com/mwhitlock/tether/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	webhookHandler *handlers.WebhookHandler,
	sessionHandler *handlers.SessionHandler,
	migrationHandler *handlers.MigrationHandler,
	identityVerifier *auth.IdentityVerifier,
) {
	// Webhook endpoint - authenticated by signature, not session
	router.With(middleware.RateLimitByIP(middleware.DefaultWebhookRateLimit())).
		Post("/webhooks/identity", webhookHandler.Handle)

	// Endpoints requiring a live identity-provider session
	router.Group(func(r chi.Router) {
		r.Use(auth.RequireIdentity(identityVerifier))

		r.With(middleware.RateLimitByIP(middleware.DefaultSessionRateLimit())).
			Post("/session/credential", sessionHandler.Credential)
		r.Get("/account/status", sessionHandler.Status)
		r.Post("/account/migrate", migrationHandler.MigrateSelf)

		// Admin-only actions; the admin check runs against the caller's
		// own record inside the migration service.
		r.Post("/admin/migrations/batch", migrationHandler.BatchMigrate)
		r.Get("/admin/migrations/status", migrationHandler.Status)
	})
}
