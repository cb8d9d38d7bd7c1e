package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mwhitlock/tether/internal/auth"
	"github.com/mwhitlock/tether/internal/background"
	"github.com/mwhitlock/tether/internal/config"
	"github.com/mwhitlock/tether/internal/database"
	"github.com/mwhitlock/tether/internal/handlers"
	middlewareCustom "github.com/mwhitlock/tether/internal/middleware"
	"github.com/mwhitlock/tether/internal/repositories"
	"github.com/mwhitlock/tether/internal/routes"
	"github.com/mwhitlock/tether/internal/services"
	"github.com/mwhitlock/tether/internal/webhook"
	pkglogger "github.com/mwhitlock/tether/pkg/logger"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Initialize repository
	recordRepo := repositories.NewRecordRepository(db)

	// Webhook signature verification
	verifier, err := webhook.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.Tolerance)
	if err != nil {
		logger.Error("failed to initialize webhook verifier", slog.Any("error", err))
		os.Exit(1)
	}

	// Identity-provider session verification
	identityVerifier := auth.NewIdentityVerifier(cfg.Provider.SessionSecret, cfg.Provider.Issuer)

	// Credential minting
	minter := auth.NewCredentialMinter(cfg.Credential.Secret, cfg.Credential.TTL)

	// Audit logging for webhook and admin decisions
	auditLogger := pkglogger.NewAuditLogger(logger)

	// Initialize services
	migrationService := services.NewMigrationService(recordRepo, logger, auditLogger)
	initService := services.NewInitService(recordRepo, migrationService, logger)
	credentialService := services.NewCredentialService(recordRepo, minter, cfg.Credential.RefreshBuffer, logger)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(verifier, initService, credentialService, logger, auditLogger)
	sessionHandler := handlers.NewSessionHandler(credentialService, initService)
	migrationHandler := handlers.NewMigrationHandler(migrationService)

	// Expired-credential sweeper
	sweeper := background.NewCredentialSweeper(recordRepo, logger, cfg.Credential.SweepInterval)

	// Setup CORS middleware
	corsConfig := middlewareCustom.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.Server.AllowedOrigins

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.CORS(corsConfig))
	router.Use(middlewareCustom.SecureLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// Register routes
	routes.RegisterRoutes(router, webhookHandler, sessionHandler, migrationHandler, identityVerifier)

	// Health check with database
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start sweeper
	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	defer sweepCancel()

	go sweeper.Start(sweepCtx)

	// Start server
	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	sweepCancel()
	sweeper.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
