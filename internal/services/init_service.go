package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dario.cat/mergo"

	"github.com/mwhitlock/tether/internal/models"
)

// RecordRepository defines the interface for user record access
type RecordRepository interface {
	Get(ctx context.Context, providerID string) (*models.UserRecord, error)
	Exists(ctx context.Context, providerID string) (bool, error)
	Apply(ctx context.Context, providerID string, updates []models.FieldUpdate) error
	List(ctx context.Context, limit, offset int) ([]*models.UserRecord, error)
	ClearExpiredCredentials(ctx context.Context) (int64, error)
}

// InitService materializes and updates the canonical user record from
// identity-provider snapshots. Every pass is an idempotent merge-upsert:
// re-running it on webhook redelivery converges to the same state.
type InitService struct {
	repo       RecordRepository
	migrations *MigrationService
	logger     *slog.Logger
}

// NewInitService creates a new InitService
func NewInitService(repo RecordRepository, migrations *MigrationService, logger *slog.Logger) *InitService {
	return &InitService{
		repo:       repo,
		migrations: migrations,
		logger:     logger,
	}
}

// InitializeUser merges the identity snapshot into the stored record,
// creating it when absent. Existing non-empty fields are never clobbered
// by empty incoming values; incoming non-empty values overwrite. Expected
// failures come back through the result, never as a panic or error across
// the boundary.
func (s *InitService) InitializeUser(ctx context.Context, providerID string, snap models.IdentitySnapshot, isSignup bool) models.InitResult {
	existing, err := s.repo.Get(ctx, providerID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to load user record", slog.String("provider_id", providerID), slog.Any("error", err))
		return models.InitResult{Success: false, Message: "failed to load user record"}
	}
	exists := err == nil

	// A record without the isInitialized key predates the canonical
	// schema; migrate it first and merge onto the migrated result.
	if exists && existing.IsLegacy() {
		migration := s.migrations.MigrateUserDocument(ctx, providerID)
		if !migration.Success {
			return models.InitResult{Success: false, Message: migration.Message}
		}

		existing, err = s.repo.Get(ctx, providerID)
		if err != nil {
			s.logger.Error("failed to reload migrated record", slog.String("provider_id", providerID), slog.Any("error", err))
			return models.InitResult{Success: false, Message: "failed to reload migrated record"}
		}
	}

	merged := models.IdentitySnapshot{}
	legacyName := ""
	if exists {
		merged = existing.Identity()
		legacyName = existing.LegacyName
	}
	if err := mergo.Merge(&merged, snap, mergo.WithOverride); err != nil {
		s.logger.Error("failed to merge identity snapshot", slog.String("provider_id", providerID), slog.Any("error", err))
		return models.InitResult{Success: false, Message: "failed to merge identity snapshot"}
	}

	missing := merged.MissingFields()
	initialized := len(missing) == 0
	now := time.Now().UTC()

	updates := []models.FieldUpdate{
		models.SetNonEmpty(models.FieldEmail, merged.Email),
		models.SetNonEmpty(models.FieldFirstName, merged.FirstName),
		models.SetNonEmpty(models.FieldLastName, merged.LastName),
		models.SetNonEmpty(models.FieldUsername, merged.Username),
		models.Set("computedName", models.ComputeDisplayName(merged.FirstName, merged.LastName, legacyName)),
		models.Set("isInitialized", initialized),
		models.Set("lastUpdated", now),
	}

	// Creation stamps are written once. A redelivered signup event finds
	// them present and leaves them alone.
	if !exists || (isSignup && existing.CreatedAt == nil) {
		updates = append(updates,
			models.Set("createdAt", now),
			models.Set("registrationDate", now),
		)
	}
	if !exists {
		updates = append(updates, models.Set("planType", models.PlanStarter))
	}

	if err := s.repo.Apply(ctx, providerID, updates); err != nil {
		s.logger.Error("failed to write user record", slog.String("provider_id", providerID), slog.Any("error", err))
		return models.InitResult{Success: false, Message: "failed to write user record"}
	}

	s.logger.Info("user record initialized",
		slog.String("provider_id", providerID),
		slog.Bool("is_signup", isSignup),
		slog.Bool("needs_onboarding", !initialized),
	)

	return models.InitResult{
		Success:         true,
		NeedsOnboarding: !initialized,
		MissingFields:   missing,
	}
}

// AccountStatus reports whether the record exists and is initialized; this
// backs the endpoint the client-side access gate polls.
func (s *InitService) AccountStatus(ctx context.Context, providerID string) (*models.AccountStatus, error) {
	record, err := s.repo.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return &models.AccountStatus{Exists: false, NeedsOnboarding: true}, nil
		}
		s.logger.Error("failed to load user record", slog.String("provider_id", providerID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Legacy records report as needing onboarding until migrated; the
	// self-migration action fixes them up on first access.
	return &models.AccountStatus{
		Exists:          true,
		Initialized:     record.Initialized(),
		NeedsOnboarding: record.IsLegacy() || record.NeedsOnboarding(),
		MissingFields:   record.MissingFields(),
	}, nil
}
