package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/mwhitlock/tether/internal/models"

	pkglogger "github.com/mwhitlock/tether/pkg/logger"
)

const statusPageSize = 500

// MigrationService transforms legacy records (written before the canonical
// schema) into canonical ones. Migration is idempotent: a record that
// already carries the isInitialized key is left untouched.
type MigrationService struct {
	repo        RecordRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewMigrationService creates a new MigrationService
func NewMigrationService(repo RecordRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *MigrationService {
	return &MigrationService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// MigrateUserDocument transforms one legacy record. It fails fast when no
// record exists (migration never creates records from nothing) and is a
// no-op on canonical records.
func (s *MigrationService) MigrateUserDocument(ctx context.Context, providerID string) models.MigrationResult {
	record, err := s.repo.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.MigrationResult{Success: false, Message: "no record exists for this user"}
		}
		s.logger.Error("failed to load user record", slog.String("provider_id", providerID), slog.Any("error", err))
		return models.MigrationResult{Success: false, Message: "failed to load user record"}
	}

	if !record.IsLegacy() {
		return models.MigrationResult{
			Success:         true,
			Message:         "record already migrated",
			NeedsOnboarding: record.NeedsOnboarding(),
		}
	}

	firstName, lastName := splitLegacyName(record.LegacyName)
	if record.FirstName != "" {
		firstName = record.FirstName
	}
	if record.LastName != "" {
		lastName = record.LastName
	}

	identity := models.IdentitySnapshot{
		Email:     record.Email,
		FirstName: firstName,
		LastName:  lastName,
		Username:  record.Username,
	}
	missing := identity.MissingFields()
	now := time.Now().UTC()

	updates := []models.FieldUpdate{
		models.SetNonEmpty(models.FieldFirstName, firstName),
		models.SetNonEmpty(models.FieldLastName, lastName),
		models.Set("computedName", models.ComputeDisplayName(firstName, lastName, record.LegacyName)),
		models.Set("isInitialized", len(missing) == 0),
		// Migration runs because the user is actively accessing the
		// system, so this counts as a login.
		models.Set("lastLogin", now),
		models.Set("lastUpdated", now),
		// The pre-canonical raw credential field is retired. Deletion has
		// to be explicit: a merge can never remove a key.
		models.Delete("apiToken"),
	}

	if record.PlanType == "" {
		updates = append(updates, models.Set("planType", models.PlanStarter))
	}
	if record.CreatedAt == nil {
		updates = append(updates, models.Set("createdAt", now))
	}
	if record.RegistrationDate == nil {
		updates = append(updates, models.Set("registrationDate", now))
	}

	if err := s.repo.Apply(ctx, providerID, updates); err != nil {
		s.logger.Error("failed to write migrated record", slog.String("provider_id", providerID), slog.Any("error", err))
		return models.MigrationResult{Success: false, Message: "failed to write migrated record"}
	}

	s.logger.Info("user record migrated",
		slog.String("provider_id", providerID),
		slog.Bool("needs_onboarding", len(missing) > 0),
	)

	return models.MigrationResult{
		Success:         true,
		Message:         "record migrated",
		NeedsOnboarding: len(missing) > 0,
	}
}

// BatchMigrate runs MigrateUserDocument over many ids sequentially. Each
// id fails independently; the batch never aborts. Admin only.
func (s *MigrationService) BatchMigrate(ctx context.Context, callerID string, ids []string) (*models.BatchMigrationResult, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	result := &models.BatchMigrationResult{
		Total:   len(ids),
		Results: make(map[string]models.MigrationResult, len(ids)),
	}

	for _, id := range ids {
		outcome := s.MigrateUserDocument(ctx, id)
		result.Results[id] = outcome
		if outcome.Success {
			result.Migrated++
		} else {
			result.Failed++
		}
	}

	s.auditLogger.AdminAction(ctx, callerID, "batch_migrate",
		slog.Int("total", result.Total),
		slog.Int("migrated", result.Migrated),
		slog.Int("failed", result.Failed),
	)

	return result, nil
}

// MigrationStatus scans all records and classifies each by presence and
// value of the isInitialized key. Admin only.
func (s *MigrationService) MigrationStatus(ctx context.Context, callerID string) (*models.MigrationStatus, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}

	status := &models.MigrationStatus{}

	for offset := 0; ; offset += statusPageSize {
		page, err := s.repo.List(ctx, statusPageSize, offset)
		if err != nil {
			s.logger.Error("failed to scan user records", slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		for _, record := range page {
			status.Total++
			if record.IsLegacy() {
				status.NeedsMigration++
				continue
			}
			status.Migrated++
			if !record.Initialized() {
				status.NeedsOnboarding++
			}
		}

		if len(page) < statusPageSize {
			break
		}
	}

	return status, nil
}

func (s *MigrationService) requireAdmin(ctx context.Context, callerID string) error {
	caller, err := s.repo.Get(ctx, callerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrForbidden
		}
		s.logger.Error("failed to load caller record", slog.String("provider_id", callerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !caller.IsAdmin {
		s.logger.Info("admin action denied", slog.String("provider_id", callerID))
		return models.ErrForbidden
	}

	return nil
}

// splitLegacyName breaks a single display-name field on the first space.
// Both halves are empty when the name is.
func splitLegacyName(name string) (firstName, lastName string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}

	first, rest, found := strings.Cut(name, " ")
	if !found {
		return first, ""
	}
	return first, strings.TrimSpace(rest)
}
