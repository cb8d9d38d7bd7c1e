package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mwhitlock/tether/internal/auth"
	"github.com/mwhitlock/tether/internal/models"
)

// CredentialService hands out backend session credentials, reminting when
// the stored one is missing or inside the refresh buffer.
type CredentialService struct {
	repo          RecordRepository
	minter        *auth.CredentialMinter
	refreshBuffer time.Duration
	logger        *slog.Logger
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(repo RecordRepository, minter *auth.CredentialMinter, refreshBuffer time.Duration, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		repo:          repo,
		minter:        minter,
		refreshBuffer: refreshBuffer,
		logger:        logger,
	}
}

// EnsureCredential returns a valid session credential for the user,
// minting and persisting a fresh one when the stored credential is absent
// or expires within the refresh buffer. The caller never observes a
// minted-but-unsaved credential: persistence happens before return.
func (s *CredentialService) EnsureCredential(ctx context.Context, providerID string) (string, error) {
	record, err := s.repo.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", models.ErrNotFound
		}
		s.logger.Error("failed to load user record", slog.String("provider_id", providerID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if record.SessionCredential != "" && !s.minter.ExpiresWithin(record.SessionCredential, s.refreshBuffer) {
		return record.SessionCredential, nil
	}

	credential, expiresAt, err := s.minter.Mint(providerID)
	if err != nil {
		s.logger.Error("failed to mint session credential", slog.String("provider_id", providerID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	now := time.Now().UTC()
	updates := []models.FieldUpdate{
		models.Set("sessionCredential", credential),
		models.Set("credentialExpiresAt", expiresAt.UTC()),
		models.Set("lastTokenRefresh", now),
		models.Set("lastUpdated", now),
	}

	if err := s.repo.Apply(ctx, providerID, updates); err != nil {
		s.logger.Error("failed to persist session credential", slog.String("provider_id", providerID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("session credential minted", slog.String("provider_id", providerID))
	return credential, nil
}

// TouchSession stamps login activity on an existing record. It does not
// create records: a session event for an unknown user is an inconsistency
// the caller logs and leaves for the creation event to heal.
func (s *CredentialService) TouchSession(ctx context.Context, providerID string) error {
	exists, err := s.repo.Exists(ctx, providerID)
	if err != nil {
		s.logger.Error("failed to check user record", slog.String("provider_id", providerID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !exists {
		return models.ErrNotFound
	}

	now := time.Now().UTC()
	updates := []models.FieldUpdate{
		models.Set("lastLogin", now),
		models.Set("lastTokenRefresh", now),
		models.Set("lastUpdated", now),
	}

	if err := s.repo.Apply(ctx, providerID, updates); err != nil {
		s.logger.Error("failed to stamp session activity", slog.String("provider_id", providerID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}
