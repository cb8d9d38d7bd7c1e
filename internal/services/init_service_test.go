package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mwhitlock/tether/internal/models"
	pkglogger "github.com/mwhitlock/tether/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestInitService(repo RecordRepository) *InitService {
	logger := testLogger()
	migrations := NewMigrationService(repo, logger, pkglogger.NewAuditLogger(logger))
	return NewInitService(repo, migrations, logger)
}

func TestInitService_InitializeUser_FreshSignup(t *testing.T) {
	repo := newMemoryRecordRepository()
	service := newTestInitService(repo)

	snap := models.IdentitySnapshot{
		Email:     "ada@example.com",
		FirstName: "Ada",
	}

	result := service.InitializeUser(context.Background(), "user_123", snap, true)

	assert.True(t, result.Success)
	assert.True(t, result.NeedsOnboarding)
	assert.ElementsMatch(t, []string{models.FieldLastName, models.FieldUsername}, result.MissingFields)

	record, err := repo.Get(context.Background(), "user_123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", record.Email)
	assert.Equal(t, "Ada", record.FirstName)
	assert.False(t, record.Initialized())
	assert.Equal(t, models.PlanStarter, record.PlanType)
	assert.NotNil(t, record.CreatedAt)
	assert.NotNil(t, record.RegistrationDate)
}

func TestInitService_InitializeUser_CompleteProfile(t *testing.T) {
	repo := newMemoryRecordRepository()
	service := newTestInitService(repo)

	snap := models.IdentitySnapshot{
		Email:     "grace@example.com",
		FirstName: "Grace",
		LastName:  "Hopper",
		Username:  "ghopper",
	}

	result := service.InitializeUser(context.Background(), "user_456", snap, true)

	assert.True(t, result.Success)
	assert.False(t, result.NeedsOnboarding)
	assert.Empty(t, result.MissingFields)

	record, err := repo.Get(context.Background(), "user_456")
	require.NoError(t, err)
	assert.True(t, record.Initialized())
	assert.Equal(t, "Grace Hopper", record.ComputedName)
}

func TestInitService_InitializeUser_EmptySnapshotFieldsNeverClobber(t *testing.T) {
	repo := newMemoryRecordRepository()
	service := newTestInitService(repo)

	full := models.IdentitySnapshot{
		Email:     "sam@example.com",
		FirstName: "Sam",
		LastName:  "Vimes",
		Username:  "svimes",
	}
	require.True(t, service.InitializeUser(context.Background(), "user_789", full, true).Success)

	// Update event arrives with only an email change.
	partial := models.IdentitySnapshot{Email: "sam.vimes@example.com"}
	result := service.InitializeUser(context.Background(), "user_789", partial, false)

	assert.True(t, result.Success)
	assert.False(t, result.NeedsOnboarding)

	record, err := repo.Get(context.Background(), "user_789")
	require.NoError(t, err)
	assert.Equal(t, "sam.vimes@example.com", record.Email)
	assert.Equal(t, "Sam", record.FirstName)
	assert.Equal(t, "Vimes", record.LastName)
	assert.Equal(t, "svimes", record.Username)
}

func TestInitService_InitializeUser_RedeliveredSignupIsIdempotent(t *testing.T) {
	repo := newMemoryRecordRepository()
	service := newTestInitService(repo)

	snap := models.IdentitySnapshot{
		Email:     "dot@example.com",
		FirstName: "Dot",
		LastName:  "Warner",
		Username:  "dot",
	}

	first := service.InitializeUser(context.Background(), "user_dup", snap, true)
	require.True(t, first.Success)

	before, err := repo.Get(context.Background(), "user_dup")
	require.NoError(t, err)

	second := service.InitializeUser(context.Background(), "user_dup", snap, true)
	assert.True(t, second.Success)
	assert.Equal(t, first.NeedsOnboarding, second.NeedsOnboarding)

	after, err := repo.Get(context.Background(), "user_dup")
	require.NoError(t, err)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.Equal(t, before.RegistrationDate, after.RegistrationDate)
	assert.Equal(t, before.PlanType, after.PlanType)
}

func TestInitService_InitializeUser_LegacyRecordMigratedFirst(t *testing.T) {
	repo := newMemoryRecordRepository()
	service := newTestInitService(repo)

	// Legacy document: no isInitialized key, combined name, raw token.
	repo.seed("user_legacy", map[string]any{
		"email":    "old@example.com",
		"name":     "Old Timer",
		"apiToken": "raw-legacy-token",
	})

	snap := models.IdentitySnapshot{Email: "old@example.com", Username: "oldtimer"}
	result := service.InitializeUser(context.Background(), "user_legacy", snap, false)

	assert.True(t, result.Success)
	assert.False(t, result.NeedsOnboarding)

	record, err := repo.Get(context.Background(), "user_legacy")
	require.NoError(t, err)
	assert.False(t, record.IsLegacy())
	assert.Equal(t, "Old", record.FirstName)
	assert.Equal(t, "Timer", record.LastName)
	assert.Equal(t, "oldtimer", record.Username)
	assert.Empty(t, record.LegacyAPIToken)
}

func TestInitService_InitializeUser_StorageFailure(t *testing.T) {
	repo := &MockRecordRepository{
		GetFunc: func(ctx context.Context, providerID string) (*models.UserRecord, error) {
			return nil, models.ErrNotFound
		},
		ApplyFunc: func(ctx context.Context, providerID string, updates []models.FieldUpdate) error {
			return errors.New("connection refused")
		},
	}
	service := newTestInitService(repo)

	result := service.InitializeUser(context.Background(), "user_x", models.IdentitySnapshot{Email: "x@example.com"}, true)

	assert.False(t, result.Success)
	assert.Equal(t, "failed to write user record", result.Message)
}

func TestInitService_InitializeUser_LoadFailure(t *testing.T) {
	repo := &MockRecordRepository{
		GetFunc: func(ctx context.Context, providerID string) (*models.UserRecord, error) {
			return nil, errors.New("connection refused")
		},
	}
	service := newTestInitService(repo)

	result := service.InitializeUser(context.Background(), "user_x", models.IdentitySnapshot{}, false)

	assert.False(t, result.Success)
	assert.Equal(t, "failed to load user record", result.Message)
}

func TestInitService_AccountStatus(t *testing.T) {
	t.Run("missing record", func(t *testing.T) {
		service := newTestInitService(&MockRecordRepository{})

		status, err := service.AccountStatus(context.Background(), "nobody")
		require.NoError(t, err)
		assert.False(t, status.Exists)
		assert.True(t, status.NeedsOnboarding)
	})

	t.Run("initialized record", func(t *testing.T) {
		repo := newMemoryRecordRepository()
		service := newTestInitService(repo)

		snap := models.IdentitySnapshot{
			Email:     "a@example.com",
			FirstName: "A",
			LastName:  "B",
			Username:  "ab",
		}
		require.True(t, service.InitializeUser(context.Background(), "user_ok", snap, true).Success)

		status, err := service.AccountStatus(context.Background(), "user_ok")
		require.NoError(t, err)
		assert.True(t, status.Exists)
		assert.True(t, status.Initialized)
		assert.False(t, status.NeedsOnboarding)
	})

	t.Run("legacy record needs onboarding", func(t *testing.T) {
		repo := newMemoryRecordRepository()
		service := newTestInitService(repo)

		repo.seed("user_old", map[string]any{
			"email": "old@example.com",
			"name":  "Old Timer",
		})

		status, err := service.AccountStatus(context.Background(), "user_old")
		require.NoError(t, err)
		assert.True(t, status.Exists)
		assert.True(t, status.NeedsOnboarding)
	})

	t.Run("storage failure", func(t *testing.T) {
		service := newTestInitService(&MockRecordRepository{
			GetFunc: func(ctx context.Context, providerID string) (*models.UserRecord, error) {
				return nil, errors.New("connection refused")
			},
		})

		_, err := service.AccountStatus(context.Background(), "user_x")
		assert.ErrorIs(t, err, models.ErrInternalServer)
	})
}
