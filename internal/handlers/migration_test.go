package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mwhitlock/tether/internal/handlers"
	"github.com/mwhitlock/tether/internal/models"
)

func TestMigrationHandler_MigrateSelf_Success(t *testing.T) {
	service := &handlers.MockMigrationRunner{
		MigrateUserDocumentFunc: func(ctx context.Context, providerID string) models.MigrationResult {
			assert.Equal(t, "user_123", providerID)
			return models.MigrationResult{Success: true, Message: "record migrated"}
		},
	}
	handler := handlers.NewMigrationHandler(service)

	req := handlers.NewTestRequest(t, "POST", "/account/migrate", nil)
	req = handlers.WithIdentityContext(req, "user_123")

	w := httptest.NewRecorder()
	handler.MigrateSelf(w, req)

	var resp models.MigrationResult
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.True(t, resp.Success)
}

func TestMigrationHandler_MigrateSelf_ExpectedFailureStaysInResult(t *testing.T) {
	handler := handlers.NewMigrationHandler(&handlers.MockMigrationRunner{})

	req := handlers.NewTestRequest(t, "POST", "/account/migrate", nil)
	req = handlers.WithIdentityContext(req, "user_123")

	w := httptest.NewRecorder()
	handler.MigrateSelf(w, req)

	var resp models.MigrationResult
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.False(t, resp.Success)
	assert.Equal(t, "no record exists for this user", resp.Message)
}

func TestMigrationHandler_MigrateSelf_NoIdentity(t *testing.T) {
	handler := handlers.NewMigrationHandler(&handlers.MockMigrationRunner{})

	req := handlers.NewTestRequest(t, "POST", "/account/migrate", nil)
	w := httptest.NewRecorder()
	handler.MigrateSelf(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestMigrationHandler_BatchMigrate_Success(t *testing.T) {
	service := &handlers.MockMigrationRunner{
		BatchMigrateFunc: func(ctx context.Context, callerID string, ids []string) (*models.BatchMigrationResult, error) {
			assert.Equal(t, "admin_1", callerID)
			assert.Equal(t, []string{"user_a", "user_b"}, ids)
			return &models.BatchMigrationResult{
				Total:    2,
				Migrated: 2,
				Results: map[string]models.MigrationResult{
					"user_a": {Success: true},
					"user_b": {Success: true},
				},
			}, nil
		},
	}
	handler := handlers.NewMigrationHandler(service)

	body := handlers.BatchMigrateRequest{IDs: []string{"user_a", "user_b"}}
	req := handlers.NewTestRequest(t, "POST", "/admin/migrations/batch", body)
	req = handlers.WithIdentityContext(req, "admin_1")

	w := httptest.NewRecorder()
	handler.BatchMigrate(w, req)

	var resp models.BatchMigrationResult
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 2, resp.Migrated)
}

func TestMigrationHandler_BatchMigrate_Forbidden(t *testing.T) {
	handler := handlers.NewMigrationHandler(&handlers.MockMigrationRunner{})

	body := handlers.BatchMigrateRequest{IDs: []string{"user_a"}}
	req := handlers.NewTestRequest(t, "POST", "/admin/migrations/batch", body)
	req = handlers.WithIdentityContext(req, "pleb_1")

	w := httptest.NewRecorder()
	handler.BatchMigrate(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestMigrationHandler_BatchMigrate_EmptyIDs(t *testing.T) {
	handler := handlers.NewMigrationHandler(&handlers.MockMigrationRunner{})

	body := handlers.BatchMigrateRequest{IDs: []string{}}
	req := handlers.NewTestRequest(t, "POST", "/admin/migrations/batch", body)
	req = handlers.WithIdentityContext(req, "admin_1")

	w := httptest.NewRecorder()
	handler.BatchMigrate(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestMigrationHandler_BatchMigrate_InvalidBody(t *testing.T) {
	handler := handlers.NewMigrationHandler(&handlers.MockMigrationRunner{})

	req := httptest.NewRequest("POST", "/admin/migrations/batch", nil)
	req = handlers.WithIdentityContext(req, "admin_1")

	w := httptest.NewRecorder()
	handler.BatchMigrate(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestMigrationHandler_Status_Success(t *testing.T) {
	service := &handlers.MockMigrationRunner{
		MigrationStatusFunc: func(ctx context.Context, callerID string) (*models.MigrationStatus, error) {
			return &models.MigrationStatus{Total: 10, Migrated: 7, NeedsMigration: 3, NeedsOnboarding: 2}, nil
		},
	}
	handler := handlers.NewMigrationHandler(service)

	req := handlers.NewTestRequest(t, "GET", "/admin/migrations/status", nil)
	req = handlers.WithIdentityContext(req, "admin_1")

	w := httptest.NewRecorder()
	handler.Status(w, req)

	var resp models.MigrationStatus
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, 10, resp.Total)
	assert.Equal(t, 3, resp.NeedsMigration)
}

func TestMigrationHandler_Status_Forbidden(t *testing.T) {
	handler := handlers.NewMigrationHandler(&handlers.MockMigrationRunner{})

	req := handlers.NewTestRequest(t, "GET", "/admin/migrations/status", nil)
	req = handlers.WithIdentityContext(req, "pleb_1")

	w := httptest.NewRecorder()
	handler.Status(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}
