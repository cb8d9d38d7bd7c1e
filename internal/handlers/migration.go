package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mwhitlock/tether/internal/auth"
	"github.com/mwhitlock/tether/internal/models"
	pkghttp "github.com/mwhitlock/tether/pkg/http"
)

// MigrationRunner defines the interface for the migration engine
type MigrationRunner interface {
	MigrateUserDocument(ctx context.Context, providerID string) models.MigrationResult
	BatchMigrate(ctx context.Context, callerID string, ids []string) (*models.BatchMigrationResult, error)
	MigrationStatus(ctx context.Context, callerID string) (*models.MigrationStatus, error)
}

// MigrationHandler exposes the self-service and admin migration actions.
type MigrationHandler struct {
	service MigrationRunner
}

// NewMigrationHandler creates a new MigrationHandler
func NewMigrationHandler(service MigrationRunner) *MigrationHandler {
	return &MigrationHandler{service: service}
}

// BatchMigrateRequest represents the request body for batch migration
type BatchMigrateRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// MigrateSelf migrates the caller's own record to the canonical schema
// @Summary Migrate own user record
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.MigrationResult
// @Failure 401 {object} pkghttp.ErrorResponse
// @Router /account/migrate [post]
func (h *MigrationHandler) MigrateSelf(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	// Expected failures (no record, storage trouble) travel inside the
	// result so the client can retry or surface the message.
	result := h.service.MigrateUserDocument(r.Context(), claims.Subject)
	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// BatchMigrate migrates many records sequentially, admin only
// @Summary Batch migrate user records
// @Security BearerAuth
// @Accept json
// @Param request body BatchMigrateRequest true "Batch migrate request"
// @Produce json
// @Success 200 {object} models.BatchMigrationResult
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /admin/migrations/batch [post]
func (h *MigrationHandler) BatchMigrate(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req BatchMigrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.BatchMigrate(r.Context(), claims.Subject, req.IDs)
	if err != nil {
		if errors.Is(err, models.ErrForbidden) {
			pkghttp.WriteForbidden(w, "admin access required")
			return
		}
		pkghttp.WriteInternalError(w, "internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, result)
}

// Status classifies all records by migration state, admin only
// @Summary Get migration status
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.MigrationStatus
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /admin/migrations/status [get]
func (h *MigrationHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	status, err := h.service.MigrationStatus(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrForbidden) {
			pkghttp.WriteForbidden(w, "admin access required")
			return
		}
		pkghttp.WriteInternalError(w, "internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}
