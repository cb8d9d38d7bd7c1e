package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/mwhitlock/tether/internal/auth"
	"github.com/mwhitlock/tether/internal/models"
	pkghttp "github.com/mwhitlock/tether/pkg/http"
)

// CredentialProvider defines the interface for session credential issuance
type CredentialProvider interface {
	EnsureCredential(ctx context.Context, providerID string) (string, error)
}

// SessionHandler serves the backend-session surface clients bootstrap
// from: credential issuance and record readiness.
type SessionHandler struct {
	credentials CredentialProvider
	initService InitializationService
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(credentials CredentialProvider, initService InitializationService) *SessionHandler {
	return &SessionHandler{
		credentials: credentials,
		initService: initService,
	}
}

// CredentialResponse carries a minted or reused session credential
type CredentialResponse struct {
	Credential string `json:"credential"`
}

// Credential returns a valid backend session credential for the caller
// @Summary Obtain backend session credential
// @Security BearerAuth
// @Produce json
// @Success 200 {object} CredentialResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /session/credential [post]
func (h *SessionHandler) Credential(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	credential, err := h.credentials.EnsureCredential(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "user record not found")
			return
		}
		pkghttp.WriteInternalError(w, "internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, CredentialResponse{Credential: credential})
}

// Status reports record existence and onboarding state for the caller
// @Summary Get account readiness
// @Security BearerAuth
// @Produce json
// @Success 200 {object} models.AccountStatus
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /account/status [get]
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetIdentityFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	status, err := h.initService.AccountStatus(r.Context(), claims.Subject)
	if err != nil {
		pkghttp.WriteInternalError(w, "internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, status)
}
