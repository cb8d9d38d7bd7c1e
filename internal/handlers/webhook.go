package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/mwhitlock/tether/internal/models"
	"github.com/mwhitlock/tether/internal/webhook"
	pkghttp "github.com/mwhitlock/tether/pkg/http"
	pkglogger "github.com/mwhitlock/tether/pkg/logger"
)

// Payloads are small identity events; anything larger is hostile.
const maxWebhookBody = 1 << 20

// InitializationService defines the interface for the initialization engine
type InitializationService interface {
	InitializeUser(ctx context.Context, providerID string, snap models.IdentitySnapshot, isSignup bool) models.InitResult
	AccountStatus(ctx context.Context, providerID string) (*models.AccountStatus, error)
}

// SessionToucher stamps login activity on existing records
type SessionToucher interface {
	TouchSession(ctx context.Context, providerID string) error
}

// WebhookHandler ingests identity-provider lifecycle events. Processing is
// synchronous: a 200 means the backend record is consistent with the
// event, a 500 asks the provider to redeliver.
type WebhookHandler struct {
	verifier    *webhook.Verifier
	initService InitializationService
	sessions    SessionToucher
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(
	verifier *webhook.Verifier,
	initService InitializationService,
	sessions SessionToucher,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:    verifier,
		initService: initService,
		sessions:    sessions,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// Handle processes one webhook delivery
// @Summary Ingest identity-provider lifecycle event
// @Accept json
// @Produce json
// @Success 200
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /webhooks/identity [post]
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	deliveryID := r.Header.Get("webhook-id")
	timestamp := r.Header.Get("webhook-timestamp")
	signature := r.Header.Get("webhook-signature")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		pkghttp.WriteBadRequest(w, "unable to read request body")
		return
	}

	if err := h.verifier.Verify(deliveryID, timestamp, signature, body); err != nil {
		h.auditLogger.WebhookRejected(r.Context(), deliveryID, pkghttp.ExtractClientIP(r), err.Error())
		pkghttp.WriteBadRequest(w, "webhook verification failed")
		return
	}

	event, err := webhook.DecodeEvent(body)
	if err != nil {
		// Signed but malformed: redelivery cannot fix it, reject for good.
		h.logger.Warn("malformed webhook payload", slog.String("delivery_id", deliveryID), slog.Any("error", err))
		pkghttp.WriteBadRequest(w, "malformed event payload")
		return
	}

	switch event.Type {
	case webhook.EventUserCreated, webhook.EventUserUpdated:
		result := h.initService.InitializeUser(r.Context(), event.UserID, event.Snapshot, event.IsSignup())
		if !result.Success {
			// Leave the record inconsistent and the provider will redeliver.
			pkghttp.WriteInternalError(w, result.Message)
			return
		}

	case webhook.EventSessionCreated:
		err := h.sessions.TouchSession(r.Context(), event.UserID)
		if errors.Is(err, models.ErrNotFound) {
			// A created-event should always precede session events. This
			// inconsistency heals itself once that event is processed, so
			// log it and acknowledge.
			h.logger.Warn("session event for unknown user record",
				slog.String("delivery_id", deliveryID),
				slog.String("provider_id", event.UserID),
			)
		} else if err != nil {
			pkghttp.WriteInternalError(w, "failed to record session activity")
			return
		}

	case webhook.EventSessionRemoved:
		// Session teardown is owned by other cleanup; nothing persisted here.

	default:
		h.logger.Info("ignoring unhandled webhook event", slog.String("type", event.RawType))
	}

	h.auditLogger.WebhookProcessed(r.Context(), deliveryID, event.RawType, event.UserID)
	pkghttp.WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
