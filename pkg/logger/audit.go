package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditLogger records security-relevant decisions: webhook verification
// outcomes and admin actions.
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// WebhookRejected logs a delivery that failed signature verification.
// These are fatal, non-retryable rejections and worth tracking: a burst of
// them usually means a misconfigured secret or a forgery attempt.
func (al *AuditLogger) WebhookRejected(ctx context.Context, deliveryID, remoteAddr, reason string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "webhook"),
		slog.String("event_type", "verification_failed"),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if deliveryID != "" {
		attrs = append(attrs, slog.String("delivery_id", deliveryID))
	}
	if remoteAddr != "" {
		attrs = append(attrs, slog.String("remote_addr", remoteAddr))
	}
	if reason != "" {
		attrs = append(attrs, slog.String("reason", reason))
	}

	al.logger.LogAttrs(ctx, slog.LevelWarn, "audit", attrs...)
}

// WebhookProcessed logs a successfully handled delivery.
func (al *AuditLogger) WebhookProcessed(ctx context.Context, deliveryID, eventType, userID string) {
	attrs := []slog.Attr{
		slog.String("audit_type", "webhook"),
		slog.String("event_type", eventType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if deliveryID != "" {
		attrs = append(attrs, slog.String("delivery_id", deliveryID))
	}
	if userID != "" {
		attrs = append(attrs, slog.String("user_id", userID))
	}

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}

// AdminAction logs an admin-gated operation with arbitrary metadata.
func (al *AuditLogger) AdminAction(ctx context.Context, callerID, action string, metadata ...slog.Attr) {
	attrs := []slog.Attr{
		slog.String("audit_type", "admin"),
		slog.String("event_type", action),
		slog.String("caller_id", callerID),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	attrs = append(attrs, metadata...)

	al.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
}
