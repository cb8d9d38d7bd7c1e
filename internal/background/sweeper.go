package background

import (
	"context"
	"log/slog"
	"time"
)

// CredentialStore is the slice of the record repository the sweeper needs
type CredentialStore interface {
	ClearExpiredCredentials(ctx context.Context) (int64, error)
}

// CredentialSweeper periodically clears expired session credentials from
// user records, so the next protected access mints a fresh one instead of
// presenting a dead token.
type CredentialSweeper struct {
	store    CredentialStore
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewCredentialSweeper creates a new credential sweeper
func NewCredentialSweeper(store CredentialStore, logger *slog.Logger, interval time.Duration) *CredentialSweeper {
	return &CredentialSweeper{
		store:    store,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (cs *CredentialSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(cs.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cs.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			cs.runSweep(ctx)
		case <-cs.stopCh:
			cs.logger.Info("credential sweeper stopped")
			return
		case <-ctx.Done():
			cs.logger.Info("credential sweeper context cancelled")
			return
		}
	}
}

func (cs *CredentialSweeper) runSweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cleared, err := cs.store.ClearExpiredCredentials(sweepCtx)
	if err != nil {
		cs.logger.Error("failed to clear expired credentials", slog.Any("error", err))
		return
	}

	if cleared > 0 {
		cs.logger.Info("expired credentials cleared", slog.Int64("records", cleared))
	}
}

// Stop signals the sweeper to stop
func (cs *CredentialSweeper) Stop() {
	close(cs.stopCh)
}
