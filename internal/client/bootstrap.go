package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrBootstrapInFlight means another bootstrap attempt is already
	// running; the caller should wait for it to resolve.
	ErrBootstrapInFlight = errors.New("session bootstrap already in progress")
	// ErrBootstrapAttempted means the single automatic attempt has been
	// spent; a retry must come from the user or navigation, via Retry.
	ErrBootstrapAttempted = errors.New("session bootstrap already attempted")
)

// CredentialSource obtains a backend session credential
type CredentialSource interface {
	Credential(ctx context.Context) (string, error)
}

// EstablishFunc installs a minted credential as the active backend
// session (e.g. signs in against the backend SDK).
type EstablishFunc func(ctx context.Context, credential string) error

// Bootstrapper establishes the backend session once the user is
// authenticated with the primary identity provider. Establishment is
// single-flight per instance: concurrent triggers never mint twice, and
// the one automatic attempt is re-armed only by Retry or Reset.
type Bootstrapper struct {
	source    CredentialSource
	establish EstablishFunc

	mu        sync.Mutex
	inFlight  bool
	attempted bool
	active    bool
}

// NewBootstrapper creates a new Bootstrapper
func NewBootstrapper(source CredentialSource, establish EstablishFunc) *Bootstrapper {
	return &Bootstrapper{
		source:    source,
		establish: establish,
	}
}

// EnsureSession establishes the backend session if it is not already
// active. Returns nil immediately when active, ErrBootstrapInFlight while
// an attempt is running, and ErrBootstrapAttempted once the automatic
// attempt has failed and has not been re-armed.
func (b *Bootstrapper) EnsureSession(ctx context.Context) error {
	b.mu.Lock()
	if b.active {
		b.mu.Unlock()
		return nil
	}
	if b.inFlight {
		b.mu.Unlock()
		return ErrBootstrapInFlight
	}
	if b.attempted {
		b.mu.Unlock()
		return ErrBootstrapAttempted
	}
	b.inFlight = true
	b.attempted = true
	b.mu.Unlock()

	err := b.attempt(ctx)

	b.mu.Lock()
	b.inFlight = false
	if err == nil {
		b.active = true
	}
	b.mu.Unlock()

	return err
}

func (b *Bootstrapper) attempt(ctx context.Context) error {
	credential, err := b.source.Credential(ctx)
	if err != nil {
		return fmt.Errorf("obtain credential: %w", err)
	}

	if err := b.establish(ctx, credential); err != nil {
		return fmt.Errorf("establish session: %w", err)
	}

	return nil
}

// Retry re-arms the automatic attempt and runs it. Meant for user- or
// navigation-triggered retries after a failed bootstrap.
func (b *Bootstrapper) Retry(ctx context.Context) error {
	b.mu.Lock()
	if !b.inFlight {
		b.attempted = false
	}
	b.mu.Unlock()

	return b.EnsureSession(ctx)
}

// Reset clears all bootstrap state. Call it when the primary identity
// session ends so a subsequent sign-in can bootstrap again.
func (b *Bootstrapper) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = false
	b.attempted = false
}

// Active reports whether a backend session is established.
func (b *Bootstrapper) Active() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active
}
