package client

import (
	"context"
	"sync"

	"github.com/mwhitlock/tether/internal/models"
)

// State is the access gate's position in its lifecycle.
type State string

const (
	// StatePending waits for the identity session and backend session to
	// both be established.
	StatePending State = "pending"
	// StateChecking polls the backend for record visibility.
	StateChecking State = "checking"
	// StateReady allows protected rendering.
	StateReady State = "ready"
	// StateNeedsOnboarding redirects to the onboarding flow.
	StateNeedsOnboarding State = "needs_onboarding"
	// StateError surfaces the last error without redirecting, so a
	// transient failure never causes a redirect loop.
	StateError State = "error"
)

// Terminal reports whether the gate has settled.
func (s State) Terminal() bool {
	return s == StateReady || s == StateNeedsOnboarding || s == StateError
}

// StatusFetcher reports backend record readiness
type StatusFetcher interface {
	AccountStatus(ctx context.Context) (*models.AccountStatus, error)
}

// AccessGate blocks protected rendering until the backend record is
// confirmed initialized. The webhook and the client's first request race:
// when the record is not visible yet the gate retries with bounded
// exponential backoff instead of declaring onboarding immediately, and
// only falls back to onboarding once the policy is exhausted.
type AccessGate struct {
	status StatusFetcher
	policy RetryPolicy

	mu      sync.Mutex
	state   State
	lastErr error
}

// NewAccessGate creates a gate in the pending state.
func NewAccessGate(status StatusFetcher, policy RetryPolicy) *AccessGate {
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy()
	}
	return &AccessGate{
		status: status,
		policy: policy,
		state:  StatePending,
	}
}

// State returns the gate's current state.
func (g *AccessGate) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the error behind StateError, if any.
func (g *AccessGate) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// Run drives the gate to a terminal state. The loop is cooperative: each
// retry is timer-scheduled after the previous check resolves, and the
// whole run stops as soon as ctx is cancelled (component unmounted, user
// changed).
func (g *AccessGate) Run(ctx context.Context) (State, error) {
	g.set(StateChecking, nil)

	for attempt := 0; ; attempt++ {
		status, err := g.status.AccountStatus(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return g.State(), ctx.Err()
			}
			return g.set(StateError, err), err
		}

		if status.Exists {
			if status.NeedsOnboarding {
				return g.set(StateNeedsOnboarding, nil), nil
			}
			return g.set(StateReady, nil), nil
		}

		// Record not visible yet; the webhook may still be in flight.
		if attempt+1 >= g.policy.MaxAttempts {
			break
		}
		if err := g.policy.Wait(ctx, attempt); err != nil {
			return g.State(), err
		}
	}

	// Retries exhausted: assume the record will not appear on its own and
	// let onboarding create the missing data.
	return g.set(StateNeedsOnboarding, nil), nil
}

func (g *AccessGate) set(state State, err error) State {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.state = state
	g.lastErr = err
	return state
}
