// Package client is the client half of the identity synchronization
// pipeline: it obtains backend session credentials, tracks record
// readiness, and gates protected access until the webhook-driven record
// is visible.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mwhitlock/tether/internal/models"
)

var (
	// ErrUnauthorized means the identity-provider session token was
	// missing, expired, or rejected.
	ErrUnauthorized = errors.New("client unauthorized")
	// ErrRecordMissing means the backend record does not exist yet; the
	// access gate retries on this.
	ErrRecordMissing = errors.New("user record not found")
)

// Config configures the backend client
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the identity synchronization service. The identity
// provider's session token is attached to every call; SetSessionToken is
// safe for concurrent use.
type Client struct {
	http *resty.Client

	mu           sync.RWMutex
	sessionToken string
}

func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	cli := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout)

	return &Client{http: cli}
}

// SetSessionToken stores the identity-provider session token used to
// authenticate subsequent calls.
func (c *Client) SetSessionToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessionToken = strings.TrimSpace(token)
}

func (c *Client) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

// Credential requests a backend session credential for the current user.
func (c *Client) Credential(ctx context.Context) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.token()).
		Post("/session/credential")
	if err != nil {
		return "", fmt.Errorf("credential request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return "", err
	}

	var body struct {
		Credential string `json:"credential"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("credential decode: %w", err)
	}
	if body.Credential == "" {
		return "", fmt.Errorf("credential response missing token")
	}

	return body.Credential, nil
}

// AccountStatus reports whether the backend record exists and is
// initialized for the current user.
func (c *Client) AccountStatus(ctx context.Context) (*models.AccountStatus, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.token()).
		Get("/account/status")
	if err != nil {
		return nil, fmt.Errorf("account status request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return nil, err
	}

	var status models.AccountStatus
	if err := json.Unmarshal(resp.Body(), &status); err != nil {
		return nil, fmt.Errorf("account status decode: %w", err)
	}

	return &status, nil
}

// MigrateAccount migrates the current user's record to the canonical
// schema.
func (c *Client) MigrateAccount(ctx context.Context) (models.MigrationResult, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.token()).
		Post("/account/migrate")
	if err != nil {
		return models.MigrationResult{}, fmt.Errorf("migrate request: %w", err)
	}
	if err = mapHTTPError(resp); err != nil {
		return models.MigrationResult{}, err
	}

	var result models.MigrationResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return models.MigrationResult{}, fmt.Errorf("migrate decode: %w", err)
	}

	return result, nil
}

func mapHTTPError(resp *resty.Response) error {
	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized, http.StatusForbidden:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrRecordMissing
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode(), strings.TrimSpace(string(resp.Body())))
	}
}
