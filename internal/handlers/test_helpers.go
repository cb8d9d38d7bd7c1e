package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"

	"github.com/mwhitlock/tether/internal/auth"
	"github.com/mwhitlock/tether/internal/models"
	pkghttp "github.com/mwhitlock/tether/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithIdentityContext adds provider session claims to the request context
// for testing authenticated endpoints
func WithIdentityContext(req *http.Request, providerID string) *http.Request {
	claims := &models.IdentityClaims{
		SessionID: "sess_test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: providerID,
		},
	}
	ctx := context.WithValue(req.Context(), auth.IdentityContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockInitializationService implements InitializationService for testing
type MockInitializationService struct {
	InitializeUserFunc func(ctx context.Context, providerID string, snap models.IdentitySnapshot, isSignup bool) models.InitResult
	AccountStatusFunc  func(ctx context.Context, providerID string) (*models.AccountStatus, error)
}

func (m *MockInitializationService) InitializeUser(ctx context.Context, providerID string, snap models.IdentitySnapshot, isSignup bool) models.InitResult {
	if m.InitializeUserFunc != nil {
		return m.InitializeUserFunc(ctx, providerID, snap, isSignup)
	}
	return models.InitResult{Success: true}
}

func (m *MockInitializationService) AccountStatus(ctx context.Context, providerID string) (*models.AccountStatus, error) {
	if m.AccountStatusFunc != nil {
		return m.AccountStatusFunc(ctx, providerID)
	}
	return &models.AccountStatus{Exists: false, NeedsOnboarding: true}, nil
}

// MockSessionToucher implements SessionToucher for testing
type MockSessionToucher struct {
	TouchSessionFunc func(ctx context.Context, providerID string) error
}

func (m *MockSessionToucher) TouchSession(ctx context.Context, providerID string) error {
	if m.TouchSessionFunc != nil {
		return m.TouchSessionFunc(ctx, providerID)
	}
	return nil
}

// MockCredentialProvider implements CredentialProvider for testing
type MockCredentialProvider struct {
	EnsureCredentialFunc func(ctx context.Context, providerID string) (string, error)
}

func (m *MockCredentialProvider) EnsureCredential(ctx context.Context, providerID string) (string, error) {
	if m.EnsureCredentialFunc != nil {
		return m.EnsureCredentialFunc(ctx, providerID)
	}
	return "", models.ErrNotFound
}

// MockMigrationRunner implements MigrationRunner for testing
type MockMigrationRunner struct {
	MigrateUserDocumentFunc func(ctx context.Context, providerID string) models.MigrationResult
	BatchMigrateFunc        func(ctx context.Context, callerID string, ids []string) (*models.BatchMigrationResult, error)
	MigrationStatusFunc     func(ctx context.Context, callerID string) (*models.MigrationStatus, error)
}

func (m *MockMigrationRunner) MigrateUserDocument(ctx context.Context, providerID string) models.MigrationResult {
	if m.MigrateUserDocumentFunc != nil {
		return m.MigrateUserDocumentFunc(ctx, providerID)
	}
	return models.MigrationResult{Success: false, Message: "no record exists for this user"}
}

func (m *MockMigrationRunner) BatchMigrate(ctx context.Context, callerID string, ids []string) (*models.BatchMigrationResult, error) {
	if m.BatchMigrateFunc != nil {
		return m.BatchMigrateFunc(ctx, callerID, ids)
	}
	return nil, models.ErrForbidden
}

func (m *MockMigrationRunner) MigrationStatus(ctx context.Context, callerID string) (*models.MigrationStatus, error) {
	if m.MigrationStatusFunc != nil {
		return m.MigrationStatusFunc(ctx, callerID)
	}
	return nil, models.ErrForbidden
}
