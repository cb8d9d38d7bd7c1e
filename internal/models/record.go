package models

import (
	"time"
)

// PlanType is the subscription tier stored on a user record.
type PlanType string

const (
	PlanStarter PlanType = "starter"
	PlanPro     PlanType = "pro"
	PlanTeam    PlanType = "team"
)

// ParsePlanType normalizes a stored plan value, defaulting to starter.
func ParsePlanType(s string) PlanType {
	switch PlanType(s) {
	case PlanPro:
		return PlanPro
	case PlanTeam:
		return PlanTeam
	default:
		return PlanStarter
	}
}

// UserRecord is the backend document kept in sync with the identity
// provider, one per provider-issued user id. Field names match the
// historical document keys, so records written before the canonical
// schema decode into the same struct.
type UserRecord struct {
	ProviderID        string   `json:"providerId"`
	Email             string   `json:"email,omitempty"`
	FirstName         string   `json:"firstName,omitempty"`
	LastName          string   `json:"lastName,omitempty"`
	Username          string   `json:"username,omitempty"`
	ComputedName      string   `json:"computedName,omitempty"`
	PlanType          PlanType `json:"planType,omitempty"`
	BillingCustomerID string   `json:"billingCustomerId,omitempty"`
	IsAdmin           bool     `json:"isAdmin,omitempty"`

	// IsInitialized is a pointer so a legacy record (key absent) is
	// distinguishable from an uninitialized canonical record (false).
	IsInitialized *bool `json:"isInitialized,omitempty"`

	SessionCredential   string     `json:"sessionCredential,omitempty"`
	CredentialExpiresAt *time.Time `json:"credentialExpiresAt,omitempty"`

	RegistrationDate *time.Time `json:"registrationDate,omitempty"`
	LastLogin        *time.Time `json:"lastLogin,omitempty"`
	LastTokenRefresh *time.Time `json:"lastTokenRefresh,omitempty"`
	CreatedAt        *time.Time `json:"createdAt,omitempty"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`

	// Pre-canonical fields. LegacyName is split into first/last during
	// migration; LegacyAPIToken is deleted outright.
	LegacyName     string `json:"name,omitempty"`
	LegacyAPIToken string `json:"apiToken,omitempty"`
}

// IsLegacy reports whether the record predates the canonical schema.
func (r *UserRecord) IsLegacy() bool {
	return r.IsInitialized == nil
}

// Initialized reports the isInitialized flag, false for legacy records.
func (r *UserRecord) Initialized() bool {
	return r.IsInitialized != nil && *r.IsInitialized
}

// Identity returns the record's identity fields as a snapshot.
func (r *UserRecord) Identity() IdentitySnapshot {
	return IdentitySnapshot{
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Username:  r.Username,
	}
}

// MissingFields lists the identity fields still required before the
// record counts as initialized.
func (r *UserRecord) MissingFields() []string {
	return r.Identity().MissingFields()
}

// NeedsOnboarding reports whether any required identity field is empty.
// Every caller (initialization, migration, status endpoint) goes through
// this one predicate.
func (r *UserRecord) NeedsOnboarding() bool {
	return r.Identity().NeedsOnboarding()
}

// DisplayName derives the name shown in clients: structured name first,
// then the legacy display name, then a generic fallback.
func (r *UserRecord) DisplayName() string {
	return ComputeDisplayName(r.FirstName, r.LastName, r.LegacyName)
}

// ComputeDisplayName builds a display name from structured name parts,
// falling back to a legacy single-field name, then to "User".
func ComputeDisplayName(firstName, lastName, legacyName string) string {
	switch {
	case firstName != "" && lastName != "":
		return firstName + " " + lastName
	case firstName != "":
		return firstName
	case lastName != "":
		return lastName
	case legacyName != "":
		return legacyName
	default:
		return "User"
	}
}
