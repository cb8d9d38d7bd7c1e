package models

// Required identity fields. A record is initialized once all of them are
// non-empty.
const (
	FieldEmail     = "email"
	FieldFirstName = "firstName"
	FieldLastName  = "lastName"
	FieldUsername  = "username"
)

// IdentitySnapshot is a partial view of a user's identity as reported by
// the identity provider. Any field may be empty; the initialization
// engine merges non-empty values over the stored record.
type IdentitySnapshot struct {
	Email     string `json:"email,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Username  string `json:"username,omitempty"`
}

// MissingFields lists the required identity fields that are empty.
func (s IdentitySnapshot) MissingFields() []string {
	var missing []string
	if s.Email == "" {
		missing = append(missing, FieldEmail)
	}
	if s.FirstName == "" {
		missing = append(missing, FieldFirstName)
	}
	if s.LastName == "" {
		missing = append(missing, FieldLastName)
	}
	if s.Username == "" {
		missing = append(missing, FieldUsername)
	}
	return missing
}

// NeedsOnboarding reports whether at least one required field is empty.
func (s IdentitySnapshot) NeedsOnboarding() bool {
	return len(s.MissingFields()) > 0
}
