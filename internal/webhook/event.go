package webhook

import (
	"encoding/json"
	"fmt"

	"github.com/mwhitlock/tether/internal/models"
)

// EventType is an identity-provider lifecycle event kind.
type EventType string

const (
	EventUserCreated    EventType = "user.created"
	EventUserUpdated    EventType = "user.updated"
	EventSessionCreated EventType = "session.created"
	EventSessionRemoved EventType = "session.removed"
	// EventUnknown covers event kinds this subsystem does not consume.
	// They are acknowledged without action so the provider stops
	// redelivering them.
	EventUnknown EventType = ""
)

// Event is the strongly-typed result of decoding a webhook payload. The
// provider's loosely-typed body is mapped at this boundary so nothing
// downstream handles raw JSON.
type Event struct {
	Type     EventType
	RawType  string
	UserID   string
	Snapshot models.IdentitySnapshot
}

// IsSignup reports whether the event marks first creation of the user.
func (e *Event) IsSignup() bool {
	return e.Type == EventUserCreated
}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// userData mirrors the provider's user object shape. Name fields arrive
// as JSON null when unset, hence the pointers.
type userData struct {
	ID                    string  `json:"id"`
	FirstName             *string `json:"first_name"`
	LastName              *string `json:"last_name"`
	Username              *string `json:"username"`
	PrimaryEmailAddressID string  `json:"primary_email_address_id"`
	EmailAddresses        []struct {
		ID           string `json:"id"`
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

type sessionData struct {
	UserID string `json:"user_id"`
}

// DecodeEvent maps a raw webhook body to a typed Event.
func DecodeEvent(body []byte) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}

	switch EventType(env.Type) {
	case EventUserCreated, EventUserUpdated:
		var data userData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to decode user event data: %w", err)
		}
		if data.ID == "" {
			return nil, fmt.Errorf("user event missing user id")
		}
		return &Event{
			Type:     EventType(env.Type),
			RawType:  env.Type,
			UserID:   data.ID,
			Snapshot: snapshotFromUserData(data),
		}, nil

	case EventSessionCreated, EventSessionRemoved:
		var data sessionData
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("failed to decode session event data: %w", err)
		}
		if data.UserID == "" {
			return nil, fmt.Errorf("session event missing user id")
		}
		return &Event{
			Type:    EventType(env.Type),
			RawType: env.Type,
			UserID:  data.UserID,
		}, nil

	default:
		return &Event{Type: EventUnknown, RawType: env.Type}, nil
	}
}

func snapshotFromUserData(data userData) models.IdentitySnapshot {
	snap := models.IdentitySnapshot{
		FirstName: stringValue(data.FirstName),
		LastName:  stringValue(data.LastName),
		Username:  stringValue(data.Username),
	}

	// Prefer the primary email address; fall back to the first listed.
	for _, addr := range data.EmailAddresses {
		if addr.ID == data.PrimaryEmailAddressID {
			snap.Email = addr.EmailAddress
			break
		}
	}
	if snap.Email == "" && len(data.EmailAddresses) > 0 {
		snap.Email = data.EmailAddresses[0].EmailAddress
	}

	return snap
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
