package webhook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_UserCreated(t *testing.T) {
	body := []byte(`{
		"type": "user.created",
		"data": {
			"id": "user_123",
			"first_name": "Ada",
			"last_name": "Lovelace",
			"username": "ada",
			"primary_email_address_id": "email_2",
			"email_addresses": [
				{"id": "email_1", "email_address": "old@example.com"},
				{"id": "email_2", "email_address": "ada@example.com"}
			]
		}
	}`)

	event, err := DecodeEvent(body)
	require.NoError(t, err)

	assert.Equal(t, EventUserCreated, event.Type)
	assert.True(t, event.IsSignup())
	assert.Equal(t, "user_123", event.UserID)
	assert.Equal(t, "ada@example.com", event.Snapshot.Email)
	assert.Equal(t, "Ada", event.Snapshot.FirstName)
	assert.Equal(t, "Lovelace", event.Snapshot.LastName)
	assert.Equal(t, "ada", event.Snapshot.Username)
}

func TestDecodeEvent_UserUpdated_NullNameFields(t *testing.T) {
	body := []byte(`{
		"type": "user.updated",
		"data": {
			"id": "user_123",
			"first_name": null,
			"last_name": null,
			"username": null,
			"primary_email_address_id": "email_1",
			"email_addresses": [
				{"id": "email_1", "email_address": "ada@example.com"}
			]
		}
	}`)

	event, err := DecodeEvent(body)
	require.NoError(t, err)

	assert.Equal(t, EventUserUpdated, event.Type)
	assert.False(t, event.IsSignup())
	assert.Empty(t, event.Snapshot.FirstName)
	assert.Empty(t, event.Snapshot.LastName)
	assert.Empty(t, event.Snapshot.Username)
	assert.Equal(t, "ada@example.com", event.Snapshot.Email)
}

func TestDecodeEvent_FallsBackToFirstEmail(t *testing.T) {
	body := []byte(`{
		"type": "user.created",
		"data": {
			"id": "user_123",
			"primary_email_address_id": "email_missing",
			"email_addresses": [
				{"id": "email_1", "email_address": "first@example.com"},
				{"id": "email_2", "email_address": "second@example.com"}
			]
		}
	}`)

	event, err := DecodeEvent(body)
	require.NoError(t, err)
	assert.Equal(t, "first@example.com", event.Snapshot.Email)
}

func TestDecodeEvent_SessionEvents(t *testing.T) {
	created, err := DecodeEvent([]byte(`{"type":"session.created","data":{"user_id":"user_123"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventSessionCreated, created.Type)
	assert.Equal(t, "user_123", created.UserID)
	assert.False(t, created.IsSignup())

	removed, err := DecodeEvent([]byte(`{"type":"session.removed","data":{"user_id":"user_123"}}`))
	require.NoError(t, err)
	assert.Equal(t, EventSessionRemoved, removed.Type)
}

func TestDecodeEvent_UnknownTypeIsAcknowledged(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"organization.created","data":{"id":"org_1"}}`))
	require.NoError(t, err)

	assert.Equal(t, EventUnknown, event.Type)
	assert.Equal(t, "organization.created", event.RawType)
}

func TestDecodeEvent_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"user event without id", `{"type":"user.created","data":{"first_name":"Ada"}}`},
		{"session event without user id", `{"type":"session.created","data":{}}`},
		{"user event with wrong data shape", `{"type":"user.created","data":"oops"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(tt.body))
			assert.Error(t, err)
		})
	}
}
