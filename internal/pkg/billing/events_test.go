package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEventKind(t *testing.T) {
	tests := []struct {
		in   string
		want EventKind
	}{
		{"signup_success", EventSignupSuccess},
		{"signup_failure", EventSignupFailure},
		{"subscription_state_change", EventStateChange},
		{"subscription_product_change", EventProductChange},
		{"payment_success", EventPaymentSuccess},
		{"payment_failure", EventPaymentFailure},
		{"test", EventTest},
		{"  Test ", EventTest},
		{"SIGNUP_SUCCESS", EventSignupSuccess},
		{"renewal_success", EventUnknown},
		{"", EventUnknown},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseEventKind(tc.in), "input %q", tc.in)
	}
}

func TestEventKindRoundTrip(t *testing.T) {
	kinds := []EventKind{
		EventSignupSuccess, EventSignupFailure, EventStateChange,
		EventProductChange, EventPaymentSuccess, EventPaymentFailure, EventTest,
	}
	for _, k := range kinds {
		assert.Equal(t, k, ParseEventKind(k.String()))
	}
	assert.Equal(t, "unknown", EventUnknown.String())
}

func TestOnlyTestEventsAreReplayable(t *testing.T) {
	assert.True(t, EventTest.IsReplayable())
	assert.False(t, EventSignupSuccess.IsReplayable())
	assert.False(t, EventUnknown.IsReplayable())
}

func TestParseWebhookEnvelope(t *testing.T) {
	raw := []byte(`{
		"id": "evt_42",
		"event": "subscription_state_change",
		"payload": {
			"subscription": {
				"id": 9001,
				"state": "active",
				"cancel_at_end_of_period": true,
				"product": {"handle": "premium"},
				"customer": {"id": 7, "reference": "user_abc"}
			}
		}
	}`)

	env, snap, err := ParseWebhookEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "evt_42", env.ID)
	assert.Equal(t, "subscription_state_change", env.Event)
	require.NotNil(t, snap)
	assert.Equal(t, "9001", snap.RemoteID())
	assert.True(t, snap.CancelAtEndOfTerm)
	assert.Equal(t, "premium", snap.Product.Handle)
	assert.Equal(t, "user_abc", snap.Customer.Reference)
}

func TestParseWebhookEnvelopeRejectsIncomplete(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"id":`},
		{"missing id", `{"event":"test","payload":{}}`},
		{"missing event", `{"id":"evt_1","payload":{}}`},
		{"missing payload", `{"id":"evt_1","event":"test"}`},
		{"payload not object", `{"id":"evt_1","event":"test","payload":"x"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := ParseWebhookEnvelope([]byte(tc.raw))
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestParseWebhookEnvelopeWithoutSubscription(t *testing.T) {
	// Events that do not concern a subscription still parse; the snapshot
	// is simply nil.
	env, snap, err := ParseWebhookEnvelope([]byte(`{"id":"evt_2","event":"test","payload":{"site":"ok"}}`))
	require.NoError(t, err)
	assert.Equal(t, "evt_2", env.ID)
	assert.Nil(t, snap)
}
