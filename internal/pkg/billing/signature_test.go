package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","event":"test","payload":{}}`)
	secret := "whsec_tastevin"
	good := ComputeWebhookSignature(payload, secret)

	assert.True(t, VerifyWebhookSignature(payload, good, secret))
	assert.False(t, VerifyWebhookSignature(payload, good, "other-secret"))
	assert.False(t, VerifyWebhookSignature(payload, "deadbeef", secret))
	assert.False(t, VerifyWebhookSignature(payload, "", secret), "missing signature must fail")
	assert.False(t, VerifyWebhookSignature(payload, good, ""), "missing secret must fail")

	// One flipped byte in the body invalidates the signature.
	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = 'X'
	assert.False(t, VerifyWebhookSignature(tampered, good, secret))
}
