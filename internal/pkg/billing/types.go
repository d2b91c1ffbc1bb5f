package billing

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// RemoteSubscription is the provider's subscription snapshot as embedded in
// webhook payloads and API responses. Only the fields this system reads are
// typed; everything else rides along in the raw payload.
type RemoteSubscription struct {
	ID                int64      `json:"id"`
	State             string     `json:"state"`
	CreatedAt         *time.Time `json:"created_at"`
	NextAssessmentAt  *time.Time `json:"next_assessment_at"`
	CancelAtEndOfTerm bool       `json:"cancel_at_end_of_period"`
	Product           struct {
		Handle string `json:"handle"`
	} `json:"product"`
	Customer struct {
		ID        int64  `json:"id"`
		Reference string `json:"reference"`
	} `json:"customer"`
}

// RemoteID returns the subscription's provider identifier as a string, or
// "" when absent.
func (s *RemoteSubscription) RemoteID() string {
	if s == nil || s.ID == 0 {
		return ""
	}
	return formatID(s.ID)
}

// RemoteCustomer is the provider's customer record.
type RemoteCustomer struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
}

// PaymentProfile is a stored payment method on the provider side.
type PaymentProfile struct {
	ID             int64  `json:"id"`
	CustomerID     int64  `json:"customer_id"`
	MaskedCardNum  string `json:"masked_card_number"`
	CardType       string `json:"card_type"`
	ExpirationYear int    `json:"expiration_year"`
}

// PortalLink is a short-lived management link into the provider's billing
// portal.
type PortalLink struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Transaction is a provider-side payment record, used by admin reporting.
type Transaction struct {
	ID             int64     `json:"id"`
	SubscriptionID int64     `json:"subscription_id"`
	Type           string    `json:"transaction_type"`
	AmountCents    int       `json:"amount_in_cents"`
	Success        bool      `json:"success"`
	CreatedAt      time.Time `json:"created_at"`
}

// WebhookEnvelope is the outer shape of a provider notification.
type WebhookEnvelope struct {
	ID      string          `json:"id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type webhookPayload struct {
	Subscription *RemoteSubscription `json:"subscription"`
}

// ParseWebhookEnvelope structurally validates a raw webhook body. Required
// fields: id, event, payload.
func ParseWebhookEnvelope(raw []byte) (*WebhookEnvelope, *RemoteSubscription, error) {
	var env WebhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, newError(KindValidation, "body", "webhook body is not valid JSON")
	}
	if strings.TrimSpace(env.ID) == "" {
		return nil, nil, newError(KindValidation, "id", "webhook id is required")
	}
	if strings.TrimSpace(env.Event) == "" {
		return nil, nil, newError(KindValidation, "event", "webhook event type is required")
	}
	if len(env.Payload) == 0 {
		return nil, nil, newError(KindValidation, "payload", "webhook payload is required")
	}

	var p webhookPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return nil, nil, newError(KindValidation, "payload", "webhook payload is not valid JSON")
	}
	return &env, p.Subscription, nil
}

// Provider ids are numeric; stored locally as strings to survive
// provider-side format changes.
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
