package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MarcChevalier/Tastevin/internal/pkg/env"
)

// ErrRemoteNotFound is returned when the provider has no record for the
// requested customer or subscription.
var ErrRemoteNotFound = errors.New("billing: remote record not found")

// Provider is the collaborator boundary to the payment provider's REST API.
// The orchestrator and controllers depend on this interface, not on the
// HTTP client.
type Provider interface {
	GetCustomerByRef(ctx context.Context, reference string) (*RemoteCustomer, error)
	CreateCustomer(ctx context.Context, customer *RemoteCustomer) (*RemoteCustomer, error)
	GetPaymentProfiles(ctx context.Context, customerID int64) ([]PaymentProfile, error)
	CreatePaymentProfile(ctx context.Context, customerID int64, paymentToken string) (*PaymentProfile, error)
	GetSubscriptions(ctx context.Context, customerID int64) ([]RemoteSubscription, error)
	GetSubscriptionByID(ctx context.Context, subscriptionID int64) (*RemoteSubscription, error)
	CreateSubscription(ctx context.Context, productHandle string, customerID, paymentProfileID int64) (*RemoteSubscription, error)
	MigrateSubscription(ctx context.Context, subscriptionID int64, productHandle string) (*RemoteSubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID int64) error
	DelayedCancelSubscription(ctx context.Context, subscriptionID int64) error
	StopDelayedCancelSubscription(ctx context.Context, subscriptionID int64) error
	GetBillingPortal(ctx context.Context, customerID int64) (*PortalLink, error)
	GetSiteTransactions(ctx context.Context, filters url.Values) ([]Transaction, error)
}

// Client talks to the provider's REST API with basic-auth API key
// credentials and a bounded request timeout.
type Client struct {
	BaseURL string
	APIKey  string

	HTTPClient *http.Client
}

var _ Provider = (*Client)(nil)

// NewClientFromEnv builds a provider client from environment configuration.
func NewClientFromEnv() *Client {
	return &Client{
		BaseURL: strings.TrimRight(env.GetEnv("BILLING_API_BASE_URL", ""), "/"),
		APIKey:  strings.TrimSpace(env.GetEnv("BILLING_API_KEY", "")),
		HTTPClient: &http.Client{
			Timeout: env.GetEnvDuration("BILLING_API_TIMEOUT", 15*time.Second),
		},
	}
}

func (c *Client) GetCustomerByRef(ctx context.Context, reference string) (*RemoteCustomer, error) {
	ref := strings.TrimSpace(reference)
	if ref == "" {
		return nil, newError(KindValidation, "reference", "customer reference is required")
	}

	var out struct {
		Customer RemoteCustomer `json:"customer"`
	}
	err := c.do(ctx, http.MethodGet, "/customers/lookup.json?reference="+url.QueryEscape(ref), nil, &out)
	if err != nil {
		return nil, err
	}
	if out.Customer.ID == 0 {
		return nil, ErrRemoteNotFound
	}
	return &out.Customer, nil
}

func (c *Client) CreateCustomer(ctx context.Context, customer *RemoteCustomer) (*RemoteCustomer, error) {
	if customer == nil || strings.TrimSpace(customer.Reference) == "" {
		return nil, newError(KindValidation, "reference", "customer reference is required")
	}

	body := map[string]any{"customer": customer}
	var out struct {
		Customer RemoteCustomer `json:"customer"`
	}
	if err := c.do(ctx, http.MethodPost, "/customers.json", body, &out); err != nil {
		return nil, err
	}
	return &out.Customer, nil
}

func (c *Client) GetPaymentProfiles(ctx context.Context, customerID int64) ([]PaymentProfile, error) {
	var wrapped []struct {
		PaymentProfile PaymentProfile `json:"payment_profile"`
	}
	path := fmt.Sprintf("/customers/%d/payment_profiles.json", customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &wrapped); err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			return nil, nil
		}
		return nil, err
	}
	profiles := make([]PaymentProfile, 0, len(wrapped))
	for _, w := range wrapped {
		profiles = append(profiles, w.PaymentProfile)
	}
	return profiles, nil
}

func (c *Client) CreatePaymentProfile(ctx context.Context, customerID int64, paymentToken string) (*PaymentProfile, error) {
	token := strings.TrimSpace(paymentToken)
	if token == "" {
		return nil, newError(KindValidation, "payment_token", "payment token is required")
	}

	body := map[string]any{
		"payment_profile": map[string]any{
			"customer_id": customerID,
			"token":       token,
		},
	}
	var out struct {
		PaymentProfile PaymentProfile `json:"payment_profile"`
	}
	if err := c.do(ctx, http.MethodPost, "/payment_profiles.json", body, &out); err != nil {
		return nil, err
	}
	return &out.PaymentProfile, nil
}

func (c *Client) GetSubscriptions(ctx context.Context, customerID int64) ([]RemoteSubscription, error) {
	var wrapped []struct {
		Subscription RemoteSubscription `json:"subscription"`
	}
	path := fmt.Sprintf("/customers/%d/subscriptions.json", customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &wrapped); err != nil {
		if errors.Is(err, ErrRemoteNotFound) {
			return nil, nil
		}
		return nil, err
	}
	subs := make([]RemoteSubscription, 0, len(wrapped))
	for _, w := range wrapped {
		subs = append(subs, w.Subscription)
	}
	return subs, nil
}

func (c *Client) GetSubscriptionByID(ctx context.Context, subscriptionID int64) (*RemoteSubscription, error) {
	var out struct {
		Subscription RemoteSubscription `json:"subscription"`
	}
	path := fmt.Sprintf("/subscriptions/%d.json", subscriptionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out.Subscription, nil
}

func (c *Client) CreateSubscription(ctx context.Context, productHandle string, customerID, paymentProfileID int64) (*RemoteSubscription, error) {
	handle := strings.TrimSpace(productHandle)
	if handle == "" {
		return nil, newError(KindValidation, "product_handle", "product handle is required")
	}

	body := map[string]any{
		"subscription": map[string]any{
			"product_handle":     handle,
			"customer_id":        customerID,
			"payment_profile_id": paymentProfileID,
		},
	}
	var out struct {
		Subscription RemoteSubscription `json:"subscription"`
	}
	if err := c.do(ctx, http.MethodPost, "/subscriptions.json", body, &out); err != nil {
		return nil, err
	}
	return &out.Subscription, nil
}

func (c *Client) MigrateSubscription(ctx context.Context, subscriptionID int64, productHandle string) (*RemoteSubscription, error) {
	handle := strings.TrimSpace(productHandle)
	if handle == "" {
		return nil, newError(KindValidation, "product_handle", "product handle is required")
	}

	body := map[string]any{
		"migration": map[string]any{"product_handle": handle},
	}
	var out struct {
		Subscription RemoteSubscription `json:"subscription"`
	}
	path := fmt.Sprintf("/subscriptions/%d/migrations.json", subscriptionID)
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out.Subscription, nil
}

func (c *Client) CancelSubscription(ctx context.Context, subscriptionID int64) error {
	path := fmt.Sprintf("/subscriptions/%d.json", subscriptionID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) DelayedCancelSubscription(ctx context.Context, subscriptionID int64) error {
	path := fmt.Sprintf("/subscriptions/%d/delayed_cancel.json", subscriptionID)
	return c.do(ctx, http.MethodPut, path, nil, nil)
}

func (c *Client) StopDelayedCancelSubscription(ctx context.Context, subscriptionID int64) error {
	path := fmt.Sprintf("/subscriptions/%d/delayed_cancel.json", subscriptionID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *Client) GetBillingPortal(ctx context.Context, customerID int64) (*PortalLink, error) {
	var out PortalLink
	path := fmt.Sprintf("/portal/customers/%d/management_link.json", customerID)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	out.FetchedAt = time.Now()
	return &out, nil
}

func (c *Client) GetSiteTransactions(ctx context.Context, filters url.Values) ([]Transaction, error) {
	path := "/transactions.json"
	if len(filters) > 0 {
		path += "?" + filters.Encode()
	}
	var wrapped []struct {
		Transaction Transaction `json:"transaction"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &wrapped); err != nil {
		return nil, err
	}
	txs := make([]Transaction, 0, len(wrapped))
	for _, w := range wrapped {
		txs = append(txs, w.Transaction)
	}
	return txs, nil
}

// do performs one provider API round trip. Non-2xx responses other than 404
// surface as retryable provider errors.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if strings.TrimSpace(c.BaseURL) == "" || strings.TrimSpace(c.APIKey) == "" {
		return newError(KindProvider, "", "BILLING_API_BASE_URL/BILLING_API_KEY are not configured")
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return wrapProviderErr("encode request body", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return wrapProviderErr("build request", err)
	}
	req.SetBasicAuth(c.APIKey, "x")
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return wrapProviderErr("provider request failed", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode == http.StatusNotFound {
		return ErrRemoteNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wrapProviderErr(
			fmt.Sprintf("provider returned status=%d body=%s", resp.StatusCode, truncate(string(raw), 512)),
			nil,
		)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return wrapProviderErr("decode provider response", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
