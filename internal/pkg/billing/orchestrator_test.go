package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOrchestratorFixture(t *testing.T) (*Orchestrator, *fakeRepo, *fakeProvider, *memoryPortalCache, *models.User) {
	t.Helper()
	repo := newFakeRepo()
	provider := newFakeProvider()
	portal := newMemoryPortalCache()
	user := testUser(repo, "user_abc")
	return NewOrchestrator(repo, provider, portal), repo, provider, portal, user
}

func TestSubscribeHappyPath(t *testing.T) {
	orch, repo, provider, _, user := newOrchestratorFixture(t)

	sub, err := orch.Subscribe(context.Background(), user.ID, "premium", "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, "premium", sub.PlanKey)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.RemoteSubscriptionID)

	// The customer was created on the provider side and its id persisted.
	assert.Equal(t, 1, provider.createdCustomer)
	assert.Equal(t, 1, provider.createdProfiles)
	stored, err := repo.FindUserByID(user.ID)
	require.NoError(t, err)
	assert.NotZero(t, stored.BillingCustomerID)
}

func TestSubscribeReusesExistingCustomer(t *testing.T) {
	orch, _, provider, _, user := newOrchestratorFixture(t)
	provider.customers[user.BillingRef] = &RemoteCustomer{ID: 42, Reference: user.BillingRef}
	provider.profiles[42] = []PaymentProfile{{ID: 7, CustomerID: 42}}

	_, err := orch.Subscribe(context.Background(), user.ID, "basic", "tok_visa")
	require.NoError(t, err)
	assert.Equal(t, 0, provider.createdCustomer)
	assert.Equal(t, 0, provider.createdProfiles)
}

func TestSubscribeRejectsActiveRemote(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)

	_, err = orch.Subscribe(ctx, user.ID, "premium", "tok_visa")
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestSubscribeUnknownPlan(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)

	_, err := orch.Subscribe(context.Background(), user.ID, "magnum", "tok_visa")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSubscribeProviderFailureLeavesNoLocalState(t *testing.T) {
	orch, repo, provider, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)
	_, err = orch.Cancel(ctx, user.ID)
	require.NoError(t, err)

	provider.failNext = errors.New("gateway timeout")
	_, err = orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.Error(t, err)
	assert.Equal(t, 0, repo.currentCountForUser(user.ID))
}

func TestChangePlan(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)

	sub, err := orch.ChangePlan(ctx, user.ID, "sommelier")
	require.NoError(t, err)
	assert.Equal(t, "sommelier", sub.PlanKey)
}

func TestChangePlanToSamePlan(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)

	_, err = orch.ChangePlan(ctx, user.ID, "basic")
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestChangePlanRejectsVoucherSubscription(t *testing.T) {
	orch, repo, _, _, user := newOrchestratorFixture(t)
	repo.addVoucher(&models.Voucher{Code: "FREEBIE", PlanKey: "basic", UsageLimit: models.VoucherUnlimited, ValidDays: models.VoucherUnlimited})
	_, err := NewVoucherResolver(repo).Redeem(user.ID, "FREEBIE")
	require.NoError(t, err)

	_, err = orch.ChangePlan(context.Background(), user.ID, "premium")
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestCancel(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)

	sub, err := orch.Cancel(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusCanceled, sub.Status)
}

func TestCancelTwice(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)
	_, err = orch.Cancel(ctx, user.ID)
	require.NoError(t, err)

	// The retired row no longer surfaces as current; the repeat cancel must
	// still be reported as a duplicate cancel, not as a missing
	// subscription.
	_, err = orch.Cancel(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
	assert.Contains(t, err.Error(), "already cancelled")
}

func TestCancelWithoutSubscription(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)

	_, err := orch.Cancel(context.Background(), user.ID)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestCancelRejectsForeignSubscription(t *testing.T) {
	orch, _, provider, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)

	// Reassign the remote subscription to a different customer. The local
	// row still points at it, but ownership verification must refuse.
	for _, s := range provider.subscriptions {
		s.Customer.ID = 99999
	}

	_, err = orch.Cancel(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestDelayedCancelFlow(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)

	sub, err := orch.DelayedCancel(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusDelayedCancel, sub.Status)

	// Flagging again is rejected.
	_, err = orch.DelayedCancel(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))

	sub, err = orch.StopDelayedCancel(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)

	// Unflagging a subscription that is not flagged is rejected too.
	_, err = orch.StopDelayedCancel(ctx, user.ID)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestRefreshRederivesLocalState(t *testing.T) {
	orch, repo, provider, _, user := newOrchestratorFixture(t)
	ctx := context.Background()

	_, err := orch.Subscribe(ctx, user.ID, "basic", "tok_visa")
	require.NoError(t, err)

	// Drift both plan and state behind the orchestrator's back.
	for _, s := range provider.subscriptions {
		s.Product.Handle = "sommelier"
		s.State = "past_due"
	}

	sub, err := orch.Refresh(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "sommelier", sub.PlanKey)
	assert.Equal(t, "past_due", sub.Status)
	assert.Equal(t, 1, repo.currentCountForUser(user.ID))
}

func TestRefreshWithoutCustomer(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)

	_, err := orch.Refresh(context.Background(), user.ID)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestPortalLinkUsesCacheWithinFreshnessWindow(t *testing.T) {
	orch, _, provider, portal, user := newOrchestratorFixture(t)
	provider.customers[user.BillingRef] = &RemoteCustomer{ID: 42, Reference: user.BillingRef}
	ctx := context.Background()

	first, err := orch.PortalLink(ctx, user.ID)
	require.NoError(t, err)

	// A second request within the day is served from the cache even when
	// the provider is down.
	provider.failNext = errors.New("provider down")
	second, err := orch.PortalLink(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, 2, portal.hits)
}

func TestPortalLinkRefetchesStaleEntry(t *testing.T) {
	orch, _, provider, portal, user := newOrchestratorFixture(t)
	provider.customers[user.BillingRef] = &RemoteCustomer{ID: 42, Reference: user.BillingRef}
	portal.SetPortalLink(user.ID, &PortalLink{URL: "https://portal.example/stale", FetchedAt: time.Now().Add(-25 * time.Hour)})

	link, err := orch.PortalLink(context.Background(), user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "https://portal.example/stale", link.URL)
}

func TestCurrentSubscriptionWithoutAny(t *testing.T) {
	orch, _, _, _, user := newOrchestratorFixture(t)

	_, err := orch.CurrentSubscription(user.ID)
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}
