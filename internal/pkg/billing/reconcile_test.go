package billing

import (
	"testing"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(repo *fakeRepo, ref string) *models.User {
	return repo.addUser(&models.User{Name: "Jules Moreau", Email: ref + "@example.com", BillingRef: ref})
}

func snapshotFor(id int64, state, handle, ref string) *RemoteSubscription {
	now := time.Now()
	next := now.AddDate(0, 1, 0)
	snap := &RemoteSubscription{ID: id, State: state, CreatedAt: &now, NextAssessmentAt: &next}
	snap.Product.Handle = handle
	snap.Customer.Reference = ref
	return snap
}

func TestApplySignupSuccessCreatesRow(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	sub, err := engine.Apply(EventSignupSuccess, snapshotFor(123, "active", "basic", "user_abc"))
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, "basic", sub.PlanKey)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	require.NotNil(t, sub.RemoteSubscriptionID)
	assert.Equal(t, "123", *sub.RemoteSubscriptionID)
	assert.NotNil(t, sub.EndDate)
}

func TestApplySignupSuccessIsIdempotent(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	_, err := engine.Apply(EventSignupSuccess, snapshotFor(123, "active", "basic", "user_abc"))
	require.NoError(t, err)
	_, err = engine.Apply(EventSignupSuccess, snapshotFor(123, "active", "basic", "user_abc"))
	require.NoError(t, err)

	assert.Equal(t, 1, repo.subscriptionCountForRemoteID("123"))
}

func TestApplyStateChangeCreatesMissingRow(t *testing.T) {
	// Out-of-order delivery: the state change arrives before (or instead
	// of) the signup event.
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	sub, err := engine.Apply(EventStateChange, snapshotFor(55, "past_due", "premium", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, "past_due", sub.Status)
	assert.Equal(t, "premium", sub.PlanKey)
	assert.Equal(t, 1, repo.subscriptionCountForRemoteID("55"))
}

func TestApplyStateChangeOnlyTouchesStatus(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	created, err := engine.Apply(EventSignupSuccess, snapshotFor(77, "active", "basic", "user_abc"))
	require.NoError(t, err)
	origStart := created.StartDate
	origEnd := created.EndDate

	// Transition to a problem state must not null out the dates a later
	// recovery still needs.
	failing := snapshotFor(77, "suspended", "basic", "user_abc")
	failing.NextAssessmentAt = nil
	updated, err := engine.Apply(EventStateChange, failing)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusSuspended, updated.Status)

	stored, err := repo.FindSubscriptionByRemoteID("77")
	require.NoError(t, err)
	assert.Equal(t, origStart.Unix(), stored.StartDate.Unix())
	require.NotNil(t, stored.EndDate)
	assert.Equal(t, origEnd.Unix(), stored.EndDate.Unix())
}

func TestApplyDelayedCancelFlag(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	_, err := engine.Apply(EventSignupSuccess, snapshotFor(88, "active", "basic", "user_abc"))
	require.NoError(t, err)

	flagged := snapshotFor(88, "active", "basic", "user_abc")
	flagged.CancelAtEndOfTerm = true
	sub, err := engine.Apply(EventStateChange, flagged)
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusDelayedCancel, sub.Status)
}

func TestApplyProductChangeUpdatesPlanAndOwner(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	_, err := engine.Apply(EventSignupSuccess, snapshotFor(90, "active", "basic", "user_abc"))
	require.NoError(t, err)

	sub, err := engine.Apply(EventProductChange, snapshotFor(90, "active", "premium", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, "premium", sub.PlanKey)
}

func TestApplyProductChangeCreatesMissingRow(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	sub, err := engine.Apply(EventProductChange, snapshotFor(91, "active", "sommelier", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, "sommelier", sub.PlanKey)
	assert.Equal(t, 1, repo.subscriptionCountForRemoteID("91"))
}

func TestApplyPaymentEventsRequireRow(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	_, err := engine.Apply(EventPaymentSuccess, snapshotFor(404, "active", "basic", "user_abc"))
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	_, err = engine.Apply(EventSignupSuccess, snapshotFor(404, "active", "basic", "user_abc"))
	require.NoError(t, err)

	sub, err := engine.Apply(EventPaymentFailure, snapshotFor(404, "active", "basic", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPaymentFailure, sub.Status)

	sub, err = engine.Apply(EventPaymentSuccess, snapshotFor(404, "active", "basic", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusPaymentSuccess, sub.Status)
}

func TestApplyMissingRemoteIDFails(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	engine := NewEngine(repo)

	for _, kind := range []EventKind{EventSignupSuccess, EventStateChange, EventProductChange, EventPaymentSuccess} {
		_, err := engine.Apply(kind, snapshotFor(0, "active", "basic", "user_abc"))
		require.Error(t, err, "kind %s", kind)
		assert.Equal(t, KindValidation, KindOf(err))
	}
}

func TestApplyUnknownUserFails(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(repo)

	_, err := engine.Apply(EventSignupSuccess, snapshotFor(5, "active", "basic", "nobody"))
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, 0, len(repo.subscriptions))
}

func TestApplyUnknownEventIsNoOp(t *testing.T) {
	repo := newFakeRepo()
	engine := NewEngine(repo)

	sub, err := engine.Apply(EventUnknown, nil)
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestSingleCurrentInvariant(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	engine := NewEngine(repo)

	_, err := engine.Apply(EventSignupSuccess, snapshotFor(1, "active", "basic", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.currentCountForUser(user.ID))

	// A second remote subscription for the same user retires the first.
	_, err = engine.Apply(EventSignupSuccess, snapshotFor(2, "active", "premium", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.currentCountForUser(user.ID))

	current, err := repo.CurrentSubscriptionForUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "premium", current.PlanKey)
}

func TestLateStateChangeRevivalRetiresOthers(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	engine := NewEngine(repo)

	// Subscription 1 lives and dies, subscription 2 takes over.
	_, err := engine.Apply(EventSignupSuccess, snapshotFor(1, "active", "basic", "user_abc"))
	require.NoError(t, err)
	_, err = engine.Apply(EventStateChange, snapshotFor(1, "canceled", "basic", "user_abc"))
	require.NoError(t, err)
	_, err = engine.Apply(EventSignupSuccess, snapshotFor(2, "active", "premium", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.currentCountForUser(user.ID))

	// A delayed pre-cancel state change for subscription 1 arrives last.
	// Reviving it must not leave two current rows for the user.
	_, err = engine.Apply(EventStateChange, snapshotFor(1, "active", "basic", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.currentCountForUser(user.ID))

	current, err := repo.CurrentSubscriptionForUser(user.ID)
	require.NoError(t, err)
	require.NotNil(t, current.RemoteSubscriptionID)
	assert.Equal(t, "1", *current.RemoteSubscriptionID)
}

func TestStalePaymentResultRetiresOthers(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	engine := NewEngine(repo)

	_, err := engine.Apply(EventSignupSuccess, snapshotFor(1, "active", "basic", "user_abc"))
	require.NoError(t, err)
	_, err = engine.Apply(EventStateChange, snapshotFor(1, "canceled", "basic", "user_abc"))
	require.NoError(t, err)
	_, err = engine.Apply(EventSignupSuccess, snapshotFor(2, "active", "premium", "user_abc"))
	require.NoError(t, err)

	// A stale payment result for the retired subscription revives it with
	// a non-end-of-life status; the newer row must be retired in turn.
	_, err = engine.Apply(EventPaymentSuccess, snapshotFor(1, "", "basic", "user_abc"))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.currentCountForUser(user.ID))
}

func TestStatusFromSnapshotDefaultsToActive(t *testing.T) {
	snap := &RemoteSubscription{ID: 1}
	assert.Equal(t, models.SubscriptionStatusActive, statusFromSnapshot(snap))
}
