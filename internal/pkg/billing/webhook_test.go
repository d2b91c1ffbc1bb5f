package billing

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func webhookBody(t *testing.T, id, event string, snap *RemoteSubscription) []byte {
	t.Helper()
	payload := map[string]any{}
	if snap != nil {
		payload["subscription"] = snap
	}
	body, err := json.Marshal(map[string]any{"id": id, "event": event, "payload": payload})
	require.NoError(t, err)
	return body
}

func ingest(t *testing.T, repo Repository, raw []byte) error {
	t.Helper()
	env, snap, err := ParseWebhookEnvelope(raw)
	require.NoError(t, err)
	return IngestWebhook(repo, env, snap, raw)
}

func TestIngestWebhookRecordsAndReconciles(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	raw := webhookBody(t, "evt_1", "signup_success", snapshotFor(11, "active", "basic", "user_abc"))

	require.NoError(t, ingest(t, repo, raw))

	assert.Equal(t, 1, repo.subscriptionCountForRemoteID("11"))
	event, ok := repo.webhookEvents["evt_1"]
	require.True(t, ok)
	assert.Equal(t, "signup_success", event.EventType)
	assert.Equal(t, string(raw), event.RawBody)
}

func TestIngestWebhookRejectsDuplicateID(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")
	raw := webhookBody(t, "evt_1", "signup_success", snapshotFor(11, "active", "basic", "user_abc"))

	require.NoError(t, ingest(t, repo, raw))
	err := ingest(t, repo, raw)
	require.Error(t, err)
	assert.Equal(t, KindDuplicate, KindOf(err))
	assert.Equal(t, 1, repo.subscriptionCountForRemoteID("11"))
}

func TestIngestWebhookTestEventsReplay(t *testing.T) {
	repo := newFakeRepo()

	first := []byte(`{"id":"evt_ping","event":"test","payload":{"attempt":1}}`)
	second := []byte(`{"id":"evt_ping","event":"test","payload":{"attempt":2}}`)

	require.NoError(t, ingest(t, repo, first))
	require.NoError(t, ingest(t, repo, second))

	event, ok := repo.webhookEvents["evt_ping"]
	require.True(t, ok)
	assert.Equal(t, string(second), event.RawBody)
}

func TestIngestWebhookUnknownEventStillLedgered(t *testing.T) {
	repo := newFakeRepo()
	raw := []byte(`{"id":"evt_new","event":"renewal_success","payload":{}}`)

	require.NoError(t, ingest(t, repo, raw))
	_, ok := repo.webhookEvents["evt_new"]
	assert.True(t, ok)
	assert.Equal(t, 0, len(repo.subscriptions))
}

func TestIngestWebhookRollsBackLedgerOnReconcileFailure(t *testing.T) {
	repo := newFakeRepo()
	// No local user for the customer reference, so reconciliation fails.
	raw := webhookBody(t, "evt_orphan", "signup_success", snapshotFor(11, "active", "basic", "ghost"))

	err := ingest(t, repo, raw)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	// The ledger row must be gone too, or a legitimate retry after the
	// user is provisioned would be treated as a duplicate.
	_, ok := repo.webhookEvents["evt_orphan"]
	assert.False(t, ok)

	testUser(repo, "ghost")
	require.NoError(t, ingest(t, repo, raw))
	assert.Equal(t, 1, repo.subscriptionCountForRemoteID("11"))
}

func TestIngestWebhookOutOfOrderSequence(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")

	// Payment failure before the row exists is a hard error.
	err := ingest(t, repo, webhookBody(t, "evt_a", "payment_failure", snapshotFor(33, "active", "basic", "user_abc")))
	require.Error(t, err)

	// State change before signup creates the row.
	require.NoError(t, ingest(t, repo, webhookBody(t, "evt_b", "subscription_state_change", snapshotFor(33, "past_due", "basic", "user_abc"))))

	// The late signup event is then a no-op, not a second row.
	require.NoError(t, ingest(t, repo, webhookBody(t, "evt_c", "signup_success", snapshotFor(33, "active", "basic", "user_abc"))))

	assert.Equal(t, 1, repo.subscriptionCountForRemoteID("33"))
	assert.Equal(t, 1, repo.currentCountForUser(user.ID))
}

func TestIngestWebhookDistinctIDsSameSubscription(t *testing.T) {
	repo := newFakeRepo()
	testUser(repo, "user_abc")

	for i, state := range []string{"active", "past_due", "active"} {
		id := fmt.Sprintf("evt_%d", i)
		require.NoError(t, ingest(t, repo, webhookBody(t, id, "subscription_state_change", snapshotFor(44, state, "basic", "user_abc"))))
	}

	assert.Equal(t, 1, repo.subscriptionCountForRemoteID("44"))
	sub, err := repo.FindSubscriptionByRemoteID("44")
	require.NoError(t, err)
	assert.Equal(t, "active", sub.Status)
}
