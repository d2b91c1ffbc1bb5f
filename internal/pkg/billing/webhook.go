package billing

import (
	"github.com/MarcChevalier/Tastevin/app/models"
)

// IngestWebhook applies one authenticated provider notification: ledger
// insert and reconciliation run in a single transaction, so a failure in
// either rolls back both and a legitimate retry is not mistaken for a
// duplicate.
func IngestWebhook(repo Repository, env *WebhookEnvelope, snap *RemoteSubscription, raw []byte) error {
	kind := ParseEventKind(env.Event)

	return repo.Transaction(func(repo Repository) error {
		event := &models.WebhookEvent{
			WebhookID: env.ID,
			EventType: env.Event,
			RawBody:   string(raw),
		}

		if kind.IsReplayable() {
			// Designated test replays overwrite their ledger row instead
			// of being rejected.
			if err := repo.ReplaceWebhookEvent(event); err != nil {
				return err
			}
		} else {
			created, err := repo.CreateWebhookEventIfNotExists(event)
			if err != nil {
				return err
			}
			if !created {
				return newError(KindDuplicate, "id", "webhook "+env.ID+" was already accepted")
			}
		}

		_, err := NewEngine(repo).Apply(kind, snap)
		return err
	})
}
