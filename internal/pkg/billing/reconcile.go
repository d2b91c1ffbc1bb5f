package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/internal/pkg/plancatalog"
)

// Engine derives correct local subscription state from a remote snapshot.
// It is the only writer of UserSubscription rows; both the webhook receiver
// and the orchestrator feed it, so the two ingestion paths cannot diverge.
type Engine struct {
	repo Repository
}

// NewEngine creates a reconciliation engine over the given repository
// (typically one bound to the enclosing transaction).
func NewEngine(repo Repository) *Engine {
	return &Engine{repo: repo}
}

// Apply reconciles one event. Unknown event kinds are a deliberate no-op;
// for every recognized kind the snapshot's remote id is the join key and is
// required.
func (e *Engine) Apply(kind EventKind, snap *RemoteSubscription) (*models.UserSubscription, error) {
	if kind == EventUnknown || kind == EventTest {
		return nil, nil
	}

	if snap == nil {
		return nil, newError(KindValidation, "payload.subscription", "subscription snapshot is required")
	}
	remoteID := snap.RemoteID()
	if remoteID == "" {
		return nil, newError(KindValidation, "subscription.id", "remote subscription id is required")
	}

	switch kind {
	case EventSignupSuccess:
		return e.applySignupSuccess(remoteID, snap)
	case EventSignupFailure, EventStateChange:
		return e.applyStateChange(remoteID, snap)
	case EventProductChange:
		return e.applyProductChange(remoteID, snap)
	case EventPaymentSuccess, EventPaymentFailure:
		return e.applyPaymentResult(kind, remoteID)
	}
	return nil, nil
}

// applySignupSuccess creates the local row for a fresh remote subscription.
// A row that already exists means the signup was reconciled through another
// channel first; that is a no-op, not an error.
func (e *Engine) applySignupSuccess(remoteID string, snap *RemoteSubscription) (*models.UserSubscription, error) {
	existing, err := e.repo.FindSubscriptionByRemoteID(remoteID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return e.createFromSnapshot(remoteID, snap)
}

// applyStateChange overwrites the status from the snapshot. A missing local
// row is created: the provider is the source of truth, and the creating
// webhook may have been delayed or lost.
func (e *Engine) applyStateChange(remoteID string, snap *RemoteSubscription) (*models.UserSubscription, error) {
	existing, err := e.repo.FindSubscriptionByRemoteID(remoteID)
	if errors.Is(err, ErrNotFound) {
		return e.createFromSnapshot(remoteID, snap)
	}
	if err != nil {
		return nil, err
	}

	// Only the status column changes; start/end dates are preserved for a
	// later recovery from problem states.
	status := statusFromSnapshot(snap)
	if err := e.repo.UpdateSubscriptionStatus(existing.ID, status); err != nil {
		return nil, err
	}
	existing.Status = status

	// A delayed state change can arrive after a newer subscription took
	// over for the same user. Reviving this row must retire the others, or
	// the user ends up with two current subscriptions.
	if existing.IsCurrent() {
		if err := e.repo.ExpireOtherCurrent(existing.UserID, existing.ID); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

// applyProductChange re-resolves plan and owner from the snapshot. A race
// can deliver the product change before the row exists, in which case the
// snapshot's timestamps become the start/end dates.
func (e *Engine) applyProductChange(remoteID string, snap *RemoteSubscription) (*models.UserSubscription, error) {
	plan, ok := plancatalog.ByProductHandle(snap.Product.Handle)
	if !ok {
		return nil, newError(KindValidation, "product.handle", "no plan mapped to product handle "+strings.TrimSpace(snap.Product.Handle))
	}
	user, err := e.resolveUser(snap)
	if err != nil {
		return nil, err
	}

	existing, err := e.repo.FindSubscriptionByRemoteID(remoteID)
	if errors.Is(err, ErrNotFound) {
		return e.createFromSnapshot(remoteID, snap)
	}
	if err != nil {
		return nil, err
	}

	existing.PlanKey = plan.Key
	existing.UserID = user.ID
	if err := e.repo.SaveSubscription(existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// applyPaymentResult requires the local row to exist and records the event
// type's literal value as the status.
func (e *Engine) applyPaymentResult(kind EventKind, remoteID string) (*models.UserSubscription, error) {
	existing, err := e.repo.FindSubscriptionByRemoteID(remoteID)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(KindValidation, "subscription.id", "no local subscription for remote id "+remoteID)
	}
	if err != nil {
		return nil, err
	}

	status := models.SubscriptionStatusPaymentSuccess
	if kind == EventPaymentFailure {
		status = models.SubscriptionStatusPaymentFailure
	}
	if err := e.repo.UpdateSubscriptionStatus(existing.ID, status); err != nil {
		return nil, err
	}
	existing.Status = status

	// Same revival hazard as state changes: a stale payment result for a
	// retired row must not leave it current next to a newer one.
	if existing.IsCurrent() {
		if err := e.repo.ExpireOtherCurrent(existing.UserID, existing.ID); err != nil {
			return nil, err
		}
	}
	return existing, nil
}

func (e *Engine) createFromSnapshot(remoteID string, snap *RemoteSubscription) (*models.UserSubscription, error) {
	plan, ok := plancatalog.ByProductHandle(snap.Product.Handle)
	if !ok {
		return nil, newError(KindValidation, "product.handle", "no plan mapped to product handle "+strings.TrimSpace(snap.Product.Handle))
	}
	user, err := e.resolveUser(snap)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	if snap.CreatedAt != nil {
		start = *snap.CreatedAt
	}
	id := remoteID
	sub := &models.UserSubscription{
		UserID:               user.ID,
		RemoteSubscriptionID: &id,
		PlanKey:              plan.Key,
		Status:               statusFromSnapshot(snap),
		StartDate:            start,
		EndDate:              snap.NextAssessmentAt,
	}
	if err := e.repo.CreateSubscription(sub); err != nil {
		return nil, err
	}

	// At most one row per user may be current; creating a new current row
	// retires any older one.
	if sub.IsCurrent() {
		if err := e.repo.ExpireOtherCurrent(sub.UserID, sub.ID); err != nil {
			return nil, err
		}
	}
	return sub, nil
}

// resolveUser maps the snapshot's customer reference to a local user.
// An unknown reference is a hard failure: reconciliation never creates
// orphaned subscription rows.
func (e *Engine) resolveUser(snap *RemoteSubscription) (*models.User, error) {
	ref := strings.TrimSpace(snap.Customer.Reference)
	if ref == "" {
		return nil, newError(KindValidation, "customer.reference", "customer reference is required")
	}
	user, err := e.repo.FindUserByBillingRef(ref)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(KindValidation, "customer.reference", "no local user for customer reference "+ref)
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// statusFromSnapshot derives the local status from the provider state. A
// non-terminal subscription flagged for end-of-period cancellation maps to
// delayed_cancel.
func statusFromSnapshot(snap *RemoteSubscription) string {
	state := strings.ToLower(strings.TrimSpace(snap.State))
	if state == "" {
		state = models.SubscriptionStatusActive
	}
	if snap.CancelAtEndOfTerm && !models.IsEndOfLifeStatus(state) {
		return models.SubscriptionStatusDelayedCancel
	}
	return state
}
