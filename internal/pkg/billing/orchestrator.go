package billing

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/internal/pkg/plancatalog"
)

// PortalCache stores billing-portal links with a freshness window so not
// every request costs a provider round trip.
type PortalCache interface {
	GetPortalLink(userID uint) (*PortalLink, bool)
	SetPortalLink(userID uint, link *PortalLink)
}

// portalMaxAge is the freshness window for cached portal links.
const portalMaxAge = 24 * time.Hour

// Orchestrator implements the synchronous user-facing subscription
// operations. Every operation calls the provider first and then feeds the
// provider's response through the same reconciliation engine as the webhook
// path.
type Orchestrator struct {
	repo     Repository
	provider Provider
	portal   PortalCache
}

// NewOrchestrator wires the orchestrator from its collaborators. portal may
// be nil, in which case portal links are fetched on every request.
func NewOrchestrator(repo Repository, provider Provider, portal PortalCache) *Orchestrator {
	return &Orchestrator{repo: repo, provider: provider, portal: portal}
}

// CurrentSubscription returns the user's current local subscription row.
func (o *Orchestrator) CurrentSubscription(userID uint) (*models.UserSubscription, error) {
	sub, err := o.repo.CurrentSubscriptionForUser(userID)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(KindState, "", "no current subscription")
	}
	return sub, err
}

// Subscribe creates a remote subscription for the requested plan and
// reconciles the provider's response into local state.
func (o *Orchestrator) Subscribe(ctx context.Context, userID uint, planKey, paymentToken string) (*models.UserSubscription, error) {
	plan, ok := plancatalog.ByKey(planKey)
	if !ok {
		return nil, newError(KindValidation, "plan_key", "unknown plan "+strings.TrimSpace(planKey))
	}

	user, err := o.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	customer, err := o.ensureCustomer(ctx, user)
	if err != nil {
		return nil, err
	}

	// The provider's subscription list is authoritative for the
	// one-active-subscription rule.
	remotes, err := o.provider.GetSubscriptions(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	for i := range remotes {
		if !models.IsEndOfLifeStatus(statusFromSnapshot(&remotes[i])) {
			return nil, newError(KindState, "", "user already holds an active subscription")
		}
	}

	profile, err := o.ensurePaymentProfile(ctx, customer.ID, paymentToken)
	if err != nil {
		return nil, err
	}

	remote, err := o.provider.CreateSubscription(ctx, plan.ProviderProductHandle, customer.ID, profile.ID)
	if err != nil {
		return nil, err
	}

	return o.reconcile(EventSignupSuccess, remote)
}

// ChangePlan migrates an active paid subscription to another plan.
func (o *Orchestrator) ChangePlan(ctx context.Context, userID uint, planKey string) (*models.UserSubscription, error) {
	plan, ok := plancatalog.ByKey(planKey)
	if !ok {
		return nil, newError(KindValidation, "plan_key", "unknown plan "+strings.TrimSpace(planKey))
	}

	sub, err := o.requirePaidCurrent(userID)
	if err != nil {
		return nil, err
	}
	if sub.PlanKey == plan.Key {
		return nil, newError(KindState, "plan_key", "subscription is already on plan "+plan.Key)
	}

	remoteID, err := parseRemoteID(sub)
	if err != nil {
		return nil, err
	}
	remote, err := o.provider.MigrateSubscription(ctx, remoteID, plan.ProviderProductHandle)
	if err != nil {
		return nil, err
	}

	return o.reconcile(EventProductChange, remote)
}

// Cancel terminates the subscription immediately. A current subscription is
// never in the canceled status, so a repeated cancel is detected from the
// user's most recent retired row and reported as such.
func (o *Orchestrator) Cancel(ctx context.Context, userID uint) (*models.UserSubscription, error) {
	_, remoteID, err := o.requireOwnedPaid(ctx, userID)
	if err != nil {
		if KindOf(err) == KindState && o.latestIsCanceled(userID) {
			return nil, newError(KindState, "", "subscription is already cancelled")
		}
		return nil, err
	}

	if err := o.provider.CancelSubscription(ctx, remoteID); err != nil {
		return nil, err
	}
	return o.refetchAndReconcile(ctx, remoteID)
}

// DelayedCancel flags the subscription for cancellation at period end.
func (o *Orchestrator) DelayedCancel(ctx context.Context, userID uint) (*models.UserSubscription, error) {
	_, remoteID, err := o.requireOwnedPaid(ctx, userID)
	if err != nil {
		return nil, err
	}

	remote, err := o.provider.GetSubscriptionByID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	if remote.CancelAtEndOfTerm {
		return nil, newError(KindState, "", "subscription is already flagged for delayed cancellation")
	}

	if err := o.provider.DelayedCancelSubscription(ctx, remoteID); err != nil {
		return nil, err
	}
	return o.refetchAndReconcile(ctx, remoteID)
}

// StopDelayedCancel removes a pending end-of-period cancellation.
func (o *Orchestrator) StopDelayedCancel(ctx context.Context, userID uint) (*models.UserSubscription, error) {
	_, remoteID, err := o.requireOwnedPaid(ctx, userID)
	if err != nil {
		return nil, err
	}

	remote, err := o.provider.GetSubscriptionByID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	if !remote.CancelAtEndOfTerm {
		return nil, newError(KindState, "", "subscription is not flagged for delayed cancellation")
	}

	if err := o.provider.StopDelayedCancelSubscription(ctx, remoteID); err != nil {
		return nil, err
	}
	return o.refetchAndReconcile(ctx, remoteID)
}

// Refresh re-derives local state from the provider's subscription list.
// It is the sanctioned recovery path when local and remote disagree.
func (o *Orchestrator) Refresh(ctx context.Context, userID uint) (*models.UserSubscription, error) {
	user, err := o.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}

	customer, err := o.provider.GetCustomerByRef(ctx, user.BillingRef)
	if errors.Is(err, ErrRemoteNotFound) {
		return nil, newError(KindState, "", "user has no provider customer record")
	}
	if err != nil {
		return nil, err
	}

	remotes, err := o.provider.GetSubscriptions(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	chosen := pickCurrentRemote(remotes)
	if chosen == nil {
		return nil, newError(KindState, "", "provider reports no subscriptions for this user")
	}

	// Full re-derivation: plan/owner first, then status, in one transaction.
	var result *models.UserSubscription
	err = o.repo.Transaction(func(repo Repository) error {
		engine := NewEngine(repo)
		if _, err := engine.Apply(EventProductChange, chosen); err != nil {
			return err
		}
		sub, err := engine.Apply(EventStateChange, chosen)
		if err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// PortalLink returns a billing portal management link, re-fetched from the
// provider when the cached link is older than one day.
func (o *Orchestrator) PortalLink(ctx context.Context, userID uint) (*PortalLink, error) {
	if o.portal != nil {
		if link, ok := o.portal.GetPortalLink(userID); ok && time.Since(link.FetchedAt) < portalMaxAge {
			return link, nil
		}
	}

	user, err := o.repo.FindUserByID(userID)
	if err != nil {
		return nil, err
	}
	customer, err := o.provider.GetCustomerByRef(ctx, user.BillingRef)
	if errors.Is(err, ErrRemoteNotFound) {
		return nil, newError(KindState, "", "user has no provider customer record")
	}
	if err != nil {
		return nil, err
	}

	link, err := o.provider.GetBillingPortal(ctx, customer.ID)
	if err != nil {
		return nil, err
	}
	if o.portal != nil {
		o.portal.SetPortalLink(userID, link)
	}
	return link, nil
}

// ensureCustomer looks up the provider customer for the user, creating one
// from profile data when absent.
func (o *Orchestrator) ensureCustomer(ctx context.Context, user *models.User) (*RemoteCustomer, error) {
	customer, err := o.provider.GetCustomerByRef(ctx, user.BillingRef)
	if err == nil {
		return customer, nil
	}
	if !errors.Is(err, ErrRemoteNotFound) {
		return nil, err
	}

	first, last := user.SplitName()
	customer, err = o.provider.CreateCustomer(ctx, &RemoteCustomer{
		Reference: user.BillingRef,
		FirstName: first,
		LastName:  last,
		Email:     user.Email,
		Address:   user.Address,
		Phone:     user.Phone,
	})
	if err != nil {
		return nil, err
	}

	user.BillingCustomerID = customer.ID
	if err := o.repo.SaveUser(user); err != nil {
		return nil, err
	}
	return customer, nil
}

func (o *Orchestrator) ensurePaymentProfile(ctx context.Context, customerID int64, paymentToken string) (*PaymentProfile, error) {
	profiles, err := o.provider.GetPaymentProfiles(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if len(profiles) > 0 {
		return &profiles[0], nil
	}
	return o.provider.CreatePaymentProfile(ctx, customerID, paymentToken)
}

// latestIsCanceled reports whether the user's most recently created
// subscription row ended in the canceled status.
func (o *Orchestrator) latestIsCanceled(userID uint) bool {
	subs, err := o.repo.ListSubscriptionsByUser(userID)
	if err != nil {
		return false
	}
	var latest *models.UserSubscription
	for i := range subs {
		s := &subs[i]
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) || (s.CreatedAt.Equal(latest.CreatedAt) && s.ID > latest.ID) {
			latest = s
		}
	}
	return latest != nil && latest.Status == models.SubscriptionStatusCanceled
}

// requirePaidCurrent returns the user's current subscription if it is
// provider-backed and not in a problem state.
func (o *Orchestrator) requirePaidCurrent(userID uint) (*models.UserSubscription, error) {
	sub, err := o.repo.CurrentSubscriptionForUser(userID)
	if errors.Is(err, ErrNotFound) {
		return nil, newError(KindState, "", "user has no active subscription")
	}
	if err != nil {
		return nil, err
	}
	if !sub.IsPaid() {
		return nil, newError(KindState, "", "subscription is not provider-backed")
	}
	return sub, nil
}

// requireOwnedPaid additionally verifies against the provider that the
// local subscription really belongs to this user's customer record.
func (o *Orchestrator) requireOwnedPaid(ctx context.Context, userID uint) (*models.UserSubscription, int64, error) {
	sub, err := o.requirePaidCurrent(userID)
	if err != nil {
		return nil, 0, err
	}
	remoteID, err := parseRemoteID(sub)
	if err != nil {
		return nil, 0, err
	}

	user, err := o.repo.FindUserByID(userID)
	if err != nil {
		return nil, 0, err
	}
	customer, err := o.provider.GetCustomerByRef(ctx, user.BillingRef)
	if errors.Is(err, ErrRemoteNotFound) {
		return nil, 0, newError(KindState, "", "user has no provider customer record")
	}
	if err != nil {
		return nil, 0, err
	}

	remotes, err := o.provider.GetSubscriptions(ctx, customer.ID)
	if err != nil {
		return nil, 0, err
	}
	for i := range remotes {
		if remotes[i].ID == remoteID {
			return sub, remoteID, nil
		}
	}
	return nil, 0, newError(KindState, "", "subscription does not belong to this user")
}

func (o *Orchestrator) refetchAndReconcile(ctx context.Context, remoteID int64) (*models.UserSubscription, error) {
	remote, err := o.provider.GetSubscriptionByID(ctx, remoteID)
	if err != nil {
		return nil, err
	}
	return o.reconcile(EventStateChange, remote)
}

// reconcile feeds a provider snapshot through the engine inside one
// transaction.
func (o *Orchestrator) reconcile(kind EventKind, snap *RemoteSubscription) (*models.UserSubscription, error) {
	var result *models.UserSubscription
	err := o.repo.Transaction(func(repo Repository) error {
		sub, err := NewEngine(repo).Apply(kind, snap)
		if err != nil {
			return err
		}
		result = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func parseRemoteID(sub *models.UserSubscription) (int64, error) {
	if !sub.IsPaid() {
		return 0, newError(KindState, "", "subscription is not provider-backed")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(*sub.RemoteSubscriptionID), 10, 64)
	if err != nil {
		return 0, newError(KindValidation, "remote_subscription_id", "remote subscription id is not numeric")
	}
	return id, nil
}

// pickCurrentRemote selects the provider's "current active" subscription:
// the best non-terminal state wins, most recently created breaking ties.
func pickCurrentRemote(remotes []RemoteSubscription) *RemoteSubscription {
	var best *RemoteSubscription
	bestRank := -1
	for i := range remotes {
		r := &remotes[i]
		rank := remoteStateRank(r)
		if rank > bestRank {
			best = r
			bestRank = rank
			continue
		}
		if rank == bestRank && best != nil && createdAfter(r, best) {
			best = r
		}
	}
	return best
}

func remoteStateRank(r *RemoteSubscription) int {
	switch strings.ToLower(strings.TrimSpace(r.State)) {
	case models.SubscriptionStatusActive:
		return 3
	case models.SubscriptionStatusTrialing:
		return 2
	}
	if !models.IsEndOfLifeStatus(r.State) {
		return 1
	}
	return 0
}

func createdAfter(a, b *RemoteSubscription) bool {
	if a.CreatedAt == nil || b.CreatedAt == nil {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(*b.CreatedAt)
}
