package billing

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
)

// fakeRepo is an in-memory Repository with rollback-capable transactions so
// tests can assert the no-partial-state guarantee.
type fakeRepo struct {
	users         map[uint]*models.User
	subscriptions []*models.UserSubscription
	vouchers      map[uint]*models.Voucher
	webhookEvents map[string]*models.WebhookEvent
	nextID        uint
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:         make(map[uint]*models.User),
		vouchers:      make(map[uint]*models.Voucher),
		webhookEvents: make(map[string]*models.WebhookEvent),
		nextID:        1,
	}
}

func (r *fakeRepo) addUser(u *models.User) *models.User {
	if u.ID == 0 {
		u.ID = r.nextID
		r.nextID++
	}
	r.users[u.ID] = u
	return u
}

func (r *fakeRepo) addVoucher(v *models.Voucher) *models.Voucher {
	if v.ID == 0 {
		v.ID = r.nextID
		r.nextID++
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	v.Code = models.NormalizeVoucherCode(v.Code)
	r.vouchers[v.ID] = v
	return v
}

func (r *fakeRepo) snapshot() *fakeRepo {
	cp := newFakeRepo()
	cp.nextID = r.nextID
	for id, u := range r.users {
		uc := *u
		cp.users[id] = &uc
	}
	for _, s := range r.subscriptions {
		sc := *s
		cp.subscriptions = append(cp.subscriptions, &sc)
	}
	for id, v := range r.vouchers {
		vc := *v
		cp.vouchers[id] = &vc
	}
	for id, e := range r.webhookEvents {
		ec := *e
		cp.webhookEvents[id] = &ec
	}
	return cp
}

func (r *fakeRepo) restore(from *fakeRepo) {
	r.users = from.users
	r.subscriptions = from.subscriptions
	r.vouchers = from.vouchers
	r.webhookEvents = from.webhookEvents
	r.nextID = from.nextID
}

func (r *fakeRepo) Transaction(fn func(Repository) error) error {
	before := r.snapshot()
	if err := fn(r); err != nil {
		r.restore(before)
		return err
	}
	return nil
}

func (r *fakeRepo) FindSubscriptionByRemoteID(remoteID string) (*models.UserSubscription, error) {
	id := strings.TrimSpace(remoteID)
	if id == "" {
		return nil, ErrNotFound
	}
	for _, s := range r.subscriptions {
		if s.RemoteSubscriptionID != nil && *s.RemoteSubscriptionID == id {
			out := *s
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) CreateSubscription(sub *models.UserSubscription) error {
	sub.ID = r.nextID
	r.nextID++
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now()
	}
	cp := *sub
	r.subscriptions = append(r.subscriptions, &cp)
	return nil
}

func (r *fakeRepo) SaveSubscription(sub *models.UserSubscription) error {
	for i, s := range r.subscriptions {
		if s.ID == sub.ID {
			cp := *sub
			r.subscriptions[i] = &cp
			return nil
		}
	}
	return ErrNotFound
}

func (r *fakeRepo) UpdateSubscriptionStatus(id uint, status string) error {
	for _, s := range r.subscriptions {
		if s.ID == id {
			s.Status = status
			return nil
		}
	}
	return ErrNotFound
}

func (r *fakeRepo) CurrentSubscriptionForUser(userID uint) (*models.UserSubscription, error) {
	var current *models.UserSubscription
	for _, s := range r.subscriptions {
		if s.UserID != userID || !s.IsCurrent() {
			continue
		}
		if current == nil || s.CreatedAt.After(current.CreatedAt) || (s.CreatedAt.Equal(current.CreatedAt) && s.ID > current.ID) {
			current = s
		}
	}
	if current == nil {
		return nil, ErrNotFound
	}
	out := *current
	return &out, nil
}

func (r *fakeRepo) ListSubscriptionsByUser(userID uint) ([]models.UserSubscription, error) {
	var out []models.UserSubscription
	for _, s := range r.subscriptions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (r *fakeRepo) ExpireOtherCurrent(userID uint, exceptID uint) error {
	for _, s := range r.subscriptions {
		if s.UserID == userID && s.ID != exceptID && s.IsCurrent() {
			s.Status = models.SubscriptionStatusExpired
		}
	}
	return nil
}

func (r *fakeRepo) FindUserByBillingRef(ref string) (*models.User, error) {
	for _, u := range r.users {
		if u.BillingRef == strings.TrimSpace(ref) {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) FindUserByID(id uint) (*models.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r *fakeRepo) SaveUser(user *models.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return ErrNotFound
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *fakeRepo) FindVoucherByCode(code string) (*models.Voucher, error) {
	normalized := models.NormalizeVoucherCode(code)
	for _, v := range r.vouchers {
		if v.Code == normalized {
			out := *v
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *fakeRepo) CreateVoucher(v *models.Voucher) error {
	r.addVoucher(v)
	return nil
}

func (r *fakeRepo) ConsumeVoucher(id uint) (bool, error) {
	v, ok := r.vouchers[id]
	if !ok {
		return false, ErrNotFound
	}
	if v.UsageLimit != models.VoucherUnlimited && v.RedemptionCount >= v.UsageLimit {
		return false, nil
	}
	v.RedemptionCount++
	return true, nil
}

func (r *fakeRepo) ResetAllVoucherUsage() error {
	for _, v := range r.vouchers {
		v.RedemptionCount = 0
	}
	return nil
}

func (r *fakeRepo) ListVouchers() ([]models.Voucher, error) {
	var out []models.Voucher
	for _, v := range r.vouchers {
		out = append(out, *v)
	}
	return out, nil
}

func (r *fakeRepo) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error) {
	if _, ok := r.webhookEvents[event.WebhookID]; ok {
		return false, nil
	}
	cp := *event
	r.webhookEvents[event.WebhookID] = &cp
	return true, nil
}

func (r *fakeRepo) ReplaceWebhookEvent(event *models.WebhookEvent) error {
	cp := *event
	r.webhookEvents[event.WebhookID] = &cp
	return nil
}

func (r *fakeRepo) SeedPlan(plan *models.SubscriptionPlan) error {
	return nil
}

func (r *fakeRepo) subscriptionCountForRemoteID(remoteID string) int {
	n := 0
	for _, s := range r.subscriptions {
		if s.RemoteSubscriptionID != nil && *s.RemoteSubscriptionID == remoteID {
			n++
		}
	}
	return n
}

func (r *fakeRepo) currentCountForUser(userID uint) int {
	n := 0
	for _, s := range r.subscriptions {
		if s.UserID == userID && s.IsCurrent() {
			n++
		}
	}
	return n
}

// fakeProvider scripts provider behavior for orchestrator tests.
type fakeProvider struct {
	customers       map[string]*RemoteCustomer
	profiles        map[int64][]PaymentProfile
	subscriptions   map[int64]*RemoteSubscription
	nextID          int64
	failNext        error
	createdCustomer int
	createdProfiles int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		customers:     make(map[string]*RemoteCustomer),
		profiles:      make(map[int64][]PaymentProfile),
		subscriptions: make(map[int64]*RemoteSubscription),
		nextID:        100,
	}
}

func (p *fakeProvider) takeErr() error {
	err := p.failNext
	p.failNext = nil
	return err
}

func (p *fakeProvider) GetCustomerByRef(_ context.Context, reference string) (*RemoteCustomer, error) {
	if err := p.takeErr(); err != nil {
		return nil, err
	}
	c, ok := p.customers[reference]
	if !ok {
		return nil, ErrRemoteNotFound
	}
	return c, nil
}

func (p *fakeProvider) CreateCustomer(_ context.Context, customer *RemoteCustomer) (*RemoteCustomer, error) {
	if err := p.takeErr(); err != nil {
		return nil, err
	}
	cp := *customer
	cp.ID = p.nextID
	p.nextID++
	p.customers[cp.Reference] = &cp
	p.createdCustomer++
	return &cp, nil
}

func (p *fakeProvider) GetPaymentProfiles(_ context.Context, customerID int64) ([]PaymentProfile, error) {
	return p.profiles[customerID], nil
}

func (p *fakeProvider) CreatePaymentProfile(_ context.Context, customerID int64, _ string) (*PaymentProfile, error) {
	profile := PaymentProfile{ID: p.nextID, CustomerID: customerID}
	p.nextID++
	p.profiles[customerID] = append(p.profiles[customerID], profile)
	p.createdProfiles++
	return &profile, nil
}

func (p *fakeProvider) GetSubscriptions(_ context.Context, customerID int64) ([]RemoteSubscription, error) {
	var out []RemoteSubscription
	for _, s := range p.subscriptions {
		if s.Customer.ID == customerID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (p *fakeProvider) GetSubscriptionByID(_ context.Context, subscriptionID int64) (*RemoteSubscription, error) {
	s, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, ErrRemoteNotFound
	}
	cp := *s
	return &cp, nil
}

func (p *fakeProvider) CreateSubscription(_ context.Context, productHandle string, customerID, _ int64) (*RemoteSubscription, error) {
	if err := p.takeErr(); err != nil {
		return nil, err
	}
	now := time.Now()
	sub := &RemoteSubscription{ID: p.nextID, State: "active", CreatedAt: &now}
	p.nextID++
	sub.Product.Handle = productHandle
	sub.Customer.ID = customerID
	for ref, c := range p.customers {
		if c.ID == customerID {
			sub.Customer.Reference = ref
		}
	}
	p.subscriptions[sub.ID] = sub
	return sub, nil
}

func (p *fakeProvider) MigrateSubscription(_ context.Context, subscriptionID int64, productHandle string) (*RemoteSubscription, error) {
	s, ok := p.subscriptions[subscriptionID]
	if !ok {
		return nil, ErrRemoteNotFound
	}
	s.Product.Handle = productHandle
	cp := *s
	return &cp, nil
}

func (p *fakeProvider) CancelSubscription(_ context.Context, subscriptionID int64) error {
	s, ok := p.subscriptions[subscriptionID]
	if !ok {
		return ErrRemoteNotFound
	}
	s.State = "canceled"
	s.CancelAtEndOfTerm = false
	return nil
}

func (p *fakeProvider) DelayedCancelSubscription(_ context.Context, subscriptionID int64) error {
	s, ok := p.subscriptions[subscriptionID]
	if !ok {
		return ErrRemoteNotFound
	}
	s.CancelAtEndOfTerm = true
	return nil
}

func (p *fakeProvider) StopDelayedCancelSubscription(_ context.Context, subscriptionID int64) error {
	s, ok := p.subscriptions[subscriptionID]
	if !ok {
		return ErrRemoteNotFound
	}
	s.CancelAtEndOfTerm = false
	return nil
}

func (p *fakeProvider) GetBillingPortal(_ context.Context, customerID int64) (*PortalLink, error) {
	if err := p.takeErr(); err != nil {
		return nil, err
	}
	return &PortalLink{URL: "https://portal.example/manage", FetchedAt: time.Now()}, nil
}

func (p *fakeProvider) GetSiteTransactions(_ context.Context, _ url.Values) ([]Transaction, error) {
	return nil, nil
}

// memoryPortalCache is a map-backed PortalCache for tests.
type memoryPortalCache struct {
	links map[uint]*PortalLink
	hits  int
}

func newMemoryPortalCache() *memoryPortalCache {
	return &memoryPortalCache{links: make(map[uint]*PortalLink)}
}

func (m *memoryPortalCache) GetPortalLink(userID uint) (*PortalLink, bool) {
	link, ok := m.links[userID]
	if ok {
		m.hits++
	}
	return link, ok
}

func (m *memoryPortalCache) SetPortalLink(userID uint, link *PortalLink) {
	m.links[userID] = link
}
