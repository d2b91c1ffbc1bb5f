package billing

import (
	"errors"
	"strings"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository provides the DB operations used by the reconciliation engine,
// the orchestrator and the webhook receiver. Implementations built over a
// transaction handle scope every call to that transaction.
type Repository interface {
	// Transaction runs fn inside one DB transaction; the passed repository
	// is bound to it. Any error rolls the whole transaction back.
	Transaction(fn func(Repository) error) error

	FindSubscriptionByRemoteID(remoteID string) (*models.UserSubscription, error)
	CreateSubscription(sub *models.UserSubscription) error
	SaveSubscription(sub *models.UserSubscription) error
	UpdateSubscriptionStatus(id uint, status string) error
	CurrentSubscriptionForUser(userID uint) (*models.UserSubscription, error)
	ListSubscriptionsByUser(userID uint) ([]models.UserSubscription, error)
	ExpireOtherCurrent(userID uint, exceptID uint) error

	FindUserByBillingRef(ref string) (*models.User, error)
	FindUserByID(id uint) (*models.User, error)
	SaveUser(user *models.User) error

	FindVoucherByCode(code string) (*models.Voucher, error)
	CreateVoucher(v *models.Voucher) error
	ConsumeVoucher(id uint) (bool, error)
	ResetAllVoucherUsage() error
	ListVouchers() ([]models.Voucher, error)

	CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error)
	ReplaceWebhookEvent(event *models.WebhookEvent) error

	SeedPlan(plan *models.SubscriptionPlan) error
}

// ErrNotFound is the repository-level miss, aliased so callers don't need
// to import gorm.
var ErrNotFound = gorm.ErrRecordNotFound

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM. db may be a
// transaction handle.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Transaction(fn func(Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func (r *gormRepository) FindSubscriptionByRemoteID(remoteID string) (*models.UserSubscription, error) {
	id := strings.TrimSpace(remoteID)
	if id == "" {
		return nil, ErrNotFound
	}
	var sub models.UserSubscription
	if err := r.db.Where("remote_subscription_id = ?", id).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *gormRepository) CreateSubscription(sub *models.UserSubscription) error {
	return r.db.Create(sub).Error
}

func (r *gormRepository) SaveSubscription(sub *models.UserSubscription) error {
	// No optimistic-concurrency token here: concurrent reconciliation of
	// the same remote id is last-commit-wins, relying on the provider's
	// event stream to converge. A version column would close that window.
	return r.db.Save(sub).Error
}

func (r *gormRepository) UpdateSubscriptionStatus(id uint, status string) error {
	return r.db.Model(&models.UserSubscription{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *gormRepository) CurrentSubscriptionForUser(userID uint) (*models.UserSubscription, error) {
	subs, err := r.ListSubscriptionsByUser(userID)
	if err != nil {
		return nil, err
	}
	// Most recently created row whose status is not end-of-life.
	var current *models.UserSubscription
	for i := range subs {
		s := &subs[i]
		if !s.IsCurrent() {
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

func (r *gormRepository) ListSubscriptionsByUser(userID uint) ([]models.UserSubscription, error) {
	var subs []models.UserSubscription
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC, id ASC").Find(&subs).Error
	return subs, err
}

func (r *gormRepository) ExpireOtherCurrent(userID uint, exceptID uint) error {
	return r.db.Model(&models.UserSubscription{}).
		Where("user_id = ? AND id <> ? AND status NOT IN ?", userID, exceptID, []string{
			models.SubscriptionStatusCanceled,
			models.SubscriptionStatusExpired,
			models.SubscriptionStatusSuspended,
			models.SubscriptionStatusTrialEnded,
		}).
		Update("status", models.SubscriptionStatusExpired).Error
}

func (r *gormRepository) FindUserByBillingRef(ref string) (*models.User, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return nil, ErrNotFound
	}
	var user models.User
	if err := r.db.Where("billing_ref = ?", trimmed).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) FindUserByID(id uint) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *gormRepository) SaveUser(user *models.User) error {
	return r.db.Save(user).Error
}

func (r *gormRepository) FindVoucherByCode(code string) (*models.Voucher, error) {
	normalized := models.NormalizeVoucherCode(code)
	if normalized == "" {
		return nil, ErrNotFound
	}
	var v models.Voucher
	if err := r.db.Where("code = ?", normalized).First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *gormRepository) CreateVoucher(v *models.Voucher) error {
	v.Code = models.NormalizeVoucherCode(v.Code)
	return r.db.Create(v).Error
}

// ConsumeVoucher increments the redemption count with a conditional update
// so the usage limit holds under concurrent redemptions. Returns false when
// the limit was already reached.
func (r *gormRepository) ConsumeVoucher(id uint) (bool, error) {
	tx := r.db.Model(&models.Voucher{}).
		Where("id = ? AND (usage_limit = ? OR redemption_count < usage_limit)", id, models.VoucherUnlimited).
		Update("redemption_count", gorm.Expr("redemption_count + 1"))
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ResetAllVoucherUsage() error {
	return r.db.Model(&models.Voucher{}).
		Where("redemption_count > 0").
		Update("redemption_count", 0).Error
}

func (r *gormRepository) ListVouchers() ([]models.Voucher, error) {
	var vouchers []models.Voucher
	err := r.db.Order("created_at DESC").Find(&vouchers).Error
	return vouchers, err
}

// CreateWebhookEventIfNotExists inserts the ledger row, relying on the
// unique index on webhook_id for race-safe deduplication. Returns false
// when the id was already recorded.
func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.WebhookEvent) (bool, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "webhook_id"}},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *gormRepository) ReplaceWebhookEvent(event *models.WebhookEvent) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "webhook_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"event_type", "raw_body", "updated_at"}),
	}).Create(event).Error
}

func (r *gormRepository) SeedPlan(plan *models.SubscriptionPlan) error {
	var existing models.SubscriptionPlan
	err := r.db.Where("`key` = ?", plan.Key).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.Create(plan).Error
	}
	if err != nil {
		return err
	}
	existing.ProviderProductHandle = plan.ProviderProductHandle
	existing.Name = plan.Name
	existing.Description = plan.Description
	existing.PriceCents = plan.PriceCents
	existing.Currency = plan.Currency
	existing.UpdatedAt = time.Now()
	return r.db.Save(&existing).Error
}
