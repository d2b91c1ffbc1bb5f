package billing

import (
	"errors"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/MarcChevalier/Tastevin/internal/pkg/plancatalog"
)

// VoucherResolver validates and consumes promotional codes that grant a
// local subscription without contacting the billing provider.
type VoucherResolver struct {
	repo Repository
}

func NewVoucherResolver(repo Repository) *VoucherResolver {
	return &VoucherResolver{repo: repo}
}

// Redeem consumes one use of the voucher and creates a voucher-only local
// subscription for the user. The whole redemption runs in one transaction.
func (v *VoucherResolver) Redeem(userID uint, code string) (*models.UserSubscription, error) {
	var created *models.UserSubscription
	err := v.repo.Transaction(func(repo Repository) error {
		voucher, err := repo.FindVoucherByCode(code)
		if errors.Is(err, ErrNotFound) {
			return newError(KindValidation, "code", "voucher code is not known")
		}
		if err != nil {
			return err
		}

		now := time.Now()
		if voucher.IsExpired(now) {
			return newError(KindState, "code", "voucher is expired")
		}
		if voucher.IsExhausted() {
			return newError(KindState, "code", "voucher usage limit reached")
		}

		plan, ok := plancatalog.ByKey(voucher.PlanKey)
		if !ok {
			return newError(KindValidation, "plan_key", "voucher references unknown plan "+voucher.PlanKey)
		}

		// The conditional update is the authoritative usage-limit guard
		// under concurrent redemptions.
		consumed, err := repo.ConsumeVoucher(voucher.ID)
		if err != nil {
			return err
		}
		if !consumed {
			return newError(KindState, "code", "voucher usage limit reached")
		}

		var endDate *time.Time
		if voucher.ValidDays != models.VoucherUnlimited {
			end := now.AddDate(0, 0, voucher.ValidDays)
			endDate = &end
		}

		voucherID := voucher.ID
		sub := &models.UserSubscription{
			UserID:    userID,
			PlanKey:   plan.Key,
			Status:    models.SubscriptionStatusActive,
			StartDate: now,
			EndDate:   endDate,
			VoucherID: &voucherID,
		}
		if err := repo.CreateSubscription(sub); err != nil {
			return err
		}
		if err := repo.ExpireOtherCurrent(userID, sub.ID); err != nil {
			return err
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Create registers a new voucher (administrative).
func (v *VoucherResolver) Create(code, planKey string, usageLimit, validDays int) (*models.Voucher, error) {
	if _, ok := plancatalog.ByKey(planKey); !ok {
		return nil, newError(KindValidation, "plan_key", "unknown plan "+planKey)
	}
	voucher := &models.Voucher{
		Code:       models.NormalizeVoucherCode(code),
		PlanKey:    planKey,
		UsageLimit: usageLimit,
		ValidDays:  validDays,
	}
	if err := voucher.Validate(); err != nil {
		return nil, newError(KindValidation, "code", err.Error())
	}
	if err := v.repo.CreateVoucher(voucher); err != nil {
		return nil, err
	}
	return voucher, nil
}

// ResetUsage clears consumption across all vouchers (administrative).
func (v *VoucherResolver) ResetUsage() error {
	return v.repo.ResetAllVoucherUsage()
}

// List returns all vouchers (administrative).
func (v *VoucherResolver) List() ([]models.Voucher, error) {
	return v.repo.ListVouchers()
}
