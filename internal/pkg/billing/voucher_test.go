package billing

import (
	"testing"
	"time"

	"github.com/MarcChevalier/Tastevin/app/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedeemCreatesVoucherSubscription(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	repo.addVoucher(&models.Voucher{Code: "HARVEST-2026", PlanKey: "premium", UsageLimit: 3, ValidDays: 30})
	resolver := NewVoucherResolver(repo)

	sub, err := resolver.Redeem(user.ID, "  harvest-2026 ")
	require.NoError(t, err)
	assert.Equal(t, "premium", sub.PlanKey)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Nil(t, sub.RemoteSubscriptionID)
	require.NotNil(t, sub.VoucherID)
	require.NotNil(t, sub.EndDate)
	wantEnd := time.Now().AddDate(0, 0, 30)
	assert.WithinDuration(t, wantEnd, *sub.EndDate, time.Minute)
}

func TestRedeemUnlimitedValidityHasNoEndDate(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	repo.addVoucher(&models.Voucher{Code: "FOREVER", PlanKey: "basic", UsageLimit: models.VoucherUnlimited, ValidDays: models.VoucherUnlimited})
	resolver := NewVoucherResolver(repo)

	sub, err := resolver.Redeem(user.ID, "FOREVER")
	require.NoError(t, err)
	assert.Nil(t, sub.EndDate)
}

func TestRedeemEnforcesUsageLimit(t *testing.T) {
	repo := newFakeRepo()
	repo.addVoucher(&models.Voucher{Code: "TRIO", PlanKey: "basic", UsageLimit: 3, ValidDays: models.VoucherUnlimited})
	resolver := NewVoucherResolver(repo)

	for i := 0; i < 3; i++ {
		user := testUser(repo, "user_"+string(rune('a'+i)))
		_, err := resolver.Redeem(user.ID, "TRIO")
		require.NoError(t, err, "redemption %d", i+1)
	}

	fourth := testUser(repo, "user_late")
	_, err := resolver.Redeem(fourth.ID, "TRIO")
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
}

func TestRedeemUnlimitedUsage(t *testing.T) {
	repo := newFakeRepo()
	repo.addVoucher(&models.Voucher{Code: "OPENBAR", PlanKey: "basic", UsageLimit: models.VoucherUnlimited, ValidDays: models.VoucherUnlimited})
	resolver := NewVoucherResolver(repo)

	for i := 0; i < 10; i++ {
		user := testUser(repo, "user_"+string(rune('a'+i)))
		_, err := resolver.Redeem(user.ID, "OPENBAR")
		require.NoError(t, err)
	}
}

func TestRedeemExpiredVoucher(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	repo.addVoucher(&models.Voucher{
		Code:      "OLDNEWS",
		PlanKey:   "basic",
		ValidDays: 7,
		CreatedAt: time.Now().AddDate(0, 0, -8),
	})
	resolver := NewVoucherResolver(repo)

	_, err := resolver.Redeem(user.ID, "OLDNEWS")
	require.Error(t, err)
	assert.Equal(t, KindState, KindOf(err))
	assert.Equal(t, 0, len(repo.subscriptions))
}

func TestRedeemUnknownCode(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	resolver := NewVoucherResolver(repo)

	_, err := resolver.Redeem(user.ID, "NOPE")
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestRedeemRetiresPreviousCurrent(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	repo.addVoucher(&models.Voucher{Code: "UPGRADE", PlanKey: "premium", UsageLimit: models.VoucherUnlimited, ValidDays: models.VoucherUnlimited})
	engine := NewEngine(repo)
	_, err := engine.Apply(EventSignupSuccess, snapshotFor(31, "active", "basic", "user_abc"))
	require.NoError(t, err)

	_, err = NewVoucherResolver(repo).Redeem(user.ID, "UPGRADE")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.currentCountForUser(user.ID))
	current, err := repo.CurrentSubscriptionForUser(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "premium", current.PlanKey)
}

func TestCreateVoucherValidatesPlan(t *testing.T) {
	resolver := NewVoucherResolver(newFakeRepo())

	_, err := resolver.Create("SOMECODE", "grand-cru", 1, 1)
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))

	v, err := resolver.Create("somecode", "basic", 5, 14)
	require.NoError(t, err)
	assert.Equal(t, "SOMECODE", v.Code)
	assert.Equal(t, 5, v.UsageLimit)
}

func TestResetUsage(t *testing.T) {
	repo := newFakeRepo()
	user := testUser(repo, "user_abc")
	repo.addVoucher(&models.Voucher{Code: "ONESHOT", PlanKey: "basic", UsageLimit: 1, ValidDays: models.VoucherUnlimited})
	resolver := NewVoucherResolver(repo)

	_, err := resolver.Redeem(user.ID, "ONESHOT")
	require.NoError(t, err)
	_, err = resolver.Redeem(testUser(repo, "user_two").ID, "ONESHOT")
	require.Error(t, err)

	require.NoError(t, resolver.ResetUsage())
	_, err = resolver.Redeem(testUser(repo, "user_three").ID, "ONESHOT")
	require.NoError(t, err)
}
