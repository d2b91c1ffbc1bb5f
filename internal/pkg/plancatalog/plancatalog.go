package plancatalog

import (
	"strings"

	"github.com/MarcChevalier/Tastevin/app/models"
)

// PlanKey identifies a locally known subscription plan.
type PlanKey string

const (
	PlanBasic     PlanKey = "basic"
	PlanPremium   PlanKey = "premium"
	PlanSommelier PlanKey = "sommelier"
)

// catalog is the static mapping between local plan keys and the provider's
// product handles. Seeded into the reference table at startup; pure lookup
// at runtime.
var catalog = []models.SubscriptionPlan{
	{
		Key:                   string(PlanBasic),
		ProviderProductHandle: "basic",
		Name:                  "Basic",
		Description:           "Unlimited tasting notes and event hosting.",
		PriceCents:            490,
		Currency:              "EUR",
	},
	{
		Key:                   string(PlanPremium),
		ProviderProductHandle: "premium",
		Name:                  "Premium",
		Description:           "Basic plus contests and team statistics.",
		PriceCents:            990,
		Currency:              "EUR",
	},
	{
		Key:                   string(PlanSommelier),
		ProviderProductHandle: "sommelier",
		Name:                  "Sommelier",
		Description:           "Everything, including cellar exports and early features.",
		PriceCents:            1990,
		Currency:              "EUR",
	},
}

// All returns the full plan catalog.
func All() []models.SubscriptionPlan {
	out := make([]models.SubscriptionPlan, len(catalog))
	copy(out, catalog)
	return out
}

// ByKey resolves a plan by its local key.
func ByKey(key string) (*models.SubscriptionPlan, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	for i := range catalog {
		if catalog[i].Key == k {
			p := catalog[i]
			return &p, true
		}
	}
	return nil, false
}

// ByProductHandle resolves a plan by the provider's product handle.
func ByProductHandle(handle string) (*models.SubscriptionPlan, bool) {
	h := strings.ToLower(strings.TrimSpace(handle))
	for i := range catalog {
		if catalog[i].ProviderProductHandle == h {
			p := catalog[i]
			return &p, true
		}
	}
	return nil, false
}

// Seed writes the catalog into the reference table, inserting missing rows
// and refreshing display data on existing ones.
type seeder interface {
	SeedPlan(plan *models.SubscriptionPlan) error
}

func Seed(s seeder) error {
	for i := range catalog {
		p := catalog[i]
		if err := s.SeedPlan(&p); err != nil {
			return err
		}
	}
	return nil
}
