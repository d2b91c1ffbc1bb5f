package entitlements

import (
	"strings"

	"github.com/MarcChevalier/Tastevin/internal/pkg/env"
	"github.com/MarcChevalier/Tastevin/internal/pkg/plancatalog"
)

// Unlimited disables a limit.
const Unlimited = -1

// Limits describes what a plan entitles a member to.
type Limits struct {
	MonthlyNoteLimit int
	MaxOwnedTeams    int
}

// ForPlan returns the limits for a plan key. Unknown keys are treated as
// the free tier.
func ForPlan(planKey string) Limits {
	switch plancatalog.PlanKey(strings.ToLower(strings.TrimSpace(planKey))) {
	case plancatalog.PlanBasic:
		return Limits{MonthlyNoteLimit: Unlimited, MaxOwnedTeams: 3}
	case plancatalog.PlanPremium:
		return Limits{MonthlyNoteLimit: Unlimited, MaxOwnedTeams: 10}
	case plancatalog.PlanSommelier:
		return Limits{MonthlyNoteLimit: Unlimited, MaxOwnedTeams: Unlimited}
	default:
		return Limits{MonthlyNoteLimit: freeNoteLimit(), MaxOwnedTeams: 1}
	}
}

// freeNoteLimit reads the free-tier monthly note quota; zero or negative
// values disable the quota entirely.
func freeNoteLimit() int {
	limit := env.GetEnvInt("TASTING_NOTE_FREE_MONTHLY_LIMIT", 10)
	if limit <= 0 {
		return Unlimited
	}
	return limit
}

// AllowsNotes reports whether count notes this month stays within the limit.
func (l Limits) AllowsNotes(count int64) bool {
	return l.MonthlyNoteLimit == Unlimited || count < int64(l.MonthlyNoteLimit)
}

// AllowsOwnedTeams reports whether owning count teams stays within the limit.
func (l Limits) AllowsOwnedTeams(count int64) bool {
	return l.MaxOwnedTeams == Unlimited || count < int64(l.MaxOwnedTeams)
}
