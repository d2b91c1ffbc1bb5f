package entitlements

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForPlan(t *testing.T) {
	tests := []struct {
		name      string
		planKey   string
		wantNotes int
		wantTeams int
	}{
		{name: "basic", planKey: "basic", wantNotes: Unlimited, wantTeams: 3},
		{name: "premium", planKey: "premium", wantNotes: Unlimited, wantTeams: 10},
		{name: "sommelier", planKey: "sommelier", wantNotes: Unlimited, wantTeams: Unlimited},
		{name: "free tier for empty key", planKey: "", wantNotes: 10, wantTeams: 1},
		{name: "free tier for unknown key", planKey: "enterprise", wantNotes: 10, wantTeams: 1},
		{name: "key is normalized", planKey: "  Premium ", wantNotes: Unlimited, wantTeams: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := ForPlan(tt.planKey)
			assert.Equal(t, tt.wantNotes, limits.MonthlyNoteLimit)
			assert.Equal(t, tt.wantTeams, limits.MaxOwnedTeams)
		})
	}
}

func TestFreeNoteLimitOverride(t *testing.T) {
	t.Setenv("TASTING_NOTE_FREE_MONTHLY_LIMIT", "25")
	assert.Equal(t, 25, ForPlan("").MonthlyNoteLimit)

	t.Setenv("TASTING_NOTE_FREE_MONTHLY_LIMIT", "0")
	assert.Equal(t, Unlimited, ForPlan("").MonthlyNoteLimit)
}

func TestLimitsAllows(t *testing.T) {
	free := Limits{MonthlyNoteLimit: 10, MaxOwnedTeams: 1}
	assert.True(t, free.AllowsNotes(9))
	assert.False(t, free.AllowsNotes(10))
	assert.True(t, free.AllowsOwnedTeams(0))
	assert.False(t, free.AllowsOwnedTeams(1))

	open := Limits{MonthlyNoteLimit: Unlimited, MaxOwnedTeams: Unlimited}
	assert.True(t, open.AllowsNotes(100000))
	assert.True(t, open.AllowsOwnedTeams(100000))
}
