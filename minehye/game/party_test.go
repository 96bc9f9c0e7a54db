package game

import (
	"testing"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

func hero(id int64, hp int, trait models.Trait, gear [3]int64) *models.Hero {
	return &models.Hero{
		ID:        id,
		Name:      "test",
		Rarity:    models.RarityCommon,
		CurrentHP: hp,
		MaxHP:     100,
		Trait:     trait,
		Gear:      gear,
	}
}

func TestGearInfoEffectiveBonus(t *testing.T) {
	tests := []struct {
		name string
		gear GearInfo
		want int
	}{
		{"no enhancement", GearInfo{Bonus: 10}, 10},
		{"one level adds 10 percent", GearInfo{Bonus: 10, Enhancement: 1}, 11},
		{"five levels", GearInfo{Bonus: 10, Enhancement: 5}, 15},
		{"truncates toward zero", GearInfo{Bonus: 7, Enhancement: 1}, 7},
		{"truncates at higher levels", GearInfo{Bonus: 7, Enhancement: 3}, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.gear.EffectiveBonus(); got != tt.want {
				t.Errorf("EffectiveBonus() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAggregateParty(t *testing.T) {
	gear := map[int64]GearInfo{
		11: {Slot: models.GearSlotTool, Bonus: 10},
		12: {Slot: models.GearSlotHeadgear, Bonus: 20},
		13: {Slot: models.GearSlotFootwear, Bonus: 15},
	}

	alwaysReward := models.Trait{
		RewardPct: 5,
		SpeedPct:  3,
		Rule:      models.TraitRule{Kind: models.RuleAlways},
	}
	teamGuard := models.Trait{
		ReductionPct:   8,
		ReductionScope: models.ScopeTeam,
		Rule:           models.TraitRule{Kind: models.RuleAlways},
	}
	selfGuard := models.Trait{
		ReductionPct:   12,
		ReductionScope: models.ScopeSelf,
		Rule:           models.TraitRule{Kind: models.RuleHighHP, Threshold: 50},
	}

	heroes := []*models.Hero{
		hero(1, 100, alwaysReward, [3]int64{11, 0, 13}),
		hero(2, 100, teamGuard, [3]int64{0, 12, 0}),
		hero(3, 100, selfGuard, [3]int64{}),
	}

	stats := AggregateParty(heroes, gear)

	if stats.RewardFromHeroes != 5 {
		t.Errorf("RewardFromHeroes = %d, want 5", stats.RewardFromHeroes)
	}
	if stats.RewardFromGear != 10 {
		t.Errorf("RewardFromGear = %d, want 10", stats.RewardFromGear)
	}
	if stats.SpeedFromHeroes != 3 {
		t.Errorf("SpeedFromHeroes = %d, want 3", stats.SpeedFromHeroes)
	}
	if stats.SpeedFromGear != 15 {
		t.Errorf("SpeedFromGear = %d, want 15", stats.SpeedFromGear)
	}
	if stats.TeamReduction != 8 {
		t.Errorf("TeamReduction = %d, want 8", stats.TeamReduction)
	}

	// Hero 1: team reduction only. Hero 2: headgear + team. Hero 3: team +
	// own self-scope trait; the self bonus must not leak onto the others.
	wantReduction := map[int64]int{1: 8, 2: 28, 3: 20}
	for id, want := range wantReduction {
		if got := stats.Reduction[id]; got != want {
			t.Errorf("Reduction[%d] = %d, want %d", id, got, want)
		}
	}
}

func TestAggregatePartyInactiveTrait(t *testing.T) {
	trait := models.Trait{
		RewardPct:      20,
		SpeedPct:       20,
		ReductionPct:   20,
		ReductionScope: models.ScopeSelf,
		Rule:           models.TraitRule{Kind: models.RuleHighHP, Threshold: 80},
	}
	stats := AggregateParty([]*models.Hero{hero(1, 40, trait, [3]int64{})}, nil)

	if stats.RewardFromHeroes != 0 || stats.SpeedFromHeroes != 0 {
		t.Errorf("inactive trait contributed bonuses: %+v", stats)
	}
	if stats.Reduction[1] != 0 {
		t.Errorf("Reduction[1] = %d, want 0", stats.Reduction[1])
	}
}

func TestAggregatePartyPartial(t *testing.T) {
	trait := models.Trait{RewardPct: 5, Rule: models.TraitRule{Kind: models.RuleAlways}}
	stats := AggregateParty([]*models.Hero{hero(1, 50, trait, [3]int64{}), nil}, nil)

	if stats.RewardFromHeroes != 5 {
		t.Errorf("RewardFromHeroes = %d, want 5", stats.RewardFromHeroes)
	}
	if len(stats.Reduction) != 1 {
		t.Errorf("Reduction has %d entries, want 1", len(stats.Reduction))
	}
}
