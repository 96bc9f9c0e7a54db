package game

import (
	"testing"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

func TestPredictBounds(t *testing.T) {
	tier := tierC()
	tier.MinDamage = 10
	tier.MaxDamage = 20

	boost := models.Trait{RewardPct: 20, Rule: models.TraitRule{Kind: models.RuleAlways}}
	guard := models.Trait{
		ReductionPct:   50,
		ReductionScope: models.ScopeTeam,
		Rule:           models.TraitRule{Kind: models.RuleAlways},
	}

	heroes := []*models.Hero{
		hero(1, 100, boost, [3]int64{}),
		hero(2, 100, guard, [3]int64{}),
		hero(3, 100, models.Trait{Rule: models.TraitRule{Kind: models.RuleAlways}}, [3]int64{}),
	}

	p := Predict(tier, heroes, nil)

	if p.MinReward != 12 || p.MaxReward != 24 {
		t.Errorf("reward range = [%d, %d], want [12, 24]", p.MinReward, p.MaxReward)
	}
	if p.RawMinDamage != 10 || p.RawMaxDamage != 20 {
		t.Errorf("raw damage range = [%d, %d], want [10, 20]", p.RawMinDamage, p.RawMaxDamage)
	}
	// Team reduction 50 applies to everyone, average is 50.
	if p.MinDamage != 5 || p.MaxDamage != 10 {
		t.Errorf("damage range = [%d, %d], want [5, 10]", p.MinDamage, p.MaxDamage)
	}
	if p.EstimatedDurationSeconds != 900 {
		t.Errorf("EstimatedDurationSeconds = %d, want 900", p.EstimatedDurationSeconds)
	}
}

func TestPredictLethalityUsesOwnReduction(t *testing.T) {
	tier := tierC()
	tier.MinDamage = 10
	tier.MaxDamage = 40

	guard := models.Trait{
		ReductionPct:   80,
		ReductionScope: models.ScopeSelf,
		Rule:           models.TraitRule{Kind: models.RuleAlways},
	}
	none := models.Trait{Rule: models.TraitRule{Kind: models.RuleAlways}}

	heroes := []*models.Hero{
		hero(1, 20, guard, [3]int64{}), // own projected max 8 < 20, safe
		hero(2, 20, none, [3]int64{}),  // projected max 40 >= 20, at risk
		hero(3, 41, none, [3]int64{}),  // projected max 40 < 41, safe
	}

	p := Predict(tier, heroes, nil)

	if len(p.AtRisk) != 1 || p.AtRisk[0] != 2 {
		t.Errorf("AtRisk = %v, want [2]", p.AtRisk)
	}
	if p.RiskLevel() != RiskWarning {
		t.Errorf("RiskLevel() = %s, want %s", p.RiskLevel(), RiskWarning)
	}
}

func TestPredictRiskLevels(t *testing.T) {
	tier := tierC()
	tier.MinDamage = 50
	tier.MaxDamage = 50
	none := models.Trait{Rule: models.TraitRule{Kind: models.RuleAlways}}

	safe := Predict(tier, []*models.Hero{hero(1, 100, none, [3]int64{}), hero(2, 100, none, [3]int64{}), hero(3, 100, none, [3]int64{})}, nil)
	if safe.RiskLevel() != RiskSafe {
		t.Errorf("RiskLevel() = %s, want %s", safe.RiskLevel(), RiskSafe)
	}

	doomed := Predict(tier, []*models.Hero{hero(1, 10, none, [3]int64{}), hero(2, 10, none, [3]int64{}), hero(3, 10, none, [3]int64{})}, nil)
	if doomed.RiskLevel() != RiskWipeout {
		t.Errorf("RiskLevel() = %s, want %s", doomed.RiskLevel(), RiskWipeout)
	}
}

func TestPredictIsRepeatable(t *testing.T) {
	tier := tierC()
	heroes := plainParty()

	first := Predict(tier, heroes, nil)
	second := Predict(tier, heroes, nil)

	if first.MinReward != second.MinReward || first.MaxReward != second.MaxReward ||
		first.MinDamage != second.MinDamage || first.MaxDamage != second.MaxDamage {
		t.Errorf("prediction not stable: %+v vs %+v", first, second)
	}
}
