package game

import (
	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

// Risk levels derived from the number of at-risk heroes.
const (
	RiskSafe    = "safe"
	RiskWarning = "warning"
	RiskWipeout = "wipeout"
)

// Prediction is the pre-dispatch projection shown to the player. Purely a UI
// signal; dispatch is permitted at any risk level.
type Prediction struct {
	MinReward int
	MaxReward int

	RawMinDamage int
	RawMaxDamage int
	MinDamage    int
	MaxDamage    int

	EstimatedDurationSeconds int

	// AtRisk holds heroes whose own projected max damage reaches their
	// current HP.
	AtRisk []int64
}

// RiskLevel buckets the at-risk count for display.
func (p Prediction) RiskLevel() string {
	switch {
	case len(p.AtRisk) == 0:
		return RiskSafe
	case len(p.AtRisk) >= models.PartySize:
		return RiskWipeout
	default:
		return RiskWarning
	}
}

// Predict estimates reward and damage ranges for a candidate party without
// consuming any randomness or mutating anything. The aggregate damage range
// uses the party's average reduction for a single display number; the
// per-hero lethality check uses each hero's own reduction against the tier's
// max damage.
func Predict(tier *models.ExpeditionTier, heroes []*models.Hero, gear map[int64]GearInfo) Prediction {
	stats := AggregateParty(heroes, gear)
	rewardPct := stats.TotalReward()

	avg := stats.AverageReduction()

	p := Prediction{
		MinReward:                tier.MinReward + tier.MinReward*rewardPct/100,
		MaxReward:                tier.MaxReward + tier.MaxReward*rewardPct/100,
		RawMinDamage:             tier.MinDamage,
		RawMaxDamage:             tier.MaxDamage,
		MinDamage:                reduceDamage(tier.MinDamage, avg),
		MaxDamage:                reduceDamage(tier.MaxDamage, avg),
		EstimatedDurationSeconds: ActualDuration(tier, stats.TotalSpeed()),
	}

	for _, h := range heroes {
		if h == nil {
			continue
		}
		projected := reduceDamage(tier.MaxDamage, stats.Reduction[h.ID])
		if projected >= h.CurrentHP {
			p.AtRisk = append(p.AtRisk, h.ID)
		}
	}

	return p
}

func reduceDamage(raw, reductionPct int) int {
	final := raw - ceilPct(raw, reductionPct)
	if final < 0 {
		final = 0
	}
	return final
}
