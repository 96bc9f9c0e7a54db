package game

import (
	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

// GearInfo is the slice of gear state the engine needs. Built either from live
// gear rows or from dispatch-time gear snapshots so both paths feed identical
// inputs into the math.
type GearInfo struct {
	Slot        string
	Bonus       int
	Enhancement int
}

// EffectiveBonus applies the enhancement scaling: each level adds 10% of the
// base bonus, truncated toward zero.
func (g GearInfo) EffectiveBonus() int {
	return g.Bonus * (10 + g.Enhancement) / 10
}

// PartyStats are the aggregate bonuses of a party and the per-hero effective
// damage reduction. Partial parties yield partial sums; the "exactly 3" rule
// belongs to the dispatch preconditions, not here.
type PartyStats struct {
	RewardFromHeroes int
	RewardFromGear   int
	SpeedFromHeroes  int
	SpeedFromGear    int
	TeamReduction    int

	// Reduction is each hero's effective damage reduction: headgear +
	// team-scope trait total + own self-scope trait bonus when active.
	Reduction map[int64]int
}

// TotalReward returns the combined reward bonus percentage.
func (s PartyStats) TotalReward() int {
	return s.RewardFromHeroes + s.RewardFromGear
}

// TotalSpeed returns the combined speed bonus percentage.
func (s PartyStats) TotalSpeed() int {
	return s.SpeedFromHeroes + s.SpeedFromGear
}

// AverageReduction returns the mean per-hero reduction, for the aggregate
// damage-range display only. Per-hero checks must use Reduction directly.
func (s PartyStats) AverageReduction() int {
	if len(s.Reduction) == 0 {
		return 0
	}
	total := 0
	for _, r := range s.Reduction {
		total += r
	}
	return total / len(s.Reduction)
}

// AggregateParty computes party-wide bonuses from hero traits and equipped
// gear. Trait bonuses count only while the trait's rule is active at the
// heroes' current HP; gear bonuses always count.
func AggregateParty(heroes []*models.Hero, gear map[int64]GearInfo) PartyStats {
	stats := PartyStats{Reduction: make(map[int64]int, len(heroes))}

	selfReduction := make(map[int64]int, len(heroes))
	headgear := make(map[int64]int, len(heroes))

	for _, h := range heroes {
		if h == nil {
			continue
		}

		if TraitActive(h) {
			stats.RewardFromHeroes += h.Trait.RewardPct
			stats.SpeedFromHeroes += h.Trait.SpeedPct
			switch h.Trait.ReductionScope {
			case models.ScopeTeam:
				stats.TeamReduction += h.Trait.ReductionPct
			default:
				selfReduction[h.ID] = h.Trait.ReductionPct
			}
		}

		for _, gearID := range h.Gear {
			if gearID == 0 {
				continue
			}
			g, ok := gear[gearID]
			if !ok {
				continue
			}
			switch g.Slot {
			case models.GearSlotTool:
				stats.RewardFromGear += g.EffectiveBonus()
			case models.GearSlotFootwear:
				stats.SpeedFromGear += g.EffectiveBonus()
			case models.GearSlotHeadgear:
				headgear[h.ID] += g.EffectiveBonus()
			}
		}
	}

	for _, h := range heroes {
		if h == nil {
			continue
		}
		stats.Reduction[h.ID] = headgear[h.ID] + stats.TeamReduction + selfReduction[h.ID]
	}

	return stats
}
