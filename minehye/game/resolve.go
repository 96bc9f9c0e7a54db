package game

import (
	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

// FatalDamage is the sentinel damage value for an instant-death roll: fatal
// regardless of the hero's current HP.
const FatalDamage = 9999

// RNG is the randomness the resolution engine consumes. *math/rand.Rand
// satisfies it; tests inject fixed or scripted sources.
type RNG interface {
	Intn(n int) int
	Float64() float64
}

// Resolve computes an expedition outcome from a tier configuration and the
// party state at dispatch time. It is the single source of truth: called once
// at dispatch to produce the persisted snapshot, and again at collection only
// as a replay fallback with the same captured inputs. It never reads the
// clock and draws all randomness from rng.
func Resolve(tier *models.ExpeditionTier, heroes []*models.Hero, gear map[int64]GearInfo, rng RNG) models.ResultSnapshot {
	stats := AggregateParty(heroes, gear)

	base := uniformInt(rng, tier.MinReward, tier.MaxReward)

	snapshot := models.ResultSnapshot{
		Computed:        true,
		BaseReward:      base,
		HeroBonusReward: base * stats.RewardFromHeroes / 100,
		GearBonusReward: base * stats.RewardFromGear / 100,
		Damage:          make(map[int64]int, len(heroes)),
	}

	for _, h := range heroes {
		if h == nil {
			continue
		}
		if rng.Float64() < tier.DeathChance {
			snapshot.Damage[h.ID] = FatalDamage
			continue
		}
		raw := uniformInt(rng, tier.MinDamage, tier.MaxDamage)
		final := raw - ceilPct(raw, stats.Reduction[h.ID])
		if final < 0 {
			final = 0
		}
		snapshot.Damage[h.ID] = final
	}

	return snapshot
}

// ActualDuration applies the party speed bonus to a tier's base duration.
// The bonus is capped so the duration never shrinks below 10% of base.
func ActualDuration(tier *models.ExpeditionTier, speedPct int) int {
	factor := 1 - float64(speedPct)/100
	if factor < 0.1 {
		factor = 0.1
	}
	return int(float64(tier.BaseDurationSeconds) * factor)
}

// uniformInt draws uniformly from the closed interval [lo, hi].
func uniformInt(rng RNG, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

// ceilPct returns ceil(value * pct / 100). Reward scaling floors, damage
// reduction ceils; the asymmetry is deliberate and load-bearing.
func ceilPct(value, pct int) int {
	if value <= 0 || pct <= 0 {
		return 0
	}
	return (value*pct + 99) / 100
}
