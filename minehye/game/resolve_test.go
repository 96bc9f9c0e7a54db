package game

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

// midpointRNG always returns the middle of the requested interval and never
// rolls instant death.
type midpointRNG struct{}

func (midpointRNG) Intn(n int) int  { return n / 2 }
func (midpointRNG) Float64() float64 { return 1 }

// doomRNG always rolls instant death.
type doomRNG struct{}

func (doomRNG) Intn(n int) int  { return 0 }
func (doomRNG) Float64() float64 { return 0 }

func tierC() *models.ExpeditionTier {
	return &models.ExpeditionTier{
		Rank:                models.RankC,
		Name:                "Surface Shaft",
		BaseDurationSeconds: 900,
		MinReward:           10,
		MaxReward:           20,
		MinDamage:           0,
		MaxDamage:           5,
		DeathChance:         0,
		TokenCost:           0,
	}
}

func plainParty() []*models.Hero {
	var heroes []*models.Hero
	for i := int64(1); i <= 3; i++ {
		heroes = append(heroes, hero(i, 100, models.Trait{Rule: models.TraitRule{Kind: models.RuleAlways}}, [3]int64{}))
	}
	return heroes
}

func TestResolveMidpointScenario(t *testing.T) {
	got := Resolve(tierC(), plainParty(), nil, midpointRNG{})

	if !got.Computed {
		t.Fatal("snapshot not marked computed")
	}
	if got.BaseReward != 15 {
		t.Errorf("BaseReward = %d, want 15", got.BaseReward)
	}
	if got.HeroBonusReward != 0 || got.GearBonusReward != 0 {
		t.Errorf("bonus rewards = %d/%d, want 0/0", got.HeroBonusReward, got.GearBonusReward)
	}
	wantDamage := map[int64]int{1: 3, 2: 3, 3: 3}
	if !reflect.DeepEqual(got.Damage, wantDamage) {
		t.Errorf("Damage = %v, want %v", got.Damage, wantDamage)
	}
}

func TestResolveRewardBounds(t *testing.T) {
	tier := tierC()
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 1000; i++ {
		snap := Resolve(tier, plainParty(), nil, rng)
		if snap.BaseReward < tier.MinReward || snap.BaseReward > tier.MaxReward {
			t.Fatalf("BaseReward %d outside [%d, %d]", snap.BaseReward, tier.MinReward, tier.MaxReward)
		}
		for id, dmg := range snap.Damage {
			if dmg < tier.MinDamage || dmg > tier.MaxDamage {
				t.Fatalf("damage %d for hero %d outside [%d, %d]", dmg, id, tier.MinDamage, tier.MaxDamage)
			}
		}
	}
}

func TestResolveDamageReduction(t *testing.T) {
	tier := tierC()
	tier.MinDamage = 10
	tier.MaxDamage = 10

	guard := models.Trait{
		ReductionPct:   25,
		ReductionScope: models.ScopeSelf,
		Rule:           models.TraitRule{Kind: models.RuleAlways},
	}
	heroes := []*models.Hero{hero(1, 100, guard, [3]int64{})}

	snap := Resolve(tier, heroes, nil, midpointRNG{})

	// raw 10, reduction ceil(10*25/100) = 3
	if snap.Damage[1] != 7 {
		t.Errorf("Damage[1] = %d, want 7", snap.Damage[1])
	}
}

func TestResolveReductionCeils(t *testing.T) {
	tests := []struct {
		name string
		raw  int
		pct  int
		want int
	}{
		{"exact", 100, 25, 75},
		{"ceil rounds in the hero's favor", 9, 25, 6}, // ceil(2.25) = 3 blocked
		{"over 100 percent clamps to zero", 10, 150, 0},
		{"zero raw", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.raw - ceilPct(tt.raw, tt.pct)
			if got < 0 {
				got = 0
			}
			if got != tt.want {
				t.Errorf("reduced damage = %d, want %d", got, tt.want)
			}
			if got > tt.raw {
				t.Errorf("reduction increased damage: %d > %d", got, tt.raw)
			}
		})
	}
}

func TestResolveInstantDeathSentinel(t *testing.T) {
	tier := tierC()
	tier.DeathChance = 0.5

	snap := Resolve(tier, plainParty(), nil, doomRNG{})

	for id, dmg := range snap.Damage {
		if dmg != FatalDamage {
			t.Errorf("Damage[%d] = %d, want sentinel %d", id, dmg, FatalDamage)
		}
	}
}

func TestResolveRewardBonusFloors(t *testing.T) {
	tier := tierC()
	tier.MinReward = 15
	tier.MaxReward = 15

	boost := models.Trait{RewardPct: 10, Rule: models.TraitRule{Kind: models.RuleAlways}}
	heroes := []*models.Hero{hero(1, 100, boost, [3]int64{11, 0, 0})}
	gear := map[int64]GearInfo{11: {Slot: models.GearSlotTool, Bonus: 10}}

	snap := Resolve(tier, heroes, gear, midpointRNG{})

	// floor(15 * 10 / 100) = 1 for both sources
	if snap.HeroBonusReward != 1 {
		t.Errorf("HeroBonusReward = %d, want 1", snap.HeroBonusReward)
	}
	if snap.GearBonusReward != 1 {
		t.Errorf("GearBonusReward = %d, want 1", snap.GearBonusReward)
	}
}

func TestResolveDeterministicReplay(t *testing.T) {
	tier := tierC()
	tier.MinDamage = 1
	tier.MaxDamage = 8
	tier.DeathChance = 0.1

	first := Resolve(tier, plainParty(), nil, rand.New(rand.NewSource(42)))
	second := Resolve(tier, plainParty(), nil, rand.New(rand.NewSource(42)))

	if !reflect.DeepEqual(first, second) {
		t.Errorf("replay diverged:\n first = %+v\nsecond = %+v", first, second)
	}
}

func TestActualDuration(t *testing.T) {
	tier := tierC()

	tests := []struct {
		name  string
		speed int
		want  int
	}{
		{"no bonus", 0, 900},
		{"ten percent", 10, 810},
		{"ninety percent hits the floor", 90, 90},
		{"over cap clamps to 10 percent", 150, 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ActualDuration(tier, tt.speed); got != tt.want {
				t.Errorf("ActualDuration() = %d, want %d", got, tt.want)
			}
		})
	}
}
