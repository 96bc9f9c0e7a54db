package migration

import (
	"strings"
	"testing"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

func int32p(v int32) *int32 { return &v }

func TestConvertTraitFromPackedCode(t *testing.T) {
	tests := []struct {
		name string
		hero MongoHero
		want models.Trait
	}{
		{
			name: "unconditional reward trait",
			hero: MongoHero{
				TraitName: "Prospector",
				TraitCode: int32p(0),
				RewardPct: 10,
			},
			want: models.Trait{
				Name:      "Prospector",
				RewardPct: 10,
				Rule:      models.TraitRule{Kind: models.RuleAlways},
			},
		},
		{
			name: "high HP speed trait",
			hero: MongoHero{
				TraitName: "Fresh Legs",
				TraitCode: int32p(180),
				SpeedPct:  15,
			},
			want: models.Trait{
				Name:     "Fresh Legs",
				SpeedPct: 15,
				Rule:     models.TraitRule{Kind: models.RuleHighHP, Threshold: 80},
			},
		},
		{
			name: "low HP reduction trait defaults to self scope",
			hero: MongoHero{
				TraitName:    "Last Stand",
				TraitCode:    int32p(220),
				ReductionPct: 30,
			},
			want: models.Trait{
				Name:           "Last Stand",
				ReductionPct:   30,
				ReductionScope: models.ScopeSelf,
				Rule:           models.TraitRule{Kind: models.RuleLowHP, Threshold: 20},
			},
		},
		{
			name: "team scope flag carries over",
			hero: MongoHero{
				TraitName:    "Shield Wall",
				TraitCode:    int32p(150),
				ReductionPct: 10,
				TeamScope:    true,
			},
			want: models.Trait{
				Name:           "Shield Wall",
				ReductionPct:   10,
				ReductionScope: models.ScopeTeam,
				Rule:           models.TraitRule{Kind: models.RuleHighHP, Threshold: 50},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertTrait(tt.hero)
			if err != nil {
				t.Fatalf("convertTrait failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("convertTrait = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConvertTraitFromDescription(t *testing.T) {
	tests := []struct {
		name string
		desc string
		want models.Trait
	}{
		{
			name: "reward from free text",
			desc: "Digs up 15% more tokens",
			want: models.Trait{
				RewardPct: 15,
				Rule:      models.TraitRule{Kind: models.RuleAlways},
			},
		},
		{
			name: "speed with high HP clause",
			desc: "Moves 20% faster while above 70% HP",
			want: models.Trait{
				SpeedPct: 20,
				Rule:     models.TraitRule{Kind: models.RuleHighHP, Threshold: 70},
			},
		},
		{
			name: "team reduction from free text",
			desc: "The whole party takes 10% less damage",
			want: models.Trait{
				ReductionPct:   10,
				ReductionScope: models.ScopeTeam,
				Rule:           models.TraitRule{Kind: models.RuleAlways},
			},
		},
		{
			name: "self reduction with low HP clause",
			desc: "Takes 25% less damage when below 30 HP",
			want: models.Trait{
				ReductionPct:   25,
				ReductionScope: models.ScopeSelf,
				Rule:           models.TraitRule{Kind: models.RuleLowHP, Threshold: 30},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertTrait(MongoHero{TraitName: "Legacy", TraitDesc: tt.desc})
			if err != nil {
				t.Fatalf("convertTrait failed: %v", err)
			}
			tt.want.Name = "Legacy"
			if got != tt.want {
				t.Errorf("convertTrait = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConvertTraitUnresolvableIsError(t *testing.T) {
	_, err := convertTrait(MongoHero{
		TraitName: "Mystery",
		TraitDesc: "Does something nobody remembers",
	})
	if err == nil {
		t.Fatal("expected error for unresolvable trait")
	}
	if !strings.Contains(err.Error(), "unresolvable") {
		t.Errorf("error %q should name the trait as unresolvable", err)
	}
}

func TestConvertTraitBadPackedCode(t *testing.T) {
	if _, err := convertTrait(MongoHero{TraitCode: int32p(300), RewardPct: 5}); err == nil {
		t.Fatal("expected error for out-of-range packed code")
	}
}

func TestConvertHeroClampsHP(t *testing.T) {
	m := NewMigrator(nil, "")
	hero, err := m.convertHero(MongoHero{
		UserID:    "user-1",
		Name:      "Bram",
		Rarity:    int32(models.RarityCommon),
		HP:        120,
		MaxHP:     50,
		TraitCode: int32p(0),
		RewardPct: 10,
	})
	if err != nil {
		t.Fatalf("convertHero failed: %v", err)
	}
	if hero.CurrentHP != 50 {
		t.Errorf("CurrentHP = %d, want clamp to 50", hero.CurrentHP)
	}
}

func TestConvertGearNormalizesSlot(t *testing.T) {
	m := NewMigrator(nil, "")
	g := m.convertGear(MongoGear{UserID: "user-1", Name: "Iron Pick", Slot: " Tool "})
	if g.Slot != models.GearSlotTool {
		t.Errorf("Slot = %q, want %q", g.Slot, models.GearSlotTool)
	}
}

func TestCleanseString(t *testing.T) {
	if got := cleanseString("  Br\x00am\x01  "); got != "Bram" {
		t.Errorf("cleanseString = %q, want %q", got, "Bram")
	}
}
