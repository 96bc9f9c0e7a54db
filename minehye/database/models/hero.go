package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Rarity tiers, ordered. Max HP is fixed per rarity.
const (
	RarityCommon = iota + 1
	RarityUncommon
	RarityRare
	RarityEpic
	RarityLegendary
)

// MaxHPForRarity returns the fixed max HP for a rarity tier.
func MaxHPForRarity(rarity int) int {
	switch rarity {
	case RarityCommon:
		return 50
	case RarityUncommon:
		return 70
	case RarityRare:
		return 100
	case RarityEpic:
		return 140
	case RarityLegendary:
		return 200
	default:
		return 50
	}
}

// Trait rule kinds.
const (
	RuleAlways = "always"
	RuleHighHP = "high_hp"
	RuleLowHP  = "low_hp"
)

// Trait reduction scopes.
const (
	ScopeSelf = "self"
	ScopeTeam = "team"
)

// TraitRule is the decoded activation condition for a trait.
type TraitRule struct {
	Kind      string `json:"kind"`
	Threshold int    `json:"threshold,omitempty"`
}

// Trait is a hero's passive ability, conditionally active based on HP.
type Trait struct {
	Name           string    `json:"name"`
	RewardPct      int       `json:"reward_pct"`
	SpeedPct       int       `json:"speed_pct"`
	ReductionPct   int       `json:"reduction_pct"`
	ReductionScope string    `json:"reduction_scope"`
	Rule           TraitRule `json:"rule"`
}

type Hero struct {
	bun.BaseModel `bun:"table:heroes,alias:h"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	Name      string    `bun:"name,notnull"`
	Rarity    int       `bun:"rarity,notnull"`
	Species   string    `bun:"species,notnull"`
	CurrentHP int       `bun:"current_hp,notnull"`
	MaxHP     int       `bun:"max_hp,notnull"`
	Trait     Trait     `bun:"trait,type:jsonb"`

	// Gear references by slot index: 0 Tool, 1 Headgear, 2 Footwear. 0 = empty.
	Gear [3]int64 `bun:"gear,type:jsonb"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Alive reports whether the hero can still be assigned to parties and expeditions.
func (h *Hero) Alive() bool {
	return h.CurrentHP > 0
}
