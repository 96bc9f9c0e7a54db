package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Expedition statuses.
const (
	ExpeditionStatusActive    = "active"
	ExpeditionStatusCollected = "collected"
)

// ResultSnapshot is the outcome of resolving one expedition, produced exactly
// once at dispatch and replayed at collection. Computed distinguishes "resolved
// to zero" from "never resolved" so a zero base reward is never silently
// recomputed.
type ResultSnapshot struct {
	Computed        bool            `json:"computed"`
	BaseReward      int             `json:"base_reward"`
	HeroBonusReward int             `json:"hero_bonus_reward"`
	GearBonusReward int             `json:"gear_bonus_reward"`
	Damage          map[int64]int   `json:"damage"`
}

// HeroSnapshot captures one hero's dispatch-time state so a missing result
// snapshot can be recomputed from the exact inputs used at dispatch.
type HeroSnapshot struct {
	HeroID    int64    `json:"hero_id"`
	Name      string   `json:"name"`
	Rarity    int      `json:"rarity"`
	CurrentHP int      `json:"current_hp"`
	MaxHP     int      `json:"max_hp"`
	Trait     Trait    `json:"trait"`
	Gear      [3]int64 `json:"gear"`
}

// GearSnapshot captures dispatch-time gear stats referenced by a HeroSnapshot.
type GearSnapshot struct {
	GearID      int64  `json:"gear_id"`
	Slot        string `json:"slot"`
	Bonus       int    `json:"bonus"`
	Enhancement int    `json:"enhancement"`
}

type Expedition struct {
	bun.BaseModel `bun:"table:expeditions,alias:e"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	Rank      string    `bun:"rank,notnull"`
	StartedAt time.Time `bun:"started_at,notnull"`
	EndsAt    time.Time `bun:"ends_at,notnull"`
	HeroIDs   [3]int64  `bun:"hero_ids,type:jsonb"`
	Status    string    `bun:"status,notnull,default:'active'"`

	Snapshot ResultSnapshot `bun:"snapshot,type:jsonb"`

	// Dispatch-time provenance for replay.
	PartySnapshot []HeroSnapshot `bun:"party_snapshot,type:jsonb"`
	GearSnapshots []GearSnapshot `bun:"gear_snapshots,type:jsonb"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Done reports whether the expedition timer has elapsed at the given time.
func (e *Expedition) Done(now time.Time) bool {
	return !now.Before(e.EndsAt)
}
