package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Expedition ranks, from safest to deadliest.
const (
	RankC  = "C"
	RankUC = "UC"
	RankR  = "R"
	RankE  = "E"
	RankL  = "L"
)

// Ranks lists every expedition rank in ascending difficulty order.
var Ranks = []string{RankC, RankUC, RankR, RankE, RankL}

// ExpeditionTier is the static per-rank configuration. Immutable during a
// session; seeded at schema init and loaded once.
type ExpeditionTier struct {
	bun.BaseModel `bun:"table:expedition_tiers,alias:et"`

	Rank                string    `bun:"rank,pk"`
	Name                string    `bun:"name,notnull"`
	BaseDurationSeconds int       `bun:"base_duration_seconds,notnull"`
	MinReward           int       `bun:"min_reward,notnull"`
	MaxReward           int       `bun:"max_reward,notnull"`
	MinDamage           int       `bun:"min_damage,notnull"`
	MaxDamage           int       `bun:"max_damage,notnull"`
	DeathChance         float64   `bun:"death_chance,notnull"`
	TokenCost           int64     `bun:"token_cost,notnull"`
	CreatedAt           time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt           time.Time `bun:"updated_at,notnull"`
}
