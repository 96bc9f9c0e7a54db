package models

import (
	"time"

	"github.com/uptrace/bun"
)

type UserStats struct {
	bun.BaseModel `bun:"table:user_stats,alias:ust"`

	ID        int64  `bun:"id,pk,autoincrement"`
	DiscordID string `bun:"discord_id,notnull,unique"`

	// Expedition stats
	Dispatches   int64 `bun:"dispatches,notnull,default:0"`
	Collections  int64 `bun:"collections,notnull,default:0"`
	TokensEarned int64 `bun:"tokens_earned,notnull,default:0"`
	TokensSpent  int64 `bun:"tokens_spent,notnull,default:0"`
	HeroesLost   int64 `bun:"heroes_lost,notnull,default:0"`
	Wipes        int64 `bun:"wipes,notnull,default:0"`

	// Roster stats
	Summons    int64 `bun:"summons,notnull,default:0"`
	GearMerges int64 `bun:"gear_merges,notnull,default:0"`
	Recoveries int64 `bun:"recoveries,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
