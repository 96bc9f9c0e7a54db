package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID        int64  `bun:"id,pk,autoincrement"`
	DiscordID string `bun:"discord_id,notnull,unique"`
	Username  string `bun:"username,notnull"`

	// Token balance mutated only by the expedition manager and the
	// summon/recovery flows.
	Tokens int64 `bun:"tokens,notnull,default:0"`

	// Optional on-chain address supplied by the identity provider; read-only
	// input, the bot never writes it back.
	ChainAddress string `bun:"chain_address"`

	LastSummon time.Time `bun:"last_summon"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
