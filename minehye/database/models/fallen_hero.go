package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Causes of permanent hero loss.
const (
	FallCauseDamage  = "damage"
	FallCauseInstant = "instant"
)

// FallenHero is the permanent record of a hero lost on an expedition. Rows are
// append-only; nothing resurrects a hero once logged here.
type FallenHero struct {
	bun.BaseModel `bun:"table:fallen_heroes,alias:fh"`

	ID           int64     `bun:"id,pk,autoincrement"`
	HeroID       int64     `bun:"hero_id,notnull"`
	UserID       string    `bun:"user_id,notnull"`
	Name         string    `bun:"name,notnull"`
	Rarity       int       `bun:"rarity,notnull"`
	ExpeditionID int64     `bun:"expedition_id,notnull"`
	Cause        string    `bun:"cause,notnull"`
	FellAt       time.Time `bun:"fell_at,notnull"`
}
