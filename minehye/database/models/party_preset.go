package models

import (
	"time"

	"github.com/uptrace/bun"
)

// PresetCount is the number of party presets per account.
const PresetCount = 3

// PartySize is the number of hero slots per party.
const PartySize = 3

// PartyPreset is one of a user's saved 3-hero parties. Slot entries are hero
// IDs, 0 meaning empty. A preset is busy while any of its heroes is assigned
// to an active expedition.
type PartyPreset struct {
	bun.BaseModel `bun:"table:party_presets,alias:pp"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    string    `bun:"user_id,notnull"`
	Index     int       `bun:"preset_index,notnull"`
	HeroIDs   [3]int64  `bun:"hero_ids,type:jsonb"`
	Active    bool      `bun:"active,notnull,default:false"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Full reports whether every slot holds a hero.
func (p *PartyPreset) Full() bool {
	for _, id := range p.HeroIDs {
		if id == 0 {
			return false
		}
	}
	return true
}

// Contains reports whether the preset references the given hero.
func (p *PartyPreset) Contains(heroID int64) bool {
	for _, id := range p.HeroIDs {
		if id == heroID {
			return true
		}
	}
	return false
}
