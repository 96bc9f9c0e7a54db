package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Gear slots. Each slot maps to exactly one bonus dimension:
// tools raise reward, headgear reduces damage, footwear raises speed.
const (
	GearSlotTool     = "tool"
	GearSlotHeadgear = "headgear"
	GearSlotFootwear = "footwear"
)

// SlotIndex returns the fixed equipment index for a gear slot, or -1.
func SlotIndex(slot string) int {
	switch slot {
	case GearSlotTool:
		return 0
	case GearSlotHeadgear:
		return 1
	case GearSlotFootwear:
		return 2
	default:
		return -1
	}
}

// SlotName returns the gear slot for a fixed equipment index.
func SlotName(index int) string {
	switch index {
	case 0:
		return GearSlotTool
	case 1:
		return GearSlotHeadgear
	case 2:
		return GearSlotFootwear
	default:
		return ""
	}
}

type Gear struct {
	bun.BaseModel `bun:"table:gear,alias:g"`

	ID          int64     `bun:"id,pk,autoincrement"`
	UserID      string    `bun:"user_id,notnull"`
	Name        string    `bun:"name,notnull"`
	Slot        string    `bun:"slot,notnull"`
	Rarity      int       `bun:"rarity,notnull"`
	Bonus       int       `bun:"bonus,notnull"`
	Enhancement int       `bun:"enhancement,notnull,default:0"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull"`
}
