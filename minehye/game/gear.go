package game

import (
	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

// MaxEnhancement caps gear enhancement levels.
const MaxEnhancement = 10

// CanMerge reports whether fodder can be merged into base: two distinct
// pieces of the same slot and rarity, with headroom left on the base.
func CanMerge(base, fodder *models.Gear) bool {
	if base == nil || fodder == nil || base.ID == fodder.ID {
		return false
	}
	if base.Slot != fodder.Slot || base.Rarity != fodder.Rarity {
		return false
	}
	return base.Enhancement < MaxEnhancement
}

// MergedEnhancement returns the enhancement level after a successful merge.
// Each merge advances the base by exactly one level; the fodder is consumed.
func MergedEnhancement(base *models.Gear) int {
	next := base.Enhancement + 1
	if next > MaxEnhancement {
		next = MaxEnhancement
	}
	return next
}
