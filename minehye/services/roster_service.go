package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
	"github.com/ellavondegurechaff/minehye/minehye/game"
)

var (
	ErrNotOwned       = errors.New("not owned by this account")
	ErrHeroBusy       = errors.New("hero is out on an expedition")
	ErrHeroDead       = errors.New("hero is dead")
	ErrGearInUse      = errors.New("gear is equipped on another hero")
	ErrCannotMerge    = errors.New("these gear pieces cannot be merged")
	ErrNoSuchItem     = errors.New("item not in inventory")
	ErrNotRecoverable = errors.New("item cannot be used for recovery")
)

// RosterService owns roster mutations outside the expedition lifecycle:
// equipment, party composition, and recovery items. Heroes on an active
// expedition are frozen until collection.
type RosterService struct {
	heroes  repositories.HeroRepository
	gear    repositories.GearRepository
	parties repositories.PartyRepository
	exps    repositories.ExpeditionRepository
	items   repositories.ItemRepository
	stats   repositories.StatsRepository
}

func NewRosterService(
	heroes repositories.HeroRepository,
	gear repositories.GearRepository,
	parties repositories.PartyRepository,
	exps repositories.ExpeditionRepository,
	items repositories.ItemRepository,
	stats repositories.StatsRepository,
) *RosterService {
	return &RosterService{
		heroes:  heroes,
		gear:    gear,
		parties: parties,
		exps:    exps,
		items:   items,
		stats:   stats,
	}
}

// Equip puts a gear piece on a hero in the piece's fixed slot, displacing
// whatever was there. A piece can only sit on one hero at a time.
func (s *RosterService) Equip(ctx context.Context, userID string, heroID, gearID int64) error {
	hero, err := s.ownedHero(ctx, userID, heroID)
	if err != nil {
		return err
	}
	if busy, err := s.heroBusy(ctx, userID, heroID); err != nil {
		return err
	} else if busy {
		return ErrHeroBusy
	}

	g, err := s.gear.GetByID(ctx, gearID)
	if err != nil {
		return err
	}
	if g.UserID != userID {
		return fmt.Errorf("gear %d: %w", gearID, ErrNotOwned)
	}

	idx := models.SlotIndex(g.Slot)
	if idx < 0 {
		return fmt.Errorf("gear %d has unknown slot %q", gearID, g.Slot)
	}

	// One-owner rule: unhook the piece from any other hero first.
	others, err := s.heroes.GetAllByUserID(ctx, userID)
	if err != nil {
		return err
	}
	for _, other := range others {
		if other.ID == heroID {
			continue
		}
		for i, id := range other.Gear {
			if id == gearID {
				if busy, err := s.heroBusy(ctx, userID, other.ID); err != nil {
					return err
				} else if busy {
					return ErrGearInUse
				}
				updated := other.Gear
				updated[i] = 0
				if err := s.heroes.UpdateGear(ctx, other.ID, updated); err != nil {
					return err
				}
			}
		}
	}

	updated := hero.Gear
	updated[idx] = gearID
	return s.heroes.UpdateGear(ctx, heroID, updated)
}

// Unequip clears a hero's slot.
func (s *RosterService) Unequip(ctx context.Context, userID string, heroID int64, slot string) error {
	hero, err := s.ownedHero(ctx, userID, heroID)
	if err != nil {
		return err
	}
	if busy, err := s.heroBusy(ctx, userID, heroID); err != nil {
		return err
	} else if busy {
		return ErrHeroBusy
	}

	idx := models.SlotIndex(slot)
	if idx < 0 {
		return fmt.Errorf("unknown slot %q", slot)
	}

	updated := hero.Gear
	updated[idx] = 0
	return s.heroes.UpdateGear(ctx, heroID, updated)
}

// AssignToParty places a hero in a preset slot, or clears the slot when
// heroID is 0. Duplicates within a preset are rejected.
func (s *RosterService) AssignToParty(ctx context.Context, userID string, presetIndex, slot int, heroID int64) error {
	if presetIndex < 0 || presetIndex >= models.PresetCount {
		return fmt.Errorf("preset index %d out of range", presetIndex)
	}
	if slot < 0 || slot >= models.PartySize {
		return fmt.Errorf("party slot %d out of range", slot)
	}

	presets, err := s.parties.GetPresets(ctx, userID)
	if err != nil {
		return err
	}
	var preset *models.PartyPreset
	for _, p := range presets {
		if p.Index == presetIndex {
			preset = p
			break
		}
	}
	if preset == nil {
		return fmt.Errorf("preset %d not found", presetIndex)
	}

	if heroID != 0 {
		hero, err := s.ownedHero(ctx, userID, heroID)
		if err != nil {
			return err
		}
		if !hero.Alive() {
			return fmt.Errorf("%s: %w", hero.Name, ErrHeroDead)
		}
		for i, id := range preset.HeroIDs {
			if id == heroID && i != slot {
				return fmt.Errorf("hero %d is already in this preset", heroID)
			}
		}
	}

	// Editing the composition of a party that is out mid-expedition would
	// desync the dispatch snapshot, so the whole preset freezes.
	for _, id := range preset.HeroIDs {
		if id == 0 {
			continue
		}
		if busy, err := s.heroBusy(ctx, userID, id); err != nil {
			return err
		} else if busy {
			return ErrHeroBusy
		}
	}

	updated := preset.HeroIDs
	updated[slot] = heroID
	return s.parties.UpdateHeroIDs(ctx, userID, presetIndex, updated)
}

// SetActivePreset switches which preset dispatches.
func (s *RosterService) SetActivePreset(ctx context.Context, userID string, index int) error {
	if index < 0 || index >= models.PresetCount {
		return fmt.Errorf("preset index %d out of range", index)
	}
	return s.parties.SetActive(ctx, userID, index)
}

// Presets returns the user's party presets, creating them on first access.
func (s *RosterService) Presets(ctx context.Context, userID string) ([]*models.PartyPreset, error) {
	return s.parties.GetPresets(ctx, userID)
}

// UseRecoveryItem heals a wounded hero with a consumable. Healing is bounded
// by max HP and dead heroes are beyond recovery.
func (s *RosterService) UseRecoveryItem(ctx context.Context, userID string, heroID int64, itemID string) (int, error) {
	hero, err := s.ownedHero(ctx, userID, heroID)
	if err != nil {
		return 0, err
	}
	if !hero.Alive() {
		return 0, fmt.Errorf("%s: %w", hero.Name, ErrHeroDead)
	}
	if busy, err := s.heroBusy(ctx, userID, heroID); err != nil {
		return 0, err
	} else if busy {
		return 0, ErrHeroBusy
	}

	amount, ok := models.RecoveryAmount[itemID]
	if !ok {
		return 0, fmt.Errorf("%s: %w", itemID, ErrNotRecoverable)
	}

	owned, err := s.items.GetUserItem(ctx, userID, itemID)
	if err != nil {
		return 0, err
	}
	if owned == nil || owned.Quantity < 1 {
		return 0, fmt.Errorf("%s: %w", itemID, ErrNoSuchItem)
	}

	newHP := hero.MaxHP
	if amount >= 0 {
		newHP = hero.CurrentHP + amount
		if newHP > hero.MaxHP {
			newHP = hero.MaxHP
		}
	}

	if err := s.items.RemoveUserItem(ctx, userID, itemID, 1); err != nil {
		return 0, err
	}
	if err := s.heroes.UpdateHP(ctx, heroID, newHP); err != nil {
		return 0, err
	}

	if s.stats != nil {
		if err := s.stats.RecordRecovery(ctx, userID); err != nil {
			slog.Warn("Failed to record recovery stats",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}

	return newHP - hero.CurrentHP, nil
}

// MergeGear consumes the fodder piece to advance the base piece one
// enhancement level. Both must be the same slot and rarity.
func (s *RosterService) MergeGear(ctx context.Context, userID string, baseID, fodderID int64) (*models.Gear, error) {
	base, err := s.gear.GetByID(ctx, baseID)
	if err != nil {
		return nil, err
	}
	if base.UserID != userID {
		return nil, fmt.Errorf("gear %d: %w", baseID, ErrNotOwned)
	}
	fodder, err := s.gear.GetByID(ctx, fodderID)
	if err != nil {
		return nil, err
	}
	if fodder.UserID != userID {
		return nil, fmt.Errorf("gear %d: %w", fodderID, ErrNotOwned)
	}

	if !game.CanMerge(base, fodder) {
		return nil, ErrCannotMerge
	}

	// The fodder may not be equipped on a hero that is currently out.
	heroes, err := s.heroes.GetAllByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, h := range heroes {
		for i, id := range h.Gear {
			if id != fodderID {
				continue
			}
			if busy, err := s.heroBusy(ctx, userID, h.ID); err != nil {
				return nil, err
			} else if busy {
				return nil, ErrGearInUse
			}
			updated := h.Gear
			updated[i] = 0
			if err := s.heroes.UpdateGear(ctx, h.ID, updated); err != nil {
				return nil, err
			}
		}
	}

	next := game.MergedEnhancement(base)
	if err := s.gear.UpdateEnhancement(ctx, baseID, next); err != nil {
		return nil, err
	}
	if err := s.gear.Delete(ctx, fodderID); err != nil {
		return nil, err
	}

	if s.stats != nil {
		if err := s.stats.RecordGearMerge(ctx, userID); err != nil {
			slog.Warn("Failed to record merge stats",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}

	base.Enhancement = next
	return base, nil
}

func (s *RosterService) ownedHero(ctx context.Context, userID string, heroID int64) (*models.Hero, error) {
	hero, err := s.heroes.GetByID(ctx, heroID)
	if err != nil {
		return nil, err
	}
	if hero.UserID != userID {
		return nil, fmt.Errorf("hero %d: %w", heroID, ErrNotOwned)
	}
	return hero, nil
}

func (s *RosterService) heroBusy(ctx context.Context, userID string, heroID int64) (bool, error) {
	active, err := s.exps.GetActiveByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, exp := range active {
		for _, id := range exp.HeroIDs {
			if id == heroID {
				return true, nil
			}
		}
	}
	return false, nil
}
