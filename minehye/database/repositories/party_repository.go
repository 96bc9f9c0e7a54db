package repositories

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/uptrace/bun"
)

type PartyRepository interface {
	// GetPresets returns the user's presets, creating the fixed set of
	// empty ones on first access (preset 0 starts active).
	GetPresets(ctx context.Context, userID string) ([]*models.PartyPreset, error)
	GetActivePreset(ctx context.Context, userID string) (*models.PartyPreset, error)
	UpdateHeroIDs(ctx context.Context, userID string, index int, heroIDs [3]int64) error
	SetActive(ctx context.Context, userID string, index int) error

	// ScrubHero nulls the hero out of every preset slot that references
	// it. Called when a hero is permanently lost.
	ScrubHero(ctx context.Context, userID string, heroID int64) error
}

type partyRepository struct {
	*BaseRepository
}

func NewPartyRepository(db *bun.DB) PartyRepository {
	return &partyRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *partyRepository) GetPresets(ctx context.Context, userID string) ([]*models.PartyPreset, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var presets []*models.PartyPreset
	err := r.GetDB().NewSelect().
		Model(&presets).
		Where("user_id = ?", userID).
		Order("preset_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "party_preset", err)
	}
	if len(presets) >= models.PresetCount {
		return presets, nil
	}

	have := make(map[int]bool, len(presets))
	for _, p := range presets {
		have[p.Index] = true
	}
	for i := 0; i < models.PresetCount; i++ {
		if have[i] {
			continue
		}
		p := &models.PartyPreset{
			UserID:    userID,
			Index:     i,
			Active:    i == 0,
			UpdatedAt: time.Now(),
		}
		if _, err := r.GetDB().NewInsert().Model(p).Exec(ctx); err != nil {
			return nil, r.HandleError("insert", "party_preset", err)
		}
		presets = append(presets, p)
	}
	return presets, nil
}

func (r *partyRepository) GetActivePreset(ctx context.Context, userID string) (*models.PartyPreset, error) {
	presets, err := r.GetPresets(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, p := range presets {
		if p.Active {
			return p, nil
		}
	}
	return presets[0], nil
}

func (r *partyRepository) UpdateHeroIDs(ctx context.Context, userID string, index int, heroIDs [3]int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model(&models.PartyPreset{}).
		Set("hero_ids = ?", heroIDs).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("user_id = ?", userID).
		Where("preset_index = ?", index).
		Exec(ctx)
	return r.HandleErrorWithID("update", "party_preset", index, err)
}

func (r *partyRepository) SetActive(ctx context.Context, userID string, index int) error {
	return r.Transaction(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model(&models.PartyPreset{}).
			Set("active = false").
			Where("user_id = ?", userID).
			Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model(&models.PartyPreset{}).
			Set("active = true").
			Set("updated_at = CURRENT_TIMESTAMP").
			Where("user_id = ?", userID).
			Where("preset_index = ?", index).
			Exec(ctx)
		return err
	})
}

func (r *partyRepository) ScrubHero(ctx context.Context, userID string, heroID int64) error {
	presets, err := r.GetPresets(ctx, userID)
	if err != nil {
		return err
	}
	for _, p := range presets {
		if !p.Contains(heroID) {
			continue
		}
		ids := p.HeroIDs
		for i, id := range ids {
			if id == heroID {
				ids[i] = 0
			}
		}
		if err := r.UpdateHeroIDs(ctx, userID, p.Index, ids); err != nil {
			return err
		}
	}
	return nil
}
