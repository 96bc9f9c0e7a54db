package repositories

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/uptrace/bun"
)

type GearRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Gear, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Gear, error)
	GetAllByUserID(ctx context.Context, userID string) ([]*models.Gear, error)
	Create(ctx context.Context, gear *models.Gear) error
	UpdateEnhancement(ctx context.Context, id int64, level int) error
	Delete(ctx context.Context, id int64) error
}

type gearRepository struct {
	*BaseRepository
}

func NewGearRepository(db *bun.DB) GearRepository {
	return &gearRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *gearRepository) GetByID(ctx context.Context, id int64) (*models.Gear, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var gear models.Gear
	err := r.GetDB().NewSelect().
		Model(&gear).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("select", "gear", id, err)
	}
	return &gear, nil
}

func (r *gearRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Gear, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var gear []*models.Gear
	err := r.GetDB().NewSelect().
		Model(&gear).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "gear", err)
	}
	return gear, nil
}

func (r *gearRepository) GetAllByUserID(ctx context.Context, userID string) ([]*models.Gear, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var gear []*models.Gear
	err := r.GetDB().NewSelect().
		Model(&gear).
		Where("user_id = ?", userID).
		Order("slot ASC", "rarity DESC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "gear", err)
	}
	return gear, nil
}

func (r *gearRepository) Create(ctx context.Context, gear *models.Gear) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	gear.UpdatedAt = time.Now()
	_, err := r.GetDB().NewInsert().
		Model(gear).
		Exec(ctx)
	return r.HandleError("insert", "gear", err)
}

func (r *gearRepository) UpdateEnhancement(ctx context.Context, id int64, level int) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model(&models.Gear{}).
		Set("enhancement = ?", level).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	return r.HandleErrorWithID("update", "gear", id, err)
}

func (r *gearRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewDelete().
		Model(&models.Gear{}).
		Where("id = ?", id).
		Exec(ctx)
	return r.HandleErrorWithID("delete", "gear", id, err)
}
