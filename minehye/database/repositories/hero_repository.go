package repositories

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/uptrace/bun"
)

type HeroRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Hero, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Hero, error)
	GetAllByUserID(ctx context.Context, userID string) ([]*models.Hero, error)
	Create(ctx context.Context, hero *models.Hero) error
	UpdateHP(ctx context.Context, id int64, hp int) error
	UpdateGear(ctx context.Context, id int64, gear [3]int64) error
	Delete(ctx context.Context, id int64) error
}

type heroRepository struct {
	*BaseRepository
}

func NewHeroRepository(db *bun.DB) HeroRepository {
	return &heroRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *heroRepository) GetByID(ctx context.Context, id int64) (*models.Hero, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var hero models.Hero
	err := r.GetDB().NewSelect().
		Model(&hero).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("select", "hero", id, err)
	}
	return &hero, nil
}

func (r *heroRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Hero, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var heroes []*models.Hero
	err := r.GetDB().NewSelect().
		Model(&heroes).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "hero", err)
	}
	return heroes, nil
}

func (r *heroRepository) GetAllByUserID(ctx context.Context, userID string) ([]*models.Hero, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var heroes []*models.Hero
	err := r.GetDB().NewSelect().
		Model(&heroes).
		Where("user_id = ?", userID).
		Order("rarity DESC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "hero", err)
	}
	return heroes, nil
}

func (r *heroRepository) Create(ctx context.Context, hero *models.Hero) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	hero.UpdatedAt = time.Now()
	_, err := r.GetDB().NewInsert().
		Model(hero).
		Exec(ctx)
	return r.HandleError("insert", "hero", err)
}

func (r *heroRepository) UpdateHP(ctx context.Context, id int64, hp int) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model(&models.Hero{}).
		Set("current_hp = ?", hp).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	return r.HandleErrorWithID("update", "hero", id, err)
}

func (r *heroRepository) UpdateGear(ctx context.Context, id int64, gear [3]int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewUpdate().
		Model(&models.Hero{}).
		Set("gear = ?", gear).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("id = ?", id).
		Exec(ctx)
	return r.HandleErrorWithID("update", "hero", id, err)
}

func (r *heroRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewDelete().
		Model(&models.Hero{}).
		Where("id = ?", id).
		Exec(ctx)
	return r.HandleErrorWithID("delete", "hero", id, err)
}
