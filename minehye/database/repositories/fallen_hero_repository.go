package repositories

import (
	"context"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/uptrace/bun"
)

type FallenHeroRepository interface {
	Insert(ctx context.Context, record *models.FallenHero) error
	GetAllByUserID(ctx context.Context, userID string) ([]*models.FallenHero, error)
}

type fallenHeroRepository struct {
	*BaseRepository
}

func NewFallenHeroRepository(db *bun.DB) FallenHeroRepository {
	return &fallenHeroRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *fallenHeroRepository) Insert(ctx context.Context, record *models.FallenHero) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	_, err := r.GetDB().NewInsert().
		Model(record).
		Exec(ctx)
	return r.HandleError("insert", "fallen_hero", err)
}

func (r *fallenHeroRepository) GetAllByUserID(ctx context.Context, userID string) ([]*models.FallenHero, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var records []*models.FallenHero
	err := r.GetDB().NewSelect().
		Model(&records).
		Where("user_id = ?", userID).
		Order("fell_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "fallen_hero", err)
	}
	return records, nil
}
