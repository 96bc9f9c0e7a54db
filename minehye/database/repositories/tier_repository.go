package repositories

import (
	"context"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"
)

type TierRepository interface {
	GetByRank(ctx context.Context, rank string) (*models.ExpeditionTier, error)
	GetAll(ctx context.Context) ([]*models.ExpeditionTier, error)
}

type tierRepository struct {
	*BaseRepository
}

func NewTierRepository(db *bun.DB) TierRepository {
	return &tierRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *tierRepository) GetByRank(ctx context.Context, rank string) (*models.ExpeditionTier, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var tier models.ExpeditionTier
	err := r.GetDB().NewSelect().
		Model(&tier).
		Where("rank = ?", rank).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleErrorWithID("select", "expedition_tier", rank, err)
	}
	return &tier, nil
}

func (r *tierRepository) GetAll(ctx context.Context) ([]*models.ExpeditionTier, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	var tiers []*models.ExpeditionTier
	err := r.GetDB().NewSelect().
		Model(&tiers).
		Scan(ctx)
	if err != nil {
		return nil, r.HandleError("select", "expedition_tier", err)
	}
	return tiers, nil
}

const tierCacheSize = 16

// CachedTierRepository fronts a TierRepository with an LRU. Tier configs are
// immutable during a session, so entries never expire.
type CachedTierRepository struct {
	inner TierRepository
	cache *lru.Cache
}

func NewCachedTierRepository(inner TierRepository) *CachedTierRepository {
	cache, _ := lru.New(tierCacheSize)
	return &CachedTierRepository{inner: inner, cache: cache}
}

func (r *CachedTierRepository) GetByRank(ctx context.Context, rank string) (*models.ExpeditionTier, error) {
	if cached, ok := r.cache.Get(rank); ok {
		return cached.(*models.ExpeditionTier), nil
	}
	tier, err := r.inner.GetByRank(ctx, rank)
	if err != nil {
		return nil, err
	}
	r.cache.Add(rank, tier)
	return tier, nil
}

func (r *CachedTierRepository) GetAll(ctx context.Context) ([]*models.ExpeditionTier, error) {
	tiers, err := r.inner.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range tiers {
		r.cache.Add(t.Rank, t)
	}
	return tiers, nil
}
