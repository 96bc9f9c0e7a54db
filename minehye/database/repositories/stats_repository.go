package repositories

import (
	"context"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/uptrace/bun"
)

type StatsRepository interface {
	GetByDiscordID(ctx context.Context, discordID string) (*models.UserStats, error)

	RecordDispatch(ctx context.Context, discordID string, tokensSpent int64) error
	RecordCollection(ctx context.Context, discordID string, tokensEarned int64, heroesLost int, wiped bool) error
	RecordSummon(ctx context.Context, discordID string) error
	RecordGearMerge(ctx context.Context, discordID string) error
	RecordRecovery(ctx context.Context, discordID string) error
}

type statsRepository struct {
	*BaseRepository
}

func NewStatsRepository(db *bun.DB) StatsRepository {
	return &statsRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *statsRepository) GetByDiscordID(ctx context.Context, discordID string) (*models.UserStats, error) {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	stats, err := r.ensure(ctx, discordID)
	if err != nil {
		return nil, r.HandleErrorWithID("select", "user_stats", discordID, err)
	}
	return stats, nil
}

// ensure fetches the stats row, creating an empty one on first access.
func (r *statsRepository) ensure(ctx context.Context, discordID string) (*models.UserStats, error) {
	stats := &models.UserStats{
		DiscordID: discordID,
		UpdatedAt: time.Now(),
	}
	_, err := r.GetDB().NewInsert().
		Model(stats).
		On("CONFLICT (discord_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	err = r.GetDB().NewSelect().
		Model(stats).
		Where("discord_id = ?", discordID).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *statsRepository) bump(ctx context.Context, discordID string, apply func(*bun.UpdateQuery) *bun.UpdateQuery) error {
	ctx, cancel := r.WithTimeout(ctx)
	defer cancel()

	if _, err := r.ensure(ctx, discordID); err != nil {
		return r.HandleErrorWithID("insert", "user_stats", discordID, err)
	}

	q := r.GetDB().NewUpdate().
		Model(&models.UserStats{}).
		Set("updated_at = CURRENT_TIMESTAMP").
		Where("discord_id = ?", discordID)
	_, err := apply(q).Exec(ctx)
	return r.HandleErrorWithID("update", "user_stats", discordID, err)
}

func (r *statsRepository) RecordDispatch(ctx context.Context, discordID string, tokensSpent int64) error {
	return r.bump(ctx, discordID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.
			Set("dispatches = dispatches + 1").
			Set("tokens_spent = tokens_spent + ?", tokensSpent)
	})
}

func (r *statsRepository) RecordCollection(ctx context.Context, discordID string, tokensEarned int64, heroesLost int, wiped bool) error {
	return r.bump(ctx, discordID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		q = q.
			Set("collections = collections + 1").
			Set("tokens_earned = tokens_earned + ?", tokensEarned).
			Set("heroes_lost = heroes_lost + ?", heroesLost)
		if wiped {
			q = q.Set("wipes = wipes + 1")
		}
		return q
	})
}

func (r *statsRepository) RecordSummon(ctx context.Context, discordID string) error {
	return r.bump(ctx, discordID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("summons = summons + 1")
	})
}

func (r *statsRepository) RecordGearMerge(ctx context.Context, discordID string) error {
	return r.bump(ctx, discordID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("gear_merges = gear_merges + 1")
	})
}

func (r *statsRepository) RecordRecovery(ctx context.Context, discordID string) error {
	return r.bump(ctx, discordID, func(q *bun.UpdateQuery) *bun.UpdateQuery {
		return q.Set("recoveries = recoveries + 1")
	})
}
