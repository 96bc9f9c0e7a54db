package database

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

// InitializeTierData upserts the expedition tier table. Values are the
// session's balance sheet: rank C is the free training run, rank L pays an
// order of magnitude more but rolls instant death on every hero.
func (db *DB) InitializeTierData(ctx context.Context) error {
	var tierCount int
	err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM expedition_tiers").Scan(&tierCount)
	if err == nil && tierCount >= len(models.Ranks) {
		slog.Info("Tier data already initialized, skipping",
			slog.Int("existing_tiers", tierCount))
		return nil
	}

	tiers := []models.ExpeditionTier{
		{
			Rank:                models.RankC,
			Name:                "Surface Vein",
			BaseDurationSeconds: 900,
			MinReward:           10,
			MaxReward:           20,
			MinDamage:           0,
			MaxDamage:           5,
			DeathChance:         0,
			TokenCost:           0,
		},
		{
			Rank:                models.RankUC,
			Name:                "Shallow Shaft",
			BaseDurationSeconds: 1800,
			MinReward:           25,
			MaxReward:           50,
			MinDamage:           5,
			MaxDamage:           15,
			DeathChance:         0,
			TokenCost:           10,
		},
		{
			Rank:                models.RankR,
			Name:                "Collapsed Gallery",
			BaseDurationSeconds: 3600,
			MinReward:           60,
			MaxReward:           120,
			MinDamage:           15,
			MaxDamage:           40,
			DeathChance:         0.02,
			TokenCost:           30,
		},
		{
			Rank:                models.RankE,
			Name:                "Flooded Depths",
			BaseDurationSeconds: 7200,
			MinReward:           150,
			MaxReward:           300,
			MinDamage:           30,
			MaxDamage:           75,
			DeathChance:         0.05,
			TokenCost:           80,
		},
		{
			Rank:                models.RankL,
			Name:                "The Mother Lode",
			BaseDurationSeconds: 14400,
			MinReward:           400,
			MaxReward:           800,
			MinDamage:           50,
			MaxDamage:           120,
			DeathChance:         0.10,
			TokenCost:           200,
		},
	}

	for _, tier := range tiers {
		_, err := db.bunDB.NewInsert().
			Model(&tier).
			On("CONFLICT (rank) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("base_duration_seconds = EXCLUDED.base_duration_seconds").
			Set("min_reward = EXCLUDED.min_reward").
			Set("max_reward = EXCLUDED.max_reward").
			Set("min_damage = EXCLUDED.min_damage").
			Set("max_damage = EXCLUDED.max_damage").
			Set("death_chance = EXCLUDED.death_chance").
			Set("token_cost = EXCLUDED.token_cost").
			Set("updated_at = NOW()").
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to upsert tier %s: %w", tier.Rank, err)
		}
	}

	slog.Info("Tier data initialization completed",
		slog.Int("total_tiers", len(tiers)))
	return nil
}
