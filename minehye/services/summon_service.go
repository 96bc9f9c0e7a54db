package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/config"
	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
	"github.com/ellavondegurechaff/minehye/minehye/game"
)

// ErrSummonUnaffordable is returned when the account cannot cover the summon
// cost.
var ErrSummonUnaffordable = errors.New("not enough tokens to summon")

// rarityWeights is the gacha distribution in tenths of a percent.
var rarityWeights = []struct {
	rarity int
	weight int
}{
	{models.RarityCommon, 500},
	{models.RarityUncommon, 250},
	{models.RarityRare, 150},
	{models.RarityEpic, 80},
	{models.RarityLegendary, 20},
}

var heroNames = []string{
	"Bram", "Wren", "Orla", "Tamsin", "Edric", "Maeve", "Cormac", "Isolde",
	"Fenn", "Astrid", "Rook", "Sable", "Perrin", "Lark", "Doran", "Nyssa",
}

var heroSpecies = []string{
	"dwarf", "gnome", "kobold", "human", "golem", "mole-folk",
}

// traitPool is the structured trait table new heroes draw from. Percentages
// are deliberately modest; traits compound across a full party.
var traitPool = []models.Trait{
	{Name: "Prospector", RewardPct: 10, Rule: models.TraitRule{Kind: models.RuleAlways}},
	{Name: "Greedy Streak", RewardPct: 25, Rule: models.TraitRule{Kind: models.RuleLowHP, Threshold: 30}},
	{Name: "Fresh Legs", SpeedPct: 15, Rule: models.TraitRule{Kind: models.RuleHighHP, Threshold: 80}},
	{Name: "Pacer", SpeedPct: 10, Rule: models.TraitRule{Kind: models.RuleAlways}},
	{Name: "Thick Hide", ReductionPct: 15, ReductionScope: models.ScopeSelf, Rule: models.TraitRule{Kind: models.RuleAlways}},
	{Name: "Shield Wall", ReductionPct: 10, ReductionScope: models.ScopeTeam, Rule: models.TraitRule{Kind: models.RuleHighHP, Threshold: 50}},
	{Name: "Last Stand", ReductionPct: 30, ReductionScope: models.ScopeSelf, Rule: models.TraitRule{Kind: models.RuleLowHP, Threshold: 20}},
	{Name: "Foreman", RewardPct: 5, SpeedPct: 5, Rule: models.TraitRule{Kind: models.RuleAlways}},
}

// SummonService is the gacha: one summon debits a fixed token cost and mints
// a new hero at full HP with a trait from the structured pool.
type SummonService struct {
	users  repositories.UserRepository
	heroes repositories.HeroRepository
	stats  repositories.StatsRepository
	rng    game.RNG
	now    func() time.Time
}

func NewSummonService(
	users repositories.UserRepository,
	heroes repositories.HeroRepository,
	stats repositories.StatsRepository,
	rng game.RNG,
	now func() time.Time,
) *SummonService {
	if now == nil {
		now = time.Now
	}
	return &SummonService{
		users:  users,
		heroes: heroes,
		stats:  stats,
		rng:    rng,
		now:    now,
	}
}

// Summon mints one hero for the user, debiting the summon cost first.
func (s *SummonService) Summon(ctx context.Context, userID string) (*models.Hero, error) {
	if err := s.users.AdjustTokens(ctx, userID, -int64(config.SummonCost)); err != nil {
		if errors.Is(err, repositories.ErrInsufficientTokens) {
			return nil, fmt.Errorf("%w (cost %d)", ErrSummonUnaffordable, config.SummonCost)
		}
		return nil, err
	}

	rarity := s.rollRarity()
	maxHP := models.MaxHPForRarity(rarity)
	hero := &models.Hero{
		UserID:    userID,
		Name:      heroNames[s.rng.Intn(len(heroNames))],
		Rarity:    rarity,
		Species:   heroSpecies[s.rng.Intn(len(heroSpecies))],
		CurrentHP: maxHP,
		MaxHP:     maxHP,
		Trait:     traitPool[s.rng.Intn(len(traitPool))],
	}

	if err := s.heroes.Create(ctx, hero); err != nil {
		// Refund: the mint failed, the player must not pay for nothing.
		if refundErr := s.users.AdjustTokens(ctx, userID, int64(config.SummonCost)); refundErr != nil {
			slog.Error("Failed to refund summon cost",
				slog.String("user_id", userID),
				slog.Any("error", refundErr))
		}
		return nil, err
	}

	if err := s.users.SetLastSummon(ctx, userID, s.now()); err != nil {
		slog.Warn("Failed to record summon timestamp",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
	if s.stats != nil {
		if err := s.stats.RecordSummon(ctx, userID); err != nil {
			slog.Warn("Failed to record summon stats",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}

	return hero, nil
}

func (s *SummonService) rollRarity() int {
	total := 0
	for _, rw := range rarityWeights {
		total += rw.weight
	}
	roll := s.rng.Intn(total)
	for _, rw := range rarityWeights {
		if roll < rw.weight {
			return rw.rarity
		}
		roll -= rw.weight
	}
	return models.RarityCommon
}
