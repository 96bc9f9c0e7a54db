package expedition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
	"github.com/ellavondegurechaff/minehye/minehye/game"
)

// Manager owns the expedition lifecycle: dispatch resolves the outcome up
// front and persists it, collection replays the persisted outcome against the
// live roster. All roster, token and preset mutations for expeditions flow
// through here.
type Manager struct {
	users   repositories.UserRepository
	heroes  repositories.HeroRepository
	gear    repositories.GearRepository
	exps    repositories.ExpeditionRepository
	parties repositories.PartyRepository
	fallen  repositories.FallenHeroRepository
	tiers   repositories.TierRepository
	stats   repositories.StatsRepository

	rng   game.RNG
	now   func() time.Time
	locks *LockManager

	debugTools bool
}

// ManagerConfig carries the manager's dependencies. Rng and Now default to
// real randomness and the wall clock; tests inject both.
type ManagerConfig struct {
	Users   repositories.UserRepository
	Heroes  repositories.HeroRepository
	Gear    repositories.GearRepository
	Exps    repositories.ExpeditionRepository
	Parties repositories.PartyRepository
	Fallen  repositories.FallenHeroRepository
	Tiers   repositories.TierRepository
	Stats   repositories.StatsRepository

	Rng        game.RNG
	Now        func() time.Time
	DebugTools bool
}

func NewManager(cfg ManagerConfig) *Manager {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		users:      cfg.Users,
		heroes:     cfg.Heroes,
		gear:       cfg.Gear,
		exps:       cfg.Exps,
		parties:    cfg.Parties,
		fallen:     cfg.Fallen,
		tiers:      cfg.Tiers,
		stats:      cfg.Stats,
		rng:        cfg.Rng,
		now:        now,
		locks:      NewLockManager(),
		debugTools: cfg.DebugTools,
	}
}

// Locks exposes the dispatch lock manager so main can start its cleanup loop.
func (m *Manager) Locks() *LockManager {
	return m.locks
}

// DispatchResult describes a successfully launched expedition.
type DispatchResult struct {
	Expedition      *models.Expedition
	TokenCost       int64
	DurationSeconds int
	Party           []*models.Hero
}

// Dispatch launches the user's active party on an expedition of the given
// rank. Preconditions are checked in a fixed order so the player always sees
// the most fundamental problem first: unknown tier, party busy, party
// incomplete or dead, insufficient tokens.
func (m *Manager) Dispatch(ctx context.Context, userID, rank string) (*DispatchResult, error) {
	if !m.locks.Acquire(userID) {
		return nil, &ValidationError{
			Category: CategoryPartyBusy,
			Message:  "another dispatch is already in progress",
		}
	}
	defer m.locks.Release(userID)

	tier, err := m.tiers.GetByRank(ctx, rank)
	if err != nil {
		if repositories.IsNotFound(err) {
			return nil, &ValidationError{
				Category: CategoryUnknownTier,
				Message:  fmt.Sprintf("no expedition rank %q exists", rank),
			}
		}
		return nil, &PersistenceError{Op: "load tier", Err: err}
	}

	preset, err := m.parties.GetActivePreset(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load party", Err: err}
	}

	active, err := m.exps.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load active expeditions", Err: err}
	}
	for _, exp := range active {
		for _, id := range exp.HeroIDs {
			if id != 0 && preset.Contains(id) {
				return nil, &ValidationError{
					Category: CategoryPartyBusy,
					Message:  "the active party is already out on an expedition",
				}
			}
		}
	}

	if !preset.Full() {
		return nil, &ValidationError{
			Category: CategoryPartyIncomplete,
			Message:  fmt.Sprintf("the active party needs %d heroes", models.PartySize),
		}
	}

	heroes, err := m.heroes.GetByIDs(ctx, preset.HeroIDs[:])
	if err != nil {
		return nil, &PersistenceError{Op: "load party heroes", Err: err}
	}
	if len(heroes) != models.PartySize {
		return nil, &ValidationError{
			Category: CategoryPartyIncomplete,
			Message:  "the active party references heroes that no longer exist",
		}
	}
	ordered := orderParty(preset.HeroIDs, heroes)
	for _, h := range ordered {
		if !h.Alive() {
			return nil, &ValidationError{
				Category: CategoryDeadHero,
				Message:  fmt.Sprintf("%s is dead and cannot be dispatched", h.Name),
			}
		}
	}

	if tier.TokenCost > 0 {
		user, err := m.users.GetByDiscordID(ctx, userID)
		if err != nil {
			return nil, &PersistenceError{Op: "load user", Err: err}
		}
		if user.Tokens < tier.TokenCost {
			return nil, &ValidationError{
				Category: CategoryInsufficientFunds,
				Message:  fmt.Sprintf("rank %s costs %d tokens, you have %d", rank, tier.TokenCost, user.Tokens),
			}
		}
	}

	gearMap, gearSnaps, err := m.loadGear(ctx, ordered)
	if err != nil {
		return nil, &PersistenceError{Op: "load gear", Err: err}
	}

	snapshot := game.Resolve(tier, ordered, gearMap, m.rng)
	stats := game.AggregateParty(ordered, gearMap)
	duration := game.ActualDuration(tier, stats.TotalSpeed())

	now := m.now()
	exp := &models.Expedition{
		UserID:        userID,
		Rank:          rank,
		StartedAt:     now,
		EndsAt:        now.Add(time.Duration(duration) * time.Second),
		HeroIDs:       preset.HeroIDs,
		Status:        models.ExpeditionStatusActive,
		Snapshot:      snapshot,
		PartySnapshot: snapshotParty(ordered),
		GearSnapshots: gearSnaps,
	}

	if err := m.exps.Create(ctx, exp); err != nil {
		return nil, &PersistenceError{Op: "create expedition", Err: err}
	}

	if tier.TokenCost > 0 {
		if err := m.users.AdjustTokens(ctx, userID, -tier.TokenCost); err != nil {
			// Undo the expedition so a failed debit never leaves a free run.
			if delErr := m.exps.Delete(ctx, exp.ID); delErr != nil {
				slog.Error("Failed to roll back expedition after debit failure",
					slog.Int64("expedition_id", exp.ID),
					slog.Any("error", delErr))
			}
			if errors.Is(err, repositories.ErrInsufficientTokens) {
				return nil, &ValidationError{
					Category: CategoryInsufficientFunds,
					Message:  fmt.Sprintf("rank %s costs %d tokens", rank, tier.TokenCost),
				}
			}
			return nil, &PersistenceError{Op: "debit tokens", Err: err}
		}
	}

	if m.stats != nil {
		if err := m.stats.RecordDispatch(ctx, userID, tier.TokenCost); err != nil {
			slog.Warn("Failed to record dispatch stats",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}

	slog.Info("Expedition dispatched",
		slog.String("type", "expedition"),
		slog.String("user_id", userID),
		slog.String("rank", rank),
		slog.Int64("expedition_id", exp.ID),
		slog.Int("duration_seconds", duration))

	return &DispatchResult{
		Expedition:      exp,
		TokenCost:       tier.TokenCost,
		DurationSeconds: duration,
		Party:           ordered,
	}, nil
}

// HeroOutcome is one hero's result line within a collected expedition.
type HeroOutcome struct {
	HeroID      int64
	Name        string
	Damage      int
	RemainingHP int
	Died        bool
	Instant     bool
}

// Line renders the outcome for the collection report.
func (h HeroOutcome) Line() string {
	switch {
	case h.Died && h.Instant:
		return fmt.Sprintf("%s was lost in a cave-in", h.Name)
	case h.Died:
		return fmt.Sprintf("%s took %d damage and did not make it back", h.Name, h.Damage)
	case h.Damage == 0:
		return fmt.Sprintf("%s returned unscathed (%d HP)", h.Name, h.RemainingHP)
	default:
		return fmt.Sprintf("%s took %d damage (%d HP left)", h.Name, h.Damage, h.RemainingHP)
	}
}

// Outcome is one collected expedition's result.
type Outcome struct {
	ExpeditionID    int64
	Rank            string
	BaseReward      int
	HeroBonusReward int
	GearBonusReward int
	Reward          int64
	Wiped           bool
	Heroes          []HeroOutcome
}

// CollectResult aggregates every expedition processed by one Collect call.
// Failed holds per-instance errors; a failing instance never blocks the rest.
type CollectResult struct {
	Outcomes    []*Outcome
	TotalReward int64
	Failed      map[int64]error
}

// Collect processes every active expedition whose timer has elapsed. Each
// instance is claimed with a conditional status flip before any mutation, so
// concurrent collects settle each expedition exactly once.
func (m *Manager) Collect(ctx context.Context, userID string) (*CollectResult, error) {
	active, err := m.exps.GetActiveByUserID(ctx, userID)
	if err != nil {
		return nil, &PersistenceError{Op: "load active expeditions", Err: err}
	}

	now := m.now()
	var due []*models.Expedition
	for _, exp := range active {
		if exp.Done(now) {
			due = append(due, exp)
		}
	}
	if len(due) == 0 {
		return nil, ErrNothingToCollect
	}

	result := &CollectResult{Failed: make(map[int64]error)}
	for _, exp := range due {
		outcome, err := m.collectOne(ctx, exp)
		if err != nil {
			result.Failed[exp.ID] = err
			slog.Error("Failed to collect expedition",
				slog.Int64("expedition_id", exp.ID),
				slog.String("user_id", userID),
				slog.Any("error", err))
			continue
		}
		if outcome == nil {
			// Lost the claim race; someone else settled it.
			continue
		}
		result.Outcomes = append(result.Outcomes, outcome)
		result.TotalReward += outcome.Reward
	}

	if len(result.Outcomes) == 0 && len(result.Failed) == 0 {
		return nil, ErrNothingToCollect
	}
	return result, nil
}

func (m *Manager) collectOne(ctx context.Context, exp *models.Expedition) (*Outcome, error) {
	snapshot := exp.Snapshot
	if !snapshot.Computed {
		replayed, err := m.replay(ctx, exp)
		if err != nil {
			return nil, err
		}
		snapshot = replayed
	}

	claimed, err := m.exps.MarkCollected(ctx, exp.ID)
	if err != nil {
		return nil, &PersistenceError{Op: "claim expedition", Err: err}
	}
	if !claimed {
		return nil, nil
	}

	outcome, err := m.settle(ctx, exp, snapshot)
	if err != nil {
		// Reopen the claim so a retry reprocesses this expedition instead of
		// silently dropping its rewards.
		if reErr := m.exps.Reactivate(ctx, exp.ID); reErr != nil {
			slog.Error("Failed to reactivate expedition after settle failure",
				slog.Int64("expedition_id", exp.ID),
				slog.Any("error", reErr))
		}
		return nil, err
	}
	return outcome, nil
}

// replay recomputes a missing result snapshot from the dispatch-time
// provenance. Missing provenance is unrecoverable and reported loudly.
func (m *Manager) replay(ctx context.Context, exp *models.Expedition) (models.ResultSnapshot, error) {
	if len(exp.PartySnapshot) == 0 {
		return models.ResultSnapshot{}, &DataIntegrityError{
			ExpeditionID: exp.ID,
			Message:      "result snapshot missing and no party snapshot to replay from",
		}
	}

	tier, err := m.tiers.GetByRank(ctx, exp.Rank)
	if err != nil {
		return models.ResultSnapshot{}, &PersistenceError{Op: "load tier for replay", Err: err}
	}

	heroes := make([]*models.Hero, 0, len(exp.PartySnapshot))
	for _, hs := range exp.PartySnapshot {
		heroes = append(heroes, &models.Hero{
			ID:        hs.HeroID,
			Name:      hs.Name,
			Rarity:    hs.Rarity,
			CurrentHP: hs.CurrentHP,
			MaxHP:     hs.MaxHP,
			Trait:     hs.Trait,
			Gear:      hs.Gear,
		})
	}
	gearMap := make(map[int64]game.GearInfo, len(exp.GearSnapshots))
	for _, gs := range exp.GearSnapshots {
		gearMap[gs.GearID] = game.GearInfo{
			Slot:        gs.Slot,
			Bonus:       gs.Bonus,
			Enhancement: gs.Enhancement,
		}
	}

	slog.Warn("Replaying expedition outcome from dispatch snapshot",
		slog.String("type", "expedition"),
		slog.Int64("expedition_id", exp.ID))

	return game.Resolve(tier, heroes, gearMap, m.rng), nil
}

// settle applies a resolved snapshot to the live roster and credits rewards.
func (m *Manager) settle(ctx context.Context, exp *models.Expedition, snapshot models.ResultSnapshot) (*Outcome, error) {
	heroes, err := m.heroes.GetByIDs(ctx, exp.HeroIDs[:])
	if err != nil {
		return nil, &PersistenceError{Op: "load party heroes", Err: err}
	}
	byID := make(map[int64]*models.Hero, len(heroes))
	for _, h := range heroes {
		byID[h.ID] = h
	}

	outcome := &Outcome{
		ExpeditionID:    exp.ID,
		Rank:            exp.Rank,
		BaseReward:      snapshot.BaseReward,
		HeroBonusReward: snapshot.HeroBonusReward,
		GearBonusReward: snapshot.GearBonusReward,
	}

	deaths := 0
	now := m.now()
	for _, heroID := range exp.HeroIDs {
		if heroID == 0 {
			continue
		}
		dmg := snapshot.Damage[heroID]
		h, present := byID[heroID]
		if !present {
			// Hero already gone (earlier partial settle deleted it). Judge
			// the death against the dispatch-time HP so the wipe rule stays
			// consistent; nothing left to mutate.
			if wouldDie(exp.PartySnapshot, heroID, dmg) {
				deaths++
			}
			continue
		}

		ho := HeroOutcome{HeroID: heroID, Name: h.Name, Damage: dmg}

		newHP := h.CurrentHP - dmg
		if dmg >= game.FatalDamage || newHP <= 0 {
			newHP = 0
		}

		if newHP == 0 {
			ho.Died = true
			ho.Instant = dmg >= game.FatalDamage
			deaths++

			cause := models.FallCauseDamage
			if ho.Instant {
				cause = models.FallCauseInstant
			}
			if err := m.fallen.Insert(ctx, &models.FallenHero{
				HeroID:       h.ID,
				UserID:       exp.UserID,
				Name:         h.Name,
				Rarity:       h.Rarity,
				ExpeditionID: exp.ID,
				Cause:        cause,
				FellAt:       now,
			}); err != nil {
				return nil, &PersistenceError{Op: "record fallen hero", Err: err}
			}
			if err := m.heroes.Delete(ctx, h.ID); err != nil {
				return nil, &PersistenceError{Op: "remove fallen hero", Err: err}
			}
			if err := m.parties.ScrubHero(ctx, exp.UserID, h.ID); err != nil {
				return nil, &PersistenceError{Op: "scrub fallen hero from presets", Err: err}
			}
		} else if dmg > 0 {
			if err := m.heroes.UpdateHP(ctx, h.ID, newHP); err != nil {
				return nil, &PersistenceError{Op: "apply damage", Err: err}
			}
			ho.RemainingHP = newHP
		} else {
			ho.RemainingHP = h.CurrentHP
		}

		outcome.Heroes = append(outcome.Heroes, ho)
	}

	outcome.Wiped = deaths >= models.PartySize
	if !outcome.Wiped {
		outcome.Reward = int64(snapshot.BaseReward + snapshot.HeroBonusReward + snapshot.GearBonusReward)
		if outcome.Reward > 0 {
			if err := m.users.AdjustTokens(ctx, exp.UserID, outcome.Reward); err != nil {
				return nil, &PersistenceError{Op: "credit reward", Err: err}
			}
		}
	}

	if m.stats != nil {
		if err := m.stats.RecordCollection(ctx, exp.UserID, outcome.Reward, deaths, outcome.Wiped); err != nil {
			slog.Warn("Failed to record collection stats",
				slog.String("user_id", exp.UserID),
				slog.Any("error", err))
		}
	}

	slog.Info("Expedition collected",
		slog.String("type", "expedition"),
		slog.Int64("expedition_id", exp.ID),
		slog.String("user_id", exp.UserID),
		slog.Int64("reward", outcome.Reward),
		slog.Int("deaths", deaths),
		slog.Bool("wiped", outcome.Wiped))

	return outcome, nil
}

// ForceComplete moves an expedition's end time into the past. Debug tooling
// only; refuses to run unless the debug flag is set.
func (m *Manager) ForceComplete(ctx context.Context, userID string, expeditionID int64) error {
	if !m.debugTools {
		return ErrDebugDisabled
	}

	exp, err := m.exps.GetByID(ctx, expeditionID)
	if err != nil {
		return err
	}
	if exp.UserID != userID {
		return fmt.Errorf("expedition %d does not belong to user %s", expeditionID, userID)
	}
	if exp.Status != models.ExpeditionStatusActive {
		return fmt.Errorf("expedition %d is not active", expeditionID)
	}

	return m.exps.SetEndsAt(ctx, expeditionID, m.now().Add(-time.Second))
}

// Status returns the user's active expeditions with their remaining time.
func (m *Manager) Status(ctx context.Context, userID string) ([]*models.Expedition, error) {
	return m.exps.GetActiveByUserID(ctx, userID)
}

func (m *Manager) loadGear(ctx context.Context, heroes []*models.Hero) (map[int64]game.GearInfo, []models.GearSnapshot, error) {
	var ids []int64
	for _, h := range heroes {
		for _, id := range h.Gear {
			if id != 0 {
				ids = append(ids, id)
			}
		}
	}

	gearMap := make(map[int64]game.GearInfo, len(ids))
	var snaps []models.GearSnapshot
	if len(ids) == 0 {
		return gearMap, snaps, nil
	}

	rows, err := m.gear.GetByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	for _, g := range rows {
		gearMap[g.ID] = game.GearInfo{
			Slot:        g.Slot,
			Bonus:       g.Bonus,
			Enhancement: g.Enhancement,
		}
		snaps = append(snaps, models.GearSnapshot{
			GearID:      g.ID,
			Slot:        g.Slot,
			Bonus:       g.Bonus,
			Enhancement: g.Enhancement,
		})
	}
	return gearMap, snaps, nil
}

func snapshotParty(heroes []*models.Hero) []models.HeroSnapshot {
	snaps := make([]models.HeroSnapshot, 0, len(heroes))
	for _, h := range heroes {
		snaps = append(snaps, models.HeroSnapshot{
			HeroID:    h.ID,
			Name:      h.Name,
			Rarity:    h.Rarity,
			CurrentHP: h.CurrentHP,
			MaxHP:     h.MaxHP,
			Trait:     h.Trait,
			Gear:      h.Gear,
		})
	}
	return snaps
}

func wouldDie(snaps []models.HeroSnapshot, heroID int64, dmg int) bool {
	if dmg >= game.FatalDamage {
		return true
	}
	for _, hs := range snaps {
		if hs.HeroID == heroID {
			return hs.CurrentHP-dmg <= 0
		}
	}
	// No provenance for a missing hero; assume it fell.
	return true
}

// orderParty returns heroes in preset slot order regardless of query order.
func orderParty(ids [3]int64, heroes []*models.Hero) []*models.Hero {
	byID := make(map[int64]*models.Hero, len(heroes))
	for _, h := range heroes {
		byID[h.ID] = h
	}
	ordered := make([]*models.Hero, 0, len(ids))
	for _, id := range ids {
		if h, ok := byID[id]; ok {
			ordered = append(ordered, h)
		}
	}
	return ordered
}
