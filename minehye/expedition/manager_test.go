package expedition

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
	"github.com/ellavondegurechaff/minehye/minehye/game"
)

// midRNG draws interval midpoints and never rolls instant death.
type midRNG struct{}

func (midRNG) Intn(n int) int   { return n / 2 }
func (midRNG) Float64() float64 { return 1 }

// doomRNG always rolls instant death.
type doomRNG struct{}

func (doomRNG) Intn(n int) int   { return n / 2 }
func (doomRNG) Float64() float64 { return 0 }

type fakeUsers struct {
	tokens     map[string]int64
	failAdjust bool
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{tokens: make(map[string]int64)}
}

func (f *fakeUsers) GetByDiscordID(_ context.Context, discordID string) (*models.User, error) {
	bal, ok := f.tokens[discordID]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "user", ID: discordID}
	}
	return &models.User{DiscordID: discordID, Tokens: bal}, nil
}

func (f *fakeUsers) GetOrCreate(_ context.Context, discordID, _ string) (*models.User, error) {
	return &models.User{DiscordID: discordID, Tokens: f.tokens[discordID]}, nil
}

func (f *fakeUsers) AdjustTokens(_ context.Context, discordID string, delta int64) error {
	if f.failAdjust {
		return errors.New("connection reset")
	}
	if delta < 0 && f.tokens[discordID] < -delta {
		return repositories.ErrInsufficientTokens
	}
	f.tokens[discordID] += delta
	return nil
}

func (f *fakeUsers) SetLastSummon(_ context.Context, _ string, _ time.Time) error { return nil }

type fakeHeroes struct {
	heroes       map[int64]*models.Hero
	failUpdateHP bool
}

func newFakeHeroes(heroes ...*models.Hero) *fakeHeroes {
	m := make(map[int64]*models.Hero, len(heroes))
	for _, h := range heroes {
		m[h.ID] = h
	}
	return &fakeHeroes{heroes: m}
}

func (f *fakeHeroes) GetByID(_ context.Context, id int64) (*models.Hero, error) {
	h, ok := f.heroes[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "hero", ID: id}
	}
	return h, nil
}

func (f *fakeHeroes) GetByIDs(_ context.Context, ids []int64) ([]*models.Hero, error) {
	var out []*models.Hero
	for _, id := range ids {
		if h, ok := f.heroes[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHeroes) GetAllByUserID(_ context.Context, userID string) ([]*models.Hero, error) {
	var out []*models.Hero
	for _, h := range f.heroes {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeHeroes) Create(_ context.Context, h *models.Hero) error {
	f.heroes[h.ID] = h
	return nil
}

func (f *fakeHeroes) UpdateHP(_ context.Context, id int64, hp int) error {
	if f.failUpdateHP {
		return errors.New("connection reset")
	}
	h, ok := f.heroes[id]
	if !ok {
		return &repositories.NotFoundError{Entity: "hero", ID: id}
	}
	h.CurrentHP = hp
	return nil
}

func (f *fakeHeroes) UpdateGear(_ context.Context, id int64, gear [3]int64) error {
	if h, ok := f.heroes[id]; ok {
		h.Gear = gear
	}
	return nil
}

func (f *fakeHeroes) Delete(_ context.Context, id int64) error {
	delete(f.heroes, id)
	return nil
}

type fakeGear struct {
	gear map[int64]*models.Gear
}

func newFakeGear(gear ...*models.Gear) *fakeGear {
	m := make(map[int64]*models.Gear, len(gear))
	for _, g := range gear {
		m[g.ID] = g
	}
	return &fakeGear{gear: m}
}

func (f *fakeGear) GetByID(_ context.Context, id int64) (*models.Gear, error) {
	g, ok := f.gear[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "gear", ID: id}
	}
	return g, nil
}

func (f *fakeGear) GetByIDs(_ context.Context, ids []int64) ([]*models.Gear, error) {
	var out []*models.Gear
	for _, id := range ids {
		if g, ok := f.gear[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGear) GetAllByUserID(_ context.Context, userID string) ([]*models.Gear, error) {
	var out []*models.Gear
	for _, g := range f.gear {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGear) Create(_ context.Context, g *models.Gear) error {
	f.gear[g.ID] = g
	return nil
}

func (f *fakeGear) UpdateEnhancement(_ context.Context, id int64, level int) error {
	if g, ok := f.gear[id]; ok {
		g.Enhancement = level
	}
	return nil
}

func (f *fakeGear) Delete(_ context.Context, id int64) error {
	delete(f.gear, id)
	return nil
}

type fakeExpeditions struct {
	exps       map[int64]*models.Expedition
	nextID     int64
	failCreate bool
}

func newFakeExpeditions() *fakeExpeditions {
	return &fakeExpeditions{exps: make(map[int64]*models.Expedition), nextID: 1}
}

func (f *fakeExpeditions) GetByID(_ context.Context, id int64) (*models.Expedition, error) {
	e, ok := f.exps[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "expedition", ID: id}
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExpeditions) GetActiveByUserID(_ context.Context, userID string) ([]*models.Expedition, error) {
	var out []*models.Expedition
	for _, e := range f.exps {
		if e.UserID == userID && e.Status == models.ExpeditionStatusActive {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeExpeditions) GetDueBefore(_ context.Context, t time.Time) ([]*models.Expedition, error) {
	var out []*models.Expedition
	for _, e := range f.exps {
		if e.Status == models.ExpeditionStatusActive && !e.EndsAt.After(t) {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeExpeditions) Create(_ context.Context, exp *models.Expedition) error {
	if f.failCreate {
		return errors.New("connection reset")
	}
	exp.ID = f.nextID
	f.nextID++
	cp := *exp
	f.exps[exp.ID] = &cp
	return nil
}

func (f *fakeExpeditions) Delete(_ context.Context, id int64) error {
	delete(f.exps, id)
	return nil
}

func (f *fakeExpeditions) SetEndsAt(_ context.Context, id int64, at time.Time) error {
	e, ok := f.exps[id]
	if !ok || e.Status != models.ExpeditionStatusActive {
		return &repositories.NotFoundError{Entity: "expedition", ID: id}
	}
	e.EndsAt = at
	return nil
}

func (f *fakeExpeditions) MarkCollected(_ context.Context, id int64) (bool, error) {
	e, ok := f.exps[id]
	if !ok || e.Status != models.ExpeditionStatusActive {
		return false, nil
	}
	e.Status = models.ExpeditionStatusCollected
	return true, nil
}

func (f *fakeExpeditions) Reactivate(_ context.Context, id int64) error {
	e, ok := f.exps[id]
	if !ok {
		return &repositories.NotFoundError{Entity: "expedition", ID: id}
	}
	e.Status = models.ExpeditionStatusActive
	return nil
}

type fakeParties struct {
	presets []*models.PartyPreset
}

func newFakeParties(userID string, heroIDs [3]int64) *fakeParties {
	return &fakeParties{presets: []*models.PartyPreset{
		{UserID: userID, Index: 0, HeroIDs: heroIDs, Active: true},
		{UserID: userID, Index: 1},
		{UserID: userID, Index: 2},
	}}
}

func (f *fakeParties) GetPresets(_ context.Context, userID string) ([]*models.PartyPreset, error) {
	var out []*models.PartyPreset
	for _, p := range f.presets {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeParties) GetActivePreset(_ context.Context, userID string) (*models.PartyPreset, error) {
	for _, p := range f.presets {
		if p.UserID == userID && p.Active {
			return p, nil
		}
	}
	return f.presets[0], nil
}

func (f *fakeParties) UpdateHeroIDs(_ context.Context, userID string, index int, heroIDs [3]int64) error {
	for _, p := range f.presets {
		if p.UserID == userID && p.Index == index {
			p.HeroIDs = heroIDs
			return nil
		}
	}
	return &repositories.NotFoundError{Entity: "party_preset", ID: index}
}

func (f *fakeParties) SetActive(_ context.Context, userID string, index int) error {
	for _, p := range f.presets {
		if p.UserID == userID {
			p.Active = p.Index == index
		}
	}
	return nil
}

func (f *fakeParties) ScrubHero(_ context.Context, userID string, heroID int64) error {
	for _, p := range f.presets {
		if p.UserID != userID {
			continue
		}
		for i, id := range p.HeroIDs {
			if id == heroID {
				p.HeroIDs[i] = 0
			}
		}
	}
	return nil
}

type fakeFallen struct {
	records []*models.FallenHero
}

func (f *fakeFallen) Insert(_ context.Context, record *models.FallenHero) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeFallen) GetAllByUserID(_ context.Context, userID string) ([]*models.FallenHero, error) {
	var out []*models.FallenHero
	for _, r := range f.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type fakeTiers struct {
	tiers map[string]*models.ExpeditionTier
}

func newFakeTiers(tiers ...*models.ExpeditionTier) *fakeTiers {
	m := make(map[string]*models.ExpeditionTier, len(tiers))
	for _, t := range tiers {
		m[t.Rank] = t
	}
	return &fakeTiers{tiers: m}
}

func (f *fakeTiers) GetByRank(_ context.Context, rank string) (*models.ExpeditionTier, error) {
	t, ok := f.tiers[rank]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "expedition_tier", ID: rank}
	}
	return t, nil
}

func (f *fakeTiers) GetAll(_ context.Context) ([]*models.ExpeditionTier, error) {
	var out []*models.ExpeditionTier
	for _, t := range f.tiers {
		out = append(out, t)
	}
	return out, nil
}

type fakeStats struct {
	dispatches  int
	collections int
	heroesLost  int
	wipes       int
}

func (f *fakeStats) GetByDiscordID(_ context.Context, discordID string) (*models.UserStats, error) {
	return &models.UserStats{DiscordID: discordID}, nil
}

func (f *fakeStats) RecordDispatch(_ context.Context, _ string, _ int64) error {
	f.dispatches++
	return nil
}

func (f *fakeStats) RecordCollection(_ context.Context, _ string, _ int64, heroesLost int, wiped bool) error {
	f.collections++
	f.heroesLost += heroesLost
	if wiped {
		f.wipes++
	}
	return nil
}

func (f *fakeStats) RecordSummon(_ context.Context, _ string) error    { return nil }
func (f *fakeStats) RecordGearMerge(_ context.Context, _ string) error { return nil }
func (f *fakeStats) RecordRecovery(_ context.Context, _ string) error  { return nil }

// Test fixture helpers.

const testUser = "user-1"

var fixedNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testTierC() *models.ExpeditionTier {
	return &models.ExpeditionTier{
		Rank:                models.RankC,
		BaseDurationSeconds: 900,
		MinReward:           10,
		MaxReward:           20,
		MinDamage:           0,
		MaxDamage:           5,
		DeathChance:         0,
		TokenCost:           0,
	}
}

func testTierR() *models.ExpeditionTier {
	return &models.ExpeditionTier{
		Rank:                models.RankR,
		BaseDurationSeconds: 3600,
		MinReward:           60,
		MaxReward:           120,
		MinDamage:           15,
		MaxDamage:           40,
		DeathChance:         0.02,
		TokenCost:           30,
	}
}

func testHero(id int64, hp int) *models.Hero {
	return &models.Hero{
		ID:        id,
		UserID:    testUser,
		Name:      "Hero" + string(rune('A'+id-1)),
		Rarity:    models.RarityCommon,
		CurrentHP: hp,
		MaxHP:     50,
	}
}

type fixture struct {
	users   *fakeUsers
	heroes  *fakeHeroes
	gear    *fakeGear
	exps    *fakeExpeditions
	parties *fakeParties
	fallen  *fakeFallen
	tiers   *fakeTiers
	stats   *fakeStats
	clock   *time.Time
	manager *Manager
}

func newFixture(rng game.RNG, heroes ...*models.Hero) *fixture {
	f := &fixture{
		users:   newFakeUsers(),
		heroes:  newFakeHeroes(heroes...),
		gear:    newFakeGear(),
		exps:    newFakeExpeditions(),
		fallen:  &fakeFallen{},
		tiers:   newFakeTiers(testTierC(), testTierR()),
		stats:   &fakeStats{},
	}
	now := fixedNow
	f.clock = &now

	var ids [3]int64
	for i, h := range heroes {
		if i < 3 {
			ids[i] = h.ID
		}
	}
	f.parties = newFakeParties(testUser, ids)
	f.users.tokens[testUser] = 1000

	f.manager = NewManager(ManagerConfig{
		Users:      f.users,
		Heroes:     f.heroes,
		Gear:       f.gear,
		Exps:       f.exps,
		Parties:    f.parties,
		Fallen:     f.fallen,
		Tiers:      f.tiers,
		Stats:      f.stats,
		Rng:        rng,
		Now:        func() time.Time { return *f.clock },
		DebugTools: true,
	})
	return f
}

func (f *fixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func fullParty() []*models.Hero {
	return []*models.Hero{testHero(1, 50), testHero(2, 50), testHero(3, 50)}
}

func TestDispatchUnknownTier(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	_, err := f.manager.Dispatch(context.Background(), testUser, "X")
	if !IsValidation(err, CategoryUnknownTier) {
		t.Fatalf("expected unknown_tier validation error, got %v", err)
	}
}

func TestDispatchPartyBusy(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("first dispatch failed: %v", err)
	}
	_, err := f.manager.Dispatch(context.Background(), testUser, models.RankC)
	if !IsValidation(err, CategoryPartyBusy) {
		t.Fatalf("expected party_busy validation error, got %v", err)
	}
}

func TestDispatchPartyIncomplete(t *testing.T) {
	f := newFixture(midRNG{}, testHero(1, 50), testHero(2, 50))

	_, err := f.manager.Dispatch(context.Background(), testUser, models.RankC)
	if !IsValidation(err, CategoryPartyIncomplete) {
		t.Fatalf("expected party_incomplete validation error, got %v", err)
	}
}

func TestDispatchDeadHero(t *testing.T) {
	party := fullParty()
	party[1].CurrentHP = 0
	f := newFixture(midRNG{}, party...)

	_, err := f.manager.Dispatch(context.Background(), testUser, models.RankC)
	if !IsValidation(err, CategoryDeadHero) {
		t.Fatalf("expected dead_hero validation error, got %v", err)
	}
}

func TestDispatchInsufficientTokens(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)
	f.users.tokens[testUser] = 5

	_, err := f.manager.Dispatch(context.Background(), testUser, models.RankR)
	if !IsValidation(err, CategoryInsufficientFunds) {
		t.Fatalf("expected insufficient_funds validation error, got %v", err)
	}
	if len(f.exps.exps) != 0 {
		t.Fatalf("no expedition should exist after rejected dispatch")
	}
}

func TestDispatchPreconditionOrder(t *testing.T) {
	// A broke user with an incomplete party asking for a bogus rank should
	// hear about the rank first.
	f := newFixture(midRNG{}, testHero(1, 50))
	f.users.tokens[testUser] = 0

	_, err := f.manager.Dispatch(context.Background(), testUser, "Z")
	if !IsValidation(err, CategoryUnknownTier) {
		t.Fatalf("expected unknown_tier to win precondition order, got %v", err)
	}
}

func TestDispatchSuccess(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	res, err := f.manager.Dispatch(context.Background(), testUser, models.RankR)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if res.TokenCost != 30 {
		t.Errorf("token cost = %d, want 30", res.TokenCost)
	}
	if got := f.users.tokens[testUser]; got != 970 {
		t.Errorf("balance after dispatch = %d, want 970", got)
	}
	if res.DurationSeconds != 3600 {
		t.Errorf("duration = %d, want 3600 (no speed bonus)", res.DurationSeconds)
	}

	exp := res.Expedition
	if !exp.Snapshot.Computed {
		t.Fatal("snapshot must be computed at dispatch")
	}
	if exp.Snapshot.BaseReward != 90 {
		t.Errorf("base reward = %d, want midpoint 90", exp.Snapshot.BaseReward)
	}
	if len(exp.PartySnapshot) != 3 {
		t.Errorf("party snapshot holds %d heroes, want 3", len(exp.PartySnapshot))
	}
	wantEnd := fixedNow.Add(3600 * time.Second)
	if !exp.EndsAt.Equal(wantEnd) {
		t.Errorf("ends_at = %v, want %v", exp.EndsAt, wantEnd)
	}
	if f.stats.dispatches != 1 {
		t.Errorf("dispatch stat = %d, want 1", f.stats.dispatches)
	}
}

func TestDispatchRollbackOnDebitFailure(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)
	f.users.failAdjust = true

	_, err := f.manager.Dispatch(context.Background(), testUser, models.RankR)
	var pe *PersistenceError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if len(f.exps.exps) != 0 {
		t.Fatal("expedition must be rolled back when the debit fails")
	}
}

func TestCollectNothingDue(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	if _, err := f.manager.Collect(context.Background(), testUser); !errors.Is(err, ErrNothingToCollect) {
		t.Fatalf("expected ErrNothingToCollect with no expeditions, got %v", err)
	}

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	// Timer has not elapsed yet.
	if _, err := f.manager.Collect(context.Background(), testUser); !errors.Is(err, ErrNothingToCollect) {
		t.Fatalf("expected ErrNothingToCollect before ends_at, got %v", err)
	}
}

func TestCollectAppliesDamageAndReward(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	f.advance(time.Hour)

	res, err := f.manager.Collect(context.Background(), testUser)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(res.Outcomes) != 1 {
		t.Fatalf("collected %d expeditions, want 1", len(res.Outcomes))
	}

	// Midpoint of [10,20] is 15; midpoint damage of [0,5] is 2 per hero.
	out := res.Outcomes[0]
	if out.BaseReward != 15 {
		t.Errorf("base reward = %d, want 15", out.BaseReward)
	}
	if res.TotalReward != 15 {
		t.Errorf("total reward = %d, want 15", res.TotalReward)
	}
	if got := f.users.tokens[testUser]; got != 1015 {
		t.Errorf("balance after collect = %d, want 1015", got)
	}
	for _, h := range []int64{1, 2, 3} {
		if hp := f.heroes.heroes[h].CurrentHP; hp != 47 {
			t.Errorf("hero %d HP = %d, want 47", h, hp)
		}
	}
	if f.stats.collections != 1 {
		t.Errorf("collection stat = %d, want 1", f.stats.collections)
	}
}

func TestCollectIdempotent(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	f.advance(time.Hour)

	if _, err := f.manager.Collect(context.Background(), testUser); err != nil {
		t.Fatalf("first collect failed: %v", err)
	}
	balance := f.users.tokens[testUser]

	if _, err := f.manager.Collect(context.Background(), testUser); !errors.Is(err, ErrNothingToCollect) {
		t.Fatalf("second collect should find nothing, got %v", err)
	}
	if f.users.tokens[testUser] != balance {
		t.Fatal("second collect must not credit tokens again")
	}
}

func TestCollectWipeForfeitsReward(t *testing.T) {
	f := newFixture(doomRNG{}, fullParty()...)

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankR); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	f.advance(2 * time.Hour)

	res, err := f.manager.Collect(context.Background(), testUser)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	out := res.Outcomes[0]
	if !out.Wiped {
		t.Fatal("all-death expedition must be a wipe")
	}
	if out.Reward != 0 || res.TotalReward != 0 {
		t.Errorf("wipe reward = %d, want 0", out.Reward)
	}
	// 1000 - 30 dispatch cost, nothing back.
	if got := f.users.tokens[testUser]; got != 970 {
		t.Errorf("balance = %d, want 970", got)
	}
	if len(f.heroes.heroes) != 0 {
		t.Errorf("%d heroes survive a wipe, want 0", len(f.heroes.heroes))
	}
	if len(f.fallen.records) != 3 {
		t.Errorf("%d fallen records, want 3", len(f.fallen.records))
	}
	if f.stats.wipes != 1 {
		t.Errorf("wipe stat = %d, want 1", f.stats.wipes)
	}
}

func TestCollectDeathScrubsPresets(t *testing.T) {
	f := newFixture(doomRNG{}, fullParty()...)
	// Hero 1 also sits in preset 1.
	f.parties.presets[1].HeroIDs = [3]int64{1, 0, 0}

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankR); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	f.advance(2 * time.Hour)

	if _, err := f.manager.Collect(context.Background(), testUser); err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	for _, p := range f.parties.presets {
		for i, id := range p.HeroIDs {
			if id != 0 {
				t.Errorf("preset %d slot %d still references hero %d after death", p.Index, i, id)
			}
		}
	}
	for _, r := range f.fallen.records {
		if r.Cause != models.FallCauseInstant {
			t.Errorf("fall cause = %q, want instant", r.Cause)
		}
	}
}

func TestCollectReplaysMissingSnapshot(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	// Simulate a legacy row that was persisted without a resolved snapshot.
	f.exps.exps[1].Snapshot = models.ResultSnapshot{}
	f.advance(time.Hour)

	res, err := f.manager.Collect(context.Background(), testUser)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if res.Outcomes[0].BaseReward != 15 {
		t.Errorf("replayed base reward = %d, want 15", res.Outcomes[0].BaseReward)
	}
}

func TestCollectMissingProvenanceIsLoud(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	f.exps.exps[1].Snapshot = models.ResultSnapshot{}
	f.exps.exps[1].PartySnapshot = nil
	f.advance(time.Hour)

	res, err := f.manager.Collect(context.Background(), testUser)
	if err != nil {
		t.Fatalf("collect should report per-instance failures, got %v", err)
	}
	var die *DataIntegrityError
	if !errors.As(res.Failed[1], &die) {
		t.Fatalf("expected DataIntegrityError for expedition 1, got %v", res.Failed[1])
	}
	if f.exps.exps[1].Status != models.ExpeditionStatusActive {
		t.Fatal("corrupt expedition must stay active, never silently consumed")
	}
	if f.users.tokens[testUser] != 1000 {
		t.Fatal("no reward may be credited for a corrupt expedition")
	}
}

func TestCollectContinuesPastFailingInstance(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	f.advance(time.Hour)

	// Second party, second expedition.
	second := []*models.Hero{testHero(4, 50), testHero(5, 50), testHero(6, 50)}
	for _, h := range second {
		f.heroes.heroes[h.ID] = h
	}
	f.parties.presets[1].HeroIDs = [3]int64{4, 5, 6}
	f.parties.presets[0].Active = false
	f.parties.presets[1].Active = true
	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("second dispatch failed: %v", err)
	}

	// Corrupt the first, leave the second intact.
	f.exps.exps[1].Snapshot = models.ResultSnapshot{}
	f.exps.exps[1].PartySnapshot = nil
	f.advance(time.Hour)

	res, err := f.manager.Collect(context.Background(), testUser)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(res.Outcomes) != 1 {
		t.Fatalf("collected %d outcomes, want 1 (the healthy one)", len(res.Outcomes))
	}
	if res.Outcomes[0].ExpeditionID != 2 {
		t.Errorf("collected expedition %d, want 2", res.Outcomes[0].ExpeditionID)
	}
	if _, failed := res.Failed[1]; !failed {
		t.Error("corrupt expedition 1 must be reported as failed")
	}
}

func TestCollectSettleFailureReactivates(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	if _, err := f.manager.Dispatch(context.Background(), testUser, models.RankC); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	f.advance(time.Hour)
	f.heroes.failUpdateHP = true

	res, err := f.manager.Collect(context.Background(), testUser)
	if err != nil {
		t.Fatalf("collect should report per-instance failures, got %v", err)
	}
	var pe *PersistenceError
	if !errors.As(res.Failed[1], &pe) {
		t.Fatalf("expected PersistenceError, got %v", res.Failed[1])
	}
	if f.exps.exps[1].Status != models.ExpeditionStatusActive {
		t.Fatal("expedition must be reactivated so a retry can reprocess it")
	}

	// Retry succeeds once the storage recovers.
	f.heroes.failUpdateHP = false
	res, err = f.manager.Collect(context.Background(), testUser)
	if err != nil {
		t.Fatalf("retry collect failed: %v", err)
	}
	if len(res.Outcomes) != 1 {
		t.Fatalf("retry collected %d outcomes, want 1", len(res.Outcomes))
	}
}

func TestForceCompleteGated(t *testing.T) {
	f := newFixture(midRNG{}, fullParty()...)

	res, err := f.manager.Dispatch(context.Background(), testUser, models.RankC)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	if err := f.manager.ForceComplete(context.Background(), testUser, res.Expedition.ID); err != nil {
		t.Fatalf("force complete failed with debug tools on: %v", err)
	}
	if _, err := f.manager.Collect(context.Background(), testUser); err != nil {
		t.Fatalf("collect after force complete failed: %v", err)
	}

	f.manager.debugTools = false
	if err := f.manager.ForceComplete(context.Background(), testUser, res.Expedition.ID); !errors.Is(err, ErrDebugDisabled) {
		t.Fatalf("expected ErrDebugDisabled, got %v", err)
	}
}

func TestLockManagerSerializesDispatch(t *testing.T) {
	lm := NewLockManager()

	if !lm.Acquire(testUser) {
		t.Fatal("first acquire must succeed")
	}
	if lm.Acquire(testUser) {
		t.Fatal("second acquire must fail while held")
	}
	lm.Release(testUser)
	if !lm.Acquire(testUser) {
		t.Fatal("acquire after release must succeed")
	}
}
