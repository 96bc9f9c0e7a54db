package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
)

const testUser = "user-1"

type memHeroes struct {
	heroes map[int64]*models.Hero
}

func (f *memHeroes) GetByID(_ context.Context, id int64) (*models.Hero, error) {
	h, ok := f.heroes[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "hero", ID: id}
	}
	return h, nil
}

func (f *memHeroes) GetByIDs(_ context.Context, ids []int64) ([]*models.Hero, error) {
	var out []*models.Hero
	for _, id := range ids {
		if h, ok := f.heroes[id]; ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *memHeroes) GetAllByUserID(_ context.Context, userID string) ([]*models.Hero, error) {
	var out []*models.Hero
	for _, h := range f.heroes {
		if h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *memHeroes) Create(_ context.Context, h *models.Hero) error {
	if h.ID == 0 {
		h.ID = int64(len(f.heroes) + 1)
	}
	f.heroes[h.ID] = h
	return nil
}

func (f *memHeroes) UpdateHP(_ context.Context, id int64, hp int) error {
	f.heroes[id].CurrentHP = hp
	return nil
}

func (f *memHeroes) UpdateGear(_ context.Context, id int64, gear [3]int64) error {
	f.heroes[id].Gear = gear
	return nil
}

func (f *memHeroes) Delete(_ context.Context, id int64) error {
	delete(f.heroes, id)
	return nil
}

type memGear struct {
	gear map[int64]*models.Gear
}

func (f *memGear) GetByID(_ context.Context, id int64) (*models.Gear, error) {
	g, ok := f.gear[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "gear", ID: id}
	}
	return g, nil
}

func (f *memGear) GetByIDs(_ context.Context, ids []int64) ([]*models.Gear, error) {
	var out []*models.Gear
	for _, id := range ids {
		if g, ok := f.gear[id]; ok {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *memGear) GetAllByUserID(_ context.Context, userID string) ([]*models.Gear, error) {
	var out []*models.Gear
	for _, g := range f.gear {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *memGear) Create(_ context.Context, g *models.Gear) error {
	f.gear[g.ID] = g
	return nil
}

func (f *memGear) UpdateEnhancement(_ context.Context, id int64, level int) error {
	f.gear[id].Enhancement = level
	return nil
}

func (f *memGear) Delete(_ context.Context, id int64) error {
	delete(f.gear, id)
	return nil
}

type memParties struct {
	presets []*models.PartyPreset
}

func (f *memParties) GetPresets(_ context.Context, userID string) ([]*models.PartyPreset, error) {
	var out []*models.PartyPreset
	for _, p := range f.presets {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *memParties) GetActivePreset(_ context.Context, userID string) (*models.PartyPreset, error) {
	for _, p := range f.presets {
		if p.UserID == userID && p.Active {
			return p, nil
		}
	}
	return f.presets[0], nil
}

func (f *memParties) UpdateHeroIDs(_ context.Context, userID string, index int, heroIDs [3]int64) error {
	for _, p := range f.presets {
		if p.UserID == userID && p.Index == index {
			p.HeroIDs = heroIDs
			return nil
		}
	}
	return &repositories.NotFoundError{Entity: "party_preset", ID: index}
}

func (f *memParties) SetActive(_ context.Context, userID string, index int) error {
	for _, p := range f.presets {
		if p.UserID == userID {
			p.Active = p.Index == index
		}
	}
	return nil
}

func (f *memParties) ScrubHero(_ context.Context, userID string, heroID int64) error {
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

type memExpeditions struct {
	active []*models.Expedition
}

func (f *memExpeditions) GetByID(_ context.Context, id int64) (*models.Expedition, error) {
	for _, e := range f.active {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "expedition", ID: id}
}

func (f *memExpeditions) GetActiveByUserID(_ context.Context, userID string) ([]*models.Expedition, error) {
	var out []*models.Expedition
	for _, e := range f.active {
		if e.UserID == userID && e.Status == models.ExpeditionStatusActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *memExpeditions) GetDueBefore(_ context.Context, _ time.Time) ([]*models.Expedition, error) {
	return nil, nil
}

func (f *memExpeditions) Create(_ context.Context, exp *models.Expedition) error {
	f.active = append(f.active, exp)
	return nil
}

func (f *memExpeditions) Delete(_ context.Context, _ int64) error            { return nil }
func (f *memExpeditions) SetEndsAt(_ context.Context, _ int64, _ time.Time) error { return nil }
func (f *memExpeditions) MarkCollected(_ context.Context, _ int64) (bool, error)  { return false, nil }
func (f *memExpeditions) Reactivate(_ context.Context, _ int64) error             { return nil }

type memItems struct {
	quantities map[string]int
}

func (f *memItems) GetByID(_ context.Context, id string) (*models.Item, error) {
	return &models.Item{ID: id, Type: models.ItemTypeRecovery}, nil
}

func (f *memItems) GetByType(_ context.Context, _ string) ([]*models.Item, error) {
	return nil, nil
}

func (f *memItems) GetUserItems(_ context.Context, _ string) ([]*models.UserItem, error) {
	return nil, nil
}

func (f *memItems) GetUserItem(_ context.Context, _ string, itemID string) (*models.UserItem, error) {
	q, ok := f.quantities[itemID]
	if !ok {
		return nil, nil
	}
	return &models.UserItem{ItemID: itemID, Quantity: q}, nil
}

func (f *memItems) AddUserItem(_ context.Context, _ string, itemID string, quantity int) error {
	f.quantities[itemID] += quantity
	return nil
}

func (f *memItems) RemoveUserItem(_ context.Context, _ string, itemID string, quantity int) error {
	f.quantities[itemID] -= quantity
	if f.quantities[itemID] <= 0 {
		delete(f.quantities, itemID)
	}
	return nil
}

type rosterFixture struct {
	heroes  *memHeroes
	gear    *memGear
	parties *memParties
	exps    *memExpeditions
	items   *memItems
	svc     *RosterService
}

func newRosterFixture() *rosterFixture {
	f := &rosterFixture{
		heroes: &memHeroes{heroes: map[int64]*models.Hero{
			1: {ID: 1, UserID: testUser, Name: "Bram", Rarity: models.RarityCommon, CurrentHP: 50, MaxHP: 50},
			2: {ID: 2, UserID: testUser, Name: "Wren", Rarity: models.RarityCommon, CurrentHP: 20, MaxHP: 50},
			3: {ID: 3, UserID: "someone-else", Name: "Orla", Rarity: models.RarityCommon, CurrentHP: 50, MaxHP: 50},
		}},
		gear: &memGear{gear: map[int64]*models.Gear{
			10: {ID: 10, UserID: testUser, Name: "Iron Pick", Slot: models.GearSlotTool, Rarity: 1, Bonus: 10},
			11: {ID: 11, UserID: testUser, Name: "Iron Pick", Slot: models.GearSlotTool, Rarity: 1, Bonus: 10},
			12: {ID: 12, UserID: testUser, Name: "Leather Cap", Slot: models.GearSlotHeadgear, Rarity: 1, Bonus: 5},
		}},
		parties: &memParties{presets: []*models.PartyPreset{
			{UserID: testUser, Index: 0, Active: true},
			{UserID: testUser, Index: 1},
			{UserID: testUser, Index: 2},
		}},
		exps:  &memExpeditions{},
		items: &memItems{quantities: map[string]int{models.ItemBandage: 2, models.ItemElixir: 1}},
	}
	f.svc = NewRosterService(f.heroes, f.gear, f.parties, f.exps, f.items, nil)
	return f
}

func (f *rosterFixture) sendOnExpedition(heroIDs [3]int64) {
	f.exps.active = append(f.exps.active, &models.Expedition{
		ID:      int64(len(f.exps.active) + 1),
		UserID:  testUser,
		HeroIDs: heroIDs,
		Status:  models.ExpeditionStatusActive,
	})
}

func TestEquipPlacesGearInFixedSlot(t *testing.T) {
	f := newRosterFixture()

	if err := f.svc.Equip(context.Background(), testUser, 1, 10); err != nil {
		t.Fatalf("equip failed: %v", err)
	}
	if got := f.heroes.heroes[1].Gear; got != [3]int64{10, 0, 0} {
		t.Errorf("gear after tool equip = %v, want [10 0 0]", got)
	}

	if err := f.svc.Equip(context.Background(), testUser, 1, 12); err != nil {
		t.Fatalf("equip headgear failed: %v", err)
	}
	if got := f.heroes.heroes[1].Gear; got != [3]int64{10, 12, 0} {
		t.Errorf("gear after headgear equip = %v, want [10 12 0]", got)
	}
}

func TestEquipMovesGearBetweenHeroes(t *testing.T) {
	f := newRosterFixture()

	if err := f.svc.Equip(context.Background(), testUser, 1, 10); err != nil {
		t.Fatalf("equip failed: %v", err)
	}
	if err := f.svc.Equip(context.Background(), testUser, 2, 10); err != nil {
		t.Fatalf("re-equip failed: %v", err)
	}

	if got := f.heroes.heroes[1].Gear; got != [3]int64{} {
		t.Errorf("previous owner still holds gear: %v", got)
	}
	if got := f.heroes.heroes[2].Gear; got != [3]int64{10, 0, 0} {
		t.Errorf("new owner gear = %v, want [10 0 0]", got)
	}
}

func TestEquipRejectsForeignHero(t *testing.T) {
	f := newRosterFixture()

	if err := f.svc.Equip(context.Background(), testUser, 3, 10); !errors.Is(err, ErrNotOwned) {
		t.Fatalf("expected ErrNotOwned, got %v", err)
	}
}

func TestEquipRejectsBusyHero(t *testing.T) {
	f := newRosterFixture()
	f.sendOnExpedition([3]int64{1, 0, 0})

	if err := f.svc.Equip(context.Background(), testUser, 1, 10); !errors.Is(err, ErrHeroBusy) {
		t.Fatalf("expected ErrHeroBusy, got %v", err)
	}
}

func TestAssignToPartyRejectsDeadHero(t *testing.T) {
	f := newRosterFixture()
	f.heroes.heroes[2].CurrentHP = 0

	if err := f.svc.AssignToParty(context.Background(), testUser, 0, 0, 2); !errors.Is(err, ErrHeroDead) {
		t.Fatalf("expected ErrHeroDead, got %v", err)
	}
}

func TestAssignToPartyRejectsDuplicate(t *testing.T) {
	f := newRosterFixture()

	if err := f.svc.AssignToParty(context.Background(), testUser, 0, 0, 1); err != nil {
		t.Fatalf("first assign failed: %v", err)
	}
	if err := f.svc.AssignToParty(context.Background(), testUser, 0, 1, 1); err == nil {
		t.Fatal("expected duplicate assignment to fail")
	}
}

func TestAssignToPartyFreezesBusyPreset(t *testing.T) {
	f := newRosterFixture()
	if err := f.svc.AssignToParty(context.Background(), testUser, 0, 0, 1); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	f.sendOnExpedition([3]int64{1, 0, 0})

	if err := f.svc.AssignToParty(context.Background(), testUser, 0, 1, 2); !errors.Is(err, ErrHeroBusy) {
		t.Fatalf("expected ErrHeroBusy, got %v", err)
	}
}

func TestUseRecoveryItemHealsBounded(t *testing.T) {
	f := newRosterFixture()

	healed, err := f.svc.UseRecoveryItem(context.Background(), testUser, 2, models.ItemBandage)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if healed != 30 {
		t.Errorf("healed %d, want 30", healed)
	}
	if hp := f.heroes.heroes[2].CurrentHP; hp != 50 {
		t.Errorf("HP = %d, want 50", hp)
	}

	// Overheal is clamped at max HP.
	f.heroes.heroes[2].CurrentHP = 45
	healed, err = f.svc.UseRecoveryItem(context.Background(), testUser, 2, models.ItemBandage)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if healed != 5 {
		t.Errorf("healed %d, want clamp to 5", healed)
	}
	if f.items.quantities[models.ItemBandage] != 0 {
		t.Errorf("bandages left = %d, want 0", f.items.quantities[models.ItemBandage])
	}
}

func TestUseRecoveryItemElixirFullHeal(t *testing.T) {
	f := newRosterFixture()
	f.heroes.heroes[2].CurrentHP = 1

	healed, err := f.svc.UseRecoveryItem(context.Background(), testUser, 2, models.ItemElixir)
	if err != nil {
		t.Fatalf("recovery failed: %v", err)
	}
	if healed != 49 {
		t.Errorf("healed %d, want 49", healed)
	}
}

func TestUseRecoveryItemRejectsDeadHero(t *testing.T) {
	f := newRosterFixture()
	f.heroes.heroes[2].CurrentHP = 0

	if _, err := f.svc.UseRecoveryItem(context.Background(), testUser, 2, models.ItemElixir); !errors.Is(err, ErrHeroDead) {
		t.Fatalf("expected ErrHeroDead, got %v", err)
	}
}

func TestUseRecoveryItemRequiresInventory(t *testing.T) {
	f := newRosterFixture()

	if _, err := f.svc.UseRecoveryItem(context.Background(), testUser, 2, models.ItemMedkit); !errors.Is(err, ErrNoSuchItem) {
		t.Fatalf("expected ErrNoSuchItem, got %v", err)
	}
}

func TestMergeGearConsumesFodder(t *testing.T) {
	f := newRosterFixture()

	merged, err := f.svc.MergeGear(context.Background(), testUser, 10, 11)
	if err != nil {
		t.Fatalf("merge failed: %v", err)
	}
	if merged.Enhancement != 1 {
		t.Errorf("enhancement = %d, want 1", merged.Enhancement)
	}
	if _, stillThere := f.gear.gear[11]; stillThere {
		t.Error("fodder gear must be deleted after merge")
	}
}

func TestMergeGearRejectsMismatchedSlots(t *testing.T) {
	f := newRosterFixture()

	if _, err := f.svc.MergeGear(context.Background(), testUser, 10, 12); !errors.Is(err, ErrCannotMerge) {
		t.Fatalf("expected ErrCannotMerge, got %v", err)
	}
}
