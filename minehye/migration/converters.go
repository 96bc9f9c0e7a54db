package migration

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/game"
)

// Description parsers for the oldest hero records, which carry trait data only
// as free text like "Digs up 15% more tokens while above 50% HP".
var (
	rewardRe    = regexp.MustCompile(`(?i)(\d+)%\s*(?:more\s+|extra\s+|bonus\s+)?(?:tokens?|reward|yield|ore)`)
	speedRe     = regexp.MustCompile(`(?i)(\d+)%\s*(?:faster|quicker|speed)`)
	reductionRe = regexp.MustCompile(`(?i)(\d+)%\s*(?:less\s+damage|damage\s+reduction|reduced\s+damage)`)
	highHPRe    = regexp.MustCompile(`(?i)(?:above|over|at\s+least)\s+(\d+)%?\s*hp`)
	lowHPRe     = regexp.MustCompile(`(?i)(?:below|under|at\s+most)\s+(\d+)%?\s*hp`)
	teamScopeRe = regexp.MustCompile(`(?i)\b(?:party|team|allies|whole)\b`)
)

func (m *Migrator) convertAccount(ma MongoAccount) *models.User {
	now := time.Now()
	joined := ma.Joined
	if joined.IsZero() {
		joined = now
	}
	return &models.User{
		DiscordID: ma.DiscordID,
		Username:  cleanseString(ma.Username),
		Tokens:    int64(ma.Tokens),
		CreatedAt: joined,
		UpdatedAt: now,
	}
}

// convertHero builds a hero row with fully structured trait data. A hero whose
// trait cannot be resolved is an error: silently migrating it as a blank trait
// would strip the ability forever.
func (m *Migrator) convertHero(mh MongoHero) (*models.Hero, error) {
	trait, err := convertTrait(mh)
	if err != nil {
		return nil, fmt.Errorf("hero %q (user %s): %w", mh.Name, mh.UserID, err)
	}

	rarity := int(mh.Rarity)
	if rarity < models.RarityCommon || rarity > models.RarityLegendary {
		rarity = models.RarityCommon
	}

	maxHP := int(mh.MaxHP)
	if maxHP <= 0 {
		maxHP = models.MaxHPForRarity(rarity)
	}
	hp := int(mh.HP)
	if hp < 0 {
		hp = 0
	}
	if hp > maxHP {
		hp = maxHP
	}

	now := time.Now()
	obtained := mh.Obtained
	if obtained.IsZero() {
		obtained = now
	}

	return &models.Hero{
		UserID:    mh.UserID,
		Name:      cleanseString(mh.Name),
		Rarity:    rarity,
		Species:   cleanseString(mh.Species),
		CurrentHP: hp,
		MaxHP:     maxHP,
		Trait:     trait,
		CreatedAt: obtained,
		UpdatedAt: now,
	}, nil
}

// convertTrait resolves a legacy trait into structured form. Newer records
// carry a packed code and explicit percent fields; older ones only a
// description, which gets the regex treatment. A trait with no resolvable
// effect at all is an error, never a zero.
func convertTrait(mh MongoHero) (models.Trait, error) {
	trait := models.Trait{
		Name:         cleanseString(mh.TraitName),
		RewardPct:    int(mh.RewardPct),
		SpeedPct:     int(mh.SpeedPct),
		ReductionPct: int(mh.ReductionPct),
	}
	if mh.TeamScope {
		trait.ReductionScope = models.ScopeTeam
	}

	if mh.TraitCode != nil {
		rule, err := game.DecodePackedRule(int(*mh.TraitCode))
		if err != nil {
			return models.Trait{}, err
		}
		trait.Rule = rule
	} else {
		trait.Rule = ruleFromDescription(mh.TraitDesc)
	}

	// Oldest records have zero percent fields; the description is all we have.
	if trait.RewardPct == 0 && trait.SpeedPct == 0 && trait.ReductionPct == 0 {
		desc := mh.TraitDesc
		if p := firstPercent(rewardRe, desc); p > 0 {
			trait.RewardPct = p
		}
		if p := firstPercent(speedRe, desc); p > 0 {
			trait.SpeedPct = p
		}
		if p := firstPercent(reductionRe, desc); p > 0 {
			trait.ReductionPct = p
			if teamScopeRe.MatchString(desc) {
				trait.ReductionScope = models.ScopeTeam
			}
		}
	}

	if trait.ReductionPct > 0 && trait.ReductionScope == "" {
		trait.ReductionScope = models.ScopeSelf
	}

	if trait.RewardPct == 0 && trait.SpeedPct == 0 && trait.ReductionPct == 0 {
		return models.Trait{}, fmt.Errorf("trait %q unresolvable from code or description %q", mh.TraitName, mh.TraitDesc)
	}
	return trait, nil
}

// ruleFromDescription extracts an activation condition from free text.
// Anything without a recognizable HP clause is an unconditional trait.
func ruleFromDescription(desc string) models.TraitRule {
	if m := highHPRe.FindStringSubmatch(desc); m != nil {
		if t, err := strconv.Atoi(m[1]); err == nil {
			return models.TraitRule{Kind: models.RuleHighHP, Threshold: t}
		}
	}
	if m := lowHPRe.FindStringSubmatch(desc); m != nil {
		if t, err := strconv.Atoi(m[1]); err == nil {
			return models.TraitRule{Kind: models.RuleLowHP, Threshold: t}
		}
	}
	return models.TraitRule{Kind: models.RuleAlways}
}

func firstPercent(re *regexp.Regexp, desc string) int {
	m := re.FindStringSubmatch(desc)
	if m == nil {
		return 0
	}
	p, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return p
}

func (m *Migrator) convertGear(mg MongoGear) *models.Gear {
	slot := strings.ToLower(strings.TrimSpace(mg.Slot))
	if models.SlotIndex(slot) < 0 {
		slot = models.GearSlotTool
	}

	rarity := int(mg.Rarity)
	if rarity < 1 {
		rarity = 1
	}

	now := time.Now()
	obtained := mg.Obtained
	if obtained.IsZero() {
		obtained = now
	}

	return &models.Gear{
		UserID:      mg.UserID,
		Name:        cleanseString(mg.Name),
		Slot:        slot,
		Rarity:      rarity,
		Bonus:       int(mg.Bonus),
		Enhancement: int(mg.Enhancement),
		CreatedAt:   obtained,
		UpdatedAt:   now,
	}
}

// cleanseString strips control characters and stray null bytes the legacy
// database accumulated over the years.
func cleanseString(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 || r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
