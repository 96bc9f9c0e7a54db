package game

import (
	"fmt"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

// RuleActive reports whether a trait activation rule applies at the given HP.
// Pure; callers must pass the HP the rule should be judged against (pre-quest
// HP during resolution, live HP everywhere else).
func RuleActive(rule models.TraitRule, currentHP int) bool {
	switch rule.Kind {
	case models.RuleHighHP:
		return currentHP >= rule.Threshold
	case models.RuleLowHP:
		return currentHP <= rule.Threshold
	default:
		// RuleAlways, and anything the migrator let through.
		return true
	}
}

// TraitActive reports whether a hero's trait is currently active.
func TraitActive(h *models.Hero) bool {
	return RuleActive(h.Trait.Rule, h.CurrentHP)
}

// DecodePackedRule decodes the legacy three-digit trait code into a structured
// rule. The hundreds digit selects the condition (0 always, 1 high-HP,
// 2 low-HP) and the remaining digits carry the threshold, rounded down to the
// nearest 10 as the old client did. Only the migrator calls this; live data is
// stored decoded.
func DecodePackedRule(code int) (models.TraitRule, error) {
	if code < 0 || code > 299 {
		return models.TraitRule{}, fmt.Errorf("packed trait code %d out of range", code)
	}
	threshold := code % 100 / 10 * 10
	switch code / 100 {
	case 0:
		return models.TraitRule{Kind: models.RuleAlways}, nil
	case 1:
		return models.TraitRule{Kind: models.RuleHighHP, Threshold: threshold}, nil
	case 2:
		return models.TraitRule{Kind: models.RuleLowHP, Threshold: threshold}, nil
	}
	return models.TraitRule{}, fmt.Errorf("packed trait code %d has unknown condition", code)
}
