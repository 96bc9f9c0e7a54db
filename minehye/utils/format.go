package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/ellavondegurechaff/minehye/minehye/database/models"
)

// FormatDuration renders a second count as "1h 23m" / "4m 30s" for embeds.
func FormatDuration(seconds int) string {
	d := time.Duration(seconds) * time.Second
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh %dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	case m > 0 && s > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	case m > 0:
		return fmt.Sprintf("%dm", m)
	default:
		return fmt.Sprintf("%ds", s)
	}
}

// FormatRelative renders the time remaining until t, or "ready" once passed.
func FormatRelative(t, now time.Time) string {
	if !now.Before(t) {
		return "ready"
	}
	return FormatDuration(int(t.Sub(now).Seconds()))
}

// HPBar renders a fixed-width HP gauge.
func HPBar(current, max int) string {
	const barLength = 10

	if max <= 0 {
		max = 1
	}
	filled := current * barLength / max
	if filled > barLength {
		filled = barLength
	}
	if filled < 0 {
		filled = 0
	}

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < barLength; i++ {
		if i < filled {
			bar.WriteString("■")
		} else {
			bar.WriteString("□")
		}
	}
	bar.WriteString(fmt.Sprintf("] %d/%d", current, max))
	return bar.String()
}

// RarityStars renders a hero's rarity as a star row.
func RarityStars(rarity int) string {
	if rarity < models.RarityCommon || rarity > models.RarityLegendary {
		rarity = models.RarityCommon
	}
	return strings.Repeat("⭐", rarity)
}

// RarityName returns the display name for a rarity tier.
func RarityName(rarity int) string {
	switch rarity {
	case models.RarityUncommon:
		return "Uncommon"
	case models.RarityRare:
		return "Rare"
	case models.RarityEpic:
		return "Epic"
	case models.RarityLegendary:
		return "Legendary"
	default:
		return "Common"
	}
}

// TraitSummary renders a trait's effect and condition in one line.
func TraitSummary(t models.Trait) string {
	var parts []string
	if t.RewardPct > 0 {
		parts = append(parts, fmt.Sprintf("+%d%% reward", t.RewardPct))
	}
	if t.SpeedPct > 0 {
		parts = append(parts, fmt.Sprintf("+%d%% speed", t.SpeedPct))
	}
	if t.ReductionPct > 0 {
		scope := ""
		if t.ReductionScope == models.ScopeTeam {
			scope = " (party)"
		}
		parts = append(parts, fmt.Sprintf("-%d%% damage%s", t.ReductionPct, scope))
	}
	if len(parts) == 0 {
		return t.Name
	}

	effect := strings.Join(parts, ", ")
	switch t.Rule.Kind {
	case models.RuleHighHP:
		return fmt.Sprintf("%s: %s above %d%% HP", t.Name, effect, t.Rule.Threshold)
	case models.RuleLowHP:
		return fmt.Sprintf("%s: %s below %d%% HP", t.Name, effect, t.Rule.Threshold)
	default:
		return fmt.Sprintf("%s: %s", t.Name, effect)
	}
}
