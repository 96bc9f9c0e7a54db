package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/minehye/minehye"
	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/expedition"
	"github.com/ellavondegurechaff/minehye/minehye/game"
	"github.com/ellavondegurechaff/minehye/minehye/utils"
)

var Expedition = discord.SlashCommandCreate{
	Name:        "expedition",
	Description: "⛏️ Send your party into the mines",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "depart",
			Description: "Dispatch your active party on an expedition",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "rank",
					Description: "Expedition rank",
					Required:    true,
					Choices:     rankChoices,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "collect",
			Description: "Collect every finished expedition",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "status",
			Description: "Show your expeditions in progress",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "predict",
			Description: "Project reward, damage and risk before departing",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "rank",
					Description: "Expedition rank",
					Required:    true,
					Choices:     rankChoices,
				},
			},
		},
	},
}

func ExpeditionDepartHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.GetOrCreate(ctx, userID, e.User().Username); err != nil {
			return errorEmbed(e, "Failed to load your account. Please try again later.")
		}

		rank := e.SlashCommandInteractionData().String("rank")
		result, err := b.ExpeditionManager.Dispatch(ctx, userID, rank)
		if err != nil {
			var verr *expedition.ValidationError
			if errors.As(err, &verr) {
				return errorEmbed(e, verr.Message)
			}
			return errorEmbed(e, "Failed to dispatch the expedition. Please try again later.")
		}

		var party strings.Builder
		for _, h := range result.Party {
			party.WriteString(fmt.Sprintf("%s %s — %s\n", utils.RarityStars(h.Rarity), h.Name, utils.HPBar(h.CurrentHP, h.MaxHP)))
		}

		description := fmt.Sprintf("Your party departs for rank **%s**.\n\n%s\nReturns in **%s** (<t:%d:R>)",
			rank,
			party.String(),
			utils.FormatDuration(result.DurationSeconds),
			result.Expedition.EndsAt.Unix(),
		)
		if result.TokenCost > 0 {
			description += fmt.Sprintf("\nEntry fee: **%d tokens**", result.TokenCost)
		}

		return successEmbed(e, "⛏️ Expedition Dispatched", description)
	}
}

func ExpeditionCollectHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		userID := e.User().ID.String()
		result, err := b.ExpeditionManager.Collect(ctx, userID)
		if err != nil {
			if errors.Is(err, expedition.ErrNothingToCollect) {
				return errorEmbed(e, "No finished expeditions to collect.")
			}
			return errorEmbed(e, "Failed to collect. Please try again later.")
		}

		var description strings.Builder
		for _, outcome := range result.Outcomes {
			if outcome.Wiped {
				description.WriteString(fmt.Sprintf("**Rank %s — party wiped, reward forfeited**\n", outcome.Rank))
			} else {
				description.WriteString(fmt.Sprintf("**Rank %s — %d tokens** (base %d, heroes +%d, gear +%d)\n",
					outcome.Rank, outcome.Reward, outcome.BaseReward, outcome.HeroBonusReward, outcome.GearBonusReward))
			}
			for _, h := range outcome.Heroes {
				description.WriteString("· " + h.Line() + "\n")
			}
			description.WriteString("\n")
		}
		if len(result.Failed) > 0 {
			description.WriteString(fmt.Sprintf("⚠️ %d expedition(s) could not be settled and remain pending.\n", len(result.Failed)))
		}
		if result.TotalReward > 0 {
			description.WriteString(fmt.Sprintf("**Total earned: %d tokens**", result.TotalReward))
		}

		if b.ArchiveService != nil {
			go func(res *expedition.CollectResult) {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				if err := b.ArchiveService.ArchiveCollection(ctx, userID, res); err != nil {
					// Best effort; the player already has their tokens.
					_ = err
				}
			}(result)
		}

		return successEmbed(e, "⛏️ Expedition Report", description.String())
	}
}

func ExpeditionStatusHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		expeditions, err := b.ExpeditionManager.Status(ctx, e.User().ID.String())
		if err != nil {
			return errorEmbed(e, "Failed to load your expeditions.")
		}
		if len(expeditions) == 0 {
			return infoEmbed(e, "⛏️ Expeditions", "No expeditions in progress. Use `/expedition depart` to send your party out.")
		}

		now := time.Now()
		var description strings.Builder
		for _, exp := range expeditions {
			description.WriteString(fmt.Sprintf("**#%d** rank %s — %s (<t:%d:R>)\n",
				exp.ID, exp.Rank, utils.FormatRelative(exp.EndsAt, now), exp.EndsAt.Unix()))
		}

		return infoEmbed(e, "⛏️ Expeditions", description.String())
	}
}

func ExpeditionPredictHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		rank := e.SlashCommandInteractionData().String("rank")
		tier, err := b.TierRepository.GetByRank(ctx, rank)
		if err != nil {
			return errorEmbed(e, fmt.Sprintf("No expedition rank %q exists.", rank))
		}

		userID := e.User().ID.String()
		preset, err := b.PartyRepository.GetActivePreset(ctx, userID)
		if err != nil {
			return errorEmbed(e, "Failed to load your active party.")
		}

		var heroIDs []int64
		for _, id := range preset.HeroIDs {
			if id != 0 {
				heroIDs = append(heroIDs, id)
			}
		}
		if len(heroIDs) == 0 {
			return errorEmbed(e, "Your active party is empty. Use `/party assign` first.")
		}

		heroes, err := b.HeroRepository.GetByIDs(ctx, heroIDs)
		if err != nil {
			return errorEmbed(e, "Failed to load your party heroes.")
		}

		gearMap, err := loadGearInfo(ctx, b, heroes)
		if err != nil {
			return errorEmbed(e, "Failed to load your party's gear.")
		}

		p := game.Predict(tier, heroes, gearMap)

		heroByID := make(map[int64]*models.Hero, len(heroes))
		for _, h := range heroes {
			heroByID[h.ID] = h
		}

		var description strings.Builder
		description.WriteString(fmt.Sprintf("**%s** (rank %s)\n\n", tier.Name, tier.Rank))
		description.WriteString(fmt.Sprintf("Reward: **%d – %d tokens**\n", p.MinReward, p.MaxReward))
		description.WriteString(fmt.Sprintf("Damage per hero: **%d – %d** (raw %d – %d)\n", p.MinDamage, p.MaxDamage, p.RawMinDamage, p.RawMaxDamage))
		description.WriteString(fmt.Sprintf("Estimated duration: **%s**\n", utils.FormatDuration(p.EstimatedDurationSeconds)))
		if tier.TokenCost > 0 {
			description.WriteString(fmt.Sprintf("Entry fee: **%d tokens**\n", tier.TokenCost))
		}

		color := utils.SuccessColor
		switch p.RiskLevel() {
		case game.RiskWipeout:
			color = utils.ErrorColor
			description.WriteString("\n💀 **Every hero could die on this run.**")
		case game.RiskWarning:
			color = utils.WarningColor
			var names []string
			for _, id := range p.AtRisk {
				if h, ok := heroByID[id]; ok {
					names = append(names, h.Name)
				}
			}
			description.WriteString(fmt.Sprintf("\n⚠️ At risk: **%s**", strings.Join(names, ", ")))
		default:
			description.WriteString("\n✅ Nobody is projected to die.")
		}

		now := time.Now()
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "🔮 Expedition Forecast",
				Description: description.String(),
				Color:       color,
				Timestamp:   &now,
			}},
		})
	}
}

// loadGearInfo builds the engine's gear view for a set of heroes from live
// gear rows.
func loadGearInfo(ctx context.Context, b *minehye.Bot, heroes []*models.Hero) (map[int64]game.GearInfo, error) {
	var gearIDs []int64
	for _, h := range heroes {
		for _, id := range h.Gear {
			if id != 0 {
				gearIDs = append(gearIDs, id)
			}
		}
	}
	if len(gearIDs) == 0 {
		return map[int64]game.GearInfo{}, nil
	}

	rows, err := b.GearRepository.GetByIDs(ctx, gearIDs)
	if err != nil {
		return nil, err
	}
	gearMap := make(map[int64]game.GearInfo, len(rows))
	for _, g := range rows {
		gearMap[g.ID] = game.GearInfo{
			Slot:        g.Slot,
			Bonus:       g.Bonus,
			Enhancement: g.Enhancement,
		}
	}
	return gearMap, nil
}
