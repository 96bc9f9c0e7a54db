package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/minehye/minehye"
	"github.com/ellavondegurechaff/minehye/minehye/database/models"
	"github.com/ellavondegurechaff/minehye/minehye/utils"
)

var Party = discord.SlashCommandCreate{
	Name:        "party",
	Description: "👥 Manage your mining parties",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "view",
			Description: "Show all party presets",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "assign",
			Description: "Place a hero in a party slot (hero 0 clears the slot)",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "preset",
					Description: "Preset number (1-3)",
					Required:    true,
					MinValue:    intPtr(1),
					MaxValue:    intPtr(models.PresetCount),
				},
				discord.ApplicationCommandOptionInt{
					Name:        "slot",
					Description: "Party slot (1-3)",
					Required:    true,
					MinValue:    intPtr(1),
					MaxValue:    intPtr(models.PartySize),
				},
				discord.ApplicationCommandOptionInt{
					Name:        "hero",
					Description: "Hero ID, or 0 to clear the slot",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "preset",
			Description: "Switch which preset dispatches",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "index",
					Description: "Preset number (1-3)",
					Required:    true,
					MinValue:    intPtr(1),
					MaxValue:    intPtr(models.PresetCount),
				},
			},
		},
	},
}

func intPtr(v int) *int { return &v }

func PartyViewHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		userID := e.User().ID.String()
		presets, err := b.RosterService.Presets(ctx, userID)
		if err != nil {
			return errorEmbed(e, "Failed to load your party presets.")
		}

		var description strings.Builder
		for _, preset := range presets {
			marker := ""
			if preset.Active {
				marker = " ← active"
			}
			description.WriteString(fmt.Sprintf("**Preset %d**%s\n", preset.Index+1, marker))

			for slot, id := range preset.HeroIDs {
				if id == 0 {
					description.WriteString(fmt.Sprintf("%d. *(empty)*\n", slot+1))
					continue
				}
				hero, err := b.HeroRepository.GetByID(ctx, id)
				if err != nil {
					description.WriteString(fmt.Sprintf("%d. *(missing hero #%d)*\n", slot+1, id))
					continue
				}
				description.WriteString(fmt.Sprintf("%d. %s %s — %s\n",
					slot+1, utils.RarityStars(hero.Rarity), hero.Name, utils.HPBar(hero.CurrentHP, hero.MaxHP)))
			}
			description.WriteString("\n")
		}

		return infoEmbed(e, "👥 Party Presets", description.String())
	}
}

func PartyAssignHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		preset := data.Int("preset") - 1
		slot := data.Int("slot") - 1
		heroID := int64(data.Int("hero"))

		userID := e.User().ID.String()
		if _, err := b.RosterService.Presets(ctx, userID); err != nil {
			return errorEmbed(e, "Failed to load your party presets.")
		}

		if err := b.RosterService.AssignToParty(ctx, userID, preset, slot, heroID); err != nil {
			return errorEmbed(e, rosterErrorMessage(err))
		}

		if heroID == 0 {
			return successEmbed(e, "👥 Party Updated", fmt.Sprintf("Cleared slot %d of preset %d.", slot+1, preset+1))
		}
		return successEmbed(e, "👥 Party Updated", fmt.Sprintf("Hero #%d placed in slot %d of preset %d.", heroID, slot+1, preset+1))
	}
}

func PartyPresetHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		index := e.SlashCommandInteractionData().Int("index") - 1
		userID := e.User().ID.String()
		if _, err := b.RosterService.Presets(ctx, userID); err != nil {
			return errorEmbed(e, "Failed to load your party presets.")
		}

		if err := b.RosterService.SetActivePreset(ctx, userID, index); err != nil {
			return errorEmbed(e, rosterErrorMessage(err))
		}
		return successEmbed(e, "👥 Active Preset", fmt.Sprintf("Preset %d is now your active party.", index+1))
	}
}
