package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/minehye/minehye"
	"github.com/ellavondegurechaff/minehye/minehye/services"
)

var Gear = discord.SlashCommandCreate{
	Name:        "gear",
	Description: "⚒️ Equip, unequip and merge mining gear",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "equip",
			Description: "Equip a gear piece on a hero",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "hero",
					Description: "Hero ID",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "gear",
					Description: "Gear ID",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "unequip",
			Description: "Clear a hero's gear slot",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "hero",
					Description: "Hero ID",
					Required:    true,
				},
				discord.ApplicationCommandOptionString{
					Name:        "slot",
					Description: "Gear slot",
					Required:    true,
					Choices: []discord.ApplicationCommandOptionChoiceString{
						{Name: "Tool", Value: "tool"},
						{Name: "Headgear", Value: "headgear"},
						{Name: "Footwear", Value: "footwear"},
					},
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "merge",
			Description: "Consume a duplicate piece to enhance another",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "base",
					Description: "Gear ID to enhance",
					Required:    true,
				},
				discord.ApplicationCommandOptionInt{
					Name:        "fodder",
					Description: "Gear ID to consume",
					Required:    true,
				},
			},
		},
	},
}

// rosterErrorMessage maps roster service sentinels to player-facing text.
func rosterErrorMessage(err error) string {
	switch {
	case errors.Is(err, services.ErrNotOwned):
		return "That doesn't belong to you."
	case errors.Is(err, services.ErrHeroBusy):
		return "That hero is out on an expedition. Collect it first."
	case errors.Is(err, services.ErrHeroDead):
		return "That hero is dead."
	case errors.Is(err, services.ErrGearInUse):
		return "That gear piece is on a hero who is out on an expedition."
	case errors.Is(err, services.ErrCannotMerge):
		return "Those pieces cannot be merged. They must share slot and rarity, and the base must have enhancement headroom."
	case errors.Is(err, services.ErrNoSuchItem):
		return "You don't have that item."
	case errors.Is(err, services.ErrNotRecoverable):
		return "That item cannot be used for recovery."
	default:
		return err.Error()
	}
}

func GearEquipHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		heroID := int64(data.Int("hero"))
		gearID := int64(data.Int("gear"))

		if err := b.RosterService.Equip(ctx, e.User().ID.String(), heroID, gearID); err != nil {
			return errorEmbed(e, rosterErrorMessage(err))
		}
		return successEmbed(e, "⚒️ Gear Equipped", fmt.Sprintf("Gear #%d is now on hero #%d.", gearID, heroID))
	}
}

func GearUnequipHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		heroID := int64(data.Int("hero"))
		slot := data.String("slot")

		if err := b.RosterService.Unequip(ctx, e.User().ID.String(), heroID, slot); err != nil {
			return errorEmbed(e, rosterErrorMessage(err))
		}
		return successEmbed(e, "⚒️ Gear Unequipped", fmt.Sprintf("Cleared the %s slot of hero #%d.", slot, heroID))
	}
}

func GearMergeHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		baseID := int64(data.Int("base"))
		fodderID := int64(data.Int("fodder"))

		merged, err := b.RosterService.MergeGear(ctx, e.User().ID.String(), baseID, fodderID)
		if err != nil {
			return errorEmbed(e, rosterErrorMessage(err))
		}

		return successEmbed(e, "⚒️ Gear Enhanced",
			fmt.Sprintf("**%s** is now +%d (effective bonus %d%%).\nThe duplicate piece was consumed.",
				merged.Name, merged.Enhancement, merged.Bonus*(10+merged.Enhancement)/10))
	}
}
