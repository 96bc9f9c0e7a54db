package commands

import (
	"context"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/minehye/minehye"
)

var Recover = discord.SlashCommandCreate{
	Name:        "recover",
	Description: "🩹 Heal a wounded hero with a recovery item",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "hero",
			Description: "Hero ID",
			Required:    true,
		},
		discord.ApplicationCommandOptionString{
			Name:        "item",
			Description: "Recovery item",
			Required:    true,
			Choices: []discord.ApplicationCommandOptionChoiceString{
				{Name: "Bandage (+30 HP)", Value: "bandage"},
				{Name: "Medkit (+80 HP)", Value: "medkit"},
				{Name: "Elixir (full heal)", Value: "elixir"},
			},
		},
	},
}

func RecoverHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		data := e.SlashCommandInteractionData()
		heroID := int64(data.Int("hero"))
		itemID := data.String("item")

		healed, err := b.RosterService.UseRecoveryItem(ctx, e.User().ID.String(), heroID, itemID)
		if err != nil {
			return errorEmbed(e, rosterErrorMessage(err))
		}

		return successEmbed(e, "🩹 Recovery", fmt.Sprintf("Hero #%d recovered **%d HP**.", heroID, healed))
	}
}
