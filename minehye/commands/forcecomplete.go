package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/minehye/minehye"
	"github.com/ellavondegurechaff/minehye/minehye/expedition"
)

var ForceComplete = discord.SlashCommandCreate{
	Name:        "forcecomplete",
	Description: "🔧 [debug] Finish one of your expeditions immediately",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionInt{
			Name:        "expedition",
			Description: "Expedition ID",
			Required:    true,
		},
	},
}

func ForceCompleteHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		expID := int64(e.SlashCommandInteractionData().Int("expedition"))
		err := b.ExpeditionManager.ForceComplete(ctx, e.User().ID.String(), expID)
		if err != nil {
			if errors.Is(err, expedition.ErrDebugDisabled) {
				return errorEmbed(e, "Debug tools are disabled on this deployment.")
			}
			return errorEmbed(e, err.Error())
		}

		return successEmbed(e, "🔧 Expedition Completed",
			fmt.Sprintf("Expedition #%d is now ready. Use `/expedition collect`.", expID))
	}
}
