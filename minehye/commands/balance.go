package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/minehye/minehye"
	"github.com/ellavondegurechaff/minehye/minehye/utils"
)

var Balance = discord.SlashCommandCreate{
	Name:        "balance",
	Description: "💰 View your token balance and mining record",
}

func BalanceHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		userID := e.User().ID.String()
		user, err := b.UserRepository.GetOrCreate(ctx, userID, e.User().Username)
		if err != nil {
			return errorEmbed(e, "Failed to fetch your balance. Please try again later.")
		}

		var description strings.Builder
		description.WriteString(fmt.Sprintf("**Tokens:** %d\n%s\n", user.Tokens, createTokenBar(user.Tokens)))

		if stats, err := b.StatsRepository.GetByDiscordID(ctx, userID); err == nil && stats != nil {
			description.WriteString(fmt.Sprintf(
				"\n**Expeditions:** %d dispatched, %d collected\n**Tokens earned:** %d\n**Heroes lost:** %d (%d wipes)\n",
				stats.Dispatches,
				stats.Collections,
				stats.TokensEarned,
				stats.HeroesLost,
				stats.Wipes,
			))
		}

		now := time.Now()
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{{
				Title:       "💰 Balance",
				Description: description.String(),
				Color:       utils.SuccessColor,
				Footer: &discord.EmbedFooter{
					Text: fmt.Sprintf("Requested by %s", e.User().Username),
				},
				Timestamp: &now,
			}},
		})
	}
}

func createTokenBar(tokens int64) string {
	const barLength = 10

	var milestone int64 = 100000
	if tokens < 1000 {
		milestone = 1000
	} else if tokens < 10000 {
		milestone = 10000
	}

	progress := float64(tokens) / float64(milestone)
	if progress > 1.0 {
		progress = 1.0
	}
	filled := int(progress * float64(barLength))

	var bar strings.Builder
	bar.WriteString("[")
	for i := 0; i < barLength; i++ {
		if i < filled {
			bar.WriteString("■")
		} else {
			bar.WriteString("□")
		}
	}
	bar.WriteString(fmt.Sprintf("] %.1f%% to %d", progress*100, milestone))
	return bar.String()
}
