package commands

import (
	"time"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/minehye/minehye/utils"
)

// Commands is every slash command the bot registers. The debug-only
// force-complete command is always registered; its handler refuses to run
// unless debug tools are enabled in config.
var Commands = []discord.ApplicationCommandCreate{
	Expedition,
	Party,
	Gear,
	Heroes,
	Summon,
	Recover,
	Balance,
	ForceComplete,
}

const commandTimeout = 10 * time.Second

func errorEmbed(e *handler.CommandEvent, message string) error {
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       "Error",
			Description: message,
			Color:       utils.ErrorColor,
		}},
	})
}

func infoEmbed(e *handler.CommandEvent, title, message string) error {
	now := time.Now()
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       title,
			Description: message,
			Color:       utils.InfoColor,
			Timestamp:   &now,
		}},
	})
}

func successEmbed(e *handler.CommandEvent, title, message string) error {
	now := time.Now()
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{{
			Title:       title,
			Description: message,
			Color:       utils.SuccessColor,
			Footer: &discord.EmbedFooter{
				Text: "Requested by " + e.User().Username,
			},
			Timestamp: &now,
		}},
	})
}

var rankChoices = []discord.ApplicationCommandOptionChoiceString{
	{Name: "C — Surface Vein", Value: "C"},
	{Name: "UC — Shallow Shaft", Value: "UC"},
	{Name: "R — Collapsed Gallery", Value: "R"},
	{Name: "E — Flooded Depths", Value: "E"},
	{Name: "L — The Mother Lode", Value: "L"},
}
