package commands

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/paginator"
	"github.com/ellavondegurechaff/minehye/minehye"
	"github.com/ellavondegurechaff/minehye/minehye/utils"
)

var Heroes = discord.SlashCommandCreate{
	Name:        "heroes",
	Description: "🧑‍🏭 Browse your hero roster",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionString{
			Name:        "query",
			Description: "Filter heroes by name or species",
			Required:    false,
		},
	},
}

func HeroesHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		query := strings.TrimSpace(e.SlashCommandInteractionData().String("query"))
		heroes, err := b.SearchService.Search(ctx, e.User().ID.String(), query)
		if err != nil {
			return errorEmbed(e, "Failed to load your roster.")
		}
		if len(heroes) == 0 {
			if query != "" {
				return errorEmbed(e, fmt.Sprintf("No heroes match %q.", query))
			}
			return errorEmbed(e, "You have no heroes yet. Use `/summon` to recruit one.")
		}

		totalPages := int(math.Ceil(float64(len(heroes)) / float64(utils.HeroesPerPage)))

		return b.Paginator.Create(e.Respond, paginator.Pages{
			ID:      e.ID().String(),
			Creator: e.User().ID,
			PageFunc: func(page int, embed *discord.EmbedBuilder) {
				startIdx := page * utils.HeroesPerPage
				endIdx := min(startIdx+utils.HeroesPerPage, len(heroes))

				var description strings.Builder
				if query != "" {
					description.WriteString(fmt.Sprintf("Filtering by: **%s**\n\n", query))
				}
				for _, h := range heroes[startIdx:endIdx] {
					status := utils.HPBar(h.CurrentHP, h.MaxHP)
					if !h.Alive() {
						status = "💀 dead"
					}
					description.WriteString(fmt.Sprintf("`#%d` %s **%s** (%s)\n%s\n%s\n\n",
						h.ID,
						utils.RarityStars(h.Rarity),
						h.Name,
						h.Species,
						status,
						utils.TraitSummary(h.Trait),
					))
				}

				embed.
					SetTitle("🧑‍🏭 Hero Roster").
					SetDescription(description.String()).
					SetColor(utils.NeutralColor).
					SetFooter(fmt.Sprintf("Page %d/%d • Total: %d", page+1, totalPages, len(heroes)), "")
			},
			Pages:      totalPages,
			ExpireMode: paginator.ExpireModeAfterLastUsage,
		}, false)
	}
}
