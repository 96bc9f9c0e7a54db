package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/ellavondegurechaff/minehye/minehye"
	"github.com/ellavondegurechaff/minehye/minehye/config"
	"github.com/ellavondegurechaff/minehye/minehye/services"
	"github.com/ellavondegurechaff/minehye/minehye/utils"
)

var Summon = discord.SlashCommandCreate{
	Name:        "summon",
	Description: fmt.Sprintf("✨ Recruit a new hero (%d tokens)", config.SummonCost),
}

func SummonHandler(b *minehye.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		userID := e.User().ID.String()
		if _, err := b.UserRepository.GetOrCreate(ctx, userID, e.User().Username); err != nil {
			return errorEmbed(e, "Failed to load your account. Please try again later.")
		}

		hero, err := b.SummonService.Summon(ctx, userID)
		if err != nil {
			if errors.Is(err, services.ErrSummonUnaffordable) {
				return errorEmbed(e, fmt.Sprintf("A summon costs %d tokens. Run some expeditions first.", config.SummonCost))
			}
			return errorEmbed(e, "The summon fizzled. Please try again later.")
		}

		description := fmt.Sprintf("%s **%s** the %s joins your roster!\n\n%s\n%s",
			utils.RarityStars(hero.Rarity),
			hero.Name,
			hero.Species,
			utils.HPBar(hero.CurrentHP, hero.MaxHP),
			utils.TraitSummary(hero.Trait),
		)
		return successEmbed(e, fmt.Sprintf("✨ %s Summon!", utils.RarityName(hero.Rarity)), description)
	}
}
