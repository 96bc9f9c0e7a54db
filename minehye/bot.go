package minehye

import (
	"context"
	"log/slog"
	"time"

	"github.com/disgoorg/disgo"
	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/cache"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/disgo/gateway"
	"github.com/disgoorg/paginator"
	"github.com/ellavondegurechaff/minehye/minehye/database"
	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
	"github.com/ellavondegurechaff/minehye/minehye/expedition"
	"github.com/ellavondegurechaff/minehye/minehye/services"
)

func New(cfg Config, version string, commit string) *Bot {
	return &Bot{
		Cfg:       cfg,
		Paginator: paginator.New(),
		Version:   version,
		Commit:    commit,
	}
}

type Bot struct {
	Cfg       Config
	Client    bot.Client
	Paginator *paginator.Manager
	Version   string
	Commit    string
	DB        *database.DB

	UserRepository       repositories.UserRepository
	HeroRepository       repositories.HeroRepository
	GearRepository       repositories.GearRepository
	ExpeditionRepository repositories.ExpeditionRepository
	PartyRepository      repositories.PartyRepository
	FallenHeroRepository repositories.FallenHeroRepository
	TierRepository       repositories.TierRepository
	ItemRepository       repositories.ItemRepository
	StatsRepository      repositories.StatsRepository

	ExpeditionManager *expedition.Manager
	ExpeditionWatcher *expedition.Watcher
	RosterService     *services.RosterService
	SummonService     *services.SummonService
	SearchService     *services.SearchService
	ArchiveService    *services.ArchiveService
}

func (b *Bot) SetupBot(listeners ...bot.EventListener) error {
	client, err := disgo.New(b.Cfg.Bot.Token,
		bot.WithGatewayConfigOpts(gateway.WithIntents(gateway.IntentGuilds, gateway.IntentGuildMessages, gateway.IntentMessageContent)),
		bot.WithCacheConfigOpts(cache.WithCaches(cache.FlagGuilds)),
		bot.WithEventListeners(b.Paginator),
		bot.WithEventListeners(listeners...),
	)
	if err != nil {
		return err
	}

	b.Client = client
	return nil
}

func (b *Bot) OnReady(_ *events.Ready) {
	slog.Info("MineHYE Bot is now ready",
		slog.String("version", b.Version),
		slog.String("commit", b.Commit))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := b.Client.SetPresence(ctx,
		gateway.WithListeningActivity("pickaxes in the deep"),
		gateway.WithOnlineStatus(discord.OnlineStatusOnline)); err != nil {
		slog.Error("Failed to set presence", slog.Any("error", err))
	}
}
