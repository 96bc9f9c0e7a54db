package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/snowflake/v2"
	"github.com/ellavondegurechaff/minehye/minehye"
	"github.com/ellavondegurechaff/minehye/minehye/commands"
	"github.com/ellavondegurechaff/minehye/minehye/database"
	"github.com/ellavondegurechaff/minehye/minehye/database/repositories"
	"github.com/ellavondegurechaff/minehye/minehye/expedition"
	"github.com/ellavondegurechaff/minehye/minehye/handlers"
	"github.com/ellavondegurechaff/minehye/minehye/logger"
	"github.com/ellavondegurechaff/minehye/minehye/migration"
	"github.com/ellavondegurechaff/minehye/minehye/services"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	customHandler := logger.NewHandler()
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting MineHYE Discord Bot",
		slog.String("version", version),
		slog.String("commit", commit))

	shouldSyncCommands := flag.Bool("sync-commands", false, "Whether to sync commands to discord")
	shouldMigrate := flag.Bool("migrate", false, "Run the legacy data migration and exit")
	migrateDir := flag.String("migrate-dir", "data", "Directory holding legacy BSON dumps (ignored when mongo.uri is set)")
	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := minehye.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Configuration loaded successfully")

	slog.Info("Initializing database connection...")
	dbStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	slog.Info("Database connected successfully",
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	slog.Info("Initializing database schema...")
	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.String("error", err.Error()))
		os.Exit(-1)
	}
	if err := db.InitializeTierData(ctx); err != nil {
		slog.Error("Failed to seed expedition tiers", slog.String("error", err.Error()))
		os.Exit(-1)
	}
	if err := db.InitializeItemData(ctx); err != nil {
		slog.Error("Failed to seed items", slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database schema initialized successfully")

	if *shouldMigrate {
		if err := runMigration(ctx, db, cfg, *migrateDir); err != nil {
			slog.Error("Migration failed", slog.Any("error", err))
			os.Exit(-1)
		}
		slog.Info("Migration finished, exiting")
		return
	}

	b := minehye.New(*cfg, version, commit)
	b.DB = db

	// Repositories
	b.UserRepository = repositories.NewUserRepository(db.BunDB())
	b.HeroRepository = repositories.NewHeroRepository(db.BunDB())
	b.GearRepository = repositories.NewGearRepository(db.BunDB())
	b.ExpeditionRepository = repositories.NewExpeditionRepository(db.BunDB())
	b.PartyRepository = repositories.NewPartyRepository(db.BunDB())
	b.FallenHeroRepository = repositories.NewFallenHeroRepository(db.BunDB())
	b.TierRepository = repositories.NewCachedTierRepository(repositories.NewTierRepository(db.BunDB()))
	b.ItemRepository = repositories.NewItemRepository(db.BunDB())
	b.StatsRepository = repositories.NewStatsRepository(db.BunDB())

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	b.ExpeditionManager = expedition.NewManager(expedition.ManagerConfig{
		Users:      b.UserRepository,
		Heroes:     b.HeroRepository,
		Gear:       b.GearRepository,
		Exps:       b.ExpeditionRepository,
		Parties:    b.PartyRepository,
		Fallen:     b.FallenHeroRepository,
		Tiers:      b.TierRepository,
		Stats:      b.StatsRepository,
		Rng:        rng,
		DebugTools: cfg.Game.DebugTools,
	})

	b.RosterService = services.NewRosterService(
		b.HeroRepository, b.GearRepository, b.PartyRepository,
		b.ExpeditionRepository, b.ItemRepository, b.StatsRepository)
	b.SummonService = services.NewSummonService(
		b.UserRepository, b.HeroRepository, b.StatsRepository, rng, nil)
	b.SearchService = services.NewSearchService(b.HeroRepository)
	b.ArchiveService = services.NewArchiveService(
		cfg.Spaces.Key, cfg.Spaces.Secret, cfg.Spaces.Region, cfg.Spaces.Bucket)

	lockCtx, lockCancel := context.WithCancel(context.Background())
	defer lockCancel()
	b.ExpeditionManager.Locks().StartCleanupRoutine(lockCtx)

	h := handler.New()

	// Expedition lifecycle
	h.Command("/expedition/depart", handlers.WrapWithLogging("expedition-depart", commands.ExpeditionDepartHandler(b)))
	h.Command("/expedition/collect", handlers.WrapWithLogging("expedition-collect", commands.ExpeditionCollectHandler(b)))
	h.Command("/expedition/status", handlers.WrapWithLogging("expedition-status", commands.ExpeditionStatusHandler(b)))
	h.Command("/expedition/predict", handlers.WrapWithLogging("expedition-predict", commands.ExpeditionPredictHandler(b)))

	// Roster management
	h.Command("/party/view", handlers.WrapWithLogging("party-view", commands.PartyViewHandler(b)))
	h.Command("/party/assign", handlers.WrapWithLogging("party-assign", commands.PartyAssignHandler(b)))
	h.Command("/party/preset", handlers.WrapWithLogging("party-preset", commands.PartyPresetHandler(b)))
	h.Command("/gear/equip", handlers.WrapWithLogging("gear-equip", commands.GearEquipHandler(b)))
	h.Command("/gear/unequip", handlers.WrapWithLogging("gear-unequip", commands.GearUnequipHandler(b)))
	h.Command("/gear/merge", handlers.WrapWithLogging("gear-merge", commands.GearMergeHandler(b)))
	h.Command("/heroes", handlers.WrapWithLogging("heroes", commands.HeroesHandler(b)))
	h.Command("/summon", handlers.WrapWithLogging("summon", commands.SummonHandler(b)))
	h.Command("/recover", handlers.WrapWithLogging("recover", commands.RecoverHandler(b)))
	h.Command("/balance", handlers.WrapWithLogging("balance", commands.BalanceHandler(b)))

	// Debug
	h.Command("/forcecomplete", handlers.WrapWithLogging("forcecomplete", commands.ForceCompleteHandler(b)))

	if err = b.SetupBot(h, bot.NewListenerFunc(b.OnReady)); err != nil {
		slog.Error("Failed to setup bot",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("component", "bot_setup"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.Client.Close(ctx)
	}()

	// Expedition-ready notifications go out as DMs.
	b.ExpeditionWatcher = expedition.NewWatcher(b.ExpeditionRepository)
	b.ExpeditionWatcher.Notify = func(userID string, expeditionID int64) {
		id, err := snowflake.Parse(userID)
		if err != nil {
			return
		}

		channel, err := b.Client.Rest().CreateDMChannel(id)
		if err != nil {
			slog.Warn("Failed to open DM channel for expedition notification",
				slog.String("user_id", userID),
				slog.Any("error", err))
			return
		}
		_, err = b.Client.Rest().CreateMessage(channel.ID(), discord.NewMessageCreateBuilder().
			SetContentf("⛏️ Expedition #%d is back from the mines. Use `/expedition collect`!", expeditionID).
			Build())
		if err != nil {
			slog.Warn("Failed to send expedition notification",
				slog.String("user_id", userID),
				slog.Any("error", err))
		}
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	go b.ExpeditionWatcher.Start(watchCtx)
	defer b.ExpeditionWatcher.Shutdown()

	if *shouldSyncCommands {
		slog.Info("Syncing commands",
			slog.String("type", "sys"),
			slog.Any("guild_ids", cfg.Bot.DevGuilds),
		)
		if err = handler.SyncCommands(b.Client, commands.Commands, cfg.Bot.DevGuilds); err != nil {
			slog.Error("Failed to sync commands",
				slog.String("type", "sys"),
				slog.Any("error", err),
				slog.String("component", "command_sync"),
				slog.String("status", "failed"),
			)
		}
	}

	gwCtx, gwCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer gwCancel()
	if err = b.Client.OpenGateway(gwCtx); err != nil {
		slog.Error("Failed to open gateway",
			slog.String("type", "sys"),
			slog.Any("error", err),
			slog.String("error_details", fmt.Sprintf("%+v", err)),
			slog.String("component", "gateway"),
			slog.String("status", "failed"),
		)
		os.Exit(-1)
	}

	slog.Info("Bot is running. Press CTRL-C to exit.")
	s := make(chan os.Signal, 1)
	signal.Notify(s, syscall.SIGINT, syscall.SIGTERM)
	<-s
	slog.Info("Shutting down bot...")
}

// runMigration imports legacy data, preferring a live Mongo connection when
// one is configured and falling back to BSON dump files.
func runMigration(ctx context.Context, db *database.DB, cfg *minehye.Config, dataDir string) error {
	migrator := migration.NewMigrator(db.BunDB(), dataDir)

	if cfg.Mongo.URI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		defer func() {
			_ = client.Disconnect(ctx)
		}()

		migrator.UseMongo(client, cfg.Mongo.Database)
		return migrator.MigrateAllFromMongo(ctx)
	}

	return migrator.MigrateAll(ctx)
}
