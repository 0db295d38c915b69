package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"keygate-bot/keygate"
	"keygate-bot/keygate/claims"
	"keygate-bot/keygate/database"
	"keygate-bot/keygate/database/repositories"
	"keygate-bot/keygate/handlers"
	"keygate-bot/keygate/health"
	"keygate-bot/keygate/logger"
	"keygate-bot/keygate/membership"
	"keygate-bot/keygate/telegram"
)

var version = "dev"

func main() {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	path := flag.String("config", "config.toml", "path to config")
	flag.Parse()

	cfg, err := keygate.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(-1)
	}

	customHandler := logger.NewHandler(cfg.Log.Level.Slog(), cfg.Log.AddSource)
	slog.SetDefault(slog.New(customHandler))

	slog.Info("Starting KeyGate Bot",
		slog.String("type", "sys"),
		slog.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Initializing database connection...", slog.String("type", "db"))
	dbStartTime := time.Now()

	dbConfig := database.DBConfig{
		Host:     cfg.DB.Host,
		Port:     cfg.DB.Port,
		User:     cfg.DB.User,
		Password: cfg.DB.Password,
		Database: cfg.DB.Database,
		PoolSize: cfg.DB.PoolSize,
	}

	db, err := database.New(ctx, dbConfig)
	if err != nil {
		slog.Error("Database connection failed",
			slog.String("type", "db"),
			slog.String("error", err.Error()),
			slog.Duration("attempted_for", time.Since(dbStartTime)))
		os.Exit(-1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema",
			slog.String("type", "db"),
			slog.String("error", err.Error()))
		os.Exit(-1)
	}
	slog.Info("Database ready",
		slog.String("type", "db"),
		slog.String("database", cfg.DB.Database),
		slog.Duration("took", time.Since(dbStartTime)))

	b := keygate.New(*cfg, version)
	b.DB = db
	b.Telegram = telegram.NewClient(cfg.Bot.Token)

	b.Channels = repositories.NewChannelRepository(db.BunDB())
	b.Users = repositories.NewUserRepository(db.BunDB())
	b.Keys = repositories.NewKeyRepository(db.BunDB())
	b.Claims = repositories.NewClaimRepository(db.BunDB())
	b.Settings = repositories.NewSettingsRepository(db.BunDB())

	b.Verifier = membership.NewVerifier(b.Channels, b.Telegram)

	// Lock expiry must cover the per-update handler timeout, or the
	// cleanup routine could reap a lock whose claim is still running.
	locks := claims.NewLockTable(telegram.HandleTimeout)
	locks.StartCleanupRoutine(ctx)
	b.Orchestrator = claims.NewOrchestrator(b.Users, b.Claims, b.Settings, b.Verifier, locks, claims.SystemClock)

	router := handlers.NewRouter(b)
	poller := telegram.NewPoller(b.Telegram, router.HandleUpdate)
	healthSrv := health.NewServer(b)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return poller.Run(gctx) })
	g.Go(func() error { return healthSrv.Run(gctx) })

	slog.Info("Bot is running. Press CTRL-C to exit.", slog.String("type", "sys"))
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("Bot stopped unexpectedly",
			slog.String("type", "sys"),
			slog.Any("error", err))
		os.Exit(-1)
	}
	slog.Info("Shutting down bot...", slog.String("type", "sys"))
}
