package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/config"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/db"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/events"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/handlers"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/logger"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/middleware"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/ratelimit"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/realtime"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/server"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/storage"
	"github.com/Windi-Fikriyansyah/platfrom_be_skillhub/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	lg := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gdb, err := db.Connect(ctx, cfg.DBDSN, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("connect database")
	}
	defer func() {
		if err := db.Close(gdb); err != nil {
			lg.Warn().Err(err).Msg("close database")
		}
	}()
	if err := db.Migrate(gdb); err != nil {
		lg.Fatal().Err(err).Msg("migrate database")
	}

	var (
		rdb      *redis.Client
		limiter  middleware.Limiter
		notifier *realtime.Notifier
	)
	if cfg.RedisAddr != "" {
		rdb = realtime.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			lg.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect redis")
		}
		notifier = &realtime.Notifier{RDB: rdb}
		if cfg.RateLimitPerMinute > 0 {
			l, err := ratelimit.NewFixedWindowLimiter(rdb, "skillhub:ratelimit", cfg.RateLimitPerMinute, time.Minute)
			if err != nil {
				lg.Fatal().Err(err).Msg("build rate limiter")
			}
			limiter = l
		}
	} else {
		lg.Warn().Msg("REDIS_ADDR not set: rate limiting off, notifications stay on this replica")
	}

	store := buildStore(ctx, cfg, lg)
	publisher := buildPublisher(cfg, lg)
	defer publisher.Close()

	hub := realtime.NewHub(lg)
	go hub.Run(ctx)
	go func() {
		if err := notifier.Relay(ctx, hub); err != nil {
			lg.Error().Err(err).Msg("notification relay stopped")
		}
	}()

	app := server.New(server.Deps{
		Config:   cfg,
		DB:       gdb,
		Log:      lg,
		Tokens:   utils.NewTokenService(cfg.JWTSecret, cfg.TokenTTL()),
		Limiter:  limiter,
		Store:    store,
		Events:   publisher,
		Hub:      hub,
		Notifier: notifier,
		OAuth:    handlers.NewGoogleOAuthConfig(cfg.GoogleClientID, cfg.GoogleSecret, cfg.GoogleRedirect),
	})

	go func() {
		<-ctx.Done()
		lg.Info().Msg("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			lg.Warn().Err(err).Msg("shutdown")
		}
	}()

	lg.Info().Str("addr", cfg.Addr()).Str("env", cfg.AppEnv).Msg("listening")
	if err := app.Listen(cfg.Addr()); err != nil {
		lg.Error().Err(err).Msg("server stopped")
	}
}

func buildStore(ctx context.Context, cfg config.Config, lg zerolog.Logger) storage.ObjectStore {
	if cfg.MinioEndpoint == "" {
		lg.Info().Str("dir", cfg.UploadDir).Msg("storing uploads on local disk")
		return &storage.LocalStore{Dir: cfg.UploadDir, BaseURL: cfg.AppBaseURL}
	}
	s, err := storage.NewMinioStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey,
		cfg.MinioBucket, cfg.MinioUseSSL, cfg.MediaPublicBaseURL)
	if err != nil {
		lg.Fatal().Err(err).Msg("connect object store")
	}
	return s
}

func buildPublisher(cfg config.Config, lg zerolog.Logger) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.LogPublisher{Log: lg}
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		lg.Fatal().Err(err).Msg("connect rabbitmq")
	}
	return p
}
