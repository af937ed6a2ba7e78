package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"terracafe/api"
	"terracafe/bot"
	"terracafe/config"
	"terracafe/db"
	"terracafe/events"
	"terracafe/services"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func setupLogger(cfg config.LogConfig) {
	zerolog.TimeFieldFormat = time.RFC3339
	if !strings.EqualFold(cfg.Format, "json") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Init(ctx, cfg.DB); err != nil {
		log.Fatal().Err(err).Msg("db")
	}
	defer db.Close()

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := applyMigrations(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
		return
	}
	if cfg.AutoMigrate {
		if err := applyMigrations(ctx); err != nil {
			log.Fatal().Err(err).Msg("migrate")
		}
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("terracafe")
	}
}

func newSessionStore(ctx context.Context, cfg *config.Config) (services.SessionStore, func(), error) {
	if cfg.Redis.Addr == "" {
		log.Warn().Msg("REDIS_ADDR not set, sessions kept in memory")
		return services.NewMemorySessions(cfg.Auth.SessionTTL), func() {}, nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return services.NewRedisSessions(rdb, cfg.Auth.SessionTTL), func() { _ = rdb.Close() }, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	sessions, closeSessions, err := newSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	var rabbit *events.Rabbit
	if cfg.Rabbit.URL != "" {
		rabbit, err = events.NewRabbit(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			return err
		}
		defer rabbit.Close()
	}

	g, ctx := errgroup.WithContext(ctx)

	var sinks events.Multi
	if rabbit != nil {
		sinks = append(sinks, rabbit)
	}

	if cfg.Telegram.KitchenToken != "" {
		// With a broker the bot follows the exchange, so every API replica
		// reaches it; otherwise it is fed directly.
		var notify events.Sink = events.Nop{}
		if rabbit != nil {
			notify = rabbit
		}
		kitchen, err := bot.NewKitchen(cfg.Telegram, notify)
		if err != nil {
			return err
		}
		if rabbit != nil {
			g.Go(func() error {
				return rabbit.Consume(ctx, "terracafe.kitchen_bot", events.OrderTypes, kitchen)
			})
		} else {
			sinks = append(sinks, kitchen)
		}
		g.Go(func() error {
			kitchen.Start(ctx)
			return nil
		})
	}

	server := api.NewServer(api.Options{
		Sessions:    sessions,
		Checkout:    &services.Checkout{Payments: services.NewFakeProvider(cfg.Payment.Delay), VoucherCost: cfg.Auth.LoyaltyVoucherCost},
		Events:      sinks,
		StaffEmails: cfg.Auth.StaffEmails,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
