package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"scrap-ledger/internal/adapters/cli"
	"scrap-ledger/internal/app"
	"scrap-ledger/internal/config"
	"scrap-ledger/internal/db"
	"scrap-ledger/internal/logger"
	"scrap-ledger/internal/store/memory"
	"scrap-ledger/internal/store/postgres"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		_ = logger.Setup(logger.DefaultConfig())
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		fmt.Fprintf(os.Stderr, "invalid logging configuration: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, serviceFactory(cfg), os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func serviceFactory(cfg *config.Config) cli.ServiceFactory {
	return func(ctx context.Context, inMemory bool) (app.ApplicationService, func(), error) {
		opts := cfg.LedgerOptions()
		if inMemory {
			log.Debug().Msg("using in-memory store")
			return app.NewAppService(memory.New(), opts), func() {}, nil
		}

		if err := cfg.RequireDatabase(); err != nil {
			return nil, nil, fmt.Errorf("%w (or pass --memory)", err)
		}
		pool, err := db.NewPool(ctx, cfg.PoolConfig())
		if err != nil {
			return nil, nil, err
		}
		store := postgres.New(pool, logger.WithComponent("postgres"))
		return app.NewAppService(store, opts), pool.Close, nil
	}
}
