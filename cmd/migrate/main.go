package main

import (
	"context"
	"os"

	"shopora/internal/config"
	"shopora/internal/db"
	"shopora/internal/logger"
	"shopora/internal/migrate"
)

func main() {
	cfg := config.FromEnv()
	logger.Init(cfg.Development)
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Error("connect db", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := migrate.Apply(ctx, pool); err != nil {
		logger.Error("apply migrations", "err", err)
		os.Exit(1)
	}

	logger.Info("migrations applied")
}
