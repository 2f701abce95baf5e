// cmd/historian/main.go is an asynchronous historian service that pops action
// records from a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/lucas-vivier/GeoBluff/internal/cache"
	"github.com/lucas-vivier/GeoBluff/internal/database"
	"github.com/lucas-vivier/GeoBluff/internal/historian"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()

	cfg, err := historian.LoadConfig()
	if err != nil {
		logger.Fatalf("historian config: %v", err)
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatalf("%v", err)
	}

	hs := historian.New(cache.NewQueue(rdb, cfg.QueueName), database.NewStore(pool), cfg, logger)
	logger.Infof("historian reading from %s", cfg.QueueName)
	hs.Run(ctx)
}
