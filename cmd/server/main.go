// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/lucas-vivier/GeoBluff/internal/auth"
	"github.com/lucas-vivier/GeoBluff/internal/cache"
	"github.com/lucas-vivier/GeoBluff/internal/catalog"
	"github.com/lucas-vivier/GeoBluff/internal/config"
	"github.com/lucas-vivier/GeoBluff/internal/database"
	"github.com/lucas-vivier/GeoBluff/internal/game"
	"github.com/lucas-vivier/GeoBluff/internal/handlers"
	"github.com/lucas-vivier/GeoBluff/internal/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const releaseVersion = "0.4.0"

func main() {
	cfg := &config.Config{}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cobra.CheckErr(config.NewCommand(cfg, releaseVersion, serve).ExecuteContext(ctx))
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	m, err := newMachine(cfg)
	if err != nil {
		return err
	}

	var options []game.StoreOption
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		q := cache.NewQueue(rdb, cfg.QueueName)
		options = append(options, game.WithPublisher(q))
		logger.Infof("publishing actions to Redis list %s", q.Name())
	}
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool); err != nil {
			return err
		}
		options = append(options, game.WithRecorder(database.NewStore(pool)))
		logger.Info("recording game results to Postgres")
	}

	store := game.NewStore(m, cfg.StoreOptions(), logger, options...)
	defer store.Wait()
	go store.Run(ctx)

	issuer, err := newIssuer(cfg)
	if err != nil {
		return err
	}

	gs := handlers.NewGameServer(store, issuer, logger)
	gs.Version = releaseVersion
	gs.SecureCookie = cfg.SecureCookie

	var limiter *middleware.RateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.RateBurst)
		go pruneLimiter(ctx, limiter)
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           gs.Routes(limiter),
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Infof("geobluff v%s listening on %s", releaseVersion, srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newMachine(cfg *config.Config) (*game.Machine, error) {
	var (
		cat *catalog.Catalog
		err error
	)
	if cfg.CatalogFile != "" {
		cat, err = catalog.LoadFile(cfg.CatalogFile)
	} else {
		cat, err = catalog.Default()
	}
	if err != nil {
		return nil, err
	}

	catCfg := catalog.DefaultConfig()
	if cfg.CategoriesFile != "" {
		if catCfg, err = catalog.LoadConfigFile(cfg.CategoriesFile); err != nil {
			return nil, err
		}
	}
	return game.NewMachine(cat, catalog.NewRegistry(cat, catCfg), cfg.Rules())
}

func newIssuer(cfg *config.Config) (*auth.Issuer, error) {
	if cfg.KeyFile != "" {
		return auth.NewIssuerFromPath(cfg.KeyFile, cfg.TokenTTL)
	}
	return auth.NewIssuer(cfg.TokenTTL)
}

func pruneLimiter(ctx context.Context, rl *middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.Prune(now)
		}
	}
}
