// Package config holds the game server settings: command-line flags with
// GEOBLUFF_* environment fallbacks.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lucas-vivier/GeoBluff/internal/game"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the server reads.
const EnvPrefix = "GEOBLUFF"

type Config struct {
	Bind string
	Port int

	CatalogFile    string
	CategoriesFile string

	IdleTimeout     time.Duration
	PresenceTimeout time.Duration
	TombstoneTTL    time.Duration

	CardsPerPlayer   int
	PenaltyDrawCount int
	PenaltyPolicy    string
	OverridePolicy   string
	FinalWalk        string

	RedisAddr   string
	RedisDB     int
	QueueName   string
	DatabaseURL string

	RateLimit float64
	RateBurst int

	KeyFile      string
	TokenTTL     time.Duration
	SecureCookie bool

	LogLevel string
}

// Rules are the server-wide default game rules.
func (c *Config) Rules() game.Rules {
	return game.Rules{
		CardsPerPlayer:   c.CardsPerPlayer,
		PenaltyDrawCount: c.PenaltyDrawCount,
		PenaltyPolicy:    c.PenaltyPolicy,
		OverridePolicy:   game.OverridePolicy(c.OverridePolicy),
		FinalWalk:        c.FinalWalk,
	}
}

// StoreOptions are the session expiry settings.
func (c *Config) StoreOptions() game.StoreOptions {
	return game.StoreOptions{
		IdleTimeout:     c.IdleTimeout,
		PresenceTimeout: c.PresenceTimeout,
		TombstoneTTL:    c.TombstoneTTL,
	}
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Bind, c.Port)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.IdleTimeout <= 0 {
		return errors.New("--idle-timeout must be positive")
	}
	if c.PresenceTimeout <= 0 {
		return errors.New("--presence-timeout must be positive")
	}
	if c.CardsPerPlayer < game.MinCardsPerPlayer || c.CardsPerPlayer > game.MaxCardsPerPlayer {
		return fmt.Errorf("--cards-per-player must be between %d and %d: %d",
			game.MinCardsPerPlayer, game.MaxCardsPerPlayer, c.CardsPerPlayer)
	}
	if err := c.Rules().Validate(); err != nil {
		return err
	}
	if c.RateLimit < 0 {
		return errors.New("--rate-limit must not be negative")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// NewCommand builds the root command. Flags fall back to GEOBLUFF_<FLAG>
// environment variables, dashes becoming underscores.
func NewCommand(cfg *Config, version string, run func(ctx context.Context, cfg *Config) error) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "geobluff",
		Short:   "Game server for GeoBluff, a two-team bluffing game with country cards.",
		Args:    cobra.ExactArgs(0),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	defaults := game.DefaultRules()
	store := game.DefaultStoreOptions()

	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: GEOBLUFF_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 8080, "port to listen on (env: GEOBLUFF_PORT)")
	fs.StringVar(&cfg.CatalogFile, "catalog", "", "country catalog JSON file, embedded dataset when empty (env: GEOBLUFF_CATALOG)")
	fs.StringVar(&cfg.CategoriesFile, "categories", "", "categories config JSON file (env: GEOBLUFF_CATEGORIES)")
	fs.DurationVar(&cfg.IdleTimeout, "idle-timeout", store.IdleTimeout, "time before idle games are reaped (env: GEOBLUFF_IDLE_TIMEOUT)")
	fs.DurationVar(&cfg.PresenceTimeout, "presence-timeout", store.PresenceTimeout, "time a client counts as present after its last request (env: GEOBLUFF_PRESENCE_TIMEOUT)")
	fs.DurationVar(&cfg.TombstoneTTL, "tombstone-ttl", store.TombstoneTTL, "how long reaped games answer 410 (env: GEOBLUFF_TOMBSTONE_TTL)")
	fs.IntVar(&cfg.CardsPerPlayer, "cards-per-player", defaults.CardsPerPlayer, "default hand size (env: GEOBLUFF_CARDS_PER_PLAYER)")
	fs.IntVar(&cfg.PenaltyDrawCount, "penalty-draw-count", defaults.PenaltyDrawCount, "cards drawn as a penalty (env: GEOBLUFF_PENALTY_DRAW_COUNT)")
	fs.StringVar(&cfg.PenaltyPolicy, "penalty-policy", defaults.PenaltyPolicy, "bluff penalty: disputed, board or draw (env: GEOBLUFF_PENALTY_POLICY)")
	fs.StringVar(&cfg.OverridePolicy, "override-policy", string(defaults.OverridePolicy), "capital override: both or rescue_only (env: GEOBLUFF_OVERRIDE_POLICY)")
	fs.StringVar(&cfg.FinalWalk, "final-walk", defaults.FinalWalk, "board walk on last card: tie or always (env: GEOBLUFF_FINAL_WALK)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "Redis address for the action history queue, disabled when empty (env: GEOBLUFF_REDIS_ADDR)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "Redis database number (env: GEOBLUFF_REDIS_DB)")
	fs.StringVar(&cfg.QueueName, "queue-name", "", "Redis list for action records (env: GEOBLUFF_QUEUE_NAME)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "Postgres DSN for game results, disabled when empty (env: GEOBLUFF_DATABASE_URL)")
	fs.Float64Var(&cfg.RateLimit, "rate-limit", 20, "API requests per second per IP, 0 disables (env: GEOBLUFF_RATE_LIMIT)")
	fs.IntVar(&cfg.RateBurst, "rate-burst", 40, "API request burst per IP (env: GEOBLUFF_RATE_BURST)")
	fs.StringVar(&cfg.KeyFile, "key-file", "", "raw ed25519 private key for client cookies, random when empty (env: GEOBLUFF_KEY_FILE)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 30*24*time.Hour, "client cookie lifetime, 0 for never (env: GEOBLUFF_TOKEN_TTL)")
	fs.BoolVar(&cfg.SecureCookie, "secure-cookie", false, "mark the client cookie Secure (env: GEOBLUFF_SECURE_COOKIE)")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", "info", "trace, debug, info, warn or error (env: GEOBLUFF_LOG_LEVEL)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("geobluff v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
