// Package historian drains the action queue into Postgres and marks games
// abandoned once they stop producing actions.
package historian

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/lucas-vivier/GeoBluff/internal/cache"
	"github.com/sirupsen/logrus"
)

// Config is read from the environment.
type Config struct {
	RedisAddr     string        `env:"REDIS_ADDR"                  envDefault:"localhost:6379"`
	RedisDB       int           `env:"REDIS_DB"                    envDefault:"0"`
	QueueName     string        `env:"HISTORIAN_QUEUE_NAME"        envDefault:"geobluff_actions"`
	DatabaseURL   string        `env:"DATABASE_URL,required"`
	BatchSize     int           `env:"HISTORIAN_BATCH_SIZE"        envDefault:"20"`
	FlushInterval time.Duration `env:"HISTORIAN_FLUSH_INTERVAL"    envDefault:"500ms"`
	PopTimeout    time.Duration `env:"HISTORIAN_POP_TIMEOUT"       envDefault:"3s"`
	Inactivity    time.Duration `env:"GAME_INACTIVITY_TIMEOUT"     envDefault:"30m"`
	SweepInterval time.Duration `env:"HISTORIAN_SWEEP_INTERVAL"    envDefault:"1m"`
	LogLevel      string        `env:"LOG_LEVEL"                   envDefault:"info"`
}

// LoadConfig parses the historian settings from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.BatchSize < 1 {
		return Config{}, errors.New("HISTORIAN_BATCH_SIZE must be at least 1")
	}
	return cfg, nil
}

// Source yields queued action records.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (cache.ActionRecord, error)
}

// Sink persists action records.
type Sink interface {
	InsertActions(ctx context.Context, recs []cache.ActionRecord) error
	MarkAbandoned(ctx context.Context, gameID string) error
}

// Service captures game actions in batches and tracks per-game activity.
type Service struct {
	source Source
	sink   Sink
	cfg    Config
	logger *logrus.Logger
	now    func() time.Time

	lastActivity sync.Map // game id -> time.Time

	batchMu sync.Mutex
	batch   []cache.ActionRecord
}

func New(source Source, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		source: source,
		sink:   sink,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		batch:  make([]cache.ActionRecord, 0, cfg.BatchSize),
	}
}

// Run starts the read loop and the inactivity sweep and blocks until ctx is
// done. The pending batch is flushed on the way out.
func (hs *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); hs.readLoop(ctx) }()
	go func() { defer wg.Done(); hs.flushLoop(ctx) }()
	go func() { defer wg.Done(); hs.inactivityLoop(ctx) }()

	hs.logger.Info("historian started")
	<-ctx.Done()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	hs.Flush(flushCtx)
	hs.logger.Info("historian stopped")
}

func (hs *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		rec, err := hs.source.Pop(ctx, hs.cfg.PopTimeout)
		if errors.Is(err, cache.ErrEmpty) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			hs.logger.Errorf("pop action: %v", err)
			continue
		}
		hs.Handle(ctx, rec)
	}
}

func (hs *Service) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.cfg.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.Flush(ctx)
		}
	}
}

// Handle tracks activity for the record's game and adds it to the batch,
// flushing when the batch is full.
func (hs *Service) Handle(ctx context.Context, rec cache.ActionRecord) {
	switch rec.ActionType {
	case "game-end", "session-expired":
		hs.lastActivity.Delete(rec.GameID)
	default:
		hs.lastActivity.Store(rec.GameID, hs.now())
	}

	hs.batchMu.Lock()
	hs.batch = append(hs.batch, rec)
	full := len(hs.batch) >= hs.cfg.BatchSize
	hs.batchMu.Unlock()

	if full {
		hs.Flush(ctx)
	}
}

// Flush writes the current batch in a single transaction. A failed batch is
// logged and dropped.
func (hs *Service) Flush(ctx context.Context) {
	hs.batchMu.Lock()
	if len(hs.batch) == 0 {
		hs.batchMu.Unlock()
		return
	}
	batch := make([]cache.ActionRecord, len(hs.batch))
	copy(batch, hs.batch)
	hs.batch = hs.batch[:0]
	hs.batchMu.Unlock()

	if err := hs.sink.InsertActions(ctx, batch); err != nil {
		hs.logger.Errorf("flush %d actions: %v", len(batch), err)
		return
	}
	hs.logger.Debugf("flushed %d actions", len(batch))
}

func (hs *Service) inactivityLoop(ctx context.Context) {
	ticker := time.NewTicker(hs.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hs.Sweep(ctx)
		}
	}
}

// Sweep marks games idle longer than the inactivity threshold as abandoned.
func (hs *Service) Sweep(ctx context.Context) int {
	now := hs.now()
	marked := 0
	hs.lastActivity.Range(func(key, val any) bool {
		gameID, ok1 := key.(string)
		last, ok2 := val.(time.Time)
		if !ok1 || !ok2 || now.Sub(last) <= hs.cfg.Inactivity {
			return true
		}
		if err := hs.sink.MarkAbandoned(ctx, gameID); err != nil {
			hs.logger.Errorf("%v", err)
			return true
		}
		hs.logger.WithField("game", gameID).Info("marked abandoned after inactivity")
		hs.lastActivity.Delete(gameID)
		marked++
		return true
	})
	return marked
}
