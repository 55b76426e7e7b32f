package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"riddle-hunt-service/internal/app"
	"riddle-hunt-service/internal/config"
	"riddle-hunt-service/internal/domain"
	"riddle-hunt-service/internal/infra/memory"
	"riddle-hunt-service/internal/infra/postgres"
	redisinfra "riddle-hunt-service/internal/infra/redis"
	"riddle-hunt-service/internal/logger"
	"riddle-hunt-service/internal/timer"
)

// services is everything the HTTP layer needs, plus what must be closed on exit.
type services struct {
	contest *app.Contest
	admin   *app.Admin
	closers []func() error
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func newLogger(cfg config.Config) *zap.Logger {
	return logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Development: cfg.Log.Development,
	})
}

func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func buildServices(ctx context.Context, cfg config.Config, log *zap.Logger) (*services, error) {
	svc := &services{}

	catalog, err := loadCatalog(ctx, cfg)
	if err != nil {
		return nil, err
	}
	startsAt, err := cfg.Contest.StartTime()
	if err != nil {
		return nil, err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, redisClient.Close)
	}

	var gateway app.Gateway
	switch cfg.StoreBackend() {
	case config.StoreRedis:
		gateway = redisinfra.NewGateway(redisClient)
	case config.StorePostgres:
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			svc.Close()
			return nil, err
		}
		db := postgres.Open(cfg.Postgres.URL)
		svc.closers = append(svc.closers, db.Close)
		gateway = postgres.NewGateway(db)
	default:
		gateway = memory.NewTables().Gateway()
	}
	gateway.Winners = memory.NewWinnerBoard(gateway.Winners, config.TTLDuration(cfg.Winners.CacheTTL, 5*time.Second))

	var sessions app.SessionRepository
	sessionTTL := config.TTLDuration(cfg.Session.TTL, 2*time.Hour)
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	svc.contest = app.NewContest(catalog, gateway, cfg.Contest.TimeLimit(),
		app.WithGate(timer.NewGate(startsAt)),
		app.WithSessionRepository(sessions),
		app.WithLogger(log),
	)
	svc.admin = app.NewAdmin(gateway, strings.TrimSpace(cfg.Contest.AdminPassword), log)

	log.Info("contest configured",
		zap.String("store", cfg.StoreBackend()),
		zap.String("catalog", cfg.Contest.CatalogSourceName()),
		zap.Int("keys", catalog.Len()),
		zap.Int("timeLimitSeconds", cfg.Contest.TimeLimitSeconds),
		zap.Time("startsAt", startsAt),
	)
	return svc, nil
}

func loadCatalog(ctx context.Context, cfg config.Config) (*domain.Catalog, error) {
	if cfg.Contest.CatalogSourceName() != config.CatalogFromPostgres {
		return domain.NewCatalog(cfg.Contest.Entries)
	}
	if cfg.Postgres.URL == "" {
		return nil, fmt.Errorf("%w: postgres catalog selected without postgres.url", domain.ErrConfigurationInvalid)
	}
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()
	return postgres.NewCatalogLoader(pool).LoadCatalog(ctx)
}
