package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/api"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/app"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/app/maintenance"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/cache"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/database"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry/fsa"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/registry/off"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/services"
	"github.com/Katy0987/uk-food-nutrition-data-platform/internal/store"
	"github.com/Katy0987/uk-food-nutrition-data-platform/pkg/logger"
)

// runtimeStack bundles long-lived components used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Cache   cache.Store
	Backend string
	Sweeper *maintenance.Sweeper
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, cache tier, registry clients,
// services, and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Cache, stack.Backend = initialiseCache(cfg, stack.DB, log)

	stack.Sweeper = maintenance.NewSweeper(stack.DB,
		maintenance.WithSchedule(cfg.Resolver.SweepSchedule))
	if err := stack.Sweeper.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	fsaClient := newFSAClient(cfg.Registries.FSA)
	offClient := newOFFClient(cfg.Registries.OFF)

	estStore, err := store.NewEstablishmentStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise establishment store: %w", err)
	}
	prodStore, err := store.NewProductStore(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise product store: %w", err)
	}

	estResolver, err := services.NewEstablishmentResolver(cfg.ResolverSettings("fsa"), stack.Cache, estStore, fsaClient)
	if err != nil {
		return nil, fmt.Errorf("initialise establishment resolver: %w", err)
	}
	prodResolver, err := services.NewProductResolver(cfg.ResolverSettings("off"), stack.Cache, prodStore, offClient)
	if err != nil {
		return nil, fmt.Errorf("initialise product resolver: %w", err)
	}

	estSvc, err := services.NewEstablishmentService(estResolver, estStore, fsaClient, stack.Cache)
	if err != nil {
		return nil, fmt.Errorf("initialise establishment service: %w", err)
	}
	prodSvc, err := services.NewProductService(prodResolver, prodStore, offClient, stack.Cache)
	if err != nil {
		return nil, fmt.Errorf("initialise product service: %w", err)
	}
	insightSvc, err := services.NewInsightService(estStore, prodStore, stack.Cache)
	if err != nil {
		return nil, fmt.Errorf("initialise insight service: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Deps{
		DB:              stack.DB,
		Cache:           stack.Cache,
		CacheBackend:    stack.Backend,
		Establishments:  estSvc,
		Products:        prodSvc,
		Insights:        insightSvc,
		RateLimitMax:    cfg.Server.RateLimit.Max,
		RateLimitWindow: cfg.Server.RateLimit.Window,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Sweeper != nil {
		stopCtx := s.Sweeper.Stop()
		if err := s.Sweeper.RunOnce(stopCtx); err != nil {
			log.Warn("maintenance shutdown sweep failed", zap.Error(err))
		}
	}

	if rs, ok := s.Cache.(*cache.RedisStore); ok && rs != nil {
		if err := rs.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.StoreConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

// initialiseCache picks the volatile cache backend. Redis is preferred when
// enabled and reachable; otherwise the database-backed store serves the
// cache tier. A nil store disables caching entirely.
func initialiseCache(cfg *app.Config, db *gorm.DB, log *zap.Logger) (cache.Store, string) {
	if !cfg.Cache.Enabled {
		log.Info("caching disabled")
		return nil, "none"
	}

	if cfg.Cache.Redis.Enabled {
		redisStore, err := cache.NewRedisStore(cfg.Cache.RedisClientConfig())
		if err != nil {
			log.Warn("redis unavailable; falling back to database-backed cache", zap.Error(err))
		} else {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
			return redisStore, "redis"
		}
	}

	return cache.NewDatabaseStore(db), "database"
}

func newFSAClient(cfg app.UpstreamConfig) *fsa.Client {
	opts := []fsa.Option{fsa.WithRetryPolicy(cfg.RetryPolicy())}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, fsa.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, fsa.WithHTTPClient(upstreamHTTPClient(cfg.Timeout)))
	}
	return fsa.NewClient(opts...)
}

func newOFFClient(cfg app.UpstreamConfig) *off.Client {
	opts := []off.Option{off.WithRetryPolicy(cfg.RetryPolicy())}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		opts = append(opts, off.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, off.WithHTTPClient(upstreamHTTPClient(cfg.Timeout)))
	}
	return off.NewClient(opts...)
}

func upstreamHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
