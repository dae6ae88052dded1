package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/avolkov/spimexfeed/config"
	"github.com/avolkov/spimexfeed/internal/api"
	"github.com/avolkov/spimexfeed/internal/cache"
	"github.com/avolkov/spimexfeed/internal/service"
	"github.com/avolkov/spimexfeed/internal/storage"
)

// redisOpener is an indirection for unit testing; defaults to cache.NewRedis.
var redisOpener = cache.NewRedis

// InitializeApp sets up all application dependencies and returns
// a fully configured Gin router, a cleanup function for graceful shutdown,
// and any error encountered during initialization.
//
// Responsibilities:
//   - Connects to PostgreSQL and ensures the schema exists.
//   - Connects to Redis; an unreachable Redis disables caching but is not fatal.
//   - Wires the repository, the invalidation gate, the cache-fronted query
//     service, and the HTTP layer.
//   - Registers health and readiness probes.
//   - Provides a cleanup function to close resources (DB and cache connections).
func InitializeApp() (*gin.Engine, func(), error) {
	cfg := config.AppConfig

	// Connect to PostgreSQL
	// indirection for unit testing
	db, err := postgresOpener(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}

	repo := storage.NewRepository(db)
	if err := repo.EnsureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to ensure schema: %w", err)
	}

	// Redis is best-effort: a disabled cache instance still satisfies Backend.
	redisCache := redisOpener(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	gate := cache.NewGate(redisCache, cfg.Ingest.BoundaryHour, cfg.Ingest.BoundaryMinute)

	svc := service.NewTradingService(repo, redisCache, gate)
	handler := api.NewHandler(svc)
	router := api.NewRouter(handler)

	healthHandler := api.NewHealthHandler(db.Ping, redisCache.Enabled)
	healthHandler.Register(router)

	cleanup := func() {
		_ = redisCache.Close()
		_ = db.Close()
	}

	return router, cleanup, nil
}
