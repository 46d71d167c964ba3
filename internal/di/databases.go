package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/marketintel/internal/cache"
	"github.com/aristath/marketintel/internal/clientdata"
	"github.com/aristath/marketintel/internal/config"
	"github.com/aristath/marketintel/internal/database"
)

// InitializeDatabases opens and migrates the service database and selects the response cache store.
// Redis backs the cache when REDIS_URL is set, otherwise the client_data table does.
func InitializeDatabases(cfg *config.Config, container *Container, log zerolog.Logger) error {
	db, err := database.New(database.Config{
		URL:     cfg.DatabaseURL,
		Profile: database.ProfileStandard,
		Name:    "intel",
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	container.DB = db
	container.ClientDataRepo = clientdata.NewRepository(db.Conn())

	log.Info().
		Str("driver", string(db.Driver())).
		Str("path", db.Path()).
		Msg("Database initialized")

	var store cache.Store = container.ClientDataRepo
	if cfg.RedisURL != "" {
		redisStore, err := cache.NewRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		if err := redisStore.Ping(ctx); err != nil {
			_ = redisStore.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		container.Redis = redisStore
		store = redisStore
		log.Info().Msg("Response cache backed by Redis")
	} else {
		log.Info().Msg("Response cache backed by client_data table")
	}

	container.CacheLoader = cache.NewLoader(store, container.Metrics, log)
	return nil
}
