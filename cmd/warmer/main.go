package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/chrisjannenga/review-insights/internal/adapters/memcache"
	"github.com/chrisjannenga/review-insights/internal/adapters/observability"
	openaiad "github.com/chrisjannenga/review-insights/internal/adapters/openai"
	"github.com/chrisjannenga/review-insights/internal/adapters/places"
	redisad "github.com/chrisjannenga/review-insights/internal/adapters/redis"
	"github.com/chrisjannenga/review-insights/internal/app"
	"github.com/chrisjannenga/review-insights/internal/domain"
	"github.com/chrisjannenga/review-insights/internal/shared"
	mysqlrepo "github.com/chrisjannenga/review-insights/internal/storage/mysql"
)

// warmer pre-computes aggregates for every claimed place so the first
// dashboard hit after a cache flush is served warm.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Str("base", cfg.PlacesBase).
		Int("workers", cfg.WarmWorkers).
		Msg("warmer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)

	directory, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("places client init failed")
	}
	classifier, err := openaiad.New(cfg.OpenAIKey, cfg.OpenAIRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("openai client init failed")
	}

	var cache domain.Cache
	if cfg.CacheBackend == "redis" {
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	} else {
		// a process-local cache makes the warmer a dry run only
		log.Warn().Msg("CACHE_BACKEND is not redis, warmed entries will not outlive this process")
		cache = memcache.New()
	}

	analysis := app.NewAnalysisService(directory, classifier, cache, cfg.CacheTTL, cfg.ClassifyWorkers, cfg.ClassifyTimeout)

	ids, err := repo.ListClaimedPlaceIDs(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listing claimed places failed")
	}
	log.Info().Int("places", len(ids)).Msg("warming claimed places")

	sem := semaphore.NewWeighted(int64(cfg.WarmWorkers))
	var wg sync.WaitGroup

	for _, id := range ids {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(placeID string) {
			defer wg.Done()
			defer sem.Release(1)

			d, err := analysis.Refresh(ctx, placeID)
			if err != nil {
				log.Warn().Str("id", placeID).Err(err).Msg("warm failed")
				return
			}
			if err := repo.UpsertReviews(ctx, placeID, d.Place.Reviews); err != nil {
				log.Warn().Str("id", placeID).Err(err).Msg("review snapshot failed")
			}
			log.Info().Str("id", placeID).Msg("warm ok")
		}(id)
	}

	wg.Wait()
	log.Info().Msg("warming completed")
}
