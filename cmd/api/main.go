package main

import (
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	server "github.com/chrisjannenga/review-insights/internal/adapters/http_server"
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

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// cache
	var cache domain.Cache
	switch cfg.CacheBackend {
	case "redis":
		cache = redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		log.Info().Str("addr", cfg.RedisAddr).Msg("using redis cache")
	default:
		cache = memcache.New()
		log.Info().Msg("using in-memory cache")
	}

	// upstreams
	directory, err := places.New(cfg.PlacesBase, cfg.PlacesKey, cfg.PlacesRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("places client init failed")
	}
	classifier, err := openaiad.New(cfg.OpenAIKey, cfg.OpenAIRPS)
	if err != nil {
		log.Fatal().Err(err).Msg("openai client init failed")
	}

	// services
	repo := mysqlrepo.New(db)
	analysis := app.NewAnalysisService(directory, classifier, cache, cfg.CacheTTL, cfg.ClassifyWorkers, cfg.ClassifyTimeout)
	claims := app.NewClaimService(repo, analysis)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{A: analysis, C: claims})

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
