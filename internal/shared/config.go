package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string

	// CacheBackend selects "memory" or "redis".
	CacheBackend string
	RedisAddr    string
	RedisDB      int
	RedisPass    string

	PlacesBase string
	PlacesKey  string
	PlacesRPS  int

	OpenAIKey string
	OpenAIRPS int

	ClassifyWorkers int
	ClassifyTimeout time.Duration
	CacheTTL        time.Duration

	// WarmWorkers bounds the pre-computation fan-out in cmd/warmer.
	WarmWorkers int
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:          env("APP_ENV", "prod"),
		HTTPAddr:        env("HTTP_ADDR", ":8080"),
		MetricsAddr:     env("METRICS_ADDR", ":9100"),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/insights?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		CacheBackend:    env("CACHE_BACKEND", "memory"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisDB:         atoi("REDIS_DB", 0),
		RedisPass:       env("REDIS_PASSWORD", ""),
		PlacesBase:      env("PLACES_BASE_URL", "https://places.googleapis.com/v1"),
		PlacesKey:       env("GOOGLE_PLACES_API_KEY", ""),
		PlacesRPS:       atoi("PLACES_RPS", 5),
		OpenAIKey:       env("OPENAI_API_KEY", ""),
		OpenAIRPS:       atoi("OPENAI_RPS", 3),
		ClassifyWorkers: atoi("CLASSIFY_WORKERS", 4),
		ClassifyTimeout: time.Duration(atoi("CLASSIFY_TIMEOUT_SECONDS", 10)) * time.Second,
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		WarmWorkers:     atoi("WARM_WORKERS", 8),
	}
	if c.PlacesKey == "" {
		log.Warn().Msg("GOOGLE_PLACES_API_KEY is empty")
	}
	if c.OpenAIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
