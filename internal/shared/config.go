package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	MetricsAddr string

	APIBase      string
	HotelID      string
	CollectionID string // payment-collection identifier, attached to submissions

	RedisAddr string
	RedisDB   int
	RedisPass string
	NATSURL   string

	PollInterval      time.Duration
	SubmitTimeout     time.Duration
	CacheTTL          time.Duration
	BackendRPS        int
	MaxProofBytes     int64
	IncludeCommission bool
	Currency          string
	Discount          int64
}

// Load reads the configuration once at startup. A .env file is applied when
// present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	abool := func(k string, def bool) bool {
		if v := os.Getenv(k); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
		}
		return def
	}

	c := Config{
		AppEnv:            env("APP_ENV", "prod"),
		HTTPAddr:          env("HTTP_ADDR", ":8080"),
		MetricsAddr:       env("METRICS_ADDR", ":9100"),
		APIBase:           env("API_BASE_URL", "http://localhost:5000/api"),
		HotelID:           env("HOTEL_ID", ""),
		CollectionID:      env("PAYMENT_COLLECTION_ID", ""),
		RedisAddr:         env("REDIS_ADDR", "localhost:6379"),
		RedisPass:         env("REDIS_PASSWORD", ""),
		RedisDB:           atoi("REDIS_DB", 0),
		NATSURL:           env("NATS_URL", ""),
		PollInterval:      time.Duration(atoi("POLL_INTERVAL_SECONDS", 30)) * time.Second,
		SubmitTimeout:     time.Duration(atoi("SUBMIT_TIMEOUT_SECONDS", 30)) * time.Second,
		CacheTTL:          time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		BackendRPS:        atoi("BACKEND_RPS", 5),
		MaxProofBytes:     int64(atoi("MAX_PROOF_BYTES", 10<<20)),
		IncludeCommission: abool("PRICE_INCLUDE_COMMISSION", true),
		Currency:          env("CURRENCY", "INR"),
		Discount:          int64(atoi("PRICE_DISCOUNT", 0)),
	}
	if c.HotelID == "" {
		log.Warn().Msg("HOTEL_ID is empty")
	}
	return c
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
