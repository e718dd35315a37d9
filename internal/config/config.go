package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env          string `env:"APP_ENV" envDefault:"development"`
	Port         string `env:"PORT" envDefault:"8080"`
	BaseURL      string `env:"BASE_URL" envDefault:"http://localhost:8080"`
	DBDSN        string `env:"DB_DSN" envDefault:"blaze.db"`
	MediaDir     string `env:"MEDIA_DIR" envDefault:"./web/media"`
	MediaURL     string `env:"MEDIA_URL" envDefault:"/media"`
	LogFile      string `env:"LOG_FILE"`
	SeedDemo     bool   `env:"SEED_DEMO" envDefault:"false"`
	CookieSecure bool   `env:"COOKIE_SECURE" envDefault:"false"`

	Stripe Stripe `envPrefix:"STRIPE_"`
	Redis  Redis  `envPrefix:"REDIS_"`
	Kafka  Kafka  `envPrefix:"KAFKA_"`
}

type Stripe struct {
	SecretKey     string `env:"SECRET_KEY"`
	WebhookSecret string `env:"WEBHOOK_SECRET"`
	Currency      string `env:"CURRENCY" envDefault:"usd"`
}

// Redis is optional; an empty Addr disables the listing cache.
type Redis struct {
	Addr       string        `env:"ADDR"`
	Password   string        `env:"PASSWORD"`
	DB         int           `env:"DB" envDefault:"0"`
	ListingTTL time.Duration `env:"LISTING_TTL" envDefault:"30s"`
}

// Kafka is optional; without brokers order events go to the log.
type Kafka struct {
	Brokers     []string `env:"BROKERS" envSeparator:","`
	OrdersTopic string   `env:"ORDERS_TOPIC" envDefault:"blaze.orders"`
}

func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[config] no .env file loaded (%v), using process environment", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, err
	}
	log.Printf("[config] APP_ENV=%s PORT=%s BASE_URL=%s DB_DSN=%s MEDIA_DIR=%s LOG_FILE=%s REDIS=%t KAFKA=%t",
		cfg.Env, cfg.Port, cfg.BaseURL, cfg.DBDSN, cfg.MediaDir, cfg.LogFile,
		cfg.Redis.Addr != "", len(cfg.Kafka.Brokers) > 0)
	return cfg, nil
}
