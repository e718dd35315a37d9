package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"blaze/internal/cache"
	"blaze/internal/config"
	"blaze/internal/events"
	"blaze/internal/http/handlers"
	"blaze/internal/http/server"
	"blaze/internal/payments"
	"blaze/internal/repos"
	"blaze/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "blaze",
		Short:        "Blaze peer-to-peer marketplace",
		SilenceUsage: true,
		RunE:         serve,
	}
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP server", RunE: serve},
		&cobra.Command{Use: "migrate", Short: "Apply database migrations and exit", RunE: migrateCmd},
		&cobra.Command{Use: "seed", Short: "Insert demo users and listings", RunE: seed},
	)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return cfg, err
	}
	// Optional file logging
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Printf("[warn] could not open log file %s: %v", cfg.LogFile, err)
		} else {
			log.SetOutput(io.MultiWriter(os.Stdout, f))
		}
	}
	return cfg, nil
}

func migrateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	return db.Close()
}

func seed(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	return repos.SeedDemo(cmd.Context(), db)
}

func serve(cmd *cobra.Command, _ []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.SeedDemo {
		if err := repos.SeedDemo(cmd.Context(), db); err != nil {
			return err
		}
	}

	media, err := storage.NewMedia(cfg.MediaDir, cfg.MediaURL)
	if err != nil {
		return err
	}
	log.Printf("[static] %s -> %s", cfg.MediaURL, media.Dir())

	infra := handlers.Infra{
		Media:    media,
		Payments: payments.NewStripe(cfg.Stripe.SecretKey, cfg.Stripe.WebhookSecret, cfg.Stripe.Currency),
	}
	if cfg.Stripe.SecretKey == "" || cfg.Stripe.WebhookSecret == "" {
		log.Printf("[warn] STRIPE_SECRET_KEY or STRIPE_WEBHOOK_SECRET unset; checkout and webhooks will fail")
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		infra.Cache = cache.NewRedisListings(rdb, cfg.Redis.ListingTTL)
		log.Printf("[cache] listings -> redis %s ttl=%s", cfg.Redis.Addr, cfg.Redis.ListingTTL)
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrdersTopic)
		defer pub.Close()
		infra.Events = pub
		log.Printf("[events] orders -> kafka topic %s", cfg.Kafka.OrdersTopic)
	}

	app, err := server.New(cfg, handlers.NewDeps(db, cfg, infra))
	if err != nil {
		return err
	}

	errc := make(chan error, 1)
	go func() { errc <- app.Listen(":" + cfg.Port) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errc:
		return err
	case <-stop:
	}
	log.Printf("[server] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(ctx)
}
