package main

import (
	"os"

	"library-backend/internal/config"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Config holds worker-only settings layered on the shared config.
type Config struct {
	Redis       asynq.RedisClientOpt
	Lending     config.LendingConfig
	HealthAddr  string
	Concurrency int
}

func loadConfig(app *config.Config) *Config {
	cfg := &Config{
		Redis: asynq.RedisClientOpt{
			Addr:     app.Redis.Host,
			Password: app.Redis.Password,
			DB:       app.Redis.DB,
		},
		Lending:     app.Lending,
		HealthAddr:  ":9999",
		Concurrency: 5,
	}
	if addr := os.Getenv("WORKER_HEALTH_ADDR"); addr != "" {
		cfg.HealthAddr = addr
	}

	log.Info().
		Str("redis", cfg.Redis.Addr).
		Str("reconcile_cron", cfg.Lending.ReconcileCron).
		Msg("worker config loaded")
	return cfg
}
