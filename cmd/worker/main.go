package main

import (
	"os"
	"os/signal"
	"syscall"

	"library-backend/pkg/container"

	"github.com/rs/zerolog/log"
)

func main() {
	c, err := container.NewContainer()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize container")
	}
	defer c.Cleanup()

	if c.Config.Redis.Disabled {
		log.Fatal().Msg("worker requires redis, unset REDIS_DISABLED")
	}

	cfg := loadConfig(c.Config)
	handlers := initializeHandlers(c)

	if err := startServices(cfg); err != nil {
		log.Fatal().Err(err).Msg("startup health check failed")
	}

	srv := setupAsynqServer(cfg, handlers)
	scheduler := setupScheduler(cfg)

	waitForShutdown(srv, scheduler)
}

func waitForShutdown(srv *asynqServer, scheduler *asynqScheduler) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("worker shutting down")
	scheduler.Shutdown()
	srv.Shutdown()
	log.Info().Msg("worker stopped")
}
