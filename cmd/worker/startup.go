package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
	"github.com/rs/zerolog/log"
)

type HealthChecker struct {
	redisClient *redis.Client
}

// startServices checks Redis and exposes the worker's health probes.
func startServices(cfg *Config) error {
	checker := &HealthChecker{
		redisClient: redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		}),
	}

	if err := checker.checkRedis(); err != nil {
		return fmt.Errorf("redis connection: %w", err)
	}
	log.Info().Msg("redis connection ok")

	go startHealthCheckServer(cfg.HealthAddr, checker)
	return nil
}

func (h *HealthChecker) checkRedis() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.redisClient.Ping(ctx).Err()
}

func startHealthCheckServer(addr string, h *HealthChecker) {
	router := gin.New()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": "library-worker"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := h.checkRedis(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "NOT_READY"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "READY"})
	})

	log.Info().Str("addr", addr).Msg("health check server starting")
	if err := router.Run(addr); err != nil {
		log.Error().Err(err).Msg("health check server failed")
	}
}
