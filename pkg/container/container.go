package container

import (
	"context"
	"fmt"
	"time"

	"library-backend/internal/config"
	infraCache "library-backend/internal/infrastructure/cache"
	"library-backend/internal/infrastructure/database"
	"library-backend/internal/infrastructure/googlebooks"
	"library-backend/internal/infrastructure/queue"
	"library-backend/internal/shared/middleware"
	"library-backend/pkg/cache"
	"library-backend/pkg/jwt"
	"library-backend/pkg/logger"

	bookHandler "library-backend/internal/domains/book/handler"
	bookRepo "library-backend/internal/domains/book/repository"
	bookService "library-backend/internal/domains/book/service"
	favoriteHandler "library-backend/internal/domains/favorite/handler"
	favoriteService "library-backend/internal/domains/favorite/service"
	lendingHandler "library-backend/internal/domains/lending/handler"
	lendingService "library-backend/internal/domains/lending/service"
	"library-backend/internal/domains/user"
	userHandler "library-backend/internal/domains/user/handler"
	userRepo "library-backend/internal/domains/user/repository"
	userService "library-backend/internal/domains/user/service"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog/log"
)

// Container holds every long-lived dependency of the API process.
//
// Initialization order matters: config, infrastructure, repositories,
// services, handlers.
type Container struct {
	Config     *config.Config
	DB         *database.PostgresDB
	Cache      cache.Cache
	JWTManager *jwt.Manager
	Queue      *asynq.Client
	Enqueuer   *queue.Enqueuer
	Catalog    *googlebooks.Client

	BookRepo bookRepo.RepositoryInterface
	UserRepo user.Repository

	BookService     bookService.ServiceInterface
	UserService     user.Service
	LendingService  lendingService.ServiceInterface
	FavoriteService favoriteService.ServiceInterface

	BookHandler     *bookHandler.Handler
	UserHandler     *userHandler.UserHandler
	LendingHandler  *lendingHandler.Handler
	FavoriteHandler *favoriteHandler.Handler

	RateLimiter *middleware.RateLimiter
}

func NewContainer() (*Container, error) {
	c := &Container{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	c.Config = cfg
	logger.Init(cfg.App.Environment, cfg.App.LogLevel)
	log.Info().Str("env", cfg.App.Environment).Msg("initializing container")

	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}

	c.initRepositories()
	c.initServices()
	c.initHandlers()

	log.Info().Msg("container initialized")
	return c, nil
}

func (c *Container) initInfrastructure() error {
	cfg := c.Config

	dbConfig, err := config.LoadDatabaseConfig()
	if err != nil {
		return fmt.Errorf("failed to load database config: %w", err)
	}

	db := database.NewPostgresDB(dbConfig)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	c.DB = db

	if cfg.Redis.Disabled {
		log.Warn().Msg("redis disabled, using in-process cache")
		c.Cache = cache.NewMemoryCache()
	} else {
		rc := infraCache.NewRedisCache(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
		if err := rc.Connect(ctx); err != nil {
			// The cache is an optimisation; reads fall through to Postgres.
			log.Warn().Err(err).Msg("redis connection failed, continuing")
		}
		c.Cache = rc

		c.Queue = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Redis.Host,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		c.Enqueuer = queue.NewEnqueuer(c.Queue)
	}

	c.JWTManager = jwt.NewManager(
		cfg.JWT.Secret,
		time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute,
		time.Duration(cfg.JWT.RefreshTokenExpiry)*time.Hour,
	)

	c.Catalog = googlebooks.NewClient(googlebooks.Config{
		BaseURL:    cfg.GoogleBooks.BaseURL,
		APIKey:     cfg.GoogleBooks.APIKey,
		MaxResults: cfg.GoogleBooks.MaxResults,
		Timeout:    cfg.GoogleBooks.Timeout,
	})

	c.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	return nil
}

func (c *Container) initRepositories() {
	c.BookRepo = bookRepo.NewPostgresRepository(c.DB.Pool)
	c.UserRepo = userRepo.NewPostgresRepository(c.DB.Pool)
}

func (c *Container) initServices() {
	c.BookService = bookService.NewService(c.BookRepo, c.Cache, c.Catalog)
	c.UserService = userService.NewUserService(c.UserRepo, c.BookRepo, c.JWTManager)

	// A nil *Enqueuer must not leak into the interface.
	var enqueuer lendingService.ReconcileEnqueuer
	if c.Enqueuer != nil {
		enqueuer = c.Enqueuer
	}
	c.LendingService = lendingService.NewService(c.BookRepo, c.UserRepo, c.Cache, enqueuer, lendingService.Config{
		MaxLoanDays:    c.Config.Lending.MaxLoanDays,
		ReconcileGrace: c.Config.Lending.ReconcileGrace,
	})
	c.FavoriteService = favoriteService.NewService(c.BookRepo, c.UserRepo)
}

func (c *Container) initHandlers() {
	c.BookHandler = bookHandler.NewHandler(c.BookService)
	c.UserHandler = userHandler.NewUserHandler(c.UserService)
	c.LendingHandler = lendingHandler.NewHandler(c.LendingService)
	c.FavoriteHandler = favoriteHandler.NewHandler(c.FavoriteService)
}

// HealthCheck pings Postgres and the cache.
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"database": "up", "cache": "up"}
	if err := c.DB.HealthCheck(ctx); err != nil {
		status["database"] = "down"
	}
	if err := c.Cache.Ping(ctx); err != nil {
		status["cache"] = "down"
	}
	return status
}

// Cleanup releases connections on shutdown.
func (c *Container) Cleanup() {
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close asynq client")
		}
	}
	if rc, ok := c.Cache.(*infraCache.RedisCache); ok {
		if err := rc.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	log.Info().Msg("container cleanup completed")
}
