package container

import (
	"context"

	"wot-api/internal/config"
	"wot-api/internal/repository"
	"wot-api/internal/service"
	"wot-api/internal/service/auth"
	"wot-api/pkg/database"
	"wot-api/pkg/logger"
	"wot-api/pkg/redis"
)

// Services groups the application services.
type Services struct {
	Auth      service.AuthService
	Identity  service.IdentityService
	Vote      service.VoteService
	Poll      service.PollService
	Report    service.ReportService
	Migration service.MigrationService
}

// Container holds all application dependencies
type Container struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          *database.PostgresDB
	RedisClient *redis.Client
	Services    *Services
}

// New creates a new dependency injection container
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, error) {
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	// Redis is optional: without it the app loses caching, the live count
	// feed and the bootstrap lock, but every write path still works.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to initialize Redis client, proceeding without caching")
		} else {
			redisClient = client
			log.Info("Redis client initialized successfully")
		}
	} else {
		log.Info("Redis URL not configured, proceeding without caching")
	}

	pollRepo := repository.NewPollRepository(db)
	voteRepo := repository.NewVoteRepository(db)
	reportRepo := repository.NewReportRepository(db)
	logRepo := repository.NewCreationLogRepository(db)
	profileRepo := repository.NewProfileRepository(db)

	cache := service.NewCacheService(redisClient, log.Logger)
	rateLimit := service.NewRateLimitService(logRepo, log)
	moderator := service.NewModerationClient(cfg.ModerationURL, cfg.AuthAnonKey, log)
	images := service.NewStorageClient(cfg.StorageURL, cfg.StorageBucket, cfg.AuthAnonKey, log)

	migrationService := service.NewMigrationService(pollRepo, voteRepo, reportRepo, logRepo, log)
	authService := auth.NewService(cfg.AuthURL, cfg.AuthAnonKey, cfg.AuthJWTSecret, profileRepo, migrationService, log)
	identityService := service.NewIdentityService(authService, redisClient, log)
	voteService := service.NewVoteService(voteRepo, pollRepo, cache, log.Logger)
	pollService := service.NewPollService(pollRepo, voteRepo, rateLimit, moderator, images, log)
	reportService := service.NewReportService(reportRepo, log.Logger)

	return &Container{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		RedisClient: redisClient,
		Services: &Services{
			Auth:      authService,
			Identity:  identityService,
			Vote:      voteService,
			Poll:      pollService,
			Report:    reportService,
			Migration: migrationService,
		},
	}, nil
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logger.Logger {
	return c.Logger
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.Config
}

// GetRedisClient returns the Redis client (may be nil if not configured)
func (c *Container) GetRedisClient() *redis.Client {
	return c.RedisClient
}

// HasRedis returns true if Redis client is available
func (c *Container) HasRedis() bool {
	return c.RedisClient != nil
}
