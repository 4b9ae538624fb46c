package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/go-blog-api/docs" // Swagger docs (generated)
	"github.com/redmonkez12/go-blog-api/internal/auth"
	"github.com/redmonkez12/go-blog-api/internal/cache"
	"github.com/redmonkez12/go-blog-api/internal/config"
	"github.com/redmonkez12/go-blog-api/internal/database"
	httpServer "github.com/redmonkez12/go-blog-api/internal/http"
	"github.com/redmonkez12/go-blog-api/internal/logging"
	"github.com/redmonkez12/go-blog-api/internal/post"
	"github.com/redmonkez12/go-blog-api/internal/user"
)

// @title           Blog API
// @version         1.0
// @description     A multi-user blogging API with bearer-token authentication.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	if cfg.Auth.UsingFallbackKey {
		// Degraded security mode: tokens signed with a publicly known key
		logger.Warn("TOKEN_KEY not set, using built-in development key; do not run this configuration in production")
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	redisClient, err := initRedis(cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := user.NewPGRepository(db)
	postRepo := post.NewPGRepository(db)

	// Auth core
	hasher := auth.NewHasher()
	tokenService, err := auth.NewPasetoService(cfg.Auth.TokenKey, cfg.Auth.TokenDuration)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	authMiddleware := auth.NewMiddleware(tokenService)

	// Cache
	postCache := cache.NewPostListCache(redisClient, cfg.Cache.PostListTTL)

	// Services and handlers
	userService := user.NewService(userRepo, postRepo, hasher, tokenService)
	userHandler := user.NewHandler(userService, postCache, cfg.Server.IsDevelopment())
	postHandler := post.NewHandler(postRepo, postCache, cfg.Server.IsDevelopment())

	router := httpServer.NewRouter(cfg, userHandler, postHandler, authMiddleware, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
		logger,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return err
		}
	}

	return nil
}

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
