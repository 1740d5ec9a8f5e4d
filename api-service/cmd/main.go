package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/weiawesome/campus-live/api-service/internal/cache"
	"github.com/weiawesome/campus-live/api-service/internal/config"
	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/api-service/internal/handler"
	"github.com/weiawesome/campus-live/api-service/internal/repository"
	"github.com/weiawesome/campus-live/api-service/internal/service"
	"github.com/weiawesome/campus-live/pkg/database"
	"github.com/weiawesome/campus-live/pkg/idgen"
	"github.com/weiawesome/campus-live/pkg/jwt"
	pkglog "github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/middleware"
	"github.com/weiawesome/campus-live/pkg/pubsub"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	// Connect to database using GORM
	db, err := database.New(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	models := []any{&domain.UserModel{}}
	if cfg.MessageStore.Driver != "cassandra" {
		models = append(models, &domain.MessageModel{})
	}
	if err := database.AutoMigrate(db, models...); err != nil {
		log.Fatalf("Failed to auto-migrate: %v", err)
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")

	// Initialize repositories
	userRepo := repository.NewGormUserRepository(db)

	var messageRepo repository.MessageRepository
	switch cfg.MessageStore.Driver {
	case "cassandra":
		messageRepo, err = repository.NewCassandraMessageRepository(cfg.Cassandra)
		if err != nil {
			log.Fatalf("Failed to create cassandra repository: %v", err)
		}
	case "gorm", "":
		messageRepo = repository.NewGormMessageRepository(db)
	default:
		log.Fatalf("Unknown message store driver: %s", cfg.MessageStore.Driver)
	}
	defer messageRepo.Close()

	// Initialize Redis cache
	var msgCache cache.MessageCache
	if cfg.Cache.Enabled {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := pubsub.NewRedisClient(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.Fatalf("Failed to create redis cache: %v", err)
		}
		msgCache = cache.NewRedisMessageCache(client, cfg.Cache.Prefix)
		defer msgCache.Close()
	}

	// Initialize token manager
	var tokens *jwt.Manager
	if cfg.JWT.PrivateKeyFile != "" {
		key, err := jwt.LoadPrivateKey(cfg.JWT.PrivateKeyFile)
		if err != nil {
			log.Fatalf("Failed to load jwt key: %v", err)
		}
		tokens = jwt.NewManagerWithKey(key, cfg.JWT.AccessDuration, cfg.JWT.RefreshDuration, cfg.JWT.Issuer)
	} else {
		logger.Warn().Msg("no jwt private key configured, generating an ephemeral key")
		tokens, err = jwt.NewManager(cfg.JWT.AccessDuration, cfg.JWT.RefreshDuration, cfg.JWT.Issuer)
		if err != nil {
			log.Fatalf("Failed to create jwt manager: %v", err)
		}
	}

	ids, err := idgen.NewSnowflake(cfg.IDGen.MachineID, idgen.DefaultEpoch)
	if err != nil {
		log.Fatalf("Failed to create id generator: %v", err)
	}

	// Initialize services
	userService := service.NewUserService(userRepo, tokens)
	messageService := service.NewMessageService(messageRepo, msgCache, ids, service.MessageServiceConfig{
		DefaultLimit: cfg.MessageStore.DefaultLimit,
		MaxLimit:     cfg.MessageStore.MaxLimit,
		CacheTTL:     cfg.Cache.TTL,
	})
	tokenService := service.NewTokenService(tokens, cfg.Realtime.TokenTTL)

	httpHandler := handler.NewHandler(userService, messageService, tokenService, middleware.NewAuthMiddleware(tokens))

	// Setup Gin router
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(pkglog.GinMiddleware(logger))

	httpHandler.RegisterRoutes(router)

	// Drop stale revocation entries in the background.
	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tokens.CleanupExpiredRevocations()
			}
		}
	}()

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		logger.Info().Str("addr", addr).Str("message_store", cfg.MessageStore.Driver).Msg("api-service starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}
