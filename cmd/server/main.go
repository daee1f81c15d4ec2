// @title                       User Accounts API
// @version                     1.0
// @description                 Registration, token authentication and role-based user administration.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/99minutos/user-accounts/internal/api"
	"github.com/99minutos/user-accounts/internal/api/handler"
	"github.com/99minutos/user-accounts/internal/core/service"
	mongodb "github.com/99minutos/user-accounts/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/user-accounts/internal/infrastructure/db/redis"
	"github.com/99minutos/user-accounts/internal/infrastructure/queue"
	"github.com/99minutos/user-accounts/internal/pkg/config"
	"github.com/99minutos/user-accounts/pkg/logger"
)

const (
	serviceName     = "user-accounts"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: serviceName,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MongoDB is required; failing to reach it or build indexes aborts startup.
	client, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  serviceName,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	userRepo := mongodb.NewUserRepository(db)
	auditRepo := mongodb.NewAuditRepository(db)
	if err := userRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create user indexes")
	}
	if err := auditRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to create audit indexes")
	}

	// Redis only backs the login throttle; run without it when unreachable.
	var authOpts []service.AuthOption
	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, login throttling disabled")
	} else {
		defer func() { _ = rdb.Close() }()
		authOpts = append(authOpts, service.WithLoginThrottle(
			redisdb.NewLoginThrottle(rdb, cfg.Auth.MaxAttempts, cfg.Auth.LoginWindow),
		))
	}

	dispatcher := queue.NewDispatcher(cfg.Audit.Workers, auditRepo, log)
	dispatcher.Start(ctx)
	authOpts = append(authOpts, service.WithAuthAudit(dispatcher))

	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	issuer := service.NewJWTIssuer(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	access := service.NewAccessControl()

	authService := service.NewAuthService(userRepo, hasher, issuer, cfg.Auth.TokenTTL, log, authOpts...)
	userService := service.NewUserService(userRepo, hasher, access, dispatcher, log)

	e := api.NewRouter(api.Deps{
		AuthService: authService,
		UserService: userService,
		Access:      access,
		Readiness: map[string]handler.Pinger{
			"mongodb": handler.MongoPinger(db),
			"redis":   handler.RedisPinger(rdb),
		},
		Logger:      log,
		CORSOrigins: cfg.CORSAllowedOrigins,
		RateLimit: api.RateLimit{
			RPS:   cfg.RateLimit.RPS,
			Burst: cfg.RateLimit.Burst,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	cancel()
	log.Info().Msg("server exited properly")
}
