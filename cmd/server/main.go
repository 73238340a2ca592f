package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/api"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/config"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/repository"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/database/service"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/handler"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/logger"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/middleware"
	"github.com/Virtus92/Rising-BSM-Dev-sub006/internal/worker"
)

func main() {
	// 1. Config
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	appLogger.Info("🚀 [Server] Starting session service...",
		"environment", cfg.AppEnv,
	)

	// 3. Connect to Database
	if err := database.ConnectDatabase(cfg, appLogger); err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}

	db := database.GetDatabase()

	// 4. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	// 5. Initialize Login Limiter (Redis, no-op fallback)
	loginLimiter, err := middleware.NewLoginLimiter(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis, using no-op login limiter", "error", err)
		loginLimiter = middleware.NewNoOpLoginLimiter(appLogger)
	}
	defer loginLimiter.Close()

	// 6. Initialize Worker Pool & Services
	pool := worker.NewPool(appLogger)

	tokenService := service.NewTokenService(cfg)
	rotationService := service.NewRotationService(tokenRepo, userRepo, tokenService, cfg.RotationEnabled, appLogger)
	authService := service.NewAuthService(userRepo, tokenRepo, activityRepo, rotationService, tokenService, pool, cfg, appLogger)

	// 7. Start Expiry Sweeper
	sweeper := worker.NewSweeper(tokenRepo, time.Duration(cfg.SweepIntervalHours)*time.Hour, appLogger)
	pool.Submit(sweeper.Run)

	// 8. Initialize Handlers & Middleware
	authHandler := handler.NewAuthHandler(authService, loginLimiter, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)

	r := api.SetupRouter(authHandler, authMiddleware)

	// 9. Start HTTP Server
	addr := fmt.Sprintf(":%s", cfg.ApiServicePort)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		appLogger.Info("🌍 [Server] HTTP Server running...", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("❌ HTTP Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 10. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("🛑 [Server] Shutdown signal received")

	shutdownTimeout := time.Duration(cfg.ShutdownTimeoutSeconds) * time.Second

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("❌ HTTP Server shutdown failed", "error", err)
	}

	pool.Shutdown(shutdownTimeout)

	appLogger.Info("✅ [Server] Shutdown complete")
}
