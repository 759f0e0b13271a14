package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kyz7/console/internal/apiclient"
	"github.com/Kyz7/console/internal/audit"
	"github.com/Kyz7/console/internal/auth"
	"github.com/Kyz7/console/internal/config"
	"github.com/Kyz7/console/internal/database"
	"github.com/Kyz7/console/internal/logger"
	"github.com/Kyz7/console/internal/server"
	"github.com/Kyz7/console/internal/session"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.AppEnv)
	if err != nil {
		log.Fatal("failed to build logger: ", err)
	}
	defer zl.Sync()

	if err := auth.ValidateSecret(cfg.JWTSecret); err != nil {
		if !cfg.IsDevelopment() {
			zl.Fatal("JWT configuration error", zap.Error(err))
		}
		zl.Warn("JWT secret is not production ready", zap.Error(err))
	} else {
		zl.Info("JWT secret validated")
	}

	// ========== DATABASE SETUP ==========
	db, err := database.Connect(cfg)
	if err != nil {
		zl.Fatal("database connection failed", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		zl.Fatal("migration failed", zap.Error(err))
	}
	zl.Info("database migrated", zap.String("driver", cfg.DBDriver))

	// ========== BACKEND CLIENT & SESSIONS ==========
	client := apiclient.New(apiclient.Options{
		BaseURL: cfg.APIBaseURL,
		Timeout: cfg.UpstreamTimeout,
		Debug:   cfg.IsDevelopment(),
	}, zl.Named("apiclient"))

	sessions := session.NewManager(client, cfg.FilterDebounce, zl.Named("session"))
	defer sessions.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ========== BACKGROUND JOBS ==========
	go sessions.Run(ctx, time.Minute, cfg.SessionTTL)

	// ========== START SERVER ==========
	app := server.New(server.Deps{
		Verifier:      auth.NewVerifier(cfg.JWTSecret),
		Sessions:      sessions,
		Deleter:       client,
		Audit:         audit.NewStore(db),
		Log:           zl,
		SettleTimeout: cfg.UpstreamTimeout + cfg.FilterDebounce,
	})

	go func() {
		<-ctx.Done()
		zl.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			zl.Error("shutdown failed", zap.Error(err))
		}
	}()

	zl.Info("console server starting",
		zap.String("addr", cfg.ServerAddr),
		zap.String("backend", cfg.APIBaseURL),
		zap.String("env", cfg.AppEnv))

	if err := app.Listen(cfg.ServerAddr); err != nil {
		zl.Fatal("failed to start server", zap.Error(err))
	}
}
