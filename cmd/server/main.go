// Package main runs the Tally ingestion HTTP server with graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/config"
	"github.com/stranger-beers/ingestion/internal/audit"
	"github.com/stranger-beers/ingestion/internal/auth"
	"github.com/stranger-beers/ingestion/internal/payment"
	"github.com/stranger-beers/ingestion/internal/registrations"
	"github.com/stranger-beers/ingestion/internal/signup"
	"github.com/stranger-beers/ingestion/internal/store"
	"github.com/stranger-beers/ingestion/internal/tally"
	"github.com/stranger-beers/ingestion/internal/webhooks"
	"github.com/stranger-beers/ingestion/pkg/database"
	applog "github.com/stranger-beers/ingestion/pkg/logger"
	"github.com/stranger-beers/ingestion/pkg/queue"
	"github.com/stranger-beers/ingestion/pkg/redis"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger := applog.Must("info", false)
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	logger, err = applog.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()

	var (
		tx     store.TxRunner
		reader store.Reader
		ping   func(context.Context) error
	)
	switch cfg.Database.Driver {
	case "memory":
		mem := store.NewMemory()
		tx, reader = mem, mem
		logger.Warn("using in-memory store; data is lost on restart")
	default:
		pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, logger)
		if err != nil {
			logger.Fatal("database", zap.Error(err))
		}
		defer pool.Close()
		if err := database.Migrate(ctx, pool, logger); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
		pg := store.NewPostgres(pool, logger)
		tx, reader, ping = pg, pg, pool.Ping
	}

	var jobs webhooks.Dispatcher
	if cfg.Redis.Addr != "" {
		rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			logger.Fatal("redis", zap.Error(err))
		}
		defer rdb.Close()
		jobs = queue.NewQueue(rdb.Client, logger)
	} else {
		logger.Warn("REDIS_ADDR not set; emergency alerts and payload archiving are disabled")
	}

	if cfg.Tally.SignupFormID == "" || cfg.Tally.PaymentFormID == "" {
		logger.Warn("Tally form ids not fully configured; submissions from unconfigured forms are rejected")
	}
	if !cfg.Tally.VerifySignature {
		logger.Warn("Tally signature verification is disabled")
	}

	auditLog := audit.NewLogger(cfg.Tally.PaymentStatusLabel, logger)
	webhookHandler := webhooks.NewHandler(tx, webhooks.Options{
		Forms:           tally.Forms{SignupID: cfg.Tally.SignupFormID, PaymentID: cfg.Tally.PaymentFormID},
		SignatureHeader: cfg.Tally.SignatureHeader,
		Verifier:        tally.NewVerifier(cfg.Tally.VerifySignature, cfg.Tally.SignupSecret, cfg.Tally.PaymentSecret),
		Parser:          tally.NewParser(cfg.Phone.DefaultRegion),
		Signups:         signup.NewReconciler(auditLog, logger),
		Payments:        payment.NewMatcher(auditLog, logger),
		Jobs:            jobs,
	}, logger)

	router := newRouter(routerDeps{
		cfg:           cfg,
		webhooks:      webhookHandler,
		registrations: registrations.NewHandler(reader, logger),
		jwt:           auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours),
		ping:          ping,
		logger:        logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port), zap.String("version", version))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}
