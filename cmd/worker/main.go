// Package main runs the background worker: emergency alert delivery and payload archiving to S3.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/stranger-beers/ingestion/config"
	"github.com/stranger-beers/ingestion/internal/worker"
	applog "github.com/stranger-beers/ingestion/pkg/logger"
	"github.com/stranger-beers/ingestion/pkg/queue"
	"github.com/stranger-beers/ingestion/pkg/redis"
	"github.com/stranger-beers/ingestion/pkg/storage"
)

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

	if cfg.Redis.Addr == "" {
		logger.Fatal("REDIS_ADDR is required for the worker")
	}

	ctx := context.Background()
	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var archiver worker.Archiver
	if cfg.AWS.ArchiveBucket != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			ArchiveBucket:   cfg.AWS.ArchiveBucket,
		}, logger)
		if err != nil {
			logger.Fatal("s3", zap.Error(err))
		}
		archiver = s3Client
	} else {
		logger.Warn("AWS_S3_ARCHIVE_BUCKET not set; payload archive jobs will be dropped")
	}

	jobQueue := queue.NewQueue(rdb.Client, logger)
	alerter := worker.NewWebhookAlerter(cfg.Alerts.WebhookURL, logger)
	processor := worker.NewProcessor(alerter, archiver, jobQueue, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		processor.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(queue.PollTimeout + 2*time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}
