// novelmatchd is the OCR worker daemon: it claims queued manuscript jobs,
// extracts fingerprints, and maintains queue retention.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fumikura/novelmatch/internal/common"
	"github.com/fumikura/novelmatch/internal/extract"
	"github.com/fumikura/novelmatch/internal/manuscripts"
	"github.com/fumikura/novelmatch/internal/novels"
	"github.com/fumikura/novelmatch/internal/queue"
	"github.com/fumikura/novelmatch/internal/repository"
	"github.com/fumikura/novelmatch/internal/storage"
	"github.com/fumikura/novelmatch/internal/validation"
	"github.com/fumikura/novelmatch/internal/vision"
	"github.com/fumikura/novelmatch/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := repository.HealthCheck(ctx, pool, logger); err != nil {
		logger.Error("db health", "error", err)
		os.Exit(1)
	}
	logger.Info("db health OK")

	store, err := storage.NewGCSStore(ctx, cfg.Storage.Bucket, logger)
	if err != nil {
		logger.Error("open object store", "error", err)
		os.Exit(1)
	}

	var detector vision.Detector
	switch cfg.OCR.Provider {
	case "tesseract":
		detector = vision.NewTesseractDetector(cfg.OCR.Languages, cfg.OCR.TessdataDir, logger)
	default:
		gd, err := vision.NewGoogleDetector(ctx, logger)
		if err != nil {
			logger.Error("open vision client", "error", err)
			os.Exit(1)
		}
		defer gd.Close()
		detector = gd
	}
	logger.Info("detector ready", "provider", cfg.OCR.Provider)

	var scanner validation.MalwareScanner
	if cfg.Scanner.Enabled {
		scanner = validation.NewClamAVScanner(cfg.Scanner.Address, cfg.Scanner.ChunkSize, cfg.Scanner.Timeout)
		logger.Info("malware scanning enabled", "addr", cfg.Scanner.Address)
	}
	validator := validation.NewValidator(cfg.Upload.MaxFileSize, scanner, logger)

	q := queue.NewPostgresQueue(pool, logger,
		queue.WithBackoff(cfg.Queue.BackoffBase, cfg.Queue.BackoffMax))

	manuscriptRepo := repository.NewManuscriptRepository(pool, logger)
	novelRepo := repository.NewNovelRepository(pool, logger)
	novelSvc := novels.NewService(novelRepo, logger)
	svc := manuscripts.NewService(manuscriptRepo, novelSvc, store, q, validator, cfg, logger)

	engine := extract.NewEngine(detector, logger)
	processor := worker.NewProcessor(svc, store, engine, cfg.OCR.DetectTimeout, logger)
	workerPool := worker.NewPool(q, processor, cfg.Queue, logger)

	go runRetention(ctx, q, cfg.Queue, logger)

	if err := workerPool.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("worker pool exited", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

// runRetention prunes finished job rows on a fixed cadence until ctx ends.
func runRetention(ctx context.Context, q *queue.PostgresQueue, cfg common.QueueConfig, logger *slog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := q.PruneCompleted(ctx, cfg.CompletedRetention); err != nil {
				logger.Warn("prune completed jobs", "error", err)
			} else if n > 0 {
				logger.Info("pruned completed jobs", "count", n)
			}
			if n, err := q.PruneFailed(ctx, cfg.FailedRetention); err != nil {
				logger.Warn("prune failed jobs", "error", err)
			} else if n > 0 {
				logger.Info("pruned failed jobs", "count", n)
			}
		}
	}
}
