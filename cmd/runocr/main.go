// runocr runs the extraction pipeline once for a single manuscript, bypassing
// the queue. Useful for debugging a stuck or misread scan.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

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

	if len(os.Args) != 2 {
		logger.Error("usage", "cmd", "runocr <manuscript-id-uuid>")
		os.Exit(2)
	}
	manuscriptID, err := uuid.Parse(os.Args[1])
	if err != nil {
		logger.Error("invalid manuscript id (must be UUID)", "arg", os.Args[1], "error", err)
		os.Exit(2)
	}

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := repository.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("open db", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

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

	manuscriptRepo := repository.NewManuscriptRepository(pool, logger)
	novelRepo := repository.NewNovelRepository(pool, logger)
	q := queue.NewPostgresQueue(pool, logger)
	validator := validation.NewValidator(cfg.Upload.MaxFileSize, nil, logger)
	svc := manuscripts.NewService(manuscriptRepo, novels.NewService(novelRepo, logger),
		store, q, validator, cfg, logger)

	m, err := svc.GetManuscriptByID(ctx, manuscriptID)
	if err != nil {
		logger.Error("load manuscript", "manuscript_id", manuscriptID, "error", err)
		os.Exit(1)
	}

	processor := worker.NewProcessor(svc, store, extract.NewEngine(detector, logger),
		cfg.OCR.DetectTimeout, logger)

	start := time.Now()
	requeue, err := processor.Process(ctx, &queue.Job{
		ID:              queue.JobID(m.ID),
		ManuscriptID:    m.ID,
		StoragePath:     m.StoragePath,
		Language:        m.Language,
		OrientationHint: m.OrientationHint,
	})
	dur := time.Since(start)

	if err != nil {
		logger.Error("extraction failed",
			"manuscript_id", m.ID, "requeue", requeue, "error", err,
			"duration_ms", dur.Milliseconds())
		os.Exit(1)
	}

	final, err := svc.GetManuscriptByID(ctx, m.ID)
	if err != nil {
		logger.Error("reload manuscript", "error", err)
		os.Exit(1)
	}
	logger.Info("extraction OK",
		"manuscript_id", final.ID,
		"status", final.OCRStatus,
		"confidence", final.OCRConfidence,
		"orientation", final.DetectedOrientation,
		"duration_ms", dur.Milliseconds(),
	)
}
