// Command documindd is the document extraction worker. It consumes jobs from
// the OCR queue, runs each document through its tenant's strategy stack, and
// persists the outcome.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/dgonzalezpy/documind/internal/common"
	"github.com/dgonzalezpy/documind/internal/consumer"
	"github.com/dgonzalezpy/documind/internal/orchestrator"
	"github.com/dgonzalezpy/documind/internal/provider"
	"github.com/dgonzalezpy/documind/internal/queue"
	"github.com/dgonzalezpy/documind/internal/repository"
	"github.com/dgonzalezpy/documind/internal/schemamap"
	"github.com/dgonzalezpy/documind/internal/storage"
	"github.com/dgonzalezpy/documind/internal/webhook"
)

func main() {
	_ = godotenv.Load()

	logger := newLogger()
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker exited", "error", err)
		os.Exit(1)
	}
	logger.Info("worker stopped")
}

func run(ctx context.Context, cfg *common.Config, logger *slog.Logger) error {
	pool, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	store, err := newStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return err
	}

	runner := provider.TimeoutRunner{Inner: provider.ExecRunner{}, Timeout: cfg.OCR.ExecTimeout}
	provider.CheckDependencies(ctx, runner, []provider.Tool{
		{Name: "pdftotext", Bin: cfg.OCR.Pdftotext, Args: []string{"-v"}},
		{Name: "pdftoppm", Bin: cfg.OCR.Pdftoppm, Args: []string{"-v"}},
		{Name: "tesseract", Bin: cfg.OCR.Tesseract, Args: []string{"--version"}},
		{Name: "paddleocr", Bin: cfg.OCR.PaddleOCR, Args: []string{"-h"}},
	}, logger)

	mapper := schemamap.NewOllamaMapper(schemamap.Config{
		URL:      cfg.LLM.URL,
		Model:    cfg.LLM.Model,
		Language: cfg.LLM.Language,
		Timeout:  cfg.LLM.Timeout,
	}, logger)

	registry := provider.NewRegistry(
		provider.NewPdfText(runner, cfg.OCR.Pdftotext, mapper, logger),
		provider.NewTesseract(runner, cfg.OCR.Tesseract, cfg.OCR.TesseractLang, mapper, logger),
		provider.NewPaddleOCR(runner, cfg.OCR.PaddleOCR, cfg.OCR.PaddleLang, mapper, logger),
		provider.NewOllamaVision(mapper, cfg.LLM.Language, logger),
	)
	for _, info := range registry.Available() {
		logger.Info("strategy registered", "id", info.ID, "name", info.Name)
	}

	stack := orchestrator.New(orchestrator.Config{
		Pdftotext: cfg.OCR.Pdftotext,
		Pdftoppm:  cfg.OCR.Pdftoppm,
		DPI:       cfg.OCR.DPI,
	}, registry, runner, logger)

	jobs := consumer.New(
		repository.NewProcessRepository(pool, logger),
		repository.NewDocTypeConfigRepository(pool, logger),
		repository.NewTenantRepository(pool, logger),
		store,
		stack,
		webhook.NewDispatcher(nil, logger),
		logger,
	)

	q, err := queue.Dial(queue.Config{
		URL:       cfg.Queue.URL,
		QueueName: cfg.Queue.QueueName,
		Prefetch:  cfg.Queue.Prefetch,
	}, logger)
	if err != nil {
		return err
	}
	defer q.Close()

	return q.Consume(ctx, func(ctx context.Context, body []byte) error {
		msg, err := decodeJob(body)
		if err != nil {
			logger.Error("discarding malformed job", "error", err)
			return nil
		}
		return jobs.Handle(ctx, msg)
	})
}

func decodeJob(body []byte) (consumer.JobMessage, error) {
	var msg consumer.JobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("decode job message: %w", err)
	}
	if msg.ProcessID == uuid.Nil {
		return msg, fmt.Errorf("job message missing processId")
	}
	return msg, nil
}

func newStorage(ctx context.Context, cfg common.StorageConfig, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.Backend {
	case "s3":
		return storage.NewS3(ctx, storage.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.AWSAccessKey,
			SecretKey: cfg.AWSSecretKey,
			TempDir:   cfg.TempDir,
		}, logger)
	default:
		return storage.NewLocal(cfg.LocalDir)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
