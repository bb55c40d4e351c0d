// Package consumer coordinates one queued document end to end: config
// lookup, strategy stack execution, status persistence, validation, webhook
// dispatch, and temp file cleanup. No internal failure escapes Handle; the
// process record always reaches a terminal state.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/dgonzalezpy/documind/constants"
	"github.com/dgonzalezpy/documind/internal/common"
	"github.com/dgonzalezpy/documind/internal/entity"
	"github.com/dgonzalezpy/documind/internal/orchestrator"
	"github.com/dgonzalezpy/documind/internal/repository"
	"github.com/dgonzalezpy/documind/internal/rules"
	"github.com/dgonzalezpy/documind/internal/storage"
)

// JobMessage is the queue's job descriptor.
type JobMessage struct {
	ProcessID   uuid.UUID `json:"processId"`
	TenantID    string    `json:"tenantId"`
	DocTypeSlug string    `json:"docTypeSlug"`
	FileHandle  string    `json:"fileHandle"`
}

// StackRunner is the orchestrator capability the consumer depends on.
type StackRunner interface {
	Run(ctx context.Context, path string, stack []entity.StrategyStep, jsonSchema map[string]any, onProgress orchestrator.ProgressFunc) orchestrator.Result
}

// Notifier dispatches the outcome webhook; it never fails the job.
type Notifier interface {
	Notify(ctx context.Context, tenant *entity.Tenant, cfg *entity.DocumentTypeConfig, proc *entity.Process)
}

type Consumer struct {
	Processes repository.ProcessRepository
	Configs   repository.DocTypeConfigRepository
	Tenants   repository.TenantRepository
	Storage   storage.Storage
	Stack     StackRunner
	Webhook   Notifier
	Logger    *slog.Logger
}

func New(
	processes repository.ProcessRepository,
	configs repository.DocTypeConfigRepository,
	tenants repository.TenantRepository,
	store storage.Storage,
	stack StackRunner,
	webhook Notifier,
	logger *slog.Logger,
) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		Processes: processes,
		Configs:   configs,
		Tenants:   tenants,
		Storage:   store,
		Stack:     stack,
		Webhook:   webhook,
		Logger:    logger,
	}
}

// Handle processes one queued document. It returns an error only when the
// record store itself is unreachable, so at-least-once redelivery can retry
// and re-derive the outcome; every pipeline-level failure lands in the record
// as a terminal status instead. The webhook fires only after that terminal
// status is persisted.
func (c *Consumer) Handle(ctx context.Context, msg JobMessage) error {
	log := c.Logger.With("process_id", msg.ProcessID, "tenant_id", msg.TenantID, "doc_type", msg.DocTypeSlug)
	log.Info("consumer.job.start")

	proc, err := c.Processes.GetByID(ctx, msg.ProcessID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Warn("consumer.process_not_found")
			return nil
		}
		return err
	}

	if err := c.setStatus(ctx, proc.ID, constants.StatusProcessing); err != nil {
		return err
	}
	proc.Status = constants.StatusProcessing

	cfg, err := c.Configs.GetBySlug(ctx, msg.TenantID, msg.DocTypeSlug)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			log.Error("consumer.config_not_found")
			return c.fail(ctx, proc, "Config not found", "")
		}
		return err
	}

	handle := msg.FileHandle
	if handle == "" {
		handle = proc.FileHandle
	}
	localPath, err := c.Storage.ResolveLocalPath(ctx, handle)
	if err != nil {
		log.Error("consumer.resolve_file_failed", "handle", handle, "error", err)
		return c.fail(ctx, proc, "File not available: "+err.Error(), "")
	}
	defer c.cleanupTemp(handle, localPath)

	result := c.Stack.Run(ctx, localPath, cfg.StrategyStack, cfg.JSONSchema, func(fullLog string) {
		// Incremental log persistence: observers polling the record see the
		// stack progress before the job reaches a terminal state.
		upd := repository.ProcessUpdate{Logs: &fullLog}
		if err := c.Processes.UpdateFields(ctx, proc.ID, upd); err != nil {
			log.Warn("consumer.progress_persist_failed", "error", err)
		}
	})

	proc.Logs = result.Log
	if result.Success {
		if err := c.complete(ctx, proc, cfg, result); err != nil {
			return err
		}
	} else {
		errMsg := result.Err
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		log.Error("consumer.extraction_failed", "error", errMsg)
		if err := c.fail(ctx, proc, errMsg, result.Log); err != nil {
			return err
		}
	}

	c.notify(ctx, proc, cfg)
	log.Info("consumer.job.done", "status", proc.Status)
	return nil
}

// complete persists extraction success, runs the validation rules, and
// promotes the process to validated when every rule passed. A persist failure
// is returned: the record must not stay at processing while the queue acks.
func (c *Consumer) complete(ctx context.Context, proc *entity.Process, cfg *entity.DocumentTypeConfig, result orchestrator.Result) error {
	proc.ExtractedData = result.Data
	proc.OCRProvider = result.ProviderUsed
	proc.Status = constants.StatusCompleted

	if len(cfg.ValidationRules) > 0 {
		proc.ValidationResults = rules.Validate(result.Data, cfg.ValidationRules)
		if rules.AllPassed(proc.ValidationResults) {
			proc.Status = constants.StatusValidated
		}
	}

	c.Logger.Info("consumer.extraction_ok",
		"process_id", proc.ID,
		"provider", result.ProviderUsed,
		"status", proc.Status,
	)

	upd := repository.ProcessUpdate{
		Status:            &proc.Status,
		ExtractedData:     proc.ExtractedData,
		ValidationResults: proc.ValidationResults,
		Logs:              &proc.Logs,
		OCRProvider:       &proc.OCRProvider,
	}
	if err := c.Processes.UpdateFields(ctx, proc.ID, upd); err != nil {
		c.Logger.Error("consumer.persist_outcome_failed", "process_id", proc.ID, "error", err)
		return err
	}
	return nil
}

// fail marks the process failed with its message and whatever log exists.
// Status, error message, and log land in one atomic update; a persist failure
// is returned so the delivery can be retried.
func (c *Consumer) fail(ctx context.Context, proc *entity.Process, message, logText string) error {
	proc.Status = constants.StatusFailed
	proc.ErrorMessage = message
	proc.Logs = logText

	upd := repository.ProcessUpdate{
		Status:       &proc.Status,
		ErrorMessage: &proc.ErrorMessage,
	}
	if logText != "" {
		upd.Logs = &logText
	}
	if err := c.Processes.UpdateFields(ctx, proc.ID, upd); err != nil {
		c.Logger.Error("consumer.persist_failure_failed", "process_id", proc.ID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) setStatus(ctx context.Context, id uuid.UUID, status constants.ProcessStatus) error {
	return c.Processes.UpdateFields(ctx, id, repository.ProcessUpdate{Status: &status})
}

// notify is best-effort: a missing tenant or a delivery failure never touches
// the job outcome.
func (c *Consumer) notify(ctx context.Context, proc *entity.Process, cfg *entity.DocumentTypeConfig) {
	if c.Webhook == nil || c.Tenants == nil {
		return
	}
	tenant, err := c.Tenants.GetByTenantID(ctx, proc.TenantID)
	if err != nil {
		c.Logger.Warn("consumer.tenant_lookup_failed", "tenant_id", proc.TenantID, "error", err)
		return
	}
	c.Webhook.Notify(ctx, tenant, cfg, proc)
}

// cleanupTemp removes the local copy when storage materialized one for us.
func (c *Consumer) cleanupTemp(handle, localPath string) {
	if localPath == handle || localPath == "" {
		return
	}
	if _, err := os.Stat(localPath); err != nil {
		return
	}
	if err := os.Remove(localPath); err != nil {
		c.Logger.Error("consumer.temp_cleanup_failed", "path", localPath, "error", err)
	}
}
