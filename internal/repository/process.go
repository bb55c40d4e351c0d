package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgonzalezpy/documind/constants"
	"github.com/dgonzalezpy/documind/internal/common"
	"github.com/dgonzalezpy/documind/internal/entity"
	"github.com/dgonzalezpy/documind/internal/rules"
)

// ProcessUpdate is a partial update of a process record. Nil fields are left
// untouched; the store must tolerate frequent small overwrites because the
// orchestrator persists the log after every appended line.
type ProcessUpdate struct {
	Status            *constants.ProcessStatus
	ExtractedData     map[string]any
	ValidationResults rules.Results
	Logs              *string
	ErrorMessage      *string
	OCRProvider       *string
}

// ProcessRepository is the record store consumed by the job consumer.
type ProcessRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Process, error)
	UpdateFields(ctx context.Context, id uuid.UUID, upd ProcessUpdate) error
}

type processRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewProcessRepository(pool *pgxpool.Pool, logger *slog.Logger) ProcessRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &processRepo{pool: pool, log: logger}
}

func (r *processRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Process, error) {
	query, args, err := psql.
		Select("id", "tenant_id", "external_id", "document_type", "api_key", "file_handle",
			"status", "extracted_data", "validation_results", "logs", "error_message", "ocr_provider", "tags").
		From("process").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var (
		p            entity.Process
		status       string
		extracted    []byte
		validation   []byte
		tags         []byte
		logs         *string
		errorMessage *string
		externalID   *string
		apiKey       *string
		ocrProvider  *string
	)
	row := r.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&p.ID, &p.TenantID, &externalID, &p.DocumentType, &apiKey, &p.FileHandle,
		&status, &extracted, &validation, &logs, &errorMessage, &ocrProvider, &tags); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query process: %w", err)
	}

	p.Status = constants.ProcessStatus(status)
	p.ExternalID = deref(externalID)
	p.APIKey = deref(apiKey)
	p.Logs = deref(logs)
	p.ErrorMessage = deref(errorMessage)
	p.OCRProvider = deref(ocrProvider)
	if len(extracted) > 0 {
		if err := json.Unmarshal(extracted, &p.ExtractedData); err != nil {
			return nil, fmt.Errorf("decode extracted_data: %w", err)
		}
	}
	if len(validation) > 0 {
		if err := json.Unmarshal(validation, &p.ValidationResults); err != nil {
			return nil, fmt.Errorf("decode validation_results: %w", err)
		}
	}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &p, nil
}

// UpdateFields persists the non-nil fields of upd in one statement, so a
// status transition and its companion data land atomically.
func (r *processRepo) UpdateFields(ctx context.Context, id uuid.UUID, upd ProcessUpdate) error {
	set := map[string]any{"updated_at": time.Now().UTC()}
	if upd.Status != nil {
		set["status"] = string(*upd.Status)
	}
	if upd.ExtractedData != nil {
		b, err := json.Marshal(upd.ExtractedData)
		if err != nil {
			return fmt.Errorf("encode extracted_data: %w", err)
		}
		set["extracted_data"] = b
	}
	if upd.ValidationResults != nil {
		b, err := json.Marshal(upd.ValidationResults)
		if err != nil {
			return fmt.Errorf("encode validation_results: %w", err)
		}
		set["validation_results"] = b
	}
	if upd.Logs != nil {
		set["logs"] = *upd.Logs
	}
	if upd.ErrorMessage != nil {
		set["error_message"] = *upd.ErrorMessage
	}
	if upd.OCRProvider != nil {
		set["ocr_provider"] = *upd.OCRProvider
	}

	query, args, err := psql.Update("process").SetMap(set).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		r.log.Error("process update failed", "process_id", id, "error", err)
		return fmt.Errorf("update process: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return common.ErrNotFound
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
