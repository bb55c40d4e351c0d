package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dgonzalezpy/documind/internal/common"
	"github.com/dgonzalezpy/documind/internal/entity"
)

// DocTypeConfigRepository resolves per-document-type extraction config.
type DocTypeConfigRepository interface {
	GetBySlug(ctx context.Context, tenantID, slug string) (*entity.DocumentTypeConfig, error)
}

type docTypeRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewDocTypeConfigRepository(pool *pgxpool.Pool, logger *slog.Logger) DocTypeConfigRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &docTypeRepo{pool: pool, log: logger}
}

func (r *docTypeRepo) GetBySlug(ctx context.Context, tenantID, slug string) (*entity.DocumentTypeConfig, error) {
	query, args, err := psql.
		Select("tenant_id", "slug", "name", "json_schema", "validation_rules", "strategy_stack", "webhook_override").
		From("document_type_config").
		Where(sq.Eq{"tenant_id": tenantID, "slug": slug}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var (
		cfg             entity.DocumentTypeConfig
		name            *string
		jsonSchema      []byte
		validationRules []byte
		strategyStack   []byte
		webhookOverride *string
	)
	row := r.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&cfg.TenantID, &cfg.Slug, &name, &jsonSchema, &validationRules, &strategyStack, &webhookOverride); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query document_type_config: %w", err)
	}

	cfg.Name = deref(name)
	cfg.WebhookOverrideURL = deref(webhookOverride)
	if len(jsonSchema) > 0 {
		if err := json.Unmarshal(jsonSchema, &cfg.JSONSchema); err != nil {
			return nil, fmt.Errorf("decode json_schema: %w", err)
		}
	}
	if len(validationRules) > 0 {
		if err := json.Unmarshal(validationRules, &cfg.ValidationRules); err != nil {
			return nil, fmt.Errorf("decode validation_rules: %w", err)
		}
	}
	if len(strategyStack) > 0 {
		if err := json.Unmarshal(strategyStack, &cfg.StrategyStack); err != nil {
			return nil, fmt.Errorf("decode strategy_stack: %w", err)
		}
	}
	return &cfg, nil
}
