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

// TenantRepository looks up tenants with their API key configurations.
type TenantRepository interface {
	GetByTenantID(ctx context.Context, tenantID string) (*entity.Tenant, error)
}

type tenantRepo struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

func NewTenantRepository(pool *pgxpool.Pool, logger *slog.Logger) TenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &tenantRepo{pool: pool, log: logger}
}

func (r *tenantRepo) GetByTenantID(ctx context.Context, tenantID string) (*entity.Tenant, error) {
	query, args, err := psql.
		Select("tenant_id", "name", "webhook_url", "webhook_enabled", "api_keys").
		From("tenant").
		Where(sq.Eq{"tenant_id": tenantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var (
		t          entity.Tenant
		name       *string
		webhookURL *string
		apiKeys    []byte
	)
	row := r.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&t.TenantID, &name, &webhookURL, &t.WebhookEnabled, &apiKeys); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("query tenant: %w", err)
	}

	t.Name = deref(name)
	t.WebhookURL = deref(webhookURL)
	if len(apiKeys) > 0 {
		if err := json.Unmarshal(apiKeys, &t.APIKeys); err != nil {
			return nil, fmt.Errorf("decode api_keys: %w", err)
		}
	}
	return &t, nil
}
