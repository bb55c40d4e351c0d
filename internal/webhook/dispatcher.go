// Package webhook performs the best-effort outward notification of a job's
// final outcome. Delivery is fire-and-forget: failures are logged with tenant
// and key context and otherwise swallowed, never retried, and never allowed
// to affect the job itself.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/dgonzalezpy/documind/internal/entity"
)

// payload is the outbound wire format.
type payload struct {
	ID            string         `json:"id"`
	ExternalID    string         `json:"externalId"`
	Status        string         `json:"status"`
	DocumentType  string         `json:"documentType"`
	ExtractedData map[string]any `json:"extractedData"`
	Tags          []string       `json:"tags"`
	Error         string         `json:"error"`
}

type Dispatcher struct {
	client *http.Client
	log    *slog.Logger
}

func NewDispatcher(client *http.Client, logger *slog.Logger) *Dispatcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{client: client, log: logger}
}

// Notify resolves the effective policy and posts the job outcome. It never
// returns an error: a disabled or unresolvable policy is a silent skip, and a
// delivery failure is logged only.
func (d *Dispatcher) Notify(ctx context.Context, tenant *entity.Tenant, cfg *entity.DocumentTypeConfig, proc *entity.Process) {
	if tenant == nil || proc == nil {
		return
	}

	policy := ResolvePolicy(tenant, proc.APIKey, cfg)
	if !policy.Enabled {
		d.log.Info("webhook.disabled", "tenant_id", tenant.TenantID, "api_key", keyLabel(tenant, proc.APIKey))
		return
	}
	if policy.URL == "" {
		d.log.Info("webhook.no_url", "tenant_id", tenant.TenantID, "process_id", proc.ID)
		return
	}

	body, err := json.Marshal(payload{
		ID:            proc.ID.String(),
		ExternalID:    proc.ExternalID,
		Status:        string(proc.Status),
		DocumentType:  proc.DocumentType,
		ExtractedData: proc.ExtractedData,
		Tags:          proc.Tags,
		Error:         proc.ErrorMessage,
	})
	if err != nil {
		d.log.Error("webhook.encode_failed", "tenant_id", tenant.TenantID, "process_id", proc.ID, "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, policy.URL, bytes.NewReader(body))
	if err != nil {
		d.log.Error("webhook.build_request_failed", "tenant_id", tenant.TenantID, "url", policy.URL, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for name, values := range AuthHeaders(policy.Auth) {
		for _, v := range values {
			req.Header.Set(name, v)
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Error("webhook.delivery_failed",
			"tenant_id", tenant.TenantID,
			"api_key", keyLabel(tenant, proc.APIKey),
			"url", policy.URL,
			"error", err,
		)
		return
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode/100 != 2 {
		d.log.Error("webhook.non_2xx",
			"tenant_id", tenant.TenantID,
			"api_key", keyLabel(tenant, proc.APIKey),
			"url", policy.URL,
			"status", resp.StatusCode,
		)
		return
	}

	d.log.Info("webhook.sent", "tenant_id", tenant.TenantID, "url", policy.URL, "process_id", proc.ID)
}

func keyLabel(tenant *entity.Tenant, apiKey string) string {
	if kc := tenant.APIKeyConfigFor(apiKey); kc != nil && kc.Label != "" {
		return kc.Label
	}
	if apiKey == "" {
		return "global"
	}
	return "unknown"
}
