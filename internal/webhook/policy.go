package webhook

import (
	"encoding/base64"
	"net/http"

	"github.com/dgonzalezpy/documind/internal/entity"
)

// Policy is the effective notification configuration for one job.
type Policy struct {
	URL     string
	Enabled bool
	Auth    *entity.WebhookAuth
}

// ResolvePolicy merges the three configuration tiers into one policy.
//
// URL priority: document-type override > API-key URL > tenant default; first
// non-empty wins. Enablement: when an API-key config block exists for the
// job's key, its flag governs exclusively (default true); otherwise the
// tenant flag governs (default true).
func ResolvePolicy(tenant *entity.Tenant, apiKey string, cfg *entity.DocumentTypeConfig) Policy {
	var keyCfg *entity.APIKeyConfig
	if tenant != nil {
		keyCfg = tenant.APIKeyConfigFor(apiKey)
	}

	enabled := true
	if keyCfg != nil {
		enabled = keyCfg.WebhookEnabled == nil || *keyCfg.WebhookEnabled
	} else if tenant != nil {
		enabled = tenant.WebhookEnabled == nil || *tenant.WebhookEnabled
	}

	var url string
	switch {
	case cfg != nil && cfg.WebhookOverrideURL != "":
		url = cfg.WebhookOverrideURL
	case keyCfg != nil && keyCfg.WebhookURL != "":
		url = keyCfg.WebhookURL
	case tenant != nil:
		url = tenant.WebhookURL
	}

	var auth *entity.WebhookAuth
	if keyCfg != nil {
		auth = keyCfg.WebhookAuth
	}

	return Policy{URL: url, Enabled: enabled, Auth: auth}
}

// AuthHeaders translates a WebhookAuth block into HTTP headers.
func AuthHeaders(auth *entity.WebhookAuth) http.Header {
	h := http.Header{}
	if auth == nil || auth.Type == "" || auth.Type == "none" {
		return h
	}
	switch auth.Type {
	case "header":
		if auth.HeaderName != "" {
			h.Set(auth.HeaderName, auth.Token)
		}
	case "bearer":
		if auth.Token != "" {
			h.Set("Authorization", "Bearer "+auth.Token)
		}
	case "basic":
		if auth.Username != "" {
			credentials := base64.StdEncoding.EncodeToString([]byte(auth.Username + ":" + auth.Password))
			h.Set("Authorization", "Basic "+credentials)
		}
	}
	return h
}
