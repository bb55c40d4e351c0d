package entity

import "github.com/dgonzalezpy/documind/internal/rules"

// StrategyStep is one entry of a document type's strategy stack: a provider
// name plus an optional MIME restriction. An empty MIMETypes list means the
// provider is always eligible.
type StrategyStep struct {
	Provider  string   `json:"name"`
	MIMETypes []string `json:"mimeTypes,omitempty"`
}

// DocumentTypeConfig describes how one document type is extracted and
// validated. Immutable during a job run; read once per job.
type DocumentTypeConfig struct {
	TenantID           string                      `json:"tenantId"`
	Slug               string                      `json:"slug"`
	Name               string                      `json:"name,omitempty"`
	JSONSchema         map[string]any              `json:"jsonSchema"`
	ValidationRules    map[string][]rules.RuleSpec `json:"validationRules,omitempty"`
	StrategyStack      []StrategyStep              `json:"strategyStack"`
	WebhookOverrideURL string                      `json:"webhookOverride,omitempty"`
}
