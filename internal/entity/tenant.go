package entity

// WebhookAuth configures how outbound notifications authenticate. Pure
// config, no lifecycle.
type WebhookAuth struct {
	Type       string `json:"type"` // none | header | bearer | basic
	HeaderName string `json:"headerName,omitempty"`
	Token      string `json:"token,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
}

// APIKeyConfig scopes webhook behavior to one API key. A nil WebhookEnabled
// means "not set", which defaults to enabled.
type APIKeyConfig struct {
	Key            string       `json:"key"`
	Label          string       `json:"label,omitempty"`
	WebhookURL     string       `json:"webhookUrl,omitempty"`
	WebhookEnabled *bool        `json:"webhookEnabled,omitempty"`
	WebhookAuth    *WebhookAuth `json:"webhookAuth,omitempty"`
}

// Tenant carries the tenant-level notification defaults and the API key
// configurations that may override them.
type Tenant struct {
	TenantID       string         `json:"tenantId"`
	Name           string         `json:"name,omitempty"`
	WebhookURL     string         `json:"webhookUrl,omitempty"`
	WebhookEnabled *bool          `json:"webhookEnabled,omitempty"`
	APIKeys        []APIKeyConfig `json:"apiKeys,omitempty"`
}

// APIKeyConfigFor returns the config block for the given key, or nil when the
// tenant has none for it.
func (t *Tenant) APIKeyConfigFor(key string) *APIKeyConfig {
	if key == "" {
		return nil
	}
	for i := range t.APIKeys {
		if t.APIKeys[i].Key == key {
			return &t.APIKeys[i]
		}
	}
	return nil
}
