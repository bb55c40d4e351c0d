package entity

import (
	"github.com/google/uuid"

	"github.com/dgonzalezpy/documind/constants"
	"github.com/dgonzalezpy/documind/internal/rules"
)

// Process is one document submitted for extraction, tracked through its
// status lifecycle. The worker owns the row for the duration of one run;
// every intermediate update is persisted so polling observers see progress.
type Process struct {
	ID           uuid.UUID               `json:"id"`
	TenantID     string                  `json:"tenantId"`
	ExternalID   string                  `json:"externalId,omitempty"`
	DocumentType string                  `json:"documentType"`
	APIKey       string                  `json:"apiKey,omitempty"`
	FileHandle   string                  `json:"fileHandle"`
	Status       constants.ProcessStatus `json:"status"`

	ExtractedData     map[string]any `json:"extractedData,omitempty"`
	ValidationResults rules.Results  `json:"validationResults,omitempty"`
	Logs              string         `json:"logs,omitempty"`
	ErrorMessage      string         `json:"errorMessage,omitempty"`
	OCRProvider       string         `json:"ocrProvider,omitempty"`
	Tags              []string       `json:"tags,omitempty"`
}
