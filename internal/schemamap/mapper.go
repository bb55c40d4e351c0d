// Package schemamap turns raw OCR text into schema-shaped structured data by
// prompting a language model. It is the shared back half of every
// text-producing extraction provider.
package schemamap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Mapper maps raw text onto a target JSON schema.
type Mapper interface {
	MapTextToSchema(ctx context.Context, text string, jsonSchema map[string]any) (map[string]any, error)
}

// Config for the Ollama-backed mapper.
type Config struct {
	URL      string        // default http://localhost:11434/api/generate
	Model    string        // default "llama3"
	Language string        // document language hint for dates/amounts
	Timeout  time.Duration // http client timeout
}

// OllamaMapper implements Mapper against Ollama's generate endpoint with
// format=json so the model is constrained to emit a single JSON object.
type OllamaMapper struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

func NewOllamaMapper(cfg Config, logger *slog.Logger) *OllamaMapper {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434/api/generate"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3"
	}
	if cfg.Language == "" {
		cfg.Language = "Spanish"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaMapper{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    logger,
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Stream bool     `json:"stream"`
	Format string   `json:"format"`
	Images []string `json:"images,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

// MapTextToSchema sends the extracted text and the target schema to the model
// and parses the structured JSON reply. The model call failing or returning
// non-JSON are explicit errors; locale interpretation is advisory only and is
// enforced downstream by the validation rules.
func (m *OllamaMapper) MapTextToSchema(ctx context.Context, text string, jsonSchema map[string]any) (map[string]any, error) {
	rid := uuid.New().String()
	start := time.Now()

	prompt, err := BuildMappingPrompt(text, jsonSchema, m.cfg.Language)
	if err != nil {
		return nil, fmt.Errorf("build prompt: %w", err)
	}

	m.log.Info("schemamap.request",
		"req_id", rid,
		"model", m.cfg.Model,
		"text_len", len(text),
	)

	raw, err := m.generate(ctx, generateRequest{
		Model:  m.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
	})
	if err != nil {
		m.log.Error("schemamap.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		m.log.Error("schemamap.parse_error",
			"req_id", rid, "error", err, "preview", Truncate(raw, 200),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, fmt.Errorf("llm returned non-JSON output: %w", err)
	}

	// Advisory only: the rule engine downstream is authoritative.
	if verr := ValidateAgainstSchema(jsonSchema, data); verr != nil {
		m.log.Warn("schemamap.schema_mismatch", "req_id", rid, "error", verr)
	}

	m.log.Info("schemamap.ok",
		"req_id", rid,
		"fields", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// Generate posts a raw generate request and returns the model's response
// string. Exposed for the vision provider, which supplies its own prompt and
// image payload.
func (m *OllamaMapper) Generate(ctx context.Context, prompt string, images []string) (string, error) {
	return m.generate(ctx, generateRequest{
		Model:  m.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Format: "json",
		Images: images,
	})
}

func (m *OllamaMapper) generate(ctx context.Context, body generateRequest) (string, error) {
	bs, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.URL, bytes.NewReader(bs))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			m.log.Warn("schemamap.body_close_error", "error", cerr)
		}
	}()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("ollama status %d: %s", resp.StatusCode, Truncate(string(raw), 300))
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("decode ollama envelope: %w", err)
	}
	if gr.Error != "" {
		return "", fmt.Errorf("ollama error: %s", gr.Error)
	}
	return gr.Response, nil
}

// Truncate caps s for log lines and error previews. The cut backs up to a
// rune boundary so multi-byte characters are never split.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "...(truncated)"
}
