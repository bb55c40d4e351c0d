package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgonzalezpy/documind/constants"
	"github.com/dgonzalezpy/documind/internal/schemamap"
)

// VisionClient is the slice of the LLM client the vision provider needs.
type VisionClient interface {
	Generate(ctx context.Context, prompt string, images []string) (string, error)
}

// OllamaVision sends the image to a vision-capable model that extracts and
// maps in a single call, bypassing the schema mapper. It cannot consume raw
// PDFs and rejects them explicitly; the orchestrator's rasterization step is
// what normally feeds it scanned PDFs.
type OllamaVision struct {
	client   VisionClient
	language string
	log      *slog.Logger
}

func NewOllamaVision(client VisionClient, language string, logger *slog.Logger) *OllamaVision {
	if language == "" {
		language = "Spanish"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaVision{client: client, language: language, log: logger}
}

func (v *OllamaVision) Name() string { return constants.ProviderOllama }

// SupportedMIMETypes declares PDFs too: conceptually supported, but Process
// rejects them until a prior conversion produced an image.
func (v *OllamaVision) SupportedMIMETypes() []string {
	return []string{constants.MIMEPdf, constants.MIMEPng, constants.MIMEJpeg, constants.MIMEJpg, constants.MIMEWebp}
}

func (v *OllamaVision) Process(ctx context.Context, path string, jsonSchema map[string]any) (Result, error) {
	mime := constants.MIMEByPath(path)
	if !constants.IsImageMIME(mime) {
		return Result{}, fmt.Errorf("vision model does not support %s files directly without prior conversion to an image", mime)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("read image: %w", err)
	}

	prompt, err := schemamap.BuildVisionPrompt(jsonSchema, v.language)
	if err != nil {
		return Result{}, err
	}

	v.log.Info("vision.request", "path", path, "mime", mime, "image_bytes", len(raw))

	response, err := v.client.Generate(ctx, prompt, []string{base64.StdEncoding.EncodeToString(raw)})
	if err != nil {
		return Result{}, err
	}

	var data map[string]any
	if err := json.Unmarshal([]byte(response), &data); err != nil {
		v.log.Error("vision.json_parse_error", "error", err, "raw_len", len(response))
		return Result{}, fmt.Errorf("incomplete or malformed JSON returned by vision model: %v; partial response: %s",
			err, schemamap.Truncate(response, 100))
	}
	return Result{Data: data}, nil
}
