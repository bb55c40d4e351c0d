package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgonzalezpy/documind/constants"
	"github.com/dgonzalezpy/documind/internal/schemamap"
)

// PdfText reads the embedded text layer of a PDF and delegates to the schema
// mapper. It fails when the PDF has no text layer (a scanned image).
type PdfText struct {
	runner Runner
	bin    string
	mapper schemamap.Mapper
	log    *slog.Logger
}

func NewPdfText(runner Runner, bin string, mapper schemamap.Mapper, logger *slog.Logger) *PdfText {
	if bin == "" {
		bin = "pdftotext"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PdfText{runner: runner, bin: bin, mapper: mapper, log: logger}
}

func (p *PdfText) Name() string { return constants.ProviderPdfText }

func (p *PdfText) SupportedMIMETypes() []string {
	return []string{constants.MIMEPdf}
}

func (p *PdfText) Process(ctx context.Context, path string, jsonSchema map[string]any) (Result, error) {
	p.log.Info("pdftext.extract", "path", path)

	text, err := ExtractPDFText(ctx, p.runner, p.bin, path)
	if err != nil {
		return Result{}, fmt.Errorf("pdftotext: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return Result{}, fmt.Errorf("no text found in PDF (it might be a scanned image)")
	}

	data, err := p.mapper.MapTextToSchema(ctx, text, jsonSchema)
	if err != nil {
		return Result{RawText: text}, err
	}
	return Result{Data: data, RawText: text}, nil
}

// ExtractPDFText runs pdftotext and returns the embedded text layer. Shared
// with the orchestrator's text-bearing PDF probe.
func ExtractPDFText(ctx context.Context, r Runner, bin, path string) (string, error) {
	if bin == "" {
		bin = "pdftotext"
	}
	// pdftotext -layout -enc UTF-8 -eol unix <path> -
	out, errb, err := r.Run(ctx, bin, "-layout", "-enc", "UTF-8", "-eol", "unix", path, "-")
	if err != nil {
		if len(errb) > 0 {
			return "", fmt.Errorf("%w: %s", err, truncate(string(errb), 500))
		}
		return "", err
	}
	return string(out), nil
}
