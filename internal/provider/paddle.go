package provider

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/dgonzalezpy/documind/constants"
	"github.com/dgonzalezpy/documind/internal/schemamap"
)

// PaddleOCR invokes the paddleocr CLI (strong on tables and multilingual
// text), recovers the recognized line texts from its stdout, and delegates to
// the schema mapper. A missing binary surfaces as a process-level error that
// the orchestrator treats as a provider failure, never a crash.
type PaddleOCR struct {
	runner Runner
	bin    string
	lang   string
	mapper schemamap.Mapper
	log    *slog.Logger
}

func NewPaddleOCR(runner Runner, bin, lang string, mapper schemamap.Mapper, logger *slog.Logger) *PaddleOCR {
	if bin == "" {
		bin = "paddleocr"
	}
	if lang == "" {
		lang = "es"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PaddleOCR{runner: runner, bin: bin, lang: lang, mapper: mapper, log: logger}
}

func (p *PaddleOCR) Name() string { return constants.ProviderPaddleOCR }

func (p *PaddleOCR) SupportedMIMETypes() []string {
	return []string{constants.MIMEPng, constants.MIMEJpeg, constants.MIMEJpg, constants.MIMEWebp, constants.MIMEPdf}
}

// The CLI prints a Python-style dict; recognized lines live in 'rec_texts'.
var reRecTexts = regexp.MustCompile(`(?s)'rec_texts':\s*\[(.*?)\]`)

func (p *PaddleOCR) Process(ctx context.Context, path string, jsonSchema map[string]any) (Result, error) {
	p.log.Info("paddleocr.run", "path", path, "lang", p.lang)

	// paddleocr ocr -i <file> --use_angle_cls true --lang <lang> --enable_mkldnn false
	out, errb, err := p.runner.Run(ctx, p.bin,
		"ocr", "-i", path, "--use_angle_cls", "true", "--lang", p.lang, "--enable_mkldnn", "false")
	if err != nil {
		if len(errb) > 0 {
			return Result{}, fmt.Errorf("paddleocr failed: %w: %s", err, truncate(string(errb), 500))
		}
		return Result{}, fmt.Errorf("paddleocr failed: %w", err)
	}

	text := parseRecTexts(string(out))
	if text == "" {
		p.log.Warn("paddleocr.rec_texts_missing", "path", path, "stdout_bytes", len(out))
		text = string(out)
	}

	data, err := p.mapper.MapTextToSchema(ctx, text, jsonSchema)
	if err != nil {
		return Result{RawText: text}, err
	}
	return Result{Data: data, RawText: text}, nil
}

// parseRecTexts pulls the recognized line texts out of the CLI's stdout and
// joins them with newlines. Returns "" when the pattern is absent.
func parseRecTexts(stdout string) string {
	m := reRecTexts.FindStringSubmatch(stdout)
	if m == nil || m[1] == "" {
		return ""
	}
	parts := strings.Split(m[1], ",")
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		s := strings.TrimSpace(part)
		s = strings.Trim(s, `'"`)
		if s != "" {
			lines = append(lines, s)
		}
	}
	return strings.Join(lines, "\n")
}
