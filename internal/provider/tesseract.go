package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgonzalezpy/documind/constants"
	"github.com/dgonzalezpy/documind/internal/schemamap"
)

// Tesseract performs optical character recognition on raster images via the
// tesseract CLI, then delegates to the schema mapper.
type Tesseract struct {
	runner Runner
	bin    string
	lang   string
	mapper schemamap.Mapper
	log    *slog.Logger
}

func NewTesseract(runner Runner, bin, lang string, mapper schemamap.Mapper, logger *slog.Logger) *Tesseract {
	if bin == "" {
		bin = "tesseract"
	}
	if lang == "" {
		lang = "spa+eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tesseract{runner: runner, bin: bin, lang: lang, mapper: mapper, log: logger}
}

func (t *Tesseract) Name() string { return constants.ProviderTesseract }

func (t *Tesseract) SupportedMIMETypes() []string {
	return []string{constants.MIMEPng, constants.MIMEJpeg, constants.MIMEJpg, constants.MIMEWebp}
}

func (t *Tesseract) Process(ctx context.Context, path string, jsonSchema map[string]any) (Result, error) {
	t.log.Info("tesseract.recognize", "path", path, "lang", t.lang)

	// tesseract <file> stdout -l <lang>
	out, errb, err := t.runner.Run(ctx, t.bin, path, "stdout", "-l", t.lang)
	if err != nil {
		if len(errb) > 0 {
			return Result{}, fmt.Errorf("tesseract: %w: %s", err, truncate(string(errb), 500))
		}
		return Result{}, fmt.Errorf("tesseract: %w", err)
	}
	text := string(out)

	data, err := t.mapper.MapTextToSchema(ctx, text, jsonSchema)
	if err != nil {
		return Result{RawText: text}, err
	}
	return Result{Data: data, RawText: text}, nil
}
