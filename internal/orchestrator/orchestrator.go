// Package orchestrator drives a document through the configured strategy
// stack: format-specific pre-processing, MIME eligibility filtering, ordered
// provider fallback with first-success-wins semantics, and incremental
// progress reporting.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dgonzalezpy/documind/constants"
	"github.com/dgonzalezpy/documind/internal/entity"
	"github.com/dgonzalezpy/documind/internal/provider"
)

// textLayerThreshold is the minimum trimmed text length for a PDF to count
// as text-bearing.
const textLayerThreshold = 50

// ProgressFunc receives the full accumulated log after every appended line so
// observers can watch a job live. Called synchronously, in order.
type ProgressFunc func(fullLog string)

// Result is the outcome of running the whole stack. Exactly one of Data or
// Err is meaningful, according to Success.
type Result struct {
	Success      bool
	Data         map[string]any
	RawText      string
	Err          string // last-seen provider failure when the stack is exhausted
	Log          string
	ProviderUsed string
}

// Config for the orchestrator's own pre-processing tools.
type Config struct {
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	DPI       int    // rasterization DPI for scanned PDFs, default 300
}

// Orchestrator owns the provider registry and the pre-processing tools.
type Orchestrator struct {
	cfg      Config
	registry *provider.Registry
	runner   provider.Runner
	log      *slog.Logger
}

func New(cfg Config, registry *provider.Registry, runner provider.Runner, logger *slog.Logger) *Orchestrator {
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if runner == nil {
		runner = provider.ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{cfg: cfg, registry: registry, runner: runner, log: logger}
}

// Run executes the strategy stack against the file at path. Stack order is
// authoritative: the first provider to succeed wins and later entries are
// never invoked. When every entry fails, the last failure becomes the result
// error.
func (o *Orchestrator) Run(ctx context.Context, path string, stack []entity.StrategyStep, jsonSchema map[string]any, onProgress ProgressFunc) Result {
	var logs []string
	addLog := func(format string, args ...any) {
		line := "[" + time.Now().UTC().Format(time.RFC3339) + "] " + fmt.Sprintf(format, args...)
		logs = append(logs, line)
		o.log.Info("orchestrator.progress", "line", line)
		if onProgress != nil {
			onProgress(strings.Join(logs, "\n"))
		}
	}
	joined := func() string { return strings.Join(logs, "\n") }

	lastErr := "no strategies defined"

	workingFile := path
	initialMIME := constants.MIMEByPath(path)
	addLog("Starting processing stack for: %s (%s)", path, initialMIME)

	if initialMIME == constants.MIMEPdf {
		text, err := provider.ExtractPDFText(ctx, o.runner, o.cfg.Pdftotext, path)
		if err == nil && len(strings.TrimSpace(text)) > textLayerThreshold {
			addLog("PDF with embedded text layer detected. Prioritizing %s strategy.", constants.ProviderPdfText)
			stack = ensureFirst(stack, constants.ProviderPdfText)
		} else {
			addLog("PDF appears to be a scanned image. Converting first page to an image for OCR...")
			out, cleanup, convErr := o.rasterizeFirstPage(ctx, path)
			if convErr != nil {
				addLog("PDF conversion failed: %v. Continuing with the original file.", convErr)
			} else {
				defer cleanup()
				workingFile = out
				addLog("PDF converted to: %s", out)
			}
		}
	}

	effectiveMIME := constants.MIMEByPath(workingFile)
	if effectiveMIME == constants.MIMEOctetStream {
		effectiveMIME = initialMIME
	}

	for _, step := range stack {
		if len(step.MIMETypes) > 0 && !containsMIME(step.MIMETypes, effectiveMIME) {
			addLog("Strategy %s skipped: type %s not allowed.", step.Provider, effectiveMIME)
			continue
		}

		p, ok := o.registry.Get(step.Provider)
		if !ok {
			addLog("WARNING: strategy not found: %s", step.Provider)
			continue
		}

		addLog("Running %s...", step.Provider)
		res, err := runProvider(ctx, p, workingFile, jsonSchema)
		if err != nil {
			addLog("FAILED %s: %v", step.Provider, err)
			lastErr = err.Error()
			continue
		}

		addLog("SUCCESS with %s. Extracted text: %s...", step.Provider, preview(res.RawText, 1000))
		return Result{
			Success:      true,
			Data:         res.Data,
			RawText:      res.RawText,
			Log:          joined(),
			ProviderUsed: step.Provider,
		}
	}

	addLog("Stack finished without success.")
	return Result{Success: false, Err: lastErr, Log: joined()}
}

// runProvider converts a provider panic into an error so one engine can never
// take down the stack loop.
func runProvider(ctx context.Context, p provider.Provider, path string, schema map[string]any) (res provider.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider %s panicked: %v", p.Name(), r)
		}
	}()
	return p.Process(ctx, path, schema)
}

// rasterizeFirstPage renders page one of a scanned PDF to a PNG in a
// temporary directory. The returned cleanup removes the directory once the
// stack run is over.
func (o *Orchestrator) rasterizeFirstPage(ctx context.Context, pdfPath string) (string, func(), error) {
	tmpDir, err := os.MkdirTemp("", "documind-pp-*")
	if err != nil {
		return "", nil, err
	}
	cleanup := func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			o.log.Warn("orchestrator.tmp_cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -png -f 1 -l 1 <in.pdf> <tmp/page>
	_, errb, err := o.runner.Run(ctx, o.cfg.Pdftoppm,
		"-r", fmt.Sprintf("%d", o.cfg.DPI), "-png", "-f", "1", "-l", "1", pdfPath, prefix)
	if err != nil {
		cleanup()
		if len(errb) > 0 {
			return "", nil, fmt.Errorf("%v: %s", err, strings.TrimSpace(string(errb)))
		}
		return "", nil, err
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		cleanup()
		return "", nil, fmt.Errorf("pdftoppm produced no images")
	}
	return matches[0], cleanup, nil
}

// ensureFirst returns a stack that has name as its first entry, prepending it
// only when absent. The input slice is never mutated; the configured order of
// the remaining entries is preserved.
func ensureFirst(stack []entity.StrategyStep, name string) []entity.StrategyStep {
	for _, step := range stack {
		if step.Provider == name {
			return stack
		}
	}
	out := make([]entity.StrategyStep, 0, len(stack)+1)
	out = append(out, entity.StrategyStep{Provider: name})
	return append(out, stack...)
}

func containsMIME(list []string, mime string) bool {
	for _, m := range list {
		if strings.EqualFold(m, mime) {
			return true
		}
	}
	return false
}

// preview caps s for log lines, backing up to a rune boundary so accented
// text never yields invalid UTF-8.
func preview(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
