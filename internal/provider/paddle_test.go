package provider

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type stubRunner struct {
	stdout []byte
	stderr []byte
	err    error
	gotCmd string
	gotArg []string
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.gotCmd = name
	s.gotArg = args
	return s.stdout, s.stderr, s.err
}

type stubMapper struct {
	gotText string
	data    map[string]any
	err     error
}

func (m *stubMapper) MapTextToSchema(_ context.Context, text string, _ map[string]any) (map[string]any, error) {
	m.gotText = text
	return m.data, m.err
}

func TestParseRecTexts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		stdout string
		want   string
	}{
		{
			"typical dict output",
			`{'rec_texts': ['FACTURA', 'Total: 100.000', 'RUC 80012345-6'], 'rec_scores': [0.99]}`,
			"FACTURA\nTotal: 100.000\nRUC 80012345-6",
		},
		{"empty list", `{'rec_texts': [], 'other': 1}`, ""},
		{"pattern absent", "plain log output", ""},
		{
			"multiline output",
			"prefix noise\n{'rec_texts': ['a',\n 'b']}\nsuffix",
			"a\nb",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := parseRecTexts(tc.stdout); got != tc.want {
				t.Fatalf("parseRecTexts = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestPaddleOCRProcess(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{stdout: []byte(`{'rec_texts': ['line one', 'line two']}`)}
	mapper := &stubMapper{data: map[string]any{"total": 5.0}}
	p := NewPaddleOCR(runner, "", "", mapper, nil)

	res, err := p.Process(context.Background(), "/tmp/doc.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	if runner.gotCmd != "paddleocr" {
		t.Fatalf("cmd = %q", runner.gotCmd)
	}
	if mapper.gotText != "line one\nline two" {
		t.Fatalf("mapper received %q", mapper.gotText)
	}
	if res.RawText != "line one\nline two" || res.Data["total"] != 5.0 {
		t.Fatalf("res = %+v", res)
	}
}

func TestPaddleOCRFallsBackToRawStdout(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{stdout: []byte("unstructured engine output")}
	mapper := &stubMapper{data: map[string]any{}}
	p := NewPaddleOCR(runner, "", "", mapper, nil)

	if _, err := p.Process(context.Background(), "/tmp/doc.png", nil); err != nil {
		t.Fatal(err)
	}
	if mapper.gotText != "unstructured engine output" {
		t.Fatalf("mapper received %q, want raw stdout", mapper.gotText)
	}
}

func TestPaddleOCRCommandFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{err: errors.New("exit status 127"), stderr: []byte("command not found")}
	p := NewPaddleOCR(runner, "", "", &stubMapper{}, nil)

	_, err := p.Process(context.Background(), "/tmp/doc.png", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "command not found") {
		t.Fatalf("error should carry stderr, got %v", err)
	}
}

func TestPdfTextRejectsEmptyTextLayer(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{stdout: []byte("   \n  ")}
	p := NewPdfText(runner, "", &stubMapper{}, nil)

	_, err := p.Process(context.Background(), "/tmp/scan.pdf", nil)
	if err == nil || !strings.Contains(err.Error(), "no text found in PDF") {
		t.Fatalf("err = %v", err)
	}
}

func TestTesseractProcess(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{stdout: []byte("recognized text")}
	mapper := &stubMapper{data: map[string]any{"ok": true}}
	p := NewTesseract(runner, "", "spa+eng", mapper, nil)

	res, err := p.Process(context.Background(), "/tmp/doc.png", nil)
	if err != nil {
		t.Fatal(err)
	}
	if runner.gotCmd != "tesseract" {
		t.Fatalf("cmd = %q", runner.gotCmd)
	}
	if got := strings.Join(runner.gotArg, " "); !strings.Contains(got, "-l spa+eng") {
		t.Fatalf("args = %q", got)
	}
	if res.RawText != "recognized text" {
		t.Fatalf("RawText = %q", res.RawText)
	}
}
