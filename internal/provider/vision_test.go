package provider

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type stubVisionClient struct {
	gotPrompt string
	gotImages []string
	response  string
	err       error
}

func (s *stubVisionClient) Generate(_ context.Context, prompt string, images []string) (string, error) {
	s.gotPrompt = prompt
	s.gotImages = images
	return s.response, s.err
}

func writeImage(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestVisionExtractsFromImage(t *testing.T) {
	t.Parallel()

	client := &stubVisionClient{response: `{"total": 100, "vendor": "ACME"}`}
	v := NewOllamaVision(client, "Spanish", nil)

	imageBytes := []byte("fake-png-bytes")
	res, err := v.Process(context.Background(), writeImage(t, "doc.png", imageBytes), map[string]any{"type": "object"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Data["vendor"] != "ACME" {
		t.Fatalf("Data = %v", res.Data)
	}
	if len(client.gotImages) != 1 || client.gotImages[0] != base64.StdEncoding.EncodeToString(imageBytes) {
		t.Fatal("image not sent base64-encoded")
	}
}

func TestVisionRejectsPDF(t *testing.T) {
	t.Parallel()

	v := NewOllamaVision(&stubVisionClient{}, "", nil)
	_, err := v.Process(context.Background(), "/tmp/doc.pdf", nil)
	if err == nil || !strings.Contains(err.Error(), "without prior conversion to an image") {
		t.Fatalf("err = %v", err)
	}
}

func TestVisionMalformedJSONIncludesPreview(t *testing.T) {
	t.Parallel()

	truncated := `{"total": 100, "vendor": "ACM` + strings.Repeat("x", 200)
	client := &stubVisionClient{response: truncated}
	v := NewOllamaVision(client, "", nil)

	_, err := v.Process(context.Background(), writeImage(t, "doc.jpg", []byte("img")), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "incomplete or malformed JSON") {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(msg, truncated[:100]) {
		t.Fatal("error should include the response preview")
	}
	if strings.Contains(msg, truncated) {
		t.Fatal("error should not include the full response")
	}
}
