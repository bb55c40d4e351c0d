package schemamap

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func ollamaStub(t *testing.T, respond func(req generateRequest) generateResponse) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(respond(req))
	}))
}

func TestMapTextToSchema(t *testing.T) {
	t.Parallel()

	var gotReq generateRequest
	srv := ollamaStub(t, func(req generateRequest) generateResponse {
		gotReq = req
		return generateResponse{Response: `{"total": 150000, "vendor": "ACME S.A."}`}
	})
	defer srv.Close()

	m := NewOllamaMapper(Config{URL: srv.URL, Model: "llama3"}, nil)
	schema := map[string]any{
		"type":       "object",
		"properties": map[string]any{"total": map[string]any{"type": "number"}},
	}

	data, err := m.MapTextToSchema(context.Background(), "FACTURA Total: 150.000", schema)
	if err != nil {
		t.Fatal(err)
	}
	if data["vendor"] != "ACME S.A." {
		t.Fatalf("data = %v", data)
	}
	if gotReq.Format != "json" || gotReq.Stream {
		t.Fatalf("request must be non-streaming JSON mode, got %+v", gotReq)
	}
	if !strings.Contains(gotReq.Prompt, "FACTURA Total: 150.000") {
		t.Fatal("prompt missing the document text")
	}
	if !strings.Contains(gotReq.Prompt, `"total"`) {
		t.Fatal("prompt missing the schema")
	}
}

func TestMapTextToSchemaNonJSONResponse(t *testing.T) {
	t.Parallel()

	srv := ollamaStub(t, func(generateRequest) generateResponse {
		return generateResponse{Response: "Sure! Here is the data you asked for:"}
	})
	defer srv.Close()

	m := NewOllamaMapper(Config{URL: srv.URL}, nil)
	_, err := m.MapTextToSchema(context.Background(), "text", nil)
	if err == nil || !strings.Contains(err.Error(), "non-JSON") {
		t.Fatalf("err = %v", err)
	}
}

func TestMapTextToSchemaModelError(t *testing.T) {
	t.Parallel()

	srv := ollamaStub(t, func(generateRequest) generateResponse {
		return generateResponse{Error: "model not found"}
	})
	defer srv.Close()

	m := NewOllamaMapper(Config{URL: srv.URL}, nil)
	_, err := m.MapTextToSchema(context.Background(), "text", nil)
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("err = %v", err)
	}
}

func TestMapTextToSchemaHTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	m := NewOllamaMapper(Config{URL: srv.URL}, nil)
	if _, err := m.MapTextToSchema(context.Background(), "text", nil); err == nil {
		t.Fatal("expected error on 503")
	}
}

func TestGeneratePassesImages(t *testing.T) {
	t.Parallel()

	var gotReq generateRequest
	srv := ollamaStub(t, func(req generateRequest) generateResponse {
		gotReq = req
		return generateResponse{Response: `{}`}
	})
	defer srv.Close()

	m := NewOllamaMapper(Config{URL: srv.URL}, nil)
	if _, err := m.Generate(context.Background(), "describe", []string{"base64data"}); err != nil {
		t.Fatal(err)
	}
	if len(gotReq.Images) != 1 || gotReq.Images[0] != "base64data" {
		t.Fatalf("images = %v", gotReq.Images)
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	if got := Truncate("short", 100); got != "short" {
		t.Fatalf("got %q", got)
	}
	long := strings.Repeat("a", 150)
	got := Truncate(long, 100)
	if len(got) <= 100 && !strings.HasSuffix(got, "...(truncated)") {
		t.Fatalf("got %q", got)
	}
	if !strings.HasPrefix(got, strings.Repeat("a", 100)) {
		t.Fatal("prefix lost")
	}
}

func TestTruncateNeverSplitsRunes(t *testing.T) {
	t.Parallel()

	s := strings.Repeat("dirección año ", 30)
	for max := 1; max < 30; max++ {
		got := Truncate(s, max)
		if !utf8.ValidString(got) {
			t.Fatalf("Truncate(%d) produced invalid UTF-8: %q", max, got)
		}
	}
}
