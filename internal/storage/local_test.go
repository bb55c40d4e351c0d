package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalUploadAndResolve(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	l, err := NewLocal(dir)
	if err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(src, []byte("content"), 0o644); err != nil {
		t.Fatal(err)
	}

	handle, err := l.Upload(context.Background(), src)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Ext(handle) != ".pdf" {
		t.Fatalf("handle should keep the extension: %q", handle)
	}

	resolved, err := l.ResolveLocalPath(context.Background(), handle)
	if err != nil {
		t.Fatal(err)
	}
	// Local handles resolve to themselves: the consumer must not delete them.
	if resolved != handle {
		t.Fatalf("resolved = %q, want the handle itself", resolved)
	}

	got, err := os.ReadFile(resolved)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "content" {
		t.Fatalf("blob content = %q", got)
	}
}

func TestLocalResolveMissingHandle(t *testing.T) {
	t.Parallel()

	l, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := l.ResolveLocalPath(context.Background(), filepath.Join(t.TempDir(), "nope.pdf")); err == nil {
		t.Fatal("missing blob must error")
	}
}
