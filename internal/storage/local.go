package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Local keeps blobs on the worker's own disk. Handles are absolute paths, so
// ResolveLocalPath is the identity and nothing is ever downloaded.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	if dir == "" {
		dir = "./uploads"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &Local{dir: abs}, nil
}

func (l *Local) Upload(_ context.Context, localPath string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open source: %w", err)
	}
	defer src.Close()

	dest := filepath.Join(l.dir, uuid.New().String()+filepath.Ext(localPath))
	dst, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create blob: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return "", fmt.Errorf("copy blob: %w", err)
	}
	return dest, nil
}

func (l *Local) ResolveLocalPath(_ context.Context, handle string) (string, error) {
	if _, err := os.Stat(handle); err != nil {
		return "", fmt.Errorf("blob not found: %w", err)
	}
	return handle, nil
}

func (l *Local) ExternalURL(string) string { return "" }
