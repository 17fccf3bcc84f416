package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const maxNameLength = 100

// LocalBackend writes files into a directory served under PublicPrefix.
type LocalBackend struct {
	dir string
	now func() time.Time
}

// NewLocalBackend creates dir if needed.
func NewLocalBackend(dir string) (*LocalBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalBackend{dir: dir, now: time.Now}, nil
}

// Dir returns the directory files are written to.
func (b *LocalBackend) Dir() string {
	return b.dir
}

func (b *LocalBackend) Store(ctx context.Context, name, contentType string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fileName := fmt.Sprintf("%d_%s", b.now().UnixNano(), SanitizeName(name))
	path := filepath.Join(b.dir, fileName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", fileName, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", fileName, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close %s: %w", fileName, err)
	}

	return PublicPrefix + fileName, nil
}

func (b *LocalBackend) Remove(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	fileName, ok := strings.CutPrefix(url, PublicPrefix)
	if !ok || fileName == "" || fileName != filepath.Base(fileName) || strings.HasPrefix(fileName, ".") {
		return fmt.Errorf("not a stored file: %q", url)
	}

	if err := os.Remove(filepath.Join(b.dir, fileName)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", fileName, err)
	}
	return nil
}

// SanitizeName reduces a client-supplied file name to a safe base name.
func SanitizeName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var sb strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}

	out := strings.TrimLeft(sb.String(), ".")
	if out == "" {
		out = "upload"
	}
	if len(out) > maxNameLength {
		out = out[len(out)-maxNameLength:]
	}
	return out
}
