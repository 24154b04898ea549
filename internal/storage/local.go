package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Local writes files under RootDir; the app serves them at PublicPrefix.
type Local struct {
	RootDir      string
	PublicPrefix string
}

func NewLocal(rootDir, publicPrefix string) *Local {
	return &Local{RootDir: rootDir, PublicPrefix: "/" + strings.Trim(publicPrefix, "/")}
}

func (l *Local) Upload(ctx context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dst := filepath.Join(l.RootDir, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("mkdir: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", k, err)
	}
	if _, err := io.Copy(f, body); err != nil {
		f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write %s: %w", k, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", k, err)
	}
	return l.PublicPrefix + "/" + k, nil
}

func (l *Local) Key(url string) (string, error) {
	rel, ok := strings.CutPrefix(strings.TrimSpace(url), l.PublicPrefix+"/")
	if !ok {
		return "", ErrForeignURL
	}
	return cleanKey(rel)
}

func (l *Local) Delete(ctx context.Context, url string) error {
	k, err := l.Key(url)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(l.RootDir, filepath.FromSlash(k))); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove %s: %w", k, err)
	}
	return nil
}
