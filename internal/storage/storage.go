// Package storage keeps uploaded KYC files in a blob backend.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"remesas/internal/config"
)

var ErrForeignURL = errors.New("url does not belong to this store")

type Store interface {
	// Upload stores body under key and returns its public URL.
	Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	// Delete removes the object a previous Upload returned url for.
	Delete(ctx context.Context, url string) error
	// Key maps a URL of this store back to the cleaned key it was uploaded
	// under. Foreign URLs give ErrForeignURL.
	Key(url string) (string, error)
}

// New builds the backend named in cfg.Storage.Provider.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Provider {
	case "", "local":
		return NewLocal(cfg.Files.RootDir, cfg.Files.PublicPrefix), nil
	case "s3":
		return NewS3FromConfig(ctx, cfg.Storage.S3)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Storage.Provider)
	}
}

// cleanKey rejects keys that would escape the store root.
func cleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.TrimSpace(key))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.HasPrefix(k, "..") {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return k, nil
}
