package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"time"
)

// LocalImageStore writes images below a root directory served as static files.
type LocalImageStore struct {
	root      string
	urlPrefix string
	maxBytes  int64
	now       func() time.Time
}

func NewLocalImageStore(root, urlPrefix string, maxBytes int64) *LocalImageStore {
	return &LocalImageStore{
		root:      root,
		urlPrefix: urlPrefix,
		maxBytes:  maxBytes,
		now:       time.Now,
	}
}

func (s *LocalImageStore) Save(_ context.Context, filename string, r io.Reader) (string, error) {
	imagePath, err := NewImagePath(filename, s.now())
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.root, filepath.FromSlash(imagePath))
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	n, err := io.Copy(tmp, io.LimitReader(r, s.maxBytes+1))
	closeErr := tmp.Close()
	if err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	if closeErr != nil {
		return "", fmt.Errorf("close image: %w", closeErr)
	}
	if n > s.maxBytes {
		return "", ErrImageTooLarge
	}

	if err := os.Rename(tmpName, target); err != nil {
		return "", fmt.Errorf("move image into place: %w", err)
	}
	committed = true

	return imagePath, nil
}

func (s *LocalImageStore) Delete(_ context.Context, imagePath string) error {
	cleaned, err := cleanImagePath(imagePath)
	if err != nil {
		return err
	}

	err = os.Remove(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

func (s *LocalImageStore) URL(imagePath string) string {
	return path.Join("/", s.urlPrefix, imagePath)
}
