// Package storage persists uploaded profile images.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImageDir is the directory, relative to the store root, holding profile images.
const ImageDir = "images/profile_pics"

var (
	ErrImageTooLarge        = errors.New("image exceeds maximum size")
	ErrUnsupportedImageType = errors.New("unsupported image type")
	ErrInvalidImagePath     = errors.New("invalid image path")
)

var allowedExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// ImageStore saves images under fresh relative paths and resolves them to URLs.
type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, imagePath string) error
	URL(imagePath string) string
}

// NewImagePath builds a unique relative path for an upload named filename.
// Paths never repeat, so a saved image is never overwritten.
func NewImagePath(filename string, now time.Time) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedExtensions[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedImageType, ext)
	}

	name := fmt.Sprintf("profile_%s_%s%s", now.UTC().Format("20060102T150405"), uuid.NewString(), ext)
	return path.Join(ImageDir, name), nil
}

// ContentType returns the MIME type for an image path.
func ContentType(imagePath string) string {
	if ct, ok := allowedExtensions[strings.ToLower(path.Ext(imagePath))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// cleanImagePath rejects paths escaping the image directory.
func cleanImagePath(imagePath string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(imagePath, "/"))
	if !strings.HasPrefix(cleaned, ImageDir+"/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidImagePath, imagePath)
	}
	return cleaned, nil
}

// readLimited reads r fully, failing once more than maxBytes are seen.
func readLimited(r io.Reader, maxBytes int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if n > maxBytes {
		return nil, ErrImageTooLarge
	}
	return buf.Bytes(), nil
}
