// Package receipt stores payment screenshots and returns stable handles for them.
package receipt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnsupportedType = errors.New("unsupported receipt type")
	ErrNotFound        = errors.New("receipt not found")
)

var contentTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".pdf":  "application/pdf",
}

// Store persists an uploaded receipt and returns its handle.
type Store interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
}

// Ext returns the lower-cased extension of filename if it is an accepted type.
func Ext(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := contentTypes[ext]; !ok {
		return "", ErrUnsupportedType
	}
	return ext, nil
}

// ContentType returns the MIME type for a stored handle.
func ContentType(handle string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(handle))]; ok {
		return ct
	}
	return "application/octet-stream"
}

// IsRemote reports whether the handle is a hosted URL rather than a local file name.
func IsRemote(handle string) bool {
	return strings.HasPrefix(handle, "https://") || strings.HasPrefix(handle, "http://")
}

func newName() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
