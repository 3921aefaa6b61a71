// Package storage persists generated documents either on disk or in an S3 compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	CVFile     = "tailored_cv.md"
	ReportFile = "match_report.json"

	ContentTypeMarkdown = "text/markdown; charset=utf-8"
	ContentTypeJSON     = "application/json"
)

// Object describes a stored document.
type Object struct {
	Key         string `json:"key"`
	Location    string `json:"location"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
}

// Store writes a document under key.
type Store interface {
	Put(ctx context.Context, key string, content []byte, contentType string) (Object, error)
}

// CoverLetterFile is the file name for a cover letter written in tone.
func CoverLetterFile(tone string) string {
	tone = strings.ToLower(strings.TrimSpace(tone))
	if tone == "" {
		tone = "professional"
	}
	return "cover_letter_" + tone + ".md"
}

// Key joins the session id and file name into an object key.
func Key(sessionID, name string) string {
	return path.Join(sessionID, name)
}

func validateKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("object key is required")
	}

	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	return cleaned, nil
}

// Local stores documents below a directory.
type Local struct {
	dir string
}

func NewLocal(dir string) (*Local, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("output directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory %q: %w", dir, err)
	}

	return &Local{dir: dir}, nil
}

func (l *Local) Put(_ context.Context, key string, content []byte, contentType string) (Object, error) {
	key, err := validateKey(key)
	if err != nil {
		return Object{}, err
	}

	target := filepath.Join(l.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("create directory for %q: %w", key, err)
	}

	if err := os.WriteFile(target, content, 0o644); err != nil {
		return Object{}, fmt.Errorf("write %q: %w", target, err)
	}

	return Object{Key: key, Location: target, ContentType: contentType, Size: len(content)}, nil
}
