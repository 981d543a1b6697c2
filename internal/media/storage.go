// Package media stores files uploaded through image and file fields.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/equisy/equisy-api/internal/config"
)

// ErrInvalidKey is returned for keys that would escape the storage root.
var ErrInvalidKey = errors.New("media: invalid key")

// Storage saves uploads and returns the URL clients should store.
type Storage interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// New builds the storage backend selected by cfg.
func New(cfg config.MediaConfig) (Storage, error) {
	switch cfg.Backend {
	case "", "disk":
		return NewDiskStorage(cfg.Root, cfg.BaseURL), nil
	case "s3":
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("media.New: unknown backend %q", cfg.Backend)
	}
}

//nolint:gochecknoglobals // compiled once
var (
	unsafeName = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)
	dotRun     = regexp.MustCompile(`\.{2,}`)
)

// Key builds "<schema>/<dir>/<random>-<name>" for an uploaded file name.
func Key(schema, dir, filename string) (string, error) {
	if schema == "" {
		return "", fmt.Errorf("%w: schema is required", ErrInvalidKey)
	}

	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	name = dotRun.ReplaceAllString(unsafeName.ReplaceAllString(name, "_"), ".")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "upload"
	}
	if len(name) > 100 {
		name = name[len(name)-100:]
	}

	key := path.Join(schema, strings.Trim(dir, "/"), uuid.NewString()[:8]+"-"+name)
	if err := checkKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func checkKey(key string) error {
	clean := path.Clean("/" + key)
	if key == "" || clean != "/"+key || strings.Contains(key, "..") {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
