package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DiskStorage writes files below Root and serves them under BaseURL.
type DiskStorage struct {
	root    string
	baseURL string
}

func NewDiskStorage(root, baseURL string) *DiskStorage {
	if baseURL == "" {
		baseURL = "/media/"
	}
	return &DiskStorage{root: root, baseURL: strings.TrimSuffix(baseURL, "/") + "/"}
}

func (d *DiskStorage) Save(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	if err := checkKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(d.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return "", fmt.Errorf("media.DiskStorage.Save: %w", err)
	}

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return "", fmt.Errorf("media.DiskStorage.Save: %w", err)
	}

	if _, err = io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("media.DiskStorage.Save: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("media.DiskStorage.Save: %w", err)
	}

	return d.baseURL + key, nil
}

// Delete removes key. A missing file is not an error.
func (d *DiskStorage) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	err := os.Remove(filepath.Join(d.root, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("media.DiskStorage.Delete: %w", err)
	}
	return nil
}
