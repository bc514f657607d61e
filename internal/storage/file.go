package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileSubstrate keeps every key in its own JSON file under dir.
type FileSubstrate struct {
	dir string
}

func NewFileSubstrate(dir string) (*FileSubstrate, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: file substrate needs a directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("mkdir: %w", err)
	}
	return &FileSubstrate{dir: dir}, nil
}

func (f *FileSubstrate) path(key string) string {
	return filepath.Join(f.dir, filepath.Base(key)+".json")
}

// Get returns (nil, false, nil) when the file does not exist.
func (f *FileSubstrate) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	return data, true, nil
}

// Put writes value atomically.
func (f *FileSubstrate) Put(_ context.Context, key string, value []byte) error {
	path := f.path(key)
	tmp := path + ".tmp"
	fh, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open tmp: %w", err)
	}
	if _, err := fh.Write(value); err != nil {
		fh.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write tmp: %w", err)
	}
	if err := fh.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close tmp: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename tmp: %w", err)
	}
	return nil
}

func (f *FileSubstrate) Close() error { return nil }
