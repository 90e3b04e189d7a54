// Package file implements store.Driver on plain JSON files, one per document.
// Writes go through a temp file plus rename so a crashed write leaves the
// previous document intact.
package file

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/hrygo/tripsense/store"
)

// DB stores each document as <dir>/<name>.json.
type DB struct {
	dir string
}

// NewDB creates a file-backed driver rooted at dir.
func NewDB(dir string) (store.Driver, error) {
	if dir == "" {
		return nil, errors.New("data directory required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "unable to create data directory %s", dir)
	}
	return &DB{dir: dir}, nil
}

func (d *DB) path(name string) string {
	return filepath.Join(d.dir, name+".json")
}

// LoadDocument returns the stored blob for name, or store.ErrNotFound.
func (d *DB) LoadDocument(_ context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(d.path(name))
	if os.IsNotExist(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load document %s", name)
	}
	return data, nil
}

// SaveDocument atomically replaces the stored blob for name.
func (d *DB) SaveDocument(_ context.Context, name string, data []byte) error {
	target := d.path(name)
	tmp, err := os.CreateTemp(d.dir, name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "failed to create temp file for %s", name)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "failed to write document %s", name)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "failed to close temp file for %s", name)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "failed to replace document %s", name)
	}
	return nil
}

// Close is a no-op for the file driver.
func (d *DB) Close() error {
	return nil
}
