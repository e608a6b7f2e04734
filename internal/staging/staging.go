// Package staging manages the local temporary files that carry content
// between the caller and smbclient for get and put.
package staging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"digital.vasic.smbshare/internal/logger"
)

// Area creates and removes staging files under a base directory.
type Area struct {
	dir string
}

// New returns an area rooted at dir; an empty dir uses os.TempDir().
func New(dir string) *Area {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Area{dir: dir}
}

// Dir returns the base directory.
func (a *Area) Dir() string {
	return a.dir
}

// Path returns a fresh, unused file path tagged with op. The file is not created.
func (a *Area) Path(op string) string {
	name := fmt.Sprintf("smbshare-%s-%d-%s", op, time.Now().UnixNano(), uuid.NewString())
	return filepath.Join(a.dir, name)
}

// Write stores data at a new staging path and returns it.
func (a *Area) Write(op string, data io.Reader) (string, error) {
	path := a.Path(op)

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("failed to create staging file %s: %w", path, err)
	}

	n, err := io.Copy(file, data)
	if cerr := file.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		a.Remove(path)
		return "", fmt.Errorf("failed to write staging file %s: %w", path, err)
	}

	logger.Debug("staged upload", logger.KeyPath, path, logger.KeyBytes, n)
	return path, nil
}

// Read returns the full content of a staging file.
func (a *Area) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read staging file %s: %w", path, err)
	}
	return data, nil
}

// Remove deletes path once. Failures, including a missing file, are logged and ignored.
func (a *Area) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Debug("failed to remove staging file", logger.KeyPath, path, logger.KeyError, err.Error())
	}
}
