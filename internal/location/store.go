// Package location stores single string values as files under the data
// directory.
package location

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sysconfd/internal/types"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

const (
	// LocationKey is the key the system location is kept under
	LocationKey = "location"
	// MaxLocationLength bounds the stored location string
	MaxLocationLength = 100

	fileSuffix = "_info"
)

// Store keeps one value per key in <dir>/<key>_info
type Store struct {
	mu     sync.RWMutex
	fs     afero.Fs
	dir    string
	logger *zap.Logger
}

// NewStore creates a store rooted at dir
func NewStore(fs afero.Fs, dir string, logger *zap.Logger) *Store {
	return &Store{fs: fs, dir: dir, logger: logger}
}

// ReadValue returns the value stored under key
func (s *Store) ReadValue(key string) (string, error) {
	path, err := s.path(key)
	if err != nil {
		return "", err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", types.NewError(types.KindNotFound, "read value", fmt.Errorf("key %q", key))
		}
		return "", types.NewError(types.KindIOFailure, "read value", err)
	}
	return string(data), nil
}

// WriteValue replaces the value stored under key
func (s *Store) WriteValue(key, value string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return types.NewError(types.KindIOFailure, "write value", err)
	}
	if err := afero.WriteFile(s.fs, path, []byte(value), 0644); err != nil {
		return types.NewError(types.KindIOFailure, "write value", err)
	}
	s.logger.Debug("Value stored", zap.String("key", key), zap.String("path", path))
	return nil
}

func (s *Store) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", types.NewError(types.KindInvalidValue, "resolve key", fmt.Errorf("invalid key %q", key))
	}
	return filepath.Join(s.dir, key+fileSuffix), nil
}
