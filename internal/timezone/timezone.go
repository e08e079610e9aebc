// Package timezone manages the active timezone symlink.
package timezone

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

// FS is a filesystem that can create and read symlinks
type FS interface {
	afero.Fs
	afero.Symlinker
}

// Manager swaps the localtime link between zones under the zoneinfo root
type Manager struct {
	mu       sync.Mutex
	fs       FS
	root     string
	linkPath string
	logger   *zap.Logger
}

// NewManager creates a manager for linkPath pointing into zoneinfoDir
func NewManager(fs FS, zoneinfoDir, linkPath string, logger *zap.Logger) *Manager {
	return &Manager{
		fs:       fs,
		root:     filepath.Clean(zoneinfoDir) + string(filepath.Separator),
		linkPath: linkPath,
		logger:   logger,
	}
}

// SetZone points the link at the named zone. The zone must exist under the
// zoneinfo root; otherwise the link is left untouched.
func (m *Manager) SetZone(name string) error {
	target, err := m.resolve(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	info, err := m.fs.Stat(target)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return types.NewError(types.KindInvalidZone, "set timezone", fmt.Errorf("zone %q does not exist", name))
		}
		return types.NewError(types.KindIOFailure, "set timezone", err)
	}
	if info.IsDir() {
		return types.NewError(types.KindInvalidZone, "set timezone", fmt.Errorf("zone %q is a directory", name))
	}

	// the link is briefly absent between remove and create
	if err := m.fs.Remove(m.linkPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.NewError(types.KindIOFailure, "remove timezone link", err)
	}
	if err := m.fs.SymlinkIfPossible(target, m.linkPath); err != nil {
		return types.NewError(types.KindIOFailure, "create timezone link", err)
	}

	m.logger.Info("Timezone set", zap.String("zone", name), zap.String("target", target))
	return nil
}

// GetZone returns the zone the link points at
func (m *Manager) GetZone() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	target, err := m.fs.ReadlinkIfPossible(m.linkPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", types.NewError(types.KindNotFound, "read timezone link", err)
		}
		return "", types.NewError(types.KindIOFailure, "read timezone link", err)
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(m.linkPath), target)
	}
	if !strings.HasPrefix(target, m.root) {
		return "", types.NewError(types.KindInvalidZone, "read timezone link",
			fmt.Errorf("link target %q is outside %s", target, m.root))
	}
	return strings.TrimPrefix(target, m.root), nil
}

// Unset removes the link. It reports whether a link was present; an absent
// link is not an error.
func (m *Manager) Unset() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fs.Remove(m.linkPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			m.logger.Warn("Timezone link already absent", zap.String("path", m.linkPath))
			return false, nil
		}
		return false, types.NewError(types.KindIOFailure, "remove timezone link", err)
	}
	m.logger.Info("Timezone unset", zap.String("path", m.linkPath))
	return true, nil
}

// resolve maps a zone name to its path, rejecting names that leave the root
func (m *Manager) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", types.NewError(types.KindInvalidZone, "set timezone", fmt.Errorf("empty zone name"))
	}
	target := filepath.Join(m.root, name)
	if !strings.HasPrefix(target, m.root) {
		return "", types.NewError(types.KindInvalidZone, "set timezone", fmt.Errorf("zone %q escapes %s", name, m.root))
	}
	return target, nil
}
