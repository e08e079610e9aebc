// Package passwd rewrites a single field of one account in a
// passwd(5)-formatted database.
//
// Updates stream the database through a temp file next to it and rename it
// into place. The previous content is kept at <path>.bak. Writers outside
// this process are not coordinated with.
package passwd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"sysconfd/internal/types"

	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// MaxFieldLength bounds the gecos value
const MaxFieldLength = 100

const (
	fieldCount = 7
	gecosField = 4
)

// Updater rewrites the gecos field of accounts in a passwd file
type Updater struct {
	mu     sync.Mutex
	fs     afero.Fs
	path   string
	logger *zap.Logger
}

// NewUpdater creates an updater for the database at path
func NewUpdater(fs afero.Fs, path string, logger *zap.Logger) *Updater {
	return &Updater{
		fs:     fs,
		path:   path,
		logger: logger,
	}
}

// BackupPath returns where the previous database content is kept
func (u *Updater) BackupPath() string {
	return u.path + ".bak"
}

// GetField returns the gecos field of user
func (u *Updater) GetField(user string) (string, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	f, err := u.fs.Open(u.path)
	if err != nil {
		return "", ioError("open passwd", err)
	}
	defer f.Close()

	var value string
	found := false
	err = scanRecords(f, func(line, _ string) error {
		if fields, ok := matchUser(line, user); ok && !found {
			value = fields[gecosField]
			found = true
		}
		return nil
	})
	if err != nil {
		return "", types.NewError(types.KindIOFailure, "read passwd", err)
	}
	if !found {
		return "", types.NewError(types.KindNotFound, "read passwd", fmt.Errorf("account %q", user))
	}
	return value, nil
}

// SetField replaces the gecos field of user with value. All other records
// and fields are written back unchanged and in order.
func (u *Updater) SetField(user, value string) error {
	if strings.ContainsAny(value, ":\n\r") {
		return types.NewError(types.KindInvalidValue, "set gecos",
			fmt.Errorf("value %q contains a field or record separator", value))
	}
	if len(value) > MaxFieldLength {
		return types.NewError(types.KindInvalidValue, "set gecos",
			fmt.Errorf("value exceeds %d bytes", MaxFieldLength))
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	info, err := u.fs.Stat(u.path)
	if err != nil {
		return ioError("stat passwd", err)
	}

	tmpName, found, err := u.writeTemp(user, value)
	if err != nil {
		return types.NewError(types.KindIOFailure, "rewrite passwd", err)
	}
	if !found {
		_ = u.fs.Remove(tmpName)
		return types.NewError(types.KindNotFound, "set gecos", fmt.Errorf("account %q", user))
	}

	if err := u.replace(tmpName, info.Mode().Perm()); err != nil {
		return types.NewError(types.KindIOFailure, "replace passwd", err)
	}

	u.logger.Info("Account field updated",
		zap.String("user", user),
		zap.String("path", u.path))
	return nil
}

// writeTemp streams the database into a temp file in the same directory,
// rewriting the target record
func (u *Updater) writeTemp(user, value string) (name string, found bool, err error) {
	src, err := u.fs.Open(u.path)
	if err != nil {
		return "", false, fmt.Errorf("failed to open database: %w", err)
	}
	defer src.Close()

	tmp, err := afero.TempFile(u.fs, filepath.Dir(u.path), "."+filepath.Base(u.path)+".tmp-")
	if err != nil {
		return "", false, fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if cerr := tmp.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close temp file: %w", cerr)
		}
		if err != nil {
			_ = u.fs.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	err = scanRecords(src, func(line, eol string) error {
		if fields, ok := matchUser(line, user); ok {
			fields[gecosField] = value
			line = strings.Join(fields, ":")
			found = true
		}
		_, werr := w.WriteString(line + eol)
		return werr
	})
	if err != nil {
		return "", false, err
	}
	if err = w.Flush(); err != nil {
		return "", false, fmt.Errorf("failed to flush temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return "", false, fmt.Errorf("failed to sync temp file: %w", err)
	}
	return tmpPath, found, nil
}

// replace backs up the database and moves the temp file over it. If the
// database went missing along the way it is restored from the backup.
func (u *Updater) replace(tmpName string, mode os.FileMode) (err error) {
	defer func() {
		if err == nil {
			return
		}
		_ = u.fs.Remove(tmpName)
		if _, statErr := u.fs.Stat(u.path); errors.Is(statErr, os.ErrNotExist) {
			if rerr := copyFile(u.fs, u.BackupPath(), u.path, mode); rerr != nil {
				u.logger.Error("Failed to restore passwd from backup",
					zap.String("backup", u.BackupPath()),
					zap.Error(rerr))
			} else {
				u.logger.Warn("Restored passwd from backup", zap.String("path", u.path))
			}
		}
	}()

	if err = copyFile(u.fs, u.path, u.BackupPath(), mode); err != nil {
		return fmt.Errorf("failed to back up database: %w", err)
	}
	if err = u.fs.Chmod(tmpName, mode); err != nil {
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err = u.fs.Rename(tmpName, u.path); err != nil {
		return fmt.Errorf("failed to move temp file into place: %w", err)
	}
	return nil
}

// scanRecords calls fn for every line with its terminator split off. The
// terminator is empty for a final line without a newline.
func scanRecords(r io.Reader, fn func(line, eol string) error) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if len(line) > 0 {
			eol := ""
			if strings.HasSuffix(line, "\n") {
				line, eol = line[:len(line)-1], "\n"
			}
			if ferr := fn(line, eol); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func matchUser(line, user string) ([]string, bool) {
	fields := strings.Split(line, ":")
	if len(fields) != fieldCount || fields[0] != user {
		return nil, false
	}
	return fields, true
}

func copyFile(fs afero.Fs, src, dst string, mode os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func ioError(op string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return types.NewError(types.KindNotFound, op, err)
	}
	return types.NewError(types.KindIOFailure, op, err)
}
