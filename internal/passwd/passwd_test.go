package passwd

import (
	"errors"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sysconfd/internal/types"
)

const (
	testPath = "/etc/passwd"
	testDB   = "root:x:0:0:root:/root:/bin/bash\n" +
		"daemon:x:1:1:daemon:/usr/sbin:/usr/sbin/nologin\n" +
		"# local accounts\n" +
		"admin:x:1000:1000:Old Contact,,,:/home/admin:/bin/bash\n" +
		"nobody:x:65534:65534:nobody:/nonexistent:/usr/sbin/nologin\n"
)

func newTestUpdater(t *testing.T, content string) (*Updater, afero.Fs) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, testPath, []byte(content), 0644))
	return NewUpdater(fs, testPath, zaptest.NewLogger(t)), fs
}

func TestSetField(t *testing.T) {
	u, fs := newTestUpdater(t, testDB)

	require.NoError(t, u.SetField("admin", "Jane Doe <jane@example.com>"))

	data, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)

	before := strings.Split(testDB, "\n")
	after := strings.Split(string(data), "\n")
	require.Len(t, after, len(before))
	for i := range before {
		if strings.HasPrefix(before[i], "admin:") {
			assert.Equal(t, "admin:x:1000:1000:Jane Doe <jane@example.com>:/home/admin:/bin/bash", after[i])
			continue
		}
		assert.Equal(t, before[i], after[i])
	}

	value, err := u.GetField("admin")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe <jane@example.com>", value)

	backup, err := afero.ReadFile(fs, u.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, testDB, string(backup))
}

func TestSetFieldEmptyValue(t *testing.T) {
	u, _ := newTestUpdater(t, testDB)

	require.NoError(t, u.SetField("admin", ""))
	value, err := u.GetField("admin")
	require.NoError(t, err)
	assert.Empty(t, value)
}

func TestSetFieldKeepsModeAndMissingNewline(t *testing.T) {
	content := strings.TrimSuffix(testDB, "\n")
	u, fs := newTestUpdater(t, content)
	require.NoError(t, fs.Chmod(testPath, 0600))

	require.NoError(t, u.SetField("root", "Superuser"))

	data, err := afero.ReadFile(fs, testPath)
	require.NoError(t, err)
	assert.False(t, strings.HasSuffix(string(data), "\n"))
	assert.Equal(t, strings.Replace(content, ":0:0:root:", ":0:0:Superuser:", 1), string(data))

	info, err := fs.Stat(testPath)
	require.NoError(t, err)
	assert.Equal(t, 0600, int(info.Mode().Perm()))

	entries, err := afero.ReadDir(fs, "/etc")
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"passwd", "passwd.bak"}, names)
}

func TestSetFieldErrors(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		value   string
		wantErr error
	}{
		{"unknown account", "ghost", "x", types.ErrNotFound},
		{"field separator", "admin", "a:b", types.ErrInvalidValue},
		{"record separator", "admin", "a\nb", types.ErrInvalidValue},
		{"too long", "admin", strings.Repeat("x", MaxFieldLength+1), types.ErrInvalidValue},
		{"comment line is not an account", "# local accounts", "x", types.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, fs := newTestUpdater(t, testDB)

			err := u.SetField(tt.user, tt.value)
			assert.ErrorIs(t, err, tt.wantErr)

			data, rerr := afero.ReadFile(fs, testPath)
			require.NoError(t, rerr)
			assert.Equal(t, testDB, string(data))

			exists, _ := afero.Exists(fs, u.BackupPath())
			assert.False(t, exists)
		})
	}
}

func TestMissingDatabase(t *testing.T) {
	u := NewUpdater(afero.NewMemMapFs(), testPath, zaptest.NewLogger(t))

	_, err := u.GetField("admin")
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.ErrorIs(t, u.SetField("admin", "x"), types.ErrNotFound)
}

func TestGetFieldUnknownAccount(t *testing.T) {
	u, _ := newTestUpdater(t, testDB)
	_, err := u.GetField("ghost")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSetFieldReadOnlyFs(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, testPath, []byte(testDB), 0644))
	u := NewUpdater(afero.NewReadOnlyFs(base), testPath, zaptest.NewLogger(t))

	assert.ErrorIs(t, u.SetField("admin", "x"), types.ErrIO)

	data, err := afero.ReadFile(base, testPath)
	require.NoError(t, err)
	assert.Equal(t, testDB, string(data))
}

// lossyRenameFs drops the destination before failing the rename
type lossyRenameFs struct {
	afero.Fs
}

func (f lossyRenameFs) Rename(oldname, newname string) error {
	_ = f.Fs.Remove(newname)
	return errors.New("device busy")
}

func TestSetFieldRestoresBackupAfterFailedRename(t *testing.T) {
	base := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(base, testPath, []byte(testDB), 0644))
	u := NewUpdater(lossyRenameFs{Fs: base}, testPath, zaptest.NewLogger(t))

	err := u.SetField("admin", "Jane Doe")
	assert.ErrorIs(t, err, types.ErrIO)

	data, err := afero.ReadFile(base, testPath)
	require.NoError(t, err)
	assert.Equal(t, testDB, string(data))

	backup, err := afero.ReadFile(base, u.BackupPath())
	require.NoError(t, err)
	assert.Equal(t, testDB, string(backup))

	entries, err := afero.ReadDir(base, "/etc")
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.Contains(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}
