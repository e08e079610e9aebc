package ntp

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sysconfd/internal/types"
)

const testConfigPath = "/etc/ntp.conf"

type stubService struct {
	enabled  int
	disabled int
	err      error
}

func (s *stubService) Enable(context.Context) error {
	s.enabled++
	return s.err
}

func (s *stubService) Disable(context.Context) error {
	s.disabled++
	return s.err
}

func newTestRegistry(t *testing.T) (*Registry, afero.Fs, *stubService) {
	fs := afero.NewMemMapFs()
	svc := &stubService{}
	return NewRegistry(fs, testConfigPath, svc, zaptest.NewLogger(t)), fs, svc
}

func TestRegistrySetOnUnknownName(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.NoError(t, r.CreateServer("other"))

	setters := map[string]func() error{
		"address":          func() error { return r.SetAddress("s1", "192.0.2.1") },
		"port":             func() error { return r.SetPort("s1", "123") },
		"association-type": func() error { return r.SetAssociationType("s1", "pool") },
		"iburst":           func() error { return r.SetIburst("s1", true) },
		"prefer":           func() error { return r.SetPrefer("s1", true) },
	}
	for name, set := range setters {
		t.Run(name, func(t *testing.T) {
			err := set()
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrNotFound))
		})
	}

	// a bad value on an unknown name is still a lookup failure
	err := r.SetPort("s1", "not-a-port")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRegistryCreateIsIdempotent(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.NoError(t, r.CreateServer("s1"))
	require.NoError(t, r.SetAddress("s1", "192.0.2.1"))
	require.NoError(t, r.CreateServer("s1"))

	servers := r.Servers()
	require.Len(t, servers, 1)
	assert.Equal(t, "192.0.2.1", servers[0].Address)
	assert.Equal(t, DefaultPort, servers[0].Port)
	assert.Equal(t, AssociationServer, servers[0].AssociationType)
}

func TestRegistryRender(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	assert.Empty(t, r.Render())

	require.NoError(t, r.CreateServer("b"))
	require.NoError(t, r.SetAddress("b", "192.0.2.2"))
	require.NoError(t, r.SetPort("b", "1123"))
	require.NoError(t, r.SetAssociationType("b", "pool"))
	require.NoError(t, r.SetPrefer("b", true))

	require.NoError(t, r.CreateServer("a"))
	require.NoError(t, r.SetAddress("a", "192.0.2.1"))
	require.NoError(t, r.SetIburst("a", true))
	require.NoError(t, r.SetPrefer("a", true))

	require.NoError(t, r.CreateServer("c"))
	require.NoError(t, r.SetAddress("c", "ntp.example.org"))
	require.NoError(t, r.SetAssociationType("c", "peer"))

	want := "server 192.0.2.2:1123 pool prefer\n" +
		"server 192.0.2.1:123 server iburst prefer\n" +
		"server ntp.example.org:123 peer\n"
	assert.Equal(t, want, string(r.Render()))

	assert.True(t, r.RemoveServer("a"))
	assert.False(t, r.RemoveServer("a"))
	want = "server 192.0.2.2:1123 pool prefer\n" +
		"server ntp.example.org:123 peer\n"
	assert.Equal(t, want, string(r.Render()))
}

func TestRegistryParseErrors(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.NoError(t, r.CreateServer("s1"))

	tests := []struct {
		name string
		set  func() error
	}{
		{"non numeric port", func() error { return r.SetPort("s1", "ntp") }},
		{"port out of range", func() error { return r.SetPort("s1", "70000") }},
		{"negative port", func() error { return r.SetPort("s1", "-1") }},
		{"unknown association", func() error { return r.SetAssociationType("s1", "broadcast") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.set(), types.ErrParse)
		})
	}

	s, ok := r.Server("s1")
	require.True(t, ok)
	assert.Equal(t, DefaultPort, s.Port)
	assert.Equal(t, AssociationServer, s.AssociationType)
}

func TestRegistryWriteConfig(t *testing.T) {
	r, fs, _ := newTestRegistry(t)

	require.NoError(t, r.CreateServer("s1"))
	require.NoError(t, r.SetAddress("s1", "203.0.113.1"))
	require.NoError(t, r.SetIburst("s1", true))
	require.NoError(t, r.WriteConfig())

	data, err := afero.ReadFile(fs, testConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "server 203.0.113.1:123 server iburst\n", string(data))

	// existing mode is kept and no temp files are left behind
	require.NoError(t, fs.Chmod(testConfigPath, 0600))
	require.NoError(t, r.SetPrefer("s1", true))
	require.NoError(t, r.WriteConfig())

	info, err := fs.Stat(testConfigPath)
	require.NoError(t, err)
	assert.Equal(t, 0600, int(info.Mode().Perm()))

	entries, err := afero.ReadDir(fs, "/etc")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ntp.conf", entries[0].Name())

	data, err = afero.ReadFile(fs, testConfigPath)
	require.NoError(t, err)
	assert.Equal(t, "server 203.0.113.1:123 server iburst prefer\n", string(data))
}

func TestRegistryWriteConfigReadOnly(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	r := NewRegistry(fs, testConfigPath, &stubService{}, zaptest.NewLogger(t))
	require.NoError(t, r.CreateServer("s1"))

	err := r.WriteConfig()
	assert.ErrorIs(t, err, types.ErrIO)
}

func TestRegistryServiceToggle(t *testing.T) {
	r, _, svc := newTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Enable(ctx))
	require.NoError(t, r.Disable(ctx))
	assert.Equal(t, 1, svc.enabled)
	assert.Equal(t, 1, svc.disabled)

	svc.err = errors.New("unit masked")
	assert.ErrorIs(t, r.Enable(ctx), types.ErrIO)
}

func TestRegistryClose(t *testing.T) {
	r, _, _ := newTestRegistry(t)
	require.NoError(t, r.CreateServer("s1"))
	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Empty(t, r.Servers())
}

func TestRegistryClosedRejectsChanges(t *testing.T) {
	r, fs, _ := newTestRegistry(t)
	require.NoError(t, r.CreateServer("s1"))
	require.NoError(t, r.Close())

	assert.ErrorIs(t, r.CreateServer("s2"), types.ErrIO)
	assert.ErrorIs(t, r.SetAddress("s1", "192.0.2.1"), types.ErrIO)
	assert.ErrorIs(t, r.SetIburst("s1", true), types.ErrIO)
	assert.False(t, r.RemoveServer("s1"))
	assert.ErrorIs(t, r.WriteConfig(), types.ErrIO)

	exists, err := afero.Exists(fs, testConfigPath)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Empty(t, r.Servers())
}
