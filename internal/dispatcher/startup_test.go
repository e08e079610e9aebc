package dispatcher

import (
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sysconfd/internal/location"
	"sysconfd/internal/types"
)

func TestRestoreEventsOrder(t *testing.T) {
	tree := map[string]string{
		HostnamePath:                   "router1",
		serverLeaf("b", "udp/address"): "192.0.2.2",
		serverLeaf("b", "name"):        "b",
		serverLeaf("a", "iburst"):      "true",
		serverLeaf("a", "name"):        "a",
		NTPEnabledPath:                 "true",
		serverLeaf("a", "udp/address"): "192.0.2.1",
		TimezoneNamePath:               "UTC",
	}

	events := RestoreEvents(tree)
	require.Len(t, events, len(tree))

	var paths []string
	for _, ev := range events {
		assert.Equal(t, types.OperationCreated, ev.Operation)
		assert.Equal(t, types.PhaseCommitting, ev.Phase)
		assert.Equal(t, tree[ev.Path], *ev.Value)
		paths = append(paths, ev.Path)
	}
	assert.Equal(t, serverLeaf("a", "name"), paths[0])
	assert.Equal(t, serverLeaf("b", "name"), paths[1])
}

func TestStartBootstrapsEmptyStore(t *testing.T) {
	f := newFixture(t)
	f.host.name = "edge-7"
	f.zones.zone = "UTC"

	require.NoError(t, f.d.Start(context.Background()))

	want := map[string]string{
		HostnamePath:     "edge-7",
		ContactPath:      "root",
		TimezoneNamePath: "UTC",
	}
	assert.Equal(t, want, f.startup.tree)
	assert.Equal(t, want, f.d.Running())
	assert.Empty(t, f.publisher.reports)
}

func TestBootstrapSkipsValuesRestoreWouldReject(t *testing.T) {
	f := newFixture(t)
	f.host.name = "my_host"
	f.zones.zone = "UTC"
	longGecos := strings.Repeat("x", 101)
	require.NoError(t, afero.WriteFile(f.fs, passwdPath,
		[]byte("root:x:0:0:"+longGecos+":/root:/bin/bash\n"), 0644))
	require.NoError(t, afero.WriteFile(f.fs, "/var/lib/sysconfd/location_info",
		[]byte(strings.Repeat("r", 101)), 0644))

	require.NoError(t, f.d.Start(context.Background()))
	assert.Equal(t, map[string]string{TimezoneNamePath: "UTC"}, f.startup.tree)

	// A later start replays the seeded tree.
	next := newFixture(t)
	next.host.name = "my_host"
	next.startup.tree = f.startup.tree

	require.NoError(t, next.d.Start(context.Background()))
	assert.Equal(t, "UTC", next.zones.zone)
	assert.Equal(t, "my_host", next.host.name)
	require.Len(t, next.publisher.reports, 1)
	assert.Equal(t, types.TransactionStatusApplied, next.publisher.reports[0].Status)
}

func TestBootstrapSkipsContactWithSeparator(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, afero.WriteFile(f.fs, passwdPath,
		[]byte("root:x:0:0:NOC\r:/root:/bin/bash\n"), 0644))

	require.NoError(t, f.d.Bootstrap(context.Background()))
	assert.NotContains(t, f.startup.tree, ContactPath)
	assert.Equal(t, "localhost", f.startup.tree[HostnamePath])
}

func TestStartRestoresStoredTree(t *testing.T) {
	f := newFixture(t)
	f.startup.tree = map[string]string{
		HostnamePath:                    "router1",
		LocationPath:                    "Rack 4",
		TimezoneNamePath:                "Europe/Berlin",
		NTPEnabledPath:                  "true",
		serverLeaf("s1", "udp/address"): "203.0.113.1",
		serverLeaf("s1", "iburst"):      "true",
		serverLeaf("s1", "name"):        "s1",
	}

	require.NoError(t, f.d.Start(context.Background()))

	assert.Equal(t, "router1", f.host.name)
	assert.Equal(t, "Europe/Berlin", f.zones.zone)
	loc, err := f.location.ReadValue(location.LocationKey)
	require.NoError(t, err)
	assert.Equal(t, "Rack 4", loc)
	assert.Equal(t, "server 203.0.113.1:123 server iburst\n", f.ntpConf(t))
	assert.Equal(t, []string{"enable"}, f.service.calls)
	assert.Equal(t, f.startup.tree, f.d.Running())

	require.Len(t, f.publisher.reports, 1)
	assert.Equal(t, types.TransactionStatusApplied, f.publisher.reports[0].Status)
}

func TestStartRestoreFailure(t *testing.T) {
	f := newFixture(t)
	f.startup.tree = map[string]string{TimezoneNamePath: "Atlantis/Central"}

	err := f.d.Start(context.Background())
	assert.ErrorIs(t, err, types.ErrInvalidZone)
}
