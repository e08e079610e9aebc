package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"sysconfd/internal/location"
	"sysconfd/internal/passwd"
	"sysconfd/internal/types"
	"sysconfd/internal/validator"

	"go.uber.org/zap"
)

// Start brings the system in line with the startup store. An empty store is
// seeded from the live system; otherwise the stored tree is replayed.
func (d *Dispatcher) Start(ctx context.Context) error {
	if d.deps.Startup == nil {
		return fmt.Errorf("no startup store configured")
	}

	empty, err := d.deps.Startup.Empty(ctx)
	if err != nil {
		return fmt.Errorf("failed to check startup store: %w", err)
	}
	if empty {
		return d.Bootstrap(ctx)
	}
	return d.Restore(ctx)
}

// Bootstrap reads the live system into the running tree and persists it
func (d *Dispatcher) Bootstrap(ctx context.Context) error {
	tree := d.collectLive()
	d.setRunning(tree)

	if err := d.deps.Startup.SaveTree(ctx, tree); err != nil {
		return fmt.Errorf("failed to store bootstrap tree: %w", err)
	}
	d.logger.Info("Startup tree seeded from live system", zap.Int("leaves", len(tree)))
	return nil
}

// Restore replays the stored tree as one Committing transaction
func (d *Dispatcher) Restore(ctx context.Context) error {
	tree, err := d.deps.Startup.LoadTree(ctx)
	if err != nil {
		return fmt.Errorf("failed to load startup tree: %w", err)
	}

	events := RestoreEvents(tree)
	report, err := d.HandleTransaction(ctx, types.PhaseCommitting, events)
	if err != nil {
		return fmt.Errorf("failed to restore startup tree: %w", err)
	}
	d.logger.Info("Startup tree restored",
		zap.Int("applied", report.Applied),
		zap.Bool("ntp_regenerated", report.NTPRegenerated))
	return nil
}

// RestoreEvents turns a stored tree into Created events. NTP server keys
// come first so their entries exist before any sibling leaf is set.
func RestoreEvents(tree map[string]string) []types.ConfigChangeEvent {
	paths := make([]string, 0, len(tree))
	for p := range tree {
		paths = append(paths, p)
	}
	sort.Slice(paths, func(i, j int) bool {
		ki, kj := isServerKey(paths[i]), isServerKey(paths[j])
		if ki != kj {
			return ki
		}
		return paths[i] < paths[j]
	})

	events := make([]types.ConfigChangeEvent, 0, len(paths))
	for _, p := range paths {
		events = append(events, types.ConfigChangeEvent{
			Path:      p,
			Operation: types.OperationCreated,
			Value:     types.StringPtr(tree[p]),
			Phase:     types.PhaseCommitting,
		})
	}
	return events
}

func isServerKey(path string) bool {
	if !underPrefix(path, NTPServerPrefix) {
		return false
	}
	ref, err := parseServerPath(path)
	return err == nil && (ref.Leaf == "" || ref.Leaf == leafName)
}

// collectLive reads the values the system already holds. Values that cannot
// be read, or that the appliers would refuse on the next restore, are left
// out of the tree.
func (d *Dispatcher) collectLive() map[string]string {
	tree := make(map[string]string)

	if name, err := d.deps.Host.Hostname(); err != nil {
		d.logger.Warn("Hostname unavailable for bootstrap", zap.Error(err))
	} else if !validator.IsHostname(name) {
		d.logger.Warn("Skipping invalid live hostname", zap.String("hostname", name))
	} else {
		tree[HostnamePath] = name
	}

	if gecos, err := d.deps.Passwd.GetField(d.deps.ContactUser); err != nil {
		d.logger.Warn("Contact unavailable for bootstrap",
			zap.String("user", d.deps.ContactUser),
			zap.Error(err))
	} else if len(gecos) > passwd.MaxFieldLength || strings.ContainsAny(gecos, ":\n\r") {
		d.logger.Warn("Skipping invalid live contact",
			zap.String("user", d.deps.ContactUser),
			zap.Int("length", len(gecos)))
	} else {
		tree[ContactPath] = gecos
	}

	if loc, err := d.deps.Location.ReadValue(location.LocationKey); err == nil {
		if len(loc) > location.MaxLocationLength {
			d.logger.Warn("Skipping oversized live location", zap.Int("length", len(loc)))
		} else {
			tree[LocationPath] = loc
		}
	} else if !errors.Is(err, types.ErrNotFound) {
		d.logger.Warn("Location unavailable for bootstrap", zap.Error(err))
	}

	if zone, err := d.deps.Timezone.GetZone(); err == nil {
		tree[TimezoneNamePath] = zone
	} else if !errors.Is(err, types.ErrNotFound) {
		d.logger.Warn("Timezone unavailable for bootstrap", zap.Error(err))
	}

	return tree
}
