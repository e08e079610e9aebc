// Package state collects read-only operational facts about the host.
package state

import (
	"context"
	"fmt"
	"time"

	"sysconfd/internal/system"
	"sysconfd/internal/types"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Platform provides the kernel facts a snapshot is built from
type Platform interface {
	Uname() (system.Uname, error)
	Uptime() (time.Duration, error)
}

// Builder computes operational snapshots on demand
type Builder struct {
	platform Platform
	clock    clockwork.Clock
	logger   *zap.Logger
}

// NewBuilder creates a snapshot builder
func NewBuilder(platform Platform, clock clockwork.Clock, logger *zap.Logger) *Builder {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Builder{
		platform: platform,
		clock:    clock,
		logger:   logger,
	}
}

// Snapshot returns fresh operational facts. Either every field is filled or
// an error is returned.
func (b *Builder) Snapshot(ctx context.Context) (*types.OperationalSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	u, err := b.platform.Uname()
	if err != nil {
		return nil, types.NewError(types.KindIOFailure, "read kernel identity", err)
	}

	up, err := b.platform.Uptime()
	if err != nil {
		return nil, types.NewError(types.KindIOFailure, "read uptime", err)
	}

	now := b.clock.Now()
	boot := now.Add(-up)

	snapshot := &types.OperationalSnapshot{
		OSName:          u.Sysname,
		OSRelease:       u.Release,
		OSVersion:       u.Version,
		Machine:         u.Machine,
		CurrentDatetime: FormatDatetime(now),
		BootDatetime:    FormatDatetime(boot),
	}

	b.logger.Debug("Operational snapshot built",
		zap.String("current", snapshot.CurrentDatetime),
		zap.String("boot", snapshot.BootDatetime))
	return snapshot, nil
}

// FormatDatetime renders t in UTC as YYYY-MM-DDThh:mm:ssZ
func FormatDatetime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(types.DatetimeLayout)
}

// ParseDatetime is the inverse of FormatDatetime
func ParseDatetime(s string) (time.Time, error) {
	t, err := time.Parse(types.DatetimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid datetime %q: %w", s, err)
	}
	return t, nil
}
