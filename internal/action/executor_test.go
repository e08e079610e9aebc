package action

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sysconfd/internal/state"
	"sysconfd/internal/system"
	"sysconfd/internal/tools"
	"sysconfd/internal/types"
)

// fakeHost moves a fake clock when the time is set
type fakeHost struct {
	clock  *clockwork.FakeClock
	synced int
	err    error
}

func (h *fakeHost) SetTime(t time.Time) error {
	if h.err != nil {
		return h.err
	}
	h.clock.Advance(t.Sub(h.clock.Now()))
	return nil
}

func (h *fakeHost) Sync() { h.synced++ }

func (h *fakeHost) Uname() (system.Uname, error) {
	return system.Uname{Sysname: "Linux", Machine: "x86_64"}, nil
}

func (h *fakeHost) Uptime() (time.Duration, error) {
	return time.Hour, nil
}

type fakeRunner struct {
	calls []string
	err   error
}

func (r *fakeRunner) Run(_ context.Context, name string, args ...string) (tools.Result, error) {
	r.calls = append(r.calls, strings.Join(append([]string{name}, args...), " "))
	return tools.Result{}, r.err
}

func newTestExecutor(t *testing.T) (*Executor, *fakeHost, *fakeRunner) {
	host := &fakeHost{clock: clockwork.NewFakeClockAt(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC))}
	runner := &fakeRunner{}
	return NewExecutor(host, runner, DefaultCommands(), zaptest.NewLogger(t)), host, runner
}

func TestSetClock(t *testing.T) {
	e, host, _ := newTestExecutor(t)
	ctx := context.Background()

	require.NoError(t, e.SetClock(ctx, "2024-03-02T10:15:00Z"))

	b := state.NewBuilder(host, host.clock, zaptest.NewLogger(t))
	snap, err := b.Snapshot(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, snap.CurrentDatetime, "2024-03-02T10:15:00Z")

	host.clock.Advance(90 * time.Second)
	snap, err = b.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-02T10:16:30Z", snap.CurrentDatetime)
}

func TestSetClockRejectsOtherForms(t *testing.T) {
	e, host, _ := newTestExecutor(t)
	before := host.clock.Now()

	for _, in := range []string{
		"2024-03-02T10:15:00.5Z",
		"2024-03-02T10:15:00+01:00",
		"2024-03-02T10:15:00",
		"2024-13-02T10:15:00Z",
		"yesterday",
	} {
		t.Run(in, func(t *testing.T) {
			assert.ErrorIs(t, e.SetClock(context.Background(), in), types.ErrParse)
		})
	}
	assert.Equal(t, before, host.clock.Now())
}

func TestSetClockFailure(t *testing.T) {
	e, host, _ := newTestExecutor(t)
	host.err = errors.New("operation not permitted")

	assert.ErrorIs(t, e.SetClock(context.Background(), "2024-03-02T10:15:00Z"), types.ErrIO)
}

func TestPowerActions(t *testing.T) {
	e, host, runner := newTestExecutor(t)
	ctx := context.Background()

	require.NoError(t, e.Restart(ctx))
	require.NoError(t, e.Shutdown(ctx))
	assert.Equal(t, 2, host.synced)
	assert.Equal(t, []string{"shutdown -r now", "shutdown -P now"}, runner.calls)

	runner.err = errors.New("exit status 1")
	assert.ErrorIs(t, e.Restart(ctx), types.ErrIO)
	assert.Equal(t, 3, host.synced)
}

func TestPowerActionsUnconfigured(t *testing.T) {
	host := &fakeHost{clock: clockwork.NewFakeClock()}
	e := NewExecutor(host, &fakeRunner{}, Commands{}, zaptest.NewLogger(t))

	assert.ErrorIs(t, e.Shutdown(context.Background()), types.ErrIO)
	assert.Zero(t, host.synced)
}
