package ntp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"sysconfd/internal/tools"
)

// recordingRunner records invocations and fails any command line that
// contains one of the failing substrings.
type recordingRunner struct {
	calls   []string
	failing []string
}

func (r *recordingRunner) Run(_ context.Context, name string, args ...string) (tools.Result, error) {
	line := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, line)
	for _, f := range r.failing {
		if strings.Contains(line, f) {
			return tools.Result{ExitCode: 5}, &tools.CommandError{
				Command: line,
				Result:  tools.Result{ExitCode: 5},
				Err:     errors.New("unit not found"),
			}
		}
	}
	return tools.Result{}, nil
}

func TestSystemdController(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		failing   []string
		action    func(*SystemdController) error
		wantCalls []string
		wantErr   bool
	}{
		{
			name:      "enable primary unit",
			action:    func(c *SystemdController) error { return c.Enable(ctx) },
			wantCalls: []string{"systemctl enable --now ntpd"},
		},
		{
			name:    "enable falls back",
			failing: []string{" ntpd"},
			action:  func(c *SystemdController) error { return c.Enable(ctx) },
			wantCalls: []string{
				"systemctl enable --now ntpd",
				"systemctl enable --now ntp",
			},
		},
		{
			name:    "enable fails on both units",
			failing: []string{"enable"},
			action:  func(c *SystemdController) error { return c.Enable(ctx) },
			wantCalls: []string{
				"systemctl enable --now ntpd",
				"systemctl enable --now ntp",
			},
			wantErr: true,
		},
		{
			name:   "disable stops then disables",
			action: func(c *SystemdController) error { return c.Disable(ctx) },
			wantCalls: []string{
				"systemctl stop ntpd",
				"systemctl disable ntpd",
			},
		},
		{
			name:    "disable falls back when stop fails",
			failing: []string{"stop ntpd"},
			action:  func(c *SystemdController) error { return c.Disable(ctx) },
			wantCalls: []string{
				"systemctl stop ntpd",
				"systemctl stop ntp",
				"systemctl disable ntp",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &recordingRunner{failing: tt.failing}
			c := NewSystemdController(runner, "", []string{"ntpd", "ntp"}, zaptest.NewLogger(t))

			err := tt.action(c)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "ntpd")
				assert.Contains(t, err.Error(), "ntp:")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, runner.calls)
		})
	}
}

func TestSystemdControllerNoUnits(t *testing.T) {
	c := NewSystemdController(&recordingRunner{}, "systemctl", nil, zaptest.NewLogger(t))
	assert.Error(t, c.Enable(context.Background()))
}
