//go:build linux

package system

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostReadOnly(t *testing.T) {
	h := Host{}

	u, err := h.Uname()
	require.NoError(t, err)
	assert.Equal(t, "Linux", u.Sysname)
	assert.NotEmpty(t, u.Release)
	assert.NotEmpty(t, u.Machine)

	up, err := h.Uptime()
	require.NoError(t, err)
	assert.Positive(t, int64(up))

	name, err := h.Hostname()
	require.NoError(t, err)
	expected, _ := os.Hostname()
	assert.Equal(t, expected, name)
}
