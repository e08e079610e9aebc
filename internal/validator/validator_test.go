package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsHostname(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"simple", "router1", true},
		{"fqdn", "edge-01.lab.example.com", true},
		{"none", "none", true},
		{"empty", "", false},
		{"leading hyphen", "-router", false},
		{"trailing hyphen", "router-", false},
		{"underscore", "my_host", false},
		{"empty label", "a..b", false},
		{"too long", strings.Repeat("a", 32) + "." + strings.Repeat("b", 32), false},
		{"max length", strings.Repeat("a", 31) + "." + strings.Repeat("b", 32), true},
		{"label too long", strings.Repeat("a", 64), false},
		{"max label", strings.Repeat("a", 63), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsHostname(tt.in))
		})
	}
}

func TestIsDatetime(t *testing.T) {
	assert.True(t, IsDatetime("2024-03-02T10:15:00Z"))
	assert.False(t, IsDatetime("2024-03-02T10:15:00.5Z"))
	assert.False(t, IsDatetime("2024-03-02T10:15:00+01:00"))
	assert.False(t, IsDatetime("2024-03-02 10:15:00Z"))
	assert.False(t, IsDatetime(""))
}

func TestStruct(t *testing.T) {
	type request struct {
		Hostname string `json:"hostname" validate:"required,syshostname"`
		Datetime string `json:"datetime" validate:"required,sysdatetime"`
		Phase    string `json:"phase" validate:"oneof=proposed committing"`
	}

	v := New()
	require.NoError(t, v.Struct(request{Hostname: "router1", Datetime: "2024-03-02T10:15:00Z", Phase: "proposed"}))

	err := v.Struct(request{Hostname: "bad_host", Datetime: "2024-03-02T10:15:00.5Z", Phase: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hostname must be a valid hostname")
	assert.Contains(t, err.Error(), "datetime must be a datetime")
	assert.Contains(t, err.Error(), "phase must be one of")
}
