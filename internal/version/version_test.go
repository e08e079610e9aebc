package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestUserAgent(t *testing.T) {
	prev := Version
	Version = "1.4.0"
	t.Cleanup(func() { Version = prev })

	assert.Equal(t, "sysconfd-webhook/1.4.0 ("+Platform+")", UserAgent("webhook"))
}

func TestInfoFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	zap.New(core).Info("sysconfd starting", GetInfo().Fields()...)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		ctx := entries[0].ContextMap()
		assert.Equal(t, Version, ctx["version"])
		assert.Equal(t, GoVersion, ctx["go_version"])
		assert.Equal(t, Platform, ctx["platform"])
	}
	assert.Contains(t, GetInfo().String(), "Platform: "+Platform)
}
