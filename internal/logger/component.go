package logger

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// RootName is the name of the logger New returns. Components are the named
// children below it, e.g. "sysconfd.dispatcher".
const RootName = "sysconfd"

// componentCore gates entries by the level configured for the component
// that emitted them. The wrapped core must accept every level any component
// can ask for.
type componentCore struct {
	zapcore.Core
	base   zapcore.Level
	min    zapcore.Level
	levels map[string]zapcore.Level
}

func newComponentCore(core zapcore.Core, base zapcore.Level, levels map[string]zapcore.Level) zapcore.Core {
	if len(levels) == 0 {
		return core
	}
	lowest := base
	for _, l := range levels {
		if l < lowest {
			lowest = l
		}
	}
	return &componentCore{Core: core, base: base, min: lowest, levels: levels}
}

func (c *componentCore) Enabled(l zapcore.Level) bool {
	return l >= c.min
}

func (c *componentCore) With(fields []zapcore.Field) zapcore.Core {
	return &componentCore{Core: c.Core.With(fields), base: c.base, min: c.min, levels: c.levels}
}

func (c *componentCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if ent.Level < c.levelFor(ent.LoggerName) {
		return ce
	}
	return c.Core.Check(ent, ce)
}

// levelFor walks from the full component name up to its first segment and
// returns the first configured level, or the base level.
func (c *componentCore) levelFor(loggerName string) zapcore.Level {
	name := strings.TrimPrefix(strings.TrimPrefix(loggerName, RootName), ".")
	for name != "" {
		if l, ok := c.levels[name]; ok {
			return l
		}
		i := strings.LastIndexByte(name, '.')
		if i < 0 {
			break
		}
		name = name[:i]
	}
	return c.base
}
