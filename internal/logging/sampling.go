// internal/logging/sampling.go
package logging

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core with level-aware sampling. Each configured level
// below Error gets its own sampler; Error and above, and levels without a
// sampling entry, always pass through.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled {
		return core
	}

	sampled := make(map[zapcore.Level]bool, len(cfg.Levels))
	levels := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl < zapcore.ErrorLevel {
			levels = append(levels, lvl)
			sampled[lvl] = true
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	cores := make([]zapcore.Core, 0, len(levels)+1)
	cores = append(cores, &levelFilterCore{
		Core:  core,
		allow: func(lvl zapcore.Level) bool { return !sampled[lvl] },
	})

	for _, lvl := range levels {
		lvl := lvl
		rate := cfg.Levels[lvl]
		cores = append(cores, zapcore.NewSamplerWithOptions(
			&levelFilterCore{
				Core:  core,
				allow: func(l zapcore.Level) bool { return l == lvl },
			},
			cfg.Tick,
			rate.Initial,
			rate.Thereafter,
		))
	}

	return zapcore.NewTee(cores...)
}

// levelFilterCore only accepts entries whose level passes allow.
type levelFilterCore struct {
	zapcore.Core
	allow func(zapcore.Level) bool
}

func (c *levelFilterCore) Enabled(lvl zapcore.Level) bool {
	return c.allow(lvl) && c.Core.Enabled(lvl)
}

func (c *levelFilterCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

// With creates a child core that preserves level filtering.
func (c *levelFilterCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelFilterCore{
		Core:  c.Core.With(fields),
		allow: c.allow,
	}
}
