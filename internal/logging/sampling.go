package logging

import (
	"go.uber.org/zap/zapcore"
)

// newSampledCore splits core into one band per configured level, each with
// its own sampler budget. Levels without a budget pass through unsampled,
// so Error and above always reach the output.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	bands := make([]zapcore.Core, 0, len(cfg.Levels)+1)
	sampled := make(map[zapcore.Level]bool, len(cfg.Levels))
	for lvl, budget := range cfg.Levels {
		sampled[lvl] = true
		band := &levelRangeCore{Core: core, lo: lvl, hi: lvl}
		bands = append(bands, zapcore.NewSamplerWithOptions(band, cfg.Tick.Duration(), budget.Initial, budget.Thereafter))
	}
	bands = append(bands, &unsampledCore{Core: core, skip: sampled})

	return zapcore.NewTee(bands...)
}

// levelRangeCore admits entries with lo <= level <= hi.
type levelRangeCore struct {
	zapcore.Core
	lo, hi zapcore.Level
}

func (c *levelRangeCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.lo && lvl <= c.hi && c.Core.Enabled(lvl)
}

func (c *levelRangeCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelRangeCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelRangeCore{Core: c.Core.With(fields), lo: c.lo, hi: c.hi}
}

// unsampledCore admits every level not handled by a sampled band.
type unsampledCore struct {
	zapcore.Core
	skip map[zapcore.Level]bool
}

func (c *unsampledCore) Enabled(lvl zapcore.Level) bool {
	return !c.skip[lvl] && c.Core.Enabled(lvl)
}

func (c *unsampledCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *unsampledCore) With(fields []zapcore.Field) zapcore.Core {
	return &unsampledCore{Core: c.Core.With(fields), skip: c.skip}
}
