package analyzer

import (
	"sync/atomic"

	"github.com/waveform80/structa/internal/pattern"
)

// progressTracker derives a monotone completion ratio from the fraction of
// top-level entries plus the fraction of transitively visited sub-entries
// the analyzer has retired. Extraction revisits levels, so the fractions
// are capped at one; the ratio is not wall-clock linear, but it never
// decreases and reaches exactly one on completion.
type progressTracker struct {
	enabled  bool
	topTotal int64
	allTotal int64
	topDone  atomic.Int64
	allDone  atomic.Int64
	started  atomic.Bool
	finished atomic.Bool
}

func newProgressTracker(enabled bool) *progressTracker {
	return &progressTracker{enabled: enabled}
}

func (p *progressTracker) begin(value any) {
	if !p.enabled {
		return
	}
	p.topTotal = int64(maxInt(pattern.ContainerLen(value), 1))
	p.allTotal = int64(countNodes(value))
	if p.allTotal == 0 {
		p.allTotal = 1
	}
	p.started.Store(true)
}

func (p *progressTracker) retire(depth, n int) {
	if !p.enabled || depth == 0 {
		return
	}
	if depth == 1 {
		p.topDone.Add(int64(n))
	}
	p.allDone.Add(int64(n))
}

func (p *progressTracker) finish() {
	if p.enabled {
		p.finished.Store(true)
	}
}

func (p *progressTracker) ratio() float64 {
	if !p.enabled || !p.started.Load() {
		return 0
	}
	if p.finished.Load() {
		return 1
	}
	top := capRatio(p.topDone.Load(), p.topTotal)
	all := capRatio(p.allDone.Load(), p.allTotal)
	r := 0.2*top + 0.8*all
	if r > 1 {
		r = 1
	}
	return r
}

func capRatio(done, total int64) float64 {
	if total <= 0 {
		return 1
	}
	r := float64(done) / float64(total)
	if r > 1 {
		r = 1
	}
	return r
}

// countNodes counts every entry transitively contained in value, including
// nested containers themselves but excluding the root.
func countNodes(value any) int {
	n := 0
	var walk func(v any, root bool)
	walk = func(v any, root bool) {
		if !root {
			n++
		}
		switch c := v.(type) {
		case []any:
			for _, item := range c {
				walk(item, false)
			}
		case *pattern.Record:
			for _, item := range c.Values {
				walk(item, false)
			}
		case map[string]any:
			for _, item := range c {
				n++ // the key counts as an entry
				walk(item, false)
			}
		case map[any]any:
			for k, item := range c {
				walk(k, false)
				walk(item, false)
			}
		}
	}
	walk(value, true)
	return n
}
