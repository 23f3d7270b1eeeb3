// Package analyzer implements the two-phase recursive inference driver: a
// matcher that classifies a bag of co-located values into a single pattern
// node, and a descent that reuses the emitted pattern as a path selector to
// extract the next level of values and recurse.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"time"

	"github.com/waveform80/structa/internal/pattern"
	"github.com/waveform80/structa/internal/util"
)

// Fatal error kinds; everything else the analyzer encounters is either
// recovered locally (conversion misses) or surfaced as a warning.
var (
	ErrBadConfig   = errors.New("analyzer: invalid configuration")
	ErrInvalidPath = errors.New("analyzer: invalid pattern in extraction path")
)

// ValidationWarning describes a value that failed to validate against the
// previously inferred pattern during path extraction. Warnings are
// non-fatal; analysis continues without the offending value.
type ValidationWarning struct {
	Value   any
	Pattern pattern.Pattern
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("failed to validate %v against %s", w.Value, w.Pattern)
}

// Config carries the inference options. DefaultConfig returns the standard
// settings; a zero Config is not valid.
type Config struct {
	// BadThreshold is the maximum share of string values permitted to
	// fail a candidate pattern conversion.
	BadThreshold *big.Rat
	// EmptyThreshold short-circuits string inference to a plain Str when
	// the empty-string share exceeds it.
	EmptyThreshold *big.Rat
	// FieldThreshold is the maximum number of distinct keys or columns to
	// classify as a literal choice set rather than a general key pattern.
	FieldThreshold int
	// MaxNumericLen is the string length above which numeric and
	// date-string inference is skipped.
	MaxNumericLen int
	// StripWhitespace strips leading and trailing whitespace before
	// matching strings.
	StripWhitespace bool
	// MinTimestamp and MaxTimestamp bound the window in which numbers are
	// recognized as POSIX timestamps. Zero values default to twenty years
	// ago and ten years hence.
	MinTimestamp time.Time
	MaxTimestamp time.Time
	// TrackProgress enables the progress counter.
	TrackProgress bool
	// OnWarning, when set, receives validation warnings synchronously
	// from the analyzing goroutine.
	OnWarning func(ValidationWarning)
}

// DefaultConfig returns the standard inference options.
func DefaultConfig() Config {
	return Config{
		BadThreshold:    big.NewRat(2, 100),
		EmptyThreshold:  big.NewRat(98, 100),
		FieldThreshold:  20,
		MaxNumericLen:   30,
		StripWhitespace: true,
	}
}

// Analyzer infers a structural schema for a value tree. An Analyzer holds
// no state shared with other instances; independent analyses may run in
// parallel, one value graph per Analyzer.
type Analyzer struct {
	cfg   Config
	minTS float64
	maxTS float64
	prog  *progressTracker
}

// New validates cfg and returns an Analyzer.
func New(cfg Config) (*Analyzer, error) {
	zero := new(big.Rat)
	one := big.NewRat(1, 1)
	if cfg.BadThreshold == nil {
		cfg.BadThreshold = big.NewRat(2, 100)
	}
	if cfg.EmptyThreshold == nil {
		cfg.EmptyThreshold = big.NewRat(98, 100)
	}
	if cfg.BadThreshold.Cmp(zero) < 0 || cfg.BadThreshold.Cmp(one) > 0 {
		return nil, fmt.Errorf("%w: bad_threshold %v outside [0, 1]", ErrBadConfig, cfg.BadThreshold)
	}
	if cfg.EmptyThreshold.Cmp(zero) < 0 || cfg.EmptyThreshold.Cmp(one) > 0 {
		return nil, fmt.Errorf("%w: empty_threshold %v outside [0, 1]", ErrBadConfig, cfg.EmptyThreshold)
	}
	if cfg.FieldThreshold < 0 {
		return nil, fmt.Errorf("%w: field_threshold %d is negative", ErrBadConfig, cfg.FieldThreshold)
	}
	if cfg.MaxNumericLen < 0 {
		return nil, fmt.Errorf("%w: max_numeric_len %d is negative", ErrBadConfig, cfg.MaxNumericLen)
	}
	now := time.Now()
	if cfg.MinTimestamp.IsZero() {
		cfg.MinTimestamp = now.AddDate(-20, 0, 0)
	}
	if cfg.MaxTimestamp.IsZero() {
		cfg.MaxTimestamp = now.AddDate(10, 0, 0)
	}
	if !cfg.MinTimestamp.Before(cfg.MaxTimestamp) {
		return nil, fmt.Errorf("%w: min_timestamp %v is not before max_timestamp %v",
			ErrBadConfig, cfg.MinTimestamp, cfg.MaxTimestamp)
	}
	return &Analyzer{
		cfg:   cfg,
		minTS: float64(cfg.MinTimestamp.UnixNano()) / 1e9,
		maxTS: float64(cfg.MaxTimestamp.UnixNano()) / 1e9,
		prog:  newProgressTracker(cfg.TrackProgress),
	}, nil
}

// Analyze returns a description of the structure of value.
func (a *Analyzer) Analyze(value any) (pattern.Pattern, error) {
	return a.AnalyzeContext(context.Background(), value)
}

// AnalyzeContext is Analyze with a cooperative cancellation point checked
// at every container boundary.
func (a *Analyzer) AnalyzeContext(ctx context.Context, value any) (pattern.Pattern, error) {
	a.prog.begin(value)
	p, err := a.analyze(ctx, value, nil, 0, 1)
	if err != nil {
		return nil, err
	}
	a.prog.finish()
	return p, nil
}

// Progress returns the monotone completion ratio in [0, 1]. It is safe to
// call from any goroutine while AnalyzeContext runs on another; it reports
// 0 until tracking begins and 1 once the analysis completes.
func (a *Analyzer) Progress() float64 { return a.prog.ratio() }

// Merge unifies the patterns of sibling analyses (for example, one pattern
// per input file) into the smallest compatible set: patterns are grouped
// greedily into equivalence classes under Compare and each class collapses
// to its merged representative.
func (a *Analyzer) Merge(patterns ...pattern.Pattern) []pattern.Pattern {
	var out []pattern.Pattern
	for _, p := range patterns {
		merged := false
		for i, q := range out {
			if q.Compare(p) {
				if m, ok := q.Merge(p); ok {
					out[i] = m
					merged = true
					break
				}
			}
		}
		if !merged {
			out = append(out, p)
		}
	}
	return out
}

// analyze recursively analyzes the structure of it at the nodes selected by
// path. The enclosing container's cardinality is tracked in card for the
// purposes of determining optional fields; choiceThreshold is non-zero only
// when classifying keys or columns.
func (a *Analyzer) analyze(ctx context.Context, it any, path []pattern.Pattern, choiceThreshold, card int) (pattern.Pattern, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var bag []any
	if err := a.extract(it, path, &bag); err != nil {
		return nil, err
	}
	a.prog.retire(len(path), len(bag))
	p := a.match(bag, choiceThreshold, card)

	switch node := p.(type) {
	case *pattern.Dict:
		return a.analyzeDict(ctx, it, path, node)
	case *pattern.Tuple:
		return a.analyzeTuple(ctx, it, path, node)
	case *pattern.List:
		// Lists are expected to be homogeneous: a single item pattern.
		item, err := a.analyze(ctx, it, push(path, node), 0, node.Lengths.Card)
		if err != nil {
			return nil, err
		}
		return node.WithContent([]pattern.Pattern{item}), nil
	default:
		return p, nil
	}
}

func (a *Analyzer) analyzeDict(ctx context.Context, it any, path []pattern.Pattern, node *pattern.Dict) (pattern.Pattern, error) {
	keys, err := a.analyze(ctx, it, push(path, node), a.cfg.FieldThreshold, node.Lengths.Card)
	if err != nil {
		return nil, err
	}
	if fields, ok := keys.(*pattern.Fields); ok {
		// Few distinct keys: one sub-analysis per recognized field, in
		// canonical (sorted-by-literal) order.
		content := make([]*pattern.DictField, 0, fields.Len())
		for _, field := range fields.Members {
			value, err := a.analyze(ctx, it, push(path, node, field), 0, node.Lengths.Card)
			if err != nil {
				return nil, err
			}
			content = append(content, &pattern.DictField{Key: field, Value: value})
		}
		return node.WithContent(content), nil
	}
	// General key pattern: a single sub-analysis over all values whose key
	// validates.
	value, err := a.analyze(ctx, it, push(path, node, keys), 0, node.Lengths.Card)
	if err != nil {
		return nil, err
	}
	return node.WithContent([]*pattern.DictField{{Key: keys, Value: value}}), nil
}

func (a *Analyzer) analyzeTuple(ctx context.Context, it any, path []pattern.Pattern, node *pattern.Tuple) (pattern.Pattern, error) {
	cols, err := a.analyze(ctx, it, push(path, node), a.cfg.FieldThreshold, node.Lengths.Card)
	if err != nil {
		return nil, err
	}
	if fields, ok := cols.(*pattern.Fields); ok {
		selectors := groupColumns(fields)
		content := make([]*pattern.TupleField, 0, len(selectors))
		for _, sel := range selectors {
			value, err := a.analyze(ctx, it, push(path, node, sel), 0, node.Lengths.Card)
			if err != nil {
				return nil, err
			}
			content = append(content, &pattern.TupleField{Index: sel, Value: value})
		}
		return node.WithContent(content), nil
	}
	value, err := a.analyze(ctx, it, push(path, node, cols), 0, node.Lengths.Card)
	if err != nil {
		return nil, err
	}
	return node.WithContent([]*pattern.TupleField{{Index: cols, Value: value}}), nil
}

// groupColumns turns a choice set of column descriptors into per-column
// field selectors. Named access is used only when every single column in
// the sample carries a name; otherwise columns are grouped by position.
func groupColumns(fields *pattern.Fields) []*pattern.Field {
	type group struct {
		key      any
		optional bool
		minIndex int
	}
	allNamed := true
	for _, m := range fields.Members {
		col, ok := m.Value.(column)
		if !ok || col.name == "" {
			allNamed = false
			break
		}
	}
	groups := make(map[any]*group)
	var order []any
	for _, m := range fields.Members {
		col, ok := m.Value.(column)
		if !ok {
			continue
		}
		var key any
		if allNamed {
			key = col.name
		} else {
			key = int64(col.index)
		}
		g, seen := groups[key]
		if !seen {
			g = &group{key: key, minIndex: col.index}
			groups[key] = g
			order = append(order, key)
		}
		g.optional = g.optional || m.Optional
		if col.index < g.minIndex {
			g.minIndex = col.index
		}
	}
	selectors := make([]*group, 0, len(groups))
	for _, key := range order {
		selectors = append(selectors, groups[key])
	}
	// Columns appear in positional order regardless of access mode.
	sort.Slice(selectors, func(i, j int) bool {
		return selectors[i].minIndex < selectors[j].minIndex
	})
	out := make([]*pattern.Field, len(selectors))
	for i, g := range selectors {
		out[i] = &pattern.Field{Value: g.key, Optional: g.optional}
	}
	return out
}

func (a *Analyzer) warn(w ValidationWarning) {
	util.DefaultMetrics.IncCounter("structa_validation_warnings", nil)
	if a.cfg.OnWarning != nil {
		a.cfg.OnWarning(w)
	}
}

func push(path []pattern.Pattern, nodes ...pattern.Pattern) []pattern.Pattern {
	out := make([]pattern.Pattern, 0, len(path)+len(nodes))
	out = append(out, path...)
	out = append(out, nodes...)
	return out
}
