package analyzer

import (
	"strings"
	"time"

	"github.com/waveform80/structa/internal/chars"
	"github.com/waveform80/structa/internal/conv"
	"github.com/waveform80/structa/internal/counter"
	"github.com/waveform80/structa/internal/pattern"
)

// Registered bool token pairs, tried in order.
var boolPatterns = []string{
	"0|1",
	"f|t",
	"n|y",
	"false|true",
	"no|yes",
	"off|on",
	"|x",
	"|y",
}

// Order matters: octal is tried first, so a bag whose digits never exceed 7
// is read as octal; a bag containing an 8 or 9 fails octal and falls
// through to decimal.
var intPatterns = []string{"o", "d", "x"}

var fixedDateTimeFormats = []string{
	"%Y-%m-%dT%H:%M:%S.%f",
	"%Y-%m-%d %H:%M:%S.%f",
	"%Y-%m-%dT%H:%M:%S",
	"%Y-%m-%d %H:%M:%S",
	"%Y-%m-%dT%H:%M",
	"%Y-%m-%d %H:%M",
	"%Y-%m-%d",
	"%a, %d %b %Y %H:%M:%S",
	"%a, %d %b %Y %H:%M:%S %Z",
}

var varDateTimeFormats = []string{
	"%Y-%m-%dT%H:%M:%S.%f%z",
	"%Y-%m-%dT%H:%M:%S%z",
	"%Y-%m-%dT%H:%M%z",
	"%Y-%m-%d %H:%M:%S.%f%z",
	"%Y-%m-%d %H:%M:%S%z",
	"%Y-%m-%d %H:%M%z",
}

// match finds a pattern which covers all (or most) of items, the bag of
// values found at one layer of the hierarchy. choiceThreshold is non-zero
// only when the bag holds keys or column descriptors; parentCard is the
// cardinality of the enclosing container.
func (a *Analyzer) match(items []any, choiceThreshold, parentCard int) pattern.Pattern {
	if len(items) == 0 {
		return &pattern.Empty{}
	}
	if allOf(items, func(v any) bool { _, ok := v.(*pattern.Record); return ok }) {
		return pattern.NewTuple(items)
	}
	if allOf(items, func(v any) bool { _, ok := v.([]any); return ok }) {
		// A list of equal-length, non-empty sub-lists, more rows than
		// columns and fewer columns than the field threshold, is almost
		// certainly a table from a language without records.
		inner := len(items[0].([]any))
		if len(items) > inner && 0 < inner && inner < a.cfg.FieldThreshold &&
			allOf(items, func(v any) bool { return len(v.([]any)) == inner }) {
			return pattern.NewTuple(items)
		}
		return pattern.NewList(items)
	}
	if allOf(items, pattern.IsMap) {
		return pattern.NewDict(items)
	}

	sample := counter.NewCounter()
	for _, item := range items {
		v := pattern.Normalize(item)
		if !counter.Hashable(v) {
			return &pattern.Value{}
		}
		sample.Add(v, 1)
	}

	if choiceThreshold > 0 && sample.Len() < choiceThreshold {
		fields := make([]*pattern.Field, 0, sample.Len())
		sample.Items(func(v any, count int) {
			fields = append(fields, &pattern.Field{Value: v, Optional: count < parentCard})
		})
		return pattern.NewFields(fields)
	}

	frozen := sample.Freeze()
	if keysAre(frozen, func(v any) bool { _, ok := v.(column); return ok }) {
		// Too many columns to enumerate: treat the index (or name) as
		// general data.
		frozen = recountColumns(frozen)
	}

	// The ordering below is important; bool's domain is a subset of int's.
	switch {
	case keysAre(frozen, func(v any) bool { _, ok := v.(bool); return ok }):
		return pattern.NewBool(frozen)
	case keysAre(frozen, func(v any) bool { _, ok := v.(int64); return ok }):
		return a.matchPossibleDateTime(pattern.NewInt(frozen))
	case keysAre(frozen, func(v any) bool {
		switch v.(type) {
		case int64, float64:
			return true
		}
		return false
	}):
		return a.matchPossibleDateTime(pattern.NewFloat(frozen))
	case keysAre(frozen, func(v any) bool { _, ok := v.(time.Time); return ok }):
		return pattern.NewDateTime(frozen)
	case keysAre(frozen, func(v any) bool { _, ok := v.(string); return ok }):
		if a.cfg.StripWhitespace {
			stripped := counter.NewCounter()
			frozen.Items(func(v any, count int) {
				stripped.Add(strings.TrimSpace(v.(string)), count)
			})
			frozen = stripped.Freeze()
		}
		return a.matchStr(frozen)
	default:
		return &pattern.Value{}
	}
}

func recountColumns(frozen *counter.Frozen) *counter.Frozen {
	named := keysAre(frozen, func(v any) bool { return v.(column).name != "" })
	out := counter.NewCounter()
	frozen.Items(func(v any, count int) {
		col := v.(column)
		if named {
			out.Add(col.name, count)
		} else {
			out.Add(int64(col.index), count)
		}
	})
	return out.Freeze()
}

// matchStr finds common fixed-length templates or string-encoded bools,
// ints, floats and date-times covering the bag within the failure budget.
func (a *Analyzer) matchStr(items *counter.Frozen) pattern.Pattern {
	unique := false
	if top := items.MostCommon(1); len(top) > 0 {
		unique = top[0].Count == 1
	}
	total := items.Card()
	if items.Contains("") {
		if conv.ShareExceeds(items.Get(""), total, a.cfg.EmptyThreshold) {
			return pattern.NewStr(items, nil)
		}
		working := items.Thaw()
		working.Remove("")
		if working.Len() == 0 {
			return pattern.NewStr(items, nil)
		}
		items = working.Freeze()
	}
	budget := conv.CeilShare(total, a.cfg.BadThreshold)
	sample := items
	if !unique && budget > 0 {
		// Exclude potentially bad values by popularity: take the most
		// common items until the remainder fits inside the budget. If too
		// many values are singletons, popularity cannot separate good
		// from bad and the whole sample is used with the full budget.
		minCoverage := total - budget
		coverage := 0
		trimmed := counter.NewCounter()
		for _, item := range items.MostCommon(0) {
			trimmed.Add(item.Value, item.Count)
			coverage += item.Count
			if coverage >= minCoverage {
				budget = 0
				sample = trimmed.Freeze()
				break
			}
			if item.Count == 1 {
				sample = items
				break
			}
		}
	}

	lengths := pattern.StatsFromLengths(sample)
	if maxLen, ok := lengths.Max.(int64); ok && maxLen <= int64(a.cfg.MaxNumericLen) {
		if result := a.matchNumericStr(sample, budget); result != nil {
			return a.matchPossibleDateTime(result)
		}
	}
	if minLen, ok := lengths.Min.(int64); ok && minLen == lengths.Max.(int64) {
		return a.matchFixedLenStr(sample, budget)
	}
	urls := true
	sample.Items(func(v any, _ int) {
		s := v.(string)
		if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
			urls = false
		}
	})
	if urls {
		return pattern.NewURL(sample)
	}
	return pattern.NewStr(sample, nil)
}

// matchNumericStr attempts the registered conversions in cascade order:
// bool token pairs, int bases, float, then variable-length timezone-bearing
// date-time formats. It returns nil when nothing matched so the caller can
// try fixed-length inference.
func (a *Analyzer) matchNumericStr(sample *counter.Frozen, budget int) pattern.Pattern {
	for _, tokens := range boolPatterns {
		if p, err := pattern.BoolFromStrings(sample, tokens, budget); err == nil {
			return p
		}
	}
	for _, base := range intPatterns {
		if p, err := pattern.IntFromStrings(sample, base, budget); err == nil {
			return p
		}
	}
	if p, err := pattern.FloatFromStrings(sample, "f", budget); err == nil {
		return p
	}
	for _, format := range varDateTimeFormats {
		if p, err := pattern.DateTimeFromStrings(sample, format, budget); err == nil {
			return p
		}
	}
	return nil
}

// matchFixedLenStr handles a bag of equal-length strings: fixed-width
// date-time formats first, then a per-column character-class template. A
// column whose characters all fall inside the hex digits becomes a digit
// class, widened monotonically across columns to the most permissive base
// seen anywhere in the template.
func (a *Analyzer) matchFixedLenStr(sample *counter.Frozen, budget int) pattern.Pattern {
	for _, format := range fixedDateTimeFormats {
		if p, err := pattern.DateTimeFromStrings(sample, format, budget); err == nil {
			return p
		}
	}
	var keys []string
	sample.Items(func(v any, _ int) {
		keys = append(keys, v.(string))
	})
	if len(keys) == 0 {
		return pattern.NewStr(sample, nil)
	}
	width := len([]rune(keys[0]))
	columns := make([]map[rune]struct{}, width)
	for i := range columns {
		columns[i] = make(map[rune]struct{})
	}
	for _, key := range keys {
		for i, r := range []rune(key) {
			columns[i][r] = struct{}{}
		}
	}
	template := make([]chars.Class, width)
	isDigit := make([]bool, width)
	base := 0
	for i, col := range columns {
		if len(col) == 1 {
			for r := range col {
				template[i] = chars.New(string(r))
			}
			continue
		}
		class := classOf(col)
		if chars.HexDigit.ContainsAll(class) {
			isDigit[i] = true
			switch {
			case chars.OctDigit.ContainsAll(class):
				base = maxInt(base, 8)
			case chars.DecDigit.ContainsAll(class):
				base = maxInt(base, 10)
			default:
				base = maxInt(base, 16)
			}
		} else {
			template[i] = chars.Any
		}
	}
	digitClass := chars.OctDigit
	switch base {
	case 10:
		digitClass = chars.DecDigit
	case 16:
		digitClass = chars.HexDigit
	}
	for i := range template {
		if isDigit[i] {
			template[i] = digitClass
		}
	}
	return pattern.NewStr(sample, template)
}

func classOf(col map[rune]struct{}) chars.Class {
	var b strings.Builder
	for r := range col {
		b.WriteRune(r)
	}
	return chars.New(b.String())
}

// matchPossibleDateTime rewraps a numeric pattern (or a string-encoded
// decimal int or float) as a timestamp-encoded DateTime when its whole
// range falls inside the configured window.
func (a *Analyzer) matchPossibleDateTime(p pattern.Pattern) pattern.Pattern {
	inWindow := func(v any) bool {
		var n float64
		switch x := v.(type) {
		case int64:
			n = float64(x)
		case float64:
			n = x
		default:
			return false
		}
		return a.minTS <= n && n <= a.maxTS
	}
	switch node := p.(type) {
	case *pattern.Int:
		if inWindow(node.Values.Min) && inWindow(node.Values.Max) {
			return pattern.DateTimeFromNumbers(p)
		}
	case *pattern.Float:
		if inWindow(node.Values.Min) && inWindow(node.Values.Max) {
			return pattern.DateTimeFromNumbers(p)
		}
	case *pattern.StrRepr:
		switch inner := node.Inner.(type) {
		case *pattern.Int:
			if node.Format == "d" && inWindow(inner.Values.Min) && inWindow(inner.Values.Max) {
				return pattern.DateTimeFromNumbers(p)
			}
		case *pattern.Float:
			if inWindow(inner.Values.Min) && inWindow(inner.Values.Max) {
				return pattern.DateTimeFromNumbers(p)
			}
		}
	}
	return p
}

func allOf(items []any, pred func(any) bool) bool {
	for _, item := range items {
		if !pred(item) {
			return false
		}
	}
	return true
}

func keysAre(frozen *counter.Frozen, pred func(any) bool) bool {
	ok := true
	frozen.Items(func(v any, _ int) {
		if !pred(v) {
			ok = false
		}
	})
	return ok
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
