package pattern

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/waveform80/structa/internal/chars"
	"github.com/waveform80/structa/internal/conv"
	"github.com/waveform80/structa/internal/counter"
)

// The numeric tower: Bool is narrower than Int which is narrower than
// Float. Compare holds across the whole tower and Merge promotes to the
// wider kind. The ordering is expressed here rather than by embedding.
func numericRank(p Pattern) (int, bool) {
	switch p.(type) {
	case *Bool:
		return 0, true
	case *Int:
		return 1, true
	case *Float:
		return 2, true
	}
	return 0, false
}

// Bool is the pattern of a homogeneous bag of booleans.
type Bool struct {
	Values Stats
}

func NewBool(sample *counter.Frozen) *Bool {
	return &Bool{Values: StatsFromSample(sample)}
}

// BoolFromStrings infers a string-encoded bool under the token pair given
// as "false|true", tolerating up to threshold count-weighted failures.
func BoolFromStrings(sample *counter.Frozen, pattern string, threshold int) (*StrRepr, error) {
	falseTok, trueTok, ok := strings.Cut(pattern, "|")
	if !ok {
		return nil, fmt.Errorf("pattern: invalid bool pattern %q", pattern)
	}
	out := counter.NewCounter()
	err := conv.TryConversion(sample, func(s string) (any, error) {
		return conv.ParseBool(s, falseTok, trueTok)
	}, threshold, out)
	if err != nil {
		return nil, err
	}
	return &StrRepr{Inner: NewBool(out.Freeze()), Format: pattern}, nil
}

func (b *Bool) Validate(v any) bool {
	switch n := Normalize(v).(type) {
	case bool:
		return true
	case int64:
		return n == 0 || n == 1
	}
	return false
}

func (b *Bool) Compare(o Pattern) bool {
	_, ok := numericRank(o)
	return ok
}

func (b *Bool) Merge(o Pattern) (Pattern, bool) { return mergeNumeric(b, o) }

func (*Bool) String() string { return "bool" }

// Int is the pattern of a homogeneous bag of integers.
type Int struct {
	Values Stats
}

func NewInt(sample *counter.Frozen) *Int {
	return &Int{Values: StatsFromSample(sample)}
}

var intBases = map[string]int{"o": 8, "d": 10, "x": 16}

// IntFromStrings infers a string-encoded integer under the base pattern
// "o", "d" or "x".
func IntFromStrings(sample *counter.Frozen, pattern string, threshold int) (*StrRepr, error) {
	base, ok := intBases[pattern]
	if !ok {
		return nil, fmt.Errorf("pattern: invalid int pattern %q", pattern)
	}
	out := counter.NewCounter()
	err := conv.TryConversion(sample, func(s string) (any, error) {
		return conv.ParseInt(s, base)
	}, threshold, out)
	if err != nil {
		return nil, err
	}
	return &StrRepr{Inner: NewInt(out.Freeze()), Format: pattern}, nil
}

func (i *Int) Validate(v any) bool {
	n, ok := Normalize(v).(int64)
	return ok && inRange(n, i.Values.Min, i.Values.Max)
}

func (i *Int) Compare(o Pattern) bool {
	_, ok := numericRank(o)
	return ok
}

func (i *Int) Merge(o Pattern) (Pattern, bool) { return mergeNumeric(i, o) }

func (i *Int) String() string {
	return fmt.Sprintf("int range=%s..%s",
		formatScalarInt(i.Values.Min), formatScalarInt(i.Values.Max))
}

func formatScalarInt(v any) string {
	if n, ok := v.(int64); ok {
		return formatInt(n)
	}
	return fmt.Sprint(v)
}

// Float is the pattern of a homogeneous bag of reals (possibly mixed with
// integers).
type Float struct {
	Values Stats
}

func NewFloat(sample *counter.Frozen) *Float {
	return &Float{Values: StatsFromSample(sample)}
}

// FloatFromStrings infers a string-encoded real; the only pattern is "f".
func FloatFromStrings(sample *counter.Frozen, pattern string, threshold int) (*StrRepr, error) {
	if pattern != "f" {
		return nil, fmt.Errorf("pattern: invalid float pattern %q", pattern)
	}
	out := counter.NewCounter()
	err := conv.TryConversion(sample, func(s string) (any, error) {
		return conv.ParseFloat(s)
	}, threshold, out)
	if err != nil {
		return nil, err
	}
	return &StrRepr{Inner: NewFloat(out.Freeze()), Format: pattern}, nil
}

func (f *Float) Validate(v any) bool {
	switch n := Normalize(v).(type) {
	case float64:
		return inRange(n, f.Values.Min, f.Values.Max)
	case int64:
		return inRange(n, f.Values.Min, f.Values.Max)
	}
	return false
}

func (f *Float) Compare(o Pattern) bool {
	_, ok := numericRank(o)
	return ok
}

func (f *Float) Merge(o Pattern) (Pattern, bool) { return mergeNumeric(f, o) }

func (f *Float) String() string {
	return fmt.Sprintf("float range=%.7g..%.7g",
		toFloat(f.Values.Min), toFloat(f.Values.Max))
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	}
	return math.NaN()
}

// mergeNumeric merges any two members of the numeric tower, promoting to
// the wider kind. The merged Values stats are the summed samples.
func mergeNumeric(a, b Pattern) (Pattern, bool) {
	ra, aok := numericRank(a)
	rb, bok := numericRank(b)
	if !aok || !bok {
		return nil, false
	}
	values := numericStats(a).Add(numericStats(b))
	if rb > ra {
		ra = rb
	}
	switch ra {
	case 0:
		return &Bool{Values: values}, true
	case 1:
		return &Int{Values: values}, true
	default:
		return &Float{Values: values}, true
	}
}

func numericStats(p Pattern) Stats {
	switch n := p.(type) {
	case *Bool:
		return n.Values
	case *Int:
		return n.Values
	case *Float:
		return n.Values
	}
	panic("pattern: not a numeric pattern")
}

// DateTime is the pattern of a homogeneous bag of instants.
type DateTime struct {
	Values Stats
}

func NewDateTime(sample *counter.Frozen) *DateTime {
	return &DateTime{Values: StatsFromSample(sample)}
}

// DateTimeFromStrings infers a string-encoded instant under a
// strftime-style format.
func DateTimeFromStrings(sample *counter.Frozen, format string, threshold int) (*StrRepr, error) {
	out := counter.NewCounter()
	err := conv.TryConversion(sample, func(s string) (any, error) {
		return conv.ParseTime(s, format)
	}, threshold, out)
	if err != nil {
		return nil, err
	}
	return &StrRepr{Inner: NewDateTime(out.Freeze()), Format: format}, nil
}

// DateTimeFromNumbers reinterprets a numeric pattern (or a string-encoded
// numeric pattern) whose values are plausible POSIX timestamps as a
// number-encoded DateTime, preserving any string wrapper.
func DateTimeFromNumbers(p Pattern) Pattern {
	numeric := p
	if sr, ok := p.(*StrRepr); ok {
		numeric = sr.Inner
	}
	var kind NumKind
	switch numeric.(type) {
	case *Int:
		kind = NumInt
	case *Float:
		kind = NumFloat
	default:
		panic("pattern: DateTimeFromNumbers over non-numeric pattern")
	}
	sample := counter.NewCounter()
	numericStats(numeric).Sample.Items(func(v any, count int) {
		sample.Add(timeFromNumber(v), count)
	})
	result := &NumRepr{Inner: NewDateTime(sample.Freeze()), Kind: kind}
	if sr, ok := p.(*StrRepr); ok {
		return &StrRepr{Inner: result, Format: sr.Format}
	}
	return result
}

func timeFromNumber(v any) time.Time {
	switch n := Normalize(v).(type) {
	case int64:
		return time.Unix(n, 0)
	case float64:
		sec := math.Floor(n)
		return time.Unix(int64(sec), int64((n-sec)*1e9))
	}
	panic(fmt.Sprintf("pattern: not a timestamp number %T", v))
}

func (d *DateTime) Validate(v any) bool {
	t, ok := v.(time.Time)
	if !ok {
		return false
	}
	min, okMin := d.Values.Min.(time.Time)
	max, okMax := d.Values.Max.(time.Time)
	return okMin && okMax && !t.Before(min) && !t.After(max)
}

func (d *DateTime) Compare(o Pattern) bool {
	_, ok := o.(*DateTime)
	return ok
}

func (d *DateTime) Merge(o Pattern) (Pattern, bool) {
	od, ok := o.(*DateTime)
	if !ok {
		return nil, false
	}
	return &DateTime{Values: d.Values.Add(od.Values)}, true
}

func (d *DateTime) String() string {
	min, _ := d.Values.Min.(time.Time)
	max, _ := d.Values.Max.(time.Time)
	return fmt.Sprintf("datetime range=%s..%s",
		min.Format("2006-01-02 15:04:05"), max.Format("2006-01-02 15:04:05"))
}

// Str is the pattern of a homogeneous bag of strings, with value and
// length statistics and, for fixed-width bags, a per-position character
// class template.
type Str struct {
	Values  Stats
	Lengths Stats
	Pattern []chars.Class
}

func NewStr(sample *counter.Frozen, template []chars.Class) *Str {
	return &Str{
		Values:  StatsFromSample(sample),
		Lengths: StatsFromLengths(sample),
		Pattern: template,
	}
}

// Unique reports whether every sampled string occurred exactly once.
func (s *Str) Unique() bool { return s.Values.Unique }

func (s *Str) Validate(v any) bool {
	str, ok := v.(string)
	if !ok {
		return false
	}
	l := int64(runeLen(str))
	if !inRange(l, s.Lengths.Min, s.Lengths.Max) {
		return false
	}
	if s.Pattern != nil {
		for i, r := range []rune(str) {
			if i >= len(s.Pattern) {
				break
			}
			if !s.Pattern[i].Contains(r) {
				return false
			}
		}
	}
	return true
}

func (s *Str) Compare(o Pattern) bool {
	switch o.(type) {
	case *Str, *URL:
		return true
	}
	return false
}

func (s *Str) Merge(o Pattern) (Pattern, bool) {
	var os *Str
	switch other := o.(type) {
	case *Str:
		os = other
	case *URL:
		os = &other.Str
	default:
		return nil, false
	}
	merged := mergeStr(s, os)
	return &merged, true
}

func mergeStr(a, b *Str) Str {
	var template []chars.Class
	if a.Pattern != nil && b.Pattern != nil && len(a.Pattern) == len(b.Pattern) {
		template = make([]chars.Class, len(a.Pattern))
		for i := range a.Pattern {
			template[i] = a.Pattern[i].Union(b.Pattern[i])
		}
	}
	return Str{
		Values:  a.Values.Add(b.Values),
		Lengths: a.Lengths.Add(b.Lengths),
		Pattern: template,
	}
}

func (s *Str) String() string {
	if s.Pattern == nil {
		return "str"
	}
	var b strings.Builder
	for _, c := range s.Pattern {
		b.WriteString(c.String())
	}
	return "str pattern=" + shorten(b.String(), 60)
}

// URL is a Str whose every member is an http or https URL.
type URL struct {
	Str
}

func NewURL(sample *counter.Frozen) *URL {
	return &URL{Str: *NewStr(sample, nil)}
}

func (u *URL) Validate(v any) bool {
	s, ok := v.(string)
	if !ok || !u.Str.Validate(v) {
		return false
	}
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (u *URL) Compare(o Pattern) bool {
	switch o.(type) {
	case *Str, *URL:
		return true
	}
	return false
}

// Merge keeps the URL kind only when both operands are URLs; a plain Str
// operand demotes the result to Str so the merge stays commutative.
func (u *URL) Merge(o Pattern) (Pattern, bool) {
	switch other := o.(type) {
	case *URL:
		merged := mergeStr(&u.Str, &other.Str)
		return &URL{Str: merged}, true
	case *Str:
		merged := mergeStr(&u.Str, other)
		return &merged, true
	}
	return nil, false
}

func (*URL) String() string { return "URL" }
