// Package chars implements sets of Unicode code points with the usual set
// algebra, plus a distinguished universal set used to stand for "any
// character" in fixed-length string templates.
package chars

import (
	"errors"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrUniversalDiff is returned when a finite class is subtracted from the
// universal class; the result would be almost every code point and is never
// a useful template element.
var ErrUniversalDiff = errors.New("chars: cannot subtract a finite class from the universal class")

// Class is an immutable set of Unicode code points. The zero value is the
// empty set. The universal set (Any) is a distinguished sentinel rather
// than a materialized set of every code point. Class values are comparable
// with ==.
type Class struct {
	universal bool
	runes     string // sorted, deduplicated
}

// Any is the universal class containing every Unicode code point.
var Any = Class{universal: true}

// Named digit classes used by fixed-length template inference. The octal
// digits are a subset of the decimal digits, which are a subset of the hex
// digits.
var (
	OctDigit = New("01234567")
	DecDigit = New("0123456789")
	HexDigit = DecDigit.Union(New("abcdefABCDEF"))
)

// Identifier classes, offered for key-pattern rendering.
var (
	IdentFirst = Range('A', 'Z').Union(Range('a', 'z')).Union(New("_"))
	IdentChar  = IdentFirst.Union(DecDigit)
)

// New returns the class containing exactly the code points of s.
func New(s string) Class {
	seen := make(map[rune]struct{}, len(s))
	for _, r := range s {
		seen[r] = struct{}{}
	}
	return fromSet(seen)
}

// Range returns the class of all code points from lo to hi inclusive.
func Range(lo, hi rune) Class {
	var b strings.Builder
	for r := lo; r <= hi; r++ {
		b.WriteRune(r)
	}
	return Class{runes: b.String()}
}

func fromSet(set map[rune]struct{}) Class {
	if len(set) == utf8.MaxRune+1 {
		return Any
	}
	rs := make([]rune, 0, len(set))
	for r := range set {
		rs = append(rs, r)
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })
	return Class{runes: string(rs)}
}

// IsAny reports whether c is the universal class.
func (c Class) IsAny() bool { return c.universal }

// Len returns the cardinality of the class. For the universal class this is
// the count of all Unicode code points.
func (c Class) Len() int {
	if c.universal {
		return utf8.MaxRune + 1
	}
	return len([]rune(c.runes))
}

// Contains reports whether r is a member of the class.
func (c Class) Contains(r rune) bool {
	if c.universal {
		return true
	}
	i := strings.IndexRune(c.runes, r)
	return i >= 0
}

// ContainsAll reports whether every member of o is a member of c.
func (c Class) ContainsAll(o Class) bool {
	if c.universal {
		return true
	}
	if o.universal {
		return false
	}
	for _, r := range o.runes {
		if !c.Contains(r) {
			return false
		}
	}
	return true
}

// Runes returns the members of a finite class in ascending order; it
// returns nil for the universal class.
func (c Class) Runes() []rune {
	if c.universal {
		return nil
	}
	return []rune(c.runes)
}

// Union returns the class of code points in either operand.
func (c Class) Union(o Class) Class {
	if c.universal || o.universal {
		return Any
	}
	set := make(map[rune]struct{}, len(c.runes)+len(o.runes))
	for _, r := range c.runes {
		set[r] = struct{}{}
	}
	for _, r := range o.runes {
		set[r] = struct{}{}
	}
	return fromSet(set)
}

// Intersect returns the class of code points in both operands.
func (c Class) Intersect(o Class) Class {
	if c.universal {
		return o
	}
	if o.universal {
		return c
	}
	set := make(map[rune]struct{})
	for _, r := range c.runes {
		if o.Contains(r) {
			set[r] = struct{}{}
		}
	}
	return fromSet(set)
}

// Diff returns the class of code points in c but not in o. Subtracting any
// class from the universal class fails with ErrUniversalDiff (except the
// universal class itself, which yields the empty class); subtracting the
// universal class from anything yields the empty class.
func (c Class) Diff(o Class) (Class, error) {
	if o.universal {
		return Class{}, nil
	}
	if c.universal {
		return Class{}, ErrUniversalDiff
	}
	set := make(map[rune]struct{})
	for _, r := range c.runes {
		if !o.Contains(r) {
			set[r] = struct{}{}
		}
	}
	return fromSet(set), nil
}

// SymDiff returns the class of code points in exactly one operand. It fails
// with ErrUniversalDiff when one operand is universal and the other finite,
// for the same reason Diff does.
func (c Class) SymDiff(o Class) (Class, error) {
	if c.universal && o.universal {
		return Class{}, nil
	}
	if c.universal || o.universal {
		return Class{}, ErrUniversalDiff
	}
	set := make(map[rune]struct{})
	for _, r := range c.runes {
		if !o.Contains(r) {
			set[r] = struct{}{}
		}
	}
	for _, r := range o.runes {
		if !c.Contains(r) {
			set[r] = struct{}{}
		}
	}
	return fromSet(set), nil
}

// Cmp orders classes by cardinality; the universal class is greater than
// every finite class. It returns -1, 0 or +1.
func (c Class) Cmp(o Class) int {
	switch {
	case c.Len() < o.Len():
		return -1
	case c.Len() > o.Len():
		return 1
	default:
		return 0
	}
}

// String renders the class compactly: "." for the universal class, the
// named digit classes by their single-letter tags, a lone member verbatim,
// and anything else as a bracketed list of ranges (e.g. "[a-dhi]").
func (c Class) String() string {
	switch {
	case c.universal:
		return "."
	case c == OctDigit:
		return "o"
	case c == DecDigit:
		return "d"
	case c == HexDigit:
		return "x"
	}
	rs := []rune(c.runes)
	switch len(rs) {
	case 0:
		return "∅"
	case 1:
		return string(rs)
	default:
		return "[" + FormatRunes(rs, "-", "") + "]"
	}
}

// FormatRunes compresses a sorted rune slice into range notation: runs of
// three or more consecutive code points become "a-d", everything else is
// listed. rangeSep separates a run's endpoints and listSep separates runs.
func FormatRunes(rs []rune, rangeSep, listSep string) string {
	if len(rs) == 0 {
		return ""
	}
	type span struct{ lo, hi rune }
	var spans []span
	cur := span{rs[0], rs[0]}
	for _, r := range rs[1:] {
		if r == cur.hi+1 {
			cur.hi = r
		} else {
			spans = append(spans, cur)
			cur = span{r, r}
		}
	}
	spans = append(spans, cur)
	parts := make([]string, 0, len(spans))
	for _, sp := range spans {
		switch {
		case sp.lo == sp.hi:
			parts = append(parts, string(sp.lo))
		case sp.hi == sp.lo+1:
			parts = append(parts, string(sp.lo)+string(sp.hi))
		default:
			parts = append(parts, string(sp.lo)+rangeSep+string(sp.hi))
		}
	}
	return strings.Join(parts, listSep)
}
