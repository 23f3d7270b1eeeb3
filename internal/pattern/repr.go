package pattern

import (
	"fmt"
	"strings"

	"github.com/waveform80/structa/internal/conv"
)

// NumKind records whether a number-encoded pattern's underlying numbers
// were integral or fractional.
type NumKind int

const (
	NumInt NumKind = iota
	NumFloat
)

func (k NumKind) String() string {
	if k == NumInt {
		return "int"
	}
	return "float"
}

// StrRepr wraps a pattern whose values were encoded as strings in the
// source data; Format records how to decode them (a bool token pair, an
// int base tag, "f", or a strftime format). The inner pattern is never
// itself a StrRepr.
type StrRepr struct {
	Inner  Pattern
	Format string
}

func (r *StrRepr) Validate(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	decoded, err := r.decode(s)
	if err != nil {
		return false
	}
	return r.Inner.Validate(decoded)
}

func (r *StrRepr) decode(s string) (any, error) {
	switch inner := r.Inner.(type) {
	case *Bool:
		falseTok, trueTok, _ := strings.Cut(r.Format, "|")
		return conv.ParseBool(s, falseTok, trueTok)
	case *Int:
		return conv.ParseInt(s, intBases[r.Format])
	case *Float:
		return conv.ParseFloat(s)
	case *DateTime:
		return conv.ParseTime(s, r.Format)
	case *NumRepr:
		if inner.Kind == NumInt {
			return conv.ParseInt(s, intBases[r.Format])
		}
		return conv.ParseFloat(s)
	}
	return nil, fmt.Errorf("pattern: undecodable string representation %T", r.Inner)
}

// reprKind assigns each permissible inner kind a place in the widening
// order used by the compatibility matrix (Bool before Int before Float).
func reprKind(p Pattern) (int, bool) {
	switch p.(type) {
	case *Bool:
		return 0, true
	case *Int:
		return 1, true
	case *Float:
		return 2, true
	case *DateTime:
		return 3, true
	case *NumRepr:
		return 4, true
	}
	return 0, false
}

// Compare implements the fixed compatibility matrix over the child
// (narrower) and parent (wider) representations:
//
//	Bool/Bool      equal token pattern
//	Bool/Int       only when the bool pattern is "0|1"
//	Bool/Float     only when the bool pattern is "0|1"
//	Int/Int        always
//	Int/Float      unless the int pattern is "x"
//	Float/Float    always
//	DT/DT          equal format
//	NumRepr/NumRepr always
func (r *StrRepr) Compare(o Pattern) bool {
	or, ok := o.(*StrRepr)
	if !ok || !r.Inner.Compare(or.Inner) {
		return false
	}
	child, parent := r, or
	ck, ok1 := reprKind(child.Inner)
	pk, ok2 := reprKind(parent.Inner)
	if !ok1 || !ok2 {
		return false
	}
	if ck > pk {
		child, parent = parent, child
		ck, pk = pk, ck
	}
	switch {
	case ck == 0 && pk == 0:
		return child.Format == parent.Format
	case ck == 0 && (pk == 1 || pk == 2):
		return child.Format == "0|1"
	case ck == 1 && pk == 1:
		return true
	case ck == 1 && pk == 2:
		return child.Format != "x"
	case ck == 2 && pk == 2:
		return true
	case ck == 3 && pk == 3:
		return child.Format == parent.Format
	case ck == 4 && pk == 4:
		return true
	}
	return false
}

var intBaseOrder = map[string]int{"o": 0, "d": 1, "x": 2}

// Merge combines compatible string representations: the inner patterns
// merge through the numeric tower and, when both sides are integers, the
// widest base wins (o < d < x); otherwise the wider side's format is kept.
func (r *StrRepr) Merge(o Pattern) (Pattern, bool) {
	or, ok := o.(*StrRepr)
	if !ok || !r.Compare(o) {
		return nil, false
	}
	child, parent := r, or
	ck, _ := reprKind(child.Inner)
	pk, _ := reprKind(parent.Inner)
	if ck > pk {
		child, parent = parent, child
		ck, pk = pk, ck
	}
	format := parent.Format
	if ck == 1 && pk == 1 {
		if intBaseOrder[child.Format] > intBaseOrder[parent.Format] {
			format = child.Format
		}
	}
	inner, ok := child.Inner.Merge(parent.Inner)
	if !ok {
		return nil, false
	}
	return &StrRepr{Inner: inner, Format: format}, true
}

func (r *StrRepr) String() string {
	return fmt.Sprintf("str of %s pattern=%s", r.Inner, r.Format)
}

// NumRepr wraps a DateTime pattern whose instants were encoded as POSIX
// timestamp numbers; Kind records whether the numbers were integral or
// fractional.
type NumRepr struct {
	Inner Pattern
	Kind  NumKind
}

func (r *NumRepr) Validate(v any) bool {
	switch Normalize(v).(type) {
	case int64, float64:
	default:
		return false
	}
	return r.Inner.Validate(timeFromNumber(v))
}

func (r *NumRepr) Compare(o Pattern) bool {
	or, ok := o.(*NumRepr)
	return ok && r.Inner.Compare(or.Inner)
}

func (r *NumRepr) Merge(o Pattern) (Pattern, bool) {
	or, ok := o.(*NumRepr)
	if !ok || !r.Compare(o) {
		return nil, false
	}
	kind := NumInt
	if r.Kind == NumFloat || or.Kind == NumFloat {
		kind = NumFloat
	}
	inner, ok := r.Inner.Merge(or.Inner)
	if !ok {
		return nil, false
	}
	return &NumRepr{Inner: inner, Kind: kind}, true
}

func (r *NumRepr) String() string {
	return fmt.Sprintf("%s of %s", r.Kind, r.Inner)
}
