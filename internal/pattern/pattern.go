// Package pattern defines the algebra of structural patterns produced by
// analysis: container kinds, scalar kinds, string/number representation
// wrappers, recognized fields and choice sets. Patterns are immutable
// values; Merge produces a fresh pattern and is defined exactly when
// Compare holds, forming a semilattice used to unify sibling subtrees.
package pattern

import (
	"fmt"
	"math"
	"strings"
)

// Pattern is a node in the inferred schema tree.
//
// Validate answers whether a single value conforms to the node (containers
// check kind and length band only; content is not re-validated). Compare is
// the structural-equivalence relation used to decide mergeability; it is
// looser than equality (Bool, Int and Float all compare equivalent, the
// numeric tower). Merge combines two compatible patterns into one covering
// both samples; ok is false when the patterns do not compare.
type Pattern interface {
	Validate(v any) bool
	Compare(o Pattern) bool
	Merge(o Pattern) (p Pattern, ok bool)
	String() string
}

// Empty is the pattern of an empty bag.
type Empty struct{}

func (*Empty) Validate(any) bool { return false }

func (*Empty) Compare(o Pattern) bool {
	_, ok := o.(*Empty)
	return ok
}

func (e *Empty) Merge(o Pattern) (Pattern, bool) {
	if e.Compare(o) {
		return &Empty{}, true
	}
	return nil, false
}

func (*Empty) String() string { return "" }

// Value is the pattern of a heterogeneous or unhashable bag; it matches
// anything.
type Value struct{}

func (*Value) Validate(any) bool { return true }

func (*Value) Compare(o Pattern) bool {
	_, ok := o.(*Value)
	return ok
}

func (v *Value) Merge(o Pattern) (Pattern, bool) {
	if v.Compare(o) {
		return &Value{}, true
	}
	return nil, false
}

func (*Value) String() string { return "value" }

// formatInt reduces i by a power of 1000 and suffixes the matching Greek
// qualifier.
func formatInt(i int64) string {
	suffixes := []string{"", "K", "M", "G", "T", "P"}
	if i == 0 {
		return "0"
	}
	index := int(math.Log(math.Abs(float64(i))) / math.Log(1000))
	if index >= len(suffixes) {
		index = len(suffixes) - 1
	}
	if index <= 0 {
		return fmt.Sprint(i)
	}
	return fmt.Sprintf("%.1f%s", float64(i)/math.Pow(1000, float64(index)), suffixes[index])
}

// shorten truncates s to width characters with a trailing ellipsis.
func shorten(s string, width int) string {
	if len(s) <= width {
		return s
	}
	return s[:width-3] + "..."
}

// joinOrWrap renders elems on one line when short, or one per line with
// indentation when long, inside the given brackets.
func joinOrWrap(elems []string, open, close string) string {
	result := strings.Join(elems, ", ")
	if !strings.Contains(result, "\n") && len(result) <= 60 {
		return open + result + close
	}
	var b strings.Builder
	b.WriteString(open)
	b.WriteString("\n")
	for i, e := range elems {
		lines := strings.Split(e, "\n")
		for j, line := range lines {
			b.WriteString("    ")
			b.WriteString(line)
			if j == len(lines)-1 && i != len(elems)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(close)
	return b.String()
}

// formatScalar renders a sample value the way the text output expects.
func formatScalar(v any) string {
	switch n := v.(type) {
	case nil:
		return "null"
	case bool:
		if n {
			return "true"
		}
		return "false"
	case int64:
		return formatInt(n)
	case float64:
		return fmt.Sprintf("%.7g", n)
	case string:
		return fmt.Sprintf("%q", n)
	default:
		return fmt.Sprint(v)
	}
}
