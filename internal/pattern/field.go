package pattern

import (
	"fmt"
	"sort"
	"strings"
)

// Field is a recognized literal key or positional index. A field is
// optional when it was observed in strictly fewer records than the parent
// container holds.
type Field struct {
	Value    any
	Optional bool
}

func NewField(value any, optional bool) *Field {
	return &Field{Value: Normalize(value), Optional: optional}
}

func (f *Field) Validate(v any) bool {
	return cmpValues(Normalize(v), f.Value) == 0
}

// Compare deliberately ignores Optional: fields are only compared during
// common-subtree merging, where a key may be mandatory in one subset and
// optional in another.
func (f *Field) Compare(o Pattern) bool {
	of, ok := o.(*Field)
	return ok && cmpValues(f.Value, of.Value) == 0
}

func (f *Field) Merge(o Pattern) (Pattern, bool) {
	of, ok := o.(*Field)
	if !ok || !f.Compare(o) {
		return nil, false
	}
	return &Field{Value: f.Value, Optional: f.Optional || of.Optional}, true
}

func (f *Field) String() string {
	s := fmt.Sprintf("%#v", f.Value)
	if f.Optional {
		s += "*"
	}
	return s
}

// Fields is a choice set of literal fields. Members are kept sorted by
// literal value so iteration order, and therefore container content order,
// is reproducible.
type Fields struct {
	Members []*Field
}

// NewFields builds a choice set, sorting members canonically and folding
// duplicates (same literal) together with ORed optionality.
func NewFields(members []*Field) *Fields {
	byValue := make([]*Field, 0, len(members))
	for _, m := range members {
		merged := false
		for i, existing := range byValue {
			if existing.Compare(m) {
				p, _ := existing.Merge(m)
				byValue[i] = p.(*Field)
				merged = true
				break
			}
		}
		if !merged {
			byValue = append(byValue, m)
		}
	}
	sort.Slice(byValue, func(i, j int) bool {
		return less(byValue[i].Value, byValue[j].Value)
	})
	return &Fields{Members: byValue}
}

func (f *Fields) Len() int { return len(f.Members) }

func (f *Fields) Validate(v any) bool {
	for _, m := range f.Members {
		if m.Validate(v) {
			return true
		}
	}
	return false
}

func (f *Fields) Compare(o Pattern) bool {
	_, ok := o.(*Fields)
	return ok
}

func (f *Fields) Merge(o Pattern) (Pattern, bool) {
	of, ok := o.(*Fields)
	if !ok {
		return nil, false
	}
	combined := make([]*Field, 0, len(f.Members)+len(of.Members))
	combined = append(combined, f.Members...)
	combined = append(combined, of.Members...)
	return NewFields(combined), true
}

func (f *Fields) String() string {
	parts := make([]string, len(f.Members))
	for i, m := range f.Members {
		parts[i] = m.String()
	}
	return "<" + shorten(strings.Join(parts, "|"), 60) + ">"
}
