package pattern

import (
	"fmt"
)

// Record is a heterogeneous record value: the tuple analogue in the input
// value domain. Names is empty for positional records; when present it
// runs parallel to Values.
type Record struct {
	Names  []string
	Values []any
}

// NewRecord builds a positional record.
func NewRecord(values ...any) *Record {
	return &Record{Values: values}
}

// NewNamedRecord builds a record with one name per value.
func NewNamedRecord(names []string, values []any) *Record {
	if len(names) != len(values) {
		panic("pattern: record names and values differ in length")
	}
	return &Record{Names: names, Values: values}
}

// Named reports whether every column carries a name.
func (r *Record) Named() bool { return len(r.Names) == len(r.Values) && len(r.Names) > 0 }

// Len returns the number of columns.
func (r *Record) Len() int { return len(r.Values) }

// ByName returns the value of the named column.
func (r *Record) ByName(name string) (any, bool) {
	for i, n := range r.Names {
		if n == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// IsMap reports whether v is one of the accepted mapping types.
func IsMap(v any) bool {
	switch v.(type) {
	case map[string]any, map[any]any:
		return true
	}
	return false
}

// MapEntries calls fn for every key/value entry of a mapping value.
func MapEntries(v any, fn func(k, val any)) bool {
	switch m := v.(type) {
	case map[string]any:
		for k, val := range m {
			fn(k, val)
		}
		return true
	case map[any]any:
		for k, val := range m {
			fn(k, val)
		}
		return true
	}
	return false
}

// MapGet indexes a mapping value by a (normalized) key.
func MapGet(v, key any) (any, bool) {
	switch m := v.(type) {
	case map[string]any:
		s, ok := key.(string)
		if !ok {
			return nil, false
		}
		val, ok := m[s]
		return val, ok
	case map[any]any:
		val, ok := m[key]
		if ok {
			return val, true
		}
		// Keys inserted as plain ints still match their normalized form.
		if n, isInt := key.(int64); isInt {
			val, ok = m[int(n)]
			return val, ok
		}
		return nil, false
	}
	return nil, false
}

// ContainerLen returns the length of any container value.
func ContainerLen(v any) int {
	switch c := v.(type) {
	case []any:
		return len(c)
	case *Record:
		return c.Len()
	case map[string]any:
		return len(c)
	case map[any]any:
		return len(c)
	}
	return 0
}

// List is the pattern of a bag of homogeneous sequences; Content, once
// analysis has descended, holds the single item pattern.
type List struct {
	Lengths Stats
	Content []Pattern
}

func NewList(sample []any) *List {
	return &List{Lengths: StatsOfContainerLengths(sample, ContainerLen)}
}

// WithContent returns a copy of the pattern with the given content.
func (l *List) WithContent(content []Pattern) *List {
	return &List{Lengths: l.Lengths, Content: content}
}

func (l *List) Validate(v any) bool {
	s, ok := v.([]any)
	if !ok {
		return false
	}
	return inRange(int64(len(s)), l.Lengths.Min, l.Lengths.Max)
}

func (l *List) Compare(o Pattern) bool {
	ol, ok := o.(*List)
	if !ok {
		return false
	}
	return compareContent(asPatterns(l.Content), asPatterns(ol.Content))
}

func (l *List) Merge(o Pattern) (Pattern, bool) {
	ol, ok := o.(*List)
	if !ok || !l.Compare(o) {
		return nil, false
	}
	content, ok := mergeContent(l.Content, ol.Content)
	if !ok {
		return nil, false
	}
	return &List{Lengths: l.Lengths.Add(ol.Lengths), Content: content}, true
}

func (l *List) String() string {
	if l.Content == nil {
		return "[]"
	}
	elems := make([]string, len(l.Content))
	for i, p := range l.Content {
		elems[i] = p.String()
	}
	return joinOrWrap(elems, "[", "]")
}

// DictField pairs a key pattern (a recognized Field or a general scalar
// pattern) with the pattern of the values found under it.
type DictField struct {
	Key   Pattern
	Value Pattern
}

func (f *DictField) Validate(v any) bool { return f.Value.Validate(v) }

func (f *DictField) Compare(o Pattern) bool {
	of, ok := o.(*DictField)
	return ok &&
		f.Key.Compare(of.Key) &&
		f.Value != nil && of.Value != nil &&
		f.Value.Compare(of.Value)
}

func (f *DictField) Merge(o Pattern) (Pattern, bool) {
	of, ok := o.(*DictField)
	if !ok {
		return nil, false
	}
	key, ok := f.Key.Merge(of.Key)
	if !ok {
		return nil, false
	}
	value, ok := f.Value.Merge(of.Value)
	if !ok {
		return nil, false
	}
	return &DictField{Key: key, Value: value}, true
}

func (f *DictField) String() string {
	return fmt.Sprintf("%s: %s", f.Key, f.Value)
}

// Dict is the pattern of a bag of mappings.
type Dict struct {
	Lengths Stats
	Content []*DictField
}

func NewDict(sample []any) *Dict {
	return &Dict{Lengths: StatsOfContainerLengths(sample, ContainerLen)}
}

func (d *Dict) WithContent(content []*DictField) *Dict {
	return &Dict{Lengths: d.Lengths, Content: content}
}

func (d *Dict) Validate(v any) bool {
	if !IsMap(v) {
		return false
	}
	return inRange(int64(ContainerLen(v)), d.Lengths.Min, d.Lengths.Max)
}

func (d *Dict) Compare(o Pattern) bool {
	od, ok := o.(*Dict)
	if !ok {
		return false
	}
	return compareContent(dictFieldPatterns(d.Content), dictFieldPatterns(od.Content))
}

func (d *Dict) Merge(o Pattern) (Pattern, bool) {
	od, ok := o.(*Dict)
	if !ok || !d.Compare(o) {
		return nil, false
	}
	if len(d.Content) != len(od.Content) {
		return nil, false
	}
	content := make([]*DictField, len(d.Content))
	for i := range d.Content {
		merged, ok := d.Content[i].Merge(od.Content[i])
		if !ok {
			return nil, false
		}
		content[i] = merged.(*DictField)
	}
	return &Dict{Lengths: d.Lengths.Add(od.Lengths), Content: content}, true
}

func (d *Dict) String() string {
	if d.Content == nil {
		return "{}"
	}
	elems := make([]string, len(d.Content))
	for i, f := range d.Content {
		elems[i] = f.String()
	}
	return joinOrWrap(elems, "{", "}")
}

// TupleField pairs a column selector (a recognized Field holding the index
// or name, or a general scalar pattern) with the pattern of the values in
// that column.
type TupleField struct {
	Index Pattern
	Value Pattern
}

func (f *TupleField) Validate(v any) bool { return f.Value.Validate(v) }

func (f *TupleField) Compare(o Pattern) bool {
	of, ok := o.(*TupleField)
	return ok &&
		f.Index.Compare(of.Index) &&
		f.Value != nil && of.Value != nil &&
		f.Value.Compare(of.Value)
}

func (f *TupleField) Merge(o Pattern) (Pattern, bool) {
	of, ok := o.(*TupleField)
	if !ok {
		return nil, false
	}
	index, ok := f.Index.Merge(of.Index)
	if !ok {
		return nil, false
	}
	value, ok := f.Value.Merge(of.Value)
	if !ok {
		return nil, false
	}
	return &TupleField{Index: index, Value: value}, true
}

func (f *TupleField) String() string {
	if field, ok := f.Index.(*Field); ok {
		if name, isName := field.Value.(string); isName {
			return fmt.Sprintf("%s=%s", name, f.Value)
		}
	}
	return fmt.Sprint(f.Value)
}

// Tuple is the pattern of a bag of heterogeneous records (or of
// equal-length sequences standing in for records).
type Tuple struct {
	Lengths Stats
	Content []*TupleField
}

func NewTuple(sample []any) *Tuple {
	return &Tuple{Lengths: StatsOfContainerLengths(sample, ContainerLen)}
}

func (t *Tuple) WithContent(content []*TupleField) *Tuple {
	return &Tuple{Lengths: t.Lengths, Content: content}
}

func (t *Tuple) Validate(v any) bool {
	switch v.(type) {
	case *Record, []any:
		return inRange(int64(ContainerLen(v)), t.Lengths.Min, t.Lengths.Max)
	}
	return false
}

func (t *Tuple) Compare(o Pattern) bool {
	ot, ok := o.(*Tuple)
	if !ok {
		return false
	}
	return compareContent(tupleFieldPatterns(t.Content), tupleFieldPatterns(ot.Content))
}

func (t *Tuple) Merge(o Pattern) (Pattern, bool) {
	ot, ok := o.(*Tuple)
	if !ok || !t.Compare(o) {
		return nil, false
	}
	if len(t.Content) != len(ot.Content) {
		return nil, false
	}
	content := make([]*TupleField, len(t.Content))
	for i := range t.Content {
		merged, ok := t.Content[i].Merge(ot.Content[i])
		if !ok {
			return nil, false
		}
		content[i] = merged.(*TupleField)
	}
	return &Tuple{Lengths: t.Lengths.Add(ot.Lengths), Content: content}, true
}

func (t *Tuple) String() string {
	if t.Content == nil {
		return "()"
	}
	elems := make([]string, len(t.Content))
	for i, f := range t.Content {
		elems[i] = f.String()
	}
	return joinOrWrap(elems, "(", ")")
}

func asPatterns(ps []Pattern) []Pattern { return ps }

func dictFieldPatterns(fs []*DictField) []Pattern {
	ps := make([]Pattern, len(fs))
	for i, f := range fs {
		ps[i] = f
	}
	return ps
}

func tupleFieldPatterns(fs []*TupleField) []Pattern {
	ps := make([]Pattern, len(fs))
	for i, f := range fs {
		ps[i] = f
	}
	return ps
}

// compareContent holds when both sides are still unanalyzed, or both are
// analyzed with pairwise-comparable entries.
func compareContent(a, b []Pattern) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Compare(b[i]) {
			return false
		}
	}
	return true
}

func mergeContent(a, b []Pattern) ([]Pattern, bool) {
	if a == nil && b == nil {
		return nil, true
	}
	if len(a) != len(b) {
		return nil, false
	}
	out := make([]Pattern, len(a))
	for i := range a {
		m, ok := a[i].Merge(b[i])
		if !ok {
			return nil, false
		}
		out[i] = m
	}
	return out, true
}
