package pattern

import (
	"fmt"
	"testing"
	"time"

	"github.com/waveform80/structa/internal/chars"
	"github.com/waveform80/structa/internal/counter"
)

func TestIntValidate(t *testing.T) {
	p := NewInt(rangeSample(0, 99))
	if !p.Validate(int64(0)) || !p.Validate(50) || !p.Validate(int64(99)) {
		t.Fatal("in-range ints should validate")
	}
	if p.Validate(int64(100)) || p.Validate(int64(-1)) || p.Validate("50") {
		t.Fatal("out-of-range or non-int should not validate")
	}
}

func TestValidateOverOwnSample(t *testing.T) {
	sample := rangeSample(3, 17)
	p := NewInt(sample)
	sample.Items(func(v any, _ int) {
		if !p.Validate(v) {
			t.Errorf("pattern should validate its own sample member %v", v)
		}
	})
}

func TestBoolValidate(t *testing.T) {
	p := NewBool(counter.FrozenOf(true, false))
	if !p.Validate(true) || !p.Validate(int64(0)) || !p.Validate(1) {
		t.Fatal("bools and 0/1 ints should validate")
	}
	if p.Validate(int64(2)) || p.Validate("true") {
		t.Fatal("2 and strings should not validate")
	}
}

func TestNumericTowerCompareAndMerge(t *testing.T) {
	b := NewBool(counter.FrozenOf(true, false))
	i := NewInt(rangeSample(0, 9))
	f := NewFloat(counter.FrozenOf(0.5, 1.5))
	if !b.Compare(i) || !i.Compare(f) || !b.Compare(f) || !i.Compare(b) {
		t.Fatal("the numeric tower should compare in both directions")
	}
	if b.Compare(NewStr(counter.FrozenOf("x"), nil)) {
		t.Fatal("bool should not compare with str")
	}
	merged, ok := i.Merge(b)
	if !ok {
		t.Fatal("int+bool should merge")
	}
	if _, isInt := merged.(*Int); !isInt {
		t.Fatalf("int+bool should widen to Int, got %T", merged)
	}
	merged, ok = f.Merge(i)
	if !ok {
		t.Fatal("float+int should merge")
	}
	if _, isFloat := merged.(*Float); !isFloat {
		t.Fatalf("float+int should widen to Float, got %T", merged)
	}
}

func TestMergeCommutative(t *testing.T) {
	a := NewInt(rangeSample(0, 9))
	b := NewInt(rangeSample(5, 19))
	ab, ok1 := a.Merge(b)
	ba, ok2 := b.Merge(a)
	if !ok1 || !ok2 {
		t.Fatal("compatible ints should merge")
	}
	if !ab.(*Int).Values.Eq(ba.(*Int).Values) {
		t.Fatal("merge should be commutative")
	}
}

func TestMergeAssociative(t *testing.T) {
	a := NewInt(rangeSample(0, 9))
	b := NewInt(rangeSample(10, 19))
	c := NewInt(rangeSample(20, 29))
	ab, _ := a.Merge(b)
	abc1, _ := ab.Merge(c)
	bc, _ := b.Merge(c)
	abc2, _ := a.Merge(bc)
	if !abc1.(*Int).Values.Eq(abc2.(*Int).Values) {
		t.Fatal("merge should be associative")
	}
}

func TestMergeIdempotentUpToSampleAddition(t *testing.T) {
	a := NewInt(rangeSample(0, 9))
	m, ok := a.Merge(a)
	if !ok {
		t.Fatal("self-merge should succeed")
	}
	mi := m.(*Int)
	if mi.Values.Min != a.Values.Min || mi.Values.Max != a.Values.Max || mi.Values.Card != 2*a.Values.Card {
		t.Fatalf("self-merge should double the sample: %+v", mi.Values)
	}
}

func TestStrValidate(t *testing.T) {
	p := NewStr(counter.FrozenOf("abc", "defg"), nil)
	if !p.Validate("abc") || !p.Validate("wxyz") {
		t.Fatal("strings within the length band should validate")
	}
	if p.Validate("toolong") || p.Validate("") || p.Validate(42) {
		t.Fatal("length band or kind should reject")
	}
}

func TestStrTemplateValidate(t *testing.T) {
	template := []chars.Class{chars.New("m"), chars.New("o"), chars.OctDigit}
	p := NewStr(counter.FrozenOf("mo7", "mo0"), template)
	if !p.Validate("mo3") {
		t.Fatal("template match should validate")
	}
	if p.Validate("mo8") || p.Validate("xo7") {
		t.Fatal("template mismatch should not validate")
	}
}

func TestStrMergeTemplates(t *testing.T) {
	a := NewStr(counter.FrozenOf("a1"), []chars.Class{chars.New("a"), chars.New("1")})
	b := NewStr(counter.FrozenOf("b2"), []chars.Class{chars.New("b"), chars.New("2")})
	m, ok := a.Merge(b)
	if !ok {
		t.Fatal("strs should merge")
	}
	ms := m.(*Str)
	if len(ms.Pattern) != 2 || ms.Pattern[0] != chars.New("ab") || ms.Pattern[1] != chars.New("12") {
		t.Fatalf("pointwise union wrong: %v", ms.Pattern)
	}
	// Different template lengths discard the template.
	c := NewStr(counter.FrozenOf("ccc"), []chars.Class{chars.New("c"), chars.New("c"), chars.New("c")})
	m, _ = a.Merge(c)
	if m.(*Str).Pattern != nil {
		t.Fatal("length-mismatched templates should be discarded")
	}
}

func TestURLMerge(t *testing.T) {
	u1 := NewURL(counter.FrozenOf("https://example.org/"))
	u2 := NewURL(counter.FrozenOf("http://example.com/"))
	s := NewStr(counter.FrozenOf("plain text here"), nil)
	m, ok := u1.Merge(u2)
	if !ok {
		t.Fatal("urls should merge")
	}
	if _, isURL := m.(*URL); !isURL {
		t.Fatalf("url+url should stay URL, got %T", m)
	}
	m1, ok1 := u1.Merge(s)
	m2, ok2 := s.Merge(u1)
	if !ok1 || !ok2 {
		t.Fatal("url and str should merge")
	}
	if _, isStr := m1.(*Str); !isStr {
		t.Fatalf("url+str should demote to Str, got %T", m1)
	}
	if _, isStr := m2.(*Str); !isStr {
		t.Fatalf("str+url should demote to Str, got %T", m2)
	}
}

func TestURLValidate(t *testing.T) {
	u := NewURL(counter.FrozenOf("https://example.org/", "http://host/path"))
	if !u.Validate("https://example.org/") {
		t.Fatal("sampled url should validate")
	}
	if u.Validate("ftp://example.org/") {
		t.Fatal("non-http scheme should not validate")
	}
}

func TestStrReprIntRoundTrip(t *testing.T) {
	sample := counter.NewCounter()
	for n := int64(0); n < 50; n++ {
		sample.Add(fmt.Sprintf("%d", n), 1)
	}
	sr, err := IntFromStrings(sample.Freeze(), "d", 0)
	if err != nil {
		t.Fatalf("int inference failed: %v", err)
	}
	inner := sr.Inner.(*Int)
	if inner.Values.Min != int64(0) || inner.Values.Max != int64(49) {
		t.Fatalf("wrong range: %+v", inner.Values)
	}
	// Every sampled string parses under the format and validates inside.
	sample.Items(func(v any, _ int) {
		if !sr.Validate(v) {
			t.Errorf("%v should validate against its own representation", v)
		}
	})
	if sr.Validate("50") || sr.Validate("nope") {
		t.Fatal("out-of-range or garbage should not validate")
	}
}

func TestStrReprCompareMatrix(t *testing.T) {
	mk := func(p Pattern, format string) *StrRepr { return &StrRepr{Inner: p, Format: format} }
	b01 := mk(NewBool(counter.FrozenOf(true, false)), "0|1")
	bfb := mk(NewBool(counter.FrozenOf(true, false)), "false|true")
	id := mk(NewInt(rangeSample(0, 9)), "d")
	ix := mk(NewInt(rangeSample(0, 9)), "x")
	io := mk(NewInt(rangeSample(0, 7)), "o")
	ff := mk(NewFloat(counter.FrozenOf(0.5)), "f")
	dt1 := mk(NewDateTime(counter.FrozenOf(time.Unix(1000, 0))), "%Y-%m-%d")
	dt2 := mk(NewDateTime(counter.FrozenOf(time.Unix(1000, 0))), "%d/%m/%Y")

	cases := []struct {
		a, b *StrRepr
		want bool
	}{
		{b01, b01, true},
		{b01, bfb, false},
		{b01, id, true},
		{bfb, id, false},
		{b01, ff, true},
		{id, ix, true},
		{id, ff, true},
		{ix, ff, false},
		{io, ff, true},
		{dt1, dt1, true},
		{dt1, dt2, false},
		{id, dt1, false},
	}
	for _, tc := range cases {
		if got := tc.a.Compare(tc.b); got != tc.want {
			t.Errorf("Compare(%v, %v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
		if got := tc.b.Compare(tc.a); got != tc.want {
			t.Errorf("Compare(%v, %v) (reversed) = %v, want %v", tc.b, tc.a, got, tc.want)
		}
	}
}

func TestStrReprIntBaseWidening(t *testing.T) {
	o := &StrRepr{Inner: NewInt(rangeSample(0, 7)), Format: "o"}
	x := &StrRepr{Inner: NewInt(rangeSample(0, 15)), Format: "x"}
	m, ok := o.Merge(x)
	if !ok {
		t.Fatal("octal and hex int representations should merge")
	}
	if m.(*StrRepr).Format != "x" {
		t.Fatalf("widest base should win, got %q", m.(*StrRepr).Format)
	}
	m, _ = x.Merge(o)
	if m.(*StrRepr).Format != "x" {
		t.Fatalf("widening should be commutative, got %q", m.(*StrRepr).Format)
	}
}

func TestNumReprValidate(t *testing.T) {
	now := time.Now()
	sample := counter.FrozenOf(now.Add(-time.Hour), now, now.Add(time.Hour))
	nr := &NumRepr{Inner: NewDateTime(sample), Kind: NumFloat}
	if !nr.Validate(float64(now.Unix())) {
		t.Fatal("in-window timestamp should validate")
	}
	if nr.Validate(float64(now.Add(-48 * time.Hour).Unix())) {
		t.Fatal("out-of-window timestamp should not validate")
	}
	if nr.Validate("123") {
		t.Fatal("strings should not validate against a number representation")
	}
}

func TestNumReprMergeKind(t *testing.T) {
	now := time.Now()
	sample := counter.FrozenOf(now)
	a := &NumRepr{Inner: NewDateTime(sample), Kind: NumInt}
	b := &NumRepr{Inner: NewDateTime(sample), Kind: NumFloat}
	m, ok := a.Merge(b)
	if !ok {
		t.Fatal("num representations should merge")
	}
	if m.(*NumRepr).Kind != NumFloat {
		t.Fatal("float kind should win")
	}
}

func TestDateTimeFromNumbersWrapping(t *testing.T) {
	now := time.Now().Unix()
	ints := NewInt(intSample(now, now+100))
	p := DateTimeFromNumbers(ints)
	nr, ok := p.(*NumRepr)
	if !ok || nr.Kind != NumInt {
		t.Fatalf("expected NumRepr of int kind, got %T", p)
	}
	sr := &StrRepr{Inner: NewFloat(counter.FrozenOf(float64(now))), Format: "f"}
	p = DateTimeFromNumbers(sr)
	outer, ok := p.(*StrRepr)
	if !ok || outer.Format != "f" {
		t.Fatalf("string wrapper should be preserved, got %T", p)
	}
	if inner, ok := outer.Inner.(*NumRepr); !ok || inner.Kind != NumFloat {
		t.Fatalf("inner should be a float NumRepr, got %T", outer.Inner)
	}
}

func TestFieldMerge(t *testing.T) {
	a := NewField("foo", false)
	b := NewField("foo", true)
	m, ok := a.Merge(b)
	if !ok {
		t.Fatal("same-value fields should merge")
	}
	if !m.(*Field).Optional {
		t.Fatal("optionality should OR")
	}
	if _, ok := a.Merge(NewField("bar", false)); ok {
		t.Fatal("different literals should not merge")
	}
	if !a.Compare(b) {
		t.Fatal("compare should ignore optional")
	}
}

func TestFieldsCanonicalOrder(t *testing.T) {
	f := NewFields([]*Field{
		NewField("zeta", false),
		NewField("alpha", true),
		NewField("zeta", true),
	})
	if f.Len() != 2 {
		t.Fatalf("duplicate literals should fold, got %d members", f.Len())
	}
	if f.Members[0].Value != "alpha" || f.Members[1].Value != "zeta" {
		t.Fatalf("members should sort by literal: %v", f.Members)
	}
	if !f.Members[1].Optional {
		t.Fatal("folded duplicate should OR optionality")
	}
	if !f.Validate("alpha") || f.Validate("omega") {
		t.Fatal("choice validation wrong")
	}
}

func TestEmptyAndValue(t *testing.T) {
	e := &Empty{}
	v := &Value{}
	if e.Validate(nil) {
		t.Fatal("empty validates nothing")
	}
	if !v.Validate(struct{}{}) {
		t.Fatal("value validates anything")
	}
	if e.Compare(v) || v.Compare(e) {
		t.Fatal("empty and value are not equivalent")
	}
}

func TestContainerValidateLengthBand(t *testing.T) {
	l := NewList([]any{
		[]any{1, 2},
		[]any{1, 2, 3},
	})
	if !l.Validate([]any{9, 9}) || !l.Validate([]any{9, 9, 9}) {
		t.Fatal("lists inside the band should validate")
	}
	if l.Validate([]any{1}) || l.Validate([]any{1, 2, 3, 4}) || l.Validate("no") {
		t.Fatal("lists outside the band should not validate")
	}

	d := NewDict([]any{map[string]any{"a": 1}})
	if !d.Validate(map[string]any{"b": 2}) || d.Validate(map[string]any{}) {
		t.Fatal("dict length band wrong")
	}

	tp := NewTuple([]any{NewRecord(1, 2)})
	if !tp.Validate(NewRecord(8, 9)) || !tp.Validate([]any{8, 9}) {
		t.Fatal("records and lists of the right width should validate as tuples")
	}
	if tp.Validate(NewRecord(1)) {
		t.Fatal("wrong-width record should not validate")
	}
}

func TestContainerMerge(t *testing.T) {
	mkList := func(lo, hi int64) *List {
		l := NewList([]any{[]any{lo, hi}})
		return l.WithContent([]Pattern{NewInt(rangeSample(lo, hi))})
	}
	a := mkList(0, 9)
	b := mkList(10, 19)
	m, ok := a.Merge(b)
	if !ok {
		t.Fatal("compatible lists should merge")
	}
	item := m.(*List).Content[0].(*Int)
	if item.Values.Min != int64(0) || item.Values.Max != int64(19) {
		t.Fatalf("content merge wrong: %+v", item.Values)
	}
}
