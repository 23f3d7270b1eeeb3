package conv

import (
	"math/big"
	"testing"
	"time"

	"github.com/waveform80/structa/internal/counter"
)

func TestParseBool(t *testing.T) {
	if b, err := ParseBool(" TRUE ", "false", "true"); err != nil || !b {
		t.Fatalf("got %v %v", b, err)
	}
	if b, err := ParseBool("0", "0", "1"); err != nil || b {
		t.Fatalf("got %v %v", b, err)
	}
	if _, err := ParseBool("maybe", "no", "yes"); err == nil {
		t.Fatal("expected error for unmatched token")
	}
	// The blank token pairs treat the empty string as false.
	if b, err := ParseBool("", "", "x"); err != nil || b {
		t.Fatalf("got %v %v", b, err)
	}
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		s    string
		base int
		want int64
	}{
		{"755", 8, 493},
		{"0o17", 8, 15},
		{"42", 10, 42},
		{"-42", 10, -42},
		{"ff", 16, 255},
		{"0xFF", 16, 255},
		{"-0x10", 16, -16},
	}
	for _, tc := range cases {
		got, err := ParseInt(tc.s, tc.base)
		if err != nil || got != tc.want {
			t.Errorf("ParseInt(%q, %d) = %d, %v; want %d", tc.s, tc.base, got, err, tc.want)
		}
	}
	if _, err := ParseInt("89", 8); err == nil {
		t.Error("89 should not parse as octal")
	}
	if _, err := ParseInt("12.5", 10); err == nil {
		t.Error("12.5 should not parse as int")
	}
}

func TestParseTime(t *testing.T) {
	ts, err := ParseTime("2021-06-01 12:30:45", "%Y-%m-%d %H:%M:%S")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if ts.Year() != 2021 || ts.Month() != time.June || ts.Second() != 45 {
		t.Fatalf("wrong instant: %v", ts)
	}
	if _, err := ParseTime("2020-02-31 00:00:00", "%Y-%m-%d %H:%M:%S"); err == nil {
		t.Fatal("calendar-invalid date should not parse")
	}
	if _, err := ParseTime("not a date", "%Y-%m-%d"); err == nil {
		t.Fatal("garbage should not parse")
	}
}

func TestParseTimeOffsets(t *testing.T) {
	z, err := ParseTime("2021-06-01 12:00:00Z", "%Y-%m-%d %H:%M:%S%z")
	if err != nil {
		t.Fatalf("Z suffix: %v", err)
	}
	c, err := ParseTime("2021-06-01 12:00:00+00:00", "%Y-%m-%d %H:%M:%S%z")
	if err != nil {
		t.Fatalf("colon offset: %v", err)
	}
	if !z.Equal(c) {
		t.Fatalf("offsets disagree: %v vs %v", z, c)
	}
}

func TestTryConversionExact(t *testing.T) {
	sample := counter.FrozenOf("1", "2", "3")
	out := counter.NewCounter()
	err := TryConversion(sample, func(s string) (any, error) { return ParseInt(s, 10) }, 0, out)
	if err != nil {
		t.Fatalf("conversion failed: %v", err)
	}
	if out.Card() != 3 || out.Get(int64(2)) != 1 {
		t.Fatalf("wrong output: card=%d", out.Card())
	}
}

func TestTryConversionBudget(t *testing.T) {
	sample := counter.FrozenOf("1", "2", "oops")
	out := counter.NewCounter()
	// Budget of exactly one failure is acceptable.
	if err := TryConversion(sample, func(s string) (any, error) { return ParseInt(s, 10) }, 1, out); err != nil {
		t.Fatalf("one failure within budget should pass: %v", err)
	}
	// The same failure with no budget is not.
	out = counter.NewCounter()
	if err := TryConversion(sample, func(s string) (any, error) { return ParseInt(s, 10) }, 0, out); err == nil {
		t.Fatal("failure with zero budget should propagate")
	}
	// A failure whose count exceeds the budget is not.
	c := counter.NewCounter()
	c.Add("oops", 5)
	c.Add("1", 1)
	out = counter.NewCounter()
	if err := TryConversion(c.Freeze(), func(s string) (any, error) { return ParseInt(s, 10) }, 4, out); err == nil {
		t.Fatal("count-weighted failures should exhaust the budget")
	}
}

func TestTryConversionAllFailures(t *testing.T) {
	sample := counter.FrozenOf("x", "y")
	out := counter.NewCounter()
	err := TryConversion(sample, func(s string) (any, error) { return ParseInt(s, 10) }, 10, out)
	if err == nil {
		t.Fatal("zero successful conversions must not count as success")
	}
}

func TestTryConversionEmpty(t *testing.T) {
	out := counter.NewCounter()
	if err := TryConversion(counter.FrozenOf(), func(s string) (any, error) { return s, nil }, 0, out); err != ErrEmptySample {
		t.Fatalf("expected ErrEmptySample, got %v", err)
	}
}

func TestCeilShare(t *testing.T) {
	two := big.NewRat(2, 100)
	if got := CeilShare(1000, two); got != 20 {
		t.Errorf("ceil(1000 * 2/100) = %d, want 20", got)
	}
	if got := CeilShare(1001, two); got != 21 {
		t.Errorf("ceil(1001 * 2/100) = %d, want 21", got)
	}
	if got := CeilShare(0, two); got != 0 {
		t.Errorf("ceil(0 * 2/100) = %d, want 0", got)
	}
}

func TestShareExceeds(t *testing.T) {
	r := big.NewRat(98, 100)
	if ShareExceeds(98, 100, r) {
		t.Error("exactly the threshold must not exceed it")
	}
	if !ShareExceeds(99, 100, r) {
		t.Error("one more than the threshold must exceed it")
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("1 year 6 months")
	if err != nil || d.Years != 1 || d.Months != 6 {
		t.Fatalf("got %+v %v", d, err)
	}
	d, err = ParseDuration("90d")
	if err != nil || d.Days != 90 {
		t.Fatalf("got %+v %v", d, err)
	}
	d, err = ParseDuration("5 mins")
	if err != nil || d.Minutes != 5 {
		t.Fatalf("minutes must win over months: %+v %v", d, err)
	}
	if _, err := ParseDuration("eleventy"); err == nil {
		t.Fatal("expected error")
	}
}

func TestDurationAddTo(t *testing.T) {
	base := time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC)
	got := Duration{Months: 1}.AddTo(base)
	// AddDate normalization: Jan 31 + 1 month rolls over.
	if got.Before(base) {
		t.Fatalf("expected forward shift, got %v", got)
	}
	back := Duration{Years: 20}.SubFrom(base)
	if back.Year() != 2000 {
		t.Fatalf("expected year 2000, got %v", back)
	}
}
