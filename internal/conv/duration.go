package conv

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Duration is a calendar-aware span parsed from a human-readable string
// like "1 year 6 months" or "90d". Unlike time.Duration it keeps months
// and years symbolic so they can be applied to a reference instant.
type Duration struct {
	Microseconds int
	Seconds      int
	Minutes      int
	Hours        int
	Days         int
	Weeks        int
	Months       int
	Years        int
}

// The minutes suffix must be checked before the months suffix as one is a
// legitimate subset of the other.
var spanPatterns = []struct {
	span  string
	regex *regexp.Regexp
}{
	{"microseconds", spanRegexp(`m(icro)?s(ec(ond)?s?)?`)},
	{"seconds", spanRegexp(`s(ec(ond)?s?)?`)},
	{"minutes", spanRegexp(`mi(n(ute)?s?)?`)},
	{"hours", spanRegexp(`h((ou)?rs?)?`)},
	{"days", spanRegexp(`d(ays?)?`)},
	{"weeks", spanRegexp(`w(eeks?)?`)},
	{"months", spanRegexp(`m(on(th)?s?)?`)},
	{"years", spanRegexp(`y((ea)?rs?)?`)},
}

func spanRegexp(suffix string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:(?P<num>[+-]?\d+)\s*` + suffix + `\b)`)
}

// ParseDuration parses a sequence of "<number> <unit>" spans. Units may be
// abbreviated ("m" is months, "mi" minutes, "ms" microseconds, the others a
// single letter) and repeated spans accumulate.
func ParseDuration(s string) (Duration, error) {
	var d Duration
	t := s
	for {
		t = strings.TrimLeft(t, " \t\n,")
		if t == "" {
			return d, nil
		}
		matched := false
		for _, sp := range spanPatterns {
			m := sp.regex.FindStringSubmatch(t)
			if m == nil {
				continue
			}
			n, err := strconv.Atoi(m[1])
			if err != nil {
				return Duration{}, fmt.Errorf("conv: invalid duration %q", s)
			}
			switch sp.span {
			case "microseconds":
				d.Microseconds += n
			case "seconds":
				d.Seconds += n
			case "minutes":
				d.Minutes += n
			case "hours":
				d.Hours += n
			case "days":
				d.Days += n
			case "weeks":
				d.Weeks += n
			case "months":
				d.Months += n
			case "years":
				d.Years += n
			}
			t = t[len(m[0]):]
			matched = true
			break
		}
		if !matched {
			return Duration{}, fmt.Errorf("conv: invalid duration %q", s)
		}
	}
}

// IsZero reports whether every span is zero.
func (d Duration) IsZero() bool { return d == Duration{} }

// AddTo applies the duration to t; months and years shift the calendar
// date, the remaining spans are absolute offsets.
func (d Duration) AddTo(t time.Time) time.Time {
	t = t.AddDate(d.Years, d.Months, d.Days+7*d.Weeks)
	return t.Add(time.Duration(d.Hours)*time.Hour +
		time.Duration(d.Minutes)*time.Minute +
		time.Duration(d.Seconds)*time.Second +
		time.Duration(d.Microseconds)*time.Microsecond)
}

// SubFrom applies the negated duration to t.
func (d Duration) SubFrom(t time.Time) time.Time {
	neg := Duration{
		Microseconds: -d.Microseconds,
		Seconds:      -d.Seconds,
		Minutes:      -d.Minutes,
		Hours:        -d.Hours,
		Days:         -d.Days,
		Weeks:        -d.Weeks,
		Months:       -d.Months,
		Years:        -d.Years,
	}
	return neg.AddTo(t)
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseTimestamp parses an absolute instant in one of the accepted layouts
// (RFC 3339 or the common date/date-time forms).
func ParseTimestamp(s string) (time.Time, error) {
	t := strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, t, time.Local); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("conv: invalid timestamp %q", s)
}
