// Package conv holds the string conversions used by pattern inference:
// bool/int/float/datetime parsers that fail cleanly, a count-weighted
// conversion driver with a bounded failure budget, and exact rational
// threshold arithmetic.
package conv

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/itchyny/timefmt-go"
)

// ErrEmptySample is returned when a conversion is attempted over an empty
// multiset; converters require at least one value.
var ErrEmptySample = errors.New("conv: empty sample")

// ErrNoConversions is returned when a failure budget permitted the driver
// to reach the end of the sample without a single successful conversion.
var ErrNoConversions = errors.New("conv: zero successful conversions")

// Multiset is the subset of the counter API the conversion driver needs.
type Multiset interface {
	Items(fn func(v any, count int))
	Card() int
	Len() int
}

// Sink receives converted values with their counts.
type Sink interface {
	Add(v any, n int)
}

// TryConversion applies fn to every string in sample, accumulating the
// converted values (with their original counts) into out. If threshold is
// zero every conversion must succeed. Otherwise up to threshold
// count-weighted failures are tolerated; exceeding the budget propagates
// the conversion error. A run that stays within budget but converts
// nothing at all is also a failure.
func TryConversion(sample Multiset, fn func(string) (any, error), threshold int, out Sink) error {
	if sample.Len() == 0 {
		return ErrEmptySample
	}
	if threshold < 0 {
		return fmt.Errorf("conv: negative threshold %d", threshold)
	}
	var firstErr error
	budget := threshold
	converted := 0
	failed := false
	sample.Items(func(v any, count int) {
		if failed {
			return
		}
		s, ok := v.(string)
		if !ok {
			failed = true
			firstErr = fmt.Errorf("conv: sample contains non-string %T", v)
			return
		}
		res, err := fn(s)
		if err != nil {
			if threshold == 0 {
				failed = true
				firstErr = err
				return
			}
			budget -= count
			if budget < 0 {
				failed = true
				firstErr = err
			}
			return
		}
		out.Add(res, count)
		converted += count
	})
	if failed {
		return firstErr
	}
	if threshold > 0 && converted == 0 {
		return ErrNoConversions
	}
	return nil
}

// ParseBool converts s (trimmed and lower-cased) to a bool when it matches
// either the falseTok or trueTok token.
func ParseBool(s, falseTok, trueTok string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case falseTok:
		return false, nil
	case trueTok:
		return true, nil
	default:
		return false, fmt.Errorf("conv: not a valid bool %q", s)
	}
}

// ParseInt converts s in the given base (8, 10, or 16), accepting an
// optional sign and the conventional 0o/0x prefix for the non-decimal
// bases.
func ParseInt(s string, base int) (int64, error) {
	t := strings.TrimSpace(s)
	neg := false
	if len(t) > 0 && (t[0] == '+' || t[0] == '-') {
		neg = t[0] == '-'
		t = t[1:]
	}
	lower := strings.ToLower(t)
	switch base {
	case 8:
		t = strings.TrimPrefix(lower, "0o")
	case 16:
		t = strings.TrimPrefix(lower, "0x")
	case 10:
	default:
		return 0, fmt.Errorf("conv: unsupported integer base %d", base)
	}
	if t == "" {
		return 0, fmt.Errorf("conv: not a valid base-%d int %q", base, s)
	}
	n, err := strconv.ParseInt(t, base, 64)
	if err != nil {
		return 0, fmt.Errorf("conv: not a valid base-%d int %q", base, s)
	}
	if neg {
		n = -n
	}
	return n, nil
}

// ParseFloat converts s to a float64.
func ParseFloat(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("conv: not a valid float %q", s)
	}
	return f, nil
}

var (
	zuluSuffix  = regexp.MustCompile(`(?i)Z$`)
	colonOffset = regexp.MustCompile(`([+-]\d{2}):(\d{2})$`)
	fracDigits  = regexp.MustCompile(`\.(\d{1,6})`)
)

// ParseTime converts s under a strftime-style format. Beyond what the
// underlying parser accepts, a trailing "Z" or "+HH:MM" offset is
// recognized for %z, and the parse is verified by round-tripping so that
// calendar-invalid inputs (a February 31st) are rejected instead of being
// silently normalized.
func ParseTime(s, format string) (time.Time, error) {
	t := strings.TrimSpace(s)
	if strings.Contains(format, "%z") {
		t = zuluSuffix.ReplaceAllString(t, "+0000")
		t = colonOffset.ReplaceAllString(t, "$1$2")
	}
	parsed, err := timefmt.Parse(t, format)
	if err != nil {
		return time.Time{}, fmt.Errorf("conv: %q does not match %q: %w", s, format, err)
	}
	check := t
	if strings.Contains(format, "%f") {
		check = fracDigits.ReplaceAllStringFunc(check, func(m string) string {
			return m + strings.Repeat("0", 7-len(m))
		})
	}
	if timefmt.Format(parsed, format) != check {
		return time.Time{}, fmt.Errorf("conv: %q is not a valid instant under %q", s, format)
	}
	return parsed, nil
}

// CeilShare returns ceil(total * share) computed exactly.
func CeilShare(total int, share *big.Rat) int {
	num := new(big.Int).Mul(big.NewInt(int64(total)), share.Num())
	den := share.Denom()
	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return int(q.Int64())
}

// ShareExceeds reports count/total > share, computed exactly.
func ShareExceeds(count, total int, share *big.Rat) bool {
	// count/total > num/den  <=>  count*den > num*total
	lhs := new(big.Int).Mul(big.NewInt(int64(count)), share.Denom())
	rhs := new(big.Int).Mul(share.Num(), big.NewInt(int64(total)))
	return lhs.Cmp(rhs) > 0
}
