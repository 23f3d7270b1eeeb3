package analyzer

import (
	"fmt"

	"github.com/waveform80/structa/internal/pattern"
)

// column identifies one column of a record during column classification:
// its position and, for named records, its name.
type column struct {
	index int
	name  string
}

func (c column) String() string {
	if c.name != "" {
		return c.name
	}
	return fmt.Sprint(c.index)
}

// extract appends to out every value located at the end of path within it.
// Each element of path is a pattern acting as a selector; values that fail
// to validate along the way are skipped with a warning.
func (a *Analyzer) extract(it any, path []pattern.Pattern, out *[]any) error {
	if len(path) == 0 {
		*out = append(*out, it)
		return nil
	}
	head, tail := path[0], path[1:]
	switch head.(type) {
	case *pattern.Dict:
		return a.extractDict(it, tail, out)
	case *pattern.Tuple:
		return a.extractTuple(it, tail, out)
	case *pattern.List:
		items, ok := it.([]any)
		if !ok {
			a.warn(ValidationWarning{Value: it, Pattern: head})
			return nil
		}
		for _, item := range items {
			if err := a.extract(item, tail, out); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T is not a container selector", ErrInvalidPath, head)
	}
}

// extractDict extracts either the keys (empty path) or the selected values
// from the mappings in it.
func (a *Analyzer) extractDict(it any, path []pattern.Pattern, out *[]any) error {
	if !pattern.IsMap(it) {
		a.warn(ValidationWarning{Value: it, Pattern: &pattern.Dict{}})
		return nil
	}
	if len(path) == 0 {
		pattern.MapEntries(it, func(k, _ any) {
			*out = append(*out, k)
		})
		return nil
	}
	head, tail := path[0], path[1:]
	switch h := head.(type) {
	case *pattern.List, *pattern.Dict:
		return fmt.Errorf("%w: %T cannot select a mapping key", ErrInvalidPath, head)
	case *pattern.Field:
		value, present := pattern.MapGet(it, h.Value)
		if !present {
			if !h.Optional {
				a.warn(ValidationWarning{Value: h.Value, Pattern: h})
			}
			return nil
		}
		return a.extract(value, tail, out)
	case *pattern.Tuple:
		if h.Content == nil {
			// An incomplete tuple selector means the keys themselves are
			// the records being extracted.
			var err error
			pattern.MapEntries(it, func(k, _ any) {
				if err == nil {
					err = a.extract(k, append([]pattern.Pattern{head}, tail...), out)
				}
			})
			return err
		}
	}
	var err error
	pattern.MapEntries(it, func(k, v any) {
		if err != nil {
			return
		}
		if head.Validate(pattern.Normalize(k)) {
			err = a.extract(v, tail, out)
		} else {
			a.warn(ValidationWarning{Value: k, Pattern: head})
		}
	})
	return err
}

// extractTuple extracts either the column descriptors (empty path) or the
// selected column values from the records in it. Sequences standing in for
// records are treated positionally.
func (a *Analyzer) extractTuple(it any, path []pattern.Pattern, out *[]any) error {
	names, values, ok := recordColumns(it)
	if !ok {
		a.warn(ValidationWarning{Value: it, Pattern: &pattern.Tuple{}})
		return nil
	}
	if len(path) == 0 {
		for i := range values {
			name := ""
			if names != nil {
				name = names[i]
			}
			*out = append(*out, column{index: i, name: name})
		}
		return nil
	}
	head, tail := path[0], path[1:]
	switch h := head.(type) {
	case *pattern.Field:
		switch key := h.Value.(type) {
		case int64:
			if int(key) < len(values) {
				return a.extract(values[key], tail, out)
			}
			if !h.Optional {
				a.warn(ValidationWarning{Value: key, Pattern: h})
			}
			return nil
		case string:
			if names != nil {
				for i, n := range names {
					if n == key {
						return a.extract(values[i], tail, out)
					}
				}
			}
			if !h.Optional {
				a.warn(ValidationWarning{Value: key, Pattern: h})
			}
			return nil
		default:
			return fmt.Errorf("%w: field %v cannot select a column", ErrInvalidPath, h.Value)
		}
	case *pattern.Empty, *pattern.Int, *pattern.Str:
		for i, v := range values {
			var colKey any = int64(i)
			if names != nil {
				colKey = names[i]
			}
			if head.Validate(colKey) {
				if err := a.extract(v, tail, out); err != nil {
					return err
				}
			} else {
				a.warn(ValidationWarning{Value: colKey, Pattern: head})
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T cannot select a column", ErrInvalidPath, head)
	}
}

// recordColumns views a record-like value as (names, values); names is nil
// for positional access.
func recordColumns(it any) (names []string, values []any, ok bool) {
	switch r := it.(type) {
	case *pattern.Record:
		if r.Named() {
			return r.Names, r.Values, true
		}
		return nil, r.Values, true
	case []any:
		return nil, r, true
	}
	return nil, nil, false
}
