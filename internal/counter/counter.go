// Package counter provides a multiset of arbitrary comparable values. The
// mutable Counter is the builder; Frozen is the immutable, hashable
// snapshot carried inside pattern statistics.
package counter

import (
	"fmt"
	"hash/fnv"
	"sort"
)

// Counter is a mutable multiset. Keys may be any runtime-comparable value;
// callers are expected to check comparability (see Hashable) before
// inserting values of unknown dynamic type.
type Counter struct {
	counts map[any]int
	total  int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{counts: make(map[any]int)}
}

// Hashable reports whether v can be used as a multiset key. Untyped nil is
// permitted.
func Hashable(v any) bool {
	if v == nil {
		return true
	}
	switch v.(type) {
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, string:
		return true
	}
	return comparableDynamic(v)
}

func comparableDynamic(v any) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[any]struct{}{v: {}}
	return true
}

// Add increments the count of v by n.
func (c *Counter) Add(v any, n int) {
	if n <= 0 {
		return
	}
	c.counts[v] += n
	c.total += n
}

// Get returns the count of v.
func (c *Counter) Get(v any) int { return c.counts[v] }

// Remove deletes v from the multiset entirely.
func (c *Counter) Remove(v any) {
	if n, ok := c.counts[v]; ok {
		c.total -= n
		delete(c.counts, v)
	}
}

// Len returns the number of distinct values.
func (c *Counter) Len() int { return len(c.counts) }

// Card returns the total count across all values.
func (c *Counter) Card() int { return c.total }

// Items calls fn for every distinct value and its count, in unspecified
// order.
func (c *Counter) Items(fn func(v any, count int)) {
	for v, n := range c.counts {
		fn(v, n)
	}
}

// Freeze returns an immutable snapshot of the multiset. The Counter may be
// reused afterwards without affecting the snapshot.
func (c *Counter) Freeze() *Frozen {
	counts := make(map[any]int, len(c.counts))
	for v, n := range c.counts {
		counts[v] = n
	}
	return &Frozen{counts: counts, total: c.total}
}

// Frozen is an immutable multiset with a stable hash. It is constructed
// through Counter.Freeze or FrozenOf and never mutated afterwards.
type Frozen struct {
	counts map[any]int
	total  int
	hash   uint64
	hashed bool
}

// FrozenOf builds a Frozen directly from a list of values, each counted
// once per occurrence.
func FrozenOf(values ...any) *Frozen {
	c := NewCounter()
	for _, v := range values {
		c.Add(v, 1)
	}
	return c.Freeze()
}

// Get returns the count of v.
func (f *Frozen) Get(v any) int { return f.counts[v] }

// Contains reports whether v occurs at least once.
func (f *Frozen) Contains(v any) bool { return f.counts[v] > 0 }

// Len returns the number of distinct values.
func (f *Frozen) Len() int { return len(f.counts) }

// Card returns the total count across all values.
func (f *Frozen) Card() int { return f.total }

// Items calls fn for every distinct value and its count, in unspecified
// order.
func (f *Frozen) Items(fn func(v any, count int)) {
	for v, n := range f.counts {
		fn(v, n)
	}
}

// Thaw returns a mutable copy.
func (f *Frozen) Thaw() *Counter {
	c := NewCounter()
	for v, n := range f.counts {
		c.Add(v, n)
	}
	return c
}

// Item is a value together with its count.
type Item struct {
	Value any
	Count int
}

// MostCommon returns the items ordered by descending count. If n > 0 the
// result is truncated to the n most common items. Ties are broken by the
// formatted value so the order is deterministic.
func (f *Frozen) MostCommon(n int) []Item {
	items := make([]Item, 0, len(f.counts))
	for v, c := range f.counts {
		items = append(items, Item{v, c})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return fmt.Sprint(items[i].Value) < fmt.Sprint(items[j].Value)
	})
	if n > 0 && n < len(items) {
		items = items[:n]
	}
	return items
}

// Add returns a new multiset with pointwise-summed counts.
func (f *Frozen) Add(o *Frozen) *Frozen {
	c := f.Thaw()
	for v, n := range o.counts {
		c.Add(v, n)
	}
	return c.Freeze()
}

// Sub returns a new multiset with o's counts removed; values whose count
// drops to zero or below disappear.
func (f *Frozen) Sub(o *Frozen) *Frozen {
	c := NewCounter()
	for v, n := range f.counts {
		if rest := n - o.counts[v]; rest > 0 {
			c.Add(v, rest)
		}
	}
	return c.Freeze()
}

// Eq reports element-and-count equality with another frozen multiset; use
// EqCounter to compare with a mutable Counter.
func (f *Frozen) Eq(o *Frozen) bool {
	if f.total != o.total || len(f.counts) != len(o.counts) {
		return false
	}
	for v, n := range f.counts {
		if o.counts[v] != n {
			return false
		}
	}
	return true
}

// EqCounter reports element-and-count equality with a mutable Counter.
func (f *Frozen) EqCounter(o *Counter) bool {
	if f.total != o.total || len(f.counts) != len(o.counts) {
		return false
	}
	for v, n := range f.counts {
		if o.counts[v] != n {
			return false
		}
	}
	return true
}

// Hash returns an order-independent digest of the multiset contents. It is
// computed lazily on first use; Frozen values must not be shared across
// goroutines before the first Hash call if that matters to the caller.
func (f *Frozen) Hash() uint64 {
	if f.hashed {
		return f.hash
	}
	var acc uint64
	for v, n := range f.counts {
		h := fnv.New64a()
		fmt.Fprintf(h, "%T/%v/%d", v, v, n)
		acc ^= h.Sum64()
	}
	f.hash = acc
	f.hashed = true
	return acc
}

func (f *Frozen) String() string {
	return fmt.Sprintf("Frozen(%d distinct, card %d)", len(f.counts), f.total)
}
