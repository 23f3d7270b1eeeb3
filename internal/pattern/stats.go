package pattern

import (
	"fmt"
	"sort"

	"github.com/waveform80/structa/internal/counter"
)

// Stats is an order-statistic summary of a sample multiset: cardinality,
// the five-number summary, and whether every member occurred exactly once.
// The quartile keys are members of the sample, chosen by cumulative count
// position.
type Stats struct {
	Sample *counter.Frozen
	Card   int
	Min    any
	Q1     any
	Q2     any
	Q3     any
	Max    any
	Unique bool
}

// StatsFromSample derives the summary from a non-empty sample in one pass
// over its keys sorted ascending.
func StatsFromSample(sample *counter.Frozen) Stats {
	if sample.Len() == 0 {
		panic("pattern: stats from empty sample")
	}
	keys := sortedKeys(sample)
	card := sample.Card()
	indexes := [4]int{0, card / 4, card / 2, 3 * card / 4}
	summary := make([]any, 0, 5)
	index := 0
	last := keys[len(keys)-1]
	for _, key := range keys {
		for index >= indexes[len(summary)] {
			summary = append(summary, key)
			if len(summary) == 4 {
				summary = append(summary, last)
				return newStats(sample, card, summary)
			}
		}
		index += sample.Get(key)
	}
	// Any quartiles not yet placed are all the maximum.
	for len(summary) < 5 {
		summary = append(summary, last)
	}
	return newStats(sample, card, summary)
}

// StatsFromLengths derives length statistics from a multiset of strings.
func StatsFromLengths(sample *counter.Frozen) Stats {
	lengths := counter.NewCounter()
	sample.Items(func(v any, count int) {
		s, ok := v.(string)
		if !ok {
			panic(fmt.Sprintf("pattern: length stats over non-string %T", v))
		}
		lengths.Add(int64(runeLen(s)), count)
	})
	return StatsFromSample(lengths.Freeze())
}

// StatsOfContainerLengths derives length statistics from a slice of
// containers (maps, sequences or records), which are not themselves
// hashable.
func StatsOfContainerLengths(values []any, lengthOf func(any) int) Stats {
	lengths := counter.NewCounter()
	for _, v := range values {
		lengths.Add(int64(lengthOf(v)), 1)
	}
	return StatsFromSample(lengths.Freeze())
}

func newStats(sample *counter.Frozen, card int, summary []any) Stats {
	unique := false
	if top := sample.MostCommon(1); len(top) > 0 {
		unique = top[0].Count == 1
	}
	return Stats{
		Sample: sample,
		Card:   card,
		Min:    summary[0],
		Q1:     summary[1],
		Q2:     summary[2],
		Q3:     summary[3],
		Max:    summary[4],
		Unique: unique,
	}
}

// Median returns the second quartile.
func (s Stats) Median() any { return s.Q2 }

// Add merges two summaries by re-deriving from the summed samples.
func (s Stats) Add(o Stats) Stats {
	return StatsFromSample(s.Sample.Add(o.Sample))
}

// Eq reports full equality of the summaries including their samples.
func (s Stats) Eq(o Stats) bool {
	return s.Card == o.Card &&
		cmpValues(s.Min, o.Min) == 0 &&
		cmpValues(s.Q1, o.Q1) == 0 &&
		cmpValues(s.Q2, o.Q2) == 0 &&
		cmpValues(s.Q3, o.Q3) == 0 &&
		cmpValues(s.Max, o.Max) == 0 &&
		s.Sample.Eq(o.Sample)
}

func sortedKeys(sample *counter.Frozen) []any {
	keys := make([]any, 0, sample.Len())
	sample.Items(func(v any, _ int) {
		keys = append(keys, v)
	})
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}
