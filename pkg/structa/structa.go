// Package structa is the public face of the analyzer: embedding hosts
// import it to run structural inference without reaching into the
// internal packages.
package structa

import (
	"context"

	"github.com/waveform80/structa/internal/analyzer"
	"github.com/waveform80/structa/internal/pattern"
)

// Config carries the inference options; see DefaultConfig for the
// standard settings.
type Config = analyzer.Config

// Pattern is a node of the inferred schema tree.
type Pattern = pattern.Pattern

// Record is a heterogeneous record value, the tuple analogue in the input
// value domain.
type Record = pattern.Record

// Warning describes a value that failed to validate during analysis.
type Warning = analyzer.ValidationWarning

// Analyzer infers a structural schema for a value tree.
type Analyzer = analyzer.Analyzer

// DefaultConfig returns the standard inference options.
func DefaultConfig() Config { return analyzer.DefaultConfig() }

// New validates cfg and returns an Analyzer.
func New(cfg Config) (*Analyzer, error) { return analyzer.New(cfg) }

// Analyze infers the structure of value under the default options.
func Analyze(ctx context.Context, value any) (Pattern, error) {
	a, err := New(DefaultConfig())
	if err != nil {
		return nil, err
	}
	return a.AnalyzeContext(ctx, value)
}

// Loader is implemented by input adapters that materialize a file into
// the analyzer's value domain.
type Loader interface {
	Extensions() []string
	Load(ctx context.Context, absPath string) ([]any, error)
}

// Observer receives progress updates from a host-driven analysis loop.
type Observer interface {
	Progress(ratio float64)
}
