// Package tabular loads binary tabular formats (Parquet, Excel workbooks,
// SQLite databases) into rows of named records for analysis.
package tabular

import (
	"context"
	"path/filepath"
	"strings"
)

// Config bounds how much of a table is materialized for analysis.
type Config struct {
	// MaxRows caps the total rows read from one file, across all its sheets
	// or tables; zero or less means the default.
	MaxRows int
}

// DefaultMaxRows bounds unconfigured loads; structural inference rarely
// benefits from more rows than this.
const DefaultMaxRows = 100000

func (c Config) maxRows() int {
	if c.MaxRows <= 0 {
		return DefaultMaxRows
	}
	return c.MaxRows
}

// Loader reads one binary tabular format into the analyzer's value domain:
// a sequence of named records.
type Loader interface {
	// Extensions lists the file extensions (with leading dot) the loader
	// handles.
	Extensions() []string
	// Load reads the file at absPath and returns its rows.
	Load(ctx context.Context, absPath string) ([]any, error)
}

// Loaders returns every registered loader.
func Loaders(cfg Config) []Loader {
	return []Loader{
		NewParquetLoader(cfg),
		NewExcelLoader(cfg),
		NewSQLiteLoader(cfg),
	}
}

// ForPath returns the loader handling the extension of path, if any.
func ForPath(cfg Config, path string) (Loader, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, l := range Loaders(cfg) {
		for _, e := range l.Extensions() {
			if e == ext {
				return l, true
			}
		}
	}
	return nil, false
}
