package tabular

import (
	"context"
	"log/slog"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"

	"github.com/waveform80/structa/internal/pattern"
)

// ParquetLoader reads .parquet files row by row.
type ParquetLoader struct {
	cfg Config
}

func NewParquetLoader(cfg Config) *ParquetLoader { return &ParquetLoader{cfg: cfg} }

func (l *ParquetLoader) Extensions() []string { return []string{".parquet"} }

func (l *ParquetLoader) Load(ctx context.Context, absPath string) ([]any, error) {
	slog.Debug("loading parquet file", "path", absPath)

	fr, err := local.NewLocalFileReader(absPath)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, nil, 1)
	if err != nil {
		return nil, err
	}
	defer pr.ReadStop()

	toRead := int(pr.GetNumRows())
	if limit := l.cfg.maxRows(); toRead > limit {
		toRead = limit
	}

	var rows []any
	const batchSize = 1000
	for read := 0; read < toRead; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := batchSize
		if toRead-read < n {
			n = toRead - read
		}
		batch, err := pr.ReadByNumber(n)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}
		for _, rowData := range batch {
			if row, ok := structToRecord(rowData); ok {
				rows = append(rows, row)
			}
		}
		read += len(batch)
	}
	return rows, nil
}

// structToRecord flattens one decoded parquet row (a struct or a map) into
// a named record with columns in a stable order.
func structToRecord(rowData any) (*pattern.Record, bool) {
	m, ok := rowToMap(rowData)
	if !ok || len(m) == 0 {
		return nil, false
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	values := make([]any, len(names))
	for i, name := range names {
		values[i] = pattern.Normalize(deref(m[name]))
	}
	return pattern.NewNamedRecord(names, values), true
}
