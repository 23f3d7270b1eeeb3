package tabular

import (
	"context"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/waveform80/structa/internal/pattern"
)

// ExcelLoader reads .xlsx/.xlsm workbooks, one record per data row, using
// the first row of each sheet as column names.
type ExcelLoader struct {
	cfg Config
}

func NewExcelLoader(cfg Config) *ExcelLoader { return &ExcelLoader{cfg: cfg} }

func (l *ExcelLoader) Extensions() []string { return []string{".xlsx", ".xlsm"} }

func (l *ExcelLoader) Load(ctx context.Context, absPath string) ([]any, error) {
	f, err := excelize.OpenFile(absPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []any
	limit := l.cfg.maxRows()
	for _, sheet := range f.GetSheetList() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) < 2 {
			continue
		}
		headers := rows[0]
		for _, row := range rows[1:] {
			if len(all) >= limit {
				return all, nil
			}
			names := make([]string, 0, len(row))
			values := make([]any, 0, len(row))
			for i, cell := range row {
				var name string
				if i < len(headers) && headers[i] != "" {
					name = headers[i]
				} else {
					name, _ = excelize.ColumnNumberToName(i + 1)
				}
				names = append(names, name)
				values = append(values, cellValue(cell))
			}
			if len(values) > 0 {
				all = append(all, pattern.NewNamedRecord(names, values))
			}
		}
	}
	return all, nil
}

// cellValue maps a formatted cell back to a typed scalar where the text is
// unambiguous; everything else stays a string for the matcher to infer.
func cellValue(cell string) any {
	t := strings.TrimSpace(cell)
	if t == "" {
		return ""
	}
	if i, err := strconv.ParseInt(t, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return f
	}
	return cell
}
