package formats

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/JonMunkholm/enade/internal/core"
	"github.com/JonMunkholm/enade/internal/schema"
)

// CSV layout of the consolidated dataset.
const (
	CSVSeparator = ';'
	CSVDecimal   = ","
)

func init() {
	core.Register(core.FormatDefinition{
		Key:       "csv",
		Label:     "CSV (; separated, decimal comma)",
		Extension: ".csv",
		WriteFile: writeCSV,
	})
}

func writeCSV(ctx context.Context, w io.Writer, rows []core.Evaluation) error {
	cw := csv.NewWriter(w)
	cw.Comma = CSVSeparator

	if err := cw.Write(schema.OutputColumns); err != nil {
		return err
	}

	record := make([]string, len(schema.OutputColumns))
	for i, row := range rows {
		if i%core.ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		for j, v := range row.Values() {
			record[j] = FormatValue(v)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatValue renders one value of core.Evaluation.Values as CSV text.
// Missing values are empty and scores use a decimal comma.
func FormatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strings.Replace(strconv.FormatFloat(v, 'f', -1, 64), ".", CSVDecimal, 1)
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// ReadCSV reads a dataset written by the csv format back into its header
// and rows.
func ReadCSV(r io.Reader) (header []string, rows [][]string, err error) {
	cr := csv.NewReader(r)
	cr.Comma = CSVSeparator

	header, err = cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	rows, err = cr.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	return header, rows, nil
}
