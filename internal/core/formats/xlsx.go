package formats

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/enade/internal/core"
	"github.com/JonMunkholm/enade/internal/schema"
)

// XLSXSheet is the worksheet the dataset is written to.
const XLSXSheet = "ENADE"

func init() {
	core.Register(core.FormatDefinition{
		Key:       "xlsx",
		Label:     "Excel workbook",
		Extension: ".xlsx",
		WriteFile: writeXLSX,
	})
}

func writeXLSX(ctx context.Context, w io.Writer, rows []core.Evaluation) error {
	if len(rows)+1 > excelize.TotalRows {
		return fmt.Errorf("xlsx: %d rows exceed the worksheet limit of %d", len(rows), excelize.TotalRows-1)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", XLSXSheet); err != nil {
		return err
	}

	sw, err := f.NewStreamWriter(XLSXSheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(schema.OutputColumns))
	for i, c := range schema.OutputColumns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range rows {
		if i%core.ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row.Values()); err != nil {
			return err
		}
	}

	if err := sw.Flush(); err != nil {
		return err
	}
	return f.Write(w)
}
