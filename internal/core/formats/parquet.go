package formats

import (
	"context"
	"io"

	"github.com/apache/arrow/go/v16/arrow"
	"github.com/apache/arrow/go/v16/arrow/array"
	"github.com/apache/arrow/go/v16/arrow/memory"
	"github.com/apache/arrow/go/v16/parquet"
	"github.com/apache/arrow/go/v16/parquet/compress"
	"github.com/apache/arrow/go/v16/parquet/pqarrow"

	"github.com/JonMunkholm/enade/internal/core"
	"github.com/JonMunkholm/enade/internal/schema"
)

// ParquetBatchSize is the number of rows per Arrow record batch and row group.
const ParquetBatchSize = 64 * 1024

// ArrowSchema is the Arrow schema of the consolidated dataset.
var ArrowSchema = func() *arrow.Schema {
	fields := make([]arrow.Field, len(schema.Output))
	for i, col := range schema.Output {
		fields[i] = arrow.Field{Name: col.Name, Type: arrowType(col.Kind), Nullable: col.Nullable}
	}
	return arrow.NewSchema(fields, nil)
}()

func arrowType(k schema.Kind) arrow.DataType {
	switch k {
	case schema.KindInt:
		return arrow.PrimitiveTypes.Int64
	case schema.KindFloat:
		return arrow.PrimitiveTypes.Float64
	default:
		return arrow.BinaryTypes.String
	}
}

func init() {
	core.Register(core.FormatDefinition{
		Key:       "parquet",
		Label:     "Parquet (gzip)",
		Extension: ".parquet",
		WriteFile: writeParquet,
	})
}

func writeParquet(ctx context.Context, w io.Writer, rows []core.Evaluation) error {
	props := parquet.NewWriterProperties(
		parquet.WithCompression(compress.Codecs.Gzip),
		parquet.WithMaxRowGroupLength(ParquetBatchSize),
	)
	fw, err := pqarrow.NewFileWriter(ArrowSchema, w, props, pqarrow.DefaultWriterProps())
	if err != nil {
		return err
	}

	b := array.NewRecordBuilder(memory.DefaultAllocator, ArrowSchema)
	defer b.Release()

	for start := 0; start < len(rows); start += ParquetBatchSize {
		if err := ctx.Err(); err != nil {
			fw.Close()
			return err
		}

		end := min(start+ParquetBatchSize, len(rows))
		for _, row := range rows[start:end] {
			for j, v := range row.Values() {
				appendValue(b.Field(j), v)
			}
		}

		rec := b.NewRecord()
		err := fw.Write(rec)
		rec.Release()
		if err != nil {
			fw.Close()
			return err
		}
	}

	return fw.Close()
}

func appendValue(b array.Builder, v any) {
	switch v := v.(type) {
	case nil:
		b.AppendNull()
	case int64:
		b.(*array.Int64Builder).Append(v)
	case float64:
		b.(*array.Float64Builder).Append(v)
	case string:
		b.(*array.StringBuilder).Append(v)
	}
}
