package destinations

import (
	"bytes"
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"tablemerge/internal/etl"
)

type parquetFileDestination struct{}

func init() { etl.RegisterDestination(&parquetFileDestination{}) }

func (d *parquetFileDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{Type: etl.KindParquet, Label: "Parquet File", Example: "out/merged.parquet"}
}

func (d *parquetFileDestination) Open(ctx context.Context, res etl.Resource, opts etl.WriteOptions) (etl.Sink, error) {
	return openFileSink(ctx, res, opts, encodeParquet)
}

// encodeParquet writes every column as a nullable UTF-8 string, Snappy
// compressed. Absent cells are written as "" like the text formats.
func encodeParquet(w io.Writer, p *etl.Projection) error {
	mem := memory.DefaultAllocator

	fields := make([]arrow.Field, len(p.Header))
	for i, h := range p.Header {
		fields[i] = arrow.Field{Name: h, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(mem, schema)
	defer b.Release()
	for _, row := range p.Rows {
		for j, v := range row {
			b.Field(j).(*array.StringBuilder).Append(v)
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	// The parquet writer closes its sink; keep the target open for Commit.
	var buf bytes.Buffer
	props := parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Snappy))
	fw, err := pqarrow.NewFileWriter(schema, &buf, props, pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()))
	if err != nil {
		return err
	}
	if err := fw.Write(rec); err != nil {
		fw.Close()
		return err
	}
	if err := fw.Close(); err != nil {
		return err
	}
	_, err = io.Copy(w, &buf)
	return err
}
