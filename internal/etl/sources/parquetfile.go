package sources

import (
	"bytes"
	"context"
	"fmt"

	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"tablemerge/internal/etl"
)

// ── Parquet File Source ─────────────────────────────────────
// Reads a Parquet file through Arrow. Every cell is rendered as text;
// nulls stay absent.

type parquetFileSource struct{}

func init() { etl.RegisterSource(&parquetFileSource{}) }

func (s *parquetFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:    etl.KindParquet,
		Label:   "Parquet File",
		Example: "warehouse/projects.parquet",
	}
}

func (s *parquetFileSource) Read(ctx context.Context, res etl.Resource) (*etl.Table, error) {
	data, err := fetch(ctx, res)
	if err != nil {
		return nil, err
	}
	return parseParquet(ctx, res.Name(), data)
}

func parseParquet(ctx context.Context, name string, data []byte) (*etl.Table, error) {
	mem := memory.DefaultAllocator
	tbl, err := pqarrow.ReadTable(ctx, bytes.NewReader(data),
		parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("parse parquet %s: %w", name, err)
	}
	defer tbl.Release()

	t := &etl.Table{Name: name}
	for _, f := range tbl.Schema().Fields() {
		t.Header = append(t.Header, f.Name)
	}

	tr := array.NewTableReader(tbl, 4096)
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		for row := 0; row < int(rec.NumRows()); row++ {
			r := etl.Record{Columns: make([]string, 0, len(t.Header)), Data: make(map[string]string, len(t.Header))}
			for c, h := range t.Header {
				col := rec.Column(c)
				if col.IsNull(row) {
					continue
				}
				r.Set(h, col.ValueStr(row))
			}
			t.Records = append(t.Records, r)
		}
	}
	return t, nil
}
