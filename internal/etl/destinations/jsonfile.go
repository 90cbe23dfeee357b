package destinations

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"tablemerge/internal/etl"
)

type jsonFileDestination struct{}

func init() { etl.RegisterDestination(&jsonFileDestination{}) }

func (d *jsonFileDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{Type: etl.KindJSON, Label: "JSON File", Example: "out/merged.json"}
}

func (d *jsonFileDestination) Open(ctx context.Context, res etl.Resource, opts etl.WriteOptions) (etl.Sink, error) {
	return openFileSink(ctx, res, opts, encodeJSON)
}

// encodeJSON writes an array of objects, one per line, keys in header order.
func encodeJSON(w io.Writer, p *etl.Projection) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("[")
	for i, row := range p.Rows {
		if i > 0 {
			bw.WriteString(",")
		}
		bw.WriteString("\n  ")
		b, err := json.Marshal(etl.NewRecord(p.Header, row))
		if err != nil {
			return err
		}
		bw.Write(b)
	}
	if len(p.Rows) > 0 {
		bw.WriteString("\n")
	}
	bw.WriteString("]\n")
	return bw.Flush()
}
