package destinations

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"

	"tablemerge/internal/etl"
)

type csvFileDestination struct{}

func init() { etl.RegisterDestination(&csvFileDestination{}) }

func (d *csvFileDestination) Spec() etl.DestinationSpec {
	return etl.DestinationSpec{Type: etl.KindCSV, Label: "CSV File", Example: "out/merged.csv?delimiter=;&crlf=true"}
}

func (d *csvFileDestination) Open(ctx context.Context, res etl.Resource, opts etl.WriteOptions) (etl.Sink, error) {
	delim, err := etl.ParseDelimiter(res.Option("delimiter", ","))
	if err != nil {
		return nil, err
	}
	crlf, _ := strconv.ParseBool(res.Option("crlf", "false"))

	return openFileSink(ctx, res, opts, func(w io.Writer, p *etl.Projection) error {
		cw := csv.NewWriter(w)
		cw.Comma = delim
		cw.UseCRLF = crlf
		if err := cw.Write(p.Header); err != nil {
			return err
		}
		if err := cw.WriteAll(p.Rows); err != nil {
			return err
		}
		return cw.Error()
	})
}
