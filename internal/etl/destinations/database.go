package destinations

import (
	"context"
	"fmt"

	"tablemerge/internal/dbclient"
	"tablemerge/internal/etl"
)

// ── Database Destination ───────────────────────────────────
// Writes the merged table into a SQL table or Mongo collection. The
// connection is verified at Open; rows are buffered and written in one
// transaction on Commit.

// connect is swapped in tests.
var connect = func(ctx context.Context, res etl.Resource) (dbclient.Connector, error) {
	conn, err := dbclient.NewConnector(res.Driver, res.Location)
	if err != nil {
		return nil, err
	}
	if err := conn.TestConnection(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

type databaseDestination struct {
	kind  etl.ResourceKind
	label string
}

func init() {
	etl.RegisterDestination(&databaseDestination{kind: etl.KindDatabase, label: "SQL Table"})
	etl.RegisterDestination(&databaseDestination{kind: etl.KindMongo, label: "MongoDB Collection"})
}

func (d *databaseDestination) Spec() etl.DestinationSpec {
	example := "sqlite://out/merged.db?table=merged&mode=append"
	if d.kind == etl.KindMongo {
		example = "mongodb://localhost:27017/surveys?collection=merged"
	}
	return etl.DestinationSpec{Type: d.kind, Label: d.label, Example: example}
}

func (d *databaseDestination) Open(ctx context.Context, res etl.Resource, opts etl.WriteOptions) (etl.Sink, error) {
	if res.Table == "" {
		return nil, fmt.Errorf("%w: %s: output needs a table", etl.ErrResourceUnavailable, res.Raw)
	}
	if m := res.Option("mode", ""); m != "" {
		opts.Mode = etl.SyncMode(m)
	}
	if opts.Mode != etl.SyncReplace && opts.Mode != etl.SyncAppend {
		return nil, fmt.Errorf("unknown write mode %q (want replace or append)", opts.Mode)
	}

	conn, err := connect(ctx, res)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Name(), err)
	}
	return &databaseSink{ctx: ctx, res: res, conn: conn, opts: opts}, nil
}

type databaseSink struct {
	ctx     context.Context
	res     etl.Resource
	conn    dbclient.Connector
	opts    etl.WriteOptions
	columns []string
	rows    [][]any
	done    bool
}

func (s *databaseSink) Write(ctx context.Context, schema *etl.Schema, records []etl.Record) (int, error) {
	p, err := etl.Project(schema, records, s.opts.ExtraColumns)
	if err != nil {
		return 0, err
	}
	s.columns = p.Header
	s.rows = make([][]any, len(p.Rows))
	for i, row := range p.Rows {
		cells := make([]any, len(row))
		for j, v := range row {
			// Absent cells become NULL.
			if p.Present[i][j] {
				cells[j] = v
			}
		}
		s.rows[i] = cells
	}
	return len(s.rows), nil
}

func (s *databaseSink) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	defer s.conn.Close()

	mode := dbclient.WriteReplace
	if s.opts.Mode == etl.SyncAppend {
		mode = dbclient.WriteAppend
	}
	if _, err := s.conn.WriteTable(s.ctx, s.res.Table, s.columns, s.rows, mode); err != nil {
		return fmt.Errorf("write %s: %w", s.res.Name(), err)
	}
	return nil
}

func (s *databaseSink) Abort() error {
	if s.done {
		return nil
	}
	s.done = true
	return s.conn.Close()
}
