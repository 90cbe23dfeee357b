package sources

import (
	"context"
	"fmt"
	"os"

	"tablemerge/internal/dbclient"
	"tablemerge/internal/etl"
)

// ── Database Source ────────────────────────────────────────
// Reads a table or query result through the dbclient connectors.
// SQL NULL leaves the column absent from that record.

const fetchSize = 500

// connect opens a connector and verifies it, reporting any failure as
// etl.ErrResourceUnavailable. Swapped in tests.
var connect = func(ctx context.Context, res etl.Resource) (dbclient.Connector, error) {
	// The sqlite driver creates missing files; an input has to exist.
	if res.Driver == "sqlite" {
		if _, err := os.Stat(res.Location); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Name(), err)
		}
	}
	conn, err := dbclient.NewReader(res.Driver, res.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Name(), err)
	}
	if err := conn.TestConnection(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Name(), err)
	}
	return conn, nil
}

type databaseSource struct{}

func init() { etl.RegisterSource(&databaseSource{}) }

func (s *databaseSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:    etl.KindDatabase,
		Label:   "SQL Database",
		Example: "sqlite://data/projects.db?table=projects",
		Options: []etl.OptionField{
			{Key: "table", Label: "Table", Help: "Table to read in full"},
			{Key: "query", Label: "Query", Help: "SELECT statement, overrides table"},
		},
	}
}

func (s *databaseSource) Read(ctx context.Context, res etl.Resource) (*etl.Table, error) {
	conn, err := connect(ctx, res)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	query := res.Query
	if query == "" {
		query = conn.SelectAll(res.Table)
	}
	page, err := dbclient.ReadAll(ctx, conn, query, fetchSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", etl.ErrResourceUnavailable, res.Name(), err)
	}
	return pageToTable(res.Name(), page), nil
}

func pageToTable(name string, page *dbclient.QueryPage) *etl.Table {
	t := &etl.Table{Name: name, Header: page.Columns}
	t.Records = make([]etl.Record, 0, len(page.Rows))
	for _, row := range page.Rows {
		r := etl.Record{Columns: make([]string, 0, len(page.Columns)), Data: make(map[string]string, len(page.Columns))}
		for i, col := range page.Columns {
			if i >= len(row) || row[i] == nil {
				continue
			}
			r.Set(col, fmt.Sprint(row[i]))
		}
		t.Records = append(t.Records, r)
	}
	return t
}
