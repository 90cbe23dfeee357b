package dbclient

import (
	"context"
	"fmt"
	"strings"
)

// QueryPage is a batch of rows fetched from a query cursor.
// A nil cell is a SQL NULL or a missing document field.
type QueryPage struct {
	Columns      []string `json:"columns"`
	Rows         [][]any  `json:"rows"`
	TotalFetched int      `json:"totalFetched"` // total rows fetched so far
	HasMore      bool     `json:"hasMore"`      // cursor has more rows
}

// WriteMode selects how WriteTable treats an existing table.
type WriteMode string

const (
	WriteReplace WriteMode = "replace"
	WriteAppend  WriteMode = "append"
)

// Connector abstracts interaction with an external database.
type Connector interface {
	// TestConnection verifies connectivity.
	TestConnection(ctx context.Context) error

	// Execute runs a read query and returns the first batch of rows.
	Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error)

	// FetchMore continues reading from the open cursor.
	FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error)

	// SelectAll returns the query Execute needs to read a whole table.
	SelectAll(table string) string

	// WriteTable stores rows under columns in table, atomically.
	// Replace drops whatever the table held before.
	WriteTable(ctx context.Context, table string, columns []string, rows [][]any, mode WriteMode) (int, error)

	// Close closes the connection and any open cursors.
	Close() error
}

// NewConnector creates a Connector for a driver and its location: a file
// path for sqlite, a URL for mysql, postgres and mongodb.
func NewConnector(driver, location string) (Connector, error) {
	switch driver {
	case "sqlite":
		return newSQLiteConnector(location)
	case "mysql":
		dsn, err := buildMySQLDSN(location)
		if err != nil {
			return nil, err
		}
		return newSQLConnector("mysql", dsn)
	case "postgres":
		dsn, err := buildPostgresDSN(location)
		if err != nil {
			return nil, err
		}
		return newSQLConnector("postgres", dsn)
	case "mongodb":
		return newMongoConnector(location)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}
}

// NewReader creates a Connector used only to read. SQLite files are opened
// query-only so reading an input never changes it on disk.
func NewReader(driver, location string) (Connector, error) {
	if driver == "sqlite" {
		return newSQLiteReader(location)
	}
	return NewConnector(driver, location)
}

// ReadAll runs query and pages through the whole result.
func ReadAll(ctx context.Context, c Connector, query string, fetchSize int) (*QueryPage, error) {
	page, err := c.Execute(ctx, query, fetchSize)
	if err != nil {
		return nil, err
	}
	all := &QueryPage{Columns: page.Columns, Rows: page.Rows, TotalFetched: page.TotalFetched}
	for page.HasMore {
		page, err = c.FetchMore(ctx, fetchSize)
		if err != nil {
			return nil, fmt.Errorf("fetch more: %w", err)
		}
		all.Rows = append(all.Rows, alignRows(all, page)...)
		all.TotalFetched = page.TotalFetched
	}
	return all, nil
}

// alignRows maps page rows onto all's columns, extending all.Columns with
// any column the page introduces. Document stores may vary per page.
func alignRows(all, page *QueryPage) [][]any {
	idx := make(map[string]int, len(all.Columns))
	for i, c := range all.Columns {
		idx[c] = i
	}
	for _, c := range page.Columns {
		if _, ok := idx[c]; !ok {
			idx[c] = len(all.Columns)
			all.Columns = append(all.Columns, c)
		}
	}
	rows := make([][]any, len(page.Rows))
	for i, r := range page.Rows {
		row := make([]any, len(all.Columns))
		for j, v := range r {
			row[idx[page.Columns[j]]] = v
		}
		rows[i] = row
	}
	return rows
}

func quoteIdent(driver, name string) string {
	if driver == "mysql" {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
