package dbclient

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"
)

// sqlConnector is the shared implementation for MySQL, Postgres, and SQLite.
type sqlConnector struct {
	driverName string
	db         *sql.DB

	mu         sync.Mutex
	activeRows *sql.Rows
	cancel     context.CancelFunc
	columns    []string
	fetched    int
}

// newSQLConnector creates a generic SQL connector.
func newSQLConnector(driverName, dsn string) (*sqlConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(10 * time.Minute)

	return &sqlConnector{driverName: driverName, db: db}, nil
}

func (c *sqlConnector) TestConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return c.db.PingContext(ctx)
}

// isReadQuery detects if a query is a read (SELECT, WITH, SHOW, DESCRIBE, EXPLAIN, PRAGMA).
func isReadQuery(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	for _, prefix := range []string{"SELECT", "WITH", "SHOW", "DESCRIBE", "EXPLAIN", "PRAGMA", "VALUES"} {
		if strings.HasPrefix(q, prefix) {
			return true
		}
	}
	return false
}

func (c *sqlConnector) SelectAll(table string) string {
	return "SELECT * FROM " + quoteIdent(c.driverName, table)
}

func (c *sqlConnector) Execute(ctx context.Context, query string, fetchSize int) (*QueryPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeCursorLocked()

	if fetchSize <= 0 {
		fetchSize = 50
	}
	if !isReadQuery(query) {
		return nil, fmt.Errorf("not a read query: %q", query)
	}

	// The cursor outlives this call, so its deadline does too.
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	rows, err := c.db.QueryContext(ctx, query)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("query: %w", err)
	}

	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		cancel()
		return nil, fmt.Errorf("columns: %w", err)
	}

	c.activeRows = rows
	c.cancel = cancel
	c.columns = cols
	c.fetched = 0

	return c.fetchBatchLocked(fetchSize)
}

func (c *sqlConnector) FetchMore(ctx context.Context, fetchSize int) (*QueryPage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.activeRows == nil {
		return nil, fmt.Errorf("no active cursor, execute a query first")
	}
	if fetchSize <= 0 {
		fetchSize = 50
	}
	return c.fetchBatchLocked(fetchSize)
}

// fetchBatchLocked reads up to fetchSize rows from the active cursor.
// Must be called while holding c.mu.
func (c *sqlConnector) fetchBatchLocked(fetchSize int) (*QueryPage, error) {
	var resultRows [][]any
	numCols := len(c.columns)

	for i := 0; i < fetchSize; i++ {
		if !c.activeRows.Next() {
			break
		}
		values := make([]any, numCols)
		ptrs := make([]any, numCols)
		for j := range values {
			ptrs[j] = &values[j]
		}
		if err := c.activeRows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		row := make([]any, numCols)
		for j, v := range values {
			row[j] = formatValue(v)
		}
		resultRows = append(resultRows, row)
	}

	c.fetched += len(resultRows)

	if err := c.activeRows.Err(); err != nil {
		c.closeCursorLocked()
		return nil, fmt.Errorf("iterate: %w", err)
	}

	hasMore := len(resultRows) == fetchSize
	if !hasMore {
		c.closeCursorLocked()
	}

	return &QueryPage{
		Columns:      c.columns,
		Rows:         resultRows,
		TotalFetched: c.fetched,
		HasMore:      hasMore,
	}, nil
}

// formatValue converts a database value to text. NULL stays nil.
func formatValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(val)
	case string:
		return val
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return fmt.Sprint(val)
	}
}

func (c *sqlConnector) placeholder(i int) string {
	if c.driverName == "postgres" {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func (c *sqlConnector) WriteTable(ctx context.Context, table string, columns []string, rows [][]any, mode WriteMode) (int, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("write %s: no columns", table)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	if mode != WriteAppend && c.driverName == "mysql" {
		return c.swapTable(ctx, table, columns, rows)
	}
	return c.writeTx(ctx, table, columns, rows, mode != WriteAppend)
}

// writeTx writes rows into table in one transaction, dropping the table
// first when replace is set.
func (c *sqlConnector) writeTx(ctx context.Context, table string, columns []string, rows [][]any, replace bool) (int, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	name := quoteIdent(c.driverName, table)
	if replace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+name); err != nil {
			return 0, fmt.Errorf("drop %s: %w", table, err)
		}
	}

	defs := make([]string, len(columns))
	cols := make([]string, len(columns))
	marks := make([]string, len(columns))
	for i, col := range columns {
		cols[i] = quoteIdent(c.driverName, col)
		defs[i] = cols[i] + " TEXT"
		marks[i] = c.placeholder(i + 1)
	}
	create := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", name, strings.Join(defs, ", "))
	if _, err := tx.ExecContext(ctx, create); err != nil {
		return 0, fmt.Errorf("create %s: %w", table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		name, strings.Join(cols, ", "), strings.Join(marks, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return 0, fmt.Errorf("insert row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

// swapTable replaces table on MySQL, where DDL commits the open
// transaction: rows go into a staging table, then RENAME TABLE swaps it in
// as one atomic statement. The target is untouched until the swap.
func (c *sqlConnector) swapTable(ctx context.Context, table string, columns []string, rows [][]any) (int, error) {
	staging := table + stagingSuffix
	n, err := c.writeTx(ctx, staging, columns, rows, true)
	if err != nil {
		c.db.ExecContext(ctx, "DROP TABLE IF EXISTS "+quoteIdent(c.driverName, staging))
		return 0, err
	}
	for _, q := range mysqlSwapStatements(table) {
		if _, err := c.db.ExecContext(ctx, q); err != nil {
			return 0, fmt.Errorf("swap %s: %w", table, err)
		}
	}
	return n, nil
}

const (
	stagingSuffix  = "__tablemerge_new"
	previousSuffix = "__tablemerge_old"
)

// mysqlSwapStatements moves the staging table of table into place.
func mysqlSwapStatements(table string) []string {
	name := quoteIdent("mysql", table)
	staging := quoteIdent("mysql", table+stagingSuffix)
	previous := quoteIdent("mysql", table+previousSuffix)
	return []string{
		"DROP TABLE IF EXISTS " + previous,
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s LIKE %s", name, staging),
		fmt.Sprintf("RENAME TABLE %s TO %s, %s TO %s", name, previous, staging, name),
		"DROP TABLE " + previous,
	}
}

func (c *sqlConnector) Close() error {
	c.mu.Lock()
	c.closeCursorLocked()
	c.mu.Unlock()
	return c.db.Close()
}

func (c *sqlConnector) closeCursorLocked() {
	if c.activeRows != nil {
		c.activeRows.Close()
		c.activeRows = nil
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}
