package dbclient

import (
	_ "modernc.org/sqlite"
)

// newSQLiteConnector creates a connector for a SQLite file.
// Opens in WAL mode with busy timeout for concurrent access.
func newSQLiteConnector(path string) (*sqlConnector, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return newSQLConnector("sqlite", dsn)
}

// newSQLiteReader opens a SQLite file for reading only. The journal mode
// is left as the file has it and any write statement is refused.
func newSQLiteReader(path string) (*sqlConnector, error) {
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=query_only(1)"
	return newSQLConnector("sqlite", dsn)
}
