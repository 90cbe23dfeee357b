package sources

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablemerge/internal/dbclient"
	"tablemerge/internal/etl"
)

func TestParseCSV_HeaderAndShortRows(t *testing.T) {
	data := []byte("\xef\xbb\xbfID,Name,X\n1,A,foo\n2,B\n")
	tbl, err := parseCSV("t.csv", data, ',')
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Name", "X"}, tbl.Header)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "foo", tbl.Records[0].Value("X"))
	assert.False(t, tbl.Records[1].Has("X"), "short row leaves trailing column absent")
}

func TestParseCSV_LongRowIsError(t *testing.T) {
	_, err := parseCSV("t.csv", []byte("ID\n1,extra\n"), ',')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestParseCSV_Empty(t *testing.T) {
	tbl, err := parseCSV("t.csv", nil, ',')
	require.NoError(t, err)
	assert.Empty(t, tbl.Header)
	assert.Empty(t, tbl.Records)
}

func TestParseCSV_QuotedFields(t *testing.T) {
	tbl, err := parseCSV("t.csv", []byte("ID;Name\n1;\"Elm; North\"\n"), ';')
	require.NoError(t, err)
	assert.Equal(t, "Elm; North", tbl.Records[0].Value("Name"))
}

func TestParseJSON_KeyOrderAndValues(t *testing.T) {
	data := []byte(`[
		{"ID": 1, "Name": "A", "Tags": ["x", "y"]},
		{"Name": "B", "ID": 2, "Extra": null, "Geo": {"lat": 1.5}}
	]`)
	tbl, err := parseJSON("t.json", data, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Name", "Tags", "Geo"}, tbl.Header)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, []string{"Name", "ID", "Geo"}, tbl.Records[1].Columns)
	assert.Equal(t, "1", tbl.Records[0].Value("ID"))
	assert.Equal(t, `["x","y"]`, tbl.Records[0].Value("Tags"))
	assert.Equal(t, `{"lat":1.5}`, tbl.Records[1].Value("Geo"))
	assert.False(t, tbl.Records[1].Has("Extra"))
}

func TestParseJSON_DataPath(t *testing.T) {
	data := []byte(`{"data": {"items": [{"ID": "7"}]}}`)
	tbl, err := parseJSON("t.json", data, "data.items")
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)
	assert.Equal(t, "7", tbl.Records[0].Value("ID"))

	_, err = parseJSON("t.json", data, "data.rows")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"rows" not found`)
}

func TestParseJSON_NotAnArray(t *testing.T) {
	_, err := parseJSON("t.json", []byte(`{"ID": 1}`), "")
	require.Error(t, err)
}

func TestFetch_MemoryURL(t *testing.T) {
	ctx := context.Background()
	url := "mem://localhost/sources-test/projects.csv"
	require.NoError(t, fs.Upload(ctx, url, 0o644, strings.NewReader("ID,Name\n1,A\n")))

	res, err := etl.ParseResource(url)
	require.NoError(t, err)
	tbl, err := etl.ReadTable(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, "projects.csv", tbl.Name)
	assert.Equal(t, "A", tbl.Records[0].Value("Name"))
}

func TestReadTable_MissingFileIsUnavailable(t *testing.T) {
	res, err := etl.ParseResource(filepath.Join(t.TempDir(), "missing.csv"))
	require.NoError(t, err)
	_, err = etl.ReadTable(context.Background(), res)
	require.ErrorIs(t, err, etl.ErrResourceUnavailable)
}

func TestDatabaseSource_SQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "projects.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE projects (ID INTEGER, Name TEXT, Note TEXT);
		INSERT INTO projects VALUES (1, 'A', NULL), (2, 'B', 'x');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	res, err := etl.ParseResource("sqlite://" + path + "?table=projects")
	require.NoError(t, err)
	tbl, err := etl.ReadTable(context.Background(), res)
	require.NoError(t, err)

	assert.Equal(t, []string{"ID", "Name", "Note"}, tbl.Header)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "1", tbl.Records[0].Value("ID"))
	assert.False(t, tbl.Records[0].Has("Note"), "NULL stays absent")
	assert.Equal(t, "x", tbl.Records[1].Value("Note"))
}

func TestDatabaseSource_SQLiteInputUnchanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parks.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE p (ID INTEGER, Name TEXT); INSERT INTO p VALUES (1, 'A');`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	res, err := etl.ParseResource("sqlite://" + path + "?table=p")
	require.NoError(t, err)
	tbl, err := etl.ReadTable(context.Background(), res)
	require.NoError(t, err)
	require.Len(t, tbl.Records, 1)

	for _, suffix := range []string{"-wal", "-shm"} {
		_, err := os.Stat(path + suffix)
		assert.True(t, os.IsNotExist(err), "sidecar %s created", suffix)
	}

	db, err = sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "delete", mode)
}

func TestDatabaseSource_MissingSQLiteFile(t *testing.T) {
	res, err := etl.ParseResource("sqlite://" + filepath.Join(t.TempDir(), "none.db") + "?table=t")
	require.NoError(t, err)
	_, err = etl.ReadTable(context.Background(), res)
	require.ErrorIs(t, err, etl.ErrResourceUnavailable)
}

// pagedConnector serves fixed pages, the way a document store varies its
// fields from batch to batch.
type pagedConnector struct {
	pages []*dbclient.QueryPage
	query string
}

func (c *pagedConnector) TestConnection(ctx context.Context) error { return nil }
func (c *pagedConnector) SelectAll(table string) string          { return table }
func (c *pagedConnector) Close() error                           { return nil }

func (c *pagedConnector) Execute(ctx context.Context, query string, fetchSize int) (*dbclient.QueryPage, error) {
	c.query = query
	return c.FetchMore(ctx, fetchSize)
}

func (c *pagedConnector) FetchMore(ctx context.Context, fetchSize int) (*dbclient.QueryPage, error) {
	p := c.pages[0]
	c.pages = c.pages[1:]
	return p, nil
}

func (c *pagedConnector) WriteTable(ctx context.Context, table string, columns []string, rows [][]any, mode dbclient.WriteMode) (int, error) {
	return 0, nil
}

func TestMongoSource_PagesWithDifferentFields(t *testing.T) {
	fake := &pagedConnector{pages: []*dbclient.QueryPage{
		{Columns: []string{"_id", "ID"}, Rows: [][]any{{"a1", "1"}}, HasMore: true},
		{Columns: []string{"_id", "ID", "Name"}, Rows: [][]any{{"a2", "2", "B"}, {"a3", "3", nil}}},
	}}
	orig := connect
	connect = func(ctx context.Context, res etl.Resource) (dbclient.Connector, error) { return fake, nil }
	t.Cleanup(func() { connect = orig })

	res, err := etl.ParseResource(`mongodb://localhost:27017/surveys?collection=projects&filter={"status":"active"}`)
	require.NoError(t, err)
	tbl, err := etl.ReadTable(context.Background(), res)
	require.NoError(t, err)

	assert.Contains(t, fake.query, `"collection":"projects"`)
	assert.Contains(t, fake.query, `"status":"active"`)
	assert.Equal(t, []string{"_id", "ID", "Name"}, tbl.Header)
	require.Len(t, tbl.Records, 3)
	assert.False(t, tbl.Records[0].Has("Name"))
	assert.Equal(t, "B", tbl.Records[1].Value("Name"))
	assert.False(t, tbl.Records[2].Has("Name"))
}
