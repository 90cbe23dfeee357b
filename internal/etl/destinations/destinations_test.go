package destinations_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablemerge/internal/etl"
	_ "tablemerge/internal/etl/destinations"
	_ "tablemerge/internal/etl/sources"
)

var (
	header  = []string{"ID", "Name", "X"}
	records = []etl.Record{
		etl.NewRecord([]string{"ID", "Name", "X"}, []string{"1", "A", "foo"}),
		etl.NewRecord([]string{"ID", "Name"}, []string{"2", "B"}),
	}
)

func writeTable(t *testing.T, ref string, opts etl.WriteOptions) etl.Resource {
	t.Helper()
	ctx := context.Background()
	res, err := etl.ParseResource(ref)
	require.NoError(t, err)

	sink, err := etl.OpenSink(ctx, res, opts)
	require.NoError(t, err)
	n, err := sink.Write(ctx, etl.SchemaFromHeader(header), records)
	require.NoError(t, err)
	assert.Equal(t, len(records), n)
	require.NoError(t, sink.Commit())
	return res
}

func readBack(t *testing.T, res etl.Resource) *etl.Table {
	t.Helper()
	tbl, err := etl.ReadTable(context.Background(), res)
	require.NoError(t, err)
	return tbl
}

func TestCSV_CommitPublishes(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	writeTable(t, out, etl.WriteOptions{})

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ID,Name,X\n1,A,foo\n2,B,\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary file left behind")
}

func TestCSV_DelimiterOption(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.csv")
	writeTable(t, out+"?delimiter=;", etl.WriteOptions{})

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "ID;Name;X\n1;A;foo\n2;B;\n", string(data))
}

func TestFileSink_AbortLeavesTargetUntouched(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(out, []byte("old\n"), 0o644))

	ctx := context.Background()
	res, err := etl.ParseResource(out)
	require.NoError(t, err)
	sink, err := etl.OpenSink(ctx, res, etl.WriteOptions{})
	require.NoError(t, err)
	_, err = sink.Write(ctx, etl.SchemaFromHeader(header), records)
	require.NoError(t, err)
	require.NoError(t, sink.Abort())
	require.NoError(t, sink.Abort())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "old\n", string(data))
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestFileSink_ExtraColumnError(t *testing.T) {
	ctx := context.Background()
	res, err := etl.ParseResource(filepath.Join(t.TempDir(), "out.csv"))
	require.NoError(t, err)
	sink, err := etl.OpenSink(ctx, res, etl.WriteOptions{})
	require.NoError(t, err)
	defer sink.Abort()

	_, err = sink.Write(ctx, etl.SchemaFromHeader([]string{"ID"}), records)
	require.ErrorIs(t, err, etl.ErrExtraColumn)
}

func TestFileSink_UnwritableTarget(t *testing.T) {
	dir := t.TempDir()
	res, err := etl.ParseResource(filepath.Join(dir, "missing", "out.csv"))
	require.NoError(t, err)
	_, err = etl.OpenSink(context.Background(), res, etl.WriteOptions{})
	require.ErrorIs(t, err, etl.ErrResourceUnavailable)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "out.csv"), 0o755))
	res, err = etl.ParseResource(filepath.Join(dir, "out.csv"))
	require.NoError(t, err)
	_, err = etl.OpenSink(context.Background(), res, etl.WriteOptions{})
	require.ErrorIs(t, err, etl.ErrResourceUnavailable)
}

func TestJSON_KeepsHeaderOrder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.json")
	writeTable(t, out, etl.WriteOptions{})

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "[\n"+
		`  {"ID":"1","Name":"A","X":"foo"},`+"\n"+
		`  {"ID":"2","Name":"B","X":""}`+"\n"+
		"]\n", string(data))
}

func TestParquet_RoundTrip(t *testing.T) {
	res := writeTable(t, filepath.Join(t.TempDir(), "out.parquet"), etl.WriteOptions{})

	tbl := readBack(t, res)
	assert.Equal(t, header, tbl.Header)
	require.Len(t, tbl.Records, 2)
	assert.Equal(t, "foo", tbl.Records[0].Value("X"))
	assert.Equal(t, "", tbl.Records[1].Value("X"))
}

func TestMemoryURL_UploadOnCommit(t *testing.T) {
	res := writeTable(t, "mem://localhost/destinations-test/out.csv", etl.WriteOptions{})

	tbl := readBack(t, res)
	assert.Equal(t, header, tbl.Header)
	assert.Equal(t, "B", tbl.Records[1].Value("Name"))
}

func TestSQLite_ReplaceAndAppend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.db")
	ref := "sqlite://" + path + "?table=merged"

	res := writeTable(t, ref, etl.WriteOptions{})
	tbl := readBack(t, res)
	assert.Equal(t, header, tbl.Header)
	require.Len(t, tbl.Records, 2)
	assert.False(t, tbl.Records[1].Has("X"), "absent cell is stored as NULL")

	writeTable(t, ref, etl.WriteOptions{})
	assert.Len(t, readBack(t, res).Records, 2, "replace drops previous rows")

	writeTable(t, ref+"&mode=append", etl.WriteOptions{})
	assert.Len(t, readBack(t, res).Records, 4)
}

func TestDatabase_NeedsTable(t *testing.T) {
	res := etl.Resource{Kind: etl.KindDatabase, Driver: "sqlite", Location: filepath.Join(t.TempDir(), "x.db"), Query: "SELECT 1"}
	_, err := etl.OpenSink(context.Background(), res, etl.WriteOptions{})
	require.ErrorIs(t, err, etl.ErrResourceUnavailable)
}
