package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablemerge/internal/profile"
)

type fixture struct {
	dir    string
	config string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{
		dir:    dir,
		config: filepath.Join(dir, "config.toml"),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
	f.write(t, "config.toml", `
state_dir = "`+filepath.ToSlash(filepath.Join(dir, "state"))+`"
profiles_file = "`+filepath.ToSlash(filepath.Join(dir, "profiles.yaml"))+`"
log_level = "warn"
`)
	f.write(t, "profiles.yaml", `
profiles:
  - name: parks
    primary_key: PARK_ID
    secondary_key: ID
    overlay: [ACRES, [Label, PARK_LABEL]]
    output_schema: [PARK_ID, NAME, ACRES, PARK_LABEL]
`)
	f.write(t, "one.csv", "PARK_ID,NAME\n1,Elm\n2,Oak\n3,Ash\n")
	f.write(t, "many.csv", "ID,ACRES,Label\n1,4.5,north\n1,2.0,south\n9,1.0,lost\n")
	return f
}

func (f *fixture) write(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(f.dir, name), []byte(content), 0o644))
}

func (f *fixture) path(name string) string {
	return filepath.Join(f.dir, name)
}

func (f *fixture) run(args ...string) error {
	root := New("test")
	root.Writer = f.stdout
	root.ErrWriter = f.stderr
	f.stdout.Reset()
	argv := append([]string{"tablemerge", "--config", f.config}, args...)
	return root.Run(context.Background(), argv)
}

func TestMerge_WritesOutput(t *testing.T) {
	f := newFixture(t)

	err := f.run("merge", "-m", "parks", f.path("one.csv"), f.path("many.csv"), f.path("out.csv"))
	require.NoError(t, err)

	data, err := os.ReadFile(f.path("out.csv"))
	require.NoError(t, err)
	assert.Equal(t, "PARK_ID,NAME,ACRES,PARK_LABEL\n"+
		"1,Elm,4.5,north\n"+
		"1,Elm,2.0,south\n"+
		"2,Oak,,\n"+
		"3,Ash,,\n", string(data))

	assert.Contains(t, f.stdout.String(), "wrote 4 rows to out.csv")
	assert.Contains(t, f.stdout.String(), "no-match x2, unmatched-secondary x1")
}

func TestMerge_ArgumentCount(t *testing.T) {
	f := newFixture(t)
	err := f.run("merge", f.path("one.csv"), f.path("many.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 3 argument(s)")
}

func TestMerge_UnknownProfileWritesNothing(t *testing.T) {
	f := newFixture(t)
	err := f.run("merge", "--method", "nope", f.path("one.csv"), f.path("many.csv"), f.path("out.csv"))
	require.ErrorIs(t, err, profile.ErrUnknownProfile)

	_, statErr := os.Stat(f.path("out.csv"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(f.path("state"))
	assert.True(t, os.IsNotExist(statErr), "state dir created for a rejected profile")
}

func TestMerge_WatchAndScheduleExclusive(t *testing.T) {
	f := newFixture(t)
	err := f.run("merge", "--watch", "--schedule", "@hourly", f.path("one.csv"), f.path("many.csv"), f.path("out.csv"))
	require.Error(t, err)
}

func TestHistory_ListsRuns(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("merge", "-m", "parks", "--id", "parks-job", f.path("one.csv"), f.path("many.csv"), f.path("out.csv")))

	require.NoError(t, f.run("history", "--job", "parks-job"))
	out := f.stdout.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "success")
	assert.Contains(t, out, "parks")
}

func TestProfiles_ListAndShow(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.run("profiles"))
	assert.Contains(t, f.stdout.String(), "urban_waters (default)")
	assert.Contains(t, f.stdout.String(), "PARK_ID=ID")

	require.NoError(t, f.run("profiles", "urban_waters"))
	assert.Contains(t, f.stdout.String(), "PROJECT_NAME_MERGED")
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.run("preview", "-n", "1", f.path("many.csv")))
	lines := bytes.Split(bytes.TrimSpace(f.stdout.Bytes()), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[1]), "north")
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "a x2, b x1", summarize([]string{"a", "b", "a"}))
	assert.Equal(t, "", summarize(nil))
}
