package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablemerge/internal/etl"
)

func TestBuiltIns(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	assert.Equal(t, []string{"urban_waters", "urban_waters_keep_headers"}, c.Names())

	p, err := c.Lookup(string(Default))
	require.NoError(t, err)
	require.NoError(t, p.Validate())
	assert.True(t, p.BuiltIn)
	assert.Len(t, p.OutputSchema, 23)
	assert.False(t, p.DerivesSchema())

	cfg := p.MergeConfig()
	assert.Equal(t, "ID", cfg.PrimaryKey)
	assert.Equal(t, "ID", cfg.SecondaryKey)
	assert.Equal(t, etl.Rename("Name", "PROJECT_NAME_MERGED"), cfg.Overlay[0])
	assert.Equal(t, etl.SameName("LOCATION_LINK"), cfg.Overlay[5])
	assert.Equal(t, etl.MalformedFail, cfg.OnMalformed)

	keep, err := c.Lookup(string(UrbanWatersKeepHeaders))
	require.NoError(t, err)
	assert.True(t, keep.DerivesSchema())
	assert.Nil(t, keep.MergeConfig().OutputSchema)
	assert.Equal(t, etl.ExtraColumnsAppend, keep.ExtraColumns)
}

func TestBuiltIns_ReturnCopies(t *testing.T) {
	a := BuiltIns()
	a[0].OutputSchema[0] = "CHANGED"
	a[0].Overlay[0].Dest = "CHANGED"

	b := BuiltIns()
	assert.Equal(t, "PROJECT_NAME", b[0].OutputSchema[0])
	assert.Equal(t, "PROJECT_NAME_MERGED", b[0].Overlay[0].Dest)
}

func TestLookup_Unknown(t *testing.T) {
	c, err := NewCatalog()
	require.NoError(t, err)

	_, err = c.Lookup("rain")
	require.ErrorIs(t, err, ErrUnknownProfile)
	assert.Contains(t, err.Error(), `"rain"`)
	assert.Contains(t, err.Error(), "urban_waters")
}

func TestParse_OverlayForms(t *testing.T) {
	data := `
profiles:
  - name: rain_gardens
    description: rain garden registry
    primary_key: ID
    secondary_key: PROJECT_ID
    overlay:
      - PROJECT_DATE
      - [Name, PROJECT_NAME_MERGED]
      - {source: Lat, dest: LOCATION_LATITUDE}
      - {source: END_DATE}
    output_schema: [ID, PROJECT_NAME_MERGED, PROJECT_DATE]
    on_malformed: skip
    extra_columns: drop
`
	profiles, err := Parse([]byte(data))
	require.NoError(t, err)
	require.Len(t, profiles, 1)

	p := profiles[0]
	assert.Equal(t, Name("rain_gardens"), p.Name)
	assert.Equal(t, []OverlayEntry{
		Same("PROJECT_DATE"),
		{Source: "Name", Dest: "PROJECT_NAME_MERGED"},
		{Source: "Lat", Dest: "LOCATION_LATITUDE"},
		Same("END_DATE"),
	}, p.Overlay)
	assert.Equal(t, etl.MalformedSkip, p.OnMalformed)
	assert.Equal(t, etl.ExtraColumnsDrop, p.ExtraColumns)
	require.NoError(t, p.Validate())
}

func TestParse_BadPair(t *testing.T) {
	_, err := Parse([]byte("profiles:\n  - name: x\n    overlay:\n      - [a, b, c]\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlay pair")
}

func TestValidate(t *testing.T) {
	p := Profile{
		Name:        "bad",
		PrimaryKey:  "ID",
		Overlay:     []OverlayEntry{Same("A"), {Source: "B"}},
		OnMalformed: "ignore",
	}
	err := p.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "secondary_key is required")
	assert.Contains(t, msg, "overlay[1]: source and dest are required")
	assert.Contains(t, msg, "on_malformed")
}

func TestValidate_AnyOverlaySequence(t *testing.T) {
	fanOut := Profile{Name: "fan_out", PrimaryKey: "ID", SecondaryKey: "ID"}
	require.NoError(t, fanOut.Validate())

	twice := Profile{
		Name:         "twice",
		PrimaryKey:   "ID",
		SecondaryKey: "ID",
		Overlay:      []OverlayEntry{Same("A"), {Source: "B", Dest: "A"}},
	}
	require.NoError(t, twice.Validate())
	assert.Equal(t, []etl.OverlayColumn{etl.SameName("A"), etl.Rename("B", "A")}, twice.MergeConfig().Overlay)
}

func TestNewCatalog_RejectsDuplicates(t *testing.T) {
	p := BuiltIns()[0]
	_, err := NewCatalog(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already defined")
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
profiles:
  - name: parks
    primary_key: PARK_ID
    secondary_key: ID
    overlay: [ACRES]
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"parks", "urban_waters", "urban_waters_keep_headers"}, c.Names())

	p, err := c.Lookup("parks")
	require.NoError(t, err)
	assert.False(t, p.BuiltIn)
	assert.Equal(t, "PARK_ID", p.MergeConfig().PrimaryKey)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
