package etl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_FillsAbsentWithEmpty(t *testing.T) {
	recs := []Record{NewRecord([]string{"ID", "Name"}, []string{"1", "A"})}

	p, err := Project(SchemaFromHeader([]string{"Name", "X", "ID"}), recs, ExtraColumnsError)
	require.NoError(t, err)

	assert.Equal(t, []string{"Name", "X", "ID"}, p.Header)
	assert.Equal(t, [][]string{{"A", "", "1"}}, p.Rows)
	assert.Equal(t, [][]bool{{true, false, true}}, p.Present)
}

func TestProject_ExtraColumnPolicies(t *testing.T) {
	recs := []Record{
		NewRecord([]string{"ID", "X"}, []string{"1", "foo"}),
		NewRecord([]string{"ID", "Y"}, []string{"2", "bar"}),
	}
	schema := SchemaFromHeader([]string{"ID"})

	_, err := Project(schema, recs, ExtraColumnsError)
	require.ErrorIs(t, err, ErrExtraColumn)
	assert.Contains(t, err.Error(), `"X"`)

	p, err := Project(schema, recs, ExtraColumnsDrop)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID"}, p.Header)
	assert.Equal(t, [][]string{{"1"}, {"2"}}, p.Rows)

	p, err = Project(schema, recs, ExtraColumnsAppend)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "X", "Y"}, p.Header)
	assert.Equal(t, [][]string{{"1", "foo", ""}, {"2", "", "bar"}}, p.Rows)
}

func TestParseExtraColumnPolicy(t *testing.T) {
	p, err := ParseExtraColumnPolicy("")
	require.NoError(t, err)
	assert.Equal(t, ExtraColumnsError, p)

	p, err = ParseExtraColumnPolicy("append")
	require.NoError(t, err)
	assert.Equal(t, ExtraColumnsAppend, p)

	_, err = ParseExtraColumnPolicy("keep")
	require.Error(t, err)
}
