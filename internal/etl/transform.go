package etl

import (
	"fmt"
	"strings"
)

// ── Projection ─────────────────────────────────────────────
// Projection shapes merged records into schema-ordered rows right before
// they are written. The merger never filters columns; this is where the
// writer's ExtraColumnPolicy is applied.

// Projection is the writer-side view of records under a schema.
type Projection struct {
	Header []string
	Rows   [][]string
	// Present[i][j] is false when record i had no value for Header[j].
	Present [][]bool
}

// Project lays out records under schema, applying policy to columns the
// schema does not name. Absent schema columns become "" in Rows.
func Project(schema *Schema, records []Record, policy ExtraColumnPolicy) (*Projection, error) {
	header := schema.FieldNames()
	known := make(map[string]bool, len(header))
	for _, h := range header {
		known[h] = true
	}

	var extras []string
	for i, r := range records {
		for _, c := range r.Columns {
			if known[c] {
				continue
			}
			switch policy {
			case ExtraColumnsDrop:
				continue
			case ExtraColumnsAppend:
				known[c] = true
				extras = append(extras, c)
			default:
				return nil, fmt.Errorf("%w: record %d has column %q (schema: %s)",
					ErrExtraColumn, i+1, c, strings.Join(header, ", "))
			}
		}
	}
	header = append(header, extras...)

	p := &Projection{
		Header:  header,
		Rows:    make([][]string, len(records)),
		Present: make([][]bool, len(records)),
	}
	for i, r := range records {
		row := make([]string, len(header))
		present := make([]bool, len(header))
		for j, h := range header {
			row[j], present[j] = r.Get(h)
		}
		p.Rows[i] = row
		p.Present[i] = present
	}
	return p, nil
}
