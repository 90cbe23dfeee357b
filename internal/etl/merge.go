package etl

import (
	"fmt"

	"tablemerge/internal/diagnostic"
)

// ── Merger ─────────────────────────────────────────────────
// Many-to-one join: every primary record yields one output record per
// secondary match, each a copy of the primary with overlay columns applied.
// Unmatched primaries pass through; unmatched secondaries only produce notices.

// OverlayColumn copies Source from the matched secondary record into Dest
// on the primary-derived output record. Same-name entries have Source == Dest.
type OverlayColumn struct {
	Source string `json:"source" yaml:"source"`
	Dest   string `json:"dest" yaml:"dest"`
}

// SameName returns an overlay entry copying col under the same name.
func SameName(col string) OverlayColumn {
	return OverlayColumn{Source: col, Dest: col}
}

// Rename returns an overlay entry copying src into dst.
func Rename(src, dst string) OverlayColumn {
	return OverlayColumn{Source: src, Dest: dst}
}

// MalformedPolicy decides what happens when a matched secondary record lacks
// an overlay source column.
type MalformedPolicy string

const (
	MalformedFail MalformedPolicy = "fail" // abort the merge with ErrMalformedRow
	MalformedSkip MalformedPolicy = "skip" // leave the destination untouched, add a notice
)

// MergeConfig is the immutable configuration of a single merge.
// Build it with NewMergeConfig; the zero OutputSchema means "use the primary header".
type MergeConfig struct {
	PrimaryKey   string
	SecondaryKey string
	Overlay      []OverlayColumn
	OutputSchema []string
	OnMalformed  MalformedPolicy
}

// NewMergeConfig copies its slice arguments so later mutation by the caller
// cannot leak into a running merge.
func NewMergeConfig(primaryKey, secondaryKey string, overlay []OverlayColumn, outputSchema []string, onMalformed MalformedPolicy) MergeConfig {
	cfg := MergeConfig{
		PrimaryKey:   primaryKey,
		SecondaryKey: secondaryKey,
		Overlay:      append([]OverlayColumn(nil), overlay...),
		OnMalformed:  onMalformed,
	}
	if outputSchema != nil {
		cfg.OutputSchema = append([]string{}, outputSchema...)
	}
	if cfg.OnMalformed == "" {
		cfg.OnMalformed = MalformedFail
	}
	return cfg
}

// MergeStats summarises a merge.
type MergeStats struct {
	PrimaryRows        int `json:"primaryRows"`
	SecondaryRows      int `json:"secondaryRows"`
	OutputRows         int `json:"outputRows"`
	Matched            int `json:"matched"`            // primary rows with at least one match
	Unmatched          int `json:"unmatched"`          // primary rows passed through
	UnmatchedSecondary int `json:"unmatchedSecondary"` // secondary rows with no primary
	FanOut             int `json:"fanOut"`             // extra rows created by multiple matches
}

// MergeResult is the outcome of Merge.
type MergeResult struct {
	Header      []string               `json:"header"`
	Records     []Record               `json:"records"`
	Diagnostics diagnostic.Diagnostics `json:"diagnostics"`
	Stats       MergeStats             `json:"stats"`
}

// Merge joins primary and secondary on the configured key columns.
// It is a pure function of its inputs: neither table is modified.
func Merge(primary, secondary *Table, cfg MergeConfig) (*MergeResult, error) {
	if !primary.HasColumn(cfg.PrimaryKey) {
		return nil, fmt.Errorf("%w: primary table %q has no column %q", ErrMissingKeyColumn, primary.Name, cfg.PrimaryKey)
	}
	if !secondary.HasColumn(cfg.SecondaryKey) {
		return nil, fmt.Errorf("%w: secondary table %q has no column %q", ErrMissingKeyColumn, secondary.Name, cfg.SecondaryKey)
	}

	res := &MergeResult{
		Header:  cfg.OutputSchema,
		Records: make([]Record, 0, len(primary.Records)),
		Stats: MergeStats{
			PrimaryRows:   len(primary.Records),
			SecondaryRows: len(secondary.Records),
		},
	}
	if res.Header == nil {
		res.Header = append([]string{}, primary.Header...)
	}

	index := buildIndex(secondary, cfg.SecondaryKey)
	primaryKeys := make(map[string]struct{}, len(primary.Records))

	for _, p := range primary.Records {
		key := p.Value(cfg.PrimaryKey)
		primaryKeys[key] = struct{}{}

		matches := index[key]
		if len(matches) == 0 {
			res.Records = append(res.Records, p.Clone())
			res.Stats.Unmatched++
			res.Diagnostics.AddWarning(diagnostic.CodeNoMatch,
				fmt.Sprintf("no match for key value %s", key), primary.Name, key, 0)
			continue
		}

		res.Stats.Matched++
		res.Stats.FanOut += len(matches) - 1
		for _, m := range matches {
			out, err := overlay(p, m, cfg, secondary.Name, &res.Diagnostics)
			if err != nil {
				return nil, err
			}
			res.Records = append(res.Records, out)
		}
	}

	for i, s := range secondary.Records {
		key := s.Value(cfg.SecondaryKey)
		if _, ok := primaryKeys[key]; ok {
			continue
		}
		res.Stats.UnmatchedSecondary++
		res.Diagnostics.AddWarning(diagnostic.CodeUnmatchedSecondary,
			fmt.Sprintf("unmatched secondary row, key %s", key), secondary.Name, key, i+1)
	}

	res.Stats.OutputRows = len(res.Records)
	return res, nil
}

// indexedRecord remembers a secondary record's position for notices.
type indexedRecord struct {
	Record
	row int // 1-based
}

// buildIndex maps each key value to its secondary records in table order.
func buildIndex(t *Table, key string) map[string][]indexedRecord {
	index := make(map[string][]indexedRecord, len(t.Records))
	for i, r := range t.Records {
		k := r.Value(key)
		index[k] = append(index[k], indexedRecord{Record: r, row: i + 1})
	}
	return index
}

// overlay copies p and applies every overlay entry from match.
func overlay(p Record, match indexedRecord, cfg MergeConfig, table string, diags *diagnostic.Diagnostics) (Record, error) {
	out := p.Clone()
	for _, col := range cfg.Overlay {
		v, ok := match.Get(col.Source)
		if !ok {
			key := match.Value(cfg.SecondaryKey)
			if cfg.OnMalformed == MalformedSkip {
				diags.AddWarning(diagnostic.CodeMalformedRow,
					fmt.Sprintf("secondary row lacks column %q, overlay of %q skipped for key value %s", col.Source, col.Dest, key),
					table, key, match.row)
				continue
			}
			return Record{}, fmt.Errorf("%w: secondary table %q row %d (key %q) lacks overlay column %q",
				ErrMalformedRow, table, match.row, key, col.Source)
		}
		out.Set(col.Dest, v)
	}
	return out, nil
}
