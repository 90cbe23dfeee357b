package sources

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"tablemerge/internal/etl"
)

// ── CSV File Source ─────────────────────────────────────────
// Reads a delimited text file. The first line is the header; a row shorter
// than the header leaves its trailing columns absent.

type csvFileSource struct{}

func init() { etl.RegisterSource(&csvFileSource{}) }

func (s *csvFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:    etl.KindCSV,
		Label:   "CSV File",
		Example: "data/projects.csv?delimiter=;",
		Options: []etl.OptionField{
			{Key: "delimiter", Label: "Delimiter", Default: ",", Help: "Column delimiter (tab for .tsv)"},
			{Key: "format", Label: "Format", Help: "Force the format when the extension is ambiguous"},
		},
	}
}

func (s *csvFileSource) Read(ctx context.Context, res etl.Resource) (*etl.Table, error) {
	data, err := fetch(ctx, res)
	if err != nil {
		return nil, err
	}
	delim, err := etl.ParseDelimiter(res.Option("delimiter", ","))
	if err != nil {
		return nil, err
	}
	return parseCSV(res.Name(), data, delim)
}

func parseCSV(name string, data []byte, delim rune) (*etl.Table, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	t := &etl.Table{Name: name}
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return t, nil
	}
	if err != nil {
		return nil, fmt.Errorf("parse csv %s: %w", name, err)
	}
	t.Header = header

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv %s: %w", name, err)
		}
		if len(row) > len(header) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("parse csv %s: line %d has %d fields, header has %d",
				name, line, len(row), len(header))
		}
		t.Records = append(t.Records, etl.NewRecord(header, row))
	}
	return t, nil
}
