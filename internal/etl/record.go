package etl

import (
	"bytes"
	"encoding/json"
)

// ── Record ─────────────────────────────────────────────────
// Common intermediate data format.
// All sources emit Tables of Records, all destinations consume Records.

// Field describes a single column in a dataset.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"` // always "text" for merged output
}

// Schema describes the shape of records handed to a destination.
type Schema struct {
	Fields []Field `json:"fields"`
}

// SchemaFromHeader builds a text-only schema from an ordered header.
func SchemaFromHeader(header []string) *Schema {
	s := &Schema{Fields: make([]Field, len(header))}
	for i, h := range header {
		s.Fields[i] = Field{Name: h, Type: "text"}
	}
	return s
}

// FieldNames returns an ordered list of field names.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Has reports whether the schema contains a field with the given name.
func (s *Schema) Has(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// Record is a single row: an ordered mapping from column name to text value.
// Columns keeps insertion order; Data holds the values.
type Record struct {
	Columns []string          `json:"-"`
	Data    map[string]string `json:"-"`
}

// NewRecord creates a record from parallel header/value slices.
// Values beyond the header are ignored; missing trailing values stay absent.
func NewRecord(header, values []string) Record {
	r := Record{
		Columns: make([]string, 0, len(header)),
		Data:    make(map[string]string, len(header)),
	}
	for i, h := range header {
		if i >= len(values) {
			break
		}
		r.Set(h, values[i])
	}
	return r
}

// Get returns the value stored under col and whether it is present.
func (r Record) Get(col string) (string, bool) {
	v, ok := r.Data[col]
	return v, ok
}

// Value returns the value under col, or "" when absent.
func (r Record) Value(col string) string {
	return r.Data[col]
}

// Has reports whether col is present in the record.
func (r Record) Has(col string) bool {
	_, ok := r.Data[col]
	return ok
}

// Set stores v under col. A new column is appended to the column order.
func (r *Record) Set(col, v string) {
	if r.Data == nil {
		r.Data = make(map[string]string)
	}
	if _, ok := r.Data[col]; !ok {
		r.Columns = append(r.Columns, col)
	}
	r.Data[col] = v
}

// Len returns the number of columns present.
func (r Record) Len() int {
	return len(r.Columns)
}

// Clone returns an independent copy. Mutating the clone never touches r.
func (r Record) Clone() Record {
	c := Record{
		Columns: make([]string, len(r.Columns)),
		Data:    make(map[string]string, len(r.Data)),
	}
	copy(c.Columns, r.Columns)
	for k, v := range r.Data {
		c.Data[k] = v
	}
	return c
}

// MarshalJSON writes the record as a JSON object in column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, col := range r.Columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(col)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(r.Data[col])
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Table is an ordered sequence of records sharing a header.
// Tables are loaded whole into memory and are not mutated after loading.
type Table struct {
	Name    string   `json:"name"`
	Header  []string `json:"header"`
	Records []Record `json:"records"`
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Header {
		if h == name {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}
