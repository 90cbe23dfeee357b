package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"tablemerge/internal/etl"
)

// ── JSON File Source ────────────────────────────────────────
// Reads an array of objects. Key order of the objects is kept: the header
// is every key in first-seen order. Scalars become text, null stays absent,
// nested values are kept as compact JSON.

type jsonFileSource struct{}

func init() { etl.RegisterSource(&jsonFileSource{}) }

func (s *jsonFileSource) Spec() etl.SourceSpec {
	return etl.SourceSpec{
		Type:    etl.KindJSON,
		Label:   "JSON File",
		Example: "export.json?data_path=data.items",
		Options: []etl.OptionField{
			{Key: "data_path", Label: "Data Path", Help: "Dot-separated path to the array (e.g. data.items). Empty when the root is an array."},
		},
	}
}

func (s *jsonFileSource) Read(ctx context.Context, res etl.Resource) (*etl.Table, error) {
	data, err := fetch(ctx, res)
	if err != nil {
		return nil, err
	}
	return parseJSON(res.Name(), data, res.Option("data_path", ""))
}

func parseJSON(name string, data []byte, dataPath string) (*etl.Table, error) {
	raw := json.RawMessage(data)
	if dataPath != "" {
		for _, part := range strings.Split(dataPath, ".") {
			var obj map[string]json.RawMessage
			if err := json.Unmarshal(raw, &obj); err != nil {
				return nil, fmt.Errorf("parse json %s: data path %q: %w", name, dataPath, err)
			}
			next, ok := obj[part]
			if !ok {
				return nil, fmt.Errorf("parse json %s: invalid data path: %q not found", name, part)
			}
			raw = next
		}
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("parse json %s: expected an array of objects: %w", name, err)
	}

	t := &etl.Table{Name: name}
	seen := make(map[string]bool)
	for i, item := range items {
		rec, err := decodeObject(item)
		if err != nil {
			return nil, fmt.Errorf("parse json %s: item %d: %w", name, i+1, err)
		}
		for _, c := range rec.Columns {
			if !seen[c] {
				seen[c] = true
				t.Header = append(t.Header, c)
			}
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// decodeObject reads one JSON object keeping its key order.
func decodeObject(raw json.RawMessage) (etl.Record, error) {
	rec := etl.Record{Data: map[string]string{}}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return rec, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return rec, fmt.Errorf("expected an object")
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return rec, err
		}
		key := tok.(string)

		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return rec, err
		}
		text, ok, err := jsonText(v)
		if err != nil {
			return rec, fmt.Errorf("key %q: %w", key, err)
		}
		if ok {
			rec.Set(key, text)
		}
	}
	return rec, nil
}

// jsonText renders a JSON value as cell text; ok is false for null.
func jsonText(v json.RawMessage) (string, bool, error) {
	v = bytes.TrimSpace(v)
	switch {
	case len(v) == 0 || bytes.Equal(v, []byte("null")):
		return "", false, nil
	case v[0] == '"':
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return "", false, err
		}
		return s, true, nil
	case v[0] == '{' || v[0] == '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, v); err != nil {
			return "", false, err
		}
		return buf.String(), true, nil
	default:
		return string(v), true, nil
	}
}
