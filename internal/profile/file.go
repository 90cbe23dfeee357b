package profile

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk profile file.
//
//	profiles:
//	  - name: rain_gardens
//	    primary_key: ID
//	    secondary_key: PROJECT_ID
//	    overlay:
//	      - PROJECT_DATE
//	      - [Name, PROJECT_NAME_MERGED]
//	      - {source: Lat, dest: LOCATION_LATITUDE}
//	    on_malformed: skip
type File struct {
	Profiles []Profile `yaml:"profiles"`
}

// OverlayEntry is one overlay column in a profile. In YAML it is a column
// name, a [source, dest] pair or a {source, dest} mapping.
type OverlayEntry struct {
	Source string `yaml:"source" json:"source"`
	Dest   string `yaml:"dest" json:"dest"`
}

// Same returns an entry copying col under the same name.
func Same(col string) OverlayEntry {
	return OverlayEntry{Source: col, Dest: col}
}

// UnmarshalYAML accepts the three overlay entry forms.
func (o *OverlayEntry) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var col string
		if err := node.Decode(&col); err != nil {
			return err
		}
		*o = Same(col)
		return nil

	case yaml.SequenceNode:
		var pair []string
		if err := node.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: overlay pair needs [source, dest], got %d items", node.Line, len(pair))
		}
		*o = OverlayEntry{Source: pair[0], Dest: pair[1]}
		return nil

	case yaml.MappingNode:
		type plain OverlayEntry
		var p plain
		if err := node.Decode(&p); err != nil {
			return err
		}
		if p.Dest == "" {
			p.Dest = p.Source
		}
		*o = OverlayEntry(p)
		return nil

	default:
		return fmt.Errorf("line %d: expected column name, pair or mapping", node.Line)
	}
}

// MarshalYAML writes same-name entries as a bare column name.
func (o OverlayEntry) MarshalYAML() (any, error) {
	if o.Source == o.Dest {
		return o.Source, nil
	}
	return []string{o.Source, o.Dest}, nil
}

// LoadFile loads and parses a YAML profile file from the given path.
func LoadFile(path string) ([]Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses YAML profile data.
func Parse(data []byte) ([]Profile, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse profile YAML: %w", err)
	}
	return f.Profiles, nil
}

// LoadCatalog builds the catalog from the built-ins and, when path is not
// empty, the profiles in that file.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return NewCatalog()
	}
	extra, err := LoadFile(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(extra...)
}
