// Package profile holds the named merge presets selectable with --method.
//
// A profile bundles the join keys, the overlay column spec, the output
// schema and the row policies. The catalog is closed: it holds the
// built-in presets plus those loaded from a profile file at startup, and
// selecting any other name fails before any input is opened.
package profile

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"tablemerge/internal/etl"
)

// ErrUnknownProfile is returned when a name is not in the catalog.
var ErrUnknownProfile = errors.New("unknown profile")

// Name identifies a profile.
type Name string

// Built-in profiles.
const (
	UrbanWaters            Name = "urban_waters"
	UrbanWatersKeepHeaders Name = "urban_waters_keep_headers"
)

// Default is the profile used when --method is not given.
const Default = UrbanWaters

// Profile is one named merge preset.
type Profile struct {
	Name         Name                  `yaml:"name" json:"name"`
	Description  string                `yaml:"description,omitempty" json:"description,omitempty"`
	PrimaryKey   string                `yaml:"primary_key" json:"primaryKey"`
	SecondaryKey string                `yaml:"secondary_key" json:"secondaryKey"`
	Overlay      []OverlayEntry        `yaml:"overlay" json:"overlay"`
	OutputSchema []string              `yaml:"output_schema,omitempty" json:"outputSchema,omitempty"`
	OnMalformed  etl.MalformedPolicy   `yaml:"on_malformed,omitempty" json:"onMalformed,omitempty"`
	ExtraColumns etl.ExtraColumnPolicy `yaml:"extra_columns,omitempty" json:"extraColumns,omitempty"`
	BuiltIn      bool                  `yaml:"-" json:"builtIn"`
}

// MergeConfig builds the immutable merge configuration for p.
func (p Profile) MergeConfig() etl.MergeConfig {
	overlay := make([]etl.OverlayColumn, len(p.Overlay))
	for i, o := range p.Overlay {
		overlay[i] = etl.OverlayColumn(o)
	}
	var schema []string
	if len(p.OutputSchema) > 0 {
		schema = p.OutputSchema
	}
	return etl.NewMergeConfig(p.PrimaryKey, p.SecondaryKey, overlay, schema, p.OnMalformed)
}

// DerivesSchema reports whether the output header is the primary header.
func (p Profile) DerivesSchema() bool {
	return len(p.OutputSchema) == 0
}

// Validate checks p for configuration errors.
func (p Profile) Validate() error {
	var errs []error
	if p.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}
	if strings.TrimSpace(p.PrimaryKey) == "" {
		errs = append(errs, errors.New("primary_key is required"))
	}
	if strings.TrimSpace(p.SecondaryKey) == "" {
		errs = append(errs, errors.New("secondary_key is required"))
	}
	// Overlay entries apply in order; a later entry may overwrite an
	// earlier destination and an empty overlay only fans out.
	for i, o := range p.Overlay {
		if o.Source == "" || o.Dest == "" {
			errs = append(errs, fmt.Errorf("overlay[%d]: source and dest are required", i))
		}
	}
	seen := map[string]bool{}
	for _, c := range p.OutputSchema {
		if seen[c] {
			errs = append(errs, fmt.Errorf("output_schema: duplicate column %q", c))
		}
		seen[c] = true
	}
	switch p.OnMalformed {
	case "", etl.MalformedFail, etl.MalformedSkip:
	default:
		errs = append(errs, fmt.Errorf("on_malformed: %q (want fail or skip)", p.OnMalformed))
	}
	if _, err := etl.ParseExtraColumnPolicy(string(p.ExtraColumns)); err != nil {
		errs = append(errs, fmt.Errorf("extra_columns: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("profile %q: %w", p.Name, err)
	}
	return nil
}

// ── Catalog ────────────────────────────────────────────────

// Catalog is the closed set of selectable profiles.
type Catalog struct {
	profiles map[Name]Profile
}

// NewCatalog returns the built-ins plus extra. Every profile is validated;
// names must be unique, including against the built-ins.
func NewCatalog(extra ...Profile) (*Catalog, error) {
	c := &Catalog{profiles: make(map[Name]Profile)}
	for _, p := range BuiltIns() {
		c.profiles[p.Name] = p
	}
	for _, p := range extra {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		if _, dup := c.profiles[p.Name]; dup {
			return nil, fmt.Errorf("profile %q is already defined", p.Name)
		}
		p.BuiltIn = false
		c.profiles[p.Name] = p
	}
	return c, nil
}

// Lookup returns the profile called name.
func (c *Catalog) Lookup(name string) (Profile, error) {
	p, ok := c.profiles[Name(name)]
	if !ok {
		return Profile{}, fmt.Errorf("%w %q (available: %s)", ErrUnknownProfile, name, strings.Join(c.Names(), ", "))
	}
	return p, nil
}

// Names returns the catalog's profile names, sorted.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.profiles))
	for n := range c.profiles {
		names = append(names, string(n))
	}
	sort.Strings(names)
	return names
}

// List returns every profile, sorted by name.
func (c *Catalog) List() []Profile {
	out := make([]Profile, 0, len(c.profiles))
	for _, n := range c.Names() {
		out = append(out, c.profiles[Name(n)])
	}
	return out
}
