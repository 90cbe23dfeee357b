package etl

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ── Source ──────────────────────────────────────────────────
// A Source loads a whole table from an external system.
// Implementations live in etl/sources/, one file per source type.

// OptionField describes a single option accepted in a resource reference
// (the ?key=value part).
type OptionField struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Default string `json:"default,omitempty"`
	Help    string `json:"help,omitempty"`
}

// SourceSpec describes a source type and the options it understands.
type SourceSpec struct {
	Type    ResourceKind  `json:"type"`
	Label   string        `json:"label"`
	Example string        `json:"example"`
	Options []OptionField `json:"options,omitempty"`
}

// Source is the interface every table source must implement.
type Source interface {
	// Spec returns metadata about this source type.
	Spec() SourceSpec

	// Read loads the full table. Failing to open the resource must be
	// reported wrapped in ErrResourceUnavailable.
	Read(ctx context.Context, res Resource) (*Table, error)
}

// ── Source Registry ────────────────────────────────────────
// Compile-time registration via init() in each source file.

var (
	registryMu sync.RWMutex
	registry   = map[ResourceKind]Source{}
)

// RegisterSource registers a source by its spec type.
// Called from init() in each source implementation file.
func RegisterSource(s Source) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[s.Spec().Type] = s
}

// GetSource returns a registered source by type, or an error if not found.
func GetSource(typ ResourceKind) (Source, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[typ]
	if !ok {
		return nil, fmt.Errorf("%w: no source for %q", ErrUnsupportedResource, typ)
	}
	return s, nil
}

// ListSources returns the specs of all registered sources, sorted by type.
func ListSources() []SourceSpec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	specs := make([]SourceSpec, 0, len(registry))
	for _, s := range registry {
		specs = append(specs, s.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// ReadTable resolves the source for res and loads the table. The table is
// named after the resource when the source leaves the name empty.
func ReadTable(ctx context.Context, res Resource) (*Table, error) {
	src, err := GetSource(res.Kind)
	if err != nil {
		return nil, err
	}
	t, err := src.Read(ctx, res)
	if err != nil {
		return nil, err
	}
	if t.Name == "" {
		t.Name = res.Name()
	}
	return t, nil
}
