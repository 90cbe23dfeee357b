package etl

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ── Destination ────────────────────────────────────────────
// A Destination writes the merged records into a target system.
// Writing is two-phase: Open reserves the target before any merge work
// happens, Commit publishes it, Abort discards everything written so far.

// SyncMode determines how records are written to a database destination.
type SyncMode string

const (
	SyncReplace SyncMode = "replace" // drop existing rows, insert fresh
	SyncAppend  SyncMode = "append"  // add rows without deleting existing
)

// ExtraColumnPolicy decides what a destination does with record columns
// that are not part of the output schema.
type ExtraColumnPolicy string

const (
	ExtraColumnsError  ExtraColumnPolicy = "error"  // fail with ErrExtraColumn
	ExtraColumnsDrop   ExtraColumnPolicy = "drop"   // silently leave them out
	ExtraColumnsAppend ExtraColumnPolicy = "append" // add them after the schema columns
)

// ParseExtraColumnPolicy validates a policy name; "" means ExtraColumnsError.
func ParseExtraColumnPolicy(s string) (ExtraColumnPolicy, error) {
	switch p := ExtraColumnPolicy(s); p {
	case "":
		return ExtraColumnsError, nil
	case ExtraColumnsError, ExtraColumnsDrop, ExtraColumnsAppend:
		return p, nil
	default:
		return "", fmt.Errorf("unknown extra column policy %q (want error, drop or append)", s)
	}
}

// WriteOptions configures a sink.
type WriteOptions struct {
	ExtraColumns ExtraColumnPolicy
	Mode         SyncMode
}

// DestinationSpec describes a destination type.
type DestinationSpec struct {
	Type    ResourceKind `json:"type"`
	Label   string       `json:"label"`
	Example string       `json:"example"`
}

// Destination opens sinks for a resource kind.
type Destination interface {
	Spec() DestinationSpec

	// Open reserves the target. Failure must wrap ErrResourceUnavailable.
	Open(ctx context.Context, res Resource, opts WriteOptions) (Sink, error)
}

// Sink receives one batch of merged records.
type Sink interface {
	// Write writes the header and records. Nothing is visible until Commit.
	Write(ctx context.Context, schema *Schema, records []Record) (int, error)
	// Commit publishes the written output.
	Commit() error
	// Abort discards the output. Safe to call after Commit (no-op).
	Abort() error
}

var (
	destMu       sync.RWMutex
	destinations = map[ResourceKind]Destination{}
)

// RegisterDestination registers a destination by its spec type.
func RegisterDestination(d Destination) {
	destMu.Lock()
	defer destMu.Unlock()
	destinations[d.Spec().Type] = d
}

// GetDestination returns a registered destination by type.
func GetDestination(typ ResourceKind) (Destination, error) {
	destMu.RLock()
	defer destMu.RUnlock()
	d, ok := destinations[typ]
	if !ok {
		return nil, fmt.Errorf("%w: no destination for %q", ErrUnsupportedResource, typ)
	}
	return d, nil
}

// ListDestinations returns the specs of all registered destinations.
func ListDestinations() []DestinationSpec {
	destMu.RLock()
	defer destMu.RUnlock()
	specs := make([]DestinationSpec, 0, len(destinations))
	for _, d := range destinations {
		specs = append(specs, d.Spec())
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Type < specs[j].Type })
	return specs
}

// OpenSink resolves the destination for res and opens a sink on it.
func OpenSink(ctx context.Context, res Resource, opts WriteOptions) (Sink, error) {
	d, err := GetDestination(res.Kind)
	if err != nil {
		return nil, err
	}
	if opts.ExtraColumns == "" {
		opts.ExtraColumns = ExtraColumnsError
	}
	if opts.Mode == "" {
		opts.Mode = SyncReplace
	}
	return d.Open(ctx, res, opts)
}
