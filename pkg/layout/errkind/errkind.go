// Package errkind defines the fatal error categories shared by the layout
// replication packages.
package errkind

import (
	"errors"
	"fmt"
)

// Kind classifies a fatal replication error. A Kind is itself an error so
// it can be used as a target for errors.Is.
type Kind int

const (
	// Internal marks a broken internal invariant.
	Internal Kind = iota
	// InputDesync means schematic and layout hierarchy metadata disagree.
	InputDesync
	// FormatVersion means a snapshot was written by a newer engine.
	FormatVersion
	// LayerCount means the destination has fewer copper layers than the
	// saved layout.
	LayerCount
	// HierarchyMismatch means a level or footprint has no counterpart in
	// the destination.
	HierarchyMismatch
	// ContentDrift means the schematic fingerprint differs.
	ContentDrift
	// Cardinality means matched footprints differ in pad or text count.
	Cardinality
)

var names = map[Kind]string{
	Internal:          "internal error",
	InputDesync:       "hierarchy/layout desynchronization",
	FormatVersion:     "unsupported snapshot version",
	LayerCount:        "insufficient copper layers",
	HierarchyMismatch: "hierarchy mismatch",
	ContentDrift:      "schematic content drift",
	Cardinality:       "cardinality mismatch",
}

func (k Kind) Error() string {
	if n, ok := names[k]; ok {
		return n
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// String returns the metric label for k.
func (k Kind) String() string {
	switch k {
	case InputDesync:
		return "input_desync"
	case FormatVersion:
		return "format_version"
	case LayerCount:
		return "layer_count"
	case HierarchyMismatch:
		return "hierarchy_mismatch"
	case ContentDrift:
		return "content_drift"
	case Cardinality:
		return "cardinality"
	default:
		return "internal"
	}
}

// Error is a fatal error of a given Kind with an optional cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// New returns an *Error of the given kind with a formatted message. A
// trailing error argument matched by %w becomes the cause.
func New(kind Kind, format string, args ...any) *Error {
	wrapped := fmt.Errorf(format, args...)
	return &Error{Kind: kind, Msg: wrapped.Error(), Err: errors.Unwrap(wrapped)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches e against a Kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// Of returns the Kind of the first *Error in err's chain.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return Internal, false
}
