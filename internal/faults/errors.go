package faults

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind discriminates the error categories spec.md §7 enumerates.
type Kind string

const (
	// KindTopology covers an attempted split with an exhausted id pool, or
	// a split at a point not strictly interior to a leaf. Fatal.
	KindTopology Kind = "topology"
	// KindOutOfLocal covers a read of a cell outside haloPart. Recovered
	// locally via a remote proxy call.
	KindOutOfLocal Kind = "out_of_local"
	// KindOutOfLocalWrite covers a write outside origPart. For object
	// grids this auto-migrates via the transporter; for numeric grids
	// (which cannot be migrated as entities) it is fatal.
	KindOutOfLocalWrite Kind = "out_of_local_write"
	// KindUnroutable covers a transporter Migrate to a worker with no
	// known route. Fatal.
	KindUnroutable Kind = "unroutable"
	// KindTransportFault covers a collective operation failure. Fatal.
	KindTransportFault Kind = "transport_fault"
	// KindSerialization covers a pack/unpack or wire-codec failure. Fatal.
	KindSerialization Kind = "serialization"
)

// fatalKinds must abort the worker (cmd/worker stops its tick loop and
// exits non-zero on any returned error); only KindOutOfLocal is excluded
// because it is handled in-band by the caller.
var fatalKinds = map[Kind]bool{
	KindTopology:        true,
	KindOutOfLocalWrite: true,
	KindUnroutable:      true,
	KindTransportFault:  true,
	KindSerialization:   true,
}

// RuntimeError wraps an underlying cause with the Kind and coordinates
// needed to produce a worker-identifying diagnostic.
type RuntimeError struct {
	cause     error
	Kind      Kind
	Rank      int
	Partition string
	Coord     string
}

// New builds a RuntimeError of the given kind, wrapping cause with
// github.com/pkg/errors so the original stack is preserved.
func New(kind Kind, rank int, partition, coord string, cause error) *RuntimeError {
	return &RuntimeError{
		Kind:      kind,
		Rank:      rank,
		Partition: partition,
		Coord:     coord,
		cause:     errors.WithStack(cause),
	}
}

// Fatal reports whether this error must abort the worker.
func (e *RuntimeError) Fatal() bool { return fatalKinds[e.Kind] }

// Unwrap exposes the original cause for errors.Is/As.
func (e *RuntimeError) Unwrap() error { return e.cause }

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("rank=%d partition=%s coord=%s kind=%s: %v",
		e.Rank, e.Partition, e.Coord, e.Kind, e.cause)
}

// OutOfLocal is the in-band recovery signal for halofield.Field.Get: the
// requested point is outside haloPart and must be resolved via the remote
// read proxy against Owner.
type OutOfLocal struct {
	FieldIndex int
	Point      fmt.Stringer
	Owner      int
}

func (e *OutOfLocal) Error() string {
	return fmt.Sprintf("out of local: field=%d point=%v owner=%d", e.FieldIndex, e.Point, e.Owner)
}
