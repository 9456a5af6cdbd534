package collectives

import (
	"context"
	"fmt"
	"sort"
)

// Comm identifies a group of ranks that take part together in a
// collective call — the world communicator, or a rebalance
// sub-communicator scoped to one subtree's group master plus its leaves.
// The zero Comm is the world communicator: every rank participates.
//
// Comm carries no identity beyond its member set: every rank derives its
// own Comm value independently (from the same topology query, e.g.
// partition.GroupLeaves), with no coordination round to agree on an id.
// For that to rendezvous correctly, two Comm values for the same member
// set must be indistinguishable to the rendezvous point keying in
// Fabric.pointFor — hence no sequence-allocated id field here.
type Comm struct {
	level   int
	members []int // sorted ascending; nil means "every rank"
}

// Rank reports whether r is a member of c, and if so its position within
// c's member list — the index collective operations use to order
// per-member slices (send/recv blocks, gathered buffers) consistently
// across every participant.
func (c Comm) Rank(r int, size int) (idx int, ok bool) {
	if c.members == nil {
		if r < 0 || r >= size {
			return 0, false
		}
		return r, true
	}
	for i, m := range c.members {
		if m == r {
			return i, true
		}
	}
	return 0, false
}

// Members returns the communicator's participant ranks in canonical
// (ascending) order, resolving the world communicator against size.
func (c Comm) Members(size int) []int {
	if c.members != nil {
		return c.members
	}
	out := make([]int, size)
	for i := range out {
		out[i] = i
	}
	return out
}

// Size reports the communicator's member count, resolving the world
// communicator against size.
func (c Comm) Size(size int) int {
	if c.members != nil {
		return len(c.members)
	}
	return size
}

// Bus is the group-communication handle a worker holds: one rank's view
// onto the collective operations the coordination loop, halo exchange and
// transporter drive every tick. Every method blocks until every member of
// the given communicator (the world communicator, for the neighbor
// operations, which always span every worker) has made the
// matching call; ctx cancellation unblocks a caller early with ctx.Err().
type Bus interface {
	// Rank returns this handle's own rank.
	Rank() int
	// Size returns the world communicator's size.
	Size() int

	// NeighborAllToAll exchanges one scalar count per destination rank:
	// sendCounts must have length Size(), sendCounts[j] is the count this
	// rank is about to send rank j. The returned recvCounts[i] is what
	// rank i is about to send this rank — the sizing step that precedes
	// NeighborAllToAllV.
	NeighborAllToAll(ctx context.Context, sendCounts []int) (recvCounts []int, err error)

	// NeighborAllToAllV exchanges variable-length byte blocks with every
	// other rank in one round. send is this rank's outbound buffer,
	// concatenated in destination-rank order; sendCounts[j]/sendDispls[j]
	// delimit the block bound for rank j within send. recvCounts/recvDispls,
	// normally obtained from a prior NeighborAllToAll, delimit where each
	// source rank's block lands in the returned buffer.
	NeighborAllToAllV(ctx context.Context, send []byte, sendCounts, sendDispls []int,
		recvCounts, recvDispls []int) (recv []byte, err error)

	// Gather collects buf from every member of comm at root, in member
	// order. Every caller receives the assembled slice, not just root —
	// a deliberate relaxation of MPI's root-only result, convenient for
	// the in-process tests and simulator driving this Bus.
	Gather(ctx context.Context, buf []byte, root int, comm Comm) ([][]byte, error)

	// Scatter distributes bufs, supplied by root in member order, one
	// block per member. Non-root callers' bufs argument is ignored.
	Scatter(ctx context.Context, bufs [][]byte, root int, comm Comm) ([]byte, error)

	// AllReduceMin returns the minimum of v across every member of comm.
	AllReduceMin(ctx context.Context, v float64, comm Comm) (float64, error)

	// Barrier blocks until every member of comm has called it.
	Barrier(ctx context.Context, comm Comm) error

	// SubCommunicator returns a Comm scoped to members, tagged with level
	// (the tree level the rebalance group rooted at, purely informational).
	// members need not be sorted; the returned Comm canonicalizes them.
	SubCommunicator(level int, members []int) Comm
}

func sortedCopy(members []int) []int {
	out := append([]int(nil), members...)
	sort.Ints(out)
	return out
}

func containsRank(members []int, r int) bool {
	for _, m := range members {
		if m == r {
			return true
		}
	}
	return false
}

func validateCounts(label string, counts []int, want int) error {
	if len(counts) != want {
		return fmt.Errorf("collectives: %s has length %d, want %d", label, len(counts), want)
	}
	return nil
}
