// Package partition implements the quadtree (generalized to 2^D-ary trees)
// that maintains the runtime's recursive rectangular decomposition of the
// world and supports online rebalancing.
//
// # Overview
//
// Every leaf of the tree owns a rectangle and, for leaves, a worker id —
// the node's own id doubles as the rank of the worker that owns it, so
// assignment is implicit in the tree shape rather than a separate mapping
// (ranks for internal, non-leaf nodes exist only to name group
// communicators during rebalance; they never own work).
//
//	                    root (level 0)
//	                   /    |    \    \
//	              NW(id1) NE(id2) SW(id3) SE(id4)     <- 2^D children
//	               /  |  \  \
//	           (split again...)
//
// An id pool (availIds) bounds how many leaves the tree can ever have at
// once; Split draws fresh ids from it, Merge returns them. The pool is
// sized at construction so the leaf count stays congruent to 1 modulo
// 2^D-1 — the only leaf counts reachable by repeated binary-ish splitting
// from a single root.
//
// # Rebalance callbacks
//
// Clients that cache partition-derived state (halofield.Field, transport.
// Transporter) register a pre-commit and a post-commit callback. Every
// topology mutation (Split, Merge, MoveOrigin) runs all pre-commits, then
// the mutation, then all post-commits, identically on every worker — see
// halofield's repartition protocol for what each side of that contract
// actually does with the hook. When more than one callback is registered,
// each phase runs them concurrently, one goroutine apiece, and waits for
// all of them; no order among the callbacks of one phase is guaranteed.
package partition
