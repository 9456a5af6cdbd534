// Package halofield binds a grid storage to a partition manager: each
// Field[T] tracks its owned region, a halo (ghost) region surrounding it,
// and the set of neighbor workers it exchanges ghost data with, and keeps
// that state current across both a per-tick halo sync and a rebalance's
// repartition protocol.
package halofield
