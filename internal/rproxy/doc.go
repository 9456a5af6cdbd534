// Package rproxy implements the remote read proxy: a blocking, one-hop
// request/reply path a HaloField.Get falls back to when a point lies
// outside its own haloPart. It is a correctness fallback, not a
// performance path.
package rproxy
