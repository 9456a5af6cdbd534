// Package packcache provides a small thread-safe byte-slice cache keyed by
// flat grid index, used by the object-variant grid storage (gridstore) to
// avoid re-serializing unchanged cells on every halo sync.
//
// # Overview
//
// Object-variant GridStorage packs sub-rectangles by serializing each cell
// through a user Codec. For large halos synced every tick, re-encoding
// cells that haven't changed since the last pack is wasted work. packcache
// holds the last-known encoding per flat index; gridstore invalidates an
// entry on Set and reuses it otherwise.
//
// This is an adaptation of a plain key/value Store interface into a
// narrower, index-keyed cache: the interface shape (Get/Put/Invalidate/
// Stats, copy-on-read, RWMutex-guarded map) follows the same pattern as a
// generic store, just keyed by cell index instead of an arbitrary string
// and scoped to caching rather than being the system of record.
package packcache
