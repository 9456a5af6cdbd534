package halofield

import "sync/atomic"

// Stats counts a field's operations with lock-free atomic counters, the
// same pattern the teacher's shard package uses for its per-shard
// OperationStats: cheap enough to update on every call, safe to read
// concurrently with the remote read proxy's inbound GetCell calls.
type Stats struct {
	writes     uint64
	migrations uint64
	syncs      uint64
	remoteGets uint64
}

func (s *Stats) recordWrite()     { atomic.AddUint64(&s.writes, 1) }
func (s *Stats) recordMigrate()   { atomic.AddUint64(&s.migrations, 1) }
func (s *Stats) recordSync()      { atomic.AddUint64(&s.syncs, 1) }
func (s *Stats) recordRemoteGet() { atomic.AddUint64(&s.remoteGets, 1) }

// Snapshot is a point-in-time copy of a Stats, safe to read without races.
type Snapshot struct {
	Writes     uint64
	Migrations uint64
	Syncs      uint64
	RemoteGets uint64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Writes:     atomic.LoadUint64(&s.writes),
		Migrations: atomic.LoadUint64(&s.migrations),
		Syncs:      atomic.LoadUint64(&s.syncs),
		RemoteGets: atomic.LoadUint64(&s.remoteGets),
	}
}
