package transport

import "sync/atomic"

// Stats counts a transporter's operations with lock-free atomic
// counters, the same pattern halofield.Stats uses.
type Stats struct {
	enqueued  uint64
	delivered uint64
	forwarded uint64
	syncs     uint64
	bytesSent uint64
}

func (s *Stats) recordEnqueue()        { atomic.AddUint64(&s.enqueued, 1) }
func (s *Stats) recordDeliver()        { atomic.AddUint64(&s.delivered, 1) }
func (s *Stats) recordForward()        { atomic.AddUint64(&s.forwarded, 1) }
func (s *Stats) recordSync()           { atomic.AddUint64(&s.syncs, 1) }
func (s *Stats) recordBytesSent(n int) { atomic.AddUint64(&s.bytesSent, uint64(n)) }

// Snapshot is a point-in-time copy of a Stats, safe to read without races.
type Snapshot struct {
	Enqueued  uint64
	Delivered uint64
	Forwarded uint64
	Syncs     uint64
	BytesSent uint64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		Enqueued:  atomic.LoadUint64(&s.enqueued),
		Delivered: atomic.LoadUint64(&s.delivered),
		Forwarded: atomic.LoadUint64(&s.forwarded),
		Syncs:     atomic.LoadUint64(&s.syncs),
		BytesSent: atomic.LoadUint64(&s.bytesSent),
	}
}
