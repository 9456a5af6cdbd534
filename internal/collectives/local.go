package collectives

import (
	"context"
	"fmt"
	"sync"
)

// point is a reusable rendezvous: every member of a communicator calls
// join with its own contribution; the last arrival computes the shared
// result and wakes everyone else, then the point resets for its next
// round. This is the one synchronization primitive LocalBus is built on —
// every Bus method below is a thin wrapper that names a compute function
// and funnels the caller's payload through a point keyed to the (comm,
// operation) pair.
type point struct {
	mu      sync.Mutex
	size    int
	arrived int
	contrib map[int]any
	result  map[int]any
	waitCh  chan struct{}
}

func newPoint(size int) *point {
	return &point{size: size, contrib: make(map[int]any), waitCh: make(chan struct{})}
}

func (p *point) join(ctx context.Context, rank int, payload any, compute func(map[int]any) map[int]any) (any, error) {
	p.mu.Lock()
	p.contrib[rank] = payload
	p.arrived++
	if p.arrived == p.size {
		result := compute(p.contrib)
		p.result = result
		p.contrib = make(map[int]any)
		p.arrived = 0
		ch := p.waitCh
		p.waitCh = make(chan struct{})
		p.mu.Unlock()
		close(ch)
		return result[rank], nil
	}
	ch := p.waitCh
	p.mu.Unlock()

	select {
	case <-ch:
		p.mu.Lock()
		res := p.result
		p.mu.Unlock()
		return res[rank], nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fabric is the shared state backing every rank's LocalBus handle in one
// process: the rendezvous points collective calls meet at, and the
// sub-communicators carved out by SubCommunicator.
type Fabric struct {
	size   int
	mu     sync.Mutex
	points map[string]*point
}

// NewFabric builds a Fabric for a world of size ranks, size >= 1.
func NewFabric(size int) *Fabric {
	if size < 1 {
		panic("collectives: fabric size must be >= 1")
	}
	return &Fabric{size: size, points: make(map[string]*point)}
}

// Size returns the world size this fabric was built for.
func (f *Fabric) Size() int { return f.size }

// ForRank returns rank's Bus handle onto this fabric.
func (f *Fabric) ForRank(rank int) Bus {
	if rank < 0 || rank >= f.size {
		panic(fmt.Sprintf("collectives: rank %d out of range [0,%d)", rank, f.size))
	}
	return &rankBus{fabric: f, rank: rank}
}

func (f *Fabric) pointFor(comm Comm, op string, size int) *point {
	key := op + ":" + commKey(comm)
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.points[key]
	if !ok {
		p = newPoint(size)
		f.points[key] = p
	}
	return p
}

type rankBus struct {
	fabric *Fabric
	rank   int
}

func (b *rankBus) Rank() int { return b.rank }
func (b *rankBus) Size() int { return b.fabric.size }

// SubCommunicator is deterministic in (level, members): every rank derives
// it independently from its own view of the topology, with no
// coordination round to hand out a shared id, so two ranks computing the
// same group must land on the same Comm value to rendezvous correctly.
func (b *rankBus) SubCommunicator(level int, members []int) Comm {
	return Comm{level: level, members: sortedCopy(members)}
}

func (b *rankBus) requireMember(comm Comm) error {
	if !containsRank(comm.Members(b.fabric.size), b.rank) {
		return fmt.Errorf("collectives: rank %d is not a member of comm %v", b.rank, comm.Members(b.fabric.size))
	}
	return nil
}

// commKey renders comm as a stable rendezvous-point key: the world
// communicator (nil members) and any two sub-communicators with the same
// member set collide on purpose, so every rank's independently-derived
// Comm for "the same group" shares one rendezvous point.
func commKey(comm Comm) string {
	if comm.members == nil {
		return "world"
	}
	return fmt.Sprintf("%v", comm.members)
}

func (b *rankBus) NeighborAllToAll(ctx context.Context, sendCounts []int) ([]int, error) {
	if err := validateCounts("sendCounts", sendCounts, b.fabric.size); err != nil {
		return nil, err
	}
	p := b.fabric.pointFor(Comm{}, "NeighborAllToAll", b.fabric.size)
	res, err := p.join(ctx, b.rank, sendCounts, func(contrib map[int]any) map[int]any {
		n := b.fabric.size
		out := make(map[int]any, n)
		recv := make([][]int, n)
		for r := range recv {
			recv[r] = make([]int, n)
		}
		for src, v := range contrib {
			counts := v.([]int)
			for dst, c := range counts {
				recv[dst][src] = c
			}
		}
		for r := range recv {
			out[r] = recv[r]
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	return res.([]int), nil
}

func (b *rankBus) NeighborAllToAllV(ctx context.Context, send []byte, sendCounts, sendDispls,
	recvCounts, recvDispls []int) ([]byte, error) {
	n := b.fabric.size
	if err := validateCounts("sendCounts", sendCounts, n); err != nil {
		return nil, err
	}
	if err := validateCounts("sendDispls", sendDispls, n); err != nil {
		return nil, err
	}
	if err := validateCounts("recvCounts", recvCounts, n); err != nil {
		return nil, err
	}
	if err := validateCounts("recvDispls", recvDispls, n); err != nil {
		return nil, err
	}

	type contribution struct {
		send      []byte
		sendCount []int
		sendDispl []int
		recvCount []int
		recvDispl []int
	}
	payload := contribution{send: send, sendCount: sendCounts, sendDispl: sendDispls,
		recvCount: recvCounts, recvDispl: recvDispls}

	p := b.fabric.pointFor(Comm{}, "NeighborAllToAllV", n)
	res, err := p.join(ctx, b.rank, payload, func(contrib map[int]any) map[int]any {
		out := make(map[int]any, n)
		// Assemble each destination's recv buffer by walking every
		// source's send block destined for it, in source-rank order.
		for dst := 0; dst < n; dst++ {
			dstContrib := contrib[dst].(contribution)
			recvBuf := make([]byte, sumInts(dstContrib.recvCount))
			for src := 0; src < n; src++ {
				srcContrib := contrib[src].(contribution)
				count := srcContrib.sendCount[dst]
				if count == 0 {
					continue
				}
				off := srcContrib.sendDispl[dst]
				block := srcContrib.send[off : off+count]
				dstOff := dstContrib.recvDispl[src]
				copy(recvBuf[dstOff:dstOff+count], block)
			}
			out[dst] = recvBuf
		}
		return out
	})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func sumInts(xs []int) int {
	total := 0
	for _, x := range xs {
		total += x
	}
	return total
}

func (b *rankBus) Gather(ctx context.Context, buf []byte, root int, comm Comm) ([][]byte, error) {
	if err := b.requireMember(comm); err != nil {
		return nil, err
	}
	members := comm.Members(b.fabric.size)
	p := b.fabric.pointFor(comm, "Gather", len(members))
	res, err := p.join(ctx, b.rank, buf, func(contrib map[int]any) map[int]any {
		out := make([][]byte, len(members))
		for i, m := range members {
			out[i] = contrib[m].([]byte)
		}
		result := make(map[int]any, len(members))
		for _, m := range members {
			result[m] = out
		}
		return result
	})
	if err != nil {
		return nil, err
	}
	return res.([][]byte), nil
}

func (b *rankBus) Scatter(ctx context.Context, bufs [][]byte, root int, comm Comm) ([]byte, error) {
	if err := b.requireMember(comm); err != nil {
		return nil, err
	}
	members := comm.Members(b.fabric.size)
	type contribution struct {
		isRoot bool
		bufs   [][]byte
	}
	p := b.fabric.pointFor(comm, "Scatter", len(members))
	res, err := p.join(ctx, b.rank, contribution{isRoot: b.rank == root, bufs: bufs},
		func(contrib map[int]any) map[int]any {
			rootContrib := contrib[root].(contribution)
			result := make(map[int]any, len(members))
			for i, m := range members {
				if i < len(rootContrib.bufs) {
					result[m] = rootContrib.bufs[i]
				} else {
					result[m] = []byte(nil)
				}
			}
			return result
		})
	if err != nil {
		return nil, err
	}
	return res.([]byte), nil
}

func (b *rankBus) AllReduceMin(ctx context.Context, v float64, comm Comm) (float64, error) {
	if err := b.requireMember(comm); err != nil {
		return 0, err
	}
	members := comm.Members(b.fabric.size)
	p := b.fabric.pointFor(comm, "AllReduceMin", len(members))
	res, err := p.join(ctx, b.rank, v, func(contrib map[int]any) map[int]any {
		min := contrib[members[0]].(float64)
		for _, m := range members[1:] {
			if x := contrib[m].(float64); x < min {
				min = x
			}
		}
		result := make(map[int]any, len(members))
		for _, m := range members {
			result[m] = min
		}
		return result
	})
	if err != nil {
		return 0, err
	}
	return res.(float64), nil
}

func (b *rankBus) Barrier(ctx context.Context, comm Comm) error {
	if err := b.requireMember(comm); err != nil {
		return err
	}
	members := comm.Members(b.fabric.size)
	p := b.fabric.pointFor(comm, "Barrier", len(members))
	_, err := p.join(ctx, b.rank, nil, func(contrib map[int]any) map[int]any {
		result := make(map[int]any, len(members))
		for _, m := range members {
			result[m] = nil
		}
		return result
	})
	return err
}
