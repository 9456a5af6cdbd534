package partition

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dreamware/toroidal-sim/internal/faults"
	"github.com/dreamware/toroidal-sim/internal/geom"
)

// CommitCallback is invoked by the tree around every topology mutation,
// once per registered client, carrying the level the mutation occurs at
// and the id of the node being mutated (stable across the mutation: a
// node's own id and rect never change, only its leaf/internal status and
// children). Pre-commit callbacks run before the mutation; post-commit
// callbacks run after. Every registered callback for a given mutation
// runs concurrently with the others (see runCommitCallbacks) rather than
// one after another, since a rebalance affecting several ranks has each
// one's callback waiting on the others inside a group-scoped collective.
type CommitCallback func(level int, nodeID NodeID)

// QuadTree is the partition manager: the recursive decomposition of the
// world rectangle into leaf partitions, each assigned to a worker, plus
// the id pool that bounds how many leaves can exist at once.
//
// QuadTree is not safe for concurrent mutation from multiple goroutines —
// the runtime's concurrency model (spec.md §5) is bulk-synchronous and
// single-threaded per worker; the mutex here only guards the tree against
// the remote read proxy's concurrent inbound reads between ticks.
type QuadTree struct {
	nodes    map[NodeID]*Node
	mu       sync.RWMutex
	preCb    []CommitCallback
	postCb   []CommitCallback
	availIds []NodeID
	world    geom.Rect
	dim      int
}

// NewQuadTree constructs a tree over world with a single root leaf, ready
// to grow to at most maxPartitions simultaneous leaves. maxPartitions must
// satisfy maxPartitions ≡ 1 (mod 2^dim - 1), the only leaf counts a
// 2^dim-ary tree can reach by repeated splitting from one root; any other
// value returns a TopologyError.
//
// A node's id is stable across its leaf/internal transitions — splitting
// a leaf turns that same id into an internal (group-communicator) role
// and draws branchFactor fresh ids for its children, so reaching
// maxPartitions leaves via maxSplits := (maxPartitions-1)/(branchFactor-1)
// splits consumes maxSplits*branchFactor ids from the pool, not
// maxPartitions-1. The pool is sized accordingly.
func NewQuadTree(dim int, world geom.Rect, maxPartitions int) (*QuadTree, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("partition: dim must be positive, got %d", dim)
	}
	branch := 1 << uint(dim)
	if maxPartitions < 1 || (maxPartitions-1)%(branch-1) != 0 {
		return nil, faults.New(faults.KindTopology, -1, "", "",
			fmt.Errorf("maxPartitions=%d must satisfy N ≡ 1 (mod %d) for dim=%d", maxPartitions, branch-1, dim))
	}
	maxSplits := (maxPartitions - 1) / (branch - 1)
	poolSize := maxSplits * branch

	t := &QuadTree{
		nodes: make(map[NodeID]*Node),
		world: world,
		dim:   dim,
	}
	root := &Node{ID: RootID, Rect: world, Level: 0}
	t.nodes[RootID] = root
	for id := NodeID(1); id <= NodeID(poolSize); id++ {
		t.availIds = append(t.availIds, id)
	}
	return t, nil
}

// Dim returns the tree's dimensionality.
func (t *QuadTree) Dim() int { return t.dim }

// World returns the world rectangle the tree partitions.
func (t *QuadTree) World() geom.Rect { return t.world }

// BranchFactor returns 2^Dim, the number of children an internal node has.
func (t *QuadTree) BranchFactor() int { return 1 << uint(t.dim) }

// Leaves returns every current leaf node, sorted ascending by id.
func (t *QuadTree) Leaves() []*Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.leavesLocked()
}

func (t *QuadTree) leavesLocked() []*Node {
	var out []*Node
	for _, n := range t.nodes {
		if n.IsLeaf() {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Node returns the node with the given id, or nil if it doesn't exist.
func (t *QuadTree) Node(id NodeID) *Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nodes[id]
}

func (t *QuadTree) popAvailID() (NodeID, bool) {
	if len(t.availIds) == 0 {
		return 0, false
	}
	sort.Slice(t.availIds, func(i, j int) bool { return t.availIds[i] < t.availIds[j] })
	id := t.availIds[0]
	t.availIds = t.availIds[1:]
	return id, true
}

func (t *QuadTree) pushAvailID(id NodeID) {
	t.availIds = append(t.availIds, id)
}

// AvailIDCount reports how many ids remain unused in the pool.
func (t *QuadTree) AvailIDCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.availIds)
}

// GetLeaf descends the tree from the root, at every internal node picking
// the child whose half of the split origin contains p, until it reaches a
// leaf. Returns a TopologyError if p lies outside the world (after
// toroidal reduction is the caller's responsibility — GetLeaf itself does
// not wrap coordinates).
func (t *QuadTree) GetLeaf(p geom.Point) (*Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.getLeafLocked(p)
}

func (t *QuadTree) getLeafLocked(p geom.Point) (*Node, error) {
	n := t.nodes[RootID]
	for !n.IsLeaf() {
		childIdx := 0
		for i := 0; i < t.dim; i++ {
			if p[i] >= n.Origin[i] {
				childIdx |= 1 << uint(i)
			}
		}
		next := t.nodes[n.Children[childIdx]]
		if next == nil {
			return nil, fmt.Errorf("partition: missing child node (tree corrupted)")
		}
		n = next
	}
	if !n.Rect.Contains(p) {
		return nil, fmt.Errorf("partition: point %v outside world", p)
	}
	return n, nil
}

// Owner returns the worker id of the leaf containing p.
func (t *QuadTree) Owner(p geom.Point) (NodeID, error) {
	leaf, err := t.GetLeaf(p)
	if err != nil {
		return 0, err
	}
	return leaf.WorkerID(), nil
}

// RegisterPreCommit registers cb to run, alongside every other
// registered pre-commit callback, before every topology mutation.
func (t *QuadTree) RegisterPreCommit(cb CommitCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.preCb = append(t.preCb, cb)
}

// RegisterPostCommit registers cb to run, alongside every other
// registered post-commit callback, after every topology mutation.
func (t *QuadTree) RegisterPostCommit(cb CommitCallback) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.postCb = append(t.postCb, cb)
}

// runPreCommit and runPostCommit fan the registered callbacks out onto
// one goroutine apiece rather than calling them in a loop on the
// caller's own goroutine. Each registered callback belongs to one
// rank's Field, and a rebalance affecting a group of more than one
// rank has every member's callback call a blocking collective (Gather
// or Scatter) that only resolves once every member of the group has
// made its call; a real deployment gets that concurrency for free
// because each rank drives its own process, but the in-process
// Fabric used by cmd/simrunner registers every rank's callback on one
// shared tree, so the tree itself has to supply the concurrency the
// callbacks need to rendezvous instead of serializing them.
func (t *QuadTree) runPreCommit(level int, nodeID NodeID) {
	runCommitCallbacks(t.preCb, level, nodeID)
}

func (t *QuadTree) runPostCommit(level int, nodeID NodeID) {
	runCommitCallbacks(t.postCb, level, nodeID)
}

func runCommitCallbacks(callbacks []CommitCallback, level int, nodeID NodeID) {
	if len(callbacks) == 0 {
		return
	}
	if len(callbacks) == 1 {
		callbacks[0](level, nodeID)
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(callbacks))
	for _, cb := range callbacks {
		cb := cb
		go func() {
			defer wg.Done()
			cb(level, nodeID)
		}()
	}
	wg.Wait()
}

