// Package integration drives several ranks of the runtime at once over a
// real collectives.Fabric, the way the teacher's own test/integration
// package drives several node/coordinator processes over HTTP. Nothing
// here can spawn separate OS processes, since collectives' LocalBus (the
// handle Fabric.ForRank returns) is an
// in-process stand-in for a real transport — so every rank instead runs
// on its own goroutine against one shared Fabric, which is what exercises
// the same multi-party rendezvous (NeighborAllToAll, Gather, Scatter,
// AllReduceMin) a real multi-process deployment would.
package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/coordination"
	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/gridstore"
	"github.com/dreamware/toroidal-sim/internal/halofield"
	"github.com/dreamware/toroidal-sim/internal/partition"
	"github.com/dreamware/toroidal-sim/internal/rproxy"
	"github.com/dreamware/toroidal-sim/internal/runtimectx"
	"github.com/dreamware/toroidal-sim/internal/scheduler"
	"github.com/dreamware/toroidal-sim/internal/transport"
)

const fieldIndex = 0

// arrival is the Stepper an agent wrapper decodes into on arrival: it
// records its own payload into the owning rank's own slice (never shared
// across goroutines) so the test can assert it ran after every rank has
// finished its ticks.
type arrival struct {
	value    int32
	observed *[]int32
}

func (a *arrival) Step(*runtimectx.Context) error {
	*a.observed = append(*a.observed, a.value)
	return nil
}

// worker bundles one rank's full stack — field, transporter, migrator,
// remote-read endpoint, scheduler, tick — built the same way
// bootstrap.NewWorker does, but with its own StepperDecoder so
// KindAgent transportees can be driven end to end, which is the one
// piece bootstrap's demonstration wiring leaves to its caller.
type worker struct {
	rank     partition.NodeID
	ctx      *runtimectx.Context
	field    *halofield.Field[int32]
	tp       *transport.Transporter
	mig      *coordination.TransporterMigrator
	tick     *coordination.Tick
	observed []int32
}

func newWorker(t *testing.T, rank partition.NodeID, tree *partition.QuadTree, aoi geom.AOI,
	bus collectives.Bus, registry *rproxy.Registry) *worker {
	t.Helper()

	newStorage := func(rect geom.Rect) gridstore.Storage[int32] { return gridstore.NewNumeric[int32](rect) }
	field, err := halofield.NewField[int32](fieldIndex, rank, tree, aoi, 0, newStorage, bus)
	require.NoError(t, err)

	tp, err := transport.NewTransporter(rank, tree, aoi, bus)
	require.NoError(t, err)
	mig := coordination.NewTransporterMigrator(tp)
	field.SetMigrator(mig)

	endpoint := rproxy.NewWorkerEndpoint()
	endpoint.Register(fieldIndex, field)
	registry.Register(int(rank), endpoint)
	field.SetRemoteReader(rproxy.NewClient(registry))

	w := &worker{rank: rank, tp: tp, field: field, mig: mig}
	w.ctx = runtimectx.New(int(rank), zap.NewNop(), runtimectx.NewSimClock(0), bus)

	sched := scheduler.NewQueue()
	decode := func(kind transport.Kind, raw []byte) (scheduler.Stepper, error) {
		var v int32
		if err := msgpack.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
		return &arrival{value: v, observed: &w.observed}, nil
	}
	fieldAdders := map[int]coordination.FieldAdder{
		fieldIndex: func(p geom.Point, raw []byte) error {
			var v int32
			if err := msgpack.Unmarshal(raw, &v); err != nil {
				return err
			}
			return field.AddObject(p, v)
		},
	}
	dispatcher := coordination.NewStandardDispatcher(fieldAdders, decode, sched)
	timer := coordination.NewRebalanceTimer(1)
	w.tick = coordination.NewTick(w.ctx, []coordination.Syncer{field}, tp, dispatcher, sched, timer, nil)
	return w
}

// runAllTicks runs n ticks on every worker concurrently — required
// because Tick.Run's final step, AllReduceMin, rendezvous over a
// world-sized collectives.Comm{} and never returns until every rank in
// the fabric has made the same call in the same round.
func runAllTicks(t *testing.T, workers []*worker, n int) {
	t.Helper()
	for round := 0; round < n; round++ {
		g, gctx := errgroup.WithContext(context.Background())
		for _, w := range workers {
			w := w
			g.Go(func() error {
				next, err := w.tick.Run(gctx)
				if err != nil {
					return err
				}
				w.ctx.Clock.Advance(next)
				return nil
			})
		}
		require.NoError(t, g.Wait())
	}
}

func buildFourWayTree(t *testing.T) *partition.QuadTree {
	t.Helper()
	world := geom.NewRect(geom.WorldRectID, geom.NewPoint(0, 0), geom.NewPoint(1000, 1000))
	tr, err := partition.NewQuadTree(2, world, 4)
	require.NoError(t, err)
	_, err = tr.Split(geom.NewPoint(500, 500))
	require.NoError(t, err)
	return tr
}

// TestDiagonalAgentMigrationCompletesInOneCycle exercises spec.md's S2:
// an agent sitting at (499, 499), one cell short of the diagonal
// quadrant boundary, must reach the diagonal neighbor worker — not an
// edge-sharing one — after a single coordination cycle, because a halo
// resized by the AOI in every dimension reaches into the shared corner
// region (partition.Neighbors treats that as a direct adjacency, not a
// multi-hop one). spec.md's own scenario narration names the ranks
// "worker 0" and "worker 3"; this module reserves id 0 for the
// permanently-internal root (it never returns to the id pool, so after
// one Split the four leaves carry ids 1..4, not 0..3), so the true
// diagonal pair the narration is pointing at is the quadrant holding
// (499, 499) and the quadrant diagonally opposite it.
func TestDiagonalAgentMigrationCompletesInOneCycle(t *testing.T) {
	aoi := geom.NewAOI(5, 5)
	tr := buildFourWayTree(t)

	size := 1 + tr.AvailIDCount() + len(tr.Leaves())
	fabric := collectives.NewFabric(size)
	registry := rproxy.NewRegistry()

	workers := make([]*worker, size)
	byRank := make(map[partition.NodeID]*worker, size)
	for rank := 0; rank < size; rank++ {
		w := newWorker(t, partition.NodeID(rank), tr, aoi, fabric.ForRank(rank), registry)
		workers[rank] = w
		byRank[partition.NodeID(rank)] = w
	}

	from := geom.NewPoint(499, 499)
	to := geom.NewPoint(501, 501)
	source, err := tr.Owner(from)
	require.NoError(t, err)
	dest, err := tr.Owner(to)
	require.NoError(t, err)
	require.NotEqual(t, source, dest, "S2 requires the step to cross a partition boundary")

	neighbors, err := tr.Neighbors(source, aoi)
	require.NoError(t, err)
	var adjacent bool
	for _, n := range neighbors {
		if n.ID == dest {
			adjacent = true
		}
	}
	require.True(t, adjacent, "the diagonal quadrant must be a direct neighbor for a one-hop migration")

	sourceWorker := byRank[source]
	require.NoError(t, sourceWorker.field.AddObject(from, 42))
	require.NoError(t, sourceWorker.field.RemoveObject(from))
	require.NoError(t, sourceWorker.mig.MigrateAgent(int32(42), int(dest), to, fieldIndex, -1, 0))

	runAllTicks(t, workers, 1)

	destWorker := byRank[dest]
	require.Len(t, destWorker.observed, 1, "the agent must have been scheduled on the diagonal worker")
	require.Equal(t, int32(42), destWorker.observed[0])

	got, err := destWorker.field.Get(context.Background(), to)
	require.NoError(t, err)
	require.Equal(t, int32(42), got, "the agent's value must also land in the diagonal worker's field")

	stillLocal, err := sourceWorker.field.Get(context.Background(), from)
	require.NoError(t, err)
	require.Zero(t, stillLocal, "removed from the source worker's field at its old location")
}

// TestRebalanceMidRunPreservesData exercises spec.md's S3: two splits
// build a seven-leaf tiling, then a move_origin on the root re-tiles the
// world into four fresh leaves while a cell value planted before the
// move must read back unchanged from whichever worker now owns it —
// the repartition protocol's whole job (CollectGroup snapshots every
// affected leaf's storage before the mutation, DistributeGroup scatters
// it back across the new leaves after).
func TestRebalanceMidRunPreservesData(t *testing.T) {
	const maxPartitions = 7
	aoi := geom.NewAOI(1, 1)
	world := geom.NewRect(geom.WorldRectID, geom.NewPoint(0, 0), geom.NewPoint(100, 100))
	tr, err := partition.NewQuadTree(2, world, maxPartitions)
	require.NoError(t, err)

	_, err = tr.Split(geom.NewPoint(40, 60))
	require.NoError(t, err)
	require.Len(t, tr.Leaves(), 4)

	_, err = tr.Split(geom.NewPoint(5, 85))
	require.NoError(t, err)
	require.Len(t, tr.Leaves(), 7, "two splits of a branch-4 tree grow the tiling from 4 to 7 leaves")

	// Every id from 1 through the pool's full capacity is constructed as
	// a rank up front (the dormant-rank model), not just whichever ids
	// are currently leaves: a second-level split like the one above
	// leaves the first split's own leaf id neither free nor a leaf (it's
	// now an internal node), so size can't be derived from
	// AvailIDCount()+len(Leaves()) once more than one level is split —
	// that undercounts by exactly the number of such still-internal,
	// non-root ids. Mirrors NewQuadTree's own
	// maxSplits*branchFactor pool-sizing rule directly instead.
	branch := tr.BranchFactor()
	maxSplits := (maxPartitions - 1) / (branch - 1)
	size := 1 + maxSplits*branch
	fabric := collectives.NewFabric(size)
	registry := rproxy.NewRegistry()
	workers := make([]*worker, size)
	byRank := make(map[partition.NodeID]*worker, size)
	for rank := 0; rank < size; rank++ {
		w := newWorker(t, partition.NodeID(rank), tr, aoi, fabric.ForRank(rank), registry)
		workers[rank] = w
		byRank[partition.NodeID(rank)] = w
	}

	cell := geom.NewPoint(3, 90)
	owner, err := tr.Owner(cell)
	require.NoError(t, err)
	require.NoError(t, byRank[owner].field.AddObject(cell, 42))

	require.NoError(t, tr.MoveOrigin(partition.RootID, geom.NewPoint(60, 70)))
	for _, w := range workers {
		require.NoError(t, w.field.Err())
	}
	require.Len(t, tr.Leaves(), 4, "move_origin on the root collapses the tiling back to a fresh 4-way split")

	newOwner, err := tr.Owner(cell)
	require.NoError(t, err)
	got, err := byRank[newOwner].field.Get(context.Background(), cell)
	require.NoError(t, err)
	require.Equal(t, int32(42), got, "a value planted before the rebalance must survive it under its new owner")

	runAllTicks(t, workers, 1)
}
