package transport

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/partition"
)

func buildTransporters(t *testing.T, tr *partition.QuadTree, aoi geom.AOI) (*collectives.Fabric, map[partition.NodeID]*Transporter) {
	t.Helper()
	size := 1 + tr.AvailIDCount() + len(tr.Leaves())
	fabric := collectives.NewFabric(size)
	transporters := make(map[partition.NodeID]*Transporter, size)
	for rank := 0; rank < size; rank++ {
		tp, err := NewTransporter(partition.NodeID(rank), tr, aoi, fabric.ForRank(rank))
		require.NoError(t, err)
		transporters[partition.NodeID(rank)] = tp
	}
	return fabric, transporters
}

// syncAll runs one Sync round on every transporter (including dormant
// ranks, which must still take part in the dense collective barrier),
// each on its own goroutine, since Sync blocks until every rank has called.
func syncAll(t *testing.T, transporters map[partition.NodeID]*Transporter) {
	t.Helper()
	ctx := context.Background()
	var mu sync.Mutex
	var wg sync.WaitGroup
	errs := make(map[partition.NodeID]error, len(transporters))
	for rank, tp := range transporters {
		wg.Add(1)
		go func(rank partition.NodeID, tp *Transporter) {
			defer wg.Done()
			err := tp.Sync(ctx)
			mu.Lock()
			errs[rank] = err
			mu.Unlock()
		}(rank, tp)
	}
	wg.Wait()
	for rank, err := range errs {
		require.NoError(t, err, "rank %d", rank)
	}
}

func TestMigrateToDirectNeighborDeliversInOneSync(t *testing.T) {
	world := geom.NewRect(geom.WorldRectID, geom.NewPoint(0, 0), geom.NewPoint(100, 100))
	tr, err := partition.NewQuadTree(2, world, 4)
	require.NoError(t, err)
	_, err = tr.Split(geom.NewPoint(50, 50))
	require.NoError(t, err)

	_, transporters := buildTransporters(t, tr, geom.NewAOI(1, 1))

	src, err := tr.Owner(geom.NewPoint(10, 10))
	require.NoError(t, err)
	dst, err := tr.Owner(geom.NewPoint(60, 10))
	require.NoError(t, err)
	require.NotEqual(t, src, dst)

	rec := Transportee{Destination: int(dst), FieldIndex: NoField, Location: geom.NewPoint(60, 10), Kind: KindObject}
	require.NoError(t, transporters[src].Migrate(rec))

	syncAll(t, transporters)

	inbox := transporters[dst].Inbox()
	require.Len(t, inbox, 1)
	require.Equal(t, int(dst), inbox[0].Destination)
	require.Equal(t, geom.NewPoint(60, 10), inbox[0].Location)
	require.Empty(t, transporters[src].Inbox())
}

func TestMigrateForwardsAcrossMultipleHops(t *testing.T) {
	world := geom.NewRect(geom.WorldRectID, geom.NewPoint(0, 0), geom.NewPoint(200, 200))
	tr, err := partition.NewQuadTree(2, world, 7)
	require.NoError(t, err)
	_, err = tr.Split(geom.NewPoint(100, 100))
	require.NoError(t, err)
	_, err = tr.Split(geom.NewPoint(50, 50))
	require.NoError(t, err)

	_, transporters := buildTransporters(t, tr, geom.NewAOI(1, 1))

	near := geom.NewPoint(10, 10)
	far := geom.NewPoint(150, 150)
	src, err := tr.Owner(near)
	require.NoError(t, err)
	dst, err := tr.Owner(far)
	require.NoError(t, err)
	require.NotEqual(t, src, dst)

	rec := Transportee{Destination: int(dst), FieldIndex: NoField, Location: far, Kind: KindObject}
	require.NoError(t, transporters[src].Migrate(rec))

	var delivered []Transportee
	for round := 0; round < 6 && len(delivered) == 0; round++ {
		syncAll(t, transporters)
		delivered = transporters[dst].Inbox()
	}
	require.Len(t, delivered, 1)
	require.Equal(t, far, delivered[0].Location)
}

func TestAgentAndRepeatWrappersRoundTripThroughSync(t *testing.T) {
	world := geom.NewRect(geom.WorldRectID, geom.NewPoint(0, 0), geom.NewPoint(100, 100))
	tr, err := partition.NewQuadTree(2, world, 4)
	require.NoError(t, err)
	_, err = tr.Split(geom.NewPoint(50, 50))
	require.NoError(t, err)

	_, transporters := buildTransporters(t, tr, geom.NewAOI(1, 1))

	src, err := tr.Owner(geom.NewPoint(10, 10))
	require.NoError(t, err)
	dst, err := tr.Owner(geom.NewPoint(60, 60))
	require.NoError(t, err)

	agentRec := Transportee{
		Destination: int(dst), FieldIndex: 0, Location: geom.NewPoint(60, 60),
		Kind: KindAgent, Object: []byte("agent-payload"), Ordering: 3, Time: -1,
	}
	repeatRec := Transportee{
		Destination: int(dst), FieldIndex: NoField, Location: geom.NewPoint(60, 60),
		Kind: KindRepeat, Object: []byte("step-payload"), Ordering: 1, Time: 5, Interval: 2.5,
	}
	require.NoError(t, transporters[src].Migrate(agentRec))
	require.NoError(t, transporters[src].Migrate(repeatRec))

	var got []Transportee
	for round := 0; round < 6 && len(got) < 2; round++ {
		syncAll(t, transporters)
		got = append(got, transporters[dst].Inbox()...)
	}
	require.Len(t, got, 2)

	byKind := map[Kind]Transportee{}
	for _, rec := range got {
		byKind[rec.Kind] = rec
	}
	require.Equal(t, agentRec.Object, byKind[KindAgent].Object)
	require.Equal(t, agentRec.Ordering, byKind[KindAgent].Ordering)
	require.Equal(t, agentRec.Time, byKind[KindAgent].Time)
	require.Equal(t, repeatRec.Interval, byKind[KindRepeat].Interval)
}

func TestMigrateWithNoNeighborsIsUnroutable(t *testing.T) {
	world := geom.NewRect(geom.WorldRectID, geom.NewPoint(0, 0), geom.NewPoint(100, 100))
	tr, err := partition.NewQuadTree(2, world, 4)
	require.NoError(t, err)
	_, err = tr.Split(geom.NewPoint(50, 50))
	require.NoError(t, err)

	_, transporters := buildTransporters(t, tr, geom.NewAOI(1, 1))

	var dormant *Transporter
	leafIDs := map[partition.NodeID]bool{}
	for _, l := range tr.Leaves() {
		leafIDs[l.ID] = true
	}
	for rank, tp := range transporters {
		if !leafIDs[rank] {
			dormant = tp
			break
		}
	}
	require.NotNil(t, dormant, "expected at least one dormant rank in the pool")

	err = dormant.Migrate(Transportee{Destination: 0, Kind: KindObject})
	require.Error(t, err)
}
