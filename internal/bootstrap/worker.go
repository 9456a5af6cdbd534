// Package bootstrap wires one rank's partition, field, transporter,
// remote-read endpoint, scheduler, and coordination loop together from a
// config.Config — the construction sequence spec.md §9 describes only at
// the component level ("construct a HaloField with (partition, aoi,
// storage, state)... call transporter.migrate..."), shared by cmd/worker
// (a single-rank process) and cmd/simrunner (many ranks in one process).
package bootstrap

import (
	"context"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/config"
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

// fieldIndex is the one demonstration numeric field every worker built by
// this package registers. The core runtime (halofield, transport,
// coordination) is field-count- and element-type-agnostic; a real
// application wires as many Field[T]s of whatever T it needs through the
// same pattern NewWorker shows here.
const fieldIndex = 0

// Worker bundles one rank's fully wired components plus the coordination
// Tick that drives them.
type Worker struct {
	ctx         *runtimectx.Context
	tree        *partition.QuadTree
	field       *halofield.Field[int32]
	transporter *transport.Transporter
	tick        *coordination.Tick
}

// NewWorker builds and wires rank cfg.Rank's components against a shared
// tree (so every rank in a simulation sees the same topology object) and
// bus. registry is the process-wide rproxy directory; pass the same
// *rproxy.Registry to every rank sharing one process (cmd/simrunner), or
// nil for a single-rank process (cmd/worker), which only ever resolves
// reads against itself.
func NewWorker(cfg *config.Config, tree *partition.QuadTree, bus collectives.Bus,
	registry *rproxy.Registry, logger *zap.Logger) (*Worker, error) {
	aoi := geom.AOI(cfg.AOI)
	rank := partition.NodeID(cfg.Rank)

	newStorage := func(rect geom.Rect) gridstore.Storage[int32] { return gridstore.NewNumeric[int32](rect) }
	field, err := halofield.NewField[int32](fieldIndex, rank, tree, aoi, 0, newStorage, bus)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: building field: %w", err)
	}

	transporter, err := transport.NewTransporter(rank, tree, aoi, bus)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: building transporter: %w", err)
	}
	field.SetMigrator(coordination.NewTransporterMigrator(transporter))

	endpoint := rproxy.NewWorkerEndpoint()
	endpoint.Register(fieldIndex, field)
	if registry == nil {
		registry = rproxy.NewRegistry()
	}
	registry.Register(cfg.Rank, endpoint)
	field.SetRemoteReader(rproxy.NewClient(registry))

	clock := runtimectx.NewSimClock(0)
	rtctx := runtimectx.New(cfg.Rank, logger.With(zap.Int("rank", cfg.Rank)), clock, bus)

	sched := scheduler.NewQueue()
	fieldAdders := map[int]coordination.FieldAdder{
		fieldIndex: func(p geom.Point, raw []byte) error {
			var v int32
			if err := msgpack.Unmarshal(raw, &v); err != nil {
				return fmt.Errorf("bootstrap: decoding arrived field %d value: %w", fieldIndex, err)
			}
			return field.AddObject(p, v)
		},
	}
	// decode is nil: this demonstration wiring only ever migrates bare
	// int32 field values (KindObject), never agent/repeat wrappers, so
	// there is no concrete Stepper type to decode into here. An
	// application that schedules real agents supplies its own
	// coordination.StepperDecoder and assembles its own Dispatcher the
	// way this constructor does, rather than going through NewWorker.
	dispatcher := coordination.NewStandardDispatcher(fieldAdders, nil, sched)

	timer := coordination.NewRebalanceTimer(cfg.RebalanceWindow)
	tick := coordination.NewTick(rtctx, []coordination.Syncer{field}, transporter, dispatcher, sched, timer, nil)

	return &Worker{ctx: rtctx, tree: tree, field: field, transporter: transporter, tick: tick}, nil
}

// NewQuadTree builds the shared world topology from cfg — one tree is
// constructed once and handed to every rank's NewWorker in the same
// process (cmd/simrunner); a standalone cmd/worker builds its own
// single-rank tree.
func NewQuadTree(cfg *config.Config) (*partition.QuadTree, error) {
	dim := len(cfg.AOI)
	lo := make(geom.Point, dim)
	hi := make(geom.Point, dim)
	copy(hi, cfg.World)
	world := geom.NewRect(-1, lo, hi)
	return partition.NewQuadTree(dim, world, cfg.MaxPartitions)
}

// Tick runs one coordination tick and advances this worker's clock to the
// globally agreed next time.
func (w *Worker) Tick(ctx context.Context) error {
	next, err := w.tick.Run(ctx)
	if err != nil {
		return err
	}
	w.ctx.Clock.Advance(next)
	return nil
}

// Field returns the worker's demonstration field, for tests and the
// simrunner's scenario seeding.
func (w *Worker) Field() *halofield.Field[int32] { return w.field }

// Rank returns this worker's rank.
func (w *Worker) Rank() int { return w.ctx.Rank }
