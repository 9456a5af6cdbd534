package coordination

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dreamware/toroidal-sim/internal/collectives"
	"github.com/dreamware/toroidal-sim/internal/runtimectx"
	"github.com/dreamware/toroidal-sim/internal/scheduler"
	"github.com/dreamware/toroidal-sim/internal/transport"
)

// Syncer is the per-field halo-exchange operation the coordination loop
// drives generically across every registered field, whatever its
// element type — halofield.Field[T].Sync satisfies this directly, no
// adapter needed.
type Syncer interface {
	Sync(ctx context.Context) error
}

// Transporter is the subset of transport.Transporter the coordination
// loop drives each tick.
type Transporter interface {
	Sync(ctx context.Context) error
	Inbox() []transport.Transportee
	Stats() transport.Snapshot
}

// Dispatcher applies one drained inbox record: a bare object is added to
// the field named by rec.FieldIndex (skipped when rec.FieldIndex ==
// transport.NoField); an agent or repeat wrapper is also scheduled via
// the worker's scheduler.Handle. Dispatch owns decoding rec.Object into
// the concrete type its target field expects, which is why it lives
// outside this package: coordination never names a concrete field
// element type.
type Dispatcher interface {
	Dispatch(ctx *runtimectx.Context, rec transport.Transportee) error
}

// Tick implements spec.md §4.7's coordination-loop body: one call to Run
// is one simulation tick.
type Tick struct {
	ctx         *runtimectx.Context
	fields      []Syncer
	transporter Transporter
	dispatcher  Dispatcher
	scheduler   scheduler.Handle
	timer       *RebalanceTimer
	metrics     *Metrics
}

// NewTick wires a Tick from its collaborators. metrics may be nil.
func NewTick(ctx *runtimectx.Context, fields []Syncer, transporter Transporter, dispatcher Dispatcher,
	sched scheduler.Handle, timer *RebalanceTimer, metrics *Metrics) *Tick {
	return &Tick{
		ctx:         ctx,
		fields:      fields,
		transporter: transporter,
		dispatcher:  dispatcher,
		scheduler:   sched,
		timer:       timer,
		metrics:     metrics,
	}
}

// Run executes one tick in the seven-step order spec.md §4.7 fixes:
//  1. stop the rebalance timer (measures the previous tick's runtime)
//  2. halo-sync every registered field, in registration order
//  3. sync the transporter (send/receive in-flight records)
//  4. drain the transporter's inbox, dispatching each arrived record
//  5. start the rebalance timer, now that the inbox is clear
//  6. step the scheduler (run every due agent)
//  7. all-reduce the minimum of every worker's next scheduled time
//
// The returned float64 is that tick's agreed global next-time; the
// caller advances its clock to it before the next Run. A tick with
// nothing scheduled anywhere returns +Inf.
func (tk *Tick) Run(ctx context.Context) (float64, error) {
	if d := tk.timer.Stop(); tk.metrics != nil {
		tk.metrics.observeTickDuration(d)
	}

	haloStart := time.Now()
	for i, f := range tk.fields {
		if err := f.Sync(ctx); err != nil {
			return 0, fmt.Errorf("coordination: halo sync failed for field %d: %w", i, err)
		}
	}
	tk.metrics.observeHaloSync(time.Since(haloStart))

	if err := tk.transporter.Sync(ctx); err != nil {
		return 0, fmt.Errorf("coordination: transporter sync failed: %w", err)
	}
	tk.metrics.addTransporterBytes(tk.transporter.Stats().BytesSent)

	for _, rec := range tk.transporter.Inbox() {
		if err := tk.dispatcher.Dispatch(tk.ctx, rec); err != nil {
			return 0, fmt.Errorf("coordination: inbox dispatch failed: %w", err)
		}
	}

	tk.timer.Start()

	if err := tk.scheduler.Step(tk.ctx); err != nil {
		return 0, fmt.Errorf("coordination: scheduler step failed: %w", err)
	}

	local := math.Inf(1)
	if t, ok := tk.scheduler.NextTime(); ok {
		local = t
	}
	next, err := tk.ctx.Bus.AllReduceMin(ctx, local, collectives.Comm{})
	if err != nil {
		return 0, fmt.Errorf("coordination: global time reduction failed: %w", err)
	}

	tk.metrics.observeTick()
	return next, nil
}
