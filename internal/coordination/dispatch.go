package coordination

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/runtimectx"
	"github.com/dreamware/toroidal-sim/internal/scheduler"
	"github.com/dreamware/toroidal-sim/internal/transport"
)

// FieldAdder writes a transportee's decoded payload into one field at
// p. A halofield.Field[T] is reached through a small closure supplying
// this signature (decode raw into T, then call AddObject) since
// Dispatcher itself never names T.
type FieldAdder func(p geom.Point, raw []byte) error

// StepperDecoder turns a transportee's Object bytes back into a
// schedulable Stepper for kind KindAgent or KindRepeat.
type StepperDecoder func(kind transport.Kind, raw []byte) (scheduler.Stepper, error)

// StandardDispatcher is the Dispatcher spec.md §4.7's drain step
// describes: route a bare object to its field, or decode and schedule
// an agent/repeat wrapper (and, unless FieldIndex is transport.NoField,
// also add it to its field so a subsequent local read finds it there).
type StandardDispatcher struct {
	fields map[int]FieldAdder
	decode StepperDecoder
	handle scheduler.Handle
}

// NewStandardDispatcher builds a dispatcher over the given field-index
// to FieldAdder routing table, decode function, and scheduler handle.
func NewStandardDispatcher(fields map[int]FieldAdder, decode StepperDecoder, handle scheduler.Handle) *StandardDispatcher {
	return &StandardDispatcher{fields: fields, decode: decode, handle: handle}
}

// Dispatch implements Dispatcher.
func (d *StandardDispatcher) Dispatch(ctx *runtimectx.Context, rec transport.Transportee) error {
	if rec.FieldIndex != transport.NoField {
		adder, ok := d.fields[rec.FieldIndex]
		if !ok {
			return fmt.Errorf("coordination: no field registered for index %d", rec.FieldIndex)
		}
		if err := adder(rec.Location, rec.Object); err != nil {
			return fmt.Errorf("coordination: adding arrived object to field %d: %w", rec.FieldIndex, err)
		}
	}

	switch rec.Kind {
	case transport.KindObject:
		return nil
	case transport.KindAgent:
		stepper, err := d.decode(rec.Kind, rec.Object)
		if err != nil {
			return fmt.Errorf("coordination: decoding agent payload: %w", err)
		}
		if ctx != nil && ctx.Logger != nil {
			ctx.Logger.Debug("agent arrived", zap.String("agent_id", rec.AgentID), zap.Float64("time", rec.Time))
		}
		if rec.Time < 0 {
			d.handle.ScheduleOnce(stepper, rec.Ordering)
		} else {
			d.handle.ScheduleAt(stepper, rec.Time, rec.Ordering)
		}
		return nil
	case transport.KindRepeat:
		stepper, err := d.decode(rec.Kind, rec.Object)
		if err != nil {
			return fmt.Errorf("coordination: decoding repeat payload: %w", err)
		}
		if ctx != nil && ctx.Logger != nil {
			ctx.Logger.Debug("repeat step arrived", zap.String("agent_id", rec.AgentID), zap.Float64("interval", rec.Interval))
		}
		d.handle.ScheduleRepeating(stepper, rec.Time, rec.Interval, rec.Ordering)
		return nil
	default:
		return fmt.Errorf("coordination: unknown transportee kind %d", rec.Kind)
	}
}
