package scheduler

import "github.com/dreamware/toroidal-sim/internal/runtimectx"

// Stepper is implemented by anything schedulable: an agent or a
// recurring step. Step runs the payload's logic for the current tick.
type Stepper interface {
	Step(ctx *runtimectx.Context) error
}

// Handle is the minimal interface the coordination loop needs from the
// scheduling data structure (spec.md §1 names this only at the
// interface level, treating the scheduler as an external collaborator).
type Handle interface {
	// ScheduleOnce arranges for agent to run at the receiver's very next
	// Step call, regardless of the current clock value.
	ScheduleOnce(agent any, ordering int)
	// ScheduleAt arranges for agent to run once the clock reaches time.
	ScheduleAt(agent any, time float64, ordering int)
	// ScheduleRepeating arranges for step to run at time, then again
	// every interval thereafter, indefinitely.
	ScheduleRepeating(step any, time float64, interval float64, ordering int)
	// NextTime reports the earliest time any currently-scheduled item is
	// due, or ok=false if nothing is scheduled. The coordination loop
	// feeds this into the tick's global minimum reduction.
	NextTime() (time float64, ok bool)
	// Step runs every item currently due (time <= ctx.Clock.Now()), in
	// ascending (time, ordering) order, re-arming repeating items at
	// their next interval.
	Step(ctx *runtimectx.Context) error
}
