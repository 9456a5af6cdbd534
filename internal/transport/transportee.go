package transport

import (
	"github.com/dreamware/toroidal-sim/internal/geom"
)

// Kind distinguishes a Transportee's payload variant. The destination,
// field index, and location travel alongside every variant; Kind and
// Object carry the part that differs.
type Kind uint8

const (
	// KindObject carries a bare value to be written into a field at
	// Location on arrival.
	KindObject Kind = iota
	// KindAgent carries an agent-wrapper: schedule the agent once (when
	// Time < 0, at the receiver's next step) or at the absolute Time,
	// with the given Ordering, and also add it to the field at Location.
	KindAgent
	// KindRepeat carries a repeat-wrapper: a recurring scheduled step
	// re-armed every Interval after Time.
	KindRepeat
)

// NoField is the FieldIndex sentinel meaning "do not insert into any
// field on arrival" — a transportee can carry pure scheduling work with
// nothing to add to a grid.
const NoField = -1

// Transportee is the wire envelope migrated between workers. The
// transporter only moves bytes: Object is whatever the caller's own
// codec produced for the agent, step, or bare value before Migrate was
// called, and is handed back unexamined to the caller once Sync drains
// it into the inbox. Destination, FieldIndex, and Location are the only
// fields the transporter itself interprets (for forwarding and arrival
// detection), and must survive the trip bit-identically — msgpack's
// canonical struct encoding with fixed field types does that without any
// extra framing.
type Transportee struct {
	Destination int
	FieldIndex  int
	Location    geom.Point
	Kind        Kind
	Object      []byte
	Ordering    int
	Time        float64
	Interval    float64
	// AgentID identifies a KindAgent or KindRepeat transportee across
	// however many hops it takes to arrive, for logging and tracing
	// only — nothing in the transporter keys off it. Empty for
	// KindObject.
	AgentID string
}
