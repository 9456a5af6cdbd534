package coordination

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/transport"
)

// migrateTarget is the one transporter method TransporterMigrator needs —
// kept minimal so it composes with the Transporter interface above
// without requiring a concrete *transport.Transporter.
type migrateTarget interface {
	Migrate(rec transport.Transportee) error
}

// TransporterMigrator adapts a transport.Transporter into
// halofield.Field[T]'s Migrator dependency: encode the out-of-local
// value with the same msgpack codec the transporter already uses for
// every other wire payload, and hand it off as a KindObject
// transportee. Implements halofield.Migrator by structural typing
// (Migrate(object any, destination int, location geom.Point, fieldIndex
// int) error) without importing halofield, keeping transport wiring
// decoupled from any particular field's element type.
type TransporterMigrator struct {
	transporter migrateTarget
}

// NewTransporterMigrator wraps transporter for use as a Field's Migrator.
func NewTransporterMigrator(transporter migrateTarget) *TransporterMigrator {
	return &TransporterMigrator{transporter: transporter}
}

// Migrate implements halofield.Migrator.
func (m *TransporterMigrator) Migrate(object any, destination int, location geom.Point, fieldIndex int) error {
	raw, err := msgpack.Marshal(object)
	if err != nil {
		return fmt.Errorf("coordination: encoding migrated object for field %d: %w", fieldIndex, err)
	}
	return m.transporter.Migrate(transport.Transportee{
		Destination: destination,
		FieldIndex:  fieldIndex,
		Location:    location,
		Kind:        transport.KindObject,
		Object:      raw,
	})
}

// MigrateAgent sends agent to destination as a KindAgent transportee:
// the receiver schedules it (at time, or at its very next step if time
// is negative) and, unless fieldIndex is transport.NoField, also adds
// it to that field. Each call mints a fresh id via google/uuid so the
// agent's journey across however many forwarding hops can be traced
// through logs by a single value, the way o9nn-echo's orchestration
// engine stamps every spawned agent/task with uuid.New().String() at
// creation.
func (m *TransporterMigrator) MigrateAgent(agent any, destination int, location geom.Point, fieldIndex int,
	at float64, ordering int) error {
	raw, err := msgpack.Marshal(agent)
	if err != nil {
		return fmt.Errorf("coordination: encoding migrated agent for field %d: %w", fieldIndex, err)
	}
	return m.transporter.Migrate(transport.Transportee{
		Destination: destination,
		FieldIndex:  fieldIndex,
		Location:    location,
		Kind:        transport.KindAgent,
		Object:      raw,
		Time:        at,
		Ordering:    ordering,
		AgentID:     uuid.New().String(),
	})
}

// MigrateRepeat sends step to destination as a KindRepeat transportee:
// the receiver arms it as a recurring step at time, then every interval
// thereafter, and, unless fieldIndex is transport.NoField, also adds it
// to that field.
func (m *TransporterMigrator) MigrateRepeat(step any, destination int, location geom.Point, fieldIndex int,
	at, interval float64, ordering int) error {
	raw, err := msgpack.Marshal(step)
	if err != nil {
		return fmt.Errorf("coordination: encoding migrated repeat step for field %d: %w", fieldIndex, err)
	}
	return m.transporter.Migrate(transport.Transportee{
		Destination: destination,
		FieldIndex:  fieldIndex,
		Location:    location,
		Kind:        transport.KindRepeat,
		Object:      raw,
		Time:        at,
		Interval:    interval,
		Ordering:    ordering,
		AgentID:     uuid.New().String(),
	})
}
