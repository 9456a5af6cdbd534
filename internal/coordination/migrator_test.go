package coordination

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dreamware/toroidal-sim/internal/geom"
	"github.com/dreamware/toroidal-sim/internal/transport"
)

type recordingMigrateTarget struct {
	recs []transport.Transportee
	err  error
}

func (r *recordingMigrateTarget) Migrate(rec transport.Transportee) error {
	r.recs = append(r.recs, rec)
	return r.err
}

func TestTransporterMigratorEncodesObjectAsKindObject(t *testing.T) {
	target := &recordingMigrateTarget{}
	m := NewTransporterMigrator(target)

	require.NoError(t, m.Migrate(int32(42), 3, geom.Point{1, 2}, 5))
	require.Len(t, target.recs, 1)
	rec := target.recs[0]
	require.Equal(t, 3, rec.Destination)
	require.Equal(t, 5, rec.FieldIndex)
	require.Equal(t, geom.Point{1, 2}, rec.Location)
	require.Equal(t, transport.KindObject, rec.Kind)

	var decoded int32
	require.NoError(t, msgpack.Unmarshal(rec.Object, &decoded))
	require.Equal(t, int32(42), decoded)
}

func TestTransporterMigratorPropagatesTransporterError(t *testing.T) {
	boom := assertError("migrate failed")
	target := &recordingMigrateTarget{err: boom}
	m := NewTransporterMigrator(target)

	err := m.Migrate(int32(1), 0, geom.Point{0, 0}, 0)
	require.ErrorIs(t, err, boom)
}

type assertError string

func (e assertError) Error() string { return string(e) }

func TestTransporterMigratorEncodesAgentAsKindAgentWithID(t *testing.T) {
	target := &recordingMigrateTarget{}
	m := NewTransporterMigrator(target)

	require.NoError(t, m.MigrateAgent("scout-7", 2, geom.Point{9, 9}, transport.NoField, -1, 3))
	require.Len(t, target.recs, 1)
	rec := target.recs[0]
	require.Equal(t, transport.KindAgent, rec.Kind)
	require.Equal(t, -1.0, rec.Time)
	require.Equal(t, 3, rec.Ordering)
	require.NotEmpty(t, rec.AgentID)

	var decoded string
	require.NoError(t, msgpack.Unmarshal(rec.Object, &decoded))
	require.Equal(t, "scout-7", decoded)
}

func TestTransporterMigratorAgentIDsAreUnique(t *testing.T) {
	target := &recordingMigrateTarget{}
	m := NewTransporterMigrator(target)

	require.NoError(t, m.MigrateAgent("a", 1, geom.Point{0, 0}, transport.NoField, -1, 0))
	require.NoError(t, m.MigrateAgent("b", 1, geom.Point{0, 0}, transport.NoField, -1, 0))
	require.NotEqual(t, target.recs[0].AgentID, target.recs[1].AgentID)
}

func TestTransporterMigratorEncodesRepeatAsKindRepeat(t *testing.T) {
	target := &recordingMigrateTarget{}
	m := NewTransporterMigrator(target)

	require.NoError(t, m.MigrateRepeat("pulse", 4, geom.Point{1, 1}, transport.NoField, 5, 2.5, 1))
	require.Len(t, target.recs, 1)
	rec := target.recs[0]
	require.Equal(t, transport.KindRepeat, rec.Kind)
	require.Equal(t, 5.0, rec.Time)
	require.Equal(t, 2.5, rec.Interval)
	require.NotEmpty(t, rec.AgentID)
}
