package interest

import (
	"testing"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flatBiomes struct{}

func (flatBiomes) BiomeAt(vec.Vec2) string { return "void" }

func setup(t *testing.T) (*world.World, *world.PlayerState) {
	t.Helper()
	cat := catalog.Default()
	cat.Settlements = nil
	w := world.New(config.Default(), cat, flatBiomes{})
	p := world.NewPlayer("p1", "alice", "tok", w.Config())
	p.Spawned = true
	w.MovePlayer(p, vec.Vec2Float{X: 15, Y: 8})
	w.AddPlayer(p)
	return w, p
}

func count(msgs []protocol.ServerMessage) (adds, removes, deltas int) {
	for _, m := range msgs {
		switch m.(type) {
		case protocol.ChunkAdd:
			adds++
		case protocol.ChunkRemove:
			removes++
		case protocol.EntityDelta:
			deltas++
		}
	}
	return
}

func TestRing(t *testing.T) {
	assert.Len(t, Ring(vec.Vec2{}, 0), 1)
	r := Ring(vec.Vec2{X: -2, Y: 3}, 2)
	assert.Len(t, r, 25)
	for _, c := range r {
		assert.LessOrEqual(t, c.ChebyshevTo(vec.Vec2{X: -2, Y: 3}), 2)
	}
}

func TestBoundaryCrossingRadiusZero(t *testing.T) {
	w, p := setup(t)
	m := NewManager(0)

	first := m.Update(w, p)
	adds, removes, _ := count(first)
	require.Equal(t, 1, adds)
	require.Zero(t, removes)
	w.ClearChanges()

	w.MovePlayer(p, vec.Vec2Float{X: 17, Y: 8})
	msgs := m.Update(w, p)
	adds, removes, _ = count(msgs)
	assert.Equal(t, 1, adds, "ровно один chunkAdd")
	assert.Equal(t, 1, removes, "ровно один chunkRemove")
	assert.Equal(t, protocol.ChunkRemove{Coord: vec.Vec2{X: 0, Y: 0}}, msgs[1])
	w.ClearChanges()

	// стояние на месте не даёт повторных add/remove
	msgs = m.Update(w, p)
	adds, removes, _ = count(msgs)
	assert.Zero(t, adds)
	assert.Zero(t, removes)
}

func TestChunkAddPrecedesDelta(t *testing.T) {
	w, p := setup(t)
	m := NewManager(1)
	seen := make(map[vec.Vec2]bool)

	for tick := 0; tick < 6; tick++ {
		// изменения в каждом чанке вокруг игрока
		for _, coord := range Ring(p.Chunk, 1) {
			w.SpawnTemplate(world.KindMob, "rabbit", coord.Origin(w.ChunkSize()).Add(vec.Vec2Float{X: 1, Y: 1}))
		}
		for _, msg := range m.Update(w, p) {
			switch v := msg.(type) {
			case protocol.ChunkAdd:
				seen[v.Coord] = true
			case protocol.EntityDelta:
				assert.True(t, seen[v.Coord], "entityDelta для %v пришла раньше chunkAdd", v.Coord)
			}
		}
		w.ClearChanges()
		w.MovePlayer(p, p.WorldPos(w.ChunkSize()).Add(vec.Vec2Float{X: 9}))
	}
}

func TestNoDeltaForChunkAddedThisTickOrUnchanged(t *testing.T) {
	w, p := setup(t)
	m := NewManager(0)
	w.SpawnTemplate(world.KindMob, "rabbit", vec.Vec2Float{X: 2, Y: 2})

	_, _, deltas := count(m.Update(w, p))
	assert.Zero(t, deltas, "снимок уже отражает тик")
	w.ClearChanges()

	_, _, deltas = count(m.Update(w, p))
	assert.Zero(t, deltas, "пустые дельты не отправляются")
}

func TestFullSyncIsExplicit(t *testing.T) {
	w, p := setup(t)
	m := NewManager(0)
	m.Update(w, p)
	w.ClearChanges()

	c, _ := w.Chunk(p.Chunk)
	w.RestoreChunk(world.ChunkRecord{Coords: c.Coords, Mobs: []world.Mob{{TemplateID: "wolf", Health: 30, Hostile: true}}})

	msgs := m.Update(w, p)
	require.Len(t, msgs, 1)
	d, ok := msgs[0].(protocol.EntityDelta)
	require.True(t, ok)
	assert.True(t, d.Full)
	assert.Len(t, d.Entities, 1)
}

func TestResetResendsSnapshotsAndDeathClearsSet(t *testing.T) {
	w, p := setup(t)
	m := NewManager(1)
	m.Update(w, p)
	require.True(t, m.Watched(p.Chunk))

	m.Reset(p.ID)
	assert.False(t, m.Watched(p.Chunk))
	adds, removes, _ := count(m.Update(w, p))
	assert.Equal(t, 9, adds)
	assert.Zero(t, removes)

	p.Spawned = false
	adds, removes, _ = count(m.Update(w, p))
	assert.Zero(t, adds)
	assert.Equal(t, 9, removes)
	assert.Empty(t, m.Set(p.ID))
}
