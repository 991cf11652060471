// Package interest вычисляет зону видимости игроков и формирует
// сообщения синхронизации чанков: chunkAdd, chunkRemove, entityDelta.
package interest

import (
	"sort"

	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
)

type chunkSet map[vec.Vec2]struct{}

// Manager хранит набор синхронизированных чанков каждого игрока.
// Наборы меняются только внутри Update/Reset/Forget.
type Manager struct {
	radius   int
	sets     map[string]chunkSet
	watchers map[vec.Vec2]int
}

// NewManager создаёт менеджер с радиусом обзора в чанках (Chebyshev)
func NewManager(radius int) *Manager {
	return &Manager{
		radius:   radius,
		sets:     make(map[string]chunkSet),
		watchers: make(map[vec.Vec2]int),
	}
}

// Ring квадрат чанков радиуса radius вокруг center в детерминированном порядке
func Ring(center vec.Vec2, radius int) []vec.Vec2 {
	out := make([]vec.Vec2, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			out = append(out, vec.Vec2{X: center.X + dx, Y: center.Y + dy})
		}
	}
	return out
}

// Update пересчитывает зону видимости игрока и возвращает сообщения в порядке отправки:
// chunkAdd для новых чанков, chunkRemove для ушедших, затем entityDelta для остальных.
// Для чанков, добавленных в этом тике, дельта не шлётся: снимок уже отражает тик.
func (m *Manager) Update(w *world.World, p *world.PlayerState) []protocol.ServerMessage {
	old := m.sets[p.ID]
	next := make(chunkSet)
	if p.Spawned {
		for _, c := range Ring(p.Chunk, m.radius) {
			next[c] = struct{}{}
		}
	}

	var added, removed, kept []vec.Vec2
	for c := range next {
		if _, ok := old[c]; ok {
			kept = append(kept, c)
		} else {
			added = append(added, c)
		}
	}
	for c := range old {
		if _, ok := next[c]; !ok {
			removed = append(removed, c)
		}
	}
	sortCoords(added)
	sortCoords(removed)
	sortCoords(kept)

	msgs := make([]protocol.ServerMessage, 0, len(added)+len(removed))
	for _, coord := range added {
		c, _ := w.EnsureChunk(coord)
		msgs = append(msgs, Snapshot(w, c))
		m.watchers[coord]++
	}
	for _, coord := range removed {
		msgs = append(msgs, protocol.ChunkRemove{Coord: coord})
		m.unwatch(coord)
	}
	// Дельта только для чанков, видимых и на прошлом тике: chunkAdd уже
	// несёт полный снимок, а пустую дельту (чанк без изменений) не шлём.
	for _, coord := range kept {
		c, ok := w.Chunk(coord)
		if !ok {
			continue
		}
		if d, ok := Delta(w, c); ok {
			msgs = append(msgs, d)
		}
	}

	if len(next) == 0 {
		delete(m.sets, p.ID)
	} else {
		m.sets[p.ID] = next
	}
	return msgs
}

// Reset забывает набор игрока, не отправляя chunkRemove.
// На следующем Update клиент получит свежие chunkAdd для всей зоны.
func (m *Manager) Reset(playerID string) {
	for c := range m.sets[playerID] {
		m.unwatch(c)
	}
	delete(m.sets, playerID)
}

// Forget удаляет игрока при выходе
func (m *Manager) Forget(playerID string) {
	m.Reset(playerID)
}

// Watched true если чанк входит хотя бы в одну зону видимости
func (m *Manager) Watched(coord vec.Vec2) bool {
	return m.watchers[coord] > 0
}

// Set текущий набор чанков игрока
func (m *Manager) Set(playerID string) []vec.Vec2 {
	out := make([]vec.Vec2, 0, len(m.sets[playerID]))
	for c := range m.sets[playerID] {
		out = append(out, c)
	}
	sortCoords(out)
	return out
}

func (m *Manager) unwatch(coord vec.Vec2) {
	if m.watchers[coord] <= 1 {
		delete(m.watchers, coord)
		return
	}
	m.watchers[coord]--
}

func sortCoords(cs []vec.Vec2) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].Less(cs[j]) })
}
