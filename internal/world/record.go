package world

import (
	"github.com/annel0/wildlands/internal/vec"
)

// ChunkRecord сериализуемое состояние чанка для хранилища
type ChunkRecord struct {
	Coords     vec.Vec2       `json:"coords"`
	Biome      string         `json:"biome"`
	Settlement string         `json:"settlement,omitempty"`
	Resources  []Resource     `json:"resources,omitempty"`
	Mobs       []Mob          `json:"mobs,omitempty"`
	Structures []Structure    `json:"structures,omitempty"`
	NPCs       []NPC          `json:"npcs,omitempty"`
	Timers     []RespawnTimer `json:"timers,omitempty"`
	Version    uint64         `json:"version"`
}

// Snapshot копирует состояние чанка для асинхронного сохранения
func (c *Chunk) Snapshot() ChunkRecord {
	rec := ChunkRecord{
		Coords:     c.Coords,
		Biome:      c.Biome,
		Settlement: c.Settlement,
		Timers:     append([]RespawnTimer(nil), c.Timers...),
		Version:    c.Version,
	}
	for _, e := range c.Entities() {
		switch v := e.(type) {
		case *Resource:
			rec.Resources = append(rec.Resources, *v)
		case *Mob:
			rec.Mobs = append(rec.Mobs, *v)
		case *Structure:
			rec.Structures = append(rec.Structures, *v)
		case *NPC:
			rec.NPCs = append(rec.NPCs, *v)
		}
	}
	return rec
}

// RestoreChunk заменяет сущности активного чанка загруженной записью.
// Сущности получают новые id, поэтому зрителям нужна полная синхронизация.
func (w *World) RestoreChunk(rec ChunkRecord) bool {
	c, ok := w.chunks[rec.Coords]
	if !ok {
		return false
	}
	for _, e := range c.Entities() {
		delete(w.index, e.EntityID())
	}
	clear(c.Resources)
	clear(c.Mobs)
	clear(c.Structures)
	clear(c.NPCs)

	add := func(e Entity) {
		e = withID(e, w.NextEntityID())
		c.put(e)
		w.index[e.EntityID()] = c.Coords
	}
	for i := range rec.Resources {
		add(&rec.Resources[i])
	}
	for i := range rec.Mobs {
		add(&rec.Mobs[i])
	}
	for i := range rec.Structures {
		add(&rec.Structures[i])
	}
	for i := range rec.NPCs {
		add(&rec.NPCs[i])
	}
	if rec.Biome != "" {
		c.Biome = rec.Biome
	}
	if rec.Settlement != "" {
		c.Settlement = rec.Settlement
	}
	c.Timers = append([]RespawnTimer(nil), rec.Timers...)
	c.ClearChanges()
	c.NeedsFullSync = true
	c.Dirty = false
	c.Loading = false
	return true
}
