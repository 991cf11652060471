package interest

import (
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/world"
)

// EntityView переводит сущность мира в представление для клиента
func EntityView(e world.Entity) protocol.EntityView {
	v := protocol.EntityView{
		ID:       e.EntityID(),
		Kind:     e.Kind().String(),
		Template: e.Template(),
		Pos:      e.Pos(),
	}
	switch x := e.(type) {
	case *world.Resource:
		v.Charges = x.Charges
	case *world.Mob:
		v.Health = x.Health
		v.Hostile = x.Hostile
	case *world.Structure:
		v.Owner = x.Owner
	case *world.NPC:
		v.Owner = x.Settlement
	}
	return v
}

// PlayerView представление игрока для соседей
func PlayerView(p *world.PlayerState, chunkSize float64) protocol.PlayerView {
	return protocol.PlayerView{
		ID:    p.ID,
		Name:  p.Username,
		Pos:   p.WorldPos(chunkSize),
		Level: p.Level,
	}
}

// Snapshot полный снимок чанка
func Snapshot(w *world.World, c *world.Chunk) protocol.ChunkAdd {
	msg := protocol.ChunkAdd{
		Coord:      c.Coords,
		Biome:      c.Biome,
		Settlement: c.Settlement,
		Entities:   make([]protocol.EntityView, 0, c.EntityCount()),
		Players:    make([]protocol.PlayerView, 0, len(c.Players)),
	}
	for _, e := range c.Entities() {
		msg.Entities = append(msg.Entities, EntityView(e))
	}
	for _, id := range c.PlayerIDs() {
		if p, ok := w.Player(id); ok {
			msg.Players = append(msg.Players, PlayerView(p, w.ChunkSize()))
		}
	}
	return msg
}

// Delta изменения чанка за тик. Для чанка без отслеживания изменений
// (NeedsFullSync) возвращается полный набор с Full=true.
// ok=false означает, что отправлять нечего.
func Delta(w *world.World, c *world.Chunk) (protocol.EntityDelta, bool) {
	msg := protocol.EntityDelta{Coord: c.Coords}
	if c.NeedsFullSync {
		snap := Snapshot(w, c)
		msg.Full = true
		msg.Entities = snap.Entities
		msg.Players = snap.Players
		return msg, true
	}
	if !c.HasChanges() {
		return msg, false
	}

	changed, removed := c.Changes()
	for _, e := range changed {
		msg.Entities = append(msg.Entities, EntityView(e))
	}
	msg.Removed = removed

	moved, gone := c.PlayerChanges()
	for _, id := range moved {
		if p, ok := w.Player(id); ok {
			msg.Players = append(msg.Players, PlayerView(p, w.ChunkSize()))
		}
	}
	msg.PlayersGone = gone

	empty := len(msg.Entities) == 0 && len(msg.Removed) == 0 && len(msg.Players) == 0 && len(msg.PlayersGone) == 0
	return msg, !empty
}

// Status собственное состояние игрока для уведомления status
func Status(p *world.PlayerState, chunkSize float64) protocol.Status {
	inv := make([]*protocol.SlotView, len(p.Inventory.Slots))
	for i, s := range p.Inventory.Slots {
		if s != nil {
			inv[i] = &protocol.SlotView{Item: s.Item, Count: s.Count}
		}
	}
	return protocol.Status{
		Health:       p.Vitals.Health,
		Hunger:       p.Vitals.Hunger,
		Thirst:       p.Vitals.Thirst,
		Temperature:  p.Vitals.Temperature,
		Pos:          p.WorldPos(chunkSize),
		Level:        p.Level,
		XP:           p.XP,
		Spawned:      p.Spawned,
		RespawnIn:    p.RespawnCooldown,
		SelectedSlot: p.SelectedSlot,
		Inventory:    inv,
	}
}
