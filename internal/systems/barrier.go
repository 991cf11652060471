package systems

import (
	"github.com/annel0/wildlands/internal/interest"
	"github.com/annel0/wildlands/internal/world"
)

// Barrier поддерживает безопасные зоны поселений: убирает враждебных мобов
// из зон и применяет атаки мобов к незащищённым игрокам
type Barrier struct{}

func (Barrier) Name() string { return "barrier" }

func (Barrier) Run(ctx *Context) error {
	w := ctx.World
	cfg := ctx.Config.Simulation

	for _, s := range w.Settlements() {
		r := s.SafeRadius(cfg.SafeZoneBaseRadius, cfg.SafeZonePerLevelRadius)
		if r <= 0 {
			continue
		}
		minC := w.ChunkOf(s.Position.Sub(vecOf(r)))
		maxC := w.ChunkOf(s.Position.Add(vecOf(r)))
		for y := minC.Y; y <= maxC.Y; y++ {
			for x := minC.X; x <= maxC.X; x++ {
				c, ok := w.Chunk(vecChunk(x, y))
				if !ok {
					continue
				}
				for _, id := range sortedMobIDs(c) {
					m := c.Mobs[id]
					if m.Hostile && s.Position.DistanceTo(m.Position) <= r {
						w.RemoveEntity(id)
					}
				}
			}
		}
	}

	for _, p := range w.Players() {
		if !p.Active() {
			continue
		}
		pos := p.WorldPos(w.ChunkSize())
		if w.Protected(pos) {
			continue
		}
		for _, coord := range interest.Ring(p.Chunk, 1) {
			c, ok := w.Chunk(coord)
			if !ok {
				continue
			}
			for _, id := range sortedMobIDs(c) {
				m := c.Mobs[id]
				if !m.Hostile || m.Position.DistanceTo(pos) > cfg.MobAggroRange {
					continue
				}
				p.Vitals.Health -= ctx.Catalog.Mobs[m.TemplateID].Damage * ctx.DT
			}
		}
		p.Vitals.Clamp(ctx.Config.Survival)
	}
	return nil
}

// CanHarm проверяет, может ли атакующий навредить игроку-цели:
// никто внутри безопасной зоны не атакует и не может быть атакован
func CanHarm(w *world.World, attacker, target *world.PlayerState) bool {
	size := w.ChunkSize()
	return !w.Protected(attacker.WorldPos(size)) && !w.Protected(target.WorldPos(size))
}
