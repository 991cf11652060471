package world

import "github.com/annel0/wildlands/internal/vec"

// Settlement поселение с ядром, создающим безопасную зону
type Settlement struct {
	ID        string
	Name      string
	Position  vec.Vec2Float
	CoreLevel int
	Integrity float64 // 0..1
	Spawn     vec.Vec2Float
}

// SafeRadius радиус безопасной зоны. Разрушенное ядро (integrity <= 0) зоны не даёт.
func (s *Settlement) SafeRadius(base, perLevel float64) float64 {
	if s.Integrity <= 0 {
		return 0
	}
	lvl := s.CoreLevel
	if lvl < 1 {
		lvl = 1
	}
	return base + perLevel*float64(lvl-1)
}

// Protects true если точка внутри безопасной зоны
func (s *Settlement) Protects(pos vec.Vec2Float, base, perLevel float64) bool {
	r := s.SafeRadius(base, perLevel)
	return r > 0 && s.Position.DistanceTo(pos) <= r
}
