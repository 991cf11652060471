package systems

import (
	"sort"

	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
)

func vecOf(r float64) vec.Vec2Float { return vec.Vec2Float{X: r, Y: r} }

func vecChunk(x, y int) vec.Vec2 { return vec.Vec2{X: x, Y: y} }

func sortedMobIDs(c *world.Chunk) []uint64 {
	ids := make([]uint64, 0, len(c.Mobs))
	for id := range c.Mobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
