package systems

import (
	"math/rand"

	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
)

// timerEpsilon гасит накопленную ошибку float при вычитании dt
const timerEpsilon = 1e-9

// Spawning ведёт таймеры возрождения и пополняет чанки до бюджета биома
type Spawning struct{}

func (Spawning) Name() string { return "spawning" }

func (Spawning) Run(ctx *Context) error {
	w := ctx.World
	for _, coord := range w.ChunkCoords() {
		c, ok := w.Chunk(coord)
		if !ok || c.Loading {
			continue
		}
		tickTimers(ctx, c)
		scheduleDeficits(ctx, c)
	}
	return nil
}

func tickTimers(ctx *Context, c *world.Chunk) {
	if len(c.Timers) == 0 {
		return
	}
	w := ctx.World
	pending := c.Timers[:0]
	var expired []world.RespawnTimer
	for _, t := range c.Timers {
		t.Remaining -= ctx.DT
		if t.Remaining <= timerEpsilon {
			expired = append(expired, t)
			continue
		}
		pending = append(pending, t)
	}
	c.Timers = pending
	for _, t := range expired {
		// враждебный моб не появляется внутри безопасной зоны; бюджет назначит новую точку
		if t.Kind == world.KindMob {
			if m, ok := ctx.Catalog.Mobs[t.Template]; ok && m.Hostile && w.Protected(t.Position) {
				continue
			}
		}
		w.SpawnTemplate(t.Kind, t.Template, t.Position)
	}
	c.Dirty = true
}

func scheduleDeficits(ctx *Context, c *world.Chunk) {
	biome, ok := ctx.Catalog.Biome(c.Biome)
	if !ok {
		return
	}
	var rng *rand.Rand
	place := func() vec.Vec2Float {
		if rng == nil {
			seed := ctx.Config.Simulation.WorldSeed ^ int64(ctx.Tick)*2654435761 ^ int64(c.Coords.X)*73856093 ^ int64(c.Coords.Y)*19349663
			rng = rand.New(rand.NewSource(seed))
		}
		size := ctx.World.ChunkSize()
		return c.Coords.Origin(size).Add(vec.Vec2Float{X: rng.Float64() * size, Y: rng.Float64() * size})
	}

	for _, id := range sortedKeys(biome.Resources) {
		deficit := biome.Resources[id] - c.LiveCount(world.KindResource, id) - c.PendingCount(world.KindResource, id)
		for i := 0; i < deficit; i++ {
			c.ScheduleRespawn(world.RespawnTimer{
				Kind: world.KindResource, Template: id, Position: place(),
				Remaining: ctx.Catalog.Resources[id].RespawnSeconds,
			})
		}
	}
	for _, id := range sortedKeys(biome.Mobs) {
		deficit := biome.Mobs[id] - c.LiveCount(world.KindMob, id) - c.PendingCount(world.KindMob, id)
		for i := 0; i < deficit; i++ {
			c.ScheduleRespawn(world.RespawnTimer{
				Kind: world.KindMob, Template: id, Position: place(),
				Remaining: ctx.Catalog.Mobs[id].RespawnSeconds,
			})
		}
	}
}

// ScheduleAfterRemoval ставит таймер возрождения на месте удалённой сущности
func ScheduleAfterRemoval(ctx *Context, c *world.Chunk, e world.Entity) {
	var seconds float64
	switch e.Kind() {
	case world.KindResource:
		seconds = ctx.Catalog.Resources[e.Template()].RespawnSeconds
	case world.KindMob:
		seconds = ctx.Catalog.Mobs[e.Template()].RespawnSeconds
	default:
		return
	}
	c.ScheduleRespawn(world.RespawnTimer{Kind: e.Kind(), Template: e.Template(), Position: e.Pos(), Remaining: seconds})
}
