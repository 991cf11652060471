package systems

import (
	"testing"

	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespawnTimerTiming(t *testing.T) {
	ctx, _, _ := fixture(t)
	coord := vec.Vec2{X: 0, Y: 0}
	c, _ := ctx.World.EnsureChunk(coord)
	const T = 1.0
	c.ScheduleRespawn(world.RespawnTimer{Kind: world.KindResource, Template: "tree", Position: vec.Vec2Float{X: 3, Y: 3}, Remaining: T})

	dt := 0.05
	elapsed := 0.0
	for step := 0; step < 100; step++ {
		ctx.Begin(uint64(step), dt)
		require.NoError(t, Spawning{}.Run(ctx))
		elapsed += dt
		if len(c.Resources) > 0 {
			assert.GreaterOrEqual(t, elapsed, T-1e-9, "сущность появилась раньше таймера")
			assert.Less(t, elapsed, T+dt, "сущность должна появиться в пределах тика после таймера")
			assert.Empty(t, c.Timers)
			assert.True(t, c.Dirty)
			return
		}
	}
	t.Fatal("ресурс так и не появился")
}

func TestSpawningFillsBiomeBudget(t *testing.T) {
	ctx, _, _ := fixture(t)
	c, _ := ctx.World.EnsureChunk(vec.Vec2{X: 2, Y: 2})
	c.Biome = "plains"

	require.NoError(t, Spawning{}.Run(ctx))
	b, _ := ctx.Catalog.Biome("plains")
	assert.Equal(t, b.Resources["grass"], c.PendingCount(world.KindResource, "grass"))
	assert.Equal(t, b.Mobs["rabbit"], c.PendingCount(world.KindMob, "rabbit"))

	// повторный запуск не планирует лишнего
	before := len(c.Timers)
	ctx.Begin(2, 0.01)
	require.NoError(t, Spawning{}.Run(ctx))
	assert.Len(t, c.Timers, before)
}

func TestSafeZoneProtectsFromHostileMob(t *testing.T) {
	ctx, _, p := fixture(t)
	s := addSettlement(ctx, 100, 100)
	require.True(t, ctx.World.Protected(p.WorldPos(ctx.World.ChunkSize())))

	// моб у самой границы зоны, снаружи радиуса
	r := s.SafeRadius(ctx.Config.Simulation.SafeZoneBaseRadius, ctx.Config.Simulation.SafeZonePerLevelRadius)
	ctx.World.AddEntity(&world.Mob{TemplateID: "wolf", Position: vec.Vec2Float{X: 100 + r + 0.5, Y: 100}, Health: 30, Hostile: true})
	ctx.World.MovePlayer(p, vec.Vec2Float{X: 100 + r - 0.5, Y: 100})
	health := p.Vitals.Health

	require.NoError(t, Barrier{}.Run(ctx))
	assert.Equal(t, health, p.Vitals.Health, "игрок в безопасной зоне неуязвим")

	// шаг наружу: теперь моб достаёт
	ctx.World.MovePlayer(p, vec.Vec2Float{X: 100 + r + 0.2, Y: 100})
	require.NoError(t, Barrier{}.Run(ctx))
	assert.Less(t, p.Vitals.Health, health)
}

func TestBarrierRemovesHostileMobsInsideZone(t *testing.T) {
	ctx, _, _ := fixture(t)
	addSettlement(ctx, 100, 100)
	wolf := ctx.World.AddEntity(&world.Mob{TemplateID: "wolf", Position: vec.Vec2Float{X: 102, Y: 101}, Health: 30, Hostile: true})
	rabbit := ctx.World.AddEntity(&world.Mob{TemplateID: "rabbit", Position: vec.Vec2Float{X: 101, Y: 101}, Health: 10})

	require.NoError(t, Barrier{}.Run(ctx))
	_, _, ok := ctx.World.Entity(wolf.EntityID())
	assert.False(t, ok, "враждебный моб удалён из зоны")
	_, _, ok = ctx.World.Entity(rabbit.EntityID())
	assert.True(t, ok, "мирный моб остаётся")
}

func TestDeathClearsInventoryAndStartsCooldown(t *testing.T) {
	ctx, rec, p := fixture(t)
	p.Inventory.Add("wood", 5)
	p.Vitals.Health = 0

	require.NoError(t, Death{}.Run(ctx))
	assert.False(t, p.Spawned)
	assert.Zero(t, p.Inventory.Count("wood"))
	assert.Equal(t, ctx.Config.Survival.MaxHealth, p.Vitals.Health)
	assert.Equal(t, 1, p.Stats[world.StatDeaths])
	assert.Equal(t, 1, rec.notices(protocol.NoticeDeath))
	assert.Equal(t, ctx.Config.Survival.RespawnCooldown, p.RespawnCooldown)

	assert.ErrorIs(t, Spawn(ctx, p), ErrRespawnCooldown)
	ctx.Begin(2, ctx.Config.Survival.RespawnCooldown)
	require.NoError(t, Death{}.Run(ctx))
	assert.Zero(t, p.RespawnCooldown)

	require.NoError(t, Spawn(ctx, p))
	assert.ErrorIs(t, Spawn(ctx, p), ErrAlreadySpawned)
	assert.Equal(t, vec.Vec2Float{X: ctx.Config.Simulation.SpawnX, Y: ctx.Config.Simulation.SpawnY}, p.WorldPos(ctx.World.ChunkSize()))
}
