package systems

import (
	"testing"

	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGatherDepletesAndSchedulesRespawn(t *testing.T) {
	ctx, _, p := fixture(t)
	pos := p.WorldPos(ctx.World.ChunkSize()).Add(vec.Vec2Float{X: 1})
	tree := ctx.World.SpawnTemplate(world.KindResource, "tree", pos)
	charges := ctx.Catalog.Resources["tree"].Charges

	for i := 0; i < charges; i++ {
		require.NoError(t, Gather(ctx, p, tree.EntityID()))
	}
	assert.Equal(t, charges, p.Inventory.Count("wood"))
	assert.Equal(t, charges, p.Stats[world.StatGathered])

	_, _, ok := ctx.World.Entity(tree.EntityID())
	assert.False(t, ok, "истощённый ресурс удалён")
	c, _ := ctx.World.Chunk(ctx.World.ChunkOf(pos))
	assert.Equal(t, 1, c.PendingCount(world.KindResource, "tree"))
	assert.ErrorIs(t, Gather(ctx, p, tree.EntityID()), ErrUnknownTarget)
}

func TestGatherOutOfRange(t *testing.T) {
	ctx, _, p := fixture(t)
	far := ctx.World.SpawnTemplate(world.KindResource, "rock", p.WorldPos(ctx.World.ChunkSize()).Add(vec.Vec2Float{X: 10}))
	assert.ErrorIs(t, Gather(ctx, p, far.EntityID()), ErrOutOfRange)
}

func TestGatherAndAttackWaitForChunkLoad(t *testing.T) {
	ctx, _, p := fixture(t)
	pos := p.WorldPos(ctx.World.ChunkSize()).Add(vec.Vec2Float{X: 1})
	tree := ctx.World.SpawnTemplate(world.KindResource, "tree", pos)
	rabbit := ctx.World.SpawnTemplate(world.KindMob, "rabbit", pos)
	c, _ := ctx.World.Chunk(ctx.World.ChunkOf(pos))
	persisted := c.Snapshot()

	c.Loading = true
	assert.ErrorIs(t, Gather(ctx, p, tree.EntityID()), ErrChunkNotReady)
	assert.ErrorIs(t, Attack(ctx, p, rabbit.EntityID()), ErrChunkNotReady)
	assert.Zero(t, p.Inventory.Count("wood"), "из загружаемого чанка ничего не берётся")

	require.True(t, ctx.World.RestoreChunk(persisted))
	assert.False(t, c.Loading)
	assert.Len(t, c.Resources, len(persisted.Resources))
	assert.Len(t, c.Mobs, len(persisted.Mobs))
	assert.Zero(t, p.Inventory.Count("wood"))
}

func TestAttackKillsMobAndDropsLoot(t *testing.T) {
	ctx, _, p := fixture(t)
	rabbit := ctx.World.SpawnTemplate(world.KindMob, "rabbit", p.WorldPos(ctx.World.ChunkSize()))
	for i := 0; i < 10; i++ {
		if _, _, ok := ctx.World.Entity(rabbit.EntityID()); !ok {
			break
		}
		require.NoError(t, Attack(ctx, p, rabbit.EntityID()))
	}
	assert.Equal(t, 1, p.Stats[world.StatKills])
	assert.Equal(t, 1, p.Inventory.Count("raw_meat"))
}

func TestPvPBlockedInSafeZone(t *testing.T) {
	ctx, _, p := fixture(t)
	victim := addPlayer(ctx, "p2", vec.Vec2Float{X: 101, Y: 100})
	require.NoError(t, AttackPlayer(ctx, p, victim.ID))
	hurt := victim.Vitals.Health
	assert.Less(t, hurt, ctx.Config.Survival.MaxHealth)

	addSettlement(ctx, 100, 100)
	assert.ErrorIs(t, AttackPlayer(ctx, p, victim.ID), ErrTargetProtected)
	assert.Equal(t, hurt, victim.Vitals.Health)
}

func TestTradeIsAllOrNothing(t *testing.T) {
	ctx, rec, p := fixture(t)
	friend := addPlayer(ctx, "p2", vec.Vec2Float{X: 101, Y: 100})
	p.Inventory.Add("stone", 5)

	assert.ErrorIs(t, Trade(ctx, p, friend.ID, 0, 6), ErrInsufficientItems)
	friend.Inventory = world.NewInventory(1, 2)
	assert.ErrorIs(t, Trade(ctx, p, friend.ID, 0, 3), ErrInventoryFull)
	assert.Equal(t, 5, p.Inventory.Count("stone"))

	require.NoError(t, Trade(ctx, p, friend.ID, 0, 2))
	assert.Equal(t, 3, p.Inventory.Count("stone"))
	assert.Equal(t, 2, friend.Inventory.Count("stone"))
	assert.Equal(t, 1, p.Stats[world.StatTraded])
	assert.Equal(t, 1, rec.notices(protocol.NoticeInfo))
}

func TestUseSelectedRestoresHunger(t *testing.T) {
	ctx, _, p := fixture(t)
	p.Vitals.Hunger = 10
	p.Inventory.Add("berries", 2)
	require.NoError(t, SelectSlot(p, 0))
	require.NoError(t, UseSelected(ctx, p))
	assert.InDelta(t, 10+ctx.Catalog.Items["berries"].Food, p.Vitals.Hunger, 1e-9)
	assert.Equal(t, 1, p.Inventory.Count("berries"))

	p.Inventory.Add("wood", 1)
	require.NoError(t, SwapSlots(p, 0, 1))
	assert.ErrorIs(t, UseSelected(ctx, p), ErrNotConsumable)
	assert.ErrorIs(t, SelectSlot(p, 999), world.ErrSlotOutOfRange)
}

func TestNpcTalkOffersQuests(t *testing.T) {
	ctx, rec, p := fixture(t)
	npc := ctx.World.SpawnTemplate(world.KindNPC, "elder", p.WorldPos(ctx.World.ChunkSize()))
	require.NoError(t, NpcAction(ctx, p, npc.EntityID(), protocol.NpcTalk, ""))
	require.Equal(t, 1, rec.count(protocol.TypeNpcInteraction))
	msg := rec.sent[len(rec.sent)-1].msg.(protocol.NpcInteraction)
	assert.Len(t, msg.Quests, 2)
}

func TestRenameValidation(t *testing.T) {
	ctx, _, p := fixture(t)
	assert.ErrorIs(t, Rename(ctx, p, "x"), ErrInvalidName)
	assert.ErrorIs(t, Rename(ctx, p, "<script>"), ErrInvalidName)
	require.NoError(t, Rename(ctx, p, "  Ранний Лис "))
	assert.Equal(t, "Ранний Лис", p.Username)
}

func TestMoveFollowsIntent(t *testing.T) {
	ctx, _, p := fixture(t)
	start := p.WorldPos(ctx.World.ChunkSize())
	SetIntent(p, 3, 4) // нормализуется до длины 1
	ctx.Begin(1, 0.5)
	Move(ctx)
	moved := p.WorldPos(ctx.World.ChunkSize()).DistanceTo(start)
	assert.InDelta(t, ctx.Config.Simulation.MoveSpeed*0.5, moved, 1e-9)
}
