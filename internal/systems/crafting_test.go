package systems

import (
	"testing"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCraftInsufficientInputsLeavesInventoryUnchanged(t *testing.T) {
	ctx, rec, p := fixture(t)
	ctx.Catalog.Recipes["plank"] = catalog.Recipe{ID: "plank", Inputs: map[string]int{"wood": 2}, Output: "rope", OutputCount: 1}
	p.Inventory.Add("wood", 1)
	before := p.Inventory.Clone()

	err := Craft(ctx, p, "plank")
	assert.ErrorIs(t, err, ErrInsufficientItems)
	assert.Equal(t, before.Slots, p.Inventory.Slots)
	assert.Zero(t, p.Stats[world.StatCrafted])

	// через систему ошибка превращается в уведомление
	ctx.Crafts = append(ctx.Crafts, CraftRequest{PlayerID: p.ID, Recipe: "plank"})
	require.NoError(t, Crafting{}.Run(ctx))
	assert.Equal(t, 1, rec.notices(protocol.NoticeError))
	assert.Equal(t, before.Slots, p.Inventory.Slots)
}

func TestCraftConsumesInputsAndAddsOutput(t *testing.T) {
	ctx, _, p := fixture(t)
	p.Inventory.Add("wood", 3)
	p.Inventory.Add("stone", 1)
	p.Inventory.Add("rope", 1)

	require.NoError(t, Craft(ctx, p, "stone_axe"))
	assert.Equal(t, 1, p.Inventory.Count("wood"))
	assert.Zero(t, p.Inventory.Count("stone"))
	assert.Zero(t, p.Inventory.Count("rope"))
	assert.Equal(t, 1, p.Inventory.Count("stone_axe"))
	assert.Equal(t, 1, p.Stats[world.StatCrafted])
	assert.Equal(t, ctx.Catalog.Recipes["stone_axe"].XP, p.XP)
	require.Len(t, ctx.Progress, 1)
	assert.Equal(t, catalog.ObjectiveCraft, ctx.Progress[0].Kind)
}

func TestCraftUnknownRecipe(t *testing.T) {
	ctx, _, p := fixture(t)
	assert.ErrorIs(t, Craft(ctx, p, "nuke"), ErrUnknownRecipe)
}

func TestCraftOverflowIsDroppedNotDuplicated(t *testing.T) {
	ctx, rec, p := fixture(t)
	ctx.Config.Simulation.MaxStack = 1
	p.Inventory = world.NewInventory(2, 1)
	p.Inventory.Add("fiber", 1)
	p.Inventory.Add("hide", 1)

	// bandage: fiber:2 + hide:1 -> 2 bandage; fiber не хватает
	assert.ErrorIs(t, Craft(ctx, p, "bandage"), ErrInsufficientItems)

	ctx.Catalog.Recipes["bandage"] = catalog.Recipe{ID: "bandage", Inputs: map[string]int{"fiber": 1, "hide": 1}, Output: "bandage", OutputCount: 3}
	require.NoError(t, Craft(ctx, p, "bandage"))
	assert.Equal(t, 2, p.Inventory.Count("bandage"), "влезает только две стопки по одному")
	assert.Equal(t, 1, p.Stats[world.StatItemsDropped])
	assert.Equal(t, 1, rec.notices(protocol.NoticeItemLost))
}
