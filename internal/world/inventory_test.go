package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryAddStacksThenFillsEmpty(t *testing.T) {
	inv := NewInventory(3, 10)
	require.Zero(t, inv.Add("wood", 7))
	require.Zero(t, inv.Add("wood", 5))

	assert.Equal(t, 10, inv.Slots[0].Count)
	assert.Equal(t, 2, inv.Slots[1].Count)
	assert.Nil(t, inv.Slots[2])
	assert.Equal(t, 12, inv.Count("wood"))
}

func TestInventoryOverflowIsReported(t *testing.T) {
	inv := NewInventory(2, 5)
	inv.Add("stone", 5)
	overflow := inv.Add("wood", 8)
	assert.Equal(t, 3, overflow)
	assert.Equal(t, 5, inv.Count("wood"))
	assert.Zero(t, inv.Space("wood"))
}

func TestInventoryRemoveAcrossSlots(t *testing.T) {
	inv := NewInventory(4, 3)
	inv.Add("fiber", 7)
	assert.True(t, inv.Has(map[string]int{"fiber": 7}))
	assert.False(t, inv.Has(map[string]int{"fiber": 8}))

	assert.Equal(t, 5, inv.Remove("fiber", 5))
	assert.Equal(t, 2, inv.Count("fiber"))
	assert.Equal(t, 2, inv.Remove("fiber", 5), "нельзя забрать больше, чем есть")
	for _, s := range inv.Slots {
		assert.Nil(t, s)
	}
}

func TestInventorySwapAndTake(t *testing.T) {
	inv := NewInventory(3, 10)
	inv.Add("berries", 2)
	require.NoError(t, inv.Swap(0, 2))
	assert.Nil(t, inv.Slots[0])

	item, err := inv.TakeFromSlot(2)
	require.NoError(t, err)
	assert.Equal(t, "berries", item)
	assert.Equal(t, 1, inv.Count("berries"))

	_, err = inv.TakeFromSlot(0)
	assert.ErrorIs(t, err, ErrEmptySlot)
	assert.ErrorIs(t, inv.Swap(0, 3), ErrSlotOutOfRange)
}

func TestInventoryCloneIsDeep(t *testing.T) {
	inv := NewInventory(2, 10)
	inv.Add("wood", 1)
	c := inv.Clone()
	c.Add("wood", 1)
	assert.Equal(t, 1, inv.Count("wood"))
	assert.Equal(t, 2, c.Count("wood"))
}
