package storage

import (
	"context"
	"testing"

	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleChunk() world.ChunkRecord {
	return world.ChunkRecord{
		Coords: vec.Vec2{X: -3, Y: 7},
		Biome:  "forest",
		Resources: []world.Resource{
			{ID: 10, TemplateID: "tree", Position: vec.Vec2Float{X: -40, Y: 120}, Charges: 2},
		},
		Mobs: []world.Mob{
			{ID: 11, TemplateID: "wolf", Position: vec.Vec2Float{X: -35, Y: 118}, Health: 12, Hostile: true},
		},
		Timers: []world.RespawnTimer{
			{Kind: world.KindResource, Template: "rock", Position: vec.Vec2Float{X: -33, Y: 115}, Remaining: 4.5},
		},
		Version: 9,
	}
}

func TestChunkStores(t *testing.T) {
	badgerStore, err := NewBadgerChunkStore("")
	require.NoError(t, err)
	t.Cleanup(func() { badgerStore.Close() })

	stores := map[string]ChunkStore{
		"memory": NewMemoryChunkStore(),
		"badger": badgerStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rec := sampleChunk()

			_, err := store.LoadChunk(ctx, rec.Coords)
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.SaveChunk(ctx, rec))
			got, err := store.LoadChunk(ctx, rec.Coords)
			require.NoError(t, err)
			assert.Equal(t, rec, *got)

			// перезапись
			rec.Mobs = nil
			rec.Version = 10
			require.NoError(t, store.SaveChunk(ctx, rec))
			got, err = store.LoadChunk(ctx, rec.Coords)
			require.NoError(t, err)
			assert.Empty(t, got.Mobs)
			assert.EqualValues(t, 10, got.Version)
		})
	}
}

func TestBadgerChunkStoreClosed(t *testing.T) {
	store, err := NewBadgerChunkStore("")
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "повторное закрытие безопасно")

	_, err = store.LoadChunk(context.Background(), vec.Vec2{})
	assert.ErrorIs(t, err, ErrClosed)
}
