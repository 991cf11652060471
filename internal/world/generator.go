package world

import (
	"math"
	"math/rand"
	"sort"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/aquilax/go-perlin"
)

// BiomeGenerator определяет биом чанка. Результат должен зависеть только от
// координаты и сида, чтобы повторно созданный чанк получал тот же биом.
type BiomeGenerator interface {
	BiomeAt(coord vec.Vec2) string
}

// PerlinBiomes выбирает биом по значению шума Перлина в центре чанка
type PerlinBiomes struct {
	noise      *perlin.Perlin
	catalog    *catalog.Catalog
	BiomeScale float64 // Масштаб шума биомов
}

// NewPerlinBiomes создаёт генератор биомов с указанным сидом
func NewPerlinBiomes(seed int64, cat *catalog.Catalog) *PerlinBiomes {
	alpha := 2.0  // Сглаживание шума
	beta := 2.0   // Частота шума
	n := int32(3) // Количество октав
	return &PerlinBiomes{
		noise:      perlin.NewPerlin(alpha, beta, n, seed),
		catalog:    cat,
		BiomeScale: 0.15,
	}
}

// BiomeAt возвращает id биома для координаты чанка
func (g *PerlinBiomes) BiomeAt(coord vec.Vec2) string {
	x := (float64(coord.X) + 0.5) * g.BiomeScale
	y := (float64(coord.Y) + 0.5) * g.BiomeScale
	// Noise2D возвращает примерно -1..1, приводим к 0..1
	v := (g.noise.Noise2D(x, y) + 1.0) / 2.0
	v = math.Max(0, math.Min(1, v))
	return g.catalog.BiomeForNoise(v).ID
}

// populate заполняет свежий чанк ресурсами и мобами по бюджету биома.
// Для каждого чанка свой сид на основе глобального сида и координат.
func (w *World) populate(c *Chunk) {
	biome, ok := w.catalog.Biome(c.Biome)
	if !ok {
		return
	}
	chunkSeed := w.seed + int64(c.Coords.X)*73856093 + int64(c.Coords.Y)*19349663
	rng := rand.New(rand.NewSource(chunkSeed))
	origin := c.Coords.Origin(w.chunkSize)

	place := func() vec.Vec2Float {
		return origin.Add(vec.Vec2Float{X: rng.Float64() * w.chunkSize, Y: rng.Float64() * w.chunkSize})
	}

	for _, id := range sortedKeys(biome.Resources) {
		for i := 0; i < biome.Resources[id]; i++ {
			w.SpawnTemplate(KindResource, id, place())
		}
	}
	for _, id := range sortedKeys(biome.Mobs) {
		for i := 0; i < biome.Mobs[id]; i++ {
			w.SpawnTemplate(KindMob, id, place())
		}
	}
	// свежесгенерированный чанк ещё никому не отправлялся и не считается грязным
	c.Dirty = false
	c.ClearChanges()
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
