package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsValid(t *testing.T) {
	c := Default()
	require.NotEmpty(t, c.Biomes)
	assert.Contains(t, c.Recipes, "stone_axe")
	assert.Equal(t, "tundra", c.BiomeForNoise(0).ID)
	assert.Equal(t, "desert", c.BiomeForNoise(1).ID)
	assert.Equal(t, c.Biomes[len(c.Biomes)-1].ID, c.BiomeForNoise(5).ID)

	ids := c.AchievementIDs()
	assert.IsIncreasing(t, ids)
}

func TestParseRejectsDanglingReferences(t *testing.T) {
	data := []byte(`
items:
  - {id: wood}
recipes:
  - {id: plank, inputs: {wood: 1}, output: plank}
biomes:
  - {id: void, max_noise: 1}
`)
	_, err := Parse(data)
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("itemz: []\n"))
	assert.Error(t, err)
}

func TestRecipeOutputCountDefaultsToOne(t *testing.T) {
	data := []byte(`
items:
  - {id: wood}
  - {id: plank}
recipes:
  - {id: plank, inputs: {wood: 1}, output: plank}
biomes:
  - {id: void, max_noise: 1}
`)
	c, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Recipes["plank"].OutputCount)
}
