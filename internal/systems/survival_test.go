package systems

import (
	"testing"

	"github.com/annel0/wildlands/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStarvationTakesExactlyStarveDamage(t *testing.T) {
	ctx, _, p := fixture(t)
	ctx.Config.Survival.StarveDamage = 1.0
	p.Vitals.Hunger = 0
	p.Vitals.Health = 80

	require.NoError(t, Survival{}.Run(ctx))
	assert.InDelta(t, 79.0, p.Vitals.Health, 1e-9)
	assert.Zero(t, p.Vitals.Hunger)
}

func TestStarvationClampsAtZero(t *testing.T) {
	ctx, _, p := fixture(t)
	ctx.Config.Survival.StarveDamage = 1.0
	p.Vitals.Hunger = 0
	p.Vitals.Health = 0.4

	require.NoError(t, Survival{}.Run(ctx))
	assert.Zero(t, p.Vitals.Health)
}

func TestHealOnlyWhenFedAndAboveThreshold(t *testing.T) {
	ctx, _, p := fixture(t)
	s := ctx.Config.Survival

	p.Vitals.Health = s.HealThreshold
	require.NoError(t, Survival{}.Run(ctx))
	assert.InDelta(t, s.HealThreshold+s.HealRate, p.Vitals.Health, 1e-9)

	p.Vitals.Health = s.HealThreshold - 1
	require.NoError(t, Survival{}.Run(ctx))
	assert.InDelta(t, s.HealThreshold-1, p.Vitals.Health, 1e-9, "ниже порога лечения нет")
}

func TestThirstOptional(t *testing.T) {
	ctx, _, p := fixture(t)
	p.Vitals.Thirst = 0
	p.Vitals.Health = 70
	require.NoError(t, Survival{}.Run(ctx))
	assert.GreaterOrEqual(t, p.Vitals.Health, 70.0, "жажда выключена и не наносит урон")

	ctx.Config.Survival.ThirstEnabled = true
	p.Vitals.Health = 70
	require.NoError(t, Survival{}.Run(ctx))
	assert.InDelta(t, 70-ctx.Config.Survival.DehydrateDamage, p.Vitals.Health, 1e-9)
}

func TestTemperatureDriftsToNeutralInSafeZone(t *testing.T) {
	ctx, _, p := fixture(t)
	addSettlement(ctx, 100, 100)
	s := ctx.Config.Survival
	p.Vitals.Temperature = s.NeutralTemp - 10

	require.NoError(t, Survival{}.Run(ctx))
	assert.InDelta(t, s.NeutralTemp-10+s.ShelterWarmth, p.Vitals.Temperature, 1e-9)
}

func TestVitalsStayInBoundsAfterPipeline(t *testing.T) {
	ctx, _, p := fixture(t)
	other := addPlayer(ctx, "p2", vec.Vec2Float{X: -50, Y: 3})
	p.Vitals.Health = 1e9
	p.Vitals.Temperature = -1e9
	other.Vitals.Hunger = -5
	other.Spawned = false

	pipe := NewPipeline()
	for i := 0; i < 5; i++ {
		ctx.Begin(uint64(i+1), 1)
		pipe.Run(ctx)
		s := ctx.Config.Survival
		for _, pl := range ctx.World.Players() {
			v := pl.Vitals
			assert.True(t, v.Health >= 0 && v.Health <= s.MaxHealth, "health %v", v.Health)
			assert.True(t, v.Hunger >= 0 && v.Hunger <= s.MaxHunger, "hunger %v", v.Hunger)
			assert.True(t, v.Temperature >= s.MinTemperature && v.Temperature <= s.MaxTemperature, "temperature %v", v.Temperature)
		}
	}
}
