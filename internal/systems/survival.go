package systems

import "math"

// Survival уменьшает голод и жажду, наносит урон от истощения,
// меняет температуру по биому и лечит сытых игроков
type Survival struct{}

func (Survival) Name() string { return "survival" }

func (Survival) Run(ctx *Context) error {
	s := ctx.Config.Survival
	dt := ctx.DT
	w := ctx.World

	for _, p := range w.Players() {
		if !p.Active() {
			p.Vitals.Clamp(s)
			continue
		}
		v := &p.Vitals

		v.Hunger -= s.HungerDecay * dt
		if v.Hunger <= 0 {
			v.Health -= s.StarveDamage * dt
		}

		thirstMul := 1.0
		tempDelta := 0.0
		if c, ok := w.Chunk(p.Chunk); ok {
			if b, ok := ctx.Catalog.Biome(c.Biome); ok {
				tempDelta = b.Temperature
				if b.Thirst > 0 {
					thirstMul = b.Thirst
				}
			}
		}
		if w.Protected(p.WorldPos(w.ChunkSize())) {
			v.Temperature = drift(v.Temperature, s.NeutralTemp, s.ShelterWarmth*dt)
		} else {
			v.Temperature += tempDelta * dt
		}

		if s.ThirstEnabled {
			v.Thirst -= s.ThirstDecay * thirstMul * dt
			if v.Thirst <= 0 {
				v.Health -= s.DehydrateDamage * dt
			}
		}

		hydrated := !s.ThirstEnabled || v.Thirst > 0
		if v.Health >= s.HealThreshold && v.Hunger > 0 && hydrated {
			v.Health += s.HealRate * dt
		}

		v.Clamp(s)
	}
	return nil
}

// drift приближает value к target не более чем на step, без перелёта
func drift(value, target, step float64) float64 {
	d := target - value
	if math.Abs(d) <= step {
		return target
	}
	return value + math.Copysign(step, d)
}
