package systems

import (
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/world"
)

// Death обрабатывает гибель игроков и отсчитывает кулдаун возрождения.
// Инвентарь погибшего теряется целиком, выпадающих предметов нет.
type Death struct{}

func (Death) Name() string { return "death" }

func (Death) Run(ctx *Context) error {
	w := ctx.World
	for _, p := range w.Players() {
		if p.Leaving {
			continue
		}
		if p.Spawned {
			if p.Vitals.Health > 0 {
				continue
			}
			kill(ctx, p)
			continue
		}
		if p.RespawnCooldown > 0 {
			p.RespawnCooldown -= ctx.DT
			if p.RespawnCooldown <= timerEpsilon {
				p.RespawnCooldown = 0
				p.StatusDirty = true
			}
		}
	}
	return nil
}

func kill(ctx *Context, p *world.PlayerState) {
	w := ctx.World
	pos := p.WorldPos(w.ChunkSize())

	p.Inventory.Clear()
	p.Vitals = world.DefaultVitals(ctx.Config.Survival)
	p.Intent = p.Intent.Mul(0)
	w.UnplacePlayer(p)
	p.Spawned = false
	w.MovePlayer(p, w.SpawnPoint(p))
	p.IncStat(world.StatDeaths, 1)
	p.RespawnCooldown = ctx.Config.Survival.RespawnCooldown
	p.StatusDirty = true

	ctx.Out.Send(p.ID, protocol.Notification{
		Kind:    protocol.NoticeDeath,
		Message: "you died",
		Data:    map[string]any{"pos": pos, "respawnIn": p.RespawnCooldown},
	})
	ctx.Out.Emit("player.died", p.ID, map[string]any{"x": pos.X, "y": pos.Y})
}

// Spawn переводит игрока Unspawned -> Spawned
func Spawn(ctx *Context, p *world.PlayerState) error {
	if p.Spawned {
		return ErrAlreadySpawned
	}
	if p.RespawnCooldown > 0 {
		return ErrRespawnCooldown
	}
	p.Spawned = true
	p.Vitals.Clamp(ctx.Config.Survival)
	ctx.World.PlacePlayer(p)
	p.StatusDirty = true
	return nil
}
