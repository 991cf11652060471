package systems

import (
	"github.com/annel0/wildlands/internal/protocol"
)

// Achievements открывает достижения, когда счётчик игрока достигает порога.
// Открытое достижение больше никогда не выдаётся повторно.
type Achievements struct{}

func (Achievements) Name() string { return "achievements" }

func (Achievements) Run(ctx *Context) error {
	ids := ctx.Catalog.AchievementIDs()
	for _, p := range ctx.World.Players() {
		if p.Leaving {
			continue
		}
		for _, id := range ids {
			if p.HasAchievement(id) {
				continue
			}
			a := ctx.Catalog.Achievements[id]
			if p.Stats[a.Stat] < a.Requirement {
				continue
			}
			p.Achievements[id] = struct{}{}
			if a.BonusStat != "" {
				p.Bonuses[a.BonusStat] += a.Bonus
			}
			ctx.AwardXP(p, a.XPReward)
			ctx.Out.Send(p.ID, protocol.Achievement{ID: a.ID, Name: a.Name, XP: a.XPReward, Level: p.Level})
			ctx.Out.Emit("player.achievement", p.ID, map[string]any{"achievement": a.ID})
		}
	}
	return nil
}
