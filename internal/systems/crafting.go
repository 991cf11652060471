package systems

import (
	"fmt"
	"math"
	"sort"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/logging"
	"github.com/annel0/wildlands/internal/world"
)

// Crafting обрабатывает запросы на крафт, поставленные в этом тике
type Crafting struct{}

func (Crafting) Name() string { return "crafting" }

func (Crafting) Run(ctx *Context) error {
	for _, req := range ctx.Crafts {
		p, ok := ctx.World.Player(req.PlayerID)
		if !ok {
			continue
		}
		if err := Craft(ctx, p, req.Recipe); err != nil {
			ctx.Fail(p.ID, err)
		}
	}
	return nil
}

// Craft выполняет рецепт атомарно: при нехватке входов инвентарь не меняется.
// Выход докладывается в подходящие стопки, затем в пустые слоты; остаток выбрасывается.
func Craft(ctx *Context, p *world.PlayerState, recipeID string) error {
	if !p.Active() {
		return ErrNotSpawned
	}
	r, ok := ctx.Catalog.Recipes[recipeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRecipe, recipeID)
	}
	if !p.Inventory.Has(r.Inputs) {
		return fmt.Errorf("%w for %s", ErrInsufficientItems, recipeID)
	}

	items := make([]string, 0, len(r.Inputs))
	for item := range r.Inputs {
		items = append(items, item)
	}
	sort.Strings(items)
	for _, item := range items {
		p.Inventory.Remove(item, r.Inputs[item])
	}

	added := ctx.GiveItems(p, r.Output, r.OutputCount)
	if added < r.OutputCount {
		logging.GetEngineLogger().Warn("крафт %s игроком %s: %d шт. %s выброшено, инвентарь полон",
			recipeID, p.ID, r.OutputCount-added, r.Output)
	}

	p.IncStat(world.StatCrafted, 1)
	ctx.AwardXP(p, int(math.Round(float64(r.XP)*p.Bonus("craft_xp"))))
	ctx.progress(p.ID, catalog.ObjectiveCraft, r.Output, 1)
	return nil
}
