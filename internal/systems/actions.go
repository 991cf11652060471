package systems

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
)

var nameRe = regexp.MustCompile(`^[\p{L}\p{N}_\- ]{3,20}$`)

// SetIntent запоминает направление движения; длина вектора ограничена единицей
func SetIntent(p *world.PlayerState, x, y float64) {
	in := vec.Vec2Float{X: x, Y: y}
	if !in.IsFinite() {
		in = vec.Vec2Float{}
	}
	if in.Length() > 1 {
		in = in.Normalized()
	}
	p.Intent = in
}

// Move перемещает активных игроков по их намерению движения
func Move(ctx *Context) {
	w := ctx.World
	speed := ctx.Config.Simulation.MoveSpeed
	for _, p := range w.Players() {
		if !p.Active() || p.Intent == (vec.Vec2Float{}) {
			continue
		}
		next := p.WorldPos(w.ChunkSize()).Add(p.Intent.Mul(speed * ctx.DT))
		w.MovePlayer(p, next)
	}
}

func inRange(ctx *Context, p *world.PlayerState, pos vec.Vec2Float) bool {
	return p.WorldPos(ctx.World.ChunkSize()).DistanceTo(pos) <= ctx.Config.Simulation.InteractRange
}

// Gather собирает ресурс. Истощённый ресурс удаляется и ставится на возрождение.
func Gather(ctx *Context, p *world.PlayerState, entityID uint64) error {
	if !p.Active() {
		return ErrNotSpawned
	}
	e, c, ok := ctx.World.Entity(entityID)
	if !ok {
		return ErrUnknownTarget
	}
	// загрузка заменит содержимое чанка целиком
	if c.Loading {
		return ErrChunkNotReady
	}
	r, ok := e.(*world.Resource)
	if !ok {
		return fmt.Errorf("%w: not a resource", ErrUnknownTarget)
	}
	if !inRange(ctx, p, r.Position) {
		return ErrOutOfRange
	}
	t := ctx.Catalog.Resources[r.TemplateID]
	yield := int(math.Floor(float64(t.Yield) * p.Bonus("gather_yield")))
	yield = min(max(yield, 1), p.Inventory.Space(t.Item))
	if yield == 0 {
		return ErrInventoryFull
	}

	p.Inventory.Add(t.Item, yield)
	p.StatusDirty = true
	r.Charges--
	if r.Charges <= 0 {
		ctx.World.RemoveEntity(r.ID)
		ScheduleAfterRemoval(ctx, c, r)
	} else {
		c.MarkChanged(r.ID)
	}

	p.IncStat(world.StatGathered, yield)
	ctx.AwardXP(p, 1)
	ctx.progress(p.ID, catalog.ObjectiveGather, t.Item, yield)
	return nil
}

// Attack бьёт моба. Убитый моб оставляет добычу и ставится на возрождение.
func Attack(ctx *Context, p *world.PlayerState, entityID uint64) error {
	if !p.Active() {
		return ErrNotSpawned
	}
	e, c, ok := ctx.World.Entity(entityID)
	if !ok {
		return ErrUnknownTarget
	}
	if c.Loading {
		return ErrChunkNotReady
	}
	m, ok := e.(*world.Mob)
	if !ok {
		return fmt.Errorf("%w: not a mob", ErrUnknownTarget)
	}
	if !inRange(ctx, p, m.Position) {
		return ErrOutOfRange
	}

	m.Health -= ctx.Config.Simulation.PlayerAttackDamage * p.Bonus("attack_damage")
	if m.Health > 0 {
		c.MarkChanged(m.ID)
		return nil
	}

	t := ctx.Catalog.Mobs[m.TemplateID]
	ctx.World.RemoveEntity(m.ID)
	ScheduleAfterRemoval(ctx, c, m)
	if t.Loot != "" && t.LootCount > 0 {
		ctx.GiveItems(p, t.Loot, t.LootCount)
	}
	p.IncStat(world.StatKills, 1)
	ctx.AwardXP(p, t.XP)
	ctx.progress(p.ID, catalog.ObjectiveKill, t.ID, 1)
	return nil
}

// AttackPlayer PvP-удар. Запрещён, если любой из участников в безопасной зоне.
func AttackPlayer(ctx *Context, p *world.PlayerState, targetID string) error {
	if !p.Active() {
		return ErrNotSpawned
	}
	target, ok := ctx.World.Player(targetID)
	if !ok || !target.Active() || target.ID == p.ID {
		return ErrUnknownTarget
	}
	if !inRange(ctx, p, target.WorldPos(ctx.World.ChunkSize())) {
		return ErrOutOfRange
	}
	if !CanHarm(ctx.World, p, target) {
		return ErrTargetProtected
	}
	target.Vitals.Health -= ctx.Config.Simulation.PlayerAttackDamage * p.Bonus("attack_damage")
	target.Vitals.Clamp(ctx.Config.Survival)
	target.StatusDirty = true
	if target.Vitals.Health <= 0 {
		p.IncStat(world.StatKills, 1)
	}
	return nil
}

// UseSelected использует предмет из выбранного слота (еда, вода, лечение)
func UseSelected(ctx *Context, p *world.PlayerState) error {
	if !p.Active() {
		return ErrNotSpawned
	}
	stack, err := p.Inventory.Slot(p.SelectedSlot)
	if err != nil {
		return err
	}
	item, ok := ctx.Catalog.Items[stack.Item]
	if !ok || !item.Consumable() {
		return ErrNotConsumable
	}
	if _, err := p.Inventory.TakeFromSlot(p.SelectedSlot); err != nil {
		return err
	}
	p.Vitals.Hunger += item.Food
	p.Vitals.Thirst += item.Water
	p.Vitals.Health += item.Heal
	p.Vitals.Clamp(ctx.Config.Survival)
	p.StatusDirty = true
	return nil
}

// Trade передаёт предметы из слота другому игроку рядом. Либо всё, либо ничего.
func Trade(ctx *Context, from *world.PlayerState, toID string, slot, count int) error {
	if !from.Active() {
		return ErrNotSpawned
	}
	to, ok := ctx.World.Player(toID)
	if !ok || !to.Active() || to.ID == from.ID {
		return ErrUnknownTarget
	}
	if !inRange(ctx, from, to.WorldPos(ctx.World.ChunkSize())) {
		return ErrOutOfRange
	}
	stack, err := from.Inventory.Slot(slot)
	if err != nil {
		return err
	}
	if count <= 0 || stack.Count < count {
		return ErrInsufficientItems
	}
	if to.Inventory.Space(stack.Item) < count {
		return ErrInventoryFull
	}
	item := stack.Item
	stack.Count -= count
	if stack.Count == 0 {
		from.Inventory.Slots[slot] = nil
	}
	to.Inventory.Add(item, count)
	from.IncStat(world.StatTraded, 1)
	from.StatusDirty = true
	to.StatusDirty = true
	ctx.Notify(to.ID, protocol.NoticeInfo, "received items", map[string]any{"from": from.Username, "item": item, "count": count})
	return nil
}

// NpcAction разговор с NPC или сдача квеста
func NpcAction(ctx *Context, p *world.PlayerState, npcID uint64, action, questID string) error {
	if !p.Active() {
		return ErrNotSpawned
	}
	e, _, ok := ctx.World.Entity(npcID)
	if !ok {
		return ErrUnknownTarget
	}
	npc, ok := e.(*world.NPC)
	if !ok {
		return fmt.Errorf("%w: not an npc", ErrUnknownTarget)
	}
	if !inRange(ctx, p, npc.Position) {
		return ErrOutOfRange
	}
	t := ctx.Catalog.NPCs[npc.TemplateID]

	switch action {
	case protocol.NpcTalk:
		msg := protocol.NpcInteraction{NPC: npc.ID, Name: t.Name, Dialogue: t.Dialogue}
		for _, qid := range t.Quests {
			if _, done := p.Completed[qid]; done || p.Quest(qid) != nil {
				continue
			}
			msg.Quests = append(msg.Quests, protocol.QuestOffer{ID: qid, Name: ctx.Catalog.Quests[qid].Name})
		}
		ctx.Out.Send(p.ID, msg)
		return nil
	case protocol.NpcTurnIn:
		return TurnIn(ctx, p, npc.TemplateID, questID)
	}
	return fmt.Errorf("%w: npc action %q", ErrUnknownTarget, action)
}

// Rename меняет отображаемое имя игрока
func Rename(ctx *Context, p *world.PlayerState, name string) error {
	name = strings.TrimSpace(name)
	if !nameRe.MatchString(name) {
		return ErrInvalidName
	}
	p.Username = name
	if p.Spawned {
		ctx.World.PlacePlayer(p)
	}
	return nil
}

// SelectSlot выбирает активный слот хотбара
func SelectSlot(p *world.PlayerState, slot int) error {
	if slot < 0 || slot >= p.Inventory.Size() {
		return world.ErrSlotOutOfRange
	}
	p.SelectedSlot = slot
	p.StatusDirty = true
	return nil
}

// SwapSlots меняет местами два слота инвентаря
func SwapSlots(p *world.PlayerState, a, b int) error {
	if err := p.Inventory.Swap(a, b); err != nil {
		return err
	}
	p.StatusDirty = true
	return nil
}
