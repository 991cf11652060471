package systems

import (
	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/world"
)

// Outbox принимает всё, что системы хотят отправить наружу.
// Реализация обязана не блокировать: сообщения ставятся в очереди.
type Outbox interface {
	Send(playerID string, msg protocol.ServerMessage)
	Emit(eventType, playerID string, data map[string]any)
}

// CraftRequest запрос на крафт, поставленный обработчиком команды
type CraftRequest struct {
	PlayerID string
	Recipe   string
}

// QuestAccept запрос на принятие квеста
type QuestAccept struct {
	PlayerID string
	Quest    string
}

// ProgressEvent событие для целей квестов: сбор, крафт или убийство
type ProgressEvent struct {
	PlayerID string
	Kind     catalog.ObjectiveKind
	Target   string
	Count    int
}

// Context состояние одного тика, общее для обработчиков команд и систем
type Context struct {
	World   *world.World
	Catalog *catalog.Catalog
	Config  *config.Config
	Out     Outbox

	DT   float64
	Tick uint64

	Crafts   []CraftRequest
	Accepts  []QuestAccept
	Progress []ProgressEvent
}

// NewContext создаёт контекст тика
func NewContext(w *world.World, cfg *config.Config, out Outbox) *Context {
	return &Context{World: w, Catalog: w.Catalog(), Config: cfg, Out: out}
}

// Begin готовит контекст к новому тику
func (c *Context) Begin(tick uint64, dt float64) {
	c.Tick = tick
	c.DT = dt
	c.Crafts = c.Crafts[:0]
	c.Accepts = c.Accepts[:0]
	c.Progress = c.Progress[:0]
}

// Notify отправляет игроку уведомление
func (c *Context) Notify(playerID, kind, message string, data any) {
	c.Out.Send(playerID, protocol.Notification{Kind: kind, Message: message, Data: data})
}

// Fail сообщает игроку об отклонённой команде
func (c *Context) Fail(playerID string, err error) {
	c.Notify(playerID, protocol.NoticeError, err.Error(), nil)
}

// AwardXP начисляет опыт и сообщает о повышении уровня
func (c *Context) AwardXP(p *world.PlayerState, xp int) {
	if p.AwardXP(xp, c.Config.Simulation.XPPerLevel) {
		c.Notify(p.ID, protocol.NoticeLevelUp, "", map[string]int{"level": p.Level})
		c.Out.Emit("player.levelUp", p.ID, map[string]any{"level": p.Level})
	}
	p.StatusDirty = true
}

// GiveItems кладёт предметы в инвентарь. То, что не поместилось, выбрасывается:
// игрок получает уведомление, счётчик items_dropped растёт.
func (c *Context) GiveItems(p *world.PlayerState, item string, n int) (added int) {
	overflow := p.Inventory.Add(item, n)
	if overflow > 0 {
		p.IncStat(world.StatItemsDropped, overflow)
		c.Notify(p.ID, protocol.NoticeItemLost, "inventory full", map[string]any{"item": item, "count": overflow})
	}
	p.StatusDirty = true
	return n - overflow
}

func (c *Context) progress(playerID string, kind catalog.ObjectiveKind, target string, n int) {
	c.Progress = append(c.Progress, ProgressEvent{PlayerID: playerID, Kind: kind, Target: target, Count: n})
}
