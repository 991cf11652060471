package engine

import "github.com/annel0/wildlands/internal/protocol"

// Command закрытый вариант команд движка. Команда неизменяема после
// постановки в очередь; порядок применения равен порядку прибытия.
type Command interface {
	Player() string
	sealedCommand()
}

// Outbound канал доставки сообщений одной сессии.
// Реализация обязана не блокировать движок.
type Outbound interface {
	// Send ставит сообщение в очередь сессии; false если сессия закрыта
	Send(msg protocol.ServerMessage) bool
	// TakeOverflow возвращает и сбрасывает флаг потери сообщений с прошлого вызова
	TakeOverflow() bool
	// Close закрывает соединение; reason уходит в close-фрейм
	Close(reason string)
	// ID идентификатор соединения для логов
	ID() string
}

// Join вход игрока. TokenID сверяется с сохранённым токеном,
// Token (подписанная строка) возвращается клиенту в welcome.
type Join struct {
	PlayerID string
	Username string
	TokenID  string
	Token    string
	Session  Outbound
}

// Leave выход. Session отличает выход старой сессии от текущей.
type Leave struct {
	PlayerID string
	Session  Outbound
	Reason   string
}

type Input struct {
	PlayerID     string
	MoveX, MoveY float64
	Action       string
	Target       uint64
	TargetPlayer string
}

type Spawn struct {
	PlayerID string
}

type Craft struct {
	PlayerID string
	Recipe   string
}

type AcceptQuest struct {
	PlayerID string
	Quest    string
}

type SelectSlot struct {
	PlayerID string
	Slot     int
}

type SwapSlots struct {
	PlayerID string
	From, To int
}

type Trade struct {
	PlayerID string
	To       string
	Slot     int
	Count    int
}

type NpcAction struct {
	PlayerID string
	NPC      uint64
	Action   string
	Quest    string
}

type Rename struct {
	PlayerID string
	Name     string
}

func (c Join) Player() string        { return c.PlayerID }
func (c Leave) Player() string       { return c.PlayerID }
func (c Input) Player() string       { return c.PlayerID }
func (c Spawn) Player() string       { return c.PlayerID }
func (c Craft) Player() string       { return c.PlayerID }
func (c AcceptQuest) Player() string { return c.PlayerID }
func (c SelectSlot) Player() string  { return c.PlayerID }
func (c SwapSlots) Player() string   { return c.PlayerID }
func (c Trade) Player() string       { return c.PlayerID }
func (c NpcAction) Player() string   { return c.PlayerID }
func (c Rename) Player() string      { return c.PlayerID }

func (Join) sealedCommand()        {}
func (Leave) sealedCommand()       {}
func (Input) sealedCommand()       {}
func (Spawn) sealedCommand()       {}
func (Craft) sealedCommand()       {}
func (AcceptQuest) sealedCommand() {}
func (SelectSlot) sealedCommand()  {}
func (SwapSlots) sealedCommand()   {}
func (Trade) sealedCommand()       {}
func (NpcAction) sealedCommand()   {}
func (Rename) sealedCommand()      {}

// isControl команды жизненного цикла сессии никогда не отбрасываются
func isControl(c Command) bool {
	switch c.(type) {
	case Join, Leave:
		return true
	}
	return false
}

// FromMessage переводит декодированное сообщение клиента в команду
func FromMessage(playerID string, m protocol.ClientMessage) (Command, bool) {
	switch v := m.(type) {
	case protocol.InputMsg:
		return Input{PlayerID: playerID, MoveX: v.MoveX, MoveY: v.MoveY, Action: v.Action, Target: v.Target, TargetPlayer: v.TargetPlayer}, true
	case protocol.SpawnMsg:
		return Spawn{PlayerID: playerID}, true
	case protocol.CraftMsg:
		return Craft{PlayerID: playerID, Recipe: v.Recipe}, true
	case protocol.TradeMsg:
		return Trade{PlayerID: playerID, To: v.To, Slot: v.Slot, Count: v.Count}, true
	case protocol.NpcActionMsg:
		return NpcAction{PlayerID: playerID, NPC: v.NPC, Action: v.Action, Quest: v.Quest}, true
	case protocol.AcceptQuestMsg:
		return AcceptQuest{PlayerID: playerID, Quest: v.Quest}, true
	case protocol.SlotMsg:
		return SelectSlot{PlayerID: playerID, Slot: v.Slot}, true
	case protocol.SwapSlotsMsg:
		return SwapSlots{PlayerID: playerID, From: v.From, To: v.To}, true
	case protocol.NameMsg:
		return Rename{PlayerID: playerID, Name: v.Name}, true
	}
	return nil, false
}
