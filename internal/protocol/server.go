package protocol

import (
	"encoding/json"

	"github.com/annel0/wildlands/internal/vec"
)

// ServerMessage закрытый вариант исходящих сообщений
type ServerMessage interface {
	MessageType() string
	sealedServer()
}

// EntityView представление сущности чанка для клиента
type EntityView struct {
	ID       uint64        `json:"id"`
	Kind     string        `json:"kind"`
	Template string        `json:"template"`
	Pos      vec.Vec2Float `json:"pos"`
	Health   float64       `json:"health,omitempty"`
	Charges  int           `json:"charges,omitempty"`
	Hostile  bool          `json:"hostile,omitempty"`
	Owner    string        `json:"owner,omitempty"`
}

// PlayerView представление другого игрока
type PlayerView struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Pos   vec.Vec2Float `json:"pos"`
	Level int           `json:"level"`
}

type Welcome struct {
	ID              string  `json:"id"`
	Token           string  `json:"token"`
	ProtocolVersion string  `json:"protocolVersion"`
	Spawned         bool    `json:"spawned"`
	TickRate        int     `json:"tickRate"`
	ChunkSize       float64 `json:"chunkSize"`
}

type SessionRevoked struct {
	Reason string `json:"reason"`
}

// ChunkAdd полный снимок чанка при входе в зону видимости
type ChunkAdd struct {
	Coord      vec.Vec2     `json:"coord"`
	Biome      string       `json:"biome"`
	Settlement string       `json:"settlement,omitempty"`
	Entities   []EntityView `json:"entities"`
	Players    []PlayerView `json:"players"`
}

type ChunkRemove struct {
	Coord vec.Vec2 `json:"coord"`
}

// EntityDelta изменения чанка за тик. При Full=true Entities содержит
// полный набор и клиент заменяет им всё содержимое чанка.
type EntityDelta struct {
	Coord       vec.Vec2     `json:"coord"`
	Full        bool         `json:"full"`
	Entities    []EntityView `json:"entities,omitempty"`
	Removed     []uint64     `json:"removed,omitempty"`
	Players     []PlayerView `json:"players,omitempty"`
	PlayersGone []string     `json:"playersGone,omitempty"`
}

type Achievement struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	XP    int    `json:"xp"`
	Level int    `json:"level"`
}

// Виды уведомлений
const (
	NoticeError    = "error"
	NoticeInfo     = "info"
	NoticeDeath    = "death"
	NoticeStatus   = "status"
	NoticeLevelUp  = "levelUp"
	NoticeItemLost = "itemsDropped"
)

type Notification struct {
	Kind    string `json:"kind"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Status собственное состояние игрока, передаётся в Notification{Kind: status}
type Status struct {
	Health       float64       `json:"health"`
	Hunger       float64       `json:"hunger"`
	Thirst       float64       `json:"thirst,omitempty"`
	Temperature  float64       `json:"temperature"`
	Pos          vec.Vec2Float `json:"pos"`
	Level        int           `json:"level"`
	XP           int           `json:"xp"`
	Spawned      bool          `json:"spawned"`
	RespawnIn    float64       `json:"respawnIn,omitempty"`
	SelectedSlot int           `json:"selectedSlot"`
	Inventory    []*SlotView   `json:"inventory"`
}

type SlotView struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

type QuestOffer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NpcInteraction struct {
	NPC      uint64       `json:"npc"`
	Name     string       `json:"name"`
	Dialogue string       `json:"dialogue"`
	Quests   []QuestOffer `json:"quests,omitempty"`
}

type QuestUpdate struct {
	Quest    string `json:"quest"`
	Status   string `json:"status"`
	Progress []int  `json:"progress"`
	Required []int  `json:"required"`
}

func (Welcome) MessageType() string        { return TypeWelcome }
func (SessionRevoked) MessageType() string { return TypeSessionRevoked }
func (ChunkAdd) MessageType() string       { return TypeChunkAdd }
func (ChunkRemove) MessageType() string    { return TypeChunkRemove }
func (EntityDelta) MessageType() string    { return TypeEntityDelta }
func (Achievement) MessageType() string    { return TypeAchievement }
func (Notification) MessageType() string   { return TypeNotification }
func (NpcInteraction) MessageType() string { return TypeNpcInteraction }
func (QuestUpdate) MessageType() string    { return TypeQuestUpdate }

func (Welcome) sealedServer()        {}
func (SessionRevoked) sealedServer() {}
func (ChunkAdd) sealedServer()       {}
func (ChunkRemove) sealedServer()    {}
func (EntityDelta) sealedServer()    {}
func (Achievement) sealedServer()    {}
func (Notification) sealedServer()   {}
func (NpcInteraction) sealedServer() {}
func (QuestUpdate) sealedServer()    {}

// Encode сериализует сообщение в плоский объект {type, ...полей}
func Encode(m ServerMessage) ([]byte, error) {
	body, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	head := `{"type":"` + m.MessageType() + `"`
	if len(body) <= 2 {
		return []byte(head + "}"), nil
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head...)
	out = append(out, ',')
	return append(out, body[1:]...), nil
}
