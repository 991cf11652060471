package protocol

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	// ErrMalformedFrame кадр не является JSON или не проходит схему
	ErrMalformedFrame = errors.New("malformed frame")
	// ErrUnknownType неизвестный тип сообщения
	ErrUnknownType = errors.New("unknown message type")
	// ErrUnknownField в data есть поле, которого нет в сообщении
	ErrUnknownField = errors.New("unknown field")
)

//go:embed client.schema.json
var clientSchemaJSON string

var clientSchema = jsonschema.MustCompileString("client.schema.json", clientSchemaJSON)

// ClientMessage закрытый вариант входящих сообщений
type ClientMessage interface {
	MessageType() string
	sealedClient()
}

type InputMsg struct {
	MoveX        float64 `json:"moveX"`
	MoveY        float64 `json:"moveY"`
	Action       string  `json:"action,omitempty"`
	Target       uint64  `json:"target,omitempty"`
	TargetPlayer string  `json:"targetPlayer,omitempty"`
}

type SpawnMsg struct{}

type CraftMsg struct {
	Recipe string `json:"recipe"`
}

type TradeMsg struct {
	To    string `json:"to"`
	Slot  int    `json:"slot"`
	Count int    `json:"count"`
}

type NpcActionMsg struct {
	NPC    uint64 `json:"npc"`
	Action string `json:"action"`
	Quest  string `json:"quest,omitempty"`
}

type AcceptQuestMsg struct {
	Quest string `json:"quest"`
}

type SlotMsg struct {
	Slot int `json:"slot"`
}

type SwapSlotsMsg struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type NameMsg struct {
	Name string `json:"name"`
}

func (InputMsg) MessageType() string       { return TypeInput }
func (SpawnMsg) MessageType() string       { return TypeSpawn }
func (CraftMsg) MessageType() string       { return TypeCraft }
func (TradeMsg) MessageType() string       { return TypeTrade }
func (NpcActionMsg) MessageType() string   { return TypeNpcAction }
func (AcceptQuestMsg) MessageType() string { return TypeAcceptQuest }
func (SlotMsg) MessageType() string        { return TypeSlot }
func (SwapSlotsMsg) MessageType() string   { return TypeSwapSlots }
func (NameMsg) MessageType() string        { return TypeName }

func (InputMsg) sealedClient()       {}
func (SpawnMsg) sealedClient()       {}
func (CraftMsg) sealedClient()       {}
func (TradeMsg) sealedClient()       {}
func (NpcActionMsg) sealedClient()   {}
func (AcceptQuestMsg) sealedClient() {}
func (SlotMsg) sealedClient()        {}
func (SwapSlotsMsg) sealedClient()   {}
func (NameMsg) sealedClient()        {}

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Decode проверяет кадр по схеме и строго декодирует его в типизированное сообщение.
// Любая ошибка означает нарушение протокола.
func Decode(frame []byte) (ClientMessage, error) {
	var generic any
	if err := json.Unmarshal(frame, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}
	msg, err := newMessage(env.Type)
	if err != nil {
		return nil, err
	}
	if err := clientSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		dec := json.NewDecoder(bytes.NewReader(env.Data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(msg); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnknownField, env.Type, err)
		}
	}
	return deref(msg), nil
}

func newMessage(typ string) (any, error) {
	switch typ {
	case TypeInput:
		return &InputMsg{}, nil
	case TypeSpawn:
		return &SpawnMsg{}, nil
	case TypeCraft:
		return &CraftMsg{}, nil
	case TypeTrade:
		return &TradeMsg{}, nil
	case TypeNpcAction:
		return &NpcActionMsg{}, nil
	case TypeAcceptQuest:
		return &AcceptQuestMsg{}, nil
	case TypeSlot:
		return &SlotMsg{}, nil
	case TypeSwapSlots:
		return &SwapSlotsMsg{}, nil
	case TypeName:
		return &NameMsg{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
}

func deref(v any) ClientMessage {
	switch m := v.(type) {
	case *InputMsg:
		return *m
	case *SpawnMsg:
		return *m
	case *CraftMsg:
		return *m
	case *TradeMsg:
		return *m
	case *NpcActionMsg:
		return *m
	case *AcceptQuestMsg:
		return *m
	case *SlotMsg:
		return *m
	case *SwapSlotsMsg:
		return *m
	case *NameMsg:
		return *m
	}
	return nil
}

// EncodeClient собирает конверт {type, data}; используется тестами и ботами
func EncodeClient(m ClientMessage) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: m.MessageType(), Data: data})
}
