package protocol

import (
	"encoding/json"
	"testing"

	"github.com/annel0/wildlands/internal/vec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeValidFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  ClientMessage
	}{
		{"input", `{"type":"input","data":{"moveX":1,"moveY":-0.5,"action":"gather","target":7}}`,
			InputMsg{MoveX: 1, MoveY: -0.5, Action: ActionGather, Target: 7}},
		{"spawn без data", `{"type":"spawn"}`, SpawnMsg{}},
		{"spawn с пустой data", `{"type":"spawn","data":{}}`, SpawnMsg{}},
		{"craft", `{"type":"craft","data":{"recipe":"rope"}}`, CraftMsg{Recipe: "rope"}},
		{"trade", `{"type":"trade","data":{"to":"p2","slot":1,"count":3}}`, TradeMsg{To: "p2", Slot: 1, Count: 3}},
		{"npcAction", `{"type":"npcAction","data":{"npc":4,"action":"turnIn","quest":"q"}}`,
			NpcActionMsg{NPC: 4, Action: NpcTurnIn, Quest: "q"}},
		{"acceptQuest", `{"type":"acceptQuest","data":{"quest":"first_steps"}}`, AcceptQuestMsg{Quest: "first_steps"}},
		{"slot", `{"type":"slot","data":{"slot":2}}`, SlotMsg{Slot: 2}},
		{"swapSlots", `{"type":"swapSlots","data":{"from":0,"to":5}}`, SwapSlotsMsg{From: 0, To: 5}},
		{"name", `{"type":"name","data":{"name":"Alice"}}`, NameMsg{Name: "Alice"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeRejectsBadFrames(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		err   error
	}{
		{"не JSON", `{"type":`, ErrMalformedFrame},
		{"неизвестный тип", `{"type":"teleport","data":{}}`, ErrUnknownType},
		{"неизвестное поле в data", `{"type":"craft","data":{"recipe":"rope","extra":1}}`, ErrMalformedFrame},
		{"неизвестное поле в конверте", `{"type":"spawn","extra":true}`, ErrMalformedFrame},
		{"нет обязательного поля", `{"type":"craft","data":{}}`, ErrMalformedFrame},
		{"неверный тип поля", `{"type":"slot","data":{"slot":"one"}}`, ErrMalformedFrame},
		{"движение вне диапазона", `{"type":"input","data":{"moveX":3}}`, ErrMalformedFrame},
		{"неизвестное действие", `{"type":"input","data":{"action":"fly"}}`, ErrMalformedFrame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestEncodeClientRoundTrip(t *testing.T) {
	frame, err := EncodeClient(CraftMsg{Recipe: "campfire"})
	require.NoError(t, err)
	msg, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, CraftMsg{Recipe: "campfire"}, msg)
}

func TestEncodeFlattensType(t *testing.T) {
	data, err := Encode(ChunkRemove{Coord: vec.Vec2{X: -1, Y: 2}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chunkRemove","coord":{"x":-1,"y":2}}`, string(data))

	data, err = Encode(Welcome{ID: "p1", Token: "t", ProtocolVersion: Version, Spawned: true, TickRate: 20, ChunkSize: 16})
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "welcome", m["type"])
	assert.Equal(t, true, m["spawned"])
	assert.Equal(t, Version, m["protocolVersion"])
}
