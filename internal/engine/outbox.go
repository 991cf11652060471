package engine

import "github.com/annel0/wildlands/internal/protocol"

// outbox доставляет сообщения систем в сессии игроков и события в шину
type outbox struct {
	e *Engine
}

func (o *outbox) Send(playerID string, msg protocol.ServerMessage) {
	if s, ok := o.e.sessions[playerID]; ok {
		s.Send(msg)
	}
}

func (o *outbox) Emit(eventType, playerID string, data map[string]any) {
	o.e.emit(eventType, playerID, data)
}
