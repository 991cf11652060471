package network

import (
	"sync"
	"sync/atomic"

	"github.com/annel0/wildlands/internal/protocol"
	"github.com/gorilla/websocket"
)

// Session исходящая сторона одного соединения.
// Send вызывает только движок, очередь разбирает writePump.
// При переполнении вытесняется самое старое сообщение и поднимается флаг overflow:
// движок по нему сбрасывает зону видимости и шлёт клиенту свежие снимки.
type Session struct {
	id       string
	playerID string

	out      chan protocol.ServerMessage
	overflow atomic.Bool
	closed   atomic.Bool

	closeOnce   sync.Once
	done        chan struct{}
	closeCode   int
	closeReason string

	metrics *Metrics
}

func newSession(id, playerID string, queue int, m *Metrics) *Session {
	if queue <= 0 {
		queue = 1
	}
	return &Session{
		id:       id,
		playerID: playerID,
		out:      make(chan protocol.ServerMessage, queue),
		done:     make(chan struct{}),
		metrics:  m,
	}
}

// ID идентификатор соединения
func (s *Session) ID() string { return s.id }

// PlayerID игрок, которому принадлежит сессия
func (s *Session) PlayerID() string { return s.playerID }

// Send ставит сообщение в очередь, не блокируя вызывающего
func (s *Session) Send(msg protocol.ServerMessage) bool {
	if s.closed.Load() {
		return false
	}
	for {
		select {
		case s.out <- msg:
			return true
		default:
		}
		select {
		case <-s.out:
			s.overflow.Store(true)
			if s.metrics != nil {
				s.metrics.OutboundDrops.Inc()
			}
		default:
		}
	}
}

// TakeOverflow возвращает и сбрасывает флаг потери сообщений
func (s *Session) TakeOverflow() bool { return s.overflow.Swap(false) }

// Close закрывает сессию обычным close-фреймом с причиной
func (s *Session) Close(reason string) {
	s.closeWith(websocket.CloseNormalClosure, reason)
}

func (s *Session) closeWith(code int, reason string) {
	s.closeOnce.Do(func() {
		s.closeCode = code
		s.closeReason = reason
		s.closed.Store(true)
		close(s.done)
	})
}

// Done закрывается вместе с сессией
func (s *Session) Done() <-chan struct{} { return s.done }
