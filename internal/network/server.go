// Package network websocket-шлюз: проверка токена, строгий разбор кадров,
// heartbeat и неблокирующая исходящая очередь на каждую сессию.
package network

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/annel0/wildlands/internal/auth"
	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/engine"
	"github.com/annel0/wildlands/internal/logging"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// TokenValidator проверяет токен из /session/claim
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// CommandSink принимает команды для движка
type CommandSink interface {
	Enqueue(cmd engine.Command) bool
}

// Gateway обрабатывает websocket-подключения клиентов
type Gateway struct {
	tokens   TokenValidator
	sink     CommandSink
	cfg      config.SessionConfig
	metrics  *Metrics
	upgrader websocket.Upgrader
	log      *logging.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewGateway создаёт шлюз
func NewGateway(tokens TokenValidator, sink CommandSink, cfg config.SessionConfig, m *Metrics) *Gateway {
	if m == nil {
		m = NewMetrics(nil)
	}
	g := &Gateway{
		tokens:   tokens,
		sink:     sink,
		cfg:      cfg,
		metrics:  m,
		log:      logging.GetNetworkLogger(),
		sessions: make(map[string]*Session),
	}
	g.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 16 * 1024,
		CheckOrigin:     g.checkOrigin,
	}
	return g
}

// checkOrigin пустой allowed_origins разрешает любой origin
func (g *Gateway) checkOrigin(r *http.Request) bool {
	if len(g.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, o := range g.cfg.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	if t := r.URL.Query().Get("token"); t != "" {
		return t
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// ServeHTTP GET /ws: токен проверяется до апгрейда, затем Join в движок
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	claims, err := g.tokens.Validate(token)
	if err != nil {
		g.metrics.AuthRejected.Inc()
		g.log.Debug("Отказ в подключении с %s: %v", r.RemoteAddr, err)
		http.Error(w, "invalid or missing session token", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Ошибка апгрейда соединения %s: %v", r.RemoteAddr, err)
		return
	}

	s := newSession(uuid.NewString(), claims.PlayerID(), g.cfg.OutboundQueue, g.metrics)
	if !g.sink.Enqueue(engine.Join{
		PlayerID: claims.PlayerID(),
		Username: claims.Username,
		TokenID:  claims.ID,
		Token:    token,
		Session:  s,
	}) {
		g.log.Warn("Очередь движка переполнена, подключение %s отклонено", r.RemoteAddr)
		msg := websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server busy")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(g.cfg.WriteTimeout))
		conn.Close()
		return
	}
	g.track(s)
	g.metrics.Connections.Inc()
	g.log.Info("Сессия %s игрока %s открыта (%s)", s.id, s.playerID, r.RemoteAddr)

	g.wg.Add(2)
	go g.writePump(conn, s)
	go g.readPump(conn, s)
}

func (g *Gateway) track(s *Session) {
	g.mu.Lock()
	g.sessions[s.id] = s
	g.mu.Unlock()
}

func (g *Gateway) untrack(s *Session) {
	g.mu.Lock()
	delete(g.sessions, s.id)
	g.mu.Unlock()
}

// SessionCount открытые сессии
func (g *Gateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// CloseAll закрывает все сессии и ждёт завершения их горутин
func (g *Gateway) CloseAll(reason string) {
	g.mu.Lock()
	for _, s := range g.sessions {
		s.closeWith(websocket.CloseGoingAway, reason)
	}
	g.mu.Unlock()
	g.wg.Wait()
}

// readPump читает кадры клиента до ошибки, нарушения протокола или таймаута.
// На выходе всегда ставит Leave: движок сверит сессию и отбросит чужой.
func (g *Gateway) readPump(conn *websocket.Conn, s *Session) {
	reason := "closed"
	defer func() {
		g.wg.Done()
		s.closeWith(websocket.CloseNormalClosure, reason)
		g.sink.Enqueue(engine.Leave{PlayerID: s.playerID, Session: s, Reason: reason})
	}()

	timeout := g.cfg.HeartbeatTimeout
	if g.cfg.MaxFrameBytes > 0 {
		conn.SetReadLimit(g.cfg.MaxFrameBytes)
	}
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(timeout))
	})

	var limiter *rate.Limiter
	if g.cfg.FramesPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(g.cfg.FramesPerSecond), max(g.cfg.FrameBurst, 1))
	}

	for {
		msgType, frame, err := conn.ReadMessage()
		if err != nil {
			var netErr interface{ Timeout() bool }
			switch {
			case errors.As(err, &netErr) && netErr.Timeout():
				reason = "heartbeat timeout"
				g.metrics.Timeouts.Inc()
			case errors.Is(err, websocket.ErrReadLimit):
				reason = "frame too large"
				g.metrics.ProtocolErrors.Inc()
				s.closeWith(websocket.CloseMessageTooBig, reason)
			case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived):
				g.log.Debug("Сессия %s: ошибка чтения: %v", s.id, err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(timeout))
		g.metrics.FramesReceived.Inc()

		if limiter != nil && !limiter.Allow() {
			g.metrics.RateLimited.Inc()
			continue
		}
		if msgType != websocket.TextMessage {
			reason = "binary frames are not supported"
			g.protocolError(s, reason)
			return
		}

		msg, err := protocol.Decode(frame)
		if err != nil {
			reason = "protocol error"
			logging.LogProtocolError(s.id, err, frame)
			g.protocolError(s, err.Error())
			return
		}
		cmd, ok := engine.FromMessage(s.playerID, msg)
		if !ok {
			reason = "protocol error"
			g.protocolError(s, "unsupported message")
			return
		}
		// переполненная очередь отбрасывает ввод, движок считает это в input_dropped
		g.sink.Enqueue(cmd)
	}
}

func (g *Gateway) protocolError(s *Session, reason string) {
	g.metrics.ProtocolErrors.Inc()
	// close-фрейм ограничен 125 байтами
	if len(reason) > 120 {
		reason = reason[:120]
	}
	s.closeWith(websocket.ClosePolicyViolation, reason)
}

// writePump отправляет очередь сессии и пингует клиента каждые heartbeat/2
func (g *Gateway) writePump(conn *websocket.Conn, s *Session) {
	interval := g.cfg.HeartbeatTimeout / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		conn.Close()
		g.untrack(s)
		g.metrics.Connections.Dec()
		g.wg.Done()
		g.log.Info("Сессия %s игрока %s закрыта: %s", s.id, s.playerID, s.closeReason)
	}()

	for {
		select {
		case msg := <-s.out:
			if err := g.write(conn, msg); err != nil {
				s.closeWith(websocket.CloseAbnormalClosure, "write failed")
				return
			}

		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.closeWith(websocket.CloseAbnormalClosure, "ping failed")
				return
			}

		case <-s.done:
			// досылаем то, что уже в очереди (sessionRevoked и т.п.), затем close-фрейм
			for {
				select {
				case msg := <-s.out:
					if err := g.write(conn, msg); err != nil {
						return
					}
					continue
				default:
				}
				break
			}
			if s.closeCode != websocket.CloseAbnormalClosure {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(s.closeCode, s.closeReason),
					time.Now().Add(time.Second))
			}
			return
		}
	}
}

func (g *Gateway) write(conn *websocket.Conn, msg protocol.ServerMessage) error {
	data, err := protocol.Encode(msg)
	if err != nil {
		g.log.Error("Не удалось закодировать %s: %v", msg.MessageType(), err)
		return nil
	}
	_ = conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}
