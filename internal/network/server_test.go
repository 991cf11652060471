package network

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/annel0/wildlands/internal/auth"
	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/engine"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu         sync.Mutex
	cmds       []engine.Command
	refuseJoin bool
}

func (s *recordingSink) Enqueue(cmd engine.Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := cmd.(engine.Join); ok && s.refuseJoin {
		return false
	}
	s.cmds = append(s.cmds, cmd)
	return true
}

func (s *recordingSink) all() []engine.Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]engine.Command(nil), s.cmds...)
}

func (s *recordingSink) join() (engine.Join, bool) {
	for _, c := range s.all() {
		if j, ok := c.(engine.Join); ok {
			return j, true
		}
	}
	return engine.Join{}, false
}

func (s *recordingSink) leave() (engine.Leave, bool) {
	for _, c := range s.all() {
		if l, ok := c.(engine.Leave); ok {
			return l, true
		}
	}
	return engine.Leave{}, false
}

func testSessionConfig() config.SessionConfig {
	return config.SessionConfig{
		HeartbeatTimeout: 2 * time.Second,
		WriteTimeout:     time.Second,
		OutboundQueue:    16,
		MaxFrameBytes:    1024,
		FramesPerSecond:  100,
		FrameBurst:       100,
	}
}

type gatewayFixture struct {
	gw     *Gateway
	sink   *recordingSink
	tokens *auth.TokenService
	srv    *httptest.Server
	m      *Metrics
}

func newGatewayFixture(t *testing.T, cfg config.SessionConfig) *gatewayFixture {
	t.Helper()
	tokens, err := auth.NewTokenService("", time.Hour)
	require.NoError(t, err)
	sink := &recordingSink{}
	m := NewMetrics(prometheus.NewRegistry())
	gw := NewGateway(tokens, sink, cfg, m)
	srv := httptest.NewServer(gw)
	t.Cleanup(func() {
		gw.CloseAll("test done")
		srv.Close()
	})
	return &gatewayFixture{gw: gw, sink: sink, tokens: tokens, srv: srv, m: m}
}

func (f *gatewayFixture) dial(t *testing.T, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws"
	if token != "" {
		url += "?token=" + token
	}
	return websocket.DefaultDialer.Dial(url, nil)
}

func (f *gatewayFixture) connect(t *testing.T) (*websocket.Conn, engine.Join) {
	t.Helper()
	token, _, err := f.tokens.Issue("player-1", "fox", "jti-1")
	require.NoError(t, err)
	conn, _, err := f.dial(t, token)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	var join engine.Join
	require.Eventually(t, func() bool {
		var ok bool
		join, ok = f.sink.join()
		return ok
	}, 2*time.Second, 10*time.Millisecond, "Join должен попасть в очередь движка")
	return conn, join
}

func TestRejectsMissingOrInvalidToken(t *testing.T) {
	f := newGatewayFixture(t, testSessionConfig())

	_, resp, err := f.dial(t, "")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = f.dial(t, "garbage")
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Empty(t, f.sink.all(), "без токена движок ничего не получает")
	assert.Equal(t, 2.0, testutil.ToFloat64(f.m.AuthRejected))
}

func TestValidTokenJoinsAndReceivesMessages(t *testing.T) {
	f := newGatewayFixture(t, testSessionConfig())
	conn, join := f.connect(t)

	assert.Equal(t, "player-1", join.PlayerID)
	assert.Equal(t, "fox", join.Username)
	assert.Equal(t, "jti-1", join.TokenID)
	require.NotNil(t, join.Session)

	require.True(t, join.Session.Send(protocol.Welcome{ID: "player-1", TickRate: 20}))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env map[string]any
	require.NoError(t, json.Unmarshal(data, &env))
	assert.Equal(t, "welcome", env["type"])
	assert.Equal(t, 1, f.gw.SessionCount())
}

func TestInputFrameBecomesCommand(t *testing.T) {
	f := newGatewayFixture(t, testSessionConfig())
	conn, _ := f.connect(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage,
		[]byte(`{"type":"input","data":{"moveX":1,"moveY":0,"action":"gather","target":7}}`)))

	require.Eventually(t, func() bool {
		for _, c := range f.sink.all() {
			if in, ok := c.(engine.Input); ok {
				return in.PlayerID == "player-1" && in.MoveX == 1 && in.Action == "gather" && in.Target == 7
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMalformedFrameClosesWithPolicyViolation(t *testing.T) {
	f := newGatewayFixture(t, testSessionConfig())
	conn, join := f.connect(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport","data":{}}`)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.ClosePolicyViolation), "ожидался 1008, получено %v", err)

	require.Eventually(t, func() bool {
		l, ok := f.sink.leave()
		return ok && l.Session == join.Session && l.PlayerID == "player-1"
	}, 2*time.Second, 10*time.Millisecond, "после закрытия движок получает Leave")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.ProtocolErrors))
}

func TestOversizeFrameClosesConnection(t *testing.T) {
	cfg := testSessionConfig()
	cfg.MaxFrameBytes = 64
	f := newGatewayFixture(t, cfg)
	conn, _ := f.connect(t)

	big := `{"type":"name","data":{"name":"` + strings.Repeat("x", 200) + `"}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(big)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)

	require.Eventually(t, func() bool {
		_, ok := f.sink.leave()
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRevokedSessionFlushesQueueBeforeClose(t *testing.T) {
	f := newGatewayFixture(t, testSessionConfig())
	conn, join := f.connect(t)

	join.Session.Send(protocol.SessionRevoked{Reason: "duplicate login"})
	join.Session.Close("duplicate login")

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(data), "sessionRevoked")

	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "ожидался 1000, получено %v", err)
}

func TestBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws?token=abc", nil)
	assert.Equal(t, "abc", bearerToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Authorization", "Bearer xyz")
	assert.Equal(t, "xyz", bearerToken(r))

	r = httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.Empty(t, bearerToken(r))
}

func TestCheckOrigin(t *testing.T) {
	cfg := testSessionConfig()
	cfg.AllowedOrigins = []string{"https://play.example"}
	gw := NewGateway(nil, &recordingSink{}, cfg, nil)

	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.Header.Set("Origin", "https://play.example")
	assert.True(t, gw.checkOrigin(r))
	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, gw.checkOrigin(r))
}

func TestSilentClientTimesOut(t *testing.T) {
	cfg := testSessionConfig()
	cfg.HeartbeatTimeout = 300 * time.Millisecond
	f := newGatewayFixture(t, cfg)
	// клиент не читает, поэтому и не отвечает на ping
	_, join := f.connect(t)

	var leave engine.Leave
	require.Eventually(t, func() bool {
		var ok bool
		leave, ok = f.sink.leave()
		return ok
	}, 3*time.Second, 20*time.Millisecond, "молчащая сессия закрывается по таймауту")
	assert.Equal(t, "heartbeat timeout", leave.Reason)
	assert.Equal(t, join.PlayerID, leave.PlayerID)
	assert.Same(t, join.Session, leave.Session)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.Timeouts))
}

func TestBusyEngineRefusesConnection(t *testing.T) {
	f := newGatewayFixture(t, testSessionConfig())
	f.sink.refuseJoin = true
	token, _, err := f.tokens.Issue("player-1", "fox", "jti-1")
	require.NoError(t, err)

	conn, _, err := f.dial(t, token)
	require.NoError(t, err)
	defer conn.Close()

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseTryAgainLater), "ожидался close 1013, получено %v", err)
	assert.Zero(t, f.gw.SessionCount())
	assert.Empty(t, f.sink.all(), "отклонённое подключение не ставит Leave")
}
