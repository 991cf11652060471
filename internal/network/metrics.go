package network

import "github.com/prometheus/client_golang/prometheus"

// Metrics метрики websocket-шлюза
//
// * ws_connections_active: gauge
// * ws_auth_rejected: counter, отказ до апгрейда
// * ws_frames_received: counter
// * ws_frames_rate_limited: counter, кадры сверх лимита частоты
// * ws_protocol_errors: counter, соединения, закрытые за нарушение протокола
// * ws_outbound_dropped: counter, сообщения, вытесненные из очереди сессии
// * ws_heartbeat_timeouts: counter
type Metrics struct {
	Connections    prometheus.Gauge
	AuthRejected   prometheus.Counter
	FramesReceived prometheus.Counter
	RateLimited    prometheus.Counter
	ProtocolErrors prometheus.Counter
	OutboundDrops  prometheus.Counter
	Timeouts       prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их в reg (nil: без регистрации)
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Открытые websocket-сессии.",
		}),
		AuthRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_auth_rejected",
			Help: "Подключения без действующего токена.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_frames_received",
			Help: "Принятые кадры клиентов.",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_frames_rate_limited",
			Help: "Кадры, отброшенные лимитом частоты.",
		}),
		ProtocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_protocol_errors",
			Help: "Соединения, закрытые за нарушение протокола.",
		}),
		OutboundDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_outbound_dropped",
			Help: "Исходящие сообщения, вытесненные из переполненной очереди.",
		}),
		Timeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_heartbeat_timeouts",
			Help: "Сессии, закрытые по отсутствию heartbeat.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Connections, m.AuthRejected, m.FramesReceived, m.RateLimited,
			m.ProtocolErrors, m.OutboundDrops, m.Timeouts)
	}
	return m
}
