package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics метрики движка в собственном регистре.
// Имена без namespace: дашборды ждут ровно active_players, tick_overruns и т.д.
//
// Метрики:
// * active_players, active_chunks, input_queue_len: gauge
// * tick_duration_ms: counter, суммарное время тиков
// * tick_overruns: counter, тики дольше бюджета
// * input_dropped: counter, ввод, отброшенный переполненной очередью
// * joins_rejected: counter, Join сверх simulation.join_backlog
// * tick_seconds: histogram
// * system_failures{system}, persistence_failures{op}, outbound_resyncs: counter
type Metrics struct {
	registry *prometheus.Registry

	ActivePlayers prometheus.Gauge
	ActiveChunks  prometheus.Gauge
	QueueLen      prometheus.Gauge

	TickDurationMs prometheus.Counter
	TickOverruns   prometheus.Counter
	InputDropped   prometheus.Counter
	JoinsRejected  prometheus.Counter
	TickSeconds    prometheus.Histogram

	SystemFailures      *prometheus.CounterVec
	PersistenceFailures *prometheus.CounterVec
	OutboundResyncs     prometheus.Counter
}

// NewMetrics создаёт метрики и регистрирует их вместе с go/process коллекторами
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ActivePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_players",
			Help: "Игроки, резидентные в мире.",
		}),
		ActiveChunks: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_chunks",
			Help: "Чанки в активном наборе.",
		}),
		QueueLen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "input_queue_len",
			Help: "Команды, ожидающие тика.",
		}),
		TickDurationMs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tick_duration_ms",
			Help: "Суммарное время выполнения тиков в миллисекундах.",
		}),
		TickOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tick_overruns",
			Help: "Тики, превысившие бюджет 1/tick_rate.",
		}),
		InputDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "input_dropped",
			Help: "Команды, отброшенные переполненной очередью.",
		}),
		JoinsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "joins_rejected",
			Help: "Подключения, отклонённые переполненной очередью команд.",
		}),
		TickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tick_seconds",
			Help:    "Распределение длительности тика.",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		SystemFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "system_failures",
			Help: "Ошибки и паники, изолированные в системах и обработчиках.",
		}, []string{"system"}),
		PersistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "persistence_failures",
			Help: "Неудачные операции хранилища.",
		}, []string{"op"}),
		OutboundResyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "outbound_resyncs",
			Help: "Полные пересинхронизации после переполнения очереди сессии.",
		}),
	}

	m.registry.MustRegister(
		m.ActivePlayers, m.ActiveChunks, m.QueueLen,
		m.TickDurationMs, m.TickOverruns, m.InputDropped, m.JoinsRejected, m.TickSeconds,
		m.SystemFailures, m.PersistenceFailures, m.OutboundResyncs,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry регистр для /metrics и для внешних метрик (HTTP, eventbus)
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
