package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/annel0/wildlands/internal/logging"
	"github.com/google/uuid"
)

// Приоритеты доменных событий. Высокий приоритет memoryBus не отбрасывает.
var eventPriority = map[string]int{
	"player.died":        7,
	"player.achievement": 6,
}

// AsyncPublisher принимает события из тика и публикует их в шину на своей горутине.
// Publish никогда не блокирует: при заполненном буфере событие отбрасывается.
type AsyncPublisher struct {
	bus     EventBus
	source  string
	timeout time.Duration
	queue   chan *Envelope
	log     *logging.Logger

	dropped uint64
	closed  atomic.Bool
	mu      sync.RWMutex
	done    chan struct{}
}

// NewAsyncPublisher запускает публикатор с буфером buffer
func NewAsyncPublisher(bus EventBus, source string, buffer int) *AsyncPublisher {
	if buffer <= 0 {
		buffer = 1024
	}
	p := &AsyncPublisher{
		bus:     bus,
		source:  source,
		timeout: 2 * time.Second,
		queue:   make(chan *Envelope, buffer),
		log:     logging.GetComponentLogger("eventbus"),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish строит Envelope и ставит его в очередь
func (p *AsyncPublisher) Publish(eventType, playerID string, data map[string]any) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed.Load() {
		atomic.AddUint64(&p.dropped, 1)
		return
	}

	payload, err := json.Marshal(data)
	if err != nil {
		p.log.Warn("Событие %s не сериализуется: %v", eventType, err)
		atomic.AddUint64(&p.dropped, 1)
		return
	}
	ev := &Envelope{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Source:    p.source,
		EventType: eventType,
		Version:   1,
		PlayerID:  playerID,
		Priority:  eventPriority[eventType],
		Payload:   payload,
	}

	select {
	case p.queue <- ev:
	default:
		atomic.AddUint64(&p.dropped, 1)
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.bus.Publish(ctx, ev); err != nil {
			atomic.AddUint64(&p.dropped, 1)
			p.log.Warn("Не удалось опубликовать %s: %v", ev.EventType, err)
		}
		cancel()
	}
}

// Metrics счётчики шины плюс события, отброшенные до неё
func (p *AsyncPublisher) Metrics() Stats {
	s := p.bus.Metrics()
	s.Dropped += atomic.LoadUint64(&p.dropped)
	s.InFlight += len(p.queue)
	return s
}

// Close публикует остаток очереди и останавливает горутину. Шину не закрывает.
func (p *AsyncPublisher) Close() {
	p.mu.Lock()
	if p.closed.Swap(true) {
		p.mu.Unlock()
		return
	}
	close(p.queue)
	p.mu.Unlock()
	<-p.done
}
