package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector struct {
	mu  sync.Mutex
	evs []*Envelope
}

func (c *collector) handle(_ context.Context, ev *Envelope) {
	c.mu.Lock()
	c.evs = append(c.evs, ev)
	c.mu.Unlock()
}

func (c *collector) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.evs)
}

func (c *collector) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.evs))
	for _, ev := range c.evs {
		out = append(out, ev.EventType)
	}
	return out
}

func TestMemoryBusFilter(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()

	all, deaths := &collector{}, &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, all.handle)
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), Filter{Types: []string{"player.died"}}, deaths.handle)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "player.joined"}))
	require.NoError(t, bus.Publish(ctx, &Envelope{EventType: "player.died"}))

	require.Eventually(t, func() bool { return all.len() == 2 && deaths.len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"player.died"}, deaths.types())
	assert.EqualValues(t, 2, bus.Metrics().Published)
}

func TestMemoryBusUnsubscribe(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()

	c := &collector{}
	sub, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)
	sub.Unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "x"}))
	require.NoError(t, bus.Close())
	assert.Zero(t, c.len())
}

func TestMemoryBusClosed(t *testing.T) {
	bus := NewMemoryBus(4)
	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close(), "повторный Close безопасен")
	assert.ErrorIs(t, bus.Publish(context.Background(), &Envelope{}), ErrClosed)
}

func TestAsyncPublisherDelivers(t *testing.T) {
	bus := NewMemoryBus(16)
	defer bus.Close()
	c := &collector{}
	_, err := bus.Subscribe(context.Background(), Filter{}, c.handle)
	require.NoError(t, err)

	p := NewAsyncPublisher(bus, "wildlands", 8)
	p.Publish("player.died", "p1", map[string]any{"x": 1.5})
	p.Close()

	require.Eventually(t, func() bool { return c.len() == 1 }, time.Second, 5*time.Millisecond)
	c.mu.Lock()
	ev := c.evs[0]
	c.mu.Unlock()

	assert.Equal(t, "player.died", ev.EventType)
	assert.Equal(t, "p1", ev.PlayerID)
	assert.Equal(t, "wildlands", ev.Source)
	assert.Equal(t, 7, ev.Priority)
	assert.NotEmpty(t, ev.ID)

	var data map[string]any
	require.NoError(t, json.Unmarshal(ev.Payload, &data))
	assert.Equal(t, 1.5, data["x"])
}

// blockingBus держит публикацию, пока тест не отпустит gate
type blockingBus struct {
	gate chan struct{}
}

func (b *blockingBus) Publish(ctx context.Context, _ *Envelope) error {
	select {
	case <-b.gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
func (b *blockingBus) Subscribe(context.Context, Filter, Handler) (Subscription, error) {
	return nil, nil
}
func (b *blockingBus) Metrics() Stats { return Stats{} }
func (b *blockingBus) Close() error   { return nil }

func TestAsyncPublisherNeverBlocks(t *testing.T) {
	bus := &blockingBus{gate: make(chan struct{})}
	p := NewAsyncPublisher(bus, "wildlands", 2)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			p.Publish("player.joined", "p1", nil)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish заблокировался на медленной шине")
	}

	assert.Greater(t, p.Metrics().Dropped, uint64(0))
	close(bus.gate)
	p.Close()

	p.Publish("player.joined", "p1", nil)
}

func TestMetricsExporterUpdate(t *testing.T) {
	bus := NewMemoryBus(4)
	defer bus.Close()
	reg := prometheus.NewRegistry()
	me := NewMetricsExporter(bus, reg)

	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "a"}))
	require.NoError(t, bus.Publish(context.Background(), &Envelope{EventType: "b"}))
	me.update()
	me.update()

	assert.Equal(t, 2.0, testutil.ToFloat64(me.published), "повторный снимок не удваивает счётчик")
}
