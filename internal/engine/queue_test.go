package engine

import (
	"sync"
	"testing"

	"github.com/annel0/wildlands/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFIFO(t *testing.T) {
	q := NewCommandQueue(4, 0)
	for i := 0; i < 3; i++ {
		require.True(t, q.Push(SelectSlot{PlayerID: "p", Slot: i}))
	}
	out := q.Drain(0)
	require.Len(t, out, 3)
	for i, c := range out {
		assert.Equal(t, i, c.(SelectSlot).Slot)
	}
	assert.Zero(t, q.Len())
}

func TestQueueDropsInputWhenFull(t *testing.T) {
	q := NewCommandQueue(2, 0)
	dropped := 0
	q.OnDrop = func(Command) { dropped++ }

	assert.True(t, q.Push(Spawn{PlayerID: "a"}))
	assert.True(t, q.Push(Spawn{PlayerID: "b"}))
	assert.False(t, q.Push(Spawn{PlayerID: "c"}), "ввод при полной очереди отбрасывается")
	assert.Equal(t, 1, dropped)

	assert.True(t, q.Push(Leave{PlayerID: "a"}), "Leave принимается всегда")
	assert.True(t, q.Push(Join{PlayerID: "d"}), "Join принимается всегда")
	assert.False(t, q.Push(Spawn{PlayerID: "e"}), "пока overflow не пуст, ввод не обгоняет управляющие команды")
	assert.Equal(t, 4, q.Len())

	out := q.Drain(0)
	require.Len(t, out, 4)
	assert.Equal(t, []string{"a", "b", "a", "d"}, []string{out[0].Player(), out[1].Player(), out[2].Player(), out[3].Player()})
	assert.IsType(t, Leave{}, out[2])
	assert.IsType(t, Join{}, out[3])
}

func TestQueueCapsJoinBacklog(t *testing.T) {
	q := NewCommandQueue(1, 2)
	var rejected []Command
	q.OnDrop = func(c Command) { rejected = append(rejected, c) }

	require.True(t, q.Push(Spawn{PlayerID: "a"}))
	assert.True(t, q.Push(Join{PlayerID: "b"}))
	assert.True(t, q.Push(Join{PlayerID: "c"}))
	assert.False(t, q.Push(Join{PlayerID: "d"}), "Join сверх лимита отклоняется")
	assert.True(t, q.Push(Leave{PlayerID: "b"}), "Leave не ограничен лимитом Join")
	require.Len(t, rejected, 1)
	assert.Equal(t, "d", rejected[0].Player())

	require.Len(t, q.Drain(2), 2)
	assert.True(t, q.Push(Join{PlayerID: "e"}), "после разбора overflow место для Join освобождается")
	out := q.Drain(0)
	assert.Equal(t, []string{"c", "b", "e"}, []string{out[0].Player(), out[1].Player(), out[2].Player()})
}

func TestQueueDrainRespectsMax(t *testing.T) {
	q := NewCommandQueue(2, 0)
	q.Push(Spawn{PlayerID: "a"})
	q.Push(Spawn{PlayerID: "b"})
	q.Push(Leave{PlayerID: "c"})
	q.Push(Leave{PlayerID: "d"})

	first := q.Drain(3)
	require.Len(t, first, 3)
	assert.Equal(t, "c", first[2].Player())

	rest := q.Drain(3)
	require.Len(t, rest, 1)
	assert.Equal(t, "d", rest[0].Player())
	assert.Nil(t, q.Drain(3))

	// после опустошения overflow ввод снова принимается
	assert.True(t, q.Push(Spawn{PlayerID: "e"}))
}

func TestQueueConcurrentProducers(t *testing.T) {
	q := NewCommandQueue(1000, 0)
	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(Spawn{PlayerID: "p"})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, q.Drain(0), 1000)
}

func TestFromMessage(t *testing.T) {
	cmd, ok := FromMessage("p1", protocol.InputMsg{MoveX: 1, Action: protocol.ActionGather, Target: 7})
	require.True(t, ok)
	assert.Equal(t, Input{PlayerID: "p1", MoveX: 1, Action: protocol.ActionGather, Target: 7}, cmd)

	cmd, ok = FromMessage("p1", protocol.SwapSlotsMsg{From: 1, To: 2})
	require.True(t, ok)
	assert.Equal(t, SwapSlots{PlayerID: "p1", From: 1, To: 2}, cmd)

	cmd, ok = FromMessage("p1", protocol.NameMsg{Name: "Лис"})
	require.True(t, ok)
	assert.Equal(t, "p1", cmd.Player())
}
