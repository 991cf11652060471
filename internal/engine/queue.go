package engine

import "sync"

// CommandQueue ограниченная FIFO-очередь команд: кольцевой буфер под мьютексом,
// безопасна для многих производителей и одного потребителя (тик).
// При заполнении игровые команды отбрасываются, Join/Leave ждут в overflow,
// сохраняя общий порядок прибытия. Join в overflow не больше joinLimit;
// Leave принимается всегда: их не больше, чем принятых Join.
type CommandQueue struct {
	mu        sync.Mutex
	data      []Command
	head      int
	tail      int
	count     int
	overflow  []Command
	joins     int
	joinLimit int

	// OnDrop вызывается под мьютексом при каждой отброшенной команде
	OnDrop func(Command)
}

// NewCommandQueue создаёт очередь на capacity команд.
// joinLimit ограничивает Join в overflow (<= 0: capacity).
func NewCommandQueue(capacity, joinLimit int) *CommandQueue {
	if capacity <= 0 {
		capacity = 1
	}
	if joinLimit <= 0 {
		joinLimit = capacity
	}
	return &CommandQueue{data: make([]Command, capacity), joinLimit: joinLimit}
}

// Push добавляет команду. false если команда отброшена.
func (q *CommandQueue) Push(cmd Command) bool {
	if cmd == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	// пока overflow не пуст, всё новое встаёт за ним
	if len(q.overflow) > 0 || q.count == len(q.data) {
		_, join := cmd.(Join)
		if isControl(cmd) && (!join || q.joins < q.joinLimit) {
			q.overflow = append(q.overflow, cmd)
			if join {
				q.joins++
			}
			return true
		}
		if q.OnDrop != nil {
			q.OnDrop(cmd)
		}
		return false
	}

	q.data[q.tail] = cmd
	q.tail = (q.tail + 1) % len(q.data)
	q.count++
	return true
}

// Drain забирает не больше max команд в порядке прибытия (max <= 0 - все)
func (q *CommandQueue) Drain(max int) []Command {
	q.mu.Lock()
	defer q.mu.Unlock()

	total := q.count + len(q.overflow)
	if max <= 0 || max > total {
		max = total
	}
	if max == 0 {
		return nil
	}

	out := make([]Command, 0, max)
	for len(out) < max && q.count > 0 {
		out = append(out, q.data[q.head])
		q.data[q.head] = nil
		q.head = (q.head + 1) % len(q.data)
		q.count--
	}
	if n := max - len(out); n > 0 {
		for _, cmd := range q.overflow[:n] {
			if _, ok := cmd.(Join); ok {
				q.joins--
			}
		}
		out = append(out, q.overflow[:n]...)
		rest := copy(q.overflow, q.overflow[n:])
		clear(q.overflow[rest:])
		q.overflow = q.overflow[:rest]
	}
	return out
}

// Len число ожидающих команд
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count + len(q.overflow)
}
