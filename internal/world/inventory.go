package world

import (
	"errors"
	"fmt"
)

var (
	ErrSlotOutOfRange = errors.New("slot out of range")
	ErrEmptySlot      = errors.New("slot is empty")
)

// ItemStack стопка одинаковых предметов
type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Inventory инвентарь с фиксированным числом слотов.
// nil в слоте означает пустой слот.
type Inventory struct {
	Slots    []*ItemStack `json:"slots"`
	MaxStack int          `json:"-"`
}

// NewInventory создаёт пустой инвентарь
func NewInventory(slots, maxStack int) *Inventory {
	return &Inventory{Slots: make([]*ItemStack, slots), MaxStack: maxStack}
}

// Size число слотов. Не меняется после загрузки.
func (inv *Inventory) Size() int { return len(inv.Slots) }

// Count суммарное число предметов item во всех слотах
func (inv *Inventory) Count(item string) int {
	n := 0
	for _, s := range inv.Slots {
		if s != nil && s.Item == item {
			n += s.Count
		}
	}
	return n
}

// Has проверяет наличие всех предметов в нужном количестве
func (inv *Inventory) Has(req map[string]int) bool {
	for item, n := range req {
		if inv.Count(item) < n {
			return false
		}
	}
	return true
}

// Space сколько предметов item ещё поместится
func (inv *Inventory) Space(item string) int {
	free := 0
	for _, s := range inv.Slots {
		switch {
		case s == nil:
			free += inv.MaxStack
		case s.Item == item && s.Count < inv.MaxStack:
			free += inv.MaxStack - s.Count
		}
	}
	return free
}

// Remove забирает до n предметов, начиная с последних слотов. Возвращает сколько забрано.
func (inv *Inventory) Remove(item string, n int) int {
	taken := 0
	for i := len(inv.Slots) - 1; i >= 0 && taken < n; i-- {
		s := inv.Slots[i]
		if s == nil || s.Item != item {
			continue
		}
		k := min(s.Count, n-taken)
		s.Count -= k
		taken += k
		if s.Count == 0 {
			inv.Slots[i] = nil
		}
	}
	return taken
}

// Add кладёт n предметов: сначала докладывает в подходящие стопки,
// затем занимает первые пустые слоты. Возвращает число не поместившихся предметов.
func (inv *Inventory) Add(item string, n int) (overflow int) {
	for _, s := range inv.Slots {
		if n == 0 {
			return 0
		}
		if s != nil && s.Item == item && s.Count < inv.MaxStack {
			k := min(inv.MaxStack-s.Count, n)
			s.Count += k
			n -= k
		}
	}
	for i, s := range inv.Slots {
		if n == 0 {
			return 0
		}
		if s == nil {
			k := min(inv.MaxStack, n)
			inv.Slots[i] = &ItemStack{Item: item, Count: k}
			n -= k
		}
	}
	return n
}

// Slot возвращает стопку в слоте
func (inv *Inventory) Slot(i int) (*ItemStack, error) {
	if i < 0 || i >= len(inv.Slots) {
		return nil, fmt.Errorf("%w: %d", ErrSlotOutOfRange, i)
	}
	if inv.Slots[i] == nil {
		return nil, ErrEmptySlot
	}
	return inv.Slots[i], nil
}

// TakeFromSlot уменьшает стопку в слоте на один предмет
func (inv *Inventory) TakeFromSlot(i int) (string, error) {
	s, err := inv.Slot(i)
	if err != nil {
		return "", err
	}
	s.Count--
	if s.Count <= 0 {
		inv.Slots[i] = nil
	}
	return s.Item, nil
}

// Swap меняет местами содержимое двух слотов
func (inv *Inventory) Swap(a, b int) error {
	if a < 0 || a >= len(inv.Slots) || b < 0 || b >= len(inv.Slots) {
		return fmt.Errorf("%w: %d<->%d", ErrSlotOutOfRange, a, b)
	}
	inv.Slots[a], inv.Slots[b] = inv.Slots[b], inv.Slots[a]
	return nil
}

// Clear опустошает все слоты
func (inv *Inventory) Clear() {
	for i := range inv.Slots {
		inv.Slots[i] = nil
	}
}

// Clone глубокая копия
func (inv *Inventory) Clone() *Inventory {
	out := &Inventory{Slots: make([]*ItemStack, len(inv.Slots)), MaxStack: inv.MaxStack}
	for i, s := range inv.Slots {
		if s != nil {
			c := *s
			out.Slots[i] = &c
		}
	}
	return out
}

// Resize приводит размер к slots. Лишние слоты отбрасываются только при загрузке записи.
func (inv *Inventory) Resize(slots int) {
	if len(inv.Slots) == slots {
		return
	}
	out := make([]*ItemStack, slots)
	copy(out, inv.Slots)
	inv.Slots = out
}
