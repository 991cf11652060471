package world

import (
	"sort"

	"github.com/annel0/wildlands/internal/vec"
)

// RespawnTimer отложенное появление сущности по шаблону
type RespawnTimer struct {
	Kind      EntityKind    `json:"kind"`
	Template  string        `json:"template"`
	Position  vec.Vec2Float `json:"pos"`
	Remaining float64       `json:"remaining"` // секунды
}

// Chunk представляет участок мира chunk_size x chunk_size.
// Чанком владеет только горутина симуляции, поэтому мьютекса нет.
type Chunk struct {
	Coords     vec.Vec2 // Координаты чанка в мире
	Biome      string
	Settlement string // id поселения, если его ядро стоит в этом чанке

	Resources  map[uint64]*Resource
	Mobs       map[uint64]*Mob
	Structures map[uint64]*Structure
	NPCs       map[uint64]*NPC

	Timers []RespawnTimer

	// Players заспавненные игроки, находящиеся в чанке
	Players map[string]struct{}

	// Отслеживание изменений за текущий тик
	changed        map[uint64]struct{}
	removed        map[uint64]struct{}
	playersChanged map[string]struct{}
	playersGone    map[string]struct{}

	// NeedsFullSync: изменения не отслеживались (чанк подменён загрузкой),
	// зрители получат полный набор сущностей с флагом full.
	NeedsFullSync bool

	Dirty     bool   // есть не сохранённые изменения
	Version   uint64 // растёт при каждом изменении сущностей
	IdleTicks int    // тиков подряд без зрителей и жителей
	Flushing  bool   // сохранение в процессе
	Loading   bool   // ожидается загрузка из хранилища
}

// NewChunk создаёт пустой чанк с указанными координатами
func NewChunk(coords vec.Vec2, biome string) *Chunk {
	return &Chunk{
		Coords:         coords,
		Biome:          biome,
		Resources:      make(map[uint64]*Resource),
		Mobs:           make(map[uint64]*Mob),
		Structures:     make(map[uint64]*Structure),
		NPCs:           make(map[uint64]*NPC),
		Players:        make(map[string]struct{}),
		changed:        make(map[uint64]struct{}),
		removed:        make(map[uint64]struct{}),
		playersChanged: make(map[string]struct{}),
		playersGone:    make(map[string]struct{}),
	}
}

func (c *Chunk) touch() {
	c.Dirty = true
	c.Version++
}

func (c *Chunk) put(e Entity) {
	switch v := e.(type) {
	case *Resource:
		c.Resources[v.ID] = v
	case *Mob:
		c.Mobs[v.ID] = v
	case *Structure:
		c.Structures[v.ID] = v
	case *NPC:
		c.NPCs[v.ID] = v
	}
	id := e.EntityID()
	delete(c.removed, id)
	c.changed[id] = struct{}{}
	c.touch()
}

func (c *Chunk) drop(id uint64) (Entity, bool) {
	e, ok := c.Entity(id)
	if !ok {
		return nil, false
	}
	switch e.Kind() {
	case KindResource:
		delete(c.Resources, id)
	case KindMob:
		delete(c.Mobs, id)
	case KindStructure:
		delete(c.Structures, id)
	case KindNPC:
		delete(c.NPCs, id)
	}
	delete(c.changed, id)
	c.removed[id] = struct{}{}
	c.touch()
	return e, true
}

// Entity ищет сущность по id во всех четырёх картах
func (c *Chunk) Entity(id uint64) (Entity, bool) {
	if r, ok := c.Resources[id]; ok {
		return r, true
	}
	if m, ok := c.Mobs[id]; ok {
		return m, true
	}
	if s, ok := c.Structures[id]; ok {
		return s, true
	}
	if n, ok := c.NPCs[id]; ok {
		return n, true
	}
	return nil, false
}

// MarkChanged помечает сущность изменённой в этом тике
func (c *Chunk) MarkChanged(id uint64) {
	if _, ok := c.Entity(id); !ok {
		return
	}
	c.changed[id] = struct{}{}
	c.touch()
}

// Entities возвращает все сущности, отсортированные по id
func (c *Chunk) Entities() []Entity {
	out := make([]Entity, 0, c.EntityCount())
	for _, r := range c.Resources {
		out = append(out, r)
	}
	for _, m := range c.Mobs {
		out = append(out, m)
	}
	for _, s := range c.Structures {
		out = append(out, s)
	}
	for _, n := range c.NPCs {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID() < out[j].EntityID() })
	return out
}

func (c *Chunk) EntityCount() int {
	return len(c.Resources) + len(c.Mobs) + len(c.Structures) + len(c.NPCs)
}

// Changes возвращает изменённые и удалённые с прошлого тика сущности
func (c *Chunk) Changes() (changed []Entity, removed []uint64) {
	for id := range c.changed {
		if e, ok := c.Entity(id); ok {
			changed = append(changed, e)
		}
	}
	sort.Slice(changed, func(i, j int) bool { return changed[i].EntityID() < changed[j].EntityID() })
	for id := range c.removed {
		removed = append(removed, id)
	}
	sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
	return changed, removed
}

// PlayerChanges возвращает игроков, сдвинувшихся внутри/в чанк, и покинувших его
func (c *Chunk) PlayerChanges() (changed, gone []string) {
	for id := range c.playersChanged {
		if _, ok := c.Players[id]; ok {
			changed = append(changed, id)
		}
	}
	for id := range c.playersGone {
		if _, ok := c.Players[id]; !ok {
			gone = append(gone, id)
		}
	}
	sort.Strings(changed)
	sort.Strings(gone)
	return changed, gone
}

// PlayerIDs заспавненные жители чанка в детерминированном порядке
func (c *Chunk) PlayerIDs() []string {
	out := make([]string, 0, len(c.Players))
	for id := range c.Players {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// HasChanges true если за тик что-то изменилось
func (c *Chunk) HasChanges() bool {
	return len(c.changed) > 0 || len(c.removed) > 0 || len(c.playersChanged) > 0 || len(c.playersGone) > 0
}

// ClearChanges сбрасывает отслеживание после рассылки дельт
func (c *Chunk) ClearChanges() {
	clear(c.changed)
	clear(c.removed)
	clear(c.playersChanged)
	clear(c.playersGone)
	c.NeedsFullSync = false
}

// Occupied true если в чанке есть игроки
func (c *Chunk) Occupied() bool {
	return len(c.Players) > 0
}

// LiveCount число живых сущностей шаблона
func (c *Chunk) LiveCount(kind EntityKind, template string) int {
	n := 0
	switch kind {
	case KindResource:
		for _, r := range c.Resources {
			if r.TemplateID == template {
				n++
			}
		}
	case KindMob:
		for _, m := range c.Mobs {
			if m.TemplateID == template {
				n++
			}
		}
	}
	return n
}

// PendingCount число ожидающих таймеров шаблона
func (c *Chunk) PendingCount(kind EntityKind, template string) int {
	n := 0
	for _, t := range c.Timers {
		if t.Kind == kind && t.Template == template {
			n++
		}
	}
	return n
}

// ScheduleRespawn ставит таймер появления сущности
func (c *Chunk) ScheduleRespawn(t RespawnTimer) {
	c.Timers = append(c.Timers, t)
	c.touch()
}
