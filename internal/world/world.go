package world

import (
	"sort"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/vec"
)

// World пространственная модель мира: сетка чанков, игроки и поселения.
// Принадлежит единственной горутине симуляции и не защищён мьютексами.
type World struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	gen       BiomeGenerator
	chunkSize float64
	seed      int64

	chunks      map[vec.Vec2]*Chunk
	index       map[uint64]vec.Vec2 // entity id -> чанк
	players     map[string]*PlayerState
	settlements map[string]*Settlement

	nextEntityID uint64

	// onChunkCreated вызывается для каждого лениво созданного чанка
	onChunkCreated func(*Chunk)
}

// New создаёт мир и размещает поселения из каталога
func New(cfg *config.Config, cat *catalog.Catalog, gen BiomeGenerator) *World {
	if gen == nil {
		gen = NewPerlinBiomes(cfg.Simulation.WorldSeed, cat)
	}
	w := &World{
		cfg:          cfg,
		catalog:      cat,
		gen:          gen,
		chunkSize:    cfg.Simulation.ChunkSize,
		seed:         cfg.Simulation.WorldSeed,
		chunks:       make(map[vec.Vec2]*Chunk),
		index:        make(map[uint64]vec.Vec2),
		players:      make(map[string]*PlayerState),
		settlements:  make(map[string]*Settlement),
		nextEntityID: 1,
	}
	for _, st := range cat.Settlements {
		w.AddSettlement(st)
	}
	return w
}

// ChunkSize размер чанка в мировых единицах
func (w *World) ChunkSize() float64 { return w.chunkSize }

// Catalog шаблоны контента
func (w *World) Catalog() *catalog.Catalog { return w.catalog }

// Config конфигурация мира
func (w *World) Config() *config.Config { return w.cfg }

// OnChunkCreated устанавливает хук на создание чанка (запрос асинхронной загрузки)
func (w *World) OnChunkCreated(fn func(*Chunk)) {
	w.onChunkCreated = fn
}

// NextEntityID выдаёт уникальный id сущности
func (w *World) NextEntityID() uint64 {
	id := w.nextEntityID
	w.nextEntityID++
	return id
}

// ChunkOf координата чанка для мировой позиции
func (w *World) ChunkOf(pos vec.Vec2Float) vec.Vec2 {
	return vec.ChunkOf(pos, w.chunkSize)
}

// Chunk возвращает активный чанк
func (w *World) Chunk(coord vec.Vec2) (*Chunk, bool) {
	c, ok := w.chunks[coord]
	return c, ok
}

// EnsureChunk возвращает чанк, создавая его при первом обращении
func (w *World) EnsureChunk(coord vec.Vec2) (*Chunk, bool) {
	if c, ok := w.chunks[coord]; ok {
		return c, false
	}
	c := NewChunk(coord, w.gen.BiomeAt(coord))
	w.chunks[coord] = c
	w.populate(c)
	if w.onChunkCreated != nil {
		w.onChunkCreated(c)
	}
	return c, true
}

// ChunkCount число активных чанков
func (w *World) ChunkCount() int { return len(w.chunks) }

// ChunkCoords координаты активных чанков в детерминированном порядке
func (w *World) ChunkCoords() []vec.Vec2 {
	out := make([]vec.Vec2, 0, len(w.chunks))
	for c := range w.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// RemoveChunk выгружает чанк из активного набора.
// Вызывающий отвечает за сохранение грязного состояния до вызова.
func (w *World) RemoveChunk(coord vec.Vec2) {
	c, ok := w.chunks[coord]
	if !ok {
		return
	}
	for _, e := range c.Entities() {
		delete(w.index, e.EntityID())
	}
	delete(w.chunks, coord)
}

// ClearChanges сбрасывает отслеживание изменений во всех чанках
func (w *World) ClearChanges() {
	for _, c := range w.chunks {
		c.ClearChanges()
	}
}

//================ Сущности =================//

// AddEntity размещает сущность в чанке по её позиции. Нулевой id заменяется новым.
func (w *World) AddEntity(e Entity) Entity {
	if e.EntityID() == 0 {
		e = withID(e, w.NextEntityID())
	}
	coord := w.ChunkOf(e.Pos())
	c, _ := w.EnsureChunk(coord)
	c.put(e)
	w.index[e.EntityID()] = coord
	return e
}

// SpawnTemplate создаёт сущность из шаблона каталога
func (w *World) SpawnTemplate(kind EntityKind, template string, pos vec.Vec2Float) Entity {
	switch kind {
	case KindResource:
		t, ok := w.catalog.Resources[template]
		if !ok {
			return nil
		}
		return w.AddEntity(&Resource{TemplateID: t.ID, Position: pos, Charges: t.Charges})
	case KindMob:
		t, ok := w.catalog.Mobs[template]
		if !ok {
			return nil
		}
		return w.AddEntity(&Mob{TemplateID: t.ID, Position: pos, Health: t.Health, Hostile: t.Hostile})
	case KindStructure:
		return w.AddEntity(&Structure{TemplateID: template, Position: pos})
	case KindNPC:
		if _, ok := w.catalog.NPCs[template]; !ok {
			return nil
		}
		return w.AddEntity(&NPC{TemplateID: template, Position: pos})
	}
	return nil
}

// Entity находит сущность и её чанк по id
func (w *World) Entity(id uint64) (Entity, *Chunk, bool) {
	coord, ok := w.index[id]
	if !ok {
		return nil, nil, false
	}
	c, ok := w.chunks[coord]
	if !ok {
		return nil, nil, false
	}
	e, ok := c.Entity(id)
	return e, c, ok
}

// RemoveEntity удаляет сущность из мира
func (w *World) RemoveEntity(id uint64) (Entity, bool) {
	_, c, ok := w.Entity(id)
	if !ok {
		return nil, false
	}
	delete(w.index, id)
	return c.drop(id)
}

// MarkEntityChanged помечает сущность изменённой для дельт
func (w *World) MarkEntityChanged(id uint64) {
	if _, c, ok := w.Entity(id); ok {
		c.MarkChanged(id)
	}
}

//================ Игроки =================//

// AddPlayer регистрирует игрока. Заспавненный игрок сразу размещается в чанке.
func (w *World) AddPlayer(p *PlayerState) {
	w.players[p.ID] = p
	if p.Spawned {
		w.PlacePlayer(p)
	}
}

// RemovePlayer удаляет игрока из мира
func (w *World) RemovePlayer(id string) {
	p, ok := w.players[id]
	if !ok {
		return
	}
	w.UnplacePlayer(p)
	delete(w.players, id)
}

func (w *World) Player(id string) (*PlayerState, bool) {
	p, ok := w.players[id]
	return p, ok
}

func (w *World) PlayerCount() int { return len(w.players) }

// Players резидентные игроки, отсортированные по id
func (w *World) Players() []*PlayerState {
	out := make([]*PlayerState, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// PlacePlayer делает игрока жителем его чанка
func (w *World) PlacePlayer(p *PlayerState) {
	c, _ := w.EnsureChunk(p.Chunk)
	c.Players[p.ID] = struct{}{}
	delete(c.playersGone, p.ID)
	c.playersChanged[p.ID] = struct{}{}
}

// UnplacePlayer убирает игрока из чанка (смерть, выход)
func (w *World) UnplacePlayer(p *PlayerState) {
	c, ok := w.chunks[p.Chunk]
	if !ok {
		return
	}
	if _, ok := c.Players[p.ID]; !ok {
		return
	}
	delete(c.Players, p.ID)
	delete(c.playersChanged, p.ID)
	c.playersGone[p.ID] = struct{}{}
}

// MovePlayer переносит игрока в мировую позицию, обновляя жителей чанков
func (w *World) MovePlayer(p *PlayerState, pos vec.Vec2Float) {
	if !p.Spawned {
		p.SetWorldPos(pos, w.chunkSize)
		return
	}
	w.UnplacePlayer(p)
	p.SetWorldPos(pos, w.chunkSize)
	w.PlacePlayer(p)
}

//================ Поселения =================//

// AddSettlement регистрирует поселение, ставит ядро и NPC
func (w *World) AddSettlement(st catalog.SettlementTemplate) *Settlement {
	pos := vec.Vec2Float{X: st.X, Y: st.Y}
	s := &Settlement{
		ID:        st.ID,
		Name:      st.Name,
		Position:  pos,
		CoreLevel: st.CoreLevel,
		Integrity: st.Integrity,
		Spawn:     pos,
	}
	w.settlements[s.ID] = s

	c, _ := w.EnsureChunk(w.ChunkOf(pos))
	c.Settlement = s.ID
	w.AddEntity(&Structure{TemplateID: "settlement_core", Position: pos, Owner: s.ID})
	for i, npc := range st.NPCs {
		offset := vec.Vec2Float{X: float64(i+1) * 1.5, Y: 1}
		w.AddEntity(&NPC{TemplateID: npc, Position: pos.Add(offset), Settlement: s.ID})
	}
	c.Dirty = false
	return s
}

func (w *World) Settlement(id string) (*Settlement, bool) {
	s, ok := w.settlements[id]
	return s, ok
}

// Settlements поселения, отсортированные по id
func (w *World) Settlements() []*Settlement {
	out := make([]*Settlement, 0, len(w.settlements))
	for _, s := range w.settlements {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Protected true если позиция внутри безопасной зоны любого поселения
func (w *World) Protected(pos vec.Vec2Float) bool {
	base := w.cfg.Simulation.SafeZoneBaseRadius
	per := w.cfg.Simulation.SafeZonePerLevelRadius
	for _, s := range w.settlements {
		if s.Protects(pos, base, per) {
			return true
		}
	}
	return false
}

// SpawnPoint точка возрождения игрока: его поселение или спавн мира
func (w *World) SpawnPoint(p *PlayerState) vec.Vec2Float {
	if s, ok := w.settlements[p.Settlement]; ok {
		return s.Spawn
	}
	return vec.Vec2Float{X: w.cfg.Simulation.SpawnX, Y: w.cfg.Simulation.SpawnY}
}
