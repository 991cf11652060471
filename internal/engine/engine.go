// Package engine содержит единственного владельца мира: тиковый движок.
// Все изменения мира происходят внутри Tick в одной горутине; сеть и
// хранилища общаются с движком только через очереди.
package engine

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/interest"
	"github.com/annel0/wildlands/internal/logging"
	"github.com/annel0/wildlands/internal/persistence"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/storage"
	"github.com/annel0/wildlands/internal/systems"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Persistence асинхронное хранилище глазами тика: постановка запросов
// никогда не ждёт, результаты забираются через Drain.
type Persistence interface {
	LoadPlayer(id string) bool
	SavePlayer(rec *storage.PlayerRecord, reason persistence.SaveReason) bool
	LoadChunk(coord vec.Vec2) bool
	SaveChunk(rec world.ChunkRecord) bool
	HasChunkStore() bool
	Drain(max int) []persistence.Result
	Results() <-chan persistence.Result
}

// EventSink получатель доменных событий (joined, left, died, achievement...)
type EventSink interface {
	Publish(eventType, playerID string, data map[string]any)
}

type pendingJoin struct {
	session  Outbound
	username string
	tokenID  string
	token    string
}

// Stats снимок состояния движка для /health, безопасен из других горутин
type Stats struct {
	Tick     uint64
	Players  int
	Chunks   int
	Sessions int
	Queue    int
}

// Engine тиковый движок симуляции
type Engine struct {
	cfg      *config.Config
	world    *world.World
	queue    *CommandQueue
	pipeline *systems.Pipeline
	interest *interest.Manager
	store    Persistence
	events   EventSink
	metrics  *Metrics
	ctx      *systems.Context
	log      *logging.Logger
	tracer   trace.Tracer

	sessions    map[string]Outbound
	joining     map[string]pendingJoin
	saving      map[string]bool
	pendingSave map[string]persistence.SaveReason

	tick          uint64
	dt            float64
	budget        time.Duration
	autosaveEvery uint64
	statusEvery   uint64

	stats atomic.Pointer[Stats]
}

// New создаёт движок. events может быть nil.
func New(cfg *config.Config, w *world.World, store Persistence, events EventSink) *Engine {
	sim := cfg.Simulation
	e := &Engine{
		cfg:         cfg,
		world:       w,
		queue:       NewCommandQueue(sim.CommandQueueSize, sim.JoinBacklog),
		pipeline:    systems.NewPipeline(),
		interest:    interest.NewManager(sim.ViewRadius),
		store:       store,
		events:      events,
		metrics:     NewMetrics(),
		log:         logging.GetEngineLogger(),
		tracer:      otel.Tracer("github.com/annel0/wildlands/internal/engine"),
		sessions:    make(map[string]Outbound),
		joining:     make(map[string]pendingJoin),
		saving:      make(map[string]bool),
		pendingSave: make(map[string]persistence.SaveReason),
		dt:          1 / float64(sim.TickRateHz),
		budget:      sim.TickInterval(),
	}
	e.ctx = systems.NewContext(w, cfg, &outbox{e: e})

	e.autosaveEvery = uint64(sim.AutosaveInterval.Seconds() * float64(sim.TickRateHz))
	e.statusEvery = uint64(sim.TickRateHz)
	if e.statusEvery == 0 {
		e.statusEvery = 1
	}

	e.queue.OnDrop = func(cmd Command) {
		if _, ok := cmd.(Join); ok {
			e.metrics.JoinsRejected.Inc()
			return
		}
		e.metrics.InputDropped.Inc()
	}
	e.pipeline.OnFailure = func(name string) { e.metrics.SystemFailures.WithLabelValues(name).Inc() }
	w.OnChunkCreated(e.chunkCreated)
	// чанки поселений созданы до установки хука
	for _, coord := range w.ChunkCoords() {
		c, _ := w.Chunk(coord)
		e.chunkCreated(c)
	}
	e.stats.Store(&Stats{})
	return e
}

// Enqueue ставит команду в очередь. Вызывается из любых горучин.
func (e *Engine) Enqueue(cmd Command) bool { return e.queue.Push(cmd) }

// Metrics метрики движка
func (e *Engine) Metrics() *Metrics { return e.metrics }

// World мир движка. Доступ вне горутины движка запрещён.
func (e *Engine) World() *world.World { return e.world }

// Stats последний снимок счётчиков
func (e *Engine) Stats() Stats { return *e.stats.Load() }

// Run крутит тики с фиксированным dt до отмены ctx, затем сохраняет всех игроков
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.budget)
	defer ticker.Stop()

	e.log.Info("Движок запущен: %d Гц, бюджет тика %v", e.cfg.Simulation.TickRateHz, e.budget)
	for {
		select {
		case <-ctx.Done():
			e.log.Info("Движок остановлен на тике %d", e.tick)
			return
		case <-ticker.C:
			e.Tick(e.dt)
		}
	}
}

// Tick один шаг симуляции. Никогда не ждёт сеть или хранилище.
func (e *Engine) Tick(dt float64) {
	start := time.Now()
	e.tick++
	_, span := e.tracer.Start(context.Background(), "engine.tick",
		trace.WithAttributes(attribute.Int64("tick", int64(e.tick))))
	defer span.End()

	e.ctx.Begin(e.tick, dt)

	// 1. результаты хранилища
	e.consumeResults()
	e.retryPendingSaves()

	// 2. команды в порядке прибытия
	cmds := e.queue.Drain(e.cfg.Simulation.MaxCommandsPerTick)
	for _, cmd := range cmds {
		if err := systems.Isolate("command", func() error { e.apply(cmd); return nil }); err != nil {
			e.log.Error("команда %T игрока %s, тик %d: %v", cmd, cmd.Player(), e.tick, err)
			e.metrics.SystemFailures.WithLabelValues("command").Inc()
		}
	}
	if err := systems.Isolate("movement", func() error { systems.Move(e.ctx); return nil }); err != nil {
		e.log.Error("движение, тик %d: %v", e.tick, err)
		e.metrics.SystemFailures.WithLabelValues("movement").Inc()
	}

	// 3. конвейер систем
	e.pipeline.Run(e.ctx)

	// 4. видимость и рассылка
	e.sync()
	e.world.ClearChanges()

	// 5. выгрузка простаивающих чанков
	e.evict()

	// 6. автосохранение
	if e.autosaveEvery > 0 && e.tick%e.autosaveEvery == 0 {
		e.autosave()
	}

	// 7. метрики
	elapsed := time.Since(start)
	e.metrics.TickDurationMs.Add(float64(elapsed.Microseconds()) / 1000)
	e.metrics.TickSeconds.Observe(elapsed.Seconds())
	if elapsed > e.budget {
		e.metrics.TickOverruns.Inc()
		e.log.Warn("Тик %d превысил бюджет: %v > %v", e.tick, elapsed, e.budget)
	}
	queued := e.queue.Len()
	e.metrics.ActivePlayers.Set(float64(e.world.PlayerCount()))
	e.metrics.ActiveChunks.Set(float64(e.world.ChunkCount()))
	e.metrics.QueueLen.Set(float64(queued))
	e.stats.Store(&Stats{
		Tick:     e.tick,
		Players:  e.world.PlayerCount(),
		Chunks:   e.world.ChunkCount(),
		Sessions: len(e.sessions),
		Queue:    queued,
	})
	span.SetAttributes(attribute.Int("commands", len(cmds)), attribute.Int("players", e.world.PlayerCount()))
}

// sync пересчитывает видимость каждого подключённого игрока и рассылает сообщения
func (e *Engine) sync() {
	size := e.world.ChunkSize()
	for _, p := range e.world.Players() {
		s, ok := e.sessions[p.ID]
		if !ok {
			continue
		}
		if s.TakeOverflow() {
			e.resync(p, s)
		}
		for _, m := range e.interest.Update(e.world, p) {
			s.Send(m)
		}
		if p.StatusDirty || e.tick%e.statusEvery == 0 {
			e.ctx.Notify(p.ID, protocol.NoticeStatus, "", interest.Status(p, size))
			p.StatusDirty = false
		}
	}
}

// resync после потери сообщений: клиент забывает все чанки и получает свежие снимки
func (e *Engine) resync(p *world.PlayerState, s Outbound) {
	e.metrics.OutboundResyncs.Inc()
	e.log.Debug("Очередь сессии %s переполнена, полная пересинхронизация %s", s.ID(), p.ID)
	for _, coord := range e.interest.Set(p.ID) {
		s.Send(protocol.ChunkRemove{Coord: coord})
	}
	e.interest.Reset(p.ID)
	p.StatusDirty = true
}

// evict выгружает чанки без жителей и зрителей дольше eviction_idle_ticks.
// Грязный чанк сначала сбрасывается; удаляется только после подтверждения.
func (e *Engine) evict() {
	threshold := e.cfg.Simulation.EvictionIdleTicks
	for _, coord := range e.world.ChunkCoords() {
		c, _ := e.world.Chunk(coord)
		if c.Occupied() || e.interest.Watched(coord) || c.Settlement != "" {
			c.IdleTicks = 0
			continue
		}
		c.IdleTicks++
		if c.IdleTicks < threshold || c.Flushing || c.Loading {
			continue
		}
		if !c.Dirty {
			e.world.RemoveChunk(coord)
			continue
		}
		if !e.store.HasChunkStore() {
			// без хранилища грязный чанк остаётся в памяти
			continue
		}
		if e.store.SaveChunk(c.Snapshot()) {
			c.Flushing = true
		}
	}
}

// autosave ставит сохранение всех резидентных игроков
func (e *Engine) autosave() {
	n := 0
	for _, p := range e.world.Players() {
		if p.Ephemeral || p.Leaving || e.saving[p.ID] {
			continue
		}
		e.savePlayer(p, persistence.SaveAutosave)
		n++
	}
	if n > 0 {
		e.log.Debug("Автосохранение: %d игроков, тик %d", n, e.tick)
	}
}

// savePlayer ставит сохранение; одновременно для игрока идёт не больше одного
func (e *Engine) savePlayer(p *world.PlayerState, reason persistence.SaveReason) {
	if e.saving[p.ID] {
		if reason > e.pendingSave[p.ID] || !e.hasPending(p.ID) {
			e.pendingSave[p.ID] = reason
		}
		return
	}
	rec, err := persistence.EncodePlayer(p, e.world.ChunkSize())
	if err != nil {
		e.log.Error("Снимок игрока %s не построен: %v", p.ID, err)
		e.metrics.PersistenceFailures.WithLabelValues("encode").Inc()
		if reason == persistence.SaveLeave {
			e.dropPlayer(p.ID, "encode failed")
		}
		return
	}
	if !e.store.SavePlayer(rec, reason) {
		// очередь хранилища полна: повторим на следующем тике
		e.pendingSave[p.ID] = reason
		return
	}
	e.saving[p.ID] = true
	delete(e.pendingSave, p.ID)
}

func (e *Engine) hasPending(id string) bool {
	_, ok := e.pendingSave[id]
	return ok
}

func (e *Engine) retryPendingSaves() {
	if len(e.pendingSave) == 0 {
		return
	}
	ids := make([]string, 0, len(e.pendingSave))
	for id := range e.pendingSave {
		if !e.saving[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		p, ok := e.world.Player(id)
		if !ok {
			delete(e.pendingSave, id)
			continue
		}
		e.savePlayer(p, e.pendingSave[id])
	}
}

// dropPlayer окончательно убирает игрока из мира
func (e *Engine) dropPlayer(id, reason string) {
	p, ok := e.world.Player(id)
	if !ok {
		return
	}
	pos := p.WorldPos(e.world.ChunkSize())
	e.world.RemovePlayer(id)
	e.interest.Forget(id)
	delete(e.pendingSave, id)
	e.log.Info("Игрок %s покинул мир (%s)", id, reason)
	e.emit("player.left", id, map[string]any{"reason": reason, "x": pos.X, "y": pos.Y})
}

func (e *Engine) emit(eventType, playerID string, data map[string]any) {
	if e.events != nil {
		e.events.Publish(eventType, playerID, data)
	}
}

// chunkCreated запрашивает сохранённое состояние свежего чанка
func (e *Engine) chunkCreated(c *world.Chunk) {
	if !e.store.HasChunkStore() {
		return
	}
	if e.store.LoadChunk(c.Coords) {
		c.Loading = true
	}
}

// shutdownSaves ожидаемые подтверждения остановки. Игрок или чанк, чьё
// прежнее сохранение ещё в полёте, ждёт его ответа в deferred*.
type shutdownSaves struct {
	players        map[string]bool
	chunks         map[vec.Vec2]uint64
	deferredPlayer map[string]bool
	deferredChunk  map[vec.Vec2]bool
}

func (w *shutdownSaves) remaining() int {
	return len(w.players) + len(w.chunks) + len(w.deferredPlayer) + len(w.deferredChunk)
}

// Shutdown сохраняет всех игроков и грязные чанки, ожидая подтверждений до ctx.
// Вызывается после остановки Run из той же горутины-владельца.
// На игрока в полёте не больше одного сохранения; засчитываются только
// ответы на сохранения остановки.
func (e *Engine) Shutdown(ctx context.Context) error {
	for id, s := range e.sessions {
		s.Close("server shutdown")
		delete(e.sessions, id)
	}
	w := &shutdownSaves{
		players:        make(map[string]bool),
		chunks:         make(map[vec.Vec2]uint64),
		deferredPlayer: make(map[string]bool),
		deferredChunk:  make(map[vec.Vec2]bool),
	}
	for _, p := range e.world.Players() {
		if p.Ephemeral {
			continue
		}
		p.Leaving = true
		delete(e.pendingSave, p.ID)
		w.deferredPlayer[p.ID] = true
	}
	if e.store.HasChunkStore() {
		for _, coord := range e.world.ChunkCoords() {
			if c, _ := e.world.Chunk(coord); c.Dirty || c.Flushing {
				w.deferredChunk[coord] = true
			}
		}
	}
	e.flushShutdownSaves(w)

	e.log.Info("Остановка: ждём %d операций сохранения", w.remaining())
	retry := time.NewTicker(50 * time.Millisecond)
	defer retry.Stop()
	for w.remaining() > 0 {
		select {
		case r := <-e.store.Results():
			e.shutdownResult(w, r)
		case <-retry.C:
			// очередь хранилища могла освободиться
		case <-ctx.Done():
			e.log.Error("Остановка прервана, не подтверждено %d сохранений", w.remaining())
			return ctx.Err()
		}
		e.flushShutdownSaves(w)
	}
	return nil
}

// flushShutdownSaves ставит отложенные сохранения, чьё прежнее сохранение завершилось
func (e *Engine) flushShutdownSaves(w *shutdownSaves) {
	for id := range w.deferredPlayer {
		if e.saving[id] {
			continue
		}
		p, ok := e.world.Player(id)
		if !ok {
			delete(w.deferredPlayer, id)
			continue
		}
		rec, err := persistence.EncodePlayer(p, e.world.ChunkSize())
		if err != nil {
			e.log.Error("Снимок игрока %s не построен: %v", id, err)
			delete(w.deferredPlayer, id)
			continue
		}
		if !e.store.SavePlayer(rec, persistence.SaveShutdown) {
			return
		}
		e.saving[id] = true
		w.players[id] = true
		delete(w.deferredPlayer, id)
	}
	for coord := range w.deferredChunk {
		c, ok := e.world.Chunk(coord)
		if !ok || (!c.Dirty && !c.Flushing) {
			delete(w.deferredChunk, coord)
			continue
		}
		if c.Flushing {
			continue
		}
		if !e.store.SaveChunk(c.Snapshot()) {
			return
		}
		c.Flushing = true
		w.chunks[coord] = c.Version
		delete(w.deferredChunk, coord)
	}
}

func (e *Engine) shutdownResult(w *shutdownSaves, r persistence.Result) {
	switch v := r.(type) {
	case persistence.PlayerSaved:
		delete(e.saving, v.PlayerID)
		if v.Reason != persistence.SaveShutdown || !w.players[v.PlayerID] {
			return
		}
		delete(w.players, v.PlayerID)
		if v.Err != nil {
			e.log.Error("Игрок %s не сохранён при остановке: %v", v.PlayerID, v.Err)
			e.metrics.PersistenceFailures.WithLabelValues("save_player").Inc()
		}
	case persistence.ChunkSaved:
		if c, ok := e.world.Chunk(v.Coord); ok {
			c.Flushing = false
			if v.Err == nil && c.Version == v.Version {
				c.Dirty = false
			}
		}
		version, expected := w.chunks[v.Coord]
		if !expected || version != v.Version {
			return
		}
		delete(w.chunks, v.Coord)
		if v.Err != nil {
			e.log.Error("Чанк %v не сохранён при остановке: %v", v.Coord, v.Err)
			e.metrics.PersistenceFailures.WithLabelValues("save_chunk").Inc()
		}
	}
}
