// Package persistence связывает тиковый движок с медленными хранилищами.
// Движок ставит запросы без ожидания, пул воркеров выполняет их,
// результаты забираются на одном из следующих тиков.
package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/logging"
	"github.com/annel0/wildlands/internal/storage"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
)

// SaveReason причина сохранения игрока
type SaveReason uint8

const (
	SaveAutosave SaveReason = iota
	SaveLeave
	SaveShutdown
)

func (r SaveReason) String() string {
	switch r {
	case SaveLeave:
		return "leave"
	case SaveShutdown:
		return "shutdown"
	default:
		return "autosave"
	}
}

// Result закрытый вариант результатов: PlayerLoaded, PlayerSaved, ChunkLoaded, ChunkSaved
type Result interface {
	sealedResult()
}

// PlayerLoaded результат загрузки игрока при входе.
// Err == storage.ErrNotFound означает, что записи нет.
type PlayerLoaded struct {
	PlayerID string
	Record   *storage.PlayerRecord
	Err      error
}

// PlayerSaved подтверждение сохранения; Err != nil только после исчерпания ретраев
type PlayerSaved struct {
	PlayerID string
	Reason   SaveReason
	Attempts int
	Err      error
}

// ChunkLoaded результат загрузки чанка
type ChunkLoaded struct {
	Coord  vec.Vec2
	Record *world.ChunkRecord
	Err    error
}

// ChunkSaved подтверждение сброса чанка; Version из сохранённого снимка
type ChunkSaved struct {
	Coord   vec.Vec2
	Version uint64
	Err     error
}

func (PlayerLoaded) sealedResult() {}
func (PlayerSaved) sealedResult()  {}
func (ChunkLoaded) sealedResult()  {}
func (ChunkSaved) sealedResult()   {}

type job func(ctx context.Context) Result

// Bridge асинхронный мост к хранилищам.
// Очередь запросов -> ограниченный семафором пул -> канал результатов.
type Bridge struct {
	players storage.PlayerRepo
	chunks  storage.ChunkStore

	opTimeout time.Duration
	retryMax  time.Duration

	mu       sync.RWMutex
	closed   bool
	requests chan job
	results  chan Result

	sem  *semaphore.Weighted
	wg   sync.WaitGroup
	done chan struct{}

	// OnRetry вызывается при каждой неудачной попытке сохранения (метрики)
	OnRetry func(err error)

	log *logging.Logger
}

// NewBridge создаёт мост. chunks может быть nil: тогда чанки не сохраняются.
func NewBridge(players storage.PlayerRepo, chunks storage.ChunkStore, cfg config.StorageConfig, queue int) *Bridge {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	retryMax := cfg.SaveRetryMax
	if retryMax <= 0 {
		// нулевой MaxElapsedTime у backoff означает бесконечные ретраи
		retryMax = 30 * time.Second
	}
	return &Bridge{
		players:   players,
		chunks:    chunks,
		opTimeout: cfg.OpTimeout,
		retryMax:  retryMax,
		requests:  make(chan job, queue),
		results:   make(chan Result, queue),
		sem:       semaphore.NewWeighted(int64(workers)),
		done:      make(chan struct{}),
		log:       logging.GetStorageLogger(),
	}
}

// Start запускает диспетчер. Запросы выполняются до Close, независимо от
// контекста движка: финальные сохранения при остановке должны дойти.
func (b *Bridge) Start() {
	go b.dispatch()
}

func (b *Bridge) dispatch() {
	defer close(b.done)
	for j := range b.requests {
		// Acquire блокирует диспетчер, пока все воркеры заняты: очередь ждёт, а не падает
		_ = b.sem.Acquire(context.Background(), 1)
		b.wg.Add(1)
		go func(j job) {
			defer b.wg.Done()
			defer b.sem.Release(1)
			b.results <- j(context.Background())
		}(j)
	}
	b.wg.Wait()
}

func (b *Bridge) enqueue(j job) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.requests <- j:
		return true
	default:
		return false
	}
}

func (b *Bridge) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.opTimeout > 0 {
		return context.WithTimeout(ctx, b.opTimeout)
	}
	return context.WithCancel(ctx)
}

// HasChunkStore true если чанки сохраняются
func (b *Bridge) HasChunkStore() bool { return b.chunks != nil }

// LoadPlayer ставит загрузку игрока. false: очередь переполнена или мост закрыт.
func (b *Bridge) LoadPlayer(id string) bool {
	return b.enqueue(func(ctx context.Context) Result {
		ctx, cancel := b.opContext(ctx)
		defer cancel()
		rec, err := b.players.Load(ctx, id)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			b.log.Warn("Загрузка игрока %s не удалась: %v", id, err)
		}
		return PlayerLoaded{PlayerID: id, Record: rec, Err: err}
	})
}

// SavePlayer ставит сохранение снимка игрока с экспоненциальными ретраями
func (b *Bridge) SavePlayer(rec *storage.PlayerRecord, reason SaveReason) bool {
	return b.enqueue(func(ctx context.Context) Result {
		attempts := 0
		op := func() error {
			attempts++
			octx, cancel := b.opContext(ctx)
			defer cancel()
			err := b.players.Save(octx, rec)
			if errors.Is(err, storage.ErrClosed) {
				return backoff.Permanent(err)
			}
			if err != nil && b.OnRetry != nil {
				b.OnRetry(err)
			}
			return err
		}

		policy := backoff.NewExponentialBackOff()
		policy.InitialInterval = 100 * time.Millisecond
		policy.MaxInterval = 5 * time.Second
		policy.MaxElapsedTime = b.retryMax

		err := backoff.Retry(op, backoff.WithContext(policy, ctx))
		if err != nil {
			b.log.Error("Сохранение игрока %s (%s) не удалось после %d попыток: %v", rec.ID, reason, attempts, err)
		} else if attempts > 1 {
			b.log.Info("Игрок %s сохранён с попытки %d", rec.ID, attempts)
		}
		return PlayerSaved{PlayerID: rec.ID, Reason: reason, Attempts: attempts, Err: err}
	})
}

// LoadChunk ставит загрузку записи чанка
func (b *Bridge) LoadChunk(coord vec.Vec2) bool {
	if b.chunks == nil {
		return false
	}
	return b.enqueue(func(ctx context.Context) Result {
		ctx, cancel := b.opContext(ctx)
		defer cancel()
		rec, err := b.chunks.LoadChunk(ctx, coord)
		return ChunkLoaded{Coord: coord, Record: rec, Err: err}
	})
}

// SaveChunk ставит сброс снимка чанка
func (b *Bridge) SaveChunk(rec world.ChunkRecord) bool {
	if b.chunks == nil {
		return false
	}
	return b.enqueue(func(ctx context.Context) Result {
		ctx, cancel := b.opContext(ctx)
		defer cancel()
		err := b.chunks.SaveChunk(ctx, rec)
		if err != nil {
			b.log.Warn("Сброс чанка %v не удался: %v", rec.Coords, err)
		}
		return ChunkSaved{Coord: rec.Coords, Version: rec.Version, Err: err}
	})
}

// Drain забирает готовые результаты без ожидания, не больше max (0 - все)
func (b *Bridge) Drain(max int) []Result {
	var out []Result
	for max <= 0 || len(out) < max {
		select {
		case r := <-b.results:
			out = append(out, r)
		default:
			return out
		}
	}
	return out
}

// Results канал результатов для блокирующего ожидания при остановке
func (b *Bridge) Results() <-chan Result { return b.results }

// Pending число запросов, ещё не взятых воркерами
func (b *Bridge) Pending() int { return len(b.requests) }

// Close перестаёт принимать запросы и ждёт завершения начатых.
// Результаты продолжают поступать в Results, пока их кто-то читает.
func (b *Bridge) Close(ctx context.Context) error {
	b.mu.Lock()
	if !b.closed {
		b.closed = true
		close(b.requests)
	}
	b.mu.Unlock()

	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
