package storage

import (
	"context"
	"sync"

	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
)

// ChunkStore хранилище состояния чанков
type ChunkStore interface {
	// LoadChunk возвращает запись чанка или ErrNotFound
	LoadChunk(ctx context.Context, coord vec.Vec2) (*world.ChunkRecord, error)
	// SaveChunk перезаписывает запись чанка
	SaveChunk(ctx context.Context, rec world.ChunkRecord) error
	Close() error
}

// MemoryChunkStore реализует ChunkStore в памяти
type MemoryChunkStore struct {
	mu     sync.RWMutex
	chunks map[vec.Vec2]world.ChunkRecord
}

func NewMemoryChunkStore() *MemoryChunkStore {
	return &MemoryChunkStore{chunks: make(map[vec.Vec2]world.ChunkRecord)}
}

func (s *MemoryChunkStore) LoadChunk(ctx context.Context, coord vec.Vec2) (*world.ChunkRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.chunks[coord]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (s *MemoryChunkStore) SaveChunk(ctx context.Context, rec world.ChunkRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks[rec.Coords] = rec
	return nil
}

// Len количество сохранённых чанков
func (s *MemoryChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

func (s *MemoryChunkStore) Close() error { return nil }
