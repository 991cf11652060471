package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryPlayerRepo реализует PlayerRepo в памяти.
// Используется как fallback, когда внешняя БД не настроена,
// или для CI/локальной разработки.
// ВНИМАНИЕ: Данные теряются при перезапуске сервера!
type MemoryPlayerRepo struct {
	mu      sync.RWMutex
	data    map[string]*PlayerRecord // id -> запись
	byLogin map[string]string        // login -> id
	closed  bool
}

// NewMemoryPlayerRepo создает новый репозиторий игроков в памяти.
func NewMemoryPlayerRepo() *MemoryPlayerRepo {
	return &MemoryPlayerRepo{
		data:    make(map[string]*PlayerRecord),
		byLogin: make(map[string]string),
	}
}

func (r *MemoryPlayerRepo) check(ctx context.Context) error {
	// Проверяем контекст на отмену
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if r.closed {
		return ErrClosed
	}
	return nil
}

// Load загружает запись игрока из памяти.
func (r *MemoryPlayerRepo) Load(ctx context.Context, id string) (*PlayerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	rec, ok := r.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// FindByLogin ищет запись по логину.
func (r *MemoryPlayerRepo) FindByLogin(ctx context.Context, login string) (*PlayerRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.check(ctx); err != nil {
		return nil, err
	}

	id, ok := r.byLogin[NormalizeLogin(login)]
	if !ok {
		return nil, ErrNotFound
	}
	return r.data[id].Clone(), nil
}

// Create вставляет новую запись.
func (r *MemoryPlayerRepo) Create(ctx context.Context, rec *PlayerRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("недействительная запись игрока")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return err
	}

	login := NormalizeLogin(rec.Login)
	if _, taken := r.byLogin[login]; taken {
		return ErrUsernameTaken
	}
	if _, exists := r.data[rec.ID]; exists {
		return fmt.Errorf("игрок %s уже существует", rec.ID)
	}

	cp := rec.Clone()
	cp.Login = login
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = time.Now()
	}
	r.data[cp.ID] = cp
	if login != "" {
		r.byLogin[login] = cp.ID
	}
	return nil
}

// Save сохраняет игровое состояние, не трогая учётные данные.
func (r *MemoryPlayerRepo) Save(ctx context.Context, rec *PlayerRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("недействительная запись игрока")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return err
	}

	cp := rec.Clone()
	cp.UpdatedAt = time.Now()
	if old, ok := r.data[rec.ID]; ok {
		cp.Login = old.Login
		cp.Token = old.Token
		cp.PasswordHash = old.PasswordHash
	}
	r.data[cp.ID] = cp
	return nil
}

// UpdateCredentials меняет токен и хеш пароля.
func (r *MemoryPlayerRepo) UpdateCredentials(ctx context.Context, id, token, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.check(ctx); err != nil {
		return err
	}

	rec, ok := r.data[id]
	if !ok {
		return ErrNotFound
	}
	rec.Token = token
	rec.PasswordHash = passwordHash
	rec.UpdatedAt = time.Now()
	return nil
}

// Count возвращает количество записей (для отладки и тестов).
func (r *MemoryPlayerRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Close помечает репозиторий закрытым.
func (r *MemoryPlayerRepo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}
