package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/annel0/wildlands/internal/cache"
	"github.com/annel0/wildlands/internal/logging"
)

// CachedPlayerRepo двухуровневое хранилище: горячий кеш (Redis) поверх
// постоянного репозитория. Чтение read-through, запись write-through.
// Ошибки кеша не фатальны: запрос уходит в постоянное хранилище.
type CachedPlayerRepo struct {
	repo  PlayerRepo
	cache cache.CacheRepo
	ttl   time.Duration
}

// NewCachedPlayerRepo оборачивает репозиторий кешем
func NewCachedPlayerRepo(repo PlayerRepo, c cache.CacheRepo, ttl time.Duration) *CachedPlayerRepo {
	return &CachedPlayerRepo{repo: repo, cache: c, ttl: ttl}
}

func playerKey(id string) string { return "wl:player:" + id }

func (r *CachedPlayerRepo) Load(ctx context.Context, id string) (*PlayerRecord, error) {
	if data, err := r.cache.Get(ctx, playerKey(id)); err == nil {
		var rec PlayerRecord
		if err := json.Unmarshal(data, &rec); err == nil {
			return &rec, nil
		}
		logging.Warn("Повреждённая запись кеша для игрока %s, читаем из хранилища", id)
	} else if !cache.IsCacheMiss(err) {
		logging.Debug("Кеш недоступен для игрока %s: %v", id, err)
	}

	rec, err := r.repo.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	r.put(ctx, rec)
	return rec, nil
}

// FindByLogin всегда идёт в постоянное хранилище: логин в кеше не индексируется
func (r *CachedPlayerRepo) FindByLogin(ctx context.Context, login string) (*PlayerRecord, error) {
	return r.repo.FindByLogin(ctx, login)
}

func (r *CachedPlayerRepo) Create(ctx context.Context, rec *PlayerRecord) error {
	if err := r.repo.Create(ctx, rec); err != nil {
		return err
	}
	r.invalidate(ctx, rec.ID)
	return nil
}

// Save пишет в хранилище, затем сбрасывает кеш: запись в кеше
// должна содержать актуальные учётные данные, которых Save не знает.
func (r *CachedPlayerRepo) Save(ctx context.Context, rec *PlayerRecord) error {
	if err := r.repo.Save(ctx, rec); err != nil {
		return err
	}
	r.invalidate(ctx, rec.ID)
	return nil
}

func (r *CachedPlayerRepo) UpdateCredentials(ctx context.Context, id, token, passwordHash string) error {
	if err := r.repo.UpdateCredentials(ctx, id, token, passwordHash); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedPlayerRepo) Close() error {
	cerr := r.cache.Close()
	if err := r.repo.Close(); err != nil {
		return err
	}
	return cerr
}

func (r *CachedPlayerRepo) put(ctx context.Context, rec *PlayerRecord) {
	data, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, playerKey(rec.ID), data, r.ttl); err != nil {
		logging.Debug("Не удалось закешировать игрока %s: %v", rec.ID, err)
	}
}

func (r *CachedPlayerRepo) invalidate(ctx context.Context, id string) {
	if err := r.cache.Delete(ctx, playerKey(id)); err != nil {
		logging.Warn("Не удалось сбросить кеш игрока %s: %v", id, err)
	}
}
