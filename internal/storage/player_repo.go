package storage

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Ошибки хранилища
var (
	ErrNotFound      = errors.New("record not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrClosed        = errors.New("storage closed")
)

// PlayerRecord сохраняемое состояние игрока.
// Inventory и Stats хранятся как непрозрачные JSON-документы:
// их формат принадлежит слою persistence, хранилище его не разбирает.
type PlayerRecord struct {
	ID           string    `json:"id" bson:"_id"`
	Login        string    `json:"login" bson:"login"`
	Token        string    `json:"token" bson:"token"`
	PasswordHash string    `json:"password_hash,omitempty" bson:"password_hash,omitempty"`
	Username     string    `json:"username" bson:"username"`
	Level        int       `json:"level" bson:"level"`
	XP           int       `json:"xp" bson:"xp"`
	X            float64   `json:"x" bson:"x"`
	Y            float64   `json:"y" bson:"y"`
	Health       float64   `json:"health" bson:"health"`
	Hunger       float64   `json:"hunger" bson:"hunger"`
	Thirst       float64   `json:"thirst" bson:"thirst"`
	Temperature  float64   `json:"temperature" bson:"temperature"`
	Inventory    []byte    `json:"inventory,omitempty" bson:"inventory,omitempty"`
	Stats        []byte    `json:"stats,omitempty" bson:"stats,omitempty"`
	Spawned      bool      `json:"spawned" bson:"spawned"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Clone глубокая копия записи
func (r *PlayerRecord) Clone() *PlayerRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Inventory = append([]byte(nil), r.Inventory...)
	cp.Stats = append([]byte(nil), r.Stats...)
	return &cp
}

// NormalizeLogin приводит логин к виду, в котором он хранится в индексе
func NormalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}

// PlayerRepo хранилище записей игроков.
// Учётные данные (token, password_hash) меняет только UpdateCredentials,
// Save пишет исключительно игровое состояние. Так автосохранение
// старой сессии не может затереть свежевыданный токен.
type PlayerRepo interface {
	// Load возвращает запись по id или ErrNotFound
	Load(ctx context.Context, id string) (*PlayerRecord, error)

	// FindByLogin ищет запись по логину (без учёта регистра) или ErrNotFound
	FindByLogin(ctx context.Context, login string) (*PlayerRecord, error)

	// Create вставляет новую запись; ErrUsernameTaken если логин занят
	Create(ctx context.Context, rec *PlayerRecord) error

	// Save сохраняет игровое состояние; отсутствующая запись создаётся
	Save(ctx context.Context, rec *PlayerRecord) error

	// UpdateCredentials меняет токен и хеш пароля
	UpdateCredentials(ctx context.Context, id, token, passwordHash string) error

	// Close освобождает соединения
	Close() error
}
