package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
)

// MariaPlayerRepo реализует PlayerRepo для базы данных MariaDB/MySQL.
// Использует таблицу players. Пул соединений общий для всех воркеров
// persistence: при исчерпании пула вызовы ждут свободного соединения.
type MariaPlayerRepo struct {
	db *sql.DB
}

// NewMariaPlayerRepo создает новый репозиторий игроков для MariaDB.
// Автоматически создает таблицу, если она не существует.
//
// Параметры:
//
//	dsn - строка подключения к базе данных (user:pass@tcp(host:port)/dbname?parseTime=true)
//	maxOpen - максимум открытых соединений пула (0 - без ограничения)
//
// Возвращает:
//
//	*MariaPlayerRepo - экземпляр репозитория
//	error - ошибка при подключении или создании таблицы
func NewMariaPlayerRepo(dsn string, maxOpen int) (*MariaPlayerRepo, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("неверный DSN MariaDB: %w", err)
	}
	cfg.ParseTime = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к MariaDB: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Проверяем соединение
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось проверить соединение с MariaDB: %w", err)
	}

	repo := &MariaPlayerRepo{db: db}

	// Создаем таблицу, если она не существует
	if err := repo.createTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("не удалось создать таблицу: %w", err)
	}

	return repo, nil
}

// createTable создает таблицу players, если она не существует.
func (r *MariaPlayerRepo) createTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS players (
			id            VARCHAR(64)  PRIMARY KEY,
			login         VARCHAR(64)  NOT NULL,
			token         VARCHAR(64)  NOT NULL DEFAULT '',
			password_hash VARCHAR(72)  NOT NULL DEFAULT '',
			username      VARCHAR(64)  NOT NULL,
			level         INT          NOT NULL DEFAULT 1,
			xp            INT          NOT NULL DEFAULT 0,
			x             DOUBLE       NOT NULL DEFAULT 0,
			y             DOUBLE       NOT NULL DEFAULT 0,
			health        DOUBLE       NOT NULL DEFAULT 0,
			hunger        DOUBLE       NOT NULL DEFAULT 0,
			thirst        DOUBLE       NOT NULL DEFAULT 0,
			temperature   DOUBLE       NOT NULL DEFAULT 0,
			inventory     MEDIUMBLOB,
			stats         MEDIUMBLOB,
			spawned       BOOLEAN      NOT NULL DEFAULT FALSE,
			updated_at    TIMESTAMP(3) DEFAULT CURRENT_TIMESTAMP(3)
			              ON UPDATE    CURRENT_TIMESTAMP(3),
			UNIQUE KEY uq_login (login),
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`

	_, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("ошибка создания таблицы players: %w", err)
	}

	return nil
}

const playerColumns = `id, login, token, password_hash, username, level, xp, x, y,
	health, hunger, thirst, temperature, inventory, stats, spawned, updated_at`

func scanPlayer(row interface{ Scan(...any) error }) (*PlayerRecord, error) {
	var rec PlayerRecord
	err := row.Scan(&rec.ID, &rec.Login, &rec.Token, &rec.PasswordHash, &rec.Username,
		&rec.Level, &rec.XP, &rec.X, &rec.Y,
		&rec.Health, &rec.Hunger, &rec.Thirst, &rec.Temperature,
		&rec.Inventory, &rec.Stats, &rec.Spawned, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Load загружает запись игрока из базы данных.
func (r *MariaPlayerRepo) Load(ctx context.Context, id string) (*PlayerRecord, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ?`
	rec, err := scanPlayer(r.db.QueryRowContext(ctx, query, id))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("ошибка загрузки игрока %s: %w", id, err)
	}
	return rec, err
}

// FindByLogin ищет запись игрока по логину.
func (r *MariaPlayerRepo) FindByLogin(ctx context.Context, login string) (*PlayerRecord, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE login = ?`
	rec, err := scanPlayer(r.db.QueryRowContext(ctx, query, NormalizeLogin(login)))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("ошибка поиска игрока %q: %w", login, err)
	}
	return rec, err
}

// Create вставляет новую запись.
func (r *MariaPlayerRepo) Create(ctx context.Context, rec *PlayerRecord) error {
	query := `
		INSERT INTO players (id, login, token, password_hash, username, level, xp, x, y,
			health, hunger, thirst, temperature, inventory, stats, spawned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, NormalizeLogin(rec.Login), rec.Token, rec.PasswordHash, rec.Username,
		rec.Level, rec.XP, rec.X, rec.Y,
		rec.Health, rec.Hunger, rec.Thirst, rec.Temperature,
		rec.Inventory, rec.Stats, rec.Spawned)

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == 1062 {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("ошибка создания игрока %s: %w", rec.ID, err)
	}
	return nil
}

// Save сохраняет игровое состояние.
// Использует INSERT ... ON DUPLICATE KEY UPDATE, учётные данные не меняются.
func (r *MariaPlayerRepo) Save(ctx context.Context, rec *PlayerRecord) error {
	query := `
		INSERT INTO players (id, login, username, level, xp, x, y,
			health, hunger, thirst, temperature, inventory, stats, spawned)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			username    = VALUES(username),
			level       = VALUES(level),
			xp          = VALUES(xp),
			x           = VALUES(x),
			y           = VALUES(y),
			health      = VALUES(health),
			hunger      = VALUES(hunger),
			thirst      = VALUES(thirst),
			temperature = VALUES(temperature),
			inventory   = VALUES(inventory),
			stats       = VALUES(stats),
			spawned     = VALUES(spawned),
			updated_at  = CURRENT_TIMESTAMP(3)
	`
	login := NormalizeLogin(rec.Login)
	if login == "" {
		login = rec.ID
	}

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, login, rec.Username, rec.Level, rec.XP, rec.X, rec.Y,
		rec.Health, rec.Hunger, rec.Thirst, rec.Temperature,
		rec.Inventory, rec.Stats, rec.Spawned)
	if err != nil {
		return fmt.Errorf("ошибка сохранения игрока %s: %w", rec.ID, err)
	}
	return nil
}

// UpdateCredentials меняет токен и хеш пароля.
func (r *MariaPlayerRepo) UpdateCredentials(ctx context.Context, id, token, passwordHash string) error {
	query := `UPDATE players SET token = ?, password_hash = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, token, passwordHash, id)
	if err != nil {
		return fmt.Errorf("ошибка обновления учётных данных %s: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ошибка получения количества затронутых строк: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Close закрывает соединение с базой данных.
func (r *MariaPlayerRepo) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
