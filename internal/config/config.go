package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config корневая структура конфигурации сервера.
// Все секции предзаполняются значениями из Default(), YAML только переопределяет их.
type Config struct {
	Server      ServerConfig     `yaml:"server"`
	Simulation  SimulationConfig `yaml:"simulation"`
	Survival    SurvivalConfig   `yaml:"survival"`
	Session     SessionConfig    `yaml:"session"`
	Storage     StorageConfig    `yaml:"storage"`
	Cache       CacheConfig      `yaml:"cache"`
	EventBus    EventBusConfig   `yaml:"eventbus"`
	Auth        AuthConfig       `yaml:"auth"`
	Telemetry   TelemetryConfig  `yaml:"telemetry"`
	CatalogPath string           `yaml:"catalog_path"`
	LogLevel    string           `yaml:"log_level"`
	LogFiles    bool             `yaml:"log_files"` // файлы logs/<component>_*.log
}

type ServerConfig struct {
	HTTPPort    int    `yaml:"http_port"`
	MetricsPort int    `yaml:"metrics_port"` // 0: метрики отдаются на основном порту
	StaticDir   string `yaml:"static_dir"`
}

// SimulationConfig параметры тикового движка и мира
type SimulationConfig struct {
	TickRateHz         int     `yaml:"tick_rate_hz"`
	MaxCommandsPerTick int     `yaml:"max_commands_per_tick"`
	CommandQueueSize   int     `yaml:"command_queue_size"`
	JoinBacklog        int     `yaml:"join_backlog"` // Join сверх полной очереди команд
	ChunkSize          float64 `yaml:"chunk_size"`
	ViewRadius         int     `yaml:"view_radius"`
	EvictionIdleTicks  int     `yaml:"eviction_idle_ticks"`
	WorldSeed          int64   `yaml:"world_seed"`
	InventorySlots     int     `yaml:"inventory_slots"`
	MaxStack           int     `yaml:"max_stack"`
	MoveSpeed          float64 `yaml:"move_speed"`
	InteractRange      float64 `yaml:"interact_range"`
	SpawnX             float64 `yaml:"spawn_x"`
	SpawnY             float64 `yaml:"spawn_y"`
	XPPerLevel         int     `yaml:"xp_per_level"`

	AutosaveInterval time.Duration `yaml:"autosave_interval"`

	SafeZoneBaseRadius     float64 `yaml:"safe_zone_base_radius"`
	SafeZonePerLevelRadius float64 `yaml:"safe_zone_per_level_radius"`
	MobAggroRange          float64 `yaml:"mob_aggro_range"`
	PlayerAttackDamage     float64 `yaml:"player_attack_damage"`
}

// SurvivalConfig параметры системы выживания
type SurvivalConfig struct {
	MaxHealth      float64 `yaml:"max_health"`
	MaxHunger      float64 `yaml:"max_hunger"`
	MaxThirst      float64 `yaml:"max_thirst"`
	MinTemperature float64 `yaml:"min_temperature"`
	MaxTemperature float64 `yaml:"max_temperature"`
	NeutralTemp    float64 `yaml:"neutral_temperature"`

	HungerDecay     float64 `yaml:"hunger_decay"`
	StarveDamage    float64 `yaml:"starve_damage"`
	ThirstEnabled   bool    `yaml:"thirst_enabled"`
	ThirstDecay     float64 `yaml:"thirst_decay"`
	DehydrateDamage float64 `yaml:"dehydrate_damage"`
	HealThreshold   float64 `yaml:"heal_threshold"`
	HealRate        float64 `yaml:"heal_rate"`
	ShelterWarmth   float64 `yaml:"shelter_warmth"`

	RespawnCooldown float64 `yaml:"respawn_cooldown"` // секунды
}

// SessionConfig параметры websocket-сессий
type SessionConfig struct {
	HeartbeatTimeout time.Duration `yaml:"heartbeat_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	OutboundQueue    int           `yaml:"outbound_queue"`
	MaxFrameBytes    int64         `yaml:"max_frame_bytes"`
	FramesPerSecond  float64       `yaml:"frames_per_second"`
	FrameBurst       int           `yaml:"frame_burst"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// StorageConfig выбор и настройки хранилища
type StorageConfig struct {
	Driver        string        `yaml:"driver"` // memory | mariadb | mongo
	MariaDSN      string        `yaml:"maria_dsn"`
	MaxOpenConns  int           `yaml:"max_open_conns"`
	MongoURI      string        `yaml:"mongo_uri"`
	MongoDatabase string        `yaml:"mongo_database"`
	ChunkDriver   string        `yaml:"chunk_driver"` // memory | badger | none
	ChunkPath     string        `yaml:"chunk_path"`
	Workers       int           `yaml:"workers"`
	OpTimeout     time.Duration `yaml:"op_timeout"`
	SaveRetryMax  time.Duration `yaml:"save_retry_max"`
}

// CacheConfig Redis-кеш перед хранилищем игроков
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	RedisAddr string        `yaml:"redis_addr"`
	Password  string        `yaml:"redis_password"`
	DB        int           `yaml:"redis_db"`
	TTL       time.Duration `yaml:"ttl"`
}

type EventBusConfig struct {
	Driver    string `yaml:"driver"` // memory | jetstream
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
	Buffer    int    `yaml:"buffer"`
}

type AuthConfig struct {
	JWTSecret     string        `yaml:"jwt_secret"` // base64, пусто: случайный ключ на процесс
	TokenTTL      time.Duration `yaml:"token_ttl"`
	ClaimsPerMin  float64       `yaml:"claims_per_minute"`
	ClaimBurst    int           `yaml:"claim_burst"`
	AllowPassword bool          `yaml:"allow_password"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Default возвращает встроенную конфигурацию
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:  8088,
			StaticDir: "web",
		},
		Simulation: SimulationConfig{
			TickRateHz:             20,
			MaxCommandsPerTick:     512,
			CommandQueueSize:       4096,
			JoinBacklog:            1024,
			ChunkSize:              16,
			ViewRadius:             2,
			EvictionIdleTicks:      200,
			WorldSeed:              1337,
			InventorySlots:         24,
			MaxStack:               64,
			MoveSpeed:              4.0,
			InteractRange:          2.5,
			SpawnX:                 8,
			SpawnY:                 8,
			XPPerLevel:             100,
			AutosaveInterval:       2 * time.Minute,
			SafeZoneBaseRadius:     12,
			SafeZonePerLevelRadius: 4,
			MobAggroRange:          1.5,
			PlayerAttackDamage:     5,
		},
		Survival: SurvivalConfig{
			MaxHealth:       100,
			MaxHunger:       100,
			MaxThirst:       100,
			MinTemperature:  -40,
			MaxTemperature:  60,
			NeutralTemp:     20,
			HungerDecay:     0.1,
			StarveDamage:    1.0,
			ThirstEnabled:   false,
			ThirstDecay:     0.15,
			DehydrateDamage: 1.5,
			HealThreshold:   50,
			HealRate:        0.5,
			ShelterWarmth:   2.0,
			RespawnCooldown: 5,
		},
		Session: SessionConfig{
			HeartbeatTimeout: 30 * time.Second,
			WriteTimeout:     5 * time.Second,
			OutboundQueue:    256,
			MaxFrameBytes:    16 * 1024,
			FramesPerSecond:  60,
			FrameBurst:       120,
		},
		Storage: StorageConfig{
			Driver:        "memory",
			MaxOpenConns:  16,
			MongoURI:      "mongodb://localhost:27017",
			MongoDatabase: "wildlands",
			ChunkDriver:   "memory",
			ChunkPath:     "data",
			Workers:       8,
			OpTimeout:     5 * time.Second,
			SaveRetryMax:  30 * time.Second,
		},
		Cache: CacheConfig{
			RedisAddr: "localhost:6379",
			TTL:       10 * time.Minute,
		},
		EventBus: EventBusConfig{
			Driver:    "memory",
			URL:       "nats://127.0.0.1:4222",
			Stream:    "WILDLANDS",
			Retention: 24,
			Buffer:    1024,
		},
		Auth: AuthConfig{
			TokenTTL:      24 * time.Hour,
			ClaimsPerMin:  30,
			ClaimBurst:    5,
			AllowPassword: true,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "wildlands",
		},
		LogLevel: "info",
	}
}

// ErrInvalidConfig возвращается Validate при недопустимых значениях
var ErrInvalidConfig = errors.New("invalid config")

// Load читает YAML файл конфигурации поверх Default().
// Если path == "", берётся ENV GAME_CONFIG. Отсутствующий файл не является ошибкой:
// возвращаются встроенные значения и missing=true. Файл, который не удалось разобрать,
// возвращает ошибку, и сервер не должен стартовать.
func Load(path string) (cfg *Config, missing bool, err error) {
	cfg = Default()
	if path == "" {
		path = os.Getenv("GAME_CONFIG")
	}
	if path == "" {
		cfg.applyEnv()
		return cfg, true, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg.applyEnv()
		return cfg, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("чтение %s: %w", path, err)
	}

	if err := Parse(data, cfg); err != nil {
		return nil, false, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return cfg, false, nil
}

// Parse декодирует YAML в cfg. Неизвестные ключи считаются ошибкой.
func Parse(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("yaml: %w", err)
	}
	return nil
}

// Validate проверяет значения, без которых движок не может работать
func (c *Config) Validate() error {
	s := c.Simulation
	switch {
	case s.TickRateHz <= 0:
		return fmt.Errorf("%w: simulation.tick_rate_hz must be > 0", ErrInvalidConfig)
	case s.ChunkSize <= 0:
		return fmt.Errorf("%w: simulation.chunk_size must be > 0", ErrInvalidConfig)
	case s.ViewRadius < 0:
		return fmt.Errorf("%w: simulation.view_radius must be >= 0", ErrInvalidConfig)
	case s.InventorySlots <= 0:
		return fmt.Errorf("%w: simulation.inventory_slots must be > 0", ErrInvalidConfig)
	case s.MaxStack <= 0:
		return fmt.Errorf("%w: simulation.max_stack must be > 0", ErrInvalidConfig)
	case s.MaxCommandsPerTick <= 0 || s.CommandQueueSize <= 0:
		return fmt.Errorf("%w: command queue limits must be > 0", ErrInvalidConfig)
	case s.XPPerLevel <= 0:
		return fmt.Errorf("%w: simulation.xp_per_level must be > 0", ErrInvalidConfig)
	}
	v := c.Survival
	if v.MaxHealth <= 0 || v.MaxHunger <= 0 || v.MinTemperature >= v.MaxTemperature {
		return fmt.Errorf("%w: survival bounds", ErrInvalidConfig)
	}
	if c.Session.OutboundQueue <= 0 || c.Session.HeartbeatTimeout <= 0 {
		return fmt.Errorf("%w: session limits", ErrInvalidConfig)
	}
	switch c.Storage.Driver {
	case "memory", "mariadb", "mongo":
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}
	switch c.Storage.ChunkDriver {
	case "memory", "badger", "none":
	default:
		return fmt.Errorf("%w: unknown storage.chunk_driver %q", ErrInvalidConfig, c.Storage.ChunkDriver)
	}
	switch c.EventBus.Driver {
	case "memory", "jetstream":
	default:
		return fmt.Errorf("%w: unknown eventbus.driver %q", ErrInvalidConfig, c.EventBus.Driver)
	}
	return nil
}

// TickInterval длительность одного тика
func (s SimulationConfig) TickInterval() time.Duration {
	return time.Second / time.Duration(s.TickRateHz)
}

// applyEnv применяет переопределения портов из окружения
func (c *Config) applyEnv() {
	c.Server.HTTPPort = getPortWithEnvFallback("GAME_HTTP_PORT", c.Server.HTTPPort)
	c.Server.MetricsPort = getPortWithEnvFallback("GAME_METRICS_PORT", c.Server.MetricsPort)
}

// getPortWithEnvFallback возвращает порт с приоритетом: env -> config
func getPortWithEnvFallback(envVar string, configPort int) int {
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}
	return configPort
}
