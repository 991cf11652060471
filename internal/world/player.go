package world

import (
	"math"
	"time"

	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/vec"
)

// Имена счётчиков статистики игрока
const (
	StatGathered       = "gathered"
	StatCrafted        = "crafted"
	StatKills          = "kills"
	StatDeaths         = "deaths"
	StatTraded         = "traded"
	StatQuestsComplete = "quests_completed"
	StatItemsDropped   = "items_dropped"
)

// Vitals жизненные показатели
type Vitals struct {
	Health      float64 `json:"health"`
	Hunger      float64 `json:"hunger"`
	Thirst      float64 `json:"thirst"`
	Temperature float64 `json:"temperature"`
}

// DefaultVitals показатели свежего или возрождённого игрока
func DefaultVitals(s config.SurvivalConfig) Vitals {
	return Vitals{
		Health:      s.MaxHealth,
		Hunger:      s.MaxHunger,
		Thirst:      s.MaxThirst,
		Temperature: s.NeutralTemp,
	}
}

// Clamp приводит показатели к границам из конфигурации
func (v *Vitals) Clamp(s config.SurvivalConfig) {
	v.Health = clamp(v.Health, 0, s.MaxHealth)
	v.Hunger = clamp(v.Hunger, 0, s.MaxHunger)
	v.Thirst = clamp(v.Thirst, 0, s.MaxThirst)
	v.Temperature = clamp(v.Temperature, s.MinTemperature, s.MaxTemperature)
}

func clamp(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	return math.Max(lo, math.Min(hi, x))
}

// QuestStatus состояние активного квеста
type QuestStatus string

const (
	QuestInProgress    QuestStatus = "in_progress"
	QuestReadyToTurnIn QuestStatus = "ready"
	QuestCompleted     QuestStatus = "completed"
)

// QuestProgress прогресс по квесту; Progress[i] соответствует Objectives[i] шаблона
type QuestProgress struct {
	ID       string      `json:"id"`
	Status   QuestStatus `json:"status"`
	Progress []int       `json:"progress"`
}

// PlayerState состояние игрока, принадлежит World
type PlayerState struct {
	ID           string
	Token        string
	Username     string
	PasswordHash string

	Chunk vec.Vec2      // координата чанка
	Local vec.Vec2Float // 0 <= Local < chunk_size

	Vitals    Vitals
	Inventory *Inventory
	Stats     map[string]int
	Bonuses   map[string]float64

	Level        int
	XP           int
	Achievements map[string]struct{}
	Quests       []*QuestProgress
	Completed    map[string]struct{}
	Settlement   string

	Spawned         bool
	RespawnCooldown float64
	SelectedSlot    int
	Intent          vec.Vec2Float

	// Ephemeral состояние создано после неудачной загрузки и никогда не сохраняется
	Ephemeral bool
	// Leaving сохранение при выходе в процессе, системы игрока пропускают
	Leaving bool
	// StatusDirty инвентарь или прогресс изменились, клиенту нужен статус
	StatusDirty bool

	UpdatedAt time.Time
}

// NewPlayer создаёт игрока с настройками по умолчанию в точке спавна мира
func NewPlayer(id, username, token string, cfg *config.Config) *PlayerState {
	p := &PlayerState{
		ID:           id,
		Token:        token,
		Username:     username,
		Vitals:       DefaultVitals(cfg.Survival),
		Inventory:    NewInventory(cfg.Simulation.InventorySlots, cfg.Simulation.MaxStack),
		Stats:        make(map[string]int),
		Bonuses:      make(map[string]float64),
		Level:        1,
		Achievements: make(map[string]struct{}),
		Completed:    make(map[string]struct{}),
	}
	p.SetWorldPos(vec.Vec2Float{X: cfg.Simulation.SpawnX, Y: cfg.Simulation.SpawnY}, cfg.Simulation.ChunkSize)
	return p
}

// WorldPos мировая позиция игрока
func (p *PlayerState) WorldPos(chunkSize float64) vec.Vec2Float {
	return p.Chunk.Origin(chunkSize).Add(p.Local)
}

// SetWorldPos раскладывает мировую позицию на чанк и локальные координаты
func (p *PlayerState) SetWorldPos(pos vec.Vec2Float, chunkSize float64) {
	p.Chunk, p.Local = vec.Split(pos, chunkSize)
}

// IncStat увеличивает счётчик статистики
func (p *PlayerState) IncStat(name string, n int) {
	p.Stats[name] += n
}

// Bonus возвращает множитель бонуса (1 + сумма бонусов)
func (p *PlayerState) Bonus(name string) float64 {
	return 1 + p.Bonuses[name]
}

// AwardXP начисляет опыт и пересчитывает уровень: level = 1 + xp / perLevel.
// Возвращает true при повышении уровня.
func (p *PlayerState) AwardXP(xp, perLevel int) bool {
	if xp <= 0 || perLevel <= 0 {
		return false
	}
	p.XP += xp
	lvl := 1 + p.XP/perLevel
	if lvl > p.Level {
		p.Level = lvl
		return true
	}
	return false
}

// Quest возвращает активный квест по id
func (p *PlayerState) Quest(id string) *QuestProgress {
	for _, q := range p.Quests {
		if q.ID == id {
			return q
		}
	}
	return nil
}

// RemoveQuest удаляет квест из списка активных
func (p *PlayerState) RemoveQuest(id string) {
	for i, q := range p.Quests {
		if q.ID == id {
			p.Quests = append(p.Quests[:i], p.Quests[i+1:]...)
			return
		}
	}
}

// HasAchievement true если достижение уже открыто
func (p *PlayerState) HasAchievement(id string) bool {
	_, ok := p.Achievements[id]
	return ok
}

// Active игрок участвует в симуляции: заспавнен и не уходит
func (p *PlayerState) Active() bool {
	return p.Spawned && !p.Leaving
}
