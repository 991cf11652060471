package persistence

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/logging"
	"github.com/annel0/wildlands/internal/storage"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
)

// statsDoc содержимое колонки stats: счётчики плюс прогресс,
// для которого в записи нет отдельных полей
type statsDoc struct {
	Counters        map[string]int         `json:"counters"`
	Bonuses         map[string]float64     `json:"bonuses,omitempty"`
	Achievements    []string               `json:"achievements,omitempty"`
	Quests          []*world.QuestProgress `json:"quests,omitempty"`
	Completed       []string               `json:"completed,omitempty"`
	Settlement      string                 `json:"settlement,omitempty"`
	SelectedSlot    int                    `json:"selected_slot"`
	RespawnCooldown float64                `json:"respawn_cooldown,omitempty"`
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// EncodePlayer снимает копию состояния игрока для сохранения.
// Вызывается внутри тика: результат не разделяет памяти с PlayerState.
func EncodePlayer(p *world.PlayerState, chunkSize float64) (*storage.PlayerRecord, error) {
	inv, err := json.Marshal(p.Inventory.Slots)
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}
	stats, err := json.Marshal(statsDoc{
		Counters:        p.Stats,
		Bonuses:         p.Bonuses,
		Achievements:    sortedKeys(p.Achievements),
		Quests:          p.Quests,
		Completed:       sortedKeys(p.Completed),
		Settlement:      p.Settlement,
		SelectedSlot:    p.SelectedSlot,
		RespawnCooldown: p.RespawnCooldown,
	})
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	pos := p.WorldPos(chunkSize)
	return &storage.PlayerRecord{
		ID:          p.ID,
		Token:       p.Token,
		Username:    p.Username,
		Level:       p.Level,
		XP:          p.XP,
		X:           pos.X,
		Y:           pos.Y,
		Health:      p.Vitals.Health,
		Hunger:      p.Vitals.Hunger,
		Thirst:      p.Vitals.Thirst,
		Temperature: p.Vitals.Temperature,
		Inventory:   inv,
		Stats:       stats,
		Spawned:     p.Spawned,
		UpdatedAt:   time.Now(),
	}, nil
}

// DecodePlayer восстанавливает игрока из записи.
// Число слотов инвентаря берётся из конфигурации; предметы из лишних слотов теряются.
func DecodePlayer(rec *storage.PlayerRecord, cfg *config.Config) (*world.PlayerState, error) {
	p := world.NewPlayer(rec.ID, rec.Username, rec.Token, cfg)
	p.PasswordHash = rec.PasswordHash
	if len(rec.Stats) == 0 {
		// запись создана claim и ещё ни разу не сохранялась игрой
		return p, nil
	}
	if rec.Level > 0 {
		p.Level = rec.Level
	}
	p.XP = rec.XP
	p.Vitals = world.Vitals{
		Health:      rec.Health,
		Hunger:      rec.Hunger,
		Thirst:      rec.Thirst,
		Temperature: rec.Temperature,
	}
	p.Vitals.Clamp(cfg.Survival)
	p.SetWorldPos(vec.Vec2Float{X: rec.X, Y: rec.Y}, cfg.Simulation.ChunkSize)
	p.Spawned = rec.Spawned
	p.UpdatedAt = rec.UpdatedAt

	if len(rec.Inventory) > 0 {
		var slots []*world.ItemStack
		if err := json.Unmarshal(rec.Inventory, &slots); err != nil {
			return nil, fmt.Errorf("inventory of %s: %w", rec.ID, err)
		}
		size := cfg.Simulation.InventorySlots
		for i := size; i < len(slots); i++ {
			if slots[i] != nil {
				logging.Warn("Игрок %s: слот %d вне инвентаря (%d слотов), %d x %s потеряно",
					rec.ID, i, size, slots[i].Count, slots[i].Item)
			}
		}
		if len(slots) > size {
			slots = slots[:size]
		}
		p.Inventory.Slots = slots
		p.Inventory.Resize(size)
	}

	if len(rec.Stats) > 0 {
		var doc statsDoc
		if err := json.Unmarshal(rec.Stats, &doc); err != nil {
			return nil, fmt.Errorf("stats of %s: %w", rec.ID, err)
		}
		for k, v := range doc.Counters {
			p.Stats[k] = v
		}
		for k, v := range doc.Bonuses {
			p.Bonuses[k] = v
		}
		for _, id := range doc.Achievements {
			p.Achievements[id] = struct{}{}
		}
		for _, id := range doc.Completed {
			p.Completed[id] = struct{}{}
		}
		p.Quests = doc.Quests
		p.Settlement = doc.Settlement
		if doc.SelectedSlot >= 0 && doc.SelectedSlot < p.Inventory.Size() {
			p.SelectedSlot = doc.SelectedSlot
		}
		p.RespawnCooldown = doc.RespawnCooldown
	}
	return p, nil
}
