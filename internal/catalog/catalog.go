// Package catalog содержит неизменяемые шаблоны игрового контента:
// предметы, рецепты, квесты, достижения, ресурсы, мобов, NPC, биомы и поселения.
// Каталог загружается один раз при старте и дальше используется только на чтение.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

// ErrInvalidCatalog возвращается при битых ссылках между шаблонами
var ErrInvalidCatalog = errors.New("invalid catalog")

// Item описывает предмет инвентаря
type Item struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	Food  float64 `yaml:"food"`  // восстановление голода при использовании
	Water float64 `yaml:"water"` // восстановление жажды
	Heal  float64 `yaml:"heal"`  // восстановление здоровья
}

// Consumable true если предмет можно использовать из слота
func (i Item) Consumable() bool {
	return i.Food > 0 || i.Water > 0 || i.Heal > 0
}

// Recipe рецепт крафта
type Recipe struct {
	ID          string         `yaml:"id"`
	Inputs      map[string]int `yaml:"inputs"`
	Output      string         `yaml:"output"`
	OutputCount int            `yaml:"output_count"`
	XP          int            `yaml:"xp"`
}

// ObjectiveKind тип цели квеста
type ObjectiveKind string

const (
	ObjectiveGather ObjectiveKind = "gather"
	ObjectiveCraft  ObjectiveKind = "craft"
	ObjectiveKill   ObjectiveKind = "kill"
)

// Objective цель квеста: собрать/скрафтить/убить Count штук Target
type Objective struct {
	Kind   ObjectiveKind `yaml:"kind"`
	Target string        `yaml:"target"`
	Count  int           `yaml:"count"`
}

type QuestTemplate struct {
	ID         string      `yaml:"id"`
	Name       string      `yaml:"name"`
	Giver      string      `yaml:"giver"` // шаблон NPC, у которого сдаётся квест
	Objectives []Objective `yaml:"objectives"`
	XPReward   int         `yaml:"xp_reward"`
}

// AchievementTemplate открывается, когда стат игрока достигает Requirement
type AchievementTemplate struct {
	ID          string  `yaml:"id"`
	Name        string  `yaml:"name"`
	Stat        string  `yaml:"stat"`
	Requirement int     `yaml:"requirement"`
	XPReward    int     `yaml:"xp_reward"`
	BonusStat   string  `yaml:"bonus_stat"`
	Bonus       float64 `yaml:"bonus"`
}

type ResourceTemplate struct {
	ID             string  `yaml:"id"`
	Item           string  `yaml:"item"`
	Yield          int     `yaml:"yield"`   // предметов за один сбор
	Charges        int     `yaml:"charges"` // сколько раз можно собрать до истощения
	RespawnSeconds float64 `yaml:"respawn_seconds"`
}

type MobTemplate struct {
	ID             string  `yaml:"id"`
	Hostile        bool    `yaml:"hostile"`
	Health         float64 `yaml:"health"`
	Damage         float64 `yaml:"damage"` // урон в секунду по игроку
	Loot           string  `yaml:"loot"`
	LootCount      int     `yaml:"loot_count"`
	XP             int     `yaml:"xp"`
	RespawnSeconds float64 `yaml:"respawn_seconds"`
}

type NPCTemplate struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name"`
	Dialogue string   `yaml:"dialogue"`
	Quests   []string `yaml:"quests"`
}

// Biome описывает климат и бюджет сущностей чанка
type Biome struct {
	ID string `yaml:"id"`
	// MaxNoise верхняя граница значения шума (0..1), до которой выбирается биом
	MaxNoise    float64        `yaml:"max_noise"`
	Temperature float64        `yaml:"temperature"` // изменение температуры в секунду
	Thirst      float64        `yaml:"thirst"`      // множитель расхода жажды
	Resources   map[string]int `yaml:"resources"`
	Mobs        map[string]int `yaml:"mobs"`
}

// SettlementTemplate начальное поселение мира
type SettlementTemplate struct {
	ID        string   `yaml:"id"`
	Name      string   `yaml:"name"`
	X         float64  `yaml:"x"`
	Y         float64  `yaml:"y"`
	CoreLevel int      `yaml:"core_level"`
	Integrity float64  `yaml:"integrity"`
	NPCs      []string `yaml:"npcs"`
}

// Catalog набор всех шаблонов, индексированных по id
type Catalog struct {
	Items        map[string]Item
	Recipes      map[string]Recipe
	Quests       map[string]QuestTemplate
	Achievements map[string]AchievementTemplate
	Resources    map[string]ResourceTemplate
	Mobs         map[string]MobTemplate
	NPCs         map[string]NPCTemplate
	Settlements  []SettlementTemplate

	// Biomes отсортированы по MaxNoise
	Biomes []Biome

	achievementOrder []string
}

type document struct {
	Items        []Item                `yaml:"items"`
	Recipes      []Recipe              `yaml:"recipes"`
	Quests       []QuestTemplate       `yaml:"quests"`
	Achievements []AchievementTemplate `yaml:"achievements"`
	Resources    []ResourceTemplate    `yaml:"resources"`
	Mobs         []MobTemplate         `yaml:"mobs"`
	NPCs         []NPCTemplate         `yaml:"npcs"`
	Biomes       []Biome               `yaml:"biomes"`
	Settlements  []SettlementTemplate  `yaml:"settlements"`
}

// Default возвращает встроенный каталог
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("встроенный каталог повреждён: %v", err))
	}
	return c
}

// Load читает каталог из файла. Пустой путь означает встроенный каталог.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse разбирает YAML каталог и проверяет ссылки между шаблонами
func Parse(data []byte) (*Catalog, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("catalog yaml: %w", err)
	}

	c := &Catalog{
		Items:        make(map[string]Item, len(doc.Items)),
		Recipes:      make(map[string]Recipe, len(doc.Recipes)),
		Quests:       make(map[string]QuestTemplate, len(doc.Quests)),
		Achievements: make(map[string]AchievementTemplate, len(doc.Achievements)),
		Resources:    make(map[string]ResourceTemplate, len(doc.Resources)),
		Mobs:         make(map[string]MobTemplate, len(doc.Mobs)),
		NPCs:         make(map[string]NPCTemplate, len(doc.NPCs)),
		Settlements:  doc.Settlements,
		Biomes:       doc.Biomes,
	}
	for _, it := range doc.Items {
		c.Items[it.ID] = it
	}
	for _, r := range doc.Recipes {
		if r.OutputCount <= 0 {
			r.OutputCount = 1
		}
		c.Recipes[r.ID] = r
	}
	for _, q := range doc.Quests {
		c.Quests[q.ID] = q
	}
	for _, a := range doc.Achievements {
		c.Achievements[a.ID] = a
		c.achievementOrder = append(c.achievementOrder, a.ID)
	}
	for _, r := range doc.Resources {
		if r.Charges <= 0 {
			r.Charges = 1
		}
		c.Resources[r.ID] = r
	}
	for _, m := range doc.Mobs {
		c.Mobs[m.ID] = m
	}
	for _, n := range doc.NPCs {
		c.NPCs[n.ID] = n
	}
	sort.SliceStable(c.Biomes, func(i, j int) bool { return c.Biomes[i].MaxNoise < c.Biomes[j].MaxNoise })
	sort.Strings(c.achievementOrder)

	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// AchievementIDs возвращает id достижений в детерминированном порядке
func (c *Catalog) AchievementIDs() []string {
	return c.achievementOrder
}

// Biome возвращает биом по id
func (c *Catalog) Biome(id string) (Biome, bool) {
	for _, b := range c.Biomes {
		if b.ID == id {
			return b, true
		}
	}
	return Biome{}, false
}

// BiomeForNoise выбирает биом для значения шума в диапазоне 0..1
func (c *Catalog) BiomeForNoise(n float64) Biome {
	for _, b := range c.Biomes {
		if n <= b.MaxNoise {
			return b
		}
	}
	return c.Biomes[len(c.Biomes)-1]
}

func (c *Catalog) validate() error {
	if len(c.Biomes) == 0 {
		return fmt.Errorf("%w: no biomes", ErrInvalidCatalog)
	}
	for id, r := range c.Recipes {
		if _, ok := c.Items[r.Output]; !ok {
			return fmt.Errorf("%w: recipe %s: unknown output %q", ErrInvalidCatalog, id, r.Output)
		}
		if len(r.Inputs) == 0 {
			return fmt.Errorf("%w: recipe %s: no inputs", ErrInvalidCatalog, id)
		}
		for item, n := range r.Inputs {
			if _, ok := c.Items[item]; !ok || n <= 0 {
				return fmt.Errorf("%w: recipe %s: bad input %q", ErrInvalidCatalog, id, item)
			}
		}
	}
	for id, r := range c.Resources {
		if _, ok := c.Items[r.Item]; !ok {
			return fmt.Errorf("%w: resource %s: unknown item %q", ErrInvalidCatalog, id, r.Item)
		}
	}
	for id, m := range c.Mobs {
		if m.Loot != "" {
			if _, ok := c.Items[m.Loot]; !ok {
				return fmt.Errorf("%w: mob %s: unknown loot %q", ErrInvalidCatalog, id, m.Loot)
			}
		}
		if m.Health <= 0 {
			return fmt.Errorf("%w: mob %s: health must be > 0", ErrInvalidCatalog, id)
		}
	}
	for id, q := range c.Quests {
		if _, ok := c.NPCs[q.Giver]; !ok {
			return fmt.Errorf("%w: quest %s: unknown giver %q", ErrInvalidCatalog, id, q.Giver)
		}
		if len(q.Objectives) == 0 {
			return fmt.Errorf("%w: quest %s: no objectives", ErrInvalidCatalog, id)
		}
		for _, o := range q.Objectives {
			switch o.Kind {
			case ObjectiveGather, ObjectiveCraft, ObjectiveKill:
			default:
				return fmt.Errorf("%w: quest %s: objective kind %q", ErrInvalidCatalog, id, o.Kind)
			}
			if o.Count <= 0 {
				return fmt.Errorf("%w: quest %s: objective count must be > 0", ErrInvalidCatalog, id)
			}
		}
	}
	for id, n := range c.NPCs {
		for _, q := range n.Quests {
			if _, ok := c.Quests[q]; !ok {
				return fmt.Errorf("%w: npc %s: unknown quest %q", ErrInvalidCatalog, id, q)
			}
		}
	}
	for _, b := range c.Biomes {
		for r := range b.Resources {
			if _, ok := c.Resources[r]; !ok {
				return fmt.Errorf("%w: biome %s: unknown resource %q", ErrInvalidCatalog, b.ID, r)
			}
		}
		for m := range b.Mobs {
			if _, ok := c.Mobs[m]; !ok {
				return fmt.Errorf("%w: biome %s: unknown mob %q", ErrInvalidCatalog, b.ID, m)
			}
		}
	}
	for _, s := range c.Settlements {
		for _, n := range s.NPCs {
			if _, ok := c.NPCs[n]; !ok {
				return fmt.Errorf("%w: settlement %s: unknown npc %q", ErrInvalidCatalog, s.ID, n)
			}
		}
	}
	return nil
}
