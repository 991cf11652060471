package world

import (
	"github.com/annel0/wildlands/internal/vec"
)

// EntityKind определяет тип сущности чанка
type EntityKind uint8

const (
	KindResource  EntityKind = iota + 1 // Ресурс (дерево, камень, куст)
	KindMob                             // Моб (мирный или враждебный)
	KindStructure                       // Постройка
	KindNPC                             // Неигровой персонаж
)

func (k EntityKind) String() string {
	switch k {
	case KindResource:
		return "resource"
	case KindMob:
		return "mob"
	case KindStructure:
		return "structure"
	case KindNPC:
		return "npc"
	default:
		return "unknown"
	}
}

// Entity закрытый вариант сущностей чанка.
// Реализации: *Resource, *Mob, *Structure, *NPC. Других быть не может.
type Entity interface {
	EntityID() uint64
	Kind() EntityKind
	Template() string
	Pos() vec.Vec2Float
	sealedEntity()
}

// Resource добываемый ресурс. Charges уменьшается при сборе, на нуле ресурс исчезает.
type Resource struct {
	ID         uint64        `json:"id"`
	TemplateID string        `json:"template"`
	Position   vec.Vec2Float `json:"pos"`
	Charges    int           `json:"charges"`
}

// Mob животное или монстр
type Mob struct {
	ID         uint64        `json:"id"`
	TemplateID string        `json:"template"`
	Position   vec.Vec2Float `json:"pos"`
	Health     float64       `json:"health"`
	Hostile    bool          `json:"hostile"`
}

// Structure постройка (ядро поселения, костёр)
type Structure struct {
	ID         uint64        `json:"id"`
	TemplateID string        `json:"template"`
	Position   vec.Vec2Float `json:"pos"`
	Owner      string        `json:"owner,omitempty"`
}

// NPC неигровой персонаж поселения
type NPC struct {
	ID         uint64        `json:"id"`
	TemplateID string        `json:"template"`
	Position   vec.Vec2Float `json:"pos"`
	Settlement string        `json:"settlement,omitempty"`
}

func (r *Resource) EntityID() uint64   { return r.ID }
func (r *Resource) Kind() EntityKind   { return KindResource }
func (r *Resource) Template() string   { return r.TemplateID }
func (r *Resource) Pos() vec.Vec2Float { return r.Position }
func (*Resource) sealedEntity()        {}

func (m *Mob) EntityID() uint64   { return m.ID }
func (m *Mob) Kind() EntityKind   { return KindMob }
func (m *Mob) Template() string   { return m.TemplateID }
func (m *Mob) Pos() vec.Vec2Float { return m.Position }
func (*Mob) sealedEntity()        {}

func (s *Structure) EntityID() uint64   { return s.ID }
func (s *Structure) Kind() EntityKind   { return KindStructure }
func (s *Structure) Template() string   { return s.TemplateID }
func (s *Structure) Pos() vec.Vec2Float { return s.Position }
func (*Structure) sealedEntity()        {}

func (n *NPC) EntityID() uint64   { return n.ID }
func (n *NPC) Kind() EntityKind   { return KindNPC }
func (n *NPC) Template() string   { return n.TemplateID }
func (n *NPC) Pos() vec.Vec2Float { return n.Position }
func (*NPC) sealedEntity()        {}

// withID возвращает копию сущности с новым идентификатором
func withID(e Entity, id uint64) Entity {
	switch v := e.(type) {
	case *Resource:
		c := *v
		c.ID = id
		return &c
	case *Mob:
		c := *v
		c.ID = id
		return &c
	case *Structure:
		c := *v
		c.ID = id
		return &c
	case *NPC:
		c := *v
		c.ID = id
		return &c
	}
	return nil
}
