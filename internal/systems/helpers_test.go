package systems

import (
	"testing"

	"github.com/annel0/wildlands/internal/catalog"
	"github.com/annel0/wildlands/internal/config"
	"github.com/annel0/wildlands/internal/protocol"
	"github.com/annel0/wildlands/internal/vec"
	"github.com/annel0/wildlands/internal/world"
)

type sent struct {
	player string
	msg    protocol.ServerMessage
}

type recorder struct {
	sent   []sent
	events []string
}

func (r *recorder) Send(playerID string, msg protocol.ServerMessage) {
	r.sent = append(r.sent, sent{playerID, msg})
}

func (r *recorder) Emit(eventType, playerID string, data map[string]any) {
	r.events = append(r.events, eventType)
}

func (r *recorder) count(kind string) int {
	n := 0
	for _, s := range r.sent {
		if s.msg.MessageType() == kind {
			n++
		}
	}
	return n
}

func (r *recorder) notices(kind string) int {
	n := 0
	for _, s := range r.sent {
		if nt, ok := s.msg.(protocol.Notification); ok && nt.Kind == kind {
			n++
		}
	}
	return n
}

type voidBiomes struct{}

func (voidBiomes) BiomeAt(vec.Vec2) string { return "void" }

// fixture мир без поселений и генерации, один заспавненный игрок далеко от всего
func fixture(t *testing.T) (*Context, *recorder, *world.PlayerState) {
	t.Helper()
	cfg := config.Default()
	cat := catalog.Default()
	cat.Settlements = nil
	w := world.New(cfg, cat, voidBiomes{})
	rec := &recorder{}
	ctx := NewContext(w, cfg, rec)
	ctx.Begin(1, 1.0)

	p := addPlayer(ctx, "p1", vec.Vec2Float{X: 100, Y: 100})
	return ctx, rec, p
}

func addPlayer(ctx *Context, id string, pos vec.Vec2Float) *world.PlayerState {
	p := world.NewPlayer(id, id, "tok-"+id, ctx.Config)
	p.Spawned = true
	p.SetWorldPos(pos, ctx.World.ChunkSize())
	ctx.World.AddPlayer(p)
	return p
}

func addSettlement(ctx *Context, x, y float64) *world.Settlement {
	return ctx.World.AddSettlement(catalog.SettlementTemplate{ID: "camp", Name: "Camp", X: x, Y: y, CoreLevel: 1, Integrity: 1})
}
