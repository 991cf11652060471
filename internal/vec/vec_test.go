package vec

import "testing"

func TestChunkOfNegative(t *testing.T) {
	cases := []struct {
		pos  Vec2Float
		want Vec2
	}{
		{Vec2Float{X: 0, Y: 0}, Vec2{X: 0, Y: 0}},
		{Vec2Float{X: 15.9, Y: 16}, Vec2{X: 0, Y: 1}},
		{Vec2Float{X: -0.1, Y: -16}, Vec2{X: -1, Y: -1}},
		{Vec2Float{X: -16.01, Y: 31.99}, Vec2{X: -2, Y: 1}},
	}

	for _, c := range cases {
		if got := ChunkOf(c.pos, 16); got != c.want {
			t.Errorf("ChunkOf(%+v) = %+v, ожидалось %+v", c.pos, got, c.want)
		}
	}
}

func TestChebyshev(t *testing.T) {
	if d := (Vec2{X: 1, Y: 1}).ChebyshevTo(Vec2{X: -2, Y: 3}); d != 3 {
		t.Errorf("ожидалось 3, получено %d", d)
	}
}

func TestSplitKeepsLocalInsideChunk(t *testing.T) {
	cases := []Vec2Float{
		{X: -1e-17, Y: -1e-15},
		{X: -32 - 1e-14, Y: 31.999999999999996},
		{X: -0.5, Y: 64},
		{X: 100.25, Y: -100.25},
	}
	for _, pos := range cases {
		chunk, local := Split(pos, 32)
		if local.X < 0 || local.X >= 32 || local.Y < 0 || local.Y >= 32 {
			t.Errorf("Split(%+v): смещение %+v вне [0, 32)", pos, local)
		}
		back := chunk.Origin(32).Add(local)
		if d := back.DistanceTo(pos); d > 1e-9 {
			t.Errorf("Split(%+v): обратная сборка %+v, расхождение %g", pos, back, d)
		}
	}

	chunk, local := Split(Vec2Float{X: -1e-17}, 32)
	if chunk.X != 0 || local.X != 0 {
		t.Errorf("позиция у границы должна попасть в чанк 0 со смещением 0, получено %d/%g", chunk.X, local.X)
	}
}
