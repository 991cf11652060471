package vec

import "math"

// Vec2 представляет целочисленные 2D координаты (координаты чанка)
type Vec2 struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add складывает два вектора
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// ChebyshevTo возвращает расстояние Чебышёва (max(|dx|,|dy|)) до другой точки
func (v Vec2) ChebyshevTo(other Vec2) int {
	dx := v.X - other.X
	if dx < 0 {
		dx = -dx
	}
	dy := v.Y - other.Y
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Less задаёт детерминированный порядок обхода координат (сначала Y, потом X)
func (v Vec2) Less(other Vec2) bool {
	if v.Y != other.Y {
		return v.Y < other.Y
	}
	return v.X < other.X
}

// DistanceTo вычисляет расстояние до другой точки
func (v Vec2) DistanceTo(other Vec2) float64 {
	dx := float64(v.X - other.X)
	dy := float64(v.Y - other.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// ChunkOf возвращает координату чанка, содержащего мировую позицию.
// Используется floor, поэтому отрицательные координаты попадают в правильный чанк.
func ChunkOf(pos Vec2Float, chunkSize float64) Vec2 {
	return Vec2{
		X: int(math.Floor(pos.X / chunkSize)),
		Y: int(math.Floor(pos.Y / chunkSize)),
	}
}

// Split раскладывает мировую позицию на чанк и смещение в нём.
// Смещение всегда в [0, chunkSize): округление при вычитании origin
// у отрицательных координат может дать ровно chunkSize.
func Split(pos Vec2Float, chunkSize float64) (Vec2, Vec2Float) {
	chunk := ChunkOf(pos, chunkSize)
	local := Vec2Float{
		X: pos.X - float64(chunk.X)*chunkSize,
		Y: pos.Y - float64(chunk.Y)*chunkSize,
	}
	chunk.X, local.X = wrapAxis(chunk.X, local.X, chunkSize)
	chunk.Y, local.Y = wrapAxis(chunk.Y, local.Y, chunkSize)
	return chunk, local
}

func wrapAxis(c int, l, size float64) (int, float64) {
	switch {
	case l >= size:
		return c + 1, max(l-size, 0)
	case l < 0:
		return c - 1, min(l+size, math.Nextafter(size, 0))
	}
	return c, l
}

// Origin возвращает мировую позицию левого нижнего угла чанка
func (v Vec2) Origin(chunkSize float64) Vec2Float {
	return Vec2Float{X: float64(v.X) * chunkSize, Y: float64(v.Y) * chunkSize}
}
