package world

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"

	"rarays/backend/internal/beam"
)

var (
	ErrNotFound    = errors.New("object not found")
	ErrOutOfBounds = errors.New("position outside terrain")
)

// ChunkSize ширина чанка в ячейках по X и Z
const ChunkSize = 16

// Object сферическое тело в мире (зритель, подключенный игрок)
type Object struct {
	ID       string
	Position mgl64.Vec3
	Radius   float64
}

// ChunkPos координаты чанка
type ChunkPos struct {
	X, Z int
}

// ChunkOf возвращает чанк, содержащий ячейку
func ChunkOf(cell beam.Cell) ChunkPos {
	// Арифметический сдвиг дает floor и для отрицательных координат
	return ChunkPos{X: cell.X >> 4, Z: cell.Z >> 4}
}

// Attachment набор маркеров, привязанный к чанку
type Attachment struct {
	Handle  beam.Handle
	Anchor  beam.Cell
	Chunk   ChunkPos
	Markers []beam.Marker
}
