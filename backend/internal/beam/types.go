package beam

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Kind тип маркера луча
type Kind int

const (
	KindSheath Kind = iota // Внешняя полупрозрачная оболочка
	KindCore               // Внутреннее непрозрачное ядро
)

// String возвращает имя типа для логов и сообщений клиенту
func (k Kind) String() string {
	switch k {
	case KindSheath:
		return "sheath"
	case KindCore:
		return "core"
	default:
		return "unknown"
	}
}

// Material возвращает материал, которым клиент рисует маркер
func (k Kind) Material() string {
	if k == KindCore {
		return "light_blue_wool"
	}
	return "white_stained_glass"
}

// Marker один отображаемый элемент луча.
// Позиция вычисляется один раз при создании, меняется только Scale.
type Marker struct {
	Kind         Kind
	BasePosition mgl64.Vec3 // Точка на отрезке origin→target
	Jitter       mgl64.Vec3
	RenderOffset mgl64.Vec3
	Scale        mgl64.Vec3
}

// Position итоговая позиция маркера
func (m Marker) Position() mgl64.Vec3 {
	return m.BasePosition.Add(m.Jitter).Add(m.RenderOffset)
}

// Cell целочисленная ячейка мира
type Cell struct {
	X, Y, Z int
}

// Viewer источник взгляда, из которого бросается луч
type Viewer struct {
	ID        string // Тело зрителя, исключаемое из трассировки
	Eye       mgl64.Vec3
	Direction mgl64.Vec3
}

// ShapeMode форма, с которой пересекается луч
type ShapeMode int

const (
	ShapeCollider ShapeMode = iota
	ShapeOutline
)

// FluidMode учитывает ли луч поверхность жидкости
type FluidMode int

const (
	FluidNone FluidMode = iota
	FluidSource
	FluidAny
)

// RayQuery параметры трассировки отрезка
type RayQuery struct {
	From    mgl64.Vec3
	To      mgl64.Vec3
	Shape   ShapeMode
	Fluid   FluidMode
	Exclude string // ID тела, которое луч игнорирует
}

// HitType результат трассировки
type HitType int

const (
	Miss HitType = iota
	HitBlock
	HitEntity
)

// HitResult точка попадания луча
type HitResult struct {
	Type     HitType
	Position mgl64.Vec3
}

// IsMiss сообщает, что луч ни во что не попал
func (h HitResult) IsMiss() bool {
	return h.Type == Miss
}

// RayCaster трассировка лучей, которую предоставляет мир
type RayCaster interface {
	RayCast(q RayQuery) HitResult
}

// RayCastFunc адаптер функции к RayCaster
type RayCastFunc func(q RayQuery) HitResult

func (f RayCastFunc) RayCast(q RayQuery) HitResult {
	return f(q)
}

// RandomSource равномерные числа в [0,1). *rand.Rand из math/rand/v2 подходит.
type RandomSource interface {
	Float64() float64
}

// Handle непрозрачный идентификатор привязки маркеров в мире
type Handle uint64

// Registry делает маркеры видимыми и привязывает их к чанку мира
type Registry interface {
	Attach(markers []Marker, anchor Cell) (Handle, error)
}
