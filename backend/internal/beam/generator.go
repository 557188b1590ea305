package beam

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Константы геометрии луча
const (
	MaxDistance = 100.0 // Дальность трассировки из глаз зрителя

	MinHeight = 100.0 // Высота точки начала луча
	MaxHeight = 200.0
	MaxRadius = 20.0 // Горизонтальный разброс начала относительно попадания

	DipDepth = 1.5 // Луч заканчивается чуть ниже поверхности

	MarkersPerUnit = 4
	MinCoreMarkers = 100

	JitterAmount = 0.02 // Полный диапазон смещения по каждой оси

	SheathScale = 1.0
	CoreScale   = 0.5
)

// Константы анимации
const (
	OscillationStep      = 0.03 // Прирост фазы за один вызов Tick
	OscillationAmplitude = 0.3
)

var (
	sheathOffset = mgl64.Vec3{0.5, 0.5, 0.5}
	coreOffset   = mgl64.Vec3{0.75, 1.0, 0.75}
)

// Generator строит и анимирует лучи. Не потокобезопасен: вызовы сериализует владелец лучей.
type Generator struct {
	caster RayCaster
	rng    RandomSource
}

// NewGenerator создает генератор. Если rng == nil, используется math/rand/v2.
func NewGenerator(caster RayCaster, rng RandomSource) *Generator {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}

	return &Generator{
		caster: caster,
		rng:    rng,
	}
}

// Spawn бросает луч из глаз зрителя и строит луч к точке попадания.
// При промахе возвращает (nil, false) и ничего не создает.
func (g *Generator) Spawn(viewer Viewer) (*Instance, bool) {
	dir := viewer.Direction
	if l := dir.Len(); l > 0 && l != 1 {
		dir = dir.Mul(1 / l)
	}

	hit := g.caster.RayCast(RayQuery{
		From:    viewer.Eye,
		To:      viewer.Eye.Add(dir.Mul(MaxDistance)),
		Shape:   ShapeOutline,
		Fluid:   FluidNone,
		Exclude: viewer.ID,
	})
	if hit.IsMiss() {
		return nil, false
	}

	origin := g.randomOrigin(hit.Position)
	target := hit.Position.Sub(mgl64.Vec3{0, DipDepth, 0})

	coreCount, sheathCount := MarkerCounts(origin.Sub(target).Len())

	in := &Instance{
		Origin: origin,
		Target: target,
		sheath: g.buildMarkers(KindSheath, origin, target, sheathCount),
		core:   g.buildMarkers(KindCore, origin, target, coreCount),
	}
	in.reset()

	return in, true
}

// Tick продвигает фазу мерцания на один фиксированный шаг.
// Шаг не зависит от реального времени: период анимации задает частота вызовов.
func (g *Generator) Tick(in *Instance) {
	in.advance()
}

// MarkerCounts число маркеров ядра и оболочки для луча длины distance
func MarkerCounts(distance float64) (core, sheath int) {
	core = int(distance * MarkersPerUnit)
	if core < MinCoreMarkers {
		core = MinCoreMarkers
	}
	return core, core / 2
}

// Progress доля пути для i-го маркера из n.
// Одиночный маркер закрепляется в начале луча.
func Progress(i, n int) float64 {
	if n <= 1 {
		return 0
	}
	return float64(i) / float64(n-1)
}

func (g *Generator) randomOrigin(hit mgl64.Vec3) mgl64.Vec3 {
	height := MinHeight + g.rng.Float64()*(MaxHeight-MinHeight)
	angle := g.rng.Float64() * math.Pi * 2
	radius := g.rng.Float64() * MaxRadius

	return mgl64.Vec3{
		hit.X() + math.Cos(angle)*radius,
		height,
		hit.Z() + math.Sin(angle)*radius,
	}
}

func (g *Generator) buildMarkers(kind Kind, origin, target mgl64.Vec3, n int) []Marker {
	scale, offset := SheathScale, sheathOffset
	if kind == KindCore {
		scale, offset = CoreScale, coreOffset
	}

	markers := make([]Marker, n)
	for i := range markers {
		markers[i] = Marker{
			Kind:         kind,
			BasePosition: lerp(origin, target, Progress(i, n)),
			Jitter:       g.jitter(),
			RenderOffset: offset,
			Scale:        mgl64.Vec3{scale, scale, scale},
		}
	}
	return markers
}

func (g *Generator) jitter() mgl64.Vec3 {
	return mgl64.Vec3{
		g.rng.Float64()*JitterAmount - JitterAmount/2,
		g.rng.Float64()*JitterAmount - JitterAmount/2,
		g.rng.Float64()*JitterAmount - JitterAmount/2,
	}
}

func lerp(a, b mgl64.Vec3, t float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}
