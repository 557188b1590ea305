package beam

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Instance один построенный луч. Маркеры меняются только через Generator.Tick.
type Instance struct {
	Origin mgl64.Vec3
	Target mgl64.Vec3

	sheath []Marker
	core   []Marker

	ticks uint64
	phase float64
}

// AnchorCell ячейка, к которой луч привязывается в мире (усечение origin по осям)
func (in *Instance) AnchorCell() Cell {
	return Cell{
		X: int(in.Origin.X()),
		Y: int(in.Origin.Y()),
		Z: int(in.Origin.Z()),
	}
}

// Phase текущая фаза мерцания
func (in *Instance) Phase() float64 {
	return in.phase
}

// Ticks сколько раз луч был анимирован
func (in *Instance) Ticks() uint64 {
	return in.ticks
}

// SheathCount число маркеров оболочки
func (in *Instance) SheathCount() int {
	return len(in.sheath)
}

// CoreCount число маркеров ядра
func (in *Instance) CoreCount() int {
	return len(in.core)
}

// SheathMarkers копия маркеров оболочки
func (in *Instance) SheathMarkers() []Marker {
	return append([]Marker(nil), in.sheath...)
}

// CoreMarkers копия маркеров ядра
func (in *Instance) CoreMarkers() []Marker {
	return append([]Marker(nil), in.core...)
}

// Markers копия всех маркеров: сначала оболочка, затем ядро
func (in *Instance) Markers() []Marker {
	out := make([]Marker, 0, len(in.sheath)+len(in.core))
	out = append(out, in.sheath...)
	return append(out, in.core...)
}

// Scales текущий масштаб оболочки и ядра
func (in *Instance) Scales() (sheath, core float64) {
	if in.ticks == 0 {
		return SheathScale, CoreScale
	}
	return OscillationScales(in.phase)
}

// OscillationScales масштабы слоев для заданной фазы
func OscillationScales(phase float64) (sheath, core float64) {
	sheath = 1.0 + math.Sin(phase)*OscillationAmplitude
	return sheath, CoreScale * sheath
}

func (in *Instance) reset() {
	in.ticks = 0
	in.phase = 0
}

func (in *Instance) advance() {
	in.ticks++
	// Фаза считается от счетчика, чтобы не накапливать ошибку сложения
	in.phase = float64(in.ticks) * OscillationStep

	sheath, core := OscillationScales(in.phase)
	setScale(in.sheath, sheath)
	setScale(in.core, core)
}

func setScale(markers []Marker, s float64) {
	for i := range markers {
		markers[i].Scale = mgl64.Vec3{s, s, s}
	}
}
