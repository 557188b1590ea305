package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"rarays/backend/internal/beam"
)

const (
	marchStepsPerCell = 4
	refineIterations  = 24
)

// RayCast пересекает отрезок q.From→q.To с террейном и телами.
// Тело q.Exclude пропускается, поверхность воды учитывается только при q.Fluid != FluidNone.
// Форма контура и коллайдера у карты высот и сфер совпадает, поэтому q.Shape не влияет на результат.
func (m *Manager) RayCast(q beam.RayQuery) beam.HitResult {
	seg := q.To.Sub(q.From)
	length := seg.Len()
	if length == 0 {
		return beam.HitResult{Type: beam.Miss}
	}
	dir := seg.Mul(1 / length)

	best := math.Inf(1)
	hitType := beam.Miss

	if t, ok := m.terrainHit(q.From, dir, length); ok && t < best {
		best, hitType = t, beam.HitBlock
	}
	if q.Fluid != beam.FluidNone {
		if t, ok := m.waterHit(q.From, dir, length); ok && t < best {
			best, hitType = t, beam.HitBlock
		}
	}
	if t, ok := m.objectHit(q.From, dir, length, q.Exclude); ok && t < best {
		best, hitType = t, beam.HitEntity
	}

	if hitType == beam.Miss {
		return beam.HitResult{Type: beam.Miss}
	}
	return beam.HitResult{Type: hitType, Position: q.From.Add(dir.Mul(best))}
}

// below находится ли точка под поверхностью террейна
func (m *Manager) below(p mgl64.Vec3) bool {
	h, ok := m.terrain.HeightAt(p.X(), p.Z())
	return ok && p.Y() <= h
}

func (m *Manager) terrainHit(from, dir mgl64.Vec3, length float64) (float64, bool) {
	if m.terrain == nil {
		return 0, false
	}
	if m.below(from) {
		return 0, true
	}

	step := m.terrain.cfg.CellSize / marchStepsPerCell
	prev := 0.0
	for t := step; ; t += step {
		if t > length {
			t = length
		}
		if m.below(from.Add(dir.Mul(t))) {
			return m.refine(from, dir, prev, t), true
		}
		if t == length {
			return 0, false
		}
		prev = t
	}
}

// refine бисекцией уточняет точку входа в террейн между lo (снаружи) и hi (внутри)
func (m *Manager) refine(from, dir mgl64.Vec3, lo, hi float64) float64 {
	for i := 0; i < refineIterations; i++ {
		mid := (lo + hi) / 2
		if m.below(from.Add(dir.Mul(mid))) {
			hi = mid
		} else {
			lo = mid
		}
	}
	return hi
}

func (m *Manager) waterHit(from, dir mgl64.Vec3, length float64) (float64, bool) {
	if m.terrain == nil || dir.Y() >= 0 {
		return 0, false
	}
	sea := m.terrain.cfg.SeaLevel
	if from.Y() < sea {
		return 0, false
	}

	t := (sea - from.Y()) / dir.Y()
	if t > length {
		return 0, false
	}
	p := from.Add(dir.Mul(t))
	if !m.terrain.UnderWater(p.X(), p.Z()) {
		return 0, false
	}
	return t, true
}

func (m *Manager) objectHit(from, dir mgl64.Vec3, length float64, exclude string) (float64, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	best := math.Inf(1)
	found := false
	for id, obj := range m.objects {
		if id == exclude {
			continue
		}
		if t, ok := sphereHit(from, dir, obj.Position, obj.Radius); ok && t <= length && t < best {
			best, found = t, true
		}
	}
	return best, found
}

// sphereHit ближайшее неотрицательное пересечение луча со сферой
func sphereHit(from, dir, center mgl64.Vec3, radius float64) (float64, bool) {
	oc := from.Sub(center)
	b := oc.Dot(dir)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}

	sq := math.Sqrt(disc)
	if t := -b - sq; t >= 0 {
		return t, true
	}
	if t := -b + sq; t >= 0 {
		// Начало внутри сферы
		return 0, true
	}
	return 0, false
}
