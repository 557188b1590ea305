package beam

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource отдает заданные значения, затем 0.5
type scriptedSource struct {
	values []float64
	calls  int
}

func (s *scriptedSource) Float64() float64 {
	s.calls++
	if len(s.values) == 0 {
		return 0.5
	}
	v := s.values[0]
	s.values = s.values[1:]
	return v
}

// fixedHit всегда попадает в точку и запоминает запросы
type fixedHit struct {
	pos     mgl64.Vec3
	queries []RayQuery
}

func (f *fixedHit) RayCast(q RayQuery) HitResult {
	f.queries = append(f.queries, q)
	return HitResult{Type: HitBlock, Position: f.pos}
}

func vecInDelta(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDelta(t, want[i], got[i], delta, "axis %d: want %v got %v", i, want, got)
	}
}

func TestSpawn_MissCreatesNothing(t *testing.T) {
	rng := &scriptedSource{}
	calls := 0
	gen := NewGenerator(RayCastFunc(func(q RayQuery) HitResult {
		calls++
		return HitResult{Type: Miss}
	}), rng)

	in, ok := gen.Spawn(Viewer{ID: "p1", Eye: mgl64.Vec3{0, 70, 0}, Direction: mgl64.Vec3{0, -1, 0}})

	assert.False(t, ok)
	assert.Nil(t, in)
	assert.Equal(t, 1, calls)
	assert.Zero(t, rng.calls, "random source must not be touched on miss")
}

func TestSpawn_RayQuery(t *testing.T) {
	caster := &fixedHit{pos: mgl64.Vec3{0, 64, 0}}
	gen := NewGenerator(caster, &scriptedSource{})

	_, ok := gen.Spawn(Viewer{ID: "viewer", Eye: mgl64.Vec3{1, 70, 2}, Direction: mgl64.Vec3{0, 0, 1}})
	require.True(t, ok)
	require.Len(t, caster.queries, 1)

	q := caster.queries[0]
	assert.Equal(t, mgl64.Vec3{1, 70, 2}, q.From)
	assert.Equal(t, mgl64.Vec3{1, 70, 102}, q.To)
	assert.Equal(t, ShapeOutline, q.Shape)
	assert.Equal(t, FluidNone, q.Fluid)
	assert.Equal(t, "viewer", q.Exclude)
}

func TestSpawn_Scenario(t *testing.T) {
	// height=150, angle=0, radius=10; дальше все смещения нулевые
	rng := &scriptedSource{values: []float64{0.5, 0, 0.5}}
	gen := NewGenerator(&fixedHit{pos: mgl64.Vec3{0, 64, 0}}, rng)

	in, ok := gen.Spawn(Viewer{Eye: mgl64.Vec3{0, 70, -5}, Direction: mgl64.Vec3{0, -1, 1}})
	require.True(t, ok)

	assert.Equal(t, mgl64.Vec3{10, 150, 0}, in.Origin)
	assert.Equal(t, mgl64.Vec3{0, 62.5, 0}, in.Target)

	dist := in.Origin.Sub(in.Target).Len()
	assert.InDelta(t, math.Sqrt(10*10+87.5*87.5), dist, 1e-9)

	wantCore := int(dist * 4)
	assert.Equal(t, 352, wantCore)
	assert.Equal(t, wantCore, in.CoreCount())
	assert.Equal(t, wantCore/2, in.SheathCount())

	core := in.CoreMarkers()
	vecInDelta(t, in.Origin, core[0].BasePosition, 1e-9)
	vecInDelta(t, in.Target, core[len(core)-1].BasePosition, 1e-9)
	vecInDelta(t, in.Origin.Add(mgl64.Vec3{0.75, 1, 0.75}), core[0].Position(), 1e-9)

	sheath := in.SheathMarkers()
	vecInDelta(t, in.Origin, sheath[0].BasePosition, 1e-9)
	vecInDelta(t, in.Target, sheath[len(sheath)-1].BasePosition, 1e-9)
	vecInDelta(t, in.Target.Add(mgl64.Vec3{0.5, 0.5, 0.5}), sheath[len(sheath)-1].Position(), 1e-9)

	assert.Equal(t, Cell{X: 10, Y: 150, Z: 0}, in.AnchorCell())
	assert.Zero(t, in.Phase())
}

func TestSpawn_ShortBeamUsesMinimumCount(t *testing.T) {
	// Начало прямо над попаданием на высоте 100
	rng := &scriptedSource{values: []float64{0, 0, 0}}
	gen := NewGenerator(&fixedHit{pos: mgl64.Vec3{5, 90, 5}}, rng)

	in, ok := gen.Spawn(Viewer{Direction: mgl64.Vec3{1, 0, 0}})
	require.True(t, ok)

	// |(5,100,5)-(5,88.5,5)| = 11.5 → 46 маркеров, поднимается до 100
	assert.Equal(t, MinCoreMarkers, in.CoreCount())
	assert.Equal(t, MinCoreMarkers/2, in.SheathCount())
}

func TestSpawn_MarkerLayers(t *testing.T) {
	gen := NewGenerator(&fixedHit{pos: mgl64.Vec3{-3, 64, 7}}, rand.New(rand.NewPCG(1, 2)))

	in, ok := gen.Spawn(Viewer{Direction: mgl64.Vec3{0, -1, 0}})
	require.True(t, ok)

	for _, m := range in.SheathMarkers() {
		assert.Equal(t, KindSheath, m.Kind)
		assert.Equal(t, mgl64.Vec3{1, 1, 1}, m.Scale)
		assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, m.RenderOffset)
	}
	for _, m := range in.CoreMarkers() {
		assert.Equal(t, KindCore, m.Kind)
		assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, m.Scale)
		assert.Equal(t, mgl64.Vec3{0.75, 1, 0.75}, m.RenderOffset)
	}

	all := in.Markers()
	require.Len(t, all, in.SheathCount()+in.CoreCount())
	assert.Equal(t, KindSheath, all[0].Kind)
	assert.Equal(t, KindCore, all[len(all)-1].Kind)

	h := in.Origin.Y()
	assert.GreaterOrEqual(t, h, MinHeight)
	assert.Less(t, h, MaxHeight)

	horiz := mgl64.Vec2{in.Origin.X() + 3, in.Origin.Z() - 7}.Len()
	assert.Less(t, horiz, MaxRadius+1e-9)
}

func TestSpawn_JitterRange(t *testing.T) {
	gen := NewGenerator(&fixedHit{pos: mgl64.Vec3{0, 64, 0}}, rand.New(rand.NewPCG(7, 11)))

	in, ok := gen.Spawn(Viewer{Direction: mgl64.Vec3{0, -1, 0}})
	require.True(t, ok)

	distinct := make(map[float64]struct{})
	for _, m := range in.Markers() {
		for axis := 0; axis < 3; axis++ {
			assert.GreaterOrEqual(t, m.Jitter[axis], -JitterAmount/2)
			assert.LessOrEqual(t, m.Jitter[axis], JitterAmount/2)
			distinct[m.Jitter[axis]] = struct{}{}
		}
	}
	assert.Greater(t, len(distinct), len(in.Markers()), "jitter must be drawn per marker and axis")
}

func TestSpawn_InterpolationMonotonic(t *testing.T) {
	gen := NewGenerator(&fixedHit{pos: mgl64.Vec3{0, 64, 0}}, &scriptedSource{values: []float64{0.3, 0.1, 0.9}})

	in, ok := gen.Spawn(Viewer{Direction: mgl64.Vec3{0, -1, 0}})
	require.True(t, ok)

	core := in.CoreMarkers()
	for i := 1; i < len(core); i++ {
		assert.Less(t, core[i].BasePosition.Y(), core[i-1].BasePosition.Y())
	}
}

func TestProgress(t *testing.T) {
	assert.Equal(t, 0.0, Progress(0, 10))
	assert.Equal(t, 1.0, Progress(9, 10))
	assert.Equal(t, 0.5, Progress(1, 3))
	assert.Equal(t, 0.0, Progress(0, 1), "single marker is pinned to origin")
	assert.Equal(t, 0.0, Progress(0, 0))
}

func TestMarkerCounts(t *testing.T) {
	tests := []struct {
		distance   float64
		core, shea int
	}{
		{0, 100, 50},
		{24.9, 100, 50},
		{25, 100, 50},
		{25.3, 101, 50},
		{150.33, 601, 300},
		{200, 800, 400},
	}

	for _, tt := range tests {
		core, sheath := MarkerCounts(tt.distance)
		assert.Equal(t, tt.core, core, "distance %v", tt.distance)
		assert.Equal(t, tt.shea, sheath, "distance %v", tt.distance)
	}
}

func TestTick_Oscillation(t *testing.T) {
	gen := NewGenerator(&fixedHit{pos: mgl64.Vec3{0, 64, 0}}, rand.New(rand.NewPCG(3, 4)))
	in, ok := gen.Spawn(Viewer{Direction: mgl64.Vec3{0, -1, 0}})
	require.True(t, ok)

	positions := make([]mgl64.Vec3, 0, in.SheathCount()+in.CoreCount())
	for _, m := range in.Markers() {
		positions = append(positions, m.Position())
	}

	for n := 1; n <= 250; n++ {
		gen.Tick(in)

		wantPhase := float64(n) * 0.03
		wantSheath := 1.0 + math.Sin(wantPhase)*0.3
		wantCore := 0.5 * wantSheath

		require.Equal(t, wantPhase, in.Phase())
		require.Equal(t, uint64(n), in.Ticks())

		for _, m := range in.SheathMarkers() {
			require.Equal(t, mgl64.Vec3{wantSheath, wantSheath, wantSheath}, m.Scale)
		}
		for _, m := range in.CoreMarkers() {
			require.Equal(t, mgl64.Vec3{wantCore, wantCore, wantCore}, m.Scale)
		}

		s, c := in.Scales()
		require.Equal(t, wantSheath, s)
		require.Equal(t, wantCore, c)
	}

	for i, m := range in.Markers() {
		assert.Equal(t, positions[i], m.Position(), "marker %d moved", i)
	}
}

func TestInstance_ReadViewIsCopy(t *testing.T) {
	gen := NewGenerator(&fixedHit{pos: mgl64.Vec3{0, 64, 0}}, &scriptedSource{})
	in, ok := gen.Spawn(Viewer{Direction: mgl64.Vec3{0, -1, 0}})
	require.True(t, ok)

	view := in.CoreMarkers()
	view[0].Scale = mgl64.Vec3{9, 9, 9}
	view[0].BasePosition = mgl64.Vec3{}

	fresh := in.CoreMarkers()
	assert.Equal(t, mgl64.Vec3{0.5, 0.5, 0.5}, fresh[0].Scale)
	assert.Equal(t, in.Origin, fresh[0].BasePosition)
}

func TestAnchorCell_TruncatesTowardZero(t *testing.T) {
	in := &Instance{Origin: mgl64.Vec3{-3.7, 120.9, 4.2}}
	assert.Equal(t, Cell{X: -3, Y: 120, Z: 4}, in.AnchorCell())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "sheath", KindSheath.String())
	assert.Equal(t, "core", KindCore.String())
	assert.Equal(t, "white_stained_glass", KindSheath.Material())
	assert.Equal(t, "light_blue_wool", KindCore.Material())
}

func BenchmarkSpawn(b *testing.B) {
	gen := NewGenerator(&fixedHit{pos: mgl64.Vec3{0, 64, 0}}, rand.New(rand.NewPCG(1, 1)))
	viewer := Viewer{Direction: mgl64.Vec3{0, -1, 0}}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		gen.Spawn(viewer)
	}
}
