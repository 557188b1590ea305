package world

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rarays/backend/internal/beam"
)

func TestManager_Objects(t *testing.T) {
	m := flatManager(t, 64, 0)

	m.AddObject(&Object{ID: "a", Position: mgl64.Vec3{1, 2, 3}, Radius: 1})
	m.AddObject(&Object{ID: "b", Position: mgl64.Vec3{4, 5, 6}, Radius: 2})

	obj, ok := m.GetObject("a")
	require.True(t, ok)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, obj.Position)
	assert.Len(t, m.GetAllObjects(), 2)

	require.NoError(t, m.UpdateObjectPosition("a", mgl64.Vec3{7, 8, 9}))
	obj, _ = m.GetObject("a")
	assert.Equal(t, mgl64.Vec3{7, 8, 9}, obj.Position)

	err := m.UpdateObjectPosition("missing", mgl64.Vec3{})
	assert.True(t, errors.Is(err, ErrNotFound))

	m.RemoveObject("a")
	_, ok = m.GetObject("a")
	assert.False(t, ok)
}

func TestManager_AttachDetach(t *testing.T) {
	m := flatManager(t, 64, 0)
	markers := []beam.Marker{{Kind: beam.KindSheath}, {Kind: beam.KindCore}}

	h1, err := m.Attach(markers, beam.Cell{X: 10, Y: 150, Z: 0})
	require.NoError(t, err)
	h2, err := m.Attach(markers, beam.Cell{X: 15, Y: 120, Z: 3})
	require.NoError(t, err)
	h3, err := m.Attach(markers, beam.Cell{X: -1, Y: 120, Z: -17})
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
	assert.Equal(t, 3, m.AttachmentCount())
	assert.Len(t, m.AttachmentsInChunk(ChunkPos{0, 0}), 2)

	far := m.AttachmentsInChunk(ChunkPos{-1, -2})
	require.Len(t, far, 1)
	assert.Equal(t, h3, far[0].Handle)
	assert.Len(t, far[0].Markers, 2)

	require.NoError(t, m.Detach(h1))
	assert.Len(t, m.AttachmentsInChunk(ChunkPos{0, 0}), 1)

	err = m.Detach(h1)
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, m.Detach(h3))
	assert.Empty(t, m.AttachmentsInChunk(ChunkPos{-1, -2}))
	assert.Equal(t, 1, m.AttachmentCount())
}

func TestManager_AttachRejectsEmpty(t *testing.T) {
	m := flatManager(t, 64, 0)

	_, err := m.Attach(nil, beam.Cell{})
	assert.Error(t, err)
	assert.Zero(t, m.AttachmentCount())
}

func TestChunkOf(t *testing.T) {
	assert.Equal(t, ChunkPos{0, 0}, ChunkOf(beam.Cell{X: 0, Z: 15}))
	assert.Equal(t, ChunkPos{1, -1}, ChunkOf(beam.Cell{X: 16, Z: -1}))
	assert.Equal(t, ChunkPos{-2, -1}, ChunkOf(beam.Cell{X: -17, Z: -16}))
}

func TestManager_SurfacePoint(t *testing.T) {
	m := flatManager(t, 64, 0)

	p, err := m.SurfacePoint(3, -4)
	require.NoError(t, err)
	assert.Equal(t, mgl64.Vec3{3, 64, -4}, p)

	_, err = m.SurfacePoint(100, 0)
	assert.True(t, errors.Is(err, ErrOutOfBounds))
}

func TestTerrain_Generate(t *testing.T) {
	cfg := DefaultTerrainConfig()
	cfg.GridSize = 64

	terrain, err := NewTerrain(cfg)
	require.NoError(t, err)
	require.Len(t, terrain.Heights(), 64*64)

	for _, h := range terrain.Heights() {
		assert.GreaterOrEqual(t, float64(h), cfg.MinHeight)
		assert.LessOrEqual(t, float64(h), cfg.MaxHeight)
	}

	// Генерация детерминирована
	again := GenerateHeights(64, 64, cfg.MinHeight, cfg.MaxHeight)
	assert.Equal(t, terrain.Heights(), again)

	m := NewManager(terrain, zerolog.Nop())
	assert.Same(t, terrain, m.Terrain())
}

func TestTerrain_InvalidConfig(t *testing.T) {
	_, err := NewTerrain(TerrainConfig{GridSize: 1, CellSize: 1})
	assert.Error(t, err)

	_, err = NewTerrain(TerrainConfig{GridSize: 8, CellSize: 0})
	assert.Error(t, err)

	_, err = NewTerrain(TerrainConfig{GridSize: 8, CellSize: 1, MinHeight: 10, MaxHeight: 5})
	assert.Error(t, err)

	_, err = NewTerrainFromHeights(TerrainConfig{GridSize: 4, CellSize: 1}, make([]float32, 3))
	assert.Error(t, err)
}

func TestTerrain_HeightAtInterpolates(t *testing.T) {
	cfg := TerrainConfig{GridSize: 2, CellSize: 10}
	// Узлы: (-5,-5)=0 (5,-5)=10 (-5,5)=20 (5,5)=30
	terrain, err := NewTerrainFromHeights(cfg, []float32{0, 10, 20, 30})
	require.NoError(t, err)

	h, ok := terrain.HeightAt(0, 0)
	require.True(t, ok)
	assert.InDelta(t, 15, h, 1e-9)

	h, ok = terrain.HeightAt(5, 5)
	require.True(t, ok)
	assert.InDelta(t, 30, h, 1e-9)

	_, ok = terrain.HeightAt(5.1, 0)
	assert.False(t, ok)
}
