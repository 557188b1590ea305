package world

import (
	"fmt"
	"math"
)

// TerrainConfig параметры карты высот
type TerrainConfig struct {
	GridSize  int     // Число узлов по каждой оси
	CellSize  float64 // Расстояние между узлами в мире
	MinHeight float64
	MaxHeight float64
	SeaLevel  float64
}

// DefaultTerrainConfig настройки по умолчанию
func DefaultTerrainConfig() TerrainConfig {
	return TerrainConfig{
		GridSize:  128,
		CellSize:  1.0,
		MinHeight: 48,
		MaxHeight: 90,
		SeaLevel:  62,
	}
}

// Terrain карта высот с центром в начале координат
type Terrain struct {
	cfg     TerrainConfig
	heights []float32
}

// NewTerrain генерирует террейн шумом с горами
func NewTerrain(cfg TerrainConfig) (*Terrain, error) {
	if cfg.GridSize < 2 {
		return nil, fmt.Errorf("terrain grid size must be at least 2, got %d", cfg.GridSize)
	}
	if cfg.CellSize <= 0 {
		return nil, fmt.Errorf("terrain cell size must be positive, got %f", cfg.CellSize)
	}
	if cfg.MaxHeight < cfg.MinHeight {
		return nil, fmt.Errorf("terrain max height %f below min height %f", cfg.MaxHeight, cfg.MinHeight)
	}

	return &Terrain{
		cfg:     cfg,
		heights: GenerateHeights(cfg.GridSize, cfg.GridSize, cfg.MinHeight, cfg.MaxHeight),
	}, nil
}

// NewTerrainFromHeights строит террейн из готовых высот (строки по Z)
func NewTerrainFromHeights(cfg TerrainConfig, heights []float32) (*Terrain, error) {
	if cfg.GridSize < 2 || len(heights) != cfg.GridSize*cfg.GridSize {
		return nil, fmt.Errorf("expected %d heights for grid %d, got %d",
			cfg.GridSize*cfg.GridSize, cfg.GridSize, len(heights))
	}
	if cfg.CellSize <= 0 {
		return nil, fmt.Errorf("terrain cell size must be positive, got %f", cfg.CellSize)
	}

	return &Terrain{cfg: cfg, heights: heights}, nil
}

// Config параметры террейна
func (t *Terrain) Config() TerrainConfig {
	return t.cfg
}

// Heights сырые высоты узлов
func (t *Terrain) Heights() []float32 {
	return t.heights
}

// HalfExtent половина ширины террейна в мировых единицах
func (t *Terrain) HalfExtent() float64 {
	return float64(t.cfg.GridSize-1) * t.cfg.CellSize / 2
}

// HeightAt высота поверхности в точке (билинейная интерполяция).
// Вне карты возвращает false.
func (t *Terrain) HeightAt(x, z float64) (float64, bool) {
	half := t.HalfExtent()
	gx := (x + half) / t.cfg.CellSize
	gz := (z + half) / t.cfg.CellSize

	last := float64(t.cfg.GridSize - 1)
	if gx < 0 || gz < 0 || gx > last || gz > last {
		return 0, false
	}

	x0 := int(math.Floor(gx))
	z0 := int(math.Floor(gz))
	x1 := min(x0+1, t.cfg.GridSize-1)
	z1 := min(z0+1, t.cfg.GridSize-1)

	sx := gx - float64(x0)
	sz := gz - float64(z0)

	h00 := t.at(x0, z0)
	h10 := t.at(x1, z0)
	h01 := t.at(x0, z1)
	h11 := t.at(x1, z1)

	return lerpValue(lerpValue(h00, h10, sx), lerpValue(h01, h11, sx), sz), true
}

// UnderWater находится ли поверхность в точке ниже уровня моря
func (t *Terrain) UnderWater(x, z float64) bool {
	h, ok := t.HeightAt(x, z)
	return ok && h < t.cfg.SeaLevel
}

func (t *Terrain) at(i, j int) float64 {
	return float64(t.heights[j*t.cfg.GridSize+i])
}

// perlinNoise2D - хеш-шум
func perlinNoise2D(x, y float64) float64 {
	h := x*12.9898 + y*78.233
	sinH := math.Sin(h)
	return math.Abs(sinH*43758.5453) - math.Floor(math.Abs(sinH*43758.5453))
}

func lerpValue(a, b, t float64) float64 {
	return a + t*(b-a)
}

func smoothstepValue(t float64) float64 {
	return t * t * (3.0 - 2.0*t)
}

// getSmoothNoise сглаженный шум в узлах целочисленной решетки
func getSmoothNoise(x, y float64) float64 {
	x0 := math.Floor(x)
	y0 := math.Floor(y)

	sx := smoothstepValue(x - x0)
	sy := smoothstepValue(y - y0)

	nx0 := lerpValue(perlinNoise2D(x0, y0), perlinNoise2D(x0+1, y0), sx)
	nx1 := lerpValue(perlinNoise2D(x0, y0+1), perlinNoise2D(x0+1, y0+1), sx)
	return lerpValue(nx0, nx1, sy)
}

type mountain struct {
	x, z, height, radius float64
}

// GenerateHeights фрактальный шум плюс несколько гор, результат в [minHeight, maxHeight]
func GenerateHeights(w, h int, minHeight, maxHeight float64) []float32 {
	data := make([]float32, w*h)

	scales := []float64{1.0, 0.5, 0.25, 0.125, 0.0625}
	amplitudes := []float64{0.5, 0.25, 0.125, 0.0625, 0.03125}

	heightRange := maxHeight - minHeight

	// Фиксированные позиции гор, чтобы мир был воспроизводим
	positions := []struct{ x, z float64 }{
		{0.2, 0.3}, {0.7, 0.8}, {0.4, 0.7}, {0.8, 0.2}, {0.1, 0.9},
	}
	mountains := make([]mountain, len(positions))
	for i, p := range positions {
		mountains[i] = mountain{
			x:      p.x * float64(w),
			z:      p.z * float64(h),
			height: 0.5 + 0.5*math.Abs(perlinNoise2D(float64(i)*0.1, 0.5)),
			radius: 5.0 + 15.0*math.Abs(perlinNoise2D(0.5, float64(i)*0.1)),
		}
	}

	for j := 0; j < h; j++ {
		for i := 0; i < w; i++ {
			nx := float64(i) / float64(w-1)
			nz := float64(j) / float64(h-1)

			noise := 0.0
			for layer, scale := range scales {
				noise += getSmoothNoise(nx*scale*10.0, nz*scale*10.0) * amplitudes[layer]
			}
			elevation := (noise + 0.5) * 0.5

			for _, m := range mountains {
				dx := float64(i) - m.x
				dz := float64(j) - m.z
				distance := math.Sqrt(dx*dx + dz*dz)
				if distance < m.radius {
					falloff := math.Pow(1.0-distance/m.radius, 2.0)
					elevation += m.height * falloff * 0.8
				}
			}

			elevation = math.Max(0, math.Min(1, elevation))
			data[j*w+i] = float32(elevation*heightRange + minHeight)
		}
	}

	return data
}
