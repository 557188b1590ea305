package world

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"rarays/backend/internal/beam"
)

// Manager хранит террейн, тела и привязанные к чанкам маркеры
type Manager struct {
	terrain *Terrain

	objects map[string]*Object
	mu      sync.RWMutex

	attachments map[beam.Handle]*Attachment
	chunks      map[ChunkPos]map[beam.Handle]struct{}
	nextHandle  beam.Handle
	attachMu    sync.RWMutex

	logger zerolog.Logger
}

func NewManager(terrain *Terrain, logger zerolog.Logger) *Manager {
	return &Manager{
		terrain:     terrain,
		objects:     make(map[string]*Object),
		attachments: make(map[beam.Handle]*Attachment),
		chunks:      make(map[ChunkPos]map[beam.Handle]struct{}),
		logger:      logger.With().Str("component", "World").Logger(),
	}
}

// Terrain возвращает террейн мира
func (m *Manager) Terrain() *Terrain {
	return m.terrain
}

// AddObject добавляет тело в мир
func (m *Manager) AddObject(obj *Object) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[obj.ID] = obj

	m.logger.Debug().Str("id", obj.ID).
		Floats64("position", obj.Position[:]).
		Float64("radius", obj.Radius).
		Msg("object added")
}

// GetObject возвращает копию тела по идентификатору
func (m *Manager) GetObject(id string) (Object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, exists := m.objects[id]
	if !exists {
		return Object{}, false
	}
	return *obj, true
}

// GetAllObjects возвращает копии всех тел
func (m *Manager) GetAllObjects() []Object {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]Object, 0, len(m.objects))
	for _, obj := range m.objects {
		result = append(result, *obj)
	}
	return result
}

// UpdateObjectPosition перемещает тело
func (m *Manager) UpdateObjectPosition(id string, position mgl64.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	obj, exists := m.objects[id]
	if !exists {
		return fmt.Errorf("update %s: %w", id, ErrNotFound)
	}
	obj.Position = position
	return nil
}

// RemoveObject удаляет тело
func (m *Manager) RemoveObject(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
}

// SurfacePoint точка на поверхности террейна над (x, z)
func (m *Manager) SurfacePoint(x, z float64) (mgl64.Vec3, error) {
	h, ok := m.terrain.HeightAt(x, z)
	if !ok {
		return mgl64.Vec3{}, fmt.Errorf("surface at (%.1f, %.1f): %w", x, z, ErrOutOfBounds)
	}
	return mgl64.Vec3{x, h, z}, nil
}

// Attach привязывает маркеры к чанку ячейки anchor
func (m *Manager) Attach(markers []beam.Marker, anchor beam.Cell) (beam.Handle, error) {
	if len(markers) == 0 {
		return 0, fmt.Errorf("attach at %v: no markers", anchor)
	}

	m.attachMu.Lock()
	defer m.attachMu.Unlock()

	m.nextHandle++
	handle := m.nextHandle
	chunk := ChunkOf(anchor)

	m.attachments[handle] = &Attachment{
		Handle:  handle,
		Anchor:  anchor,
		Chunk:   chunk,
		Markers: markers,
	}
	if m.chunks[chunk] == nil {
		m.chunks[chunk] = make(map[beam.Handle]struct{})
	}
	m.chunks[chunk][handle] = struct{}{}

	m.logger.Debug().Uint64("handle", uint64(handle)).
		Int("chunk_x", chunk.X).Int("chunk_z", chunk.Z).
		Int("markers", len(markers)).
		Msg("markers attached")

	return handle, nil
}

// Detach освобождает привязку
func (m *Manager) Detach(handle beam.Handle) error {
	m.attachMu.Lock()
	defer m.attachMu.Unlock()

	att, exists := m.attachments[handle]
	if !exists {
		return fmt.Errorf("detach %d: %w", handle, ErrNotFound)
	}

	delete(m.attachments, handle)
	delete(m.chunks[att.Chunk], handle)
	if len(m.chunks[att.Chunk]) == 0 {
		delete(m.chunks, att.Chunk)
	}
	return nil
}

// AttachmentsInChunk привязки в чанке
func (m *Manager) AttachmentsInChunk(chunk ChunkPos) []*Attachment {
	m.attachMu.RLock()
	defer m.attachMu.RUnlock()

	result := make([]*Attachment, 0, len(m.chunks[chunk]))
	for handle := range m.chunks[chunk] {
		result = append(result, m.attachments[handle])
	}
	return result
}

// AttachmentCount число активных привязок
func (m *Manager) AttachmentCount() int {
	m.attachMu.RLock()
	defer m.attachMu.RUnlock()
	return len(m.attachments)
}
