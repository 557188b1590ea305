package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"

	"rarays/backend/internal/beam"
)

// BeamBroadcaster отправляет клиентам события лучей
type BeamBroadcaster interface {
	BroadcastBeamCreated(snapshot BeamSnapshot)
	BroadcastBeamScale(update BeamScaleUpdate)
	BroadcastBeamRemoved(beamID string)
}

// BeamRegistry привязка маркеров к миру с возможностью освобождения
type BeamRegistry interface {
	beam.Registry
	Detach(handle beam.Handle) error
}

// BeamSnapshot полное состояние луча для нового клиента
type BeamSnapshot struct {
	ID          string
	OwnerID     string
	Origin      mgl64.Vec3
	Target      mgl64.Vec3
	Anchor      beam.Cell
	Markers     []beam.Marker
	Phase       float64
	SheathScale float64
	CoreScale   float64
}

// BeamScaleUpdate новый масштаб слоев после тика
type BeamScaleUpdate struct {
	ID          string
	Phase       float64
	SheathScale float64
	CoreScale   float64
}

type activeBeam struct {
	id       string
	ownerID  string
	instance *beam.Instance
	handle   beam.Handle
	age      int
}

func (ab *activeBeam) snapshot() BeamSnapshot {
	sheath, core := ab.instance.Scales()
	return BeamSnapshot{
		ID:          ab.id,
		OwnerID:     ab.ownerID,
		Origin:      ab.instance.Origin,
		Target:      ab.instance.Target,
		Anchor:      ab.instance.AnchorCell(),
		Markers:     ab.instance.Markers(),
		Phase:       ab.instance.Phase(),
		SheathScale: sheath,
		CoreScale:   core,
	}
}

// BeamSystem владеет активными лучами: создает, анимирует каждый тик и удаляет по истечении срока.
// Все обращения к лучам и генератору сериализованы mu. Рассылки идут под publishMu,
// который захватывается до освобождения mu, поэтому клиенты видят события в порядке изменений.
// Порядок захвата: mu, затем publishMu.
type BeamSystem struct {
	name     string
	priority int

	generator   *beam.Generator
	registry    BeamRegistry
	broadcaster BeamBroadcaster

	lifetimeTicks int // 0 - без ограничения
	maxActive     int

	beams  map[string]*activeBeam
	order  []string // Порядок создания, старые первыми
	nextID uint64
	mu     sync.Mutex

	publishMu sync.Mutex

	logger zerolog.Logger
}

// NewBeamSystem создает систему лучей
func NewBeamSystem(generator *beam.Generator, registry BeamRegistry, lifetimeTicks, maxActive int, logger zerolog.Logger) *BeamSystem {
	if maxActive <= 0 {
		maxActive = 1
	}
	return &BeamSystem{
		name:          "BeamSystem",
		priority:      20,
		generator:     generator,
		registry:      registry,
		lifetimeTicks: lifetimeTicks,
		maxActive:     maxActive,
		beams:         make(map[string]*activeBeam),
		logger:        logger.With().Str("component", "BeamSystem").Logger(),
	}
}

// SetBroadcaster устанавливает получателя событий
func (bs *BeamSystem) SetBroadcaster(broadcaster BeamBroadcaster) {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	bs.broadcaster = broadcaster
}

// Fire создает луч по взгляду зрителя. При промахе возвращает false без побочных эффектов.
// Spawn выполняется под bs.mu: генератор и его источник случайных чисел не потокобезопасны.
func (bs *BeamSystem) Fire(viewer beam.Viewer) (BeamSnapshot, bool, error) {
	created, err := bs.spawnLocked(viewer)
	if err != nil || created == nil {
		return BeamSnapshot{}, false, err
	}
	defer bs.publishMu.Unlock()

	if created.broadcaster != nil {
		for _, id := range created.evicted {
			created.broadcaster.BroadcastBeamRemoved(id)
		}
		created.broadcaster.BroadcastBeamCreated(created.snapshot)
	}

	return created.snapshot, true, nil
}

type spawnResult struct {
	snapshot    BeamSnapshot
	evicted     []string
	broadcaster BeamBroadcaster
}

// spawnLocked создает и регистрирует луч. При успехе возвращает с захваченным publishMu.
func (bs *BeamSystem) spawnLocked(viewer beam.Viewer) (*spawnResult, error) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	instance, ok := bs.generator.Spawn(viewer)
	if !ok {
		bs.logger.Debug().Str("viewer", viewer.ID).Msg("beam ray missed")
		return nil, nil
	}

	handle, err := bs.registry.Attach(instance.Markers(), instance.AnchorCell())
	if err != nil {
		return nil, fmt.Errorf("attach beam markers: %w", err)
	}

	var evicted []string
	for len(bs.order) >= bs.maxActive {
		evicted = append(evicted, bs.removeLocked(bs.order[0]))
	}

	bs.nextID++
	ab := &activeBeam{
		id:       fmt.Sprintf("beam_%d", bs.nextID),
		ownerID:  viewer.ID,
		instance: instance,
		handle:   handle,
	}
	bs.beams[ab.id] = ab
	bs.order = append(bs.order, ab.id)

	bs.logger.Info().
		Str("beam", ab.id).
		Str("viewer", viewer.ID).
		Floats64("origin", instance.Origin[:]).
		Floats64("target", instance.Target[:]).
		Int("sheath", instance.SheathCount()).
		Int("core", instance.CoreCount()).
		Msg("beam spawned")

	result := &spawnResult{
		snapshot:    ab.snapshot(),
		evicted:     evicted,
		broadcaster: bs.broadcaster,
	}
	bs.publishMu.Lock()
	return result, nil
}

// Update анимирует все активные лучи на один шаг и удаляет истекшие
func (bs *BeamSystem) Update(deltaTime time.Duration) error {
	updates, expired, broadcaster := bs.advanceLocked()
	defer bs.publishMu.Unlock()

	if broadcaster == nil {
		return nil
	}
	for _, u := range updates {
		broadcaster.BroadcastBeamScale(u)
	}
	for _, id := range expired {
		broadcaster.BroadcastBeamRemoved(id)
	}
	return nil
}

// advanceLocked продвигает лучи на тик. Возвращает с захваченным publishMu.
func (bs *BeamSystem) advanceLocked() ([]BeamScaleUpdate, []string, BeamBroadcaster) {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	updates := make([]BeamScaleUpdate, 0, len(bs.order))
	var expired []string

	for _, id := range bs.order {
		ab := bs.beams[id]
		bs.generator.Tick(ab.instance)
		ab.age++

		sheath, core := ab.instance.Scales()
		updates = append(updates, BeamScaleUpdate{
			ID:          id,
			Phase:       ab.instance.Phase(),
			SheathScale: sheath,
			CoreScale:   core,
		})

		if bs.lifetimeTicks > 0 && ab.age >= bs.lifetimeTicks {
			expired = append(expired, id)
		}
	}

	for _, id := range expired {
		bs.removeLocked(id)
	}

	bs.publishMu.Lock()
	return updates, expired, bs.broadcaster
}

// Snapshots состояние всех активных лучей в порядке создания
func (bs *BeamSystem) Snapshots() []BeamSnapshot {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return bs.snapshotsLocked()
}

// WithSnapshots вызывает fn со снимками всех лучей. Пока fn выполняется,
// рассылки не идут, поэтому подписчик, добавленный внутри fn, не получит
// ни дубликата beam_create, ни beam_scale для луча, которого нет в снимке.
func (bs *BeamSystem) WithSnapshots(fn func(snapshots []BeamSnapshot)) {
	snapshots := bs.lockedSnapshotsForPublish()
	defer bs.publishMu.Unlock()
	fn(snapshots)
}

func (bs *BeamSystem) lockedSnapshotsForPublish() []BeamSnapshot {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	snapshots := bs.snapshotsLocked()
	bs.publishMu.Lock()
	return snapshots
}

func (bs *BeamSystem) snapshotsLocked() []BeamSnapshot {
	result := make([]BeamSnapshot, 0, len(bs.order))
	for _, id := range bs.order {
		result = append(result, bs.beams[id].snapshot())
	}
	return result
}

// ActiveCount число активных лучей
func (bs *BeamSystem) ActiveCount() int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	return len(bs.order)
}

// Clear удаляет все лучи и освобождает их привязки
func (bs *BeamSystem) Clear() {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	for len(bs.order) > 0 {
		bs.removeLocked(bs.order[0])
	}
}

// removeLocked удаляет луч, вызывается под bs.mu
func (bs *BeamSystem) removeLocked(id string) string {
	for i, oid := range bs.order {
		if oid == id {
			bs.order = append(bs.order[:i], bs.order[i+1:]...)
			break
		}
	}

	ab, exists := bs.beams[id]
	if !exists {
		return id
	}
	delete(bs.beams, id)

	if err := bs.registry.Detach(ab.handle); err != nil {
		bs.logger.Warn().Err(err).Str("beam", id).Msg("detach failed")
	}

	bs.logger.Debug().Str("beam", id).Int("age", ab.age).Msg("beam removed")
	return id
}

// GetName возвращает имя системы
func (bs *BeamSystem) GetName() string {
	return bs.name
}

// GetPriority возвращает приоритет системы
func (bs *BeamSystem) GetPriority() int {
	return bs.priority
}
