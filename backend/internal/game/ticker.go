package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TickSystem интерфейс для всех игровых систем
type TickSystem interface {
	Update(deltaTime time.Duration) error
	GetName() string
	GetPriority() int // Приоритет выполнения (меньше = раньше)
}

// GameTicker основной игровой цикл с фиксированной частотой тиков
type GameTicker struct {
	// Конфигурация
	targetTPS    int
	tickDuration time.Duration
	maxTickTime  time.Duration

	// Состояние
	stateMu      sync.Mutex
	isRunning    bool
	isPaused     bool
	tickCount    uint64
	startTime    time.Time
	lastTickTime time.Time

	// Системы
	systems      []TickSystem
	systemsMutex sync.RWMutex

	perfMonitor *PerformanceMonitor

	// Управление
	cancel    context.CancelFunc
	done      chan struct{}
	pauseChan chan bool

	// Метрики
	averageTickTime time.Duration
	maxObservedTick time.Duration
	skippedTicks    uint64

	logger           zerolog.Logger
	warningThreshold time.Duration
}

// NewGameTicker создает новый игровой тикер
func NewGameTicker(targetTPS int, logger zerolog.Logger) *GameTicker {
	if targetTPS <= 0 {
		targetTPS = 20
	}

	tickDuration := time.Second / time.Duration(targetTPS)

	return &GameTicker{
		targetTPS:        targetTPS,
		tickDuration:     tickDuration,
		maxTickTime:      tickDuration * 2,
		systems:          make([]TickSystem, 0),
		perfMonitor:      NewPerformanceMonitor(50, tickDuration/4),
		pauseChan:        make(chan bool, 1),
		logger:           logger.With().Str("component", "GameTicker").Logger(),
		warningThreshold: tickDuration / 2,
	}
}

// Start запускает игровой цикл. Цикл останавливается по Stop или отмене ctx.
func (gt *GameTicker) Start(ctx context.Context) error {
	gt.stateMu.Lock()
	defer gt.stateMu.Unlock()

	if gt.isRunning {
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	gt.cancel = cancel
	gt.done = make(chan struct{})
	gt.isRunning = true
	gt.startTime = time.Now()
	gt.lastTickTime = gt.startTime

	gt.logger.Info().
		Int("tps", gt.targetTPS).
		Dur("tick", gt.tickDuration).
		Msg("game loop started")

	go gt.gameLoop(loopCtx, gt.done)

	return nil
}

// Stop останавливает игровой цикл и ждет его завершения
func (gt *GameTicker) Stop() {
	gt.stateMu.Lock()
	if !gt.isRunning {
		gt.stateMu.Unlock()
		return
	}
	gt.isRunning = false
	cancel, done := gt.cancel, gt.done
	gt.stateMu.Unlock()

	cancel()
	<-done

	gt.logger.Info().Uint64("ticks", gt.GetTickCount()).Msg("game loop stopped")
}

// Pause приостанавливает или возобновляет цикл
func (gt *GameTicker) Pause(pause bool) {
	gt.stateMu.Lock()
	gt.isPaused = pause
	gt.stateMu.Unlock()

	select {
	case gt.pauseChan <- pause:
	default:
		// Предыдущая команда еще не прочитана, заменяем ее
		select {
		case <-gt.pauseChan:
		default:
		}
		gt.pauseChan <- pause
	}
}

// RegisterSystem добавляет систему в игровой цикл
func (gt *GameTicker) RegisterSystem(system TickSystem) {
	gt.systemsMutex.Lock()
	defer gt.systemsMutex.Unlock()

	gt.systems = append(gt.systems, system)

	// Сортируем вставкой по приоритету
	for i := len(gt.systems) - 1; i > 0; i-- {
		if gt.systems[i].GetPriority() < gt.systems[i-1].GetPriority() {
			gt.systems[i], gt.systems[i-1] = gt.systems[i-1], gt.systems[i]
		} else {
			break
		}
	}

	gt.perfMonitor.initSystemMetrics(system.GetName())

	gt.logger.Info().
		Str("system", system.GetName()).
		Int("priority", system.GetPriority()).
		Msg("system registered")
}

// Systems имена систем в порядке выполнения
func (gt *GameTicker) Systems() []string {
	gt.systemsMutex.RLock()
	defer gt.systemsMutex.RUnlock()

	names := make([]string, len(gt.systems))
	for i, s := range gt.systems {
		names[i] = s.GetName()
	}
	return names
}

func (gt *GameTicker) gameLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(gt.tickDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case pause := <-gt.pauseChan:
			for pause {
				select {
				case <-ctx.Done():
					return
				case pause = <-gt.pauseChan:
				}
			}
			gt.stateMu.Lock()
			gt.lastTickTime = time.Now()
			gt.stateMu.Unlock()

		case tickTime := <-ticker.C:
			gt.executeTick(tickTime)
		}
	}
}

// Step выполняет один тик синхронно (без запущенного цикла)
func (gt *GameTicker) Step() {
	gt.stateMu.Lock()
	if gt.lastTickTime.IsZero() {
		gt.lastTickTime = time.Now().Add(-gt.tickDuration)
	}
	gt.stateMu.Unlock()

	gt.executeTick(time.Now())
}

func (gt *GameTicker) executeTick(tickTime time.Time) {
	tickStart := time.Now()

	gt.stateMu.Lock()
	deltaTime := tickTime.Sub(gt.lastTickTime)
	if deltaTime > gt.tickDuration*2 {
		gt.logger.Warn().
			Dur("delta", deltaTime).
			Dur("expected", gt.tickDuration).
			Msg("large gap between ticks")
		gt.skippedTicks++
	}
	gt.tickCount++
	gt.lastTickTime = tickTime
	gt.stateMu.Unlock()

	gt.executeAllSystems(deltaTime)

	totalTickTime := time.Since(tickStart)
	gt.updateTickMetrics(totalTickTime)
	gt.checkPerformance(totalTickTime)
}

func (gt *GameTicker) executeAllSystems(deltaTime time.Duration) {
	gt.systemsMutex.RLock()
	systems := make([]TickSystem, len(gt.systems))
	copy(systems, gt.systems)
	gt.systemsMutex.RUnlock()

	for _, system := range systems {
		gt.executeSystem(system, deltaTime)
	}
}

// executeSystem выполняет одну систему с замером времени, паника системы не роняет цикл
func (gt *GameTicker) executeSystem(system TickSystem, deltaTime time.Duration) {
	systemStart := time.Now()
	systemName := system.GetName()

	defer func() {
		if r := recover(); r != nil {
			gt.logger.Error().Str("system", systemName).Interface("panic", r).Msg("system panicked")
			gt.perfMonitor.recordError(systemName)
		}
	}()

	err := system.Update(deltaTime)

	gt.perfMonitor.recordExecution(systemName, time.Since(systemStart))

	if err != nil {
		gt.logger.Error().Err(err).Str("system", systemName).Msg("system update failed")
		gt.perfMonitor.recordError(systemName)
	}
}

// GetTickCount возвращает текущее количество тиков
func (gt *GameTicker) GetTickCount() uint64 {
	gt.stateMu.Lock()
	defer gt.stateMu.Unlock()
	return gt.tickCount
}

// IsRunning запущен ли цикл
func (gt *GameTicker) IsRunning() bool {
	gt.stateMu.Lock()
	defer gt.stateMu.Unlock()
	return gt.isRunning
}

// TickDuration целевая длительность тика
func (gt *GameTicker) TickDuration() time.Duration {
	return gt.tickDuration
}

// PerformanceMonitor монитор производительности систем
func (gt *GameTicker) PerformanceMonitor() *PerformanceMonitor {
	return gt.perfMonitor
}

// GetStats возвращает статистику игрового цикла
func (gt *GameTicker) GetStats() map[string]interface{} {
	gt.systemsMutex.RLock()
	systemsCount := len(gt.systems)
	gt.systemsMutex.RUnlock()

	gt.stateMu.Lock()
	defer gt.stateMu.Unlock()

	actualTPS := 0.0
	uptime := time.Duration(0)
	if !gt.startTime.IsZero() {
		uptime = time.Since(gt.startTime)
		actualTPS = float64(gt.tickCount) / uptime.Seconds()
	}

	return map[string]interface{}{
		"target_tps":        gt.targetTPS,
		"actual_tps":        actualTPS,
		"tick_count":        gt.tickCount,
		"uptime_seconds":    uptime.Seconds(),
		"average_tick_time": gt.averageTickTime,
		"max_observed_tick": gt.maxObservedTick,
		"skipped_ticks":     gt.skippedTicks,
		"is_running":        gt.isRunning,
		"is_paused":         gt.isPaused,
		"systems_count":     systemsCount,
	}
}

func (gt *GameTicker) updateTickMetrics(tickTime time.Duration) {
	gt.stateMu.Lock()
	defer gt.stateMu.Unlock()

	if tickTime > gt.maxObservedTick {
		gt.maxObservedTick = tickTime
	}

	// Экспоненциальное скользящее среднее
	if gt.averageTickTime == 0 {
		gt.averageTickTime = tickTime
	} else {
		gt.averageTickTime = (gt.averageTickTime*9 + tickTime) / 10
	}
}

func (gt *GameTicker) checkPerformance(tickTime time.Duration) {
	if tickTime > gt.maxTickTime {
		gt.logger.Warn().
			Dur("tick", tickTime).
			Dur("max", gt.maxTickTime).
			Dur("target", gt.tickDuration).
			Strs("slow_systems", gt.perfMonitor.SlowSystems()).
			Msg("tick exceeded maximum time")
	} else if tickTime > gt.warningThreshold {
		gt.logger.Debug().
			Dur("tick", tickTime).
			Dur("target", gt.tickDuration).
			Msg("slow tick")
	}
}
