package game

import (
	"time"

	"github.com/rs/zerolog"
)

// AttachmentCounter число привязок маркеров в мире
type AttachmentCounter interface {
	AttachmentCount() int
}

// GameMetricsSystem периодически пишет в лог сводку по циклу и лучам
type GameMetricsSystem struct {
	name     string
	priority int

	gameTicker  *GameTicker
	beams       *BeamSystem
	attachments AttachmentCounter
	logger      zerolog.Logger

	lastMetricsLog  time.Time
	metricsInterval time.Duration
}

// NewGameMetricsSystem создает систему сбора метрик. attachments может быть nil.
func NewGameMetricsSystem(gameTicker *GameTicker, beams *BeamSystem, attachments AttachmentCounter, interval time.Duration, logger zerolog.Logger) *GameMetricsSystem {
	return &GameMetricsSystem{
		name:            "GameMetricsSystem",
		priority:        200, // Метрики в самом конце тика
		gameTicker:      gameTicker,
		beams:           beams,
		attachments:     attachments,
		logger:          logger.With().Str("component", "GameMetrics").Logger(),
		metricsInterval: interval,
	}
}

// Update пишет сводку не чаще раза в metricsInterval
func (gms *GameMetricsSystem) Update(deltaTime time.Duration) error {
	now := time.Now()
	if !gms.lastMetricsLog.IsZero() && now.Sub(gms.lastMetricsLog) < gms.metricsInterval {
		return nil
	}
	gms.lastMetricsLog = now

	stats := gms.gameTicker.GetStats()
	event := gms.logger.Info().
		Interface("tps", stats["actual_tps"]).
		Interface("target_tps", stats["target_tps"]).
		Interface("ticks", stats["tick_count"]).
		Interface("avg_tick", stats["average_tick_time"])

	if gms.beams != nil {
		event = event.Int("beams", gms.beams.ActiveCount())
	}
	if gms.attachments != nil {
		event = event.Int("attachments", gms.attachments.AttachmentCount())
	}
	event.Msg("game metrics")

	if slow := gms.gameTicker.PerformanceMonitor().SlowSystems(); len(slow) > 0 {
		gms.logger.Warn().Strs("systems", slow).Msg("slow systems")
	}

	return nil
}

// GetName возвращает имя системы
func (gms *GameMetricsSystem) GetName() string {
	return gms.name
}

// GetPriority возвращает приоритет системы
func (gms *GameMetricsSystem) GetPriority() int {
	return gms.priority
}
