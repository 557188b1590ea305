package monitoring

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"rarays/backend/internal/game"
)

// Статусы здоровья по возрастанию серьезности
const (
	StatusHealthy  = "healthy"
	StatusStopped  = "stopped"
	StatusDegraded = "degraded"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

var severity = map[string]int{
	StatusHealthy:  0,
	StatusStopped:  1,
	StatusDegraded: 2,
	StatusWarning:  3,
	StatusCritical: 4,
}

// tpsGrace время после старта, в течение которого TPS не проверяется
const tpsGrace = 2 * time.Second

// Counter возвращает текущее число сущностей
type Counter func() int

// Health состояние сервера
type Health struct {
	Status      string                 `json:"status"`
	Issues      []string               `json:"issues"`
	ActiveBeams int                    `json:"active_beams"`
	Viewers     int                    `json:"viewers"`
	Stats       map[string]interface{} `json:"stats"`
}

func (h *Health) raise(status, issue string) {
	if severity[status] > severity[h.Status] {
		h.Status = status
	}
	if issue != "" {
		h.Issues = append(h.Issues, issue)
	}
}

// BottleneckReport система, занимающая заметную долю тика
type BottleneckReport struct {
	System        string        `json:"system"`
	Severity      string        `json:"severity"`
	AverageTime   time.Duration `json:"average_time"`
	MaxTime       time.Duration `json:"max_time"`
	PercentOfTick float64       `json:"percent_of_tick"`
}

// Monitor отдает статистику игрового цикла и лучей
type Monitor struct {
	ticker  *game.GameTicker
	beams   Counter
	viewers Counter
	logger  zerolog.Logger
}

// NewMonitor создает монитор. beams и viewers могут быть nil.
func NewMonitor(ticker *game.GameTicker, beams, viewers Counter, logger zerolog.Logger) *Monitor {
	zero := func() int { return 0 }
	if beams == nil {
		beams = zero
	}
	if viewers == nil {
		viewers = zero
	}
	return &Monitor{
		ticker:  ticker,
		beams:   beams,
		viewers: viewers,
		logger:  logger.With().Str("component", "Monitor").Logger(),
	}
}

// CheckHealth проверяет общее состояние сервера
func (m *Monitor) CheckHealth() Health {
	stats := m.ticker.GetStats()
	health := Health{
		Status:      StatusHealthy,
		Issues:      []string{},
		ActiveBeams: m.beams(),
		Viewers:     m.viewers(),
		Stats:       stats,
	}

	if running, _ := stats["is_running"].(bool); !running {
		health.raise(StatusStopped, "game loop is not running")
		return health
	}
	if paused, _ := stats["is_paused"].(bool); paused {
		health.raise(StatusDegraded, "game loop is paused")
		return health
	}

	target := float64(stats["target_tps"].(int))
	actual := stats["actual_tps"].(float64)
	uptime := time.Duration(stats["uptime_seconds"].(float64) * float64(time.Second))
	if uptime > tpsGrace && actual < target*0.9 {
		health.raise(StatusDegraded, fmt.Sprintf("tps %.1f/%.0f", actual, target))
	}

	tick := m.ticker.TickDuration()
	if avg := stats["average_tick_time"].(time.Duration); avg > tick/2 {
		health.raise(StatusWarning, fmt.Sprintf("slow ticks: %v (limit %v)", avg, tick/2))
	}

	if skipped := stats["skipped_ticks"].(uint64); skipped > 0 {
		health.raise(StatusWarning, fmt.Sprintf("skipped ticks: %d", skipped))
	}

	for _, b := range m.FindBottlenecks() {
		if b.Severity == StatusCritical {
			health.raise(StatusCritical, fmt.Sprintf("%s takes %.1f%% of tick", b.System, b.PercentOfTick))
		}
	}

	return health
}

// FindBottlenecks системы, среднее время которых превышает четверть тика
func (m *Monitor) FindBottlenecks() []BottleneckReport {
	tick := m.ticker.TickDuration()
	threshold := tick / 4

	var reports []BottleneckReport
	for _, name := range m.ticker.Systems() {
		metrics, ok := m.ticker.PerformanceMonitor().Metrics(name)
		if !ok || metrics.AverageTime <= threshold {
			continue
		}

		level := StatusWarning
		if metrics.AverageTime > threshold*2 {
			level = StatusCritical
		}
		reports = append(reports, BottleneckReport{
			System:        name,
			Severity:      level,
			AverageTime:   metrics.AverageTime,
			MaxTime:       metrics.MaxTime,
			PercentOfTick: float64(metrics.AverageTime) / float64(tick) * 100,
		})
	}

	sort.Slice(reports, func(i, j int) bool {
		return reports[i].AverageTime > reports[j].AverageTime
	})
	return reports
}

// Handler HTTP API мониторинга: /stats, /health, /bottlenecks, /control
func (m *Monitor) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		stats := m.ticker.GetStats()
		stats["systems"] = m.ticker.PerformanceMonitor().GetSystemsStats()
		stats["active_beams"] = m.beams()
		stats["viewers"] = m.viewers()
		m.writeJSON(w, http.StatusOK, stats)
	})

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		health := m.CheckHealth()
		code := http.StatusOK
		if health.Status != StatusHealthy {
			code = http.StatusServiceUnavailable
		}
		m.writeJSON(w, code, health)
	})

	mux.HandleFunc("/bottlenecks", func(w http.ResponseWriter, r *http.Request) {
		m.writeJSON(w, http.StatusOK, m.FindBottlenecks())
	})

	mux.HandleFunc("/control", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		switch action := r.URL.Query().Get("action"); action {
		case "pause":
			m.ticker.Pause(true)
		case "resume":
			m.ticker.Pause(false)
		default:
			http.Error(w, "unknown action, expected pause or resume", http.StatusBadRequest)
			return
		}
		m.logger.Info().Str("action", r.URL.Query().Get("action")).Msg("control")
		m.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return mux
}

func (m *Monitor) writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Warn().Err(err).Msg("encode response")
	}
}
