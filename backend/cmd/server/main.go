package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"rarays/backend/internal/beam"
	"rarays/backend/internal/config"
	"rarays/backend/internal/game"
	"rarays/backend/internal/logging"
	"rarays/backend/internal/monitoring"
	"rarays/backend/internal/transport/ws"
	"rarays/backend/internal/world"
)

const (
	shutdownTimeout = 5 * time.Second
	metricsInterval = 30 * time.Second
)

func main() {
	configDir := flag.String("config", ".", "directory with rarays.json")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		bootLogger := zerolog.New(os.Stderr)
		bootLogger.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Pretty)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	terrain, err := world.NewTerrain(world.TerrainConfig{
		GridSize:  cfg.Terrain.GridSize,
		CellSize:  cfg.Terrain.CellSize,
		MinHeight: cfg.Terrain.MinHeight,
		MaxHeight: cfg.Terrain.MaxHeight,
		SeaLevel:  cfg.Terrain.SeaLevel,
	})
	if err != nil {
		return err
	}
	worldManager := world.NewManager(terrain, logger)

	generator := beam.NewGenerator(worldManager, nil)
	beams := game.NewBeamSystem(generator, worldManager, cfg.Beam.LifetimeTicks, cfg.Beam.MaxActive, logger)

	wsServer := ws.NewServer(beams, worldManager, logger)
	beams.SetBroadcaster(wsServer)

	ticker := game.NewGameTicker(cfg.Ticker.TPS, logger)
	ticker.RegisterSystem(beams)
	ticker.RegisterSystem(game.NewGameMetricsSystem(ticker, beams, worldManager, metricsInterval, logger))

	monitor := monitoring.NewMonitor(ticker, beams.ActiveCount, wsServer.ViewerCount, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsServer.HandleWS)
	mux.Handle("/debug/", http.StripPrefix("/debug", monitor.Handler()))
	mux.Handle("/", http.FileServer(http.Dir(cfg.Server.StaticDir)))

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := ticker.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Server.Addr).
			Str("static", cfg.Server.StaticDir).
			Int("grid", cfg.Terrain.GridSize).
			Msg("listening")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown requested")
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			ticker.Stop()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Тики останавливаются до закрытия соединений
	ticker.Stop()
	beams.Clear()

	if err := wsServer.Close(); err != nil {
		logger.Debug().Err(err).Msg("close viewer connections")
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info().Int("attachments", worldManager.AttachmentCount()).Msg("server stopped")
	return nil
}
