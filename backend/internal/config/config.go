package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// FileName имя необязательного файла конфигурации
const FileName = "rarays.json"

// ServerConfig настройки HTTP/WebSocket сервера
type ServerConfig struct {
	Addr      string `mapstructure:"addr"`
	StaticDir string `mapstructure:"staticDir"`
}

// LogConfig настройки логирования
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// TickerConfig настройки игрового цикла
type TickerConfig struct {
	TPS int `mapstructure:"tps"`
}

// TerrainConfig настройки карты высот
type TerrainConfig struct {
	GridSize  int     `mapstructure:"gridSize"`
	CellSize  float64 `mapstructure:"cellSize"`
	MinHeight float64 `mapstructure:"minHeight"`
	MaxHeight float64 `mapstructure:"maxHeight"`
	SeaLevel  float64 `mapstructure:"seaLevel"`
}

// BeamConfig политика владельца лучей
type BeamConfig struct {
	LifetimeTicks int `mapstructure:"lifetimeTicks"` // 0 - луч живет до отключения
	MaxActive     int `mapstructure:"maxActive"`
}

// Config вся конфигурация сервера
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Ticker  TickerConfig  `mapstructure:"ticker"`
	Terrain TerrainConfig `mapstructure:"terrain"`
	Beam    BeamConfig    `mapstructure:"beam"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.staticDir", "./static")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", true)

	v.SetDefault("ticker.tps", 20)

	v.SetDefault("terrain.gridSize", 128)
	v.SetDefault("terrain.cellSize", 1.0)
	v.SetDefault("terrain.minHeight", 48.0)
	v.SetDefault("terrain.maxHeight", 90.0)
	v.SetDefault("terrain.seaLevel", 62.0)

	v.SetDefault("beam.lifetimeTicks", 200)
	v.SetDefault("beam.maxActive", 16)
}

// Load читает rarays.json из configDir (если он есть) и переменные RARAYS_*
func Load(configDir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName(strings.TrimSuffix(FileName, ".json"))
	v.SetConfigType("json")
	v.AddConfigPath(configDir)

	v.SetEnvPrefix("RARAYS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate проверяет значения, без которых сервер не запустится
func (c *Config) Validate() error {
	if c.Ticker.TPS <= 0 {
		return fmt.Errorf("ticker.tps must be positive, got %d", c.Ticker.TPS)
	}
	if c.Terrain.GridSize < 2 {
		return fmt.Errorf("terrain.gridSize must be at least 2, got %d", c.Terrain.GridSize)
	}
	if c.Terrain.CellSize <= 0 {
		return fmt.Errorf("terrain.cellSize must be positive, got %f", c.Terrain.CellSize)
	}
	if c.Beam.LifetimeTicks < 0 {
		return fmt.Errorf("beam.lifetimeTicks must not be negative, got %d", c.Beam.LifetimeTicks)
	}
	if c.Beam.MaxActive <= 0 {
		return fmt.Errorf("beam.maxActive must be positive, got %d", c.Beam.MaxActive)
	}
	return nil
}
