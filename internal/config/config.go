// Package config loads server configuration in two layers: an optional
// server.yaml file (the dmitrymodder-minewire convention) provides the base,
// then an optional .env plus process environment variables override individual
// settings (the orbas1-Synnergy godotenv convention). Neither file is a hard
// dependency; with both absent every setting falls back to its default.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every knob the server entrypoint needs at startup.
type Config struct {
	ListenAddr           string `yaml:"listen_addr"`
	MetricsAddr          string `yaml:"metrics_addr"`
	OnlineMode           bool   `yaml:"online_mode"`
	ViewDistance         int8   `yaml:"view_distance"`
	CompressionThreshold int32  `yaml:"compression_threshold"`
	LogLevel             string `yaml:"log_level"`
	MOTD                 string `yaml:"motd"`
	MaxPlayers           int    `yaml:"max_players"`
}

const (
	defaultListenAddr        = ":25565"
	defaultMetricsAddr       = ""
	defaultViewDistance int8 = 10
	defaultCompression int32 = 256
	defaultLogLevel          = "info"
	defaultMOTD              = "A voxelcore server"
	defaultMaxPlayers        = 20

	// DefaultFile is the yaml file Load looks for when none is named.
	DefaultFile = "server.yaml"
)

func defaults() Config {
	return Config{
		ListenAddr:           defaultListenAddr,
		MetricsAddr:          defaultMetricsAddr,
		OnlineMode:           true,
		ViewDistance:         defaultViewDistance,
		CompressionThreshold: defaultCompression,
		LogLevel:             defaultLogLevel,
		MOTD:                 defaultMOTD,
		MaxPlayers:           defaultMaxPlayers,
	}
}

// Load builds a Config from defaults, then the yaml file named by
// VOXELCORE_CONFIG (server.yaml if unset, skipped if absent), then .env and
// process environment overrides.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, err
	}

	cfg := defaults()

	path := getString("VOXELCORE_CONFIG", DefaultFile)
	if err := loadFile(path, &cfg); err != nil {
		return Config{}, err
	}

	cfg.ListenAddr = getString("VOXELCORE_LISTEN_ADDR", cfg.ListenAddr)
	cfg.MetricsAddr = getString("VOXELCORE_METRICS_ADDR", cfg.MetricsAddr)
	cfg.OnlineMode = getBool("VOXELCORE_ONLINE_MODE", cfg.OnlineMode)
	cfg.ViewDistance = int8(getInt("VOXELCORE_VIEW_DISTANCE", int(cfg.ViewDistance)))
	cfg.CompressionThreshold = int32(getInt("VOXELCORE_COMPRESSION_THRESHOLD", int(cfg.CompressionThreshold)))
	cfg.LogLevel = getString("VOXELCORE_LOG_LEVEL", cfg.LogLevel)
	cfg.MOTD = getString("VOXELCORE_MOTD", cfg.MOTD)
	cfg.MaxPlayers = getInt("VOXELCORE_MAX_PLAYERS", cfg.MaxPlayers)
	return cfg, nil
}

// loadFile overlays the yaml file at path onto cfg; a missing file is not an
// error, a malformed one is.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func getString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
