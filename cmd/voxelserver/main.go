// Command voxelserver runs the protocol 578 (1.15.2) voxelcore server: it
// loads configuration, spins up the Universe actor, generates the login
// RSA keypair, and accepts TCP connections, handing each to its own Session.
package main

import (
	"log"
	"net"

	"github.com/opencraft/voxelcore/internal/auth"
	"github.com/opencraft/voxelcore/internal/command"
	"github.com/opencraft/voxelcore/internal/config"
	"github.com/opencraft/voxelcore/internal/metrics"
	"github.com/opencraft/voxelcore/internal/proto/mcrypto"
	"github.com/opencraft/voxelcore/internal/session"
	"github.com/opencraft/voxelcore/internal/world"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("voxelserver: load config: %v", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("voxelserver: build logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	keys, err := mcrypto.GenerateKeyPair()
	if err != nil {
		sugar.Fatalw("generate login keypair", "error", err)
	}

	universe := world.SpawnUniverse(sugar, "overworld", nil, nil)

	deps := session.Deps{
		Universe:      universe,
		Keys:          keys,
		SessionServer: auth.NewSessionServer(),
		Commands:      defaultCommandGraph(),
		Config: session.Config{
			OnlineMode:           cfg.OnlineMode,
			ViewDistance:         cfg.ViewDistance,
			CompressionThreshold: cfg.CompressionThreshold,
			MOTD:                 cfg.MOTD,
			MaxPlayers:           cfg.MaxPlayers,
		},
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				sugar.Errorw("metrics endpoint", "addr", cfg.MetricsAddr, "error", err)
			}
		}()
		sugar.Infow("metrics endpoint up", "addr", cfg.MetricsAddr)
	}

	listener, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		sugar.Fatalw("listen", "addr", cfg.ListenAddr, "error", err)
	}
	sugar.Infow("listening", "addr", cfg.ListenAddr, "online_mode", cfg.OnlineMode)

	for {
		conn, err := listener.Accept()
		if err != nil {
			sugar.Errorw("accept", "error", err)
			continue
		}
		go session.New(conn, sugar, deps).Run()
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

// defaultCommandGraph is the minimal root-only Declare Commands graph: no
// built-in commands ship with this core (the command surface is a pluggable
// concern, out of this repo's scope).
func defaultCommandGraph() *command.Graph {
	return command.NewGraph()
}
