package main

import (
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cindermc/cinder/pkg/config"
	"github.com/cindermc/cinder/pkg/server"
)

func main() {
	configPath := flag.String("config", "config.toml", "Path to the server configuration file")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "path", *configPath, "err", err)
		os.Exit(1)
	}
	config.SetGlobal(cfg)

	srv := server.New(cfg)
	if err := srv.Start(); err != nil {
		slog.Error("failed to start server", "err", err)
		os.Exit(1)
	}

	slog.Info("cinder started",
		"addr", srv.Addr(),
		"max_players", cfg.MaxPlayers,
		"compression_threshold", cfg.NetworkCompressionThreshold)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutting down", "signal", sig)
	case <-srv.StopChan():
		slog.Info("shutting down (internal)")
	}

	srv.Stop()
	slog.Info("server stopped")
}
