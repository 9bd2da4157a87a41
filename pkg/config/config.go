// Package config loads the server configuration from a TOML file. The
// configuration is resolved once at startup, before any connection is
// accepted, and is read-only for the lifetime of the process.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Defaults written when no config file exists.
const (
	DefaultHost       = "0.0.0.0"
	DefaultPort       = 25565
	DefaultMOTD       = "A Cinder Server"
	DefaultMaxPlayers = 20
	DefaultWorld      = "world"

	// DefaultCompressionThreshold compresses outbound bodies of at least this
	// many bytes. -1 disables compression, 0 compresses everything.
	DefaultCompressionThreshold = 256
)

// Database holds the world-database tuning knobs.
type Database struct {
	CacheSize   uint32 `toml:"cache_size"`
	Compression string `toml:"compression"`
}

// ServerConfig is the full server configuration.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            uint16   `toml:"port"`
	MOTD            []string `toml:"motd"`
	MaxPlayers      int32    `toml:"max_players"`
	NetworkTickRate uint32   `toml:"network_tick_rate"`
	World           string   `toml:"world"`
	Database        Database `toml:"database"`

	// NetworkCompressionThreshold: -1 no compression, 0 compress everything,
	// n > 0 compress packets with bodies of at least n bytes.
	NetworkCompressionThreshold int32 `toml:"network_compression_threshold"`
}

// Default returns the configuration written on first run.
func Default() *ServerConfig {
	return &ServerConfig{
		Host:            DefaultHost,
		Port:            DefaultPort,
		MOTD:            []string{DefaultMOTD},
		MaxPlayers:      DefaultMaxPlayers,
		NetworkTickRate: 0,
		World:           DefaultWorld,
		Database: Database{
			CacheSize:   1024,
			Compression: "fast",
		},
		NetworkCompressionThreshold: DefaultCompressionThreshold,
	}
}

// Load reads the configuration from path. A missing file is not an error:
// defaults are written to path and returned. A threshold below -1 is not
// compliant; it logs a warning and falls back to -1 (disabled), which is what
// every compression check treats it as anyway.
func Load(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Info("config file not found, creating defaults", "path", path)
		cfg := Default()
		if err := write(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.NetworkCompressionThreshold < -1 {
		slog.Warn("invalid network_compression_threshold, assuming -1",
			"value", cfg.NetworkCompressionThreshold)
		cfg.NetworkCompressionThreshold = -1
	}

	return cfg, nil
}

func write(path string, cfg *ServerConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// CompressionEnabled reports whether outbound compression is configured.
func (c *ServerConfig) CompressionEnabled() bool {
	return c.NetworkCompressionThreshold >= 0
}

var (
	global     *ServerConfig
	globalOnce sync.Once
)

// SetGlobal installs the process-wide configuration snapshot. Only the first
// call has any effect; the snapshot is never mutated afterwards, so reads
// need no synchronization.
func SetGlobal(cfg *ServerConfig) {
	globalOnce.Do(func() {
		global = cfg
	})
}

// Global returns the process-wide configuration snapshot. It panics if called
// before SetGlobal; connections must never be accepted before configuration
// has resolved.
func Global() *ServerConfig {
	if global == nil {
		panic("config: Global called before SetGlobal")
	}
	return global
}
