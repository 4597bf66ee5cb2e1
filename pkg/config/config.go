// Package config provides YAML-based configuration loading for mesh nodes.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/shreyashjagtap157/decentralized-iot-network-sub001/pkg/protocol"
)

// Config is the root node configuration.
type Config struct {
	// AppName optional logical name of the node
	AppName string `mapstructure:"app_name"`

	// NodeAddr is the node's 6-byte hardware address, e.g. "02:11:22:33:44:55".
	NodeAddr string `mapstructure:"node_addr"`

	// Log holds logging configuration
	Log LogConfig `mapstructure:"log"`

	// Mesh holds the protocol parameters
	Mesh MeshConfig `mapstructure:"mesh"`

	// Transport selects and configures the link layer
	Transport TransportConfig `mapstructure:"transport"`

	// Telemetry controls periodic sensor reporting toward the gateway
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: list of outputs: stdout, stderr, or file paths
	Outputs []string `mapstructure:"outputs"`

	// Rotation controls file rotation when writing to files
	Rotation RotationConfig `mapstructure:"rotation"`
	// Development toggles development-friendly logging options
	Development bool `mapstructure:"development"`
}

// RotationConfig controls log file rotation for file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// MeshConfig carries the protocol constants. They are characteristics of the
// deployed mesh, fixed per build/deployment rather than negotiated at runtime.
type MeshConfig struct {
	Channel       int  `mapstructure:"channel"`
	MaxPeers      int  `mapstructure:"max_peers"`
	HeartbeatMS   int  `mapstructure:"heartbeat_ms"`
	PeerTimeoutMS int  `mapstructure:"peer_timeout_ms"`
	MaxHops       int  `mapstructure:"max_hops"`
	AckTimeoutMS  int  `mapstructure:"ack_timeout_ms"`
	Gateway       bool `mapstructure:"gateway"`
}

// TransportConfig selects the link layer.
type TransportConfig struct {
	// Kind: udp or mem
	Kind string `mapstructure:"kind"`
	// Listen is the UDP bind address
	Listen string `mapstructure:"listen"`
	// Links are UDP addresses of stations in simulated radio range
	Links []string `mapstructure:"links"`
}

// TelemetryConfig controls the periodic sensor report loop.
type TelemetryConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Device     string `mapstructure:"device"`
	IntervalMS int    `mapstructure:"interval_ms"`
	// TTLMS bounds how long a gateway keeps a device's latest reading
	TTLMS int `mapstructure:"ttl_ms"`
}

// Default returns a Config populated with the protocol defaults.
func Default() *Config {
	return &Config{
		AppName:  "mesh-node",
		NodeAddr: "",
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			Outputs:     []string{"stdout"},
			Development: true,
			Rotation: RotationConfig{
				Enable:     false,
				Filename:   "logs/meshnode.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
		Mesh: MeshConfig{
			Channel:       1,
			MaxPeers:      20,
			HeartbeatMS:   30000,
			PeerTimeoutMS: 120000,
			MaxHops:       5,
			AckTimeoutMS:  10000,
		},
		Transport: TransportConfig{
			Kind:   "udp",
			Listen: ":7777",
		},
		Telemetry: TelemetryConfig{
			Enable:     true,
			IntervalMS: 60000,
			TTLMS:      300000,
		},
	}
}

// Load reads configuration from the provided path (if non-empty), otherwise
// it searches common locations and supports environment overrides. Variables
// use the prefix MESHNET with `.`/`-` replaced by `_`, e.g.
// MESHNET_LOG_LEVEL=debug.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("MESHNET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// seed defaults for viper so env-only configs work
	v.SetDefault("app_name", cfg.AppName)
	v.SetDefault("node_addr", cfg.NodeAddr)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)
	v.SetDefault("mesh.channel", cfg.Mesh.Channel)
	v.SetDefault("mesh.max_peers", cfg.Mesh.MaxPeers)
	v.SetDefault("mesh.heartbeat_ms", cfg.Mesh.HeartbeatMS)
	v.SetDefault("mesh.peer_timeout_ms", cfg.Mesh.PeerTimeoutMS)
	v.SetDefault("mesh.max_hops", cfg.Mesh.MaxHops)
	v.SetDefault("mesh.ack_timeout_ms", cfg.Mesh.AckTimeoutMS)
	v.SetDefault("mesh.gateway", cfg.Mesh.Gateway)
	v.SetDefault("transport.kind", cfg.Transport.Kind)
	v.SetDefault("transport.listen", cfg.Transport.Listen)
	v.SetDefault("transport.links", cfg.Transport.Links)
	v.SetDefault("telemetry.enable", cfg.Telemetry.Enable)
	v.SetDefault("telemetry.device", cfg.Telemetry.Device)
	v.SetDefault("telemetry.interval_ms", cfg.Telemetry.IntervalMS)
	v.SetDefault("telemetry.ttl_ms", cfg.Telemetry.TTLMS)

	if path == "" {
		if envPath := os.Getenv("MESHNET_CONFIG"); envPath != "" {
			path = envPath
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("meshnode")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".meshnode"))
		}
	}

	// Read config file if present; if not found, continue with defaults/env
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	lvl := strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch lvl {
	case "debug", "info", "warn", "warning", "error":
		// ok
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stdout"}
	}

	if strings.TrimSpace(c.NodeAddr) != "" {
		if _, err := protocol.ParseHWAddr(c.NodeAddr); err != nil {
			return fmt.Errorf("invalid node_addr: %w", err)
		}
	}
	if c.Mesh.MaxPeers <= 0 {
		return fmt.Errorf("mesh.max_peers must be positive, got %d", c.Mesh.MaxPeers)
	}
	if c.Mesh.MaxHops <= 0 || c.Mesh.MaxHops > 255 {
		return fmt.Errorf("mesh.max_hops out of range: %d", c.Mesh.MaxHops)
	}
	if c.Mesh.HeartbeatMS <= 0 || c.Mesh.PeerTimeoutMS <= 0 {
		return errors.New("mesh.heartbeat_ms and mesh.peer_timeout_ms must be positive")
	}

	c.Transport.Kind = strings.ToLower(strings.TrimSpace(c.Transport.Kind))
	switch c.Transport.Kind {
	case "udp", "mem":
		// ok
	default:
		return fmt.Errorf("invalid transport.kind: %q", c.Transport.Kind)
	}
	return nil
}

// MustLoad is a convenience that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
