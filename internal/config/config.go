package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the complete bridge configuration
type Config struct {
	Narsim  NarsimConfig  `toml:"narsim"`
	Bridge  BridgeConfig  `toml:"bridge"`
	Proxy   ProxyConfig   `toml:"proxy"`
	Storage StorageConfig `toml:"storage"`
	Server  ServerConfig  `toml:"server"`
	Feeder  FeederConfig  `toml:"feeder"`
	Logging LoggingConfig `toml:"logging"`
}

// NarsimConfig describes the range system connection
type NarsimConfig struct {
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	DialTimeoutSecs  int    `toml:"dial_timeout_secs"`
	ReadTimeoutMs    int    `toml:"read_timeout_ms"`
	ReadBufferBytes  int    `toml:"read_buffer_bytes"`
	MaxPartialBytes  int    `toml:"max_partial_bytes"` // 0 leaves the partial buffer unbounded
	MaxReadsPerCycle int    `toml:"max_reads_per_cycle"`
}

// BridgeConfig controls the reconciliation cycle
type BridgeConfig struct {
	UpdateFrequencyHz float64 `toml:"update_frequency_hz"`
	StaleTimeoutSecs  int     `toml:"stale_timeout_secs"`
	PendingUpdates    string  `toml:"pending_updates"` // "buffer" or "drop"
}

// ProxyConfig controls the simulator proxy boundary
type ProxyConfig struct {
	Mode                string  `toml:"mode"` // only "memory" ships with the bridge
	DefaultModel        string  `toml:"default_model"`
	CallTimeoutMs       int     `toml:"call_timeout_ms"`
	OnGroundMaxSpeedKts float64 `toml:"on_ground_max_speed_kts"`
	OnGroundMaxHeightFt float64 `toml:"on_ground_max_height_ft"`
}

// StorageConfig controls the lifecycle journal
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"` // empty disables the journal
}

// ServerConfig controls the status API
type ServerConfig struct {
	Enabled            bool     `toml:"enabled"`
	Addr               string   `toml:"addr"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
	EventsLimit        int      `toml:"events_limit"`
}

// FeederConfig controls the own-ship feed sent back to the range system
type FeederConfig struct {
	Enabled           bool    `toml:"enabled"` // also feed while running the bridge
	Callsign          string  `toml:"callsign"`
	IdentifierCode    string  `toml:"identifier_code"`
	UpdateFrequencyHz float64 `toml:"update_frequency_hz"`
	StartLatitude     float64 `toml:"start_latitude"`
	StartLongitude    float64 `toml:"start_longitude"`
	StartAltitudeFt   float64 `toml:"start_altitude_ft"`
	GroundSpeedKts    float64 `toml:"ground_speed_kts"`
	CourseDeg         float64 `toml:"course_deg"`
	VerticalRateMs    float64 `toml:"vertical_rate_ms"`
}

// LoggingConfig mirrors logger.Config
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

// Default returns the configuration used when a key is absent from the file
func Default() Config {
	return Config{
		Narsim: NarsimConfig{
			Host:             "127.0.0.1",
			Port:             5678,
			DialTimeoutSecs:  5,
			ReadTimeoutMs:    200,
			ReadBufferBytes:  1024,
			MaxPartialBytes:  1 << 20,
			MaxReadsPerCycle: 256,
		},
		Bridge: BridgeConfig{
			UpdateFrequencyHz: 1,
			StaleTimeoutSecs:  30,
			PendingUpdates:    "buffer",
		},
		Proxy: ProxyConfig{
			Mode:                "memory",
			DefaultModel:        "Airbus A320 Neo Asobo",
			CallTimeoutMs:       500,
			OnGroundMaxSpeedKts: 120,
			OnGroundMaxHeightFt: 50,
		},
		Server: ServerConfig{
			Enabled:     true,
			Addr:        "127.0.0.1:8088",
			EventsLimit: 100,
		},
		Feeder: FeederConfig{
			IdentifierCode:    "877777",
			UpdateFrequencyHz: 1,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  32,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load reads a TOML file on top of the defaults and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("unknown config keys in %s: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks value ranges and enumerations
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Narsim.Host) == "" {
		return fmt.Errorf("narsim.host is required")
	}
	if c.Narsim.Port <= 0 || c.Narsim.Port > 65535 {
		return fmt.Errorf("narsim.port out of range: %d", c.Narsim.Port)
	}
	if c.Narsim.ReadTimeoutMs <= 0 {
		return fmt.Errorf("narsim.read_timeout_ms must be positive")
	}
	if c.Narsim.ReadBufferBytes <= 0 {
		return fmt.Errorf("narsim.read_buffer_bytes must be positive")
	}
	if c.Narsim.MaxPartialBytes < 0 {
		return fmt.Errorf("narsim.max_partial_bytes must not be negative")
	}
	if c.Narsim.MaxReadsPerCycle <= 0 {
		return fmt.Errorf("narsim.max_reads_per_cycle must be positive")
	}
	if c.Bridge.UpdateFrequencyHz <= 0 {
		return fmt.Errorf("bridge.update_frequency_hz must be positive")
	}
	if c.Bridge.StaleTimeoutSecs <= 0 {
		return fmt.Errorf("bridge.stale_timeout_secs must be positive")
	}
	switch c.Bridge.PendingUpdates {
	case "buffer", "drop":
	default:
		return fmt.Errorf("bridge.pending_updates must be \"buffer\" or \"drop\", got %q", c.Bridge.PendingUpdates)
	}
	if c.Proxy.Mode != "memory" {
		return fmt.Errorf("unsupported proxy.mode: %s", c.Proxy.Mode)
	}
	if strings.TrimSpace(c.Proxy.DefaultModel) == "" {
		return fmt.Errorf("proxy.default_model is required")
	}
	if c.Proxy.CallTimeoutMs <= 0 {
		return fmt.Errorf("proxy.call_timeout_ms must be positive")
	}
	if c.Server.Enabled && strings.TrimSpace(c.Server.Addr) == "" {
		return fmt.Errorf("server.addr is required when the server is enabled")
	}
	if c.Feeder.UpdateFrequencyHz <= 0 {
		return fmt.Errorf("feeder.update_frequency_hz must be positive")
	}
	if c.Feeder.Enabled && strings.TrimSpace(c.Feeder.Callsign) == "" {
		return fmt.Errorf("feeder.callsign is required when the feeder is enabled")
	}
	if c.Feeder.StartLatitude < -90 || c.Feeder.StartLatitude > 90 {
		return fmt.Errorf("feeder.start_latitude out of range: %v", c.Feeder.StartLatitude)
	}
	if c.Feeder.StartLongitude < -180 || c.Feeder.StartLongitude > 180 {
		return fmt.Errorf("feeder.start_longitude out of range: %v", c.Feeder.StartLongitude)
	}
	return nil
}

// Address returns the range system host:port
func (n NarsimConfig) Address() string {
	return net.JoinHostPort(n.Host, strconv.Itoa(n.Port))
}

// DialTimeout returns the connect timeout
func (n NarsimConfig) DialTimeout() time.Duration {
	return time.Duration(n.DialTimeoutSecs) * time.Second
}

// ReadTimeout returns the per-chunk read timeout
func (n NarsimConfig) ReadTimeout() time.Duration {
	return time.Duration(n.ReadTimeoutMs) * time.Millisecond
}

// CycleInterval returns the reconciliation period derived from the update frequency
func (b BridgeConfig) CycleInterval() time.Duration {
	return time.Duration(float64(time.Second) / b.UpdateFrequencyHz)
}

// StaleTimeout returns the eviction threshold
func (b BridgeConfig) StaleTimeout() time.Duration {
	return time.Duration(b.StaleTimeoutSecs) * time.Second
}

// CallTimeout returns the bound applied to each proxy call
func (p ProxyConfig) CallTimeout() time.Duration {
	return time.Duration(p.CallTimeoutMs) * time.Millisecond
}

// Interval returns the own-ship feed period
func (f FeederConfig) Interval() time.Duration {
	return time.Duration(float64(time.Second) / f.UpdateFrequencyHz)
}
