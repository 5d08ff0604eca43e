package server

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds every server tunable. Zero values are filled in by
// DefaultConfig; LoadConfig layers a TOML file on top of the defaults.
type Config struct {
	ListenAddr string `toml:"listen_addr"`
	ServerName string `toml:"server_name"`
	DebugLevel string `toml:"debug_level"`

	// SnapshotPath enables the optional sqlite snapshot sink when set.
	SnapshotPath string `toml:"snapshot_path"`

	SessionTTL        duration `toml:"session_ttl"`
	GameInactivity    duration `toml:"game_inactivity"`
	DisconnectGrace   duration `toml:"disconnect_grace"`
	RematchWindow     duration `toml:"rematch_window"`
	HeartbeatInterval duration `toml:"heartbeat_interval"`
	GCInterval        duration `toml:"gc_interval"`

	AIDelayMin duration `toml:"ai_delay_min"`
	AIDelayMax duration `toml:"ai_delay_max"`
}

// duration wraps time.Duration so TOML files can say "30s" or "24h".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:        ":8080",
		ServerName:        "sequence-server",
		DebugLevel:        "info",
		SessionTTL:        duration{24 * time.Hour},
		GameInactivity:    duration{360 * time.Second},
		DisconnectGrace:   duration{10 * time.Second},
		RematchWindow:     duration{30 * time.Second},
		HeartbeatInterval: duration{30 * time.Second},
		GCInterval:        duration{60 * time.Second},
		AIDelayMin:        duration{800 * time.Millisecond},
		AIDelayMax:        duration{1200 * time.Millisecond},
	}
}

// LoadConfig reads a TOML config file over the defaults. A missing path
// returns the defaults untouched.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.AIDelayMax.Duration < cfg.AIDelayMin.Duration {
		return nil, fmt.Errorf("ai_delay_max %s below ai_delay_min %s",
			cfg.AIDelayMax, cfg.AIDelayMin)
	}
	return cfg, nil
}
