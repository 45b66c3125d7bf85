// Package config handles terrasync configuration loading and management.
package config

import (
	"time"

	"github.com/Faultbox/terrasync/internal/control"
)

// Config holds all terrasync settings.
type Config struct {
	Session SessionConfig `yaml:"session"`
	Mesh    MeshConfig    `yaml:"mesh"`
	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// SessionConfig holds the initial field and scheduler settings.
type SessionConfig struct {
	Rows               int           `yaml:"rows"`
	Cols               int           `yaml:"cols"`
	GNDPath            string        `yaml:"gnd_path"` // optional .gnd or .gat file for the initial samples
	GRFPath            string        `yaml:"grf_path"` // archive holding GNDPath, if any
	Debounce           time.Duration `yaml:"debounce"`
	MaxWait            time.Duration `yaml:"max_wait"`             // flush bound during continuous edits; 0 disables
	FlushAreaThreshold int           `yaml:"flush_area_threshold"` // samples; 0 disables
	SubscriberBuffer   int           `yaml:"subscriber_buffer"`
}

// MeshConfig holds surface mesher settings.
type MeshConfig struct {
	Spacing      float32 `yaml:"spacing"`
	HeightScale  float32 `yaml:"height_scale"`
	StrictBounds bool    `yaml:"strict_bounds"`
}

// HistoryConfig holds undo journal settings.
type HistoryConfig struct {
	MaxEntries int `yaml:"max_entries"`
}

// ServerConfig holds the websocket listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"` // empty disables the listener
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Session: SessionConfig{
			Rows:               256,
			Cols:               256,
			Debounce:           40 * time.Millisecond,
			MaxWait:            250 * time.Millisecond,
			FlushAreaThreshold: 4096,
			SubscriberBuffer:   16,
		},
		Mesh: MeshConfig{
			Spacing:      1,
			HeightScale:  1,
			StrictBounds: true,
		},
		History: HistoryConfig{
			MaxEntries: 256,
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:7300",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Control returns the session settings in the form control.Open takes.
func (c *Config) Control() control.Config {
	return control.Config{
		Debounce:           c.Session.Debounce,
		MaxWait:            c.Session.MaxWait,
		FlushAreaThreshold: c.Session.FlushAreaThreshold,
		SubscriberBuffer:   c.Session.SubscriberBuffer,
		HistoryEntries:     c.History.MaxEntries,
		Spacing:            c.Mesh.Spacing,
		HeightScale:        c.Mesh.HeightScale,
		StrictBounds:       c.Mesh.StrictBounds,
	}
}
