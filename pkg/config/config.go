// Package config loads storecore settings from a TOML file.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"storecore/pkg/logging"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// DefaultMaxPages is the number of pages cached when no value is configured.
const DefaultMaxPages = 50

type BufferPoolConfiguration struct {
	MaxPages int `toml:"max_pages"`
}

type LockConfiguration struct {
	TimeoutMS         int  `toml:"timeout_ms"`
	PollIntervalMS    int  `toml:"poll_interval_ms"`
	DeadlockDetection bool `toml:"deadlock_detection"`
}

type WALConfiguration struct {
	Path           string `toml:"path"`
	BufferSize     int    `toml:"buffer_size"`
	CompressImages bool   `toml:"compress_images"`
}

type StorageConfiguration struct {
	DataDir string `toml:"data_dir"`
}

type MetricsConfiguration struct {
	Enabled bool   `toml:"enabled"`
	Address string `toml:"address"`
}

// Configuration is the full set of settings for one storage engine instance.
type Configuration struct {
	BufferPool BufferPoolConfiguration `toml:"buffer_pool"`
	Lock       LockConfiguration       `toml:"lock"`
	WAL        WALConfiguration        `toml:"wal"`
	Storage    StorageConfiguration    `toml:"storage"`
	Logging    logging.Config          `toml:"logging"`
	Metrics    MetricsConfiguration    `toml:"metrics"`
}

// Default returns the built-in configuration.
func Default() *Configuration {
	return &Configuration{
		BufferPool: BufferPoolConfiguration{MaxPages: DefaultMaxPages},
		Lock: LockConfiguration{
			TimeoutMS:      250,
			PollIntervalMS: 15,
		},
		WAL: WALConfiguration{
			Path:           "data/storecore.wal",
			BufferSize:     8192,
			CompressImages: true,
		},
		Storage: StorageConfiguration{DataDir: "data"},
		Logging: logging.Config{
			Level:  logging.LevelInfo,
			Format: "console",
		},
		Metrics: MetricsConfiguration{Address: ":9108"},
	}
}

// Load reads path on top of the defaults. A missing file is not an error;
// the defaults are returned.
func Load(path string) (*Configuration, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			logging.Info("config file not found, using defaults")
			return cfg, cfg.Validate()
		}
		return nil, errors.Wrapf(err, "stat config %s", path)
	}

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "decode config %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config keys in %s: %v", path, undecoded)
	}

	return cfg, cfg.Validate()
}

// Validate rejects settings the engine cannot run with.
func (c *Configuration) Validate() error {
	if c.BufferPool.MaxPages <= 0 {
		return fmt.Errorf("buffer_pool.max_pages must be positive, got %d", c.BufferPool.MaxPages)
	}
	if c.Lock.TimeoutMS <= 0 {
		return fmt.Errorf("lock.timeout_ms must be positive, got %d", c.Lock.TimeoutMS)
	}
	if c.Lock.PollIntervalMS <= 0 || c.Lock.PollIntervalMS >= c.Lock.TimeoutMS {
		return fmt.Errorf("lock.poll_interval_ms must be in (0, %d), got %d", c.Lock.TimeoutMS, c.Lock.PollIntervalMS)
	}
	if c.WAL.BufferSize <= 0 {
		return fmt.Errorf("wal.buffer_size must be positive, got %d", c.WAL.BufferSize)
	}
	if c.WAL.Path == "" {
		return fmt.Errorf("wal.path must be set")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("storage.data_dir must be set")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address must be set when metrics are enabled")
	}
	return nil
}

// LockTimeout is the wall-clock deadline for one lock wait.
func (c *Configuration) LockTimeout() time.Duration {
	return time.Duration(c.Lock.TimeoutMS) * time.Millisecond
}

// PollInterval is the fallback re-check interval during a lock wait.
func (c *Configuration) PollInterval() time.Duration {
	return time.Duration(c.Lock.PollIntervalMS) * time.Millisecond
}

// Encode renders the configuration as TOML.
func (c *Configuration) Encode() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", err
	}
	return buf.String(), nil
}
