package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidConfig = errors.New("invalid configuration")

const (
	TransportTCP  = "tcp"
	TransportSmux = "smux"

	GraphSourceFile = "file"
	GraphSourceEtcd = "etcd"
)

// Config struct to hold configuration from toml file
type Config struct {
	Server ServerConfig `toml:"server"`
	Graph  GraphConfig  `toml:"graph"`
	Cache  CacheConfig  `toml:"cache"`
	Admin  AdminConfig  `toml:"admin"`
	Etcd   EtcdConfig   `toml:"etcd"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	Port           int    `toml:"port"`
	Transport      string `toml:"transport"`
	MaxWorkers     int    `toml:"max_workers"`
	IOTimeoutMs    int    `toml:"io_timeout_ms"` // 0 disables deadlines
	StrictRequests bool   `toml:"strict_requests"`
}

type GraphConfig struct {
	Source string `toml:"source"`
	Path   string `toml:"path"`
}

type CacheConfig struct {
	Capacity int `toml:"capacity"`
}

type AdminConfig struct {
	HTTPAddr         string `toml:"http_addr"`
	GRPCAddr         string `toml:"grpc_addr"`
	StatsIntervalSec int    `toml:"stats_interval_sec"`
}

type EtcdConfig struct {
	Endpoints     []string `toml:"endpoints"`
	DialTimeoutMs int      `toml:"dial_timeout_ms"`
	GraphKey      string   `toml:"graph_key"`
}

type LogConfig struct {
	Level string `toml:"level"`
	Dir   string `toml:"dir"`
}

func (s ServerConfig) IOTimeout() time.Duration {
	return time.Duration(s.IOTimeoutMs) * time.Millisecond
}

func (a AdminConfig) StatsInterval() time.Duration {
	return time.Duration(a.StatsIntervalSec) * time.Second
}

func (e EtcdConfig) DialTimeout() time.Duration {
	return time.Duration(e.DialTimeoutMs) * time.Millisecond
}

// Default returns a configuration with every optional field set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Transport:  TransportTCP,
			MaxWorkers: 256,
		},
		Graph: GraphConfig{
			Source: GraphSourceFile,
		},
		Cache: CacheConfig{
			Capacity: 10,
		},
		Admin: AdminConfig{
			StatsIntervalSec: 60,
		},
		Etcd: EtcdConfig{
			Endpoints:     []string{"localhost:2379"},
			DialTimeoutMs: 5000,
			GraphKey:      "/pathserver/graph",
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "./logs",
		},
	}
}

// Load decodes the TOML file at path over the defaults. A missing file is
// not an error: the defaults are returned so flags can fill in the rest.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warnf("config file %s not found, using defaults", path)
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

// Parse decodes TOML text over the defaults
func Parse(data string) (*Config, error) {
	cfg := Default()
	if _, err := toml.Decode(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Transport == "" {
		c.Server.Transport = def.Server.Transport
	}
	if c.Graph.Source == "" {
		c.Graph.Source = def.Graph.Source
	}
	if c.Cache.Capacity == 0 {
		c.Cache.Capacity = def.Cache.Capacity
	}
	if c.Admin.StatsIntervalSec == 0 {
		c.Admin.StatsIntervalSec = def.Admin.StatsIntervalSec
	}
	if len(c.Etcd.Endpoints) == 0 {
		c.Etcd.Endpoints = def.Etcd.Endpoints
	}
	if c.Etcd.DialTimeoutMs == 0 {
		c.Etcd.DialTimeoutMs = def.Etcd.DialTimeoutMs
	}
	if c.Etcd.GraphKey == "" {
		c.Etcd.GraphKey = def.Etcd.GraphKey
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Dir == "" {
		c.Log.Dir = def.Log.Dir
	}
}

// Validate checks the fields the server needs before it can start
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	switch c.Server.Transport {
	case TransportTCP, TransportSmux:
	default:
		return fmt.Errorf("%w: unknown server.transport %q", ErrInvalidConfig, c.Server.Transport)
	}
	if c.Server.MaxWorkers < 0 {
		return fmt.Errorf("%w: server.max_workers must not be negative", ErrInvalidConfig)
	}
	if c.Server.IOTimeoutMs < 0 {
		return fmt.Errorf("%w: server.io_timeout_ms must not be negative", ErrInvalidConfig)
	}
	if c.Cache.Capacity < 0 {
		return fmt.Errorf("%w: cache.capacity must not be negative", ErrInvalidConfig)
	}
	switch c.Graph.Source {
	case GraphSourceFile:
		if c.Graph.Path == "" {
			return fmt.Errorf("%w: graph.path is required for the file source", ErrInvalidConfig)
		}
	case GraphSourceEtcd:
		if len(c.Etcd.Endpoints) == 0 || c.Etcd.GraphKey == "" {
			return fmt.Errorf("%w: etcd.endpoints and etcd.graph_key are required for the etcd source", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown graph.source %q", ErrInvalidConfig, c.Graph.Source)
	}
	return nil
}
