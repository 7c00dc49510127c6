// Package config provides configuration loading for the exporter.
// It supports YAML files with sensible defaults for any unset values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// SourceMode selects the event source backend.
type SourceMode string

const (
	// SourceModeMemory uses an in-process channel source (tests, development).
	SourceModeMemory SourceMode = "memory"
	// SourceModeMQTT consumes decoded events from an MQTT topic.
	SourceModeMQTT SourceMode = "mqtt"
	// SourceModeKafka consumes decoded events from a Kafka topic.
	SourceModeKafka SourceMode = "kafka"
)

// IsValid returns true if the source mode is recognized.
func (m SourceMode) IsValid() bool {
	return m == SourceModeMemory || m == SourceModeMQTT || m == SourceModeKafka
}

// CacheBackend selects where name-cache snapshots are persisted.
type CacheBackend string

const (
	// CacheBackendFile persists the cache as a local JSON file.
	CacheBackendFile CacheBackend = "file"
	// CacheBackendRedis persists the cache in Redis.
	CacheBackendRedis CacheBackend = "redis"
)

// IsValid returns true if the cache backend is recognized.
func (b CacheBackend) IsValid() bool {
	return b == CacheBackendFile || b == CacheBackendRedis
}

// Config represents the complete application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Source   SourceConfig   `yaml:"source"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Cache    CacheConfig    `yaml:"cache"`
	Redis    RedisConfig    `yaml:"redis"`
	Topology TopologyConfig `yaml:"topology"`
	Logger   LoggerConfig   `yaml:"logger"`
}

// ServerConfig holds HTTP server settings for the scrape endpoint.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// Address returns the host:port listen address.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SourceConfig selects the event source.
type SourceConfig struct {
	Mode SourceMode `yaml:"mode"`
}

// MQTTConfig holds MQTT broker settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
	QoS      byte   `yaml:"qos"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// KafkaConfig holds Kafka connection and topic settings.
type KafkaConfig struct {
	Brokers       []string `yaml:"brokers"`
	Topic         string   `yaml:"topic"`
	ConsumerGroup string   `yaml:"consumer_group"`
}

// CacheConfig holds name-cache persistence settings.
type CacheConfig struct {
	Backend CacheBackend `yaml:"backend"`
	Path    string       `yaml:"path"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// RedisAddr returns the host:port connection address.
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TopologyConfig carries the operator's known-device list: fixed aliases and
// zone names used as the name-resolution fallback when the cache misses.
type TopologyConfig struct {
	Devices map[string]string `yaml:"devices"`
	Zones   map[string]string `yaml:"zones"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Load reads configuration from the specified YAML file path.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	// Clean the path to prevent path traversal attacks
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(cfg)

	if !cfg.Source.Mode.IsValid() {
		return nil, fmt.Errorf("invalid source mode: %q", cfg.Source.Mode)
	}
	if !cfg.Cache.Backend.IsValid() {
		return nil, fmt.Errorf("invalid cache backend: %q", cfg.Cache.Backend)
	}

	return cfg, nil
}

// applyDefaults sets sensible default values for configuration fields
// that are not explicitly set in the config file.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 5 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 60 * time.Second
	}

	if cfg.Source.Mode == "" {
		cfg.Source.Mode = SourceModeMemory
	}

	if cfg.MQTT.Broker == "" {
		cfg.MQTT.Broker = "tcp://localhost:1883"
	}
	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "ramses-exporter"
	}
	if cfg.MQTT.Topic == "" {
		cfg.MQTT.Topic = "ramses/events"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "ramses-events"
	}
	if cfg.Kafka.ConsumerGroup == "" {
		cfg.Kafka.ConsumerGroup = "ramses-exporter"
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = CacheBackendFile
	}
	if cfg.Cache.Path == "" {
		cfg.Cache.Path = "/tmp/ramses_rf_cache.json"
	}

	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}

	if cfg.Logger.Level == "" {
		cfg.Logger.Level = "info"
	}
	if cfg.Logger.Format == "" {
		cfg.Logger.Format = "json"
	}
}
