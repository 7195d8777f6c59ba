// Package config loads the per-environment YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverNeo4j  = "neo4j"
	DriverValkey = "valkey"
	DriverQdrant = "qdrant"
	DriverMemory = "memory"
)

// Config holds the personarec configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
	Graph      GraphConfig      `yaml:"graph"`
	Vector     VectorConfig     `yaml:"vector"`
	Valkey     ValkeyConfig     `yaml:"valkey"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Resilience ResilienceConfig `yaml:"resilience"`
	Recommend  RecommendConfig  `yaml:"recommend"`
	Ingest     IngestConfig     `yaml:"ingest"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// GraphConfig holds the graph store settings.
type GraphConfig struct {
	Driver           string `yaml:"driver"` // neo4j, memory (default: neo4j)
	URI              string `yaml:"uri"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	Database         string `yaml:"database"`
	MaxPoolSize      int    `yaml:"max_pool_size"`
	ReadinessTimeout int    `yaml:"readiness_timeout_sec"`
}

// VectorConfig holds vector index settings.
type VectorConfig struct {
	Driver          string `yaml:"driver"` // valkey, qdrant, memory (default: valkey)
	Namespace       string `yaml:"namespace"`
	BatchSize       int    `yaml:"batch_size"`
	Workers         int    `yaml:"workers"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// ValkeyConfig holds the Valkey connection used by the vector index, embedding cache and checkpoints.
type ValkeyConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// QdrantConfig holds the Qdrant connection.
type QdrantConfig struct {
	Addr       string `yaml:"addr"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig holds the embedding provider settings.
type EmbeddingConfig struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	SendDimensions bool   `yaml:"send_dimensions"`
	MaxBatchSize   int    `yaml:"max_batch_size"`
	CacheTTLHours  int    `yaml:"cache_ttl_hours"` // 0 disables the cache
}

// ClassifierConfig holds the persona inference server settings.
type ClassifierConfig struct {
	BaseURL   string  `yaml:"base_url"`
	TimeoutMS int     `yaml:"timeout_ms"`
	RPS       float64 `yaml:"rps"` // 0 = unlimited
	Burst     int     `yaml:"burst"`
}

// BreakerConfig holds circuit breaker thresholds.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	OpenTimeoutSec   int `yaml:"open_timeout_sec"`
	HalfOpenRequests int `yaml:"half_open_requests"`
}

// ResilienceConfig holds the breakers around remote providers.
type ResilienceConfig struct {
	Embedding  BreakerConfig `yaml:"embedding"`
	Classifier BreakerConfig `yaml:"classifier"`
}

// RecommendConfig bounds each step of the query path.
type RecommendConfig struct {
	EmbedTimeoutMS  int `yaml:"embed_timeout_ms"`
	VectorTimeoutMS int `yaml:"vector_timeout_ms"`
	GraphTimeoutMS  int `yaml:"graph_timeout_ms"`
}

// IngestConfig holds ingestion job settings.
type IngestConfig struct {
	Job                string `yaml:"job"`
	GraphBatchSize     int    `yaml:"graph_batch_size"`
	CheckpointTTLHours int    `yaml:"checkpoint_ttl_hours"` // 0 keeps checkpoints forever
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands environment variables in data, decodes it and applies defaults and validation.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Graph.Driver == "" {
		c.Graph.Driver = DriverNeo4j
	}
	if c.Graph.ReadinessTimeout <= 0 {
		c.Graph.ReadinessTimeout = 30
	}

	if c.Vector.Driver == "" {
		c.Vector.Driver = DriverValkey
	}
	if c.Vector.Namespace == "" {
		c.Vector.Namespace = "venues"
	}
	if c.Vector.BatchSize <= 0 {
		c.Vector.BatchSize = 250
	}
	if c.Vector.Workers <= 0 {
		c.Vector.Workers = 4
	}
	if c.Vector.HNSWM <= 0 {
		c.Vector.HNSWM = 16
	}
	if c.Vector.HNSWEFConstruct <= 0 {
		c.Vector.HNSWEFConstruct = 200
	}

	if c.Valkey.ReadinessTimeout <= 0 {
		c.Valkey.ReadinessTimeout = 10
	}
	if c.Qdrant.Collection == "" {
		c.Qdrant.Collection = "personarec"
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = "text-embedding-ada-002"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 1536
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}

	if c.Classifier.TimeoutMS <= 0 {
		c.Classifier.TimeoutMS = 5000
	}
	if c.Classifier.Burst <= 0 {
		c.Classifier.Burst = 1
	}

	breakerDefaults(&c.Resilience.Embedding)
	breakerDefaults(&c.Resilience.Classifier)

	if c.Recommend.EmbedTimeoutMS <= 0 {
		c.Recommend.EmbedTimeoutMS = 3000
	}
	if c.Recommend.VectorTimeoutMS <= 0 {
		c.Recommend.VectorTimeoutMS = 1000
	}
	if c.Recommend.GraphTimeoutMS <= 0 {
		c.Recommend.GraphTimeoutMS = 1000
	}

	if c.Ingest.Job == "" {
		c.Ingest.Job = "default"
	}
	if c.Ingest.GraphBatchSize <= 0 {
		c.Ingest.GraphBatchSize = 50
	}
}

func breakerDefaults(b *BreakerConfig) {
	if b.FailureThreshold <= 0 {
		b.FailureThreshold = 5
	}
	if b.OpenTimeoutSec <= 0 {
		b.OpenTimeoutSec = 30
	}
	if b.HalfOpenRequests <= 0 {
		b.HalfOpenRequests = 1
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Graph.Driver {
	case DriverNeo4j:
		if c.Graph.URI == "" {
			return fmt.Errorf("graph.uri is required for the neo4j driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("graph.driver must be %q or %q, got %q", DriverNeo4j, DriverMemory, c.Graph.Driver)
	}

	switch c.Vector.Driver {
	case DriverValkey:
		if len(c.Valkey.Addrs) == 0 {
			return fmt.Errorf("valkey.addrs is required for the valkey vector driver")
		}
	case DriverQdrant:
		if c.Qdrant.Addr == "" {
			return fmt.Errorf("qdrant.addr is required for the qdrant vector driver")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("vector.driver must be one of %v, got %q",
			[]string{DriverValkey, DriverQdrant, DriverMemory}, c.Vector.Driver)
	}

	if c.Embedding.CacheTTLHours < 0 {
		return fmt.Errorf("embedding.cache_ttl_hours must not be negative")
	}
	if c.Embedding.CacheTTLHours > 0 && len(c.Valkey.Addrs) == 0 {
		return fmt.Errorf("embedding cache requires valkey.addrs")
	}
	if c.Classifier.BaseURL == "" {
		return fmt.Errorf("classifier.base_url is required")
	}
	if c.Classifier.RPS < 0 {
		return fmt.Errorf("classifier.rps must not be negative, got %v", c.Classifier.RPS)
	}
	if slices.Contains(c.Auth.APIKeys, "") {
		return fmt.Errorf("auth.api_keys must not contain empty keys")
	}
	return nil
}

// UsesValkey reports whether any component needs the Valkey connection.
func (c *Config) UsesValkey() bool {
	return len(c.Valkey.Addrs) > 0
}

// Timeout helpers.

// ReadTimeout returns the HTTP read timeout.
func (h HTTPConfig) ReadTimeout() time.Duration { return time.Duration(h.ReadTimeoutSec) * time.Second }

// WriteTimeout returns the HTTP write timeout.
func (h HTTPConfig) WriteTimeout() time.Duration { return time.Duration(h.WriteTimeoutSec) * time.Second }

// ShutdownTimeout returns the graceful shutdown deadline.
func (h HTTPConfig) ShutdownTimeout() time.Duration { return time.Duration(h.ShutdownSec) * time.Second }

// Timeout returns the per-request classifier timeout.
func (c ClassifierConfig) Timeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }

// OpenTimeout returns how long the breaker stays open.
func (b BreakerConfig) OpenTimeout() time.Duration { return time.Duration(b.OpenTimeoutSec) * time.Second }

// CacheTTL returns the embedding cache TTL.
func (e EmbeddingConfig) CacheTTL() time.Duration { return time.Duration(e.CacheTTLHours) * time.Hour }

// CheckpointTTL returns the checkpoint TTL.
func (i IngestConfig) CheckpointTTL() time.Duration {
	return time.Duration(i.CheckpointTTLHours) * time.Hour
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
