package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, as in
// TREESEARCH_ELASTICSEARCH_ALIAS.
const EnvPrefix = "TREESEARCH"

// Config holds the treesearch tool configuration.
type Config struct {
	Environment   string
	Logger        LoggerConfig
	Elasticsearch ElasticsearchConfig
	Redis         RedisConfig
	Indexing      IndexingConfig
	Content       ContentConfig
}

// LoggerConfig is the configuration for the logger.
type LoggerConfig struct {
	Level string // debug, info, warn, error (default: determined by environment)
}

// ElasticsearchConfig is the configuration for the search backend.
type ElasticsearchConfig struct {
	Nodes    []string
	Scheme   string
	Username string
	Password string
	CACert   string // path to a PEM file
	Sniff    bool
	Alias    string
}

// RedisConfig is the configuration for the shared bulk indexing flag. An
// empty Addr keeps the flag in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	FlagKey  string
	FlagTTL  time.Duration
}

// IndexingConfig is the configuration for the bulk indexer.
type IndexingConfig struct {
	Workers       int
	FlushBytes    int
	FlushInterval time.Duration
}

// ContentConfig is the configuration for the content tree export.
type ContentConfig struct {
	Export    string
	CacheSize int
}

// Load reads the configuration from path, or from treesearch.yaml in the
// working directory or /etc/treesearch when path is empty. A missing
// default file is not an error. Environment variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("treesearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/treesearch/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}

	cfg.Environment = v.GetString("environment")
	cfg.Logger.Level = v.GetString("logger.level")

	cfg.Elasticsearch.Nodes = v.GetStringSlice("elasticsearch.nodes")
	cfg.Elasticsearch.Scheme = v.GetString("elasticsearch.scheme")
	cfg.Elasticsearch.Username = v.GetString("elasticsearch.username")
	cfg.Elasticsearch.Password = v.GetString("elasticsearch.password")
	cfg.Elasticsearch.CACert = v.GetString("elasticsearch.ca_cert")
	cfg.Elasticsearch.Sniff = v.GetBool("elasticsearch.sniff")
	cfg.Elasticsearch.Alias = v.GetString("elasticsearch.alias")

	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Redis.FlagKey = v.GetString("redis.flag_key")
	cfg.Redis.FlagTTL = v.GetDuration("redis.flag_ttl")

	cfg.Indexing.Workers = v.GetInt("indexing.workers")
	cfg.Indexing.FlushBytes = v.GetInt("indexing.flush_bytes")
	cfg.Indexing.FlushInterval = v.GetDuration("indexing.flush_interval")

	cfg.Content.Export = v.GetString("content.export")
	cfg.Content.CacheSize = v.GetInt("content.cache_size")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "prod")
	v.SetDefault("logger.level", "")

	v.SetDefault("elasticsearch.nodes", []string{"localhost:9200"})
	v.SetDefault("elasticsearch.scheme", "http")
	v.SetDefault("elasticsearch.alias", "treesearch")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.flag_key", "treesearch:bulk-indexing")
	v.SetDefault("redis.flag_ttl", 6*time.Hour)

	v.SetDefault("indexing.workers", 2)
	v.SetDefault("indexing.flush_bytes", 5<<20)
	v.SetDefault("indexing.flush_interval", 30*time.Second)

	v.SetDefault("content.export", "content.yaml")
	v.SetDefault("content.cache_size", 10000)
}

// Validate reports configuration values the tool cannot work with.
func (c *Config) Validate() error {
	var errs []error

	if len(c.Elasticsearch.Nodes) == 0 {
		errs = append(errs, errors.New("elasticsearch.nodes must not be empty"))
	}
	if c.Elasticsearch.Alias == "" {
		errs = append(errs, errors.New("elasticsearch.alias must not be empty"))
	}
	if s := c.Elasticsearch.Scheme; s != "http" && s != "https" {
		errs = append(errs, fmt.Errorf("elasticsearch.scheme must be http or https, got %q", s))
	}
	if c.Indexing.Workers < 1 {
		errs = append(errs, fmt.Errorf("indexing.workers must be positive, got %d", c.Indexing.Workers))
	}
	if c.Content.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("content.cache_size must be positive, got %d", c.Content.CacheSize))
	}
	if c.Redis.Addr != "" && c.Redis.FlagKey == "" {
		errs = append(errs, errors.New("redis.flag_key must not be empty"))
	}

	return errors.Join(errs...)
}
