package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the logscope service
type Config struct {
	Elasticsearch struct {
		Addresses []string `mapstructure:"addresses"`
		Index     string   `mapstructure:"index"`
		Timeout   int      `mapstructure:"timeout"` // seconds
	} `mapstructure:"elasticsearch"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
		PoolSize int    `mapstructure:"pool_size"`
	} `mapstructure:"redis"`

	MongoDB struct {
		URI         string `mapstructure:"uri"`
		Database    string `mapstructure:"database"`
		Enabled     bool   `mapstructure:"enabled"`
		MaxPoolSize uint64 `mapstructure:"max_pool_size"`
	} `mapstructure:"mongodb"`

	Cache struct {
		// SearchTTL is the expiry for cached full-search results
		SearchTTL time.Duration `mapstructure:"search_ttl"`
		// AutocompleteTTL is the expiry for cached suggestion lists
		AutocompleteTTL time.Duration `mapstructure:"autocomplete_ttl"`
	} `mapstructure:"cache"`

	API struct {
		Host         string `mapstructure:"host"`
		Port         int    `mapstructure:"port"`
		ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
		WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	} `mapstructure:"api"`
}

// LoadConfig reads configuration from config.yaml, environment variables,
// and built-in defaults, in increasing order of precedence for env vars.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()
	loadFromEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, will use defaults and env vars
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("elasticsearch.addresses", []string{"http://localhost:9200"})
	viper.SetDefault("elasticsearch.index", "logs")
	viper.SetDefault("elasticsearch.timeout", 30)

	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	viper.SetDefault("mongodb.uri", "mongodb://localhost:27017")
	viper.SetDefault("mongodb.database", "logscope")
	viper.SetDefault("mongodb.enabled", true)
	viper.SetDefault("mongodb.max_pool_size", 10)

	viper.SetDefault("cache.search_ttl", "60s")
	viper.SetDefault("cache.autocomplete_ttl", "1h")

	viper.SetDefault("api.host", "0.0.0.0")
	viper.SetDefault("api.port", 8081)
	viper.SetDefault("api.read_timeout", 15)
	viper.SetDefault("api.write_timeout", 30)
}

func loadFromEnv() {
	viper.SetEnvPrefix("LOGSCOPE")
	viper.AutomaticEnv()

	// Explicit bindings for the settings most often set via environment
	_ = viper.BindEnv("elasticsearch.addresses", "LOGSCOPE_ES_ADDRESSES")
	_ = viper.BindEnv("elasticsearch.index", "LOGSCOPE_ES_INDEX")
	_ = viper.BindEnv("redis.addr", "LOGSCOPE_REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "LOGSCOPE_REDIS_PASSWORD")
	_ = viper.BindEnv("mongodb.uri", "LOGSCOPE_MONGODB_URI")
	_ = viper.BindEnv("mongodb.database", "LOGSCOPE_MONGODB_DATABASE")
	_ = viper.BindEnv("api.port", "LOGSCOPE_API_PORT")
}

func validate(cfg *Config) error {
	if len(cfg.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("elasticsearch.addresses must not be empty")
	}
	if cfg.Elasticsearch.Index == "" {
		return fmt.Errorf("elasticsearch.index must not be empty")
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr must not be empty")
	}
	if cfg.MongoDB.Enabled && cfg.MongoDB.URI == "" {
		return fmt.Errorf("mongodb.uri must not be empty when mongodb is enabled")
	}
	if cfg.Cache.SearchTTL <= 0 {
		return fmt.Errorf("cache.search_ttl must be positive, got %s", cfg.Cache.SearchTTL)
	}
	if cfg.Cache.AutocompleteTTL <= 0 {
		return fmt.Errorf("cache.autocomplete_ttl must be positive, got %s", cfg.Cache.AutocompleteTTL)
	}
	if cfg.API.Port <= 0 || cfg.API.Port > 65535 {
		return fmt.Errorf("api.port must be in 1-65535, got %d", cfg.API.Port)
	}
	return nil
}
