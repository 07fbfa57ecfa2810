package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"http://localhost:9200"}, cfg.Elasticsearch.Addresses)
	assert.Equal(t, "logs", cfg.Elasticsearch.Index)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.True(t, cfg.MongoDB.Enabled)
	assert.Equal(t, 60*time.Second, cfg.Cache.SearchTTL)
	assert.Equal(t, time.Hour, cfg.Cache.AutocompleteTTL)
	assert.Equal(t, 8081, cfg.API.Port)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	t.Setenv("LOGSCOPE_REDIS_ADDR", "redis-prod:6380")
	t.Setenv("LOGSCOPE_ES_INDEX", "applogs")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "redis-prod:6380", cfg.Redis.Addr)
	assert.Equal(t, "applogs", cfg.Elasticsearch.Index)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty es addresses", func(c *Config) { c.Elasticsearch.Addresses = nil }},
		{"empty es index", func(c *Config) { c.Elasticsearch.Index = "" }},
		{"empty redis addr", func(c *Config) { c.Redis.Addr = "" }},
		{"zero search ttl", func(c *Config) { c.Cache.SearchTTL = 0 }},
		{"negative autocomplete ttl", func(c *Config) { c.Cache.AutocompleteTTL = -time.Second }},
		{"port out of range", func(c *Config) { c.API.Port = 70000 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Cleanup(viper.Reset)

			cfg, err := LoadConfig()
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.Error(t, validate(cfg))
		})
	}
}

func TestValidate_MongoURIOnlyRequiredWhenEnabled(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	cfg.MongoDB.URI = ""
	cfg.MongoDB.Enabled = true
	assert.Error(t, validate(cfg))

	cfg.MongoDB.Enabled = false
	assert.NoError(t, validate(cfg))
}
