package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appError "batchingest/internal/shared/error"
)

func validConfig() *Config {
	return &Config{
		KafkaTopic:         "batch-processed-data",
		KafkaDLQTopic:      "batch-processing-dlq",
		MaxFileSizeMB:      100,
		BatchSize:          1000,
		MaxWorkers:         4,
		ProcessingTimeout:  300 * time.Second,
		SupportedFileTypes: []string{"csv"},
		DefaultEncoding:    "utf-8",
		MaxRetryAttempts:   3,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }, wantField: "BatchSize"},
		{name: "negative batch size", mutate: func(c *Config) { c.BatchSize = -5 }, wantField: "BatchSize"},
		{name: "empty encoding", mutate: func(c *Config) { c.DefaultEncoding = "" }, wantField: "DefaultEncoding"},
		{name: "blank encoding", mutate: func(c *Config) { c.DefaultEncoding = "   " }, wantField: "DefaultEncoding"},
		{name: "zero workers", mutate: func(c *Config) { c.MaxWorkers = 0 }, wantField: "MaxWorkers"},
		{name: "negative retries", mutate: func(c *Config) { c.MaxRetryAttempts = -1 }, wantField: "MaxRetryAttempts"},
		{name: "zero retries allowed", mutate: func(c *Config) { c.MaxRetryAttempts = 0 }},
		{name: "batch size reported first", mutate: func(c *Config) {
			c.BatchSize = 0
			c.DefaultEncoding = ""
		}, wantField: "BatchSize"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, appError.ErrInvalidConfiguration)

			var cfgErr *appError.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("BATCH_SIZE", "250")
	t.Setenv("MAX_WORKERS", "2")
	t.Setenv("KAFKA_BROKERS", "broker-1:9092, broker-2:9092")
	t.Setenv("SUPPORTED_FILE_TYPES", "csv,txt")
	t.Setenv("PROCESSING_TIMEOUT", "45s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, 2, cfg.MaxWorkers)
	assert.Equal(t, []string{"broker-1:9092", "broker-2:9092"}, cfg.BrokerList())
	assert.Equal(t, []string{"csv", "txt"}, cfg.SupportedFileTypes)
	assert.Equal(t, 45*time.Second, cfg.ProcessingTimeout)
	assert.Equal(t, "utf-8", cfg.DefaultEncoding)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxFileSizeBytes())
}

func TestLoadConfigRejectsInvalidBatchSize(t *testing.T) {
	t.Setenv("BATCH_SIZE", "0")

	_, err := LoadConfig()
	assert.ErrorIs(t, err, appError.ErrInvalidConfiguration)
}
