package config

import (
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	appError "batchingest/internal/shared/error"
)

type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	// Optional; the run ledger is disabled when empty.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	MinIOEndpoint  string `envconfig:"MINIO_ENDPOINT"`
	MinIOAccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	MinIOSecretKey string `envconfig:"MINIO_SECRET_KEY"`
	MinIOUseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
	MinIOBucket    string `envconfig:"MINIO_BUCKET" default:"batch-uploads"`

	KafkaBrokers  string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaTopic    string `envconfig:"KAFKA_TOPIC" default:"batch-processed-data"`
	KafkaDLQTopic string `envconfig:"KAFKA_DLQ_TOPIC" default:"batch-processing-dlq"`
	UseRealBroker bool   `envconfig:"USE_REAL_BROKER" default:"true"`

	StagingDir         string        `envconfig:"STAGING_DIR" default:"/tmp/batch_files"`
	MaxFileSizeMB      int64         `envconfig:"MAX_FILE_SIZE_MB" default:"100"`
	BatchSize          int           `envconfig:"BATCH_SIZE" default:"1000"`
	MaxWorkers         int           `envconfig:"MAX_WORKERS" default:"4"`
	ProcessingTimeout  time.Duration `envconfig:"PROCESSING_TIMEOUT" default:"300s"`
	SupportedFileTypes []string      `envconfig:"SUPPORTED_FILE_TYPES" default:"csv"`
	DefaultEncoding    string        `envconfig:"DEFAULT_ENCODING" default:"utf-8"`
	MaxRetryAttempts   int           `envconfig:"MAX_RETRY_ATTEMPTS" default:"3"`
	RetryUnit          time.Duration `envconfig:"RETRY_UNIT" default:"1s"`
	HistoryRetention   int           `envconfig:"HISTORY_RETENTION" default:"1000"`
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Printf("Warning: error loading .env file: %v\n", err)
	}

	config := &Config{}

	err = envconfig.Process("", config)
	if err != nil {
		return nil, fmt.Errorf("error processing envconfig: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the processing parameters. The first failing field is
// reported as a ConfigurationError.
func (c *Config) Validate() error {
	err := validation.ValidateStruct(c,
		validation.Field(&c.BatchSize, validation.Required.Error("must be a positive integer"), validation.Min(1).Error("must be a positive integer")),
		validation.Field(&c.DefaultEncoding, validation.By(nonBlank)),
		validation.Field(&c.MaxWorkers, validation.Required.Error("must be a positive integer"), validation.Min(1).Error("must be a positive integer")),
		validation.Field(&c.MaxRetryAttempts, validation.Min(0).Error("must not be negative")),
		validation.Field(&c.MaxFileSizeMB, validation.Required.Error("must be a positive integer"), validation.Min(int64(1)).Error("must be a positive integer")),
		validation.Field(&c.ProcessingTimeout, validation.Required.Error("must be a positive duration"), validation.Min(time.Duration(1)).Error("must be a positive duration")),
		validation.Field(&c.KafkaTopic, validation.Required),
		validation.Field(&c.KafkaDLQTopic, validation.Required),
		validation.Field(&c.SupportedFileTypes, validation.Required),
	)
	if err == nil {
		return nil
	}

	if errs, ok := err.(validation.Errors); ok {
		for _, field := range orderedFields {
			if fieldErr, found := errs[field]; found {
				return appError.NewConfigurationError(field, fieldErr.Error())
			}
		}
		for field, fieldErr := range errs {
			return appError.NewConfigurationError(field, fieldErr.Error())
		}
	}
	return appError.NewConfigurationError("config", err.Error())
}

// Reporting order when several fields fail at once.
var orderedFields = []string{
	"BatchSize", "DefaultEncoding", "MaxWorkers", "MaxRetryAttempts",
	"MaxFileSizeMB", "ProcessingTimeout", "KafkaTopic", "KafkaDLQTopic",
	"SupportedFileTypes",
}

func nonBlank(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return validation.NewError("validation_blank", "must not be empty")
	}
	return nil
}

// MaxFileSizeBytes converts the MB limit to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// BrokerList splits the comma separated broker addresses.
func (c *Config) BrokerList() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
