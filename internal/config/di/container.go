package di

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"batchingest/internal/adapters/messaging"
	"batchingest/internal/adapters/persistence"
	"batchingest/internal/adapters/storage"
	"batchingest/internal/adapters/validation"
	"batchingest/internal/config"
	"batchingest/internal/domain"
	"batchingest/internal/domain/schema"
	"batchingest/internal/ports"
	db "batchingest/internal/shared/database"
	logger "batchingest/internal/shared/log"
)

type Container struct {
	Config       *config.Config
	DB           *gorm.DB
	Registry     *schema.Registry
	Storage      ports.BlobStore
	BatchService *domain.BatchService

	transports []ports.MessageTransport
}

// Options replaces adapters that would otherwise be built from Config.
type Options struct {
	Storage    ports.BlobStore
	SkipLedger bool
}

func (c *Container) Shutdown(ctx context.Context) error {
	logger.Info(ctx, "Shutting down container resources...")

	for _, t := range c.transports {
		if err := t.Close(); err != nil {
			logger.Error(ctx, err, "Failed to close message transport")
		}
	}

	if c.DB != nil {
		if err := db.Close(c.DB); err != nil {
			logger.Error(ctx, err, "Failed to close database connection")
		}
	}

	logger.Info(ctx, "Container shutdown complete")
	return nil
}

// InitContainer loads the configuration from the environment and builds
// the server's dependencies.
func InitContainer() (*Container, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger.Setup(cfg.LogLevel, cfg.LogFormat)
	return Build(context.Background(), cfg, Options{})
}

func Build(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{Config: cfg}

	registry, err := schema.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load record schemas: %w", err)
	}
	c.Registry = registry

	var ledger ports.RunLedger
	if cfg.DatabaseURL != "" && !opts.SkipLedger {
		logger.Info(ctx, "Initializing database...")
		database, err := db.Init(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = database

		logger.Info(ctx, "Running database migrations...")
		if err := MigrateDB(database); err != nil {
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
		logger.Info(ctx, "Database migrations completed successfully")
		ledger = persistence.NewRunRepository(database)
	} else {
		logger.Info(ctx, "DATABASE_URL not set, run ledger disabled")
	}

	c.Storage = opts.Storage
	if c.Storage == nil {
		minioStorage, err := storage.NewMinIOStorage(storage.MinIOConfig{
			Endpoint:   cfg.MinIOEndpoint,
			AccessKey:  cfg.MinIOAccessKey,
			SecretKey:  cfg.MinIOSecretKey,
			UseSSL:     cfg.MinIOUseSSL,
			Bucket:     cfg.MinIOBucket,
			StagingDir: cfg.StagingDir,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize MinIO storage: %w", err)
		}
		c.Storage = minioStorage
	}

	recordTransport, dlqTransport, err := c.transportsFor(cfg)
	if err != nil {
		return nil, err
	}

	schemaValidator, err := validation.NewJSONSchemaValidator(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize schema validator: %w", err)
	}

	batchValidator, err := domain.NewBatchValidator(registry, schemaValidator, domain.BatchValidatorConfig{
		BatchSize: cfg.BatchSize,
		Encoding:  cfg.DefaultEncoding,
	})
	if err != nil {
		return nil, err
	}

	retry := domain.RetryPolicy{MaxRetries: cfg.MaxRetryAttempts, Unit: cfg.RetryUnit}
	publisher := domain.NewPublisher(recordTransport, domain.PublisherConfig{
		Topic:            cfg.KafkaTopic,
		UseRealBroker:    cfg.UseRealBroker,
		HistoryRetention: cfg.HistoryRetention,
		Retry:            retry,
	})
	deadLetters := domain.NewDeadLetterRouter(dlqTransport, domain.DeadLetterConfig{
		Topic:            cfg.KafkaDLQTopic,
		HistoryRetention: cfg.HistoryRetention,
		Retry:            retry,
	})

	c.BatchService, err = domain.NewBatchService(c.Storage, batchValidator, publisher, deadLetters, ledger, domain.BatchServiceConfig{
		MaxFileSizeBytes:   cfg.MaxFileSizeBytes(),
		MaxWorkers:         cfg.MaxWorkers,
		ProcessingTimeout:  cfg.ProcessingTimeout,
		SupportedFileTypes: cfg.SupportedFileTypes,
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) transportsFor(cfg *config.Config) (ports.MessageTransport, ports.MessageTransport, error) {
	if !cfg.UseRealBroker {
		records := messaging.NewSimulatedPublisher("sim_")
		deadLetters := messaging.NewSimulatedPublisher("dlq_sim_")
		c.transports = append(c.transports, records, deadLetters)
		return records, deadLetters, nil
	}

	kafkaPublisher, err := messaging.NewKafkaPublisher(messaging.KafkaConfig{Brokers: cfg.BrokerList()})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize Kafka publisher: %w", err)
	}
	c.transports = append(c.transports, kafkaPublisher)
	return kafkaPublisher, kafkaPublisher, nil
}
