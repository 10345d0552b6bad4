// Package di wires the application together.
package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/application/stream"
	"catalog-backend/infrastructure/config"
	"catalog-backend/infrastructure/messaging/eventbridge"
	"catalog-backend/infrastructure/messaging/sqs"
	"catalog-backend/infrastructure/observability"
	"catalog-backend/infrastructure/persistence/dynamodb"
	"catalog-backend/pkg/errors"
)

// Container holds every constructed component.
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	Store dynamodb.Store

	ProductRepository      ports.ProductRepository
	PlanRepository         ports.PlanRepository
	ResourceRepository     ports.ResourceRepository
	SubscriptionRepository ports.SubscriptionRepository

	EventBus       ports.EventBus
	DeadLetterSink ports.DeadLetterSink
	Metrics        *observability.Metrics
	StreamConsumer *stream.Consumer

	ErrorHandler *errors.ErrorHandler
}

// InitializeContainer builds the full dependency graph from configuration.
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := ProvideLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	awsCfg, err := ProvideAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	dynamoClient := awsdynamodb.NewFromConfig(awsCfg)
	eventBridgeClient := awseventbridge.NewFromConfig(awsCfg)
	sqsClient := awssqs.NewFromConfig(awsCfg)
	cloudWatchClient := awscloudwatch.NewFromConfig(awsCfg)

	store := dynamodb.NewStore(dynamoClient, logger)

	resourceRepo := dynamodb.NewResourceRepository(store, cfg.CatalogTable, cfg.ResourcesIndex, logger)
	productRepo := dynamodb.NewProductRepository(store, cfg.CatalogTable, resourceRepo, logger)
	planRepo := dynamodb.NewPlanRepository(store, cfg.CatalogTable, cfg.PlansIndex, logger)
	subscriptionRepo := dynamodb.NewSubscriptionRepository(store, cfg.SubscriptionsTable, cfg.SubscriptionsPlanIndex, logger)

	bus := eventbridge.NewPublisher(eventBridgeClient, cfg.EventBusName, logger)
	dlq := sqs.NewDeadLetterQueue(sqsClient, cfg.DeadLetterQueueURL, logger)

	var metrics *observability.Metrics
	if cfg.MetricsNamespace != "" {
		metrics = observability.NewMetrics(cloudWatchClient, cfg.MetricsNamespace, logger)
	}

	consumer := stream.NewConsumer(bus, dlq, metrics, logger,
		stream.WithMaxAttempts(cfg.StreamMaxAttempts),
	)

	return &Container{
		Config: cfg,
		Logger: logger,

		Store: store,

		ProductRepository:      productRepo,
		PlanRepository:         planRepo,
		ResourceRepository:     resourceRepo,
		SubscriptionRepository: subscriptionRepo,

		EventBus:       bus,
		DeadLetterSink: dlq,
		Metrics:        metrics,
		StreamConsumer: consumer,

		ErrorHandler: errors.NewErrorHandler(logger),
	}, nil
}

// ProvideLogger creates a zap logger for the configured environment.
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig loads the AWS SDK configuration.
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// Shutdown flushes buffered log entries.
func (c *Container) Shutdown() {
	if c.Logger != nil {
		_ = c.Logger.Sync()
	}
}
