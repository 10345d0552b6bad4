// Command subscription-events consumes the subscriptions table change
// stream and publishes one bus event per change record.
package main

import (
	"context"
	"log"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"catalog-backend/application/stream"
	"catalog-backend/infrastructure/config"
	"catalog-backend/infrastructure/di"
	"catalog-backend/infrastructure/streaming"
)

var consumer *stream.Consumer

// init runs during cold start
func init() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	consumer = container.StreamConsumer

	container.Logger.Info("Subscription event consumer initialized",
		zap.String("eventBus", cfg.EventBusName),
		zap.String("deadLetterQueue", cfg.DeadLetterQueueURL),
	)
}

// Handler decodes the stream batch and hands it to the consumer. A
// returned error makes the platform redeliver the batch.
func Handler(ctx context.Context, event lambdaevents.DynamoDBEvent) error {
	changes, err := streaming.FromDynamoDBEvent(event)
	if err != nil {
		return err
	}
	return consumer.ProcessBatch(ctx, changes)
}

func main() {
	lambda.Start(Handler)
}
