// Package sqs routes poisoned change records to a dead-letter queue.
package sqs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"go.uber.org/zap"

	"catalog-backend/application/ports"
	"catalog-backend/domain/events"
)

// SQSAPI is the subset of the SQS client the sink uses.
type SQSAPI interface {
	SendMessage(ctx context.Context, input *awssqs.SendMessageInput, optFns ...func(*awssqs.Options)) (*awssqs.SendMessageOutput, error)
}

// deadLetterMessage is the queue payload: the failed change plus the error
// that exhausted its retries, for operator replay.
type deadLetterMessage struct {
	Change events.SubscriptionChange `json:"change"`
	Error  string                    `json:"error"`
}

// DeadLetterQueue implements ports.DeadLetterSink on an SQS queue.
type DeadLetterQueue struct {
	client   SQSAPI
	queueURL string
	logger   *zap.Logger
}

// NewDeadLetterQueue creates a dead-letter sink.
func NewDeadLetterQueue(client SQSAPI, queueURL string, logger *zap.Logger) *DeadLetterQueue {
	return &DeadLetterQueue{client: client, queueURL: queueURL, logger: logger}
}

var _ ports.DeadLetterSink = (*DeadLetterQueue)(nil)

// Send enqueues the change record with its terminal error.
func (q *DeadLetterQueue) Send(ctx context.Context, change events.SubscriptionChange, cause error) error {
	message := deadLetterMessage{Change: change}
	if cause != nil {
		message.Error = cause.Error()
	}

	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &awssqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		q.logger.Error("Failed to send change to dead letter queue",
			zap.String("kind", string(change.Kind)),
			zap.Error(err),
		)
		return fmt.Errorf("failed to send to dead letter queue: %w", err)
	}

	q.logger.Warn("Change routed to dead letter queue",
		zap.String("kind", string(change.Kind)),
		zap.Time("changeTime", change.Time),
	)
	return nil
}
