// Package observability emits operational counters to CloudWatch.
package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Counter names emitted by the change-stream pipeline.
const (
	MetricEventsPublished    = "SubscriptionEventsPublished"
	MetricEventsRetried      = "SubscriptionEventsRetried"
	MetricEventsDeadLettered = "SubscriptionEventsDeadLettered"
)

// CloudWatchAPI is the subset of the CloudWatch client used here.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, input *awscloudwatch.PutMetricDataInput, optFns ...func(*awscloudwatch.Options)) (*awscloudwatch.PutMetricDataOutput, error)
}

// Metrics publishes counters best-effort: failures are logged, never
// surfaced. A nil *Metrics is a valid no-op receiver.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	logger    *zap.Logger
}

// NewMetrics creates a metrics emitter.
func NewMetrics(client CloudWatchAPI, namespace string, logger *zap.Logger) *Metrics {
	return &Metrics{client: client, namespace: namespace, logger: logger}
}

// Count adds value to the named counter.
func (m *Metrics) Count(ctx context.Context, name string, value float64) {
	if m == nil {
		return
	}

	_, err := m.client.PutMetricData(ctx, &awscloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []types.MetricDatum{{
			MetricName: aws.String(name),
			Value:      aws.Float64(value),
			Unit:       types.StandardUnitCount,
			Timestamp:  aws.Time(time.Now()),
		}},
	})
	if err != nil {
		m.logger.Warn("Failed to put metric data",
			zap.String("metric", name),
			zap.Error(err),
		)
	}
}
