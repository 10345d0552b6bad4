// Package streaming decodes DynamoDB stream Lambda events into domain
// change records.
package streaming

import (
	"fmt"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"catalog-backend/domain/catalog"
	"catalog-backend/domain/events"
	"catalog-backend/infrastructure/persistence/dynamodb"
)

// FromDynamoDBEvent converts a stream Lambda event into ordered change
// records, decoding the before/after images with the repository's codec.
func FromDynamoDBEvent(event lambdaevents.DynamoDBEvent) ([]events.SubscriptionChange, error) {
	changes := make([]events.SubscriptionChange, 0, len(event.Records))
	for _, record := range event.Records {
		change, err := fromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode stream record %s: %w", record.EventID, err)
		}
		changes = append(changes, change)
	}
	return changes, nil
}

func fromRecord(record lambdaevents.DynamoDBEventRecord) (events.SubscriptionChange, error) {
	changeTime := record.Change.ApproximateCreationDateTime.Time
	if changeTime.IsZero() {
		changeTime = time.Now()
	}

	oldImage, err := decodeImage(record.Change.OldImage)
	if err != nil {
		return events.SubscriptionChange{}, err
	}
	newImage, err := decodeImage(record.Change.NewImage)
	if err != nil {
		return events.SubscriptionChange{}, err
	}

	return events.SubscriptionChange{
		Kind: events.ChangeKind(record.EventName),
		Time: changeTime,
		Old:  oldImage,
		New:  newImage,
	}, nil
}

func decodeImage(image map[string]lambdaevents.DynamoDBAttributeValue) (*catalog.Subscription, error) {
	if len(image) == 0 {
		return nil, nil
	}
	raw, err := toAttributeValueMap(image)
	if err != nil {
		return nil, err
	}
	return dynamodb.UnmarshalSubscription(raw)
}

// The Lambda runtime and the SDK model stream attribute values with
// different types; bridge record images into SDK attribute values so one
// codec serves both the repositories and the stream path.
func toAttributeValueMap(image map[string]lambdaevents.DynamoDBAttributeValue) (map[string]types.AttributeValue, error) {
	out := make(map[string]types.AttributeValue, len(image))
	for name, av := range image {
		converted, err := toAttributeValue(av)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		out[name] = converted
	}
	return out, nil
}

func toAttributeValue(av lambdaevents.DynamoDBAttributeValue) (types.AttributeValue, error) {
	switch av.DataType() {
	case lambdaevents.DataTypeString:
		return &types.AttributeValueMemberS{Value: av.String()}, nil
	case lambdaevents.DataTypeNumber:
		return &types.AttributeValueMemberN{Value: av.Number()}, nil
	case lambdaevents.DataTypeBoolean:
		return &types.AttributeValueMemberBOOL{Value: av.Boolean()}, nil
	case lambdaevents.DataTypeNull:
		return &types.AttributeValueMemberNULL{Value: av.IsNull()}, nil
	case lambdaevents.DataTypeBinary:
		return &types.AttributeValueMemberB{Value: av.Binary()}, nil
	case lambdaevents.DataTypeStringSet:
		return &types.AttributeValueMemberSS{Value: av.StringSet()}, nil
	case lambdaevents.DataTypeNumberSet:
		return &types.AttributeValueMemberNS{Value: av.NumberSet()}, nil
	case lambdaevents.DataTypeBinarySet:
		return &types.AttributeValueMemberBS{Value: av.BinarySet()}, nil
	case lambdaevents.DataTypeMap:
		converted, err := toAttributeValueMap(av.Map())
		if err != nil {
			return nil, err
		}
		return &types.AttributeValueMemberM{Value: converted}, nil
	case lambdaevents.DataTypeList:
		list := av.List()
		converted := make([]types.AttributeValue, 0, len(list))
		for _, member := range list {
			value, err := toAttributeValue(member)
			if err != nil {
				return nil, err
			}
			converted = append(converted, value)
		}
		return &types.AttributeValueMemberL{Value: converted}, nil
	default:
		return nil, fmt.Errorf("unsupported attribute data type %v", av.DataType())
	}
}
