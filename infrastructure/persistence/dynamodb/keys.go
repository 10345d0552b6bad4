package dynamodb

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"catalog-backend/domain/catalog"
)

// Catalog table layout: one table keyed by (productId, sortkey) with the
// sort key overloaded per row type. Product rows sit at "$metadata", plan
// rows at "$plan:<currency>|<name>" so that the (productId, currency, name)
// triple is unique by construction, and resource rows carry a generated
// placeholder partition key with the "-" sentinel and are addressed only
// through the ResourcesIndex.
const (
	attrProductID  = "productId"
	attrSortKey    = "sortkey"
	attrPlanID     = "planId"
	attrResourceID = "resourceId"
	attrAccountID  = "accountId"

	productMetadataSortKey = "$metadata"
	planSortKeyPrefix      = "$plan:"
	planKeyDelimiter       = "|"
	resourceSortKey        = "-"
)

func planSortKey(currency catalog.Currency, name string) string {
	return planSortKeyPrefix + string(currency) + planKeyDelimiter + name
}

func parsePlanSortKey(key string) (catalog.Currency, string) {
	trimmed := strings.TrimPrefix(key, planSortKeyPrefix)
	parts := strings.SplitN(trimmed, planKeyDelimiter, 2)
	if len(parts) != 2 {
		return "", trimmed
	}
	return catalog.Currency(parts[0]), parts[1]
}

func catalogKey(productID, sortKey string) Item {
	return Item{
		attrProductID: &types.AttributeValueMemberS{Value: productID},
		attrSortKey:   &types.AttributeValueMemberS{Value: sortKey},
	}
}

func subscriptionKey(key catalog.SubscriptionKey) Item {
	return Item{
		attrAccountID: &types.AttributeValueMemberS{Value: key.AccountID},
		attrPlanID:    &types.AttributeValueMemberS{Value: key.PlanID},
	}
}
