package dynamodb

import (
	"context"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeStore is an in-memory Store for repository tests. Rows are keyed by
// the table's declared key attributes; queries and scans match on plain
// attribute equality and prefixes, ignoring index names.
type fakeStore struct {
	tables  map[string]map[string]Item
	schemas map[string][]string
	// indexKeys declares each secondary index's hash attribute; like the
	// real store's sparse indexes, rows missing it are invisible there.
	indexKeys map[string]string

	putErr    error
	batchErr  error
	deleteErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tables: make(map[string]map[string]Item),
		schemas: map[string][]string{
			testCatalogTable:       {attrProductID, attrSortKey},
			testSubscriptionsTable: {attrAccountID, attrPlanID},
		},
		indexKeys: map[string]string{
			testPlansIndex:     attrPlanID,
			testResourcesIndex: attrResourceID,
			testPlanIndex:      attrPlanID,
		},
	}
}

const (
	testCatalogTable       = "catalog"
	testSubscriptionsTable = "catalog-subscriptions"
	testPlansIndex         = "PlansIndex"
	testResourcesIndex     = "ResourcesIndex"
	testPlanIndex          = "PlanIndex"
)

func strAttr(item Item, name string) (string, bool) {
	av, ok := item[name]
	if !ok {
		return "", false
	}
	s, ok := av.(*types.AttributeValueMemberS)
	if !ok {
		return "", false
	}
	return s.Value, true
}

func (f *fakeStore) rowKey(table string, item Item) string {
	parts := make([]string, 0, 2)
	for _, attr := range f.schemas[table] {
		value, _ := strAttr(item, attr)
		parts = append(parts, value)
	}
	return strings.Join(parts, "\x00")
}

func (f *fakeStore) rows(table string) map[string]Item {
	rows, ok := f.tables[table]
	if !ok {
		rows = make(map[string]Item)
		f.tables[table] = rows
	}
	return rows
}

func copyItem(item Item) Item {
	out := make(Item, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func (f *fakeStore) Get(ctx context.Context, table string, key Item) (Item, error) {
	item, ok := f.rows(table)[f.rowKey(table, key)]
	if !ok {
		return nil, nil
	}
	return copyItem(item), nil
}

func (f *fakeStore) Put(ctx context.Context, in PutInput) error {
	if f.putErr != nil {
		return f.putErr
	}
	rows := f.rows(in.Table)
	key := f.rowKey(in.Table, in.Item)
	if in.ConditionNotExists != "" {
		if _, exists := rows[key]; exists {
			return ErrConditionFailed
		}
	}
	rows[key] = copyItem(in.Item)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, table string, key Item) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.rows(table), f.rowKey(table, key))
	return nil
}

func (f *fakeStore) Query(ctx context.Context, in QueryInput) ([]Item, error) {
	return f.match(in.Table, in.Index, in.KeyAttr, in.KeyValue, in.PrefixAttr, in.Prefix, in.Limit), nil
}

func (f *fakeStore) Scan(ctx context.Context, in ScanInput) ([]Item, error) {
	return f.match(in.Table, in.Index, in.EqualsAttr, in.EqualsValue, in.PrefixAttr, in.Prefix, in.Limit), nil
}

func (f *fakeStore) match(table, index, equalsAttr, equalsValue, prefixAttr, prefix string, limit int32) []Item {
	if limit <= 0 {
		limit = defaultResultLimit
	}

	rows := f.rows(table)
	keys := make([]string, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	items := make([]Item, 0)
	for _, key := range keys {
		item := rows[key]
		if index != "" {
			if _, ok := strAttr(item, f.indexKeys[index]); !ok {
				continue
			}
		}
		if equalsAttr != "" {
			value, ok := strAttr(item, equalsAttr)
			if !ok || value != equalsValue {
				continue
			}
		}
		if prefixAttr != "" {
			value, ok := strAttr(item, prefixAttr)
			if !ok || !strings.HasPrefix(value, prefix) {
				continue
			}
		}
		items = append(items, copyItem(item))
		if int32(len(items)) >= limit {
			break
		}
	}
	return items
}

func (f *fakeStore) BatchWrite(ctx context.Context, in BatchWriteInput) error {
	if f.batchErr != nil {
		return f.batchErr
	}
	rows := f.rows(in.Table)
	for _, item := range in.Puts {
		rows[f.rowKey(in.Table, item)] = copyItem(item)
	}
	for _, key := range in.Deletes {
		delete(rows, f.rowKey(in.Table, key))
	}
	return nil
}
