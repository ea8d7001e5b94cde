package bookings

import (
	"context"
	"errors"
	"strings"
	"sync"

	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a small in-memory DynamoDB supporting the calls DynamoStore
// makes. Items are stored per table: table -> pkValue -> item.
// Conditions understood: attribute_not_exists(pk) and attribute_exists(pk).
type mockDynamo struct {
	mu     sync.Mutex
	keys   map[string]string
	tables map[string]map[string]map[string]types.AttributeValue

	transactCalls int
}

func newMockDynamo(keys map[string]string) *mockDynamo {
	return &mockDynamo{
		keys:   keys,
		tables: map[string]map[string]map[string]types.AttributeValue{},
	}
}

func (m *mockDynamo) ensureTable(tbl string) {
	if _, ok := m.tables[tbl]; !ok {
		m.tables[tbl] = map[string]map[string]types.AttributeValue{}
	}
}

func (m *mockDynamo) pk(table string, item map[string]types.AttributeValue) (string, error) {
	attr, ok := m.keys[table]
	if !ok {
		return "", errors.New("unknown table " + table)
	}
	v, ok := item[attr].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("missing key attribute " + attr)
	}
	return v.Value, nil
}

// conditionHolds must be called with mu held.
func (m *mockDynamo) conditionHolds(table, pk string, cond *string) bool {
	if cond == nil {
		return true
	}
	_, exists := m.tables[table][pk]
	switch {
	case strings.HasPrefix(*cond, "attribute_not_exists("):
		return !exists
	case strings.HasPrefix(*cond, "attribute_exists("):
		return exists
	}
	return true
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	pk, err := m.pk(table, params.Item)
	if err != nil {
		return nil, err
	}
	if !m.conditionHolds(table, pk, params.ConditionExpression) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	m.tables[table][pk] = params.Item
	return &dyn.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	pk, err := m.pk(table, params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := m.tables[table][pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: item}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	pk, err := m.pk(table, params.Key)
	if err != nil {
		return nil, err
	}
	if !m.conditionHolds(table, pk, params.ConditionExpression) {
		return nil, &types.ConditionalCheckFailedException{}
	}
	delete(m.tables[table], pk)
	return &dyn.DeleteItemOutput{}, nil
}

// Query only supports equality on payment_id through ":p".
func (m *mockDynamo) Query(ctx context.Context, params *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	want := params.ExpressionAttributeValues[":p"].(*types.AttributeValueMemberS).Value
	var items []map[string]types.AttributeValue
	for _, item := range m.tables[table] {
		if v, ok := item["payment_id"].(*types.AttributeValueMemberS); ok && v.Value == want {
			items = append(items, item)
		}
	}
	return &dyn.QueryOutput{Items: items, Count: int32(len(items))}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	table := *params.TableName
	m.ensureTable(table)
	items := make([]map[string]types.AttributeValue, 0, len(m.tables[table]))
	for _, item := range m.tables[table] {
		items = append(items, item)
	}
	return &dyn.ScanOutput{Items: items, Count: int32(len(items))}, nil
}

func (m *mockDynamo) TransactWriteItems(ctx context.Context, params *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transactCalls++

	reasons := make([]types.CancellationReason, len(params.TransactItems))
	failed := false
	for i, it := range params.TransactItems {
		code := "None"
		if p := it.Put; p != nil {
			m.ensureTable(*p.TableName)
			pk, err := m.pk(*p.TableName, p.Item)
			if err != nil {
				return nil, err
			}
			if !m.conditionHolds(*p.TableName, pk, p.ConditionExpression) {
				code = "ConditionalCheckFailed"
				failed = true
			}
		}
		reasons[i] = types.CancellationReason{Code: awsString(code)}
	}
	if failed {
		return nil, &types.TransactionCanceledException{CancellationReasons: reasons}
	}

	for _, it := range params.TransactItems {
		if p := it.Put; p != nil {
			pk, _ := m.pk(*p.TableName, p.Item)
			m.tables[*p.TableName][pk] = p.Item
		}
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func (m *mockDynamo) count(table string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tables[table])
}
