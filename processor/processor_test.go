package processor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsonmapper/integration-mapper/delivery"
	"github.com/jsonmapper/integration-mapper/engine"
	"github.com/jsonmapper/integration-mapper/expression"
	"github.com/jsonmapper/integration-mapper/history"
	"github.com/jsonmapper/integration-mapper/integration"
	"github.com/jsonmapper/integration-mapper/store"
	"github.com/jsonmapper/integration-mapper/types"
)

type mockDeliveryClient struct {
	Result  *delivery.Result
	Err     error
	Calls   int
	Outputs []map[string]any
}

func (m *mockDeliveryClient) Deliver(ctx context.Context, target types.Target, output map[string]any) (*delivery.Result, error) {
	m.Calls++
	m.Outputs = append(m.Outputs, output)
	return m.Result, m.Err
}

type mockRunHistoryClient struct {
	Records []*types.RunRecord
	Err     error
}

func (m *mockRunHistoryClient) Record(record *types.RunRecord) error {
	if m.Err != nil {
		return m.Err
	}
	m.Records = append(m.Records, record)
	return nil
}

func (m *mockRunHistoryClient) List(integrationID string) ([]*types.RunRecord, error) {
	return m.Records, nil
}

func (m *mockRunHistoryClient) Get(runID string) (*history.RunDetail, error) {
	return nil, errors.New("not implemented")
}

type mockIntegrationStore struct {
	Records map[string]*store.Record
}

func (m *mockIntegrationStore) Create(name string, config json.RawMessage) (*store.Record, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIntegrationStore) Update(id string, name string, config json.RawMessage) (*store.Record, error) {
	return nil, errors.New("not implemented")
}

func (m *mockIntegrationStore) Get(id string) (*store.Record, error) {
	record, ok := m.Records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return record, nil
}

func (m *mockIntegrationStore) List() ([]*store.Record, error) {
	return nil, nil
}

func newProcessor(deliveryClient *mockDeliveryClient, historyClient *mockRunHistoryClient, integrationStore store.IIntegrationStore) *ProcessorClient {
	logger := logrus.New()
	engineClient := engine.NewEngineClient(expression.NewHclEvaluator(time.Second, 0, 0, logger), logger)
	return NewProcessorClient(engineClient, deliveryClient, historyClient, integrationStore, logger)
}

func ordersIntegration(condition string) *integration.ActiveIntegration {
	return &integration.ActiveIntegration{
		ID: "int-1",
		Definition: &types.IntegrationDefinition{
			Name:      "Orders",
			Condition: condition,
			Target:    types.Target{Type: types.TargetTypeHTTP, Method: "POST", URL: "http://example.com/orders"},
			Mappings: []types.Mapping{
				{ID: "m1", Source: "order.id", Target: "id", Transform: types.TransformSpec{ID: types.TransformUppercase}},
				{ID: "m2", Source: "order.total", Target: "amount.value", Transform: types.TransformSpec{ID: types.TransformNumber}},
			},
		},
	}
}

func orderPayload() any {
	return map[string]any{"status": "paid", "order": map[string]any{"id": "a-1", "total": "12.50"}}
}

func TestProcess_Success(t *testing.T) {
	deliveryClient := &mockDeliveryClient{Result: &delivery.Result{
		OK:         true,
		StatusCode: 200,
		Request:    map[string]any{"url": "http://example.com/orders", "method": "POST"},
		Response:   map[string]any{"status_code": 200},
		Duration:   40 * time.Millisecond,
	}}
	historyClient := &mockRunHistoryClient{}
	processorClient := newProcessor(deliveryClient, historyClient, nil)

	record, err := processorClient.Process(context.Background(), ordersIntegration(`fields["status"] == "paid"`), orderPayload())
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusSuccess, record.Status)
	assert.Equal(t, map[string]any{"id": "A-1", "amount": map[string]any{"value": 12.5}}, record.TransformedPayload)
	assert.Equal(t, deliveryClient.Outputs[0], record.TransformedPayload)
	assert.Equal(t, "int-1", record.IntegrationID)
	assert.Equal(t, "Orders", record.IntegrationName)
	assert.Equal(t, true, record.OutgoingRequest["condition_result"])
	assert.Equal(t, `fields["status"] == "paid"`, record.OutgoingRequest["condition"])
	assert.Equal(t, 40*time.Millisecond, record.DeliveryTime)
	assert.NotEmpty(t, record.RunID)
	require.Len(t, historyClient.Records, 1)
	assert.Same(t, record, historyClient.Records[0])
}

func TestProcess_ConditionFalseIsSkipped(t *testing.T) {
	deliveryClient := &mockDeliveryClient{}
	historyClient := &mockRunHistoryClient{}
	processorClient := newProcessor(deliveryClient, historyClient, nil)

	record, err := processorClient.Process(context.Background(), ordersIntegration(`fields["status"] == "refunded"`), orderPayload())
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusSkipped, record.Status)
	assert.Equal(t, "Condition not met - execution skipped", record.ErrorMessage)
	assert.Equal(t, map[string]any{}, record.TransformedPayload)
	assert.Equal(t, true, record.OutgoingRequest["skipped"])
	require.NotNil(t, record.ConditionResult)
	assert.False(t, *record.ConditionResult)
	assert.Equal(t, 0, deliveryClient.Calls)
	assert.Len(t, historyClient.Records, 1)
}

func TestProcess_MappingFailureNamesTarget(t *testing.T) {
	deliveryClient := &mockDeliveryClient{}
	historyClient := &mockRunHistoryClient{}
	processorClient := newProcessor(deliveryClient, historyClient, nil)

	active := ordersIntegration("")
	active.Definition.Mappings = append(active.Definition.Mappings, types.Mapping{
		ID: "m3", Source: "order.id", Target: "placedAt", Transform: types.TransformSpec{ID: types.TransformDate},
	})

	record, err := processorClient.Process(context.Background(), active, orderPayload())

	var engineErr *types.EngineError
	require.True(t, errors.As(err, &engineErr))
	require.NotNil(t, record)
	assert.Equal(t, types.RunStatusError, record.Status)
	assert.Equal(t, "m3", record.FailedMappingID)
	assert.Equal(t, types.FieldRef("placedAt"), record.FailedTarget)
	assert.Equal(t, "Failed before request", record.OutgoingRequest["error"])
	assert.Equal(t, 0, deliveryClient.Calls)
	assert.Len(t, historyClient.Records, 1)
}

func TestProcess_HTTPErrorStatus(t *testing.T) {
	deliveryClient := &mockDeliveryClient{Result: &delivery.Result{OK: false, StatusCode: 500, Message: "HTTP 500", Request: map[string]any{}}}
	processorClient := newProcessor(deliveryClient, &mockRunHistoryClient{}, nil)

	record, err := processorClient.Process(context.Background(), ordersIntegration(""), orderPayload())
	require.NoError(t, err)

	assert.Equal(t, types.RunStatusError, record.Status)
	assert.Equal(t, "HTTP 500", record.ErrorMessage)
	assert.Contains(t, record.OutgoingRequest, "condition")
	assert.Nil(t, record.OutgoingRequest["condition"])
}

func TestProcess_DeliveryFailure(t *testing.T) {
	deliveryClient := &mockDeliveryClient{
		Result: &delivery.Result{Request: map[string]any{"url": "http://example.com/orders"}},
		Err:    errors.New("connection refused"),
	}
	processorClient := newProcessor(deliveryClient, &mockRunHistoryClient{}, nil)

	record, err := processorClient.Process(context.Background(), ordersIntegration(""), orderPayload())

	assert.ErrorContains(t, err, "connection refused")
	require.NotNil(t, record)
	assert.Equal(t, types.RunStatusError, record.Status)
	assert.Equal(t, "http://example.com/orders", record.OutgoingRequest["url"])
	assert.Empty(t, record.FailedMappingID)
}

func TestProcess_HistoryFailure(t *testing.T) {
	deliveryClient := &mockDeliveryClient{Result: &delivery.Result{OK: true}}
	processorClient := newProcessor(deliveryClient, &mockRunHistoryClient{Err: errors.New("disk full")}, nil)

	record, err := processorClient.Process(context.Background(), ordersIntegration(""), orderPayload())

	assert.Nil(t, record)
	assert.ErrorContains(t, err, "disk full")
}

func TestProcessStored(t *testing.T) {
	config := json.RawMessage(`{
		"name": "Orders",
		"target": {"type": "http", "method": "POST", "url": "http://example.com/orders"},
		"mappings": [{"id": "m1", "source": "order.id", "target": "id", "transform": "uppercase"}]
	}`)
	integrationStore := &mockIntegrationStore{Records: map[string]*store.Record{
		"int-7": {ID: "int-7", Name: "Orders", ConfigJSON: config, IsActive: true},
	}}
	deliveryClient := &mockDeliveryClient{Result: &delivery.Result{OK: true}}
	processorClient := newProcessor(deliveryClient, &mockRunHistoryClient{}, integrationStore)

	record, err := processorClient.ProcessStored(context.Background(), "int-7", orderPayload())
	require.NoError(t, err)
	assert.Equal(t, "int-7", record.IntegrationID)
	assert.Equal(t, map[string]any{"id": "A-1"}, record.TransformedPayload)

	_, err = processorClient.ProcessStored(context.Background(), "missing", orderPayload())
	assert.ErrorIs(t, err, store.ErrNotFound)
}
