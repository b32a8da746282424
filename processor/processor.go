package processor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/jsonmapper/integration-mapper/delivery"
	"github.com/jsonmapper/integration-mapper/engine"
	"github.com/jsonmapper/integration-mapper/history"
	"github.com/jsonmapper/integration-mapper/integration"
	"github.com/jsonmapper/integration-mapper/store"
	"github.com/jsonmapper/integration-mapper/types"
)

const (
	skippedReason    = "Condition evaluated to false"
	skippedMessage   = "Condition not met - execution skipped"
	failedBeforeSend = "Failed before request"
)

type IProcessorClient interface {
	Process(ctx context.Context, active *integration.ActiveIntegration, payload any) (*types.RunRecord, error)
	ProcessStored(ctx context.Context, id string, payload any) (*types.RunRecord, error)
}

// ProcessorClient executes an integration against an incoming payload:
// condition, mappings, delivery, then a run record in the history.
type ProcessorClient struct {
	Engine   engine.IEngineClient
	Delivery delivery.IDeliveryClient
	History  history.IRunHistoryClient
	Store    store.IIntegrationStore
	Logger   *logrus.Logger
}

func NewProcessorClient(engineClient engine.IEngineClient, deliveryClient delivery.IDeliveryClient, historyClient history.IRunHistoryClient, integrationStore store.IIntegrationStore, logger *logrus.Logger) *ProcessorClient {
	return &ProcessorClient{
		Engine:   engineClient,
		Delivery: deliveryClient,
		History:  historyClient,
		Store:    integrationStore,
		Logger:   logger,
	}
}

// ProcessStored loads integration id from the store and processes payload
// with it.
func (processorClient *ProcessorClient) ProcessStored(ctx context.Context, id string, payload any) (*types.RunRecord, error) {
	record, err := processorClient.Store.Get(id)
	if err != nil {
		return nil, err
	}
	if !record.IsActive {
		processorClient.Logger.Warnf("Integration %s is not the active integration", id)
	}

	definition, err := integration.Decode(record.ConfigJSON)
	if err != nil {
		return nil, errors.Wrapf(err, "integration %s", id)
	}
	if definition.Name == "" {
		definition.Name = record.Name
	}

	return processorClient.Process(ctx, &integration.ActiveIntegration{ID: record.ID, WebhookURL: record.WebhookURL, Definition: definition}, payload)
}

// Process runs one execution and records it. The returned record is never
// nil unless the history could not be written; the error reports a failed
// run or a failed history write.
func (processorClient *ProcessorClient) Process(ctx context.Context, active *integration.ActiveIntegration, payload any) (*types.RunRecord, error) {
	definition := active.Definition
	record := &types.RunRecord{
		RunID:           uuid.New().String(),
		IntegrationID:   active.ID,
		IntegrationName: definition.Name,
		Condition:       definition.Condition,
		IncomingPayload: payload,
		CreatedAt:       time.Now().UTC(),
	}
	processorClient.Logger.Infof("Processing run %s for integration %q", record.RunID, definition.Name)

	result, err := processorClient.Engine.Apply(ctx, engine.PlanFor(definition), payload)
	if err != nil {
		processorClient.fail(record, err)
		return processorClient.record(record, err)
	}
	record.ConditionResult = result.ConditionResult
	record.TransformationTime = result.TransformationTime

	if result.Skipped {
		record.Status = types.RunStatusSkipped
		record.ErrorMessage = skippedMessage
		record.TransformedPayload = map[string]any{}
		record.OutgoingRequest = map[string]any{
			"skipped":          true,
			"reason":           skippedReason,
			"condition":        definition.Condition,
			"condition_result": false,
		}
		record.OutgoingResponse = map[string]any{"skipped": true}
		processorClient.Logger.Infof("Run %s skipped: %s", record.RunID, skippedReason)
		return processorClient.record(record, nil)
	}
	record.TransformedPayload = result.Output

	delivered, err := processorClient.Delivery.Deliver(ctx, definition.Target, result.Output)
	if err != nil {
		processorClient.fail(record, err)
		if delivered != nil {
			record.OutgoingRequest = processorClient.withCondition(delivered.Request, record)
			record.DeliveryTime = delivered.Duration
		}
		return processorClient.record(record, err)
	}

	record.OutgoingRequest = processorClient.withCondition(delivered.Request, record)
	record.OutgoingResponse = delivered.Response
	record.DeliveryTime = delivered.Duration
	if delivered.OK {
		record.Status = types.RunStatusSuccess
	} else {
		record.Status = types.RunStatusError
		record.ErrorMessage = delivered.Message
	}

	processorClient.Logger.Infof("Run %s finished with status %s", record.RunID, record.Status)
	return processorClient.record(record, nil)
}

func (processorClient *ProcessorClient) fail(record *types.RunRecord, err error) {
	record.Status = types.RunStatusError
	record.ErrorMessage = err.Error()
	record.TransformedPayload = map[string]any{}
	record.OutgoingRequest = map[string]any{"error": failedBeforeSend}
	record.OutgoingResponse = map[string]any{"error": err.Error()}

	var engineErr *types.EngineError
	if errors.As(err, &engineErr) {
		record.FailedMappingID = engineErr.MappingID
		record.FailedTarget = engineErr.Target
	}
	processorClient.Logger.Warnf("Run %s failed: %v", record.RunID, err)
}

func (processorClient *ProcessorClient) withCondition(request map[string]any, record *types.RunRecord) map[string]any {
	summary := make(map[string]any, len(request)+2)
	for key, value := range request {
		summary[key] = value
	}
	if record.Condition != "" {
		summary["condition"] = record.Condition
		summary["condition_result"] = record.ConditionResult != nil && *record.ConditionResult
	} else {
		summary["condition"] = nil
		summary["condition_result"] = nil
	}
	return summary
}

func (processorClient *ProcessorClient) record(record *types.RunRecord, runErr error) (*types.RunRecord, error) {
	if err := processorClient.History.Record(record); err != nil {
		return nil, errors.Wrapf(err, "recording run %s", record.RunID)
	}
	return record, runErr
}
