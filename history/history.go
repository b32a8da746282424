package history

import (
	csvwriter "encoding/csv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	jsonclient "github.com/jsonmapper/integration-mapper/json"
	"github.com/jsonmapper/integration-mapper/types"
)

const (
	runsFileName  = "runs.csv"
	runsFolder    = "runs"
	timeLayout    = time.RFC3339Nano
	conditionTrue = "true"
)

var header = []string{"Run ID", "Integration ID", "Integration Name", "Status", "Error Message", "Failed Mapping ID", "Failed Target", "Condition", "Condition Result", "Transformation Time (ms)", "Delivery Time (ms)", "Created At"}

type IRunHistoryClient interface {
	Record(record *types.RunRecord) error
	List(integrationID string) ([]*types.RunRecord, error)
	Get(runID string) (*RunDetail, error)
}

// RunHistoryClient appends one summary row per run to runs.csv and keeps
// the payloads of each run in runs/<run id>.json.
type RunHistoryClient struct {
	WorkingFolderPath string
	JsonClient        jsonclient.IJsonClient
	Logger            *logrus.Logger

	mutex sync.Mutex
}

// RunDetail is the persisted form of a run record.
type RunDetail struct {
	RunID                string          `json:"run_id"`
	IntegrationID        string          `json:"integration_id"`
	IntegrationName      string          `json:"integration_name"`
	Status               types.RunStatus `json:"status"`
	ErrorMessage         string          `json:"error_message,omitempty"`
	FailedMappingID      string          `json:"failed_mapping_id,omitempty"`
	FailedTarget         types.FieldRef  `json:"failed_target,omitempty"`
	Condition            string          `json:"condition,omitempty"`
	ConditionResult      *bool           `json:"condition_result"`
	IncomingPayload      any             `json:"incoming_payload"`
	TransformedPayload   map[string]any  `json:"transformed_payload"`
	OutgoingRequest      map[string]any  `json:"outgoing_request"`
	OutgoingResponse     map[string]any  `json:"outgoing_response"`
	TransformationTimeMs int64           `json:"transformation_time_ms"`
	DeliveryTimeMs       int64           `json:"delivery_time_ms"`
	CreatedAt            time.Time       `json:"created_at"`
}

func NewRunHistoryClient(workingFolderPath string, logger *logrus.Logger) *RunHistoryClient {
	return &RunHistoryClient{
		WorkingFolderPath: workingFolderPath,
		JsonClient:        jsonclient.NewJsonClient(filepath.Join(workingFolderPath, runsFolder), logger),
		Logger:            logger,
	}
}

func (historyClient *RunHistoryClient) Record(record *types.RunRecord) error {
	if record.RunID == "" {
		return errors.New("run record has no id")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	historyClient.mutex.Lock()
	defer historyClient.mutex.Unlock()

	if err := historyClient.JsonClient.Export(toDetail(record), record.RunID+".json"); err != nil {
		return errors.Wrapf(err, "writing run %s", record.RunID)
	}
	if err := historyClient.appendRow(toRow(record)); err != nil {
		return err
	}

	historyClient.Logger.Debugf("Recorded run %s with status %s", record.RunID, record.Status)
	return nil
}

func (historyClient *RunHistoryClient) appendRow(row []string) error {
	csvFilePath := filepath.Join(historyClient.WorkingFolderPath, runsFileName)
	if err := os.MkdirAll(historyClient.WorkingFolderPath, 0755); err != nil {
		return errors.Wrap(err, "creating history folder")
	}

	_, statErr := os.Stat(csvFilePath)
	csvFile, err := os.OpenFile(csvFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrap(err, "opening run history")
	}
	defer csvFile.Close()

	csvData := [][]string{}
	if os.IsNotExist(statErr) {
		csvData = append(csvData, header)
	}
	csvData = append(csvData, row)

	csvWriter := csvwriter.NewWriter(csvFile)
	if err := csvWriter.WriteAll(csvData); err != nil {
		return errors.Wrap(err, "writing run history")
	}
	return nil
}

// List returns the summary of every recorded run, newest first. An empty
// integrationID lists the runs of all integrations.
func (historyClient *RunHistoryClient) List(integrationID string) ([]*types.RunRecord, error) {
	historyClient.mutex.Lock()
	defer historyClient.mutex.Unlock()

	csvFile, err := os.Open(filepath.Join(historyClient.WorkingFolderPath, runsFileName))
	if os.IsNotExist(err) {
		return []*types.RunRecord{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "opening run history")
	}
	defer csvFile.Close()

	rows, err := csvwriter.NewReader(csvFile).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "reading run history")
	}

	records := []*types.RunRecord{}
	for i, row := range rows {
		if i == 0 {
			continue
		}
		record, err := fromRow(row)
		if err != nil {
			return nil, errors.Wrapf(err, "run history line %d", i+1)
		}
		if integrationID == "" || record.IntegrationID == integrationID {
			records = append(records, record)
		}
	}

	sort.Sort(ByCreatedAtDescending(records))
	return records, nil
}

func (historyClient *RunHistoryClient) Get(runID string) (*RunDetail, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) {
		return nil, errors.Errorf("invalid run id %q", runID)
	}
	detail := &RunDetail{}
	if err := historyClient.JsonClient.Import(runID+".json", detail); err != nil {
		return nil, errors.Wrapf(err, "reading run %s", runID)
	}
	return detail, nil
}

func toDetail(record *types.RunRecord) *RunDetail {
	return &RunDetail{
		RunID:                record.RunID,
		IntegrationID:        record.IntegrationID,
		IntegrationName:      record.IntegrationName,
		Status:               record.Status,
		ErrorMessage:         record.ErrorMessage,
		FailedMappingID:      record.FailedMappingID,
		FailedTarget:         record.FailedTarget,
		Condition:            record.Condition,
		ConditionResult:      record.ConditionResult,
		IncomingPayload:      record.IncomingPayload,
		TransformedPayload:   record.TransformedPayload,
		OutgoingRequest:      record.OutgoingRequest,
		OutgoingResponse:     record.OutgoingResponse,
		TransformationTimeMs: record.TransformationTime.Milliseconds(),
		DeliveryTimeMs:       record.DeliveryTime.Milliseconds(),
		CreatedAt:            record.CreatedAt,
	}
}

func toRow(record *types.RunRecord) []string {
	conditionResult := ""
	if record.ConditionResult != nil {
		conditionResult = strconv.FormatBool(*record.ConditionResult)
	}
	return []string{
		record.RunID,
		record.IntegrationID,
		record.IntegrationName,
		string(record.Status),
		record.ErrorMessage,
		record.FailedMappingID,
		string(record.FailedTarget),
		record.Condition,
		conditionResult,
		strconv.FormatInt(record.TransformationTime.Milliseconds(), 10),
		strconv.FormatInt(record.DeliveryTime.Milliseconds(), 10),
		record.CreatedAt.Format(timeLayout),
	}
}

func fromRow(row []string) (*types.RunRecord, error) {
	if len(row) != len(header) {
		return nil, errors.Errorf("expected %d columns, got %d", len(header), len(row))
	}

	transformationMs, err := strconv.ParseInt(row[9], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "transformation time")
	}
	deliveryMs, err := strconv.ParseInt(row[10], 10, 64)
	if err != nil {
		return nil, errors.Wrap(err, "delivery time")
	}
	createdAt, err := time.Parse(timeLayout, row[11])
	if err != nil {
		return nil, errors.Wrap(err, "created at")
	}

	record := &types.RunRecord{
		RunID:              row[0],
		IntegrationID:      row[1],
		IntegrationName:    row[2],
		Status:             types.RunStatus(row[3]),
		ErrorMessage:       row[4],
		FailedMappingID:    row[5],
		FailedTarget:       types.FieldRef(row[6]),
		Condition:          row[7],
		TransformationTime: time.Duration(transformationMs) * time.Millisecond,
		DeliveryTime:       time.Duration(deliveryMs) * time.Millisecond,
		CreatedAt:          createdAt,
	}
	if row[8] != "" {
		result := row[8] == conditionTrue
		record.ConditionResult = &result
	}
	return record, nil
}

type ByCreatedAtDescending []*types.RunRecord

func (o ByCreatedAtDescending) Len() int      { return len(o) }
func (o ByCreatedAtDescending) Swap(i, j int) { o[i], o[j] = o[j], o[i] }
func (o ByCreatedAtDescending) Less(i, j int) bool {
	if !o[i].CreatedAt.Equal(o[j].CreatedAt) {
		return o[i].CreatedAt.After(o[j].CreatedAt)
	}
	return o[i].RunID < o[j].RunID
}
