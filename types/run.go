package types

import "time"

type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusSkipped RunStatus = "skipped"
	RunStatusError   RunStatus = "error"
)

func (status RunStatus) IsValidRunStatus() bool {
	switch status {
	case RunStatusSuccess,
		RunStatusSkipped,
		RunStatusError:
		return true
	default:
		return false
	}
}

// ApplyResult is the outcome of one successful or skipped engine run.
// Output is nil when Skipped is true.
type ApplyResult struct {
	Output             map[string]any
	Skipped            bool
	ConditionResult    *bool
	Applied            int
	InertMappingIDs    []string
	TransformationTime time.Duration
}

// RunRecord is what the run-history collaborator stores per invocation.
type RunRecord struct {
	RunID              string
	IntegrationID      string
	IntegrationName    string
	Status             RunStatus
	ErrorMessage       string
	FailedMappingID    string
	FailedTarget       FieldRef
	Condition          string
	ConditionResult    *bool
	IncomingPayload    any
	TransformedPayload map[string]any
	OutgoingRequest    map[string]any
	OutgoingResponse   map[string]any
	TransformationTime time.Duration
	DeliveryTime       time.Duration
	CreatedAt          time.Time
}
