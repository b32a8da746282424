package types

import "fmt"

// Issue is one finding from validating a mapping set.
type Issue struct {
	IssueType IssueType
	Severity  IssueSeverity
	MappingID string
	Target    FieldRef
	Message   string
}

func (issue Issue) String() string {
	if issue.MappingID == "" {
		return fmt.Sprintf("[%s] %s", issue.IssueType, issue.Message)
	}
	return fmt.Sprintf("%s: [%s] %s", issue.MappingID, issue.IssueType, issue.Message)
}

type IssueType string

const (
	IssueTypeUnknownTransform     IssueType = "UnknownTransform"
	IssueTypeDuplicateMappingID   IssueType = "DuplicateMappingID"
	IssueTypeInertMapping         IssueType = "InertMapping"
	IssueTypeMissingCode          IssueType = "MissingCode"
	IssueTypeMissingSourceFields  IssueType = "MissingSourceFields"
	IssueTypeUnusedParams         IssueType = "UnusedParams"
	IssueTypeDuplicateTarget      IssueType = "DuplicateTarget"
	IssueTypeTargetPrefixConflict IssueType = "TargetPrefixConflict"
)

func (issueType IssueType) IsValidIssueType() bool {
	switch issueType {
	case IssueTypeUnknownTransform,
		IssueTypeDuplicateMappingID,
		IssueTypeInertMapping,
		IssueTypeMissingCode,
		IssueTypeMissingSourceFields,
		IssueTypeUnusedParams,
		IssueTypeDuplicateTarget,
		IssueTypeTargetPrefixConflict:
		return true
	default:
		return false
	}
}

type IssueSeverity string

const (
	IssueSeverityError   IssueSeverity = "error"
	IssueSeverityWarning IssueSeverity = "warning"
	IssueSeverityInfo    IssueSeverity = "info"
)
