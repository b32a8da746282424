package mapping

import (
	"errors"
	"fmt"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/jsonmapper/integration-mapper/transform"
	"github.com/jsonmapper/integration-mapper/types"
)

// Diagnostics holds the issues found by Validate, split by severity.
type Diagnostics struct {
	Errors   []types.Issue
	Warnings []types.Issue
	Infos    []types.Issue
}

func (d *Diagnostics) add(issue types.Issue) {
	switch issue.Severity {
	case types.IssueSeverityError:
		d.Errors = append(d.Errors, issue)
	case types.IssueSeverityWarning:
		d.Warnings = append(d.Warnings, issue)
	default:
		d.Infos = append(d.Infos, issue)
	}
}

func (d *Diagnostics) HasErrors() bool {
	return len(d.Errors) > 0
}

// All returns every issue, errors first.
func (d *Diagnostics) All() []types.Issue {
	issues := make([]types.Issue, 0, len(d.Errors)+len(d.Warnings)+len(d.Infos))
	issues = append(issues, d.Errors...)
	issues = append(issues, d.Warnings...)
	return append(issues, d.Infos...)
}

// Error returns the error issues combined into one error, or nil.
func (d *Diagnostics) Error() error {
	if !d.HasErrors() {
		return nil
	}

	parts := make([]string, 0, len(d.Errors))
	for _, issue := range d.Errors {
		parts = append(parts, issue.String())
	}
	return errors.New(strings.Join(parts, "; "))
}

// Validate checks the set for problems the engine would hit or silently
// resolve at run time. It never modifies the set.
func (set *MappingSet) Validate() *Diagnostics {
	diagnostics := &Diagnostics{}
	seenIDs := mapset.NewThreadUnsafeSet[string]()
	targets := mapset.NewThreadUnsafeSet[types.FieldRef]()
	orderedTargets := []types.FieldRef{}
	reportedTargets := mapset.NewThreadUnsafeSet[types.FieldRef]()

	for _, mapping := range set.mappings {
		if !seenIDs.Add(mapping.ID) {
			diagnostics.add(types.Issue{
				IssueType: types.IssueTypeDuplicateMappingID,
				Severity:  types.IssueSeverityError,
				MappingID: mapping.ID,
				Target:    mapping.Target,
				Message:   fmt.Sprintf("mapping id %s is used more than once", mapping.ID),
			})
		}

		transformID := mapping.Transform.ID
		if transformID == "" {
			transformID = types.TransformNone
		}
		entry, known := transform.Lookup(transformID)
		if !known {
			diagnostics.add(types.Issue{
				IssueType: types.IssueTypeUnknownTransform,
				Severity:  types.IssueSeverityError,
				MappingID: mapping.ID,
				Target:    mapping.Target,
				Message:   fmt.Sprintf("unknown transform %q", mapping.Transform.ID),
			})
			continue
		}

		if mapping.IsInert() {
			diagnostics.add(inertIssue(mapping))
			continue
		}

		if !transformID.IsCustom() && len(mapping.Transform.Params) > len(entry.Parameters) {
			diagnostics.add(types.Issue{
				IssueType: types.IssueTypeUnusedParams,
				Severity:  types.IssueSeverityInfo,
				MappingID: mapping.ID,
				Target:    mapping.Target,
				Message:   fmt.Sprintf("transform %s takes %d parameters, %d given", transformID, len(entry.Parameters), len(mapping.Transform.Params)),
			})
		}

		if targets.Contains(mapping.Target) && reportedTargets.Add(mapping.Target) {
			diagnostics.add(types.Issue{
				IssueType: types.IssueTypeDuplicateTarget,
				Severity:  types.IssueSeverityInfo,
				MappingID: mapping.ID,
				Target:    mapping.Target,
				Message:   fmt.Sprintf("target %s is written more than once, the last mapping wins", mapping.Target),
			})
		}

		for _, other := range orderedTargets {
			if mapping.Target.HasPrefix(other) || other.HasPrefix(mapping.Target) {
				diagnostics.add(types.Issue{
					IssueType: types.IssueTypeTargetPrefixConflict,
					Severity:  types.IssueSeverityWarning,
					MappingID: mapping.ID,
					Target:    mapping.Target,
					Message:   fmt.Sprintf("target %s overlaps %s, the later write replaces the earlier value", mapping.Target, other),
				})
			}
		}
		if targets.Add(mapping.Target) {
			orderedTargets = append(orderedTargets, mapping.Target)
		}
	}

	return diagnostics
}

func inertIssue(mapping types.Mapping) types.Issue {
	issue := types.Issue{
		IssueType: types.IssueTypeInertMapping,
		Severity:  types.IssueSeverityWarning,
		MappingID: mapping.ID,
		Target:    mapping.Target,
	}

	switch {
	case mapping.Target.IsEmpty():
		issue.Message = "mapping has no target and is skipped"
	case mapping.Transform.ID.IsCustom() && len(mapping.SourceFields) == 0:
		issue.IssueType = types.IssueTypeMissingSourceFields
		issue.Message = "custom mapping has no source fields and is skipped"
	case mapping.Transform.ID.IsCustom():
		issue.IssueType = types.IssueTypeMissingCode
		issue.Message = "custom mapping has no code and is skipped"
	default:
		issue.Message = "mapping has no source and is skipped"
	}
	return issue
}
