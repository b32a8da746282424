package types

import "fmt"

type DocumentRole string

const (
	DocumentRoleSource DocumentRole = "source"
	DocumentRoleTarget DocumentRole = "target"
)

// ParseError reports a malformed sample document.
type ParseError struct {
	Role DocumentRole
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s JSON: %v", e.Role, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransformError reports a built-in transform that could not coerce its input.
type TransformError struct {
	Transform TransformID
	Target    FieldRef
	Err       error
}

func (e *TransformError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("transform %s failed: %v", e.Transform, e.Err)
	}
	return fmt.Sprintf("transform %s failed for %s: %v", e.Transform, e.Target, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

type ExpressionFailure string

const (
	ExpressionFailureSyntax    ExpressionFailure = "syntax"
	ExpressionFailureRuntime   ExpressionFailure = "runtime"
	ExpressionFailureTimeout   ExpressionFailure = "timeout"
	ExpressionFailureLimit     ExpressionFailure = "limit"
	ExpressionFailureCancelled ExpressionFailure = "cancelled"
	ExpressionFailurePanic     ExpressionFailure = "panic"
)

// ConditionSubject identifies the gating condition in an ExpressionError.
const ConditionSubject = "condition"

// ExpressionError reports operator code that failed, timed out or exceeded
// a resource ceiling. Subject is ConditionSubject or the mapping target.
type ExpressionError struct {
	Subject string
	Reason  ExpressionFailure
	Err     error
}

func (e *ExpressionError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("expression %s error: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("expression %s error in %s: %v", e.Reason, e.Subject, e.Err)
}

func (e *ExpressionError) Unwrap() error { return e.Err }

// EngineError is the single failure of an engine run. It wraps the first
// TransformError or ExpressionError encountered. No output accompanies it.
type EngineError struct {
	MappingID string
	Target    FieldRef
	Err       error
}

func (e *EngineError) Error() string {
	if e.Target == "" {
		return fmt.Sprintf("mapping run failed: %v", e.Err)
	}
	return fmt.Sprintf("mapping run failed at %s: %v", e.Target, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

// ConfigError reports a structurally invalid integration definition.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid integration definition: %v", e.Err)
	}
	return fmt.Sprintf("invalid integration definition: %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }
