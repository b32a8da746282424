package types

type TransformID string

const (
	TransformNone       TransformID = "none"
	TransformUppercase  TransformID = "uppercase"
	TransformLowercase  TransformID = "lowercase"
	TransformTrim       TransformID = "trim"
	TransformNumber     TransformID = "number"
	TransformString     TransformID = "string"
	TransformBoolean    TransformID = "boolean"
	TransformDate       TransformID = "date"
	TransformConcat     TransformID = "concat"
	TransformReplace    TransformID = "replace"
	TransformSplit      TransformID = "split"
	TransformJoin       TransformID = "join"
	TransformJavascript TransformID = "javascript"
)

// AllTransformIDs lists every transform in display order.
var AllTransformIDs = []TransformID{
	TransformNone,
	TransformUppercase,
	TransformLowercase,
	TransformTrim,
	TransformNumber,
	TransformString,
	TransformBoolean,
	TransformDate,
	TransformConcat,
	TransformReplace,
	TransformSplit,
	TransformJoin,
	TransformJavascript,
}

func (id TransformID) IsValidTransformID() bool {
	for _, known := range AllTransformIDs {
		if id == known {
			return true
		}
	}
	return false
}

// IsCustom reports whether the transform runs operator code instead of a built-in.
func (id TransformID) IsCustom() bool {
	return id == TransformJavascript
}

type TransformSpec struct {
	ID     TransformID `json:"id" yaml:"id"`
	Params []string    `json:"params,omitempty" yaml:"params,omitempty"`
}

// Param returns the i-th parameter or "" when absent.
func (spec TransformSpec) Param(i int) string {
	if i < 0 || i >= len(spec.Params) {
		return ""
	}
	return spec.Params[i]
}

// Mapping associates a source location with a target location. For custom
// transforms SourceFields and Code are used instead of Source.
type Mapping struct {
	ID           string        `json:"id" yaml:"id"`
	Source       FieldRef      `json:"source" yaml:"source"`
	SourceFields []FieldRef    `json:"sourceFields" yaml:"sourceFields"`
	Target       FieldRef      `json:"target" yaml:"target"`
	Transform    TransformSpec `json:"transform" yaml:"transform"`
	Code         string        `json:"jsCode" yaml:"jsCode" mapstructure:"jsCode"`
}

// IsInert reports whether the engine skips this mapping without evaluating it.
func (mapping Mapping) IsInert() bool {
	if mapping.Target.IsEmpty() {
		return true
	}
	if mapping.Transform.ID.IsCustom() {
		return len(mapping.SourceFields) == 0 || mapping.Code == ""
	}
	return mapping.Source.IsEmpty()
}
