// Package transform is the fixed library of built-in value transforms.
//
// The set of transforms is closed: every types.TransformID has an entry in
// the label table and a case in Apply. The custom transform is listed so it
// can be offered to operators, but it is evaluated by the expression package
// and Apply rejects it.
package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/jsonmapper/integration-mapper/types"
)

const (
	defaultDelimiter = ","
	isoLayout        = "2006-01-02T15:04:05.000Z"
)

type Transform struct {
	ID         types.TransformID
	Label      string
	Parameters []string
}

var library = map[types.TransformID]Transform{
	types.TransformNone:       {ID: types.TransformNone, Label: "No transformation"},
	types.TransformUppercase:  {ID: types.TransformUppercase, Label: "Uppercase"},
	types.TransformLowercase:  {ID: types.TransformLowercase, Label: "Lowercase"},
	types.TransformTrim:       {ID: types.TransformTrim, Label: "Trim whitespace"},
	types.TransformNumber:     {ID: types.TransformNumber, Label: "To number"},
	types.TransformString:     {ID: types.TransformString, Label: "To string"},
	types.TransformBoolean:    {ID: types.TransformBoolean, Label: "To boolean"},
	types.TransformDate:       {ID: types.TransformDate, Label: "To date string"},
	types.TransformConcat:     {ID: types.TransformConcat, Label: "Concatenate", Parameters: []string{"suffix"}},
	types.TransformReplace:    {ID: types.TransformReplace, Label: "Replace text", Parameters: []string{"search", "replacement"}},
	types.TransformSplit:      {ID: types.TransformSplit, Label: "Split by delimiter", Parameters: []string{"delimiter"}},
	types.TransformJoin:       {ID: types.TransformJoin, Label: "Join array", Parameters: []string{"delimiter"}},
	types.TransformJavascript: {ID: types.TransformJavascript, Label: "Custom expression"},
}

// Lookup returns the library entry for id.
func Lookup(id types.TransformID) (Transform, bool) {
	transform, ok := library[id]
	return transform, ok
}

// All returns every transform in display order.
func All() []Transform {
	transforms := make([]Transform, 0, len(types.AllTransformIDs))
	for _, id := range types.AllTransformIDs {
		transforms = append(transforms, library[id])
	}
	return transforms
}

// Apply runs the built-in transform id on value. It has no side effects.
// A nil value stays nil for every coercing transform.
func Apply(id types.TransformID, value any, params ...string) (any, error) {
	spec := types.TransformSpec{ID: id, Params: params}

	switch id {
	case types.TransformNone, "":
		return value, nil
	case types.TransformJoin:
		return join(value, spec), nil
	case types.TransformJavascript:
		return nil, &types.TransformError{Transform: id, Err: errors.New("custom code is evaluated by the expression evaluator")}
	}

	if !id.IsValidTransformID() {
		return nil, &types.TransformError{Transform: id, Err: fmt.Errorf("unknown transform %q", id)}
	}
	if value == nil {
		return nil, nil
	}

	switch id {
	case types.TransformUppercase:
		return cases.Upper(language.Und).String(toString(value)), nil
	case types.TransformLowercase:
		return cases.Lower(language.Und).String(toString(value)), nil
	case types.TransformTrim:
		return strings.TrimSpace(toString(value)), nil
	case types.TransformNumber:
		return toNumber(value), nil
	case types.TransformString:
		return toString(value), nil
	case types.TransformBoolean:
		return truthy(value), nil
	case types.TransformDate:
		return toDate(value)
	case types.TransformConcat:
		return toString(value) + spec.Param(0), nil
	case types.TransformReplace:
		return strings.Replace(toString(value), spec.Param(0), spec.Param(1), 1), nil
	case types.TransformSplit:
		return split(value, spec), nil
	default:
		return nil, &types.TransformError{Transform: id, Err: fmt.Errorf("transform %q has no implementation", id)}
	}
}

func split(value any, spec types.TransformSpec) []any {
	delimiter := spec.Param(0)
	if delimiter == "" {
		delimiter = defaultDelimiter
	}

	parts := strings.Split(toString(value), delimiter)
	result := make([]any, len(parts))
	for i, part := range parts {
		result[i] = part
	}
	return result
}

func join(value any, spec types.TransformSpec) any {
	elements, ok := value.([]any)
	if !ok {
		return value
	}

	delimiter := spec.Param(0)
	if delimiter == "" {
		delimiter = defaultDelimiter
	}

	parts := make([]string, len(elements))
	for i, element := range elements {
		if element == nil {
			continue
		}
		parts[i] = toString(element)
	}
	return strings.Join(parts, delimiter)
}

func toDate(value any) (any, error) {
	var parsed time.Time

	switch v := value.(type) {
	case float64:
		if v != v {
			return nil, &types.TransformError{Transform: types.TransformDate, Err: errors.New("invalid date: NaN")}
		}
		parsed = time.UnixMilli(int64(v))
	case string:
		t, err := cast.ToTimeInDefaultLocationE(strings.TrimSpace(v), time.UTC)
		if err != nil {
			return nil, &types.TransformError{Transform: types.TransformDate, Err: errors.Wrapf(err, "invalid date %q", v)}
		}
		parsed = t
	default:
		return nil, &types.TransformError{Transform: types.TransformDate, Err: fmt.Errorf("invalid date %v", value)}
	}

	return parsed.UTC().Format(isoLayout), nil
}
