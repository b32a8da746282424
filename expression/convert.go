package expression

import (
	"math"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/zclconf/go-cty/cty"
)

// toCty binds a decoded JSON value. Arrays become tuples and objects become
// object values so heterogeneous documents keep their shape.
func toCty(value any) (cty.Value, error) {
	switch v := value.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case float64:
		if math.IsNaN(v) {
			return cty.NullVal(cty.Number), nil
		}
		return cty.NumberFloatVal(v), nil
	case []any:
		if len(v) == 0 {
			return cty.EmptyTupleVal, nil
		}
		elements := make([]cty.Value, len(v))
		for i, element := range v {
			converted, err := toCty(element)
			if err != nil {
				return cty.NilVal, err
			}
			elements[i] = converted
		}
		return cty.TupleVal(elements), nil
	case map[string]any:
		if len(v) == 0 {
			return cty.EmptyObjectVal, nil
		}
		attributes := make(map[string]cty.Value, len(v))
		for key, element := range v {
			converted, err := toCty(element)
			if err != nil {
				return cty.NilVal, errors.Wrapf(err, "field %q", key)
			}
			attributes[key] = converted
		}
		return cty.ObjectVal(attributes), nil
	default:
		number, err := cast.ToFloat64E(v)
		if err == nil {
			return toCty(number)
		}
		text, err := cast.ToStringE(v)
		if err != nil {
			return cty.NilVal, errors.Errorf("unsupported value of type %T", v)
		}
		return cty.StringVal(text), nil
	}
}

// toGo converts an expression result to the decoded JSON representation
// used by the engine.
func toGo(value cty.Value) (any, error) {
	if !value.IsKnown() {
		return nil, errors.New("expression result is unknown")
	}
	if value.IsNull() {
		return nil, nil
	}

	valueType := value.Type()
	switch {
	case valueType == cty.String:
		return value.AsString(), nil
	case valueType == cty.Number:
		number, _ := value.AsBigFloat().Float64()
		return number, nil
	case valueType == cty.Bool:
		return value.True(), nil
	case valueType.IsListType(), valueType.IsSetType(), valueType.IsTupleType():
		elements := value.AsValueSlice()
		result := make([]any, 0, len(elements))
		for _, element := range elements {
			converted, err := toGo(element)
			if err != nil {
				return nil, err
			}
			result = append(result, converted)
		}
		return result, nil
	case valueType.IsMapType(), valueType.IsObjectType():
		attributes := value.AsValueMap()
		result := make(map[string]any, len(attributes))
		for key, element := range attributes {
			converted, err := toGo(element)
			if err != nil {
				return nil, err
			}
			result[key] = converted
		}
		return result, nil
	default:
		return nil, errors.Errorf("unsupported result type %s", valueType.FriendlyName())
	}
}
