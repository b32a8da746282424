// Package fieldpath converts between nested JSON values and flat lists of
// dotted paths, and reads or writes a single value at a dotted path.
//
// Only plain objects are descended. Arrays are opaque leaves and are never
// expanded into indexed paths. Keys containing a literal "." cannot be
// addressed because the separator is not escaped.
package fieldpath

import (
	"bytes"
	"encoding/json"
	"sort"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"

	"github.com/jsonmapper/integration-mapper/types"
)

// Parse decodes a JSON document. Failures are reported as *types.ParseError
// carrying role.
func Parse(raw []byte, role types.DocumentRole) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &types.ParseError{Role: role, Err: err}
	}
	return doc, nil
}

// Flatten projects a raw JSON document into its leaves, keeping the key order
// of the document text. A root that is not an object has no addressable leaves.
func Flatten(raw []byte) ([]types.FlattenedField, error) {
	if !gjson.ValidBytes(raw) {
		return nil, errors.New("document is not valid JSON")
	}

	root := gjson.ParseBytes(raw)
	fields := []types.FlattenedField{}
	if !root.IsObject() {
		return fields, nil
	}
	return flattenResult(root, "", fields), nil
}

func flattenResult(object gjson.Result, prefix types.FieldRef, fields []types.FlattenedField) []types.FlattenedField {
	object.ForEach(func(key, value gjson.Result) bool {
		path := prefix.Join(key.String())
		if value.IsObject() {
			fields = flattenResult(value, path, fields)
			return true
		}

		leaf := value.Value()
		fields = append(fields, types.FlattenedField{
			Path:  path,
			Value: leaf,
			Kind:  KindOf(leaf),
		})
		return true
	})
	return fields
}

// FlattenValue projects an already decoded value. Object keys are visited in
// sorted order.
func FlattenValue(doc any) []types.FlattenedField {
	fields := []types.FlattenedField{}
	object, ok := doc.(map[string]any)
	if !ok {
		return fields
	}
	return flattenValue(object, "", fields)
}

func flattenValue(object map[string]any, prefix types.FieldRef, fields []types.FlattenedField) []types.FlattenedField {
	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		path := prefix.Join(key)
		value := object[key]
		if nested, ok := value.(map[string]any); ok {
			fields = flattenValue(nested, path, fields)
			continue
		}
		fields = append(fields, types.FlattenedField{
			Path:  path,
			Value: value,
			Kind:  KindOf(value),
		})
	}
	return fields
}

// KindOf returns the JSON dynamic type of a decoded value.
func KindOf(value any) types.Kind {
	switch value.(type) {
	case nil:
		return types.KindNull
	case string:
		return types.KindString
	case bool:
		return types.KindBoolean
	case float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return types.KindNumber
	case map[string]any:
		return types.KindObject
	case []any:
		return types.KindArray
	default:
		return types.KindUndefined
	}
}

// Read returns the value at path. The second result is false when a segment
// is missing or an intermediate value is not an object.
func Read(doc any, path types.FieldRef) (any, bool) {
	segments := path.Segments()
	if len(segments) == 0 {
		return nil, false
	}

	current := doc
	for _, segment := range segments {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = object[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// Write stores value at path inside doc, creating intermediate objects.
// An intermediate that holds a non-object value is replaced by a fresh
// object, so the later write wins at the branch point.
func Write(doc map[string]any, path types.FieldRef, value any) {
	segments := path.Segments()
	if len(segments) == 0 {
		return
	}

	current := doc
	for _, segment := range segments[:len(segments)-1] {
		next, ok := current[segment].(map[string]any)
		if !ok {
			next = map[string]any{}
			current[segment] = next
		}
		current = next
	}
	current[segments[len(segments)-1]] = value
}

// FieldMap indexes flattened fields by path.
func FieldMap(fields []types.FlattenedField) map[string]any {
	result := make(map[string]any, len(fields))
	for _, field := range fields {
		result[string(field.Path)] = field.Value
	}
	return result
}

// Restrict builds a field map holding only paths. Paths that cannot be read
// are bound to nil.
func Restrict(doc any, paths []types.FieldRef) map[string]any {
	result := make(map[string]any, len(paths))
	for _, path := range paths {
		value, _ := Read(doc, path)
		result[string(path)] = value
	}
	return result
}

// Clone deep-copies the objects and arrays of a decoded JSON value.
func Clone(value any) any {
	switch v := value.(type) {
	case map[string]any:
		copied := make(map[string]any, len(v))
		for key, element := range v {
			copied[key] = Clone(element)
		}
		return copied
	case []any:
		copied := make([]any, len(v))
		for i, element := range v {
			copied[i] = Clone(element)
		}
		return copied
	default:
		return v
	}
}

const previewLength = 30

// Preview renders the value of field as compact JSON cut to 30 characters.
// Arrays have no preview.
func Preview(field types.FlattenedField) string {
	if field.Kind == types.KindArray {
		return ""
	}

	var buffer bytes.Buffer
	encoder := json.NewEncoder(&buffer)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(field.Value); err != nil {
		return ""
	}

	preview := []rune(string(bytes.TrimSuffix(buffer.Bytes(), []byte("\n"))))
	if len(preview) > previewLength {
		preview = preview[:previewLength]
	}
	return string(preview)
}
