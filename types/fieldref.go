package types

import "strings"

// FieldRef is a dotted path addressing a location in a JSON document,
// e.g. "data.user.email". Literal dots inside keys cannot be expressed.
type FieldRef string

const FieldRefSeparator = "."

func (ref FieldRef) Segments() []string {
	if ref == "" {
		return nil
	}
	return strings.Split(string(ref), FieldRefSeparator)
}

func (ref FieldRef) IsEmpty() bool {
	return strings.TrimSpace(string(ref)) == ""
}

// Join appends key to ref as a new trailing segment.
func (ref FieldRef) Join(key string) FieldRef {
	if ref == "" {
		return FieldRef(key)
	}
	return ref + FieldRefSeparator + FieldRef(key)
}

// HasPrefix reports whether other is a strict ancestor of ref ("a" of "a.b").
func (ref FieldRef) HasPrefix(other FieldRef) bool {
	return other != "" && strings.HasPrefix(string(ref), string(other)+FieldRefSeparator)
}

type Kind string

const (
	KindString    Kind = "string"
	KindNumber    Kind = "number"
	KindBoolean   Kind = "boolean"
	KindObject    Kind = "object"
	KindArray     Kind = "array"
	KindNull      Kind = "null"
	KindUndefined Kind = "undefined"
)

func (kind Kind) IsValidKind() bool {
	switch kind {
	case KindString,
		KindNumber,
		KindBoolean,
		KindObject,
		KindArray,
		KindNull,
		KindUndefined:
		return true
	default:
		return false
	}
}

// FlattenedField is one leaf of a flattened document.
type FlattenedField struct {
	Path  FieldRef `json:"path"`
	Value any      `json:"value"`
	Kind  Kind     `json:"type"`
}
