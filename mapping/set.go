package mapping

import (
	"encoding/json"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"

	"github.com/jsonmapper/integration-mapper/types"
)

// MappingSet is the ordered collection of mappings of one integration.
// Ids are unique and never handed out twice, even after removal.
type MappingSet struct {
	mappings []types.Mapping
	issued   mapset.Set[string]
}

// New builds a set from existing mappings, keeping their ids and assigning
// one to every mapping that has none.
func New(mappings ...types.Mapping) *MappingSet {
	set := &MappingSet{
		mappings: make([]types.Mapping, 0, len(mappings)),
		issued:   mapset.NewThreadUnsafeSet[string](),
	}
	for _, mapping := range mappings {
		if mapping.ID == "" {
			mapping.ID = set.nextID()
		}
		set.issued.Add(mapping.ID)
		set.mappings = append(set.mappings, clone(mapping))
	}
	return set
}

// Add appends mapping and returns its id. A fresh id is assigned when the
// mapping has none or carries one that was already issued.
func (set *MappingSet) Add(mapping types.Mapping) string {
	if set.issued == nil {
		set.issued = mapset.NewThreadUnsafeSet[string]()
	}
	if mapping.ID == "" || set.issued.Contains(mapping.ID) {
		mapping.ID = set.nextID()
	}
	set.issued.Add(mapping.ID)
	set.mappings = append(set.mappings, clone(mapping))
	return mapping.ID
}

func (set *MappingSet) Get(id string) (types.Mapping, bool) {
	index := set.indexOf(id)
	if index < 0 {
		return types.Mapping{}, false
	}
	return clone(set.mappings[index]), true
}

// Update applies fn to the mapping with the given id. The id itself cannot
// be changed.
func (set *MappingSet) Update(id string, fn func(mapping *types.Mapping)) error {
	index := set.indexOf(id)
	if index < 0 {
		return fmt.Errorf("mapping %s not found", id)
	}

	updated := clone(set.mappings[index])
	fn(&updated)
	updated.ID = id
	set.mappings[index] = updated
	return nil
}

// Remove deletes the mapping permanently. Its id is not reused.
func (set *MappingSet) Remove(id string) bool {
	index := set.indexOf(id)
	if index < 0 {
		return false
	}
	set.mappings = append(set.mappings[:index], set.mappings[index+1:]...)
	return true
}

// ToggleSourceField adds path to the source fields of a custom mapping, or
// removes it when already present.
func (set *MappingSet) ToggleSourceField(id string, path types.FieldRef) error {
	return set.Update(id, func(mapping *types.Mapping) {
		for i, field := range mapping.SourceFields {
			if field == path {
				mapping.SourceFields = append(mapping.SourceFields[:i], mapping.SourceFields[i+1:]...)
				return
			}
		}
		mapping.SourceFields = append(mapping.SourceFields, path)
	})
}

// Mappings returns a copy of the mappings in order.
func (set *MappingSet) Mappings() []types.Mapping {
	mappings := make([]types.Mapping, len(set.mappings))
	for i, mapping := range set.mappings {
		mappings[i] = clone(mapping)
	}
	return mappings
}

func (set *MappingSet) Len() int {
	return len(set.mappings)
}

func (set *MappingSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(set.Mappings())
}

func (set *MappingSet) UnmarshalJSON(data []byte) error {
	var mappings []types.Mapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return err
	}
	*set = *New(mappings...)
	return nil
}

func (set *MappingSet) indexOf(id string) int {
	for i, mapping := range set.mappings {
		if mapping.ID == id {
			return i
		}
	}
	return -1
}

func (set *MappingSet) nextID() string {
	for {
		id := uuid.NewString()
		if !set.issued.Contains(id) {
			return id
		}
	}
}

func clone(mapping types.Mapping) types.Mapping {
	if mapping.SourceFields != nil {
		mapping.SourceFields = append([]types.FieldRef{}, mapping.SourceFields...)
	}
	if mapping.Transform.Params != nil {
		mapping.Transform.Params = append([]string{}, mapping.Transform.Params...)
	}
	return mapping
}
