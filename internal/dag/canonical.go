package dag

import (
	jsoniter "github.com/json-iterator/go"
)

// canonical sorts map keys and keeps numbers as their literal text so that
// re-encoding never loses precision.
var canonical = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

// records decodes stored records with encoding/json semantics.
var records = jsoniter.ConfigCompatibleWithStandardLibrary

// CanonicalJSON produces a deterministic JSON encoding with sorted keys.
func CanonicalJSON(v interface{}) ([]byte, error) {
	data, err := canonical.Marshal(v)
	if err != nil {
		return nil, err
	}
	// Re-decode into maps so struct fields get sorted too
	var raw interface{}
	if err := canonical.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return canonical.Marshal(raw)
}
