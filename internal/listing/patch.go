package listing

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Patch derives the next value of an entity from its current value.
type Patch[T any] func(current T) (T, error)

// Replace returns a patch that swaps the entity for next.
func Replace[T any](next T) Patch[T] {
	return func(T) (T, error) {
		return next, nil
	}
}

// JSONPatch overlays the members of a JSON object onto a deep copy of the
// current entity. Members absent from raw keep their current value.
func JSONPatch[T any](raw []byte) Patch[T] {
	return func(current T) (T, error) {
		var zero T
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return zero, ValidationError(map[string]string{"_": "patch must be a JSON object"})
		}
		base, err := json.Marshal(current)
		if err != nil {
			return zero, fmt.Errorf("listing: encode current value: %w", err)
		}
		var next T
		if err := json.Unmarshal(base, &next); err != nil {
			return zero, fmt.Errorf("listing: copy current value: %w", err)
		}
		if err := json.Unmarshal(trimmed, &next); err != nil {
			return zero, ValidationError(map[string]string{"_": "patch is not valid: " + err.Error()})
		}
		return next, nil
	}
}
