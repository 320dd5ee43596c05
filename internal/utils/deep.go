package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DeepEqual reports whether a and b serialize to the same JSON.
// Used to compare subscription params and message payloads where both sides
// are JSON-shaped values (maps, slices, tagged structs). Values that cannot
// be serialized are never equal.
func DeepEqual(a, b any) bool {
	ja, err := MarshalNoEscape(a)
	if err != nil {
		return false
	}
	jb, err := MarshalNoEscape(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// DeepCopy copies src into dst through a serialize/deserialize round trip.
// dst must be a pointer. Unexported fields and non-JSON types are dropped,
// which is acceptable for the frame payloads this is used on.
func DeepCopy(dst, src any) error {
	data, err := MarshalNoEscape(src)
	if err != nil {
		return fmt.Errorf("copying value: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("copying value: %w", err)
	}
	return nil
}
