package store

import (
	"encoding/json"
	"fmt"

	"github.com/wanjj/AMBiT/internal/ir"
)

// marshalFloats converts a float map to canonical JSON TEXT for storage.
// A nil map is stored as "{}".
func marshalFloats(m map[string]float64) (string, error) {
	data, err := ir.MarshalCanonical(ir.FloatMap(m))
	if err != nil {
		return "", fmt.Errorf("marshal floats: %w", err)
	}
	return string(data), nil
}

// unmarshalFloats parses JSON TEXT produced by marshalFloats.
// Returns an empty (non-nil) map for "" and "{}".
func unmarshalFloats(data string) (map[string]float64, error) {
	out := map[string]float64{}
	if data == "" || data == "{}" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal floats: %w", err)
	}
	return out, nil
}
