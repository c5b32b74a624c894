package autotask

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Signature derives the cache key for a request. The filter is round-tripped through a
// generic JSON value so two filters that differ only in map key order yield one key.
// Numbers are kept as their literal text so large ids never collapse onto one key.
func Signature(endpoint string, filter any) (string, error) {
	raw, err := json.Marshal(filter)
	if err != nil {
		return "", fmt.Errorf("marshal filter: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return "", fmt.Errorf("normalise filter: %w", err)
	}
	canonical, err := json.Marshal(generic)
	if err != nil {
		return "", fmt.Errorf("encode filter: %w", err)
	}
	return endpoint + "_" + string(canonical), nil
}
