package store

import (
	"encoding/json"
	"fmt"
)

// marshalDetails serializes error details for the error_details column.
// encoding/json writes map keys sorted, so equal maps give equal text.
func marshalDetails(d map[string]string) (string, error) {
	if len(d) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("marshal error details: %w", err)
	}
	return string(b), nil
}

// unmarshalDetails parses the error_details column. An empty object reads
// back as nil.
func unmarshalDetails(s string) (map[string]string, error) {
	var d map[string]string
	if err := json.Unmarshal([]byte(s), &d); err != nil {
		return nil, fmt.Errorf("unmarshal error details: %w", err)
	}
	if len(d) == 0 {
		return nil, nil
	}
	return d, nil
}
