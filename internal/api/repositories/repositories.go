// Package repositories provides the data access layer for catalog resources.
// Repository methods take a store.Querier so the same statements run against
// the pool or inside a commit transaction.
package repositories

import (
	"encoding/json"
	"fmt"
	"strings"
)

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// PostgreSQL unique violation error code is 23505
	return strings.Contains(errStr, "23505") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}

// decodeJSONMap decodes a JSONB column into a string map. Historic rows may
// be double-encoded (a JSON string containing a JSON object); both forms are
// accepted.
func decodeJSONMap(raw []byte) (map[string]string, error) {
	if len(raw) == 0 {
		return map[string]string{}, nil
	}

	var m map[string]string
	if err := json.Unmarshal(raw, &m); err == nil {
		return m, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			return nil, fmt.Errorf("failed to decode double-encoded JSON column: %w", err)
		}
		return m, nil
	}

	return nil, fmt.Errorf("failed to decode JSON column: %s", truncateForError(raw))
}

// decodeJSONDocument normalizes a JSONB column to raw object bytes, peeling
// one layer of double encoding if present.
func decodeJSONDocument(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("failed to decode double-encoded JSON column: %w", err)
		}
		return []byte(s), nil
	}
	return raw, nil
}

func truncateForError(raw []byte) string {
	const max = 64
	if len(raw) > max {
		return string(raw[:max]) + "..."
	}
	return string(raw)
}
