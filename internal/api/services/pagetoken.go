package services

import (
	"encoding/base64"
	"fmt"
)

// Page tokens are opaque forward-only cursors: the base64 encoding of the
// last-seen sort key. They are not stable across sort-key changes.

// encodePageToken encodes a sort key as an opaque page token.
func encodePageToken(value string) string {
	return base64.StdEncoding.EncodeToString([]byte(value))
}

// decodePageToken decodes an opaque page token back to its sort key. A
// malformed token is a validation error.
func decodePageToken(token string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return "", &ValidationError{Message: fmt.Sprintf("Invalid page token: %s", token)}
	}
	return string(decoded), nil
}
