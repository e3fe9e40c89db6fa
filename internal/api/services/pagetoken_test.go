package services

import (
	"errors"
	"testing"
)

func TestPageTokenRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{name: "table name", value: "orders"},
		{name: "namespace key", value: "accounting\x1Ftax"},
		{name: "empty", value: ""},
		{name: "unicode", value: "commandes_département"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token := encodePageToken(tt.value)
			decoded, err := decodePageToken(token)
			if err != nil {
				t.Fatalf("decodePageToken() error = %v", err)
			}
			if decoded != tt.value {
				t.Errorf("round trip = %q, want %q", decoded, tt.value)
			}
		})
	}
}

func TestDecodePageTokenMalformed(t *testing.T) {
	_, err := decodePageToken("not-base64!!!")
	if err == nil {
		t.Fatal("expected error for malformed token")
	}

	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Errorf("expected ValidationError, got %T", err)
	}
}

func TestPageTokenDeterministic(t *testing.T) {
	if encodePageToken("t1") != encodePageToken("t1") {
		t.Error("expected identical tokens for identical sort keys")
	}
}
