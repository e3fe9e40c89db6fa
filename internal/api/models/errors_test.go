package models

import (
	"encoding/json"
	"testing"
)

func TestErrorResponseShape(t *testing.T) {
	resp := NewNotFoundError("namespace", "The given namespace does not exist: acct.tax")

	raw, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var decoded map[string]map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	inner, ok := decoded["error"]
	if !ok {
		t.Fatal("expected top-level error key")
	}
	if inner["type"] != ErrorTypeNoSuchNamespace {
		t.Errorf("type = %v, want %s", inner["type"], ErrorTypeNoSuchNamespace)
	}
	if inner["code"] != float64(404) {
		t.Errorf("code = %v, want 404", inner["code"])
	}
	if _, hasStack := inner["stack"]; hasStack {
		t.Error("stack must be omitted when empty")
	}
}

func TestNewNotFoundErrorResourceTag(t *testing.T) {
	if NewNotFoundError("namespace", "m").Error.Type != ErrorTypeNoSuchNamespace {
		t.Error("namespace resource should map to NoSuchNamespaceException")
	}
	if NewNotFoundError("table", "m").Error.Type != ErrorTypeNoSuchTable {
		t.Error("table resource should map to NoSuchTableException")
	}
}

func TestErrorConstructorsCodes(t *testing.T) {
	tests := []struct {
		name string
		resp *IcebergErrorResponse
		code int
		typ  string
	}{
		{"conflict", NewConflictError("exists"), 409, ErrorTypeAlreadyExists},
		{"bad request", NewBadRequestError("bad"), 400, ErrorTypeBadRequest},
		{"internal", NewInternalError("boom"), 500, ErrorTypeInternal},
		{"rate limited", NewRateLimitedError(), 429, ErrorTypeRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.resp.Error.Code != tt.code {
				t.Errorf("code = %d, want %d", tt.resp.Error.Code, tt.code)
			}
			if tt.resp.Error.Type != tt.typ {
				t.Errorf("type = %q, want %q", tt.resp.Error.Type, tt.typ)
			}
		})
	}
}
