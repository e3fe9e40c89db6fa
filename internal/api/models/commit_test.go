package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestUnmarshalRequirementKnownTypes(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"assert create", `{"type":"assert-create"}`, "assert-create"},
		{"assert uuid", `{"type":"assert-table-uuid","uuid":"abc"}`, "assert-table-uuid"},
		{"assert ref", `{"type":"assert-ref-snapshot-id","ref":"main","snapshot-id":1}`, "assert-ref-snapshot-id"},
		{"assert field id", `{"type":"assert-last-assigned-field-id","last-assigned-field-id":3}`, "assert-last-assigned-field-id"},
		{"assert schema", `{"type":"assert-current-schema-id","current-schema-id":0}`, "assert-current-schema-id"},
		{"assert partition id", `{"type":"assert-last-assigned-partition-id","last-assigned-partition-id":1000}`, "assert-last-assigned-partition-id"},
		{"assert spec", `{"type":"assert-default-spec-id","default-spec-id":0}`, "assert-default-spec-id"},
		{"assert sort order", `{"type":"assert-default-sort-order-id","default-sort-order-id":0}`, "assert-default-sort-order-id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := UnmarshalRequirement([]byte(tt.json))
			if err != nil {
				t.Fatalf("UnmarshalRequirement() error = %v", err)
			}
			if req.RequirementType() != tt.want {
				t.Errorf("RequirementType() = %q, want %q", req.RequirementType(), tt.want)
			}
			if _, ok := req.(UnknownRequirement); ok {
				t.Errorf("known type %q decoded as UnknownRequirement", tt.want)
			}
		})
	}
}

func TestUnmarshalRequirementPayload(t *testing.T) {
	req, err := UnmarshalRequirement([]byte(`{"type":"assert-current-schema-id","current-schema-id":4}`))
	if err != nil {
		t.Fatalf("UnmarshalRequirement() error = %v", err)
	}
	assert, ok := req.(AssertCurrentSchemaID)
	if !ok {
		t.Fatalf("expected AssertCurrentSchemaID, got %T", req)
	}
	if assert.CurrentSchemaID != 4 {
		t.Errorf("CurrentSchemaID = %d, want 4", assert.CurrentSchemaID)
	}
}

func TestUnmarshalRequirementNullRefSnapshot(t *testing.T) {
	req, err := UnmarshalRequirement([]byte(`{"type":"assert-ref-snapshot-id","ref":"main","snapshot-id":null}`))
	if err != nil {
		t.Fatalf("UnmarshalRequirement() error = %v", err)
	}
	assert := req.(AssertRefSnapshotID)
	if assert.SnapshotID != nil {
		t.Errorf("expected nil snapshot id, got %v", *assert.SnapshotID)
	}
}

func TestUnmarshalRequirementUnknownType(t *testing.T) {
	req, err := UnmarshalRequirement([]byte(`{"type":"assert-view-version"}`))
	if err != nil {
		t.Fatalf("unknown requirement type must decode, got error %v", err)
	}
	unknown, ok := req.(UnknownRequirement)
	if !ok {
		t.Fatalf("expected UnknownRequirement, got %T", req)
	}
	if unknown.RequirementType() != "assert-view-version" {
		t.Errorf("RequirementType() = %q, want assert-view-version", unknown.RequirementType())
	}
}

func TestUnmarshalUpdateKnownActions(t *testing.T) {
	tests := []struct {
		name string
		json string
		want string
	}{
		{"assign uuid", `{"action":"assign-uuid","uuid":"abc"}`, "assign-uuid"},
		{"upgrade format", `{"action":"upgrade-format-version","format-version":2}`, "upgrade-format-version"},
		{"add schema", `{"action":"add-schema","schema":{"type":"struct","fields":[]}}`, "add-schema"},
		{"set current schema", `{"action":"set-current-schema","schema-id":-1}`, "set-current-schema"},
		{"add spec", `{"action":"add-spec","spec":{"fields":[]}}`, "add-spec"},
		{"set default spec", `{"action":"set-default-spec","spec-id":-1}`, "set-default-spec"},
		{"add sort order", `{"action":"add-sort-order","sort-order":{"order-id":1,"fields":[]}}`, "add-sort-order"},
		{"set default sort order", `{"action":"set-default-sort-order","sort-order-id":-1}`, "set-default-sort-order"},
		{"add snapshot", `{"action":"add-snapshot","snapshot":{"snapshot-id":1,"timestamp-ms":1,"manifest-list":"m","summary":{"operation":"append"}}}`, "add-snapshot"},
		{"set snapshot ref", `{"action":"set-snapshot-ref","ref-name":"main","type":"branch","snapshot-id":1}`, "set-snapshot-ref"},
		{"remove snapshots", `{"action":"remove-snapshots","snapshot-ids":[1,2]}`, "remove-snapshots"},
		{"remove snapshot ref", `{"action":"remove-snapshot-ref","ref-name":"main"}`, "remove-snapshot-ref"},
		{"remove partition specs", `{"action":"remove-partition-specs","spec-ids":[1]}`, "remove-partition-specs"},
		{"remove schemas", `{"action":"remove-schemas","schema-ids":[1]}`, "remove-schemas"},
		{"set location", `{"action":"set-location","location":"s3://b/t"}`, "set-location"},
		{"set properties", `{"action":"set-properties","updates":{"k":"v"}}`, "set-properties"},
		{"remove properties", `{"action":"remove-properties","removals":["k"]}`, "remove-properties"},
		{"set statistics", `{"action":"set-statistics","statistics":{"snapshot-id":1,"statistics-path":"p","file-size-in-bytes":1,"file-footer-size-in-bytes":1,"blob-metadata":[]}}`, "set-statistics"},
		{"set partition statistics", `{"action":"set-partition-statistics","partition-statistics":{"snapshot-id":1,"statistics-path":"p","file-size-in-bytes":1}}`, "set-partition-statistics"},
		{"remove statistics", `{"action":"remove-statistics","snapshot-id":1}`, "remove-statistics"},
		{"remove partition statistics", `{"action":"remove-partition-statistics","snapshot-id":1}`, "remove-partition-statistics"},
		{"enable row lineage", `{"action":"enable-row-lineage"}`, "enable-row-lineage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upd, err := UnmarshalUpdate([]byte(tt.json))
			if err != nil {
				t.Fatalf("UnmarshalUpdate() error = %v", err)
			}
			if upd.Action() != tt.want {
				t.Errorf("Action() = %q, want %q", upd.Action(), tt.want)
			}
		})
	}
}

func TestUnmarshalUpdateUnknownAction(t *testing.T) {
	_, err := UnmarshalUpdate([]byte(`{"action":"set-view-version"}`))
	if err == nil {
		t.Fatal("expected error for unknown update action")
	}
	if !strings.Contains(err.Error(), "set-view-version") {
		t.Errorf("error should name the action, got %v", err)
	}
}

func TestCommitTableRequestUnmarshal(t *testing.T) {
	body := `{
		"identifier": {"namespace": ["acct", "tax"], "name": "t1"},
		"requirements": [
			{"type": "assert-table-uuid", "uuid": "abc"},
			{"type": "assert-current-schema-id", "current-schema-id": 0}
		],
		"updates": [
			{"action": "add-schema", "schema": {"type": "struct", "fields": [{"id": 2, "name": "b", "type": "string", "required": false}]}},
			{"action": "set-current-schema", "schema-id": -1}
		]
	}`

	var req CommitTableRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if req.Identifier == nil || req.Identifier.Name != "t1" {
		t.Errorf("unexpected identifier: %+v", req.Identifier)
	}
	if len(req.Requirements) != 2 {
		t.Fatalf("expected 2 requirements, got %d", len(req.Requirements))
	}
	if req.Requirements[0].RequirementType() != "assert-table-uuid" {
		t.Error("requirement order not preserved")
	}
	if len(req.Updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(req.Updates))
	}
	add, ok := req.Updates[0].(AddSchemaUpdate)
	if !ok {
		t.Fatalf("expected AddSchemaUpdate, got %T", req.Updates[0])
	}
	if add.Schema.MaxFieldID() != 2 {
		t.Errorf("schema max field id = %d, want 2", add.Schema.MaxFieldID())
	}
}

func TestCommitTableRequestRejectsUnknownUpdate(t *testing.T) {
	body := `{"requirements": [], "updates": [{"action": "frobnicate"}]}`

	var req CommitTableRequest
	if err := json.Unmarshal([]byte(body), &req); err == nil {
		t.Fatal("expected decode failure for unknown update action")
	}
}
