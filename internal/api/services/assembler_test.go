package services

import (
	"database/sql"
	"encoding/json"
	"reflect"
	"testing"

	"github.com/janovincze/icecat/internal/api/repositories"
)

func testHeader() *repositories.TableRow {
	return &repositories.TableRow{
		ID:                 1,
		TableUUID:          "0195c4f2-0b33-7c1a-b5a0-6a3302b52f4e",
		Location:           "s3://bucket/acct.tax/t1",
		FormatVersion:      2,
		LastUpdatedMs:      1700000000000,
		LastColumnID:       1,
		CurrentSchemaID:    0,
		DefaultSpecID:      0,
		LastPartitionID:    1000,
		DefaultSortOrderID: 0,
		Properties:         map[string]string{"owner": "finance"},
	}
}

func TestRepairSchemaInheritsRowID(t *testing.T) {
	row := repositories.JSONRow{
		ID:   3,
		JSON: []byte(`{"type":"struct","fields":[{"id":1,"name":"amt","type":"long","required":true}]}`),
	}

	schema, err := repairSchema(row)
	if err != nil {
		t.Fatalf("repairSchema() error = %v", err)
	}
	if schema.SchemaID == nil || *schema.SchemaID != 3 {
		t.Errorf("expected schema-id 3 from row index, got %v", schema.SchemaID)
	}
}

func TestRepairSchemaKeepsStoredID(t *testing.T) {
	row := repositories.JSONRow{
		ID:   3,
		JSON: []byte(`{"type":"struct","schema-id":7,"fields":[]}`),
	}

	schema, err := repairSchema(row)
	if err != nil {
		t.Fatalf("repairSchema() error = %v", err)
	}
	if schema.SchemaID == nil || *schema.SchemaID != 7 {
		t.Errorf("expected stored schema-id 7 to survive, got %v", schema.SchemaID)
	}
}

func TestRepairPartitionSpecAssignsFieldIDs(t *testing.T) {
	row := repositories.JSONRow{
		ID: 0,
		JSON: []byte(`{"fields":[
			{"source-id":1,"name":"amt_bucket","transform":"bucket[16]"},
			{"field-id":1001,"source-id":2,"name":"day","transform":"day"},
			{"source-id":3,"name":"region","transform":"identity"}
		]}`),
	}

	spec, err := repairPartitionSpec(row, 1000)
	if err != nil {
		t.Fatalf("repairPartitionSpec() error = %v", err)
	}
	if spec.SpecID == nil || *spec.SpecID != 0 {
		t.Errorf("expected spec-id 0 from row index, got %v", spec.SpecID)
	}

	got := []int{*spec.Fields[0].FieldID, *spec.Fields[1].FieldID, *spec.Fields[2].FieldID}
	// Missing ids are assigned walking upward from last_partition_id; stored
	// ids are untouched.
	want := []int{1001, 1001, 1002}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("field ids = %v, want %v", got, want)
	}
}

func TestAssembleMetadataIdempotent(t *testing.T) {
	header := testHeader()
	schemas := []repositories.JSONRow{
		{ID: 0, JSON: []byte(`{"type":"struct","fields":[{"id":1,"name":"amt","type":"long","required":true}]}`)},
	}
	specs := []repositories.JSONRow{
		{ID: 0, JSON: []byte(`{"fields":[{"source-id":1,"name":"amt","transform":"identity"}]}`)},
	}
	orders := []repositories.JSONRow{
		{ID: 0, JSON: []byte(`{"order-id":0,"fields":[]}`)},
	}

	first, err := assembleMetadata(header, schemas, specs, orders, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("assembleMetadata() error = %v", err)
	}
	second, err := assembleMetadata(header, schemas, specs, orders, nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("assembleMetadata() second pass error = %v", err)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Error("assembling twice produced different documents")
	}

	if *first.Schemas[0].SchemaID != 0 {
		t.Errorf("expected repaired schema-id 0, got %d", *first.Schemas[0].SchemaID)
	}
	if first.Refs == nil || len(first.Refs) != 0 {
		t.Errorf("expected empty refs map, got %v", first.Refs)
	}
	if len(first.Snapshots) != 0 {
		t.Errorf("expected no snapshots, got %d", len(first.Snapshots))
	}
}

func TestAssembleMetadataSnapshotsAndRefs(t *testing.T) {
	header := testHeader()
	header.CurrentSnapshotID = sql.NullInt64{Int64: 42, Valid: true}
	header.LastSequenceNumber = 7

	snapshots := []repositories.SnapshotRow{
		{
			SnapshotID:     42,
			SequenceNumber: sql.NullInt64{Int64: 7, Valid: true},
			TimestampMs:    1700000001000,
			ManifestList:   "s3://bucket/acct.tax/t1/metadata/snap-42.avro",
			Summary:        []byte(`{"operation":"append","added-data-files":"2"}`),
		},
	}
	refs := []repositories.RefRow{
		{
			Name:               "main",
			SnapshotID:         42,
			Type:               "branch",
			MinSnapshotsToKeep: sql.NullInt64{Int64: 5, Valid: true},
		},
	}

	metadata, err := assembleMetadata(header, nil, nil, nil, snapshots, refs, nil, nil)
	if err != nil {
		t.Fatalf("assembleMetadata() error = %v", err)
	}

	if len(metadata.Snapshots) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(metadata.Snapshots))
	}
	snapshot := metadata.Snapshots[0]
	if snapshot.Summary.Operation() != "append" {
		t.Errorf("summary operation = %q, want append", snapshot.Summary.Operation())
	}
	if snapshot.Summary["added-data-files"] != "2" {
		t.Error("expected extra summary keys to survive assembly")
	}

	ref, ok := metadata.Refs["main"]
	if !ok {
		t.Fatal("expected ref main")
	}
	if ref.SnapshotID != 42 || ref.Type != "branch" {
		t.Errorf("unexpected ref: %+v", ref)
	}
	if ref.MinSnapshotsToKeep == nil || *ref.MinSnapshotsToKeep != 5 {
		t.Errorf("expected min-snapshots-to-keep 5, got %v", ref.MinSnapshotsToKeep)
	}
	if metadata.CurrentSnapshotID == nil || *metadata.CurrentSnapshotID != 42 {
		t.Errorf("expected current-snapshot-id 42, got %v", metadata.CurrentSnapshotID)
	}
	if metadata.LastSequenceNumber == nil || *metadata.LastSequenceNumber != 7 {
		t.Errorf("expected last-sequence-number 7, got %v", metadata.LastSequenceNumber)
	}
}
