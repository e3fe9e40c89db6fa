package services

import (
	"regexp"
	"testing"

	"github.com/janovincze/icecat/internal/api/models"
)

func TestETagFor(t *testing.T) {
	etag := ETagFor("0195c4f2-0b33-7c1a-b5a0-6a3302b52f4e", 1700000000000)
	want := `"0195c4f2-0b33-7c1a-b5a0-6a3302b52f4e-1700000000000"`
	if etag != want {
		t.Errorf("ETagFor() = %s, want %s", etag, want)
	}
}

func TestETagChangesWithUpdate(t *testing.T) {
	before := ETagFor("uuid", 1)
	after := ETagFor("uuid", 2)
	if before == after {
		t.Error("expected distinct ETags for distinct last_updated_ms")
	}
}

func TestDeriveLocation(t *testing.T) {
	tests := []struct {
		name      string
		warehouse string
		namespace []string
		table     string
		want      string
	}{
		{
			name:      "simple",
			warehouse: "s3://warehouse",
			namespace: []string{"acct", "tax"},
			table:     "t1",
			want:      "s3://warehouse/acct.tax/t1",
		},
		{
			name:      "trailing slash trimmed",
			warehouse: "s3://warehouse/",
			namespace: []string{"n"},
			table:     "t",
			want:      "s3://warehouse/n/t",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveLocation(tt.warehouse, tt.namespace, tt.table)
			if got != tt.want {
				t.Errorf("deriveLocation() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitialMetadataLocation(t *testing.T) {
	location := initialMetadataLocation("s3://bucket/n/t")
	pattern := regexp.MustCompile(`^s3://bucket/n/t/metadata/00000-[0-9a-f-]{36}\.metadata\.json$`)
	if !pattern.MatchString(location) {
		t.Errorf("unexpected metadata location: %s", location)
	}
}

func TestAssignPartitionFieldIDs(t *testing.T) {
	id := func(v int) *int { return &v }

	fields := []models.PartitionField{
		{SourceID: 1, Name: "a", Transform: "identity"},
		{FieldID: id(1005), SourceID: 2, Name: "b", Transform: "day"},
		{SourceID: 3, Name: "c", Transform: "identity"},
	}

	assigned, last := assignPartitionFieldIDs(fields, 1000)
	if *assigned[0].FieldID != 1001 {
		t.Errorf("first missing id = %d, want 1001", *assigned[0].FieldID)
	}
	if *assigned[1].FieldID != 1005 {
		t.Errorf("stored id = %d, want 1005", *assigned[1].FieldID)
	}
	if *assigned[2].FieldID != 1006 {
		t.Errorf("second missing id = %d, want 1006", *assigned[2].FieldID)
	}
	if last != 1006 {
		t.Errorf("last partition id = %d, want 1006", last)
	}
}

func TestAssignPartitionFieldIDsEmpty(t *testing.T) {
	assigned, last := assignPartitionFieldIDs(nil, 0)
	if len(assigned) != 0 {
		t.Errorf("expected no fields, got %d", len(assigned))
	}
	if last != 0 {
		t.Errorf("expected last partition id 0, got %d", last)
	}
}

func TestReportClassification(t *testing.T) {
	schemaID := 0
	scan := &models.ReportMetricsRequest{
		ReportType: "scan-report",
		Filter:     []byte(`{"type":"eq","term":"amt","value":1}`),
		SchemaID:   &schemaID,
	}
	if !scan.IsScanReport() {
		t.Error("request with filter and schema-id should be a scan report")
	}

	commit := &models.ReportMetricsRequest{ReportType: "commit-report"}
	if commit.IsScanReport() {
		t.Error("request without filter should be a commit report")
	}

	filterOnly := &models.ReportMetricsRequest{ReportType: "scan-report", Filter: []byte(`{}`)}
	if filterOnly.IsScanReport() {
		t.Error("request without schema-id should be a commit report")
	}
}
