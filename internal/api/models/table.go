package models

import "encoding/json"

// TableIdentifier names a table within a namespace.
type TableIdentifier struct {
	Namespace Namespace `json:"namespace" binding:"required"`
	Name      string    `json:"name" binding:"required"`
}

// ListTablesResponse is a single page of table identifiers.
type ListTablesResponse struct {
	NextPageToken string            `json:"next-page-token,omitempty"`
	Identifiers   []TableIdentifier `json:"identifiers"`
}

// StructField is a single field of a table schema. The field type is kept
// opaque: it may be a primitive type name or a nested struct/list/map
// document.
type StructField struct {
	ID             int             `json:"id"`
	Name           string          `json:"name"`
	Type           json.RawMessage `json:"type"`
	Required       bool            `json:"required"`
	Doc            string          `json:"doc,omitempty"`
	InitialDefault json.RawMessage `json:"initial-default,omitempty"`
	WriteDefault   json.RawMessage `json:"write-default,omitempty"`
}

// Schema is an Iceberg table schema: a struct type with a stable id.
// SchemaID is a pointer so that a silently-missing id in a stored blob can be
// distinguished from id zero and repaired on the read path.
type Schema struct {
	Type               string        `json:"type"`
	Fields             []StructField `json:"fields"`
	SchemaID           *int          `json:"schema-id,omitempty"`
	IdentifierFieldIDs []int         `json:"identifier-field-ids,omitempty"`
}

// MaxFieldID returns the highest field id in the schema, or 0 if it has no
// fields.
func (s *Schema) MaxFieldID() int {
	max := 0
	for _, f := range s.Fields {
		if f.ID > max {
			max = f.ID
		}
	}
	return max
}

// PartitionField maps a source column through a transform to a partition
// column.
type PartitionField struct {
	FieldID   *int   `json:"field-id,omitempty"`
	SourceID  int    `json:"source-id"`
	Name      string `json:"name"`
	Transform string `json:"transform"`
}

// PartitionSpec is a partitioning scheme for a table.
type PartitionSpec struct {
	SpecID *int             `json:"spec-id,omitempty"`
	Fields []PartitionField `json:"fields"`
}

// SortField is a single key of a sort order.
type SortField struct {
	SourceID  int    `json:"source-id"`
	Transform string `json:"transform"`
	Direction string `json:"direction"`
	NullOrder string `json:"null-order"`
}

// SortOrder is a write ordering for a table.
type SortOrder struct {
	OrderID *int        `json:"order-id,omitempty"`
	Fields  []SortField `json:"fields"`
}

// SnapshotSummary carries the snapshot operation plus any engine-provided
// summary properties.
type SnapshotSummary map[string]string

// Operation returns the snapshot operation (append, replace, overwrite,
// delete).
func (s SnapshotSummary) Operation() string {
	return s["operation"]
}

// Snapshot is an immutable version of a table's contents.
type Snapshot struct {
	SnapshotID       int64           `json:"snapshot-id"`
	ParentSnapshotID *int64          `json:"parent-snapshot-id,omitempty"`
	SequenceNumber   *int64          `json:"sequence-number,omitempty"`
	TimestampMs      int64           `json:"timestamp-ms"`
	ManifestList     string          `json:"manifest-list"`
	Summary          SnapshotSummary `json:"summary"`
	SchemaID         *int            `json:"schema-id,omitempty"`
}

// SnapshotReference is a named branch or tag pointing at a snapshot.
type SnapshotReference struct {
	Type               string `json:"type"`
	SnapshotID         int64  `json:"snapshot-id"`
	MaxRefAgeMs        *int64 `json:"max-ref-age-ms,omitempty"`
	MaxSnapshotAgeMs   *int64 `json:"max-snapshot-age-ms,omitempty"`
	MinSnapshotsToKeep *int   `json:"min-snapshots-to-keep,omitempty"`
}

// BlobMetadata describes one blob in a statistics file.
type BlobMetadata struct {
	Type           string            `json:"type"`
	SnapshotID     int64             `json:"snapshot-id"`
	SequenceNumber int64             `json:"sequence-number"`
	Fields         []int             `json:"fields"`
	Properties     map[string]string `json:"properties,omitempty"`
}

// StatisticsFile is a Puffin statistics file attached to a snapshot.
type StatisticsFile struct {
	SnapshotID            int64          `json:"snapshot-id"`
	StatisticsPath        string         `json:"statistics-path"`
	FileSizeInBytes       int64          `json:"file-size-in-bytes"`
	FileFooterSizeInBytes int64          `json:"file-footer-size-in-bytes"`
	BlobMetadata          []BlobMetadata `json:"blob-metadata"`
}

// PartitionStatisticsFile is a partition statistics file attached to a
// snapshot.
type PartitionStatisticsFile struct {
	SnapshotID      int64  `json:"snapshot-id"`
	StatisticsPath  string `json:"statistics-path"`
	FileSizeInBytes int64  `json:"file-size-in-bytes"`
}

// MetadataLogEntry points at a previous metadata file for a table.
type MetadataLogEntry struct {
	MetadataFile string `json:"metadata-file"`
	TimestampMs  int64  `json:"timestamp-ms"`
}

// TableMetadata is the canonical table metadata document.
type TableMetadata struct {
	FormatVersion       int                          `json:"format-version"`
	TableUUID           string                       `json:"table-uuid"`
	Location            string                       `json:"location,omitempty"`
	LastUpdatedMs       int64                        `json:"last-updated-ms,omitempty"`
	Properties          map[string]string            `json:"properties,omitempty"`
	Schemas             []Schema                     `json:"schemas,omitempty"`
	CurrentSchemaID     *int                         `json:"current-schema-id,omitempty"`
	LastColumnID        *int                         `json:"last-column-id,omitempty"`
	PartitionSpecs      []PartitionSpec              `json:"partition-specs,omitempty"`
	DefaultSpecID       *int                         `json:"default-spec-id,omitempty"`
	LastPartitionID     *int                         `json:"last-partition-id,omitempty"`
	SortOrders          []SortOrder                  `json:"sort-orders,omitempty"`
	DefaultSortOrderID  *int                         `json:"default-sort-order-id,omitempty"`
	Snapshots           []Snapshot                   `json:"snapshots"`
	Refs                map[string]SnapshotReference `json:"refs"`
	CurrentSnapshotID   *int64                       `json:"current-snapshot-id,omitempty"`
	LastSequenceNumber  *int64                       `json:"last-sequence-number,omitempty"`
	Statistics          []StatisticsFile             `json:"statistics,omitempty"`
	PartitionStatistics []PartitionStatisticsFile    `json:"partition-statistics,omitempty"`
	RowLineage          *bool                        `json:"row-lineage,omitempty"`
	NextRowID           *int64                       `json:"next-row-id,omitempty"`
}

// TableCredential is an inline credential block supplied on table creation.
type TableCredential struct {
	Config map[string]string `json:"config" binding:"required"`
}

// CreateTableRequest is the body of POST /v1/{prefix}/namespaces/{ns}/tables.
type CreateTableRequest struct {
	Name          string            `json:"name" binding:"required"`
	Location      string            `json:"location"`
	Schema        Schema            `json:"schema" binding:"required"`
	PartitionSpec *PartitionSpec    `json:"partition-spec"`
	WriteOrder    *SortOrder        `json:"write-order"`
	StageCreate   bool              `json:"stage-create"`
	Properties    map[string]string `json:"properties"`
	Credentials   *TableCredential  `json:"credentials"`
}

// StorageCredential is one credential bundle vended with a table load. The
// prefix is the storage location prefix the credential applies to; engines
// select bundles by longest-prefix match against their file URIs.
type StorageCredential struct {
	Prefix string            `json:"prefix"`
	Config map[string]string `json:"config"`
}

// LoadTableResult is the result envelope for table create and load.
type LoadTableResult struct {
	// MetadataLocation may be empty if the table is staged as part of a
	// transaction.
	MetadataLocation   string              `json:"metadata-location,omitempty"`
	Metadata           TableMetadata       `json:"metadata"`
	Config             map[string]string   `json:"config,omitempty"`
	StorageCredentials []StorageCredential `json:"storage-credentials,omitempty"`
}

// LoadCredentialsResponse is the body of GET .../tables/{t}/credentials.
type LoadCredentialsResponse struct {
	StorageCredentials []StorageCredential `json:"storage-credentials"`
}

// CommitTableResponse is the result of a successful table commit.
type CommitTableResponse struct {
	MetadataLocation string        `json:"metadata-location"`
	Metadata         TableMetadata `json:"metadata"`
}

// RenameTableRequest is the body of POST /v1/{prefix}/tables/rename.
type RenameTableRequest struct {
	Source      TableIdentifier `json:"source" binding:"required"`
	Destination TableIdentifier `json:"destination" binding:"required"`
}

// ReportMetricsRequest is the body of POST .../tables/{t}/metrics. A request
// carrying both a filter and a schema id is a scan report; anything else is a
// commit report.
type ReportMetricsRequest struct {
	ReportType          string            `json:"report-type" binding:"required"`
	TableName           string            `json:"table-name"`
	SnapshotID          int64             `json:"snapshot-id"`
	Filter              json.RawMessage   `json:"filter,omitempty"`
	SchemaID            *int              `json:"schema-id,omitempty"`
	ProjectedFieldIDs   []int             `json:"projected-field-ids,omitempty"`
	ProjectedFieldNames []string          `json:"projected-field-names,omitempty"`
	SequenceNumber      *int64            `json:"sequence-number,omitempty"`
	Operation           string            `json:"operation,omitempty"`
	Metrics             json.RawMessage   `json:"metrics,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
}

// IsScanReport reports whether the request is a scan report.
func (r *ReportMetricsRequest) IsScanReport() bool {
	return len(r.Filter) > 0 && r.SchemaID != nil
}
