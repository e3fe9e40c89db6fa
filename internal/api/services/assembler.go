package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/repositories"
	"github.com/janovincze/icecat/internal/store"
)

// Snapshot filter values for table loads.
const (
	SnapshotsAll  = "all"
	SnapshotsRefs = "refs"
)

// MetadataAssembler reads the normalized rows of a table and materializes
// the canonical metadata document. The duplicated index columns are
// authoritative: blobs with silently-missing ids are repaired against them
// during assembly, so assembling twice yields an identical document.
type MetadataAssembler struct {
	store  *store.Store
	tables *repositories.TableRepository
}

// NewMetadataAssembler creates a new MetadataAssembler.
func NewMetadataAssembler(st *store.Store, tables *repositories.TableRepository) *MetadataAssembler {
	return &MetadataAssembler{store: st, tables: tables}
}

// Assemble materializes the metadata document for the given table header.
// snapshots selects SnapshotsAll (default) or SnapshotsRefs.
func (a *MetadataAssembler) Assemble(ctx context.Context, q store.Querier, header *repositories.TableRow, snapshots string) (*models.TableMetadata, error) {
	schemaRows, err := a.tables.ListSchemas(ctx, q, header.ID)
	if err != nil {
		return nil, err
	}
	specRows, err := a.tables.ListPartitionSpecs(ctx, q, header.ID)
	if err != nil {
		return nil, err
	}
	orderRows, err := a.tables.ListSortOrders(ctx, q, header.ID)
	if err != nil {
		return nil, err
	}
	snapshotRows, err := a.tables.ListSnapshots(ctx, q, header.ID, snapshots == SnapshotsRefs)
	if err != nil {
		return nil, err
	}
	refRows, err := a.tables.ListRefs(ctx, q, header.ID)
	if err != nil {
		return nil, err
	}
	statRows, err := a.tables.ListStatistics(ctx, q, header.ID)
	if err != nil {
		return nil, err
	}
	partitionStatRows, err := a.tables.ListPartitionStatistics(ctx, q, header.ID)
	if err != nil {
		return nil, err
	}

	return assembleMetadata(header, schemaRows, specRows, orderRows, snapshotRows, refRows, statRows, partitionStatRows)
}

// assembleMetadata is the pure assembly step over fetched rows.
func assembleMetadata(
	header *repositories.TableRow,
	schemaRows, specRows, orderRows []repositories.JSONRow,
	snapshotRows []repositories.SnapshotRow,
	refRows []repositories.RefRow,
	statRows []repositories.StatisticsRow,
	partitionStatRows []repositories.PartitionStatisticsRow,
) (*models.TableMetadata, error) {
	schemas := make([]models.Schema, 0, len(schemaRows))
	for _, row := range schemaRows {
		schema, err := repairSchema(row)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}

	specs := make([]models.PartitionSpec, 0, len(specRows))
	for _, row := range specRows {
		spec, err := repairPartitionSpec(row, header.LastPartitionID)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	orders := make([]models.SortOrder, 0, len(orderRows))
	for _, row := range orderRows {
		order, err := repairSortOrder(row)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}

	snapshots := make([]models.Snapshot, 0, len(snapshotRows))
	for _, row := range snapshotRows {
		snapshot, err := snapshotFromRow(row)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}

	refs := make(map[string]models.SnapshotReference, len(refRows))
	for _, row := range refRows {
		ref := models.SnapshotReference{
			Type:       row.Type,
			SnapshotID: row.SnapshotID,
		}
		if row.MinSnapshotsToKeep.Valid {
			v := int(row.MinSnapshotsToKeep.Int64)
			ref.MinSnapshotsToKeep = &v
		}
		if row.MaxSnapshotAgeMs.Valid {
			v := row.MaxSnapshotAgeMs.Int64
			ref.MaxSnapshotAgeMs = &v
		}
		if row.MaxRefAgeMs.Valid {
			v := row.MaxRefAgeMs.Int64
			ref.MaxRefAgeMs = &v
		}
		refs[row.Name] = ref
	}

	properties := header.Properties
	if properties == nil {
		properties = map[string]string{}
	}

	metadata := &models.TableMetadata{
		FormatVersion:      header.FormatVersion,
		TableUUID:          header.TableUUID,
		Location:           header.Location,
		LastUpdatedMs:      header.LastUpdatedMs,
		Properties:         properties,
		Schemas:            schemas,
		CurrentSchemaID:    intPtr(header.CurrentSchemaID),
		LastColumnID:       intPtr(header.LastColumnID),
		PartitionSpecs:     specs,
		DefaultSpecID:      intPtr(header.DefaultSpecID),
		LastPartitionID:    intPtr(header.LastPartitionID),
		SortOrders:         orders,
		DefaultSortOrderID: intPtr(header.DefaultSortOrderID),
		Snapshots:          snapshots,
		Refs:               refs,
		LastSequenceNumber: int64Ptr(header.LastSequenceNumber),
	}

	if header.CurrentSnapshotID.Valid {
		v := header.CurrentSnapshotID.Int64
		metadata.CurrentSnapshotID = &v
	}
	if header.RowLineage.Valid {
		v := header.RowLineage.Bool
		metadata.RowLineage = &v
	}
	if header.NextRowID.Valid {
		v := header.NextRowID.Int64
		metadata.NextRowID = &v
	}

	for _, row := range statRows {
		stat := models.StatisticsFile{
			SnapshotID:            row.SnapshotID,
			StatisticsPath:        row.StatisticsPath,
			FileSizeInBytes:       row.FileSizeInBytes,
			FileFooterSizeInBytes: row.FileFooterSizeInBytes,
		}
		if len(row.BlobMetadata) > 0 {
			if err := json.Unmarshal(row.BlobMetadata, &stat.BlobMetadata); err != nil {
				return nil, fmt.Errorf("failed to decode blob metadata for snapshot %d: %w", row.SnapshotID, err)
			}
		}
		metadata.Statistics = append(metadata.Statistics, stat)
	}
	for _, row := range partitionStatRows {
		metadata.PartitionStatistics = append(metadata.PartitionStatistics, models.PartitionStatisticsFile{
			SnapshotID:      row.SnapshotID,
			StatisticsPath:  row.StatisticsPath,
			FileSizeInBytes: row.FileSizeInBytes,
		})
	}

	return metadata, nil
}

// repairSchema decodes a schema blob, inheriting a missing schema-id from
// the row's index column.
func repairSchema(row repositories.JSONRow) (models.Schema, error) {
	var schema models.Schema
	if err := json.Unmarshal(row.JSON, &schema); err != nil {
		return models.Schema{}, fmt.Errorf("failed to decode schema %d: %w", row.ID, err)
	}
	if schema.SchemaID == nil {
		id := row.ID
		schema.SchemaID = &id
	}
	if schema.Type == "" {
		schema.Type = "struct"
	}
	return schema, nil
}

// repairPartitionSpec decodes a spec blob, inheriting a missing spec-id from
// the row's index column and assigning missing field-ids by walking upward
// from the table's last assigned partition id.
func repairPartitionSpec(row repositories.JSONRow, lastPartitionID int) (models.PartitionSpec, error) {
	var spec models.PartitionSpec
	if err := json.Unmarshal(row.JSON, &spec); err != nil {
		return models.PartitionSpec{}, fmt.Errorf("failed to decode partition spec %d: %w", row.ID, err)
	}
	if spec.SpecID == nil {
		id := row.ID
		spec.SpecID = &id
	}

	lastFieldID := lastPartitionID
	for i := range spec.Fields {
		if spec.Fields[i].FieldID == nil {
			lastFieldID++
			id := lastFieldID
			spec.Fields[i].FieldID = &id
		}
	}
	if spec.Fields == nil {
		spec.Fields = []models.PartitionField{}
	}
	return spec, nil
}

// repairSortOrder decodes a sort order blob, inheriting a missing order-id
// from the row's index column.
func repairSortOrder(row repositories.JSONRow) (models.SortOrder, error) {
	var order models.SortOrder
	if err := json.Unmarshal(row.JSON, &order); err != nil {
		return models.SortOrder{}, fmt.Errorf("failed to decode sort order %d: %w", row.ID, err)
	}
	if order.OrderID == nil {
		id := row.ID
		order.OrderID = &id
	}
	if order.Fields == nil {
		order.Fields = []models.SortField{}
	}
	return order, nil
}

func snapshotFromRow(row repositories.SnapshotRow) (models.Snapshot, error) {
	snapshot := models.Snapshot{
		SnapshotID:   row.SnapshotID,
		TimestampMs:  row.TimestampMs,
		ManifestList: row.ManifestList,
	}
	if row.ParentSnapshotID.Valid {
		v := row.ParentSnapshotID.Int64
		snapshot.ParentSnapshotID = &v
	}
	if row.SequenceNumber.Valid {
		v := row.SequenceNumber.Int64
		snapshot.SequenceNumber = &v
	}
	if row.SchemaID.Valid {
		v := int(row.SchemaID.Int64)
		snapshot.SchemaID = &v
	}
	if len(row.Summary) > 0 {
		if err := json.Unmarshal(row.Summary, &snapshot.Summary); err != nil {
			return models.Snapshot{}, fmt.Errorf("failed to decode snapshot %d summary: %w", row.SnapshotID, err)
		}
	}
	return snapshot, nil
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }
