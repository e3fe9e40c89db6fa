package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/repositories"
	"github.com/janovincze/icecat/internal/metrics"
	"github.com/janovincze/icecat/internal/store"
)

// Transaction states recorded for multi-table commits.
const (
	transactionStatusCommitting = "committing"
	transactionStatusCompleted  = "completed"
)

// CommitService validates a commit's requirements against current table
// state and applies its ordered updates inside a single backend transaction.
// It also drives multi-table transactions.
type CommitService struct {
	store        *store.Store
	namespaces   *repositories.NamespaceRepository
	tables       *repositories.TableRepository
	transactions *repositories.TransactionRepository
	assembler    *MetadataAssembler
	cache        *TableResponseCache
	logger       *slog.Logger
}

// NewCommitService creates a new CommitService.
func NewCommitService(
	st *store.Store,
	namespaces *repositories.NamespaceRepository,
	tables *repositories.TableRepository,
	transactions *repositories.TransactionRepository,
	assembler *MetadataAssembler,
	cache *TableResponseCache,
	logger *slog.Logger,
) *CommitService {
	return &CommitService{
		store:        st,
		namespaces:   namespaces,
		tables:       tables,
		transactions: transactions,
		assembler:    assembler,
		cache:        cache,
		logger:       logger.With("component", "commit-service"),
	}
}

// UpdateTable applies a single-table commit and returns the rematerialized
// metadata document with its freshly minted metadata location.
func (s *CommitService) UpdateTable(ctx context.Context, namespace []string, name string, req *models.CommitTableRequest) (*models.CommitTableResponse, error) {
	identifier := strings.Join(namespace, ".") + "." + name
	started := time.Now()

	var resp *models.CommitTableResponse
	err := s.store.WithinTx(ctx, func(tx store.Querier) error {
		header, metadataLocation, err := s.commitTable(ctx, tx, namespace, name, req)
		if err != nil {
			return err
		}

		metadata, err := s.assembler.Assemble(ctx, tx, header, SnapshotsAll)
		if err != nil {
			return fmt.Errorf("failed to rematerialize table metadata: %w", err)
		}

		resp = &models.CommitTableResponse{
			MetadataLocation: metadataLocation,
			Metadata:         *metadata,
		}
		return nil
	})
	if err != nil {
		metrics.CatalogCommitsTotal.WithLabelValues("failure").Inc()
		return nil, err
	}

	s.cache.Invalidate(namespace, name)
	metrics.CatalogCommitsTotal.WithLabelValues("success").Inc()
	metrics.CatalogCommitDuration.Observe(time.Since(started).Seconds())
	s.logger.Info("table committed", "table", identifier, "updates", len(req.Updates))
	return resp, nil
}

// CommitTransaction applies multiple table commits atomically. A
// transaction row is recorded in state committing and moved to completed on
// success; any failure rolls the whole transaction back, partial effects
// included.
func (s *CommitService) CommitTransaction(ctx context.Context, req *models.CommitTransactionRequest) error {
	if len(req.TableChanges) == 0 {
		return &ValidationError{Message: "transaction must carry at least one table change"}
	}

	transactionID := uuid.New().String()
	type committed struct {
		namespace []string
		name      string
	}
	var tables []committed

	err := s.store.WithinTx(ctx, func(tx store.Querier) error {
		if err := s.transactions.Insert(ctx, tx, transactionID, transactionStatusCommitting); err != nil {
			return err
		}

		for _, change := range req.TableChanges {
			if change.Identifier == nil {
				return &ValidationError{Message: "table identifier is required for transaction changes"}
			}
			change := change
			namespace := []string(change.Identifier.Namespace)
			name := change.Identifier.Name

			if _, _, err := s.commitTable(ctx, tx, namespace, name, &change); err != nil {
				return err
			}
			tables = append(tables, committed{namespace: namespace, name: name})
		}

		return s.transactions.UpdateStatus(ctx, tx, transactionID, transactionStatusCompleted)
	})
	if err != nil {
		metrics.CatalogCommitsTotal.WithLabelValues("failure").Inc()
		return err
	}

	for _, t := range tables {
		s.cache.Invalidate(t.namespace, t.name)
	}
	metrics.CatalogCommitsTotal.WithLabelValues("success").Inc()
	s.logger.Info("transaction committed", "transaction_id", transactionID, "tables", len(tables))
	return nil
}

// commitTable runs the shared single-table flow inside tx: lock the header,
// validate requirements in order, apply updates sequentially (re-reading the
// header after each so later updates observe earlier ones), stamp
// last_updated_ms, and append the metadata log entry. It returns the final
// header and the new metadata location.
func (s *CommitService) commitTable(ctx context.Context, tx store.Querier, namespace []string, name string, req *models.CommitTableRequest) (*repositories.TableRow, string, error) {
	identifier := strings.Join(namespace, ".") + "." + name

	namespaceID, err := s.namespaces.GetID(ctx, tx, namespace)
	if err != nil {
		if errors.Is(err, repositories.ErrNamespaceNotFound) {
			return nil, "", &NotFoundError{Resource: "namespace", ID: strings.Join(namespace, ".")}
		}
		return nil, "", fmt.Errorf("failed to resolve namespace: %w", err)
	}

	header, err := s.tables.GetByNameForUpdate(ctx, tx, namespaceID, name)
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return nil, "", &NotFoundError{Resource: "table", ID: identifier}
		}
		return nil, "", fmt.Errorf("failed to load table for commit: %w", err)
	}

	for _, requirement := range req.Requirements {
		ok, err := s.validateRequirement(ctx, tx, header, requirement)
		if err != nil {
			return nil, "", err
		}
		if !ok {
			return nil, "", &PreconditionFailedError{RequirementType: requirement.RequirementType()}
		}
	}

	for _, update := range req.Updates {
		if err := s.applyUpdate(ctx, tx, header, update); err != nil {
			return nil, "", err
		}
		header, err = s.tables.GetByID(ctx, tx, header.ID)
		if err != nil {
			return nil, "", fmt.Errorf("failed to reload table header: %w", err)
		}
	}

	nowMs := time.Now().UnixMilli()
	if err := s.tables.TouchLastUpdated(ctx, tx, header.ID, nowMs); err != nil {
		return nil, "", err
	}
	header.LastUpdatedMs = nowMs

	metadataLocation := fmt.Sprintf("%s/metadata/%05d-%s.metadata.json",
		header.Location, header.FormatVersion, uuid.New().String())
	if err := s.tables.AppendMetadataLog(ctx, tx, header.ID, metadataLocation, nowMs); err != nil {
		return nil, "", err
	}

	return header, metadataLocation, nil
}

// validateRequirement evaluates one precondition against the locked table
// header. An unrecognized requirement type fails.
func (s *CommitService) validateRequirement(ctx context.Context, q store.Querier, header *repositories.TableRow, requirement models.TableRequirement) (bool, error) {
	switch r := requirement.(type) {
	case models.AssertCreate:
		// The table was already resolved, so it exists.
		return false, nil

	case models.AssertTableUUID:
		return header.TableUUID == r.UUID, nil

	case models.AssertRefSnapshotID:
		ref, err := s.tables.GetRef(ctx, q, header.ID, r.Ref)
		if err != nil {
			if errors.Is(err, repositories.ErrRefNotFound) {
				return r.SnapshotID == nil, nil
			}
			return false, err
		}
		if r.SnapshotID == nil {
			return false, nil
		}
		return ref.SnapshotID == *r.SnapshotID, nil

	case models.AssertLastAssignedFieldID:
		return header.LastColumnID == r.LastAssignedFieldID, nil

	case models.AssertCurrentSchemaID:
		return header.CurrentSchemaID == r.CurrentSchemaID, nil

	case models.AssertLastAssignedPartitionID:
		return header.LastPartitionID == r.LastAssignedPartitionID, nil

	case models.AssertDefaultSpecID:
		return header.DefaultSpecID == r.DefaultSpecID, nil

	case models.AssertDefaultSortOrderID:
		return header.DefaultSortOrderID == r.DefaultSortOrderID, nil

	default:
		s.logger.Warn("unknown requirement type", "type", requirement.RequirementType())
		return false, nil
	}
}

// applyUpdate applies one update against the current header state.
func (s *CommitService) applyUpdate(ctx context.Context, q store.Querier, header *repositories.TableRow, update models.TableUpdate) error {
	switch u := update.(type) {
	case models.AssignUUIDUpdate:
		return s.tables.SetUUID(ctx, q, header.ID, u.UUID)

	case models.UpgradeFormatVersionUpdate:
		if u.FormatVersion < 1 || u.FormatVersion > 2 {
			return &ValidationError{Message: fmt.Sprintf("unsupported format version: %d", u.FormatVersion)}
		}
		return s.tables.SetFormatVersion(ctx, q, header.ID, u.FormatVersion)

	case models.AddSchemaUpdate:
		return s.applyAddSchema(ctx, q, header, u)

	case models.SetCurrentSchemaUpdate:
		schemaID := u.SchemaID
		if schemaID == -1 {
			max, err := s.tables.MaxSchemaID(ctx, q, header.ID)
			if err != nil {
				return err
			}
			if max < 0 {
				max = 0
			}
			schemaID = max
		}
		return s.tables.SetCurrentSchemaID(ctx, q, header.ID, schemaID)

	case models.AddSpecUpdate:
		return s.applyAddSpec(ctx, q, header, u)

	case models.SetDefaultSpecUpdate:
		specID := u.SpecID
		if specID == -1 {
			max, err := s.tables.MaxPartitionSpecID(ctx, q, header.ID)
			if err != nil {
				return err
			}
			if max < 0 {
				max = 0
			}
			specID = max
		}
		return s.tables.SetDefaultSpecID(ctx, q, header.ID, specID)

	case models.AddSortOrderUpdate:
		order := u.SortOrder
		if order.OrderID == nil {
			max, err := s.tables.MaxSortOrderID(ctx, q, header.ID)
			if err != nil {
				return err
			}
			id := max + 1
			order.OrderID = &id
		}
		orderJSON, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("failed to marshal sort order: %w", err)
		}
		return s.tables.InsertSortOrder(ctx, q, header.ID, *order.OrderID, orderJSON)

	case models.SetDefaultSortOrderUpdate:
		orderID := u.SortOrderID
		if orderID == -1 {
			max, err := s.tables.MaxSortOrderID(ctx, q, header.ID)
			if err != nil {
				return err
			}
			if max < 0 {
				max = 0
			}
			orderID = max
		}
		return s.tables.SetDefaultSortOrderID(ctx, q, header.ID, orderID)

	case models.AddSnapshotUpdate:
		return s.applyAddSnapshot(ctx, q, header, u)

	case models.SetSnapshotRefUpdate:
		exists, err := s.tables.SnapshotExists(ctx, q, header.ID, u.SnapshotID)
		if err != nil {
			return err
		}
		if !exists {
			return &ValidationError{Message: fmt.Sprintf("snapshot %d does not exist for ref %s", u.SnapshotID, u.RefName)}
		}
		ref := repositories.RefRow{
			Name:       u.RefName,
			SnapshotID: u.SnapshotID,
			Type:       u.Type,
		}
		if u.MinSnapshotsToKeep != nil {
			ref.MinSnapshotsToKeep = sql.NullInt64{Int64: int64(*u.MinSnapshotsToKeep), Valid: true}
		}
		if u.MaxSnapshotAgeMs != nil {
			ref.MaxSnapshotAgeMs = sql.NullInt64{Int64: *u.MaxSnapshotAgeMs, Valid: true}
		}
		if u.MaxRefAgeMs != nil {
			ref.MaxRefAgeMs = sql.NullInt64{Int64: *u.MaxRefAgeMs, Valid: true}
		}
		return s.tables.UpsertRef(ctx, q, header.ID, ref)

	case models.RemoveSnapshotsUpdate:
		return s.tables.DeleteSnapshots(ctx, q, header.ID, u.SnapshotIDs)

	case models.RemoveSnapshotRefUpdate:
		return s.tables.DeleteRef(ctx, q, header.ID, u.RefName)

	case models.RemovePartitionSpecsUpdate:
		return s.tables.DeletePartitionSpecs(ctx, q, header.ID, u.SpecIDs)

	case models.RemoveSchemasUpdate:
		return s.tables.DeleteSchemas(ctx, q, header.ID, u.SchemaIDs)

	case models.SetLocationUpdate:
		return s.tables.SetLocation(ctx, q, header.ID, u.Location)

	case models.SetPropertiesUpdate:
		properties := cloneProperties(header.Properties)
		for key, value := range u.Updates {
			properties[key] = value
		}
		return s.tables.SetProperties(ctx, q, header.ID, properties)

	case models.RemovePropertiesUpdate:
		properties := cloneProperties(header.Properties)
		for _, key := range u.Removals {
			delete(properties, key)
		}
		return s.tables.SetProperties(ctx, q, header.ID, properties)

	case models.SetStatisticsUpdate:
		blobJSON, err := json.Marshal(u.Statistics.BlobMetadata)
		if err != nil {
			return fmt.Errorf("failed to marshal blob metadata: %w", err)
		}
		return s.tables.UpsertStatistics(ctx, q, header.ID, repositories.StatisticsRow{
			SnapshotID:            u.Statistics.SnapshotID,
			StatisticsPath:        u.Statistics.StatisticsPath,
			FileSizeInBytes:       u.Statistics.FileSizeInBytes,
			FileFooterSizeInBytes: u.Statistics.FileFooterSizeInBytes,
			BlobMetadata:          blobJSON,
		})

	case models.SetPartitionStatisticsUpdate:
		return s.tables.UpsertPartitionStatistics(ctx, q, header.ID, repositories.PartitionStatisticsRow{
			SnapshotID:      u.PartitionStatistics.SnapshotID,
			StatisticsPath:  u.PartitionStatistics.StatisticsPath,
			FileSizeInBytes: u.PartitionStatistics.FileSizeInBytes,
		})

	case models.RemoveStatisticsUpdate:
		return s.tables.DeleteStatistics(ctx, q, header.ID, u.SnapshotID)

	case models.RemovePartitionStatisticsUpdate:
		return s.tables.DeletePartitionStatistics(ctx, q, header.ID, u.SnapshotID)

	case models.EnableRowLineageUpdate:
		return s.tables.EnableRowLineage(ctx, q, header.ID)

	default:
		// Unknown actions are rejected at decode time; this is a backstop.
		return &ValidationError{Message: fmt.Sprintf("unsupported update action: %s", update.Action())}
	}
}

func (s *CommitService) applyAddSchema(ctx context.Context, q store.Querier, header *repositories.TableRow, u models.AddSchemaUpdate) error {
	schema := u.Schema
	if schema.Type == "" {
		schema.Type = "struct"
	}
	if schema.SchemaID == nil {
		max, err := s.tables.MaxSchemaID(ctx, q, header.ID)
		if err != nil {
			return err
		}
		id := max + 1
		schema.SchemaID = &id
	}

	lastColumnID := header.LastColumnID
	if maxField := schema.MaxFieldID(); maxField > lastColumnID {
		lastColumnID = maxField
	}
	if u.LastColumnID != nil && *u.LastColumnID > lastColumnID {
		lastColumnID = *u.LastColumnID
	}

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}
	if err := s.tables.InsertSchema(ctx, q, header.ID, *schema.SchemaID, schemaJSON); err != nil {
		return err
	}
	return s.tables.SetLastColumnID(ctx, q, header.ID, lastColumnID)
}

func (s *CommitService) applyAddSpec(ctx context.Context, q store.Querier, header *repositories.TableRow, u models.AddSpecUpdate) error {
	spec := u.Spec
	if spec.SpecID == nil {
		max, err := s.tables.MaxPartitionSpecID(ctx, q, header.ID)
		if err != nil {
			return err
		}
		id := max + 1
		spec.SpecID = &id
	}

	fields, lastPartitionID := assignPartitionFieldIDs(spec.Fields, header.LastPartitionID)
	spec.Fields = fields

	specJSON, err := json.Marshal(spec)
	if err != nil {
		return fmt.Errorf("failed to marshal partition spec: %w", err)
	}
	if err := s.tables.InsertPartitionSpec(ctx, q, header.ID, *spec.SpecID, specJSON); err != nil {
		return err
	}
	return s.tables.SetLastPartitionID(ctx, q, header.ID, lastPartitionID)
}

func (s *CommitService) applyAddSnapshot(ctx context.Context, q store.Querier, header *repositories.TableRow, u models.AddSnapshotUpdate) error {
	snapshot := u.Snapshot
	if op := snapshot.Summary.Operation(); !validSnapshotOperation(op) {
		return &ValidationError{Message: fmt.Sprintf("invalid snapshot summary operation: %q", op)}
	}
	if snapshot.ParentSnapshotID != nil {
		exists, err := s.tables.SnapshotExists(ctx, q, header.ID, *snapshot.ParentSnapshotID)
		if err != nil {
			return err
		}
		if !exists {
			return &ValidationError{Message: fmt.Sprintf("parent snapshot %d does not exist", *snapshot.ParentSnapshotID)}
		}
	}

	summaryJSON, err := json.Marshal(snapshot.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot summary: %w", err)
	}

	row := repositories.SnapshotRow{
		SnapshotID:   snapshot.SnapshotID,
		TimestampMs:  snapshot.TimestampMs,
		ManifestList: snapshot.ManifestList,
		Summary:      summaryJSON,
	}
	if snapshot.ParentSnapshotID != nil {
		row.ParentSnapshotID = sql.NullInt64{Int64: *snapshot.ParentSnapshotID, Valid: true}
	}
	if snapshot.SequenceNumber != nil {
		row.SequenceNumber = sql.NullInt64{Int64: *snapshot.SequenceNumber, Valid: true}
	}
	if snapshot.SchemaID != nil {
		row.SchemaID = sql.NullInt64{Int64: int64(*snapshot.SchemaID), Valid: true}
	}
	if err := s.tables.InsertSnapshot(ctx, q, header.ID, row); err != nil {
		return err
	}

	sequenceNumber := int64(0)
	if snapshot.SequenceNumber != nil {
		sequenceNumber = *snapshot.SequenceNumber
	}
	return s.tables.AdvanceSnapshot(ctx, q, header.ID, snapshot.SnapshotID, sequenceNumber)
}

func validSnapshotOperation(op string) bool {
	switch op {
	case "append", "replace", "overwrite", "delete":
		return true
	default:
		return false
	}
}

func cloneProperties(properties map[string]string) map[string]string {
	clone := make(map[string]string, len(properties))
	for k, v := range properties {
		clone[k] = v
	}
	return clone
}
