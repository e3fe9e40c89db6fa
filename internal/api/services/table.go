package services

import (
	"context"
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

// TableService drives the table lifecycle: create, load, exists, drop,
// rename, and metrics ingest. Evolution goes through the CommitService.
type TableService struct {
	store             *store.Store
	namespaces        *repositories.NamespaceRepository
	tables            *repositories.TableRepository
	metricsRepo       *repositories.MetricsRepository
	assembler         *MetadataAssembler
	credentials       *CredentialService
	config            *ConfigService
	cache             *TableResponseCache
	fallbackWarehouse string
	logger            *slog.Logger
}

// NewTableService creates a new TableService.
func NewTableService(
	st *store.Store,
	namespaces *repositories.NamespaceRepository,
	tables *repositories.TableRepository,
	metricsRepo *repositories.MetricsRepository,
	assembler *MetadataAssembler,
	credentials *CredentialService,
	config *ConfigService,
	cache *TableResponseCache,
	fallbackWarehouse string,
	logger *slog.Logger,
) *TableService {
	return &TableService{
		store:             st,
		namespaces:        namespaces,
		tables:            tables,
		metricsRepo:       metricsRepo,
		assembler:         assembler,
		credentials:       credentials,
		config:            config,
		cache:             cache,
		fallbackWarehouse: fallbackWarehouse,
		logger:            logger.With("component", "table-service"),
	}
}

// ETagFor formats the version marker for a table: "{uuid}-{ms}", quotes
// included.
func ETagFor(tableUUID string, lastUpdatedMs int64) string {
	return fmt.Sprintf("%q", fmt.Sprintf("%s-%d", tableUUID, lastUpdatedMs))
}

// deriveLocation builds the default table location from the warehouse and
// the dotted namespace path.
func deriveLocation(warehouse string, namespace []string, name string) string {
	return fmt.Sprintf("%s/%s/%s", strings.TrimSuffix(warehouse, "/"), strings.Join(namespace, "."), name)
}

// initialMetadataLocation names the first metadata file of a new table.
func initialMetadataLocation(location string) string {
	return fmt.Sprintf("%s/metadata/00000-%s.metadata.json", location, uuid.New().String())
}

// List returns a lexicographic page of table identifiers in a namespace.
func (s *TableService) List(ctx context.Context, namespace []string, pageToken string, pageSize int) (*models.ListTablesResponse, error) {
	q := s.store.Querier()

	namespaceID, err := s.namespaces.GetID(ctx, q, namespace)
	if err != nil {
		if errors.Is(err, repositories.ErrNamespaceNotFound) {
			return nil, &NotFoundError{Resource: "namespace", ID: strings.Join(namespace, ".")}
		}
		return nil, fmt.Errorf("failed to resolve namespace: %w", err)
	}

	afterKey := ""
	if pageToken != "" {
		decoded, err := decodePageToken(pageToken)
		if err != nil {
			return nil, err
		}
		afterKey = decoded
	}

	limit := 0
	if pageSize > 0 {
		limit = pageSize + 1
	}

	names, err := s.tables.ListNames(ctx, q, namespaceID, afterKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}

	hasMore := false
	if pageSize > 0 && len(names) > pageSize {
		hasMore = true
		names = names[:pageSize]
	}

	resp := &models.ListTablesResponse{Identifiers: make([]models.TableIdentifier, 0, len(names))}
	for _, name := range names {
		resp.Identifiers = append(resp.Identifiers, models.TableIdentifier{
			Namespace: models.Namespace(namespace),
			Name:      name,
		})
	}
	if hasMore {
		resp.NextPageToken = encodePageToken(names[len(names)-1])
	}
	return resp, nil
}

// Exists reports whether a table exists in a namespace.
func (s *TableService) Exists(ctx context.Context, namespace []string, name string) (bool, error) {
	return s.tables.Exists(ctx, s.store.Querier(), namespace, name)
}

// Create registers a new table with a fresh uuid, an initial schema,
// partition spec, and sort order, and zero snapshots.
func (s *TableService) Create(ctx context.Context, namespace []string, req *models.CreateTableRequest) (*models.LoadTableResult, string, error) {
	if len(req.Schema.Fields) == 0 {
		return nil, "", &ValidationError{Message: "table schema must have at least one field"}
	}

	identifier := strings.Join(namespace, ".") + "." + req.Name
	q := s.store.Querier()

	namespaceID, err := s.namespaces.GetID(ctx, q, namespace)
	if err != nil {
		if errors.Is(err, repositories.ErrNamespaceNotFound) {
			return nil, "", &NotFoundError{Resource: "namespace", ID: strings.Join(namespace, ".")}
		}
		return nil, "", fmt.Errorf("failed to resolve namespace: %w", err)
	}

	exists, err := s.tables.Exists(ctx, q, namespace, req.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check table existence: %w", err)
	}
	if exists {
		return nil, "", &ConflictError{Resource: "table", ID: identifier}
	}

	tableUUID := uuid.New().String()
	nowMs := time.Now().UnixMilli()
	formatVersion := 2

	location := req.Location
	if location == "" {
		warehouse := s.config.DefaultWarehouseLocation(ctx, s.fallbackWarehouse)
		location = deriveLocation(warehouse, namespace, req.Name)
	}

	// Initial child row ids are all zero.
	schemaID := 0
	specID := 0
	sortOrderID := 0

	schema := req.Schema
	if schema.SchemaID == nil {
		schema.SchemaID = &schemaID
	}
	if schema.Type == "" {
		schema.Type = "struct"
	}
	lastColumnID := schema.MaxFieldID()

	spec := models.PartitionSpec{SpecID: &specID, Fields: []models.PartitionField{}}
	lastPartitionID := 0
	if req.PartitionSpec != nil {
		spec = *req.PartitionSpec
		if spec.SpecID == nil {
			spec.SpecID = &specID
		}
		spec.Fields, lastPartitionID = assignPartitionFieldIDs(spec.Fields, 0)
	}

	order := models.SortOrder{OrderID: &sortOrderID, Fields: []models.SortField{}}
	if req.WriteOrder != nil {
		order = *req.WriteOrder
		order.OrderID = &sortOrderID
	}

	properties := req.Properties
	if properties == nil {
		properties = map[string]string{}
	}

	var tableID int64
	err = s.store.WithinTx(ctx, func(tx store.Querier) error {
		id, err := s.tables.Insert(ctx, tx, repositories.InsertParams{
			NamespaceID:        namespaceID,
			Name:               req.Name,
			TableUUID:          tableUUID,
			Location:           location,
			FormatVersion:      formatVersion,
			LastUpdatedMs:      nowMs,
			LastColumnID:       lastColumnID,
			SchemaID:           schemaID,
			CurrentSchemaID:    schemaID,
			DefaultSpecID:      specID,
			LastPartitionID:    lastPartitionID,
			DefaultSortOrderID: sortOrderID,
			Properties:         properties,
		})
		if err != nil {
			if errors.Is(err, repositories.ErrTableExists) {
				return &ConflictError{Resource: "table", ID: identifier}
			}
			return err
		}
		tableID = id

		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return fmt.Errorf("failed to marshal schema: %w", err)
		}
		if err := s.tables.InsertSchema(ctx, tx, tableID, schemaID, schemaJSON); err != nil {
			return err
		}

		specJSON, err := json.Marshal(spec)
		if err != nil {
			return fmt.Errorf("failed to marshal partition spec: %w", err)
		}
		if err := s.tables.InsertPartitionSpec(ctx, tx, tableID, specID, specJSON); err != nil {
			return err
		}

		orderJSON, err := json.Marshal(order)
		if err != nil {
			return fmt.Errorf("failed to marshal sort order: %w", err)
		}
		if err := s.tables.InsertSortOrder(ctx, tx, tableID, sortOrderID, orderJSON); err != nil {
			return err
		}

		if req.Credentials != nil {
			if err := s.credentials.RegisterInline(ctx, tx, namespace, location, req.Credentials.Config); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("table created", "table", identifier, "uuid", tableUUID)

	metadata := models.TableMetadata{
		FormatVersion:      formatVersion,
		TableUUID:          tableUUID,
		Location:           location,
		LastUpdatedMs:      nowMs,
		Properties:         properties,
		Schemas:            []models.Schema{schema},
		CurrentSchemaID:    &schemaID,
		LastColumnID:       &lastColumnID,
		PartitionSpecs:     []models.PartitionSpec{spec},
		DefaultSpecID:      &specID,
		LastPartitionID:    &lastPartitionID,
		SortOrders:         []models.SortOrder{order},
		DefaultSortOrderID: &sortOrderID,
		Snapshots:          []models.Snapshot{},
		Refs:               map[string]models.SnapshotReference{},
		LastSequenceNumber: int64Ptr(0),
	}

	config, credentials := s.resolveAccess(ctx, tableID, location, namespace)
	result := &models.LoadTableResult{
		MetadataLocation:   initialMetadataLocation(location),
		Metadata:           metadata,
		Config:             config,
		StorageCredentials: credentials,
	}
	return result, ETagFor(tableUUID, nowMs), nil
}

// LoadResult carries the outcome of a conditional table load.
type LoadResult struct {
	// Result is the envelope to return, nil for a bodyless 304.
	Result *models.LoadTableResult

	// ETag is the current version marker of the table.
	ETag string

	// NotModified is set when the caller's ETag matched.
	NotModified bool
}

// Load materializes the metadata document for a table. When ifNoneMatch
// equals the current ETag, the cached envelope (with fresh config and
// credentials) is returned if present, otherwise a bodyless not-modified
// result.
func (s *TableService) Load(ctx context.Context, namespace []string, name string, snapshots string, ifNoneMatch string) (*LoadResult, error) {
	q := s.store.Querier()
	identifier := strings.Join(namespace, ".") + "." + name

	header, err := s.tables.GetByName(ctx, q, namespace, name)
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return nil, &NotFoundError{Resource: "table", ID: identifier}
		}
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	etag := ETagFor(header.TableUUID, header.LastUpdatedMs)

	// Credential lookup degrades gracefully: a failed resolution returns an
	// empty list but the load still succeeds.
	config, credentials := s.resolveAccess(ctx, header.ID, header.Location, namespace)

	if ifNoneMatch != "" && ifNoneMatch == etag {
		if cached, ok := s.cache.Get(namespace, name); ok {
			cached.Config = config
			cached.StorageCredentials = credentials
			metrics.CatalogTableLoadsTotal.WithLabelValues("cached").Inc()
			s.logger.Debug("conditional load served from cache", "table", identifier)
			return &LoadResult{Result: &cached, ETag: etag, NotModified: true}, nil
		}
		metrics.CatalogTableLoadsTotal.WithLabelValues("not_modified").Inc()
		return &LoadResult{ETag: etag, NotModified: true}, nil
	}

	metadata, err := s.assembler.Assemble(ctx, q, header, snapshots)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble table metadata: %w", err)
	}

	result := models.LoadTableResult{
		MetadataLocation:   fmt.Sprintf("%s/metadata/current.metadata.json", header.Location),
		Metadata:           *metadata,
		Config:             config,
		StorageCredentials: credentials,
	}

	s.cache.Put(namespace, name, result)
	metrics.CatalogTableLoadsTotal.WithLabelValues("full").Inc()
	s.logger.Info("table loaded", "table", identifier)
	return &LoadResult{Result: &result, ETag: etag}, nil
}

// resolveAccess resolves the config envelope and credential bundles for a
// table, degrading to empty values on resolver errors.
func (s *TableService) resolveAccess(ctx context.Context, tableID int64, location string, namespace []string) (map[string]string, []models.StorageCredential) {
	rootLabel := ""
	if len(namespace) > 0 {
		rootLabel = namespace[0]
	}

	config, err := s.credentials.TableConfig(ctx, location)
	if err != nil {
		s.logger.Warn("failed to derive table config", "table_id", tableID, "error", err)
		config = map[string]string{}
	}

	credentials, err := s.credentials.ResolveForTable(ctx, tableID, location, rootLabel)
	if err != nil {
		s.logger.Warn("failed to resolve storage credentials", "table_id", tableID, "error", err)
		credentials = []models.StorageCredential{}
	}
	return config, credentials
}

// LoadCredentials returns the credential bundles for a table.
func (s *TableService) LoadCredentials(ctx context.Context, namespace []string, name string) (*models.LoadCredentialsResponse, error) {
	identifier := strings.Join(namespace, ".") + "." + name

	header, err := s.tables.GetByName(ctx, s.store.Querier(), namespace, name)
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return nil, &NotFoundError{Resource: "table", ID: identifier}
		}
		return nil, fmt.Errorf("failed to load table: %w", err)
	}

	rootLabel := ""
	if len(namespace) > 0 {
		rootLabel = namespace[0]
	}
	credentials, err := s.credentials.ResolveForTable(ctx, header.ID, header.Location, rootLabel)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	if credentials == nil {
		credentials = []models.StorageCredential{}
	}
	return &models.LoadCredentialsResponse{StorageCredentials: credentials}, nil
}

// Drop deletes a table and, via cascade, all its child rows. The purge flag
// is recorded in logs only; no data files are touched.
func (s *TableService) Drop(ctx context.Context, namespace []string, name string, purgeRequested bool) error {
	identifier := strings.Join(namespace, ".") + "." + name
	q := s.store.Querier()

	if _, err := s.namespaces.GetID(ctx, q, namespace); err != nil {
		if errors.Is(err, repositories.ErrNamespaceNotFound) {
			return &NotFoundError{Resource: "namespace", ID: strings.Join(namespace, ".")}
		}
		return fmt.Errorf("failed to resolve namespace: %w", err)
	}

	header, err := s.tables.GetByName(ctx, q, namespace, name)
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return &NotFoundError{Resource: "table", ID: identifier}
		}
		return fmt.Errorf("failed to resolve table: %w", err)
	}

	if err := s.tables.Delete(ctx, q, header.ID); err != nil {
		return fmt.Errorf("failed to drop table: %w", err)
	}

	s.cache.Invalidate(namespace, name)
	s.logger.Info("table dropped", "table", identifier, "purge_requested", purgeRequested, "location", header.Location)
	return nil
}

// Rename moves a table to a new (namespace, name). The most specific
// failure wins: missing namespaces precede a missing source table, which
// precedes a destination conflict.
func (s *TableService) Rename(ctx context.Context, req *models.RenameTableRequest) error {
	source := strings.Join(req.Source.Namespace, ".") + "." + req.Source.Name
	destination := strings.Join(req.Destination.Namespace, ".") + "." + req.Destination.Name

	return s.store.WithinTx(ctx, func(q store.Querier) error {
		sourceNamespaceID, err := s.namespaces.GetID(ctx, q, req.Source.Namespace)
		if err != nil {
			if errors.Is(err, repositories.ErrNamespaceNotFound) {
				return &NotFoundError{Resource: "namespace", ID: strings.Join(req.Source.Namespace, ".")}
			}
			return fmt.Errorf("failed to resolve source namespace: %w", err)
		}

		destNamespaceID, err := s.namespaces.GetID(ctx, q, req.Destination.Namespace)
		if err != nil {
			if errors.Is(err, repositories.ErrNamespaceNotFound) {
				return &NotFoundError{Resource: "namespace", ID: strings.Join(req.Destination.Namespace, ".")}
			}
			return fmt.Errorf("failed to resolve destination namespace: %w", err)
		}

		sourceExists, err := s.tables.Exists(ctx, q, req.Source.Namespace, req.Source.Name)
		if err != nil {
			return fmt.Errorf("failed to check source table: %w", err)
		}
		if !sourceExists {
			return &NotFoundError{Resource: "table", ID: source}
		}

		destExists, err := s.tables.Exists(ctx, q, req.Destination.Namespace, req.Destination.Name)
		if err != nil {
			return fmt.Errorf("failed to check destination table: %w", err)
		}
		if destExists {
			return &ConflictError{Resource: "table", ID: destination}
		}

		if err := s.tables.Rename(ctx, q, sourceNamespaceID, req.Source.Name, destNamespaceID, req.Destination.Name); err != nil {
			if errors.Is(err, repositories.ErrTableExists) {
				return &ConflictError{Resource: "table", ID: destination}
			}
			return fmt.Errorf("failed to rename table: %w", err)
		}

		s.cache.Invalidate(req.Source.Namespace, req.Source.Name)
		s.logger.Info("table renamed", "source", source, "destination", destination)
		return nil
	})
}

// ReportMetrics appends an operation metrics row for a table. A request
// carrying both a filter and a schema id is a scan report; anything else is
// a commit report.
func (s *TableService) ReportMetrics(ctx context.Context, namespace []string, name string, req *models.ReportMetricsRequest) error {
	identifier := strings.Join(namespace, ".") + "." + name
	q := s.store.Querier()

	header, err := s.tables.GetByName(ctx, q, namespace, name)
	if err != nil {
		if errors.Is(err, repositories.ErrTableNotFound) {
			return &NotFoundError{Resource: "table", ID: identifier}
		}
		return fmt.Errorf("failed to resolve table: %w", err)
	}

	var metadataJSON []byte
	if len(req.Metadata) > 0 {
		metadataJSON, err = json.Marshal(req.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal report metadata: %w", err)
		}
	}

	if req.IsScanReport() {
		err = s.metricsRepo.InsertScanReport(ctx, q, repositories.ScanReportParams{
			TableID:             header.ID,
			ReportType:          req.ReportType,
			SnapshotID:          req.SnapshotID,
			FilterJSON:          req.Filter,
			SchemaID:            req.SchemaID,
			ProjectedFieldIDs:   req.ProjectedFieldIDs,
			ProjectedFieldNames: req.ProjectedFieldNames,
			MetricsJSON:         req.Metrics,
			MetadataJSON:        metadataJSON,
		})
	} else {
		err = s.metricsRepo.InsertCommitReport(ctx, q, repositories.CommitReportParams{
			TableID:        header.ID,
			ReportType:     req.ReportType,
			SnapshotID:     req.SnapshotID,
			SequenceNumber: req.SequenceNumber,
			Operation:      req.Operation,
			MetricsJSON:    req.Metrics,
			MetadataJSON:   metadataJSON,
		})
	}
	if err != nil {
		return err
	}

	s.logger.Info("metrics recorded", "table", identifier, "report_type", req.ReportType)
	return nil
}

// assignPartitionFieldIDs fills missing field-ids in order, advancing from
// lastPartitionID, and returns the fields with the new high-water mark.
func assignPartitionFieldIDs(fields []models.PartitionField, lastPartitionID int) ([]models.PartitionField, int) {
	for i := range fields {
		if fields[i].FieldID == nil {
			lastPartitionID++
			id := lastPartitionID
			fields[i].FieldID = &id
		} else if *fields[i].FieldID > lastPartitionID {
			lastPartitionID = *fields[i].FieldID
		}
	}
	return fields, lastPartitionID
}
