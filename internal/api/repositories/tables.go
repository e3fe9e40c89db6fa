package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/janovincze/icecat/internal/store"
)

// Table repository errors.
var (
	ErrTableNotFound = errors.New("table not found")
	ErrTableExists   = errors.New("table already exists")
	ErrRefNotFound   = errors.New("snapshot ref not found")
)

// TableRepository handles database operations for tables and their child
// rows (schemas, partition specs, sort orders, snapshots, refs, statistics,
// metadata log).
type TableRepository struct {
	store *store.Store
}

// NewTableRepository creates a new TableRepository.
func NewTableRepository(st *store.Store) *TableRepository {
	return &TableRepository{store: st}
}

// TableRow is the normalized table header row.
type TableRow struct {
	ID                 int64
	NamespaceID        int64
	Name               string
	TableUUID          string
	Location           string
	FormatVersion      int
	LastUpdatedMs      int64
	LastSequenceNumber int64
	LastColumnID       int
	SchemaID           int
	CurrentSchemaID    int
	DefaultSpecID      int
	LastPartitionID    int
	DefaultSortOrderID int
	Properties         map[string]string
	CurrentSnapshotID  sql.NullInt64
	RowLineage         sql.NullBool
	NextRowID          sql.NullInt64
}

const tableHeaderColumns = `
	t.id, t.namespace_id, t.name, t.table_uuid, t.location, t.format_version,
	t.last_updated_ms, t.last_sequence_number, t.last_column_id, t.schema_id,
	t.current_schema_id, t.default_spec_id, t.last_partition_id,
	t.default_sort_order_id, t.properties, t.current_snapshot_id,
	t.row_lineage, t.next_row_id
`

func scanTableRow(scan func(dest ...any) error) (*TableRow, error) {
	var (
		row      TableRow
		rawProps []byte
	)
	err := scan(
		&row.ID, &row.NamespaceID, &row.Name, &row.TableUUID, &row.Location,
		&row.FormatVersion, &row.LastUpdatedMs, &row.LastSequenceNumber,
		&row.LastColumnID, &row.SchemaID, &row.CurrentSchemaID,
		&row.DefaultSpecID, &row.LastPartitionID, &row.DefaultSortOrderID,
		&rawProps, &row.CurrentSnapshotID, &row.RowLineage, &row.NextRowID,
	)
	if err != nil {
		return nil, err
	}

	props, err := decodeJSONMap(rawProps)
	if err != nil {
		return nil, fmt.Errorf("failed to decode table properties: %w", err)
	}
	row.Properties = props
	return &row, nil
}

// GetByName returns the table header for (namespace path, name).
func (r *TableRepository) GetByName(ctx context.Context, q store.Querier, levels []string, name string) (*TableRow, error) {
	query := `
		SELECT ` + tableHeaderColumns + `
		FROM tables t
		JOIN namespaces n ON t.namespace_id = n.id
		WHERE n.levels = $1 AND t.name = $2
	`
	row, err := scanTableRow(q.QueryRowContext(ctx, query, pq.Array(levels), name).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return row, nil
}

// GetByNameForUpdate returns the table header for (namespace id, name) with
// the row locked for the duration of the surrounding transaction, so
// concurrent commits to the same table serialize deterministically.
func (r *TableRepository) GetByNameForUpdate(ctx context.Context, q store.Querier, namespaceID int64, name string) (*TableRow, error) {
	query := `
		SELECT ` + tableHeaderColumns + `
		FROM tables t
		WHERE t.namespace_id = $1 AND t.name = $2
		FOR UPDATE OF t
	`
	row, err := scanTableRow(q.QueryRowContext(ctx, query, namespaceID, name).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to get table for update: %w", err)
	}
	return row, nil
}

// GetByID returns the table header by id.
func (r *TableRepository) GetByID(ctx context.Context, q store.Querier, id int64) (*TableRow, error) {
	query := `
		SELECT ` + tableHeaderColumns + `
		FROM tables t
		WHERE t.id = $1
	`
	row, err := scanTableRow(q.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to get table: %w", err)
	}
	return row, nil
}

// Exists reports whether a table with the given name exists in the namespace.
func (r *TableRepository) Exists(ctx context.Context, q store.Querier, levels []string, name string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM tables t
			JOIN namespaces n ON t.namespace_id = n.id
			WHERE n.levels = $1 AND t.name = $2
		)
	`
	var exists bool
	if err := q.QueryRowContext(ctx, query, pq.Array(levels), name).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check table existence: %w", err)
	}
	return exists, nil
}

// ListNames returns table names in a namespace in lexicographic order.
// afterKey is an exclusive lower bound; limit bounds the number of rows
// (0 means no limit).
func (r *TableRepository) ListNames(ctx context.Context, q store.Querier, namespaceID int64, afterKey string, limit int) ([]string, error) {
	query := `SELECT name FROM tables WHERE namespace_id = $1`
	args := []any{namespaceID}

	if afterKey != "" {
		query += fmt.Sprintf(" AND name > $%d", len(args)+1)
		args = append(args, afterKey)
	}
	query += " ORDER BY name"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate table rows: %w", err)
	}
	return names, nil
}

// InsertParams are the header fields of a freshly created table.
type InsertParams struct {
	NamespaceID        int64
	Name               string
	TableUUID          string
	Location           string
	FormatVersion      int
	LastUpdatedMs      int64
	LastColumnID       int
	SchemaID           int
	CurrentSchemaID    int
	DefaultSpecID      int
	LastPartitionID    int
	DefaultSortOrderID int
	Properties         map[string]string
}

// Insert creates a table header row and returns its id.
func (r *TableRepository) Insert(ctx context.Context, q store.Querier, p InsertParams) (int64, error) {
	propsJSON, err := json.Marshal(p.Properties)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal table properties: %w", err)
	}

	query := `
		INSERT INTO tables (
			namespace_id, name, table_uuid, location,
			last_updated_ms, last_column_id, schema_id,
			current_schema_id, default_spec_id, last_partition_id,
			default_sort_order_id, properties, format_version
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		) RETURNING id
	`

	var id int64
	err = q.QueryRowContext(ctx, query,
		p.NamespaceID, p.Name, p.TableUUID, p.Location,
		p.LastUpdatedMs, p.LastColumnID, p.SchemaID,
		p.CurrentSchemaID, p.DefaultSpecID, p.LastPartitionID,
		p.DefaultSortOrderID, propsJSON, p.FormatVersion,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrTableExists
		}
		return 0, fmt.Errorf("failed to insert table: %w", err)
	}
	return id, nil
}

// Rename atomically moves a table to a new (namespace, name).
func (r *TableRepository) Rename(ctx context.Context, q store.Querier, sourceNamespaceID int64, sourceName string, destNamespaceID int64, destName string) error {
	query := `
		UPDATE tables
		SET namespace_id = $1, name = $2, updated_at = NOW()
		WHERE namespace_id = $3 AND name = $4
	`
	res, err := q.ExecContext(ctx, query, destNamespaceID, destName, sourceNamespaceID, sourceName)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTableExists
		}
		return fmt.Errorf("failed to rename table: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTableNotFound
	}
	return nil
}

// Delete removes a table header row; child rows cascade.
func (r *TableRepository) Delete(ctx context.Context, q store.Querier, id int64) error {
	res, err := q.ExecContext(ctx, `DELETE FROM tables WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete table: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrTableNotFound
	}
	return nil
}

// Header field updates. Every mutation bumps updated_at; last_updated_ms is
// advanced once per commit via TouchLastUpdated.

// SetUUID overwrites the table uuid.
func (r *TableRepository) SetUUID(ctx context.Context, q store.Querier, id int64, tableUUID string) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET table_uuid = $1, updated_at = NOW() WHERE id = $2`, tableUUID, id)
}

// SetFormatVersion overwrites the format version.
func (r *TableRepository) SetFormatVersion(ctx context.Context, q store.Querier, id int64, version int) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET format_version = $1, updated_at = NOW() WHERE id = $2`, version, id)
}

// SetLocation overwrites the table location.
func (r *TableRepository) SetLocation(ctx context.Context, q store.Querier, id int64, location string) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET location = $1, updated_at = NOW() WHERE id = $2`, location, id)
}

// SetProperties replaces the table properties map.
func (r *TableRepository) SetProperties(ctx context.Context, q store.Querier, id int64, properties map[string]string) error {
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("failed to marshal table properties: %w", err)
	}
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET properties = $1, updated_at = NOW() WHERE id = $2`, propsJSON, id)
}

// SetCurrentSchemaID sets the current schema pointer.
func (r *TableRepository) SetCurrentSchemaID(ctx context.Context, q store.Querier, id int64, schemaID int) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET current_schema_id = $1, updated_at = NOW() WHERE id = $2`, schemaID, id)
}

// SetLastColumnID sets the highest assigned field id.
func (r *TableRepository) SetLastColumnID(ctx context.Context, q store.Querier, id int64, lastColumnID int) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET last_column_id = $1, updated_at = NOW() WHERE id = $2`, lastColumnID, id)
}

// SetDefaultSpecID sets the default partition spec pointer.
func (r *TableRepository) SetDefaultSpecID(ctx context.Context, q store.Querier, id int64, specID int) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET default_spec_id = $1, updated_at = NOW() WHERE id = $2`, specID, id)
}

// SetLastPartitionID sets the highest assigned partition field id.
func (r *TableRepository) SetLastPartitionID(ctx context.Context, q store.Querier, id int64, lastPartitionID int) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET last_partition_id = $1, updated_at = NOW() WHERE id = $2`, lastPartitionID, id)
}

// SetDefaultSortOrderID sets the default sort order pointer.
func (r *TableRepository) SetDefaultSortOrderID(ctx context.Context, q store.Querier, id int64, orderID int) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET default_sort_order_id = $1, updated_at = NOW() WHERE id = $2`, orderID, id)
}

// AdvanceSnapshot makes snapshotID current and raises last_sequence_number to
// at least sequenceNumber.
func (r *TableRepository) AdvanceSnapshot(ctx context.Context, q store.Querier, id int64, snapshotID int64, sequenceNumber int64) error {
	query := `
		UPDATE tables SET
			current_snapshot_id = $1,
			last_sequence_number = GREATEST(last_sequence_number, $2),
			updated_at = NOW()
		WHERE id = $3
	`
	return r.execHeaderUpdate(ctx, q, query, snapshotID, sequenceNumber, id)
}

// EnableRowLineage turns on row lineage tracking. next_row_id is maintained
// by the engine, not here.
func (r *TableRepository) EnableRowLineage(ctx context.Context, q store.Querier, id int64) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET row_lineage = TRUE, updated_at = NOW() WHERE id = $1`, id)
}

// TouchLastUpdated sets last_updated_ms, advancing the table's ETag.
func (r *TableRepository) TouchLastUpdated(ctx context.Context, q store.Querier, id int64, nowMs int64) error {
	return r.execHeaderUpdate(ctx, q, `UPDATE tables SET last_updated_ms = $1, updated_at = NOW() WHERE id = $2`, nowMs, id)
}

func (r *TableRepository) execHeaderUpdate(ctx context.Context, q store.Querier, query string, args ...any) error {
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update table header: %w", err)
	}
	return nil
}

// JSONRow is a child row storing a sub-document in a JSON column, keyed by a
// duplicated index column that is authoritative on the read path.
type JSONRow struct {
	ID   int
	JSON []byte
}

// InsertSchema adds a schema row.
func (r *TableRepository) InsertSchema(ctx context.Context, q store.Querier, tableID int64, schemaID int, schemaJSON []byte) error {
	query := `INSERT INTO schemas (table_id, schema_id, schema_json) VALUES ($1, $2, $3)`
	if _, err := q.ExecContext(ctx, query, tableID, schemaID, schemaJSON); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("schema %d already exists for table %d: %w", schemaID, tableID, err)
		}
		return fmt.Errorf("failed to insert schema: %w", err)
	}
	return nil
}

// MaxSchemaID returns the highest stored schema id, or -1 if none exist.
func (r *TableRepository) MaxSchemaID(ctx context.Context, q store.Querier, tableID int64) (int, error) {
	return r.maxChildID(ctx, q, `SELECT MAX(schema_id) FROM schemas WHERE table_id = $1`, tableID)
}

// ListSchemas returns all schema rows for a table ordered by schema id.
func (r *TableRepository) ListSchemas(ctx context.Context, q store.Querier, tableID int64) ([]JSONRow, error) {
	return r.listJSONRows(ctx, q, `SELECT schema_id, schema_json FROM schemas WHERE table_id = $1 ORDER BY schema_id`, tableID)
}

// DeleteSchemas removes schema rows by id set.
func (r *TableRepository) DeleteSchemas(ctx context.Context, q store.Querier, tableID int64, schemaIDs []int) error {
	query := `DELETE FROM schemas WHERE table_id = $1 AND schema_id = ANY($2)`
	if _, err := q.ExecContext(ctx, query, tableID, pq.Array(schemaIDs)); err != nil {
		return fmt.Errorf("failed to delete schemas: %w", err)
	}
	return nil
}

// InsertPartitionSpec adds a partition spec row.
func (r *TableRepository) InsertPartitionSpec(ctx context.Context, q store.Querier, tableID int64, specID int, specJSON []byte) error {
	query := `INSERT INTO partition_specs (table_id, spec_id, spec_json) VALUES ($1, $2, $3)`
	if _, err := q.ExecContext(ctx, query, tableID, specID, specJSON); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("partition spec %d already exists for table %d: %w", specID, tableID, err)
		}
		return fmt.Errorf("failed to insert partition spec: %w", err)
	}
	return nil
}

// MaxPartitionSpecID returns the highest stored spec id, or -1 if none exist.
func (r *TableRepository) MaxPartitionSpecID(ctx context.Context, q store.Querier, tableID int64) (int, error) {
	return r.maxChildID(ctx, q, `SELECT MAX(spec_id) FROM partition_specs WHERE table_id = $1`, tableID)
}

// ListPartitionSpecs returns all spec rows for a table ordered by spec id.
func (r *TableRepository) ListPartitionSpecs(ctx context.Context, q store.Querier, tableID int64) ([]JSONRow, error) {
	return r.listJSONRows(ctx, q, `SELECT spec_id, spec_json FROM partition_specs WHERE table_id = $1 ORDER BY spec_id`, tableID)
}

// DeletePartitionSpecs removes spec rows by id set.
func (r *TableRepository) DeletePartitionSpecs(ctx context.Context, q store.Querier, tableID int64, specIDs []int) error {
	query := `DELETE FROM partition_specs WHERE table_id = $1 AND spec_id = ANY($2)`
	if _, err := q.ExecContext(ctx, query, tableID, pq.Array(specIDs)); err != nil {
		return fmt.Errorf("failed to delete partition specs: %w", err)
	}
	return nil
}

// InsertSortOrder adds a sort order row.
func (r *TableRepository) InsertSortOrder(ctx context.Context, q store.Querier, tableID int64, orderID int, orderJSON []byte) error {
	query := `INSERT INTO sort_orders (table_id, order_id, order_json) VALUES ($1, $2, $3)`
	if _, err := q.ExecContext(ctx, query, tableID, orderID, orderJSON); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sort order %d already exists for table %d: %w", orderID, tableID, err)
		}
		return fmt.Errorf("failed to insert sort order: %w", err)
	}
	return nil
}

// MaxSortOrderID returns the highest stored order id, or -1 if none exist.
func (r *TableRepository) MaxSortOrderID(ctx context.Context, q store.Querier, tableID int64) (int, error) {
	return r.maxChildID(ctx, q, `SELECT MAX(order_id) FROM sort_orders WHERE table_id = $1`, tableID)
}

// ListSortOrders returns all sort order rows for a table ordered by order id.
func (r *TableRepository) ListSortOrders(ctx context.Context, q store.Querier, tableID int64) ([]JSONRow, error) {
	return r.listJSONRows(ctx, q, `SELECT order_id, order_json FROM sort_orders WHERE table_id = $1 ORDER BY order_id`, tableID)
}

func (r *TableRepository) maxChildID(ctx context.Context, q store.Querier, query string, tableID int64) (int, error) {
	var max sql.NullInt64
	if err := q.QueryRowContext(ctx, query, tableID).Scan(&max); err != nil {
		return 0, fmt.Errorf("failed to query max child id: %w", err)
	}
	if !max.Valid {
		return -1, nil
	}
	return int(max.Int64), nil
}

func (r *TableRepository) listJSONRows(ctx context.Context, q store.Querier, query string, tableID int64) ([]JSONRow, error) {
	rows, err := q.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child rows: %w", err)
	}
	defer rows.Close()

	var result []JSONRow
	for rows.Next() {
		var (
			row JSONRow
			raw []byte
		)
		if err := rows.Scan(&row.ID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan child row: %w", err)
		}
		doc, err := decodeJSONDocument(raw)
		if err != nil {
			return nil, err
		}
		row.JSON = doc
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate child rows: %w", err)
	}
	return result, nil
}

// SnapshotRow is a snapshot child row.
type SnapshotRow struct {
	SnapshotID       int64
	ParentSnapshotID sql.NullInt64
	SequenceNumber   sql.NullInt64
	TimestampMs      int64
	ManifestList     string
	Summary          []byte
	SchemaID         sql.NullInt64
}

// InsertSnapshot adds a snapshot row.
func (r *TableRepository) InsertSnapshot(ctx context.Context, q store.Querier, tableID int64, s SnapshotRow) error {
	query := `
		INSERT INTO snapshots (
			table_id, snapshot_id, parent_snapshot_id, sequence_number,
			timestamp_ms, manifest_list, summary, schema_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := q.ExecContext(ctx, query,
		tableID, s.SnapshotID, s.ParentSnapshotID, s.SequenceNumber,
		s.TimestampMs, s.ManifestList, s.Summary, s.SchemaID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("snapshot %d already exists for table %d: %w", s.SnapshotID, tableID, err)
		}
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// ListSnapshots returns snapshot rows for a table. When refsOnly is true,
// only snapshots reachable from a ref are returned.
func (r *TableRepository) ListSnapshots(ctx context.Context, q store.Querier, tableID int64, refsOnly bool) ([]SnapshotRow, error) {
	query := `
		SELECT snapshot_id, parent_snapshot_id, sequence_number, timestamp_ms,
		       manifest_list, summary, schema_id
		FROM snapshots
		WHERE table_id = $1
	`
	if refsOnly {
		query += ` AND snapshot_id IN (SELECT snapshot_id FROM snapshot_refs WHERE table_id = $1)`
	}
	query += ` ORDER BY snapshot_id`

	rows, err := q.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var result []SnapshotRow
	for rows.Next() {
		var s SnapshotRow
		if err := rows.Scan(
			&s.SnapshotID, &s.ParentSnapshotID, &s.SequenceNumber,
			&s.TimestampMs, &s.ManifestList, &s.Summary, &s.SchemaID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot rows: %w", err)
	}
	return result, nil
}

// SnapshotExists reports whether a snapshot id exists for a table.
func (r *TableRepository) SnapshotExists(ctx context.Context, q store.Querier, tableID int64, snapshotID int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM snapshots WHERE table_id = $1 AND snapshot_id = $2)`
	if err := q.QueryRowContext(ctx, query, tableID, snapshotID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check snapshot existence: %w", err)
	}
	return exists, nil
}

// DeleteSnapshots removes snapshot rows by id set.
func (r *TableRepository) DeleteSnapshots(ctx context.Context, q store.Querier, tableID int64, snapshotIDs []int64) error {
	query := `DELETE FROM snapshots WHERE table_id = $1 AND snapshot_id = ANY($2)`
	if _, err := q.ExecContext(ctx, query, tableID, pq.Array(snapshotIDs)); err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

// RefRow is a snapshot ref child row.
type RefRow struct {
	Name               string
	SnapshotID         int64
	Type               string
	MinSnapshotsToKeep sql.NullInt64
	MaxSnapshotAgeMs   sql.NullInt64
	MaxRefAgeMs        sql.NullInt64
}

// GetRef returns the ref with the given name.
func (r *TableRepository) GetRef(ctx context.Context, q store.Querier, tableID int64, name string) (*RefRow, error) {
	query := `
		SELECT name, snapshot_id, type, min_snapshots_to_keep,
		       max_snapshot_age_ms, max_ref_age_ms
		FROM snapshot_refs
		WHERE table_id = $1 AND name = $2
	`
	var ref RefRow
	err := q.QueryRowContext(ctx, query, tableID, name).Scan(
		&ref.Name, &ref.SnapshotID, &ref.Type,
		&ref.MinSnapshotsToKeep, &ref.MaxSnapshotAgeMs, &ref.MaxRefAgeMs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRefNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot ref: %w", err)
	}
	return &ref, nil
}

// ListRefs returns all refs for a table.
func (r *TableRepository) ListRefs(ctx context.Context, q store.Querier, tableID int64) ([]RefRow, error) {
	query := `
		SELECT name, snapshot_id, type, min_snapshots_to_keep,
		       max_snapshot_age_ms, max_ref_age_ms
		FROM snapshot_refs
		WHERE table_id = $1
		ORDER BY name
	`
	rows, err := q.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshot refs: %w", err)
	}
	defer rows.Close()

	var result []RefRow
	for rows.Next() {
		var ref RefRow
		if err := rows.Scan(
			&ref.Name, &ref.SnapshotID, &ref.Type,
			&ref.MinSnapshotsToKeep, &ref.MaxSnapshotAgeMs, &ref.MaxRefAgeMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot ref row: %w", err)
		}
		result = append(result, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshot ref rows: %w", err)
	}
	return result, nil
}

// UpsertRef creates or replaces a ref by (table, name).
func (r *TableRepository) UpsertRef(ctx context.Context, q store.Querier, tableID int64, ref RefRow) error {
	query := `
		INSERT INTO snapshot_refs (
			table_id, name, snapshot_id, type,
			min_snapshots_to_keep, max_snapshot_age_ms, max_ref_age_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (table_id, name) DO UPDATE SET
			snapshot_id = EXCLUDED.snapshot_id,
			type = EXCLUDED.type,
			min_snapshots_to_keep = EXCLUDED.min_snapshots_to_keep,
			max_snapshot_age_ms = EXCLUDED.max_snapshot_age_ms,
			max_ref_age_ms = EXCLUDED.max_ref_age_ms,
			updated_at = NOW()
	`
	_, err := q.ExecContext(ctx, query,
		tableID, ref.Name, ref.SnapshotID, ref.Type,
		ref.MinSnapshotsToKeep, ref.MaxSnapshotAgeMs, ref.MaxRefAgeMs,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot ref: %w", err)
	}
	return nil
}

// DeleteRef removes a ref by name.
func (r *TableRepository) DeleteRef(ctx context.Context, q store.Querier, tableID int64, name string) error {
	query := `DELETE FROM snapshot_refs WHERE table_id = $1 AND name = $2`
	if _, err := q.ExecContext(ctx, query, tableID, name); err != nil {
		return fmt.Errorf("failed to delete snapshot ref: %w", err)
	}
	return nil
}

// StatisticsRow is a table statistics child row.
type StatisticsRow struct {
	SnapshotID            int64
	StatisticsPath        string
	FileSizeInBytes       int64
	FileFooterSizeInBytes int64
	BlobMetadata          []byte
}

// UpsertStatistics creates or replaces the statistics file for a snapshot.
func (r *TableRepository) UpsertStatistics(ctx context.Context, q store.Querier, tableID int64, s StatisticsRow) error {
	query := `
		INSERT INTO table_statistics (
			table_id, snapshot_id, statistics_path,
			file_size_in_bytes, file_footer_size_in_bytes, blob_metadata
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (table_id, snapshot_id) DO UPDATE SET
			statistics_path = EXCLUDED.statistics_path,
			file_size_in_bytes = EXCLUDED.file_size_in_bytes,
			file_footer_size_in_bytes = EXCLUDED.file_footer_size_in_bytes,
			blob_metadata = EXCLUDED.blob_metadata
	`
	_, err := q.ExecContext(ctx, query,
		tableID, s.SnapshotID, s.StatisticsPath,
		s.FileSizeInBytes, s.FileFooterSizeInBytes, s.BlobMetadata,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert table statistics: %w", err)
	}
	return nil
}

// ListStatistics returns all statistics rows for a table.
func (r *TableRepository) ListStatistics(ctx context.Context, q store.Querier, tableID int64) ([]StatisticsRow, error) {
	query := `
		SELECT snapshot_id, statistics_path, file_size_in_bytes,
		       file_footer_size_in_bytes, blob_metadata
		FROM table_statistics
		WHERE table_id = $1
		ORDER BY snapshot_id
	`
	rows, err := q.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list table statistics: %w", err)
	}
	defer rows.Close()

	var result []StatisticsRow
	for rows.Next() {
		var s StatisticsRow
		if err := rows.Scan(
			&s.SnapshotID, &s.StatisticsPath, &s.FileSizeInBytes,
			&s.FileFooterSizeInBytes, &s.BlobMetadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan statistics row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate statistics rows: %w", err)
	}
	return result, nil
}

// DeleteStatistics removes the statistics file for a snapshot.
func (r *TableRepository) DeleteStatistics(ctx context.Context, q store.Querier, tableID int64, snapshotID int64) error {
	query := `DELETE FROM table_statistics WHERE table_id = $1 AND snapshot_id = $2`
	if _, err := q.ExecContext(ctx, query, tableID, snapshotID); err != nil {
		return fmt.Errorf("failed to delete table statistics: %w", err)
	}
	return nil
}

// PartitionStatisticsRow is a partition statistics child row.
type PartitionStatisticsRow struct {
	SnapshotID      int64
	StatisticsPath  string
	FileSizeInBytes int64
}

// UpsertPartitionStatistics creates or replaces the partition statistics file
// for a snapshot.
func (r *TableRepository) UpsertPartitionStatistics(ctx context.Context, q store.Querier, tableID int64, s PartitionStatisticsRow) error {
	query := `
		INSERT INTO partition_statistics (
			table_id, snapshot_id, statistics_path, file_size_in_bytes
		) VALUES ($1, $2, $3, $4)
		ON CONFLICT (table_id, snapshot_id) DO UPDATE SET
			statistics_path = EXCLUDED.statistics_path,
			file_size_in_bytes = EXCLUDED.file_size_in_bytes
	`
	_, err := q.ExecContext(ctx, query, tableID, s.SnapshotID, s.StatisticsPath, s.FileSizeInBytes)
	if err != nil {
		return fmt.Errorf("failed to upsert partition statistics: %w", err)
	}
	return nil
}

// ListPartitionStatistics returns all partition statistics rows for a table.
func (r *TableRepository) ListPartitionStatistics(ctx context.Context, q store.Querier, tableID int64) ([]PartitionStatisticsRow, error) {
	query := `
		SELECT snapshot_id, statistics_path, file_size_in_bytes
		FROM partition_statistics
		WHERE table_id = $1
		ORDER BY snapshot_id
	`
	rows, err := q.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list partition statistics: %w", err)
	}
	defer rows.Close()

	var result []PartitionStatisticsRow
	for rows.Next() {
		var s PartitionStatisticsRow
		if err := rows.Scan(&s.SnapshotID, &s.StatisticsPath, &s.FileSizeInBytes); err != nil {
			return nil, fmt.Errorf("failed to scan partition statistics row: %w", err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate partition statistics rows: %w", err)
	}
	return result, nil
}

// DeletePartitionStatistics removes the partition statistics file for a
// snapshot.
func (r *TableRepository) DeletePartitionStatistics(ctx context.Context, q store.Querier, tableID int64, snapshotID int64) error {
	query := `DELETE FROM partition_statistics WHERE table_id = $1 AND snapshot_id = $2`
	if _, err := q.ExecContext(ctx, query, tableID, snapshotID); err != nil {
		return fmt.Errorf("failed to delete partition statistics: %w", err)
	}
	return nil
}

// AppendMetadataLog records a new metadata file pointer for a table.
func (r *TableRepository) AppendMetadataLog(ctx context.Context, q store.Querier, tableID int64, metadataFile string, timestampMs int64) error {
	query := `INSERT INTO metadata_log (table_id, metadata_file, timestamp_ms) VALUES ($1, $2, $3)`
	if _, err := q.ExecContext(ctx, query, tableID, metadataFile, timestampMs); err != nil {
		return fmt.Errorf("failed to append metadata log: %w", err)
	}
	return nil
}
