package repositories

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/janovincze/icecat/internal/store"
)

// MetricsRepository appends operation metrics reports. The log is
// append-only; scan and commit reports share the table, distinguished by
// report_type and the populated column set.
type MetricsRepository struct {
	store *store.Store
}

// NewMetricsRepository creates a new MetricsRepository.
func NewMetricsRepository(st *store.Store) *MetricsRepository {
	return &MetricsRepository{store: st}
}

// ScanReportParams are the columns of a scan report row.
type ScanReportParams struct {
	TableID             int64
	ReportType          string
	SnapshotID          int64
	FilterJSON          []byte
	SchemaID            *int
	ProjectedFieldIDs   []int
	ProjectedFieldNames []string
	MetricsJSON         []byte
	MetadataJSON        []byte
}

// InsertScanReport appends a scan report row.
func (r *MetricsRepository) InsertScanReport(ctx context.Context, q store.Querier, p ScanReportParams) error {
	query := `
		INSERT INTO operation_metrics (
			table_id, report_type, snapshot_id, filter_json,
			schema_id, projected_field_ids, projected_field_names,
			metrics_json, metadata_json, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
	`
	_, err := q.ExecContext(ctx, query,
		p.TableID, p.ReportType, p.SnapshotID, p.FilterJSON,
		p.SchemaID, pq.Array(p.ProjectedFieldIDs), pq.Array(p.ProjectedFieldNames),
		p.MetricsJSON, p.MetadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan report: %w", err)
	}
	return nil
}

// CommitReportParams are the columns of a commit report row.
type CommitReportParams struct {
	TableID        int64
	ReportType     string
	SnapshotID     int64
	SequenceNumber *int64
	Operation      string
	MetricsJSON    []byte
	MetadataJSON   []byte
}

// InsertCommitReport appends a commit report row.
func (r *MetricsRepository) InsertCommitReport(ctx context.Context, q store.Querier, p CommitReportParams) error {
	query := `
		INSERT INTO operation_metrics (
			table_id, report_type, snapshot_id, sequence_number,
			operation, metrics_json, metadata_json, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	var operation any
	if p.Operation != "" {
		operation = p.Operation
	}
	_, err := q.ExecContext(ctx, query,
		p.TableID, p.ReportType, p.SnapshotID, p.SequenceNumber,
		operation, p.MetricsJSON, p.MetadataJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to insert commit report: %w", err)
	}
	return nil
}

// TransactionRepository records multi-table transaction state.
type TransactionRepository struct {
	store *store.Store
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(st *store.Store) *TransactionRepository {
	return &TransactionRepository{store: st}
}

// Insert records a new transaction in the given state.
func (r *TransactionRepository) Insert(ctx context.Context, q store.Querier, transactionID, status string) error {
	query := `INSERT INTO transactions (transaction_id, status) VALUES ($1, $2)`
	if _, err := q.ExecContext(ctx, query, transactionID, status); err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

// UpdateStatus moves a transaction to a new state.
func (r *TransactionRepository) UpdateStatus(ctx context.Context, q store.Querier, transactionID, status string) error {
	query := `
		UPDATE transactions
		SET status = $1, updated_at = NOW()
		WHERE transaction_id = $2
	`
	if _, err := q.ExecContext(ctx, query, status, transactionID); err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}
