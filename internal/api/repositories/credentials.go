package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/janovincze/icecat/internal/store"
)

// Credential repository errors.
var ErrCredentialNotFound = errors.New("credential not found")

// CredentialRepository handles database operations for storage credentials.
type CredentialRepository struct {
	store *store.Store
}

// NewCredentialRepository creates a new CredentialRepository.
func NewCredentialRepository(st *store.Store) *CredentialRepository {
	return &CredentialRepository{store: st}
}

// CredentialRow is a storage credential row.
type CredentialRow struct {
	ID        int64
	Prefix    string
	Warehouse string
	Config    map[string]string
}

func (r *CredentialRepository) scanRows(rows *sql.Rows) ([]CredentialRow, error) {
	defer rows.Close()

	var result []CredentialRow
	for rows.Next() {
		var (
			row CredentialRow
			raw []byte
		)
		if err := rows.Scan(&row.ID, &row.Prefix, &row.Warehouse, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan credential row: %w", err)
		}
		cfg, err := decodeJSONMap(raw)
		if err != nil {
			return nil, fmt.Errorf("failed to decode credential config: %w", err)
		}
		row.Config = cfg
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credential rows: %w", err)
	}
	return result, nil
}

// ListForTable returns credentials scoped to the given table.
func (r *CredentialRepository) ListForTable(ctx context.Context, q store.Querier, tableID int64) ([]CredentialRow, error) {
	query := `
		SELECT id, prefix, warehouse, config
		FROM storage_credentials
		WHERE table_id = $1
		ORDER BY id
	`
	rows, err := q.QueryContext(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to list table credentials: %w", err)
	}
	return r.scanRows(rows)
}

// ListForLocation returns global credentials whose warehouse is a prefix of
// location, longest warehouse first.
func (r *CredentialRepository) ListForLocation(ctx context.Context, q store.Querier, location string) ([]CredentialRow, error) {
	query := `
		SELECT id, prefix, warehouse, config
		FROM storage_credentials
		WHERE table_id IS NULL AND $1 LIKE (warehouse || '%')
		ORDER BY LENGTH(warehouse) DESC
	`
	rows, err := q.QueryContext(ctx, query, location)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials for location: %w", err)
	}
	return r.scanRows(rows)
}

// ListForPrefix returns global credentials registered under an organization
// prefix, longest warehouse first.
func (r *CredentialRepository) ListForPrefix(ctx context.Context, q store.Querier, prefix string) ([]CredentialRow, error) {
	query := `
		SELECT id, prefix, warehouse, config
		FROM storage_credentials
		WHERE table_id IS NULL AND prefix = $1
		ORDER BY LENGTH(warehouse) DESC
	`
	rows, err := q.QueryContext(ctx, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials for prefix: %w", err)
	}
	return r.scanRows(rows)
}

// Get returns the credential row for (prefix, warehouse, table scope).
// A nil tableID selects the global row.
func (r *CredentialRepository) Get(ctx context.Context, q store.Querier, prefix, warehouse string, tableID *int64) (*CredentialRow, error) {
	query := `
		SELECT id, prefix, warehouse, config
		FROM storage_credentials
		WHERE prefix = $1 AND warehouse = $2
	`
	args := []any{prefix, warehouse}
	if tableID != nil {
		query += ` AND table_id = $3`
		args = append(args, *tableID)
	} else {
		query += ` AND table_id IS NULL`
	}

	var (
		row CredentialRow
		raw []byte
	)
	err := q.QueryRowContext(ctx, query, args...).Scan(&row.ID, &row.Prefix, &row.Warehouse, &raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}
	cfg, err := decodeJSONMap(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decode credential config: %w", err)
	}
	row.Config = cfg
	return &row, nil
}

// Insert creates a credential row and returns its id.
func (r *CredentialRepository) Insert(ctx context.Context, q store.Querier, prefix, warehouse string, config map[string]string, tableID *int64) (int64, error) {
	cfgJSON, err := json.Marshal(config)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal credential config: %w", err)
	}

	query := `
		INSERT INTO storage_credentials (prefix, warehouse, config, table_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`
	var id int64
	var tableArg any
	if tableID != nil {
		tableArg = *tableID
	}
	if err := q.QueryRowContext(ctx, query, prefix, warehouse, cfgJSON, tableArg).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert credential: %w", err)
	}
	return id, nil
}

// UpdateConfig replaces the config of an existing credential row.
func (r *CredentialRepository) UpdateConfig(ctx context.Context, q store.Querier, id int64, config map[string]string) error {
	cfgJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal credential config: %w", err)
	}

	query := `
		UPDATE storage_credentials
		SET config = $1, updated_at = NOW()
		WHERE id = $2
	`
	if _, err := q.ExecContext(ctx, query, cfgJSON, id); err != nil {
		return fmt.Errorf("failed to update credential: %w", err)
	}
	return nil
}
