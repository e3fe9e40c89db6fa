package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/janovincze/icecat/internal/store"
)

// Config repository errors.
var ErrConfigNotFound = errors.New("catalog config not found")

// ConfigRepository handles database operations for catalog configuration.
type ConfigRepository struct {
	store *store.Store
}

// NewConfigRepository creates a new ConfigRepository.
func NewConfigRepository(st *store.Store) *ConfigRepository {
	return &ConfigRepository{store: st}
}

// GetConfigJSON returns the raw config document for the named catalog. The
// stored column may be a JSON object or a double-encoded JSON string; both
// are normalized to object bytes.
func (r *ConfigRepository) GetConfigJSON(ctx context.Context, q store.Querier, catalogName string) ([]byte, error) {
	query := `SELECT config_json FROM catalog_config WHERE catalog_name = $1`

	var raw []byte
	err := q.QueryRowContext(ctx, query, catalogName).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to get catalog config: %w", err)
	}
	return decodeJSONDocument(raw)
}

// GetDefaultWarehouseLocation returns defaults."warehouse.location" from the
// catalog config, or empty if not configured.
func (r *ConfigRepository) GetDefaultWarehouseLocation(ctx context.Context, q store.Querier) (string, error) {
	query := `
		SELECT config_json->'defaults'->>'warehouse.location'
		FROM catalog_config
		LIMIT 1
	`
	var location sql.NullString
	err := q.QueryRowContext(ctx, query).Scan(&location)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get default warehouse location: %w", err)
	}
	return location.String, nil
}
