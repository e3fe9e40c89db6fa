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

// Namespace repository errors.
var (
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrNamespaceExists   = errors.New("namespace already exists")
)

// NamespaceRepository handles database operations for namespaces.
type NamespaceRepository struct {
	store *store.Store
}

// NewNamespaceRepository creates a new NamespaceRepository.
func NewNamespaceRepository(st *store.Store) *NamespaceRepository {
	return &NamespaceRepository{store: st}
}

// GetID returns the id of the namespace with the given path.
func (r *NamespaceRepository) GetID(ctx context.Context, q store.Querier, levels []string) (int64, error) {
	query := `SELECT id FROM namespaces WHERE levels = $1`

	var id int64
	err := q.QueryRowContext(ctx, query, pq.Array(levels)).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNamespaceNotFound
		}
		return 0, fmt.Errorf("failed to get namespace id: %w", err)
	}
	return id, nil
}

// Exists reports whether a namespace with the given path exists.
func (r *NamespaceRepository) Exists(ctx context.Context, q store.Querier, levels []string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM namespaces WHERE levels = $1)`

	var exists bool
	if err := q.QueryRowContext(ctx, query, pq.Array(levels)).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check namespace existence: %w", err)
	}
	return exists, nil
}

// Create inserts a new namespace with the given properties.
func (r *NamespaceRepository) Create(ctx context.Context, q store.Querier, levels []string, properties map[string]string) error {
	if properties == nil {
		properties = map[string]string{}
	}
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("failed to marshal namespace properties: %w", err)
	}

	query := `
		INSERT INTO namespaces (levels, properties)
		VALUES ($1, $2)
	`
	if _, err := q.ExecContext(ctx, query, pq.Array(levels), propsJSON); err != nil {
		if isUniqueViolation(err) {
			return ErrNamespaceExists
		}
		return fmt.Errorf("failed to create namespace: %w", err)
	}
	return nil
}

// GetProperties returns the stored properties of a namespace.
func (r *NamespaceRepository) GetProperties(ctx context.Context, q store.Querier, levels []string) (map[string]string, error) {
	query := `SELECT properties FROM namespaces WHERE levels = $1`

	var raw []byte
	err := q.QueryRowContext(ctx, query, pq.Array(levels)).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNamespaceNotFound
		}
		return nil, fmt.Errorf("failed to get namespace properties: %w", err)
	}
	return decodeJSONMap(raw)
}

// SetProperties replaces the stored properties of a namespace.
func (r *NamespaceRepository) SetProperties(ctx context.Context, q store.Querier, levels []string, properties map[string]string) error {
	propsJSON, err := json.Marshal(properties)
	if err != nil {
		return fmt.Errorf("failed to marshal namespace properties: %w", err)
	}

	query := `
		UPDATE namespaces
		SET properties = $1, updated_at = NOW()
		WHERE levels = $2
	`
	if _, err := q.ExecContext(ctx, query, propsJSON, pq.Array(levels)); err != nil {
		return fmt.Errorf("failed to update namespace properties: %w", err)
	}
	return nil
}

// List returns namespace paths in lexicographic order. When parent is
// non-empty, only direct children of parent are returned. afterKey is an
// exclusive lower bound on the path joined by the unit separator; limit
// bounds the number of rows (0 means no limit).
func (r *NamespaceRepository) List(ctx context.Context, q store.Querier, parent []string, afterKey string, limit int) ([][]string, error) {
	query := `SELECT levels FROM namespaces`
	var (
		conds []string
		args  []any
	)

	if len(parent) > 0 {
		conds = append(conds, fmt.Sprintf("levels[1:$%d] = $%d AND array_length(levels, 1) = $%d + 1",
			len(args)+1, len(args)+2, len(args)+1))
		args = append(args, len(parent), pq.Array(parent))
	}
	if afterKey != "" {
		conds = append(conds, fmt.Sprintf("levels > string_to_array($%d, chr(31))", len(args)+1))
		args = append(args, afterKey)
	}

	for i, cond := range conds {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY levels"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}
	defer rows.Close()

	var result [][]string
	for rows.Next() {
		var levels []string
		if err := rows.Scan(pq.Array(&levels)); err != nil {
			return nil, fmt.Errorf("failed to scan namespace row: %w", err)
		}
		result = append(result, levels)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate namespace rows: %w", err)
	}
	return result, nil
}

// HasChildren reports whether any table or view references the namespace.
func (r *NamespaceRepository) HasChildren(ctx context.Context, q store.Querier, namespaceID int64) (bool, error) {
	query := `
		SELECT EXISTS(SELECT 1 FROM tables WHERE namespace_id = $1)
		    OR EXISTS(SELECT 1 FROM views WHERE namespace_id = $1)
	`

	var hasChildren bool
	if err := q.QueryRowContext(ctx, query, namespaceID).Scan(&hasChildren); err != nil {
		return false, fmt.Errorf("failed to check namespace children: %w", err)
	}
	return hasChildren, nil
}

// Delete removes a namespace by path.
func (r *NamespaceRepository) Delete(ctx context.Context, q store.Querier, levels []string) error {
	query := `DELETE FROM namespaces WHERE levels = $1`

	res, err := q.ExecContext(ctx, query, pq.Array(levels))
	if err != nil {
		return fmt.Errorf("failed to delete namespace: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNamespaceNotFound
	}
	return nil
}
