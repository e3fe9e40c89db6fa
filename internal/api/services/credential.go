package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/repositories"
	"github.com/janovincze/icecat/internal/store"
)

// CredentialService resolves storage locations to credential bundles and
// manages credential registration.
type CredentialService struct {
	store  *store.Store
	repo   *repositories.CredentialRepository
	logger *slog.Logger
}

// NewCredentialService creates a new CredentialService.
func NewCredentialService(st *store.Store, repo *repositories.CredentialRepository, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		store:  st,
		repo:   repo,
		logger: logger.With("component", "credential-service"),
	}
}

// ResolveForTable returns the ranked credential bundles for a table:
// table-scoped rows first, otherwise global rows whose warehouse is a prefix
// of the table location (longest prefix first), otherwise global rows
// registered under the table's root namespace label. The outgoing prefix of
// each bundle is the matched warehouse so engines can select by
// longest-prefix match on their own file URIs.
func (s *CredentialService) ResolveForTable(ctx context.Context, tableID int64, location string, rootLabel string) ([]models.StorageCredential, error) {
	q := s.store.Querier()

	rows, err := s.repo.ListForTable(ctx, q, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve table credentials: %w", err)
	}

	if len(rows) == 0 {
		rows, err = s.repo.ListForLocation(ctx, q, location)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve location credentials: %w", err)
		}
	}

	if len(rows) == 0 {
		prefix := rootLabel
		if prefix == "" {
			prefix = "default"
		}
		rows, err = s.repo.ListForPrefix(ctx, q, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve prefix credentials: %w", err)
		}
	}

	credentials := make([]models.StorageCredential, 0, len(rows))
	for _, row := range rows {
		credentials = append(credentials, models.StorageCredential{
			Prefix: row.Warehouse,
			Config: row.Config,
		})
	}
	return credentials, nil
}

// TableConfig derives the engine-side config map for a table from the best
// matching global credential. When nothing matches, conservative defaults
// are returned.
func (s *CredentialService) TableConfig(ctx context.Context, location string) (map[string]string, error) {
	rows, err := s.repo.ListForLocation(ctx, s.store.Querier(), location)
	if err != nil {
		return nil, fmt.Errorf("failed to look up credentials for table config: %w", err)
	}
	if len(rows) == 0 {
		s.logger.Debug("no matching credentials for location, using defaults", "location", location)
		return defaultTableConfig(), nil
	}
	// Longest warehouse prefix wins.
	return translateCredentialConfig(rows[0].Config), nil
}

// translateCredentialConfig maps stored credential keys to engine-side
// configuration keys. Adding a credential backend means extending this
// table.
func translateCredentialConfig(config map[string]string) map[string]string {
	tableConfig := map[string]string{}
	if v, ok := config["region"]; ok {
		tableConfig["client.region"] = v
	}
	if v, ok := config["access-key-id"]; ok {
		tableConfig["s3.access-key-id"] = v
	}
	if v, ok := config["secret-access-key"]; ok {
		tableConfig["s3.secret-access-key"] = v
	}
	if v, ok := config["session-token"]; ok {
		tableConfig["s3.session-token"] = v
	}
	if config["use-instance-credentials"] == "true" {
		tableConfig["s3.use-instance-credentials"] = "true"
	}
	return tableConfig
}

func defaultTableConfig() map[string]string {
	return map[string]string{
		"client.region":               "us-east-1",
		"s3.use-instance-credentials": "true",
	}
}

// deriveWarehouse computes the warehouse for an inline-credential insert as
// the first three slash-separated segments of the table location plus a
// trailing slash, e.g. s3://bucket/. The result is undefined for
// non-URL-like locations.
func deriveWarehouse(location string) string {
	parts := strings.SplitN(location, "/", 4)
	if len(parts) < 3 {
		return location
	}
	return strings.Join(parts[:3], "/") + "/"
}

// Upsert registers a credential, replacing an existing row only when
// overwrite is set.
func (s *CredentialService) Upsert(ctx context.Context, req *models.CredentialRequest) (int64, bool, error) {
	q := s.store.Querier()

	existing, err := s.repo.Get(ctx, q, req.Prefix, req.Warehouse, req.TableID)
	if err != nil && !errors.Is(err, repositories.ErrCredentialNotFound) {
		return 0, false, fmt.Errorf("failed to look up credential: %w", err)
	}

	if existing != nil {
		if !req.Overwrite {
			return 0, false, &ConflictError{Resource: "credential", ID: req.Warehouse}
		}
		if err := s.repo.UpdateConfig(ctx, q, existing.ID, req.Config); err != nil {
			return 0, false, fmt.Errorf("failed to update credential: %w", err)
		}
		s.logger.Info("credential updated", "prefix", req.Prefix, "warehouse", req.Warehouse)
		return existing.ID, false, nil
	}

	id, err := s.repo.Insert(ctx, q, req.Prefix, req.Warehouse, req.Config, req.TableID)
	if err != nil {
		return 0, false, fmt.Errorf("failed to insert credential: %w", err)
	}
	s.logger.Info("credential created", "prefix", req.Prefix, "warehouse", req.Warehouse)
	return id, true, nil
}

// RegisterInline stores an inline create-table credential as a global
// credential for the table's derived warehouse, unless credentials already
// cover the location.
func (s *CredentialService) RegisterInline(ctx context.Context, q store.Querier, namespace []string, location string, config map[string]string) error {
	existing, err := s.repo.ListForLocation(ctx, q, location)
	if err != nil {
		return fmt.Errorf("failed to check existing credentials: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	prefix := "default"
	if len(namespace) > 0 {
		prefix = namespace[0]
	}
	warehouse := deriveWarehouse(location)

	id, err := s.repo.Insert(ctx, q, prefix, warehouse, config, nil)
	if err != nil {
		return fmt.Errorf("failed to store inline credential: %w", err)
	}
	s.logger.Debug("stored inline credential", "id", id, "warehouse", warehouse)
	return nil
}
