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

// namespaceSeparator is the unit separator byte used between namespace
// labels in URL path segments, percent-encoded as %1F on the wire.
const namespaceSeparator = "\x1F"

// ParseNamespace parses a namespace path parameter into its labels. A
// missing separator yields a single-label path.
func ParseNamespace(namespace string) []string {
	if namespace == "" {
		return nil
	}
	if strings.Contains(namespace, "%1F") {
		namespace = strings.ReplaceAll(namespace, "%1F", namespaceSeparator)
	}
	if strings.Contains(namespace, namespaceSeparator) {
		return strings.Split(namespace, namespaceSeparator)
	}
	return []string{namespace}
}

// NamespaceService provides CRUD and existence checks for hierarchical
// namespaces.
type NamespaceService struct {
	store  *store.Store
	repo   *repositories.NamespaceRepository
	logger *slog.Logger
}

// NewNamespaceService creates a new NamespaceService.
func NewNamespaceService(st *store.Store, repo *repositories.NamespaceRepository, logger *slog.Logger) *NamespaceService {
	return &NamespaceService{
		store:  st,
		repo:   repo,
		logger: logger.With("component", "namespace-service"),
	}
}

// List returns a lexicographic page of namespaces. When parent is given,
// only direct children of parent are returned; a missing parent is an error.
func (s *NamespaceService) List(ctx context.Context, parent []string, pageToken string, pageSize int) (*models.ListNamespacesResponse, error) {
	q := s.store.Querier()

	if len(parent) > 0 {
		exists, err := s.repo.Exists(ctx, q, parent)
		if err != nil {
			return nil, fmt.Errorf("failed to check parent namespace: %w", err)
		}
		if !exists {
			return nil, &NotFoundError{Resource: "namespace", ID: strings.Join(parent, ".")}
		}
	}

	afterKey := ""
	if pageToken != "" {
		decoded, err := decodePageToken(pageToken)
		if err != nil {
			return nil, err
		}
		afterKey = decoded
	}

	// Request one row beyond the page to detect whether more results exist.
	limit := 0
	if pageSize > 0 {
		limit = pageSize + 1
	}

	paths, err := s.repo.List(ctx, q, parent, afterKey, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list namespaces: %w", err)
	}

	hasMore := false
	if pageSize > 0 && len(paths) > pageSize {
		hasMore = true
		paths = paths[:pageSize]
	}

	resp := &models.ListNamespacesResponse{Namespaces: make([]models.Namespace, 0, len(paths))}
	for _, p := range paths {
		resp.Namespaces = append(resp.Namespaces, models.Namespace(p))
	}
	if hasMore {
		last := paths[len(paths)-1]
		resp.NextPageToken = encodePageToken(strings.Join(last, namespaceSeparator))
	}
	return resp, nil
}

// Create registers a new namespace with the given properties.
func (s *NamespaceService) Create(ctx context.Context, req *models.CreateNamespaceRequest) (*models.CreateNamespaceResponse, error) {
	if len(req.Namespace) == 0 {
		return nil, &ValidationError{Message: "namespace must have at least one level"}
	}

	properties := req.Properties
	if properties == nil {
		properties = map[string]string{}
	}

	err := s.repo.Create(ctx, s.store.Querier(), req.Namespace, properties)
	if err != nil {
		if errors.Is(err, repositories.ErrNamespaceExists) {
			return nil, &ConflictError{Resource: "namespace", ID: strings.Join(req.Namespace, ".")}
		}
		s.logger.Error("failed to create namespace", "namespace", req.Namespace, "error", err)
		return nil, fmt.Errorf("failed to create namespace: %w", err)
	}

	s.logger.Info("namespace created", "namespace", req.Namespace)
	return &models.CreateNamespaceResponse{
		Namespace:  req.Namespace,
		Properties: properties,
	}, nil
}

// Get returns the stored properties of a namespace.
func (s *NamespaceService) Get(ctx context.Context, levels []string) (*models.GetNamespaceResponse, error) {
	properties, err := s.repo.GetProperties(ctx, s.store.Querier(), levels)
	if err != nil {
		if errors.Is(err, repositories.ErrNamespaceNotFound) {
			return nil, &NotFoundError{Resource: "namespace", ID: strings.Join(levels, ".")}
		}
		return nil, fmt.Errorf("failed to get namespace: %w", err)
	}
	return &models.GetNamespaceResponse{
		Namespace:  models.Namespace(levels),
		Properties: properties,
	}, nil
}

// Exists reports whether a namespace exists.
func (s *NamespaceService) Exists(ctx context.Context, levels []string) (bool, error) {
	return s.repo.Exists(ctx, s.store.Querier(), levels)
}

// Drop deletes an empty namespace. A namespace owning tables or views is
// rejected.
func (s *NamespaceService) Drop(ctx context.Context, levels []string) error {
	return s.store.WithinTx(ctx, func(q store.Querier) error {
		namespaceID, err := s.repo.GetID(ctx, q, levels)
		if err != nil {
			if errors.Is(err, repositories.ErrNamespaceNotFound) {
				return &NotFoundError{Resource: "namespace", ID: strings.Join(levels, ".")}
			}
			return fmt.Errorf("failed to resolve namespace: %w", err)
		}

		hasChildren, err := s.repo.HasChildren(ctx, q, namespaceID)
		if err != nil {
			return fmt.Errorf("failed to check namespace children: %w", err)
		}
		if hasChildren {
			return &NotEmptyError{Namespace: strings.Join(levels, ".")}
		}

		if err := s.repo.Delete(ctx, q, levels); err != nil {
			return fmt.Errorf("failed to drop namespace: %w", err)
		}

		s.logger.Info("namespace dropped", "namespace", levels)
		return nil
	})
}

// UpdateProperties applies removals then updates to a namespace's
// properties, reporting updated, removed, and missing keys. A key in both
// sets is rejected.
func (s *NamespaceService) UpdateProperties(ctx context.Context, levels []string, req *models.UpdateNamespacePropertiesRequest) (*models.UpdateNamespacePropertiesResponse, error) {
	updates := req.Updates
	if updates == nil {
		updates = map[string]string{}
	}

	var common []string
	for _, key := range req.Removals {
		if _, ok := updates[key]; ok {
			common = append(common, key)
		}
	}
	if len(common) > 0 {
		return nil, &UnprocessableError{
			Message: fmt.Sprintf("Cannot remove and update the same property keys: %s", strings.Join(common, ", ")),
		}
	}

	var resp *models.UpdateNamespacePropertiesResponse
	err := s.store.WithinTx(ctx, func(q store.Querier) error {
		properties, err := s.repo.GetProperties(ctx, q, levels)
		if err != nil {
			if errors.Is(err, repositories.ErrNamespaceNotFound) {
				return &NotFoundError{Resource: "namespace", ID: strings.Join(levels, ".")}
			}
			return fmt.Errorf("failed to get namespace properties: %w", err)
		}

		removed := []string{}
		missing := []string{}
		for _, key := range req.Removals {
			if _, ok := properties[key]; ok {
				delete(properties, key)
				removed = append(removed, key)
			} else {
				missing = append(missing, key)
			}
		}

		updated := []string{}
		for key, value := range updates {
			properties[key] = value
			updated = append(updated, key)
		}

		if err := s.repo.SetProperties(ctx, q, levels, properties); err != nil {
			return fmt.Errorf("failed to persist namespace properties: %w", err)
		}

		resp = &models.UpdateNamespacePropertiesResponse{
			Updated: updated,
			Removed: removed,
		}
		if len(missing) > 0 {
			resp.Missing = missing
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("namespace properties updated", "namespace", levels,
		"updated", len(resp.Updated), "removed", len(resp.Removed))
	return resp, nil
}
