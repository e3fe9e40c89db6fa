package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/janovincze/icecat/internal/api/models"
	"github.com/janovincze/icecat/internal/api/repositories"
	"github.com/janovincze/icecat/internal/store"
)

// ConfigService exposes catalog defaults and overrides, keyed by warehouse.
type ConfigService struct {
	store  *store.Store
	repo   *repositories.ConfigRepository
	logger *slog.Logger
}

// NewConfigService creates a new ConfigService.
func NewConfigService(st *store.Store, repo *repositories.ConfigRepository, logger *slog.Logger) *ConfigService {
	return &ConfigService{
		store:  st,
		repo:   repo,
		logger: logger.With("component", "config-service"),
	}
}

// Get returns the catalog configuration for the given warehouse, falling
// back to the `default` row, then to an empty configuration.
func (s *ConfigService) Get(ctx context.Context, warehouse string) (*models.CatalogConfig, error) {
	catalogName := warehouse
	if catalogName == "" {
		catalogName = "default"
	}

	raw, err := s.repo.GetConfigJSON(ctx, s.store.Querier(), catalogName)
	if err != nil && errors.Is(err, repositories.ErrConfigNotFound) && warehouse != "" {
		s.logger.Debug("no config for warehouse, falling back to default", "warehouse", warehouse)
		raw, err = s.repo.GetConfigJSON(ctx, s.store.Querier(), "default")
	}
	if err != nil {
		if errors.Is(err, repositories.ErrConfigNotFound) {
			s.logger.Warn("no catalog configuration found, returning empty config")
			return &models.CatalogConfig{
				Overrides: map[string]string{},
				Defaults:  map[string]string{},
				Endpoints: []string{},
			}, nil
		}
		return nil, fmt.Errorf("failed to fetch catalog config: %w", err)
	}

	var cfg models.CatalogConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode catalog config: %w", err)
	}
	if cfg.Overrides == nil {
		cfg.Overrides = map[string]string{}
	}
	if cfg.Defaults == nil {
		cfg.Defaults = map[string]string{}
	}
	return &cfg, nil
}

// DefaultWarehouseLocation returns the configured default warehouse
// location, or the given fallback if none is configured.
func (s *ConfigService) DefaultWarehouseLocation(ctx context.Context, fallback string) string {
	location, err := s.repo.GetDefaultWarehouseLocation(ctx, s.store.Querier())
	if err != nil {
		s.logger.Error("failed to fetch default warehouse location", "error", err)
		return fallback
	}
	if location == "" {
		s.logger.Warn("default warehouse location not configured, using fallback")
		return fallback
	}
	return location
}
