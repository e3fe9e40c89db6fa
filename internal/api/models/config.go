package models

// CatalogConfig is the server-provided configuration for the catalog.
type CatalogConfig struct {
	// Overrides are properties that override client configuration; applied
	// after defaults and client configuration.
	Overrides map[string]string `json:"overrides"`

	// Defaults are properties applied before client configuration.
	Defaults map[string]string `json:"defaults"`

	// Endpoints lists the endpoints the server supports.
	Endpoints []string `json:"endpoints,omitempty"`
}
