package models

// CredentialRequest registers or replaces a storage credential.
type CredentialRequest struct {
	// Prefix is the organization unit prefix (e.g. dev, test, hr).
	Prefix string `json:"prefix" binding:"required"`

	// Warehouse is the storage location the credential covers
	// (e.g. s3://bucket/path/).
	Warehouse string `json:"warehouse" binding:"required"`

	// Config is the opaque credential configuration.
	Config map[string]string `json:"config" binding:"required"`

	// TableID optionally scopes the credential to a single table.
	TableID *int64 `json:"table_id"`

	// Overwrite replaces an existing credential instead of conflicting.
	Overwrite bool `json:"overwrite"`
}

// CreateCredentialResponse returns the id of the stored credential row.
type CreateCredentialResponse struct {
	ID int64 `json:"id"`
}
