// Package services provides business logic for the catalog API.
package services

import "fmt"

// ValidationError indicates a request failed validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("The given %s does not exist: %s", e.Resource, e.ID)
}

// ConflictError indicates a resource already exists.
type ConflictError struct {
	Resource string
	ID       string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("The given %s already exists: %s", e.Resource, e.ID)
}

// NotEmptyError indicates a namespace still owns tables or views.
type NotEmptyError struct {
	Namespace string
}

func (e *NotEmptyError) Error() string {
	return fmt.Sprintf("Namespace is not empty: %s", e.Namespace)
}

// UnprocessableError indicates a semantically invalid request, e.g. a
// property key listed in both removals and updates.
type UnprocessableError struct {
	Message string
}

func (e *UnprocessableError) Error() string {
	return e.Message
}

// PreconditionFailedError indicates a commit requirement was not met. The
// failing requirement type is carried so a stale client can diagnose and
// retry.
type PreconditionFailedError struct {
	RequirementType string
}

func (e *PreconditionFailedError) Error() string {
	return fmt.Sprintf("Table requirement not met: %s", e.RequirementType)
}
