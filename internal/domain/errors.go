package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors for common error conditions. Typed wrappers below unwrap to
// these so callers can branch with errors.Is and still surface detail with
// errors.As.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates that an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates that the request lacks valid authentication.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates that the request is not allowed for the authenticated actor.
	ErrForbidden = errors.New("forbidden")

	// ErrCapacityExceeded indicates that an assignment would exceed the reviewer capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// ErrArticleLocked indicates a mutation was attempted on a finalized article.
	ErrArticleLocked = errors.New("article locked")

	// ErrAlreadyReviewed indicates a verdict was already submitted for the assignment.
	ErrAlreadyReviewed = errors.New("already reviewed")

	// ErrAlreadyFinalized indicates the article already carries this terminal decision.
	ErrAlreadyFinalized = errors.New("already finalized")

	// ErrDecisionConflict indicates a finalize attempt conflicting with the committed decision.
	ErrDecisionConflict = errors.New("decision conflict")

	// ErrStorage indicates a document store failure.
	ErrStorage = errors.New("storage error")

	// ErrInternalError indicates an internal server error.
	ErrInternalError = errors.New("internal error")
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AlreadyExistsError provides details about a duplicate entity.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyExistsError) Unwrap() error {
	return ErrAlreadyExists
}

// CapacityError reports a reviewer assignment that would exceed MaxReviewers.
type CapacityError struct {
	ArticleID uuid.UUID
	Requested int
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("article %s: %d reviewers requested, at most %d allowed", e.ArticleID, e.Requested, MaxReviewers)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *CapacityError) Unwrap() error {
	return ErrCapacityExceeded
}

// LockedError reports a mutation attempted on a finalized article.
type LockedError struct {
	ArticleID uuid.UUID
}

// Error implements the error interface.
func (e *LockedError) Error() string {
	return fmt.Sprintf("article %s is finalized and cannot be modified", e.ArticleID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *LockedError) Unwrap() error {
	return ErrArticleLocked
}

// AlreadyReviewedError reports a second verdict submission for the same
// (article, reviewer) pair, or an attempt to remove a reviewed assignment.
type AlreadyReviewedError struct {
	ArticleID uuid.UUID
	Email     string
}

// Error implements the error interface.
func (e *AlreadyReviewedError) Error() string {
	return fmt.Sprintf("reviewer %s has already submitted a review for article %s", e.Email, e.ArticleID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyReviewedError) Unwrap() error {
	return ErrAlreadyReviewed
}

// AlreadyFinalizedError reports a finalize call on an article whose committed
// decision matches the requested one. Callers treat this as an idempotent
// read of the frozen state.
type AlreadyFinalizedError struct {
	ArticleID uuid.UUID
	Decision  ArticleStatus
}

// Error implements the error interface.
func (e *AlreadyFinalizedError) Error() string {
	return fmt.Sprintf("article %s is already finalized as %s", e.ArticleID, e.Decision)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *AlreadyFinalizedError) Unwrap() error {
	return ErrAlreadyFinalized
}

// DecisionConflictError reports a finalize call whose decision conflicts with
// the already-committed one. The stored decision always wins.
type DecisionConflictError struct {
	ArticleID uuid.UUID
	Committed ArticleStatus
	Requested ArticleStatus
}

// Error implements the error interface.
func (e *DecisionConflictError) Error() string {
	return fmt.Sprintf("article %s is finalized as %s; conflicting decision %s rejected", e.ArticleID, e.Committed, e.Requested)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *DecisionConflictError) Unwrap() error {
	return ErrDecisionConflict
}

// StorageError reports a document store failure during an operation.
type StorageError struct {
	Op    string
	Cause error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("document store %s failed: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
// The cause remains reachable through errors.As on the StorageError itself.
func (e *StorageError) Unwrap() error {
	return ErrStorage
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewAlreadyExistsError creates a new AlreadyExistsError.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{
		Entity: entity,
		ID:     id,
	}
}

// NewCapacityError creates a new CapacityError.
func NewCapacityError(articleID uuid.UUID, requested int) *CapacityError {
	return &CapacityError{
		ArticleID: articleID,
		Requested: requested,
	}
}

// NewLockedError creates a new LockedError.
func NewLockedError(articleID uuid.UUID) *LockedError {
	return &LockedError{ArticleID: articleID}
}

// NewAlreadyReviewedError creates a new AlreadyReviewedError.
func NewAlreadyReviewedError(articleID uuid.UUID, email string) *AlreadyReviewedError {
	return &AlreadyReviewedError{
		ArticleID: articleID,
		Email:     email,
	}
}

// NewAlreadyFinalizedError creates a new AlreadyFinalizedError.
func NewAlreadyFinalizedError(articleID uuid.UUID, decision ArticleStatus) *AlreadyFinalizedError {
	return &AlreadyFinalizedError{
		ArticleID: articleID,
		Decision:  decision,
	}
}

// NewDecisionConflictError creates a new DecisionConflictError.
func NewDecisionConflictError(articleID uuid.UUID, committed, requested ArticleStatus) *DecisionConflictError {
	return &DecisionConflictError{
		ArticleID: articleID,
		Committed: committed,
		Requested: requested,
	}
}

// NewStorageError creates a new StorageError wrapping the given cause.
func NewStorageError(op string, cause error) *StorageError {
	return &StorageError{
		Op:    op,
		Cause: cause,
	}
}
