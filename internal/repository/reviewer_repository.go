package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
)

// ReviewerRepository handles the reviewer catalog. Deleting a reviewer never
// touches assignment records already embedded in articles; those are frozen
// historical facts.
type ReviewerRepository interface {
	// Create inserts a new reviewer.
	// Returns domain.ErrAlreadyExists if a reviewer with the same email already exists.
	Create(ctx context.Context, reviewer *domain.Reviewer) error

	// CreateBatch inserts multiple reviewers in one transaction.
	// Rows whose email already exists are skipped rather than failing the batch.
	// The returned result reports which emails were added and which were skipped.
	CreateBatch(ctx context.Context, reviewers []*domain.Reviewer) (*BulkAddResult, error)

	// Get retrieves a reviewer by ID.
	// Returns domain.ErrNotFound if no matching reviewer exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Reviewer, error)

	// GetByEmail retrieves a reviewer by email, matched case-insensitively.
	// Returns domain.ErrNotFound if no matching reviewer exists.
	GetByEmail(ctx context.Context, email string) (*domain.Reviewer, error)

	// Delete removes a reviewer from the catalog.
	// Returns domain.ErrNotFound if no matching reviewer exists.
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves reviewers matching the filter criteria.
	// Returns the matching reviewers and total count for pagination.
	List(ctx context.Context, filter ReviewerFilter) ([]*domain.Reviewer, int64, error)
}

// BulkAddResult reports the outcome of a batch reviewer insert.
type BulkAddResult struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// ReviewerFilter specifies criteria for listing reviewers.
type ReviewerFilter struct {
	// Query matches case-insensitively against first name, last name,
	// email, and affiliation (optional).
	Query string

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate normalizes the filter and applies pagination defaults.
func (f *ReviewerFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
