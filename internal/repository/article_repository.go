package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
)

// ArticleRepository handles manuscript persistence and lifecycle management.
// Reviewer assignments are embedded in the article row so a single write
// commits the article status and its review sub-records together.
type ArticleRepository interface {
	// Create inserts a new article.
	// The article must have a valid ID and JournalID.
	// Returns domain.ErrAlreadyExists if an article with the same ID already exists.
	// Returns domain.ErrInvalidInput if required fields are missing.
	Create(ctx context.Context, article *domain.Article) error

	// Get retrieves an article by its ID.
	// Returns domain.ErrNotFound if no matching article exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Article, error)

	// Update performs a locked update on an article using SELECT FOR UPDATE.
	// The provided function receives the current article state and should return
	// an error if the update should be aborted. Changes made to the article in
	// the function are persisted, and the updated article is returned.
	// Returns domain.ErrNotFound if no matching article exists.
	//
	// Concurrent update behavior:
	//   - If the row lock cannot be acquired before context deadline, returns context.DeadlineExceeded.
	//   - If the provided function returns an error, the transaction is rolled back and that error is returned.
	//   - Callers should use a context with an appropriate timeout to avoid long waits on lock contention.
	Update(ctx context.Context, id uuid.UUID, fn func(*domain.Article) error) (*domain.Article, error)

	// List retrieves articles matching the filter criteria.
	// Returns the matching articles and total count for pagination.
	// The total count reflects all matching records regardless of limit/offset.
	List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error)
}

// ArticleFilter specifies criteria for listing articles.
type ArticleFilter struct {
	// JournalID filters by journal (optional).
	JournalID uuid.UUID

	// Status filters by one or more article statuses (optional).
	// When multiple statuses are provided, articles matching any status are returned.
	Status []domain.ArticleStatus

	// CreatedAfter filters to articles created after this timestamp (optional).
	CreatedAfter *time.Time

	// CreatedBefore filters to articles created before this timestamp (optional).
	CreatedBefore *time.Time

	// Limit specifies maximum number of results (default: 100, max: 1000).
	Limit int

	// Offset specifies the starting position for pagination.
	Offset int
}

// Validate normalizes the filter and applies pagination defaults.
func (f *ArticleFilter) Validate() error {
	applyPaginationDefaults(&f.Limit, &f.Offset)
	return nil
}
