package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/identity"
	"github.com/helixir/peer-review-service/internal/repository"
)

// requirePoolManager checks that the actor may manage the reviewer catalog.
func requirePoolManager(ctx context.Context) error {
	actor, err := actorFrom(ctx)
	if err != nil {
		return err
	}
	if !actor.Is(identity.RoleEditor) {
		return domain.ErrForbidden
	}
	return nil
}

// AddReviewer registers a reviewer in the pool.
func (s *Service) AddReviewer(ctx context.Context, firstName, lastName, email, affiliation string) (*domain.Reviewer, error) {
	if err := requirePoolManager(ctx); err != nil {
		return nil, err
	}

	reviewer := &domain.Reviewer{
		ID:          uuid.New(),
		FirstName:   firstName,
		LastName:    lastName,
		Email:       email,
		Affiliation: affiliation,
		CreatedAt:   s.now(),
	}
	if err := reviewer.Validate(); err != nil {
		return nil, err
	}

	if err := s.reviewers.Create(ctx, reviewer); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("reviewer_id", reviewer.ID.String()).
		Str("email", reviewer.Email).
		Msg("reviewer added to pool")
	return reviewer, nil
}

// AddReviewers bulk-registers reviewers in one transaction. Duplicate emails
// are skipped and reported rather than failing the batch.
func (s *Service) AddReviewers(ctx context.Context, reviewers []*domain.Reviewer) (*repository.BulkAddResult, error) {
	if err := requirePoolManager(ctx); err != nil {
		return nil, err
	}

	now := s.now()
	for _, reviewer := range reviewers {
		if reviewer == nil {
			return nil, domain.NewValidationError("reviewers", "reviewer cannot be nil")
		}
		if reviewer.ID == uuid.Nil {
			reviewer.ID = uuid.New()
		}
		if reviewer.CreatedAt.IsZero() {
			reviewer.CreatedAt = now
		}
	}

	result, err := s.reviewers.CreateBatch(ctx, reviewers)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("added", len(result.Added)).
		Int("skipped", len(result.Skipped)).
		Msg("reviewer pool bulk add")
	return result, nil
}

// GetReviewer returns a reviewer by ID.
func (s *Service) GetReviewer(ctx context.Context, reviewerID uuid.UUID) (*domain.Reviewer, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	return s.reviewers.Get(ctx, reviewerID)
}

// DeleteReviewer removes a reviewer from the pool. Assignment records
// already embedded in articles are untouched; they are frozen historical
// facts.
func (s *Service) DeleteReviewer(ctx context.Context, reviewerID uuid.UUID) error {
	if err := requirePoolManager(ctx); err != nil {
		return err
	}

	if err := s.reviewers.Delete(ctx, reviewerID); err != nil {
		return err
	}

	s.logger.Info().
		Str("reviewer_id", reviewerID.String()).
		Msg("reviewer deleted from pool")
	return nil
}

// SearchReviewers lists reviewers, optionally filtered by a free-text query
// over name, email, and affiliation.
func (s *Service) SearchReviewers(ctx context.Context, query string, limit, offset int) ([]*domain.Reviewer, int64, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, 0, err
	}
	return s.reviewers.List(ctx, repository.ReviewerFilter{
		Query:  query,
		Limit:  limit,
		Offset: offset,
	})
}
