package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/repository"
)

// GetArticle returns the article with its embedded reviewer assignments.
func (s *Service) GetArticle(ctx context.Context, articleID uuid.UUID) (*domain.Article, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	return s.articles.Get(ctx, articleID)
}

// ListArticlesForJournal returns the journal's articles, newest first.
func (s *Service) ListArticlesForJournal(ctx context.Context, journalID uuid.UUID, limit, offset int) ([]*domain.Article, int64, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, 0, err
	}
	if journalID == uuid.Nil {
		return nil, 0, domain.NewValidationError("journal_id", "journal ID is required")
	}

	// Listing a nonexistent journal is NotFound, not an empty page.
	if _, err := s.journals.Get(ctx, journalID); err != nil {
		return nil, 0, err
	}

	return s.articles.List(ctx, repository.ArticleFilter{
		JournalID: journalID,
		Limit:     limit,
		Offset:    offset,
	})
}
