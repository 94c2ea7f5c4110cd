package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/identity"
)

// AssignReviewers attaches reviewers to an article. The operation is
// additive and idempotent: already-assigned emails are no-ops, duplicates
// within the request are collapsed, and capacity is checked against the
// deduplicated union before anything is written. Each newly attached
// reviewer is notified individually.
func (s *Service) AssignReviewers(ctx context.Context, articleID uuid.UUID, emails []string) (*domain.Article, error) {
	if _, err := s.authorizeArticleEditor(ctx, articleID); err != nil {
		return nil, err
	}

	// Every email must exist in the reviewer pool before the article row is
	// touched.
	for _, email := range emails {
		if email == "" {
			return nil, domain.NewValidationError("emails", "reviewer email cannot be empty")
		}
		if _, err := s.reviewers.GetByEmail(ctx, email); err != nil {
			return nil, err
		}
	}

	var added []string
	article, err := s.articles.Update(ctx, articleID, func(a *domain.Article) error {
		var innerErr error
		added, innerErr = a.AssignReviewers(emails, s.now())
		return innerErr
	})
	if err != nil {
		s.metrics.RecordAssignmentRejected(assignmentRejection(err))
		return nil, err
	}

	if len(added) > 0 {
		s.metrics.RecordReviewersAssigned(len(added))
		s.logger.Info().
			Str("article_id", articleID.String()).
			Strs("new_reviewers", added).
			Int("reviewer_count", len(article.Reviewers)).
			Msg("reviewers assigned")
		s.notifyAssigned(article, added)
	}

	return article, nil
}

// RemoveReviewer detaches an unreviewed assignment from the article.
// Assignments with a submitted verdict are frozen and cannot be removed.
func (s *Service) RemoveReviewer(ctx context.Context, articleID uuid.UUID, email string) (*domain.Article, error) {
	if _, err := s.authorizeArticleEditor(ctx, articleID); err != nil {
		return nil, err
	}
	if email == "" {
		return nil, domain.NewValidationError("email", "reviewer email is required")
	}

	article, err := s.articles.Update(ctx, articleID, func(a *domain.Article) error {
		return a.RemoveReviewer(email)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordReviewerRemoved()
	s.logger.Info().
		Str("article_id", articleID.String()).
		Str("reviewer_email", email).
		Msg("reviewer removed")

	return article, nil
}

// authorizeArticleEditor resolves the article's journal and checks editor
// scope on it.
func (s *Service) authorizeArticleEditor(ctx context.Context, articleID uuid.UUID) (*domain.Article, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}

	article, err := s.articles.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}

	if actor.Role == identity.RoleAdmin {
		return article, nil
	}
	if actor.Role != identity.RoleEditor {
		return nil, domain.ErrForbidden
	}

	journal, err := s.journals.Get(ctx, article.JournalID)
	if err != nil {
		return nil, err
	}
	if !journal.EditedBy(actor.ID) {
		return nil, domain.ErrForbidden
	}
	return article, nil
}

// assignmentRejection maps an assignment failure to a metrics label.
func assignmentRejection(err error) string {
	switch {
	case errors.Is(err, domain.ErrCapacityExceeded):
		return "capacity"
	case errors.Is(err, domain.ErrArticleLocked):
		return "locked"
	case errors.Is(err, domain.ErrInvalidInput):
		return "validation"
	default:
		return "other"
	}
}

func (s *Service) notifyAssigned(article *domain.Article, added []string) {
	payload := domain.ReviewersAssignedPayload{
		NewReviewers:  added,
		ReviewerCount: len(article.Reviewers),
	}

	// One notification per newly attached reviewer.
	for _, email := range added {
		event, err := domain.NewLifecycleEvent(domain.EventTypeReviewersAssigned, article.ID, article.JournalID, payload)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to build assignment event")
			return
		}
		event.WithRecipients(email).
			WithSubject(fmt.Sprintf("Review requested: %s", article.Title))
		event.OccurredAt = s.now()
		s.publish(event)
	}
}
