package lifecycle

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/identity"
)

// RecordReview submits a reviewer's verdict for an article. Verdicts are
// write-once: a second submission by the same reviewer fails with
// AlreadyReviewed and the first verdict stands. Recording a review never
// changes the article's working status or final status.
func (s *Service) RecordReview(ctx context.Context, articleID uuid.UUID, reviewerEmail string, verdict domain.ReviewVerdict, comments string) (*domain.Article, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if reviewerEmail == "" {
		return nil, domain.NewValidationError("email", "reviewer email is required")
	}

	// Reviewers may only submit under their own identity; admin may submit
	// on a reviewer's behalf.
	if actor.Role != identity.RoleAdmin {
		if actor.Role != identity.RoleReviewer || !strings.EqualFold(actor.Email, reviewerEmail) {
			return nil, domain.ErrForbidden
		}
	}

	article, err := s.articles.Update(ctx, articleID, func(a *domain.Article) error {
		_, innerErr := a.RecordReview(reviewerEmail, verdict, comments, s.now())
		return innerErr
	})
	if err != nil {
		s.metrics.RecordReviewRejected(reviewRejection(err))
		return nil, err
	}

	s.metrics.RecordReviewRecorded(string(verdict))

	done := 0
	for _, assignment := range article.Reviewers {
		if assignment.Reviewed {
			done++
		}
	}
	s.logger.Info().
		Str("article_id", articleID.String()).
		Str("reviewer_email", reviewerEmail).
		Str("verdict", string(verdict)).
		Int("reviews_done", done).
		Int("reviews_total", len(article.Reviewers)).
		Msg("review recorded")

	s.notifyReviewRecorded(article, reviewerEmail, verdict, done)
	return article, nil
}

// reviewRejection maps a review failure to a metrics label.
func reviewRejection(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyReviewed):
		return "already_reviewed"
	case errors.Is(err, domain.ErrArticleLocked):
		return "locked"
	case errors.Is(err, domain.ErrNotFound):
		return "not_assigned"
	case errors.Is(err, domain.ErrInvalidInput):
		return "validation"
	default:
		return "other"
	}
}

func (s *Service) notifyReviewRecorded(article *domain.Article, reviewerEmail string, verdict domain.ReviewVerdict, done int) {
	event, err := domain.NewLifecycleEvent(domain.EventTypeReviewRecorded, article.ID, article.JournalID,
		domain.ReviewRecordedPayload{
			ReviewerEmail: reviewerEmail,
			Verdict:       verdict,
			ReviewsDone:   done,
			ReviewsTotal:  len(article.Reviewers),
		})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build review event")
		return
	}
	// Stream-only: editors watch progress through the event feed.
	event.OccurredAt = s.now()
	s.publish(event)
}
