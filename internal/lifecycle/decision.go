package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
)

// SetWorkingStatus records the editor's informational working status. It is
// never terminal: setting accepted or rejected here does not finalize the
// article, and the status remains mutable until an explicit Finalize call.
func (s *Service) SetWorkingStatus(ctx context.Context, articleID uuid.UUID, status domain.ArticleStatus) (*domain.Article, error) {
	if _, err := s.authorizeArticleEditor(ctx, articleID); err != nil {
		return nil, err
	}

	var previous domain.ArticleStatus
	article, err := s.articles.Update(ctx, articleID, func(a *domain.Article) error {
		previous = a.Status
		return a.SetWorkingStatus(status)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStatusChange(string(status))
	s.logger.Info().
		Str("article_id", articleID.String()).
		Str("previous", string(previous)).
		Str("status", string(status)).
		Msg("working status changed")

	s.notifyStatusChanged(article, previous)
	return article, nil
}

// Finalize commits the terminal editorial decision. It is the sole terminal
// transition: a compare-and-set on finalStatus requiring non-empty editor
// comments. Re-finalizing with the same decision is idempotent and returns
// the frozen state without error or re-notification; a conflicting decision
// fails with DecisionConflict.
func (s *Service) Finalize(ctx context.Context, articleID uuid.UUID, decision domain.Decision, editorComments string) (*domain.Article, error) {
	if _, err := s.authorizeArticleEditor(ctx, articleID); err != nil {
		return nil, err
	}

	article, err := s.articles.Update(ctx, articleID, func(a *domain.Article) error {
		return a.Finalize(decision, editorComments, s.now())
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrAlreadyFinalized):
			// The committed decision matches the request. Nothing to
			// commit and nothing to re-notify.
			s.metrics.RecordDecisionReplay("already_finalized")
			frozen, getErr := s.articles.Get(ctx, articleID)
			if getErr != nil {
				return nil, getErr
			}
			s.logger.Info().
				Str("article_id", articleID.String()).
				Str("decision", string(decision)).
				Msg("finalize replay returned frozen decision")
			return frozen, nil
		case errors.Is(err, domain.ErrDecisionConflict):
			s.metrics.RecordDecisionReplay("conflict")
		}
		return nil, err
	}

	s.metrics.RecordDecisionFinalized(string(decision))
	s.logger.Info().
		Str("article_id", articleID.String()).
		Str("decision", string(decision)).
		Msg("decision finalized")

	s.notifyFinalized(article, decision)
	return article, nil
}

func (s *Service) notifyStatusChanged(article *domain.Article, previous domain.ArticleStatus) {
	event, err := domain.NewLifecycleEvent(domain.EventTypeStatusChanged, article.ID, article.JournalID,
		domain.StatusChangedPayload{
			Previous: previous,
			Current:  article.Status,
		})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build status event")
		return
	}
	event.OccurredAt = s.now()
	s.publish(event)
}

func (s *Service) notifyFinalized(article *domain.Article, decision domain.Decision) {
	event, err := domain.NewLifecycleEvent(domain.EventTypeArticleFinalized, article.ID, article.JournalID,
		domain.ArticleFinalizedPayload{
			Decision:       domain.ArticleStatus(decision),
			EditorComments: article.EditorComments,
		})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build decision event")
		return
	}

	recipients := append(article.AuthorEmails(), article.ReviewerEmails()...)
	event.WithRecipients(recipients...).
		WithSubject(fmt.Sprintf("Decision on your submission: %s", article.Title))
	event.OccurredAt = s.now()
	s.publish(event)
}
