package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/docstore"
	"github.com/helixir/peer-review-service/internal/domain"
)

// SubmissionInput carries a complete author submission: manuscript and cover
// letter PDFs plus an optional supplementary artifact.
type SubmissionInput struct {
	JournalID uuid.UUID
	Title     string
	Abstract  string
	Keywords  []string
	Authors   []domain.Author

	Manuscript    []byte
	CoverLetter   []byte
	Supplementary []byte
}

// SubmitArticle validates and persists a new submission. The merged artifact
// (cover letter followed by manuscript) is produced before the article row is
// committed; a merge failure aborts the whole submit with nothing persisted.
func (s *Service) SubmitArticle(ctx context.Context, input SubmissionInput) (*domain.Article, error) {
	start := s.now()

	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}

	article := &domain.Article{
		ID:        uuid.New(),
		JournalID: input.JournalID,
		Title:     input.Title,
		Abstract:  input.Abstract,
		Keywords:  input.Keywords,
		Authors:   input.Authors,
		Reviewers: []domain.ReviewerAssignment{},
		Status:    domain.ArticleStatusSubmitted,
		CreatedAt: start,
		UpdatedAt: start,
	}

	if input.JournalID == uuid.Nil {
		s.metrics.RecordSubmissionRejected("validation")
		return nil, domain.NewValidationError("journal_id", "journal ID is required")
	}
	if err := article.ValidateMetadata(); err != nil {
		s.metrics.RecordSubmissionRejected("validation")
		return nil, err
	}
	if err := validateSubmissionDocuments(input); err != nil {
		s.metrics.RecordSubmissionRejected(rejectionReason(err))
		return nil, err
	}

	// The journal must exist before any blob is written.
	journal, err := s.journals.Get(ctx, input.JournalID)
	if err != nil {
		s.metrics.RecordSubmissionRejected("journal_not_found")
		return nil, err
	}

	if article.ManuscriptRef, err = s.docs.Put(ctx, input.Manuscript); err != nil {
		s.metrics.RecordSubmissionRejected("storage")
		return nil, err
	}
	s.metrics.RecordSubmissionArtifact("manuscript", int64(len(input.Manuscript)))

	if article.CoverLetterRef, err = s.docs.Put(ctx, input.CoverLetter); err != nil {
		s.metrics.RecordSubmissionRejected("storage")
		return nil, err
	}
	s.metrics.RecordSubmissionArtifact("cover_letter", int64(len(input.CoverLetter)))

	if len(input.Supplementary) > 0 {
		if article.SupplementaryRef, err = s.docs.Put(ctx, input.Supplementary); err != nil {
			s.metrics.RecordSubmissionRejected("storage")
			return nil, err
		}
		s.metrics.RecordSubmissionArtifact("supplementary", int64(len(input.Supplementary)))
	}

	// Cover letter first, then manuscript. The merged ref is immutable for
	// the article's lifetime.
	mergeStart := s.now()
	article.MergedManuscriptRef, err = s.docs.Merge(ctx, article.CoverLetterRef, article.ManuscriptRef)
	if err != nil {
		s.metrics.RecordDocumentOperation("merge", "failure", s.now().Sub(mergeStart).Seconds())
		s.metrics.RecordSubmissionRejected("merge")
		return nil, err
	}
	s.metrics.RecordDocumentOperation("merge", "success", s.now().Sub(mergeStart).Seconds())

	if err := s.articles.Create(ctx, article); err != nil {
		s.metrics.RecordSubmissionRejected("persist")
		return nil, err
	}

	s.metrics.RecordSubmission(s.now().Sub(start).Seconds())
	s.logger.Info().
		Str("article_id", article.ID.String()).
		Str("journal_id", article.JournalID.String()).
		Str("merged_ref", article.MergedManuscriptRef).
		Msg("article submitted")

	s.notifySubmitted(article, journal)
	return article, nil
}

// FetchMergedManuscript streams back the merged artifact for display.
func (s *Service) FetchMergedManuscript(ctx context.Context, articleID uuid.UUID) ([]byte, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}

	article, err := s.articles.Get(ctx, articleID)
	if err != nil {
		return nil, err
	}

	start := s.now()
	content, err := s.docs.Get(ctx, article.MergedManuscriptRef)
	if err != nil {
		s.metrics.RecordDocumentOperation("fetch", "failure", s.now().Sub(start).Seconds())
		return nil, err
	}
	s.metrics.RecordDocumentOperation("fetch", "success", s.now().Sub(start).Seconds())
	return content, nil
}

// validateSubmissionDocuments enforces the PDF signature on the manuscript
// and cover letter and the size cap on the supplementary artifact.
func validateSubmissionDocuments(input SubmissionInput) error {
	if len(input.Manuscript) == 0 {
		return domain.NewValidationError("manuscript", "manuscript is required")
	}
	if err := docstore.ValidatePDF(input.Manuscript); err != nil {
		return domain.NewValidationError("manuscript", "manuscript must be a PDF")
	}
	if len(input.CoverLetter) == 0 {
		return domain.NewValidationError("cover_letter", "cover letter is required")
	}
	if err := docstore.ValidatePDF(input.CoverLetter); err != nil {
		return domain.NewValidationError("cover_letter", "cover letter must be a PDF")
	}
	if len(input.Supplementary) > domain.MaxSupplementarySize {
		return domain.NewValidationError("supplementary",
			fmt.Sprintf("supplementary material exceeds %d bytes", domain.MaxSupplementarySize))
	}
	return nil
}

// rejectionReason maps a validation failure to a metrics label.
func rejectionReason(err error) string {
	var vErr *domain.ValidationError
	if errors.As(err, &vErr) {
		switch vErr.Field {
		case "supplementary":
			return "oversize_supplementary"
		case "manuscript", "cover_letter":
			return "bad_document"
		}
	}
	return "validation"
}

func (s *Service) notifySubmitted(article *domain.Article, journal *domain.Journal) {
	authorNames := make([]string, 0, len(article.Authors))
	for _, a := range article.Authors {
		authorNames = append(authorNames, a.FullName())
	}

	event, err := domain.NewLifecycleEvent(domain.EventTypeArticleSubmitted, article.ID, article.JournalID,
		domain.ArticleSubmittedPayload{
			ArticleID: article.ID,
			JournalID: article.JournalID,
			Title:     article.Title,
			Authors:   authorNames,
			Keywords:  article.Keywords,
		})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to build submission event")
		return
	}

	recipients := article.AuthorEmails()
	if journal.EditorEmail != "" {
		recipients = append(recipients, journal.EditorEmail)
	}
	event.WithRecipients(recipients...).
		WithSubject(fmt.Sprintf("Submission received: %s", article.Title))
	event.OccurredAt = s.now()

	s.publish(event)
}
