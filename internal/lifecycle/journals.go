package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/identity"
)

// CreateJournal registers a new journal. Admin only.
func (s *Service) CreateJournal(ctx context.Context, name, editorID, editorEmail, editorName string) (*domain.Journal, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != identity.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	journal := &domain.Journal{
		ID:          uuid.New(),
		Name:        name,
		EditorID:    editorID,
		EditorEmail: editorEmail,
		EditorName:  editorName,
		CreatedAt:   s.now(),
	}
	if err := journal.Validate(); err != nil {
		return nil, err
	}

	if err := s.journals.Create(ctx, journal); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("journal_id", journal.ID.String()).
		Str("name", journal.Name).
		Msg("journal created")
	return journal, nil
}

// GetJournal returns a journal by ID.
func (s *Service) GetJournal(ctx context.Context, journalID uuid.UUID) (*domain.Journal, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, err
	}
	return s.journals.Get(ctx, journalID)
}

// ListJournals returns all journals ordered by name.
func (s *Service) ListJournals(ctx context.Context, limit, offset int) ([]*domain.Journal, int64, error) {
	if _, err := actorFrom(ctx); err != nil {
		return nil, 0, err
	}
	return s.journals.List(ctx, limit, offset)
}

// SetJournalEditor assigns or replaces the journal's editor. Admin only.
func (s *Service) SetJournalEditor(ctx context.Context, journalID uuid.UUID, editorID, editorEmail, editorName string) (*domain.Journal, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role != identity.RoleAdmin {
		return nil, domain.ErrForbidden
	}

	if err := s.journals.SetEditor(ctx, journalID, editorID, editorEmail, editorName); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("journal_id", journalID.String()).
		Str("editor_id", editorID).
		Msg("journal editor assigned")
	return s.journals.Get(ctx, journalID)
}
