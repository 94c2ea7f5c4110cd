package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
)

// JournalRepository handles journal persistence and editor assignment.
type JournalRepository interface {
	// Create inserts a new journal.
	// Returns domain.ErrAlreadyExists if a journal with the same ID already exists.
	Create(ctx context.Context, journal *domain.Journal) error

	// Get retrieves a journal by ID.
	// Returns domain.ErrNotFound if no matching journal exists.
	Get(ctx context.Context, id uuid.UUID) (*domain.Journal, error)

	// List retrieves all journals ordered by name.
	List(ctx context.Context, limit, offset int) ([]*domain.Journal, int64, error)

	// SetEditor assigns or replaces the journal's editor.
	// Returns domain.ErrNotFound if no matching journal exists.
	SetEditor(ctx context.Context, id uuid.UUID, editorID, editorEmail, editorName string) error
}
