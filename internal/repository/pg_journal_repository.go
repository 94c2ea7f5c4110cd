package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/peer-review-service/internal/domain"
)

// Compile-time interface verification.
var _ JournalRepository = (*PgJournalRepository)(nil)

// PgJournalRepository is a PostgreSQL implementation of JournalRepository.
type PgJournalRepository struct {
	db DBTX
}

// NewPgJournalRepository creates a new PostgreSQL journal repository.
func NewPgJournalRepository(db DBTX) *PgJournalRepository {
	return &PgJournalRepository{db: db}
}

const journalColumns = `id, name, editor_id, editor_email, editor_name, created_at`

// Create inserts a new journal.
func (r *PgJournalRepository) Create(ctx context.Context, journal *domain.Journal) error {
	if journal == nil {
		return domain.NewValidationError("journal", "journal cannot be nil")
	}
	if err := journal.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO journals (id, name, editor_id, editor_email, editor_name, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		journal.ID, journal.Name,
		nullString(journal.EditorID), nullString(journal.EditorEmail), nullString(journal.EditorName),
		journal.CreatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("journal", journal.ID.String())
		}
		return fmt.Errorf("failed to create journal: %w", err)
	}

	return nil
}

// Get retrieves a journal by ID.
func (r *PgJournalRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Journal, error) {
	query := fmt.Sprintf(`SELECT %s FROM journals WHERE id = $1`, journalColumns)

	journal, err := scanJournal(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("journal", id.String())
		}
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}

	return journal, nil
}

// List retrieves all journals ordered by name.
func (r *PgJournalRepository) List(ctx context.Context, limit, offset int) ([]*domain.Journal, int64, error) {
	applyPaginationDefaults(&limit, &offset)

	var totalCount int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journals`).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count journals: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM journals
		ORDER BY name ASC
		LIMIT $1 OFFSET $2`, journalColumns)

	rows, err := r.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list journals: %w", err)
	}
	defer rows.Close()

	journals := make([]*domain.Journal, 0, limit)
	for rows.Next() {
		journal, err := scanJournalFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan journal: %w", err)
		}
		journals = append(journals, journal)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating journals: %w", err)
	}

	return journals, totalCount, nil
}

// SetEditor assigns or replaces the journal's editor.
func (r *PgJournalRepository) SetEditor(ctx context.Context, id uuid.UUID, editorID, editorEmail, editorName string) error {
	if editorID == "" {
		return domain.NewValidationError("editor_id", "editor ID is required")
	}
	if editorEmail == "" {
		return domain.NewValidationError("editor_email", "editor email is required")
	}

	query := `
		UPDATE journals
		SET editor_id = $1, editor_email = $2, editor_name = $3
		WHERE id = $4`

	tag, err := r.db.Exec(ctx, query, editorID, editorEmail, nullString(editorName), id)
	if err != nil {
		return fmt.Errorf("failed to set journal editor: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("journal", id.String())
	}

	return nil
}

// journalScanDest holds the destination pointers for scanning a Journal row.
type journalScanDest struct {
	journal     domain.Journal
	editorID    *string
	editorEmail *string
	editorName  *string
}

func (d *journalScanDest) destinations() []interface{} {
	return []interface{}{
		&d.journal.ID, &d.journal.Name,
		&d.editorID, &d.editorEmail, &d.editorName,
		&d.journal.CreatedAt,
	}
}

func (d *journalScanDest) finalize() *domain.Journal {
	if d.editorID != nil {
		d.journal.EditorID = *d.editorID
	}
	if d.editorEmail != nil {
		d.journal.EditorEmail = *d.editorEmail
	}
	if d.editorName != nil {
		d.journal.EditorName = *d.editorName
	}
	return &d.journal
}

// scanJournal scans a single row into a Journal.
func scanJournal(row pgx.Row) (*domain.Journal, error) {
	var dest journalScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize(), nil
}

// scanJournalFromRows scans the current row from pgx.Rows into a Journal.
func scanJournalFromRows(rows pgx.Rows) (*domain.Journal, error) {
	var dest journalScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize(), nil
}
