package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/helixir/peer-review-service/internal/domain"
)

// Compile-time interface verification.
var _ ReviewerRepository = (*PgReviewerRepository)(nil)

// PgReviewerRepository is a PostgreSQL implementation of ReviewerRepository.
type PgReviewerRepository struct {
	db DBTX
}

// NewPgReviewerRepository creates a new PostgreSQL reviewer repository.
func NewPgReviewerRepository(db DBTX) *PgReviewerRepository {
	return &PgReviewerRepository{db: db}
}

const reviewerColumns = `id, first_name, last_name, email, affiliation, created_at`

// Create inserts a new reviewer.
func (r *PgReviewerRepository) Create(ctx context.Context, reviewer *domain.Reviewer) error {
	if reviewer == nil {
		return domain.NewValidationError("reviewer", "reviewer cannot be nil")
	}
	if err := reviewer.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO reviewers (id, first_name, last_name, email, affiliation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		reviewer.ID, reviewer.FirstName, reviewer.LastName,
		strings.ToLower(reviewer.Email), reviewer.Affiliation, reviewer.CreatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("reviewer", reviewer.Email)
		}
		return fmt.Errorf("failed to create reviewer: %w", err)
	}

	return nil
}

// CreateBatch inserts multiple reviewers in one transaction, skipping rows
// whose email already exists. Rows are inserted with ON CONFLICT DO NOTHING
// so a duplicate never aborts the batch.
func (r *PgReviewerRepository) CreateBatch(ctx context.Context, reviewers []*domain.Reviewer) (*BulkAddResult, error) {
	if len(reviewers) == 0 {
		return nil, domain.NewValidationError("reviewers", "at least one reviewer is required")
	}
	for _, reviewer := range reviewers {
		if reviewer == nil {
			return nil, domain.NewValidationError("reviewers", "reviewer cannot be nil")
		}
		if err := reviewer.Validate(); err != nil {
			return nil, err
		}
	}

	if beginner, ok := r.db.(txBeginner); ok {
		tx, err := beginner.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction for batch insert: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		txRepo := &PgReviewerRepository{db: tx}
		result, err := txRepo.createBatchInTx(ctx, reviewers)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit batch insert: %w", err)
		}
		return result, nil
	}

	return r.createBatchInTx(ctx, reviewers)
}

// createBatchInTx performs the per-row inserts within the current DBTX.
func (r *PgReviewerRepository) createBatchInTx(ctx context.Context, reviewers []*domain.Reviewer) (*BulkAddResult, error) {
	query := `
		INSERT INTO reviewers (id, first_name, last_name, email, affiliation, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (email) DO NOTHING`

	result := &BulkAddResult{
		Added:   make([]string, 0, len(reviewers)),
		Skipped: make([]string, 0),
	}

	for _, reviewer := range reviewers {
		email := strings.ToLower(reviewer.Email)
		tag, err := r.db.Exec(ctx, query,
			reviewer.ID, reviewer.FirstName, reviewer.LastName,
			email, reviewer.Affiliation, reviewer.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert reviewer %s: %w", email, err)
		}
		if tag.RowsAffected() == 0 {
			result.Skipped = append(result.Skipped, email)
		} else {
			result.Added = append(result.Added, email)
		}
	}

	return result, nil
}

// Get retrieves a reviewer by ID.
func (r *PgReviewerRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Reviewer, error) {
	query := fmt.Sprintf(`SELECT %s FROM reviewers WHERE id = $1`, reviewerColumns)

	var reviewer domain.Reviewer
	err := r.db.QueryRow(ctx, query, id).Scan(
		&reviewer.ID, &reviewer.FirstName, &reviewer.LastName,
		&reviewer.Email, &reviewer.Affiliation, &reviewer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("reviewer", id.String())
		}
		return nil, fmt.Errorf("failed to get reviewer: %w", err)
	}

	return &reviewer, nil
}

// GetByEmail retrieves a reviewer by email, matched case-insensitively.
func (r *PgReviewerRepository) GetByEmail(ctx context.Context, email string) (*domain.Reviewer, error) {
	if email == "" {
		return nil, domain.NewValidationError("email", "email is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM reviewers WHERE email = $1`, reviewerColumns)

	var reviewer domain.Reviewer
	err := r.db.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&reviewer.ID, &reviewer.FirstName, &reviewer.LastName,
		&reviewer.Email, &reviewer.Affiliation, &reviewer.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("reviewer", email)
		}
		return nil, fmt.Errorf("failed to get reviewer by email: %w", err)
	}

	return &reviewer, nil
}

// Delete removes a reviewer from the catalog. Embedded assignment records on
// articles are untouched.
func (r *PgReviewerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM reviewers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete reviewer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("reviewer", id.String())
	}
	return nil
}

// List retrieves reviewers matching the filter criteria.
func (r *PgReviewerRepository) List(ctx context.Context, filter ReviewerFilter) ([]*domain.Reviewer, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	conditions := []string{"TRUE"}
	args := []interface{}{}
	argIndex := 1

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		conditions = append(conditions, fmt.Sprintf(
			"(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d OR affiliation ILIKE $%d)",
			argIndex, argIndex, argIndex, argIndex))
		args = append(args, pattern)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM reviewers WHERE %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count reviewers: %w", err)
	}

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM reviewers
		WHERE %s
		ORDER BY last_name ASC, first_name ASC
		LIMIT $%d OFFSET $%d`,
		reviewerColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviewers: %w", err)
	}
	defer rows.Close()

	reviewers := make([]*domain.Reviewer, 0, filter.Limit)
	for rows.Next() {
		var reviewer domain.Reviewer
		if err := rows.Scan(
			&reviewer.ID, &reviewer.FirstName, &reviewer.LastName,
			&reviewer.Email, &reviewer.Affiliation, &reviewer.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan reviewer: %w", err)
		}
		reviewers = append(reviewers, &reviewer)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating reviewers: %w", err)
	}

	return reviewers, totalCount, nil
}
