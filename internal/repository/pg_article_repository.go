package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/helixir/peer-review-service/internal/domain"
)

// txBeginner is an interface for types that can begin a transaction (e.g., *pgxpool.Pool, *database.DB).
// Used by Update to automatically wrap SELECT FOR UPDATE + UPDATE in a transaction
// when the underlying DBTX is a pool rather than an existing transaction.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgreSQL error codes used for constraint violation detection.
const (
	pgUniqueViolation     = "23505" // unique_violation
	pgForeignKeyViolation = "23503" // foreign_key_violation
)

// Compile-time interface verification.
var _ ArticleRepository = (*PgArticleRepository)(nil)

// PgArticleRepository is a PostgreSQL implementation of ArticleRepository.
type PgArticleRepository struct {
	db DBTX
}

// NewPgArticleRepository creates a new PostgreSQL article repository.
func NewPgArticleRepository(db DBTX) *PgArticleRepository {
	return &PgArticleRepository{db: db}
}

const articleColumns = `id, journal_id, title, abstract, keywords, authors,
		manuscript_ref, cover_letter_ref, supplementary_ref, merged_manuscript_ref,
		reviewers, status, final_status, editor_comments,
		created_at, updated_at`

// Create inserts a new article.
func (r *PgArticleRepository) Create(ctx context.Context, article *domain.Article) error {
	if article == nil {
		return domain.NewValidationError("article", "article cannot be nil")
	}
	if article.ID == uuid.Nil {
		return domain.NewValidationError("id", "article ID is required")
	}
	if article.JournalID == uuid.Nil {
		return domain.NewValidationError("journal_id", "journal ID is required")
	}

	keywordsJSON, err := json.Marshal(article.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	authorsJSON, err := json.Marshal(article.Authors)
	if err != nil {
		return fmt.Errorf("failed to marshal authors: %w", err)
	}

	reviewersJSON, err := marshalReviewers(article.Reviewers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO articles (
			id, journal_id, title, abstract, keywords, authors,
			manuscript_ref, cover_letter_ref, supplementary_ref, merged_manuscript_ref,
			reviewers, status, final_status, editor_comments,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16
		)`

	_, err = r.db.Exec(ctx, query,
		article.ID, article.JournalID, article.Title, article.Abstract, keywordsJSON, authorsJSON,
		article.ManuscriptRef, article.CoverLetterRef, nullString(article.SupplementaryRef), article.MergedManuscriptRef,
		reviewersJSON, article.Status, nullString(string(article.FinalStatus)), nullString(article.EditorComments),
		article.CreatedAt, article.UpdatedAt,
	)

	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.NewAlreadyExistsError("article", article.ID.String())
		}
		if isPgForeignKeyViolation(err) {
			return domain.NewNotFoundError("journal", article.JournalID.String())
		}
		return fmt.Errorf("failed to create article: %w", err)
	}

	return nil
}

// Get retrieves an article by its ID.
func (r *PgArticleRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	query := fmt.Sprintf(`SELECT %s FROM articles WHERE id = $1`, articleColumns)

	row := r.db.QueryRow(ctx, query, id)
	article, err := scanArticle(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("article", id.String())
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return article, nil
}

// Update performs a locked update on an article using SELECT FOR UPDATE.
//
// Transaction Management:
// This method uses SELECT FOR UPDATE which requires a transaction for correct locking.
// If the underlying DBTX is a connection pool (supports Begin), the method automatically
// wraps the SELECT FOR UPDATE + UPDATE in an explicit transaction. If the underlying
// DBTX is already a transaction, it executes within that existing transaction.
//
// Callers may still provide their own transaction if they need to include additional
// operations in the same atomic unit:
//
//	tx, err := pool.Begin(ctx)
//	if err != nil { return err }
//	defer tx.Rollback(ctx)
//
//	repo := NewPgArticleRepository(tx)
//	updated, err := repo.Update(ctx, id, func(a *domain.Article) error {
//	    _, err := a.AssignReviewers(emails, time.Now().UTC())
//	    return err
//	})
//	if err != nil { return err }
//
//	return tx.Commit(ctx)
func (r *PgArticleRepository) Update(ctx context.Context, id uuid.UUID, fn func(*domain.Article) error) (*domain.Article, error) {
	// If the underlying DBTX supports Begin (i.e., it's a pool, not already a transaction),
	// wrap the SELECT FOR UPDATE + UPDATE in an explicit transaction to prevent lost updates.
	if beginner, ok := r.db.(txBeginner); ok {
		tx, err := beginner.Begin(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to begin transaction for update: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		txRepo := &PgArticleRepository{db: tx}
		article, err := txRepo.updateInTx(ctx, id, fn)
		if err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit article update: %w", err)
		}
		return article, nil
	}

	// Already running within a transaction, execute directly.
	return r.updateInTx(ctx, id, fn)
}

// updateInTx performs the actual SELECT FOR UPDATE + UPDATE within the current DBTX.
// This must be called within a transaction for correct row-level locking.
func (r *PgArticleRepository) updateInTx(ctx context.Context, id uuid.UUID, fn func(*domain.Article) error) (*domain.Article, error) {
	selectQuery := fmt.Sprintf(`SELECT %s FROM articles WHERE id = $1 FOR UPDATE`, articleColumns)

	rows, err := r.db.Query(ctx, selectQuery, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query article for update: %w", err)
	}

	article, err := scanArticleRows(rows)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("article", id.String())
		}
		return nil, fmt.Errorf("failed to scan article: %w", err)
	}

	// Apply the update function
	before := article.UpdatedAt
	if err := fn(article); err != nil {
		return nil, err
	}
	touchUpdatedAt(article, before)

	keywordsJSON, err := json.Marshal(article.Keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keywords: %w", err)
	}

	authorsJSON, err := json.Marshal(article.Authors)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal authors: %w", err)
	}

	reviewersJSON, err := marshalReviewers(article.Reviewers)
	if err != nil {
		return nil, err
	}

	updateQuery := `
		UPDATE articles SET
			title = $1,
			abstract = $2,
			keywords = $3,
			authors = $4,
			reviewers = $5,
			status = $6,
			final_status = $7,
			editor_comments = $8,
			updated_at = $9
		WHERE id = $10`

	_, err = r.db.Exec(ctx, updateQuery,
		article.Title,
		article.Abstract,
		keywordsJSON,
		authorsJSON,
		reviewersJSON,
		article.Status,
		nullString(string(article.FinalStatus)),
		nullString(article.EditorComments),
		article.UpdatedAt,
		id,
	)

	if err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}

	return article, nil
}

// List retrieves articles matching the filter criteria.
func (r *PgArticleRepository) List(ctx context.Context, filter ArticleFilter) ([]*domain.Article, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	// Build dynamic WHERE clause
	conditions := []string{"TRUE"}
	args := []interface{}{}
	argIndex := 1

	if filter.JournalID != uuid.Nil {
		conditions = append(conditions, fmt.Sprintf("journal_id = $%d", argIndex))
		args = append(args, filter.JournalID)
		argIndex++
	}

	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, s := range filter.Status {
			placeholders[i] = fmt.Sprintf("$%d", argIndex)
			args = append(args, s)
			argIndex++
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ", ")))
	}

	if filter.CreatedAfter != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", argIndex))
		args = append(args, *filter.CreatedAfter)
		argIndex++
	}

	if filter.CreatedBefore != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIndex))
		args = append(args, *filter.CreatedBefore)
		argIndex++
	}

	whereClause := strings.Join(conditions, " AND ")

	// Count total matching records
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM articles WHERE %s", whereClause)
	var totalCount int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count articles: %w", err)
	}

	// Query with pagination
	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM articles
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		articleColumns, whereClause, argIndex, argIndex+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]*domain.Article, 0, filter.Limit)
	for rows.Next() {
		article, err := scanArticleFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, article)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating articles: %w", err)
	}

	return articles, totalCount, nil
}

// marshalReviewers serializes the embedded assignment list, normalizing nil to
// an empty JSON array so round-trips preserve a non-null column value.
func marshalReviewers(reviewers []domain.ReviewerAssignment) ([]byte, error) {
	if reviewers == nil {
		reviewers = []domain.ReviewerAssignment{}
	}
	data, err := json.Marshal(reviewers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reviewers: %w", err)
	}
	return data, nil
}

// isPgUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}

// isPgForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isPgForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgForeignKeyViolation
	}
	return false
}

// articleScanDest holds the destination pointers for scanning an Article row.
// This eliminates code duplication between pgx.Row and pgx.Rows scanning.
type articleScanDest struct {
	article          domain.Article
	keywordsJSON     []byte
	authorsJSON      []byte
	reviewersJSON    []byte
	supplementaryRef *string
	finalStatus      *string
	editorComments   *string
}

// destinations returns the slice of pointers for Scan operations.
func (d *articleScanDest) destinations() []interface{} {
	return []interface{}{
		&d.article.ID, &d.article.JournalID, &d.article.Title, &d.article.Abstract, &d.keywordsJSON, &d.authorsJSON,
		&d.article.ManuscriptRef, &d.article.CoverLetterRef, &d.supplementaryRef, &d.article.MergedManuscriptRef,
		&d.reviewersJSON, &d.article.Status, &d.finalStatus, &d.editorComments,
		&d.article.CreatedAt, &d.article.UpdatedAt,
	}
}

// finalize performs post-scan processing: sets nullable string fields and unmarshals JSON.
func (d *articleScanDest) finalize() (*domain.Article, error) {
	if d.supplementaryRef != nil {
		d.article.SupplementaryRef = *d.supplementaryRef
	}
	if d.finalStatus != nil {
		d.article.FinalStatus = domain.ArticleStatus(*d.finalStatus)
	}
	if d.editorComments != nil {
		d.article.EditorComments = *d.editorComments
	}

	if len(d.keywordsJSON) > 0 {
		if err := json.Unmarshal(d.keywordsJSON, &d.article.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
	}

	if len(d.authorsJSON) > 0 {
		if err := json.Unmarshal(d.authorsJSON, &d.article.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}

	if len(d.reviewersJSON) > 0 {
		if err := json.Unmarshal(d.reviewersJSON, &d.article.Reviewers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal reviewers: %w", err)
		}
	}

	return &d.article, nil
}

// scanArticle scans a single row into an Article.
func scanArticle(row pgx.Row) (*domain.Article, error) {
	var dest articleScanDest
	if err := row.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// scanArticleRows scans a single row from pgx.Rows into an Article.
// This is used with SELECT FOR UPDATE which returns Rows instead of Row.
func scanArticleRows(rows pgx.Rows) (*domain.Article, error) {
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, pgx.ErrNoRows
	}

	return scanArticleFromRows(rows)
}

// scanArticleFromRows scans the current row from pgx.Rows into an Article.
func scanArticleFromRows(rows pgx.Rows) (*domain.Article, error) {
	var dest articleScanDest
	if err := rows.Scan(dest.destinations()...); err != nil {
		return nil, err
	}
	return dest.finalize()
}

// nullString returns a pointer to the string if non-empty, otherwise nil.
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// touchUpdatedAt stamps the article's UpdatedAt if the mutation left it unset
// relative to the wall clock. Domain mutations stamp it themselves; this keeps
// repository-level edits consistent.
func touchUpdatedAt(article *domain.Article, before time.Time) {
	if !article.UpdatedAt.After(before) {
		article.UpdatedAt = time.Now().UTC()
	}
}
