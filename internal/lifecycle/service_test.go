package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/peer-review-service/internal/docstore"
	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/identity"
	"github.com/helixir/peer-review-service/internal/observability"
	"github.com/helixir/peer-review-service/internal/repository"
)

// ---- in-memory fakes -------------------------------------------------------

type memArticleRepo struct {
	mu       sync.Mutex
	articles map[uuid.UUID]*domain.Article
}

func newMemArticleRepo() *memArticleRepo {
	return &memArticleRepo{articles: make(map[uuid.UUID]*domain.Article)}
}

func cloneArticle(a *domain.Article) *domain.Article {
	data, _ := json.Marshal(a)
	var out domain.Article
	_ = json.Unmarshal(data, &out)
	return &out
}

func (r *memArticleRepo) Create(ctx context.Context, article *domain.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.articles[article.ID]; ok {
		return domain.NewAlreadyExistsError("article", article.ID.String())
	}
	r.articles[article.ID] = cloneArticle(article)
	return nil
}

func (r *memArticleRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.articles[id]
	if !ok {
		return nil, domain.NewNotFoundError("article", id.String())
	}
	return cloneArticle(article), nil
}

func (r *memArticleRepo) Update(ctx context.Context, id uuid.UUID, fn func(*domain.Article) error) (*domain.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	article, ok := r.articles[id]
	if !ok {
		return nil, domain.NewNotFoundError("article", id.String())
	}
	working := cloneArticle(article)
	if err := fn(working); err != nil {
		return nil, err
	}
	r.articles[id] = cloneArticle(working)
	return working, nil
}

func (r *memArticleRepo) List(ctx context.Context, filter repository.ArticleFilter) ([]*domain.Article, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Article
	for _, article := range r.articles {
		if filter.JournalID != uuid.Nil && article.JournalID != filter.JournalID {
			continue
		}
		out = append(out, cloneArticle(article))
	}
	return out, int64(len(out)), nil
}

type memReviewerRepo struct {
	mu        sync.Mutex
	reviewers map[string]*domain.Reviewer // keyed by lowercase email
}

func newMemReviewerRepo() *memReviewerRepo {
	return &memReviewerRepo{reviewers: make(map[string]*domain.Reviewer)}
}

func (r *memReviewerRepo) Create(ctx context.Context, reviewer *domain.Reviewer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(reviewer.Email)
	if _, ok := r.reviewers[key]; ok {
		return domain.NewAlreadyExistsError("reviewer", reviewer.Email)
	}
	r.reviewers[key] = reviewer
	return nil
}

func (r *memReviewerRepo) CreateBatch(ctx context.Context, reviewers []*domain.Reviewer) (*repository.BulkAddResult, error) {
	result := &repository.BulkAddResult{Added: []string{}, Skipped: []string{}}
	for _, reviewer := range reviewers {
		if err := reviewer.Validate(); err != nil {
			return nil, err
		}
		if err := r.Create(ctx, reviewer); err != nil {
			result.Skipped = append(result.Skipped, strings.ToLower(reviewer.Email))
			continue
		}
		result.Added = append(result.Added, strings.ToLower(reviewer.Email))
	}
	return result, nil
}

func (r *memReviewerRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Reviewer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, reviewer := range r.reviewers {
		if reviewer.ID == id {
			return reviewer, nil
		}
	}
	return nil, domain.NewNotFoundError("reviewer", id.String())
}

func (r *memReviewerRepo) GetByEmail(ctx context.Context, email string) (*domain.Reviewer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reviewer, ok := r.reviewers[strings.ToLower(email)]
	if !ok {
		return nil, domain.NewNotFoundError("reviewer", email)
	}
	return reviewer, nil
}

func (r *memReviewerRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, reviewer := range r.reviewers {
		if reviewer.ID == id {
			delete(r.reviewers, key)
			return nil
		}
	}
	return domain.NewNotFoundError("reviewer", id.String())
}

func (r *memReviewerRepo) List(ctx context.Context, filter repository.ReviewerFilter) ([]*domain.Reviewer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Reviewer
	q := strings.ToLower(filter.Query)
	for _, reviewer := range r.reviewers {
		if q != "" {
			haystack := strings.ToLower(reviewer.FirstName + " " + reviewer.LastName + " " + reviewer.Email + " " + reviewer.Affiliation)
			if !strings.Contains(haystack, q) {
				continue
			}
		}
		out = append(out, reviewer)
	}
	return out, int64(len(out)), nil
}

type memJournalRepo struct {
	mu       sync.Mutex
	journals map[uuid.UUID]*domain.Journal
}

func newMemJournalRepo() *memJournalRepo {
	return &memJournalRepo{journals: make(map[uuid.UUID]*domain.Journal)}
}

func (r *memJournalRepo) Create(ctx context.Context, journal *domain.Journal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.journals[journal.ID]; ok {
		return domain.NewAlreadyExistsError("journal", journal.ID.String())
	}
	r.journals[journal.ID] = journal
	return nil
}

func (r *memJournalRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Journal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	journal, ok := r.journals[id]
	if !ok {
		return nil, domain.NewNotFoundError("journal", id.String())
	}
	return journal, nil
}

func (r *memJournalRepo) List(ctx context.Context, limit, offset int) ([]*domain.Journal, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.Journal
	for _, journal := range r.journals {
		out = append(out, journal)
	}
	return out, int64(len(out)), nil
}

func (r *memJournalRepo) SetEditor(ctx context.Context, id uuid.UUID, editorID, editorEmail, editorName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	journal, ok := r.journals[id]
	if !ok {
		return domain.NewNotFoundError("journal", id.String())
	}
	journal.EditorID = editorID
	journal.EditorEmail = editorEmail
	journal.EditorName = editorName
	return nil
}

type capturingNotifier struct {
	mu     sync.Mutex
	events []*domain.LifecycleEvent
}

func (n *capturingNotifier) Enqueue(event *domain.LifecycleEvent) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return true
}

func (n *capturingNotifier) byType(eventType string) []*domain.LifecycleEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*domain.LifecycleEvent
	for _, e := range n.events {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}

// failingDocStore fails Merge to exercise the abort path.
type failingDocStore struct {
	inner DocumentStore
}

func (f *failingDocStore) Put(ctx context.Context, content []byte) (string, error) {
	return f.inner.Put(ctx, content)
}

func (f *failingDocStore) Get(ctx context.Context, ref string) ([]byte, error) {
	return f.inner.Get(ctx, ref)
}

func (f *failingDocStore) Merge(ctx context.Context, firstRef, secondRef string) (string, error) {
	return "", domain.NewStorageError("merge", errors.New("disk full"))
}

// ---- harness ---------------------------------------------------------------

type testEnv struct {
	svc       *Service
	articles  *memArticleRepo
	reviewers *memReviewerRepo
	journals  *memJournalRepo
	docs      *docstore.Store
	notifier  *capturingNotifier

	journal *domain.Journal
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	docs, err := docstore.New(docstore.Config{Root: t.TempDir()})
	require.NoError(t, err)

	env := &testEnv{
		articles:  newMemArticleRepo(),
		reviewers: newMemReviewerRepo(),
		journals:  newMemJournalRepo(),
		docs:      docs,
		notifier:  &capturingNotifier{},
	}
	env.svc = New(env.articles, env.reviewers, env.journals, docs, env.notifier,
		zerolog.Nop(), observability.NewMetrics("test_lifecycle_"+uuid.NewString()[:8]))

	env.journal = &domain.Journal{
		ID:          uuid.New(),
		Name:        "Journal of Systems",
		EditorID:    "editor-1",
		EditorEmail: "editor@example.org",
		EditorName:  "Edna Editor",
	}
	require.NoError(t, env.journals.Create(context.Background(), env.journal))
	return env
}

func ctxAs(role identity.Role, id, email string) context.Context {
	return identity.WithActor(context.Background(), &identity.Actor{ID: id, Role: role, Email: email})
}

func (env *testEnv) authorCtx() context.Context {
	return ctxAs(identity.RoleAuthor, "author-1", "ada@example.org")
}

func (env *testEnv) editorCtx() context.Context {
	return ctxAs(identity.RoleEditor, "editor-1", "editor@example.org")
}

func validInput(journalID uuid.UUID) SubmissionInput {
	return SubmissionInput{
		JournalID: journalID,
		Title:     "On Locking",
		Keywords:  []string{"locking"},
		Authors: []domain.Author{
			{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.org", FirstAuthor: true},
		},
		Manuscript:  []byte("%PDF-1.7 manuscript body"),
		CoverLetter: []byte("%PDF-1.7 cover letter body"),
	}
}

func (env *testEnv) submit(t *testing.T) *domain.Article {
	t.Helper()
	article, err := env.svc.SubmitArticle(env.authorCtx(), validInput(env.journal.ID))
	require.NoError(t, err)
	return article
}

func (env *testEnv) addPoolReviewer(t *testing.T, email string) *domain.Reviewer {
	t.Helper()
	reviewer, err := env.svc.AddReviewer(env.editorCtx(), "Rev", "Iewer", email, "Some Lab")
	require.NoError(t, err)
	return reviewer
}

// ---- intake ----------------------------------------------------------------

func TestSubmitArticle(t *testing.T) {
	t.Run("persists article with merged artifact", func(t *testing.T) {
		env := newTestEnv(t)

		article := env.submit(t)
		assert.Equal(t, domain.ArticleStatusSubmitted, article.Status)
		assert.False(t, article.IsFinalized())
		assert.Empty(t, article.Reviewers)

		// Merged artifact is cover letter then manuscript.
		merged, err := env.svc.FetchMergedManuscript(env.authorCtx(), article.ID)
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.7 cover letter body%PDF-1.7 manuscript body", string(merged))

		// Authors and the journal editor are notified.
		events := env.notifier.byType(domain.EventTypeArticleSubmitted)
		require.Len(t, events, 1)
		assert.ElementsMatch(t, []string{"ada@example.org", "editor@example.org"}, events[0].Recipients)
	})

	t.Run("rejects bad metadata", func(t *testing.T) {
		env := newTestEnv(t)

		input := validInput(env.journal.ID)
		input.Title = ""
		_, err := env.svc.SubmitArticle(env.authorCtx(), input)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("rejects non-PDF manuscript", func(t *testing.T) {
		env := newTestEnv(t)

		input := validInput(env.journal.ID)
		input.Manuscript = []byte("just text")
		_, err := env.svc.SubmitArticle(env.authorCtx(), input)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("rejects oversized supplementary", func(t *testing.T) {
		env := newTestEnv(t)

		input := validInput(env.journal.ID)
		input.Supplementary = make([]byte, domain.MaxSupplementarySize+1)
		_, err := env.svc.SubmitArticle(env.authorCtx(), input)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("rejects unknown journal", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.SubmitArticle(env.authorCtx(), validInput(uuid.New()))
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("merge failure aborts the whole submit", func(t *testing.T) {
		env := newTestEnv(t)
		env.svc.docs = &failingDocStore{inner: env.docs}

		_, err := env.svc.SubmitArticle(env.authorCtx(), validInput(env.journal.ID))
		assert.True(t, errors.Is(err, domain.ErrStorage))

		// Nothing persisted and nothing notified.
		articles, _, listErr := env.articles.List(context.Background(), repository.ArticleFilter{})
		require.NoError(t, listErr)
		assert.Empty(t, articles)
		assert.Empty(t, env.notifier.byType(domain.EventTypeArticleSubmitted))
	})

	t.Run("requires authentication", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.SubmitArticle(context.Background(), validInput(env.journal.ID))
		assert.True(t, errors.Is(err, domain.ErrUnauthorized))
	})
}

// ---- reviewer assignment ---------------------------------------------------

func TestAssignReviewers(t *testing.T) {
	t.Run("assigns pool reviewers and notifies each new one", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")
		env.addPoolReviewer(t, "r2@example.org")

		updated, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"r1@example.org", "r2@example.org"})
		require.NoError(t, err)
		assert.Len(t, updated.Reviewers, 2)

		events := env.notifier.byType(domain.EventTypeReviewersAssigned)
		require.Len(t, events, 2)
		assert.Equal(t, []string{"r1@example.org"}, events[0].Recipients)
		assert.Equal(t, []string{"r2@example.org"}, events[1].Recipients)
	})

	t.Run("re-assignment is a silent no-op", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")

		_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"r1@example.org"})
		require.NoError(t, err)

		updated, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"R1@Example.Org"})
		require.NoError(t, err)
		assert.Len(t, updated.Reviewers, 1)

		// Only the first assignment notified.
		assert.Len(t, env.notifier.byType(domain.EventTypeReviewersAssigned), 1)
	})

	t.Run("rejects over-capacity requests atomically", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		for _, email := range []string{"r1@example.org", "r2@example.org", "r3@example.org", "r4@example.org"} {
			env.addPoolReviewer(t, email)
		}

		_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID,
			[]string{"r1@example.org", "r2@example.org", "r3@example.org", "r4@example.org"})
		assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))

		// No partial assignment.
		current, getErr := env.svc.GetArticle(env.editorCtx(), article.ID)
		require.NoError(t, getErr)
		assert.Empty(t, current.Reviewers)
	})

	t.Run("rejects emails not in the pool", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)

		_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"ghost@example.org"})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("denies editors of other journals", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")

		otherEditor := ctxAs(identity.RoleEditor, "editor-2", "other@example.org")
		_, err := env.svc.AssignReviewers(otherEditor, article.ID, []string{"r1@example.org"})
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})

	t.Run("admin bypasses journal scope", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")

		admin := ctxAs(identity.RoleAdmin, "admin-1", "admin@example.org")
		_, err := env.svc.AssignReviewers(admin, article.ID, []string{"r1@example.org"})
		assert.NoError(t, err)
	})
}

func TestRemoveReviewer(t *testing.T) {
	t.Run("removes unreviewed assignment", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")

		_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"r1@example.org"})
		require.NoError(t, err)

		updated, err := env.svc.RemoveReviewer(env.editorCtx(), article.ID, "r1@example.org")
		require.NoError(t, err)
		assert.Empty(t, updated.Reviewers)
	})

	t.Run("reviewed assignments are unremovable", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")

		_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"r1@example.org"})
		require.NoError(t, err)

		reviewerCtx := ctxAs(identity.RoleReviewer, "rev-1", "r1@example.org")
		_, err = env.svc.RecordReview(reviewerCtx, article.ID, "r1@example.org", domain.VerdictReject, "weak evaluation")
		require.NoError(t, err)

		_, err = env.svc.RemoveReviewer(env.editorCtx(), article.ID, "r1@example.org")
		assert.True(t, errors.Is(err, domain.ErrAlreadyReviewed))
	})
}

// ---- review submission -----------------------------------------------------

func TestRecordReview(t *testing.T) {
	setup := func(t *testing.T) (*testEnv, *domain.Article) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")
		_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"r1@example.org"})
		require.NoError(t, err)
		return env, article
	}

	t.Run("records verdict once", func(t *testing.T) {
		env, article := setup(t)
		reviewerCtx := ctxAs(identity.RoleReviewer, "rev-1", "r1@example.org")

		updated, err := env.svc.RecordReview(reviewerCtx, article.ID, "r1@example.org", domain.VerdictStronglyAccept, "excellent")
		require.NoError(t, err)

		assignment := updated.Assignment("r1@example.org")
		require.NotNil(t, assignment)
		assert.True(t, assignment.Reviewed)
		assert.Equal(t, domain.VerdictStronglyAccept, assignment.Status)
		assert.NotNil(t, assignment.ReviewDate)

		// Status untouched by review submission.
		assert.Equal(t, domain.ArticleStatusSubmitted, updated.Status)

		assert.Len(t, env.notifier.byType(domain.EventTypeReviewRecorded), 1)
	})

	t.Run("second submission fails and first verdict stands", func(t *testing.T) {
		env, article := setup(t)
		reviewerCtx := ctxAs(identity.RoleReviewer, "rev-1", "r1@example.org")

		_, err := env.svc.RecordReview(reviewerCtx, article.ID, "r1@example.org", domain.VerdictReject, "first")
		require.NoError(t, err)

		_, err = env.svc.RecordReview(reviewerCtx, article.ID, "r1@example.org", domain.VerdictStronglyAccept, "second")
		assert.True(t, errors.Is(err, domain.ErrAlreadyReviewed))

		current, err := env.svc.GetArticle(reviewerCtx, article.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictReject, current.Assignment("r1@example.org").Status)
	})

	t.Run("reviewers may only submit as themselves", func(t *testing.T) {
		env, article := setup(t)
		impostor := ctxAs(identity.RoleReviewer, "rev-2", "someone-else@example.org")

		_, err := env.svc.RecordReview(impostor, article.ID, "r1@example.org", domain.VerdictReject, "x")
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})

	t.Run("unassigned reviewer is not found", func(t *testing.T) {
		env, article := setup(t)
		reviewerCtx := ctxAs(identity.RoleReviewer, "rev-9", "r9@example.org")

		_, err := env.svc.RecordReview(reviewerCtx, article.ID, "r9@example.org", domain.VerdictReject, "x")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

// ---- editorial decisions ---------------------------------------------------

func TestSetWorkingStatus(t *testing.T) {
	t.Run("informational status never finalizes", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)

		updated, err := env.svc.SetWorkingStatus(env.editorCtx(), article.ID, domain.ArticleStatusAccepted)
		require.NoError(t, err)
		assert.Equal(t, domain.ArticleStatusAccepted, updated.Status)
		assert.False(t, updated.IsFinalized())

		// Still mutable afterwards.
		updated, err = env.svc.SetWorkingStatus(env.editorCtx(), article.ID, domain.ArticleStatusUnderReview)
		require.NoError(t, err)
		assert.Equal(t, domain.ArticleStatusUnderReview, updated.Status)

		assert.Len(t, env.notifier.byType(domain.EventTypeStatusChanged), 2)
	})

	t.Run("rejects invalid working status", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)

		_, err := env.svc.SetWorkingStatus(env.editorCtx(), article.ID, domain.ArticleStatusSubmitted)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestFinalize(t *testing.T) {
	t.Run("commits the decision and notifies authors and reviewers", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")
		_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"r1@example.org"})
		require.NoError(t, err)

		updated, err := env.svc.Finalize(env.editorCtx(), article.ID, domain.DecisionAccepted, "strong reviews")
		require.NoError(t, err)
		assert.True(t, updated.IsFinalized())
		assert.Equal(t, domain.ArticleStatusAccepted, updated.Status)
		assert.Equal(t, domain.ArticleStatusAccepted, updated.FinalStatus)
		assert.Equal(t, "strong reviews", updated.EditorComments)

		events := env.notifier.byType(domain.EventTypeArticleFinalized)
		require.Len(t, events, 1)
		assert.ElementsMatch(t, []string{"ada@example.org", "r1@example.org"}, events[0].Recipients)
	})

	t.Run("requires editor comments", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)

		_, err := env.svc.Finalize(env.editorCtx(), article.ID, domain.DecisionAccepted, "")
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})

	t.Run("same decision replay returns frozen state", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)

		_, err := env.svc.Finalize(env.editorCtx(), article.ID, domain.DecisionRejected, "out of scope")
		require.NoError(t, err)

		// An identical repeat is an idempotent read of the committed
		// decision, not an error.
		replayed, err := env.svc.Finalize(env.editorCtx(), article.ID, domain.DecisionRejected, "out of scope")
		require.NoError(t, err)
		assert.True(t, replayed.IsFinalized())
		assert.Equal(t, domain.ArticleStatusRejected, replayed.FinalStatus)
		assert.Equal(t, "out of scope", replayed.EditorComments)

		// Replays never rewrite the frozen comments.
		replayed, err = env.svc.Finalize(env.editorCtx(), article.ID, domain.DecisionRejected, "different rationale")
		require.NoError(t, err)
		assert.Equal(t, "out of scope", replayed.EditorComments)

		// Only the first call produced a decision notification.
		assert.Len(t, env.notifier.byType(domain.EventTypeArticleFinalized), 1)

		current, err := env.svc.GetArticle(env.editorCtx(), article.ID)
		require.NoError(t, err)
		assert.Equal(t, "out of scope", current.EditorComments)
	})

	t.Run("conflicting decision fails with decision conflict", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)

		_, err := env.svc.Finalize(env.editorCtx(), article.ID, domain.DecisionAccepted, "good")
		require.NoError(t, err)

		_, err = env.svc.Finalize(env.editorCtx(), article.ID, domain.DecisionRejected, "changed my mind")
		assert.True(t, errors.Is(err, domain.ErrDecisionConflict))

		var conflict *domain.DecisionConflictError
		require.True(t, errors.As(err, &conflict))
		assert.Equal(t, domain.ArticleStatusAccepted, conflict.Committed)
		assert.Equal(t, domain.ArticleStatusRejected, conflict.Requested)
	})

	t.Run("finalized article locks all mutations", func(t *testing.T) {
		env := newTestEnv(t)
		article := env.submit(t)
		env.addPoolReviewer(t, "r1@example.org")

		_, err := env.svc.Finalize(env.editorCtx(), article.ID, domain.DecisionAccepted, "done")
		require.NoError(t, err)

		_, err = env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"r1@example.org"})
		assert.True(t, errors.Is(err, domain.ErrArticleLocked))

		_, err = env.svc.SetWorkingStatus(env.editorCtx(), article.ID, domain.ArticleStatusUnderReview)
		assert.True(t, errors.Is(err, domain.ErrArticleLocked))
	})
}

// ---- journals and reviewer pool -------------------------------------------

func TestJournalOperations(t *testing.T) {
	admin := ctxAs(identity.RoleAdmin, "admin-1", "admin@example.org")

	t.Run("create requires admin", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.CreateJournal(env.editorCtx(), "New Journal", "", "", "")
		assert.True(t, errors.Is(err, domain.ErrForbidden))

		journal, err := env.svc.CreateJournal(admin, "New Journal", "editor-2", "e2@example.org", "Ed Two")
		require.NoError(t, err)
		assert.True(t, journal.HasEditor())
	})

	t.Run("set editor", func(t *testing.T) {
		env := newTestEnv(t)

		journal, err := env.svc.SetJournalEditor(admin, env.journal.ID, "editor-9", "e9@example.org", "Ed Nine")
		require.NoError(t, err)
		assert.Equal(t, "editor-9", journal.EditorID)

		_, err = env.svc.SetJournalEditor(env.editorCtx(), env.journal.ID, "x", "x@example.org", "")
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})

	t.Run("list and get", func(t *testing.T) {
		env := newTestEnv(t)

		journals, total, err := env.svc.ListJournals(env.authorCtx(), 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, journals, 1)

		got, err := env.svc.GetJournal(env.authorCtx(), env.journal.ID)
		require.NoError(t, err)
		assert.Equal(t, env.journal.Name, got.Name)
	})
}

func TestReviewerPool(t *testing.T) {
	t.Run("add get delete", func(t *testing.T) {
		env := newTestEnv(t)

		reviewer := env.addPoolReviewer(t, "r1@example.org")
		got, err := env.svc.GetReviewer(env.editorCtx(), reviewer.ID)
		require.NoError(t, err)
		assert.Equal(t, reviewer.Email, got.Email)

		require.NoError(t, env.svc.DeleteReviewer(env.editorCtx(), reviewer.ID))
		_, err = env.svc.GetReviewer(env.editorCtx(), reviewer.ID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("authors cannot manage the pool", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.svc.AddReviewer(env.authorCtx(), "A", "B", "x@example.org", "")
		assert.True(t, errors.Is(err, domain.ErrForbidden))

		err = env.svc.DeleteReviewer(env.authorCtx(), uuid.New())
		assert.True(t, errors.Is(err, domain.ErrForbidden))
	})

	t.Run("bulk add reports duplicates", func(t *testing.T) {
		env := newTestEnv(t)
		env.addPoolReviewer(t, "dup@example.org")

		result, err := env.svc.AddReviewers(env.editorCtx(), []*domain.Reviewer{
			{FirstName: "New", LastName: "One", Email: "new@example.org"},
			{FirstName: "Du", LastName: "Plicate", Email: "dup@example.org"},
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"new@example.org"}, result.Added)
		assert.Equal(t, []string{"dup@example.org"}, result.Skipped)
	})

	t.Run("search filters by query", func(t *testing.T) {
		env := newTestEnv(t)
		env.addPoolReviewer(t, "alpha@example.org")

		reviewers, total, err := env.svc.SearchReviewers(env.editorCtx(), "alpha", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, reviewers, 1)

		_, total, err = env.svc.SearchReviewers(env.editorCtx(), "nomatch", 0, 0)
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})
}

func TestDeletedReviewerAssignmentsSurvive(t *testing.T) {
	env := newTestEnv(t)
	article := env.submit(t)
	reviewer := env.addPoolReviewer(t, "r1@example.org")

	_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{"r1@example.org"})
	require.NoError(t, err)

	reviewerCtx := ctxAs(identity.RoleReviewer, "rev-1", "r1@example.org")
	_, err = env.svc.RecordReview(reviewerCtx, article.ID, "r1@example.org", domain.VerdictBorderLine, "mixed")
	require.NoError(t, err)

	require.NoError(t, env.svc.DeleteReviewer(env.editorCtx(), reviewer.ID))

	// The embedded assignment record is a frozen historical fact.
	current, err := env.svc.GetArticle(env.editorCtx(), article.ID)
	require.NoError(t, err)
	assignment := current.Assignment("r1@example.org")
	require.NotNil(t, assignment)
	assert.True(t, assignment.Reviewed)
	assert.Equal(t, domain.VerdictBorderLine, assignment.Status)
}

func TestConcurrentAssignmentsRespectCapacity(t *testing.T) {
	env := newTestEnv(t)
	article := env.submit(t)

	emails := make([]string, 6)
	for i := range emails {
		emails[i] = fmt.Sprintf("r%d@example.org", i+1)
		env.addPoolReviewer(t, emails[i])
	}

	// Six editors race to attach one reviewer each against a capacity of
	// three. The row-level exclusive section must serialize them so exactly
	// three land and the rest observe the capacity error.
	var wg sync.WaitGroup
	results := make([]error, len(emails))
	for i, email := range emails {
		wg.Add(1)
		go func(i int, email string) {
			defer wg.Done()
			_, err := env.svc.AssignReviewers(env.editorCtx(), article.ID, []string{email})
			results[i] = err
		}(i, email)
	}
	wg.Wait()

	var succeeded, capacity int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrCapacityExceeded):
			capacity++
		default:
			t.Fatalf("unexpected assignment error: %v", err)
		}
	}
	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 3, capacity)

	current, err := env.svc.GetArticle(env.editorCtx(), article.ID)
	require.NoError(t, err)
	assert.Len(t, current.Reviewers, 3)

	// One per-new-reviewer notification per committed assignment, none for
	// the rejected calls.
	assert.Len(t, env.notifier.byType(domain.EventTypeReviewersAssigned), 3)
}

func TestConcurrentFinalizeCommitsOnce(t *testing.T) {
	env := newTestEnv(t)
	article := env.submit(t)

	// Eight concurrent finalize calls with conflicting decisions. Exactly
	// one decision may commit; matching callers read the frozen state back
	// and mismatching callers observe the conflict.
	decisions := []domain.Decision{
		domain.DecisionAccepted, domain.DecisionRejected,
		domain.DecisionAccepted, domain.DecisionRejected,
		domain.DecisionAccepted, domain.DecisionRejected,
		domain.DecisionAccepted, domain.DecisionRejected,
	}

	type outcome struct {
		decision domain.Decision
		article  *domain.Article
		err      error
	}
	results := make([]outcome, len(decisions))

	var wg sync.WaitGroup
	for i, decision := range decisions {
		wg.Add(1)
		go func(i int, decision domain.Decision) {
			defer wg.Done()
			got, err := env.svc.Finalize(env.editorCtx(), article.ID, decision,
				fmt.Sprintf("rationale %d", i))
			results[i] = outcome{decision: decision, article: got, err: err}
		}(i, decision)
	}
	wg.Wait()

	current, err := env.svc.GetArticle(env.editorCtx(), article.ID)
	require.NoError(t, err)
	require.True(t, current.IsFinalized())
	winner := current.FinalStatus
	assert.Equal(t, winner, current.Status)

	for _, res := range results {
		if res.err == nil {
			require.NotNil(t, res.article)
			assert.Equal(t, res.decision.Status(), winner)
			assert.Equal(t, winner, res.article.FinalStatus)
			assert.Equal(t, current.EditorComments, res.article.EditorComments)
			continue
		}
		assert.True(t, errors.Is(res.err, domain.ErrDecisionConflict))
		assert.NotEqual(t, res.decision.Status(), winner)
	}

	// A single committed transition produces a single decision notification.
	assert.Len(t, env.notifier.byType(domain.EventTypeArticleFinalized), 1)
}
