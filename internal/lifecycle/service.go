// Package lifecycle implements the peer review workflow: manuscript intake,
// reviewer assignment, review submission, and editorial decisions. All
// article mutations run inside a per-article exclusive section taken by the
// repository's locked update, so transitions are atomic and reads never
// observe partial state.
package lifecycle

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/identity"
	"github.com/helixir/peer-review-service/internal/observability"
	"github.com/helixir/peer-review-service/internal/repository"
)

// DocumentStore is the blob store interface the service needs.
type DocumentStore interface {
	Put(ctx context.Context, content []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	Merge(ctx context.Context, firstRef, secondRef string) (string, error)
}

// Notifier accepts lifecycle events for asynchronous delivery.
// Enqueue must never block; a false return means the event was dropped.
type Notifier interface {
	Enqueue(event *domain.LifecycleEvent) bool
}

// Service orchestrates the peer review lifecycle over the repositories,
// the document store, and the notification dispatcher.
type Service struct {
	articles  repository.ArticleRepository
	reviewers repository.ReviewerRepository
	journals  repository.JournalRepository
	docs      DocumentStore
	notifier  Notifier
	logger    zerolog.Logger
	metrics   *observability.Metrics

	// now is injected for deterministic tests.
	now func() time.Time
}

// New creates the lifecycle service.
func New(
	articles repository.ArticleRepository,
	reviewers repository.ReviewerRepository,
	journals repository.JournalRepository,
	docs DocumentStore,
	notifier Notifier,
	logger zerolog.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		articles:  articles,
		reviewers: reviewers,
		journals:  journals,
		docs:      docs,
		notifier:  notifier,
		logger:    logger.With().Str("component", "lifecycle").Logger(),
		metrics:   metrics,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// actorFrom returns the authenticated actor or ErrUnauthorized.
func actorFrom(ctx context.Context) (*identity.Actor, error) {
	actor := identity.ActorFromContext(ctx)
	if actor == nil {
		return nil, domain.ErrUnauthorized
	}
	return actor, nil
}

// authorizeJournalEditor checks that the actor may act editorially on the
// given journal. Admin bypasses the scope check.
func (s *Service) authorizeJournalEditor(ctx context.Context, journalID uuid.UUID) (*identity.Actor, error) {
	actor, err := actorFrom(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role == identity.RoleAdmin {
		return actor, nil
	}
	if actor.Role != identity.RoleEditor {
		return nil, domain.ErrForbidden
	}

	journal, err := s.journals.Get(ctx, journalID)
	if err != nil {
		return nil, err
	}
	if !journal.EditedBy(actor.ID) {
		return nil, domain.ErrForbidden
	}
	return actor, nil
}

// publish hands the event to the dispatcher. Delivery is best-effort and
// never fails the calling operation.
func (s *Service) publish(event *domain.LifecycleEvent) {
	if s.notifier == nil || event == nil {
		return
	}
	s.notifier.Enqueue(event)
}
