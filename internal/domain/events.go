package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for article lifecycle events.
const (
	EventTypeArticleSubmitted  = "article.submitted"
	EventTypeReviewersAssigned = "article.reviewers_assigned"
	EventTypeReviewRecorded    = "article.review_recorded"
	EventTypeStatusChanged     = "article.status_changed"
	EventTypeArticleFinalized  = "article.finalized"
)

// LifecycleEvent is a single article lifecycle transition, published to
// the event stream and handed to the notification dispatcher.
type LifecycleEvent struct {
	EventID     string
	ArticleID   uuid.UUID
	JournalID   uuid.UUID
	EventType   string
	Payload     []byte
	OccurredAt  time.Time
	Recipients  []string
	Subject     string
	ContentType string
}

// NewLifecycleEvent creates a lifecycle event for an article. The payload
// is JSON-serialized automatically.
func NewLifecycleEvent(eventType string, articleID, journalID uuid.UUID, payload interface{}) (*LifecycleEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &LifecycleEvent{
		EventID:     uuid.New().String(),
		ArticleID:   articleID,
		JournalID:   journalID,
		EventType:   eventType,
		Payload:     payloadBytes,
		OccurredAt:  time.Now(),
		ContentType: "application/json",
	}, nil
}

// WithRecipients sets the notification recipients on the event.
func (e *LifecycleEvent) WithRecipients(recipients ...string) *LifecycleEvent {
	e.Recipients = recipients
	return e
}

// WithSubject sets the notification subject line on the event.
func (e *LifecycleEvent) WithSubject(subject string) *LifecycleEvent {
	e.Subject = subject
	return e
}

// ArticleSubmittedPayload is the payload for article.submitted events.
type ArticleSubmittedPayload struct {
	ArticleID uuid.UUID `json:"article_id"`
	JournalID uuid.UUID `json:"journal_id"`
	Title     string    `json:"title"`
	Authors   []string  `json:"authors"`
	Keywords  []string  `json:"keywords"`
}

// ReviewersAssignedPayload is the payload for article.reviewers_assigned events.
type ReviewersAssignedPayload struct {
	ArticleID     uuid.UUID `json:"article_id"`
	JournalID     uuid.UUID `json:"journal_id"`
	Title         string    `json:"title"`
	NewReviewers  []string  `json:"new_reviewers"`
	ReviewerCount int       `json:"reviewer_count"`
}

// ReviewRecordedPayload is the payload for article.review_recorded events.
type ReviewRecordedPayload struct {
	ArticleID     uuid.UUID     `json:"article_id"`
	JournalID     uuid.UUID     `json:"journal_id"`
	ReviewerEmail string        `json:"reviewer_email"`
	Verdict       ReviewVerdict `json:"verdict"`
	ReviewsDone   int           `json:"reviews_done"`
	ReviewsTotal  int           `json:"reviews_total"`
}

// StatusChangedPayload is the payload for article.status_changed events.
type StatusChangedPayload struct {
	ArticleID uuid.UUID     `json:"article_id"`
	JournalID uuid.UUID     `json:"journal_id"`
	Previous  ArticleStatus `json:"previous"`
	Current   ArticleStatus `json:"current"`
}

// ArticleFinalizedPayload is the payload for article.finalized events.
type ArticleFinalizedPayload struct {
	ArticleID      uuid.UUID     `json:"article_id"`
	JournalID      uuid.UUID     `json:"journal_id"`
	Title          string        `json:"title"`
	Decision       ArticleStatus `json:"decision"`
	EditorComments string        `json:"editor_comments"`
}
