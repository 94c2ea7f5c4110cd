// Package domain provides domain models and business rules for the Peer Review Service.
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ArticleStatus represents the lifecycle states of a submitted article.
// These values must match the database enum article_status.
type ArticleStatus string

const (
	ArticleStatusSubmitted   ArticleStatus = "submitted"
	ArticleStatusUnderReview ArticleStatus = "under_review"
	ArticleStatusAccepted    ArticleStatus = "accepted"
	ArticleStatusRejected    ArticleStatus = "rejected"
)

// IsOpen returns true if the status is a non-terminal working state.
func (s ArticleStatus) IsOpen() bool {
	return s == ArticleStatusSubmitted || s == ArticleStatusUnderReview
}

// IsValidWorkingStatus reports whether s may be set through the working-status
// transition. "submitted" is only ever set at intake.
func IsValidWorkingStatus(s ArticleStatus) bool {
	switch s {
	case ArticleStatusUnderReview, ArticleStatusAccepted, ArticleStatusRejected:
		return true
	default:
		return false
	}
}

// Decision is the terminal editorial outcome for an article. It is a distinct
// type from ArticleStatus so that only Finalize can commit a terminal state;
// no other code path accepts a Decision.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// IsValid reports whether the decision is one of the two terminal outcomes.
func (d Decision) IsValid() bool {
	return d == DecisionAccepted || d == DecisionRejected
}

// Status returns the article status corresponding to the decision.
func (d Decision) Status() ArticleStatus {
	return ArticleStatus(d)
}

// ReviewVerdict is a single reviewer's recommendation for an article.
// The zero value means the reviewer has not submitted a verdict yet.
type ReviewVerdict string

const (
	VerdictStronglyAccept   ReviewVerdict = "strongly_accept"
	VerdictAcceptWithChange ReviewVerdict = "accept_with_change"
	VerdictBorderLine       ReviewVerdict = "border_line"
	VerdictReject           ReviewVerdict = "reject"
)

// IsValid reports whether the verdict is one of the four defined values.
// An unset verdict is not a valid submission.
func (v ReviewVerdict) IsValid() bool {
	switch v {
	case VerdictStronglyAccept, VerdictAcceptWithChange, VerdictBorderLine, VerdictReject:
		return true
	default:
		return false
	}
}

// Limits enforced at intake and assignment.
const (
	// MaxReviewers is the maximum number of reviewers assignable to one article.
	MaxReviewers = 3

	// MaxKeywords is the maximum number of keywords per article.
	MaxKeywords = 6

	// MaxSupplementarySize is the maximum size of the supplementary artifact.
	MaxSupplementarySize = 10 * 1024 * 1024
)

// Author is one author listed on an article. Exactly one author per article
// carries FirstAuthor.
type Author struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation,omitempty"`
	FirstAuthor bool   `json:"first_author"`
}

// FullName returns the author's display name.
func (a Author) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// ReviewerAssignment is the per-article review record for one attached
// reviewer. Assignments are keyed by reviewer email within the article;
// insertion order is preserved for display only. Once Reviewed is set the
// record is write-once and survives reviewer removal from the pool.
type ReviewerAssignment struct {
	Email      string        `json:"email"`
	Status     ReviewVerdict `json:"status,omitempty"`
	Comments   string        `json:"comments,omitempty"`
	Reviewed   bool          `json:"reviewed"`
	ReviewDate *time.Time    `json:"review_date,omitempty"`
	AssignedAt time.Time     `json:"assigned_at"`
}

// Article is one submitted manuscript tracked through peer review to an
// editorial decision. JournalID and MergedManuscriptRef are immutable after
// creation. Reviewers is embedded so a single write commits the article
// status and its review sub-records together.
type Article struct {
	ID        uuid.UUID `json:"id"`
	JournalID uuid.UUID `json:"journal_id"`

	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Keywords []string `json:"keywords"`
	Authors  []Author `json:"authors"`

	// Document store references. MergedManuscriptRef is produced exactly
	// once at intake and never changes.
	ManuscriptRef       string `json:"manuscript_ref"`
	CoverLetterRef      string `json:"cover_letter_ref"`
	SupplementaryRef    string `json:"supplementary_ref,omitempty"`
	MergedManuscriptRef string `json:"merged_manuscript_ref"`

	Reviewers []ReviewerAssignment `json:"reviewers"`

	Status ArticleStatus `json:"status"`

	// FinalStatus is empty until an editor finalizes. Once set it equals
	// Status and the article is immutable.
	FinalStatus    ArticleStatus `json:"final_status,omitempty"`
	EditorComments string        `json:"editor_comments,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsFinalized returns true once a terminal decision has been committed.
func (a *Article) IsFinalized() bool {
	return a.FinalStatus != ""
}

// Assignment returns the reviewer assignment for the given email, matched
// case-insensitively, or nil if the email is not assigned.
func (a *Article) Assignment(email string) *ReviewerAssignment {
	for i := range a.Reviewers {
		if strings.EqualFold(a.Reviewers[i].Email, email) {
			return &a.Reviewers[i]
		}
	}
	return nil
}

// AssignReviewers attaches the given reviewer emails, deduplicated against
// each other and against existing assignments. Re-assigning an existing email
// is a no-op. Returns the emails that were newly attached.
//
// Returns ErrArticleLocked if the article is finalized and ErrCapacityExceeded
// if the deduplicated union would exceed MaxReviewers; in both cases the
// article is left unchanged.
func (a *Article) AssignReviewers(emails []string, now time.Time) ([]string, error) {
	if a.IsFinalized() {
		return nil, NewLockedError(a.ID)
	}

	var added []string
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			return nil, NewValidationError("reviewers", "reviewer email cannot be empty")
		}
		if a.Assignment(email) != nil {
			continue
		}
		duplicate := false
		for _, prev := range added {
			if strings.EqualFold(prev, email) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		added = append(added, email)
	}

	if len(a.Reviewers)+len(added) > MaxReviewers {
		return nil, NewCapacityError(a.ID, len(a.Reviewers)+len(added))
	}

	for _, email := range added {
		a.Reviewers = append(a.Reviewers, ReviewerAssignment{
			Email:      email,
			AssignedAt: now,
		})
	}
	return added, nil
}

// RemoveReviewer detaches the assignment for the given email. Assignments
// with a submitted review are frozen historical facts and cannot be removed.
func (a *Article) RemoveReviewer(email string) error {
	if a.IsFinalized() {
		return NewLockedError(a.ID)
	}

	for i := range a.Reviewers {
		if !strings.EqualFold(a.Reviewers[i].Email, email) {
			continue
		}
		if a.Reviewers[i].Reviewed {
			return NewAlreadyReviewedError(a.ID, a.Reviewers[i].Email)
		}
		a.Reviewers = append(a.Reviewers[:i], a.Reviewers[i+1:]...)
		return nil
	}
	return NewNotFoundError("reviewer assignment", email)
}

// RecordReview stores the verdict for the assigned reviewer and freezes the
// assignment. A second call for the same email fails with ErrAlreadyReviewed
// regardless of caller, so a submitted verdict can never be silently
// overwritten. The article's own status is deliberately untouched.
func (a *Article) RecordReview(email string, verdict ReviewVerdict, comments string, now time.Time) (*ReviewerAssignment, error) {
	if a.IsFinalized() {
		return nil, NewLockedError(a.ID)
	}
	if !verdict.IsValid() {
		return nil, NewValidationError("status", "verdict must be one of strongly_accept, accept_with_change, border_line, reject")
	}

	assignment := a.Assignment(email)
	if assignment == nil {
		return nil, NewNotFoundError("reviewer assignment", email)
	}
	if assignment.Reviewed {
		return nil, NewAlreadyReviewedError(a.ID, assignment.Email)
	}

	assignment.Status = verdict
	assignment.Comments = comments
	assignment.Reviewed = true
	assignment.ReviewDate = &now
	return assignment, nil
}

// SetWorkingStatus updates the non-terminal working status. Setting accepted
// or rejected here is informational only: it does not commit FinalStatus and
// does not freeze the article. Only Finalize produces a terminal state.
func (a *Article) SetWorkingStatus(status ArticleStatus) error {
	if a.IsFinalized() {
		return NewLockedError(a.ID)
	}
	if !IsValidWorkingStatus(status) {
		return NewValidationError("status", "status must be one of under_review, accepted, rejected")
	}
	a.Status = status
	return nil
}

// Finalize commits the terminal decision with the editor's rationale. It is
// the only path that sets FinalStatus. On an already-finalized article a
// matching decision is signalled via ErrAlreadyFinalized so the caller can
// turn the replay into an idempotent success returning the frozen state; a
// conflicting decision fails with ErrDecisionConflict. The stored decision
// is never overwritten.
func (a *Article) Finalize(decision Decision, editorComments string, now time.Time) error {
	if !decision.IsValid() {
		return NewValidationError("decision", "decision must be accepted or rejected")
	}
	if a.IsFinalized() {
		if a.FinalStatus == decision.Status() {
			return NewAlreadyFinalizedError(a.ID, a.FinalStatus)
		}
		return NewDecisionConflictError(a.ID, a.FinalStatus, decision.Status())
	}
	if strings.TrimSpace(editorComments) == "" {
		return NewValidationError("editor_comments", "a decision must be accompanied by editor comments")
	}

	a.Status = decision.Status()
	a.FinalStatus = decision.Status()
	a.EditorComments = editorComments
	a.UpdatedAt = now
	return nil
}

// AuthorEmails returns the email addresses of all listed authors.
func (a *Article) AuthorEmails() []string {
	emails := make([]string, 0, len(a.Authors))
	for _, author := range a.Authors {
		if author.Email != "" {
			emails = append(emails, author.Email)
		}
	}
	return emails
}

// ReviewerEmails returns the email addresses of all assigned reviewers in
// insertion order.
func (a *Article) ReviewerEmails() []string {
	emails := make([]string, 0, len(a.Reviewers))
	for _, r := range a.Reviewers {
		emails = append(emails, r.Email)
	}
	return emails
}

// ValidateMetadata checks the author-supplied metadata constraints: title
// present, 1..MaxKeywords keywords, at least one author with exactly one
// first author.
func (a *Article) ValidateMetadata() error {
	if strings.TrimSpace(a.Title) == "" {
		return NewValidationError("title", "title is required")
	}
	if len(a.Keywords) == 0 {
		return NewValidationError("keywords", "at least one keyword is required")
	}
	if len(a.Keywords) > MaxKeywords {
		return NewValidationError("keywords", "at most 6 keywords are allowed")
	}
	if len(a.Authors) == 0 {
		return NewValidationError("authors", "at least one author is required")
	}
	firstAuthors := 0
	for _, author := range a.Authors {
		if author.FirstAuthor {
			firstAuthors++
		}
	}
	if firstAuthors != 1 {
		return NewValidationError("authors", "exactly one author must be marked as first author")
	}
	return nil
}
