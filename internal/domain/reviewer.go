package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Reviewer is a person in the reviewer pool, available for assignment to
// articles independently of any article. Email is unique across the pool.
// Deleting a reviewer does not touch ReviewerAssignment records already
// embedded in articles; those are frozen historical facts.
type Reviewer struct {
	ID          uuid.UUID `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Affiliation string    `json:"affiliation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// FullName returns the reviewer's display name.
func (r Reviewer) FullName() string {
	return strings.TrimSpace(r.FirstName + " " + r.LastName)
}

// Validate checks the reviewer's required fields.
func (r *Reviewer) Validate() error {
	if strings.TrimSpace(r.FirstName) == "" {
		return NewValidationError("first_name", "first name is required")
	}
	if strings.TrimSpace(r.LastName) == "" {
		return NewValidationError("last_name", "last name is required")
	}
	if strings.TrimSpace(r.Email) == "" {
		return NewValidationError("email", "email is required")
	}
	if !strings.Contains(r.Email, "@") {
		return NewValidationError("email", "email must be a valid address")
	}
	return nil
}
