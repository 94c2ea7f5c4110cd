package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Journal owns zero or one editor. It is the scoping key for editorial
// actions: an editor may only act on articles belonging to journals they
// edit.
type Journal struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	EditorID    string    `json:"editor_id,omitempty"`
	EditorEmail string    `json:"editor_email,omitempty"`
	EditorName  string    `json:"editor_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasEditor returns true if an editor is assigned to the journal.
func (j *Journal) HasEditor() bool {
	return j.EditorID != ""
}

// EditedBy reports whether the given actor ID is the journal's editor.
func (j *Journal) EditedBy(actorID string) bool {
	return j.HasEditor() && j.EditorID == actorID
}

// Validate checks the journal's required fields.
func (j *Journal) Validate() error {
	if strings.TrimSpace(j.Name) == "" {
		return NewValidationError("name", "journal name is required")
	}
	return nil
}
