package httpserver

import (
	"time"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/repository"
)

// Response types for JSON serialization.

type articleResponse struct {
	ID        string `json:"id"`
	JournalID string `json:"journal_id"`

	Title    string           `json:"title"`
	Abstract string           `json:"abstract,omitempty"`
	Keywords []string         `json:"keywords"`
	Authors  []authorResponse `json:"authors"`

	Reviewers []assignmentResponse `json:"reviewers"`

	Status         string `json:"status"`
	FinalStatus    string `json:"final_status,omitempty"`
	EditorComments string `json:"editor_comments,omitempty"`
	Finalized      bool   `json:"finalized"`

	HasSupplementary bool `json:"has_supplementary"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type authorResponse struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Affiliation string `json:"affiliation,omitempty"`
	FirstAuthor bool   `json:"first_author"`
}

type assignmentResponse struct {
	Email      string     `json:"email"`
	Status     string     `json:"status,omitempty"`
	Comments   string     `json:"comments,omitempty"`
	Reviewed   bool       `json:"reviewed"`
	ReviewDate *time.Time `json:"review_date,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
}

type listArticlesResponse struct {
	Articles   []articleResponse `json:"articles"`
	TotalCount int               `json:"total_count"`
}

type journalResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	EditorID    string    `json:"editor_id,omitempty"`
	EditorEmail string    `json:"editor_email,omitempty"`
	EditorName  string    `json:"editor_name,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type listJournalsResponse struct {
	Journals   []journalResponse `json:"journals"`
	TotalCount int               `json:"total_count"`
}

type reviewerResponse struct {
	ID          string    `json:"id"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	Email       string    `json:"email"`
	Affiliation string    `json:"affiliation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type listReviewersResponse struct {
	Reviewers  []reviewerResponse `json:"reviewers"`
	TotalCount int                `json:"total_count"`
}

type bulkAddResponse struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

// Converter functions

func domainArticleToResponse(a *domain.Article) articleResponse {
	authors := make([]authorResponse, len(a.Authors))
	for i, au := range a.Authors {
		authors[i] = authorResponse{
			FirstName:   au.FirstName,
			LastName:    au.LastName,
			Email:       au.Email,
			Affiliation: au.Affiliation,
			FirstAuthor: au.FirstAuthor,
		}
	}

	reviewers := make([]assignmentResponse, len(a.Reviewers))
	for i, ra := range a.Reviewers {
		reviewers[i] = assignmentResponse{
			Email:      ra.Email,
			Status:     string(ra.Status),
			Comments:   ra.Comments,
			Reviewed:   ra.Reviewed,
			ReviewDate: ra.ReviewDate,
			AssignedAt: ra.AssignedAt,
		}
	}

	return articleResponse{
		ID:               a.ID.String(),
		JournalID:        a.JournalID.String(),
		Title:            a.Title,
		Abstract:         a.Abstract,
		Keywords:         a.Keywords,
		Authors:          authors,
		Reviewers:        reviewers,
		Status:           string(a.Status),
		FinalStatus:      string(a.FinalStatus),
		EditorComments:   a.EditorComments,
		Finalized:        a.IsFinalized(),
		HasSupplementary: a.SupplementaryRef != "",
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func domainJournalToResponse(j *domain.Journal) journalResponse {
	return journalResponse{
		ID:          j.ID.String(),
		Name:        j.Name,
		EditorID:    j.EditorID,
		EditorEmail: j.EditorEmail,
		EditorName:  j.EditorName,
		CreatedAt:   j.CreatedAt,
	}
}

func domainReviewerToResponse(r *domain.Reviewer) reviewerResponse {
	return reviewerResponse{
		ID:          r.ID.String(),
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		Email:       r.Email,
		Affiliation: r.Affiliation,
		CreatedAt:   r.CreatedAt,
	}
}

func bulkResultToResponse(result *repository.BulkAddResult) bulkAddResponse {
	resp := bulkAddResponse{Added: result.Added, Skipped: result.Skipped}
	if resp.Added == nil {
		resp.Added = []string{}
	}
	if resp.Skipped == nil {
		resp.Skipped = []string{}
	}
	return resp
}
