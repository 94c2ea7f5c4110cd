package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
	"github.com/helixir/peer-review-service/internal/lifecycle"
)

// Upload limits. The merged artifact is produced server side, so the request
// cap covers manuscript, cover letter, and supplementary together.
const (
	maxUploadBytes  = 128 << 20
	multipartMemory = 16 << 20
)

// submitArticleMetadata is the JSON "metadata" form field of a submission.
type submitArticleMetadata struct {
	JournalID string          `json:"journal_id" validate:"required,uuid"`
	Title     string          `json:"title" validate:"required"`
	Abstract  string          `json:"abstract"`
	Keywords  []string        `json:"keywords" validate:"required,min=1"`
	Authors   []authorRequest `json:"authors" validate:"required,min=1,dive"`
}

type authorRequest struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Affiliation string `json:"affiliation"`
	FirstAuthor bool   `json:"first_author"`
}

// assignReviewersRequest is the JSON request body for attaching reviewers.
type assignReviewersRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,dive,required,email"`
}

// recordReviewRequest is the JSON request body for submitting a verdict.
type recordReviewRequest struct {
	ReviewerEmail string `json:"reviewer_email" validate:"required,email"`
	Verdict       string `json:"verdict" validate:"required"`
	Comments      string `json:"comments"`
}

// setStatusRequest is the JSON request body for the working status update.
type setStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// decisionRequest is the JSON request body for finalizing an article.
type decisionRequest struct {
	Decision       string `json:"decision" validate:"required"`
	EditorComments string `json:"editor_comments"`
}

// submitArticle handles POST /articles. The request is multipart/form-data
// with a JSON "metadata" field plus "manuscript", "cover_letter", and an
// optional "supplementary" file part.
func (s *Server) submitArticle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "expected multipart/form-data with a metadata field and file parts")
		return
	}

	var meta submitArticleMetadata
	if err := json.Unmarshal([]byte(r.FormValue("metadata")), &meta); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "metadata must be a valid JSON object")
		return
	}
	if err := validate.Struct(&meta); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return
	}

	journalID, err := uuid.Parse(meta.JournalID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", "journal_id must be a valid UUID")
		return
	}

	manuscript, ok := readFilePart(w, r, "manuscript", true)
	if !ok {
		return
	}
	coverLetter, ok := readFilePart(w, r, "cover_letter", true)
	if !ok {
		return
	}
	supplementary, ok := readFilePart(w, r, "supplementary", false)
	if !ok {
		return
	}

	authors := make([]domain.Author, len(meta.Authors))
	for i, a := range meta.Authors {
		authors[i] = domain.Author{
			FirstName:   a.FirstName,
			LastName:    a.LastName,
			Email:       a.Email,
			Affiliation: a.Affiliation,
			FirstAuthor: a.FirstAuthor,
		}
	}

	article, err := s.svc.SubmitArticle(r.Context(), lifecycle.SubmissionInput{
		JournalID:     journalID,
		Title:         meta.Title,
		Abstract:      meta.Abstract,
		Keywords:      meta.Keywords,
		Authors:       authors,
		Manuscript:    manuscript,
		CoverLetter:   coverLetter,
		Supplementary: supplementary,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainArticleToResponse(article))
}

// readFilePart reads one uploaded file part. A missing optional part yields a
// nil slice; a missing required part writes the error response.
func readFilePart(w http.ResponseWriter, r *http.Request, name string, required bool) ([]byte, bool) {
	file, _, err := r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			if !required {
				return nil, true
			}
			writeError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("%s file is required", name))
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("failed to read %s upload", name))
		return nil, false
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("failed to read %s upload", name))
		return nil, false
	}
	return content, true
}

// getArticle handles GET /articles/{articleID}.
func (s *Server) getArticle(w http.ResponseWriter, r *http.Request) {
	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	article, err := s.svc.GetArticle(r.Context(), articleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}

// listJournalArticles handles GET /journals/{journalID}/articles.
func (s *Server) listJournalArticles(w http.ResponseWriter, r *http.Request) {
	journalID, ok := parseUUID(w, chi.URLParam(r, "journalID"), "journal_id")
	if !ok {
		return
	}

	limit, offset := parsePaginationParams(r)

	articles, totalCount, err := s.svc.ListArticlesForJournal(r.Context(), journalID, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]articleResponse, len(articles))
	for i, a := range articles {
		items[i] = domainArticleToResponse(a)
	}

	writeJSON(w, http.StatusOK, listArticlesResponse{
		Articles:   items,
		TotalCount: int(totalCount),
	})
}

// downloadMergedManuscript handles GET /articles/{articleID}/manuscript and
// streams the merged artifact (cover letter followed by manuscript).
func (s *Server) downloadMergedManuscript(w http.ResponseWriter, r *http.Request) {
	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	content, err := s.svc.FetchMergedManuscript(r.Context(), articleID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", articleID.String()+".pdf"))
	w.Header().Set("Content-Length", strconv.Itoa(len(content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(content)
}

// assignReviewers handles POST /articles/{articleID}/reviewers.
func (s *Server) assignReviewers(w http.ResponseWriter, r *http.Request) {
	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	var req assignReviewersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	article, err := s.svc.AssignReviewers(r.Context(), articleID, req.Emails)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}

// removeReviewer handles DELETE /articles/{articleID}/reviewers/{email}.
func (s *Server) removeReviewer(w http.ResponseWriter, r *http.Request) {
	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	email := chi.URLParam(r, "email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "validation_error", "reviewer email is required")
		return
	}

	article, err := s.svc.RemoveReviewer(r.Context(), articleID, email)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}

// recordReview handles POST /articles/{articleID}/reviews.
func (s *Server) recordReview(w http.ResponseWriter, r *http.Request) {
	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	var req recordReviewRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	article, err := s.svc.RecordReview(r.Context(), articleID, req.ReviewerEmail, domain.ReviewVerdict(req.Verdict), req.Comments)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}

// setWorkingStatus handles PUT /articles/{articleID}/status.
func (s *Server) setWorkingStatus(w http.ResponseWriter, r *http.Request) {
	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	var req setStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	article, err := s.svc.SetWorkingStatus(r.Context(), articleID, domain.ArticleStatus(req.Status))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}

// finalizeDecision handles POST /articles/{articleID}/decision.
func (s *Server) finalizeDecision(w http.ResponseWriter, r *http.Request) {
	articleID, ok := parseUUID(w, chi.URLParam(r, "articleID"), "article_id")
	if !ok {
		return
	}

	var req decisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	article, err := s.svc.Finalize(r.Context(), articleID, domain.Decision(req.Decision), req.EditorComments)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainArticleToResponse(article))
}
