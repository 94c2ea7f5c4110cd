package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/helixir/peer-review-service/internal/domain"
)

// Pagination and validation constants.
const (
	defaultPageSize    = 50
	maxPageSize        = 100
	maxRequestBodySize = 1 << 20 // 1 MB limit for JSON request bodies
)

var validate = validator.New()

// createJournalRequest is the JSON request body for creating a journal.
type createJournalRequest struct {
	Name        string `json:"name" validate:"required"`
	EditorID    string `json:"editor_id" validate:"omitempty"`
	EditorEmail string `json:"editor_email" validate:"omitempty,email"`
	EditorName  string `json:"editor_name"`
}

// setEditorRequest is the JSON request body for assigning a journal editor.
type setEditorRequest struct {
	EditorID    string `json:"editor_id" validate:"required"`
	EditorEmail string `json:"editor_email" validate:"required,email"`
	EditorName  string `json:"editor_name"`
}

// addReviewerRequest is the JSON request body for adding a pool reviewer.
type addReviewerRequest struct {
	FirstName   string `json:"first_name" validate:"required"`
	LastName    string `json:"last_name" validate:"required"`
	Email       string `json:"email" validate:"required,email"`
	Affiliation string `json:"affiliation"`
}

// bulkAddReviewersRequest is the JSON request body for bulk reviewer creation.
type bulkAddReviewersRequest struct {
	Reviewers []addReviewerRequest `json:"reviewers" validate:"required,min=1,max=500,dive"`
}

// decodeJSON reads and validates a JSON request body into dst. It writes the
// error response itself and returns false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "failed to read request body")
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
		return false
	}
	return true
}

// validationMessage renders the first field violation as a client-safe message.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		if fe.Tag() == "required" {
			return fmt.Sprintf("%s is required", fe.Field())
		}
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
	return "invalid request"
}

// ---- journals --------------------------------------------------------------

// createJournal handles POST /journals.
func (s *Server) createJournal(w http.ResponseWriter, r *http.Request) {
	var req createJournalRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	journal, err := s.svc.CreateJournal(r.Context(), req.Name, req.EditorID, req.EditorEmail, req.EditorName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainJournalToResponse(journal))
}

// getJournal handles GET /journals/{journalID}.
func (s *Server) getJournal(w http.ResponseWriter, r *http.Request) {
	journalID, ok := parseUUID(w, chi.URLParam(r, "journalID"), "journal_id")
	if !ok {
		return
	}

	journal, err := s.svc.GetJournal(r.Context(), journalID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainJournalToResponse(journal))
}

// listJournals handles GET /journals.
func (s *Server) listJournals(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)

	journals, totalCount, err := s.svc.ListJournals(r.Context(), limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]journalResponse, len(journals))
	for i, j := range journals {
		items[i] = domainJournalToResponse(j)
	}

	writeJSON(w, http.StatusOK, listJournalsResponse{
		Journals:   items,
		TotalCount: int(totalCount),
	})
}

// setJournalEditor handles PUT /journals/{journalID}/editor.
func (s *Server) setJournalEditor(w http.ResponseWriter, r *http.Request) {
	journalID, ok := parseUUID(w, chi.URLParam(r, "journalID"), "journal_id")
	if !ok {
		return
	}

	var req setEditorRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	journal, err := s.svc.SetJournalEditor(r.Context(), journalID, req.EditorID, req.EditorEmail, req.EditorName)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainJournalToResponse(journal))
}

// ---- reviewer pool ---------------------------------------------------------

// addReviewer handles POST /reviewers.
func (s *Server) addReviewer(w http.ResponseWriter, r *http.Request) {
	var req addReviewerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reviewer, err := s.svc.AddReviewer(r.Context(), req.FirstName, req.LastName, req.Email, req.Affiliation)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, domainReviewerToResponse(reviewer))
}

// addReviewersBulk handles POST /reviewers/bulk. Duplicates are reported as
// skipped rather than failing the whole batch.
func (s *Server) addReviewersBulk(w http.ResponseWriter, r *http.Request) {
	var req bulkAddReviewersRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	reviewers := make([]*domain.Reviewer, len(req.Reviewers))
	for i, rr := range req.Reviewers {
		reviewers[i] = &domain.Reviewer{
			FirstName:   rr.FirstName,
			LastName:    rr.LastName,
			Email:       rr.Email,
			Affiliation: rr.Affiliation,
		}
	}

	result, err := s.svc.AddReviewers(r.Context(), reviewers)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, bulkResultToResponse(result))
}

// getReviewer handles GET /reviewers/{reviewerID}.
func (s *Server) getReviewer(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := parseUUID(w, chi.URLParam(r, "reviewerID"), "reviewer_id")
	if !ok {
		return
	}

	reviewer, err := s.svc.GetReviewer(r.Context(), reviewerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domainReviewerToResponse(reviewer))
}

// deleteReviewer handles DELETE /reviewers/{reviewerID}. Review records
// already embedded in articles are not affected.
func (s *Server) deleteReviewer(w http.ResponseWriter, r *http.Request) {
	reviewerID, ok := parseUUID(w, chi.URLParam(r, "reviewerID"), "reviewer_id")
	if !ok {
		return
	}

	if err := s.svc.DeleteReviewer(r.Context(), reviewerID); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// searchReviewers handles GET /reviewers with an optional q= term matched
// against names, email, and affiliation.
func (s *Server) searchReviewers(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaginationParams(r)
	query := r.URL.Query().Get("q")

	reviewers, totalCount, err := s.svc.SearchReviewers(r.Context(), query, limit, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]reviewerResponse, len(reviewers))
	for i, reviewer := range reviewers {
		items[i] = domainReviewerToResponse(reviewer)
	}

	writeJSON(w, http.StatusOK, listReviewersResponse{
		Reviewers:  items,
		TotalCount: int(totalCount),
	})
}

// ---- shared helpers --------------------------------------------------------

// writeDomainError maps domain errors to HTTP status codes and writes the
// standard error body. Internal error details are not leaked to clients.
func writeDomainError(w http.ResponseWriter, err error) {
	if err == nil {
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		var ve *domain.ValidationError
		if errors.As(err, &ve) {
			writeError(w, http.StatusBadRequest, "validation_error", ve.Error())
		} else {
			writeError(w, http.StatusBadRequest, "validation_error", "invalid input")
		}
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "resource not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden", "access denied")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already_exists", "resource already exists")
	case errors.Is(err, domain.ErrCapacityExceeded):
		writeError(w, http.StatusConflict, "capacity_exceeded",
			fmt.Sprintf("an article can have at most %d reviewers", domain.MaxReviewers))
	case errors.Is(err, domain.ErrArticleLocked):
		writeError(w, http.StatusConflict, "article_locked", "article is finalized and can no longer change")
	case errors.Is(err, domain.ErrAlreadyReviewed):
		writeError(w, http.StatusConflict, "already_reviewed", "a verdict is already recorded for this reviewer")
	case errors.Is(err, domain.ErrAlreadyFinalized):
		writeError(w, http.StatusConflict, "already_finalized", "article is already finalized with this decision")
	case errors.Is(err, domain.ErrDecisionConflict):
		writeError(w, http.StatusConflict, "decision_conflict", "a conflicting decision is already committed")
	case errors.Is(err, domain.ErrStorage):
		writeError(w, http.StatusBadGateway, "storage_error", "document storage is unavailable")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// parseUUID parses a UUID from a string, writing a 400 error response if invalid.
// The parse error details are not included to avoid echoing potentially malicious input.
func parseUUID(w http.ResponseWriter, s, fieldName string) (uuid.UUID, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("%s must be a valid UUID", fieldName))
		return uuid.Nil, false
	}
	return id, true
}

// parsePaginationParams extracts page_size and offset from query parameters.
// It applies default and maximum bounds to the page size.
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if pageSizeStr := r.URL.Query().Get("page_size"); pageSizeStr != "" {
		if parsed, err := strconv.Atoi(pageSizeStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if parsed, err := strconv.Atoi(offsetStr); err == nil && parsed > 0 {
			offset = parsed
		}
	}

	return limit, offset
}
