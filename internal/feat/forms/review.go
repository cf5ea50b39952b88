package forms

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cliossg/intake/pkg/cl/middleware"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

var reviewValidate = validator.New(validator.WithRequiredStructEnabled())

// statusUpdate is the body of a review status change. Submissions are
// never deleted; archiving is the terminal state.
type statusUpdate struct {
	Status string `json:"status" validate:"required,oneof=new reviewed contacted archived"`
}

type listQuery struct {
	Kind   string `validate:"omitempty,oneof=contact newsletter training-registration"`
	Status string `validate:"omitempty,oneof=new reviewed contacted archived"`
	Limit  int    `validate:"gte=0,lte=200"`
}

// HandleListSubmissions lists submissions newest first.
func (h *Handler) HandleListSubmissions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lq := listQuery{Kind: q.Get("kind"), Status: q.Get("status")}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a number"})
			return
		}
		lq.Limit = n
	}
	if err := reviewValidate.Struct(lq); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Invalid filter",
			"fields": invalidFields(err),
		})
		return
	}
	if lq.Limit == 0 {
		lq.Limit = defaultListLimit
	}

	recs, err := h.review.ListSubmissions(r.Context(), ListFilter{
		Kind:   Kind(lq.Kind),
		Status: Status(lq.Status),
		Limit:  min(lq.Limit, maxListLimit),
	})
	if err != nil {
		middleware.LoggerFrom(r.Context(), h.log).Errorf("Cannot list submissions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Cannot list submissions"})
		return
	}
	if recs == nil {
		recs = []*SubmissionRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"submissions": recs, "count": len(recs)})
}

func (h *Handler) HandleGetSubmission(w http.ResponseWriter, r *http.Request) {
	rec, err := h.review.GetSubmission(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, ErrSubmissionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Submission not found"})
		return
	}
	if err != nil {
		middleware.LoggerFrom(r.Context(), h.log).Errorf("Cannot get submission: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Cannot get submission"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body statusUpdate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if err := reviewValidate.Struct(body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  ErrInvalidStatus.Error(),
			"fields": invalidFields(err),
		})
		return
	}

	id := chi.URLParam(r, "id")
	err := h.review.UpdateStatus(r.Context(), id, Status(body.Status))
	if errors.Is(err, ErrSubmissionNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Submission not found"})
		return
	}
	if err != nil {
		middleware.LoggerFrom(r.Context(), h.log).Errorf("Cannot update submission %s: %v", id, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Cannot update submission"})
		return
	}

	h.log.Infof("Submission %s marked %s", id, body.Status)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": id, "status": body.Status})
}

func invalidFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return fields
}
