package forms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cliossg/intake/pkg/cl/config"
	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/cliossg/intake/pkg/cl/middleware"
	"github.com/cliossg/intake/pkg/cl/model"
)

// honeypotField is a hidden input real visitors leave empty.
const honeypotField = "_honeypot"

// Keys of the request envelope that are not form answers.
var envelopeKeys = map[string]bool{
	"formId":             true,
	"registrationFormId": true,
	"trainingId":         true,
	"source":             true,
	"formData":           true,
}

// Handler exposes the public submission routes and the review API.
type Handler struct {
	service      *Service
	review       ReviewStore
	cfg          *config.Config
	log          logger.Logger
	limiter      *rateLimiter
	maxBodyBytes int64
}

// NewHandler creates the forms handler. review may be nil, in which case
// the review API is not mounted.
func NewHandler(service *Service, review ReviewStore, cfg *config.Config, log logger.Logger) *Handler {
	return &Handler{
		service:      service,
		review:       review,
		cfg:          cfg,
		log:          log,
		limiter:      newRateLimiter(cfg.Forms.RateLimit, time.Hour),
		maxBodyBytes: cfg.Forms.MaxBodyBytes,
	}
}

// Start begins pruning the rate limiter.
func (h *Handler) Start(ctx context.Context) error {
	go h.limiter.run(10 * time.Minute)
	h.log.Infof("Forms handler started (rate limit %d/hour per IP)", h.cfg.Forms.RateLimit)
	return nil
}

func (h *Handler) Stop(ctx context.Context) error {
	h.limiter.stop()
	return nil
}

// RegisterRoutes mounts every route under /api.
func (h *Handler) RegisterRoutes(r chi.Router) {
	h.log.Info("Registering forms routes")

	r.Route("/api", func(r chi.Router) {
		r.Use(corsMiddleware)

		r.Group(func(r chi.Router) {
			r.Use(h.bodyLimitMiddleware)
			r.Use(h.rateLimitMiddleware)
			for _, ep := range Endpoints() {
				path := strings.TrimPrefix(ep.Path, "/api")
				r.Post(path, h.HandleSubmit(ep))
				r.Options(path, func(w http.ResponseWriter, r *http.Request) {})
			}
		})

		if h.review != nil && h.cfg.Review.TokenHash != "" {
			h.log.Info("Review API enabled")
			r.Group(func(r chi.Router) {
				r.Use(reviewAuth(h.cfg.Review.TokenHash))
				r.Get("/submissions", h.HandleListSubmissions)
				r.Get("/submissions/{id}", h.HandleGetSubmission)
				r.Patch("/submissions/{id}/status", h.HandleUpdateStatus)
			})
		}
	})
}

// HandleSubmit returns the handler for one submission endpoint.
func (h *Handler) HandleSubmit(ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := middleware.LoggerFrom(r.Context(), h.log)

		req, err := parseSubmission(r)
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				h.jsonResponse(w, http.StatusRequestEntityTooLarge, map[string]string{
					"error": "Request body too large",
				})
				return
			}
			log.Warnf("Cannot parse %s submission: %v", ep.Kind, err)
			h.jsonResponse(w, http.StatusInternalServerError, map[string]string{
				"error":   "Failed to process request",
				"message": "The request could not be read. Please try again.",
			})
			return
		}

		if Stringify(req.Fields[honeypotField]) != "" {
			log.Infof("Discarded %s submission from %s (honeypot)", ep.Kind, req.Client.IPAddress)
			h.jsonResponse(w, http.StatusCreated, successBody(&Receipt{
				SubmissionID: model.NewID(),
				Message:      ep.SuccessMessage,
			}))
			return
		}
		delete(req.Fields, honeypotField)

		receipt, err := h.service.Submit(r.Context(), ep, req)
		if err != nil {
			h.submitError(w, log, ep, err)
			return
		}

		h.jsonResponse(w, http.StatusCreated, successBody(receipt))
	}
}

func successBody(rc *Receipt) map[string]any {
	body := map[string]any{
		"success":      true,
		"submissionId": rc.SubmissionID,
		"message":      rc.Message,
	}
	if rc.RedirectURL != "" {
		body["redirectUrl"] = rc.RedirectURL
	}
	return body
}

// submitError maps pipeline errors onto the public response shapes.
// Store failures are logged and answered with a generic message.
func (h *Handler) submitError(w http.ResponseWriter, log logger.Logger, ep Endpoint, err error) {
	var (
		sysErr   *MissingSystemFieldsError
		emailErr *InvalidEmailError
		formErr  *FormFieldsError
	)

	switch {
	case errors.As(err, &sysErr):
		h.jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":         "Missing required fields",
			"missingFields": sysErr.Fields,
		})

	case errors.As(err, &emailErr):
		h.jsonResponse(w, http.StatusBadRequest, map[string]any{
			"error":         fmt.Sprintf("Invalid email format: %s", strings.Join(emailErr.Fields, ", ")),
			"invalidFields": emailErr.Fields,
		})

	case errors.Is(err, ErrFormNotFound):
		h.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "Form not found"})

	case errors.Is(err, ErrTrainingNotFound):
		h.jsonResponse(w, http.StatusNotFound, map[string]string{"error": "Training not found"})

	case errors.As(err, &formErr):
		body := map[string]any{"error": "Invalid form fields"}
		if len(formErr.Missing) > 0 {
			body["error"] = "Missing required form fields"
			body["missingFormFields"] = formErr.Missing
		}
		if formErr.Constraints.HasErrors() {
			body["fieldErrors"] = formErr.Constraints.AsMap()
		}
		h.jsonResponse(w, http.StatusBadRequest, body)

	default:
		log.Errorf("Cannot process %s submission: %v", ep.Kind, err)
		h.jsonResponse(w, http.StatusInternalServerError, map[string]string{
			"error":   "Failed to submit form",
			"message": "An unexpected error occurred. Please try again later.",
		})
	}
}

// parseSubmission reads a JSON envelope, or a flat url-encoded form.
func parseSubmission(r *http.Request) (*SubmissionRequest, error) {
	body, err := decodeBody(r)
	if err != nil {
		return nil, err
	}

	req := &SubmissionRequest{
		FormID:     firstString(body, "registrationFormId", "formId"),
		TrainingID: firstString(body, "trainingId"),
		Source:     firstString(body, "source"),
		Client: ClientInfo{
			IPAddress: extractIP(r),
			UserAgent: r.UserAgent(),
			Referrer:  r.Referer(),
		},
	}

	if raw, ok := body["formData"]; ok && raw != nil {
		fields, ok := raw.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("formData must be an object, got %T", raw)
		}
		req.Fields = fields
		return req, nil
	}

	req.Fields = make(map[string]any, len(body))
	for k, v := range body {
		if !envelopeKeys[k] {
			req.Fields[k] = v
		}
	}
	return req, nil
}

func decodeBody(r *http.Request) (map[string]any, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(2 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, fmt.Errorf("cannot parse form: %w", err)
		}
		body := make(map[string]any, len(r.PostForm))
		for k, vals := range r.PostForm {
			if len(vals) == 1 {
				body[k] = vals[0]
				continue
			}
			items := make([]any, len(vals))
			for i, v := range vals {
				items[i] = v
			}
			body[k] = items
		}
		return body, nil
	}

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("cannot decode body: %w", err)
	}
	if body == nil {
		body = map[string]any{}
	}
	return body, nil
}

func firstString(body map[string]any, keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(Stringify(body[k])); v != "" {
			return v
		}
	}
	return ""
}

func (h *Handler) jsonResponse(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, data)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
