package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/quill/internal/moderation"
	"github.com/hyperengineering/quill/internal/registry"
	"github.com/hyperengineering/quill/internal/store"
	"github.com/hyperengineering/quill/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

type problemType struct {
	typeURI string
	title   string
}

// problemTypes maps HTTP status codes to RFC 7807 type URIs and titles.
var problemTypes = map[int]problemType{
	http.StatusBadRequest:            {"https://quill.dev/errors/bad-request", "Bad Request"},
	http.StatusUnauthorized:          {"https://quill.dev/errors/unauthorized", "Unauthorized"},
	http.StatusForbidden:             {"https://quill.dev/errors/message-rejected", "Message Rejected"},
	http.StatusNotFound:              {"https://quill.dev/errors/not-found", "Not Found"},
	http.StatusRequestEntityTooLarge: {"https://quill.dev/errors/payload-too-large", "Payload Too Large"},
	http.StatusUnprocessableEntity:   {"https://quill.dev/errors/validation-error", "Validation Error"},
	http.StatusInternalServerError:   {"https://quill.dev/errors/internal-error", "Internal Server Error"},
}

func newProblem(r *http.Request, status int, detail string) Problem {
	pt, ok := problemTypes[status]
	if !ok {
		pt = problemType{
			typeURI: "https://quill.dev/errors/unknown",
			title:   http.StatusText(status),
		}
	}
	return Problem{
		Type:     pt.typeURI,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
}

func writeProblemBody(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblemBody(w, status, newProblem(r, status, detail))
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: newProblem(r, http.StatusUnprocessableEntity, detail),
		Errors:  errs,
	})
}

// ProblemWithModeration carries the decision that rejected a visitor message.
type ProblemWithModeration struct {
	Problem
	Moderation moderation.Result `json:"moderation"`
}

// WriteProblemRejected writes a 403 response for a message that failed moderation.
func WriteProblemRejected(w http.ResponseWriter, r *http.Request, result moderation.Result) {
	writeProblemBody(w, http.StatusForbidden, ProblemWithModeration{
		Problem:    newProblem(r, http.StatusForbidden, "Message was not accepted by moderation"),
		Moderation: result,
	})
}

// MapStoreError converts domain errors to Problem Details responses.
func MapStoreError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Visitor message not found")
	case errors.Is(err, registry.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Registry entry not found")
	default:
		// Never expose internal error details to client
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
