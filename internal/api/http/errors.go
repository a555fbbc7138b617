package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-quizgen/internal/attempt"
	authmw "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/document"
	"github.com/mind-engage/mindengage-quizgen/internal/extract"
	"github.com/mind-engage/mindengage-quizgen/internal/generation"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/points"
	"github.com/mind-engage/mindengage-quizgen/internal/quiz"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		nf  *extract.NotFoundError
		uf  *extract.UnsupportedFormatError
		de  *extract.DecodeError
		ee  *extract.ExtractionError
		gen *generation.UnavailableError
	)
	switch {
	case errors.Is(err, quiz.ErrNotFound),
		errors.Is(err, attempt.ErrNotFound),
		errors.Is(err, document.ErrNotFound),
		errors.Is(err, points.ErrUserNotFound),
		errors.Is(err, storage.ErrNotFound),
		errors.As(err, &nf):
		return http.StatusNotFound
	case errors.As(err, &uf),
		errors.As(err, &de),
		errors.Is(err, pipeline.ErrTextTooShort),
		errors.Is(err, pipeline.ErrNoDocuments),
		errors.Is(err, pipeline.ErrInvalid):
		return http.StatusBadRequest
	case errors.As(err, &ee):
		return http.StatusUnprocessableEntity
	case errors.As(err, &gen):
		return http.StatusBadGateway
	case errors.Is(err, attempt.ErrNoActiveAttempt),
		errors.Is(err, document.ErrBusy),
		errors.Is(err, authmw.ErrUsernameTaken):
		return http.StatusConflict
	case errors.Is(err, authmw.ErrInvalidCredentials):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// fail writes err with its mapped status. Internal errors are not echoed.
func fail(w http.ResponseWriter, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeError(w, code, msg)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
