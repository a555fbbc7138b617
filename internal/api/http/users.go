package http

import (
	"context"
	"net/http"

	authmw "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/points"
	syncx "github.com/mind-engage/mindengage-quizgen/internal/sync"
)

type PasswordChanger interface {
	ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error
}

// POST /users/change-password {"old_password","new_password"}
func ChangePasswordHandler(users PasswordChanger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OldPassword string `json:"old_password"`
			NewPassword string `json:"new_password"`
		}
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if req.NewPassword == "" {
			writeError(w, http.StatusBadRequest, "new password required")
			return
		}
		if err := users.ChangePassword(r.Context(), authmw.SubjectFromContext(r.Context()), req.OldPassword, req.NewPassword); err != nil {
			fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type ProgressReader interface {
	Progress(ctx context.Context, userID string) (points.Progress, error)
}

// GET /me/progress
func ProgressHandler(pr ProgressReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := pr.Progress(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

type EventReader interface {
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// GET /events?after=0&limit=100
func ListEventsHandler(events EventReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		after := parseInt64Default(r.URL.Query().Get("after"), 0)
		limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
		if limit > 1000 {
			limit = 1000
		}
		list, err := events.Since(r.Context(), after, limit)
		if err != nil {
			fail(w, err)
			return
		}
		if list == nil {
			list = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
