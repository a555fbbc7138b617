package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-quizgen/internal/attempt"
	authmw "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/rbac"
)

// AttemptEngine is implemented by *attempt.Engine.
type AttemptEngine interface {
	Start(ctx context.Context, studentID, quizID string) (attempt.StartResult, error)
	Submit(ctx context.Context, req attempt.SubmitRequest) (attempt.SubmitResult, error)
	SubmitActive(ctx context.Context, studentID, quizID string, answers map[string]string, timeSpent int) (attempt.SubmitResult, error)
	Get(ctx context.Context, attemptID string) (attempt.Attempt, error)
	ListCompleted(ctx context.Context, studentID string) ([]attempt.Attempt, error)
}

// POST /quizzes/{quizID}/start
// 201 for a new attempt, 200 when the in-progress one is resumed.
func StartAttemptHandler(eng AttemptEngine, quizzes QuizStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		quizID := chi.URLParam(r, "quizID")
		q, err := quizzes.GetQuiz(r.Context(), quizID)
		if err != nil {
			fail(w, err)
			return
		}
		if !visible(r.Context(), q) {
			writeError(w, http.StatusNotFound, "quiz not found")
			return
		}
		res, err := eng.Start(r.Context(), authmw.SubjectFromContext(r.Context()), quizID)
		if err != nil {
			fail(w, err)
			return
		}
		code := http.StatusOK
		if res.Created {
			code = http.StatusCreated
		}
		writeJSON(w, code, res)
	}
}

type answerIn struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

type submitReq struct {
	Answers   []answerIn `json:"answers"`
	TimeSpent int        `json:"time_spent"`
}

func (s submitReq) answerMap() map[string]string {
	m := make(map[string]string, len(s.Answers))
	for _, a := range s.Answers {
		if a.QuestionID != "" {
			m[a.QuestionID] = a.Answer
		}
	}
	return m
}

func decodeSubmit(w http.ResponseWriter, r *http.Request) (submitReq, bool) {
	var req submitReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return req, false
	}
	if req.TimeSpent < 0 {
		writeError(w, http.StatusBadRequest, "time_spent must be >= 0")
		return req, false
	}
	return req, true
}

// writeSubmit reports a completed attempt even when the point award failed;
// the award error is surfaced in the body.
func writeSubmit(w http.ResponseWriter, res attempt.SubmitResult, err error) {
	if err != nil && res.Attempt.ID == "" {
		fail(w, err)
		return
	}
	body := map[string]any{
		"attempt":        res.Attempt,
		"is_passed":      res.Passed,
		"points_awarded": res.PointsAwarded,
	}
	if err != nil {
		body["award_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// POST /attempts/{attemptID}/submit {"answers":[{"question_id","answer"}],"time_spent":30}
func SubmitAttemptHandler(eng AttemptEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeSubmit(w, r)
		if !ok {
			return
		}
		res, err := eng.Submit(r.Context(), attempt.SubmitRequest{
			AttemptID: chi.URLParam(r, "attemptID"),
			StudentID: authmw.SubjectFromContext(r.Context()),
			Answers:   req.answerMap(),
			TimeSpent: req.TimeSpent,
		})
		writeSubmit(w, res, err)
	}
}

// POST /quizzes/{quizID}/submit submits the caller's in-progress attempt.
func SubmitActiveHandler(eng AttemptEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeSubmit(w, r)
		if !ok {
			return
		}
		res, err := eng.SubmitActive(r.Context(), authmw.SubjectFromContext(r.Context()),
			chi.URLParam(r, "quizID"), req.answerMap(), req.TimeSpent)
		writeSubmit(w, res, err)
	}
}

// GET /attempts/{attemptID}; owners or roles with attempt:view-all.
func GetAttemptHandler(eng AttemptEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, err := eng.Get(r.Context(), chi.URLParam(r, "attemptID"))
		if err != nil {
			fail(w, err)
			return
		}
		if a.StudentID != authmw.SubjectFromContext(r.Context()) && !rbac.Can(r.Context(), rbac.PermAttemptViewAll) {
			fail(w, attempt.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// GET /attempts/mine: the caller's completed attempts, newest first.
func MyAttemptsHandler(eng AttemptEngine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := eng.ListCompleted(r.Context(), authmw.SubjectFromContext(r.Context()))
		if err != nil && !errors.Is(err, attempt.ErrNotFound) {
			fail(w, err)
			return
		}
		if list == nil {
			list = []attempt.Attempt{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}
