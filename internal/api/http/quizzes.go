package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-quizgen/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quizgen/internal/pipeline"
	"github.com/mind-engage/mindengage-quizgen/internal/quiz"
	"github.com/mind-engage/mindengage-quizgen/internal/rbac"
)

type QuizGenerator interface {
	Generate(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

// QuizStore is implemented by *quiz.SQLStore.
type QuizStore interface {
	GetQuiz(ctx context.Context, id string) (quiz.Quiz, error)
	ListQuizzes(ctx context.Context, courseID string) ([]quiz.Quiz, error)
	ListFlashcards(ctx context.Context, quizID string) ([]quiz.Flashcard, error)
	Publish(ctx context.Context, id string) error
	Archive(ctx context.Context, id string) error
	DeleteQuiz(ctx context.Context, id string) error
}

type generateReq struct {
	CourseID      string   `json:"course_id"`
	CourseTitle   string   `json:"course_title"`
	DocumentIDs   []string `json:"document_ids"`
	Title         string   `json:"title"`
	NbQuestions   int      `json:"nb_questions"`
	Difficulty    string   `json:"difficulty"`
	QuestionTypes []string `json:"question_types"`
	TimeLimit     *int     `json:"time_limit"`
}

type generateResp struct {
	Quiz         quiz.Quiz `json:"quiz"`
	UsedFallback bool      `json:"used_fallback"`
	Warning      string    `json:"warning,omitempty"`
}

// POST /quizzes/generate
func GenerateQuizHandler(gen QuizGenerator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateReq
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json")
			return
		}
		if strings.TrimSpace(req.CourseID) == "" {
			writeError(w, http.StatusBadRequest, "course_id required")
			return
		}
		courseTitle := req.CourseTitle
		if courseTitle == "" {
			courseTitle = req.CourseID
		}
		res, err := gen.Generate(r.Context(), pipeline.Request{
			CourseID:      req.CourseID,
			CourseTitle:   courseTitle,
			DocumentIDs:   req.DocumentIDs,
			Title:         req.Title,
			NbQuestions:   req.NbQuestions,
			Difficulty:    req.Difficulty,
			QuestionTypes: req.QuestionTypes,
			TimeLimit:     req.TimeLimit,
			CreatedBy:     authmw.SubjectFromContext(r.Context()),
		})
		if err != nil {
			fail(w, err)
			return
		}
		out := generateResp{Quiz: res.Quiz, UsedFallback: res.UsedFallback}
		if res.UsedFallback {
			out.Warning = "model output could not be parsed; placeholder questions were used"
		}
		writeJSON(w, http.StatusCreated, out)
	}
}

// visible reports whether the caller may see q: drafts and archived quizzes
// are hidden from roles without answer access.
func visible(ctx context.Context, q quiz.Quiz) bool {
	return rbac.Can(ctx, rbac.PermQuizAnswers) || q.Status == quiz.StatusPublished
}

// GET /quizzes?course_id=...
func ListQuizzesHandler(store QuizStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := store.ListQuizzes(r.Context(), strings.TrimSpace(r.URL.Query().Get("course_id")))
		if err != nil {
			fail(w, err)
			return
		}
		out := make([]quiz.Quiz, 0, len(list))
		for _, q := range list {
			if visible(r.Context(), q) {
				out = append(out, q)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /quizzes/{quizID}; answer keys only for roles with quiz:view-answers.
func GetQuizHandler(store QuizStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := store.GetQuiz(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			fail(w, err)
			return
		}
		if !visible(r.Context(), q) {
			writeError(w, http.StatusNotFound, quiz.ErrNotFound.Error())
			return
		}
		if !rbac.Can(r.Context(), rbac.PermQuizAnswers) {
			q = q.ForStudent()
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// GET /quizzes/{quizID}/flashcards
func FlashcardsHandler(store QuizStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "quizID")
		q, err := store.GetQuiz(r.Context(), id)
		if err != nil {
			fail(w, err)
			return
		}
		if !visible(r.Context(), q) {
			writeError(w, http.StatusNotFound, quiz.ErrNotFound.Error())
			return
		}
		cards, err := store.ListFlashcards(r.Context(), id)
		if err != nil {
			fail(w, err)
			return
		}
		if cards == nil {
			cards = []quiz.Flashcard{}
		}
		writeJSON(w, http.StatusOK, cards)
	}
}

// POST /quizzes/{quizID}/publish
func PublishQuizHandler(store QuizStore) http.HandlerFunc {
	return statusHandler(store.Publish)
}

// POST /quizzes/{quizID}/archive
func ArchiveQuizHandler(store QuizStore) http.HandlerFunc {
	return statusHandler(store.Archive)
}

func statusHandler(apply func(ctx context.Context, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := apply(r.Context(), chi.URLParam(r, "quizID")); err != nil {
			fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DELETE /quizzes/{quizID}
func DeleteQuizHandler(store QuizStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.DeleteQuiz(r.Context(), chi.URLParam(r, "quizID")); err != nil {
			fail(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
