// Package attempt runs the quiz-attempt state machine: start, graded
// submission, scoring and completion.
package attempt

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quizgen/internal/grading"
	"github.com/mind-engage/mindengage-quizgen/internal/logger"
	"github.com/mind-engage/mindengage-quizgen/internal/metrics"
	"github.com/mind-engage/mindengage-quizgen/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quizgen/internal/sync"
)

// QuizSource loads a quiz with its answer keys.
type QuizSource interface {
	GetQuiz(ctx context.Context, id string) (quiz.Quiz, error)
}

// PointAwarder credits a student. Called at most once per passing attempt.
type PointAwarder interface {
	AddPoints(ctx context.Context, userID string, pts int) error
}

type Engine struct {
	store   Store
	quizzes QuizSource
	grader  grading.Grader
	awarder PointAwarder
	events  syncx.Recorder
	log     *logger.Logger
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
}

type Option func(*Engine)

func WithEvents(r syncx.Recorder) Option {
	return func(e *Engine) { e.events = r }
}

func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = logger.OrNop(l) }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithShuffle replaces the presentation-order shuffle (rand.Shuffle).
func WithShuffle(fn func(n int, swap func(i, j int))) Option {
	return func(e *Engine) { e.shuffle = fn }
}

func NewEngine(store Store, quizzes QuizSource, grader grading.Grader, awarder PointAwarder, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		quizzes: quizzes,
		grader:  grader,
		awarder: awarder,
		events:  syncx.Nop{},
		log:     logger.Nop(),
		now:     func() time.Time { return time.Now().UTC() },
		shuffle: rand.Shuffle,
	}
	for _, o := range opts {
		o(e)
	}
	if e.grader == nil {
		e.grader = grading.NewDefaultGrader()
	}
	return e
}

type StartResult struct {
	Attempt   Attempt         `json:"attempt"`
	Questions []quiz.Question `json:"questions"` // presentation order, answer keys stripped
	Created   bool            `json:"created"`
	TimeLimit int             `json:"time_limit"` // minutes, 0 = unlimited
}

// Start returns the student's in-progress attempt on the quiz, creating one
// when none exists. Question counts and points are snapshotted at creation.
func (e *Engine) Start(ctx context.Context, studentID, quizID string) (StartResult, error) {
	q, err := e.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return StartResult{}, err
	}

	a, err := e.store.ActiveAttempt(ctx, studentID, quizID)
	created := false
	switch {
	case errors.Is(err, ErrNotFound):
		a, created, err = e.store.CreateAttempt(ctx, Attempt{
			ID:             uuid.NewString(),
			QuizID:         quizID,
			StudentID:      studentID,
			TotalQuestions: len(q.Questions),
			TotalPoints:    q.TotalPoints(),
			StartedAt:      e.now(),
		})
		if err != nil {
			return StartResult{}, fmt.Errorf("create attempt: %w", err)
		}
	case err != nil:
		return StartResult{}, err
	}

	questions := q.ForStudent().Questions
	if q.ShuffleQuestions {
		e.shuffle(len(questions), func(i, j int) { questions[i], questions[j] = questions[j], questions[i] })
	}
	if created {
		e.log.Info("attempt started", "attempt", a.ID, "quiz", quizID, "student", studentID)
	}
	return StartResult{Attempt: a, Questions: questions, Created: created, TimeLimit: q.TimeLimit}, nil
}

// Evaluate grades one answer. The result depends only on its arguments.
func (e *Engine) Evaluate(q quiz.Question, answer string) (bool, int) {
	r := e.grader.Grade(grading.Q{Type: q.Type, Points: q.Points, CorrectAnswer: q.CorrectAnswer}, answer)
	return r.Correct, r.Points
}

type SubmitRequest struct {
	AttemptID string
	StudentID string            // must own the attempt when set
	Answers   map[string]string // question id -> answer text
	TimeSpent int               // seconds
}

type SubmitResult struct {
	Attempt       Attempt `json:"attempt"`
	Passed        bool    `json:"is_passed"`
	PointsAwarded int     `json:"points_awarded"`
}

// Submit grades the answers and completes the attempt. Only one submission
// per attempt can succeed; later or concurrent ones get ErrNoActiveAttempt.
// An award failure is returned together with the completed result.
func (e *Engine) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	a, err := e.store.GetAttempt(ctx, req.AttemptID)
	if err != nil {
		return SubmitResult{}, err
	}
	if req.StudentID != "" && a.StudentID != req.StudentID {
		return SubmitResult{}, ErrNotFound
	}
	if a.Status != StatusInProgress {
		return SubmitResult{}, ErrNoActiveAttempt
	}
	q, err := e.quizzes.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return SubmitResult{}, err
	}

	now := e.now()
	answers := make([]UserAnswer, 0, len(req.Answers))
	for qid, text := range req.Answers {
		qq, ok := q.Question(qid)
		if !ok {
			continue
		}
		correct, pts := e.Evaluate(qq, text)
		answers = append(answers, UserAnswer{
			AttemptID:    a.ID,
			QuestionID:   qid,
			Answer:       text,
			IsCorrect:    correct,
			PointsEarned: pts,
			AnsweredAt:   now,
		})
	}

	done, err := e.store.Complete(ctx, CompleteInput{
		AttemptID: a.ID,
		Answers:   answers,
		TimeSpent: req.TimeSpent,
		At:        now,
	})
	if err != nil {
		return SubmitResult{}, err
	}

	res := SubmitResult{Attempt: done, Passed: done.Score >= float64(q.PassingScore)}
	metrics.AttemptsCompleted.WithLabelValues(strconv.FormatBool(res.Passed)).Inc()
	e.log.Info("attempt completed", "attempt", done.ID, "score", done.Score, "passed", res.Passed)
	e.record(ctx, syncx.TypeAttemptCompleted, done.ID, map[string]any{
		"quiz_id":    done.QuizID,
		"student_id": done.StudentID,
		"score":      done.Score,
		"passed":     res.Passed,
	})

	if res.Passed && e.awarder != nil && done.PointsEarned > 0 {
		if err := e.awarder.AddPoints(ctx, done.StudentID, done.PointsEarned); err != nil {
			e.log.Error("award points", "attempt", done.ID, "student", done.StudentID, "err", err)
			return res, fmt.Errorf("award points: %w", err)
		}
		res.PointsAwarded = done.PointsEarned
		e.record(ctx, syncx.TypePointsAwarded, done.StudentID, map[string]any{
			"attempt_id": done.ID,
			"points":     done.PointsEarned,
		})
	}
	return res, nil
}

// SubmitActive submits the student's in-progress attempt on a quiz.
func (e *Engine) SubmitActive(ctx context.Context, studentID, quizID string, answers map[string]string, timeSpent int) (SubmitResult, error) {
	a, err := e.store.ActiveAttempt(ctx, studentID, quizID)
	if errors.Is(err, ErrNotFound) {
		return SubmitResult{}, ErrNoActiveAttempt
	}
	if err != nil {
		return SubmitResult{}, err
	}
	return e.Submit(ctx, SubmitRequest{AttemptID: a.ID, StudentID: studentID, Answers: answers, TimeSpent: timeSpent})
}

func (e *Engine) Get(ctx context.Context, attemptID string) (Attempt, error) {
	return e.store.GetAttempt(ctx, attemptID)
}

func (e *Engine) ListCompleted(ctx context.Context, studentID string) ([]Attempt, error) {
	return e.store.ListCompleted(ctx, studentID)
}

func (e *Engine) record(ctx context.Context, typ, key string, data any) {
	if err := e.events.Record(ctx, typ, key, data); err != nil {
		e.log.Warn("event log append failed", "type", typ, "key", key, "err", err)
	}
}
