package attempt

import (
	"errors"
	"time"
)

var (
	// ErrNoActiveAttempt is returned when a submission targets an attempt
	// that is not in progress, including the loser of a concurrent submit.
	ErrNoActiveAttempt = errors.New("no active attempt")
	ErrNotFound        = errors.New("attempt not found")
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusAbandoned  Status = "abandoned"
)

type Attempt struct {
	ID             string       `json:"id"`
	QuizID         string       `json:"quiz_id"`
	StudentID      string       `json:"student_id"`
	Status         Status       `json:"status"`
	Score          float64      `json:"score"`
	PointsEarned   int          `json:"points_earned"`
	CorrectAnswers int          `json:"correct_answers"`
	TotalQuestions int          `json:"total_questions"`
	TotalPoints    int          `json:"total_points"`
	TimeSpent      int          `json:"time_spent"` // seconds
	StartedAt      time.Time    `json:"started_at"`
	CompletedAt    *time.Time   `json:"completed_at,omitempty"`
	Answers        []UserAnswer `json:"answers,omitempty"`
}

// UserAnswer is unique per (attempt, question). IsCorrect and PointsEarned
// are derived from the question and the answer text only.
type UserAnswer struct {
	AttemptID    string    `json:"attempt_id"`
	QuestionID   string    `json:"question_id"`
	Answer       string    `json:"answer"`
	IsCorrect    bool      `json:"is_correct"`
	PointsEarned int       `json:"points_earned"`
	AnsweredAt   time.Time `json:"answered_at"`
}

// Score is correct/total*100, or 0 for an empty quiz.
func Score(correct, totalQuestions int) float64 {
	if totalQuestions <= 0 {
		return 0
	}
	return float64(correct) / float64(totalQuestions) * 100
}
