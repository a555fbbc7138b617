package attempt

import (
	"context"
	"time"
)

// CompleteInput carries one graded submission into the store.
type CompleteInput struct {
	AttemptID string
	Answers   []UserAnswer
	TimeSpent int
	At        time.Time
}

// Store is the persistence and transaction boundary of the engine.
// Implementations must make Complete atomic: answers are upserted, totals
// recomputed over every answer of the attempt, and the attempt moves from
// in_progress to completed only if it is still in progress. Otherwise
// nothing is written and ErrNoActiveAttempt is returned.
type Store interface {
	// CreateAttempt inserts a, unless the student already has an attempt in
	// progress on the quiz; then that one is returned with created=false.
	CreateAttempt(ctx context.Context, a Attempt) (out Attempt, created bool, err error)
	ActiveAttempt(ctx context.Context, studentID, quizID string) (Attempt, error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListCompleted(ctx context.Context, studentID string) ([]Attempt, error)
	Complete(ctx context.Context, in CompleteInput) (Attempt, error)
}
