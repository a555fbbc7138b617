package attempt

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/db"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const attemptColumns = `id,quiz_id,student_id,status,score,points_earned,total_points,
	correct_answers,total_questions,time_spent,started_at,completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (Attempt, error) {
	var (
		a         Attempt
		status    string
		started   int64
		completed sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.QuizID, &a.StudentID, &status, &a.Score, &a.PointsEarned, &a.TotalPoints,
		&a.CorrectAnswers, &a.TotalQuestions, &a.TimeSpent, &started, &completed); err != nil {
		return Attempt{}, err
	}
	a.Status = Status(status)
	a.StartedAt = time.Unix(started, 0).UTC()
	if completed.Valid {
		t := time.Unix(completed.Int64, 0).UTC()
		a.CompletedAt = &t
	}
	return a, nil
}

func (s *SQLStore) CreateAttempt(ctx context.Context, a Attempt) (Attempt, bool, error) {
	a.Status = StatusInProgress
	_, err := s.db.ExecContext(ctx, `INSERT INTO quiz_attempts
		(id,quiz_id,student_id,status,total_points,total_questions,started_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		a.ID, a.QuizID, a.StudentID, string(a.Status), a.TotalPoints, a.TotalQuestions, a.StartedAt.Unix())
	if err == nil {
		return a, true, nil
	}
	if db.IsUniqueViolation(err) {
		cur, gErr := s.ActiveAttempt(ctx, a.StudentID, a.QuizID)
		if gErr != nil {
			return Attempt{}, false, gErr
		}
		return cur, false, nil
	}
	return Attempt{}, false, fmt.Errorf("insert attempt: %w", err)
}

func (s *SQLStore) ActiveAttempt(ctx context.Context, studentID, quizID string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts
		WHERE student_id=$1 AND quiz_id=$2 AND status='in_progress'`, studentID, quizID))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	return a, err
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	a, err := scanAttempt(s.db.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrNotFound
	}
	if err != nil {
		return Attempt{}, err
	}
	a.Answers, err = listAnswers(ctx, s.db, id)
	return a, err
}

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listAnswers(ctx context.Context, q querier, attemptID string) ([]UserAnswer, error) {
	rows, err := q.QueryContext(ctx, `SELECT attempt_id,question_id,answer,is_correct,points_earned,answered_at
		FROM user_answers WHERE attempt_id=$1 ORDER BY question_id`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserAnswer
	for rows.Next() {
		var (
			ua UserAnswer
			at int64
		)
		if err := rows.Scan(&ua.AttemptID, &ua.QuestionID, &ua.Answer, &ua.IsCorrect, &ua.PointsEarned, &at); err != nil {
			return nil, err
		}
		ua.AnsweredAt = time.Unix(at, 0).UTC()
		out = append(out, ua)
	}
	return out, rows.Err()
}

// ListCompleted returns the student's completed attempts, newest first.
func (s *SQLStore) ListCompleted(ctx context.Context, studentID string) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts
		WHERE student_id=$1 AND status='completed' ORDER BY completed_at DESC, id`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Complete claims the attempt with a conditional status update before
// touching answers, so a concurrent submission blocks on the row and then
// sees zero affected rows.
func (s *SQLStore) Complete(ctx context.Context, in CompleteInput) (_ Attempt, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Attempt{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	res, err := tx.ExecContext(ctx, `UPDATE quiz_attempts SET status='completed', completed_at=$1, time_spent=$2
		WHERE id=$3 AND status='in_progress'`, in.At.Unix(), in.TimeSpent, in.AttemptID)
	if err != nil {
		return Attempt{}, fmt.Errorf("claim attempt: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var one int
		switch qErr := tx.QueryRowContext(ctx, `SELECT 1 FROM quiz_attempts WHERE id=$1`, in.AttemptID).Scan(&one); {
		case errors.Is(qErr, sql.ErrNoRows):
			err = ErrNotFound
		case qErr != nil:
			err = qErr
		default:
			err = ErrNoActiveAttempt
		}
		return Attempt{}, err
	}

	for _, ua := range in.Answers {
		if _, err = tx.ExecContext(ctx, `INSERT INTO user_answers
			(attempt_id,question_id,answer,is_correct,points_earned,answered_at)
			VALUES ($1,$2,$3,$4,$5,$6)
			ON CONFLICT (attempt_id,question_id) DO UPDATE SET
			answer=excluded.answer, is_correct=excluded.is_correct,
			points_earned=excluded.points_earned, answered_at=excluded.answered_at`,
			in.AttemptID, ua.QuestionID, ua.Answer, ua.IsCorrect, ua.PointsEarned, ua.AnsweredAt.Unix()); err != nil {
			return Attempt{}, fmt.Errorf("upsert answer %s: %w", ua.QuestionID, err)
		}
	}

	var correct, earned, totalQuestions int
	if err = tx.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN is_correct THEN 1 ELSE 0 END),0), COALESCE(SUM(points_earned),0)
		FROM user_answers WHERE attempt_id=$1`, in.AttemptID).Scan(&correct, &earned); err != nil {
		return Attempt{}, fmt.Errorf("sum answers: %w", err)
	}
	if err = tx.QueryRowContext(ctx, `SELECT total_questions FROM quiz_attempts WHERE id=$1`, in.AttemptID).
		Scan(&totalQuestions); err != nil {
		return Attempt{}, err
	}
	if _, err = tx.ExecContext(ctx, `UPDATE quiz_attempts SET score=$1, points_earned=$2, correct_answers=$3
		WHERE id=$4`, Score(correct, totalQuestions), earned, correct, in.AttemptID); err != nil {
		return Attempt{}, fmt.Errorf("update totals: %w", err)
	}

	a, err := scanAttempt(tx.QueryRowContext(ctx, `SELECT `+attemptColumns+` FROM quiz_attempts WHERE id=$1`, in.AttemptID))
	if err != nil {
		return Attempt{}, err
	}
	if a.Answers, err = listAnswers(ctx, tx, in.AttemptID); err != nil {
		return Attempt{}, err
	}
	if err = tx.Commit(); err != nil {
		return Attempt{}, err
	}
	return a, nil
}

// MarkStaleAbandoned moves attempts started before cutoff and still in
// progress to abandoned, freeing the active slot.
func (s *SQLStore) MarkStaleAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE quiz_attempts SET status='abandoned'
		WHERE status='in_progress' AND started_at < $1`, cutoff.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
