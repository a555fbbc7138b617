package quiz

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/healer"
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// CreateQuiz persists the quiz, its document links, questions and
// flashcards in one transaction. Nothing is written if any insert fails.
func (s *SQLStore) CreateQuiz(ctx context.Context, q *Quiz) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO quizzes
		(id,course_id,title,description,difficulty,status,time_limit,passing_score,shuffle_questions,show_correct_answers,used_fallback,created_by,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		q.ID, q.CourseID, q.Title, q.Description, q.Difficulty, string(q.Status), q.TimeLimit, q.PassingScore,
		q.ShuffleQuestions, q.ShowCorrectAnswers, q.UsedFallback, q.CreatedBy, q.CreatedAt.Unix()); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}

	for _, docID := range q.DocumentIDs {
		if _, err = tx.ExecContext(ctx, `INSERT INTO quiz_documents (quiz_id,document_id) VALUES ($1,$2)`, q.ID, docID); err != nil {
			return fmt.Errorf("link document %s: %w", docID, err)
		}
	}

	for _, qq := range q.Questions {
		choices := qq.Choices
		if choices == nil {
			choices = []healer.Choice{}
		}
		cj, mErr := json.Marshal(choices)
		if mErr != nil {
			err = mErr
			return err
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO questions
			(id,quiz_id,question_type,text,choices_json,correct_answer,explanation,points,position)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			qq.ID, q.ID, qq.Type, qq.Text, string(cj), qq.CorrectAnswer, qq.Explanation, qq.Points, qq.Order); err != nil {
			return fmt.Errorf("insert question %d: %w", qq.Order, err)
		}
	}

	for _, f := range q.Flashcards {
		if _, err = tx.ExecContext(ctx, `INSERT INTO flashcards (id,quiz_id,front,back,hint,position)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			f.ID, q.ID, f.Front, f.Back, f.Hint, f.Order); err != nil {
			return fmt.Errorf("insert flashcard %d: %w", f.Order, err)
		}
	}

	return tx.Commit()
}

const quizColumns = `id,course_id,title,description,difficulty,status,time_limit,passing_score,
	shuffle_questions,show_correct_answers,used_fallback,created_by,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuiz(row rowScanner) (Quiz, error) {
	var (
		q       Quiz
		status  string
		created int64
	)
	if err := row.Scan(&q.ID, &q.CourseID, &q.Title, &q.Description, &q.Difficulty, &status, &q.TimeLimit,
		&q.PassingScore, &q.ShuffleQuestions, &q.ShowCorrectAnswers, &q.UsedFallback, &q.CreatedBy, &created); err != nil {
		return Quiz{}, err
	}
	q.Status = Status(status)
	q.CreatedAt = time.Unix(created, 0).UTC()
	return q, nil
}

// GetQuiz loads a quiz with questions (answers included), flashcards and
// document links.
func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	q, err := scanQuiz(s.db.QueryRowContext(ctx, `SELECT `+quizColumns+` FROM quizzes WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrNotFound
	}
	if err != nil {
		return Quiz{}, err
	}

	if q.Questions, err = s.listQuestions(ctx, id); err != nil {
		return Quiz{}, err
	}
	if q.Flashcards, err = s.ListFlashcards(ctx, id); err != nil {
		return Quiz{}, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT document_id FROM quiz_documents WHERE quiz_id=$1 ORDER BY document_id`, id)
	if err != nil {
		return Quiz{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return Quiz{}, err
		}
		q.DocumentIDs = append(q.DocumentIDs, d)
	}
	return q, rows.Err()
}

// GetQuizForStudent is GetQuiz without answer keys, explanations or flashcards.
func (s *SQLStore) GetQuizForStudent(ctx context.Context, id string) (Quiz, error) {
	q, err := s.GetQuiz(ctx, id)
	if err != nil {
		return Quiz{}, err
	}
	return q.ForStudent(), nil
}

func (s *SQLStore) listQuestions(ctx context.Context, quizID string) ([]Question, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,quiz_id,question_type,text,choices_json,correct_answer,explanation,points,position
		FROM questions WHERE quiz_id=$1 ORDER BY position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Question
	for rows.Next() {
		var (
			qq Question
			cj string
		)
		if err := rows.Scan(&qq.ID, &qq.QuizID, &qq.Type, &qq.Text, &cj, &qq.CorrectAnswer, &qq.Explanation, &qq.Points, &qq.Order); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(cj), &qq.Choices); err != nil {
			return nil, fmt.Errorf("question %s choices: %w", qq.ID, err)
		}
		if len(qq.Choices) == 0 {
			qq.Choices = nil
		}
		out = append(out, qq)
	}
	return out, rows.Err()
}

func (s *SQLStore) ListFlashcards(ctx context.Context, quizID string) ([]Flashcard, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,quiz_id,front,back,hint,position
		FROM flashcards WHERE quiz_id=$1 ORDER BY position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Flashcard
	for rows.Next() {
		var f Flashcard
		if err := rows.Scan(&f.ID, &f.QuizID, &f.Front, &f.Back, &f.Hint, &f.Order); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ListQuizzes returns quiz metadata (no questions), newest first. An empty
// courseID lists every course.
func (s *SQLStore) ListQuizzes(ctx context.Context, courseID string) ([]Quiz, error) {
	query := `SELECT ` + quizColumns + ` FROM quizzes`
	var args []any
	if courseID != "" {
		query += ` WHERE course_id=$1`
		args = append(args, courseID)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Quiz
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) Publish(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, StatusPublished)
}

func (s *SQLStore) Archive(ctx context.Context, id string) error {
	return s.setStatus(ctx, id, StatusArchived)
}

func (s *SQLStore) setStatus(ctx context.Context, id string, st Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE quizzes SET status=$1 WHERE id=$2`, string(st), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteQuiz removes the quiz; questions, flashcards, links and attempts
// go with it through ON DELETE CASCADE.
func (s *SQLStore) DeleteQuiz(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quizzes WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
