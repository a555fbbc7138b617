package document

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/extract"
)

type Store interface {
	Insert(ctx context.Context, d Document) error
	Get(ctx context.Context, id string) (Document, error)
	GetMany(ctx context.Context, ids []string) ([]Document, error)
	ListByCourse(ctx context.Context, courseID string) ([]Document, error)
	// MarkProcessing moves a document out of any state but processing.
	MarkProcessing(ctx context.Context, id string, at time.Time) error
	SaveResult(ctx context.Context, d Document) error
	Delete(ctx context.Context, id string) error
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const docColumns = `id,course_id,title,storage_key,file_type,file_size,extracted_text,outcome,
	processing_status,processing_error,uploaded_by,created_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		d                    Document
		fileType, outcome    string
		status               string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&d.ID, &d.CourseID, &d.Title, &d.StorageKey, &fileType, &d.FileSize, &d.ExtractedText,
		&outcome, &status, &d.ProcessingError, &d.UploadedBy, &createdAt, &updatedAt); err != nil {
		return Document{}, err
	}
	d.FileType = extract.Format(fileType)
	d.Outcome = extract.Outcome(outcome)
	d.ProcessingStatus = Status(status)
	d.CreatedAt = time.Unix(createdAt, 0).UTC()
	d.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return d, nil
}

func (s *SQLStore) Insert(ctx context.Context, d Document) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO documents (`+docColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		d.ID, d.CourseID, d.Title, d.StorageKey, string(d.FileType), d.FileSize, d.ExtractedText,
		string(d.Outcome), string(d.ProcessingStatus), d.ProcessingError, d.UploadedBy,
		d.CreatedAt.Unix(), d.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, id string) (Document, error) {
	d, err := scanDocument(s.db.QueryRowContext(ctx, `SELECT `+docColumns+` FROM documents WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, ErrNotFound
	}
	return d, err
}

// GetMany returns the documents in ids order. A missing id is ErrNotFound.
func (s *SQLStore) GetMany(ctx context.Context, ids []string) ([]Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	ph := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		ph[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+docColumns+` FROM documents WHERE id IN (`+strings.Join(ph, ",")+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	byID := make(map[string]Document, len(ids))
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		byID[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	out := make([]Document, 0, len(ids))
	for _, id := range ids {
		d, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		out = append(out, d)
	}
	return out, nil
}

func (s *SQLStore) ListByCourse(ctx context.Context, courseID string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+docColumns+` FROM documents WHERE course_id=$1
		ORDER BY created_at DESC, id`, courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQLStore) MarkProcessing(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET processing_status='processing', processing_error='', updated_at=$1
		WHERE id=$2 AND processing_status <> 'processing'`, at.Unix(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return ErrBusy
	}
	return nil
}

func (s *SQLStore) SaveResult(ctx context.Context, d Document) error {
	res, err := s.db.ExecContext(ctx, `UPDATE documents SET extracted_text=$1, outcome=$2, processing_status=$3,
		processing_error=$4, updated_at=$5 WHERE id=$6`,
		d.ExtractedText, string(d.Outcome), string(d.ProcessingStatus), d.ProcessingError, d.UpdatedAt.Unix(), d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
