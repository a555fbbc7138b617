package document

import (
	"errors"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/extract"
)

var (
	ErrNotFound = errors.New("document not found")
	// ErrBusy is returned when a document is already being processed.
	ErrBusy = errors.New("document is being processed")
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Document struct {
	ID               string          `json:"id"`
	CourseID         string          `json:"course_id"`
	Title            string          `json:"title"`
	StorageKey       string          `json:"storage_key"`
	FileType         extract.Format  `json:"file_type"`
	FileSize         int64           `json:"file_size"`
	ExtractedText    string          `json:"extracted_text,omitempty"`
	Outcome          extract.Outcome `json:"outcome,omitempty"`
	ProcessingStatus Status          `json:"processing_status"`
	ProcessingError  string          `json:"processing_error,omitempty"`
	UploadedBy       string          `json:"uploaded_by"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Processed reports whether the document has usable extracted text.
func (d Document) Processed() bool {
	return d.ProcessingStatus == StatusCompleted
}
