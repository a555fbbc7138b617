package extract

import (
	"fmt"
	"strings"
)

// NotFoundError reports a document whose bytes are missing from storage.
type NotFoundError struct {
	Key string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document not found: %s", e.Key)
}

type UnsupportedFormatError struct {
	Format string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported format: %q", e.Format)
}

// DecodeError means no candidate encoding produced clean text.
type DecodeError struct {
	Tried []string
}

func (e *DecodeError) Error() string {
	return "could not decode text with any of: " + strings.Join(e.Tried, ", ")
}

// ExtractionError wraps a failure of the underlying parser or tool.
type ExtractionError struct {
	Format Format
	Err    error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.Format, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }
