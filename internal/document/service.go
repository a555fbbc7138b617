// Package document handles uploaded study documents: storing the bytes,
// extracting their text and tracking processing status.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mind-engage/mindengage-quizgen/internal/extract"
	"github.com/mind-engage/mindengage-quizgen/internal/logger"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
	syncx "github.com/mind-engage/mindengage-quizgen/internal/sync"
)

// Extractor is the part of *extract.Extractor the service needs.
type Extractor interface {
	ExtractBlob(ctx context.Context, blobs storage.BlobStore, key string, f extract.Format) (extract.ExtractedText, error)
}

type Service struct {
	store   Store
	blobs   storage.BlobStore
	ex      Extractor
	events  syncx.Recorder
	log     *logger.Logger
	workers int
	now     func() time.Time
}

type Option func(*Service)

func WithEvents(r syncx.Recorder) Option { return func(s *Service) { s.events = r } }

func WithLogger(l *logger.Logger) Option { return func(s *Service) { s.log = logger.OrNop(l) } }

// WithWorkers bounds ProcessAll concurrency.
func WithWorkers(n int) Option { return func(s *Service) { s.workers = n } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(store Store, blobs storage.BlobStore, ex Extractor, opts ...Option) *Service {
	s := &Service{
		store:   store,
		blobs:   blobs,
		ex:      ex,
		events:  syncx.Nop{},
		log:     logger.Nop(),
		workers: 4,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.workers < 1 {
		s.workers = 1
	}
	return s
}

type UploadInput struct {
	CourseID   string
	Title      string
	Filename   string
	Format     string // optional tag; derived from Filename when empty
	UploadedBy string
	Body       io.Reader
}

// Upload stores the file and records a pending document.
func (s *Service) Upload(ctx context.Context, in UploadInput) (Document, error) {
	f, err := resolveFormat(in.Format, in.Filename)
	if err != nil {
		return Document{}, err
	}
	id := uuid.NewString()
	key := fmt.Sprintf("documents/%s/%s%s", safeSegment(in.CourseID), id, strings.ToLower(filepath.Ext(in.Filename)))
	key, err = s.blobs.Put(key, in.Body)
	if err != nil {
		return Document{}, fmt.Errorf("store upload: %w", err)
	}
	size, err := s.blobs.Stat(key)
	if err != nil {
		return Document{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(in.Filename), filepath.Ext(in.Filename))
	}
	now := s.now()
	d := Document{
		ID:               id,
		CourseID:         in.CourseID,
		Title:            title,
		StorageKey:       key,
		FileType:         f,
		FileSize:         size,
		ProcessingStatus: StatusPending,
		UploadedBy:       in.UploadedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.Insert(ctx, d); err != nil {
		_ = s.blobs.Delete(key)
		return Document{}, err
	}
	s.log.Info("document uploaded", "document", id, "course", in.CourseID, "format", f, "size", size)
	return d, nil
}

func resolveFormat(tag, filename string) (extract.Format, error) {
	if tag != "" {
		return extract.ParseFormat(tag)
	}
	return extract.FormatFromFilename(filename)
}

func safeSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, s)
	if s == "" {
		return "_"
	}
	return s
}

// Process extracts the document's text and records the outcome. A failed
// extraction is stored on the document and also returned.
func (s *Service) Process(ctx context.Context, id string) (Document, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if err := s.store.MarkProcessing(ctx, id, s.now()); err != nil {
		return d, err
	}

	res, exErr := s.ex.ExtractBlob(ctx, s.blobs, d.StorageKey, d.FileType)
	d.UpdatedAt = s.now()
	d.Outcome = res.Outcome
	if exErr != nil {
		d.ProcessingStatus = StatusFailed
		d.ProcessingError = exErr.Error()
		d.ExtractedText = ""
	} else {
		d.ProcessingStatus = StatusCompleted
		d.ProcessingError = ""
		d.ExtractedText = res.Text
	}
	// the row must leave processing even when ctx was cancelled mid-extraction
	if err := s.store.SaveResult(context.WithoutCancel(ctx), d); err != nil {
		return d, fmt.Errorf("save result: %w", err)
	}
	if exErr != nil {
		s.log.Warn("document processing failed", "document", id, "err", exErr)
		return d, exErr
	}

	s.log.Info("document processed", "document", id, "outcome", d.Outcome, "chars", len(d.ExtractedText))
	if err := s.events.Record(ctx, syncx.TypeDocumentProcessed, d.ID, map[string]any{
		"course_id": d.CourseID,
		"outcome":   d.Outcome,
	}); err != nil {
		s.log.Warn("event log append failed", "document", id, "err", err)
	}
	return d, nil
}

// Reprocess runs extraction again, typically after a failure.
func (s *Service) Reprocess(ctx context.Context, id string) (Document, error) {
	return s.Process(ctx, id)
}

// ProcessAll processes documents concurrently. Each document succeeds or
// fails on its own; the returned slice follows ids order and errs holds the
// per-document error (nil on success).
func (s *Service) ProcessAll(ctx context.Context, ids []string) ([]Document, []error) {
	docs := make([]Document, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, id := range ids {
		g.Go(func() error {
			docs[i], errs[i] = s.Process(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return docs, errs
}

func (s *Service) Get(ctx context.Context, id string) (Document, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListByCourse(ctx context.Context, courseID string) ([]Document, error) {
	return s.store.ListByCourse(ctx, courseID)
}

// Processed loads the listed documents and keeps those with extracted text.
func (s *Service) Processed(ctx context.Context, ids []string) ([]Document, error) {
	docs, err := s.store.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := docs[:0]
	for _, d := range docs {
		if d.Processed() {
			out = append(out, d)
		}
	}
	return out, nil
}

// Delete removes the record and its stored bytes.
func (s *Service) Delete(ctx context.Context, id string) error {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(d.StorageKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.log.Warn("blob delete failed", "document", id, "key", d.StorageKey, "err", err)
	}
	return nil
}
