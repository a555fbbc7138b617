package document

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-quizgen/internal/db"
	"github.com/mind-engage/mindengage-quizgen/internal/extract"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

const lesson = "La photosynthèse transforme l'énergie lumineuse en énergie chimique.\n\n\n\nElle a lieu dans les chloroplastes."

func newTestService(t *testing.T, opts ...Option) (*Service, *storage.FSStore) {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dbh, err := db.Open(context.Background(), db.DriverSQLite, db.MemoryDSN("doc_"+name))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { dbh.Close() })
	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ex := extract.New(extract.Config{}, nil)
	return NewService(NewSQLStore(dbh), blobs, ex, opts...), blobs
}

func upload(t *testing.T, s *Service, filename, body string) Document {
	t.Helper()
	d, err := s.Upload(context.Background(), UploadInput{
		CourseID:   "bio-101",
		Filename:   filename,
		UploadedBy: "teacher-1",
		Body:       strings.NewReader(body),
	})
	if err != nil {
		t.Fatalf("upload %s: %v", filename, err)
	}
	return d
}

func TestUploadAndProcessText(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t)

	d := upload(t, s, "cours.txt", lesson)
	if d.ProcessingStatus != StatusPending || d.FileType != extract.FormatText || d.Title != "cours" {
		t.Fatalf("uploaded=%+v", d)
	}
	if d.FileSize != int64(len(lesson)) {
		t.Fatalf("size=%d", d.FileSize)
	}

	got, err := s.Process(ctx, d.ID)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got.ProcessingStatus != StatusCompleted || got.Outcome != extract.OutcomeOK {
		t.Fatalf("processed=%+v", got)
	}
	if strings.Contains(got.ExtractedText, "\n\n\n") {
		t.Fatalf("text not normalized: %q", got.ExtractedText)
	}

	stored, err := s.Get(ctx, d.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.ExtractedText != got.ExtractedText || !stored.Processed() {
		t.Fatalf("stored=%+v", stored)
	}
}

func TestUploadRejectsUnknownFormat(t *testing.T) {
	s, _ := newTestService(t)
	_, err := s.Upload(context.Background(), UploadInput{CourseID: "c", Filename: "slides.pptx", Body: strings.NewReader("x")})
	var ue *extract.UnsupportedFormatError
	if !errors.As(err, &ue) {
		t.Fatalf("err=%v", err)
	}
}

func TestProcessAllIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestService(t, WithWorkers(2))

	good1 := upload(t, s, "a.txt", lesson)
	bad := upload(t, s, "b.txt", "\x00\x01\x02\x03 binaire")
	good2 := upload(t, s, "c.txt", lesson)

	docs, errs := s.ProcessAll(ctx, []string{good1.ID, bad.ID, good2.ID})
	if errs[0] != nil || errs[2] != nil {
		t.Fatalf("good docs failed: %v %v", errs[0], errs[2])
	}
	var de *extract.DecodeError
	if !errors.As(errs[1], &de) {
		t.Fatalf("bad doc err=%v", errs[1])
	}
	if docs[1].ProcessingStatus != StatusFailed || docs[1].ProcessingError == "" {
		t.Fatalf("bad doc=%+v", docs[1])
	}

	processed, err := s.Processed(ctx, []string{good1.ID, bad.ID, good2.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(processed) != 2 || processed[0].ID != good1.ID || processed[1].ID != good2.ID {
		t.Fatalf("processed=%v", processed)
	}
}

func TestReprocessAfterFailure(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestService(t)
	d := upload(t, s, "a.txt", "\x00\x01\x02")
	if _, err := s.Process(ctx, d.ID); err == nil {
		t.Fatal("want failure")
	}
	if _, err := blobs.Put(d.StorageKey, strings.NewReader(lesson)); err != nil {
		t.Fatal(err)
	}
	got, err := s.Reprocess(ctx, d.ID)
	if err != nil {
		t.Fatalf("Reprocess: %v", err)
	}
	if got.ProcessingStatus != StatusCompleted || got.ProcessingError != "" {
		t.Fatalf("got=%+v", got)
	}
}

func TestMissingBlobFailsWithNotFound(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestService(t)
	d := upload(t, s, "a.txt", lesson)
	if err := blobs.Delete(d.StorageKey); err != nil {
		t.Fatal(err)
	}
	_, err := s.Process(ctx, d.ID)
	var nf *extract.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("err=%v", err)
	}
}

func TestDeleteAndUnknownIDs(t *testing.T) {
	ctx := context.Background()
	s, blobs := newTestService(t)
	d := upload(t, s, "a.txt", lesson)
	if err := s.Delete(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := blobs.Stat(d.StorageKey); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("blob still there: %v", err)
	}
	if _, err := s.Process(ctx, d.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	if _, err := s.Processed(ctx, []string{"nope"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestListByCourse(t *testing.T) {
	s, _ := newTestService(t)
	upload(t, s, "a.txt", lesson)
	upload(t, s, "b.txt", lesson)
	docs, err := s.ListByCourse(context.Background(), "bio-101")
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Fatalf("docs=%d", len(docs))
	}
}
