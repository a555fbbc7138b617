package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMissingBinariesReportUnavailable(t *testing.T) {
	cfg := Config{
		TesseractCmd: filepath.Join(t.TempDir(), "no-such-tesseract"),
		PDFToPPMCmd:  filepath.Join(t.TempDir(), "no-such-pdftoppm"),
	}

	tess := NewTesseract(cfg)
	if tess.Available() {
		t.Fatal("tesseract should not be available")
	}
	if _, err := tess.ImageText(context.Background(), []byte("png")); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("ImageText err=%v", err)
	}

	r := NewRasterizer(cfg)
	if _, err := r.Rasterize(context.Background(), "in.pdf", t.TempDir()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Rasterize err=%v", err)
	}
}

func TestPagesInOrderSortsNumerically(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page-10.png", "page-2.png", "page-1.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := pagesInOrder(dir)
	if err != nil {
		t.Fatalf("pagesInOrder: %v", err)
	}
	want := []string{"page-1.png", "page-2.png", "page-10.png"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if filepath.Base(got[i]) != want[i] {
			t.Fatalf("pos %d: got %s want %s", i, filepath.Base(got[i]), want[i])
		}
	}
}

func TestDefaults(t *testing.T) {
	tess := NewTesseract(Config{})
	if tess.Cmd != "tesseract" || tess.Lang != "fra+eng" || tess.Timeout <= 0 {
		t.Fatalf("tesseract defaults: %+v", tess)
	}
	r := NewRasterizer(Config{})
	if r.Cmd != "pdftoppm" || r.DPI != 200 {
		t.Fatalf("rasterizer defaults: %+v", r)
	}
}
