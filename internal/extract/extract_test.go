package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-quizgen/internal/ocr"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

type fakePages struct {
	pages []string
	err   error
}

func (f fakePages) PageTexts(context.Context, string) ([]string, error) { return f.pages, f.err }

type fakeRaster struct {
	n   int
	err error
}

func (f fakeRaster) Rasterize(_ context.Context, _, outDir string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]string, f.n)
	for i := range out {
		out[i] = fmt.Sprintf("%s/page-%d.png", outDir, i+1)
	}
	return out, nil
}

type fakeOCR struct {
	err   error
	calls []string
}

func (f *fakeOCR) ImageText(_ context.Context, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "recognised " + string(data), nil
}

func (f *fakeOCR) PathText(_ context.Context, path string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls = append(f.calls, path)
	return fmt.Sprintf("Scanned text of page %d", len(f.calls)), nil
}

func newTestExtractor(opts ...Option) *Extractor {
	return New(Config{}, nil, opts...)
}

func TestNormalize(t *testing.T) {
	in := "  Title\t\tline  \r\n\r\n\r\n\r\nok\nBody   text here\n\n\n\nx\n\nEnd of doc  "
	want := "Title line\n\nBody text here\n\nEnd of doc"
	if got := Normalize(in); got != want {
		t.Fatalf("Normalize:\n got %q\nwant %q", got, want)
	}
	if Normalize("") != "" {
		t.Fatal("empty input should stay empty")
	}
}

func TestExtractTextEncodings(t *testing.T) {
	e := newTestExtractor()
	cases := []struct {
		name string
		in   []byte
		want string
	}{
		{"utf8", []byte("Le café est très bon."), "Le café est très bon."},
		{"bom", append([]byte{0xEF, 0xBB, 0xBF}, "Bonjour à tous"...), "Bonjour à tous"},
		{"windows-1252", []byte("Caf\xe9 \x80 cinq euros"), "Café € cinq euros"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), RawDocument{Format: FormatText, Data: tc.in})
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if got.Text != tc.want || got.Outcome != OutcomeOK {
				t.Fatalf("got %+v want %q", got, tc.want)
			}
		})
	}
}

func TestExtractTextBinaryIsDecodeError(t *testing.T) {
	e := newTestExtractor()
	got, err := e.Extract(context.Background(), RawDocument{Format: FormatText, Data: []byte{0x00, 0x01, 0x02, 'a', 'b'}})
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("want DecodeError, got %v", err)
	}
	if len(de.Tried) != 3 {
		t.Fatalf("tried=%v", de.Tried)
	}
	if got.Outcome != OutcomeFailed || got.Reason == "" {
		t.Fatalf("result=%+v", got)
	}
}

func TestUnsupportedFormat(t *testing.T) {
	e := newTestExtractor()
	_, err := e.Extract(context.Background(), RawDocument{Format: Format("odt"), Data: []byte("x")})
	var ue *UnsupportedFormatError
	if !errors.As(err, &ue) || ue.Format != "odt" {
		t.Fatalf("got %v", err)
	}
	if _, err := ParseFormat("pptx"); !errors.As(err, &ue) {
		t.Fatalf("ParseFormat: %v", err)
	}
	if f, err := ParseFormat("DOCX"); err != nil || f != FormatWord {
		t.Fatalf("alias: %v %v", f, err)
	}
	if f, err := FormatFromFilename("Cours.PDF"); err != nil || f != FormatPDF {
		t.Fatalf("filename: %v %v", f, err)
	}
}

func buildDocx(t *testing.T, documentXML string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(documentXML)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

const sampleDocx = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>
<w:p><w:r><w:t>La photosynthèse</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">   </w:t></w:r></w:p>
<w:tbl>
 <w:tr><w:tc><w:p><w:r><w:t>Entrée</w:t></w:r></w:p></w:tc><w:tc><w:p/></w:tc><w:tc><w:p><w:r><w:t>Sortie</w:t></w:r></w:p></w:tc></w:tr>
 <w:tr><w:tc><w:p><w:r><w:t>CO2 et eau</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Glucose</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t xml:space="preserve">Elle a lieu dans </w:t></w:r><w:r><w:t>les chloroplastes.</w:t></w:r></w:p>
</w:body></w:document>`

func TestExtractWordParagraphsThenTables(t *testing.T) {
	e := newTestExtractor()
	got, err := e.Extract(context.Background(), RawDocument{Format: FormatWord, Data: buildDocx(t, sampleDocx)})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	want := "La photosynthèse\n\nElle a lieu dans les chloroplastes.\n\nEntrée | Sortie\n\nCO2 et eau | Glucose"
	if got.Text != want {
		t.Fatalf("got %q\nwant %q", got.Text, want)
	}
}

func TestExtractWordCorruptIsExtractionError(t *testing.T) {
	e := newTestExtractor()
	_, err := e.Extract(context.Background(), RawDocument{Format: FormatWord, Data: []byte("not a zip")})
	var ee *ExtractionError
	if !errors.As(err, &ee) || ee.Format != FormatWord || ee.Unwrap() == nil {
		t.Fatalf("got %v", err)
	}
}

func TestExtractPDFEmbeddedText(t *testing.T) {
	o := &fakeOCR{}
	e := newTestExtractor(
		WithPageTextReader(fakePages{pages: []string{
			"Chapitre 1 : la cellule est l'unité de base du vivant.",
			"   ",
			"Chapitre 2 : la membrane plasmique délimite la cellule.",
			"",
		}}),
		WithRasterizer(fakeRaster{n: 1}),
		WithOCR(o),
	)
	got, err := e.Extract(context.Background(), RawDocument{Format: FormatPDF, Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Outcome != OutcomeOK {
		t.Fatalf("outcome=%s", got.Outcome)
	}
	if !strings.Contains(got.Text, "unité de base du vivant.\n\nChapitre 2") {
		t.Fatalf("pages not joined by blank line: %q", got.Text)
	}
	if len(o.calls) != 0 {
		t.Fatal("ocr should not run when embedded text is sufficient")
	}
}

func TestExtractPDFFallsBackToOCRInPageOrder(t *testing.T) {
	o := &fakeOCR{}
	e := newTestExtractor(
		WithPageTextReader(fakePages{pages: []string{"  ", "p2"}}),
		WithRasterizer(fakeRaster{n: 3}),
		WithOCR(o),
	)
	got, err := e.Extract(context.Background(), RawDocument{Format: FormatPDF, Data: []byte("%PDF")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Outcome != OutcomeOCR {
		t.Fatalf("outcome=%s", got.Outcome)
	}
	want := "Scanned text of page 1\n\nScanned text of page 2\n\nScanned text of page 3"
	if got.Text != want {
		t.Fatalf("got %q", got.Text)
	}
}

func TestOCRUnavailableDegradesToEmptyText(t *testing.T) {
	e := newTestExtractor(
		WithPageTextReader(fakePages{}),
		WithRasterizer(fakeRaster{err: ocr.ErrUnavailable}),
		WithOCR(&fakeOCR{err: ocr.ErrUnavailable}),
	)
	for _, f := range []Format{FormatPDF, FormatImage} {
		got, err := e.Extract(context.Background(), RawDocument{Format: f, Data: []byte("bytes")})
		if err != nil {
			t.Fatalf("%s: unexpected error %v", f, err)
		}
		if got.Text != "" {
			t.Fatalf("%s: text=%q", f, got.Text)
		}
	}
}

func TestPDFToolFailureIsExtractionError(t *testing.T) {
	cause := errors.New("pdftotext exploded")
	e := newTestExtractor(WithPageTextReader(fakePages{err: cause}))
	_, err := e.Extract(context.Background(), RawDocument{Format: FormatPDF, Data: []byte("%PDF")})
	var ee *ExtractionError
	if !errors.As(err, &ee) || !errors.Is(err, cause) {
		t.Fatalf("got %v", err)
	}
}

func TestExtractImage(t *testing.T) {
	e := newTestExtractor(WithOCR(&fakeOCR{}))
	got, err := e.Extract(context.Background(), RawDocument{Format: FormatImage, Data: []byte("tableau noir")})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Text != "recognised tableau noir" || got.Outcome != OutcomeOCR {
		t.Fatalf("got %+v", got)
	}
}

func TestExtractBlob(t *testing.T) {
	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := blobs.Put("docs/notes.txt", strings.NewReader("Les mitochondries produisent l'énergie.")); err != nil {
		t.Fatal(err)
	}
	e := newTestExtractor()

	got, err := e.ExtractBlob(context.Background(), blobs, "docs/notes.txt", FormatText)
	if err != nil || got.Text != "Les mitochondries produisent l'énergie." {
		t.Fatalf("got %+v err=%v", got, err)
	}

	_, err = e.ExtractBlob(context.Background(), blobs, "docs/missing.txt", FormatText)
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Key != "docs/missing.txt" {
		t.Fatalf("got %v", err)
	}
}
