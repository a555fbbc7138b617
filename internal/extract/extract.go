package extract

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/mind-engage/mindengage-quizgen/internal/logger"
	"github.com/mind-engage/mindengage-quizgen/internal/metrics"
	"github.com/mind-engage/mindengage-quizgen/internal/ocr"
	"github.com/mind-engage/mindengage-quizgen/internal/storage"
)

// RawDocument is caller-owned input; the extractor never mutates Data.
type RawDocument struct {
	Name   string
	Format Format
	Data   []byte
}

type ExtractedText struct {
	Text    string
	Outcome Outcome
	Reason  string // set when Outcome is failed
}

// OCREngine recognises text in images.
type OCREngine interface {
	ImageText(ctx context.Context, data []byte) (string, error)
	PathText(ctx context.Context, path string) (string, error)
}

type Config struct {
	PDFToTextCmd    string
	MinPDFTextChars int
	Timeout         time.Duration
	OCR             ocr.Config
}

type formatExtractor func(ctx context.Context, data []byte) (string, Outcome, error)

type Extractor struct {
	handlers   map[Format]formatExtractor
	pdfText    PageTextReader
	raster     PageRasterizer
	ocr        OCREngine
	minPDFText int
	log        *logger.Logger
}

type Option func(*Extractor)

func WithOCR(o OCREngine) Option { return func(e *Extractor) { e.ocr = o } }

func WithRasterizer(r PageRasterizer) Option { return func(e *Extractor) { e.raster = r } }

func WithPageTextReader(r PageTextReader) Option { return func(e *Extractor) { e.pdfText = r } }

func New(cfg Config, log *logger.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		pdfText:    PDFToText{Cmd: cfg.PDFToTextCmd, Timeout: cfg.Timeout},
		raster:     ocr.NewRasterizer(cfg.OCR),
		ocr:        ocr.NewTesseract(cfg.OCR),
		minPDFText: cfg.MinPDFTextChars,
		log:        logger.OrNop(log).With("component", "extract"),
	}
	if e.minPDFText <= 0 {
		e.minPDFText = 50
	}
	for _, o := range opts {
		o(e)
	}
	e.handlers = map[Format]formatExtractor{
		FormatText:  e.extractText,
		FormatWord:  e.extractWord,
		FormatPDF:   e.extractPDF,
		FormatImage: e.extractImage,
	}
	return e
}

// Extract turns document bytes into normalized text. Errors are typed
// (*UnsupportedFormatError, *DecodeError, *ExtractionError); the returned
// ExtractedText carries the failure reason as well.
func (e *Extractor) Extract(ctx context.Context, doc RawDocument) (ExtractedText, error) {
	h, ok := e.handlers[doc.Format]
	if !ok {
		err := &UnsupportedFormatError{Format: string(doc.Format)}
		return e.failed(doc.Format, err), err
	}

	text, outcome, err := h(ctx, doc.Data)
	if err != nil {
		var de *DecodeError
		if !errors.As(err, &de) {
			err = &ExtractionError{Format: doc.Format, Err: err}
		}
		e.log.Error("extraction failed", "name", doc.Name, "format", doc.Format, "error", err)
		return e.failed(doc.Format, err), err
	}

	out := ExtractedText{Text: Normalize(text), Outcome: outcome}
	metrics.ExtractionsTotal.WithLabelValues(string(doc.Format), string(outcome)).Inc()
	e.log.Debug("extracted", "name", doc.Name, "format", doc.Format, "outcome", outcome, "chars", len(out.Text))
	return out, nil
}

// ExtractBlob loads the document bytes from blobs and extracts them.
func (e *Extractor) ExtractBlob(ctx context.Context, blobs storage.BlobStore, key string, f Format) (ExtractedText, error) {
	rc, err := blobs.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		nf := &NotFoundError{Key: key}
		return e.failed(f, nf), nf
	}
	if err != nil {
		return e.failed(f, err), err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return e.failed(f, err), err
	}
	return e.Extract(ctx, RawDocument{Name: key, Format: f, Data: data})
}

func (e *Extractor) failed(f Format, err error) ExtractedText {
	metrics.ExtractionsTotal.WithLabelValues(string(f), string(OutcomeFailed)).Inc()
	return ExtractedText{Outcome: OutcomeFailed, Reason: err.Error()}
}

func (e *Extractor) extractText(_ context.Context, data []byte) (string, Outcome, error) {
	s, err := decodeText(data)
	if err != nil {
		return "", "", err
	}
	return s, OutcomeOK, nil
}

func (e *Extractor) extractWord(_ context.Context, data []byte) (string, Outcome, error) {
	s, err := docxText(data)
	if err != nil {
		return "", "", err
	}
	return s, OutcomeOK, nil
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (string, Outcome, error) {
	s, err := e.ocr.ImageText(ctx, data)
	if errors.Is(err, ocr.ErrUnavailable) {
		e.log.Warn("ocr unavailable, returning empty text", "error", err)
		return "", OutcomeOCR, nil
	}
	if err != nil {
		return "", "", err
	}
	return s, OutcomeOCR, nil
}
